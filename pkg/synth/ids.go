package synth

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDAllocator hands out element and group ids. Implementations must be safe
// for concurrent use and must not repeat an id within one allocator.
type IDAllocator interface {
	Next() string
}

// UUIDAllocator allocates random (version 4) UUIDs.
type UUIDAllocator struct{}

// Next returns a new UUID string.
func (UUIDAllocator) Next() string { return uuid.NewString() }

// SequenceAllocator allocates "<prefix>-<n>" ids with n counting up from 1.
type SequenceAllocator struct {
	prefix string
	n      atomic.Uint64
}

// NewSequenceAllocator returns an allocator whose ids start with prefix.
// An empty prefix defaults to "el".
func NewSequenceAllocator(prefix string) *SequenceAllocator {
	if prefix == "" {
		prefix = "el"
	}
	return &SequenceAllocator{prefix: prefix}
}

// Next returns the next id in the sequence.
func (s *SequenceAllocator) Next() string {
	return s.prefix + "-" + strconv.FormatUint(s.n.Add(1), 10)
}
