package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/canvasflow/pkg/canvas"
)

type groupsDoc struct {
	Groups []canvas.Group `json:"groups"`
}

// WriteGroups encodes groups as indented JSON and writes them to w.
func WriteGroups(groups []canvas.Group, w io.Writer) error {
	if groups == nil {
		groups = []canvas.Group{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(groupsDoc{Groups: groups}); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportGroups writes groups to the file at path, creating or truncating it.
func ExportGroups(groups []canvas.Group, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteGroups(groups, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
