package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/canvasflow/pkg/canvas"
	"github.com/matzehuels/canvasflow/pkg/errors"
)

type snapshotDoc struct {
	Viewport canvas.Viewport   `json:"viewport"`
	Existing []canvas.Geometry `json:"existing"`
	Groups   []struct {
		Members []struct {
			Geometry canvas.Geometry `json:"geometry"`
		} `json:"members"`
	} `json:"groups"`
}

// ReadSnapshot decodes a canvas snapshot from r.
//
// Geometry from "existing" comes first, followed by every group member in
// document order. ReadSnapshot returns an INVALID_INPUT error if the JSON is
// malformed or a rectangle has a negative or NaN dimension. It does not
// close r.
func ReadSnapshot(r io.Reader) (canvas.Snapshot, error) {
	var doc snapshotDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return canvas.Snapshot{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode snapshot")
	}

	snap := canvas.Snapshot{Viewport: doc.Viewport, Existing: doc.Existing}
	for _, g := range doc.Groups {
		for _, m := range g.Members {
			snap.Existing = append(snap.Existing, m.Geometry)
		}
	}

	if err := validateViewport(snap.Viewport); err != nil {
		return canvas.Snapshot{}, err
	}
	for i, g := range snap.Existing {
		if err := errors.ValidateDimension(fmt.Sprintf("existing[%d].width", i), g.Width); err != nil {
			return canvas.Snapshot{}, err
		}
		if err := errors.ValidateDimension(fmt.Sprintf("existing[%d].height", i), g.Height); err != nil {
			return canvas.Snapshot{}, err
		}
	}
	return snap, nil
}

// ImportSnapshot reads a snapshot from the file at path.
func ImportSnapshot(path string) (canvas.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return canvas.Snapshot{}, err
	}
	defer f.Close()
	return ReadSnapshot(f)
}

func validateViewport(v canvas.Viewport) error {
	if err := errors.ValidateDimension("viewport.width", v.Width); err != nil {
		return err
	}
	return errors.ValidateDimension("viewport.height", v.Height)
}
