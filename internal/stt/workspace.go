package stt

import (
	"os"
	"path/filepath"
)

// workspace is the temp directory holding one run's artifacts.
type workspace struct {
	dir       string
	removeAll func(string) error
}

func newWorkspace(parent string) (*workspace, error) {
	dir, err := os.MkdirTemp(parent, "voicebox-run-*")
	if err != nil {
		return nil, err
	}
	return &workspace{dir: dir, removeAll: os.RemoveAll}, nil
}

func (w *workspace) path(name string) string {
	return filepath.Join(w.dir, name)
}

// Cleanup removes the workspace. Calling it again is a no-op.
func (w *workspace) Cleanup() error {
	if w == nil || w.dir == "" {
		return nil
	}
	if err := w.removeAll(w.dir); err != nil {
		return err
	}
	w.dir = ""
	return nil
}
