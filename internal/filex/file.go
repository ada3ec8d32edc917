// Package filex has small filesystem helpers shared by the client.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureParentDir creates the directory that will hold path, if needed.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}

// WriteFile writes data to path through a temp file in the same directory
// and renames it into place, so readers never observe a partial file.
func WriteFile(path string, data []byte) error {
	if err := EnsureParentDir(path); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".foodie-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
