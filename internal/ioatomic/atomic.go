// Package ioatomic provides the write-then-rename and append-fsync
// primitives that every state file and log in papertick is built on.
package ioatomic

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteJSON marshals v and atomically replaces path with the result:
// write to path+".tmp", fsync, rename over path. The temp file is
// removed on any error so a failed write never leaves garbage behind.
func WriteJSON(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ioatomic: mkdir %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(v, "", " ")
	if err != nil {
		return fmt.Errorf("ioatomic: marshal %s: %w", path, err)
	}

	return WriteFile(path, data)
}

// WriteFile atomically replaces path with data via a temp file, fsync,
// and rename. Parent directories are created on demand.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ioatomic: mkdir %s: %w", dir, err)
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("ioatomic: create %s: %w", tmp, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("ioatomic: write %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("ioatomic: fsync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("ioatomic: close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("ioatomic: rename %s -> %s: %w", tmp, path, err)
	}
	return nil
}

// ReadJSON reads and unmarshals path into v. Callers treat a missing
// file as "no prior state" rather than an error.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// AppendJSONL marshals v as a single line and appends it to path,
// flushing and fsyncing before return so a concurrent tail-follower
// never observes a partial record.
func AppendJSONL(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ioatomic: mkdir %s: %w", dir, err)
	}

	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("ioatomic: marshal %s: %w", path, err)
	}
	line = append(line, '\n')

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("ioatomic: open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("ioatomic: append %s: %w", path, err)
	}
	return f.Sync()
}
