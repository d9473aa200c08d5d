// Package marker implements the file-mtime liveness-beacon pattern this
// system has always relied on: small files whose presence, JSON content,
// and modification time together encode a worker's state across restarts.
// Writes are tmp-file-then-rename so a reader never observes a half-written
// marker, matching this codebase's existing atomic-save idiom.
package marker

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Touch creates or updates a zero-byte marker at path, refreshing its mtime.
// This is the liveness-beacon primitive: workers call it once per successful
// iteration, and an external probe compares now-mtime against the worker's
// interval.
func Touch(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	now := time.Now()
	if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644); err == nil {
		f.Close()
	} else {
		return err
	}
	return os.Chtimes(path, now, now)
}

// Clear removes a marker. Missing-file is not an error.
func Clear(path string) error {
	err := os.Remove(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// Exists reports whether the marker is present.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Elapsed returns the wall time since the marker's mtime. Callers that need
// a restart-safe elapsed computation should prefer content with its own
// timestamp (see WriteJSON/ReadJSON) over this, since mtime alone is lost if
// the marker is rewritten for an unrelated reason.
func Elapsed(path string) (time.Duration, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return time.Since(info.ModTime()), nil
}

// WriteJSON atomically (tmp file + rename) writes v as the marker's content.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	if err := enc.Encode(v); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// ReadJSON decodes the marker's JSON content into v. Returns os.ErrNotExist
// (wrapped) if the marker is absent.
func ReadJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(v)
}
