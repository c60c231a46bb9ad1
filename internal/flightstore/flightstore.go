// Package flightstore persists downloaded flight logs with append-then-commit
// semantics: bytes go to a hidden part file and only an explicit Commit makes
// the flight visible under its final name.
package flightstore

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileSink writes a flight log to path atomically. A sink that is never
// committed leaves no visible artifact after Abort.
type FileSink struct {
	path string
	f    *os.File
	done bool
}

// NewFileSink creates the part file next to the final path.
func NewFileSink(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path + ".part")
	if err != nil {
		return nil, err
	}
	return &FileSink{path: path, f: f}, nil
}

func (s *FileSink) Write(p []byte) (int, error) {
	if s.done {
		return 0, fmt.Errorf("flightstore: write after commit/abort")
	}
	return s.f.Write(p)
}

// Commit flushes the part file and renames it into place.
func (s *FileSink) Commit() error {
	if s.done {
		return fmt.Errorf("flightstore: already finished")
	}
	s.done = true
	if err := s.f.Sync(); err != nil {
		_ = s.f.Close()
		return err
	}
	if err := s.f.Close(); err != nil {
		return err
	}
	return os.Rename(s.path+".part", s.path)
}

// Abort discards the part file. Safe to call after Commit; it then does
// nothing.
func (s *FileSink) Abort() {
	if s.done {
		return
	}
	s.done = true
	_ = s.f.Close()
	_ = os.Remove(s.path + ".part")
}
