package flightstore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSink_CommitMakesFlightVisible(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flights", "2025-10-01_flight1.log")

	sink, err := NewFileSink(path)
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}
	if _, err := sink.Write([]byte("ABCDEF")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("flight visible before commit")
	}

	if err := sink.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(b) != "ABCDEF" {
		t.Fatalf("content=%q", b)
	}
	if _, err := os.Stat(path + ".part"); !os.IsNotExist(err) {
		t.Fatal("part file left behind after commit")
	}
}

func TestFileSink_AbortLeavesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flight.log")

	sink, err := NewFileSink(path)
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}
	if _, err := sink.Write([]byte("partial")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	sink.Abort()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("final path exists after abort")
	}
	if _, err := os.Stat(path + ".part"); !os.IsNotExist(err) {
		t.Fatal("part file exists after abort")
	}
}

func TestFileSink_WriteAfterCommitFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flight.log")

	sink, err := NewFileSink(path)
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}
	if err := sink.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := sink.Write([]byte("late")); err == nil {
		t.Fatal("expected write-after-commit error")
	}
	// Abort after commit is a no-op and must not remove the flight.
	sink.Abort()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("flight missing after post-commit abort: %v", err)
	}
}
