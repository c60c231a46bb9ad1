package task

import (
	"os"
	"path/filepath"
	"testing"

	"eoslink/internal/eos"
)

const sampleTask = `
pilot: Jane Pilot
glider: LS8
registration: OK-1234
competition_id: JP
home:
  name: HOME
  lat_deg: 49.0
  lon_deg: 16.0
turnpoints:
  - name: START
    lat_deg: 49.3
    lon_deg: 16.1
    zone:
      type: start
      radius1_m: 1000
      angle12_deg: 90
  - name: TP1
    lat_deg: 49.9
    lon_deg: 16.5
    zone:
      radius1_m: 500
  - name: FINISH
    lat_deg: 49.3
    lon_deg: 16.1
    zone:
      orientation: previous
      radius1_m: 3000
`

func writeTask(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "task.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_Sample(t *testing.T) {
	decl, home, err := Load(writeTask(t, sampleTask))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if decl.Pilot != "Jane Pilot" || decl.CompetitionID != "JP" {
		t.Fatalf("identity=%+v", decl)
	}
	if home == nil || home.Name != "HOME" {
		t.Fatalf("home=%+v", home)
	}
	if len(decl.Turnpoints) != 3 {
		t.Fatalf("turnpoints=%d", len(decl.Turnpoints))
	}

	if decl.Turnpoints[0].Zone.Type != eos.ZoneStart {
		t.Fatalf("first zone type=%v", decl.Turnpoints[0].Zone.Type)
	}
	// Untyped middle point defaults to a turn zone, untyped last to finish.
	if decl.Turnpoints[1].Zone.Type != eos.ZoneTurn {
		t.Fatalf("middle zone type=%v", decl.Turnpoints[1].Zone.Type)
	}
	if decl.Turnpoints[2].Zone.Orientation != eos.OrientPrevious {
		t.Fatalf("finish orientation=%v", decl.Turnpoints[2].Zone.Orientation)
	}
}

func TestLoad_RejectsBadCoordinates(t *testing.T) {
	bad := `
pilot: X
turnpoints:
  - name: T
    lat_deg: 95.0
    lon_deg: 16.0
`
	if _, _, err := Load(writeTask(t, bad)); err == nil {
		t.Fatal("expected latitude range error")
	}
}

func TestLoad_RejectsUnknownZoneType(t *testing.T) {
	bad := `
pilot: X
turnpoints:
  - name: T
    lat_deg: 49.0
    lon_deg: 16.0
    zone:
      type: cone
`
	if _, _, err := Load(writeTask(t, bad)); err == nil {
		t.Fatal("expected zone type error")
	}
}
