package eos

import (
	"context"
	"fmt"
)

// ZoneType classifies a declared turnpoint.
type ZoneType uint8

const (
	ZoneStart ZoneType = iota
	ZoneTurn
	ZoneFinish
	ZoneLanding
)

// Orientation selects how an observation zone is aligned.
type Orientation uint8

const (
	OrientSymmetric Orientation = iota
	OrientFixed
	OrientNext
	OrientPrevious
)

// ObservationZone is the acceptance geometry around a declared turnpoint.
type ObservationZone struct {
	Type        ZoneType
	Orientation Orientation
	Radius1M    float64
	Radius2M    float64
	Angle1Deg   float64
	Angle2Deg   float64
	Angle12Deg  float64
	ElevationM  float64
}

// Turnpoint is one declared task point.
type Turnpoint struct {
	Name   string
	LatDeg float64
	LonDeg float64
	Zone   ObservationZone
}

// Declaration is the task and identity set uploaded to the instrument before
// an official flight.
type Declaration struct {
	Pilot         string
	Glider        string
	Registration  string
	CompetitionID string
	Turnpoints    []Turnpoint
}

// Declare uploads a task declaration: the header record with identity and
// coordinates, one observation-zone record per declared point, and the
// competition-class record. Each record carries its own trailing checksum
// and is individually acknowledged; the first failed exchange aborts the
// sequence. What the instrument retains after a partial sequence is its own
// affair, but this driver never reports such an upload as successful.
//
// When home is non-nil it is declared as both the takeoff and the landing
// point, bracketing the task.
func (d *Device) Declare(ctx context.Context, decl Declaration, home *Turnpoint) error {
	rows := declarationRows(decl, home)
	if len(rows) > maxDeclTurnpoints {
		return fmt.Errorf("declaration has %d turnpoints, instrument limit is %d",
			len(rows), maxDeclTurnpoints)
	}

	frames := make([][]byte, 0, len(rows)+2)
	frames = append(frames, declarationRecord(decl, rows))
	for i, tp := range rows {
		frames = append(frames, obsZoneRecord(i, tp.Zone))
	}
	// The host declaration model carries no class name; the record is still
	// required by the sequence.
	frames = append(frames, classRecord(""))

	d.port.StopReceive()
	defer func() { _ = d.port.StartReceive() }()

	for i, frame := range frames {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.writeAndWaitACK(frame); err != nil {
			return fmt.Errorf("declaration record %d/%d: %w", i+1, len(frames), err)
		}
	}
	return nil
}

func declarationRows(decl Declaration, home *Turnpoint) []Turnpoint {
	if home == nil {
		return decl.Turnpoints
	}

	takeoff := *home
	takeoff.Zone = ObservationZone{Type: ZoneLanding}
	landing := takeoff

	rows := make([]Turnpoint, 0, len(decl.Turnpoints)+2)
	rows = append(rows, takeoff)
	rows = append(rows, decl.Turnpoints...)
	rows = append(rows, landing)
	return rows
}
