// Package task loads flight-task declaration files for upload to the
// instrument.
package task

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"eoslink/internal/eos"
)

// File is the on-disk declaration format.
type File struct {
	Pilot         string      `yaml:"pilot"`
	Glider        string      `yaml:"glider"`
	Registration  string      `yaml:"registration"`
	CompetitionID string      `yaml:"competition_id"`
	Home          *Point      `yaml:"home"`
	Turnpoints    []Turnpoint `yaml:"turnpoints"`
}

type Point struct {
	Name   string  `yaml:"name"`
	LatDeg float64 `yaml:"lat_deg"`
	LonDeg float64 `yaml:"lon_deg"`
}

type Turnpoint struct {
	Point `yaml:",inline"`
	Zone  Zone `yaml:"zone"`
}

type Zone struct {
	// Type is start, turn, finish or landing.
	Type string `yaml:"type"`
	// Orientation is symmetric, fixed, next or previous.
	Orientation string  `yaml:"orientation"`
	Radius1M    float64 `yaml:"radius1_m"`
	Radius2M    float64 `yaml:"radius2_m"`
	Angle1Deg   float64 `yaml:"angle1_deg"`
	Angle2Deg   float64 `yaml:"angle2_deg"`
	Angle12Deg  float64 `yaml:"angle12_deg"`
	ElevationM  float64 `yaml:"elevation_m"`
}

// Load reads and validates a declaration file, returning the driver-level
// declaration plus the optional home point.
func Load(path string) (eos.Declaration, *eos.Turnpoint, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return eos.Declaration{}, nil, err
	}

	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return eos.Declaration{}, nil, err
	}
	return f.Declaration()
}

// Declaration converts the file form into driver types.
func (f File) Declaration() (eos.Declaration, *eos.Turnpoint, error) {
	decl := eos.Declaration{
		Pilot:         f.Pilot,
		Glider:        f.Glider,
		Registration:  f.Registration,
		CompetitionID: f.CompetitionID,
	}

	for i, tp := range f.Turnpoints {
		if err := checkPoint(tp.Point); err != nil {
			return eos.Declaration{}, nil, fmt.Errorf("turnpoint %d: %w", i+1, err)
		}
		zt, err := zoneType(tp.Zone.Type, i, len(f.Turnpoints))
		if err != nil {
			return eos.Declaration{}, nil, fmt.Errorf("turnpoint %d: %w", i+1, err)
		}
		orient, err := orientation(tp.Zone.Orientation)
		if err != nil {
			return eos.Declaration{}, nil, fmt.Errorf("turnpoint %d: %w", i+1, err)
		}
		decl.Turnpoints = append(decl.Turnpoints, eos.Turnpoint{
			Name:   tp.Name,
			LatDeg: tp.LatDeg,
			LonDeg: tp.LonDeg,
			Zone: eos.ObservationZone{
				Type:        zt,
				Orientation: orient,
				Radius1M:    tp.Zone.Radius1M,
				Radius2M:    tp.Zone.Radius2M,
				Angle1Deg:   tp.Zone.Angle1Deg,
				Angle2Deg:   tp.Zone.Angle2Deg,
				Angle12Deg:  tp.Zone.Angle12Deg,
				ElevationM:  tp.Zone.ElevationM,
			},
		})
	}

	var home *eos.Turnpoint
	if f.Home != nil {
		if err := checkPoint(*f.Home); err != nil {
			return eos.Declaration{}, nil, fmt.Errorf("home: %w", err)
		}
		home = &eos.Turnpoint{
			Name:   f.Home.Name,
			LatDeg: f.Home.LatDeg,
			LonDeg: f.Home.LonDeg,
		}
	}
	return decl, home, nil
}

func checkPoint(p Point) error {
	if p.LatDeg < -90 || p.LatDeg > 90 {
		return fmt.Errorf("latitude %v out of range", p.LatDeg)
	}
	if p.LonDeg < -180 || p.LonDeg > 180 {
		return fmt.Errorf("longitude %v out of range", p.LonDeg)
	}
	return nil
}

func zoneType(s string, index, count int) (eos.ZoneType, error) {
	switch s {
	case "start":
		return eos.ZoneStart, nil
	case "turn":
		return eos.ZoneTurn, nil
	case "finish":
		return eos.ZoneFinish, nil
	case "landing":
		return eos.ZoneLanding, nil
	case "":
		// Default by task position.
		switch {
		case index == 0:
			return eos.ZoneStart, nil
		case index == count-1:
			return eos.ZoneFinish, nil
		default:
			return eos.ZoneTurn, nil
		}
	default:
		return 0, fmt.Errorf("unknown zone type %q", s)
	}
}

func orientation(s string) (eos.Orientation, error) {
	switch s {
	case "", "symmetric":
		return eos.OrientSymmetric, nil
	case "fixed":
		return eos.OrientFixed, nil
	case "next":
		return eos.OrientNext, nil
	case "previous":
		return eos.OrientPrevious, nil
	default:
		return 0, fmt.Errorf("unknown zone orientation %q", s)
	}
}
