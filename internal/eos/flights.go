package eos

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"
)

// FlightInfo describes one recorded flight in the instrument's catalog.
//
// LocalIndex is the 1-based catalog position, 1 being the most recent
// flight. The instrument addresses download requests by this position, not
// by DeviceFlightID, which is the logger's own identifier and only useful
// for display.
type FlightInfo struct {
	LocalIndex     int
	DeviceFlightID uint16
	Date           Date
	TakeOff        time.Duration // offset from midnight
	Landing        time.Duration // offset from midnight
	SizeBytes      uint32
}

// ReadFlightList enumerates the recorded flights, newest first.
//
// Enumeration is all-or-nothing: the first index whose info request exhausts
// its retry budget aborts the whole listing and no partial catalog is
// returned. The background sentence receiver is suspended for the duration;
// interleaved telemetry bytes would corrupt reply checksums.
func (d *Device) ReadFlightList(ctx context.Context, progress ProgressReporter) ([]FlightInfo, error) {
	if progress == nil {
		progress = NopProgress{}
	}

	d.port.StopReceive()
	defer func() { _ = d.port.StartReceive() }()

	progress.SetRange(1)
	progress.SetPosition(0)

	count, err := d.flightCount()
	if err != nil {
		return nil, fmt.Errorf("flight count: %w", err)
	}

	progress.SetRange(int(count) + 1)
	progress.SetPosition(1)
	defer progress.SetPosition(int(count) + 1)

	flights := make([]FlightInfo, 0, count)
	for i := 1; i <= int(count); i++ {
		var info FlightInfo
		err := withRetry(ctx, d.retries, func() error {
			var ferr error
			info, ferr = d.flightInfo(uint16(i))
			return ferr
		})
		if err != nil {
			return nil, fmt.Errorf("flight %d info: %w", i, err)
		}
		flights = append(flights, info)
		progress.SetPosition(i + 1)
	}
	return flights, nil
}

func (d *Device) flightCount() (uint8, error) {
	resp, err := d.request(flightCountRequest(), flightCountResponseLen)
	if err != nil {
		return 0, err
	}
	return resp[1], nil
}

func (d *Device) flightInfo(index uint16) (FlightInfo, error) {
	resp, err := d.request(flightInfoRequest(index), flightInfoResponseLen)
	if err != nil {
		return FlightInfo{}, err
	}

	julian := binary.LittleEndian.Uint32(resp[offFlightJulianDate:])
	takeoff := binary.LittleEndian.Uint32(resp[offFlightTakeOff:])
	landing := binary.LittleEndian.Uint32(resp[offFlightLanding:])
	size := binary.LittleEndian.Uint32(resp[offFlightFileSize:])

	return FlightInfo{
		LocalIndex:     int(index),
		DeviceFlightID: binary.LittleEndian.Uint16(resp[1:3]),
		Date:           julianToDate(julian),
		TakeOff:        time.Duration(takeoff) * time.Second,
		Landing:        time.Duration(landing) * time.Second,
		SizeBytes:      size,
	}, nil
}

// DownloadFlight streams one recorded flight into sink, block by block.
//
// The sink is committed only after the byte counter seeded from the catalog
// entry reaches exactly zero; a block that would overrun the counter or a
// block that exhausts its retry budget fails the download with nothing
// committed. Progress is the floor percentage of bytes received, and is
// forced to 100 at the end so an attached progress bar always completes.
func (d *Device) DownloadFlight(ctx context.Context, flight FlightInfo, sink FlightSink, progress ProgressReporter) error {
	if progress == nil {
		progress = NopProgress{}
	}

	d.port.StopReceive()
	defer func() { _ = d.port.StartReceive() }()

	progress.SetRange(100)
	progress.SetPosition(0)
	defer progress.SetPosition(100)

	// Download requests address the flight by catalog position.
	flightID := uint16(flight.LocalIndex)
	total := flight.SizeBytes
	remaining := total

	for blockID := uint16(0); remaining > 0; blockID++ {
		var payload []byte
		err := withRetry(ctx, d.retries, func() error {
			var berr error
			payload, berr = d.requestBlock(flightID, blockID)
			return berr
		})
		if err != nil {
			_ = d.port.Flush()
			return fmt.Errorf("block %d: %w", blockID, err)
		}

		if uint32(len(payload)) > remaining {
			_ = d.port.Flush()
			return fmt.Errorf("block %d: %d bytes exceeds %d remaining", blockID, len(payload), remaining)
		}
		if _, err := sink.Write(payload); err != nil {
			return fmt.Errorf("block %d: sink: %w", blockID, err)
		}
		remaining -= uint32(len(payload))

		progress.SetPosition(int(100 * uint64(total-remaining) / uint64(total)))
	}

	_ = d.port.Flush()
	return sink.Commit()
}
