package eos

import (
	"fmt"

	"eoslink/internal/nmea"
)

// EnableNMEA asks the vario to emit the sentence set this driver consumes,
// at the configured periods, then discards whatever was buffered on the line
// before the request.
//
// The instrument also pushes its settings sentence immediately whenever the
// pilot changes a knob; the periodic emission is a backup sync path.
func (d *Device) EnableNMEA() error {
	if err := d.writeSentence("PFLX0," + d.intervals); err != nil {
		return err
	}
	return d.port.Flush()
}

// PutMacCready updates the cached MacCready value (m/s) and pushes the full
// settings triple to the instrument.
func (d *Device) PutMacCready(mc float64) error {
	d.mu.Lock()
	d.vario.mc = mc
	frame, err := d.settingsSentenceLocked()
	d.mu.Unlock()
	if err != nil {
		return err
	}
	return d.port.Write(frame, d.timeouts.Write)
}

// PutBugs updates the cached bugs factor and pushes the full settings triple.
// The host convention is a 0..1 cleanliness fraction; the instrument wants a
// degradation percentage.
func (d *Device) PutBugs(fraction float64) error {
	d.mu.Lock()
	d.vario.bugs = (1 - fraction) * 100
	frame, err := d.settingsSentenceLocked()
	d.mu.Unlock()
	if err != nil {
		return err
	}
	return d.port.Write(frame, d.timeouts.Write)
}

// settingsSentenceLocked formats the outbound settings sentence from the
// cached triple. Callers hold d.mu; the blocking write happens after release.
//
// MacCready, ballast and bugs can only be set together. Until the device has
// reported its own triple at least once the ballast value here would be a
// guess, and sending it would silently overwrite the pilot's ballast on the
// instrument, so the push is refused instead.
func (d *Device) settingsSentenceLocked() ([]byte, error) {
	if !d.vario.upToDate {
		return nil, ErrNotReady
	}
	payload := fmt.Sprintf("PFLX2,%.1f,%.2f,%.0f,,,,,",
		d.vario.mc, d.vario.bal, d.vario.bugs)
	return []byte(nmea.Format(payload)), nil
}

func (d *Device) writeSentence(payload string) error {
	return d.port.Write([]byte(nmea.Format(payload)), d.timeouts.Write)
}

// Settings returns the cached triple and whether it is authoritative.
// Bugs are reported in the host's 0..1 fraction convention.
func (d *Device) Settings() (mc, bugsFraction, ballast float64, fresh bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.vario.mc, (100 - d.vario.bugs) / 100, d.vario.bal, d.vario.upToDate
}
