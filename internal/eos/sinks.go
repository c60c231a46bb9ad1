package eos

import "time"

// DeviceInfo carries the static identity strings the vario reports once per
// session in its device-info sentence.
type DeviceInfo struct {
	Product         string
	Serial          string
	SoftwareVersion string
	HardwareVersion string
}

// Wind is an external wind estimate from the instrument.
type Wind struct {
	BearingDeg float64
	SpeedMPS   float64
}

// TelemetrySink receives normalized telemetry decoded from the sentence
// stream. Values are handed over as soon as they are decoded; the driver
// keeps no copy. Speeds are m/s, altitudes are meters.
type TelemetrySink interface {
	ProvideTrueAirspeed(mps float64)
	ProvideBaroAltitudeTrue(m float64)
	ProvideVario(mps float64)
	ProvideWind(w Wind)
	ProvideDeviceInfo(info DeviceInfo)
}

// SettingsSink receives pilot-setting values reported by the instrument,
// each tagged with the wall-clock time the sentence was handled.
type SettingsSink interface {
	ProvideMacCready(mps float64, at time.Time)
	// ProvideBugs takes the host convention: a 0..1 fraction where 1 is a
	// clean wing.
	ProvideBugs(fraction float64, at time.Time)
	// ProvideQNH takes a static pressure in hPa.
	ProvideQNH(hPa float64, at time.Time)
}

// FlightSink receives downloaded flight log bytes. Nothing written is visible
// to readers until Commit; a download that fails mid-way never commits.
type FlightSink interface {
	Write(p []byte) (int, error)
	Commit() error
}

// ProgressReporter receives coarse progress for long-running link operations.
// Implementations must be cheap; they are called from the transfer loop.
type ProgressReporter interface {
	SetRange(n int)
	SetPosition(n int)
}

// NopProgress discards progress updates.
type NopProgress struct{}

func (NopProgress) SetRange(int)    {}
func (NopProgress) SetPosition(int) {}
