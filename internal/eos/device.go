package eos

import (
	"errors"
	"sync"
	"time"
)

// Port is the byte-level link to the instrument. Implementations live in
// internal/port; tests use an in-memory script.
//
// All blocking calls take an explicit timeout and fail with an error when it
// elapses. StopReceive must not return until the background
// line receiver is parked: binary exchanges and the receiver must never read
// the link at the same time.
type Port interface {
	Write(p []byte, timeout time.Duration) error
	ReadFull(p []byte, timeout time.Duration) error
	WaitForByte(want byte, timeout time.Duration) error
	Flush() error
	StartReceive() error
	StopReceive()
}

// ErrNotReady signals a precondition failure: the operation needs state the
// device has not reported yet. Distinct from transport failures.
var ErrNotReady = errors.New("device settings not known yet")

// Timeouts bundles the per-step link timeouts of one binary exchange.
type Timeouts struct {
	Write    time.Duration
	Ack      time.Duration
	Response time.Duration
}

// DefaultTimeouts matches the instrument's documented response behavior.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Write:    1 * time.Second,
		Ack:      3 * time.Second,
		Response: 5 * time.Second,
	}
}

// Config tunes a Device. Zero values fall back to protocol defaults.
type Config struct {
	Timeouts Timeouts
	// RetryAttempts bounds per-flight-info and per-block attempts.
	RetryAttempts int
	// SentenceIntervals is the PFLX0 argument string selecting how often the
	// vario emits each sentence type.
	SentenceIntervals string
}

const defaultRetryAttempts = 5

// defaultSentenceIntervals: primary telemetry every second, device info every
// 60 s, settings every 11 s, QNH sentence every 17 s. Odd periods keep the
// settings and QNH sentences from colliding (the vario drops one when both
// are due in the same second).
const defaultSentenceIntervals = "LXWP0,1,LXWP1,60,LXWP2,11,LXWP3,17"

// Device is the protocol driver for one vario session. It is safe for a
// sentence-feeding goroutine and a command-issuing goroutine to use one
// Device concurrently; the settings cache is the only shared state and is
// guarded by its own mutex.
type Device struct {
	port      Port
	telemetry TelemetrySink
	settings  SettingsSink

	timeouts  Timeouts
	retries   int
	intervals string

	mu    sync.Mutex
	vario varioSettings
}

// varioSettings is the last known settings triple of the instrument.
// upToDate flips true only when the device itself reports the triple.
type varioSettings struct {
	mc       float64 // MacCready, m/s
	bugs     float64 // device convention, percent, lower = cleaner
	bal      float64 // total mass over polar reference mass
	upToDate bool
}

// New builds a Device on top of an open port.
func New(port Port, telemetry TelemetrySink, settings SettingsSink, cfg Config) *Device {
	if cfg.Timeouts.Write <= 0 {
		cfg.Timeouts.Write = DefaultTimeouts().Write
	}
	if cfg.Timeouts.Ack <= 0 {
		cfg.Timeouts.Ack = DefaultTimeouts().Ack
	}
	if cfg.Timeouts.Response <= 0 {
		cfg.Timeouts.Response = DefaultTimeouts().Response
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = defaultRetryAttempts
	}
	if cfg.SentenceIntervals == "" {
		cfg.SentenceIntervals = defaultSentenceIntervals
	}
	return &Device{
		port:      port,
		telemetry: telemetry,
		settings:  settings,
		timeouts:  cfg.Timeouts,
		retries:   cfg.RetryAttempts,
		intervals: cfg.SentenceIntervals,
		vario:     varioSettings{bal: 1},
	}
}

// LinkTimeout marks the cached settings stale. Called when the link drops;
// a stale triple must not be echoed back to the instrument.
func (d *Device) LinkTimeout() {
	d.mu.Lock()
	d.vario.upToDate = false
	d.mu.Unlock()
}
