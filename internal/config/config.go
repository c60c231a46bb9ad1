package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port Port `yaml:"port"`
	Link Link `yaml:"link"`
}

type Port struct {
	// Device is the serial device path, e.g. /dev/rfcomm0 for a Bluetooth
	// bridge or /dev/ttyUSB0 for a cable.
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
	// Driver selects the serial backend: "serial" (portable) or "termios".
	Driver string `yaml:"driver"`
}

type Link struct {
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	AckTimeout      time.Duration `yaml:"ack_timeout"`
	ResponseTimeout time.Duration `yaml:"response_timeout"`

	// RetryAttempts bounds per-flight-info and per-block attempts.
	RetryAttempts int `yaml:"retry_attempts"`

	// SentenceIntervals is the emission-period argument list sent to the
	// instrument at session start.
	SentenceIntervals string `yaml:"sentence_intervals"`

	// DownloadDir receives downloaded flight logs.
	DownloadDir string `yaml:"download_dir"`
}

// Load reads the YAML config, overlays EOSLINK_* environment variables and
// fills defaults. The environment overlay makes the same config file usable
// across machines where only the device path differs.
func Load(path string) (Config, error) {
	var cfg Config

	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("EOSLINK_DEVICE"); v != "" {
		cfg.Port.Device = v
	}
	if v := os.Getenv("EOSLINK_BAUD"); v != "" {
		baud, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("EOSLINK_BAUD: %w", err)
		}
		cfg.Port.Baud = baud
	}
	if v := os.Getenv("EOSLINK_DRIVER"); v != "" {
		cfg.Port.Driver = v
	}

	if cfg.Port.Device == "" {
		return Config{}, fmt.Errorf("port.device is required")
	}
	if cfg.Port.Baud <= 0 {
		cfg.Port.Baud = 19200
	}
	if cfg.Port.Driver == "" {
		cfg.Port.Driver = "serial"
	}
	if cfg.Port.Driver != "serial" && cfg.Port.Driver != "termios" {
		return Config{}, fmt.Errorf("port.driver must be \"serial\" or \"termios\", got %q", cfg.Port.Driver)
	}

	if cfg.Link.WriteTimeout <= 0 {
		cfg.Link.WriteTimeout = 1 * time.Second
	}
	if cfg.Link.AckTimeout <= 0 {
		cfg.Link.AckTimeout = 3 * time.Second
	}
	if cfg.Link.ResponseTimeout <= 0 {
		cfg.Link.ResponseTimeout = 5 * time.Second
	}
	if cfg.Link.RetryAttempts <= 0 {
		cfg.Link.RetryAttempts = 5
	}
	if cfg.Link.DownloadDir == "" {
		cfg.Link.DownloadDir = "./flights"
	}

	return cfg, nil
}
