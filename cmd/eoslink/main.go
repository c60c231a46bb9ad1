package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"eoslink/internal/config"
	"eoslink/internal/eos"
	"eoslink/internal/flightstore"
	"eoslink/internal/port"
	"eoslink/internal/sim"
	"eoslink/internal/task"
)

func main() {
	var (
		configPath  string
		list        bool
		download    int
		outPath     string
		declarePath string
		mc          float64
		bugs        float64
		watch       time.Duration
		useSim      bool
	)
	flag.StringVar(&configPath, "config", "./dev.yaml", "Path to YAML config")
	flag.BoolVar(&list, "list", false, "List recorded flights")
	flag.IntVar(&download, "download", 0, "Download flight by catalog index (1 = newest)")
	flag.StringVar(&outPath, "out", "", "Output path for -download (default under link.download_dir)")
	flag.StringVar(&declarePath, "declare", "", "Upload the task declaration from this YAML file")
	flag.Float64Var(&mc, "mc", -1, "Set MacCready value (m/s)")
	flag.Float64Var(&bugs, "bugs", -1, "Set bugs factor (0..1 fraction, 1 = clean)")
	flag.DurationVar(&watch, "watch", 0, "Stream telemetry to the log for this long")
	flag.BoolVar(&useSim, "sim", false, "Run against the built-in instrument simulator")
	flag.Parse()

	// Optional .env for EOSLINK_* overrides; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var dev *eos.Device
	handleLine := func(line string) {
		if dev != nil {
			dev.HandleSentence(line, time.Now())
		}
	}

	var link eos.Port
	var vario *sim.Vario
	if useSim {
		vario = sim.NewVario(simFlights())
		vario.SetLineHandler(handleLine)
		link = vario
	} else {
		l, err := port.Open(port.Config{
			Device: cfg.Port.Device,
			Baud:   cfg.Port.Baud,
			Driver: cfg.Port.Driver,
		}, handleLine)
		if err != nil {
			log.Fatalf("port open failed: %v", err)
		}
		defer l.Close()
		link = l
	}

	dev = eos.New(link, logTelemetry{}, logSettings{}, eos.Config{
		Timeouts: eos.Timeouts{
			Write:    cfg.Link.WriteTimeout,
			Ack:      cfg.Link.AckTimeout,
			Response: cfg.Link.ResponseTimeout,
		},
		RetryAttempts:     cfg.Link.RetryAttempts,
		SentenceIntervals: cfg.Link.SentenceIntervals,
	})

	log.Printf("eoslink starting device=%s baud=%d driver=%s sim=%v",
		cfg.Port.Device, cfg.Port.Baud, cfg.Port.Driver, useSim)

	if err := link.StartReceive(); err != nil {
		log.Fatalf("receive start failed: %v", err)
	}
	if err := dev.EnableNMEA(); err != nil {
		log.Printf("sentence setup failed: %v", err)
	}

	switch {
	case list:
		runList(ctx, dev)
	case download > 0:
		runDownload(ctx, dev, download, outPath, cfg.Link.DownloadDir)
	case declarePath != "":
		runDeclare(ctx, dev, declarePath)
	case mc >= 0:
		runSetting("maccready", dev.PutMacCready(mc))
	case bugs >= 0:
		runSetting("bugs", dev.PutBugs(bugs))
	default:
		if watch <= 0 {
			watch = 10 * time.Second
		}
		runWatch(ctx, vario, watch)
	}

	log.Printf("eoslink stopping")
}

func runList(ctx context.Context, dev *eos.Device) {
	flights, err := dev.ReadFlightList(ctx, logProgress{name: "list"})
	if err != nil {
		log.Fatalf("flight list failed: %v", err)
	}
	for _, f := range flights {
		fmt.Printf("%3d  %04d-%02d-%02d  %s - %s  %8d bytes  (logger id %d)\n",
			f.LocalIndex, f.Date.Year, f.Date.Month, f.Date.Day,
			fmtDayTime(f.TakeOff), fmtDayTime(f.Landing), f.SizeBytes, f.DeviceFlightID)
	}
}

func runDownload(ctx context.Context, dev *eos.Device, index int, outPath, downloadDir string) {
	flights, err := dev.ReadFlightList(ctx, logProgress{name: "list"})
	if err != nil {
		log.Fatalf("flight list failed: %v", err)
	}
	if index > len(flights) {
		log.Fatalf("flight %d not found, catalog has %d", index, len(flights))
	}
	flight := flights[index-1]

	if outPath == "" {
		outPath = filepath.Join(downloadDir, fmt.Sprintf("%04d-%02d-%02d_flight%d.log",
			flight.Date.Year, flight.Date.Month, flight.Date.Day, flight.LocalIndex))
	}
	sink, err := flightstore.NewFileSink(outPath)
	if err != nil {
		log.Fatalf("sink create failed: %v", err)
	}

	if err := dev.DownloadFlight(ctx, flight, sink, logProgress{name: "download"}); err != nil {
		sink.Abort()
		log.Fatalf("download failed: %v", err)
	}
	log.Printf("downloaded flight=%d bytes=%d path=%s", flight.LocalIndex, flight.SizeBytes, outPath)
}

func runDeclare(ctx context.Context, dev *eos.Device, path string) {
	decl, home, err := task.Load(path)
	if err != nil {
		log.Fatalf("task load failed: %v", err)
	}
	if err := dev.Declare(ctx, decl, home); err != nil {
		log.Fatalf("declaration failed: %v", err)
	}
	log.Printf("declaration uploaded pilot=%q turnpoints=%d", decl.Pilot, len(decl.Turnpoints))
}

func runSetting(name string, err error) {
	if err != nil {
		log.Fatalf("%s update failed: %v", name, err)
	}
	log.Printf("%s updated", name)
}

// runWatch streams telemetry to the log. Against the simulator it also
// drives the instrument side so there is something to see.
func runWatch(ctx context.Context, vario *sim.Vario, d time.Duration) {
	deadline := time.After(d)
	tick := time.NewTicker(1 * time.Second)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case <-tick.C:
			if vario != nil {
				vario.EmitTelemetry(119.4, 1717.6, 0.42)
				vario.EmitSettings(1.5, 1.0, 10)
			}
		}
	}
}

func fmtDayTime(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	s := int((d % time.Minute) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// simFlights is the canned catalog served in -sim mode.
func simFlights() []sim.Flight {
	data := make([]byte, 1234)
	for i := range data {
		data[i] = byte(i)
	}
	return []sim.Flight{
		{DeviceFlightID: 42, JulianDate: 2460950, TakeOffSec: 10 * 3600, LandingSec: 13*3600 + 1800, Data: data},
		{DeviceFlightID: 41, JulianDate: 2460949, TakeOffSec: 9 * 3600, LandingSec: 11 * 3600, Data: data[:700]},
	}
}

// logTelemetry and logSettings print what a host application would store.
type logTelemetry struct{}

func (logTelemetry) ProvideTrueAirspeed(mps float64)   { log.Printf("telemetry tas=%.1fm/s", mps) }
func (logTelemetry) ProvideBaroAltitudeTrue(m float64) { log.Printf("telemetry alt=%.1fm", m) }
func (logTelemetry) ProvideVario(mps float64)          { log.Printf("telemetry vario=%.2fm/s", mps) }
func (logTelemetry) ProvideWind(w eos.Wind) {
	log.Printf("telemetry wind=%.0fdeg/%.1fm/s", w.BearingDeg, w.SpeedMPS)
}
func (logTelemetry) ProvideDeviceInfo(info eos.DeviceInfo) {
	log.Printf("device product=%q serial=%s sw=%s hw=%s",
		info.Product, info.Serial, info.SoftwareVersion, info.HardwareVersion)
}

type logSettings struct{}

func (logSettings) ProvideMacCready(mps float64, _ time.Time) { log.Printf("settings mc=%.1fm/s", mps) }
func (logSettings) ProvideBugs(f float64, _ time.Time)        { log.Printf("settings bugs=%.2f", f) }
func (logSettings) ProvideQNH(hPa float64, _ time.Time)       { log.Printf("settings qnh=%.1fhPa", hPa) }

// logProgress reports coarse progress of long link operations.
type logProgress struct{ name string }

func (p logProgress) SetRange(n int)    { log.Printf("%s progress range=%d", p.name, n) }
func (p logProgress) SetPosition(n int) { log.Printf("%s progress position=%d", p.name, n) }
