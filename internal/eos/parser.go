package eos

import (
	"math"
	"time"

	"eoslink/internal/nmea"
)

// Unit conversion into the host's canonical units (m/s, meters, hPa).
const (
	kmhToMPS    = 1.0 / 3.6
	feetToMeter = 0.3048
)

// firCoefficients is the fixed 6-tap low-pass filter applied to the six raw
// 1-second vario samples of the primary telemetry sentence. The taps sum to
// one, so a steady climb passes through unchanged.
var firCoefficients = [6]float64{-0.0421, 0.1628, 0.3793, 0.3793, 0.1628, -0.0421}

// Airspeed plausibility bounds, km/h. Values outside are dropped without
// failing the rest of the sentence.
const (
	minPlausibleTASKmh = -50
	maxPlausibleTASKmh = 400
)

// HandleSentence feeds one received line into the driver. It returns true
// when the line was a well-formed sentence of a type this driver understands;
// false means "not handled" and the caller may offer the line elsewhere.
func (d *Device) HandleSentence(line string, now time.Time) bool {
	sent, err := nmea.Parse(line)
	if err != nil {
		return false
	}

	switch sent.Tag {
	case "LXWP0":
		return d.parseLXWP0(sent)
	case "LXWP1":
		return d.parseLXWP1(sent)
	case "LXWP2":
		return d.parseLXWP2(sent, now)
	case "LXWP3":
		return d.parseLXWP3(sent, now)
	default:
		return false
	}
}

// parseLXWP0 handles the primary telemetry sentence:
//
//	$LXWP0,Y,119.4,1717.6,0.02,0.02,0.02,0.02,0.02,0.02,,000,107.2*5b
//
//	<is_logger_running> 'Y' or 'N'
//	<tas>               true airspeed, km/h
//	<altitude>          true altitude, meters
//	<vario1..6>         six 1-second vario samples, m/s
//	<heading>           true heading, deg; blank without a compass
//	<filler>            one undocumented field the instrument always emits
//	<wind_direction>    deg; blank when wind speed is zero
//	<wind_speed>        km/h; blank when zero
func (d *Device) parseLXWP0(s *nmea.Sentence) bool {
	s.Skip(1) // logger-running flag

	airspeed, tasOK := s.Float()
	if tasOK && (airspeed < minPlausibleTASKmh || airspeed > maxPlausibleTASKmh) {
		tasOK = false
	}

	// Altitude goes to the sink before airspeed so a sink deriving indicated
	// airspeed sees the freshest altitude.
	if alt, ok := s.Float(); ok {
		d.telemetry.ProvideBaroAltitudeTrue(alt)
	}
	if tasOK {
		d.telemetry.ProvideTrueAirspeed(airspeed * kmhToMPS)
	}

	vario := 0.0
	varioOK := true
	for _, tap := range firCoefficients {
		v, ok := s.Float()
		varioOK = varioOK && ok
		vario += v * tap
	}
	if varioOK {
		d.telemetry.ProvideVario(vario)
	}

	s.Skip(1) // heading
	s.Skip(1) // undocumented filler

	dir, dirOK := s.Float()
	spd, spdOK := s.Float()
	if dirOK && spdOK {
		d.telemetry.ProvideWind(Wind{
			BearingDeg: dir,
			SpeedMPS:   spd * kmhToMPS,
		})
	}

	return true
}

// parseLXWP1 handles the device-identity sentence: product name, serial,
// firmware and hardware version, copied verbatim.
func (d *Device) parseLXWP1(s *nmea.Sentence) bool {
	var info DeviceInfo
	info.Product, _ = s.Next()
	info.Serial, _ = s.Next()
	info.SoftwareVersion, _ = s.Next()
	info.HardwareVersion, _ = s.Next()
	d.telemetry.ProvideDeviceInfo(info)
	return true
}

// parseLXWP2 handles the device-reported settings sentence: MacCready,
// ballast (mass over polar reference mass), bugs percent, three polar
// coefficients and the vario volume. The polar and volume fields are read
// but unused.
//
// The instrument only accepts the full triple back, so the raw values are
// cached here; a later host-side MacCready or bugs change fills the other
// two fields from this cache.
func (d *Device) parseLXWP2(s *nmea.Sentence, now time.Time) bool {
	mc, ok := s.Float()
	if !ok {
		return false
	}
	bal, ok := s.Float()
	if !ok {
		return false
	}
	bugs, ok := s.Float()
	if !ok {
		return false
	}
	s.Skip(3) // polar coefficients
	s.Skip(1) // vario volume

	d.mu.Lock()
	defer d.mu.Unlock()

	d.settings.ProvideMacCready(mc, now)
	d.settings.ProvideBugs((100-bugs)/100, now)

	d.vario.mc = mc
	d.vario.bal = bal
	d.vario.bugs = bugs
	d.vario.upToDate = true
	return true
}

// parseLXWP3 handles the secondary settings sentence. Only the first field,
// the altitude offset in feet, is used: negated and converted it is the
// pressure altitude correction, which maps to a QNH pressure. The speed
// command fields and polar name that follow are unused.
func (d *Device) parseLXWP3(s *nmea.Sentence, now time.Time) bool {
	if offset, ok := s.Float(); ok {
		altM := -offset * feetToMeter
		d.settings.ProvideQNH(pressureAltitudeToStaticPressure(altM), now)
	}
	return true
}

// ISA constants for the pressure-altitude relation p^k1 linear in altitude.
const (
	isaK1       = 0.190263
	isaK2       = 8.417286e-5
	isaSeaLevel = 1013.25
)

// pressureAltitudeToStaticPressure converts a pressure altitude in meters to
// the corresponding static pressure in hPa.
func pressureAltitudeToStaticPressure(altM float64) float64 {
	return math.Pow(math.Pow(isaSeaLevel, isaK1)-isaK2*altM, 1/isaK1)
}
