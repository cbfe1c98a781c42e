// Package bno08x drives a BNO08x sensor hub: it implements the
// transport HAL required by the SHTP protocol stack (interrupt-gated
// half-duplex framing over a register bus) and keeps a cache of the
// most recently decoded readings per report stream.
package bno08x

import (
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"bowlink/bus"
	"bowlink/shtp"
)

// Line is one GPIO line seen by the driver. Get reports the asserted
// state with hardware polarity already folded in: the interrupt line is
// active low on the wire, but Get returns true when it is asserted.
type Line interface {
	Get() bool
	Set(asserted bool)
}

// Clock supplies time and delays to the driver. It is injectable so the
// interrupt wait is testable without hardware.
type Clock interface {
	NowUs() uint64
	Sleep(d time.Duration)
}

type systemClock struct {
	start time.Time
}

// SystemClock returns a Clock backed by the monotonic runtime clock.
// NowUs counts microseconds since construction; callers that truncate
// it to 32 bits must treat comparisons modulo 2^32 (wrap after ~71
// minutes), never as unbounded increasing values.
func SystemClock() Clock {
	return &systemClock{start: time.Now()}
}

func (c *systemClock) NowUs() uint64 {
	return uint64(time.Since(c.start).Microseconds())
}

func (c *systemClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// assertedLine is a Line that is always asserted.
type assertedLine struct{}

func (assertedLine) Get() bool { return true }
func (assertedLine) Set(bool)  {}

// AssertedLine returns a Line that always reads asserted. UART-SHTP
// transports have no interrupt, wake or reset line; the serial driver
// paces the bus instead.
func AssertedLine() Line { return assertedLine{} }

// Channel selects one cached reading.
type Channel int

const (
	ChannelRotation Channel = iota // quaternion i, j, k, real
	ChannelAccel
	ChannelGyro
	ChannelMag
)

// Config carries the hub's line bindings and timing parameters.
type Config struct {
	IRQ   Line
	Wake  Line
	Reset Line
	Clock Clock

	// Interrupt wait policy: poll the line every IntPollInterval for at
	// most IntWaitTimeout before giving up on the transaction.
	IntPollInterval time.Duration
	IntWaitTimeout  time.Duration

	// ReportIntervalUs is the per-stream report interval requested from
	// the hub.
	ReportIntervalUs uint32
}

// Service is the protocol stack contract the driver drives. It is
// injected at Init; the driver supplies the stack's HAL and event sink.
type Service interface {
	Open() error
	Close()
	Service()
	SetSensorConfig(id shtp.ReportID, cfg shtp.SensorConfig) error
}

const (
	defaultIntPollInterval  = 5 * time.Microsecond
	defaultIntWaitTimeout   = 250 * time.Millisecond
	defaultReportIntervalUs = 2000

	resetPulse = 3 * time.Millisecond
	wakeSettle = 50 * time.Microsecond
)

// activeReports are the streams this system consumes. They are
// re-enabled on every fetch cycle as a keep-alive, since the hub drops
// its configuration across resets.
var activeReports = [...]shtp.ReportID{
	shtp.ReportRotationVector,
	shtp.ReportAccelerometer,
	shtp.ReportGyroscopeCalibrated,
	shtp.ReportMagneticFieldCalibrated,
}

// Device owns one hub: its bus handle, its GPIO lines and the reading
// cache. It implements shtp.Hal and shtp.EventSink. Bus access is
// single-threaded by construction (the sampling thread and the init
// path); a second bus user must add its own lock around whole
// open/read/write sequences.
type Device struct {
	bus bus.Bus
	cfg Config
	svc Service

	// hasWake records whether a real wake line was wired at
	// construction; the open path runs the wake sequence only then.
	hasWake bool

	// Reading cache. Owned exclusively by this device; the event sink
	// may run on a different goroutine than the sampler, so access is
	// mutex guarded. Values persist unchanged when a decode fails:
	// last good value wins, and no staleness mark exists.
	mu    sync.Mutex
	quat  [4]float32
	accel [3]float32
	gyro  [3]float32
	mag   [3]float32
}

// New builds a Device over the given bus. Missing config fields fall
// back to the defaults above; missing lines read as always asserted.
func New(b bus.Bus, cfg Config) *Device {
	hasWake := cfg.Wake != nil
	if cfg.IRQ == nil {
		cfg.IRQ = AssertedLine()
	}
	if cfg.Wake == nil {
		cfg.Wake = AssertedLine()
	}
	if cfg.Reset == nil {
		cfg.Reset = AssertedLine()
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.IntPollInterval == 0 {
		cfg.IntPollInterval = defaultIntPollInterval
	}
	if cfg.IntWaitTimeout == 0 {
		cfg.IntWaitTimeout = defaultIntWaitTimeout
	}
	if cfg.ReportIntervalUs == 0 {
		cfg.ReportIntervalUs = defaultReportIntervalUs
	}
	return &Device{bus: b, cfg: cfg, hasWake: hasWake}
}

// Init checks the bus, attaches the protocol stack and opens it, then
// enables the active report streams. The stack must have been built on
// this device's HAL and event sink.
func (d *Device) Init(svc Service) error {
	if err := d.bus.Check(); err != nil {
		return fmt.Errorf("bno08x: bus check: %w", err)
	}
	d.svc = svc
	if err := svc.Open(); err != nil {
		return fmt.Errorf("bno08x: open protocol stack: %w", err)
	}
	for _, id := range activeReports {
		if err := d.EnableReport(id, d.cfg.ReportIntervalUs, 0); err != nil {
			log.WithError(err).WithField("report", fmt.Sprintf("0x%02x", uint8(id))).
				Warn("bno08x: initial report enable failed")
		}
	}
	return nil
}

// EnableReport configures one report stream with batching, wake and
// change sensitivity disabled. The hub must be ready to accept a write,
// so the interrupt line is awaited first; a failure here is reported
// but not retried, callers re-issue on the next cycle.
func (d *Device) EnableReport(id shtp.ReportID, intervalUs, sensorSpecific uint32) error {
	if err := d.waitForInt(); err != nil {
		log.WithError(err).Debug("bno08x: hub not ready before report enable")
	}
	cfg := shtp.SensorConfig{
		ReportIntervalUs: intervalUs,
		SensorSpecific:   sensorSpecific,
	}
	if err := d.svc.SetSensorConfig(id, cfg); err != nil {
		return fmt.Errorf("bno08x: enable report 0x%02x: %w", uint8(id), err)
	}
	return nil
}

// SampleFetch re-enables the active report streams and runs one
// protocol service pass, refreshing the reading cache from whatever
// reports the hub has queued. Re-enabling every cycle is idempotent and
// doubles as a keep-alive against hub resets.
func (d *Device) SampleFetch() error {
	for _, id := range activeReports {
		if err := d.EnableReport(id, d.cfg.ReportIntervalUs, 0); err != nil {
			log.WithError(err).Debug("bno08x: report re-enable failed")
		}
	}
	d.svc.Service()
	return nil
}

var errUnknownChannel = errors.New("bno08x: unknown channel")

// ChannelGet copies the cached reading for one channel. The returned
// slice is the caller's to keep. There is no way to tell a fresh value
// from one that survived a decode failure; consumers get the last good
// value either way.
func (d *Device) ChannelGet(ch Channel) ([]float32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch ch {
	case ChannelRotation:
		v := d.quat
		return v[:], nil
	case ChannelAccel:
		v := d.accel
		return v[:], nil
	case ChannelGyro:
		v := d.gyro
		return v[:], nil
	case ChannelMag:
		v := d.mag
		return v[:], nil
	}
	return nil, errUnknownChannel
}

// OnSensorEvent implements shtp.EventSink. Decode failures drop the
// event without touching the cache; unknown report types are discarded
// without error.
func (d *Device) OnSensorEvent(e *shtp.SensorEvent) {
	v, err := shtp.DecodeSensorEvent(e)
	if err != nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	switch v.Report {
	case shtp.ReportAccelerometer, shtp.ReportLinearAcceleration:
		d.accel = [3]float32{v.Vector[0], v.Vector[1], v.Vector[2]}
	case shtp.ReportGyroscopeCalibrated:
		d.gyro = [3]float32{v.Vector[0], v.Vector[1], v.Vector[2]}
	case shtp.ReportMagneticFieldCalibrated:
		d.mag = [3]float32{v.Vector[0], v.Vector[1], v.Vector[2]}
	case shtp.ReportRotationVector:
		d.quat = v.Vector
	default:
	}
}
