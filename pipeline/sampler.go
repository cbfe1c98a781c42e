package pipeline

import (
	"encoding/binary"
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"bowlink/bno08x"
)

// RecordSize is the size of one motion sample on the wire: 13 little-
// endian float32 values (quaternion i j k real, accel xyz, gyro xyz,
// mag xyz).
const RecordSize = 13 * 4

// SensorSource is what the sampler polls each cycle. *bno08x.Device
// satisfies it.
type SensorSource interface {
	SampleFetch() error
	ChannelGet(ch bno08x.Channel) ([]float32, error)
}

// Sampler is the sampling thread: it periodically triggers a fetch on
// the sensor source, reads the four cached channels and publishes one
// fixed-size record into the bounded pipe.
type Sampler struct {
	src      SensorSource
	pipe     *Pipe
	gate     <-chan struct{}
	interval time.Duration
}

// NewSampler builds a sampler that waits on gate before its first
// cycle and paces cycles by interval.
func NewSampler(src SensorSource, pipe *Pipe, gate <-chan struct{}, interval time.Duration) *Sampler {
	if interval == 0 {
		interval = 200 * time.Microsecond
	}
	return &Sampler{src: src, pipe: pipe, gate: gate, interval: interval}
}

// Run blocks on the gate, then samples forever. It is meant to be its
// own goroutine; there is no cancellation, shutdown is a power cycle.
func (s *Sampler) Run() {
	<-s.gate
	var rec [RecordSize]byte
	for {
		s.cycle(rec[:])
		time.Sleep(s.interval)
	}
}

// cycle runs one sampling iteration. A fetch or channel read failure
// skips publishing for this cycle and reports false; the loop carries
// on regardless. A full pipe blocks here, throttling sampling to
// delivery cadence instead of dropping records.
func (s *Sampler) cycle(rec []byte) bool {
	if err := s.src.SampleFetch(); err != nil {
		log.WithError(err).Warn("pipeline: sample fetch failed")
		return false
	}

	quat, err := s.src.ChannelGet(bno08x.ChannelRotation)
	if err != nil {
		log.WithError(err).Warn("pipeline: rotation read failed")
		return false
	}
	accel, err := s.src.ChannelGet(bno08x.ChannelAccel)
	if err != nil {
		log.WithError(err).Warn("pipeline: accel read failed")
		return false
	}
	gyro, err := s.src.ChannelGet(bno08x.ChannelGyro)
	if err != nil {
		log.WithError(err).Warn("pipeline: gyro read failed")
		return false
	}
	mag, err := s.src.ChannelGet(bno08x.ChannelMag)
	if err != nil {
		log.WithError(err).Warn("pipeline: mag read failed")
		return false
	}

	packRecord(rec, quat, accel, gyro, mag)
	s.pipe.Put(rec)
	return true
}

// packRecord lays out the 13 floats in wire order.
func packRecord(dst []byte, quat, accel, gyro, mag []float32) {
	off := 0
	for _, group := range [][]float32{quat, accel, gyro, mag} {
		for _, v := range group {
			binary.LittleEndian.PutUint32(dst[off:], math.Float32bits(v))
			off += 4
		}
	}
}
