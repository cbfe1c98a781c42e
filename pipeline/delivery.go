package pipeline

import (
	"encoding/binary"
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"bowlink/audio"
	"bowlink/battery"
	"bowlink/radio"
)

// Combined record trailer: presence flag plus battery percentage.
const (
	FlagSize    = 1
	BatterySize = 4
)

// Delivery is the radio delivery thread: for every audio block it
// merges in the freshest motion record and battery level, then streams
// the fixed-size combined record over the link, fragmented to the
// negotiated transmission unit.
type Delivery struct {
	blocks  <-chan *audio.Block
	pool    *audio.Pool
	pipe    *Pipe
	batt    battery.Provider
	link    radio.Link
	imuWait time.Duration

	audioBytes int
}

// NewDelivery wires the delivery thread. audioBytes is the fixed audio
// region at the front of every block; blocks drawn from pool must be
// RecordTotal(audioBytes) long.
func NewDelivery(src audio.Source, pool *audio.Pool, pipe *Pipe, batt battery.Provider, link radio.Link, audioBytes int) *Delivery {
	return &Delivery{
		blocks:     src.Blocks(),
		pool:       pool,
		pipe:       pipe,
		batt:       batt,
		link:       link,
		imuWait:    50 * time.Microsecond,
		audioBytes: audioBytes,
	}
}

// RecordTotal returns the fixed size of a combined radio record for a
// given audio block size.
func RecordTotal(audioBytes int) int {
	return audioBytes + RecordSize + FlagSize + BatterySize
}

// Run waits for the radio to come up, then delivers forever. The audio
// queue is the pacing clock: an empty queue blocks indefinitely.
func (d *Delivery) Run() {
	<-d.link.Ready()
	for blk := range d.blocks {
		d.deliver(blk)
	}
}

// deliver assembles and transmits one combined record. The block goes
// back to its pool unconditionally, success or not: a leaked block
// eventually starves audio capture.
func (d *Delivery) deliver(blk *audio.Block) {
	defer d.pool.Put(blk)

	buf := blk.Data
	imu := buf[d.audioBytes : d.audioBytes+RecordSize]

	// Best-effort motion read: audio cadence must not stall on the
	// sampler, so the wait is short and bounded. The presence flag, not
	// the payload, is authoritative: on a miss the region keeps
	// whatever stale bytes it held.
	n := d.pipe.Get(imu, RecordSize, d.imuWait)
	var flag byte
	switch {
	case n == RecordSize:
		flag = 1
	case n == 0:
		flag = 0
	default:
		// A short record means the pipe's framing was violated
		// upstream; no valid producer writes less than a whole record.
		log.WithField("bytes", n).Error("pipeline: partial motion record in pipe")
		flag = 0
	}
	buf[d.audioBytes+RecordSize] = flag

	soc := float32(d.batt.SoC())
	binary.LittleEndian.PutUint32(buf[d.audioBytes+RecordSize+FlagSize:], math.Float32bits(soc))

	d.transmit(buf)
}

// transmit fragments the payload to the link's transmission unit:
// ceil(P/U) chunks, all of length U except a remainder-sized last one.
// A failed chunk is logged and abandoned; the next audio block
// supersedes the whole record.
func (d *Delivery) transmit(payload []byte) {
	unit := d.link.MTU()
	if unit <= 0 {
		log.WithField("unit", unit).Error("pipeline: invalid transmission unit, dropping record")
		return
	}
	for off := 0; off < len(payload); off += unit {
		end := off + unit
		if end > len(payload) {
			end = len(payload)
		}
		if err := d.link.Send(payload[off:end]); err != nil {
			log.WithError(err).Warn("pipeline: chunk transmit failed")
		}
	}
}
