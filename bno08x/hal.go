package bno08x

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"bowlink/shtp"
)

// HAL error taxonomy. Timeouts and framing violations are recovered
// locally by returning zero bytes transferred; retry policy belongs to
// the protocol stack above.
var (
	// ErrIntTimeout means the interrupt line never asserted within the
	// configured bound. The transaction is aborted with nothing
	// transferred.
	ErrIntTimeout = errors.New("bno08x: timed out waiting for interrupt")

	// ErrFrameTooLarge means the hub declared a frame longer than the
	// caller's buffer. The read aborts without a second bus
	// transaction; see the resynchronization note on Read.
	ErrFrameTooLarge = errors.New("bno08x: declared frame exceeds read buffer")

	// ErrRuntFrame means the hub declared a frame shorter than its own
	// header. The length counts the 4-byte header, so 1..3 is a
	// protocol violation; the read aborts like the oversize case.
	ErrRuntFrame = errors.New("bno08x: declared frame shorter than its header")
)

// waitForInt polls the interrupt line at the configured interval until
// it asserts or the bound elapses. The bound is counted in poll
// intervals, so with an injected clock the wait is deterministic. A
// wedged hub surfaces as ErrIntTimeout rather than a hang.
func (d *Device) waitForInt() error {
	polls := int(d.cfg.IntWaitTimeout / d.cfg.IntPollInterval)
	for i := 0; i <= polls; i++ {
		if d.cfg.IRQ.Get() {
			return nil
		}
		d.cfg.Clock.Sleep(d.cfg.IntPollInterval)
	}
	return ErrIntTimeout
}

// hwReset pulses the reset line: assert (active low on the wire), hold
// 3 ms, deassert, hold 3 ms.
func (d *Device) hwReset() {
	d.cfg.Reset.Set(true)
	d.cfg.Clock.Sleep(resetPulse)
	d.cfg.Reset.Set(false)
	d.cfg.Clock.Sleep(resetPulse)
}

// wake asserts the wake line until the hub signals readiness, for hubs
// whose wake line is wired (SPI mode). The hub in this system is never
// slept mid-run, so this only happens during open.
func (d *Device) wake() {
	d.cfg.Wake.Set(true)
	if err := d.waitForInt(); err != nil {
		log.WithError(err).Warn("bno08x: no interrupt after wake assert")
	}
	d.cfg.Clock.Sleep(wakeSettle)
	d.cfg.Wake.Set(false)
}

// Open implements shtp.Hal. It pulses the hardware reset, runs the wake
// sequence when a wake line is wired, and waits for the hub to signal
// readiness. A timeout on that wait is logged but does not fail Open:
// the hub may still come up and start emitting frames in degraded form,
// and the first Read will surface a real failure. This mirrors
// long-standing behavior; do not tighten it without characterizing hubs
// that assert late.
func (d *Device) Open() error {
	d.hwReset()
	if d.hasWake {
		d.wake()
	}
	if err := d.waitForInt(); err != nil {
		log.WithError(err).Warn("bno08x: hub not ready after reset, continuing")
	}
	return nil
}

// Close implements shtp.Hal. The HAL holds no resource that needs
// release; the bus handle belongs to whoever constructed it.
func (d *Device) Close() {}

// Read implements shtp.Hal. Two phases: wait for the interrupt and read
// the 4-byte header, then wait again and read the whole declared frame.
// On any timeout, bus error or framing violation it returns 0 bytes;
// it never returns a length in (0, 4).
//
// A declared length beyond len(p) aborts without a second transaction
// and without resynchronizing the bus; recovery is left to the next
// interrupt cycle. Whether that can desynchronize the frame boundary
// permanently is an open follow-up (see DESIGN.md).
func (d *Device) Read(p []byte) (int, uint64, error) {
	if err := d.waitForInt(); err != nil {
		return 0, 0, err
	}

	var hdr [shtp.HeaderSize]byte
	if err := d.bus.ReadRegister(0x00, hdr[:]); err != nil {
		return 0, 0, fmt.Errorf("bno08x: read frame header: %w", err)
	}
	ts := d.NowUs()

	frameLen, err := shtp.FrameLength(hdr[:])
	if err != nil {
		return 0, 0, err
	}
	if frameLen == 0 {
		// Nothing pending; the hub advertises an empty cargo.
		return 0, ts, nil
	}
	if frameLen < shtp.HeaderSize {
		log.WithField("declared", frameLen).Error("bno08x: runt frame length, aborting read")
		return 0, 0, ErrRuntFrame
	}
	if frameLen > len(p) {
		log.WithFields(log.Fields{"declared": frameLen, "buffer": len(p)}).
			Error("bno08x: oversized frame, aborting read")
		return 0, 0, ErrFrameTooLarge
	}

	if err := d.waitForInt(); err != nil {
		return 0, 0, err
	}
	if err := d.bus.ReadRegister(0x00, p[:frameLen]); err != nil {
		return 0, 0, fmt.Errorf("bno08x: read frame body: %w", err)
	}
	return frameLen, ts, nil
}

// Write implements shtp.Hal. One interrupt wait, then one bus write of
// the whole buffer. There are no partial writes: a bus error discards
// the attempt and reports zero bytes written.
func (d *Device) Write(p []byte) (int, error) {
	if err := d.waitForInt(); err != nil {
		return 0, err
	}
	if err := d.bus.Write(p); err != nil {
		return 0, fmt.Errorf("bno08x: bus write: %w", err)
	}
	return len(p), nil
}

// NowUs implements shtp.Hal using the injected clock. The value is
// monotonic from device construction; callers that narrow it to 32
// bits must compare modulo 2^32.
func (d *Device) NowUs() uint64 {
	return d.cfg.Clock.NowUs()
}
