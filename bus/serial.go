package bus

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// UART-SHTP framing: every frame is delimited by 0x7E flag bytes and
// starts with a protocol ID byte. Flag and escape bytes inside the
// frame are escaped with 0x7D followed by the original byte XOR 0x20.
const (
	serialFlag     = 0x7E
	serialEscape   = 0x7D
	serialXor      = 0x20
	protocolSHTP   = 0x01
	serialFrameMax = 1024
)

// ErrBadFrame is returned when a serial frame cannot be unescaped or
// does not carry SHTP.
var ErrBadFrame = errors.New("bus: malformed serial frame")

// SerialConfig selects the serial device for a hub in UART-SHTP mode.
type SerialConfig struct {
	Port        string
	Baud        int
	ReadTimeout time.Duration
}

// SerialBus speaks UART-SHTP over a serial port. Register addressing
// does not exist on this transport; instead the bus assembles one
// delimited frame at a time and serves the driver's header peek and
// full-frame read from the same assembled frame.
type SerialBus struct {
	port    io.ReadWriteCloser
	pending []byte
	peeked  bool
	scratch [serialFrameMax]byte
}

// NewSerial wraps an already-open port-like stream. Used by tests and
// by integrations that manage the port themselves.
func NewSerial(rw io.ReadWriteCloser) *SerialBus {
	return &SerialBus{port: rw}
}

// OpenSerial opens the serial device for a hub in UART-SHTP mode.
func OpenSerial(cfg SerialConfig) (*SerialBus, error) {
	baud := cfg.Baud
	if baud == 0 {
		baud = 3000000
	}
	timeout := cfg.ReadTimeout
	if timeout == 0 {
		timeout = 100 * time.Millisecond
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Port,
		Baud:        baud,
		ReadTimeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("bus: open serial port %s: %w", cfg.Port, err)
	}
	if err := port.Flush(); err != nil {
		port.Close()
		return nil, fmt.Errorf("bus: flush serial port %s: %w", cfg.Port, err)
	}
	return &SerialBus{port: port}, nil
}

func (b *SerialBus) Check() error {
	if b.port == nil {
		return ErrNoBus
	}
	return nil
}

// Close releases the serial port.
func (b *SerialBus) Close() error {
	if b.port == nil {
		return nil
	}
	err := b.port.Close()
	b.port = nil
	return err
}

// ReadRegister serves the driver's two-phase read. The first 4-byte
// read of a freshly assembled frame peeks its header without consuming
// it; the following read consumes the frame whatever its size, so a
// header-only frame (declared length 4) is consumed by its phase-2
// read like any other.
func (b *SerialBus) ReadRegister(_ uint8, p []byte) error {
	if b.pending == nil {
		frame, err := b.readFrame()
		if err != nil {
			return err
		}
		b.pending = frame
		b.peeked = false
	}
	n := copy(p, b.pending)
	if n < len(p) {
		b.pending = nil
		return fmt.Errorf("bus: frame of %d bytes shorter than %d-byte read", n, len(p))
	}
	if len(p) == 4 && !b.peeked {
		b.peeked = true
		return nil
	}
	b.pending = nil
	return nil
}

// Write escapes and transmits p as one delimited SHTP frame.
func (b *SerialBus) Write(p []byte) error {
	out := make([]byte, 0, 2*len(p)+3)
	out = append(out, serialFlag, protocolSHTP)
	for _, c := range p {
		if c == serialFlag || c == serialEscape {
			out = append(out, serialEscape, c^serialXor)
		} else {
			out = append(out, c)
		}
	}
	out = append(out, serialFlag)

	n, err := b.port.Write(out)
	if err != nil {
		return fmt.Errorf("bus: serial write: %w", err)
	}
	if n != len(out) {
		return fmt.Errorf("bus: short serial write: %d of %d bytes", n, len(out))
	}
	return nil
}

// readFrame blocks on the port until one whole delimited frame arrives,
// unescapes it and strips the protocol ID byte.
func (b *SerialBus) readFrame() ([]byte, error) {
	var (
		frame   []byte
		inFrame bool
		escaped bool
		one     [1]byte
	)
	for {
		n, err := b.port.Read(one[:])
		if err != nil {
			return nil, fmt.Errorf("bus: serial read: %w", err)
		}
		if n == 0 {
			return nil, ErrBadFrame
		}
		c := one[0]
		switch {
		case c == serialFlag:
			if inFrame && len(frame) > 0 {
				if frame[0] != protocolSHTP {
					// Not SHTP cargo; drop and keep scanning.
					frame = frame[:0]
					continue
				}
				return frame[1:], nil
			}
			inFrame = true
			frame = b.scratch[:0]
			escaped = false
		case !inFrame:
			// Garbage between frames.
		case c == serialEscape:
			escaped = true
		default:
			if escaped {
				c ^= serialXor
				escaped = false
			}
			if len(frame) == serialFrameMax {
				return nil, ErrBadFrame
			}
			frame = append(frame, c)
		}
	}
}
