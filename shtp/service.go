package shtp

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Service is the protocol stack instance for one hub. It owns the
// outbound per-channel sequence numbers and a single cargo buffer; all
// methods must be called from one goroutine (the bus is half duplex and
// single-threaded by construction).
type Service struct {
	hal  Hal
	sink EventSink
	seq  [channelCount]uint8
	buf  [MaxCargoSize]byte
}

// NewService builds a protocol stack on top of the given transport HAL,
// dispatching sensor events to sink.
func NewService(hal Hal, sink EventSink) *Service {
	return &Service{hal: hal, sink: sink}
}

// Open opens the underlying transport and drains whatever the hub
// queued at startup (advertisement and reset frames), so the first
// report enable does not collide with boot traffic.
func (s *Service) Open() error {
	if err := s.hal.Open(); err != nil {
		return fmt.Errorf("shtp: open transport: %w", err)
	}
	s.Service()
	return nil
}

// Close closes the underlying transport.
func (s *Service) Close() {
	s.hal.Close()
}

// Service performs one pump pass: it reads frames from the transport
// until none are pending and dispatches any sensor report cargo to the
// event sink. Non-report channels (advertisement, control responses)
// are consumed and skipped.
func (s *Service) Service() {
	for {
		n, ts, err := s.hal.Read(s.buf[:])
		if err != nil || n == 0 {
			return
		}
		if n < HeaderSize {
			// The HAL contract forbids this; treat as no data.
			log.WithField("len", n).Error("shtp: transport returned a partial header")
			return
		}
		channel := s.buf[2]
		cargo := s.buf[HeaderSize:n]
		switch channel {
		case ChannelReports, ChannelWakeReports, ChannelGyroRV:
			s.dispatchReports(cargo, ts)
		default:
			// Advertisement, executable and control traffic carry no
			// sensor data.
		}
	}
}

// dispatchReports splits a report frame's cargo into records and hands
// each known record to the sink. An unknown record ID ends the walk:
// record lengths are ID-specific, so the frame cannot be parsed past it.
func (s *Service) dispatchReports(cargo []byte, ts uint64) {
	for len(cargo) > 0 {
		id := ReportID(cargo[0])
		rl := reportLength(id)
		if rl == 0 {
			log.WithField("report", fmt.Sprintf("0x%02x", uint8(id))).
				Debug("shtp: skipping frame with unknown report id")
			return
		}
		if rl > len(cargo) {
			log.WithField("report", fmt.Sprintf("0x%02x", uint8(id))).
				Debug("shtp: truncated report record")
			return
		}
		switch id {
		case reportBaseTimestamp, reportTimestampRebase:
			// Timing records; the cache keys on arrival time instead.
		default:
			ev := SensorEvent{Report: id, TimestampUs: ts, Data: cargo[:rl]}
			if s.sink != nil {
				s.sink.OnSensorEvent(&ev)
			}
		}
		cargo = cargo[rl:]
	}
}

// SetSensorConfig sends a Set Feature command for the given report
// stream over the control channel. The hub answers asynchronously with
// a Get Feature response, which a later Service pass consumes.
func (s *Service) SetSensorConfig(id ReportID, cfg SensorConfig) error {
	return s.send(ChannelControl, EncodeSetFeature(id, cfg))
}

// send frames payload onto the given channel and writes it through the
// HAL in one transaction.
func (s *Service) send(channel uint8, payload []byte) error {
	total := HeaderSize + len(payload)
	if total > MaxCargoSize {
		return fmt.Errorf("shtp: cargo of %d bytes exceeds transport limit", len(payload))
	}
	frame := make([]byte, total)
	PutHeader(frame, total, channel, s.seq[channel])
	copy(frame[HeaderSize:], payload)

	n, err := s.hal.Write(frame)
	if err != nil {
		return fmt.Errorf("shtp: write channel %d: %w", channel, err)
	}
	if n != total {
		return fmt.Errorf("shtp: short write on channel %d: %d of %d bytes", channel, n, total)
	}
	s.seq[channel]++
	return nil
}
