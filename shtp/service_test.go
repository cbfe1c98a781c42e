package shtp

import (
	"bytes"
	"testing"
)

// fakeHal serves a scripted list of frames and records writes.
type fakeHal struct {
	frames [][]byte
	writes [][]byte
	now    uint64
}

func (h *fakeHal) Open() error { return nil }
func (h *fakeHal) Close()      {}

func (h *fakeHal) Read(p []byte) (int, uint64, error) {
	if len(h.frames) == 0 {
		return 0, 0, nil
	}
	f := h.frames[0]
	h.frames = h.frames[1:]
	copy(p, f)
	return len(f), h.now, nil
}

func (h *fakeHal) Write(p []byte) (int, error) {
	h.writes = append(h.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (h *fakeHal) NowUs() uint64 { return h.now }

type collectSink struct {
	events []SensorEvent
}

func (s *collectSink) OnSensorEvent(e *SensorEvent) {
	ev := *e
	ev.Data = append([]byte(nil), e.Data...)
	s.events = append(s.events, ev)
}

// frame builds a report-channel frame around the given cargo.
func frame(channel uint8, cargo ...[]byte) []byte {
	body := bytes.Join(cargo, nil)
	f := make([]byte, HeaderSize+len(body))
	PutHeader(f, len(f), channel, 0)
	copy(f[HeaderSize:], body)
	return f
}

func TestServiceDispatchesReports(t *testing.T) {
	accel := []byte{0x01, 1, 0, 0, 0x00, 0x01, 0x00, 0x02, 0x00, 0x03}
	quat := []byte{0x05, 2, 0, 0, 1, 0, 2, 0, 3, 0, 4, 0, 5, 0}
	baseTS := []byte{0xFB, 0, 0, 0, 0}

	hal := &fakeHal{now: 1234, frames: [][]byte{
		frame(ChannelReports, baseTS, accel, quat),
	}}
	sink := &collectSink{}
	NewService(hal, sink).Service()

	if len(sink.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(sink.events))
	}
	if sink.events[0].Report != ReportAccelerometer {
		t.Errorf("expected accelerometer first, got 0x%02x", uint8(sink.events[0].Report))
	}
	if sink.events[1].Report != ReportRotationVector {
		t.Errorf("expected rotation vector second, got 0x%02x", uint8(sink.events[1].Report))
	}
	if sink.events[0].TimestampUs != 1234 {
		t.Errorf("expected frame timestamp on event, got %d", sink.events[0].TimestampUs)
	}
	if len(sink.events[1].Data) != 14 {
		t.Errorf("expected 14-byte rotation record, got %d", len(sink.events[1].Data))
	}
}

func TestServiceSkipsNonReportChannels(t *testing.T) {
	hal := &fakeHal{frames: [][]byte{
		frame(ChannelCommand, []byte{0xAA, 0xBB}),
		frame(ChannelControl, []byte{0xFE, 0x01}),
	}}
	sink := &collectSink{}
	NewService(hal, sink).Service()

	if len(sink.events) != 0 {
		t.Errorf("expected no events from non-report channels, got %d", len(sink.events))
	}
}

func TestServiceStopsAtUnknownReport(t *testing.T) {
	accel := []byte{0x01, 1, 0, 0, 0, 0, 0, 0, 0, 0}
	unknown := []byte{0x77, 0, 0}
	hal := &fakeHal{frames: [][]byte{
		frame(ChannelReports, accel, unknown, accel),
	}}
	sink := &collectSink{}
	NewService(hal, sink).Service()

	// Records after an unknown id cannot be framed and are dropped.
	if len(sink.events) != 1 {
		t.Errorf("expected 1 event before unknown record, got %d", len(sink.events))
	}
}

func TestSetSensorConfigFramesCommand(t *testing.T) {
	hal := &fakeHal{}
	svc := NewService(hal, nil)

	err := svc.SetSensorConfig(ReportGyroscopeCalibrated, SensorConfig{ReportIntervalUs: 5000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hal.writes) != 1 {
		t.Fatalf("expected 1 write, got %d", len(hal.writes))
	}

	w := hal.writes[0]
	if len(w) != HeaderSize+17 {
		t.Fatalf("expected 21-byte frame, got %d", len(w))
	}
	n, err := FrameLength(w)
	if err != nil || n != len(w) {
		t.Errorf("header declares %d bytes for a %d-byte frame", n, len(w))
	}
	if w[2] != ChannelControl {
		t.Errorf("expected control channel, got %d", w[2])
	}
	if w[HeaderSize] != 0xFD {
		t.Errorf("expected Set Feature cargo, got 0x%02x", w[HeaderSize])
	}

	// Sequence number advances per control frame.
	if err := svc.SetSensorConfig(ReportAccelerometer, SensorConfig{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hal.writes[1][3] != 1 {
		t.Errorf("expected control sequence 1 on second frame, got %d", hal.writes[1][3])
	}
}
