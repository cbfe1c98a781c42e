package shtp

import "testing"

func TestFrameLength(t *testing.T) {
	tests := []struct {
		name string
		hdr  []byte
		want int
	}{
		{"small frame", []byte{0x14, 0x00, 3, 0}, 20},
		{"two byte length", []byte{0x32, 0x01, 3, 0}, 0x132},
		{"continuation bit masked", []byte{0x32, 0x80, 3, 0}, 0x32},
		{"max length", []byte{0xFF, 0x7F, 3, 0}, 0x7FFF},
		{"empty", []byte{0x00, 0x00, 0, 0}, 0},
	}
	for _, tt := range tests {
		got, err := FrameLength(tt.hdr)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: expected length %d, got %d", tt.name, tt.want, got)
		}
	}
}

func TestFrameLengthShortHeader(t *testing.T) {
	if _, err := FrameLength([]byte{0x14, 0x00}); err != ErrShortHeader {
		t.Errorf("expected ErrShortHeader, got %v", err)
	}
}

func TestPutHeaderRoundTrip(t *testing.T) {
	var hdr [HeaderSize]byte
	PutHeader(hdr[:], 21, ChannelControl, 7)

	if hdr[2] != ChannelControl {
		t.Errorf("expected channel %d, got %d", ChannelControl, hdr[2])
	}
	if hdr[3] != 7 {
		t.Errorf("expected sequence 7, got %d", hdr[3])
	}
	got, err := FrameLength(hdr[:])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 21 {
		t.Errorf("expected length 21, got %d", got)
	}
}

func TestEncodeSetFeature(t *testing.T) {
	p := EncodeSetFeature(ReportRotationVector, SensorConfig{
		ReportIntervalUs: 2000,
	})

	if len(p) != 17 {
		t.Fatalf("expected 17-byte command, got %d", len(p))
	}
	if p[0] != 0xFD {
		t.Errorf("expected Set Feature id 0xFD, got 0x%02x", p[0])
	}
	if p[1] != uint8(ReportRotationVector) {
		t.Errorf("expected report id 0x05, got 0x%02x", p[1])
	}
	if p[2] != 0 {
		t.Errorf("expected all feature flags disabled, got 0x%02x", p[2])
	}
	// change sensitivity disabled
	if p[3] != 0 || p[4] != 0 {
		t.Errorf("expected zero change sensitivity, got % x", p[3:5])
	}
	// report interval 2000us little-endian
	if p[5] != 0xD0 || p[6] != 0x07 || p[7] != 0 || p[8] != 0 {
		t.Errorf("expected interval d0 07 00 00, got % x", p[5:9])
	}
	// batch interval disabled
	for i := 9; i < 13; i++ {
		if p[i] != 0 {
			t.Errorf("expected zero batch interval, got % x", p[9:13])
			break
		}
	}
}

func TestEncodeSetFeatureFlags(t *testing.T) {
	p := EncodeSetFeature(ReportAccelerometer, SensorConfig{
		ChangeSensitivityRelative: true,
		ChangeSensitivityEnabled:  true,
		WakeupEnabled:             true,
		AlwaysOnEnabled:           true,
	})
	if p[2] != 0x0F {
		t.Errorf("expected flags 0x0f, got 0x%02x", p[2])
	}
}

func TestDecodeSensorEvent(t *testing.T) {
	// Accelerometer record, Q8: 256 -> 1.0, -512 -> -2.0, 128 -> 0.5.
	ev := SensorEvent{
		Report: ReportAccelerometer,
		Data: []byte{
			0x01, 9, 0x03, 0,
			0x00, 0x01, // 256
			0x00, 0xFE, // -512
			0x80, 0x00, // 128
		},
	}
	v, err := DecodeSensorEvent(&ev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Sequence != 9 {
		t.Errorf("expected sequence 9, got %d", v.Sequence)
	}
	if v.Status != 3 {
		t.Errorf("expected status 3, got %d", v.Status)
	}
	want := [4]float32{1.0, -2.0, 0.5, 0}
	if v.Vector != want {
		t.Errorf("expected %v, got %v", want, v.Vector)
	}
}

func TestDecodeRotationVector(t *testing.T) {
	// Q14: 16384 -> 1.0, 8192 -> 0.5.
	ev := SensorEvent{
		Report: ReportRotationVector,
		Data: []byte{
			0x05, 0, 0, 0,
			0x00, 0x40, // i = 1.0
			0x00, 0x20, // j = 0.5
			0x00, 0xE0, // k = -0.5
			0x00, 0x00, // real = 0
			0x00, 0x00, // accuracy, not decoded
		},
	}
	v, err := DecodeSensorEvent(&ev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [4]float32{1.0, 0.5, -0.5, 0}
	if v.Vector != want {
		t.Errorf("expected %v, got %v", want, v.Vector)
	}
}

func TestDecodeSensorEventErrors(t *testing.T) {
	unknown := SensorEvent{Report: 0x42, Data: []byte{0x42, 0, 0, 0}}
	if _, err := DecodeSensorEvent(&unknown); err == nil {
		t.Error("expected error for unknown report id")
	}

	short := SensorEvent{Report: ReportAccelerometer, Data: []byte{0x01, 0, 0, 0, 1, 2}}
	if _, err := DecodeSensorEvent(&short); err != ErrShortReport {
		t.Errorf("expected ErrShortReport, got %v", err)
	}
}
