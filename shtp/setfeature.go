package shtp

import "encoding/binary"

// Control channel report IDs.
const (
	cmdSetFeature uint8 = 0xFD
	cmdGetFeature uint8 = 0xFE
)

// SensorConfig mirrors the hub's feature configuration record for one
// report stream. The zero value disables batching, wake-on-change and
// change sensitivity, which is how every stream in this system runs.
type SensorConfig struct {
	ChangeSensitivityEnabled  bool
	ChangeSensitivityRelative bool
	WakeupEnabled             bool
	AlwaysOnEnabled           bool
	ChangeSensitivity         uint16
	ReportIntervalUs          uint32
	BatchIntervalUs           uint32
	SensorSpecific            uint32
}

const setFeatureLen = 17

// EncodeSetFeature builds the 17-byte Set Feature control report that
// enables (or reconfigures) one report stream.
func EncodeSetFeature(id ReportID, cfg SensorConfig) []byte {
	var flags uint8
	if cfg.ChangeSensitivityRelative {
		flags |= 0x01
	}
	if cfg.ChangeSensitivityEnabled {
		flags |= 0x02
	}
	if cfg.WakeupEnabled {
		flags |= 0x04
	}
	if cfg.AlwaysOnEnabled {
		flags |= 0x08
	}

	p := make([]byte, setFeatureLen)
	p[0] = cmdSetFeature
	p[1] = uint8(id)
	p[2] = flags
	binary.LittleEndian.PutUint16(p[3:], cfg.ChangeSensitivity)
	binary.LittleEndian.PutUint32(p[5:], cfg.ReportIntervalUs)
	binary.LittleEndian.PutUint32(p[9:], cfg.BatchIntervalUs)
	binary.LittleEndian.PutUint32(p[13:], cfg.SensorSpecific)
	return p
}
