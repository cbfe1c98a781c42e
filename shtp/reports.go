package shtp

import (
	"encoding/binary"
	"errors"
)

var errUnknownReport = errors.New("shtp: unknown report id")

// ReportID identifies a sensor report stream.
type ReportID uint8

// Report streams used by this system. The hub knows many more; anything
// not listed here is skipped without error.
const (
	ReportAccelerometer           ReportID = 0x01
	ReportGyroscopeCalibrated     ReportID = 0x02
	ReportMagneticFieldCalibrated ReportID = 0x03
	ReportLinearAcceleration      ReportID = 0x04
	ReportRotationVector          ReportID = 0x05

	// Timing records interleaved with sensor records on the report
	// channels.
	reportBaseTimestamp   ReportID = 0xFB
	reportTimestampRebase ReportID = 0xFA
)

// reportInfo describes the wire shape of one report record: total
// record length in bytes, number of 16-bit components, and the Q point
// for fixed-point to float conversion.
type reportInfo struct {
	length     int
	components int
	qPoint     uint8
}

var reportTable = map[ReportID]reportInfo{
	ReportAccelerometer:           {length: 10, components: 3, qPoint: 8},
	ReportGyroscopeCalibrated:     {length: 10, components: 3, qPoint: 9},
	ReportMagneticFieldCalibrated: {length: 10, components: 3, qPoint: 4},
	ReportLinearAcceleration:      {length: 10, components: 3, qPoint: 8},
	ReportRotationVector:          {length: 14, components: 4, qPoint: 14},
}

// SensorEvent is one raw report record lifted out of a report frame,
// together with the arrival timestamp of the carrying frame.
type SensorEvent struct {
	Report      ReportID
	TimestampUs uint64
	Data        []byte // full record, ID byte included
}

// SensorValue is a decoded sensor event. Vector holds x, y, z for
// triaxial reports and i, j, k, real for the rotation vector; unused
// trailing components are zero.
type SensorValue struct {
	Report   ReportID
	Sequence uint8
	Status   uint8
	Vector   [4]float32
}

// qToFloat converts a Q-point fixed-point value to float32.
func qToFloat(raw int16, q uint8) float32 {
	return float32(raw) / float32(int32(1)<<q)
}

// DecodeSensorEvent decodes a raw sensor event into engineering units.
// Unknown report IDs and truncated records fail with ErrShortReport or
// errUnknownReport; callers drop such events and keep their last good
// values.
func DecodeSensorEvent(e *SensorEvent) (SensorValue, error) {
	info, ok := reportTable[e.Report]
	if !ok {
		return SensorValue{}, errUnknownReport
	}
	if len(e.Data) < info.length {
		return SensorValue{}, ErrShortReport
	}

	v := SensorValue{
		Report:   e.Report,
		Sequence: e.Data[1],
		Status:   e.Data[2] & 0x03,
	}
	// Components start after the common 4-byte record prefix
	// (ID, sequence, status, delay).
	for i := 0; i < info.components; i++ {
		raw := int16(binary.LittleEndian.Uint16(e.Data[4+2*i:]))
		v.Vector[i] = qToFloat(raw, info.qPoint)
	}
	return v, nil
}

// reportLength returns the record length for id, or 0 if unknown.
func reportLength(id ReportID) int {
	switch id {
	case reportBaseTimestamp:
		return 5
	case reportTimestampRebase:
		return 5
	}
	if info, ok := reportTable[id]; ok {
		return info.length
	}
	return 0
}
