// Package shtp implements the sensor hub transport protocol spoken by
// CEVA/Hillcrest sensor hubs (BNO08x family). It covers the frame
// header codec, input report decoding and the Set Feature control
// command, plus a Service that pumps frames from a transport HAL and
// hands decoded sensor events to an event sink.
package shtp

import "errors"

// Frame header layout: 4 bytes. Bytes 0-1 carry the frame length
// (little-endian) including the header itself; bit 15 is the
// continuation flag and is not part of the length. Byte 2 is the
// channel number, byte 3 the per-channel sequence number.
const (
	HeaderSize = 4

	lengthMask = 0x7FFF
)

// SHTP logical channels.
const (
	ChannelCommand     = 0
	ChannelExecutable  = 1
	ChannelControl     = 2
	ChannelReports     = 3
	ChannelWakeReports = 4
	ChannelGyroRV      = 5

	channelCount = 6
)

// MaxCargoSize is the largest frame the service will accept from the
// transport, header included.
const MaxCargoSize = 384

var (
	ErrShortHeader = errors.New("shtp: header shorter than 4 bytes")
	ErrShortReport = errors.New("shtp: report record truncated")
)

// FrameLength returns the declared length of the frame whose header
// starts at hdr[0], continuation bit masked off. The value counts the
// 4-byte header. Returns an error if hdr holds fewer than 4 bytes.
func FrameLength(hdr []byte) (int, error) {
	if len(hdr) < HeaderSize {
		return 0, ErrShortHeader
	}
	return (int(hdr[0]) | int(hdr[1])<<8) & lengthMask, nil
}

// PutHeader writes a 4-byte frame header for a frame of the given total
// length (header included) on the given channel.
func PutHeader(dst []byte, length int, channel, seq uint8) {
	dst[0] = byte(length)
	dst[1] = byte(length>>8) & 0x7F
	dst[2] = channel
	dst[3] = seq
}

// Hal is the transport contract the protocol stack drives. The hub
// driver implements it; the stack never touches the bus directly.
//
// Read fills p with one complete frame (header plus cargo) and returns
// its length along with a microsecond timestamp taken when the frame
// became available. A timeout or bus error yields n == 0; n is never in
// (0, HeaderSize). Write transmits the whole buffer or nothing.
type Hal interface {
	Open() error
	Close()
	Read(p []byte) (n int, timestampUs uint64, err error)
	Write(p []byte) (n int, err error)
	NowUs() uint64
}

// EventSink receives raw sensor events as they are split out of report
// frames. Implementations decode and cache them; the service does not
// interpret report contents beyond record framing.
type EventSink interface {
	OnSensorEvent(e *SensorEvent)
}
