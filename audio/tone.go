package audio

import (
	"encoding/binary"
	"math"
	"time"

	log "github.com/sirupsen/logrus"
)

// ToneSource synthesizes 16-bit mono PCM at a fixed rate, pacing block
// production the way a capture driver would. It is the bench stand-in
// for the microphone path.
type ToneSource struct {
	pool       *Pool
	out        chan *Block
	audioBytes int
	sampleRate int
	freqHz     float64
	phase      float64
}

// NewTone builds a tone source producing audioBytes of PCM per block
// into blocks drawn from pool. queueDepth bounds how far capture can
// run ahead of delivery.
func NewTone(pool *Pool, audioBytes, sampleRate int, freqHz float64, queueDepth int) *ToneSource {
	return &ToneSource{
		pool:       pool,
		out:        make(chan *Block, queueDepth),
		audioBytes: audioBytes,
		sampleRate: sampleRate,
		freqHz:     freqHz,
	}
}

// Blocks implements Source.
func (s *ToneSource) Blocks() <-chan *Block { return s.out }

// Run produces blocks forever at the real-time rate of the synthesized
// stream. Pool exhaustion abandons the iteration and keeps going; a
// persistent exhaustion means delivery stopped returning blocks.
func (s *ToneSource) Run() {
	samples := s.audioBytes / 2
	period := time.Duration(samples) * time.Second / time.Duration(s.sampleRate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for range ticker.C {
		blk := s.pool.Get()
		if blk == nil {
			log.Warn("audio: block pool exhausted, dropping capture period")
			continue
		}
		s.fill(blk.Data[:s.audioBytes])
		s.out <- blk
	}
}

// fill writes little-endian int16 samples of the configured sine tone.
func (s *ToneSource) fill(dst []byte) {
	step := 2 * math.Pi * s.freqHz / float64(s.sampleRate)
	for i := 0; i+1 < len(dst); i += 2 {
		v := int16(math.Sin(s.phase) * 0.5 * math.MaxInt16)
		binary.LittleEndian.PutUint16(dst[i:], uint16(v))
		s.phase += step
		if s.phase > 2*math.Pi {
			s.phase -= 2 * math.Pi
		}
	}
}
