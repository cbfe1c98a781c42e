// Package audio provides the slab-backed block pool shared between the
// capture side and the delivery thread, and the capture source
// contract. Real capture hardware (PDM microphone) lives outside this
// module; a synthetic tone source stands in for it on the bench.
package audio

import (
	log "github.com/sirupsen/logrus"
)

// Block is one slab allocation. Data spans the whole combined radio
// record; capture fills the leading audio region and the delivery
// thread appends telemetry in place, so no copy happens between
// capture and transmit.
type Block struct {
	Data []byte
}

// Pool hands out a fixed set of pre-allocated blocks. Get is
// non-blocking: exhaustion returns nil and the caller abandons that
// iteration. Every consumed block must come back through Put exactly
// once; a leak starves capture, and a double free is detected and
// dropped.
type Pool struct {
	free      chan *Block
	blockSize int
}

// NewPool allocates count blocks of blockSize bytes each.
func NewPool(blockSize, count int) *Pool {
	p := &Pool{
		free:      make(chan *Block, count),
		blockSize: blockSize,
	}
	for i := 0; i < count; i++ {
		p.free <- &Block{Data: make([]byte, blockSize)}
	}
	return p
}

// BlockSize returns the size of each slab block.
func (p *Pool) BlockSize() int { return p.blockSize }

// Get returns a free block, or nil if the pool is exhausted.
func (p *Pool) Get() *Block {
	select {
	case b := <-p.free:
		return b
	default:
		return nil
	}
}

// Put returns a block to the pool. Returning more blocks than were
// taken indicates a double free; the extra block is dropped and the
// bug logged.
func (p *Pool) Put(b *Block) {
	if b == nil {
		return
	}
	select {
	case p.free <- b:
	default:
		log.Error("audio: block double free, dropping")
	}
}

// Free returns the number of blocks currently available.
func (p *Pool) Free() int { return len(p.free) }

// Source is the external capture collaborator: it owns a goroutine that
// fills pool blocks and queues them for delivery. The queue depth
// provides the decoupling between capture cadence and radio cadence.
type Source interface {
	Blocks() <-chan *Block
}
