package battery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStaticProvider(t *testing.T) {
	assert.Equal(t, uint8(73), StaticProvider(73).SoC())
}

func TestCurveProvider(t *testing.T) {
	tests := []struct {
		name string
		mv   uint16
		want uint8
	}{
		{"above top clamps", 4300, 100},
		{"at top", 4200, 100},
		{"interpolated high", 4150, 97},
		{"knot point", 3510, 50},
		{"interpolated low", 3120, 15},
		{"at bottom", 3000, 0},
		{"below bottom clamps", 2800, 0},
	}
	for _, tt := range tests {
		p := NewCurveProvider(func() uint16 { return tt.mv })
		assert.Equal(t, tt.want, p.SoC(), tt.name)
	}
}

func TestCurveMonotonic(t *testing.T) {
	var mv uint16
	p := NewCurveProvider(func() uint16 { return mv })

	prev := uint8(0)
	for mv = 3000; mv <= 4200; mv += 10 {
		soc := p.SoC()
		assert.GreaterOrEqual(t, soc, prev, "%dmV", mv)
		prev = soc
	}
}
