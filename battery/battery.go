// Package battery exposes the state-of-charge provider the delivery
// thread samples, and the discharge-curve interpolation backing it.
package battery

// Provider reports the latest state of charge as a percentage. Every
// implementation must be safe to call from any goroutine.
type Provider interface {
	SoC() uint8
}

// StaticProvider always reports a fixed level. Used on the bench and in
// tests where no fuel gauge exists.
type StaticProvider uint8

func (p StaticProvider) SoC() uint8 { return uint8(p) }

// CurvePoint maps a battery voltage (millivolts at the cell) to a state
// of charge.
type CurvePoint struct {
	MilliVolts uint16
	Percent    uint8
}

// defaultCurve is a single-cell LiPo discharge curve, highest voltage
// first. TODO: replace with characterized data for the production cell.
var defaultCurve = []CurvePoint{
	{4200, 100},
	{4100, 95},
	{4000, 90},
	{3880, 80},
	{3750, 70},
	{3630, 60},
	{3510, 50},
	{3390, 40},
	{3270, 30},
	{3160, 20},
	{3080, 10},
	{3020, 5},
	{3000, 0},
}

// CurveProvider converts a sampled cell voltage to a state of charge by
// linear interpolation over a discharge curve. The voltage sampler (ADC
// path) is external; only the conversion lives here.
type CurveProvider struct {
	voltage func() uint16 // millivolts
	curve   []CurvePoint
}

// NewCurveProvider builds a provider over the given voltage sampler
// using the default discharge curve.
func NewCurveProvider(voltage func() uint16) *CurveProvider {
	return &CurveProvider{voltage: voltage, curve: defaultCurve}
}

// SoC implements Provider.
func (p *CurveProvider) SoC() uint8 {
	mv := p.voltage()
	curve := p.curve
	if mv >= curve[0].MilliVolts {
		return curve[0].Percent
	}
	last := curve[len(curve)-1]
	if mv <= last.MilliVolts {
		return last.Percent
	}
	for i := 1; i < len(curve); i++ {
		if mv >= curve[i].MilliVolts {
			hi, lo := curve[i-1], curve[i]
			span := int(hi.MilliVolts) - int(lo.MilliVolts)
			frac := int(mv) - int(lo.MilliVolts)
			pct := int(lo.Percent) + (int(hi.Percent)-int(lo.Percent))*frac/span
			return uint8(pct)
		}
	}
	return last.Percent
}
