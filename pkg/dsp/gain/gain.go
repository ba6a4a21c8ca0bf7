// Package gain provides amplitude conversion and block gain helpers.
package gain

import (
	"math"
)

// MinDB is the minimum dB value (effectively -infinity)
const MinDB = -200.0

// LinearToDb converts a linear amplitude value to decibels.
// Returns MinDB for values <= 0.
func LinearToDb(linear float64) float64 {
	if linear <= 0 {
		return MinDB
	}
	return 20.0 * math.Log10(linear)
}

// DbToLinear converts a decibel value to linear amplitude.
// Values <= MinDB return 0.
func DbToLinear(db float64) float64 {
	if db <= MinDB {
		return 0
	}
	return math.Pow(10.0, db/20.0)
}

// DbToLinear32 is the float32 version of DbToLinear.
func DbToLinear32(db float32) float32 {
	if db <= MinDB {
		return 0
	}
	return float32(math.Pow(10.0, float64(db)/20.0))
}

// ApplyBufferTo applies gain to src and stores the result in dst.
func ApplyBufferTo(src []float32, gain float32, dst []float32) {
	length := min(len(src), len(dst))
	for i := 0; i < length; i++ {
		dst[i] = src[i] * gain
	}
}

// FadeTo writes src to dst with a gain moving linearly from startGain to
// endGain across the block.
func FadeTo(src, dst []float32, startGain, endGain float32) {
	length := min(len(src), len(dst))
	if length == 0 {
		return
	}
	if startGain == endGain || length == 1 {
		ApplyBufferTo(src[:length], endGain, dst)
		return
	}

	delta := (endGain - startGain) / float32(length-1)
	g := startGain
	for i := 0; i < length; i++ {
		dst[i] = src[i] * g
		g += delta
	}
}

// Ramp tracks the gain applied at the end of the previous block so that
// gain changes are spread over the next block instead of stepping.
type Ramp struct {
	current float32
	primed  bool
}

// Next returns the start and end gain for a block heading to target.
// The first block after Reset starts at target.
func (r *Ramp) Next(target float32) (start, end float32) {
	if !r.primed {
		r.current = target
		r.primed = true
	}
	start = r.current
	r.current = target
	return start, target
}

// Reset forgets the previous gain.
func (r *Ramp) Reset() {
	r.primed = false
	r.current = 0
}
