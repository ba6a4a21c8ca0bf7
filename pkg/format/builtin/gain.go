package builtin

import (
	"github.com/justyntemme/nesthost/pkg/dsp/gain"
	"github.com/justyntemme/nesthost/pkg/framework/param"
	fwplugin "github.com/justyntemme/nesthost/pkg/framework/plugin"
	"github.com/justyntemme/nesthost/pkg/framework/process"
	"github.com/justyntemme/nesthost/pkg/plugin"
)

// Gain parameter IDs
const (
	ParamGain uint32 = iota
	ParamBypass
)

// Gain is a stereo gain stage with a bypass switch.
type Gain struct{}

func (Gain) GetInfo() fwplugin.Info {
	return fwplugin.Info{
		ID:       "com.nesthost.gain",
		Name:     "Gain",
		Version:  "1.0.0",
		Vendor:   "nesthost",
		Category: "Fx",
	}
}

func (Gain) CreateProcessor() plugin.Processor {
	return NewGainProcessor()
}

// GainProcessor applies a smoothed gain to each channel.
type GainProcessor struct {
	*fwplugin.BaseProcessor
	ramp gain.Ramp
}

// NewGainProcessor creates a gain processor at 0 dB.
func NewGainProcessor() *GainProcessor {
	p := &GainProcessor{BaseProcessor: fwplugin.NewBaseProcessor(nil)}
	p.Parameters().Add(
		param.New(ParamGain, "Gain").
			Range(-60, 12).
			Default(0).
			Unit("dB").
			Formatter(param.DecibelFormatter, param.DecibelParser).
			Build(),
		param.New(ParamBypass, "Bypass").Toggle().Bypass().Build(),
	)
	p.OnReset(p.ramp.Reset)
	return p
}

// ProcessAudio implements plugin.Processor.
func (p *GainProcessor) ProcessAudio(ctx *process.Context) {
	if ctx.Param(ParamBypass) >= 0.5 {
		ctx.PassThrough()
		return
	}

	db := ctx.ParamPlain(ParamGain)
	target := float32(0)
	if db > -60 {
		target = float32(gain.DbToLinear(db))
	}
	start, end := p.ramp.Next(target)

	ctx.ProcessChannels(func(ch int, input, output []float32) {
		gain.FadeTo(input, output, start, end)
	})
	for ch := ctx.GetNumChannels(); ch < ctx.NumOutputChannels(); ch++ {
		clear(ctx.Output[ch])
	}
}
