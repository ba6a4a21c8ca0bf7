package process

// ProcessChannels processes all available channels with the given function
func (ctx *Context) ProcessChannels(fn func(ch int, input, output []float32)) {
	numChannels := ctx.GetNumChannels()
	for ch := 0; ch < numChannels; ch++ {
		fn(ch, ctx.Input[ch], ctx.Output[ch])
	}
}

// ProcessStereo processes up to 2 channels (stereo) with the given function
func (ctx *Context) ProcessStereo(fn func(ch int, input, output []float32)) {
	numChannels := ctx.GetNumStereoChannels()
	for ch := 0; ch < numChannels; ch++ {
		fn(ch, ctx.Input[ch], ctx.Output[ch])
	}
}

// GetNumChannels returns the minimum of input and output channels
func (ctx *Context) GetNumChannels() int {
	numChannels := ctx.NumInputChannels()
	if ctx.NumOutputChannels() < numChannels {
		numChannels = ctx.NumOutputChannels()
	}
	return numChannels
}

// GetNumStereoChannels returns the number of channels capped at 2
func (ctx *Context) GetNumStereoChannels() int {
	numChannels := ctx.GetNumChannels()
	if numChannels > 2 {
		return 2
	}
	return numChannels
}
