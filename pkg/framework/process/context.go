// Package process provides the per-block audio processing context.
package process

import (
	"github.com/justyntemme/nesthost/pkg/framework/param"
	"github.com/justyntemme/nesthost/pkg/midi"
)

// DefaultEventCapacity is the number of MIDI events a context holds per
// block when created with NewContext.
const DefaultEventCapacity = 256

// Context provides a clean API for audio processing with zero allocations
type Context struct {
	Input      [][]float32
	Output     [][]float32
	SampleRate float64

	// MIDI in and out for the current block
	InputEvents  *midi.Buffer
	OutputEvents *midi.Buffer

	// event buffers owned by this context, restored by Unbind
	ownInput  *midi.Buffer
	ownOutput *midi.Buffer

	// Pre-allocated work buffers
	workBuffer []float32
	tempBuffer []float32

	// Parameter access
	params *param.Registry
}

// NewContext creates a new process context with pre-allocated buffers
func NewContext(maxBlockSize int, params *param.Registry) *Context {
	c := &Context{
		ownInput:   midi.NewBuffer(DefaultEventCapacity),
		ownOutput:  midi.NewBuffer(DefaultEventCapacity),
		workBuffer: make([]float32, maxBlockSize),
		tempBuffer: make([]float32, maxBlockSize),
		params:     params,
	}
	c.InputEvents = c.ownInput
	c.OutputEvents = c.ownOutput
	return c
}

// Bind points the context at the audio and MIDI buffers of outer for one
// block. Only slice headers and pointers are copied.
func (c *Context) Bind(outer *Context) {
	c.Input = outer.Input
	c.Output = outer.Output
	c.InputEvents = outer.InputEvents
	c.OutputEvents = outer.OutputEvents
	if outer.SampleRate > 0 {
		c.SampleRate = outer.SampleRate
	}
}

// Unbind drops the references taken by Bind and restores the context's
// own event buffers.
func (c *Context) Unbind() {
	c.Input = nil
	c.Output = nil
	c.InputEvents = c.ownInput
	c.OutputEvents = c.ownOutput
}

// Param returns the current value of a parameter (0-1 normalized)
func (c *Context) Param(id uint32) float64 {
	if c.params == nil {
		return 0
	}
	if p := c.params.Get(id); p != nil {
		return p.GetValue()
	}
	return 0
}

// ParamPlain returns the current plain value of a parameter
func (c *Context) ParamPlain(id uint32) float64 {
	if c.params == nil {
		return 0
	}
	if p := c.params.Get(id); p != nil {
		return p.GetPlainValue()
	}
	return 0
}

// NumSamples returns the number of samples to process
func (c *Context) NumSamples() int {
	if len(c.Input) > 0 && len(c.Input[0]) > 0 {
		return len(c.Input[0])
	}
	if len(c.Output) > 0 && len(c.Output[0]) > 0 {
		return len(c.Output[0])
	}
	return 0
}

// NumInputChannels returns the number of input channels
func (c *Context) NumInputChannels() int {
	return len(c.Input)
}

// NumOutputChannels returns the number of output channels
func (c *Context) NumOutputChannels() int {
	return len(c.Output)
}

// WorkBuffer returns a slice of the pre-allocated work buffer
// sized to the current block size - no allocation!
func (c *Context) WorkBuffer() []float32 {
	n := c.NumSamples()
	if n > len(c.workBuffer) {
		n = len(c.workBuffer)
	}
	return c.workBuffer[:n]
}

// TempBuffer returns a slice of the pre-allocated temp buffer
// sized to the current block size - no allocation!
func (c *Context) TempBuffer() []float32 {
	n := c.NumSamples()
	if n > len(c.tempBuffer) {
		n = len(c.tempBuffer)
	}
	return c.tempBuffer[:n]
}

// PassThrough copies input to output and silences output channels that
// have no matching input. MIDI input is forwarded to the MIDI output.
func (c *Context) PassThrough() {
	numChannels := c.GetNumChannels()
	for ch := 0; ch < numChannels; ch++ {
		copy(c.Output[ch], c.Input[ch])
	}
	for ch := numChannels; ch < len(c.Output); ch++ {
		clear(c.Output[ch])
	}
	if c.OutputEvents != nil && c.InputEvents != nil {
		c.OutputEvents.CopyFrom(c.InputEvents)
	}
}

// Clear zeros the output buffers
func (c *Context) Clear() {
	for ch := range c.Output {
		clear(c.Output[ch])
	}
}
