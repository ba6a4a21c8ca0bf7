// Package plugin defines the contracts between the host and the plugins
// it loads.
package plugin

import (
	"github.com/justyntemme/nesthost/pkg/framework/bus"
	"github.com/justyntemme/nesthost/pkg/framework/param"
	"github.com/justyntemme/nesthost/pkg/framework/plugin"
	"github.com/justyntemme/nesthost/pkg/framework/process"
)

// Plugin is the main interface that users implement
type Plugin interface {
	// GetInfo returns plugin metadata
	GetInfo() plugin.Info

	// CreateProcessor creates a new instance of the audio processor
	CreateProcessor() Processor
}

// Processor handles the actual audio processing
type Processor interface {
	// Initialize prepares the processor for a sample rate and block size
	Initialize(sampleRate float64, maxBlockSize int32) error

	// ProcessAudio processes audio - ZERO ALLOCATIONS!
	ProcessAudio(ctx *process.Context)

	// GetParameters returns the parameter registry
	GetParameters() *param.Registry

	// GetBuses returns the bus configuration
	GetBuses() *bus.Configuration

	// SetActive is called when processing starts/stops
	SetActive(active bool) error

	// GetLatencySamples returns the plugin's latency in samples
	GetLatencySamples() int32

	// GetTailSamples returns the tail length in samples
	GetTailSamples() int32
}

// LayoutChecker is implemented by processors that accept layouts other
// than their declared main buses.
type LayoutChecker interface {
	SupportsLayout(layout bus.Layout) bool
}

// Stateful is implemented by processors with a persistent state blob.
type Stateful interface {
	SaveState() ([]byte, error)
	LoadState(data []byte) error
}

// SupportsLayout reports whether p can run with layout, asking p itself
// when it implements LayoutChecker.
func SupportsLayout(p Processor, layout bus.Layout) bool {
	if lc, ok := p.(LayoutChecker); ok {
		return lc.SupportsLayout(layout)
	}
	buses := p.GetBuses()
	if buses == nil {
		return false
	}
	return buses.Accepts(layout)
}
