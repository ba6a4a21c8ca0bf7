package builtin

import (
	fwplugin "github.com/justyntemme/nesthost/pkg/framework/plugin"
	"github.com/justyntemme/nesthost/pkg/plugin"
)

// Passthrough copies audio and MIDI unchanged.
type Passthrough struct{}

func (Passthrough) GetInfo() fwplugin.Info {
	return fwplugin.Info{
		ID:       "com.nesthost.passthrough",
		Name:     "Passthrough",
		Version:  "1.0.0",
		Vendor:   "nesthost",
		Category: "Fx",
	}
}

func (Passthrough) CreateProcessor() plugin.Processor {
	return fwplugin.NewSimpleProcessor(nil, nil)
}
