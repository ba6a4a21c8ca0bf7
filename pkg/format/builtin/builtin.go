// Package builtin is an in-process plugin format. Plugins are Go values
// registered at startup and constructed on a fresh goroutine, the way an
// out-of-process format would report back.
package builtin

import (
	"fmt"
	"sort"
	"sync"

	"github.com/justyntemme/nesthost/pkg/format"
	fwplugin "github.com/justyntemme/nesthost/pkg/framework/plugin"
	"github.com/justyntemme/nesthost/pkg/plugin"
)

// Name is the format name used in descriptors.
const Name = "builtin"

// Format holds the registered builtin plugins.
type Format struct {
	mu      sync.RWMutex
	plugins map[string]plugin.Plugin
}

// New creates a format with the given plugins.
func New(plugins ...plugin.Plugin) *Format {
	f := &Format{plugins: make(map[string]plugin.Plugin)}
	for _, p := range plugins {
		f.plugins[p.GetInfo().ID] = p
	}
	return f
}

// Default returns a format with every plugin shipped in this package.
func Default() *Format {
	return New(&Passthrough{}, &Gain{}, &Monitor{})
}

// Register adds a plugin. IDs must be unique.
func (f *Format) Register(p plugin.Plugin) error {
	info := p.GetInfo()
	if err := info.ValidateUID(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.plugins[info.ID]; exists {
		return fmt.Errorf("plugin %q already registered", info.ID)
	}
	f.plugins[info.ID] = p
	return nil
}

// Name implements format.Format.
func (f *Format) Name() string {
	return Name
}

// Descriptors lists the registered plugins sorted by ID.
func (f *Format) Descriptors() []fwplugin.Descriptor {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]fwplugin.Descriptor, 0, len(f.plugins))
	for _, p := range f.plugins {
		out = append(out, p.GetInfo().Descriptor(Name))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CreateAsync implements format.Format. done runs on a new goroutine.
func (f *Format) CreateAsync(desc fwplugin.Descriptor, sampleRate float64, blockSize int32, done format.Done) {
	f.mu.RLock()
	p, ok := f.plugins[desc.ID]
	f.mu.RUnlock()

	go func() {
		if !ok {
			done(nil, fmt.Errorf("%w: %s", format.ErrUnknownPlugin, desc))
			return
		}
		proc := p.CreateProcessor()
		if proc == nil {
			done(nil, fmt.Errorf("plugin %s returned no processor", desc))
			return
		}
		done(proc, nil)
	}()
}
