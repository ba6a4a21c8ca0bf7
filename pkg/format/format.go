// Package format connects the host to the plugin formats able to construct
// inner processors. Construction is asynchronous; a format reports the
// result through a continuation that may run on any goroutine.
package format

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	fwplugin "github.com/justyntemme/nesthost/pkg/framework/plugin"
	"github.com/justyntemme/nesthost/pkg/plugin"
)

var (
	// ErrUnknownFormat is returned for a descriptor naming an unregistered format.
	ErrUnknownFormat = errors.New("unknown plugin format")
	// ErrUnknownPlugin is returned by a format that has no plugin with the descriptor's ID.
	ErrUnknownPlugin = errors.New("unknown plugin")
)

// Done receives the constructed processor or the construction error.
type Done func(p plugin.Processor, err error)

// Format constructs processors for the plugins it knows about.
type Format interface {
	Name() string
	CreateAsync(desc fwplugin.Descriptor, sampleRate float64, blockSize int32, done Done)
}

// Manager dispatches construction requests to formats by name.
type Manager struct {
	mu      sync.RWMutex
	formats map[string]Format
}

// NewManager creates a manager with the given formats registered.
func NewManager(formats ...Format) *Manager {
	m := &Manager{formats: make(map[string]Format)}
	for _, f := range formats {
		m.formats[f.Name()] = f
	}
	return m
}

// Register adds a format. Names must be unique.
func (m *Manager) Register(f Format) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.formats[f.Name()]; exists {
		return fmt.Errorf("format %q already registered", f.Name())
	}
	m.formats[f.Name()] = f
	return nil
}

// Lookup returns the format registered under name.
func (m *Manager) Lookup(name string) (Format, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.formats[name]
	return f, ok
}

// Names returns the registered format names in sorted order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.formats))
	for name := range m.formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateAsync starts construction of desc. done is called exactly once,
// possibly before CreateAsync returns.
func (m *Manager) CreateAsync(desc fwplugin.Descriptor, sampleRate float64, blockSize int32, done Done) {
	f, ok := m.Lookup(desc.Format)
	if !ok {
		done(nil, fmt.Errorf("%w: %q", ErrUnknownFormat, desc.Format))
		return
	}
	f.CreateAsync(desc, sampleRate, blockSize, done)
}
