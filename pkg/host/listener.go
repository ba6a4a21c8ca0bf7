package host

import (
	"sync"

	"github.com/google/uuid"

	fwplugin "github.com/justyntemme/nesthost/pkg/framework/plugin"
)

// Change describes a completed or failed load or clear.
type Change struct {
	Descriptor fwplugin.Descriptor
	UnitID     uuid.UUID
	Style      EditorStyle

	// Loaded is false after a clear.
	Loaded bool

	// Live is true once the change is audible, false while it waits for
	// the host to be activated or prepared.
	Live bool

	// Err is set when the load failed; Descriptor and Style then name the
	// request and Loaded reports whether a plugin is still loaded.
	Err error

	// Warning is set when the change went through with a caveat, such as
	// a ParameterOverflowError.
	Warning error
}

// Listener is notified on the loader goroutine. It must not register or
// unregister listeners.
type Listener func(Change)

// listenerSlot holds the single presentation callback.
type listenerSlot struct {
	mu  sync.Mutex
	fn  Listener
	gen uint64
}

// set replaces the listener. The returned function removes it; after it
// returns the listener is not running and will not be called again.
func (l *listenerSlot) set(fn Listener) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.gen++
	l.fn = fn
	gen := l.gen
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.gen == gen {
			l.fn = nil
		}
	}
}

func (l *listenerSlot) notify(c Change) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fn != nil {
		l.fn(c)
	}
}
