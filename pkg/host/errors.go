package host

import (
	"errors"
	"fmt"

	"github.com/justyntemme/nesthost/pkg/framework/bus"
	fwplugin "github.com/justyntemme/nesthost/pkg/framework/plugin"
	"github.com/justyntemme/nesthost/pkg/host/registry"
)

var (
	// ErrLoaderStopped is returned for operations submitted after Stop.
	ErrLoaderStopped = errors.New("loader stopped")

	// ErrGraceTimeout is returned when the audio goroutine did not leave a
	// slot in time. The unit that would have replaced it is discarded.
	ErrGraceTimeout = registry.ErrGraceTimeout

	// ErrQueueFull is returned by LoadAsync when the operation queue is full.
	ErrQueueFull = errors.New("loader queue full")
)

// ConstructionError reports that the format could not build, restore or
// prepare the requested plugin.
type ConstructionError struct {
	Descriptor fwplugin.Descriptor
	Err        error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("construct %s: %v", e.Descriptor, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// LayoutMismatchError reports that a constructed plugin rejected the
// session's bus layout.
type LayoutMismatchError struct {
	Descriptor fwplugin.Descriptor
	Layout     bus.Layout
}

func (e *LayoutMismatchError) Error() string {
	return fmt.Sprintf("%s does not support layout %s", e.Descriptor, e.Layout)
}

// ParameterOverflowError is a warning: the inner plugin exposes more
// parameters than the outer host has slots for. The extra parameters are
// not reachable through the host.
type ParameterOverflowError struct {
	Exposed   int
	Available int
}

func (e *ParameterOverflowError) Error() string {
	return fmt.Sprintf("plugin exposes %d parameters, only the first %d are available", e.Exposed, e.Available)
}
