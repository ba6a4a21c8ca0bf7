package host

import (
	"fmt"
	"sync/atomic"

	"github.com/justyntemme/nesthost/pkg/framework/param"
)

// ParamBank is the fixed set of parameter slots the outer host exposes.
// Each slot forwards to one inner parameter, in the inner plugin's
// registration order, or reads as an unused placeholder.
type ParamBank struct {
	slots    []bankSlot
	registry *param.Registry
	bound    atomic.Int32
}

type bankSlot struct {
	placeholder *param.Parameter
	target      atomic.Pointer[param.Parameter]
}

func newParamBank(size int) *ParamBank {
	b := &ParamBank{
		slots:    make([]bankSlot, size),
		registry: param.NewRegistry(),
	}
	placeholders := make([]*param.Parameter, size)
	for i := range b.slots {
		p := param.New(uint32(i), placeholderName(i)).Build()
		b.slots[i].placeholder = p
		placeholders[i] = p
	}
	b.registry.Add(placeholders...)
	return b
}

func placeholderName(i int) string {
	return fmt.Sprintf("Unused parameter %d", i+1)
}

// Len returns the number of slots.
func (b *ParamBank) Len() int {
	return len(b.slots)
}

// Bound returns how many slots forward to an inner parameter.
func (b *ParamBank) Bound() int {
	return int(b.bound.Load())
}

// Registry returns the placeholder parameters, one per slot, as seen by
// the outer host.
func (b *ParamBank) Registry() *param.Registry {
	return b.registry
}

// bind points the slots at inner's parameters. It returns a
// ParameterOverflowError when inner has more parameters than slots.
func (b *ParamBank) bind(inner *param.Registry) error {
	var params []*param.Parameter
	if inner != nil {
		params = inner.All()
	}
	n := min(len(params), len(b.slots))
	for i := range b.slots {
		if i < n {
			b.slots[i].target.Store(params[i])
		} else {
			b.slots[i].target.Store(nil)
		}
	}
	b.bound.Store(int32(n))
	if len(params) > len(b.slots) {
		return &ParameterOverflowError{Exposed: len(params), Available: len(b.slots)}
	}
	return nil
}

func (b *ParamBank) unbind() {
	b.bind(nil)
}

// Target returns the inner parameter behind slot i, or nil.
func (b *ParamBank) Target(i int) *param.Parameter {
	if i < 0 || i >= len(b.slots) {
		return nil
	}
	return b.slots[i].target.Load()
}

// Name returns the display name of slot i.
func (b *ParamBank) Name(i int) string {
	if p := b.Target(i); p != nil {
		return p.Name
	}
	if i < 0 || i >= len(b.slots) {
		return ""
	}
	return b.slots[i].placeholder.Name
}

// Value returns the normalized value of slot i. Unused slots read 0.
func (b *ParamBank) Value(i int) float64 {
	if p := b.Target(i); p != nil {
		return p.GetValue()
	}
	return 0
}

// SetValue forwards a normalized value to the inner parameter of slot i.
// It reports false for unused slots.
func (b *ParamBank) SetValue(i int, v float64) bool {
	p := b.Target(i)
	if p == nil {
		return false
	}
	p.SetValue(v)
	if i < len(b.slots) {
		b.slots[i].placeholder.SetValue(v)
	}
	return true
}

// Format returns the display text of slot i at its current value.
func (b *ParamBank) Format(i int) string {
	if p := b.Target(i); p != nil {
		return p.FormatValue(p.GetValue())
	}
	return ""
}
