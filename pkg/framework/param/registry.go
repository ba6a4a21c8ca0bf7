package param

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Registry manages plugin parameters in registration order. Lookups are
// lock-free and safe on the audio goroutine; Add copies the index.
type Registry struct {
	mu   sync.Mutex
	snap atomic.Pointer[index]
}

type index struct {
	params map[uint32]*Parameter
	order  []*Parameter
}

var emptyIndex = &index{params: map[uint32]*Parameter{}}

// NewRegistry creates a new parameter registry
func NewRegistry() *Registry {
	r := &Registry{}
	r.snap.Store(emptyIndex)
	return r
}

func (r *Registry) load() *index {
	if s := r.snap.Load(); s != nil {
		return s
	}
	return emptyIndex
}

// Add registers parameters. Parameters preceding a duplicate ID stay
// registered; the duplicate and everything after it are rejected.
func (r *Registry) Add(params ...*Parameter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.load()
	next := &index{
		params: make(map[uint32]*Parameter, len(old.params)+len(params)),
		order:  make([]*Parameter, len(old.order), len(old.order)+len(params)),
	}
	for id, p := range old.params {
		next.params[id] = p
	}
	copy(next.order, old.order)

	var err error
	for _, p := range params {
		if _, exists := next.params[p.ID]; exists {
			err = fmt.Errorf("duplicate parameter id %d (%s)", p.ID, p.Name)
			break
		}
		next.params[p.ID] = p
		next.order = append(next.order, p)
	}
	r.snap.Store(next)
	return err
}

// Get retrieves a parameter by ID
func (r *Registry) Get(id uint32) *Parameter {
	return r.load().params[id]
}

// GetByIndex retrieves a parameter by index
func (r *Registry) GetByIndex(index int32) *Parameter {
	order := r.load().order
	if index < 0 || index >= int32(len(order)) {
		return nil
	}
	return order[index]
}

// Count returns the number of parameters
func (r *Registry) Count() int32 {
	return int32(len(r.load().order))
}

// All returns all parameters in order
func (r *Registry) All() []*Parameter {
	order := r.load().order
	result := make([]*Parameter, len(order))
	copy(result, order)
	return result
}

// Reset restores every parameter to its default value
func (r *Registry) Reset() {
	for _, p := range r.load().order {
		p.SetValue(p.DefaultValue)
	}
}
