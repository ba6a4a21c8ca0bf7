// Package registry holds the two processing-unit slots shared between the
// audio goroutine and the control goroutine.
//
// One slot is active and read by the audio callback; the other is staging
// and written only by the control side. Publish flips the selector with a
// single atomic add. The audio side samples the selector once per callback
// and marks which slot it is reading, so the control side can wait out a
// callback that is still on the slot it is about to overwrite.
package registry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"
)

// ErrGraceTimeout is returned when an in-flight callback does not leave
// the staging slot before the caller's context ends.
var ErrGraceTimeout = errors.New("registry: grace period expired")

const (
	readerIdle     uint64 = 0
	readerSampling uint64 = math.MaxUint64
)

// DefaultPoll is the interval at which the control side re-checks the
// audio goroutine while waiting.
const DefaultPoll = 100 * time.Microsecond

// Slot is a nullable owned handle to one unit.
type Slot[T any] struct {
	unit atomic.Pointer[T]
}

// Unit returns the held unit or nil.
func (s *Slot[T]) Unit() *T {
	return s.unit.Load()
}

// Registry is a double-buffered unit holder for one audio reader and one
// control writer.
type Registry[T any] struct {
	slots [2]Slot[T]

	// generation; the active slot is gen&1
	gen atomic.Uint64

	// readerIdle, readerSampling or the sampled generation plus one
	reader atomic.Uint64

	paused atomic.Bool
	poll   time.Duration
}

// New returns an empty registry. It starts paused, so Active reports no
// unit until Resume is called. A zero poll uses DefaultPoll.
func New[T any](poll time.Duration) *Registry[T] {
	if poll <= 0 {
		poll = DefaultPoll
	}
	r := &Registry[T]{poll: poll}
	r.paused.Store(true)
	return r
}

// Active is the audio goroutine's view of one slot for a single callback.
type Active[T any] struct {
	r    *Registry[T]
	unit *T
}

// Unit returns the unit to process with, or nil when the slot is empty or
// the registry is paused.
func (a Active[T]) Unit() *T {
	return a.unit
}

// Done ends the callback. The handle must not be used afterwards.
func (a Active[T]) Done() {
	if a.r != nil {
		a.r.reader.Store(readerIdle)
	}
}

// Active samples the selector once and returns a handle fixed to the active
// slot. Audio goroutine only; it never blocks or allocates. Every call must
// be paired with Done.
func (r *Registry[T]) Active() Active[T] {
	r.reader.Store(readerSampling)
	if r.paused.Load() {
		r.reader.Store(readerIdle)
		return Active[T]{}
	}
	g := r.gen.Load()
	r.reader.Store(g + 1)
	return Active[T]{r: r, unit: r.slots[g&1].Unit()}
}

// Staging is the control goroutine's handle to the slot not selected.
type Staging[T any] struct {
	r     *Registry[T]
	index int
}

// Index returns the slot index, 0 or 1.
func (s Staging[T]) Index() int {
	return s.index
}

// Unit returns the unit in the staging slot.
func (s Staging[T]) Unit() *T {
	return s.r.slots[s.index].Unit()
}

// Set replaces the staging unit and returns the previous one. Callers must
// have waited with Grace since the last Publish.
func (s Staging[T]) Set(unit *T) *T {
	return s.r.slots[s.index].unit.Swap(unit)
}

// Staging returns the slot not selected by the selector. Control goroutine
// only; it never blocks.
func (r *Registry[T]) Staging() Staging[T] {
	return Staging[T]{r: r, index: int(r.gen.Load()&1) ^ 1}
}

// ActiveIndex returns the index of the active slot.
func (r *Registry[T]) ActiveIndex() int {
	return int(r.gen.Load() & 1)
}

// Peek returns the active unit for read-only inspection by the control
// goroutine.
func (r *Registry[T]) Peek() *T {
	return r.slots[r.gen.Load()&1].Unit()
}

// Publish makes the staging slot active. Control goroutine only.
func (r *Registry[T]) Publish() int {
	return int(r.gen.Add(1) & 1)
}

// Grace waits until no callback is still reading the staging slot. Only a
// callback that sampled the selector before the last Publish can be.
func (r *Registry[T]) Grace(ctx context.Context) error {
	staging := r.gen.Load()&1 ^ 1
	return r.wait(ctx, func(mark uint64) bool {
		return mark == readerIdle || (mark != readerSampling && (mark-1)&1 != staging)
	})
}

// Stage waits out the grace period and then installs unit in the staging
// slot, returning the unit it replaced.
func (r *Registry[T]) Stage(ctx context.Context, unit *T) (*T, error) {
	if err := r.Grace(ctx); err != nil {
		return nil, err
	}
	return r.Staging().Set(unit), nil
}

// Pause stops the audio goroutine from reading either slot and waits for
// the current callback to finish. The returned Dormant gives the control
// side access to both slots until Resume.
func (r *Registry[T]) Pause(ctx context.Context) (Dormant[T], error) {
	r.paused.Store(true)
	if err := r.wait(ctx, func(mark uint64) bool { return mark == readerIdle }); err != nil {
		return Dormant[T]{}, err
	}
	return Dormant[T]{r: r}, nil
}

// Paused reports whether the registry is paused.
func (r *Registry[T]) Paused() bool {
	return r.paused.Load()
}

// Resume lets the audio goroutine read the active slot again.
func (r *Registry[T]) Resume() {
	r.paused.Store(false)
}

func (r *Registry[T]) wait(ctx context.Context, done func(mark uint64) bool) error {
	if done(r.reader.Load()) {
		return nil
	}
	t := time.NewTimer(r.poll)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrGraceTimeout, ctx.Err())
		case <-t.C:
		}
		if done(r.reader.Load()) {
			return nil
		}
		t.Reset(r.poll)
	}
}

// Dormant is the control side's handle to both slots while the registry
// is paused.
type Dormant[T any] struct {
	r *Registry[T]
}

// Valid reports whether the handle came from a successful Pause.
func (d Dormant[T]) Valid() bool {
	return d.r != nil
}

// Active returns the unit in the active slot.
func (d Dormant[T]) Active() *T {
	return d.r.slots[d.r.gen.Load()&1].Unit()
}

// SetActive replaces the active unit and returns the previous one.
func (d Dormant[T]) SetActive(unit *T) *T {
	return d.r.slots[d.r.gen.Load()&1].unit.Swap(unit)
}

// Staging returns the unit in the staging slot.
func (d Dormant[T]) Staging() *T {
	return d.r.slots[d.r.gen.Load()&1^1].Unit()
}

// SetStaging replaces the staging unit and returns the previous one.
func (d Dormant[T]) SetStaging(unit *T) *T {
	return d.r.slots[d.r.gen.Load()&1^1].unit.Swap(unit)
}

// Publish flips the selector while paused.
func (d Dormant[T]) Publish() int {
	return d.r.Publish()
}
