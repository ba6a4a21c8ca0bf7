package host

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/google/uuid"

	fwplugin "github.com/justyntemme/nesthost/pkg/framework/plugin"
	"github.com/justyntemme/nesthost/pkg/framework/process"
	"github.com/justyntemme/nesthost/pkg/plugin"
)

// Phase is the lifecycle stage of a unit.
type Phase int32

const (
	PhaseConstructed Phase = iota
	PhasePrepared
	PhaseReleased
	PhaseDisposed
)

func (p Phase) String() string {
	switch p {
	case PhaseConstructed:
		return "constructed"
	case PhasePrepared:
		return "prepared"
	case PhaseReleased:
		return "released"
	case PhaseDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("Phase(%d)", int32(p))
	}
}

// Unit is one constructed inner processor held in a registry slot.
// Lifecycle methods run on the loader goroutine; process runs on the
// audio goroutine and only while the unit is in the active slot.
type Unit struct {
	id    uuid.UUID
	desc  fwplugin.Descriptor
	proc  plugin.Processor
	phase atomic.Int32

	// session the unit was last prepared with
	session SessionConfig
	ctx     *process.Context
}

func newUnit(desc fwplugin.Descriptor, proc plugin.Processor) *Unit {
	return &Unit{
		id:   uuid.New(),
		desc: desc,
		proc: proc,
	}
}

// ID is unique per constructed instance.
func (u *Unit) ID() uuid.UUID {
	return u.id
}

// Descriptor returns the descriptor the unit was built from.
func (u *Unit) Descriptor() fwplugin.Descriptor {
	return u.desc
}

// Processor returns the wrapped inner processor.
func (u *Unit) Processor() plugin.Processor {
	return u.proc
}

// Phase returns the current lifecycle phase.
func (u *Unit) Phase() Phase {
	return Phase(u.phase.Load())
}

func (u *Unit) stale(s SessionConfig) bool {
	return u.Phase() != PhasePrepared || !u.session.sameFormat(s)
}

// prepare initializes and activates the processor for s. A unit already
// prepared for a different session is deactivated first.
func (u *Unit) prepare(s SessionConfig) error {
	switch u.Phase() {
	case PhaseDisposed:
		return errors.New("unit disposed")
	case PhasePrepared:
		if u.session.sameFormat(s) {
			return nil
		}
		if err := u.release(); err != nil {
			return err
		}
	}
	if !s.Prepared() {
		return fmt.Errorf("session %s has no sample rate or block size", s)
	}

	if err := u.proc.Initialize(s.SampleRate, s.BlockSize); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	ctx := process.NewContext(int(s.BlockSize), u.proc.GetParameters())
	ctx.SampleRate = s.SampleRate
	if err := u.proc.SetActive(true); err != nil {
		return fmt.Errorf("activate: %w", err)
	}

	u.ctx = ctx
	u.session = s
	u.phase.Store(int32(PhasePrepared))
	return nil
}

// release deactivates a prepared unit.
func (u *Unit) release() error {
	if u.Phase() != PhasePrepared {
		return nil
	}
	u.phase.Store(int32(PhaseReleased))
	if err := u.proc.SetActive(false); err != nil {
		return fmt.Errorf("deactivate: %w", err)
	}
	return nil
}

// dispose releases the unit and closes the processor if it holds
// resources. The unit cannot be used afterwards.
func (u *Unit) dispose() error {
	if u.Phase() == PhaseDisposed {
		return nil
	}
	err := u.release()
	u.phase.Store(int32(PhaseDisposed))
	if c, ok := u.proc.(io.Closer); ok {
		err = errors.Join(err, c.Close())
	}
	return err
}

// process runs one block through the inner processor using outer's
// buffers. Audio goroutine only.
func (u *Unit) process(outer *process.Context) {
	u.ctx.Bind(outer)
	u.proc.ProcessAudio(u.ctx)
	u.ctx.Unbind()
}

func (u *Unit) String() string {
	return fmt.Sprintf("%s[%s]", u.desc, u.id.String()[:8])
}
