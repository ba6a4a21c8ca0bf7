package host

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/nesthost/pkg/framework/bus"
	"github.com/justyntemme/nesthost/pkg/host/registry"
)

func session(rate float64, block int32) SessionConfig {
	return SessionConfig{SampleRate: rate, BlockSize: block, Layout: bus.StereoLayout, Playing: true}
}

func newTestUnit(level float32) (*Unit, *fakeProc, *atomic.Int64) {
	var violations atomic.Int64
	p := newFakeProc("a", fakeSpec{level: level}, &violations)
	return newUnit(desc("a"), p), p, &violations
}

func TestUnitLifecycle(t *testing.T) {
	u, p, _ := newTestUnit(0.25)
	assert.Equal(t, PhaseConstructed, u.Phase())
	assert.True(t, u.stale(session(48000, 64)))
	assert.Equal(t, "a", u.Descriptor().ID)
	assert.Same(t, p, u.Processor())

	require.NoError(t, u.prepare(session(48000, 64)))
	assert.Equal(t, PhasePrepared, u.Phase())
	assert.True(t, p.active.Load())
	assert.False(t, u.stale(session(48000, 64)))
	assert.False(t, u.stale(SessionConfig{SampleRate: 48000, BlockSize: 64, Layout: bus.StereoLayout}),
		"playing state does not make a unit stale")

	// preparing again for the same format is a no-op
	require.NoError(t, u.prepare(session(48000, 64)))
	assert.EqualValues(t, 1, p.inits.Load())

	require.NoError(t, u.prepare(session(44100, 128)))
	assert.EqualValues(t, 2, p.inits.Load())
	assert.Equal(t, 44100.0, p.LastRate())

	require.NoError(t, u.release())
	assert.Equal(t, PhaseReleased, u.Phase())
	assert.False(t, p.active.Load())

	require.NoError(t, u.dispose())
	require.NoError(t, u.dispose())
	assert.Equal(t, PhaseDisposed, u.Phase())
	assert.True(t, p.closed.Load())
	assert.Error(t, u.prepare(session(48000, 64)))
}

func TestUnitPrepareNeedsSession(t *testing.T) {
	u, _, _ := newTestUnit(0.25)
	assert.Error(t, u.prepare(SessionConfig{Layout: bus.StereoLayout}))
	assert.Equal(t, PhaseConstructed, u.Phase())
}

func TestUnitIDsAreUnique(t *testing.T) {
	a, _, _ := newTestUnit(0)
	b, _, _ := newTestUnit(0)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Contains(t, a.String(), "fake:a")
}

func TestConsumerPassThroughWithoutUnit(t *testing.T) {
	reg := registry.New[Unit](registry.DefaultPoll)
	c := NewConsumer(reg)

	ctx := stereoContext(32, 0.75)
	c.Process(ctx) // paused
	assert.Equal(t, float32(0.75), ctx.Output[1][31])

	reg.Resume()
	c.Process(ctx)
	processed, empty := c.Counts()
	assert.Zero(t, processed)
	assert.EqualValues(t, 2, empty)
}

func TestConsumerRunsPreparedUnit(t *testing.T) {
	reg := registry.New[Unit](registry.DefaultPoll)
	reg.Resume()
	c := NewConsumer(reg)

	u, p, violations := newTestUnit(0.5)
	reg.Staging().Set(u)
	reg.Publish()

	ctx := stereoContext(32, 1)
	c.Process(ctx)
	assert.Equal(t, float32(1), ctx.Output[0][0], "unprepared unit is skipped")

	require.NoError(t, u.prepare(session(48000, 32)))
	c.Process(ctx)
	assert.Equal(t, float32(0.5), ctx.Output[0][0])
	assert.EqualValues(t, 1, p.processed.Load())
	assert.Zero(t, violations.Load())

	processed, empty := c.Counts()
	assert.EqualValues(t, 1, processed)
	assert.EqualValues(t, 1, empty)
}

func TestConsumerDoesNotAllocate(t *testing.T) {
	reg := registry.New[Unit](registry.DefaultPoll)
	reg.Resume()
	c := NewConsumer(reg)
	u, _, _ := newTestUnit(0.5)
	require.NoError(t, u.prepare(session(48000, 64)))
	reg.Staging().Set(u)
	reg.Publish()

	ctx := stereoContext(64, 1)
	allocs := testing.AllocsPerRun(100, func() {
		c.Process(ctx)
	})
	assert.Zero(t, allocs)
}
