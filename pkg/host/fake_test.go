package host

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally/v4"

	"github.com/justyntemme/nesthost/pkg/format"
	"github.com/justyntemme/nesthost/pkg/framework/bus"
	"github.com/justyntemme/nesthost/pkg/framework/debug"
	"github.com/justyntemme/nesthost/pkg/framework/param"
	fwplugin "github.com/justyntemme/nesthost/pkg/framework/plugin"
	"github.com/justyntemme/nesthost/pkg/framework/process"
	"github.com/justyntemme/nesthost/pkg/plugin"
)

const fakeFormatName = "fake"

type fakeSpec struct {
	level        float32
	params       int
	rejectLayout bool
	failInit     bool
	failRate     float64
	latency      int32
	tail         int32
	err          error
}

// fakeProc writes a constant level and records lifecycle misuse.
type fakeProc struct {
	*fwplugin.BaseProcessor
	id           string
	level        float32
	rejectLayout bool
	failInit     bool
	failRate     float64
	latency      int32
	tail         int32

	inits     atomic.Int32
	lastRate  atomic.Uint64
	active    atomic.Bool
	closed    atomic.Bool
	processed atomic.Int64

	violations *atomic.Int64
}

func newFakeProc(id string, spec fakeSpec, violations *atomic.Int64) *fakeProc {
	p := &fakeProc{
		BaseProcessor: fwplugin.NewBaseProcessor(nil),
		id:            id,
		level:         spec.level,
		rejectLayout:  spec.rejectLayout,
		failInit:      spec.failInit,
		failRate:      spec.failRate,
		latency:       spec.latency,
		tail:          spec.tail,
		violations:    violations,
	}
	for i := 0; i < spec.params; i++ {
		p.Parameters().Add(param.New(uint32(i), fmt.Sprintf("%s param %d", id, i)).Build())
	}
	p.OnInitialize(func(sampleRate float64, _ int32) error {
		if p.failInit || sampleRate == p.failRate {
			return errors.New("init failed")
		}
		p.inits.Add(1)
		p.lastRate.Store(math.Float64bits(sampleRate))
		return nil
	})
	p.OnSetActive(func(active bool) error {
		p.active.Store(active)
		return nil
	})
	return p
}

func (p *fakeProc) ProcessAudio(ctx *process.Context) {
	if p.closed.Load() || !p.active.Load() {
		p.violations.Add(1)
	}
	p.processed.Add(1)
	for _, out := range ctx.Output {
		for i := range out {
			out[i] = p.level
		}
	}
}

func (p *fakeProc) GetLatencySamples() int32 {
	return p.latency
}

func (p *fakeProc) GetTailSamples() int32 {
	return p.tail
}

func (p *fakeProc) SupportsLayout(l bus.Layout) bool {
	return !p.rejectLayout && p.GetBuses().Accepts(l)
}

func (p *fakeProc) LastRate() float64 {
	return math.Float64frombits(p.lastRate.Load())
}

func (p *fakeProc) Close() error {
	p.closed.Store(true)
	return nil
}

var (
	_ plugin.Processor = (*fakeProc)(nil)
	_ io.Closer        = (*fakeProc)(nil)
)

type fakeFormat struct {
	mu      sync.Mutex
	specs   map[string]fakeSpec
	created []*fakeProc
	gate    chan struct{}

	violations atomic.Int64
}

func newFakeFormat() *fakeFormat {
	return &fakeFormat{specs: map[string]fakeSpec{
		"a": {level: 0.25, params: 2},
		"b": {level: 0.5, params: 3},
	}}
}

func (f *fakeFormat) Name() string {
	return fakeFormatName
}

func (f *fakeFormat) set(id string, spec fakeSpec) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.specs[id] = spec
}

func (f *fakeFormat) hold() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	return f.gate
}

func (f *fakeFormat) CreateAsync(desc fwplugin.Descriptor, sampleRate float64, blockSize int32, done format.Done) {
	f.mu.Lock()
	spec, ok := f.specs[desc.ID]
	gate := f.gate
	f.mu.Unlock()

	go func() {
		if gate != nil {
			<-gate
		}
		if !ok {
			done(nil, format.ErrUnknownPlugin)
			return
		}
		if spec.err != nil {
			done(nil, spec.err)
			return
		}
		p := newFakeProc(desc.ID, spec, &f.violations)
		f.mu.Lock()
		f.created = append(f.created, p)
		f.mu.Unlock()
		done(p, nil)
	}()
}

func (f *fakeFormat) all() []*fakeProc {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeProc(nil), f.created...)
}

func (f *fakeFormat) last() *fakeProc {
	all := f.all()
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}

func desc(id string) fwplugin.Descriptor {
	return fwplugin.Descriptor{Format: fakeFormatName, ID: id}
}

func req(id string) LoadRequest {
	return LoadRequest{Descriptor: desc(id)}
}

type fixture struct {
	host   *Host
	format *fakeFormat
	scope  tally.TestScope
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()
	ff := newFakeFormat()
	scope := tally.NewTestScope("", nil)
	cfg := Config{
		GracePoll:        10 * time.Microsecond,
		OperationTimeout: time.Second,
		Logger:           debug.NewNop(),
		Metrics:          scope,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	h := New(format.NewManager(ff), cfg)
	t.Cleanup(func() { h.Close() })
	return &fixture{host: h, format: ff, scope: scope}
}

// playing initializes and activates the host.
func (fx *fixture) playing(t *testing.T, sampleRate float64) {
	t.Helper()
	require.NoError(t, fx.host.Initialize(sampleRate, 64))
	require.NoError(t, fx.host.SetActive(true))
}

func (fx *fixture) counter(name string) int64 {
	for _, c := range fx.scope.Snapshot().Counters() {
		if c.Name() == "loader."+name {
			return c.Value()
		}
	}
	return 0
}

func stereoContext(n int, in float32) *process.Context {
	ctx := process.NewContext(n, nil)
	ctx.Input = [][]float32{make([]float32, n), make([]float32, n)}
	ctx.Output = [][]float32{make([]float32, n), make([]float32, n)}
	for ch := range ctx.Input {
		for i := range ctx.Input[ch] {
			ctx.Input[ch][i] = in
		}
	}
	return ctx
}

// render runs one block with input level 1 and returns the first output sample.
func (fx *fixture) render() float32 {
	ctx := stereoContext(64, 1)
	fx.host.ProcessAudio(ctx)
	return ctx.Output[0][0]
}
