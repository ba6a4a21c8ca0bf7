package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/justyntemme/nesthost/pkg/format"
	"github.com/justyntemme/nesthost/pkg/framework/debug"
	"github.com/justyntemme/nesthost/pkg/framework/state"
	"github.com/justyntemme/nesthost/pkg/host/registry"
	"github.com/justyntemme/nesthost/pkg/plugin"
)

// LoaderState is the loader's position in a load.
type LoaderState int32

const (
	StateIdle LoaderState = iota
	StateConstructing
	StateCheckingLayout
	StatePreparing
	StateStaged
	StatePublished
)

func (s LoaderState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConstructing:
		return "constructing"
	case StateCheckingLayout:
		return "checking-layout"
	case StatePreparing:
		return "preparing"
	case StateStaged:
		return "staged"
	case StatePublished:
		return "published"
	default:
		return fmt.Sprintf("LoaderState(%d)", int32(s))
	}
}

// Status is a snapshot of the loader's bookkeeping.
type Status struct {
	State   LoaderState
	Session SessionConfig

	// Current is the last successfully staged request, published or not.
	// Its State field is not retained.
	Current LoadRequest
	UnitID  uuid.UUID

	// Loaded is true when Current names a plugin.
	Loaded bool

	// Pending is true when Current waits for activation to be published.
	Pending bool

	// LastError is the result of the last failed operation, cleared by the
	// next successful load or clear.
	LastError error
}

type opKind int

const (
	opLoad opKind = iota
	opConfigure
	opActivate
	opDeactivate
	opSnapshot
	opRestore
)

type op struct {
	kind    opKind
	req     LoadRequest
	session SessionConfig
	blob    []byte
	resp    chan opResult
}

type opResult struct {
	status Status
	blob   []byte
	err    error
}

// Loader serializes every change to the registry on one goroutine. Other
// goroutines submit operations through a queue and may stop waiting for
// the result via their context; the operation itself runs to completion.
type Loader struct {
	cfg       Config
	logger    *debug.Logger
	formats   *format.Manager
	reg       *registry.Registry[Unit]
	consumer  *Consumer
	bank      *ParamBank
	listeners *listenerSlot
	metrics   *loaderMetrics

	ops      chan op
	quit     chan struct{}
	done     chan struct{}
	running  atomic.Bool
	stopped  atomic.Bool
	stopOnce sync.Once

	// timing of the published unit, read by any goroutine
	latency atomic.Int32
	tail    atomic.Int32

	// guards the fields below, which other goroutines read
	mu      sync.Mutex
	state   LoaderState
	session SessionConfig
	current LoadRequest
	unitID  uuid.UUID
	pending bool
	lastErr error

	// last request the audio goroutine was given; differs from current
	// while a load is pending
	published   LoadRequest
	publishedID uuid.UUID
}

func newLoader(cfg Config, formats *format.Manager, reg *registry.Registry[Unit], consumer *Consumer, bank *ParamBank, listeners *listenerSlot) *Loader {
	return &Loader{
		cfg:       cfg,
		logger:    cfg.Logger.Named("loader"),
		formats:   formats,
		reg:       reg,
		consumer:  consumer,
		bank:      bank,
		listeners: listeners,
		metrics:   newLoaderMetrics(cfg.Metrics),
		ops:       make(chan op, cfg.QueueSize),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		session:   SessionConfig{Layout: cfg.Buses.MainLayout()},
	}
}

// Start launches the loader goroutine. A stopped loader cannot be
// restarted; Start is then a no-op.
func (l *Loader) Start() {
	if l.stopped.Load() || l.running.Swap(true) {
		return
	}
	go l.run()
}

// Stop ends the loader goroutine after the operation in progress and
// disposes of every unit. Queued operations fail with ErrLoaderStopped.
func (l *Loader) Stop() {
	l.stopOnce.Do(func() {
		l.stopped.Store(true)
		close(l.quit)
		if l.running.Load() {
			<-l.done
		}
		l.running.Store(false)
		l.teardown()
	})
}

func (l *Loader) run() {
	defer close(l.done)

	ticker := time.NewTicker(l.cfg.ReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.quit:
			l.drain()
			return
		case o := <-l.ops:
			o.resp <- l.handle(o)
		case <-ticker.C:
			l.metrics.report(l.consumer)
		}
	}
}

func (l *Loader) drain() {
	for {
		select {
		case o := <-l.ops:
			o.resp <- opResult{err: ErrLoaderStopped}
		default:
			return
		}
	}
}

func (l *Loader) handle(o op) opResult {
	var res opResult
	switch o.kind {
	case opLoad:
		res.err = l.load(o.req)
	case opConfigure:
		res.err = l.configure(o.session)
	case opActivate:
		res.err = l.activate()
	case opDeactivate:
		res.err = l.deactivate()
	case opSnapshot:
		res.blob, res.err = l.snapshot()
	case opRestore:
		res.err = l.restore(o.blob)
	}
	l.metrics.report(l.consumer)
	res.status = l.Status()
	return res
}

func (l *Loader) submit(ctx context.Context, o op) (opResult, error) {
	if !l.running.Load() {
		return opResult{}, ErrLoaderStopped
	}
	o.resp = make(chan opResult, 1)

	select {
	case l.ops <- o:
	case <-l.quit:
		return opResult{}, ErrLoaderStopped
	case <-ctx.Done():
		return opResult{}, ctx.Err()
	}

	select {
	case r := <-o.resp:
		return r, r.err
	case <-l.done:
		// the loop may have answered just before exiting
		select {
		case r := <-o.resp:
			return r, r.err
		default:
			return opResult{}, ErrLoaderStopped
		}
	case <-ctx.Done():
		return opResult{}, ctx.Err()
	}
}

// Load replaces the inner plugin and waits for the result. Returning early
// because ctx ended does not cancel the load.
func (l *Loader) Load(ctx context.Context, req LoadRequest) (Status, error) {
	r, err := l.submit(ctx, op{kind: opLoad, req: req})
	return r.status, err
}

// LoadAsync queues a load without waiting. The outcome is reported to the
// listener and through Status.
func (l *Loader) LoadAsync(req LoadRequest) error {
	if !l.running.Load() {
		return ErrLoaderStopped
	}
	o := op{kind: opLoad, req: req, resp: make(chan opResult, 1)}
	select {
	case l.ops <- o:
		return nil
	case <-l.quit:
		return ErrLoaderStopped
	default:
		return ErrQueueFull
	}
}

// Clear unloads the inner plugin.
func (l *Loader) Clear(ctx context.Context) (Status, error) {
	return l.Load(ctx, LoadRequest{})
}

// Configure changes sample rate, block size and layout. The Playing field
// is ignored; use Activate and Deactivate.
func (l *Loader) Configure(ctx context.Context, s SessionConfig) error {
	_, err := l.submit(ctx, op{kind: opConfigure, session: s})
	return err
}

// Activate starts playback, publishing any load that was staged while
// inactive.
func (l *Loader) Activate(ctx context.Context) error {
	_, err := l.submit(ctx, op{kind: opActivate})
	return err
}

// Deactivate stops playback and releases every unit.
func (l *Loader) Deactivate(ctx context.Context) error {
	_, err := l.submit(ctx, op{kind: opDeactivate})
	return err
}

// Snapshot returns the persisted host state.
func (l *Loader) Snapshot(ctx context.Context) ([]byte, error) {
	r, err := l.submit(ctx, op{kind: opSnapshot})
	return r.blob, err
}

// Restore loads the plugin named by a Snapshot blob. An empty blob clears.
func (l *Loader) Restore(ctx context.Context, blob []byte) error {
	_, err := l.submit(ctx, op{kind: opRestore, blob: blob})
	return err
}

// Status returns the loader's bookkeeping without queueing.
func (l *Loader) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	return Status{
		State:     l.state,
		Session:   l.session,
		Current:   LoadRequest{Descriptor: l.current.Descriptor, Style: l.current.Style},
		UnitID:    l.unitID,
		Loaded:    !l.current.IsClear(),
		Pending:   l.pending,
		LastError: l.lastErr,
	}
}

// LatencySamples is the latency of the published unit as of its last
// publish or re-prepare.
func (l *Loader) LatencySamples() int32 {
	return l.latency.Load()
}

// TailSamples is the tail of the published unit as of its last publish or
// re-prepare.
func (l *Loader) TailSamples() int32 {
	return l.tail.Load()
}

func (l *Loader) setState(s LoaderState) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

func (l *Loader) sessionSnapshot() SessionConfig {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session
}

func (l *Loader) fail(err error) error {
	l.mu.Lock()
	l.state = StateIdle
	l.lastErr = err
	l.mu.Unlock()
	return err
}

func (l *Loader) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), l.cfg.OperationTimeout)
}

// load replaces the inner plugin and tells the listener when it fails.
func (l *Loader) load(req LoadRequest) error {
	err := l.replace(req)
	if err != nil {
		l.listeners.notify(Change{
			Descriptor: req.Descriptor,
			Style:      req.Style,
			Loaded:     l.Status().Loaded,
			Err:        err,
		})
	}
	return err
}

func (l *Loader) replace(req LoadRequest) error {
	l.metrics.requested.Inc(1)
	if req.IsClear() {
		return l.clear(req)
	}

	start := time.Now()
	session := l.sessionSnapshot()
	l.logger.Debug("loading %s into %s", req.Descriptor, session)

	l.setState(StateConstructing)
	proc, err := l.construct(req)
	if err != nil {
		l.metrics.constructionFailures.Inc(1)
		l.logger.Error("%v", err)
		return l.fail(err)
	}
	u := newUnit(req.Descriptor, proc)

	if len(req.State) > 0 {
		if err := l.applyState(u, req.State); err != nil {
			l.discard(u)
			l.metrics.constructionFailures.Inc(1)
			l.logger.Error("%v", err)
			return l.fail(err)
		}
	}

	l.setState(StateCheckingLayout)
	if !plugin.SupportsLayout(proc, session.Layout) {
		l.discard(u)
		l.metrics.layoutMismatches.Inc(1)
		err := &LayoutMismatchError{Descriptor: req.Descriptor, Layout: session.Layout}
		l.logger.Warn("%v", err)
		return l.fail(err)
	}

	l.setState(StatePreparing)
	if session.Prepared() {
		if err := u.prepare(session); err != nil {
			l.discard(u)
			l.metrics.constructionFailures.Inc(1)
			err := &ConstructionError{Descriptor: req.Descriptor, Err: fmt.Errorf("prepare: %w", err)}
			l.logger.Error("%v", err)
			return l.fail(err)
		}
	}

	if err := l.stage(u); err != nil {
		return l.fail(err)
	}
	l.setState(StateStaged)

	l.commit(u, req, session)
	l.metrics.succeeded.Inc(1)
	l.metrics.loadLatency.Record(time.Since(start))
	return nil
}

func (l *Loader) clear(req LoadRequest) error {
	if err := l.stage(nil); err != nil {
		return l.fail(err)
	}
	l.setState(StateStaged)
	l.metrics.clears.Inc(1)
	l.commit(nil, req, l.sessionSnapshot())
	l.metrics.succeeded.Inc(1)
	return nil
}

// commit publishes the staged unit when playing and otherwise leaves it
// pending. A unit the session could not prepare is never published;
// activation or the next configure publishes it once prepared.
func (l *Loader) commit(u *Unit, req LoadRequest, session SessionConfig) {
	req.State = nil
	var id uuid.UUID
	if u != nil {
		id = u.ID()
	}

	if !session.Playing || (u != nil && u.Phase() != PhasePrepared) {
		l.mu.Lock()
		l.current = req
		l.unitID = id
		l.pending = true
		l.lastErr = nil
		l.state = StateIdle
		l.mu.Unlock()

		l.metrics.deferredPublishes.Inc(1)
		if session.Playing {
			l.logger.Info("staged %s, publishing once %s can prepare it", req.Descriptor, session)
		} else {
			l.logger.Info("staged %s, publishing on activation", req.Descriptor)
		}
		l.listeners.notify(Change{Descriptor: req.Descriptor, UnitID: id, Style: req.Style, Loaded: u != nil})
		return
	}

	l.reg.Publish()
	l.metrics.publishes.Inc(1)
	l.setState(StatePublished)
	l.retire()
	warning := l.bindParameters(u)
	l.refreshTiming(u)

	l.mu.Lock()
	l.current = req
	l.unitID = id
	l.published = req
	l.publishedID = id
	l.pending = false
	l.lastErr = nil
	l.state = StateIdle
	l.mu.Unlock()

	l.logger.Info("published %s", req.Descriptor)
	l.listeners.notify(Change{
		Descriptor: req.Descriptor,
		UnitID:     id,
		Style:      req.Style,
		Loaded:     u != nil,
		Live:       true,
		Warning:    warning,
	})
}

// construct asks the format for a processor and waits for the
// continuation. Stop abandons the wait and disposes whatever arrives.
func (l *Loader) construct(req LoadRequest) (plugin.Processor, error) {
	type built struct {
		p   plugin.Processor
		err error
	}
	session := l.sessionSnapshot()
	ch := make(chan built, 1)
	l.formats.CreateAsync(req.Descriptor, session.SampleRate, session.BlockSize, func(p plugin.Processor, err error) {
		ch <- built{p, err}
	})

	select {
	case b := <-ch:
		if b.err == nil && b.p == nil {
			b.err = errors.New("format returned no processor")
		}
		if b.err != nil {
			return nil, &ConstructionError{Descriptor: req.Descriptor, Err: b.err}
		}
		return b.p, nil
	case <-l.quit:
		go func() {
			if b := <-ch; b.p != nil {
				newUnit(req.Descriptor, b.p).dispose()
			}
		}()
		return nil, &ConstructionError{Descriptor: req.Descriptor, Err: ErrLoaderStopped}
	}
}

func (l *Loader) applyState(u *Unit, blob []byte) error {
	st, ok := u.proc.(plugin.Stateful)
	if !ok {
		l.logger.Warn("%s has no state, ignoring %d bytes", u.desc, len(blob))
		return nil
	}
	if err := st.LoadState(blob); err != nil {
		return &ConstructionError{Descriptor: u.desc, Err: fmt.Errorf("restore state: %w", err)}
	}
	return nil
}

// stage waits for the audio goroutine to leave the staging slot, then
// installs u there and disposes of what it replaced.
func (l *Loader) stage(u *Unit) error {
	ctx, cancel := l.opContext()
	defer cancel()

	old, err := l.reg.Stage(ctx, u)
	if err != nil {
		l.metrics.graceTimeouts.Inc(1)
		if u != nil {
			l.logger.Error("staging %v: %v", u, err)
			l.discard(u)
		} else {
			l.logger.Error("clearing: %v", err)
		}
		return err
	}
	if old != nil {
		l.discard(old)
	}
	return nil
}

// retire disposes of the unit a publish just demoted to staging. If the
// audio goroutine is slow to leave it, the next stage disposes it instead.
func (l *Loader) retire() {
	ctx, cancel := l.opContext()
	defer cancel()

	old, err := l.reg.Stage(ctx, nil)
	if err != nil {
		l.logger.Warn("deferring disposal of previous unit: %v", err)
		return
	}
	if old != nil {
		l.discard(old)
	}
}

func (l *Loader) discard(u *Unit) {
	if err := u.dispose(); err != nil {
		l.logger.Warn("disposing %v: %v", u, err)
	}
}

// bindParameters points the bank at u. It returns the overflow warning,
// if any, after logging and counting it.
func (l *Loader) bindParameters(u *Unit) error {
	if u == nil {
		l.bank.unbind()
		return nil
	}
	err := l.bank.bind(u.proc.GetParameters())
	if err != nil {
		var overflow *ParameterOverflowError
		if errors.As(err, &overflow) {
			l.metrics.parameterOverflows.Inc(1)
		}
		l.logger.Warn("%s: %v", u.desc, err)
	}
	return err
}

func (l *Loader) refreshTiming(u *Unit) {
	var latency, tail int32
	if u != nil && u.Phase() == PhasePrepared {
		latency = u.proc.GetLatencySamples()
		tail = u.proc.GetTailSamples()
	}
	l.latency.Store(latency)
	l.tail.Store(tail)
}

func (l *Loader) configure(s SessionConfig) error {
	l.mu.Lock()
	s.Playing = l.session.Playing
	changed := !l.session.sameFormat(s)
	l.session = s
	l.mu.Unlock()

	if !changed {
		return nil
	}
	l.logger.Info("session now %s", s)

	if u := l.reg.Peek(); u != nil && !plugin.SupportsLayout(u.proc, s.Layout) {
		l.logger.Warn("%s does not support layout %s", u.desc, s.Layout)
	}
	if !s.Playing {
		// units are re-prepared on activation
		return nil
	}

	ctx, cancel := l.opContext()
	defer cancel()
	d, err := l.reg.Pause(ctx)
	if err != nil {
		l.reg.Resume()
		l.metrics.graceTimeouts.Inc(1)
		return l.fail(fmt.Errorf("reconfigure: %w", err))
	}
	changes, err := l.settle(d, s)
	l.reg.Resume()

	l.announce(changes)
	if err != nil {
		return l.fail(err)
	}
	return nil
}

func (l *Loader) reprepare(u *Unit, s SessionConfig) error {
	if !u.stale(s) {
		return nil
	}
	if !s.Prepared() {
		// nothing to prepare with yet; the consumer passes audio through
		return nil
	}
	l.metrics.reprepares.Inc(1)
	if err := u.prepare(s); err != nil {
		err = &ConstructionError{Descriptor: u.desc, Err: fmt.Errorf("prepare: %w", err)}
		l.logger.Error("%v", err)
		return err
	}
	return nil
}

// settle brings both slots in line with s while paused: a pending load is
// published once it can be prepared and the active unit is re-prepared.
func (l *Loader) settle(d registry.Dormant[Unit], s SessionConfig) ([]Change, error) {
	var (
		changes   []Change
		errs      []error
		published bool
	)
	if c := l.publishPending(d, s); c != nil {
		changes = append(changes, *c)
		if c.Err != nil {
			errs = append(errs, c.Err)
		} else {
			published = true
		}
	}

	if u := d.Active(); u != nil {
		if err := l.reprepare(u, s); err != nil {
			changes = append(changes, l.dropActive(d, u, err))
			errs = append(errs, err)
		} else if !published && l.bank.Bound() == 0 {
			l.bindParameters(u)
		}
	}
	l.refreshTiming(d.Active())
	return changes, errors.Join(errs...)
}

// publishPending publishes the load staged while the host could not play
// it. It returns nil while there is nothing to publish or the session
// still cannot prepare the unit, and a Change with Err set when the unit
// failed to prepare and was dropped.
func (l *Loader) publishPending(d registry.Dormant[Unit], s SessionConfig) *Change {
	l.mu.Lock()
	pending, current, id := l.pending, l.current, l.unitID
	l.mu.Unlock()
	if !pending {
		return nil
	}

	u := d.Staging()
	switch {
	case u == nil && !current.IsClear():
		l.logger.Warn("pending %s is gone, keeping %s", current.Descriptor, l.Status().Current.Descriptor)
		l.dropPending()
		return nil
	case u != nil:
		if err := l.reprepare(u, s); err != nil {
			d.SetStaging(nil)
			l.discard(u)
			l.dropPending()
			return &Change{Descriptor: current.Descriptor, Style: current.Style, Loaded: l.Status().Loaded, Err: err}
		}
		if u.Phase() != PhasePrepared {
			return nil
		}
	}

	d.Publish()
	l.metrics.publishes.Inc(1)
	if old := d.SetStaging(nil); old != nil {
		l.discard(old)
	}
	warning := l.bindParameters(u)

	l.mu.Lock()
	l.pending = false
	l.published = current
	l.publishedID = id
	l.mu.Unlock()

	l.logger.Info("published pending %s", current.Descriptor)
	return &Change{
		Descriptor: current.Descriptor,
		UnitID:     id,
		Style:      current.Style,
		Loaded:     u != nil,
		Live:       true,
		Warning:    warning,
	}
}

// dropPending abandons a pending load; the published request is current
// again.
func (l *Loader) dropPending() {
	l.mu.Lock()
	l.pending = false
	l.current = l.published
	l.unitID = l.publishedID
	l.mu.Unlock()
}

// dropActive disposes of an active unit that could not be re-prepared.
func (l *Loader) dropActive(d registry.Dormant[Unit], u *Unit, err error) Change {
	d.SetActive(nil)
	l.discard(u)
	l.bank.unbind()

	l.mu.Lock()
	style := l.published.Style
	l.published = LoadRequest{}
	l.publishedID = uuid.UUID{}
	if !l.pending {
		l.current = l.published
		l.unitID = l.publishedID
	}
	loaded := !l.current.IsClear()
	l.mu.Unlock()

	return Change{Descriptor: u.desc, UnitID: u.id, Style: style, Loaded: loaded, Err: err}
}

func (l *Loader) announce(changes []Change) {
	for _, c := range changes {
		l.listeners.notify(c)
	}
}

func (l *Loader) activate() error {
	ctx, cancel := l.opContext()
	defer cancel()
	d, err := l.reg.Pause(ctx)
	if err != nil {
		// stays paused and not playing
		l.metrics.graceTimeouts.Inc(1)
		return l.fail(fmt.Errorf("activate: %w", err))
	}

	l.mu.Lock()
	l.session.Playing = true
	session := l.session
	l.mu.Unlock()

	changes, err := l.settle(d, session)
	l.reg.Resume()

	l.logger.Info("activated with %s", l.Status().Current.Descriptor)
	l.announce(changes)
	if err != nil {
		return l.fail(err)
	}
	return nil
}

func (l *Loader) deactivate() error {
	l.mu.Lock()
	l.session.Playing = false
	l.mu.Unlock()

	ctx, cancel := l.opContext()
	defer cancel()
	d, err := l.reg.Pause(ctx)
	if err != nil {
		l.metrics.graceTimeouts.Inc(1)
		return l.fail(fmt.Errorf("deactivate: %w", err))
	}

	for _, u := range []*Unit{d.Active(), d.Staging()} {
		if u == nil {
			continue
		}
		if err := u.release(); err != nil {
			l.logger.Warn("releasing %v: %v", u, err)
		}
	}
	l.logger.Debug("deactivated")
	return nil
}

func (l *Loader) snapshot() ([]byte, error) {
	st := l.Status()
	if !st.Loaded {
		return nil, nil
	}

	hs := state.HostState{
		Format:   st.Current.Descriptor.Format,
		PluginID: st.Current.Descriptor.ID,
		Style:    uint8(st.Current.Style),
	}

	u := l.reg.Peek()
	if st.Pending {
		u = l.reg.Staging().Unit()
	}
	if u != nil {
		if s, ok := u.proc.(plugin.Stateful); ok {
			blob, err := s.SaveState()
			if err != nil {
				return nil, fmt.Errorf("save %s: %w", u.desc, err)
			}
			hs.Inner = blob
		}
	}
	return hs.MarshalBinary()
}

func (l *Loader) restore(blob []byte) error {
	var hs state.HostState
	if err := hs.UnmarshalBinary(blob); err != nil {
		return l.fail(fmt.Errorf("restore: %w", err))
	}
	req := LoadRequest{State: hs.Inner, Style: EditorStyle(hs.Style)}
	if !hs.Empty() {
		req.Descriptor.Format = hs.Format
		req.Descriptor.ID = hs.PluginID
	}
	return l.load(req)
}

// teardown disposes of both units once the loop has exited.
func (l *Loader) teardown() {
	ctx, cancel := l.opContext()
	defer cancel()
	d, err := l.reg.Pause(ctx)
	if err != nil {
		l.logger.Error("teardown: %v", err)
		return
	}
	for _, old := range []*Unit{d.SetActive(nil), d.SetStaging(nil)} {
		if old != nil {
			l.discard(old)
		}
	}
	l.bank.unbind()
	l.refreshTiming(nil)
	l.setState(StateIdle)
}
