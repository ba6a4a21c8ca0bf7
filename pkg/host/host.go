// Package host implements an outer plugin that loads one inner plugin and
// routes audio, MIDI and parameters into it.
//
// The inner processing unit lives in a two-slot registry. The audio
// goroutine reads the active slot through a Consumer without locks; a
// single loader goroutine builds replacement units off the audio path and
// publishes them with one atomic flip.
package host

import (
	"context"
	"fmt"

	"github.com/justyntemme/nesthost/pkg/format"
	"github.com/justyntemme/nesthost/pkg/framework/bus"
	"github.com/justyntemme/nesthost/pkg/framework/debug"
	"github.com/justyntemme/nesthost/pkg/framework/param"
	fwplugin "github.com/justyntemme/nesthost/pkg/framework/plugin"
	"github.com/justyntemme/nesthost/pkg/framework/process"
	"github.com/justyntemme/nesthost/pkg/host/registry"
	"github.com/justyntemme/nesthost/pkg/plugin"
)

var (
	_ plugin.Processor     = (*Host)(nil)
	_ plugin.Stateful      = (*Host)(nil)
	_ plugin.LayoutChecker = (*Host)(nil)
)

// Info describes the outer host plugin.
var Info = fwplugin.Info{
	ID:       "com.nesthost.host",
	Name:     "nesthost",
	Version:  "0.1.0",
	Vendor:   "nesthost",
	Category: "Fx",
}

// Host is the outer plugin. It implements plugin.Processor.
type Host struct {
	cfg       Config
	logger    *debug.Logger
	reg       *registry.Registry[Unit]
	consumer  *Consumer
	loader    *Loader
	bank      *ParamBank
	listeners *listenerSlot
}

// New creates a host constructing inner plugins through formats and starts
// its loader. Close stops it.
func New(formats *format.Manager, cfg Config) *Host {
	cfg = cfg.withDefaults()

	reg := registry.New[Unit](cfg.GracePoll)
	h := &Host{
		cfg:       cfg,
		logger:    cfg.Logger,
		reg:       reg,
		consumer:  NewConsumer(reg),
		bank:      newParamBank(cfg.MaxParameters),
		listeners: &listenerSlot{},
	}
	h.loader = newLoader(cfg, formats, reg, h.consumer, h.bank, h.listeners)
	h.loader.Start()
	return h
}

// Close stops the loader and disposes of the inner plugin.
func (h *Host) Close() error {
	h.loader.Stop()
	return nil
}

// Loader returns the host's loader.
func (h *Host) Loader() *Loader {
	return h.loader
}

// Consumer returns the audio-side entry point.
func (h *Host) Consumer() *Consumer {
	return h.consumer
}

// Parameters returns the parameter bank forwarding to the inner plugin.
func (h *Host) Parameters() *ParamBank {
	return h.bank
}

func (h *Host) timeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), h.cfg.OperationTimeout)
}

// Initialize implements plugin.Processor.
func (h *Host) Initialize(sampleRate float64, maxBlockSize int32) error {
	ctx, cancel := h.timeout()
	defer cancel()

	s := h.loader.Status().Session
	s.SampleRate = sampleRate
	s.BlockSize = maxBlockSize
	return h.loader.Configure(ctx, s)
}

// SetActive implements plugin.Processor.
func (h *Host) SetActive(active bool) error {
	ctx, cancel := h.timeout()
	defer cancel()

	if active {
		return h.loader.Activate(ctx)
	}
	return h.loader.Deactivate(ctx)
}

// ProcessAudio implements plugin.Processor. Audio goroutine only.
func (h *Host) ProcessAudio(ctx *process.Context) {
	h.consumer.Process(ctx)
}

// GetParameters implements plugin.Processor.
func (h *Host) GetParameters() *param.Registry {
	return h.bank.Registry()
}

// GetBuses implements plugin.Processor.
func (h *Host) GetBuses() *bus.Configuration {
	return h.cfg.Buses
}

// GetLatencySamples reports the latency of the active inner plugin.
func (h *Host) GetLatencySamples() int32 {
	return h.loader.LatencySamples()
}

// GetTailSamples reports the tail of the active inner plugin.
func (h *Host) GetTailSamples() int32 {
	return h.loader.TailSamples()
}

// SupportsLayout accepts a disabled main input or one matching the
// output, with at most two output channels.
func (h *Host) SupportsLayout(l bus.Layout) bool {
	if l.MainOutput < 1 || l.MainOutput > 2 {
		return false
	}
	return l.MainInput == 0 || l.MainInput == l.MainOutput
}

// SetLayout changes the session's bus layout.
func (h *Host) SetLayout(l bus.Layout) error {
	if !h.SupportsLayout(l) {
		return fmt.Errorf("unsupported layout %s", l)
	}
	ctx, cancel := h.timeout()
	defer cancel()

	s := h.loader.Status().Session
	s.Layout = l
	return h.loader.Configure(ctx, s)
}

// SaveState implements plugin.Stateful.
func (h *Host) SaveState() ([]byte, error) {
	ctx, cancel := h.timeout()
	defer cancel()
	return h.loader.Snapshot(ctx)
}

// LoadState implements plugin.Stateful. It waits for the load to finish.
func (h *Host) LoadState(data []byte) error {
	ctx, cancel := h.timeout()
	defer cancel()
	return h.loader.Restore(ctx, data)
}

// SetNewPlugin queues a load of desc restored from state. The result is
// reported to the OnPluginChanged listener.
func (h *Host) SetNewPlugin(desc fwplugin.Descriptor, state []byte, style EditorStyle) error {
	return h.loader.LoadAsync(LoadRequest{Descriptor: desc, State: state, Style: style})
}

// LoadPlugin loads req and waits for the result.
func (h *Host) LoadPlugin(ctx context.Context, req LoadRequest) (Status, error) {
	return h.loader.Load(ctx, req)
}

// ClearPlugin unloads the inner plugin.
func (h *Host) ClearPlugin(ctx context.Context) error {
	_, err := h.loader.Clear(ctx)
	return err
}

// IsPluginLoaded reports whether a plugin is loaded, published or pending.
func (h *Host) IsPluginLoaded() bool {
	return h.loader.Status().Loaded
}

// Status returns the loader's current bookkeeping.
func (h *Host) Status() Status {
	return h.loader.Status()
}

// OnPluginChanged sets the listener told about every load and clear,
// replacing any previous one. The returned function removes it.
func (h *Host) OnPluginChanged(fn Listener) (unregister func()) {
	return h.listeners.set(fn)
}
