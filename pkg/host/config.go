package host

import (
	"time"

	"github.com/uber-go/tally/v4"

	"github.com/justyntemme/nesthost/pkg/framework/bus"
	"github.com/justyntemme/nesthost/pkg/framework/debug"
	"github.com/justyntemme/nesthost/pkg/host/registry"
)

// Config configures a Host and its loader. Zero fields take the values
// from DefaultConfig.
type Config struct {
	// MaxParameters is the number of parameter slots the host exposes.
	MaxParameters int

	// QueueSize bounds the loader's operation queue.
	QueueSize int

	// GracePoll is how often the loader re-checks the audio goroutine
	// while waiting for it to leave a slot.
	GracePoll time.Duration

	// OperationTimeout bounds grace and pause waits on the loader.
	OperationTimeout time.Duration

	// ReportInterval is how often consumer counters are copied to metrics.
	ReportInterval time.Duration

	// Buses is the outer host's bus arrangement.
	Buses *bus.Configuration

	Logger  *debug.Logger
	Metrics tally.Scope
}

// DefaultConfig returns the default host configuration.
func DefaultConfig() Config {
	return Config{
		MaxParameters:    64,
		QueueSize:        16,
		GracePoll:        registry.DefaultPoll,
		OperationTimeout: 5 * time.Second,
		ReportInterval:   time.Second,
		Buses:            bus.NewStereoConfiguration(),
		Logger:           debug.Default().Named("nesthost"),
		Metrics:          tally.NoopScope,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxParameters <= 0 {
		c.MaxParameters = d.MaxParameters
	}
	if c.QueueSize <= 0 {
		c.QueueSize = d.QueueSize
	}
	if c.GracePoll <= 0 {
		c.GracePoll = d.GracePoll
	}
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = d.OperationTimeout
	}
	if c.ReportInterval <= 0 {
		c.ReportInterval = d.ReportInterval
	}
	if c.Buses == nil {
		c.Buses = d.Buses
	}
	if c.Logger == nil {
		c.Logger = d.Logger
	}
	if c.Metrics == nil {
		c.Metrics = d.Metrics
	}
	return c
}
