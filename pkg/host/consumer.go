package host

import (
	"sync/atomic"

	"github.com/justyntemme/nesthost/pkg/framework/process"
	"github.com/justyntemme/nesthost/pkg/host/registry"
)

// Consumer is the audio goroutine's entry point. It reads the active slot
// once per block and never blocks, allocates or touches the staging slot.
type Consumer struct {
	reg       *registry.Registry[Unit]
	processed atomic.Uint64
	empty     atomic.Uint64
}

// NewConsumer creates a consumer reading from reg.
func NewConsumer(reg *registry.Registry[Unit]) *Consumer {
	return &Consumer{reg: reg}
}

// Process renders one block. With no prepared unit the input is passed
// through to the output.
func (c *Consumer) Process(ctx *process.Context) {
	h := c.reg.Active()
	if u := h.Unit(); u != nil && u.Phase() == PhasePrepared {
		u.process(ctx)
		c.processed.Add(1)
	} else {
		ctx.PassThrough()
		c.empty.Add(1)
	}
	h.Done()
}

// Counts returns the number of blocks rendered by a unit and the number
// passed through.
func (c *Consumer) Counts() (processed, empty uint64) {
	return c.processed.Load(), c.empty.Load()
}
