package host

import (
	"github.com/uber-go/tally/v4"
)

type loaderMetrics struct {
	requested            tally.Counter
	succeeded            tally.Counter
	constructionFailures tally.Counter
	layoutMismatches     tally.Counter
	parameterOverflows   tally.Counter
	graceTimeouts        tally.Counter
	publishes            tally.Counter
	deferredPublishes    tally.Counter
	reprepares           tally.Counter
	clears               tally.Counter
	loadLatency          tally.Timer
	processedBlocks      tally.Gauge
	emptyBlocks          tally.Gauge
}

func newLoaderMetrics(scope tally.Scope) *loaderMetrics {
	s := scope.SubScope("loader")
	return &loaderMetrics{
		requested:            s.Counter("requested"),
		succeeded:            s.Counter("succeeded"),
		constructionFailures: s.Counter("construction_failures"),
		layoutMismatches:     s.Counter("layout_mismatches"),
		parameterOverflows:   s.Counter("parameter_overflows"),
		graceTimeouts:        s.Counter("grace_timeouts"),
		publishes:            s.Counter("publishes"),
		deferredPublishes:    s.Counter("deferred_publishes"),
		reprepares:           s.Counter("reprepares"),
		clears:               s.Counter("clears"),
		loadLatency:          s.Timer("load_latency"),
		processedBlocks:      s.Gauge("processed_blocks"),
		emptyBlocks:          s.Gauge("empty_blocks"),
	}
}

func (m *loaderMetrics) report(c *Consumer) {
	processed, empty := c.Counts()
	m.processedBlocks.Update(float64(processed))
	m.emptyBlocks.Update(float64(empty))
}
