package metrics

import (
	"time"

	"github.com/wolftrace/deaddrop/pkg/types"
)

// StatsSource exposes the live counts the collector polls. The graph
// store and the blackboard controller both satisfy parts of it through
// the engine.
type StatsSource interface {
	Stats() types.GraphStats
	QueueDepth() int
}

// Collector periodically samples graph and queue gauges
type Collector struct {
	source StatsSource
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(source StatsSource) *Collector {
	return &Collector{
		source: source,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		// Collect immediately on start
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	stats := c.source.Stats()

	// A kind that drops to zero must still overwrite its gauge, so
	// reset the vectors before setting fresh samples.
	GraphNodes.Reset()
	for kind, count := range stats.NodesByKind {
		GraphNodes.WithLabelValues(kind).Set(float64(count))
	}

	GraphEdges.Reset()
	for kind, count := range stats.EdgesByKind {
		GraphEdges.WithLabelValues(kind).Set(float64(count))
	}

	CasesTotal.Set(float64(stats.Cases))
	QueueDepth.Set(float64(c.source.QueueDepth()))
}
