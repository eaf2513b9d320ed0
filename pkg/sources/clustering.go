package sources

import (
	"context"
	"fmt"

	"github.com/wolftrace/deaddrop/pkg/graph"
	"github.com/wolftrace/deaddrop/pkg/log"
	"github.com/wolftrace/deaddrop/pkg/types"
)

const clusterThreshold = 0.4

// clusteringSource links a report to the case peers it likely describes
// the same event as, using temporal, geographic and semantic overlap.
type clusteringSource struct {
	store *graph.Store
}

// Handle scores the triggering report against every other report in the
// case and emits a similar_to edge per peer above the threshold.
func (c *clusteringSource) Handle(ctx context.Context, m types.Mutation) error {
	report := triggeringReport(c.store, m)
	if report == nil {
		return nil
	}

	linked := 0
	for _, peer := range c.store.ReportNodes(report.CaseID) {
		if peer.ID == report.ID {
			continue
		}
		if hasEdgeBetween(c.store, report.ID, peer.ID, types.EdgeKindSimilarTo) {
			continue
		}
		score := scorePair(report, peer)
		combined := score.Combined()
		if combined < clusterThreshold {
			continue
		}
		_, err := c.store.AddEdge(types.EdgeKindSimilarTo, report.ID, peer.ID, map[string]any{
			"score": combined,
			"t":     score.Temporal,
			"g":     score.Geo,
			"s":     score.Semantic,
		})
		if err != nil {
			return fmt.Errorf("failed to link %s to %s: %w", report.ID, peer.ID, err)
		}
		linked++
	}
	if linked > 0 {
		log.WithSource("clustering").Debug().
			Str("case_id", report.CaseID).
			Str("report", report.ID).
			Int("linked", linked).
			Msg("Report clustered")
	}
	return nil
}

// triggeringReport resolves the report node a mutation concerns: the
// node itself for node:report, the edge source for the forensics edges.
func triggeringReport(store *graph.Store, m types.Mutation) *types.Node {
	switch {
	case m.Node != nil && m.Node.Kind == types.NodeKindReport:
		return store.GetNode(m.Node.ID)
	case m.Edge != nil:
		if n := store.GetNode(m.Edge.SourceID); n != nil && n.Kind == types.NodeKindReport {
			return n
		}
	}
	return nil
}

// hasEdgeBetween reports whether an edge of the given kind already
// connects the two nodes, in either direction.
func hasEdgeBetween(store *graph.Store, a, b string, kind types.EdgeKind) bool {
	for _, e := range store.NodeEdges(a) {
		if e.Kind != kind {
			continue
		}
		if (e.SourceID == a && e.TargetID == b) || (e.SourceID == b && e.TargetID == a) {
			return true
		}
	}
	return false
}
