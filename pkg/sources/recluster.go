package sources

import (
	"context"

	"github.com/wolftrace/deaddrop/pkg/graph"
	"github.com/wolftrace/deaddrop/pkg/types"
)

// reclusterSource keeps debunk_count on a report in sync with its
// outgoing debunked_by edges.
type reclusterSource struct {
	store *graph.Store
}

// Handle recounts debunks for the report the new edge starts at
func (r *reclusterSource) Handle(ctx context.Context, m types.Mutation) error {
	if m.Edge == nil || m.Edge.Kind != types.EdgeKindDebunkedBy {
		return nil
	}
	report := r.store.GetNode(m.Edge.SourceID)
	if report == nil || report.Kind != types.NodeKindReport {
		return nil
	}

	count := 0
	for _, e := range r.store.NodeEdges(report.ID) {
		if e.Kind == types.EdgeKindDebunkedBy && e.SourceID == report.ID {
			count++
		}
	}
	if report.DebunkCount() == count {
		return nil
	}
	_, err := r.store.UpdateNode(report.ID, map[string]any{"debunk_count": count})
	return err
}
