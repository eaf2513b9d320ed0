package sources

import (
	"context"
	"fmt"

	"github.com/wolftrace/deaddrop/pkg/graph"
	"github.com/wolftrace/deaddrop/pkg/log"
	"github.com/wolftrace/deaddrop/pkg/services"
	"github.com/wolftrace/deaddrop/pkg/types"
)

const (
	xrefMaxClaims = 2
	xrefMaxHits   = 2
)

// xrefSource cross-references a report's extracted claims against the
// indexed video corpus. Hits become external_source nodes so the
// caseboard shows where else the footage has surfaced.
type xrefSource struct {
	store *graph.Store
	media services.Media
}

// Handle searches video for the report's top claims
func (x *xrefSource) Handle(ctx context.Context, m types.Mutation) error {
	if m.Node == nil {
		return nil
	}
	report := x.store.GetNode(m.Node.ID)
	if report == nil {
		return nil
	}
	claims := report.Claims()
	if len(claims) == 0 {
		return nil
	}
	if len(claims) > xrefMaxClaims {
		claims = claims[:xrefMaxClaims]
	}

	seen := existingSourceURLs(x.store, report.CaseID)
	for _, claim := range claims {
		hits, err := x.media.VideoSearch(ctx, claim.Statement)
		if err != nil {
			log.WithSource("forensics_xref").Warn().Err(err).
				Str("report", report.ID).
				Msg("Video search degraded")
			continue
		}
		if len(hits) > xrefMaxHits {
			hits = hits[:xrefMaxHits]
		}
		for _, hit := range hits {
			if _, dup := seen[hit.URL]; dup {
				continue
			}
			seen[hit.URL] = struct{}{}

			extNode, err := x.store.AddNode(types.NodeKindExternalSource, report.CaseID, map[string]any{
				"platform": "video",
				"source":   hit.Source,
				"url":      hit.URL,
				"score":    hit.Score,
			})
			if err != nil {
				return fmt.Errorf("failed to record video source: %w", err)
			}
			if _, err := x.store.AddEdge(types.EdgeKindSimilarTo, report.ID, extNode.ID, map[string]any{
				"score": hit.Score,
			}); err != nil {
				return fmt.Errorf("failed to link video source: %w", err)
			}
		}
	}
	return nil
}

func existingSourceURLs(store *graph.Store, caseID string) map[string]struct{} {
	seen := make(map[string]struct{})
	for _, n := range store.NodesByKind(caseID, types.NodeKindExternalSource) {
		if u, ok := n.Data["url"].(string); ok && u != "" {
			seen[u] = struct{}{}
		}
	}
	return seen
}
