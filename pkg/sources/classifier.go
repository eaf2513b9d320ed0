package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/wolftrace/deaddrop/pkg/graph"
	"github.com/wolftrace/deaddrop/pkg/log"
	"github.com/wolftrace/deaddrop/pkg/types"
)

// classifierSource assigns each report a semantic role in the spread of
// a story. The rules are deterministic over the graph, so the role
// converges once the structural sources quiesce.
type classifierSource struct {
	store *graph.Store
}

// Handle reclassifies every report in the mutated case
func (c *classifierSource) Handle(ctx context.Context, m types.Mutation) error {
	caseID := m.CaseID()
	if caseID == "" {
		return nil
	}

	reports := c.store.ReportNodes(caseID)
	earliest := earliestReportID(reports)

	for _, report := range reports {
		role := c.classify(report, earliest)
		if role == "" || role == report.Role() {
			continue
		}
		if _, err := c.store.UpdateNode(report.ID, map[string]any{
			"semantic_role": string(role),
		}); err != nil {
			return fmt.Errorf("failed to assign role to %s: %w", report.ID, err)
		}
		log.WithSource("classifier").Debug().
			Str("case_id", caseID).
			Str("report", report.ID).
			Str("role", string(role)).
			Msg("Role assigned")
	}
	return nil
}

// classify applies the role rules in precedence order. Empty means
// leave the current role unchanged.
func (c *classifierSource) classify(report *types.Node, earliestID string) types.SemanticRole {
	var hasMutation, hasRepost, hasEvidence bool
	for _, e := range c.store.NodeEdges(report.ID) {
		if e.SourceID != report.ID {
			continue
		}
		switch e.Kind {
		case types.EdgeKindMutationOf:
			hasMutation = true
		case types.EdgeKindRepostOf:
			hasRepost = true
		}
		if target := c.store.GetNode(e.TargetID); target != nil {
			if target.Kind == types.NodeKindExternalSource || target.Kind == types.NodeKindFactCheck {
				hasEvidence = true
			}
		}
	}

	switch {
	case hasMutation:
		return types.RoleMutator
	case hasRepost:
		return types.RoleAmplifier
	case report.ID == earliestID:
		return types.RoleOriginator
	case !hasEvidence:
		return types.RoleUnwittingSharer
	}
	return ""
}

// earliestReportID finds the report with the earliest observation
// timestamp; reports without a timestamp cannot be the originator.
func earliestReportID(reports []*types.Node) string {
	var bestID string
	var bestTime time.Time
	for _, r := range reports {
		ts, ok := r.Timestamp()
		if !ok {
			continue
		}
		if bestID == "" || ts.Before(bestTime) {
			bestID, bestTime = r.ID, ts
		}
	}
	return bestID
}
