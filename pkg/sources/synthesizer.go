package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolftrace/deaddrop/pkg/graph"
	"github.com/wolftrace/deaddrop/pkg/services"
	"github.com/wolftrace/deaddrop/pkg/types"
)

// synthesizerSource asks the AI for a case-level narrative once claims
// exist, and stamps the synthesis onto the case's report nodes.
type synthesizerSource struct {
	store *graph.Store
	ai    *services.AI
}

// Handle synthesizes the case the updated report belongs to
func (s *synthesizerSource) Handle(ctx context.Context, m types.Mutation) error {
	caseID := m.CaseID()
	if caseID == "" {
		return nil
	}
	snap := s.store.CaseSnapshot(caseID)
	if snap == nil {
		return nil
	}

	synthesis := s.ai.SynthesizeCase(ctx, CaseContext(snap))
	if synthesis == nil || synthesis.Narrative == "" {
		return nil
	}

	patch := map[string]any{
		"narrative":          synthesis.Narrative,
		"confidence":         synthesis.Confidence,
		"origin_analysis":    synthesis.OriginAnalysis,
		"recommended_action": synthesis.RecommendedAction,
	}
	for _, node := range snap.Nodes {
		if node.Kind != types.NodeKindReport {
			continue
		}
		// Re-stamping an unchanged synthesis would loop back into this
		// source; the cap would stop it, but the records are noise.
		if existing, _ := node.Data["narrative"].(string); existing == synthesis.Narrative {
			continue
		}
		if _, err := s.store.UpdateNode(node.ID, patch); err != nil {
			return fmt.Errorf("failed to stamp synthesis onto %s: %w", node.ID, err)
		}
	}
	return nil
}

// CaseContext renders a case snapshot as prompt context: reports with
// claims and roles, the fact checks, the edge structure.
func CaseContext(snap *types.CaseSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Case %s\n", snap.CaseID)

	for _, n := range snap.Nodes {
		switch n.Kind {
		case types.NodeKindReport:
			fmt.Fprintf(&b, "Report %s: %s\n", n.ID, n.TextBody())
			if role := n.Role(); role != "" {
				fmt.Fprintf(&b, "  role: %s\n", role)
			}
			if dc := n.DebunkCount(); dc > 0 {
				fmt.Fprintf(&b, "  debunked %d time(s)\n", dc)
			}
			for _, claim := range n.Claims() {
				fmt.Fprintf(&b, "  claim: %s\n", claim.Statement)
			}
		case types.NodeKindFactCheck:
			rating, _ := n.Data["rating"].(string)
			claim, _ := n.Data["claim"].(string)
			fmt.Fprintf(&b, "Fact check: %q rated %s\n", claim, rating)
		case types.NodeKindExternalSource:
			platform, _ := n.Data["platform"].(string)
			fmt.Fprintf(&b, "External source on %s\n", platform)
		}
	}

	counts := make(map[types.EdgeKind]int)
	for _, e := range snap.Edges {
		counts[e.Kind]++
	}
	for kind, n := range counts {
		fmt.Fprintf(&b, "Edges %s: %d\n", kind, n)
	}
	return b.String()
}
