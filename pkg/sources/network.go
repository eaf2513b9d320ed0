package sources

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/wolftrace/deaddrop/pkg/graph"
	"github.com/wolftrace/deaddrop/pkg/log"
	"github.com/wolftrace/deaddrop/pkg/services"
	"github.com/wolftrace/deaddrop/pkg/types"
)

const (
	maxReviewsPerClaim   = 3
	maxConcurrentLookups = 4
	crawlerEdgeScore     = 0.5
)

// networkSource runs claim extraction on new reports, checks each claim
// against the fact-check corpus, and crawls for related content online.
// Everything it does is additive; any external failure degrades to a
// smaller result.
type networkSource struct {
	store *graph.Store
	ai    *services.AI
	facts services.FactChecker
}

// Handle analyzes the triggering report's text
func (n *networkSource) Handle(ctx context.Context, m types.Mutation) error {
	if m.Node == nil {
		return nil
	}
	report := n.store.GetNode(m.Node.ID)
	if report == nil {
		return nil
	}
	text := report.TextBody()
	if text == "" {
		return nil
	}

	extraction := n.ai.ExtractClaims(ctx, text)
	if len(extraction.Claims) == 0 {
		return nil
	}

	claims := make([]any, 0, len(extraction.Claims))
	for _, c := range extraction.Claims {
		claims = append(claims, map[string]any{
			"statement":  c.Statement,
			"confidence": c.Confidence,
			"category":   c.Category,
		})
	}
	patch := map[string]any{
		"claims":  claims,
		"urgency": extraction.Urgency,
	}
	if len(extraction.MisinformationFlags) > 0 {
		patch["misinformation_flags"] = toAnySlice(extraction.MisinformationFlags)
	}
	if len(extraction.SuggestedVerifications) > 0 {
		patch["suggested_verifications"] = toAnySlice(extraction.SuggestedVerifications)
	}
	if _, err := n.store.UpdateNode(report.ID, patch); err != nil {
		return fmt.Errorf("failed to record claims: %w", err)
	}

	if err := n.lookupClaims(ctx, report, extraction.Claims); err != nil {
		return err
	}
	return n.crawl(ctx, report, extraction.Claims)
}

// lookupClaims creates a fact_check node and debunked_by edge per review.
// Lookups run concurrently; graph writes stay in claim order so the
// mutation stream is deterministic for a given set of results.
func (n *networkSource) lookupClaims(ctx context.Context, report *types.Node, claims []services.ExtractedClaim) error {
	reviewsByClaim := make([][]services.ClaimReview, len(claims))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)
	for i, claim := range claims {
		g.Go(func() error {
			reviews, err := n.facts.Lookup(gctx, claim.Statement)
			if err != nil {
				log.WithSource("network").Warn().Err(err).
					Str("report", report.ID).
					Msg("Fact check lookup degraded")
				return nil
			}
			reviewsByClaim[i] = reviews
			return nil
		})
	}
	_ = g.Wait()

	for i, claim := range claims {
		reviews := reviewsByClaim[i]
		if len(reviews) > maxReviewsPerClaim {
			reviews = reviews[:maxReviewsPerClaim]
		}
		for _, review := range reviews {
			factNode, err := n.store.AddNode(types.NodeKindFactCheck, report.CaseID, map[string]any{
				"claim":    claim.Statement,
				"rating":   review.Rating,
				"reviewer": review.Reviewer,
				"url":      review.URL,
			})
			if err != nil {
				return fmt.Errorf("failed to record fact check: %w", err)
			}
			if _, err := n.store.AddEdge(types.EdgeKindDebunkedBy, report.ID, factNode.ID, nil); err != nil {
				return fmt.Errorf("failed to link fact check: %w", err)
			}
		}
	}
	return nil
}

// crawl turns AI search queries into external_source nodes
func (n *networkSource) crawl(ctx context.Context, report *types.Node, claims []services.ExtractedClaim) error {
	for _, query := range n.ai.SearchQueries(ctx, claims) {
		extNode, err := n.store.AddNode(types.NodeKindExternalSource, report.CaseID, map[string]any{
			"query":    query,
			"platform": "web",
		})
		if err != nil {
			return fmt.Errorf("failed to record external source: %w", err)
		}
		if _, err := n.store.AddEdge(types.EdgeKindSimilarTo, report.ID, extNode.ID, map[string]any{
			"score": crawlerEdgeScore,
		}); err != nil {
			return fmt.Errorf("failed to link external source: %w", err)
		}
	}
	return nil
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
