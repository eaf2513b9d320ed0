package sources

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/wolftrace/deaddrop/pkg/graph"
	"github.com/wolftrace/deaddrop/pkg/log"
	"github.com/wolftrace/deaddrop/pkg/services"
	"github.com/wolftrace/deaddrop/pkg/types"
)

const (
	repostMaxDistance   = 5
	mutationMaxDistance = 15
)

// forensicsSource fingerprints attached media and links near-duplicates
// within the case. Images get a perceptual hash; video URLs go through
// semantic video search instead.
type forensicsSource struct {
	store *graph.Store
	media services.Media
}

// Handle processes the media attachment of the triggering report
func (f *forensicsSource) Handle(ctx context.Context, m types.Mutation) error {
	if m.Node == nil {
		return nil
	}
	report := f.store.GetNode(m.Node.ID)
	if report == nil {
		return nil
	}
	mediaURL := report.MediaURL()
	if mediaURL == "" {
		return nil
	}

	if isVideoURL(mediaURL) {
		return f.handleVideo(ctx, report, mediaURL)
	}
	return f.handleImage(ctx, report, mediaURL)
}

func (f *forensicsSource) handleImage(ctx context.Context, report *types.Node, mediaURL string) error {
	hash, err := f.media.PHash(ctx, mediaURL)
	if err != nil {
		// Best effort: no hash means no variant tracking, but the
		// report keeps a forensics marker so officers see it ran.
		log.WithSource("forensics").Warn().Err(err).
			Str("report", report.ID).
			Msg("Perceptual hash unavailable")
		_, uerr := f.store.UpdateNode(report.ID, map[string]any{
			"forensics": map[string]any{"status": "hash_unavailable"},
		})
		return uerr
	}

	existing := f.store.NodesByKind(report.CaseID, types.NodeKindMediaVariant)

	variant, err := f.store.AddNode(types.NodeKindMediaVariant, report.CaseID, map[string]any{
		"media_url": mediaURL,
		"phash":     formatHash(hash),
	})
	if err != nil {
		return fmt.Errorf("failed to record media variant: %w", err)
	}

	matches := 0
	for _, other := range existing {
		otherHash, ok := parseHash(other.Data)
		if !ok {
			continue
		}
		d := services.HammingDistance(hash, otherHash)
		var kind types.EdgeKind
		switch {
		case d <= repostMaxDistance:
			kind = types.EdgeKindRepostOf
		case d <= mutationMaxDistance:
			kind = types.EdgeKindMutationOf
		default:
			continue
		}
		if _, err := f.store.AddEdge(kind, report.ID, other.ID, map[string]any{
			"hamming": d,
		}); err != nil {
			return fmt.Errorf("failed to link media variant: %w", err)
		}
		matches++
	}

	_, err = f.store.UpdateNode(report.ID, map[string]any{
		"forensics": map[string]any{
			"status":     "hashed",
			"variant_id": variant.ID,
			"matches":    matches,
		},
	})
	return err
}

func (f *forensicsSource) handleVideo(ctx context.Context, report *types.Node, mediaURL string) error {
	query := report.TextBody()
	if query == "" {
		query = mediaURL
	}
	hits, err := f.media.VideoSearch(ctx, query)
	if err != nil {
		log.WithSource("forensics").Warn().Err(err).
			Str("report", report.ID).
			Msg("Video search unavailable")
		hits = nil
	}

	summary := map[string]any{"status": "video_searched", "hits": len(hits)}
	if len(hits) > 0 {
		summary["top_source"] = hits[0].Source
		summary["top_score"] = hits[0].Score
	}
	_, err = f.store.UpdateNode(report.ID, map[string]any{"forensics": summary})
	return err
}

func isVideoURL(url string) bool {
	lower := strings.ToLower(url)
	for _, ext := range []string{".mp4", ".mov", ".webm", ".avi", ".mkv"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Hashes live in the data bag as hex strings: uint64 does not survive a
// JSON round trip intact.

func formatHash(h uint64) string {
	return fmt.Sprintf("%016x", h)
}

func parseHash(data map[string]any) (uint64, bool) {
	s, _ := data["phash"].(string)
	if s == "" {
		return 0, false
	}
	h, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, false
	}
	return h, true
}
