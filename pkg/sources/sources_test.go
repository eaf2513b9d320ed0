package sources

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolftrace/deaddrop/pkg/blackboard"
	"github.com/wolftrace/deaddrop/pkg/graph"
	"github.com/wolftrace/deaddrop/pkg/services"
	"github.com/wolftrace/deaddrop/pkg/types"
)

// fakeCompleter returns canned responses keyed by purpose
type fakeCompleter struct {
	responses map[string]string
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt, purpose string) (string, error) {
	if r, ok := f.responses[purpose]; ok {
		return r, nil
	}
	return "", services.ErrServiceDisabled
}

// fakeMedia maps URLs to hashes and queries to hits
type fakeMedia struct {
	hashes map[string]uint64
	hits   map[string][]services.VideoHit
}

func (f *fakeMedia) PHash(ctx context.Context, url string) (uint64, error) {
	if h, ok := f.hashes[url]; ok {
		return h, nil
	}
	return 0, fmt.Errorf("no hash for %s", url)
}

func (f *fakeMedia) VideoSearch(ctx context.Context, query string) ([]services.VideoHit, error) {
	return f.hits[query], nil
}

// fakeFactChecker maps claim text to reviews
type fakeFactChecker struct {
	reviews map[string][]services.ClaimReview
}

func (f *fakeFactChecker) Lookup(ctx context.Context, claimText string) ([]services.ClaimReview, error) {
	return f.reviews[claimText], nil
}

func addReport(t *testing.T, store *graph.Store, caseID, text string, at time.Time, loc *types.Location) *types.Node {
	t.Helper()
	data := map[string]any{"text_body": text}
	if !at.IsZero() {
		data["timestamp"] = at.Format(time.RFC3339)
	}
	if loc != nil {
		data["location"] = map[string]any{"lat": loc.Lat, "lng": loc.Lng}
	}
	node, err := store.AddNode(types.NodeKindReport, caseID, data)
	require.NoError(t, err)
	return node
}

func TestClusteringLinksSimilarReports(t *testing.T) {
	store := graph.NewStore(nil)
	base := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	loc := &types.Location{Lat: 35.78, Lng: -78.68}

	r1 := addReport(t, store, "CASE-1", "loud alarm ringing at the library entrance", base, loc)
	r2 := addReport(t, store, "CASE-1", "alarm ringing near library entrance tonight", base.Add(10*time.Minute), loc)

	src := &clusteringSource{store: store}
	require.NoError(t, src.Handle(context.Background(), types.Mutation{
		Action: types.MutationAddNode, Node: r2,
	}))

	edges := store.CaseEdges("CASE-1")
	require.Len(t, edges, 1)
	e := edges[0]
	assert.Equal(t, types.EdgeKindSimilarTo, e.Kind)
	assert.Equal(t, r2.ID, e.SourceID)
	assert.Equal(t, r1.ID, e.TargetID)

	score, _ := e.Data["score"].(float64)
	assert.GreaterOrEqual(t, score, 0.4)
	assert.Equal(t, 1.0, e.Data["t"])
	assert.Equal(t, 1.0, e.Data["g"])
	assert.Greater(t, e.Data["s"].(float64), 0.0)
}

func TestClusteringSkipsDissimilarAndDedups(t *testing.T) {
	store := graph.NewStore(nil)
	base := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

	addReport(t, store, "CASE-1", "bicycle stolen from the gym rack", base.Add(-5*time.Hour), &types.Location{Lat: 35.70, Lng: -78.60})
	r2 := addReport(t, store, "CASE-1", "smoke coming from the chemistry building", base, &types.Location{Lat: 35.79, Lng: -78.70})

	src := &clusteringSource{store: store}
	mut := types.Mutation{Action: types.MutationAddNode, Node: r2}
	require.NoError(t, src.Handle(context.Background(), mut))
	assert.Empty(t, store.CaseEdges("CASE-1"))

	// A second run over an already-linked pair adds nothing.
	r3 := addReport(t, store, "CASE-1", "smoke pouring from the chemistry building now", base.Add(time.Minute), &types.Location{Lat: 35.79, Lng: -78.70})
	mut3 := types.Mutation{Action: types.MutationAddNode, Node: r3}
	require.NoError(t, src.Handle(context.Background(), mut3))
	require.NoError(t, src.Handle(context.Background(), mut3))
	assert.Len(t, store.CaseEdges("CASE-1"), 1)
}

func TestClusteringMissingFieldsZeroComponents(t *testing.T) {
	store := graph.NewStore(nil)

	// No timestamps, no locations: only the semantic component counts,
	// and 0.4 * s < 0.4 for any s < 1, so near-identical text is needed.
	addReport(t, store, "CASE-1", "fire drill scheduled tomorrow morning", time.Time{}, nil)
	r2 := addReport(t, store, "CASE-1", "fire drill scheduled tomorrow morning", time.Time{}, nil)

	src := &clusteringSource{store: store}
	require.NoError(t, src.Handle(context.Background(), types.Mutation{
		Action: types.MutationAddNode, Node: r2,
	}))

	edges := store.CaseEdges("CASE-1")
	require.Len(t, edges, 1)
	assert.Equal(t, 0.0, edges[0].Data["t"])
	assert.Equal(t, 0.0, edges[0].Data["g"])
	assert.Equal(t, 1.0, edges[0].Data["s"])
	assert.InDelta(t, 0.4, edges[0].Data["score"].(float64), 0.001)
}

func TestTemporalScore(t *testing.T) {
	base := time.Now()
	assert.Equal(t, 1.0, temporalScore(base, base.Add(29*time.Minute)))
	assert.Equal(t, 1.0, temporalScore(base, base.Add(-30*time.Minute)))
	assert.InDelta(t, 0.5, temporalScore(base, base.Add(45*time.Minute)), 0.001)
	assert.Equal(t, 0.0, temporalScore(base, base.Add(61*time.Minute)))
}

func TestGeoScore(t *testing.T) {
	a := &types.Location{Lat: 35.78, Lng: -78.68}
	assert.Equal(t, 1.0, geoScore(a, a))

	// Roughly 300 m north: half way into the decay band.
	b := &types.Location{Lat: 35.78 + 300.0/111320.0, Lng: -78.68}
	assert.InDelta(t, 0.5, geoScore(a, b), 0.05)

	far := &types.Location{Lat: 35.79, Lng: -78.68} // > 1 km
	assert.Equal(t, 0.0, geoScore(a, far))
}

func TestJaccardAndTokenBag(t *testing.T) {
	a := tokenBag("Loud ALARM at the library!")
	assert.Contains(t, a, "loud")
	assert.Contains(t, a, "alarm")
	assert.Contains(t, a, "library")
	assert.NotContains(t, a, "at") // too short
	assert.NotContains(t, a, "the")

	b := tokenBag("alarm near the library")
	assert.InDelta(t, 0.5, jaccard(a, b), 0.001) // {alarm,library} of {loud,alarm,library,near}

	assert.Equal(t, 0.0, jaccard(tokenBag(""), tokenBag("")))
}

func TestForensicsCreatesVariantsAndEdges(t *testing.T) {
	store := graph.NewStore(nil)
	media := &fakeMedia{hashes: map[string]uint64{
		"https://cdn.example/a.jpg": 0xFF00FF00FF00FF00,
		"https://cdn.example/b.jpg": 0xFF00FF00FF00FF03, // 2 bits off a: repost
		"https://cdn.example/c.jpg": 0x00FF00FF00FF00FF, // far from everything: no edge
		"https://cdn.example/d.jpg": 0xFF00FF00FF00FCFF, // 10 bits off a: mutation
	}}
	src := &forensicsSource{store: store, media: media}

	run := func(url string) *types.Node {
		r, err := store.AddNode(types.NodeKindReport, "CASE-1", map[string]any{
			"text_body": "saw this", "media_url": url,
		})
		require.NoError(t, err)
		require.NoError(t, src.Handle(context.Background(), types.Mutation{
			Action: types.MutationAddNode, Node: r,
		}))
		return r
	}

	run("https://cdn.example/a.jpg")
	assert.Len(t, store.NodesByKind("CASE-1", types.NodeKindMediaVariant), 1)
	assert.Empty(t, store.CaseEdges("CASE-1"))

	r2 := run("https://cdn.example/b.jpg")
	variants := store.NodesByKind("CASE-1", types.NodeKindMediaVariant)
	assert.Len(t, variants, 2)
	reposts := edgesOfKind(store, "CASE-1", types.EdgeKindRepostOf)
	require.Len(t, reposts, 1)
	assert.Equal(t, r2.ID, reposts[0].SourceID)
	assert.Equal(t, variants[0].ID, reposts[0].TargetID)

	run("https://cdn.example/c.jpg")
	assert.Empty(t, edgesOfKind(store, "CASE-1", types.EdgeKindMutationOf))

	r4 := run("https://cdn.example/d.jpg")
	mutations := edgesOfKind(store, "CASE-1", types.EdgeKindMutationOf)
	require.NotEmpty(t, mutations)
	assert.Equal(t, r4.ID, mutations[0].SourceID)

	// Summary lands on the report.
	updated := store.GetNode(r2.ID)
	forensics, ok := updated.Data["forensics"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hashed", forensics["status"])
}

func TestForensicsHashFailureLeavesMarker(t *testing.T) {
	store := graph.NewStore(nil)
	src := &forensicsSource{store: store, media: &fakeMedia{}}

	r, err := store.AddNode(types.NodeKindReport, "CASE-1", map[string]any{
		"media_url": "https://cdn.example/missing.jpg",
	})
	require.NoError(t, err)
	require.NoError(t, src.Handle(context.Background(), types.Mutation{
		Action: types.MutationAddNode, Node: r,
	}))

	assert.Empty(t, store.NodesByKind("CASE-1", types.NodeKindMediaVariant))
	forensics, _ := store.GetNode(r.ID).Data["forensics"].(map[string]any)
	assert.Equal(t, "hash_unavailable", forensics["status"])
}

func TestForensicsVideoPath(t *testing.T) {
	store := graph.NewStore(nil)
	media := &fakeMedia{hits: map[string][]services.VideoHit{
		"crowd running": {{Source: "clip-7", URL: "twelvelabs://idx/v7", Score: 0.9}},
	}}
	src := &forensicsSource{store: store, media: media}

	r, err := store.AddNode(types.NodeKindReport, "CASE-1", map[string]any{
		"text_body": "crowd running", "media_url": "https://cdn.example/clip.mp4",
	})
	require.NoError(t, err)
	require.NoError(t, src.Handle(context.Background(), types.Mutation{
		Action: types.MutationAddNode, Node: r,
	}))

	assert.Empty(t, store.NodesByKind("CASE-1", types.NodeKindMediaVariant))
	forensics, _ := store.GetNode(r.ID).Data["forensics"].(map[string]any)
	assert.Equal(t, "video_searched", forensics["status"])
	assert.Equal(t, "clip-7", forensics["top_source"])
}

func TestReclusterCountsDebunks(t *testing.T) {
	store := graph.NewStore(nil)
	r := addReport(t, store, "CASE-1", "library is on fire", time.Time{}, nil)

	fc, err := store.AddNode(types.NodeKindFactCheck, "CASE-1", map[string]any{"rating": "False"})
	require.NoError(t, err)
	edge, err := store.AddEdge(types.EdgeKindDebunkedBy, r.ID, fc.ID, nil)
	require.NoError(t, err)

	src := &reclusterSource{store: store}
	mut := types.Mutation{Action: types.MutationAddEdge, Edge: edge}
	require.NoError(t, src.Handle(context.Background(), mut))
	assert.Equal(t, 1, store.GetNode(r.ID).DebunkCount())

	fc2, err := store.AddNode(types.NodeKindFactCheck, "CASE-1", map[string]any{"rating": "False"})
	require.NoError(t, err)
	edge2, err := store.AddEdge(types.EdgeKindDebunkedBy, r.ID, fc2.ID, nil)
	require.NoError(t, err)
	require.NoError(t, src.Handle(context.Background(), types.Mutation{Action: types.MutationAddEdge, Edge: edge2}))
	assert.Equal(t, 2, store.GetNode(r.ID).DebunkCount())
}

func TestNetworkExtractsClaimsAndBuildsGraph(t *testing.T) {
	store := graph.NewStore(nil)
	ai := services.NewAI(&fakeCompleter{responses: map[string]string{
		"extract_claims": `{"claims": [{"statement": "fire in the library", "confidence": 0.8, "category": "threat"}],
			"urgency": 0.9, "misinformation_flags": ["urgency without specificity"]}`,
		"search_queries": "campus library fire",
	}})
	facts := &fakeFactChecker{reviews: map[string][]services.ClaimReview{
		"fire in the library": {
			{ClaimText: "fire in the library", Rating: "False", Reviewer: "Fact Desk", URL: "https://fd.example/1"},
		},
	}}

	r := addReport(t, store, "CASE-1", "FIRE in the library, everyone run", time.Time{}, nil)
	src := &networkSource{store: store, ai: ai, facts: facts}
	require.NoError(t, src.Handle(context.Background(), types.Mutation{
		Action: types.MutationAddNode, Node: r,
	}))

	updated := store.GetNode(r.ID)
	require.Len(t, updated.Claims(), 1)
	assert.Equal(t, "fire in the library", updated.Claims()[0].Statement)
	urgency, _ := updated.Data["urgency"].(float64)
	assert.InDelta(t, 0.9, urgency, 0.001)

	factNodes := store.NodesByKind("CASE-1", types.NodeKindFactCheck)
	require.Len(t, factNodes, 1)
	assert.Equal(t, "False", factNodes[0].Data["rating"])
	require.Len(t, edgesOfKind(store, "CASE-1", types.EdgeKindDebunkedBy), 1)

	extNodes := store.NodesByKind("CASE-1", types.NodeKindExternalSource)
	require.Len(t, extNodes, 1)
	assert.Equal(t, "web", extNodes[0].Data["platform"])
	similar := edgesOfKind(store, "CASE-1", types.EdgeKindSimilarTo)
	require.Len(t, similar, 1)
	assert.Equal(t, 0.5, similar[0].Data["score"])
}

func TestNetworkEmptyExtractionIsNoop(t *testing.T) {
	store := graph.NewStore(nil)
	deps := services.Disabled()
	r := addReport(t, store, "CASE-1", "something happened", time.Time{}, nil)

	src := &networkSource{store: store, ai: deps.AI, facts: deps.FactCheck}
	require.NoError(t, src.Handle(context.Background(), types.Mutation{
		Action: types.MutationAddNode, Node: r,
	}))

	updated := store.GetNode(r.ID)
	assert.Empty(t, updated.Claims())
	assert.Equal(t, 1, store.Stats().Nodes)
	assert.Equal(t, 0, store.Stats().Edges)
}

func TestXrefLinksVideoSources(t *testing.T) {
	store := graph.NewStore(nil)
	media := &fakeMedia{hits: map[string][]services.VideoHit{
		"fire in the library": {
			{Source: "clip-1", URL: "twelvelabs://idx/v1", Score: 0.8},
			{Source: "clip-2", URL: "twelvelabs://idx/v2", Score: 0.7},
			{Source: "clip-3", URL: "twelvelabs://idx/v3", Score: 0.6}, // beyond top-2
		},
	}}

	r, err := store.AddNode(types.NodeKindReport, "CASE-1", map[string]any{
		"text_body": "fire",
		"claims":    []any{map[string]any{"statement": "fire in the library"}},
	})
	require.NoError(t, err)

	src := &xrefSource{store: store, media: media}
	mut := types.Mutation{Action: types.MutationUpdateNode, Node: store.GetNode(r.ID)}
	require.NoError(t, src.Handle(context.Background(), mut))

	ext := store.NodesByKind("CASE-1", types.NodeKindExternalSource)
	require.Len(t, ext, 2)
	assert.Equal(t, "video", ext[0].Data["platform"])
	assert.Len(t, edgesOfKind(store, "CASE-1", types.EdgeKindSimilarTo), 2)

	// Re-running does not duplicate sources for the same URLs.
	require.NoError(t, src.Handle(context.Background(), mut))
	assert.Len(t, store.NodesByKind("CASE-1", types.NodeKindExternalSource), 2)
}

func TestClassifierRoles(t *testing.T) {
	store := graph.NewStore(nil)
	base := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

	origin := addReport(t, store, "CASE-1", "first sighting", base, nil)
	reposter := addReport(t, store, "CASE-1", "same thing", base.Add(5*time.Minute), nil)
	mutator := addReport(t, store, "CASE-1", "edited version", base.Add(10*time.Minute), nil)
	sharer := addReport(t, store, "CASE-1", "unrelated words entirely", base.Add(15*time.Minute), nil)

	variant, err := store.AddNode(types.NodeKindMediaVariant, "CASE-1", map[string]any{"phash": "00"})
	require.NoError(t, err)
	_, err = store.AddEdge(types.EdgeKindRepostOf, reposter.ID, variant.ID, nil)
	require.NoError(t, err)
	_, err = store.AddEdge(types.EdgeKindMutationOf, mutator.ID, variant.ID, nil)
	require.NoError(t, err)

	src := &classifierSource{store: store}
	require.NoError(t, src.Handle(context.Background(), types.Mutation{
		Action: types.MutationAddNode,
		Node:   store.GetNode(variant.ID),
	}))

	assert.Equal(t, types.RoleOriginator, store.GetNode(origin.ID).Role())
	assert.Equal(t, types.RoleAmplifier, store.GetNode(reposter.ID).Role())
	assert.Equal(t, types.RoleMutator, store.GetNode(mutator.ID).Role())
	assert.Equal(t, types.RoleUnwittingSharer, store.GetNode(sharer.ID).Role())
}

func TestClassifierLeavesEvidencedReportUnchanged(t *testing.T) {
	store := graph.NewStore(nil)
	base := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

	addReport(t, store, "CASE-1", "first", base, nil)
	linked := addReport(t, store, "CASE-1", "second", base.Add(time.Minute), nil)

	ext, err := store.AddNode(types.NodeKindExternalSource, "CASE-1", map[string]any{"platform": "web"})
	require.NoError(t, err)
	_, err = store.AddEdge(types.EdgeKindSimilarTo, linked.ID, ext.ID, nil)
	require.NoError(t, err)

	src := &classifierSource{store: store}
	require.NoError(t, src.Handle(context.Background(), types.Mutation{
		Action: types.MutationAddNode,
		Node:   store.GetNode(ext.ID),
	}))

	// Not earliest, no repost/mutation edges, but it points at evidence:
	// every rule passes over it, so no role is stamped.
	assert.Equal(t, types.SemanticRole(""), store.GetNode(linked.ID).Role())
}

func TestSynthesizerStampsReports(t *testing.T) {
	store := graph.NewStore(nil)
	ai := services.NewAI(&fakeCompleter{responses: map[string]string{
		"synthesize_case": `{"narrative": "Multiple reports describe one alarm event.",
			"origin_analysis": "Started at the library.", "confidence": 0.75,
			"recommended_action": "Send an officer to the library."}`,
	}})

	r, err := store.AddNode(types.NodeKindReport, "CASE-1", map[string]any{
		"text_body": "alarm", "claims": []any{map[string]any{"statement": "alarm at library"}},
	})
	require.NoError(t, err)

	src := &synthesizerSource{store: store, ai: ai}
	mut := types.Mutation{Action: types.MutationUpdateNode, Node: store.GetNode(r.ID)}
	require.NoError(t, src.Handle(context.Background(), mut))

	updated := store.GetNode(r.ID)
	assert.Equal(t, "Multiple reports describe one alarm event.", updated.Data["narrative"])
	assert.Equal(t, "Send an officer to the library.", updated.Data["recommended_action"])
	confidence, _ := updated.Data["confidence"].(float64)
	assert.InDelta(t, 0.75, confidence, 0.001)
}

func TestSynthesizerSkipsUnchangedNarrative(t *testing.T) {
	store := graph.NewStore(nil)
	ai := services.NewAI(&fakeCompleter{responses: map[string]string{
		"synthesize_case": `{"narrative": "Stable story.", "confidence": 0.5}`,
	}})

	r, err := store.AddNode(types.NodeKindReport, "CASE-1", map[string]any{
		"text_body": "alarm",
		"claims":    []any{map[string]any{"statement": "x"}},
		"narrative": "Stable story.",
	})
	require.NoError(t, err)

	recorder := &mutationRecorder{}
	store.SetNotifier(recorder)

	src := &synthesizerSource{store: store, ai: ai}
	require.NoError(t, src.Handle(context.Background(), types.Mutation{
		Action: types.MutationUpdateNode, Node: store.GetNode(r.ID),
	}))
	assert.Zero(t, recorder.count)
}

func TestRegisterWiresAllSeven(t *testing.T) {
	store := graph.NewStore(nil)
	c := blackboard.NewController(blackboard.DefaultConfig())
	require.NoError(t, Register(c, store, services.Disabled()))
	assert.Equal(t, 7, c.SourceCount())
}

// mutationRecorder counts notifier deliveries
type mutationRecorder struct {
	count int
}

func (m *mutationRecorder) Notify(eventType string, mutation types.Mutation) {
	m.count++
}

func edgesOfKind(store *graph.Store, caseID string, kind types.EdgeKind) []*types.Edge {
	var out []*types.Edge
	for _, e := range store.CaseEdges(caseID) {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
