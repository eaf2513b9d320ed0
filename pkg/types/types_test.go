package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutationEventType(t *testing.T) {
	tests := []struct {
		name     string
		mutation Mutation
		want     string
	}{
		{
			name:     "add report node",
			mutation: Mutation{Action: MutationAddNode, Node: &Node{Kind: NodeKindReport}},
			want:     "node:report",
		},
		{
			name:     "add fact check node",
			mutation: Mutation{Action: MutationAddNode, Node: &Node{Kind: NodeKindFactCheck}},
			want:     "node:fact_check",
		},
		{
			name:     "add similar_to edge",
			mutation: Mutation{Action: MutationAddEdge, Edge: &Edge{Kind: EdgeKindSimilarTo}},
			want:     "edge:similar_to",
		},
		{
			name:     "add debunked_by edge",
			mutation: Mutation{Action: MutationAddEdge, Edge: &Edge{Kind: EdgeKindDebunkedBy}},
			want:     "edge:debunked_by",
		},
		{
			name:     "update report node",
			mutation: Mutation{Action: MutationUpdateNode, Node: &Node{Kind: NodeKindReport}},
			want:     "update:report",
		},
		{
			name:     "malformed record",
			mutation: Mutation{Action: MutationAddNode},
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.mutation.EventType())
		})
	}
}

func TestMutationCaseID(t *testing.T) {
	node := Mutation{Action: MutationAddNode, Node: &Node{CaseID: "CASE-1"}}
	assert.Equal(t, "CASE-1", node.CaseID())

	edge := Mutation{Action: MutationAddEdge, Edge: &Edge{CaseID: "CASE-2"}}
	assert.Equal(t, "CASE-2", edge.CaseID())

	empty := Mutation{Action: MutationAddNode}
	assert.Equal(t, "", empty.CaseID())
}

func TestNodeTimestamp(t *testing.T) {
	ref := time.Date(2026, 2, 7, 23, 52, 0, 0, time.UTC)

	tests := []struct {
		name   string
		data   map[string]any
		want   time.Time
		wantOK bool
	}{
		{name: "rfc3339 string", data: map[string]any{"timestamp": ref.Format(time.RFC3339)}, want: ref, wantOK: true},
		{name: "time value", data: map[string]any{"timestamp": ref}, want: ref, wantOK: true},
		{name: "empty string", data: map[string]any{"timestamp": ""}, wantOK: false},
		{name: "garbage", data: map[string]any{"timestamp": "last tuesday"}, wantOK: false},
		{name: "absent", data: map[string]any{}, wantOK: false},
		{name: "nil bag", data: nil, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &Node{Data: tt.data}
			got, ok := n.Timestamp()
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.True(t, got.Equal(tt.want))
			}
		})
	}
}

func TestNodeLocation(t *testing.T) {
	n := &Node{Data: map[string]any{
		"location": map[string]any{"lat": 35.7847, "lng": -78.6821, "building": "Bell Tower"},
	}}
	loc := n.Location()
	require.NotNil(t, loc)
	assert.InDelta(t, 35.7847, loc.Lat, 1e-9)
	assert.InDelta(t, -78.6821, loc.Lng, 1e-9)
	assert.Equal(t, "Bell Tower", loc.Building)

	// Building-only locations keep the label but no coordinates.
	n = &Node{Data: map[string]any{"location": map[string]any{"building": "Library"}}}
	loc = n.Location()
	require.NotNil(t, loc)
	assert.Equal(t, "Library", loc.Building)
	assert.Zero(t, loc.Lat)

	n = &Node{Data: map[string]any{}}
	assert.Nil(t, n.Location())
}

func TestNodeClaims(t *testing.T) {
	n := &Node{Data: map[string]any{
		"claims": []any{
			map[string]any{"statement": "alarm at library"},
			map[string]any{"text": "smoke near stacks"},
			map[string]any{"irrelevant": true},
			"not a map",
		},
	}}
	claims := n.Claims()
	require.Len(t, claims, 2)
	assert.Equal(t, "alarm at library", claims[0].Statement)
	assert.Equal(t, "smoke near stacks", claims[1].Statement)

	assert.Nil(t, (&Node{}).Claims())
}

func TestNodeDebunkCountAndRole(t *testing.T) {
	n := &Node{Data: map[string]any{"debunk_count": float64(3), "semantic_role": "amplifier"}}
	assert.Equal(t, 3, n.DebunkCount())
	assert.Equal(t, RoleAmplifier, n.Role())

	n = &Node{Data: map[string]any{"debunk_count": 2}}
	assert.Equal(t, 2, n.DebunkCount())

	assert.Equal(t, 0, (&Node{}).DebunkCount())
	assert.Equal(t, SemanticRole(""), (&Node{}).Role())
}

func TestCloneDataIsDeep(t *testing.T) {
	orig := map[string]any{
		"text_body": "original",
		"location":  map[string]any{"lat": 1.0, "lng": 2.0},
		"claims":    []any{map[string]any{"statement": "x"}},
	}
	cp := CloneData(orig)

	cp["text_body"] = "changed"
	cp["location"].(map[string]any)["lat"] = 9.0
	cp["claims"].([]any)[0].(map[string]any)["statement"] = "y"

	assert.Equal(t, "original", orig["text_body"])
	assert.Equal(t, 1.0, orig["location"].(map[string]any)["lat"])
	assert.Equal(t, "x", orig["claims"].([]any)[0].(map[string]any)["statement"])
}

func TestNodeClone(t *testing.T) {
	n := &Node{
		ID:     "N-1",
		Kind:   NodeKindReport,
		CaseID: "CASE-1",
		Data:   map[string]any{"text_body": "tip"},
	}
	cp := n.Clone()
	cp.Data["text_body"] = "tampered"
	assert.Equal(t, "tip", n.Data["text_body"])

	var nilNode *Node
	assert.Nil(t, nilNode.Clone())
}
