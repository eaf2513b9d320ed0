package services

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCompleter returns a canned response or error
type stubCompleter struct {
	response string
	err      error
	prompts  []string
}

func (s *stubCompleter) Complete(ctx context.Context, prompt, purpose string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.response, s.err
}

func TestExtractClaimsParsesFencedJSON(t *testing.T) {
	stub := &stubCompleter{response: "```json\n" + `{
		"claims": [{"statement": "Fire in the library", "confidence": 0.8, "category": "threat"}],
		"urgency": 0.9,
		"misinformation_flags": ["urgency without specificity"],
		"suggested_verifications": ["check camera 12"]
	}` + "\n```"}
	ai := NewAI(stub)

	out := ai.ExtractClaims(context.Background(), "FIRE in the library!!")
	require.Len(t, out.Claims, 1)
	assert.Equal(t, "Fire in the library", out.Claims[0].Statement)
	assert.Equal(t, "threat", out.Claims[0].Category)
	assert.InDelta(t, 0.9, out.Urgency, 0.001)
	assert.Equal(t, []string{"urgency without specificity"}, out.MisinformationFlags)
}

func TestExtractClaimsEmptyOnFailure(t *testing.T) {
	for name, stub := range map[string]*stubCompleter{
		"service error": {err: errors.New("quota exceeded")},
		"disabled":      {err: ErrServiceDisabled},
		"garbage":       {response: "I cannot help with that."},
	} {
		t.Run(name, func(t *testing.T) {
			out := NewAI(stub).ExtractClaims(context.Background(), "some report")
			assert.Empty(t, out.Claims)
			assert.Zero(t, out.Urgency)
		})
	}
}

func TestSearchQueriesParsing(t *testing.T) {
	claims := []ExtractedClaim{{Statement: "Fire in the library", Confidence: 0.8}}

	tests := []struct {
		name     string
		response string
		want     []string
	}{
		{
			name:     "plain lines",
			response: "campus library fire\nlibrary evacuation tonight",
			want:     []string{"campus library fire", "library evacuation tonight"},
		},
		{
			name:     "numbered list with quotes",
			response: "1. \"campus library fire\"\n2. library smoke report\n3. fire alarm west campus\n4. extra",
			want:     []string{"campus library fire", "library smoke report", "fire alarm west campus"},
		},
		{
			name:     "blank lines ignored",
			response: "\ncampus fire\n\n",
			want:     []string{"campus fire"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ai := NewAI(&stubCompleter{response: tt.response})
			assert.Equal(t, tt.want, ai.SearchQueries(context.Background(), claims))
		})
	}
}

func TestSearchQueriesNoClaimsNoCall(t *testing.T) {
	stub := &stubCompleter{response: "should not be called"}
	assert.Nil(t, NewAI(stub).SearchQueries(context.Background(), nil))
	assert.Empty(t, stub.prompts)
}

func TestSynthesizeCase(t *testing.T) {
	stub := &stubCompleter{response: `{
		"narrative": "Three reports describe the same event.",
		"origin_analysis": "Earliest report came from the dorm.",
		"confidence": 0.7,
		"recommended_action": "Dispatch an officer."
	}`}
	out := NewAI(stub).SynthesizeCase(context.Background(), "case context")
	require.NotNil(t, out)
	assert.Equal(t, "Three reports describe the same event.", out.Narrative)
	assert.InDelta(t, 0.7, out.Confidence, 0.001)

	assert.Nil(t, NewAI(&stubCompleter{err: errors.New("down")}).SynthesizeCase(context.Background(), "ctx"))
}

func TestComposeAlertFallback(t *testing.T) {
	out := NewAI(&stubCompleter{err: ErrServiceDisabled}).ComposeAlert(context.Background(), "ctx", "notes")
	assert.Contains(t, out, "Campus Safety Notice")

	out = NewAI(&stubCompleter{response: "  All clear at the library.  "}).ComposeAlert(context.Background(), "ctx", "")
	assert.Equal(t, "All clear at the library.", out)
}

func TestStripJSONFence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```json\n{\"a\": 1}", `{"a": 1}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripJSONFence(tt.in))
	}
}

func grayImage(fill uint8, corner uint8) image.Image {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			v := fill
			if x < 32 && y < 32 {
				v = corner
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func TestAverageHashStability(t *testing.T) {
	a := grayImage(200, 20)
	b := grayImage(210, 25) // mild brightness shift, same structure
	c := grayImage(20, 200) // inverted structure

	assert.Equal(t, averageHash(a), averageHash(b))
	assert.Greater(t, HammingDistance(averageHash(a), averageHash(c)), 15)
}

func TestHammingDistance(t *testing.T) {
	assert.Equal(t, 0, HammingDistance(0xFF, 0xFF))
	assert.Equal(t, 8, HammingDistance(0xFF, 0x00))
	assert.Equal(t, 64, HammingDistance(0, ^uint64(0)))
	assert.Equal(t, 1, HammingDistance(0b1000, 0b0000))
}

func TestFactCheckerLookup(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		fmt.Fprint(w, `{"claims": [{
			"text": "Fire in the library",
			"claimReview": [{
				"publisher": {"name": "Campus Fact Desk"},
				"url": "https://factdesk.example/1",
				"textualRating": "False"
			}]
		}]}`)
	}))
	defer srv.Close()

	checker, err := NewGoogleFactChecker("test-key")
	require.NoError(t, err)
	checker.endpoint = srv.URL

	reviews, err := checker.Lookup(context.Background(), "Fire in the library")
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "False", reviews[0].Rating)
	assert.Equal(t, "Campus Fact Desk", reviews[0].Reviewer)
	assert.Equal(t, "Fire in the library", gotQuery)
}

func TestFactCheckerTruncatesLongClaims(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		fmt.Fprint(w, `{"claims": []}`)
	}))
	defer srv.Close()

	checker, err := NewGoogleFactChecker("test-key")
	require.NoError(t, err)
	checker.endpoint = srv.URL

	long := make([]byte, 900)
	for i := range long {
		long[i] = 'a'
	}
	_, err = checker.Lookup(context.Background(), string(long))
	require.NoError(t, err)
	assert.Len(t, gotQuery, maxQueryLen)
}

func TestFactCheckerRequiresKey(t *testing.T) {
	_, err := NewGoogleFactChecker("")
	assert.ErrorIs(t, err, ErrServiceDisabled)
}

func TestDisabledDeps(t *testing.T) {
	deps := Disabled()

	out := deps.AI.ExtractClaims(context.Background(), "text")
	assert.Empty(t, out.Claims)

	reviews, err := deps.FactCheck.Lookup(context.Background(), "claim")
	require.NoError(t, err)
	assert.Empty(t, reviews)

	_, err = deps.Media.PHash(context.Background(), "https://x.example/i.jpg")
	assert.ErrorIs(t, err, ErrServiceDisabled)

	hits, err := deps.Media.VideoSearch(context.Background(), "query")
	require.NoError(t, err)
	assert.Empty(t, hits)

	audio, err := deps.Speech.Synthesize(context.Background(), "text")
	require.NoError(t, err)
	assert.Nil(t, audio)
}

func TestMediaVideoSearchDisabledWithoutCredentials(t *testing.T) {
	m := NewMediaClient("", "")
	hits, err := m.VideoSearch(context.Background(), "query")
	require.NoError(t, err)
	assert.Nil(t, hits)
}
