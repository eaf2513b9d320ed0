package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	"github.com/wolftrace/deaddrop/pkg/log"
	"github.com/wolftrace/deaddrop/pkg/metrics"
)

const (
	twelveLabsEndpoint = "https://api.twelvelabs.io/v1.3/search"
	maxMediaBytes      = 20 << 20
	maxVideoHits       = 5
)

// MediaClient implements Media: a local average-hash for images plus
// TwelveLabs semantic video search. VideoSearch degrades to empty when
// no API key is configured; PHash works without credentials because it
// only needs the media bytes.
type MediaClient struct {
	apiKey  string
	indexID string
	client  *http.Client
}

// NewMediaClient builds a media client. Empty credentials disable video
// search only.
func NewMediaClient(apiKey, indexID string) *MediaClient {
	return &MediaClient{
		apiKey:  apiKey,
		indexID: indexID,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// PHash fetches the media at url and computes a 64-bit perceptual hash.
// Near-duplicate images differ in only a few bits.
func (m *MediaClient) PHash(ctx context.Context, mediaURL string) (uint64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return 0, fmt.Errorf("invalid media url %q: %w", mediaURL, err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		metrics.ExternalCalls.WithLabelValues("media_fetch", "error").Inc()
		return 0, fmt.Errorf("failed to fetch media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		metrics.ExternalCalls.WithLabelValues("media_fetch", "error").Inc()
		return 0, fmt.Errorf("media fetch returned %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes))
	if err != nil {
		return 0, fmt.Errorf("failed to read media body: %w", err)
	}
	metrics.ExternalCalls.WithLabelValues("media_fetch", "ok").Inc()

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("failed to decode media: %w", err)
	}
	return averageHash(img), nil
}

// averageHash downsamples to an 8x8 grayscale grid and sets one bit per
// cell brighter than the mean. Stable under recompression and mild
// edits, which is what repost detection needs.
func averageHash(img image.Image) uint64 {
	const dim = 8
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return 0
	}

	var cells [dim * dim]uint64
	for cy := 0; cy < dim; cy++ {
		for cx := 0; cx < dim; cx++ {
			// Sample the center of each cell.
			px := bounds.Min.X + (cx*w+w/2)/dim
			py := bounds.Min.Y + (cy*h+h/2)/dim
			g := color.GrayModel.Convert(img.At(px, py)).(color.Gray)
			cells[cy*dim+cx] = uint64(g.Y)
		}
	}

	var sum uint64
	for _, v := range cells {
		sum += v
	}
	mean := sum / (dim * dim)

	var hash uint64
	for i, v := range cells {
		if v > mean {
			hash |= 1 << uint(i)
		}
	}
	return hash
}

// HammingDistance counts differing bits between two hashes
func HammingDistance(a, b uint64) int {
	x := a ^ b
	count := 0
	for x != 0 {
		x &= x - 1
		count++
	}
	return count
}

type videoSearchRequest struct {
	IndexID       string   `json:"index_id"`
	QueryText     string   `json:"query_text"`
	SearchOptions []string `json:"search_options"`
	PageLimit     int      `json:"page_limit"`
}

type videoSearchResponse struct {
	Data []struct {
		VideoID  string  `json:"video_id"`
		Score    float64 `json:"score"`
		Metadata struct {
			Filename string `json:"filename"`
		} `json:"metadata"`
	} `json:"data"`
}

// VideoSearch runs a semantic query against the configured TwelveLabs
// index. Empty when the service is not configured.
func (m *MediaClient) VideoSearch(ctx context.Context, query string) ([]VideoHit, error) {
	if m.apiKey == "" || m.indexID == "" {
		return nil, nil
	}

	body, err := json.Marshal(videoSearchRequest{
		IndexID:       m.indexID,
		QueryText:     query,
		SearchOptions: []string{"visual"},
		PageLimit:     maxVideoHits,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, twelveLabsEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		metrics.ExternalCalls.WithLabelValues("twelvelabs", "error").Inc()
		return nil, fmt.Errorf("video search failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		metrics.ExternalCalls.WithLabelValues("twelvelabs", "error").Inc()
		return nil, fmt.Errorf("video search returned %d", resp.StatusCode)
	}

	var parsed videoSearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse video search response: %w", err)
	}
	metrics.ExternalCalls.WithLabelValues("twelvelabs", "ok").Inc()

	hits := make([]VideoHit, 0, len(parsed.Data))
	for _, d := range parsed.Data {
		name := d.Metadata.Filename
		if name == "" {
			name = d.VideoID
		}
		hits = append(hits, VideoHit{
			Source: name,
			URL:    fmt.Sprintf("twelvelabs://%s/%s", m.indexID, d.VideoID),
			Score:  d.Score,
		})
	}
	log.WithComponent("twelvelabs").Debug().
		Str("query", query).
		Int("hits", len(hits)).
		Msg("Video search complete")
	return hits, nil
}
