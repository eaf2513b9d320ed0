package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/wolftrace/deaddrop/pkg/log"
	"github.com/wolftrace/deaddrop/pkg/metrics"
)

const (
	factCheckEndpoint = "https://factchecktools.googleapis.com/v1alpha1/claims:search"
	maxQueryLen       = 500
	maxReviews        = 5
)

// GoogleFactChecker queries the Google Fact Check Tools claims:search
// API.
type GoogleFactChecker struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewGoogleFactChecker builds a checker for the given API key
func NewGoogleFactChecker(apiKey string) (*GoogleFactChecker, error) {
	if apiKey == "" {
		return nil, ErrServiceDisabled
	}
	return &GoogleFactChecker{
		apiKey:   apiKey,
		endpoint: factCheckEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// claimsSearchResponse mirrors the fields we read from the API
type claimsSearchResponse struct {
	Claims []struct {
		Text        string `json:"text"`
		ClaimReview []struct {
			Publisher struct {
				Name string `json:"name"`
			} `json:"publisher"`
			URL           string `json:"url"`
			TextualRating string `json:"textualRating"`
		} `json:"claimReview"`
	} `json:"claims"`
}

// Lookup searches the fact-check corpus for reviews of a claim. Long
// claims are truncated; the API rejects oversized queries.
func (f *GoogleFactChecker) Lookup(ctx context.Context, claimText string) ([]ClaimReview, error) {
	if len(claimText) > maxQueryLen {
		claimText = claimText[:maxQueryLen]
	}

	q := url.Values{}
	q.Set("query", claimText)
	q.Set("key", f.apiKey)
	q.Set("languageCode", "en")
	reqURL := f.endpoint + "?" + q.Encode()

	var body []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return fmt.Errorf("fact check API returned %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("fact check API returned %d", resp.StatusCode))
		}
		body, err = io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		metrics.ExternalCalls.WithLabelValues("factcheck", "error").Inc()
		return nil, fmt.Errorf("fact check lookup failed: %w", err)
	}
	metrics.ExternalCalls.WithLabelValues("factcheck", "ok").Inc()

	var parsed claimsSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse fact check response: %w", err)
	}

	var out []ClaimReview
	for _, claim := range parsed.Claims {
		for _, review := range claim.ClaimReview {
			out = append(out, ClaimReview{
				ClaimText: claim.Text,
				Rating:    review.TextualRating,
				Reviewer:  review.Publisher.Name,
				URL:       review.URL,
			})
			if len(out) == maxReviews {
				break
			}
		}
		if len(out) == maxReviews {
			break
		}
	}
	log.WithComponent("factcheck").Debug().
		Int("reviews", len(out)).
		Msg("Claim lookup complete")
	return out, nil
}
