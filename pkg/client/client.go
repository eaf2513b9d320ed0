package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wolftrace/deaddrop/pkg/types"
)

const defaultTimeout = 10 * time.Second

// Client is a thin HTTP client for the engine API, used by the CLI.
type Client struct {
	baseURL string
	officer string
	http    *http.Client
}

// New creates a client for the API at addr (host:port or full URL).
func New(addr, officer string) *Client {
	base := addr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		officer: officer,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// ReportSubmission mirrors the report intake payload.
type ReportSubmission struct {
	Text      string          `json:"text,omitempty"`
	CaseID    string          `json:"case_id,omitempty"`
	MediaURL  string          `json:"media_url,omitempty"`
	Location  *types.Location `json:"location,omitempty"`
	Anonymous bool            `json:"anonymous,omitempty"`
	Contact   string          `json:"contact,omitempty"`
}

// SubmitReport files a new report and returns the triage record.
func (c *Client) SubmitReport(ctx context.Context, sub ReportSubmission) (*types.Report, error) {
	var report types.Report
	if err := c.do(ctx, http.MethodPost, "/api/report", sub, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// ListCases returns the case summaries known to the engine.
func (c *Client) ListCases(ctx context.Context) ([]types.CaseSummary, error) {
	var out struct {
		Cases []types.CaseSummary `json:"cases"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/cases", nil, &out); err != nil {
		return nil, err
	}
	return out.Cases, nil
}

// GetCase returns the full snapshot of one case.
func (c *Client) GetCase(ctx context.Context, caseID string) (*types.CaseSnapshot, error) {
	var snap types.CaseSnapshot
	if err := c.do(ctx, http.MethodGet, "/api/cases/"+caseID, nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Stats returns aggregate graph counters.
func (c *Client) Stats(ctx context.Context) (*types.GraphStats, error) {
	var stats types.GraphStats
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Seed loads the demo cases and returns how many were created.
func (c *Client) Seed(ctx context.Context) (int, error) {
	var out struct {
		CasesCreated int `json:"cases_created"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/seed", nil, &out); err != nil {
		return 0, err
	}
	return out.CasesCreated, nil
}

// ListAlerts returns all drafted and published alerts.
func (c *Client) ListAlerts(ctx context.Context) ([]*types.Alert, error) {
	var out struct {
		Alerts []*types.Alert `json:"alerts"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/alerts", nil, &out); err != nil {
		return nil, err
	}
	return out.Alerts, nil
}

// DraftAlert asks the engine to compose an alert draft for a case.
func (c *Client) DraftAlert(ctx context.Context, caseID, notes string) (*types.Alert, error) {
	var alert types.Alert
	body := map[string]string{"case_id": caseID, "notes": notes}
	if err := c.do(ctx, http.MethodPost, "/api/alerts/draft", body, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

// ApproveAlert publishes a drafted alert, optionally overriding its text.
func (c *Client) ApproveAlert(ctx context.Context, alertID, finalText string) (*types.Alert, error) {
	var alert types.Alert
	var body any
	if finalText != "" {
		body = map[string]string{"text": finalText}
	}
	if err := c.do(ctx, http.MethodPost, "/api/alerts/"+alertID+"/approve", body, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.officer != "" {
		req.Header.Set("X-Officer-ID", c.officer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
