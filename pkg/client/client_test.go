package client

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolftrace/deaddrop/pkg/api"
	"github.com/wolftrace/deaddrop/pkg/archive"
	"github.com/wolftrace/deaddrop/pkg/config"
	"github.com/wolftrace/deaddrop/pkg/engine"
	"github.com/wolftrace/deaddrop/pkg/services"
	"github.com/wolftrace/deaddrop/pkg/types"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	cfg := config.Default()
	cfg.Server.UploadDir = t.TempDir()

	arc, err := archive.Open(filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { arc.Close() })

	e, err := engine.New(cfg, services.Disabled(), arc)
	require.NoError(t, err)
	e.Start()
	t.Cleanup(e.Stop)

	ts := httptest.NewServer(api.New(cfg, e).Handler())
	t.Cleanup(ts.Close)
	return New(ts.URL, "officer-test")
}

func TestClientReportAndCaseFlow(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	report, err := c.SubmitReport(ctx, ReportSubmission{
		Text:     "smoke near the engineering quad",
		Location: &types.Location{Lat: 35.77, Lng: -78.67, Building: "EB2"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, report.CaseID)

	cases, err := c.ListCases(ctx)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, report.CaseID, cases[0].CaseID)

	snap, err := c.GetCase(ctx, report.CaseID)
	require.NoError(t, err)
	assert.Equal(t, report.CaseID, snap.CaseID)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Reports)
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	c := newTestClient(t)

	_, err := c.GetCase(context.Background(), "CASE-MISSING")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.Contains(t, err.Error(), "404")
}

func TestClientSeedAndAlerts(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	n, err := c.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	cases, err := c.ListCases(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, cases)

	draft, err := c.DraftAlert(ctx, cases[0].CaseID, "officer confirmed")
	require.NoError(t, err)
	assert.Equal(t, types.AlertStatusDraft, draft.Status)

	published, err := c.ApproveAlert(ctx, draft.ID, "Final text.")
	require.NoError(t, err)
	assert.Equal(t, types.AlertStatusPublished, published.Status)

	alerts, err := c.ListAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
}

func TestBaseURLNormalization(t *testing.T) {
	c := New("localhost:8420", "")
	assert.Equal(t, "http://localhost:8420", c.baseURL)
	c = New("https://deaddrop.example.edu/", "")
	assert.Equal(t, "https://deaddrop.example.edu", c.baseURL)
}
