package seed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolftrace/deaddrop/pkg/config"
	"github.com/wolftrace/deaddrop/pkg/engine"
	"github.com/wolftrace/deaddrop/pkg/services"
	"github.com/wolftrace/deaddrop/pkg/types"
)

func TestLoadCreatesDemoCases(t *testing.T) {
	e, err := engine.New(config.Default(), services.Disabled(), nil)
	require.NoError(t, err)
	e.Start()
	defer e.Stop()

	n, err := Load(e)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.True(t, e.Quiesce(5*time.Second))

	cases := e.Store.AllCases()
	require.Len(t, cases, 3)

	byTitle := make(map[string]types.CaseSummary)
	for _, c := range cases {
		title, _ := c.Metadata["title"].(string)
		byTitle[title] = c
		assert.Equal(t, true, c.Metadata["seeded"])
	}

	clocktower, ok := byTitle["The Clocktower Signal"]
	require.True(t, ok)
	assert.Equal(t, 3, clocktower.ReportCount)
	assert.GreaterOrEqual(t, clocktower.EdgeCount, 2) // pre-linked chain

	van, ok := byTitle["The Vanishing Van"]
	require.True(t, ok)
	assert.Equal(t, 1, van.ReportCount)
	assert.Equal(t, "pending", van.Metadata["status"])
}

func TestLoadFeedsRawReports(t *testing.T) {
	e, err := engine.New(config.Default(), services.Disabled(), nil)
	require.NoError(t, err)
	e.Start()
	defer e.Stop()

	_, err = Load(e)
	require.NoError(t, err)

	reports := e.Store.AllReports()
	assert.Len(t, reports, 6)
	for _, r := range reports {
		assert.NotEmpty(t, r.TextBody)
		assert.True(t, r.Anonymous)
	}
}
