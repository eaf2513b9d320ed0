package seed

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wolftrace/deaddrop/pkg/engine"
	"github.com/wolftrace/deaddrop/pkg/ids"
	"github.com/wolftrace/deaddrop/pkg/log"
	"github.com/wolftrace/deaddrop/pkg/types"
)

//go:embed cases.yaml
var manifest []byte

type seedReport struct {
	Text       string  `yaml:"text"`
	Building   string  `yaml:"building,omitempty"`
	Lat        float64 `yaml:"lat,omitempty"`
	Lng        float64 `yaml:"lng,omitempty"`
	MinutesAgo int     `yaml:"minutes_ago"`
	MediaURL   string  `yaml:"media_url,omitempty"`
}

type seedCase struct {
	Title   string       `yaml:"title"`
	Status  string       `yaml:"status,omitempty"`
	Reports []seedReport `yaml:"reports"`
}

type seedManifest struct {
	Cases []seedCase `yaml:"cases"`
}

// Load builds the embedded demo cases directly through store mutations:
// report nodes, raw payloads, pre-linked similar_to edges and case
// metadata. The knowledge sources still react to the mutations, so
// seeded cases pick up roles and analysis like live ones, but the demo
// graph shape does not depend on cooldown timing. Returns the number of
// cases created.
func Load(e *engine.Engine) (int, error) {
	var m seedManifest
	if err := yaml.Unmarshal(manifest, &m); err != nil {
		return 0, fmt.Errorf("failed to parse seed manifest: %w", err)
	}

	now := time.Now().UTC()
	for _, sc := range m.Cases {
		caseID := ids.NewCaseID()
		var prevNodeID string

		for _, sr := range sc.Reports {
			ts := now.Add(-time.Duration(sr.MinutesAgo) * time.Minute)
			data := map[string]any{
				"text_body": sr.Text,
				"timestamp": ts.Format(time.RFC3339),
				"claims":    []any{},
			}
			var loc *types.Location
			if sr.Lat != 0 || sr.Lng != 0 || sr.Building != "" {
				loc = &types.Location{Lat: sr.Lat, Lng: sr.Lng, Building: sr.Building}
				locData := map[string]any{"lat": sr.Lat, "lng": sr.Lng}
				if sr.Building != "" {
					locData["building"] = sr.Building
				}
				data["location"] = locData
			}
			if sr.MediaURL != "" {
				data["media_url"] = sr.MediaURL
			}

			node, err := e.Store.AddNode(types.NodeKindReport, caseID, data)
			if err != nil {
				return 0, fmt.Errorf("failed to seed case %q: %w", sc.Title, err)
			}
			reportID := ids.NewReportID()
			e.Store.AddReport(caseID, reportID, &types.Report{
				TextBody:  sr.Text,
				Location:  loc,
				Timestamp: ts,
				MediaURL:  sr.MediaURL,
				Anonymous: true,
				Status:    types.ReportStatusTriaged,
				CreatedAt: now,
			}, node.ID)

			// Same-incident chain, so the caseboard shows clusters
			// without waiting for the clustering cooldowns.
			if prevNodeID != "" {
				_, err := e.Store.AddEdge(types.EdgeKindSimilarTo, node.ID, prevNodeID, map[string]any{
					"score": 0.75, "t": 1.0, "g": 1.0, "s": 0.4,
				})
				if err != nil {
					return 0, fmt.Errorf("failed to seed case %q: %w", sc.Title, err)
				}
			}
			prevNodeID = node.ID
		}

		meta := map[string]any{"title": sc.Title, "seeded": true}
		if sc.Status != "" {
			meta["status"] = sc.Status
		}
		e.Store.SetCaseMetadata(caseID, meta)
	}

	log.WithComponent("seed").Info().Int("cases", len(m.Cases)).Msg("Demo cases loaded")
	return len(m.Cases), nil
}
