package alerts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wolftrace/deaddrop/pkg/archive"
	"github.com/wolftrace/deaddrop/pkg/events"
	"github.com/wolftrace/deaddrop/pkg/fanout"
	"github.com/wolftrace/deaddrop/pkg/graph"
	"github.com/wolftrace/deaddrop/pkg/ids"
	"github.com/wolftrace/deaddrop/pkg/log"
	"github.com/wolftrace/deaddrop/pkg/metrics"
	"github.com/wolftrace/deaddrop/pkg/services"
	"github.com/wolftrace/deaddrop/pkg/sources"
	"github.com/wolftrace/deaddrop/pkg/types"
)

// Manager owns the alert lifecycle: draft from a case, officer
// approval, audio synthesis, persistence and fan-out.
type Manager struct {
	store   *graph.Store
	deps    services.Deps
	archive *archive.Archive
	stream  *fanout.Stream
	bus     *events.Bus
}

// NewManager wires the alert pipeline
func NewManager(store *graph.Store, deps services.Deps, arc *archive.Archive, stream *fanout.Stream, bus *events.Bus) *Manager {
	return &Manager{store: store, deps: deps, archive: arc, stream: stream, bus: bus}
}

// Draft composes a draft alert for a case. The AI draft is a starting
// point for the officer; it is never published as-is.
func (m *Manager) Draft(ctx context.Context, caseID, officerNotes, actor string) (*types.Alert, error) {
	snap := m.store.CaseSnapshot(caseID)
	if snap == nil {
		return nil, fmt.Errorf("case %s not found", caseID)
	}

	text := m.deps.AI.ComposeAlert(ctx, sources.CaseContext(snap), officerNotes)
	alert := &types.Alert{
		ID:              ids.NewAlertID(),
		CaseID:          caseID,
		Text:            text,
		Status:          types.AlertStatusDraft,
		LocationSummary: locationSummary(snap),
		CreatedAt:       time.Now().UTC(),
	}
	if err := m.archive.SaveAlert(alert); err != nil {
		return nil, fmt.Errorf("failed to persist draft: %w", err)
	}
	m.audit(actor, "alert_drafted", caseID, alert.ID)

	log.WithCase(caseID).Info().Str("alert_id", alert.ID).Msg("Alert drafted")
	return alert, nil
}

// Approve publishes a draft. finalText, when non-empty, replaces the
// drafted text with the officer's edit. Audio synthesis is best effort;
// a TTS failure never blocks publication.
func (m *Manager) Approve(ctx context.Context, alertID, finalText, actor string) (*types.Alert, error) {
	alert, err := m.archive.GetAlert(alertID)
	if err != nil {
		return nil, err
	}
	if alert == nil {
		return nil, fmt.Errorf("alert %s not found", alertID)
	}
	if alert.Status == types.AlertStatusPublished {
		return nil, fmt.Errorf("alert %s is already published", alertID)
	}

	if strings.TrimSpace(finalText) != "" {
		alert.Text = strings.TrimSpace(finalText)
	}
	alert.Status = types.AlertStatusPublished

	if audio, err := m.deps.Speech.Synthesize(ctx, alert.Text); err != nil {
		log.WithCase(alert.CaseID).Warn().Err(err).
			Str("alert_id", alert.ID).
			Msg("Audio synthesis failed, publishing without audio")
	} else if len(audio) > 0 {
		if err := m.archive.SaveAudio(alert.ID, audio); err != nil {
			return nil, fmt.Errorf("failed to persist audio: %w", err)
		}
		alert.AudioURL = fmt.Sprintf("/api/alerts/%s/audio", alert.ID)
	}

	if err := m.archive.SaveAlert(alert); err != nil {
		return nil, fmt.Errorf("failed to persist alert: %w", err)
	}
	m.store.SetCaseMetadata(alert.CaseID, map[string]any{
		"last_alert_id": alert.ID,
		"status":        string(types.CaseStatusVerified),
	})
	m.audit(actor, "alert_approved", alert.CaseID, alert.ID)

	m.stream.Publish(fanout.Message{Kind: fanout.KindNewAlert, Alert: alert})
	m.bus.Emit(events.TopicAlertPublished, map[string]any{
		"alert_id": alert.ID,
		"case_id":  alert.CaseID,
	})
	metrics.AlertsPublished.Inc()

	log.WithCase(alert.CaseID).Info().
		Str("alert_id", alert.ID).
		Bool("audio", alert.AudioURL != "").
		Msg("Alert published")
	return alert, nil
}

// List returns all alerts, newest first
func (m *Manager) List() ([]*types.Alert, error) {
	return m.archive.Alerts()
}

// Audio returns the synthesized audio for an alert, or nil
func (m *Manager) Audio(alertID string) ([]byte, error) {
	return m.archive.Audio(alertID)
}

func (m *Manager) audit(actor, action, caseID, alertID string) {
	err := m.archive.AppendAudit(types.AuditEntry{
		Actor:  actor,
		Action: action,
		CaseID: caseID,
		Detail: alertID,
		At:     time.Now().UTC(),
	})
	if err != nil {
		log.WithComponent("alerts").Warn().Err(err).Msg("Failed to append audit entry")
	}
}

// locationSummary names where the case's reports came from, preferring
// building names over raw coordinates.
func locationSummary(snap *types.CaseSnapshot) string {
	seen := make(map[string]struct{})
	var parts []string
	add := func(s string) {
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		parts = append(parts, s)
	}

	for _, n := range snap.Nodes {
		if n.Kind != types.NodeKindReport {
			continue
		}
		loc := n.Location()
		if loc == nil {
			continue
		}
		if loc.Building != "" {
			add(loc.Building)
		} else {
			add(fmt.Sprintf("%.4f, %.4f", loc.Lat, loc.Lng))
		}
	}
	return strings.Join(parts, "; ")
}
