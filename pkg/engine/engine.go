package engine

import (
	"fmt"
	"time"

	"github.com/wolftrace/deaddrop/pkg/alerts"
	"github.com/wolftrace/deaddrop/pkg/archive"
	"github.com/wolftrace/deaddrop/pkg/blackboard"
	"github.com/wolftrace/deaddrop/pkg/config"
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

// Engine is the composition root: graph store, blackboard controller,
// knowledge sources, event bus, fan-out streams and the alert pipeline
// wired together per the configuration.
type Engine struct {
	Cfg         *config.Config
	Bus         *events.Bus
	Store       *graph.Store
	Controller  *blackboard.Controller
	Caseboard   *fanout.Stream
	AlertStream *fanout.Stream
	Services    services.Deps
	Archive     *archive.Archive
	Alerts      *alerts.Manager

	collector *metrics.Collector
}

// statsSource bridges the store and controller into one gauge source
type statsSource struct {
	store      *graph.Store
	controller *blackboard.Controller
}

func (s statsSource) Stats() types.GraphStats { return s.store.Stats() }
func (s statsSource) QueueDepth() int         { return s.controller.QueueLen() }

// New assembles an engine. The archive may be nil only in tests that
// never touch alerts or audit.
func New(cfg *config.Config, deps services.Deps, arc *archive.Archive) (*Engine, error) {
	bus := events.NewBus()

	caseboard := fanout.NewStream("caseboard", cfg.Engine.SubscriberBuffer, cfg.Engine.FanoutSendTimeout())
	alertStream := fanout.NewStream("alerts", cfg.Engine.SubscriberBuffer, cfg.Engine.FanoutSendTimeout())

	store := graph.NewStore(caseboard)

	controller := blackboard.NewController(blackboard.Config{
		MaxTriggersPerCase: cfg.Engine.MaxTriggersPerCase,
		DefaultCooldown:    cfg.Engine.DefaultCooldown(),
		HandlerTimeout:     cfg.Engine.HandlerTimeout(),
		WorkerConcurrency:  cfg.Engine.WorkerConcurrency,
		TriggerResetAfter:  cfg.Engine.TriggerResetAfter(),
	})
	if err := sources.Register(controller, store, deps); err != nil {
		return nil, fmt.Errorf("failed to register knowledge sources: %w", err)
	}
	// Late-bound: the store must exist before the controller, but every
	// mutation from here on reaches the controller.
	store.SetNotifier(controller)

	alertMgr := alerts.NewManager(store, deps, arc, alertStream, bus)
	collector := metrics.NewCollector(statsSource{store: store, controller: controller})

	return &Engine{
		Cfg:         cfg,
		Bus:         bus,
		Store:       store,
		Controller:  controller,
		Caseboard:   caseboard,
		AlertStream: alertStream,
		Services:    deps,
		Archive:     arc,
		Alerts:      alertMgr,
		collector:   collector,
	}, nil
}

// Start launches the bus and the controller workers
func (e *Engine) Start() {
	e.Bus.Start()
	e.Controller.Start()
	e.collector.Start()
	metrics.RegisterComponent("graph", true, "")
	metrics.RegisterComponent("blackboard", true, "")
	log.WithComponent("engine").Info().
		Int("max_triggers_per_case", e.Cfg.Engine.MaxTriggersPerCase).
		Int("workers", e.Cfg.Engine.WorkerConcurrency).
		Msg("Engine started")
}

// Stop shuts down in reverse dependency order: controller first so no
// handler publishes into closing streams, then streams, then the bus.
func (e *Engine) Stop() {
	e.collector.Stop()
	e.Controller.Stop()
	e.Caseboard.Close()
	e.AlertStream.Close()
	e.Bus.Stop()
	metrics.UpdateComponent("blackboard", false, "stopped")
	log.WithComponent("engine").Info().Msg("Engine stopped")
}

// ReportSubmission is an incoming tip from the HTTP boundary
type ReportSubmission struct {
	Text      string          `json:"text"`
	CaseID    string          `json:"case_id,omitempty"`
	Location  *types.Location `json:"location,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
	MediaURL  string          `json:"media_url,omitempty"`
	Anonymous bool            `json:"anonymous,omitempty"`
	Contact   string          `json:"contact,omitempty"`
}

// SubmitReport runs the intake flow: open or extend a case, create the
// report node (which wakes the knowledge sources), index the raw
// payload, and announce the report on the bus.
func (e *Engine) SubmitReport(sub ReportSubmission) (*types.Report, error) {
	if sub.Text == "" && sub.MediaURL == "" {
		return nil, fmt.Errorf("report needs text or media")
	}

	caseID := sub.CaseID
	if caseID == "" {
		caseID = ids.NewCaseID()
	}
	reportID := ids.NewReportID()
	if sub.Timestamp.IsZero() {
		sub.Timestamp = time.Now().UTC()
	}

	data := map[string]any{
		"text_body": sub.Text,
		"timestamp": sub.Timestamp.Format(time.RFC3339),
		"claims":    []any{},
	}
	if sub.MediaURL != "" {
		data["media_url"] = sub.MediaURL
	}
	if sub.Location != nil {
		loc := map[string]any{"lat": sub.Location.Lat, "lng": sub.Location.Lng}
		if sub.Location.Building != "" {
			loc["building"] = sub.Location.Building
		}
		data["location"] = loc
	}

	node, err := e.Store.AddNode(types.NodeKindReport, caseID, data)
	if err != nil {
		return nil, fmt.Errorf("failed to add report node: %w", err)
	}

	report := &types.Report{
		TextBody:  sub.Text,
		Location:  sub.Location,
		Timestamp: sub.Timestamp,
		MediaURL:  sub.MediaURL,
		Anonymous: sub.Anonymous,
		Contact:   sub.Contact,
		Status:    types.ReportStatusProcessing,
		CreatedAt: time.Now().UTC(),
	}
	e.Store.AddReport(caseID, reportID, report, node.ID)

	meta := e.Store.CaseMetadata(caseID)
	if meta["status"] == nil {
		e.Store.SetCaseMetadata(caseID, map[string]any{"status": string(types.CaseStatusActive)})
	}

	e.Bus.Emit(events.TopicReportReceived, map[string]any{
		"report_id": reportID,
		"case_id":   caseID,
		"node_id":   node.ID,
	})
	if e.Archive != nil {
		err := e.Archive.AppendAudit(types.AuditEntry{
			Actor:  "system",
			Action: "report_received",
			CaseID: caseID,
			Detail: reportID,
			At:     time.Now().UTC(),
		})
		if err != nil {
			log.WithComponent("engine").Warn().Err(err).Msg("Failed to append audit entry")
		}
	}

	log.WithCase(caseID).Info().
		Str("report_id", reportID).
		Bool("media", sub.MediaURL != "").
		Msg("Report received")

	out := e.Store.GetReport(reportID)
	return out, nil
}

// Quiesce waits until the controller has no queued or running tasks, or
// the timeout passes. Intended for tests and the seed path.
func (e *Engine) Quiesce(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if e.Controller.QueueLen() == 0 && e.Controller.ActiveLen() == 0 {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}
