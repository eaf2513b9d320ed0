package types

import (
	"time"
)

// Node is a single vertex in a case graph: a report, a media variant,
// a fact-check result, or an external source reference.
type Node struct {
	ID        string         `json:"id"`
	Kind      NodeKind       `json:"kind"`
	CaseID    string         `json:"case_id"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
}

// NodeKind defines what a graph node represents
type NodeKind string

const (
	NodeKindReport         NodeKind = "report"
	NodeKindExternalSource NodeKind = "external_source"
	NodeKindFactCheck      NodeKind = "fact_check"
	NodeKindMediaVariant   NodeKind = "media_variant"
)

// Edge is a directed, typed connection between two nodes of the same case.
// Edges are created once and never updated.
type Edge struct {
	ID        string         `json:"id"`
	Kind      EdgeKind       `json:"kind"`
	SourceID  string         `json:"source_id"`
	TargetID  string         `json:"target_id"`
	CaseID    string         `json:"case_id"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
}

// EdgeKind defines the relationship an edge expresses
type EdgeKind string

const (
	EdgeKindSimilarTo   EdgeKind = "similar_to"
	EdgeKindRepostOf    EdgeKind = "repost_of"
	EdgeKindMutationOf  EdgeKind = "mutation_of"
	EdgeKindDebunkedBy  EdgeKind = "debunked_by"
	EdgeKindAmplifiedBy EdgeKind = "amplified_by"
)

// SemanticRole classifies how a report relates to the spread of a story
type SemanticRole string

const (
	RoleOriginator      SemanticRole = "originator"
	RoleAmplifier       SemanticRole = "amplifier"
	RoleMutator         SemanticRole = "mutator"
	RoleUnwittingSharer SemanticRole = "unwitting_sharer"
)

// Location is a point on campus, optionally labeled with a building name
type Location struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Building string  `json:"building,omitempty"`
}

// Claim is a single checkable statement extracted from a report
type Claim struct {
	Statement string `json:"statement"`
}

// Report is the raw submitted tip payload, kept per case alongside the graph
type Report struct {
	CaseID    string         `json:"case_id"`
	ReportID  string         `json:"report_id"`
	NodeID    string         `json:"node_id,omitempty"`
	TextBody  string         `json:"text_body"`
	Location  *Location      `json:"location,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	MediaURL  string         `json:"media_url,omitempty"`
	Anonymous bool           `json:"anonymous"`
	Contact   string         `json:"contact,omitempty"`
	Status    ReportStatus   `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// ReportStatus tracks a report through intake
type ReportStatus string

const (
	ReportStatusPending    ReportStatus = "pending"
	ReportStatusProcessing ReportStatus = "processing"
	ReportStatusTriaged    ReportStatus = "triaged"
)

// CaseStatus is officer-facing case state, stored in case metadata
type CaseStatus string

const (
	CaseStatusPending  CaseStatus = "pending"
	CaseStatusActive   CaseStatus = "active"
	CaseStatusVerified CaseStatus = "verified"
	CaseStatusDebunked CaseStatus = "debunked"
	CaseStatusResolved CaseStatus = "resolved"
	CaseStatusClosed   CaseStatus = "closed"
)

// CaseSummary is the per-case row returned by case listings
type CaseSummary struct {
	CaseID      string         `json:"case_id"`
	NodeCount   int            `json:"node_count"`
	EdgeCount   int            `json:"edge_count"`
	ReportCount int            `json:"report_count"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// CaseSnapshot is the full materialized view of one case
type CaseSnapshot struct {
	CaseID   string         `json:"case_id"`
	Nodes    []*Node        `json:"nodes"`
	Edges    []*Edge        `json:"edges"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Alert is an officer-approved public safety broadcast
type Alert struct {
	ID              string      `json:"id"`
	CaseID          string      `json:"case_id"`
	Text            string      `json:"text"`
	Status          AlertStatus `json:"status"`
	LocationSummary string      `json:"location_summary,omitempty"`
	AudioURL        string      `json:"audio_url,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

// AlertStatus is the publication state of an alert
type AlertStatus string

const (
	AlertStatusDraft     AlertStatus = "draft"
	AlertStatusPublished AlertStatus = "published"
	AlertStatusRetracted AlertStatus = "retracted"
)

// AuditEntry records one officer or system action for the audit trail
type AuditEntry struct {
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	CaseID string    `json:"case_id,omitempty"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// GraphStats are aggregate counters over the whole store
type GraphStats struct {
	Nodes       int            `json:"nodes"`
	Edges       int            `json:"edges"`
	Cases       int            `json:"cases"`
	Reports     int            `json:"reports"`
	NodesByKind map[string]int `json:"nodes_by_kind"`
	EdgesByKind map[string]int `json:"edges_by_kind"`
}
