package graph

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wolftrace/deaddrop/pkg/fanout"
	"github.com/wolftrace/deaddrop/pkg/ids"
	"github.com/wolftrace/deaddrop/pkg/log"
	"github.com/wolftrace/deaddrop/pkg/metrics"
	"github.com/wolftrace/deaddrop/pkg/types"
)

// Notifier receives every mutation record, after caseboard subscribers.
// Notify must be enqueue-only: it is invoked while the store mutex is
// held, so it must never call back into the store.
type Notifier interface {
	Notify(eventType string, mutation types.Mutation)
}

// Store owns the authoritative in-process case graph: node map, edge
// map, per-case report index, per-case adjacency index, case metadata
// and raw report payloads. Every operation is atomic under one mutex;
// every mutation produces exactly one record delivered first to the
// caseboard stream, then to the notifier, in mutation order.
type Store struct {
	mu          sync.Mutex
	nodes       map[string]*types.Node
	edges       map[string]*types.Edge
	caseReports map[string][]string               // case_id -> report_ids, insertion order
	caseOrder   []string                          // case ids in first-seen order
	reports     map[string]*types.Report          // report_id -> raw payload
	adjacency   map[string]map[string][]string    // case_id -> node_id -> incident edge ids
	metadata    map[string]map[string]any         // case_id -> metadata fields
	caseboard   *fanout.Stream
	notifier    Notifier
}

// NewStore creates an empty store. The caseboard stream may be nil in
// tests; the notifier is late-bound via SetNotifier because the
// controller needs the store to exist first.
func NewStore(caseboard *fanout.Stream) *Store {
	return &Store{
		nodes:       make(map[string]*types.Node),
		edges:       make(map[string]*types.Edge),
		caseReports: make(map[string][]string),
		reports:     make(map[string]*types.Report),
		adjacency:   make(map[string]map[string][]string),
		metadata:    make(map[string]map[string]any),
		caseboard:   caseboard,
	}
}

// SetNotifier wires the blackboard controller's notify hook
func (s *Store) SetNotifier(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

// AddNode creates a node with a generated id
func (s *Store) AddNode(kind types.NodeKind, caseID string, data map[string]any) (*types.Node, error) {
	return s.AddNodeWithID("", kind, caseID, data)
}

// AddNodeWithID creates a node under an explicit id (empty id means
// generate one). Rejects duplicate ids without emitting a record.
func (s *Store) AddNodeWithID(id string, kind types.NodeKind, caseID string, data map[string]any) (*types.Node, error) {
	if caseID == "" {
		return nil, fmt.Errorf("node requires a case id")
	}
	if id == "" {
		id = ids.NewNodeID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[id]; exists {
		metrics.MutationsRejected.Inc()
		return nil, fmt.Errorf("node %s already exists", id)
	}

	node := &types.Node{
		ID:        id,
		Kind:      kind,
		CaseID:    caseID,
		Data:      types.CloneData(data),
		CreatedAt: time.Now().UTC(),
	}
	if node.Data == nil {
		node.Data = make(map[string]any)
	}
	s.nodes[id] = node
	s.trackCaseLocked(caseID)

	metrics.GraphNodes.WithLabelValues(string(kind)).Inc()
	out := node.Clone()
	s.deliverLocked(types.Mutation{Action: types.MutationAddNode, Node: out})
	return out, nil
}

// AddEdge creates an edge between two existing nodes of the same case.
// Endpoint validation failures return an error and emit nothing.
func (s *Store) AddEdge(kind types.EdgeKind, sourceID, targetID string, data map[string]any) (*types.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.nodes[sourceID]
	if !ok {
		metrics.MutationsRejected.Inc()
		return nil, fmt.Errorf("edge source node %s not found", sourceID)
	}
	dst, ok := s.nodes[targetID]
	if !ok {
		metrics.MutationsRejected.Inc()
		return nil, fmt.Errorf("edge target node %s not found", targetID)
	}
	if src.CaseID != dst.CaseID {
		metrics.MutationsRejected.Inc()
		return nil, fmt.Errorf("cross-case edge rejected: %s is in %s, %s is in %s",
			sourceID, src.CaseID, targetID, dst.CaseID)
	}

	edge := &types.Edge{
		ID:        ids.NewEdgeID(),
		Kind:      kind,
		SourceID:  sourceID,
		TargetID:  targetID,
		CaseID:    src.CaseID,
		Data:      types.CloneData(data),
		CreatedAt: time.Now().UTC(),
	}
	if edge.Data == nil {
		edge.Data = make(map[string]any)
	}
	s.edges[edge.ID] = edge

	adj := s.adjacency[edge.CaseID]
	if adj == nil {
		adj = make(map[string][]string)
		s.adjacency[edge.CaseID] = adj
	}
	adj[sourceID] = append(adj[sourceID], edge.ID)
	adj[targetID] = append(adj[targetID], edge.ID)

	metrics.GraphEdges.WithLabelValues(string(kind)).Inc()
	out := edge.Clone()
	s.deliverLocked(types.Mutation{Action: types.MutationAddEdge, Edge: out})
	return out, nil
}

// UpdateNode merges patch into the node's data bag. Keys in patch
// overwrite; all other keys are preserved. An empty patch is a no-op on
// state but still produces a mutation record, which lets external logic
// re-trigger downstream analysis.
func (s *Store) UpdateNode(nodeID string, patch map[string]any) (*types.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[nodeID]
	if !ok {
		metrics.MutationsRejected.Inc()
		return nil, fmt.Errorf("node %s not found", nodeID)
	}

	for k, v := range types.CloneData(patch) {
		node.Data[k] = v
	}

	out := node.Clone()
	s.deliverLocked(types.Mutation{
		Action: types.MutationUpdateNode,
		Node:   out,
		Patch:  types.CloneData(patch),
	})
	return out, nil
}

// DeleteNode removes a node and its incident edges. This is a
// maintenance operation for the HTTP boundary: it produces no mutation
// record and never feeds the reactive engine.
func (s *Store) DeleteNode(nodeID string) (deletedEdges int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[nodeID]
	if !ok {
		return 0, fmt.Errorf("node %s not found", nodeID)
	}

	for id, e := range s.edges {
		if e.SourceID == nodeID || e.TargetID == nodeID {
			delete(s.edges, id)
			metrics.GraphEdges.WithLabelValues(string(e.Kind)).Dec()
			deletedEdges++
		}
	}
	if adj := s.adjacency[node.CaseID]; adj != nil {
		delete(adj, nodeID)
		for nid, edgeIDs := range adj {
			kept := edgeIDs[:0]
			for _, eid := range edgeIDs {
				if _, alive := s.edges[eid]; alive {
					kept = append(kept, eid)
				}
			}
			adj[nid] = kept
		}
	}
	delete(s.nodes, nodeID)
	metrics.GraphNodes.WithLabelValues(string(node.Kind)).Dec()
	return deletedEdges, nil
}

// GetNode returns a copy of the node, or nil
func (s *Store) GetNode(id string) *types.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nodes[id].Clone()
}

// GetEdge returns a copy of the edge, or nil
func (s *Store) GetEdge(id string) *types.Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.edges[id].Clone()
}

// ReportNodes returns the report nodes of a case, ordered by creation
func (s *Store) ReportNodes(caseID string) []*types.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Node
	for _, n := range s.nodes {
		if n.CaseID == caseID && n.Kind == types.NodeKindReport {
			out = append(out, n.Clone())
		}
	}
	sortNodes(out)
	return out
}

// NodesByKind returns a case's nodes of one kind, ordered by creation
func (s *Store) NodesByKind(caseID string, kind types.NodeKind) []*types.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Node
	for _, n := range s.nodes {
		if n.CaseID == caseID && n.Kind == kind {
			out = append(out, n.Clone())
		}
	}
	sortNodes(out)
	return out
}

// NodeEdges returns all edges incident to a node (outgoing and incoming)
func (s *Store) NodeEdges(nodeID string) []*types.Edge {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[nodeID]
	if !ok {
		return nil
	}
	var out []*types.Edge
	for _, eid := range s.adjacency[node.CaseID][nodeID] {
		if e, alive := s.edges[eid]; alive {
			out = append(out, e.Clone())
		}
	}
	sortEdges(out)
	return out
}

// CaseEdges returns all edges of a case, ordered by creation
func (s *Store) CaseEdges(caseID string) []*types.Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Edge
	for _, e := range s.edges {
		if e.CaseID == caseID {
			out = append(out, e.Clone())
		}
	}
	sortEdges(out)
	return out
}

// CaseSnapshot materializes one case: all nodes, all edges, metadata.
// Returns nil when the case has no nodes and no edges.
func (s *Store) CaseSnapshot(caseID string) *types.CaseSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caseSnapshotLocked(caseID)
}

// AllCases lists every known case with its counts and metadata
func (s *Store) AllCases() []types.CaseSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.CaseSummary, 0, len(s.caseOrder))
	for _, caseID := range s.caseOrder {
		summary := types.CaseSummary{
			CaseID:      caseID,
			ReportCount: len(s.caseReports[caseID]),
			Metadata:    types.CloneData(s.metadata[caseID]),
		}
		for _, n := range s.nodes {
			if n.CaseID == caseID {
				summary.NodeCount++
			}
		}
		for _, e := range s.edges {
			if e.CaseID == caseID {
				summary.EdgeCount++
			}
		}
		out = append(out, summary)
	}
	return out
}

// AddReport appends to the per-case report index and stores the raw
// payload. It does not create a node; callers AddNode first.
func (s *Store) AddReport(caseID, reportID string, report *types.Report, reportNodeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *report
	cp.CaseID = caseID
	cp.ReportID = reportID
	cp.NodeID = reportNodeID
	cp.Extra = types.CloneData(report.Extra)

	s.reports[reportID] = &cp
	s.caseReports[caseID] = append(s.caseReports[caseID], reportID)
	s.trackCaseLocked(caseID)
}

// CaseReportIDs returns the case's report ids in insertion order
func (s *Store) CaseReportIDs(caseID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.caseReports[caseID]))
	copy(out, s.caseReports[caseID])
	return out
}

// AllReports returns every raw report payload, insertion order per case
func (s *Store) AllReports() []*types.Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*types.Report
	for _, caseID := range s.caseOrder {
		for _, rid := range s.caseReports[caseID] {
			if r, ok := s.reports[rid]; ok {
				cp := *r
				cp.Extra = types.CloneData(r.Extra)
				out = append(out, &cp)
			}
		}
	}
	return out
}

// GetReport returns a raw report payload by id, or nil
func (s *Store) GetReport(reportID string) *types.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[reportID]
	if !ok {
		return nil
	}
	cp := *r
	cp.Extra = types.CloneData(r.Extra)
	return &cp
}

// SetCaseMetadata merges fields into the case's metadata
func (s *Store) SetCaseMetadata(caseID string, fields map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta := s.metadata[caseID]
	if meta == nil {
		meta = make(map[string]any)
		s.metadata[caseID] = meta
	}
	for k, v := range types.CloneData(fields) {
		meta[k] = v
	}
	s.trackCaseLocked(caseID)
}

// CaseMetadata returns a copy of the case's metadata, or nil
func (s *Store) CaseMetadata(caseID string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.CloneData(s.metadata[caseID])
}

// Stats returns aggregate counters over the whole store
func (s *Store) Stats() types.GraphStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := types.GraphStats{
		Nodes:       len(s.nodes),
		Edges:       len(s.edges),
		Cases:       len(s.caseOrder),
		Reports:     len(s.reports),
		NodesByKind: make(map[string]int),
		EdgesByKind: make(map[string]int),
	}
	for _, n := range s.nodes {
		stats.NodesByKind[string(n.Kind)]++
	}
	for _, e := range s.edges {
		stats.EdgesByKind[string(e.Kind)]++
	}
	return stats
}

// SubscribeCaseboard registers a caseboard subscriber. The initial
// snapshot of all cases is assembled and queued under the store mutex,
// so no mutation can fall between the snapshot and the update stream.
func (s *Store) SubscribeCaseboard(sub fanout.Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.caseboard == nil {
		return
	}
	snapshots := make([]*types.CaseSnapshot, 0, len(s.caseOrder))
	for _, caseID := range s.caseOrder {
		if snap := s.caseSnapshotLocked(caseID); snap != nil {
			snapshots = append(snapshots, snap)
		}
	}
	s.caseboard.Subscribe(sub, fanout.Message{Kind: fanout.KindSnapshot, Payload: snapshots})
}

// UnsubscribeCaseboard removes a caseboard subscriber
func (s *Store) UnsubscribeCaseboard(sub fanout.Subscriber) {
	if s.caseboard != nil {
		s.caseboard.Unsubscribe(sub)
	}
}

// deliverLocked fans a mutation record out in contract order: caseboard
// subscribers first, then the controller. Called with the mutex held,
// which is what keeps records in mutation order at both sinks; neither
// sink blocks (the stream enqueues, the controller enqueues).
func (s *Store) deliverLocked(m types.Mutation) {
	metrics.MutationsTotal.WithLabelValues(string(m.Action)).Inc()

	if s.caseboard != nil {
		s.caseboard.Publish(fanout.Message{
			Kind:    fanout.KindGraphUpdate,
			Action:  string(m.Action),
			Payload: m.Payload(),
		})
	}
	if s.notifier != nil {
		s.notifier.Notify(m.EventType(), m)
	}
}

func (s *Store) trackCaseLocked(caseID string) {
	for _, c := range s.caseOrder {
		if c == caseID {
			return
		}
	}
	s.caseOrder = append(s.caseOrder, caseID)
	metrics.CasesTotal.Set(float64(len(s.caseOrder)))
	log.WithCase(caseID).Debug().Msg("new case opened")
}

func (s *Store) caseSnapshotLocked(caseID string) *types.CaseSnapshot {
	var nodes []*types.Node
	for _, n := range s.nodes {
		if n.CaseID == caseID {
			nodes = append(nodes, n.Clone())
		}
	}
	var edges []*types.Edge
	for _, e := range s.edges {
		if e.CaseID == caseID {
			edges = append(edges, e.Clone())
		}
	}
	if len(nodes) == 0 && len(edges) == 0 {
		return nil
	}
	sortNodes(nodes)
	sortEdges(edges)
	return &types.CaseSnapshot{
		CaseID:   caseID,
		Nodes:    nodes,
		Edges:    edges,
		Metadata: types.CloneData(s.metadata[caseID]),
	}
}

func sortNodes(nodes []*types.Node) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].CreatedAt.Equal(nodes[j].CreatedAt) {
			return nodes[i].ID < nodes[j].ID
		}
		return nodes[i].CreatedAt.Before(nodes[j].CreatedAt)
	})
}

func sortEdges(edges []*types.Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].CreatedAt.Equal(edges[j].CreatedAt) {
			return edges[i].ID < edges[j].ID
		}
		return edges[i].CreatedAt.Before(edges[j].CreatedAt)
	})
}
