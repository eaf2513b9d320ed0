package types

// MutationAction identifies which graph operation produced a record
type MutationAction string

const (
	MutationAddNode    MutationAction = "add_node"
	MutationAddEdge    MutationAction = "add_edge"
	MutationUpdateNode MutationAction = "update_node"
)

// Mutation is the record produced atomically with every graph change.
// AddNode and UpdateNode carry the full node (after merge, for updates);
// AddEdge carries the new edge. Patch holds the merged keys of an update.
type Mutation struct {
	Action MutationAction `json:"action"`
	Node   *Node          `json:"node,omitempty"`
	Edge   *Edge          `json:"edge,omitempty"`
	Patch  map[string]any `json:"patch,omitempty"`
}

// CaseID returns the case the mutation belongs to, or "" if it cannot
// be determined.
func (m Mutation) CaseID() string {
	switch {
	case m.Node != nil:
		return m.Node.CaseID
	case m.Edge != nil:
		return m.Edge.CaseID
	}
	return ""
}

// EventType derives the controller trigger event for this record:
// node:{kind} for added nodes, edge:{kind} for added edges and
// update:{kind} for node updates.
func (m Mutation) EventType() string {
	switch m.Action {
	case MutationAddNode:
		if m.Node != nil {
			return "node:" + string(m.Node.Kind)
		}
	case MutationAddEdge:
		if m.Edge != nil {
			return "edge:" + string(m.Edge.Kind)
		}
	case MutationUpdateNode:
		if m.Node != nil {
			return "update:" + string(m.Node.Kind)
		}
	}
	return ""
}

// Payload returns the post-mutation object carried by the record.
func (m Mutation) Payload() any {
	if m.Edge != nil {
		return m.Edge
	}
	if m.Node != nil {
		return m.Node
	}
	return nil
}
