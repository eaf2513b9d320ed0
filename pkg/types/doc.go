/*
Package types defines the core data structures used throughout Dead Drop.

This package contains the domain model shared by every other package: case
graph nodes and edges, mutation records, raw report payloads, alerts and
audit entries. It has no dependencies beyond the standard library so that
any package can import it freely.

# Data Model

A case is implicit: the set of all nodes and edges sharing a case_id, plus
optional metadata (label, status, summary). Nodes carry a freeform data bag
because different kinds hold different fields:

	report           text_body, location, timestamp, media_url, claims,
	                 urgency, debunk_count, semantic_role, narrative
	media_variant    media_url, phash
	fact_check       claim_text, rating, reviewer, url
	external_source  search_query, platform, url, status

The accessors in data.go (Timestamp, Location, Claims, DebunkCount, Role)
give typed views over the bag and tolerate absent or malformed values, so
knowledge sources never panic on foreign payloads.

# Mutation Records

Every graph change produces exactly one Mutation, tagged with its action:

	add_node     Node carries the new node
	add_edge     Edge carries the new edge
	update_node  Node carries the full node after merge, Patch the delta

Mutation.EventType derives the blackboard trigger string from the record
(node:report, edge:similar_to, update:report, ...); Mutation.CaseID extracts
the owning case. The controller classifies records by these two values
without ever modifying them.

# Copy Discipline

Nodes and edges handed across a mutation boundary are deep copies
(Node.Clone, Edge.Clone, CloneData). Holding a returned *Node never aliases
store-internal state; writing to it has no effect until the change is
submitted through a graph store operation.

# Enumeration Pattern

All enums use typed string constants:

	type NodeKind string
	const (
	    NodeKindReport NodeKind = "report"
	    ...
	)

String values double as the wire representation, so JSON marshaling needs
no translation layer.
*/
package types
