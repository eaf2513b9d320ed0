/*
Package graph owns the authoritative in-process case graph and its
mutation-broadcast contract.

The Store is a single mutex-guarded aggregate: node map, edge map,
per-case report index (append-only, insertion order), per-case adjacency
index, case metadata and raw report payloads. Nothing persists; on
restart the graph is empty.

# Mutation Contract

AddNode, AddEdge and UpdateNode each produce exactly one mutation record,
delivered inside the mutating call while the mutex is held:

 1. to every caseboard stream subscriber, then
 2. to the controller's Notify hook.

Both sinks are enqueue-only, so holding the mutex across delivery is safe
and is precisely what guarantees that subscribers and the controller
observe records in mutation order. Validation failures (duplicate node
id, missing endpoint, cross-case edge) return an error and emit nothing.

UpdateNode merges, never replaces: keys in the patch overwrite, all other
keys survive. An empty patch still emits a record; external logic uses
that to re-trigger analysis.

Handed-out nodes and edges are deep copies. Mutating a returned value
changes nothing until it is resubmitted through a store operation.

DeleteNode exists for the HTTP maintenance boundary only. It cascades to
incident edges and fixes the indexes but emits no record, so it never
feeds the reactive engine.

# Subscribing

SubscribeCaseboard assembles the all-cases snapshot and queues it to the
new subscriber under the store mutex, making the snapshot and the
subsequent update stream gap-free: every mutation is either in the
snapshot or delivered as an update, never both, never neither.
*/
package graph
