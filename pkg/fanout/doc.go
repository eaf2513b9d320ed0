/*
Package fanout delivers graph mutations and published alerts to live
stream subscribers.

Two independent streams exist at runtime:

	caseboard  one snapshot message on subscribe, then one graph_update
	           message per graph mutation, in mutation order
	alerts     one new_alert message per published alert

# Delivery Contract

Best-effort, in-order per subscriber, zero back-pressure on the producer.
Each subscriber owns a bounded outbound queue drained by a dedicated
writer goroutine. Publish enqueues and returns; it never waits for a
subscriber. A subscriber is dropped when

  - its queue overflows (it is not draining fast enough),
  - one Send exceeds the configured send timeout, or
  - Send returns an error.

Dropping closes the subscriber exactly once and removes it from the set.
The graph's correctness never depends on whether anyone is listening.
*/
package fanout
