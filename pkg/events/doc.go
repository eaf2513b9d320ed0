/*
Package events provides the in-memory event bus for Dead Drop's non-graph
domain events.

The bus carries events that are not graph mutations: ReportReceived after a
tip is accepted, edge:created after an officer links two nodes by hand,
AlertPublished after an alert goes out. Graph mutations take the dedicated
Graph Store to Controller path and never travel over the bus.

# Dispatch Model

Emit is fire-and-forget: the event is placed on a buffered dispatch channel
and the emitter returns immediately. A single dispatcher goroutine drains
the channel and fans each event out to the topic's registered handlers, one
goroutine per handler, with panic recovery. A handler that blocks or
panics delays nothing and nobody.

Subscribe is idempotent on (topic, subscriber name): registering the same
name twice replaces the handler instead of duplicating it.

# Usage

	bus := events.NewBus()
	bus.Start()
	defer bus.Stop()

	bus.Subscribe(events.TopicReportReceived, "triage", func(payload map[string]any) {
	    // react to the new report
	})

	bus.Emit(events.TopicReportReceived, map[string]any{
	    "case_id":   caseID,
	    "report_id": reportID,
	})

After Stop, Emit is a no-op. Delivery is best-effort: if the dispatch
buffer is full the event is dropped with a warning.
*/
package events
