/*
Package log provides structured logging for Dead Drop using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper
functions for common patterns. All logs include timestamps and support
filtering by severity for production debugging.

# Architecture

A single package-level logger is initialized once via log.Init() and shared
by every component. Child loggers add routing context:

	WithComponent("blackboard")   component=blackboard on every line
	WithCase("CASE-Velvet-...")   case_id field for per-case tracing
	WithSource("clustering")      knowledge-source field
	WithStream("caseboard")       fan-out stream field

# Usage

Initializing the logger:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

Simple logging:

	log.Info("engine started")
	log.Warn("trigger cap reached")

Structured logging:

	log.Logger.Info().
		Str("case_id", caseID).
		Str("source", src.Name).
		Dur("elapsed", elapsed).
		Msg("knowledge source completed")

Component loggers:

	ctl := log.WithComponent("blackboard")
	ctl.Debug().Str("event", eventType).Msg("notify")

# Log Output Examples

JSON format (production):

	{"level":"info","component":"blackboard","case_id":"CASE-Iron-Drop-4417","source":"clustering","time":"2026-02-07T23:52:00Z","message":"knowledge source completed"}

Console format (development):

	23:52:00 INF knowledge source completed component=blackboard source=clustering

# Integration Points

  - pkg/engine: lifecycle and composition logging
  - pkg/blackboard: scheduling decisions, cap warnings, handler failures
  - pkg/graph: rejected mutations
  - pkg/fanout: subscriber lifecycle and drops
  - pkg/sources: per-source progress and external-service fallbacks
  - pkg/api: request logging middleware

Never log report contact details; tips are anonymous by contract and the
submitter's contact field is only ever written to the audit trail actor
column when the submitter opted out of anonymity.
*/
package log
