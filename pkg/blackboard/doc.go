/*
Package blackboard implements the priority-driven controller that runs
knowledge sources against the shared case graph.

The graph store calls Notify on every mutation record, synchronously and
with its mutex held. Notify is enqueue-only: it derives the trigger event
type, then for each registered source applies, in order,

 1. the per-case anti-loop cap (MaxTriggersPerCase; at the cap the case
    is quiesced with a single warning),
 2. the trigger type match,
 3. the optional condition predicate,
 4. dedup on (source, case): at most one instance in flight,
 5. the per-source cooldown against the last completed run.

Survivors are pushed onto a binary heap ordered by (priority, seq);
seq is a monotonic counter, so equal priorities drain strictly FIFO.

Worker goroutines (WorkerConcurrency, default 1) pop the lowest task and
run its handler under HandlerTimeout. Bookkeeping is deferred: last run
time is recorded, the active entry cleared and case activity touched
whether the handler returned, errored, timed out or panicked. Failures
are logged and never retried; a failing handler cannot poison its case.

Stop halts dequeueing, clears the queue, lets the tasks in hand finish
(bounded by the handler timeout) and leaves the active set empty.

Quiescence: every handler mutation may re-enter Notify, but the cap
bounds total tasks per case and cooldowns bound the re-trigger rate, so
every case reaches a fixed point in finite time. When TriggerResetAfter
is set, a janitor re-arms the budget of cases with no activity for that
interval; by default a capped case stays quiesced.
*/
package blackboard
