package blackboard

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wolftrace/deaddrop/pkg/log"
	"github.com/wolftrace/deaddrop/pkg/metrics"
	"github.com/wolftrace/deaddrop/pkg/types"
)

// HandlerFunc is a knowledge source's entry point. It reads the graph
// and produces further mutations through the store; those mutations
// re-enter the controller as new trigger events.
type HandlerFunc func(ctx context.Context, mutation types.Mutation) error

// ConditionFunc is an extra gate evaluated before enqueueing
type ConditionFunc func(mutation types.Mutation) bool

// Source is one registered knowledge source
type Source struct {
	Name         string
	Priority     Priority
	TriggerTypes []string
	Handler      HandlerFunc
	Condition    ConditionFunc
	// Cooldown is the minimum gap between consecutive runs on the same
	// case. Zero means use the controller default.
	Cooldown time.Duration
}

func (s *Source) triggersOn(eventType string) bool {
	for _, t := range s.TriggerTypes {
		if t == eventType {
			return true
		}
	}
	return false
}

// Config tunes the controller
type Config struct {
	// MaxTriggersPerCase is the anti-loop cap: the total number of
	// tasks one case may enqueue. A case at the cap is quiesced.
	MaxTriggersPerCase int

	// DefaultCooldown applies to sources registered with Cooldown == 0.
	DefaultCooldown time.Duration

	// HandlerTimeout bounds one handler invocation. Zero disables.
	HandlerTimeout time.Duration

	// WorkerConcurrency is the number of worker goroutines draining
	// the queue. The dedup invariant (at most one (source, case) in
	// flight) holds for any value.
	WorkerConcurrency int

	// TriggerResetAfter re-arms a quiesced case's trigger budget after
	// it has seen no controller activity for this long. Zero disables
	// the reset: a case that exhausts its budget stays quiesced.
	TriggerResetAfter time.Duration
}

// DefaultConfig returns the documented defaults
func DefaultConfig() Config {
	return Config{
		MaxTriggersPerCase: 10,
		DefaultCooldown:    2 * time.Second,
		HandlerTimeout:     30 * time.Second,
		WorkerConcurrency:  1,
		TriggerResetAfter:  0,
	}
}

type sourceCaseKey struct {
	source string
	caseID string
}

// panicError marks a recovered handler panic
type panicError struct {
	value any
}

func (p *panicError) Error() string {
	return fmt.Sprintf("handler panic: %v", p.value)
}

// Controller schedules knowledge sources in response to graph mutation
// records. Notify is synchronous and enqueue-only; worker goroutines
// drain the priority queue and run handlers under a timeout, with
// bookkeeping guaranteed regardless of how a handler exits.
type Controller struct {
	cfg Config

	mu           sync.Mutex
	cond         *sync.Cond
	sources      []*Source
	queue        taskHeap
	seq          uint64
	active       map[sourceCaseKey]struct{}
	lastRun      map[sourceCaseKey]time.Time
	triggerCount map[string]int
	lastActivity map[string]time.Time
	capWarned    map[string]bool
	stopping     bool
	started      bool

	wg        sync.WaitGroup
	janitorCh chan struct{}
}

// NewController creates a controller; sources are registered before
// Start.
func NewController(cfg Config) *Controller {
	c := &Controller{
		cfg:          cfg,
		active:       make(map[sourceCaseKey]struct{}),
		lastRun:      make(map[sourceCaseKey]time.Time),
		triggerCount: make(map[string]int),
		lastActivity: make(map[string]time.Time),
		capWarned:    make(map[string]bool),
		janitorCh:    make(chan struct{}),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Register adds a knowledge source. Names must be unique; registration
// happens before Start.
func (c *Controller) Register(src Source) error {
	if src.Name == "" {
		return fmt.Errorf("knowledge source requires a name")
	}
	if src.Handler == nil {
		return fmt.Errorf("knowledge source %s requires a handler", src.Name)
	}
	if src.Cooldown == 0 {
		src.Cooldown = c.cfg.DefaultCooldown
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.sources {
		if existing.Name == src.Name {
			return fmt.Errorf("knowledge source %s already registered", src.Name)
		}
	}
	c.sources = append(c.sources, &src)
	return nil
}

// SourceCount returns the number of registered sources
func (c *Controller) SourceCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sources)
}

// Start launches the worker pool and, when configured, the trigger
// budget janitor.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	workers := c.cfg.WorkerConcurrency
	if workers < 1 {
		workers = 1
	}
	c.mu.Unlock()

	for i := 0; i < workers; i++ {
		c.wg.Add(1)
		go c.worker(i)
	}
	if c.cfg.TriggerResetAfter > 0 {
		c.wg.Add(1)
		go c.janitor()
	}
	log.WithComponent("blackboard").Info().
		Int("sources", c.SourceCount()).
		Int("workers", workers).
		Msg("blackboard controller started")
}

// Stop stops dequeueing, lets the tasks in hand finish (bounded by the
// handler timeout), clears the queue and the active set, and returns
// once every worker has exited.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.started || c.stopping {
		c.mu.Unlock()
		return
	}
	c.stopping = true
	c.queue = nil
	metrics.QueueDepth.Set(0)
	c.cond.Broadcast()
	c.mu.Unlock()

	close(c.janitorCh)
	c.wg.Wait()

	c.mu.Lock()
	c.active = make(map[sourceCaseKey]struct{})
	c.mu.Unlock()
	log.WithComponent("blackboard").Info().Msg("blackboard controller stopped")
}

// Notify is invoked by the graph store on every mutation, synchronously
// and with the store mutex held. It classifies the record, applies the
// anti-loop cap, condition, dedup and cooldown gates, and enqueues the
// surviving sources. It never blocks and never runs a handler inline.
func (c *Controller) Notify(eventType string, mutation types.Mutation) {
	caseID := mutation.CaseID()
	if caseID == "" || eventType == "" {
		return
	}
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopping {
		return
	}
	c.lastActivity[caseID] = now

	if c.triggerCount[caseID] >= c.cfg.MaxTriggersPerCase {
		metrics.TriggersSuppressed.WithLabelValues(metrics.SuppressCap).Inc()
		if !c.capWarned[caseID] {
			c.capWarned[caseID] = true
			log.WithCase(caseID).Warn().
				Int("cap", c.cfg.MaxTriggersPerCase).
				Msg("trigger cap reached, case quiesced")
		}
		return
	}

	for _, src := range c.sources {
		if c.triggerCount[caseID] >= c.cfg.MaxTriggersPerCase {
			metrics.TriggersSuppressed.WithLabelValues(metrics.SuppressCap).Inc()
			break
		}
		if !src.triggersOn(eventType) {
			continue
		}
		if src.Condition != nil && !src.Condition(mutation) {
			metrics.TriggersSuppressed.WithLabelValues(metrics.SuppressCondition).Inc()
			continue
		}
		key := sourceCaseKey{source: src.Name, caseID: caseID}
		if _, running := c.active[key]; running {
			metrics.TriggersSuppressed.WithLabelValues(metrics.SuppressActive).Inc()
			continue
		}
		if now.Sub(c.lastRun[key]) < src.Cooldown {
			metrics.TriggersSuppressed.WithLabelValues(metrics.SuppressCooldown).Inc()
			continue
		}

		c.seq++
		heap.Push(&c.queue, &task{
			priority:  src.Priority,
			seq:       c.seq,
			source:    src,
			caseID:    caseID,
			eventType: eventType,
			mutation:  mutation,
		})
		c.active[key] = struct{}{}
		c.triggerCount[caseID]++
		metrics.TasksScheduled.WithLabelValues(src.Name).Inc()
		metrics.QueueDepth.Set(float64(c.queue.Len()))
	}
	c.cond.Broadcast()
}

// QueueLen returns the number of waiting tasks
func (c *Controller) QueueLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Len()
}

// ActiveLen returns the number of (source, case) pairs in flight
func (c *Controller) ActiveLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active)
}

// TriggerCount returns how many tasks a case has enqueued so far
func (c *Controller) TriggerCount(caseID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.triggerCount[caseID]
}

// worker pops the lowest (priority, seq) task and runs it. Blocks on
// the condition variable while the queue is empty.
func (c *Controller) worker(id int) {
	defer c.wg.Done()
	logger := log.WithComponent("blackboard")

	for {
		t, ok := c.next()
		if !ok {
			return
		}
		logger.Debug().
			Str("source", t.source.Name).
			Str("case_id", t.caseID).
			Str("event", t.eventType).
			Int("worker", id).
			Msg("running knowledge source")
		c.execute(t)
	}
}

func (c *Controller) next() (*task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.queue.Len() == 0 && !c.stopping {
		c.cond.Wait()
	}
	if c.stopping {
		return nil, false
	}
	t := heap.Pop(&c.queue).(*task)
	metrics.QueueDepth.Set(float64(c.queue.Len()))
	return t, true
}

// execute runs one task under the handler timeout. The deferred block
// records last run time, clears the active entry and touches case
// activity no matter how the handler exits: error, timeout or panic.
func (c *Controller) execute(t *task) {
	start := time.Now()
	outcome := metrics.OutcomeOK

	defer func() {
		now := time.Now()
		c.mu.Lock()
		key := sourceCaseKey{source: t.source.Name, caseID: t.caseID}
		c.lastRun[key] = now
		delete(c.active, key)
		c.lastActivity[t.caseID] = now
		c.mu.Unlock()

		metrics.TasksCompleted.WithLabelValues(t.source.Name, outcome).Inc()
		metrics.TaskDuration.WithLabelValues(t.source.Name).Observe(now.Sub(start).Seconds())
	}()

	ctx := context.Background()
	var cancel context.CancelFunc
	if c.cfg.HandlerTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.cfg.HandlerTimeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- &panicError{value: r}
			}
		}()
		done <- t.source.Handler(ctx, t.mutation)
	}()

	select {
	case err := <-done:
		if err != nil {
			outcome = metrics.OutcomeError
			var pe *panicError
			if errors.As(err, &pe) {
				outcome = metrics.OutcomePanic
			}
			log.WithSource(t.source.Name).Error().
				Err(err).
				Str("case_id", t.caseID).
				Msg("knowledge source failed")
		}
	case <-ctx.Done():
		outcome = metrics.OutcomeTimeout
		log.WithSource(t.source.Name).Warn().
			Str("case_id", t.caseID).
			Dur("timeout", c.cfg.HandlerTimeout).
			Msg("knowledge source timed out, cancelled")
	}
}

// janitor re-arms trigger budgets for cases idle longer than the
// configured reset interval.
func (c *Controller) janitor() {
	defer c.wg.Done()
	tick := c.cfg.TriggerResetAfter / 2
	if tick < time.Millisecond {
		tick = time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.resetIdleCases()
		case <-c.janitorCh:
			return
		}
	}
}

func (c *Controller) resetIdleCases() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for caseID, last := range c.lastActivity {
		if c.triggerCount[caseID] == 0 {
			continue
		}
		if now.Sub(last) >= c.cfg.TriggerResetAfter {
			log.WithCase(caseID).Info().Msg("idle case, trigger budget re-armed")
			delete(c.triggerCount, caseID)
			delete(c.capWarned, caseID)
		}
	}
}
