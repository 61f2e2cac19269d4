// Package annotations provides a low-overhead event system for tracing
// what each compilation stage decided and how long it took.
package annotations

import (
	"sync"
	"time"
)

// Event name constants following hierarchical naming pattern
const (
	// Compilation lifecycle
	CompileInvoked  = "compile/invoked"
	CompileComplete = "compile/completed"

	// Rule ingestion
	IngestRuleAccepted = "ingest/rule.accepted"
	IngestComplete     = "ingest/completed"

	// Stratification
	StratifyRelocated = "stratify/relocated"
	StratifyComplete  = "stratify/completed"

	// Evaluation ordering
	OrderComputed = "order/computed"

	// Equation and view compilation
	ViewMinted       = "equations/view.minted"
	AliasRenamed     = "equations/alias.renamed"
	StratumCompiled  = "equations/stratum.compiled"
	SolutionComputed = "equations/solution.computed"

	// Plan caching
	CacheHit  = "cache/hit"
	CacheMiss = "cache/miss"

	// Errors
	ErrorCompile = "error/compile"
)

// Event represents a single annotation event during compilation.
type Event struct {
	Name    string                 // Event name using hierarchical constants above
	Start   time.Time              // Start timestamp
	End     time.Time              // End timestamp
	Latency time.Duration          // Duration (End - Start)
	Data    map[string]interface{} // Additional event-specific data
}

// Handler processes annotation events as they occur.
type Handler func(event Event)

// Collector accumulates events during a compilation.
// A nil *Collector is valid and discards everything.
type Collector struct {
	enabled bool
	handler Handler
	events  []Event
	mu      sync.Mutex
}

// NewCollector creates a new annotation collector.
func NewCollector(handler Handler) *Collector {
	return &Collector{
		enabled: handler != nil,
		handler: handler,
		events:  make([]Event, 0, 64),
	}
}

// Enabled reports whether events are being recorded
func (c *Collector) Enabled() bool {
	return c != nil && c.enabled
}

// Add records a new event.
func (c *Collector) Add(event Event) {
	if !c.Enabled() {
		return
	}

	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()

	// Call handler outside the lock to avoid deadlocks
	c.handler(event)
}

// AddTiming records an event with timing information.
func (c *Collector) AddTiming(name string, start time.Time, data map[string]interface{}) {
	if !c.Enabled() {
		return
	}

	end := time.Now()
	c.Add(Event{
		Name:    name,
		Start:   start,
		End:     end,
		Latency: end.Sub(start),
		Data:    data,
	})
}

// Events returns all collected events.
func (c *Collector) Events() []Event {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	eventsCopy := make([]Event, len(c.events))
	copy(eventsCopy, c.events)
	return eventsCopy
}

// Reset clears the collector for reuse.
func (c *Collector) Reset() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = c.events[:0]
}
