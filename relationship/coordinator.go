package relationship

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"friendgraph/models"
)

// SearchState is the coordinator's position in the query lifecycle.
type SearchState string

const (
	SearchIdle       SearchState = "idle"
	SearchDebouncing SearchState = "debouncing"
	SearchSearching  SearchState = "searching"
	SearchResolving  SearchState = "resolving"
)

// Event types emitted on the coordinator's channel.
const (
	EventResult  = "result"
	EventCleared = "cleared"
	EventDone    = "done"
	EventError   = "error"
)

// SearchEvent is one generation-tagged emission from a live search. A
// consumer that tracks the highest generation it has seen can drop stale
// events by comparing tags; the coordinator itself already refuses to emit
// events from a superseded generation.
type SearchEvent struct {
	Type       string                    `json:"type"`
	Generation uint64                    `json:"generation"`
	User       models.UserSummary        `json:"user,omitempty"`
	Status     models.RelationshipStatus `json:"status,omitempty"`
	Error      string                    `json:"error,omitempty"`
}

// Coordinator turns a rapidly changing text query into exactly one live
// resolution pipeline. Each new query supersedes the previous one: the
// debounce timer is stopped, the in-flight directory call is canceled and
// the in-flight resolver batch is hard-discarded. Empty queries short-
// circuit straight to idle without touching the directory.
type Coordinator struct {
	directory     Directory
	resolver      *Resolver
	debounce      time.Duration
	currentUserID string

	events chan SearchEvent

	mu         sync.Mutex
	generation uint64
	state      SearchState
	timer      *time.Timer
	cancelFn   context.CancelFunc
	batch      *Batch
	closed     bool
}

func NewCoordinator(directory Directory, resolver *Resolver, debounce time.Duration, currentUserID string) *Coordinator {
	return &Coordinator{
		directory:     directory,
		resolver:      resolver,
		debounce:      debounce,
		currentUserID: currentUserID,
		events:        make(chan SearchEvent, 256),
		state:         SearchIdle,
	}
}

// Events is the stream of generation-tagged results for this coordinator.
func (c *Coordinator) Events() <-chan SearchEvent {
	return c.events
}

func (c *Coordinator) State() SearchState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Query supersedes any in-flight pipeline and starts a new one for q.
func (c *Coordinator) Query(q string) {
	q = strings.TrimSpace(q)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.generation++
	gen := c.generation
	timer, cancelFn, batch := c.takeCurrentLocked()

	if q == "" {
		c.state = SearchIdle
		c.mu.Unlock()
		c.supersede(timer, cancelFn, batch)
		c.emit(SearchEvent{Type: EventCleared, Generation: gen})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelFn = cancel
	c.state = SearchDebouncing
	c.timer = time.AfterFunc(c.debounce, func() {
		c.run(ctx, gen, q)
	})
	c.mu.Unlock()

	c.supersede(timer, cancelFn, batch)
}

// Close cancels any in-flight pipeline and closes the event channel.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.state = SearchIdle
	timer, cancelFn, batch := c.takeCurrentLocked()
	c.mu.Unlock()

	c.supersede(timer, cancelFn, batch)
	close(c.events)
}

// takeCurrentLocked detaches the current pipeline's resources so they can be
// torn down outside the lock. The resolver batch takes its own lock during
// delivery, so canceling it while holding c.mu would invert lock order.
func (c *Coordinator) takeCurrentLocked() (*time.Timer, context.CancelFunc, *Batch) {
	timer, cancelFn, batch := c.timer, c.cancelFn, c.batch
	c.timer, c.cancelFn, c.batch = nil, nil, nil
	return timer, cancelFn, batch
}

func (c *Coordinator) supersede(timer *time.Timer, cancelFn context.CancelFunc, batch *Batch) {
	if timer != nil {
		timer.Stop()
	}
	if cancelFn != nil {
		cancelFn()
	}
	if batch != nil {
		batch.Cancel()
	}
}

// run executes one pipeline after its debounce window elapsed uninterrupted.
func (c *Coordinator) run(ctx context.Context, gen uint64, q string) {
	c.mu.Lock()
	if c.closed || gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.state = SearchSearching
	c.mu.Unlock()

	users, err := c.directory.Search(ctx, c.currentUserID, q)
	if err != nil {
		if ctx.Err() != nil {
			return // superseded mid-flight
		}
		logrus.WithField("query", q).WithError(err).Warn("directory search failed")
		c.finish(gen, SearchEvent{Type: EventError, Generation: gen, Error: "search failed"})
		return
	}

	if len(users) == 0 {
		c.finish(gen, SearchEvent{Type: EventDone, Generation: gen})
		return
	}

	byID := make(map[string]models.UserSummary, len(users))
	ids := make([]string, 0, len(users))
	for _, u := range users {
		byID[u.ID] = u
		ids = append(ids, u.ID)
	}

	c.mu.Lock()
	if c.closed || gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.state = SearchResolving
	batch := c.resolver.Resolve(ctx, c.currentUserID, ids, func(userID string, status models.RelationshipStatus) {
		c.emit(SearchEvent{Type: EventResult, Generation: gen, User: byID[userID], Status: status})
	})
	c.batch = batch
	c.mu.Unlock()

	go func() {
		select {
		case <-batch.Done():
			c.finish(gen, SearchEvent{Type: EventDone, Generation: gen})
		case <-ctx.Done():
		}
	}()
}

// finish emits a terminal event for gen and returns the coordinator to idle
// if gen is still the live generation.
func (c *Coordinator) finish(gen uint64, ev SearchEvent) {
	c.mu.Lock()
	if !c.closed && gen == c.generation {
		c.state = SearchIdle
	}
	c.mu.Unlock()
	c.emit(ev)
}

// emit delivers ev unless its generation has been superseded. The channel
// send is non-blocking; a consumer that stopped draining loses events rather
// than wedging the pipeline.
func (c *Coordinator) emit(ev SearchEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || ev.Generation != c.generation {
		return
	}
	select {
	case c.events <- ev:
	default:
		logrus.WithField("generation", ev.Generation).Warn("search event dropped, consumer not draining")
	}
}
