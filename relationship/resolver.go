package relationship

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"friendgraph/models"
)

// Resolver fans out relationship lookups for a candidate set with bounded
// concurrency, delivering each result as it completes. Lookup failures are
// fail-open: the candidate resolves to None and the batch continues.
type Resolver struct {
	store   Store
	limit   int
	timeout time.Duration
}

func NewResolver(store Store, limit int, timeout time.Duration) *Resolver {
	if limit < 1 {
		limit = 1
	}
	return &Resolver{store: store, limit: limit, timeout: timeout}
}

// Batch is the cancellation handle for one in-flight resolution. Cancel
// stops new lookups and hard-discards in-flight results: once Cancel
// returns, onResult will not be invoked again, even for lookups that were
// already on the wire.
type Batch struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

func (b *Batch) Cancel() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.cancel()
}

// Done is closed when every candidate has been delivered or discarded.
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

func (b *Batch) deliver(onResult func(string, models.RelationshipStatus), userID string, status models.RelationshipStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	onResult(userID, status)
}

// Resolve starts resolving candidateIDs against currentUserID. Delivery
// order is arrival order, not request order; callers must index results by
// candidate id. Duplicate ids are resolved once.
func (r *Resolver) Resolve(ctx context.Context, currentUserID string, candidateIDs []string, onResult func(userID string, status models.RelationshipStatus)) *Batch {
	ctx, cancel := context.WithCancel(ctx)
	batch := &Batch{cancel: cancel, done: make(chan struct{})}

	seen := make(map[string]bool, len(candidateIDs))
	ids := make([]string, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	go func() {
		defer close(batch.done)
		defer cancel()

		sem := make(chan struct{}, r.limit)
		var wg sync.WaitGroup

		for _, id := range ids {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				wg.Wait()
				return
			}

			wg.Add(1)
			go func(userID string) {
				defer wg.Done()
				defer func() { <-sem }()

				batch.deliver(onResult, userID, r.lookup(ctx, currentUserID, userID))
			}(id)
		}

		wg.Wait()
	}()

	return batch
}

func (r *Resolver) lookup(ctx context.Context, currentUserID, otherID string) models.RelationshipStatus {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	status, err := r.store.GetStatus(ctx, currentUserID, otherID)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id":  currentUserID,
			"other_id": otherID,
		}).WithError(err).Debug("status lookup failed, resolving to none")
		return models.None()
	}
	return status
}
