package relationship

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"friendgraph/models"
)

func collectResolve(t *testing.T, r *Resolver, userID string, ids []string) map[string]models.RelationshipStatus {
	t.Helper()

	var mu sync.Mutex
	results := make(map[string]models.RelationshipStatus)
	batch := r.Resolve(context.Background(), userID, ids, func(id string, status models.RelationshipStatus) {
		mu.Lock()
		results[id] = status
		mu.Unlock()
	})

	select {
	case <-batch.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("resolve batch did not finish")
	}
	return results
}

func TestResolveDeliversAllCandidates(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	// alice has one outgoing, one incoming, one friendship
	outID, err := store.CreateRequest(ctx, "alice", "u1")
	require.NoError(t, err)
	inID, err := store.CreateRequest(ctx, "u2", "alice")
	require.NoError(t, err)
	fID, err := store.CreateRequest(ctx, "alice", "u3")
	require.NoError(t, err)
	require.NoError(t, store.AcceptRequest(ctx, fID))

	r := NewResolver(store, 4, time.Second)
	results := collectResolve(t, r, "alice", []string{"u1", "u2", "u3", "u4"})

	assert.Equal(t, models.Outgoing(outID), results["u1"])
	assert.Equal(t, models.Incoming(inID), results["u2"])
	assert.Equal(t, models.Friends(), results["u3"])
	assert.Equal(t, models.None(), results["u4"])
}

func TestResolveBoundedConcurrency(t *testing.T) {
	store := newFakeStore()
	store.lookupWait = 5 * time.Millisecond

	ids := make([]string, 37)
	for i := range ids {
		ids[i] = fmt.Sprintf("u%d", i)
	}

	r := NewResolver(store, 10, time.Second)
	results := collectResolve(t, r, "alice", ids)

	assert.Len(t, results, 37)
	assert.LessOrEqual(t, store.maxConcurrent(), 10)
	assert.Greater(t, store.maxConcurrent(), 1)
}

func TestResolveFailOpen(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	reqID, err := store.CreateRequest(ctx, "alice", "good")
	require.NoError(t, err)
	store.lookupErr["bad"] = ErrStoreUnavailable

	r := NewResolver(store, 2, time.Second)
	results := collectResolve(t, r, "alice", []string{"good", "bad", "other"})

	// the failed lookup resolves to none, the rest are unaffected
	assert.Equal(t, models.None(), results["bad"])
	assert.Equal(t, models.Outgoing(reqID), results["good"])
	assert.Equal(t, models.None(), results["other"])
}

func TestResolveStreamsResults(t *testing.T) {
	store := newFakeStore()
	store.lookupWait = 30 * time.Millisecond

	first := make(chan string, 4)
	r := NewResolver(store, 1, time.Second)
	batch := r.Resolve(context.Background(), "alice", []string{"u1", "u2", "u3", "u4"}, func(id string, _ models.RelationshipStatus) {
		first <- id
	})

	// with a concurrency of 1 the first result lands well before the batch
	// finishes
	select {
	case <-first:
	case <-batch.Done():
		t.Fatal("no result delivered before batch completion")
	case <-time.After(2 * time.Second):
		t.Fatal("no result delivered at all")
	}
	<-batch.Done()
}

func TestResolveCancelDiscardsInFlight(t *testing.T) {
	store := newFakeStore()
	store.lookupWait = 20 * time.Millisecond

	var mu sync.Mutex
	delivered := 0
	r := NewResolver(store, 2, time.Second)
	batch := r.Resolve(context.Background(), "alice", []string{"u1", "u2", "u3", "u4", "u5", "u6"}, func(string, models.RelationshipStatus) {
		mu.Lock()
		delivered++
		mu.Unlock()
	})

	batch.Cancel()

	mu.Lock()
	atCancel := delivered
	mu.Unlock()

	<-batch.Done()
	time.Sleep(50 * time.Millisecond)

	// nothing sneaks through after Cancel returns, in-flight included
	mu.Lock()
	assert.Equal(t, atCancel, delivered)
	mu.Unlock()
}

func TestResolveDeduplicatesCandidates(t *testing.T) {
	store := newFakeStore()

	r := NewResolver(store, 2, time.Second)
	results := collectResolve(t, r, "alice", []string{"u1", "u1", "", "u1"})

	assert.Len(t, results, 1)
	assert.Equal(t, 1, store.lookups())
}
