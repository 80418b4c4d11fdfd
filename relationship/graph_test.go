package relationship

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"friendgraph/models"
)

func newTestGraph(store *fakeStore) *Graph {
	return NewGraph(store, store, Config{
		ResolveConcurrency: 4,
		ResolveTimeout:     time.Second,
		SearchDebounce:     5 * time.Millisecond,
	})
}

func TestGraphSendReturnsAuthoritativeStatus(t *testing.T) {
	store := newFakeStore()
	g := newTestGraph(store)
	ctx := context.Background()

	status, err := g.SendRequest(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, models.StatusOutgoing, status.Kind)

	// the returned status matches a fresh check, not a synthesized delta
	checked, err := g.CheckStatus(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, checked, status)
}

func TestGraphSendToSelfRefused(t *testing.T) {
	store := newFakeStore()
	g := newTestGraph(store)

	_, err := g.SendRequest(context.Background(), "alice", "alice")
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, 0, store.requestCount())
}

func TestGraphAcceptWithoutRequestID(t *testing.T) {
	store := newFakeStore()
	g := newTestGraph(store)
	ctx := context.Background()

	sent, err := g.SendRequest(ctx, "alice", "bob")
	require.NoError(t, err)

	// bob accepts without knowing the request id; the observed incoming
	// request supplies it
	status, err := g.AcceptRequest(ctx, "bob", "alice", "")
	require.NoError(t, err)
	assert.True(t, status.IsFriends())
	assert.Equal(t, models.RequestAccepted, store.requestState(sent.RequestID))
}

func TestGraphAcceptNothingPending(t *testing.T) {
	store := newFakeStore()
	g := newTestGraph(store)

	_, err := g.AcceptRequest(context.Background(), "bob", "alice", "")
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
}

func TestGraphCancelExplicitIDWinsRace(t *testing.T) {
	store := newFakeStore()
	g := newTestGraph(store)
	ctx := context.Background()

	sent, err := g.SendRequest(ctx, "alice", "bob")
	require.NoError(t, err)

	// bob accepted while alice's cancel was in flight
	require.NoError(t, store.AcceptRequest(ctx, sent.RequestID))

	status, err := g.CancelRequest(ctx, "alice", "bob", sent.RequestID)
	require.NoError(t, err)
	assert.True(t, status.IsFriends())
}

func TestGraphRemoveFriend(t *testing.T) {
	store := newFakeStore()
	g := newTestGraph(store)
	ctx := context.Background()

	sent, err := g.SendRequest(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = g.AcceptRequest(ctx, "bob", "alice", sent.RequestID)
	require.NoError(t, err)

	status, err := g.RemoveFriend(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, status.IsNone())

	// removal does not resurrect the request
	bobView, err := g.CheckStatus(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.True(t, bobView.IsNone())
}

func TestGraphListPendingPassThrough(t *testing.T) {
	store := newFakeStore()
	g := newTestGraph(store)
	ctx := context.Background()

	_, err := g.SendRequest(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = g.SendRequest(ctx, "carol", "alice")
	require.NoError(t, err)

	pending, err := g.ListPending(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, pending.Outgoing, 1)
	assert.Len(t, pending.Incoming, 1)
	assert.Equal(t, "bob", pending.Outgoing[0].ToUserID)
	assert.Equal(t, "carol", pending.Incoming[0].FromUserID)
}

func TestGraphResolveBatch(t *testing.T) {
	store := newFakeStore()
	g := newTestGraph(store)
	ctx := context.Background()

	sent, err := g.SendRequest(ctx, "alice", "bob")
	require.NoError(t, err)

	var mu sync.Mutex
	results := map[string]models.RelationshipStatus{}
	batch := g.Resolve(ctx, "alice", []string{"bob", "carol"}, func(id string, status models.RelationshipStatus) {
		mu.Lock()
		results[id] = status
		mu.Unlock()
	})
	<-batch.Done()

	assert.Equal(t, models.Outgoing(sent.RequestID), results["bob"])
	assert.Equal(t, models.None(), results["carol"])
}

func TestGraphNewSearchIsIndependentPerConsumer(t *testing.T) {
	store := newFakeStore()
	store.users = []models.UserSummary{
		{ID: "u1", Username: "abel", DisplayName: "Abel"},
	}
	g := newTestGraph(store)

	s1 := g.NewSearch("alice")
	s2 := g.NewSearch("bob")
	defer s1.Close()
	defer s2.Close()

	s1.Query("abel")
	events := drain(t, s1, 1)
	assert.NotEmpty(t, events)

	// s2 saw nothing
	select {
	case ev := <-s2.Events():
		t.Fatalf("unexpected event on second search: %+v", ev)
	default:
	}
}
