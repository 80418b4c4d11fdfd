package relationship

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"friendgraph/models"
)

// fakeStore is an in-memory Store and Directory with instrumentation hooks
// for concurrency and failure-injection tests.
type fakeStore struct {
	mu          sync.Mutex
	requests    map[string]*models.FriendRequest
	friendships map[string]bool
	users       []models.UserSummary
	nextID      int

	// failure injection
	lookupErr  map[string]error // keyed by otherID
	mutateErr  error            // returned by every mutation when set
	searchErr  error
	lookupWait time.Duration

	// instrumentation
	inFlight      int
	maxInFlight   int
	lookupCalls   int
	searchQueries []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		requests:    make(map[string]*models.FriendRequest),
		friendships: make(map[string]bool),
		lookupErr:   make(map[string]error),
	}
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

func (f *fakeStore) newID() string {
	f.nextID++
	return fmt.Sprintf("r%d", f.nextID)
}

func (f *fakeStore) pendingBetween(from, to string) *models.FriendRequest {
	for _, r := range f.requests {
		if r.State == models.RequestPending && r.FromUserID == from && r.ToUserID == to {
			return r
		}
	}
	return nil
}

func (f *fakeStore) CreateRequest(ctx context.Context, fromUserID, toUserID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.mutateErr != nil {
		return "", f.mutateErr
	}
	if f.friendships[pairKey(fromUserID, toUserID)] {
		return "", ErrConflict
	}
	if r := f.pendingBetween(fromUserID, toUserID); r != nil {
		return r.ID, nil
	}
	if f.pendingBetween(toUserID, fromUserID) != nil {
		return "", ErrConflict
	}

	id := f.newID()
	f.requests[id] = &models.FriendRequest{
		ID:         id,
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		State:      models.RequestPending,
		CreatedAt:  time.Now(),
	}
	return id, nil
}

func (f *fakeStore) closeRequest(requestID string, state models.RequestState) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.mutateErr != nil {
		return f.mutateErr
	}
	r, ok := f.requests[requestID]
	if !ok || r.State != models.RequestPending {
		return ErrNotFound
	}
	r.State = state
	if state == models.RequestAccepted {
		f.friendships[pairKey(r.FromUserID, r.ToUserID)] = true
	}
	return nil
}

func (f *fakeStore) CancelRequest(ctx context.Context, requestID string) error {
	return f.closeRequest(requestID, models.RequestCanceled)
}

func (f *fakeStore) AcceptRequest(ctx context.Context, requestID string) error {
	return f.closeRequest(requestID, models.RequestAccepted)
}

func (f *fakeStore) RejectRequest(ctx context.Context, requestID string) error {
	return f.closeRequest(requestID, models.RequestRejected)
}

func (f *fakeStore) RemoveFriendship(ctx context.Context, userA, userB string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.mutateErr != nil {
		return f.mutateErr
	}
	key := pairKey(userA, userB)
	if !f.friendships[key] {
		return ErrNotFound
	}
	delete(f.friendships, key)
	return nil
}

func (f *fakeStore) GetStatus(ctx context.Context, userID, otherID string) (models.RelationshipStatus, error) {
	f.mu.Lock()
	f.lookupCalls++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	wait := f.lookupWait
	err := f.lookupErr[otherID]
	f.mu.Unlock()

	if wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			f.doneLookup()
			return models.None(), ctx.Err()
		}
	}
	defer f.doneLookup()

	if err != nil {
		return models.None(), err
	}
	if ctx.Err() != nil {
		return models.None(), ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.friendships[pairKey(userID, otherID)] {
		return models.Friends(), nil
	}
	if r := f.pendingBetween(userID, otherID); r != nil {
		return models.Outgoing(r.ID), nil
	}
	if r := f.pendingBetween(otherID, userID); r != nil {
		return models.Incoming(r.ID), nil
	}
	return models.None(), nil
}

func (f *fakeStore) doneLookup() {
	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
}

func (f *fakeStore) ListPending(ctx context.Context, userID string) (models.PendingRequests, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pending := models.PendingRequests{
		Incoming: []models.FriendRequest{},
		Outgoing: []models.FriendRequest{},
	}
	for _, r := range f.requests {
		if r.State != models.RequestPending {
			continue
		}
		if r.FromUserID == userID {
			pending.Outgoing = append(pending.Outgoing, *r)
		} else if r.ToUserID == userID {
			pending.Incoming = append(pending.Incoming, *r)
		}
	}
	return pending, nil
}

func (f *fakeStore) Search(ctx context.Context, currentUserID, query string) ([]models.UserSummary, error) {
	f.mu.Lock()
	f.searchQueries = append(f.searchQueries, query)
	err := f.searchErr
	users := f.users
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	matched := []models.UserSummary{}
	for _, u := range users {
		if u.ID == currentUserID {
			continue
		}
		if strings.Contains(u.Username, query) || strings.Contains(u.DisplayName, query) {
			matched = append(matched, u)
		}
	}
	return matched, nil
}

func (f *fakeStore) queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.searchQueries))
	copy(out, f.searchQueries)
	return out
}

func (f *fakeStore) maxConcurrent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

func (f *fakeStore) lookups() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookupCalls
}

func (f *fakeStore) requestState(id string) models.RequestState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.requests[id]; ok {
		return r.State
	}
	return ""
}

func (f *fakeStore) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}
