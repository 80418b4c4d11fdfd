package relationship

import (
	"context"

	"github.com/sirupsen/logrus"

	"friendgraph/models"
)

// StateMachine applies relationship actions for a single pair. The observed
// status passed in is only a hint for which store call to attempt, never a
// legality gate: the other user may have mutated the pair between the
// caller's read and this call. After every mutation the machine re-reads the
// authoritative status from the store and returns that, even when the
// mutation itself failed.
type StateMachine struct {
	store Store
}

func NewStateMachine(store Store) *StateMachine {
	return &StateMachine{store: store}
}

// Send creates a pending request toward otherUserID. Sending when a request
// is already outgoing, or the pair is already friends, is a no-op returning
// the current status. Sending while an incoming request exists is refused
// with a hint to accept instead; the engine never auto-accepts.
func (m *StateMachine) Send(ctx context.Context, currentUserID, otherUserID string, observed models.RelationshipStatus) (models.RelationshipStatus, error) {
	switch observed.Kind {
	case models.StatusOutgoing, models.StatusFriends:
		return observed, nil
	case models.StatusIncoming:
		return observed, &InvalidTransitionError{
			Action:   "send",
			Observed: observed,
			Hint:     "incoming request exists, use accept",
		}
	}

	id, err := m.store.CreateRequest(ctx, currentUserID, otherUserID)
	if err != nil {
		if alreadyTerminal(err) {
			// Someone beat us to a conflicting edge; the store wins.
			return m.refresh(ctx, currentUserID, otherUserID, observed, nil)
		}
		return m.refresh(ctx, currentUserID, otherUserID, observed, err)
	}

	return m.refresh(ctx, currentUserID, otherUserID, models.Outgoing(id), nil)
}

// Cancel withdraws a pending outgoing request. If the request already left
// the pending state (the other user accepted or rejected first) the call
// succeeds and returns whatever the store now reports.
func (m *StateMachine) Cancel(ctx context.Context, currentUserID, otherUserID, requestID string, observed models.RelationshipStatus) (models.RelationshipStatus, error) {
	if requestID == "" {
		// Nothing outgoing to withdraw.
		return observed, nil
	}

	if err := m.store.CancelRequest(ctx, requestID); err != nil {
		if !alreadyTerminal(err) {
			return m.refresh(ctx, currentUserID, otherUserID, observed, err)
		}
		logrus.WithFields(logrus.Fields{
			"request_id": requestID,
			"action":     "cancel",
		}).Debug("request already terminal, re-resolving")
	}

	return m.refresh(ctx, currentUserID, otherUserID, models.None(), nil)
}

// Accept turns a pending incoming request into a friendship. Races with a
// concurrent cancel are tolerated the same way Cancel tolerates accepts.
func (m *StateMachine) Accept(ctx context.Context, currentUserID, otherUserID, requestID string, observed models.RelationshipStatus) (models.RelationshipStatus, error) {
	if err := m.store.AcceptRequest(ctx, requestID); err != nil {
		if !alreadyTerminal(err) {
			return m.refresh(ctx, currentUserID, otherUserID, observed, err)
		}
		logrus.WithFields(logrus.Fields{
			"request_id": requestID,
			"action":     "accept",
		}).Debug("request already terminal, re-resolving")
	}

	return m.refresh(ctx, currentUserID, otherUserID, models.Friends(), nil)
}

// Reject declines a pending incoming request.
func (m *StateMachine) Reject(ctx context.Context, currentUserID, otherUserID, requestID string, observed models.RelationshipStatus) (models.RelationshipStatus, error) {
	if err := m.store.RejectRequest(ctx, requestID); err != nil {
		if !alreadyTerminal(err) {
			return m.refresh(ctx, currentUserID, otherUserID, observed, err)
		}
		logrus.WithFields(logrus.Fields{
			"request_id": requestID,
			"action":     "reject",
		}).Debug("request already terminal, re-resolving")
	}

	return m.refresh(ctx, currentUserID, otherUserID, models.None(), nil)
}

// Remove deletes the friendship edge. A remove when no edge exists is a
// no-op; it never resurrects a prior request.
func (m *StateMachine) Remove(ctx context.Context, currentUserID, otherUserID string, observed models.RelationshipStatus) (models.RelationshipStatus, error) {
	if observed.IsNone() {
		return observed, nil
	}

	if err := m.store.RemoveFriendship(ctx, currentUserID, otherUserID); err != nil && !alreadyTerminal(err) {
		return m.refresh(ctx, currentUserID, otherUserID, observed, err)
	}

	return m.refresh(ctx, currentUserID, otherUserID, models.None(), nil)
}

// refresh re-reads the pair's authoritative status. If the re-read itself
// fails it falls back to the expected post-action status so the caller
// always gets something renderable, and keeps the original mutation error.
func (m *StateMachine) refresh(ctx context.Context, currentUserID, otherUserID string, fallback models.RelationshipStatus, cause error) (models.RelationshipStatus, error) {
	status, err := m.store.GetStatus(ctx, currentUserID, otherUserID)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id":  currentUserID,
			"other_id": otherUserID,
		}).WithError(err).Warn("status re-read failed, using expected status")
		return fallback, cause
	}
	return status, cause
}
