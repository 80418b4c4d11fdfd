// Package relationship tracks pairwise relationship state between users and
// resolves it for whole candidate sets under live, superseding search
// queries.
//
// The package owns no persistence: it drives a Store (requests and
// friendship edges) and a Directory (user search) supplied by the caller.
// Everything takes the current user id explicitly; there is no ambient
// session state.
package relationship

import (
	"context"

	"friendgraph/models"
)

// Store is the persistence contract the engine requires. Implementations
// must keep at most one pending request or friendship edge per unordered
// pair; the engine relies on that invariant rather than enforcing it.
//
// CreateRequest over an identical pending request returns the existing
// request id, which is what makes a doubled send idempotent. Mutations on a
// request that already left the pending state return ErrNotFound.
type Store interface {
	CreateRequest(ctx context.Context, fromUserID, toUserID string) (string, error)
	CancelRequest(ctx context.Context, requestID string) error
	AcceptRequest(ctx context.Context, requestID string) error
	RejectRequest(ctx context.Context, requestID string) error
	RemoveFriendship(ctx context.Context, userA, userB string) error

	// GetStatus reports the pair's status as seen from userID.
	GetStatus(ctx context.Context, userID, otherID string) (models.RelationshipStatus, error)
	ListPending(ctx context.Context, userID string) (models.PendingRequests, error)
}

// Directory looks up users for search-as-you-type.
type Directory interface {
	Search(ctx context.Context, currentUserID, query string) ([]models.UserSummary, error)
}
