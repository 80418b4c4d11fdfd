package models

import "time"

// StatusKind is the discriminant of a RelationshipStatus.
type StatusKind string

const (
	StatusNone     StatusKind = "none"
	StatusOutgoing StatusKind = "outgoing_request"
	StatusIncoming StatusKind = "incoming_request"
	StatusFriends  StatusKind = "friends"
)

// RelationshipStatus is the observed state of one user pair as seen from the
// current user. RequestID is set only for outgoing/incoming requests.
type RelationshipStatus struct {
	Kind      StatusKind `json:"kind"`
	RequestID string     `json:"request_id,omitempty"`
}

func None() RelationshipStatus {
	return RelationshipStatus{Kind: StatusNone}
}

func Outgoing(requestID string) RelationshipStatus {
	return RelationshipStatus{Kind: StatusOutgoing, RequestID: requestID}
}

func Incoming(requestID string) RelationshipStatus {
	return RelationshipStatus{Kind: StatusIncoming, RequestID: requestID}
}

func Friends() RelationshipStatus {
	return RelationshipStatus{Kind: StatusFriends}
}

func (s RelationshipStatus) IsNone() bool    { return s.Kind == StatusNone }
func (s RelationshipStatus) IsFriends() bool { return s.Kind == StatusFriends }

// RequestState is the lifecycle state of a FriendRequest. A request leaves
// pending exactly once and is immutable afterwards.
type RequestState string

const (
	RequestPending  RequestState = "pending"
	RequestAccepted RequestState = "accepted"
	RequestRejected RequestState = "rejected"
	RequestCanceled RequestState = "canceled"
)

type FriendRequest struct {
	ID         string       `json:"id"`
	FromUserID string       `json:"from_user_id"`
	ToUserID   string       `json:"to_user_id"`
	State      RequestState `json:"state"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// Friendship is a symmetric edge. UserA/UserB are stored in normalized order
// so each pair has exactly one row.
type Friendship struct {
	ID        string    `json:"id"`
	UserA     string    `json:"user_a"`
	UserB     string    `json:"user_b"`
	CreatedAt time.Time `json:"created_at"`
}

type PendingRequests struct {
	Incoming []FriendRequest `json:"incoming"`
	Outgoing []FriendRequest `json:"outgoing"`
}

// RequestWithUser decorates a FriendRequest with the other party's profile
// for list endpoints.
type RequestWithUser struct {
	FriendRequest
	User UserResponse `json:"user"`
}

type FriendWithUser struct {
	Friendship
	Friend UserResponse `json:"friend"`
}
