// Package mysqlstore backs the relationship engine with MySQL.
package mysqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"friendgraph/models"
	"friendgraph/relationship"
	"friendgraph/utils"
)

// Store implements relationship.Store and relationship.Directory on top of
// the shared *sql.DB. The one-pending-edge-per-pair invariant is enforced
// with row locks inside a transaction.
type Store struct {
	db *sql.DB
}

var (
	_ relationship.Store     = (*Store)(nil)
	_ relationship.Directory = (*Store)(nil)
)

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// normalizePair orders a pair so each friendship edge has exactly one row.
func normalizePair(userA, userB string) (string, string) {
	if userA > userB {
		return userB, userA
	}
	return userA, userB
}

// wrapErr maps driver failures onto the engine's error taxonomy.
func wrapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return relationship.ErrNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", relationship.ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %v", relationship.ErrStoreUnavailable, err)
	}
}

func (s *Store) CreateRequest(ctx context.Context, fromUserID, toUserID string) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", wrapErr(err)
	}
	defer tx.Rollback()

	userA, userB := normalizePair(fromUserID, toUserID)
	var edges int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM friendships WHERE user_a = ? AND user_b = ? FOR UPDATE",
		userA, userB,
	).Scan(&edges)
	if err != nil {
		return "", wrapErr(err)
	}
	if edges > 0 {
		return "", relationship.ErrConflict
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, from_user_id FROM friend_requests
		WHERE state = 'pending'
		  AND ((from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?))
		FOR UPDATE
	`, fromUserID, toUserID, toUserID, fromUserID)
	if err != nil {
		return "", wrapErr(err)
	}

	var existingID string
	var reverse bool
	for rows.Next() {
		var id, from string
		if err := rows.Scan(&id, &from); err != nil {
			rows.Close()
			return "", wrapErr(err)
		}
		if from == fromUserID {
			existingID = id
		} else {
			reverse = true
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return "", wrapErr(err)
	}

	if existingID != "" {
		// Resending over our own pending request is idempotent.
		if err := tx.Commit(); err != nil {
			return "", wrapErr(err)
		}
		return existingID, nil
	}
	if reverse {
		return "", relationship.ErrConflict
	}

	id := utils.GenerateUUID()
	now := time.Now()
	_, err = tx.ExecContext(ctx,
		"INSERT INTO friend_requests (id, from_user_id, to_user_id, state, created_at, updated_at) VALUES (?, ?, ?, 'pending', ?, ?)",
		id, fromUserID, toUserID, now, now,
	)
	if err != nil {
		return "", wrapErr(err)
	}

	if err := tx.Commit(); err != nil {
		return "", wrapErr(err)
	}
	return id, nil
}

func (s *Store) CancelRequest(ctx context.Context, requestID string) error {
	return s.closeRequest(ctx, requestID, models.RequestCanceled)
}

func (s *Store) RejectRequest(ctx context.Context, requestID string) error {
	return s.closeRequest(ctx, requestID, models.RequestRejected)
}

// closeRequest moves a pending request to a terminal state with no
// friendship side effect. A request that already left pending reports
// ErrNotFound so callers can treat the race as already-terminal.
func (s *Store) closeRequest(ctx context.Context, requestID string, state models.RequestState) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE friend_requests SET state = ?, updated_at = ? WHERE id = ? AND state = 'pending'",
		string(state), time.Now(), requestID,
	)
	if err != nil {
		return wrapErr(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return wrapErr(err)
	}
	if affected == 0 {
		return relationship.ErrNotFound
	}
	return nil
}

func (s *Store) AcceptRequest(ctx context.Context, requestID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr(err)
	}
	defer tx.Rollback()

	var fromUserID, toUserID string
	err = tx.QueryRowContext(ctx,
		"SELECT from_user_id, to_user_id FROM friend_requests WHERE id = ? AND state = 'pending' FOR UPDATE",
		requestID,
	).Scan(&fromUserID, &toUserID)
	if err != nil {
		return wrapErr(err)
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		"UPDATE friend_requests SET state = 'accepted', updated_at = ? WHERE id = ?",
		now, requestID,
	)
	if err != nil {
		return wrapErr(err)
	}

	userA, userB := normalizePair(fromUserID, toUserID)
	_, err = tx.ExecContext(ctx,
		"INSERT INTO friendships (id, user_a, user_b, created_at) VALUES (?, ?, ?, ?)",
		utils.GenerateUUID(), userA, userB, now,
	)
	if err != nil {
		return wrapErr(err)
	}

	return wrapErr(tx.Commit())
}

func (s *Store) RemoveFriendship(ctx context.Context, userA, userB string) error {
	a, b := normalizePair(userA, userB)
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM friendships WHERE user_a = ? AND user_b = ?",
		a, b,
	)
	if err != nil {
		return wrapErr(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return wrapErr(err)
	}
	if affected == 0 {
		return relationship.ErrNotFound
	}
	return nil
}

func (s *Store) GetStatus(ctx context.Context, userID, otherID string) (models.RelationshipStatus, error) {
	userA, userB := normalizePair(userID, otherID)
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM friendships WHERE user_a = ? AND user_b = ?)",
		userA, userB,
	).Scan(&exists)
	if err != nil {
		return models.None(), wrapErr(err)
	}
	if exists {
		return models.Friends(), nil
	}

	var id, from string
	err = s.db.QueryRowContext(ctx, `
		SELECT id, from_user_id FROM friend_requests
		WHERE state = 'pending'
		  AND ((from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?))
		LIMIT 1
	`, userID, otherID, otherID, userID).Scan(&id, &from)
	if err == sql.ErrNoRows {
		return models.None(), nil
	}
	if err != nil {
		return models.None(), wrapErr(err)
	}

	if from == userID {
		return models.Outgoing(id), nil
	}
	return models.Incoming(id), nil
}

func (s *Store) ListPending(ctx context.Context, userID string) (models.PendingRequests, error) {
	pending := models.PendingRequests{
		Incoming: []models.FriendRequest{},
		Outgoing: []models.FriendRequest{},
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, from_user_id, to_user_id, state, created_at, updated_at
		FROM friend_requests
		WHERE state = 'pending' AND (from_user_id = ? OR to_user_id = ?)
		ORDER BY created_at DESC
	`, userID, userID)
	if err != nil {
		return pending, wrapErr(err)
	}
	defer rows.Close()

	for rows.Next() {
		var r models.FriendRequest
		if err := rows.Scan(&r.ID, &r.FromUserID, &r.ToUserID, &r.State, &r.CreatedAt, &r.UpdatedAt); err != nil {
			continue
		}
		if r.FromUserID == userID {
			pending.Outgoing = append(pending.Outgoing, r)
		} else {
			pending.Incoming = append(pending.Incoming, r)
		}
	}

	return pending, wrapErr(rows.Err())
}

// Search implements relationship.Directory over the users table.
func (s *Store) Search(ctx context.Context, currentUserID, query string) ([]models.UserSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, nickname FROM users
		WHERE id != ? AND (username LIKE ? OR nickname LIKE ?)
		ORDER BY username
		LIMIT 20
	`, currentUserID, "%"+query+"%", "%"+query+"%")
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	users := []models.UserSummary{}
	for rows.Next() {
		var u models.UserSummary
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName); err != nil {
			continue
		}
		users = append(users, u)
	}

	return users, wrapErr(rows.Err())
}
