package relationship

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"friendgraph/models"
)

// Config tunes the engine. Zero values fall back to the defaults below.
type Config struct {
	ResolveConcurrency int
	ResolveTimeout     time.Duration
	SearchDebounce     time.Duration
}

const (
	DefaultResolveConcurrency = 10
	DefaultResolveTimeout     = 5 * time.Second
	DefaultSearchDebounce     = 300 * time.Millisecond
)

func (c Config) withDefaults() Config {
	if c.ResolveConcurrency <= 0 {
		c.ResolveConcurrency = DefaultResolveConcurrency
	}
	if c.ResolveTimeout <= 0 {
		c.ResolveTimeout = DefaultResolveTimeout
	}
	if c.SearchDebounce <= 0 {
		c.SearchDebounce = DefaultSearchDebounce
	}
	return c
}

// Graph is the engine's public surface. Every mutating call observes the
// pair's current status as a hint, applies the action through the state
// machine and returns the authoritative post-action status; callers must
// never synthesize the post-action status themselves.
type Graph struct {
	store     Store
	directory Directory
	machine   *StateMachine
	resolver  *Resolver
	cfg       Config
}

func NewGraph(store Store, directory Directory, cfg Config) *Graph {
	cfg = cfg.withDefaults()
	return &Graph{
		store:     store,
		directory: directory,
		machine:   NewStateMachine(store),
		resolver:  NewResolver(store, cfg.ResolveConcurrency, cfg.ResolveTimeout),
		cfg:       cfg,
	}
}

// CheckStatus reads the authoritative status for one pair.
func (g *Graph) CheckStatus(ctx context.Context, currentUserID, otherUserID string) (models.RelationshipStatus, error) {
	return g.store.GetStatus(ctx, currentUserID, otherUserID)
}

func (g *Graph) SendRequest(ctx context.Context, currentUserID, otherUserID string) (models.RelationshipStatus, error) {
	if currentUserID == otherUserID {
		return models.None(), &InvalidTransitionError{
			Action:   "send",
			Observed: models.None(),
			Hint:     "cannot send a friend request to yourself",
		}
	}
	observed := g.observe(ctx, currentUserID, otherUserID)
	return g.machine.Send(ctx, currentUserID, otherUserID, observed)
}

// CancelRequest withdraws the pending outgoing request toward otherUserID.
// requestID may be empty, in which case the observed outgoing request is
// canceled.
func (g *Graph) CancelRequest(ctx context.Context, currentUserID, otherUserID, requestID string) (models.RelationshipStatus, error) {
	observed := g.observe(ctx, currentUserID, otherUserID)
	if requestID == "" {
		requestID = observed.RequestID
	}
	if requestID == "" {
		return g.machine.Cancel(ctx, currentUserID, otherUserID, requestID, models.None())
	}
	return g.machine.Cancel(ctx, currentUserID, otherUserID, requestID, observed)
}

func (g *Graph) AcceptRequest(ctx context.Context, currentUserID, otherUserID, requestID string) (models.RelationshipStatus, error) {
	observed := g.observe(ctx, currentUserID, otherUserID)
	if requestID == "" {
		requestID = observed.RequestID
	}
	if requestID == "" {
		return observed, &InvalidTransitionError{
			Action:   "accept",
			Observed: observed,
			Hint:     "no incoming request to accept",
		}
	}
	return g.machine.Accept(ctx, currentUserID, otherUserID, requestID, observed)
}

func (g *Graph) RejectRequest(ctx context.Context, currentUserID, otherUserID, requestID string) (models.RelationshipStatus, error) {
	observed := g.observe(ctx, currentUserID, otherUserID)
	if requestID == "" {
		requestID = observed.RequestID
	}
	if requestID == "" {
		return observed, &InvalidTransitionError{
			Action:   "reject",
			Observed: observed,
			Hint:     "no incoming request to reject",
		}
	}
	return g.machine.Reject(ctx, currentUserID, otherUserID, requestID, observed)
}

func (g *Graph) RemoveFriend(ctx context.Context, currentUserID, otherUserID string) (models.RelationshipStatus, error) {
	observed := g.observe(ctx, currentUserID, otherUserID)
	return g.machine.Remove(ctx, currentUserID, otherUserID, observed)
}

// ListPending is a pass-through to the store.
func (g *Graph) ListPending(ctx context.Context, userID string) (models.PendingRequests, error) {
	return g.store.ListPending(ctx, userID)
}

// Resolve resolves statuses for an arbitrary candidate set with bounded
// concurrency, streaming results through onResult. The returned batch
// cancels delivery, not just issuance.
func (g *Graph) Resolve(ctx context.Context, currentUserID string, candidateIDs []string, onResult func(string, models.RelationshipStatus)) *Batch {
	return g.resolver.Resolve(ctx, currentUserID, candidateIDs, onResult)
}

// NewSearch creates a live search pipeline bound to one consumer. The
// consumer drives it with Query and drains Events; Close releases it.
func (g *Graph) NewSearch(currentUserID string) *Coordinator {
	return NewCoordinator(g.directory, g.resolver, g.cfg.SearchDebounce, currentUserID)
}

// observe reads the pair's status as a hint for the state machine. Fail-open
// to None on error: the machine tolerates a wrong hint, the store call it
// picks will be validated against authoritative state anyway.
func (g *Graph) observe(ctx context.Context, currentUserID, otherUserID string) models.RelationshipStatus {
	status, err := g.store.GetStatus(ctx, currentUserID, otherUserID)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id":  currentUserID,
			"other_id": otherUserID,
		}).WithError(err).Debug("observe failed, assuming none")
		return models.None()
	}
	return status
}
