package service

import (
	"context"
	"errors"
	"fmt"

	"parkpay/backend/services/payment-service/internal/models"
	"parkpay/backend/services/payment-service/internal/repository"
)

// ActiveSessionFinder looks up a plate's current session.
type ActiveSessionFinder interface {
	ActiveSessionIDByPlate(ctx context.Context, plate string) (int64, error)
}

// SessionResolver picks the session a settlement request refers to.
type SessionResolver struct {
	sessions ActiveSessionFinder
}

// NewSessionResolver builds resolver.
func NewSessionResolver(sessions ActiveSessionFinder) *SessionResolver {
	return &SessionResolver{sessions: sessions}
}

// Resolve trusts a gate-supplied session id as is. Website requests, and requests without an
// id, are resolved by plate to the most recent active session. Whether the session is still
// active is checked later, under the ledger lock.
func (r *SessionResolver) Resolve(ctx context.Context, sessionID *int64, plate string, source models.PaymentSource) (int64, error) {
	if source != models.SourceWebsite && sessionID != nil {
		return *sessionID, nil
	}

	id, err := r.sessions.ActiveSessionIDByPlate(ctx, plate)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return 0, ErrNoActiveSession
		}
		return 0, fmt.Errorf("%w: resolve session: %w", ErrPersistence, err)
	}
	return id, nil
}
