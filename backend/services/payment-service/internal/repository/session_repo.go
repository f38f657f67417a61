package repository

import (
	"context"
	"database/sql"
	"errors"

	libdb "parkpay/backend/libs/db"
	"parkpay/backend/services/payment-service/internal/models"
)

// ErrSessionNotFound indicates no matching (active) parking session.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository reads parking sessions written by the session service.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository returns repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// ActiveSessionIDByPlate returns the most recent active session for the plate.
func (r *SessionRepository) ActiveSessionIDByPlate(ctx context.Context, plate string) (int64, error) {
	const query = `
		SELECT id
		FROM parking_sessions
		WHERE license_plate = $1 AND is_active = true
		ORDER BY entry_timestamp DESC, id DESC
		LIMIT 1
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, plate).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrSessionNotFound
		}
		return 0, err
	}
	return id, nil
}

// lockActiveSession loads an active session and holds its row lock until the surrounding
// transaction ends. Every ledger mutation for a session happens under this lock.
func lockActiveSession(ctx context.Context, q libdb.Querier, sessionID int64) (*models.ParkingSession, error) {
	const query = `
		SELECT id, license_plate, entry_timestamp, exit_timestamp, is_active
		FROM parking_sessions
		WHERE id = $1 AND is_active = true
		FOR UPDATE
	`
	var (
		s    models.ParkingSession
		exit sql.NullTime
	)
	err := q.QueryRowContext(ctx, query, sessionID).Scan(
		&s.ID,
		&s.LicensePlate,
		&s.EntryTimestamp,
		&exit,
		&s.IsActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if exit.Valid {
		s.ExitTimestamp = &exit.Time
	}
	return &s, nil
}
