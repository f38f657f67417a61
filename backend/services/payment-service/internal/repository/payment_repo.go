package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	libdb "parkpay/backend/libs/db"
	"parkpay/backend/services/payment-service/internal/models"
)

// LedgerTx is the set of ledger operations available while a session's row lock is held.
type LedgerTx interface {
	ActiveSession(ctx context.Context, sessionID int64) (*models.ParkingSession, error)
	IsPaid(ctx context.Context, sessionID int64) (bool, error)
	LatestUnpaid(ctx context.Context, sessionID int64) (*models.PaymentTransaction, error)
	Record(ctx context.Context, payment *models.PaymentTransaction) error
	MarkPaid(ctx context.Context, sessionID int64) (*models.PaymentTransaction, error)
}

// PaymentRepository is the payment ledger: an append-only table of payment attempts.
type PaymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository returns repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// WithSessionLock runs fn in one transaction. Operations on the LedgerTx see and produce a
// consistent view of the session's rows once ActiveSession has taken the row lock; any error
// from fn rolls everything back.
func (r *PaymentRepository) WithSessionLock(ctx context.Context, sessionID int64, fn func(ctx context.Context, tx LedgerTx) error) error {
	return libdb.WithTx(ctx, r.db, nil, func(tx *sql.Tx) error {
		return fn(ctx, &ledgerTx{q: tx})
	})
}

// IsPaid reports whether any payment for the session is paid.
func (r *PaymentRepository) IsPaid(ctx context.Context, sessionID int64) (bool, error) {
	return isPaid(ctx, r.db, sessionID)
}

// LatestUnpaid returns the most recent unpaid payment or nil.
func (r *PaymentRepository) LatestUnpaid(ctx context.Context, sessionID int64) (*models.PaymentTransaction, error) {
	return latestUnpaid(ctx, r.db, sessionID)
}

// History returns every session of the plate, newest first, with payments in ledger order.
func (r *PaymentRepository) History(ctx context.Context, plate string) ([]models.SessionHistory, error) {
	const query = `
		SELECT s.id, s.license_plate, s.entry_timestamp, s.exit_timestamp, s.is_active,
		       p.id, p.amount, p.is_paid, p.payment_timestamp, p.payment_source, p.note
		FROM parking_sessions s
		LEFT JOIN payment_transactions p ON p.parking_session_id = s.id
		WHERE s.license_plate = $1
		ORDER BY s.entry_timestamp DESC, s.id DESC, p.id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, plate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []models.SessionHistory
	for rows.Next() {
		var (
			s         models.ParkingSession
			exit      sql.NullTime
			paymentID sql.NullInt64
			amount    decimal.NullDecimal
			paid      sql.NullBool
			paidAt    sql.NullTime
			source    sql.NullString
			note      sql.NullString
		)
		if err := rows.Scan(
			&s.ID,
			&s.LicensePlate,
			&s.EntryTimestamp,
			&exit,
			&s.IsActive,
			&paymentID,
			&amount,
			&paid,
			&paidAt,
			&source,
			&note,
		); err != nil {
			return nil, err
		}
		if exit.Valid {
			s.ExitTimestamp = &exit.Time
		}

		if n := len(history); n == 0 || history[n-1].ID != s.ID {
			history = append(history, models.SessionHistory{ParkingSession: s, Payments: []models.PaymentTransaction{}})
		}
		if !paymentID.Valid {
			continue
		}
		current := &history[len(history)-1]
		current.Payments = append(current.Payments, models.PaymentTransaction{
			ID:               paymentID.Int64,
			ParkingSessionID: s.ID,
			Amount:           amount.Decimal,
			IsPaid:           paid.Bool,
			PaymentTimestamp: paidAt.Time,
			PaymentSource:    sourceOrUnspecified(source),
			Note:             note.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return history, nil
}

type ledgerTx struct {
	q libdb.Querier
}

func (t *ledgerTx) ActiveSession(ctx context.Context, sessionID int64) (*models.ParkingSession, error) {
	return lockActiveSession(ctx, t.q, sessionID)
}

func (t *ledgerTx) IsPaid(ctx context.Context, sessionID int64) (bool, error) {
	return isPaid(ctx, t.q, sessionID)
}

func (t *ledgerTx) LatestUnpaid(ctx context.Context, sessionID int64) (*models.PaymentTransaction, error) {
	return latestUnpaid(ctx, t.q, sessionID)
}

// Record always inserts a new unpaid row and fills ID.
func (t *ledgerTx) Record(ctx context.Context, p *models.PaymentTransaction) error {
	const query = `
		INSERT INTO payment_transactions (parking_session_id, amount, is_paid, payment_timestamp, payment_source, note)
		VALUES ($1, $2, false, $3, $4, $5)
		RETURNING id
	`
	p.IsPaid = false
	return t.q.QueryRowContext(ctx, query,
		p.ParkingSessionID,
		p.Amount.Round(2),
		p.PaymentTimestamp,
		string(p.PaymentSource),
		p.Note,
	).Scan(&p.ID)
}

// MarkPaid flips the most recent unpaid row to paid in a single statement.
// It returns nil when the session has no unpaid row.
func (t *ledgerTx) MarkPaid(ctx context.Context, sessionID int64) (*models.PaymentTransaction, error) {
	const query = `
		UPDATE payment_transactions
		SET is_paid = true
		WHERE id = (
			SELECT id
			FROM payment_transactions
			WHERE parking_session_id = $1 AND is_paid = false
			ORDER BY payment_timestamp DESC, id DESC
			LIMIT 1
			FOR UPDATE
		)
		RETURNING id, parking_session_id, amount, is_paid, payment_timestamp, payment_source, note
	`
	p, err := scanPayment(t.q.QueryRowContext(ctx, query, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func isPaid(ctx context.Context, q libdb.Querier, sessionID int64) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM payment_transactions
			WHERE parking_session_id = $1 AND is_paid = true
		)
	`
	var paid bool
	if err := q.QueryRowContext(ctx, query, sessionID).Scan(&paid); err != nil {
		return false, err
	}
	return paid, nil
}

func latestUnpaid(ctx context.Context, q libdb.Querier, sessionID int64) (*models.PaymentTransaction, error) {
	const query = `
		SELECT id, parking_session_id, amount, is_paid, payment_timestamp, payment_source, note
		FROM payment_transactions
		WHERE parking_session_id = $1 AND is_paid = false
		ORDER BY payment_timestamp DESC, id DESC
		LIMIT 1
	`
	p, err := scanPayment(q.QueryRowContext(ctx, query, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func scanPayment(row *sql.Row) (*models.PaymentTransaction, error) {
	var (
		p      models.PaymentTransaction
		source sql.NullString
		note   sql.NullString
	)
	if err := row.Scan(
		&p.ID,
		&p.ParkingSessionID,
		&p.Amount,
		&p.IsPaid,
		&p.PaymentTimestamp,
		&source,
		&note,
	); err != nil {
		return nil, err
	}
	p.PaymentSource = sourceOrUnspecified(source)
	p.Note = note.String
	return &p, nil
}

func sourceOrUnspecified(source sql.NullString) models.PaymentSource {
	if !source.Valid || source.String == "" {
		return models.SourceUnspecified
	}
	return models.PaymentSource(source.String)
}
