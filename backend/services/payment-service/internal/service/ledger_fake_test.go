package service

import (
	"context"
	"sync"
	"time"

	"parkpay/backend/services/payment-service/internal/models"
	"parkpay/backend/services/payment-service/internal/repository"
)

// memoryLedger is an in-memory ledger. WithSessionLock holds one mutex for the whole
// transaction and discards the working copy when fn fails.
type memoryLedger struct {
	mu       sync.Mutex
	sessions map[int64]models.ParkingSession
	payments []models.PaymentTransaction
	nextID   int64

	recordErr error
	skipMark  bool
}

func newMemoryLedger(sessions ...models.ParkingSession) *memoryLedger {
	l := &memoryLedger{sessions: make(map[int64]models.ParkingSession)}
	for _, s := range sessions {
		l.sessions[s.ID] = s
	}
	return l
}

func (l *memoryLedger) WithSessionLock(ctx context.Context, sessionID int64, fn func(ctx context.Context, tx repository.LedgerTx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx := &memoryTx{
		ledger:   l,
		payments: append([]models.PaymentTransaction(nil), l.payments...),
		nextID:   l.nextID,
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	l.payments = tx.payments
	l.nextID = tx.nextID
	return nil
}

func (l *memoryLedger) rows(sessionID int64) []models.PaymentTransaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.PaymentTransaction
	for _, p := range l.payments {
		if p.ParkingSessionID == sessionID {
			out = append(out, p)
		}
	}
	return out
}

func (l *memoryLedger) ActiveSessionIDByPlate(_ context.Context, plate string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var (
		best  models.ParkingSession
		found bool
	)
	for _, s := range l.sessions {
		if s.LicensePlate != plate || !s.IsActive {
			continue
		}
		if !found || s.EntryTimestamp.After(best.EntryTimestamp) {
			best, found = s, true
		}
	}
	if !found {
		return 0, repository.ErrSessionNotFound
	}
	return best.ID, nil
}

type memoryTx struct {
	ledger   *memoryLedger
	payments []models.PaymentTransaction
	nextID   int64
}

func (t *memoryTx) ActiveSession(_ context.Context, sessionID int64) (*models.ParkingSession, error) {
	s, ok := t.ledger.sessions[sessionID]
	if !ok || !s.IsActive {
		return nil, repository.ErrSessionNotFound
	}
	return &s, nil
}

func (t *memoryTx) IsPaid(_ context.Context, sessionID int64) (bool, error) {
	for _, p := range t.payments {
		if p.ParkingSessionID == sessionID && p.IsPaid {
			return true, nil
		}
	}
	return false, nil
}

func (t *memoryTx) LatestUnpaid(_ context.Context, sessionID int64) (*models.PaymentTransaction, error) {
	idx := t.latestUnpaidIndex(sessionID)
	if idx < 0 {
		return nil, nil
	}
	p := t.payments[idx]
	return &p, nil
}

func (t *memoryTx) Record(_ context.Context, p *models.PaymentTransaction) error {
	if t.ledger.recordErr != nil {
		return t.ledger.recordErr
	}
	t.nextID++
	p.ID = t.nextID
	p.IsPaid = false
	t.payments = append(t.payments, *p)
	return nil
}

func (t *memoryTx) MarkPaid(_ context.Context, sessionID int64) (*models.PaymentTransaction, error) {
	if t.ledger.skipMark {
		return nil, nil
	}
	idx := t.latestUnpaidIndex(sessionID)
	if idx < 0 {
		return nil, nil
	}
	t.payments[idx].IsPaid = true
	p := t.payments[idx]
	return &p, nil
}

func (t *memoryTx) latestUnpaidIndex(sessionID int64) int {
	idx := -1
	var latest time.Time
	for i, p := range t.payments {
		if p.ParkingSessionID != sessionID || p.IsPaid {
			continue
		}
		if idx < 0 || !p.PaymentTimestamp.Before(latest) {
			idx, latest = i, p.PaymentTimestamp
		}
	}
	return idx
}
