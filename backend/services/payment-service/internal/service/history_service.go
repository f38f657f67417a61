package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"parkpay/backend/services/payment-service/internal/models"
)

// LedgerReader is the read side of the payment ledger.
type LedgerReader interface {
	History(ctx context.Context, plate string) ([]models.SessionHistory, error)
	IsPaid(ctx context.Context, sessionID int64) (bool, error)
	LatestUnpaid(ctx context.Context, sessionID int64) (*models.PaymentTransaction, error)
}

// PaymentStatus summarises a session's ledger rows.
type PaymentStatus struct {
	SessionID   int64
	IsPaid      bool
	Outstanding *decimal.Decimal
}

// HistoryService serves per-plate history and per-session payment status.
type HistoryService struct {
	ledger LedgerReader
}

// NewHistoryService builds service.
func NewHistoryService(ledger LedgerReader) *HistoryService {
	return &HistoryService{ledger: ledger}
}

// History returns the plate's sessions with their payments, or ErrHistoryNotFound.
func (h *HistoryService) History(ctx context.Context, plate string) ([]models.SessionHistory, error) {
	history, err := h.ledger.History(ctx, plate)
	if err != nil {
		return nil, fmt.Errorf("%w: history: %w", ErrPersistence, err)
	}
	if len(history) == 0 {
		return nil, ErrHistoryNotFound
	}
	return history, nil
}

// PaymentStatus reports whether the session is paid and, if not, the latest unpaid amount.
func (h *HistoryService) PaymentStatus(ctx context.Context, sessionID int64) (*PaymentStatus, error) {
	paid, err := h.ledger.IsPaid(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: is paid: %w", ErrPersistence, err)
	}
	status := &PaymentStatus{SessionID: sessionID, IsPaid: paid}
	if paid {
		return status, nil
	}

	unpaid, err := h.ledger.LatestUnpaid(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: latest unpaid: %w", ErrPersistence, err)
	}
	if unpaid != nil {
		amount := unpaid.Amount
		status.Outstanding = &amount
	}
	return status, nil
}
