package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"parkpay/backend/services/payment-service/internal/http/middleware"
	"parkpay/backend/services/payment-service/internal/models"
	"parkpay/backend/services/payment-service/internal/service"
)

// HistoryReader loads plate history.
type HistoryReader interface {
	History(ctx context.Context, plate string) ([]models.SessionHistory, error)
}

type historyPayment struct {
	PaymentID        int64     `json:"payment_id"`
	Amount           float64   `json:"amount"`
	IsPaid           bool      `json:"is_paid"`
	PaymentTimestamp time.Time `json:"payment_timestamp"`
	PaymentSource    string    `json:"payment_source"`
	Note             string    `json:"note"`
}

type historySession struct {
	SessionID      int64            `json:"session_id"`
	LicensePlate   string           `json:"license_plate"`
	EntryTimestamp time.Time        `json:"entry_timestamp"`
	ExitTimestamp  *time.Time       `json:"exit_timestamp"`
	IsActive       bool             `json:"is_active"`
	Payments       []historyPayment `json:"payments"`
}

// NewHistoryHandler returns GET /api/v1/history/ handler.
func NewHistoryHandler(reader HistoryReader, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plate := strings.TrimSpace(r.URL.Query().Get("plate_number"))
		if plate == "" {
			writeError(w, http.StatusBadRequest, "plate_number is required")
			return
		}

		history, err := reader.History(r.Context(), plate)
		if errors.Is(err, service.ErrHistoryNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			logger.Error("history lookup failed",
				zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
				zap.String("plate", plate),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, "failed to load history")
			return
		}

		sessions := make([]historySession, 0, len(history))
		for _, s := range history {
			payments := make([]historyPayment, 0, len(s.Payments))
			for _, p := range s.Payments {
				payments = append(payments, historyPayment{
					PaymentID:        p.ID,
					Amount:           p.Amount.InexactFloat64(),
					IsPaid:           p.IsPaid,
					PaymentTimestamp: p.PaymentTimestamp,
					PaymentSource:    string(p.PaymentSource),
					Note:             p.Note,
				})
			}
			sessions = append(sessions, historySession{
				SessionID:      s.ID,
				LicensePlate:   s.LicensePlate,
				EntryTimestamp: s.EntryTimestamp,
				ExitTimestamp:  s.ExitTimestamp,
				IsActive:       s.IsActive,
				Payments:       payments,
			})
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"history": sessions,
		})
	}
}
