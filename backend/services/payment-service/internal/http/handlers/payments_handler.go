package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"parkpay/backend/services/payment-service/internal/http/middleware"
	"parkpay/backend/services/payment-service/internal/models"
	"parkpay/backend/services/payment-service/internal/service"
)

// maxPlateLength is in characters, matching license_plate VARCHAR(20).
const maxPlateLength = 20

// Settler runs settlements.
type Settler interface {
	Settle(ctx context.Context, req service.SettlementRequest) (*models.SettlementOutcome, error)
}

// PaymentStatusReader reports a session's payment state.
type PaymentStatusReader interface {
	PaymentStatus(ctx context.Context, sessionID int64) (*service.PaymentStatus, error)
}

// PaymentsHandler serves the payment endpoints.
type PaymentsHandler struct {
	settler Settler
	status  PaymentStatusReader
	logger  *zap.Logger
}

// NewPaymentsHandler builds handler.
func NewPaymentsHandler(settler Settler, status PaymentStatusReader, logger *zap.Logger) *PaymentsHandler {
	return &PaymentsHandler{
		settler: settler,
		status:  status,
		logger:  logger,
	}
}

type paymentRequest struct {
	PlateNumber      string `json:"plate_number"`
	ParkingSessionID *int64 `json:"parking_session_id"`
	Source           string `json:"source"`
}

type paymentResponse struct {
	Status           string  `json:"status"`
	Message          string  `json:"message"`
	ParkingSessionID int64   `json:"parking_session_id"`
	Fee              float64 `json:"fee"`
	IsPaid           bool    `json:"is_paid"`
}

// HandleSettle handles POST /api/v1/payments/.
func (h *PaymentsHandler) HandleSettle(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	plate := strings.TrimSpace(req.PlateNumber)
	if plate == "" {
		writeError(w, http.StatusBadRequest, "plate_number is required")
		return
	}
	if utf8.RuneCountInString(plate) > maxPlateLength {
		writeError(w, http.StatusBadRequest, "plate_number is too long")
		return
	}
	source, err := models.ParsePaymentSource(req.Source)
	if err != nil {
		writeError(w, http.StatusBadRequest, "source must be gate or website")
		return
	}

	outcome, err := h.settler.Settle(r.Context(), service.SettlementRequest{
		Plate:     plate,
		SessionID: req.ParkingSessionID,
		Source:    source,
	})
	if err != nil {
		h.logger.Error("payment processing failed",
			zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
			zap.String("plate", plate),
			zap.Error(err),
		)
		status := models.StatusInternalError
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status": string(status),
			"error":  "payment could not be processed",
		})
		return
	}

	writeJSON(w, settlementHTTPStatus(outcome.Status), paymentResponse{
		Status:           string(outcome.Status),
		Message:          outcome.Message,
		ParkingSessionID: outcome.SessionID,
		Fee:              outcome.Fee.InexactFloat64(),
		IsPaid:           outcome.IsPaid,
	})
}

func settlementHTTPStatus(status models.SettlementStatus) int {
	switch status {
	case models.StatusNotFound:
		return http.StatusNotFound
	case models.StatusRejected:
		return http.StatusBadRequest
	case models.StatusInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

type paymentStatusResponse struct {
	ParkingSessionID int64    `json:"parking_session_id"`
	IsPaid           bool     `json:"is_paid"`
	Outstanding      *float64 `json:"outstanding"`
}

// HandleStatus handles GET /api/v1/payments/status?parking_session_id=N.
func (h *PaymentsHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseInt(r.URL.Query().Get("parking_session_id"), 10, 64)
	if err != nil || sessionID <= 0 {
		writeError(w, http.StatusBadRequest, "parking_session_id must be a positive integer")
		return
	}

	status, err := h.status.PaymentStatus(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("payment status lookup failed",
			zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
			zap.Int64("session_id", sessionID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to load payment status")
		return
	}

	resp := paymentStatusResponse{ParkingSessionID: status.SessionID, IsPaid: status.IsPaid}
	if status.Outstanding != nil {
		amount := status.Outstanding.InexactFloat64()
		resp.Outstanding = &amount
	}
	writeJSON(w, http.StatusOK, resp)
}

