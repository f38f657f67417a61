package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"parkpay/backend/services/payment-service/internal/models"
	"parkpay/backend/services/payment-service/internal/service"
)

type fakeSettler struct {
	outcome *models.SettlementOutcome
	err     error
	got     *service.SettlementRequest
}

func (f *fakeSettler) Settle(_ context.Context, req service.SettlementRequest) (*models.SettlementOutcome, error) {
	f.got = &req
	return f.outcome, f.err
}

type fakeStatus struct {
	status *service.PaymentStatus
	err    error
}

func (f *fakeStatus) PaymentStatus(_ context.Context, sessionID int64) (*service.PaymentStatus, error) {
	if f.status != nil {
		f.status.SessionID = sessionID
	}
	return f.status, f.err
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleSettle(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		settler    *fakeSettler
		wantCode   int
		wantStatus string
		wantSource models.PaymentSource
		called     bool
	}{
		{
			name: "plan covered gate exit",
			body: `{"plate_number":" ABC123 ","parking_session_id":7,"source":"gate"}`,
			settler: &fakeSettler{outcome: &models.SettlementOutcome{
				Status: models.StatusSuccess, Message: "ok", SessionID: 7, Fee: decimal.RequireFromString("5"), IsPaid: true,
			}},
			wantCode:   http.StatusOK,
			wantStatus: "success",
			wantSource: models.SourceGate,
			called:     true,
		},
		{
			name: "failed gate exit is still 200",
			body: `{"plate_number":"ABC123","parking_session_id":7}`,
			settler: &fakeSettler{outcome: &models.SettlementOutcome{
				Status: models.StatusFailed, SessionID: 7, Fee: decimal.RequireFromString("2.5"),
			}},
			wantCode:   http.StatusOK,
			wantStatus: "failed",
			wantSource: models.SourceUnspecified,
			called:     true,
		},
		{
			name:       "not found",
			body:       `{"plate_number":"ABC123","source":"website"}`,
			settler:    &fakeSettler{outcome: &models.SettlementOutcome{Status: models.StatusNotFound}},
			wantCode:   http.StatusNotFound,
			wantStatus: "not_found",
			wantSource: models.SourceWebsite,
			called:     true,
		},
		{
			name:       "rejected",
			body:       `{"plate_number":"ABC123","source":"website"}`,
			settler:    &fakeSettler{outcome: &models.SettlementOutcome{Status: models.StatusRejected, Fee: decimal.NewFromInt(3)}},
			wantCode:   http.StatusBadRequest,
			wantStatus: "rejected",
			wantSource: models.SourceWebsite,
			called:     true,
		},
		{
			name:       "ledger failure",
			body:       `{"plate_number":"ABC123","source":"website"}`,
			settler:    &fakeSettler{err: service.ErrPersistence},
			wantCode:   http.StatusInternalServerError,
			wantStatus: "internal_error",
			wantSource: models.SourceWebsite,
			called:     true,
		},
		{name: "invalid json", body: `{`, settler: &fakeSettler{}, wantCode: http.StatusBadRequest},
		{name: "missing plate", body: `{"source":"gate"}`, settler: &fakeSettler{}, wantCode: http.StatusBadRequest},
		{name: "plate too long", body: `{"plate_number":"` + strings.Repeat("A", 21) + `"}`, settler: &fakeSettler{}, wantCode: http.StatusBadRequest},
		{name: "unknown source", body: `{"plate_number":"ABC123","source":"kiosk"}`, settler: &fakeSettler{}, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewPaymentsHandler(tt.settler, &fakeStatus{}, zap.NewNop())
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/", strings.NewReader(tt.body))

			h.HandleSettle(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			body := decodeBody(t, rec)
			if !tt.called {
				assert.Nil(t, tt.settler.got)
				assert.NotEmpty(t, body["error"])
				return
			}
			require.NotNil(t, tt.settler.got)
			assert.Equal(t, "ABC123", tt.settler.got.Plate)
			assert.Equal(t, tt.wantSource, tt.settler.got.Source)
			assert.Equal(t, tt.wantStatus, body["status"])
		})
	}
}

func TestHandleSettle_PlateLengthCountsCharacters(t *testing.T) {
	tests := []struct {
		name     string
		plate    string
		wantCode int
	}{
		{name: "twenty non-ascii characters", plate: strings.Repeat("Ж", 20), wantCode: http.StatusOK},
		{name: "twenty-one non-ascii characters", plate: strings.Repeat("Ж", 21), wantCode: http.StatusBadRequest},
		{name: "mixed scripts at the limit", plate: "МОСКВА" + strings.Repeat("7", 14), wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settler := &fakeSettler{outcome: &models.SettlementOutcome{Status: models.StatusFailed, Fee: decimal.NewFromInt(1)}}
			h := NewPaymentsHandler(settler, &fakeStatus{}, zap.NewNop())
			rec := httptest.NewRecorder()
			body := `{"plate_number":"` + tt.plate + `","source":"gate"}`
			h.HandleSettle(rec, httptest.NewRequest(http.MethodPost, "/api/v1/payments/", strings.NewReader(body)))

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				require.NotNil(t, settler.got)
				assert.Equal(t, tt.plate, settler.got.Plate)
			} else {
				assert.Nil(t, settler.got)
			}
		})
	}
}

func TestHandleSettle_ResponseShape(t *testing.T) {
	settler := &fakeSettler{outcome: &models.SettlementOutcome{
		Status: models.StatusSuccess, Message: "payment successful", SessionID: 12, Fee: decimal.RequireFromString("7.50"), IsPaid: true,
	}}
	h := NewPaymentsHandler(settler, &fakeStatus{}, zap.NewNop())
	rec := httptest.NewRecorder()
	h.HandleSettle(rec, httptest.NewRequest(http.MethodPost, "/api/v1/payments/", strings.NewReader(`{"plate_number":"ABC123","source":"website"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "payment successful", body["message"])
	assert.Equal(t, 12.0, body["parking_session_id"])
	assert.Equal(t, 7.5, body["fee"])
	assert.Equal(t, true, body["is_paid"])
}

func TestHandleStatus(t *testing.T) {
	outstanding := decimal.RequireFromString("4.5")

	tests := []struct {
		name     string
		query    string
		status   *fakeStatus
		wantCode int
		check    func(t *testing.T, body map[string]interface{})
	}{
		{
			name:     "paid",
			query:    "?parking_session_id=3",
			status:   &fakeStatus{status: &service.PaymentStatus{IsPaid: true}},
			wantCode: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, 3.0, body["parking_session_id"])
				assert.Equal(t, true, body["is_paid"])
				assert.Nil(t, body["outstanding"])
			},
		},
		{
			name:     "outstanding",
			query:    "?parking_session_id=3",
			status:   &fakeStatus{status: &service.PaymentStatus{Outstanding: &outstanding}},
			wantCode: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, false, body["is_paid"])
				assert.Equal(t, 4.5, body["outstanding"])
			},
		},
		{name: "missing id", query: "", status: &fakeStatus{}, wantCode: http.StatusBadRequest},
		{name: "negative id", query: "?parking_session_id=-1", status: &fakeStatus{}, wantCode: http.StatusBadRequest},
		{name: "ledger failure", query: "?parking_session_id=3", status: &fakeStatus{err: service.ErrPersistence}, wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewPaymentsHandler(&fakeSettler{}, tt.status, zap.NewNop())
			rec := httptest.NewRecorder()
			h.HandleStatus(rec, httptest.NewRequest(http.MethodGet, "/api/v1/payments/status"+tt.query, nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.check != nil {
				tt.check(t, decodeBody(t, rec))
			}
		})
	}
}
