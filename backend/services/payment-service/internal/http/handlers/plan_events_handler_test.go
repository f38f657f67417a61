package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeInvalidator struct {
	plates []string
	err    error
}

func (f *fakeInvalidator) Invalidate(_ context.Context, plate string) error {
	f.plates = append(f.plates, plate)
	return f.err
}

func TestPlanChangedHandler(t *testing.T) {
	tests := []struct {
		name     string
		cache    *fakeInvalidator
		body     string
		wantCode int
	}{
		{name: "invalidates", cache: &fakeInvalidator{}, body: `{"plate_number":" ABC123 "}`, wantCode: http.StatusAccepted},
		{name: "missing plate", cache: &fakeInvalidator{}, body: `{}`, wantCode: http.StatusBadRequest},
		{name: "invalid json", cache: &fakeInvalidator{}, body: `nope`, wantCode: http.StatusBadRequest},
		{name: "cache down", cache: &fakeInvalidator{err: assert.AnError}, body: `{"plate_number":"ABC123"}`, wantCode: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/internal/plans/changed", strings.NewReader(tt.body))
			NewPlanChangedHandler(tt.cache, zap.NewNop())(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusAccepted {
				assert.Equal(t, []string{"ABC123"}, tt.cache.plates)
			}
		})
	}
}

func TestPlanChangedHandler_NoCache(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/internal/plans/changed", strings.NewReader(`{"plate_number":"ABC123"}`))
	NewPlanChangedHandler(nil, zap.NewNop())(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}
