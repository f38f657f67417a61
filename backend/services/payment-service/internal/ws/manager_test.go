package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"parkpay/backend/services/payment-service/internal/models"
)

type gaugeRecorder struct {
	mu     sync.Mutex
	values []int
}

func (g *gaugeRecorder) SetGateClients(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values = append(g.values, n)
}

func (g *gaugeRecorder) last() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.values) == 0 {
		return -1
	}
	return g.values[len(g.values)-1]
}

func dialGate(t *testing.T, srv *httptest.Server, gateID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/gates?gate_id=" + gateID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestGateFeed_BroadcastsSettlements(t *testing.T) {
	gauge := &gaugeRecorder{}
	manager := NewManager(gauge, zap.NewNop())
	server := NewServer(manager, time.Second, zap.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(server.HandleWS))
	t.Cleanup(srv.Close)

	first := dialGate(t, srv, "north")
	second := dialGate(t, srv, "south")
	require.Eventually(t, func() bool { return manager.Count() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, gauge.last())

	manager.PublishSettlement("ABC123", models.SourceGate, models.SettlementOutcome{
		Status:    models.StatusSuccess,
		Message:   "payment covered by active subscription plan",
		SessionID: 7,
		Fee:       decimal.RequireFromString("5"),
		IsPaid:    true,
	})

	for _, conn := range []*websocket.Conn{first, second} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var event SettlementEvent
		require.NoError(t, json.Unmarshal(data, &event))
		assert.Equal(t, "settlement", event.Type)
		assert.Equal(t, "ABC123", event.PlateNumber)
		assert.Equal(t, int64(7), event.SessionID)
		assert.Equal(t, "success", event.Status)
		assert.Equal(t, 5.0, event.Fee)
		assert.True(t, event.IsPaid)
		assert.Equal(t, "gate", event.Source)
	}

	first.Close()
	require.Eventually(t, func() bool { return manager.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, gauge.last())
}

func TestGateFeed_RequiresGateID(t *testing.T) {
	server := NewServer(NewManager(nil, zap.NewNop()), 0, zap.NewNop())
	rec := httptest.NewRecorder()
	server.HandleWS(rec, httptest.NewRequest(http.MethodGet, "/ws/gates", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestManager_BroadcastWithoutClients(t *testing.T) {
	manager := NewManager(nil, zap.NewNop())
	assert.NotPanics(t, func() {
		manager.PublishSettlement("ABC123", models.SourceWebsite, models.SettlementOutcome{Status: models.StatusRejected})
	})
	assert.Equal(t, 0, manager.Count())
}

func TestServer_CloseDisconnectsGates(t *testing.T) {
	gauge := &gaugeRecorder{}
	manager := NewManager(gauge, zap.NewNop())
	server := NewServer(manager, time.Second, zap.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(server.HandleWS))
	t.Cleanup(srv.Close)

	conn := dialGate(t, srv, "north")
	require.Eventually(t, func() bool { return manager.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	server.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	require.Eventually(t, func() bool { return manager.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, gauge.last())

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/gates?gate_id=south"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
