package ws

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"parkpay/backend/services/payment-service/internal/models"
)

// ClientGauge tracks how many gate displays are connected.
type ClientGauge interface {
	SetGateClients(n int)
}

// SettlementEvent is pushed to gate displays after every settlement.
type SettlementEvent struct {
	Type        string    `json:"type"`
	PlateNumber string    `json:"plate_number"`
	SessionID   int64     `json:"parking_session_id"`
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	Fee         float64   `json:"fee"`
	IsPaid      bool      `json:"is_paid"`
	Source      string    `json:"source"`
	At          time.Time `json:"at"`
}

// Manager tracks gate display connections and fans settlement events out to them.
type Manager struct {
	mu          sync.RWMutex
	connections map[*Connection]struct{}
	gauge       ClientGauge
	logger      *zap.Logger
	now         func() time.Time
}

// NewManager builds connection manager. gauge may be nil.
func NewManager(gauge ClientGauge, logger *zap.Logger) *Manager {
	return &Manager{
		connections: make(map[*Connection]struct{}),
		gauge:       gauge,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Add registers new connection.
func (m *Manager) Add(conn *Connection) {
	m.mu.Lock()
	m.connections[conn] = struct{}{}
	n := len(m.connections)
	m.mu.Unlock()
	m.report(n)
}

// Remove removes connection.
func (m *Manager) Remove(conn *Connection) {
	m.mu.Lock()
	delete(m.connections, conn)
	n := len(m.connections)
	m.mu.Unlock()
	m.report(n)
}

// Count returns the number of connected displays.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// Broadcast queues msg on every connection. Slow displays drop messages instead of blocking.
func (m *Manager) Broadcast(msg []byte) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for conn := range m.connections {
		conn.Send(msg)
	}
}

// PublishSettlement implements service.OutcomePublisher.
func (m *Manager) PublishSettlement(plate string, source models.PaymentSource, outcome models.SettlementOutcome) {
	data, err := json.Marshal(SettlementEvent{
		Type:        "settlement",
		PlateNumber: plate,
		SessionID:   outcome.SessionID,
		Status:      string(outcome.Status),
		Message:     outcome.Message,
		Fee:         outcome.Fee.InexactFloat64(),
		IsPaid:      outcome.IsPaid,
		Source:      string(source),
		At:          m.now(),
	})
	if err != nil {
		m.logger.Warn("failed to encode settlement event", zap.Error(err))
		return
	}
	m.Broadcast(data)
}

func (m *Manager) report(n int) {
	if m.gauge != nil {
		m.gauge.SetGateClients(n)
	}
}
