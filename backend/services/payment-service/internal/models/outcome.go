package models

import "github.com/shopspring/decimal"

// SettlementStatus is the terminal state of one settlement request.
type SettlementStatus string

const (
	StatusSuccess       SettlementStatus = "success"
	StatusAlreadyPaid   SettlementStatus = "already_paid"
	StatusFailed        SettlementStatus = "failed"
	StatusRejected      SettlementStatus = "rejected"
	StatusNotFound      SettlementStatus = "not_found"
	StatusInternalError SettlementStatus = "internal_error"
)

// SettlementOutcome is returned to the caller and never persisted.
type SettlementOutcome struct {
	Status    SettlementStatus
	Message   string
	SessionID int64
	Fee       decimal.Decimal
	IsPaid    bool
}
