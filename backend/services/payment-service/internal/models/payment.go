package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentSource is the channel a settlement request came through.
type PaymentSource string

const (
	SourceGate        PaymentSource = "gate"
	SourceWebsite     PaymentSource = "website"
	SourceUnspecified PaymentSource = "unspecified"
)

// ParsePaymentSource maps request input to a source. Empty input is unspecified.
func ParsePaymentSource(raw string) (PaymentSource, error) {
	switch PaymentSource(strings.ToLower(strings.TrimSpace(raw))) {
	case "", SourceUnspecified:
		return SourceUnspecified, nil
	case SourceGate:
		return SourceGate, nil
	case SourceWebsite:
		return SourceWebsite, nil
	default:
		return "", fmt.Errorf("unknown payment source %q", raw)
	}
}

// PaymentTransaction is one ledger row. Rows are never deleted; IsPaid only moves false to true.
type PaymentTransaction struct {
	ID               int64           `db:"id"`
	ParkingSessionID int64           `db:"parking_session_id"`
	Amount           decimal.Decimal `db:"amount"`
	IsPaid           bool            `db:"is_paid"`
	PaymentTimestamp time.Time       `db:"payment_timestamp"`
	PaymentSource    PaymentSource   `db:"payment_source"`
	Note             string          `db:"note"`
}
