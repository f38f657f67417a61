package service

import (
	"github.com/shopspring/decimal"

	"parkpay/backend/services/payment-service/internal/models"
)

// SessionState is what the engine learned about the requested session.
type SessionState int

const (
	// SessionActive means the session row was found active and locked.
	SessionActive SessionState = iota
	// SessionUnresolved means the plate had no active session.
	SessionUnresolved
	// SessionGone means the session id does not exist or has exited.
	SessionGone
)

// DecisionInput holds everything the decision depends on.
type DecisionInput struct {
	PlanActive  bool
	Session     SessionState
	AlreadyPaid bool
	Source      models.PaymentSource
	Fee         decimal.Decimal
}

// LedgerWrite describes the single ledger insert a decision requires.
type LedgerWrite struct {
	Amount   decimal.Decimal
	Source   models.PaymentSource
	Note     string
	MarkPaid bool
	// MustMark turns a MarkPaid that finds no unpaid row into an internal error.
	MustMark bool
}

// Decision is the outcome of Decide. Write is nil when nothing is recorded.
type Decision struct {
	Status  models.SettlementStatus
	Message string
	Fee     decimal.Decimal
	Paid    bool
	Write   *LedgerWrite
}

const (
	noteDuplicate    = "duplicate settlement attempt: session already paid"
	notePlanCovered  = "exit covered by active subscription plan"
	noteWebsitePaid  = "paid online"
	noteGateUnpaid   = "exit attempted with outstanding balance"
	msgPaymentOK     = "payment successful"
	msgPlanCovered   = "payment covered by active subscription plan"
	msgAlreadyPaid   = "parking session already paid"
	msgUnpaidBalance = "outstanding balance: pay online or activate a subscription plan"
	msgRejectedPlan  = "payment already covered by subscription"
	msgInternal      = "payment could not be marked as paid"
)

// Decide maps the gathered inputs to a settlement decision. Checks run in a fixed order and the
// first terminal one wins; at most one ledger write results.
func Decide(in DecisionInput) Decision {
	switch in.Session {
	case SessionUnresolved:
		return Decision{Status: models.StatusNotFound, Message: ErrNoActiveSession.Error(), Fee: decimal.Zero}
	case SessionGone:
		return Decision{Status: models.StatusNotFound, Message: ErrSessionNotFound.Error(), Fee: decimal.Zero}
	}

	if in.AlreadyPaid {
		return Decision{
			Status:  models.StatusAlreadyPaid,
			Message: msgAlreadyPaid,
			Fee:     decimal.Zero,
			Paid:    true,
			Write: &LedgerWrite{
				Amount: decimal.Zero,
				Source: in.Source,
				Note:   noteDuplicate,
			},
		}
	}

	if in.PlanActive {
		if in.Source == models.SourceWebsite {
			return Decision{Status: models.StatusRejected, Message: msgRejectedPlan, Fee: in.Fee}
		}
		return Decision{
			Status:  models.StatusSuccess,
			Message: msgPlanCovered,
			Fee:     in.Fee,
			Paid:    true,
			Write: &LedgerWrite{
				Amount:   in.Fee,
				Source:   models.SourceGate,
				Note:     notePlanCovered,
				MarkPaid: true,
			},
		}
	}

	if in.Source == models.SourceWebsite {
		return Decision{
			Status:  models.StatusSuccess,
			Message: msgPaymentOK,
			Fee:     in.Fee,
			Paid:    true,
			Write: &LedgerWrite{
				Amount:   in.Fee,
				Source:   in.Source,
				Note:     noteWebsitePaid,
				MarkPaid: true,
				MustMark: true,
			},
		}
	}

	return Decision{
		Status:  models.StatusFailed,
		Message: msgUnpaidBalance,
		Fee:     in.Fee,
		Paid:    false,
		Write: &LedgerWrite{
			Amount: in.Fee,
			Source: in.Source,
			Note:   noteGateUnpaid,
		},
	}
}
