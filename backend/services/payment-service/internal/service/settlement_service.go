package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"parkpay/backend/services/payment-service/internal/models"
	"parkpay/backend/services/payment-service/internal/repository"
)

// PlanChecker answers whether a plate has an active subscription plan. Implementations never fail;
// an unreachable plan service reads as "no plan".
type PlanChecker interface {
	IsPlanActive(ctx context.Context, plate string) bool
}

// Ledger runs session-scoped ledger transactions.
type Ledger interface {
	WithSessionLock(ctx context.Context, sessionID int64, fn func(ctx context.Context, tx repository.LedgerTx) error) error
}

// OutcomePublisher receives every settled outcome, e.g. to update gate displays.
type OutcomePublisher interface {
	PublishSettlement(plate string, source models.PaymentSource, outcome models.SettlementOutcome)
}

// SettlementObserver records settlement metrics.
type SettlementObserver interface {
	ObserveSettlement(status models.SettlementStatus, source models.PaymentSource, elapsed time.Duration)
}

// SettlementRequest is one exit or online payment attempt.
type SettlementRequest struct {
	Plate     string
	SessionID *int64
	Source    models.PaymentSource
}

// SettlementService decides and records the payment outcome for a parking session.
type SettlementService struct {
	plans     PlanChecker
	resolver  *SessionResolver
	ledger    Ledger
	fees      FeeSchedule
	publisher OutcomePublisher
	observer  SettlementObserver
	logger    *zap.Logger
	now       func() time.Time
}

// Option customises SettlementService.
type Option func(*SettlementService)

// WithPublisher sets the outcome publisher.
func WithPublisher(p OutcomePublisher) Option {
	return func(s *SettlementService) { s.publisher = p }
}

// WithObserver sets the metrics observer.
func WithObserver(o SettlementObserver) Option {
	return func(s *SettlementService) { s.observer = o }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *SettlementService) { s.now = now }
}

// NewSettlementService builds service.
func NewSettlementService(
	plans PlanChecker,
	resolver *SessionResolver,
	ledger Ledger,
	fees FeeSchedule,
	logger *zap.Logger,
	opts ...Option,
) *SettlementService {
	s := &SettlementService{
		plans:    plans,
		resolver: resolver,
		ledger:   ledger,
		fees:     fees,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Settle runs one settlement. not_found and rejected are outcomes, not errors. The error is
// non-nil only for ErrPersistence or ErrInternalInconsistency, in which case nothing was written.
func (s *SettlementService) Settle(ctx context.Context, req SettlementRequest) (*models.SettlementOutcome, error) {
	started := s.now()
	planActive := s.plans.IsPlanActive(ctx, req.Plate)

	outcome, err := s.settle(ctx, req, planActive)
	if err != nil {
		fields := []zap.Field{
			zap.String("plate", req.Plate),
			zap.String("source", string(req.Source)),
			zap.Error(err),
		}
		if errors.Is(err, ErrInternalInconsistency) {
			s.logger.Error("ledger invariant violated during settlement", fields...)
		} else {
			s.logger.Error("settlement failed", fields...)
		}
		s.observe(models.StatusInternalError, req.Source, started)
		return nil, err
	}

	s.logger.Info("settlement decided",
		zap.String("plate", req.Plate),
		zap.Int64("session_id", outcome.SessionID),
		zap.String("source", string(req.Source)),
		zap.Bool("plan_active", planActive),
		zap.String("status", string(outcome.Status)),
		zap.String("fee", outcome.Fee.StringFixed(2)),
		zap.Bool("is_paid", outcome.IsPaid),
	)
	s.observe(outcome.Status, req.Source, started)
	if s.publisher != nil {
		s.publisher.PublishSettlement(req.Plate, req.Source, *outcome)
	}
	return outcome, nil
}

func (s *SettlementService) settle(ctx context.Context, req SettlementRequest, planActive bool) (*models.SettlementOutcome, error) {
	sessionID, err := s.resolver.Resolve(ctx, req.SessionID, req.Plate, req.Source)
	if errors.Is(err, ErrNoActiveSession) {
		var requested int64
		if req.SessionID != nil {
			requested = *req.SessionID
		}
		return toOutcome(Decide(DecisionInput{PlanActive: planActive, Session: SessionUnresolved, Source: req.Source}), requested), nil
	}
	if err != nil {
		return nil, err
	}

	var decision Decision
	err = s.ledger.WithSessionLock(ctx, sessionID, func(ctx context.Context, tx repository.LedgerTx) error {
		session, err := tx.ActiveSession(ctx, sessionID)
		if errors.Is(err, repository.ErrSessionNotFound) {
			decision = Decide(DecisionInput{PlanActive: planActive, Session: SessionGone, Source: req.Source})
			return nil
		}
		if err != nil {
			return fmt.Errorf("lock session: %w", err)
		}

		fee := s.fees.Fee(session.EntryTimestamp, s.now())

		paid, err := tx.IsPaid(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("check paid: %w", err)
		}

		decision = Decide(DecisionInput{
			PlanActive:  planActive,
			Session:     SessionActive,
			AlreadyPaid: paid,
			Source:      req.Source,
			Fee:         fee,
		})
		return s.apply(ctx, tx, sessionID, decision.Write)
	})
	if err != nil {
		if errors.Is(err, ErrInternalInconsistency) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return toOutcome(decision, sessionID), nil
}

func (s *SettlementService) apply(ctx context.Context, tx repository.LedgerTx, sessionID int64, w *LedgerWrite) error {
	if w == nil {
		return nil
	}

	payment := &models.PaymentTransaction{
		ParkingSessionID: sessionID,
		Amount:           w.Amount,
		PaymentTimestamp: s.now(),
		PaymentSource:    w.Source,
		Note:             w.Note,
	}
	if err := tx.Record(ctx, payment); err != nil {
		return fmt.Errorf("record payment: %w", err)
	}
	if !w.MarkPaid {
		return nil
	}

	marked, err := tx.MarkPaid(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("mark paid: %w", err)
	}
	if marked == nil && w.MustMark {
		return fmt.Errorf("%w: %s (session %d, payment %d)", ErrInternalInconsistency, msgInternal, sessionID, payment.ID)
	}
	return nil
}

func (s *SettlementService) observe(status models.SettlementStatus, source models.PaymentSource, started time.Time) {
	if s.observer != nil {
		s.observer.ObserveSettlement(status, source, s.now().Sub(started))
	}
}

func toOutcome(d Decision, sessionID int64) *models.SettlementOutcome {
	return &models.SettlementOutcome{
		Status:    d.Status,
		Message:   d.Message,
		SessionID: sessionID,
		Fee:       d.Fee,
		IsPaid:    d.Paid,
	}
}
