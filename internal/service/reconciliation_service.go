package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-checkout/internal/logger"
	"storefront-checkout/internal/metrics"
	"storefront-checkout/internal/model"
	"storefront-checkout/internal/payment"
	"storefront-checkout/internal/repository"
)

// Outcome resume qué hizo el handler con el evento (para logs y métricas).
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomePaid      Outcome = "paid"
	OutcomeExpired   Outcome = "expired"
	OutcomeFailed    Outcome = "failed"
	OutcomeRefunded  Outcome = "refunded"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeRejected  Outcome = "rejected"
	OutcomeIgnored   Outcome = "ignored"
)

type ReconciliationService struct {
	repo     OrderRepository
	notifier OrderNotifier
	pricing  Pricing
	log      *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

type ReconciliationServiceParams struct {
	Repo     OrderRepository
	Notifier OrderNotifier
	Pricing  Pricing
	Logger   *logger.Logger
	Metrics  *metrics.Metrics
}

func NewReconciliationService(p ReconciliationServiceParams) *ReconciliationService {
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	if p.Notifier == nil {
		p.Notifier = nopNotifier{}
	}
	return &ReconciliationService{
		repo:     p.Repo,
		notifier: p.Notifier,
		pricing:  p.Pricing,
		log:      p.Logger,
		metrics:  p.Metrics,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Handle aplica un evento ya verificado sobre la orden correspondiente.
// Solo devuelve error ante fallas de persistencia; en ese caso Stripe reintenta.
func (s *ReconciliationService) Handle(ctx context.Context, evt payment.Event) (Outcome, error) {
	ctx = s.log.WithFields(ctx, map[string]any{"event_id": evt.EventID(), "event_type": evt.EventType()})

	var (
		out Outcome
		err error
	)
	switch e := evt.(type) {
	case payment.CheckoutCompleted:
		out, err = s.handleCompleted(s.log.WithField(ctx, "session_id", e.SessionID), e)
	case payment.CheckoutExpired:
		out, err = s.handleSessionStatus(s.log.WithField(ctx, "session_id", e.SessionID), e.SessionID, model.StatusExpired, "checkout session expired")
	case payment.CheckoutPaymentFailed:
		out, err = s.handleSessionStatus(s.log.WithField(ctx, "session_id", e.SessionID), e.SessionID, model.StatusFailed, "asynchronous payment failed")
	case payment.ChargeRefunded:
		out, err = s.handleRefund(s.log.WithField(ctx, "payment_intent_id", e.PaymentIntentID), e)
	default:
		out = OutcomeIgnored
	}

	if err != nil {
		s.metrics.IncWebhook(evt.EventType(), "error")
		s.log.Error(ctx, "webhook reconciliation failed", err)
		return "", err
	}
	s.metrics.IncWebhook(evt.EventType(), string(out))
	s.log.Info(ctx, fmt.Sprintf("webhook reconciled: %s", out))
	return out, nil
}

func (s *ReconciliationService) handleCompleted(ctx context.Context, e payment.CheckoutCompleted) (Outcome, error) {
	if !e.Paid() {
		// Pago asincrónico en curso; llega después como async_payment_succeeded
		return OutcomeIgnored, nil
	}

	candidate := s.orderFromSession(ctx, e)

	stored, created, err := s.repo.UpsertBySession(ctx, candidate)
	if err != nil {
		return "", fmt.Errorf("upsert order by session: %w", err)
	}
	if created {
		if stored.AmountMismatch {
			s.warnMismatch(ctx, stored, e)
		}
		s.notifier.NotifyNewOrder(ctx, stored)
		return OutcomeCreated, nil
	}

	return s.markPaid(ctx, stored, e)
}

// markPaid transiciona una orden existente a paid. Redelivery sobre una orden paga es no-op.
func (s *ReconciliationService) markPaid(ctx context.Context, o *model.Order, e payment.CheckoutCompleted) (Outcome, error) {
	changed, err := o.Transition(model.StatusPaid)
	if err != nil {
		s.log.Warn(ctx, fmt.Sprintf("payment confirmation ignored for order in status %s", o.Status))
		return OutcomeRejected, nil
	}
	if !changed {
		return OutcomeDuplicate, nil
	}

	mismatch := chargeMismatch(o, e)
	if mismatch {
		s.warnMismatch(ctx, o, e)
	}

	updated, err := s.repo.TransitionStatus(ctx, o.ID, model.StatusChange{
		To:              model.StatusPaid,
		Reason:          "payment confirmed by stripe",
		PaymentIntentID: e.PaymentIntentID,
		CustomerID:      e.CustomerID,
		AmountMismatch:  mismatch,
	})
	if errors.Is(err, repository.ErrStaleStatus) {
		// Otra entrega concurrente ya la marcó como paga
		return OutcomeDuplicate, nil
	}
	if err != nil {
		return "", fmt.Errorf("mark order paid: %w", err)
	}

	s.notifier.NotifyOrderStatusChanged(ctx, updated)
	return OutcomePaid, nil
}

func (s *ReconciliationService) handleSessionStatus(ctx context.Context, sessionID string, to model.OrderStatus, reason string) (Outcome, error) {
	o, err := s.repo.FindBySessionID(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return OutcomeIgnored, nil
	}
	if err != nil {
		return "", fmt.Errorf("find order by session: %w", err)
	}
	return s.transition(ctx, o, model.StatusChange{To: to, Reason: reason})
}

func (s *ReconciliationService) handleRefund(ctx context.Context, e payment.ChargeRefunded) (Outcome, error) {
	if e.PaymentIntentID == "" || !e.FullyRefunded {
		// Los reembolsos parciales no cambian el estado
		return OutcomeIgnored, nil
	}
	o, err := s.repo.FindByPaymentIntentID(ctx, e.PaymentIntentID)
	if errors.Is(err, repository.ErrNotFound) {
		return OutcomeIgnored, nil
	}
	if err != nil {
		return "", fmt.Errorf("find order by payment intent: %w", err)
	}
	return s.transition(ctx, o, model.StatusChange{To: model.StatusRefunded, Reason: "charge refunded"})
}

func (s *ReconciliationService) transition(ctx context.Context, o *model.Order, change model.StatusChange) (Outcome, error) {
	changed, err := o.Transition(change.To)
	if err != nil {
		s.log.Warn(ctx, fmt.Sprintf("transition %s -> %s rejected", o.Status, change.To))
		return OutcomeRejected, nil
	}
	if !changed {
		return OutcomeDuplicate, nil
	}

	updated, err := s.repo.TransitionStatus(ctx, o.ID, change)
	if errors.Is(err, repository.ErrStaleStatus) {
		return OutcomeRejected, nil
	}
	if err != nil {
		return "", fmt.Errorf("transition order to %s: %w", change.To, err)
	}

	s.notifier.NotifyOrderStatusChanged(ctx, updated)
	return outcomeFor(change.To), nil
}

// orderFromSession arma la orden con el carrito guardado en la metadata
// y los datos autoritativos de Stripe (email, moneda, monto).
func (s *ReconciliationService) orderFromSession(ctx context.Context, e payment.CheckoutCompleted) *model.Order {
	lines, err := payment.DecodeCartMetadata(e.Metadata)
	if err != nil {
		s.log.Warn(ctx, fmt.Sprintf("cart metadata unreadable: %v", err))
	}

	paidAt := s.now()
	o := &model.Order{
		UserID:   payment.UserIDFromMetadata(e.Metadata),
		Email:    model.NormalizeEmail(e.Email),
		Currency: strings.ToLower(e.Currency),
		Status:   model.StatusPaid,
		TestMode: !e.Livemode,
		PaidAt:   &paidAt,
		Payment: model.PaymentInfo{
			SessionID:       e.SessionID,
			PaymentIntentID: e.PaymentIntentID,
			CustomerID:      e.CustomerID,
		},
		History: []model.StatusRecord{
			{Status: model.StatusPaid, Reason: "order created from stripe checkout", Timestamp: paidAt},
		},
	}
	s.pricing.Compute(lines).Apply(o)
	if len(lines) == 0 {
		// Sin carrito legible nos quedamos con el monto cobrado
		o.Items = []model.LineItem{}
		amount := fromMinorUnits(e.AmountTotal, e.Currency).InexactFloat64()
		o.Subtotal, o.Total = amount, amount
	}
	o.AmountMismatch = chargeMismatch(o, e)
	return o
}

func (s *ReconciliationService) warnMismatch(ctx context.Context, o *model.Order, e payment.CheckoutCompleted) {
	s.log.Warn(ctx, fmt.Sprintf("charged amount %d %s differs from expected %d %s; order flagged for review",
		e.AmountTotal, e.Currency, ExpectedCharge(o), o.Currency))
}

func chargeMismatch(o *model.Order, e payment.CheckoutCompleted) bool {
	if e.Currency != "" && o.Currency != "" && !strings.EqualFold(e.Currency, o.Currency) {
		return true
	}
	return ExpectedCharge(o) != e.AmountTotal
}

func outcomeFor(s model.OrderStatus) Outcome {
	switch s {
	case model.StatusPaid:
		return OutcomePaid
	case model.StatusExpired:
		return OutcomeExpired
	case model.StatusFailed:
		return OutcomeFailed
	case model.StatusRefunded:
		return OutcomeRefunded
	}
	return OutcomeIgnored
}

type nopNotifier struct{}

func (nopNotifier) NotifyNewOrder(context.Context, *model.Order)           {}
func (nopNotifier) NotifyOrderStatusChanged(context.Context, *model.Order) {}
