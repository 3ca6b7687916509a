package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront-checkout/internal/dto"
	"storefront-checkout/internal/logger"
	"storefront-checkout/internal/metrics"
	"storefront-checkout/internal/model"
	"storefront-checkout/internal/payment"
	"storefront-checkout/internal/repository"
)

const defaultCurrency = "usd"

type CheckoutService struct {
	catalog  CatalogRepository
	orders   OrderRepository
	sessions SessionCreator
	pricing  Pricing
	testMode bool
	log      *logger.Logger
	metrics  *metrics.Metrics
}

type CheckoutServiceParams struct {
	Catalog  CatalogRepository
	Orders   OrderRepository
	Sessions SessionCreator
	Pricing  Pricing
	TestMode bool
	Logger   *logger.Logger
	Metrics  *metrics.Metrics
}

func NewCheckoutService(p CheckoutServiceParams) *CheckoutService {
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	return &CheckoutService{
		catalog:  p.Catalog,
		orders:   p.Orders,
		sessions: p.Sessions,
		pricing:  p.Pricing,
		testMode: p.TestMode,
		log:      p.Logger,
		metrics:  p.Metrics,
	}
}

// Prepare resuelve el carrito contra el catálogo y crea la sesión de Stripe.
// Los precios salen siempre del catálogo, nunca del cliente.
func (s *CheckoutService) Prepare(ctx context.Context, req dto.PrepareCheckoutRequest, userID string) (*payment.Session, error) {
	if len(req.Items) == 0 {
		s.metrics.IncCheckout("rejected")
		return nil, ErrNoItems
	}
	email := model.NormalizeEmail(req.Email)
	if email == "" {
		s.metrics.IncCheckout("rejected")
		return nil, ErrEmailRequired
	}

	lines, currency, err := s.resolveCart(ctx, req.Items)
	if err != nil {
		s.metrics.IncCheckout("error")
		return nil, err
	}
	if len(lines) == 0 {
		s.metrics.IncCheckout("rejected")
		return nil, ErrNoValidItems
	}

	breakdown := s.pricing.Compute(lines)

	md, err := payment.EncodeCartMetadata(lines, userID)
	if err != nil {
		s.metrics.IncCheckout("rejected")
		return nil, err
	}

	sessReq := payment.SessionRequest{Email: email, Currency: currency, Metadata: md}
	for _, item := range breakdown.Items {
		sessReq.Lines = append(sessReq.Lines, payment.SessionLine{
			Name:       item.Title,
			UnitAmount: minorUnits(decimalFromFloat(item.UnitPrice), currency),
			Quantity:   item.Quantity,
		})
	}
	if breakdown.Tax.IsPositive() {
		sessReq.Lines = append(sessReq.Lines, payment.SessionLine{
			Name:       "Tax",
			UnitAmount: minorUnits(breakdown.Tax, currency),
			Quantity:   1,
		})
	}

	sess, err := s.sessions.CreateCheckoutSession(ctx, sessReq)
	if err != nil {
		s.metrics.IncCheckout("error")
		s.log.Error(ctx, "stripe session creation failed", err)
		return nil, fmt.Errorf("%w: %v", ErrCheckoutFailed, err)
	}

	ctx = s.log.WithField(ctx, "session_id", sess.ID)

	// Orden pendiente. Si falla, el webhook la crea igual más tarde.
	order := &model.Order{
		UserID:   userID,
		Email:    email,
		Currency: currency,
		Status:   model.StatusPending,
		TestMode: s.testMode,
		Payment:  model.PaymentInfo{SessionID: sess.ID},
	}
	breakdown.Apply(order)
	if err := s.orders.Create(ctx, order); err != nil {
		s.log.Error(ctx, "pending order not stored", err)
	}

	s.metrics.IncCheckout("created")
	s.log.Info(ctx, fmt.Sprintf("checkout session created with %d items", len(lines)))
	return sess, nil
}

// resolveCart descarta en silencio ítems inexistentes, inactivos o de otra moneda.
func (s *CheckoutService) resolveCart(ctx context.Context, items []dto.CartItem) ([]payment.CartLine, string, error) {
	var (
		lines    []payment.CartLine
		currency string
	)
	for _, it := range items {
		if it.ID == "" || !it.Type.Valid() {
			continue
		}
		item, err := s.catalog.FindItem(ctx, it.ID, it.Type)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("catalog lookup %s/%s: %w", it.Type, it.ID, err)
		}
		if !item.Active || item.Price < 0 {
			continue
		}

		cur := strings.ToLower(item.Currency)
		if cur == "" {
			cur = defaultCurrency
		}
		if currency == "" {
			currency = cur
		}
		if cur != currency {
			s.log.Warn(ctx, fmt.Sprintf("item %s dropped: currency %s differs from %s", it.ID, cur, currency))
			continue
		}

		qty := it.Quantity
		if qty < 1 {
			qty = 1
		}
		lines = append(lines, payment.CartLine{
			ID:       it.ID,
			Type:     it.Type,
			Title:    item.Title,
			Price:    decimalFromFloat(item.Price).StringFixed(2),
			Quantity: qty,
		})
	}
	return lines, currency, nil
}
