package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
)

var errAPIKeyRequired = errors.New("stripe api key is required")

type SessionLine struct {
	Name       string
	UnitAmount int64 // en centavos
	Quantity   int64
}

type SessionRequest struct {
	Email    string
	Currency string
	Lines    []SessionLine
	Metadata map[string]string
}

// Session es lo que necesitamos de la sesión de Stripe: id y URL del checkout hosteado.
type Session struct {
	ID  string
	URL string
}

type StripeClient struct {
	successURL string
	cancelURL  string
}

// NewStripeClient inicializa la clave global de Stripe una sola vez.
func NewStripeClient(apiKey, successURL, cancelURL string) (*StripeClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	stripe.Key = apiKey

	return &StripeClient{successURL: successURL, cancelURL: cancelURL}, nil
}

func (c *StripeClient) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail: stripe.String(req.Email),
		SuccessURL:    stripe.String(c.successURL),
		CancelURL:     stripe.String(c.cancelURL),
		Metadata:      req.Metadata,
	}
	for _, l := range req.Lines {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(l.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(req.Currency),
				UnitAmount: stripe.Int64(l.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(l.Name),
				},
			},
		})
	}
	params.Context = ctx

	s, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("create stripe checkout session: %w", err)
	}
	return &Session{ID: s.ID, URL: s.URL}, nil
}
