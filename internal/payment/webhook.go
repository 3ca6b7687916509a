package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"
)

var (
	ErrInvalidSignature = errors.New("invalid stripe signature")
	ErrMalformedEvent   = errors.New("malformed stripe event")
)

// Event es la unión de eventos que el servicio entiende.
// Los tipos que no conocemos llegan como Unhandled.
type Event interface {
	EventID() string
	EventType() string
	isEvent()
}

type eventMeta struct {
	ID   string
	Type string
}

func (e eventMeta) EventID() string   { return e.ID }
func (e eventMeta) EventType() string { return e.Type }
func (eventMeta) isEvent()            {}

type CheckoutCompleted struct {
	eventMeta
	SessionID       string
	PaymentIntentID string
	CustomerID      string
	Email           string
	AmountTotal     int64 // centavos cobrados por Stripe
	Currency        string
	PaymentStatus   string
	Livemode        bool
	Metadata        map[string]string
}

// Paid es false para métodos asincrónicos que todavía no liquidaron.
func (e CheckoutCompleted) Paid() bool {
	return e.PaymentStatus != string(stripe.CheckoutSessionPaymentStatusUnpaid)
}

type CheckoutExpired struct {
	eventMeta
	SessionID string
}

type CheckoutPaymentFailed struct {
	eventMeta
	SessionID string
}

type ChargeRefunded struct {
	eventMeta
	PaymentIntentID string
	AmountRefunded  int64
	FullyRefunded   bool
}

type Unhandled struct {
	eventMeta
}

type Verifier struct {
	secret    string
	tolerance time.Duration
}

func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &Verifier{secret: secret, tolerance: tolerance}
}

// Verify valida la firma sobre el body crudo y decodifica el evento.
func (v *Verifier) Verify(payload []byte, sigHeader string) (Event, error) {
	if sigHeader == "" {
		return nil, fmt.Errorf("%w: header missing", ErrInvalidSignature)
	}

	evt, err := webhook.ConstructEventWithOptions(payload, sigHeader, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if isSignatureError(err) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return decodeEvent(evt)
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrTooOld)
}

func decodeEvent(evt stripe.Event) (Event, error) {
	meta := eventMeta{ID: evt.ID, Type: string(evt.Type)}
	if evt.Data == nil {
		return nil, fmt.Errorf("%w: event data missing", ErrMalformedEvent)
	}

	switch evt.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		cs, err := decodeSession(evt.Data.Raw)
		if err != nil {
			return nil, err
		}
		out := CheckoutCompleted{
			eventMeta:     meta,
			SessionID:     cs.ID,
			Email:         cs.CustomerEmail,
			AmountTotal:   cs.AmountTotal,
			Currency:      string(cs.Currency),
			PaymentStatus: string(cs.PaymentStatus),
			Livemode:      cs.Livemode,
			Metadata:      cs.Metadata,
		}
		if cs.CustomerDetails != nil && cs.CustomerDetails.Email != "" {
			out.Email = cs.CustomerDetails.Email
		}
		if cs.PaymentIntent != nil {
			out.PaymentIntentID = cs.PaymentIntent.ID
		}
		if cs.Customer != nil {
			out.CustomerID = cs.Customer.ID
		}
		return out, nil

	case stripe.EventTypeCheckoutSessionExpired:
		cs, err := decodeSession(evt.Data.Raw)
		if err != nil {
			return nil, err
		}
		return CheckoutExpired{eventMeta: meta, SessionID: cs.ID}, nil

	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		cs, err := decodeSession(evt.Data.Raw)
		if err != nil {
			return nil, err
		}
		return CheckoutPaymentFailed{eventMeta: meta, SessionID: cs.ID}, nil

	case stripe.EventTypeChargeRefunded:
		var ch stripe.Charge
		if err := json.Unmarshal(evt.Data.Raw, &ch); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		out := ChargeRefunded{eventMeta: meta, AmountRefunded: ch.AmountRefunded, FullyRefunded: ch.Refunded}
		if ch.PaymentIntent != nil {
			out.PaymentIntentID = ch.PaymentIntent.ID
		}
		return out, nil

	default:
		return Unhandled{eventMeta: meta}, nil
	}
}

func decodeSession(raw json.RawMessage) (*stripe.CheckoutSession, error) {
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(raw, &cs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if cs.ID == "" {
		return nil, fmt.Errorf("%w: session id missing", ErrMalformedEvent)
	}
	return &cs, nil
}
