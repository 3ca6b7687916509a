// Package paymenttest arma eventos de Stripe firmados para tests.
package paymenttest

import (
	"encoding/json"
	"time"

	"github.com/stripe/stripe-go/v84/webhook"
)

const Secret = "whsec_test"

// SignatureHeader calcula el header stripe-signature para payload.
func SignatureHeader(payload []byte, secret string, ts time.Time) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: ts,
	})
	return signed.Header
}

// Event arma el sobre {id, type, data.object} que manda Stripe.
func Event(id, eventType string, object any) []byte {
	raw, err := json.Marshal(map[string]any{
		"id":     id,
		"object": "event",
		"type":   eventType,
		"data":   map[string]any{"object": object},
	})
	if err != nil {
		panic(err)
	}
	return raw
}

// CompletedSession es el objeto checkout.session que usan los tests.
func CompletedSession(sessionID, email string, amountTotal int64, metadata map[string]string) map[string]any {
	return map[string]any{
		"id":             sessionID,
		"object":         "checkout.session",
		"customer_email": email,
		"amount_total":   amountTotal,
		"currency":       "usd",
		"payment_status": "paid",
		"payment_intent": "pi_" + sessionID,
		"customer":       "cus_" + sessionID,
		"livemode":       false,
		"metadata":       metadata,
	}
}

// Signed devuelve payload y header firmados con Secret.
func Signed(payload []byte) ([]byte, string) {
	return payload, SignatureHeader(payload, Secret, time.Now())
}
