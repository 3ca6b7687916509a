package model

import (
	"errors"
	"strings"
)

type OrderStatus string

const (
	StatusPending  OrderStatus = "pending"
	StatusPaid     OrderStatus = "paid"
	StatusFailed   OrderStatus = "failed"
	StatusExpired  OrderStatus = "expired"
	StatusRefunded OrderStatus = "refunded"
)

var ErrInvalidTransition = errors.New("invalid order status transition")

// Transiciones permitidas. Todo lo que no está acá se rechaza.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending: {StatusPaid, StatusFailed, StatusExpired},
	StatusPaid:    {StatusRefunded},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusFailed, StatusExpired, StatusRefunded:
		return true
	}
	return false
}

func ParseStatus(raw string) (OrderStatus, bool) {
	s := OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.Valid()
}

// CanTransition valida from -> to contra la tabla.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SourcesFor devuelve los estados desde los que se puede llegar a "to".
// Lo usa el repositorio para hacer el update condicional.
func SourcesFor(to OrderStatus) []OrderStatus {
	var out []OrderStatus
	for from, nexts := range transitions {
		for _, n := range nexts {
			if n == to {
				out = append(out, from)
			}
		}
	}
	return out
}

// Transition verifica la transición. Mismo estado: no-op, sin error.
func (o *Order) Transition(to OrderStatus) (changed bool, err error) {
	if o.Status == to {
		return false, nil
	}
	if !CanTransition(o.Status, to) {
		return false, ErrInvalidTransition
	}
	return true, nil
}

// NormalizeEmail es la forma en que se guardan y buscan los emails.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// StatusChange describe un cambio de estado a persistir junto con los datos de pago.
type StatusChange struct {
	To              OrderStatus
	Reason          string
	PaymentIntentID string
	CustomerID      string
	AmountMismatch  bool
}
