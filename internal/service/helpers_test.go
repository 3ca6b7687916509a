package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"storefront-checkout/internal/model"
	"storefront-checkout/internal/payment"
)

type fakeSessions struct {
	mu       sync.Mutex
	requests []payment.SessionRequest
	err      error
}

func (f *fakeSessions) CreateCheckoutSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.requests = append(f.requests, req)
	id := fmt.Sprintf("cs_test_%d", len(f.requests))
	return &payment.Session{ID: id, URL: "https://checkout.stripe.com/c/pay/" + id}, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	created []*model.Order
	changed []*model.Order
}

func (n *recordingNotifier) NotifyNewOrder(_ context.Context, o *model.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, o)
}

func (n *recordingNotifier) NotifyOrderStatusChanged(_ context.Context, o *model.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, o)
}

var errStripeDown = errors.New("stripe unavailable")
