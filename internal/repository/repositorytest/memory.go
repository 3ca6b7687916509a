// Package repositorytest tiene repositorios en memoria con la misma semántica
// que los de Mongo (índice único por sesión, transiciones condicionales).
package repositorytest

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"storefront-checkout/internal/model"
	"storefront-checkout/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStore struct {
	mu     sync.Mutex
	orders []*model.Order

	// Err, si no es nil, lo devuelven todas las operaciones
	Err error
}

func NewOrderStore() *OrderStore {
	return &OrderStore{}
}

func clone(o *model.Order) *model.Order {
	c := *o
	c.Items = slices.Clone(o.Items)
	c.History = slices.Clone(o.History)
	if o.PaidAt != nil {
		t := *o.PaidAt
		c.PaidAt = &t
	}
	return &c
}

func (s *OrderStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *OrderStore) Create(_ context.Context, o *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if s.bySession(o.Payment.SessionID) != nil {
		return repository.ErrDuplicateSession
	}
	s.insert(o)
	return nil
}

func (s *OrderStore) insert(o *model.Order) {
	now := time.Now().UTC()
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	if len(o.History) == 0 {
		o.History = []model.StatusRecord{{Status: o.Status, Reason: "order created", Timestamp: now}}
	}
	s.orders = append(s.orders, clone(o))
}

func (s *OrderStore) UpsertBySession(_ context.Context, o *model.Order) (*model.Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, false, s.Err
	}
	if existing := s.bySession(o.Payment.SessionID); existing != nil {
		return clone(existing), false, nil
	}
	s.insert(o)
	return clone(o), true, nil
}

func (s *OrderStore) TransitionStatus(_ context.Context, id primitive.ObjectID, change model.StatusChange) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	sources := model.SourcesFor(change.To)
	if len(sources) == 0 {
		return nil, model.ErrInvalidTransition
	}
	for _, o := range s.orders {
		if o.ID != id {
			continue
		}
		if !slices.Contains(sources, o.Status) {
			return nil, repository.ErrStaleStatus
		}
		now := time.Now().UTC()
		o.Status = change.To
		o.UpdatedAt = now
		if change.To == model.StatusPaid {
			o.PaidAt = &now
		}
		if change.PaymentIntentID != "" {
			o.Payment.PaymentIntentID = change.PaymentIntentID
		}
		if change.CustomerID != "" {
			o.Payment.CustomerID = change.CustomerID
		}
		if change.AmountMismatch {
			o.AmountMismatch = true
		}
		o.History = append(o.History, model.StatusRecord{Status: change.To, Reason: change.Reason, Timestamp: now})
		return clone(o), nil
	}
	return nil, repository.ErrStaleStatus
}

func (s *OrderStore) FindByID(_ context.Context, id string) (*model.Order, error) {
	return s.findOne(func(o *model.Order) bool { return o.ID.Hex() == id })
}

func (s *OrderStore) FindBySessionID(_ context.Context, sessionID string) (*model.Order, error) {
	return s.findOne(func(o *model.Order) bool { return o.Payment.SessionID == sessionID })
}

func (s *OrderStore) FindByPaymentIntentID(_ context.Context, pi string) (*model.Order, error) {
	return s.findOne(func(o *model.Order) bool { return pi != "" && o.Payment.PaymentIntentID == pi })
}

func (s *OrderStore) FindAll(_ context.Context) ([]*model.Order, error) {
	return s.find(func(*model.Order) bool { return true })
}

func (s *OrderStore) FindByStatus(_ context.Context, status model.OrderStatus) ([]*model.Order, error) {
	return s.find(func(o *model.Order) bool { return o.Status == status })
}

func (s *OrderStore) FindByOwner(_ context.Context, userID, email string) ([]*model.Order, error) {
	email = model.NormalizeEmail(email)
	return s.find(func(o *model.Order) bool {
		return (userID != "" && o.UserID == userID) || (email != "" && o.Email == email)
	})
}

func (s *OrderStore) bySession(sessionID string) *model.Order {
	for _, o := range s.orders {
		if o.Payment.SessionID == sessionID {
			return o
		}
	}
	return nil
}

func (s *OrderStore) findOne(match func(*model.Order) bool) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, o := range s.orders {
		if match(o) {
			return clone(o), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *OrderStore) find(match func(*model.Order) bool) ([]*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []*model.Order{}
	for i := len(s.orders) - 1; i >= 0; i-- {
		if match(s.orders[i]) {
			out = append(out, clone(s.orders[i]))
		}
	}
	return out, nil
}

// Catalog es un catálogo fijo en memoria.
type Catalog struct {
	Items map[string]*model.CatalogItem
	Err   error
}

func NewCatalog(items ...*model.CatalogItem) *Catalog {
	c := &Catalog{Items: map[string]*model.CatalogItem{}}
	for _, it := range items {
		c.Items[string(it.Type)+"/"+it.ID] = it
	}
	return c
}

func (c *Catalog) FindItem(_ context.Context, id string, itemType model.ItemType) (*model.CatalogItem, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	it, ok := c.Items[string(itemType)+"/"+id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

var ErrUnavailable = errors.New("store unavailable")
