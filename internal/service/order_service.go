package service

import (
	"context"

	"storefront-checkout/internal/model"
)

// Consultas de órdenes con control de acceso (dueño o admin).
type OrderService struct {
	repo OrderRepository
}

func NewOrderService(r OrderRepository) *OrderService {
	return &OrderService{repo: r}
}

func (s *OrderService) GetBySessionID(ctx context.Context, sessionID string, actor *AuthUser) (*model.Order, error) {
	o, err := s.repo.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return authorize(o, actor)
}

func (s *OrderService) GetByID(ctx context.Context, id string, actor *AuthUser) (*model.Order, error) {
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return authorize(o, actor)
}

func (s *OrderService) GetAll(ctx context.Context) ([]*model.Order, error) {
	return s.repo.FindAll(ctx)
}

func (s *OrderService) GetByStatus(ctx context.Context, raw string) ([]*model.Order, error) {
	status, ok := model.ParseStatus(raw)
	if !ok {
		return nil, ErrInvalidStatus
	}
	return s.repo.FindByStatus(ctx, status)
}

func (s *OrderService) GetMine(ctx context.Context, actor *AuthUser) ([]*model.Order, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	return s.repo.FindByOwner(ctx, actor.ID, actor.Email)
}

func authorize(o *model.Order, actor *AuthUser) (*model.Order, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	if !actor.IsAdmin() && !o.IsOwnedBy(actor.ID, actor.Email) {
		return nil, ErrForbidden
	}
	return o, nil
}
