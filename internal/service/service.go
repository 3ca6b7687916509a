package service

import (
	"context"
	"errors"

	"storefront-checkout/internal/model"
	"storefront-checkout/internal/payment"
	"storefront-checkout/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Interfaz que debe implementar repository
type OrderRepository interface {
	Create(ctx context.Context, o *model.Order) error
	UpsertBySession(ctx context.Context, o *model.Order) (*model.Order, bool, error)
	TransitionStatus(ctx context.Context, id primitive.ObjectID, change model.StatusChange) (*model.Order, error)
	FindByID(ctx context.Context, id string) (*model.Order, error)
	FindBySessionID(ctx context.Context, sessionID string) (*model.Order, error)
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*model.Order, error)
	FindAll(ctx context.Context) ([]*model.Order, error)
	FindByStatus(ctx context.Context, status model.OrderStatus) ([]*model.Order, error)
	FindByOwner(ctx context.Context, userID, email string) ([]*model.Order, error)
}

type CatalogRepository interface {
	FindItem(ctx context.Context, id string, itemType model.ItemType) (*model.CatalogItem, error)
}

type SessionCreator interface {
	CreateCheckoutSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error)
}

// OrderNotifier avisa a los admins. Es best-effort: no devuelve error.
type OrderNotifier interface {
	NotifyNewOrder(ctx context.Context, o *model.Order)
	NotifyOrderStatusChanged(ctx context.Context, o *model.Order)
}

// Errores de negocio exportados (los usa el controller)
var (
	ErrNoItems        = errors.New("no items provided")
	ErrEmailRequired  = errors.New("email required")
	ErrNoValidItems   = errors.New("no valid items found")
	ErrCheckoutFailed = errors.New("failed to create checkout session")
	ErrForbidden      = errors.New("forbidden")
	ErrOrderNotFound  = repository.ErrNotFound
	ErrInvalidStatus  = errors.New("invalid order status")
)
