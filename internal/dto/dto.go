// dto.go
package dto

import "storefront-checkout/internal/model"

// CartItem es lo que manda el front por cada ítem del carrito
type CartItem struct {
	ID       string         `json:"id"`
	Type     model.ItemType `json:"type"`
	Quantity int64          `json:"quantity,omitempty"`
}

type PrepareCheckoutRequest struct {
	Items []CartItem `json:"items"`
	Email string     `json:"email"`
}

type PrepareCheckoutResponse struct {
	Success     bool   `json:"success"`
	CheckoutURL string `json:"checkoutUrl"`
	SessionID   string `json:"sessionId"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type OrderResponse struct {
	Success bool         `json:"success"`
	Order   *model.Order `json:"order"`
}

type OrdersResponse struct {
	Success bool           `json:"success"`
	Orders  []*model.Order `json:"orders"`
}

// Evento que se empuja a los admins (websocket y Rabbit)
type OrderEvent struct {
	Event string       `json:"event"`
	Order *model.Order `json:"order"`
}

const (
	EventOrderCreated       = "order:created"
	EventOrderStatusChanged = "order:status_changed"
)
