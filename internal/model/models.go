// models.go
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Tipos de ítem que se pueden vender
type ItemType string

const (
	ItemTypeProduct      ItemType = "product"
	ItemTypeBundle       ItemType = "bundle"
	ItemTypeMasterBundle ItemType = "master_bundle"
)

func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeProduct, ItemTypeBundle, ItemTypeMasterBundle:
		return true
	}
	return false
}

type Order struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID   string             `bson:"user_id,omitempty" json:"userId,omitempty"`
	Email    string             `bson:"email" json:"email"`
	Items    []LineItem         `bson:"items" json:"items"`
	Subtotal float64            `bson:"subtotal" json:"subtotal"`
	Tax      float64            `bson:"tax" json:"tax"`
	Total    float64            `bson:"total" json:"total"`
	Currency string             `bson:"currency" json:"currency"`
	Status   OrderStatus        `bson:"status" json:"status"` // estado actual
	TestMode bool               `bson:"test_mode" json:"testMode"`
	Payment  PaymentInfo        `bson:"payment" json:"payment"`

	// El cobro de Stripe no coincidió con el total esperado; queda para revisión manual
	AmountMismatch bool `bson:"amount_mismatch" json:"amountMismatch"`

	History   []StatusRecord `bson:"history" json:"history"`
	CreatedAt time.Time      `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time      `bson:"updated_at" json:"updatedAt"`
	PaidAt    *time.Time     `bson:"paid_at,omitempty" json:"paidAt,omitempty"`
}

type LineItem struct {
	ItemID    string   `bson:"item_id" json:"itemId"`
	ItemType  ItemType `bson:"item_type" json:"itemType"`
	Title     string   `bson:"title" json:"title"`
	UnitPrice float64  `bson:"unit_price" json:"unitPrice"`
	Quantity  int64    `bson:"quantity" json:"quantity"`
	Subtotal  float64  `bson:"subtotal" json:"subtotal"`
	Tax       float64  `bson:"tax" json:"tax"`
	Total     float64  `bson:"total" json:"total"`
}

// Datos de Stripe asociados a la orden. PaymentIntentID y CustomerID
// quedan vacíos hasta que se confirma el pago.
type PaymentInfo struct {
	SessionID       string `bson:"session_id" json:"sessionId"`
	PaymentIntentID string `bson:"payment_intent_id,omitempty" json:"paymentIntentId,omitempty"`
	CustomerID      string `bson:"customer_id,omitempty" json:"customerId,omitempty"`
}

type StatusRecord struct {
	Status    OrderStatus `bson:"status" json:"status"`
	Reason    string      `bson:"reason" json:"reason"`
	Timestamp time.Time   `bson:"timestamp" json:"timestamp"`
}

// Ítem de catálogo (producto, bundle o master bundle). Solo lectura.
type CatalogItem struct {
	ID       string   `json:"id"`
	Type     ItemType `json:"type"`
	Title    string   `json:"title"`
	Price    float64  `json:"price"`
	Currency string   `json:"currency"`
	Active   bool     `json:"active"`
}

// IsOwnedBy indica si el usuario (por id o email) es dueño de la orden.
// Las órdenes creadas por webhook pueden no tener user_id.
func (o *Order) IsOwnedBy(userID, email string) bool {
	if userID != "" && o.UserID == userID {
		return true
	}
	return email != "" && o.Email != "" && NormalizeEmail(o.Email) == NormalizeEmail(email)
}
