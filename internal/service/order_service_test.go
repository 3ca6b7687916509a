package service

import (
	"context"
	"testing"

	"storefront-checkout/internal/dto"
	"storefront-checkout/internal/model"
	"storefront-checkout/internal/repository/repositorytest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOrders(t *testing.T) *repositorytest.OrderStore {
	t.Helper()
	store := repositorytest.NewOrderStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &model.Order{UserID: "u1", Email: "one@example.com", Status: model.StatusPaid, Payment: model.PaymentInfo{SessionID: "cs_1"}}))
	require.NoError(t, store.Create(ctx, &model.Order{Email: "two@example.com", Status: model.StatusPending, Payment: model.PaymentInfo{SessionID: "cs_2"}}))
	return store
}

func TestGetBySessionIDAuthorization(t *testing.T) {
	svc := NewOrderService(seedOrders(t))
	ctx := context.Background()

	o, err := svc.GetBySessionID(ctx, "cs_1", &AuthUser{ID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "cs_1", o.Payment.SessionID)

	_, err = svc.GetBySessionID(ctx, "cs_2", &AuthUser{ID: "u1", Email: "one@example.com"})
	assert.ErrorIs(t, err, ErrForbidden)

	// Órdenes creadas sin usuario se resuelven por email
	_, err = svc.GetBySessionID(ctx, "cs_2", &AuthUser{ID: "u9", Email: "two@example.com"})
	require.NoError(t, err)

	_, err = svc.GetBySessionID(ctx, "cs_2", &AuthUser{ID: "admin", Role: RoleAdmin})
	require.NoError(t, err)

	_, err = svc.GetBySessionID(ctx, "cs_missing", &AuthUser{ID: "admin", Role: RoleAdmin})
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestGetByStatusAndMine(t *testing.T) {
	svc := NewOrderService(seedOrders(t))
	ctx := context.Background()

	paid, err := svc.GetByStatus(ctx, "paid")
	require.NoError(t, err)
	assert.Len(t, paid, 1)

	_, err = svc.GetByStatus(ctx, "shipped")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	mine, err := svc.GetMine(ctx, &AuthUser{ID: "u1"})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	all, err := svc.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

// El email del token puede venir con otra capitalización que el del checkout.
func TestOwnerEmailIsCaseInsensitive(t *testing.T) {
	orders := repositorytest.NewOrderStore()
	ctx := context.Background()

	sess, err := newCheckout(&fakeSessions{}, orders, "0").Prepare(ctx, dto.PrepareCheckoutRequest{
		Email: " Buyer@Example.com",
		Items: []dto.CartItem{{ID: "logo_pack_1", Type: model.ItemTypeProduct}},
	}, "")
	require.NoError(t, err)

	stored, err := orders.FindBySessionID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", stored.Email)

	svc := NewOrderService(orders)
	actor := &AuthUser{ID: "u7", Email: "BUYER@example.com"}

	_, err = svc.GetBySessionID(ctx, sess.ID, actor)
	require.NoError(t, err)

	mine, err := svc.GetMine(ctx, actor)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}
