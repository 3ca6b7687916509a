package controller

import (
	"context"
	"errors"
	"net/http"

	"storefront-checkout/internal/dto"
	"storefront-checkout/internal/middleware"
	"storefront-checkout/internal/payment"
	"storefront-checkout/internal/service"

	"github.com/gin-gonic/gin"
)

type CheckoutPreparer interface {
	Prepare(ctx context.Context, req dto.PrepareCheckoutRequest, userID string) (*payment.Session, error)
}

type CheckoutController struct {
	Service CheckoutPreparer
}

func NewCheckoutController(s CheckoutPreparer) *CheckoutController {
	return &CheckoutController{Service: s}
}

// POST /checkout/prepare - token opcional
func (ctl *CheckoutController) Prepare(c *gin.Context) {
	var req dto.PrepareCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "invalid request body"})
		return
	}

	var userID string
	if user := middleware.CurrentUser(c); user != nil {
		userID = user.ID
	}

	sess, err := ctl.Service.Prepare(c.Request.Context(), req, userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoItems),
			errors.Is(err, service.ErrEmailRequired),
			errors.Is(err, service.ErrNoValidItems),
			errors.Is(err, payment.ErrCartTooLarge):
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: service.ErrCheckoutFailed.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, dto.PrepareCheckoutResponse{
		Success:     true,
		CheckoutURL: sess.URL,
		SessionID:   sess.ID,
	})
}
