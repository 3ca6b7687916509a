package controller

import (
	"context"
	"errors"
	"io"
	"net/http"

	"storefront-checkout/internal/dto"
	"storefront-checkout/internal/logger"
	"storefront-checkout/internal/payment"
	"storefront-checkout/internal/service"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 1 << 20

type EventVerifier interface {
	Verify(payload []byte, sigHeader string) (payment.Event, error)
}

type EventHandler interface {
	Handle(ctx context.Context, evt payment.Event) (service.Outcome, error)
}

type IdempotencyGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type WebhookController struct {
	Verifier EventVerifier
	Handler  EventHandler
	Guard    IdempotencyGuard
	Log      *logger.Logger
}

func NewWebhookController(v EventVerifier, h EventHandler, g IdempotencyGuard, log *logger.Logger) *WebhookController {
	if log == nil {
		log = logger.Nop()
	}
	return &WebhookController{Verifier: v, Handler: h, Guard: g, Log: log}
}

// POST /webhooks/stripe - se valida la firma sobre el body crudo
func (ctl *WebhookController) Stripe(c *gin.Context) {
	ctx := c.Request.Context()

	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "unreadable body"})
		return
	}

	evt, err := ctl.Verifier.Verify(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		ctl.Log.Warn(ctx, "webhook rejected: "+err.Error())
		msg := "invalid event"
		if errors.Is(err, payment.ErrInvalidSignature) {
			msg = "invalid signature"
		}
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: msg})
		return
	}

	if ctl.Guard != nil {
		seen, err := ctl.Guard.CheckAndMark(ctx, evt.EventID())
		if err != nil {
			// Sin guard seguimos: la reconciliación ya es idempotente
			ctl.Log.Error(ctx, "idempotency check failed", err)
		} else if seen {
			c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
			return
		}
	}

	if _, err := ctl.Handler.Handle(ctx, evt); err != nil {
		if ctl.Guard != nil {
			if relErr := ctl.Guard.Release(ctx, evt.EventID()); relErr != nil {
				ctl.Log.Error(ctx, "idempotency key not released", relErr)
			}
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "webhook processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
