package controller

import (
	"errors"
	"net/http"

	"storefront-checkout/internal/dto"
	"storefront-checkout/internal/middleware"
	"storefront-checkout/internal/service"

	"github.com/gin-gonic/gin"
)

type OrderController struct {
	Service *service.OrderService
}

func NewOrderController(s *service.OrderService) *OrderController {
	return &OrderController{Service: s}
}

// GET /orders/session/:sessionId - dueño o admin (página de éxito del checkout)
func (ctl *OrderController) GetBySession(c *gin.Context) {
	o, err := ctl.Service.GetBySessionID(c.Request.Context(), c.Param("sessionId"), middleware.CurrentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OrderResponse{Success: true, Order: o})
}

// GET /orders/:orderId - dueño o admin
func (ctl *OrderController) GetByID(c *gin.Context) {
	o, err := ctl.Service.GetByID(c.Request.Context(), c.Param("orderId"), middleware.CurrentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OrderResponse{Success: true, Order: o})
}

// GET /orders/mine - user (middleware debe poner el usuario)
func (ctl *OrderController) GetMyOrders(c *gin.Context) {
	orders, err := ctl.Service.GetMine(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OrdersResponse{Success: true, Orders: orders})
}

// GET /orders/all - admin only (middleware AdminOnly)
func (ctl *OrderController) GetAllOrders(c *gin.Context) {
	orders, err := ctl.Service.GetAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OrdersResponse{Success: true, Orders: orders})
}

// GET /admin/orders/status/:status - admin only
func (ctl *OrderController) GetAllOrdersByStatus(c *gin.Context) {
	orders, err := ctl.Service.GetByStatus(c.Request.Context(), c.Param("status"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OrdersResponse{Success: true, Orders: orders})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Message: "order not found"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, dto.ErrorResponse{Message: "you cannot view another user's order"})
	case errors.Is(err, service.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "internal error"})
	}
}
