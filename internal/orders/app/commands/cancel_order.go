package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mercato/backoffice/internal/events"
	"github.com/mercato/backoffice/internal/orders/domain"
	"github.com/mercato/backoffice/internal/orders/ports"
)

// CancelOrderCommand requests direct cancellation of an order.
type CancelOrderCommand struct {
	OrderID string
	Reason  string
}

// Validate ensures the command has valid parameters.
func (c CancelOrderCommand) Validate() error {
	if strings.TrimSpace(c.OrderID) == "" {
		return errors.New("order_id is required")
	}
	return nil
}

// CancelOrderCommandHandler cancels the order and publishes the compensating
// OrderCanceled event; the choreography restocks inventory and cancels any
// shipment in reaction.
type CancelOrderCommandHandler struct {
	orders ports.OrderRepository
	bus    *events.Bus
	now    func() time.Time
}

func NewCancelOrderCommandHandler(orders ports.OrderRepository, bus *events.Bus) *CancelOrderCommandHandler {
	return &CancelOrderCommandHandler{orders: orders, bus: bus, now: time.Now}
}

func (h *CancelOrderCommandHandler) Handle(ctx context.Context, cmd CancelOrderCommand) (*domain.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	order, err := h.orders.GetByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}

	reason := cmd.Reason
	if reason == "" {
		reason = "canceled by request"
	}

	if err := order.Cancel(reason, h.now()); err != nil {
		return nil, err
	}

	if err := h.orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	for _, event := range order.PullEvents() {
		if err := h.bus.Publish(ctx, event); err != nil {
			return order, fmt.Errorf("order canceled but event dispatch failed: %w", err)
		}
	}

	return order, nil
}
