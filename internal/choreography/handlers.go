package choreography

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	catalogports "github.com/mercato/backoffice/internal/catalog/ports"
	custports "github.com/mercato/backoffice/internal/customers/ports"
	discports "github.com/mercato/backoffice/internal/discounts/ports"
	"github.com/mercato/backoffice/internal/events"
	ordersdomain "github.com/mercato/backoffice/internal/orders/domain"
	ordersports "github.com/mercato/backoffice/internal/orders/ports"
	paymentsapp "github.com/mercato/backoffice/internal/payments/app"
	paymentsdomain "github.com/mercato/backoffice/internal/payments/domain"
	paymentsports "github.com/mercato/backoffice/internal/payments/ports"
	shipmentsapp "github.com/mercato/backoffice/internal/shipments/app"
	shipmentsdomain "github.com/mercato/backoffice/internal/shipments/domain"
)

// Choreography wires the bounded contexts together through the event bus.
// There is no central orchestrator: each handler reacts to one event, commits
// its own unit of work, and lets the events it publishes drive the next step.
type Choreography struct {
	orders    ordersports.OrderRepository
	customers custports.CustomerRepository
	products  catalogports.ProductRepository
	usage     discports.UsageCounter
	payments  *paymentsapp.Service
	gateway   paymentsports.Gateway
	shipments *shipmentsapp.Service
	bus       *events.Bus
	logger    *slog.Logger
	now       func() time.Time
}

// Dependencies carries everything the choreography handlers need.
type Dependencies struct {
	Orders    ordersports.OrderRepository
	Customers custports.CustomerRepository
	Products  catalogports.ProductRepository
	Usage     discports.UsageCounter
	Payments  *paymentsapp.Service
	Gateway   paymentsports.Gateway
	Shipments *shipmentsapp.Service
	Bus       *events.Bus
	Logger    *slog.Logger
}

func New(deps Dependencies) *Choreography {
	return &Choreography{
		orders:    deps.Orders,
		customers: deps.Customers,
		products:  deps.Products,
		usage:     deps.Usage,
		payments:  deps.Payments,
		gateway:   deps.Gateway,
		shipments: deps.Shipments,
		bus:       deps.Bus,
		logger:    deps.Logger,
		now:       time.Now,
	}
}

// WithClock overrides the time source, used by tests.
func (c *Choreography) WithClock(now func() time.Time) *Choreography {
	c.now = now
	return c
}

// Register subscribes every handler. Registration order within an event is
// the dispatch order.
func (c *Choreography) Register() {
	c.bus.Subscribe(ordersdomain.EventOrderCreated,
		events.NewHandlerFunc("payments.start_for_order", c.onOrderCreated))
	c.bus.Subscribe(ordersdomain.EventOrderPaid,
		events.NewHandlerFunc("shipments.create_for_order", c.onOrderPaid))
	c.bus.Subscribe(ordersdomain.EventOrderCanceled,
		events.NewHandlerFunc("catalog.restock", c.onOrderCanceledRestock))
	c.bus.Subscribe(ordersdomain.EventOrderCanceled,
		events.NewHandlerFunc("discounts.release_coupons", c.onOrderCanceledCoupons))
	c.bus.Subscribe(ordersdomain.EventOrderCanceled,
		events.NewHandlerFunc("shipments.cancel_for_order", c.onOrderCanceledShipment))
	c.bus.Subscribe(paymentsdomain.EventPaymentAuthorized,
		events.NewHandlerFunc("payments.capture", c.onPaymentAuthorized))
	c.bus.Subscribe(paymentsdomain.EventPaymentApproved,
		events.NewHandlerFunc("orders.mark_paid", c.onPaymentApproved))
	c.bus.Subscribe(paymentsdomain.EventPaymentRejected,
		events.NewHandlerFunc("payments.cancel_authorization", c.onPaymentRejected))
	c.bus.Subscribe(paymentsdomain.EventPaymentCanceled,
		events.NewHandlerFunc("orders.cancel_for_payment", c.onPaymentCanceled))
	c.bus.Subscribe(shipmentsdomain.EventShipmentShipped,
		events.NewHandlerFunc("orders.mark_shipped", c.onShipmentShipped))
	c.bus.Subscribe(shipmentsdomain.EventShipmentDelivered,
		events.NewHandlerFunc("orders.mark_delivered", c.onShipmentDelivered))
}

// onOrderCreated verifies the buyer is still active, then creates the payment
// and queues its authorization. An inactive buyer cancels the order instead.
func (c *Choreography) onOrderCreated(ctx context.Context, event events.Event) error {
	created, ok := event.(ordersdomain.OrderCreated)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	customer, err := c.customers.GetByID(ctx, created.CustomerID)
	if err != nil {
		if errors.Is(err, custports.ErrNotFound) {
			return c.cancelOrder(ctx, created.OrderID, "customer not found")
		}
		return fmt.Errorf("load customer: %w", err)
	}
	if !customer.Active {
		return c.cancelOrder(ctx, created.OrderID, "customer inactive")
	}

	_, err = c.payments.CreateForOrder(ctx, created.OrderID, created.TotalCents, created.Installments, created.PaymentMethod)
	if err != nil {
		return fmt.Errorf("start payment: %w", err)
	}
	return nil
}

func (c *Choreography) onOrderPaid(ctx context.Context, event events.Event) error {
	paid, ok := event.(ordersdomain.OrderPaid)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	_, err := c.shipments.CreateForOrder(ctx, paid.OrderID, paid.DeliveryAddress)
	if err != nil {
		return fmt.Errorf("create shipment: %w", err)
	}
	return nil
}

// onOrderCanceledRestock returns reserved stock. Restock is a commutative
// delta, so it is safe regardless of what other orders did in between.
func (c *Choreography) onOrderCanceledRestock(ctx context.Context, event events.Event) error {
	canceled, ok := event.(ordersdomain.OrderCanceled)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	var errs []error
	for _, item := range canceled.Items {
		if err := c.products.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
			errs = append(errs, fmt.Errorf("restock %s: %w", item.ProductID, err))
		}
	}
	return errors.Join(errs...)
}

func (c *Choreography) onOrderCanceledCoupons(ctx context.Context, event events.Event) error {
	canceled, ok := event.(ordersdomain.OrderCanceled)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	var errs []error
	for _, couponID := range canceled.CouponIDs {
		if err := c.usage.Release(ctx, couponID); err != nil {
			errs = append(errs, fmt.Errorf("release coupon %s: %w", couponID, err))
		}
	}
	return errors.Join(errs...)
}

func (c *Choreography) onOrderCanceledShipment(ctx context.Context, event events.Event) error {
	canceled, ok := event.(ordersdomain.OrderCanceled)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	return c.shipments.CancelForOrder(ctx, canceled.OrderID)
}

// onPaymentAuthorized captures the hold. A declined capture flows into the
// rejected path; transient gateway errors bubble up and are retried by the
// gateway's webhook redelivery.
func (c *Choreography) onPaymentAuthorized(ctx context.Context, event events.Event) error {
	authorized, ok := event.(paymentsdomain.PaymentAuthorized)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	result, err := c.gateway.Capture(ctx, authorized.GatewayPaymentID)
	if err != nil {
		if errors.Is(err, paymentsports.ErrGatewayDeclined) {
			_, err := c.payments.ApplyStatus(ctx, authorized.PaymentID, paymentsdomain.StatusRejected)
			return err
		}
		return fmt.Errorf("capture payment: %w", err)
	}

	_, err = c.payments.ApplyStatus(ctx, authorized.PaymentID, result.Status)
	return err
}

func (c *Choreography) onPaymentApproved(ctx context.Context, event events.Event) error {
	approved, ok := event.(paymentsdomain.PaymentApproved)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	order, err := c.orders.GetByID(ctx, approved.OrderID)
	if err != nil {
		if errors.Is(err, ordersports.ErrNotFound) {
			c.logger.WarnContext(ctx, "payment approved for unknown order", "order_id", approved.OrderID)
			return nil
		}
		return fmt.Errorf("load order: %w", err)
	}

	if err := order.MarkPaid(c.now()); err != nil {
		if errors.Is(err, ordersdomain.ErrInvalidTransition) {
			return nil
		}
		return err
	}

	if err := c.orders.Update(ctx, order); err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	return c.publish(ctx, order)
}

// onPaymentRejected voids the gateway hold. The resulting canceled status
// then cancels the order through its own event.
func (c *Choreography) onPaymentRejected(ctx context.Context, event events.Event) error {
	rejected, ok := event.(paymentsdomain.PaymentRejected)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	if rejected.GatewayPaymentID != "" {
		if _, err := c.gateway.CancelAuthorization(ctx, rejected.GatewayPaymentID); err != nil &&
			!errors.Is(err, paymentsports.ErrNotFound) {
			return fmt.Errorf("cancel authorization: %w", err)
		}
	}

	order, err := c.orders.GetByID(ctx, rejected.OrderID)
	if err != nil {
		if errors.Is(err, ordersports.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load order: %w", err)
	}
	if order.IsTerminal() {
		return nil
	}
	return c.cancelOrder(ctx, rejected.OrderID, "payment rejected")
}

func (c *Choreography) onPaymentCanceled(ctx context.Context, event events.Event) error {
	canceled, ok := event.(paymentsdomain.PaymentCanceled)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	return c.cancelOrder(ctx, canceled.OrderID, "payment canceled")
}

func (c *Choreography) onShipmentShipped(ctx context.Context, event events.Event) error {
	shipped, ok := event.(shipmentsdomain.ShipmentShipped)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	return c.advanceOrder(ctx, shipped.OrderID, (*ordersdomain.Order).MarkShipped)
}

func (c *Choreography) onShipmentDelivered(ctx context.Context, event events.Event) error {
	delivered, ok := event.(shipmentsdomain.ShipmentDelivered)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	return c.advanceOrder(ctx, delivered.OrderID, (*ordersdomain.Order).MarkDelivered)
}

func (c *Choreography) advanceOrder(ctx context.Context, orderID string, mark func(*ordersdomain.Order, time.Time) error) error {
	order, err := c.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ordersports.ErrNotFound) {
			c.logger.WarnContext(ctx, "shipment event for unknown order", "order_id", orderID)
			return nil
		}
		return fmt.Errorf("load order: %w", err)
	}

	if err := mark(order, c.now()); err != nil {
		return err
	}
	if err := c.orders.Update(ctx, order); err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	return c.publish(ctx, order)
}

// cancelOrder cancels the order and publishes the compensation event. An
// order already terminal is left alone.
func (c *Choreography) cancelOrder(ctx context.Context, orderID, reason string) error {
	order, err := c.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ordersports.ErrNotFound) {
			c.logger.WarnContext(ctx, "cancel requested for unknown order", "order_id", orderID)
			return nil
		}
		return fmt.Errorf("load order: %w", err)
	}

	if err := order.Cancel(reason, c.now()); err != nil {
		if errors.Is(err, ordersdomain.ErrInvalidTransition) {
			return nil
		}
		return err
	}

	if err := c.orders.Update(ctx, order); err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	c.logger.InfoContext(ctx, "order canceled", "order_id", orderID, "reason", reason)
	return c.publish(ctx, order)
}

func (c *Choreography) publish(ctx context.Context, order *ordersdomain.Order) error {
	for _, event := range order.PullEvents() {
		if err := c.bus.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
