package choreography

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	catalogmemory "github.com/mercato/backoffice/internal/catalog/adapters/memory"
	catalogdomain "github.com/mercato/backoffice/internal/catalog/domain"
	"github.com/mercato/backoffice/internal/config"
	custmemory "github.com/mercato/backoffice/internal/customers/adapters/memory"
	custdomain "github.com/mercato/backoffice/internal/customers/domain"
	discmemory "github.com/mercato/backoffice/internal/discounts/adapters/memory"
	discdomain "github.com/mercato/backoffice/internal/discounts/domain"
	"github.com/mercato/backoffice/internal/events"
	ordersmemory "github.com/mercato/backoffice/internal/orders/adapters/memory"
	ordersapp "github.com/mercato/backoffice/internal/orders/app"
	"github.com/mercato/backoffice/internal/orders/app/commands"
	ordersdomain "github.com/mercato/backoffice/internal/orders/domain"
	ordersmetrics "github.com/mercato/backoffice/internal/orders/metrics"
	"github.com/mercato/backoffice/internal/payments/adapters/fake"
	paymentsmemory "github.com/mercato/backoffice/internal/payments/adapters/memory"
	paymentsapp "github.com/mercato/backoffice/internal/payments/app"
	paymentsdomain "github.com/mercato/backoffice/internal/payments/domain"
	paymentsports "github.com/mercato/backoffice/internal/payments/ports"
	"github.com/mercato/backoffice/internal/payments/worker"
	shipmentsmemory "github.com/mercato/backoffice/internal/shipments/adapters/memory"
	shipmentsapp "github.com/mercato/backoffice/internal/shipments/app"
	shipmentsdomain "github.com/mercato/backoffice/internal/shipments/domain"
	shipmentsports "github.com/mercato/backoffice/internal/shipments/ports"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// fixture wires every bounded context through a single in-process bus, the
// same shape cmd/api and cmd/worker assemble, but on memory adapters and the
// fake gateway.
type fixture struct {
	bus         *events.Bus
	orders      *ordersmemory.Repository
	products    *catalogmemory.Repository
	customers   *custmemory.Repository
	usage       *discmemory.Counter
	payments    *paymentsmemory.Repository
	queue       *paymentsmemory.Queue
	gateway     *fake.Gateway
	shipments   *shipmentsmemory.Repository
	orderSvc    *ordersapp.Service
	paymentSvc  *paymentsapp.Service
	shipmentSvc *shipmentsapp.Service
	authorizer  *worker.Authorizer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := events.NewBus(logger)

	products := catalogmemory.NewRepository()
	products.Seed(catalogdomain.Product{
		ID:          "product-1",
		Name:        "Espresso Machine",
		PriceCents:  6500,
		CategoryIDs: []string{"category-kitchen"},
		Stock:       10,
	})

	customers := custmemory.NewRepository()
	customers.Seed(custdomain.Customer{
		ID:     "customer-1",
		Email:  "buyer@example.com",
		Active: true,
		BillingAddress: custdomain.Address{
			Street: "1 Market St", City: "Lisbon", Zip: "1100", Country: "PT",
		},
		DeliveryAddress: custdomain.Address{
			Street: "2 Pier Rd", City: "Porto", Zip: "4000", Country: "PT",
		},
	})
	customers.Seed(custdomain.Customer{ID: "customer-gone", Email: "gone@example.com", Active: false})

	now := time.Now()
	discount, err := discdomain.NewDiscount(10, now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("NewDiscount() failed: %v", err)
	}
	restriction, err := discdomain.NewProductRestriction([]string{"product-1"})
	if err != nil {
		t.Fatalf("NewProductRestriction() failed: %v", err)
	}
	coupon, err := discdomain.NewCoupon("coupon-1", "SAVE10", discount, 5, 2000, false,
		[]discdomain.Restriction{restriction})
	if err != nil {
		t.Fatalf("NewCoupon() failed: %v", err)
	}

	discounts := discmemory.NewRepository()
	discounts.SeedCoupon(*coupon)
	usage := discmemory.NewCounter()

	orders := ordersmemory.NewRepository()
	payments := paymentsmemory.NewRepository()
	queue := paymentsmemory.NewQueue()
	gateway := fake.NewGateway()
	shipments := shipmentsmemory.NewRepository()

	carriers := shipmentsmemory.NewCarrierRepository()
	carriers.Seed(shipmentsdomain.Carrier{ID: "carrier-1", Name: "Loggi", Active: true})

	paymentSvc := paymentsapp.NewService(payments, queue, bus)
	shipmentSvc := shipmentsapp.NewService(shipments, carriers, bus)

	New(Dependencies{
		Orders:    orders,
		Customers: customers,
		Products:  products,
		Usage:     usage,
		Payments:  paymentSvc,
		Gateway:   gateway,
		Shipments: shipmentSvc,
		Bus:       bus,
		Logger:    logger,
	}).Register()

	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader())).Meter("test")
	orderMetrics, err := ordersmetrics.NewMetrics(meter)
	if err != nil {
		t.Fatalf("NewMetrics() failed: %v", err)
	}

	orderSvc := ordersapp.NewService(ordersapp.Dependencies{
		Orders:    orders,
		Products:  products,
		Customers: customers,
		Coupons:   discounts,
		Sales:     discounts,
		Usage:     usage,
		Bus:       bus,
		Logger:    logger,
		Metrics:   orderMetrics,
	})

	cfg := config.WorkerConfig{
		PollInterval:   time.Second,
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		AuthBatchSize:  10,
	}
	authorizer := worker.NewAuthorizer(payments, queue, gateway, orders, paymentSvc, cfg, logger)

	return &fixture{
		bus:         bus,
		orders:      orders,
		products:    products,
		customers:   customers,
		usage:       usage,
		payments:    payments,
		queue:       queue,
		gateway:     gateway,
		shipments:   shipments,
		orderSvc:    orderSvc,
		paymentSvc:  paymentSvc,
		shipmentSvc: shipmentSvc,
		authorizer:  authorizer,
	}
}

func (f *fixture) placeOrder(t *testing.T, couponCodes ...string) *ordersdomain.Order {
	t.Helper()
	order, err := f.orderSvc.PlaceOrder(context.Background(), commands.PlaceOrderCommand{
		CustomerID:    "customer-1",
		Items:         []commands.ItemInput{{ProductID: "product-1", Quantity: 2}},
		CouponCodes:   couponCodes,
		PaymentMethod: "credit_card",
		Installments:  3,
	})
	if err != nil {
		t.Fatalf("PlaceOrder() failed: %v", err)
	}
	return order
}

func (f *fixture) orderStatus(t *testing.T, orderID string) ordersdomain.OrderStatus {
	t.Helper()
	order, err := f.orders.GetByID(context.Background(), orderID)
	if err != nil {
		t.Fatalf("load order: %v", err)
	}
	return order.Status
}

func (f *fixture) stock(t *testing.T) int {
	t.Helper()
	product, err := f.products.GetByID(context.Background(), "product-1")
	if err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product.Stock
}

func TestFulfillmentHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := f.placeOrder(t, "SAVE10")

	// 2 x 6500 with the 10% coupon.
	if order.TotalCents != 11700 {
		t.Fatalf("expected total 11700, got %d", order.TotalCents)
	}
	if got := f.stock(t); got != 8 {
		t.Fatalf("expected stock 8 after reservation, got %d", got)
	}

	payment, err := f.paymentSvc.GetByOrderID(ctx, order.ID)
	if err != nil {
		t.Fatalf("load payment: %v", err)
	}
	if payment.Status != paymentsdomain.StatusCreated {
		t.Fatalf("expected payment created before the worker runs, got %s", payment.Status)
	}
	if payment.Installments != 3 {
		t.Errorf("expected 3 installments, got %d", payment.Installments)
	}

	if err := f.authorizer.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce() failed: %v", err)
	}

	payment, err = f.paymentSvc.GetByOrderID(ctx, order.ID)
	if err != nil {
		t.Fatalf("load payment: %v", err)
	}
	if payment.Status != paymentsdomain.StatusApproved {
		t.Fatalf("expected payment approved, got %s", payment.Status)
	}
	if payment.GatewayPaymentID == "" {
		t.Error("expected gateway payment id to be attached")
	}
	if got := f.orderStatus(t, order.ID); got != ordersdomain.StatusPaid {
		t.Fatalf("expected order paid, got %s", got)
	}

	shipment, err := f.shipmentSvc.GetByOrderID(ctx, order.ID)
	if err != nil {
		t.Fatalf("load shipment: %v", err)
	}
	if shipment.Status != shipmentsdomain.StatusPending {
		t.Fatalf("expected shipment pending, got %s", shipment.Status)
	}
	if shipment.Address != order.DeliveryAddress {
		t.Errorf("shipment address must snapshot the delivery address")
	}

	for i := 0; i < 4; i++ {
		if _, err := f.shipmentSvc.Advance(ctx, shipment.ID); err != nil {
			t.Fatalf("Advance() step %d failed: %v", i+1, err)
		}
	}

	if got := f.orderStatus(t, order.ID); got != ordersdomain.StatusDelivered {
		t.Fatalf("expected order delivered, got %s", got)
	}

	final, err := f.orders.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("load order: %v", err)
	}
	want := []ordersdomain.OrderStatus{
		ordersdomain.StatusPending,
		ordersdomain.StatusPaid,
		ordersdomain.StatusShipped,
		ordersdomain.StatusDelivered,
	}
	if len(final.History) != len(want) {
		t.Fatalf("expected %d history entries, got %d", len(want), len(final.History))
	}
	for i, change := range final.History {
		if change.Status != want[i] {
			t.Errorf("history[%d] = %s, want %s", i, change.Status, want[i])
		}
	}

	due, err := f.queue.Due(ctx, time.Now().Add(time.Hour), 0)
	if err != nil {
		t.Fatalf("Due() failed: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("expected empty authorization queue, got %d tasks", len(due))
	}
}

func TestGatewayDeclineCancelsOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.gateway.AuthorizeErr = paymentsports.ErrGatewayDeclined

	order := f.placeOrder(t, "SAVE10")
	if used, _ := f.usage.Current(ctx, "coupon-1"); used != 1 {
		t.Fatalf("expected coupon usage 1 after placement, got %d", used)
	}

	if err := f.authorizer.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce() failed: %v", err)
	}

	payment, err := f.paymentSvc.GetByOrderID(ctx, order.ID)
	if err != nil {
		t.Fatalf("load payment: %v", err)
	}
	if payment.Status != paymentsdomain.StatusRejected {
		t.Fatalf("expected payment rejected, got %s", payment.Status)
	}

	canceled, err := f.orders.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("load order: %v", err)
	}
	if canceled.Status != ordersdomain.StatusCanceled {
		t.Fatalf("expected order canceled, got %s", canceled.Status)
	}
	if canceled.Description != "payment rejected" {
		t.Errorf("expected cancellation reason %q, got %q", "payment rejected", canceled.Description)
	}

	if got := f.stock(t); got != 10 {
		t.Errorf("expected stock restored to 10, got %d", got)
	}
	if used, _ := f.usage.Current(ctx, "coupon-1"); used != 0 {
		t.Errorf("expected coupon usage released, got %d", used)
	}
	if _, err := f.shipmentSvc.GetByOrderID(ctx, order.ID); !errors.Is(err, shipmentsports.ErrNotFound) {
		t.Errorf("expected no shipment for a canceled order, got %v", err)
	}
}

func TestInactiveCustomerCancelsOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.orderSvc.PlaceOrder(ctx, commands.PlaceOrderCommand{
		CustomerID:    "customer-gone",
		Items:         []commands.ItemInput{{ProductID: "product-1", Quantity: 2}},
		PaymentMethod: "pix",
	})
	if err != nil {
		t.Fatalf("PlaceOrder() failed: %v", err)
	}

	canceled, err := f.orders.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("load order: %v", err)
	}
	if canceled.Status != ordersdomain.StatusCanceled {
		t.Fatalf("expected order canceled, got %s", canceled.Status)
	}
	if canceled.Description != "customer inactive" {
		t.Errorf("expected cancellation reason %q, got %q", "customer inactive", canceled.Description)
	}

	if _, err := f.paymentSvc.GetByOrderID(ctx, order.ID); !errors.Is(err, paymentsports.ErrNotFound) {
		t.Errorf("expected no payment for an inactive customer, got %v", err)
	}
	if got := f.stock(t); got != 10 {
		t.Errorf("expected stock restored to 10, got %d", got)
	}
}

func TestAuthorizationRetryExhaustionCancelsOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.gateway.AuthorizeErr = fmt.Errorf("%w: connection reset", paymentsports.ErrGatewayUnavailable)

	current := time.Now()
	f.authorizer.WithClock(func() time.Time { return current })

	order := f.placeOrder(t)

	// First attempt fails and reschedules one backoff step ahead.
	if err := f.authorizer.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce() failed: %v", err)
	}
	if due, _ := f.queue.Due(ctx, current, 0); len(due) != 0 {
		t.Fatalf("task must not be due before the backoff elapses, got %d", len(due))
	}

	// Second attempt after 1s, third after another 2s exhausts MaxAttempts.
	current = current.Add(time.Second)
	if err := f.authorizer.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce() failed: %v", err)
	}
	current = current.Add(2 * time.Second)
	if err := f.authorizer.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce() failed: %v", err)
	}

	payment, err := f.paymentSvc.GetByOrderID(ctx, order.ID)
	if err != nil {
		t.Fatalf("load payment: %v", err)
	}
	if payment.Status != paymentsdomain.StatusCanceled {
		t.Fatalf("expected payment canceled after exhausted retries, got %s", payment.Status)
	}

	canceled, err := f.orders.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("load order: %v", err)
	}
	if canceled.Status != ordersdomain.StatusCanceled {
		t.Fatalf("expected order canceled, got %s", canceled.Status)
	}
	if canceled.Description != "payment canceled" {
		t.Errorf("expected cancellation reason %q, got %q", "payment canceled", canceled.Description)
	}
	if got := f.stock(t); got != 10 {
		t.Errorf("expected stock restored to 10, got %d", got)
	}

	if due, _ := f.queue.Due(ctx, current.Add(time.Hour), 0); len(due) != 0 {
		t.Errorf("expected empty queue after exhaustion, got %d tasks", len(due))
	}
}

func TestAuthorizationRecoversAfterTransientFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.gateway.AuthorizeErr = fmt.Errorf("%w: timeout", paymentsports.ErrGatewayUnavailable)

	current := time.Now()
	f.authorizer.WithClock(func() time.Time { return current })

	order := f.placeOrder(t)

	if err := f.authorizer.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce() failed: %v", err)
	}
	if got := f.orderStatus(t, order.ID); got != ordersdomain.StatusPending {
		t.Fatalf("expected order still pending after one failed attempt, got %s", got)
	}

	// Gateway comes back before the retry budget runs out.
	f.gateway.AuthorizeErr = nil
	current = current.Add(time.Second)
	if err := f.authorizer.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce() failed: %v", err)
	}

	payment, err := f.paymentSvc.GetByOrderID(ctx, order.ID)
	if err != nil {
		t.Fatalf("load payment: %v", err)
	}
	if payment.Status != paymentsdomain.StatusApproved {
		t.Fatalf("expected payment approved after retry, got %s", payment.Status)
	}
	if got := f.orderStatus(t, order.ID); got != ordersdomain.StatusPaid {
		t.Fatalf("expected order paid, got %s", got)
	}
}

func TestCancelAfterPaymentCancelsShipment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := f.placeOrder(t)
	if err := f.authorizer.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce() failed: %v", err)
	}
	if got := f.orderStatus(t, order.ID); got != ordersdomain.StatusPaid {
		t.Fatalf("expected order paid, got %s", got)
	}

	if _, err := f.orderSvc.CancelOrder(ctx, order.ID, "customer gave up"); err != nil {
		t.Fatalf("CancelOrder() failed: %v", err)
	}

	if got := f.orderStatus(t, order.ID); got != ordersdomain.StatusCanceled {
		t.Fatalf("expected order canceled, got %s", got)
	}
	shipment, err := f.shipmentSvc.GetByOrderID(ctx, order.ID)
	if err != nil {
		t.Fatalf("load shipment: %v", err)
	}
	if shipment.Status != shipmentsdomain.StatusCanceled {
		t.Errorf("expected shipment canceled, got %s", shipment.Status)
	}
	if got := f.stock(t); got != 10 {
		t.Errorf("expected stock restored to 10, got %d", got)
	}
}

func TestDuplicateWebhookIsAbsorbed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := f.placeOrder(t)
	if err := f.authorizer.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce() failed: %v", err)
	}

	payment, err := f.paymentSvc.GetByOrderID(ctx, order.ID)
	if err != nil {
		t.Fatalf("load payment: %v", err)
	}

	// A redelivered approval and a stale authorization report change nothing.
	if _, err := f.paymentSvc.ApplyStatus(ctx, payment.ID, paymentsdomain.StatusApproved); err != nil {
		t.Fatalf("duplicate ApplyStatus failed: %v", err)
	}
	if _, err := f.paymentSvc.ApplyStatus(ctx, payment.ID, paymentsdomain.StatusAuthorized); err != nil {
		t.Fatalf("stale ApplyStatus failed: %v", err)
	}

	if got := f.orderStatus(t, order.ID); got != ordersdomain.StatusPaid {
		t.Fatalf("expected order to stay paid, got %s", got)
	}

	final, _ := f.orders.GetByID(ctx, order.ID)
	if len(final.History) != 2 {
		t.Errorf("expected 2 history entries, got %d", len(final.History))
	}
}

func TestAuthorizationBatchSizeBoundsEachPass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.placeOrder(t)
	second := f.placeOrder(t)

	authorizer := worker.NewAuthorizer(f.payments, f.queue, f.gateway, f.orders, f.paymentSvc,
		config.WorkerConfig{
			PollInterval:   time.Second,
			MaxAttempts:    3,
			InitialBackoff: time.Second,
			AuthBatchSize:  1,
		}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := authorizer.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce() failed: %v", err)
	}

	approved := 0
	for _, order := range []*ordersdomain.Order{first, second} {
		payment, err := f.paymentSvc.GetByOrderID(ctx, order.ID)
		if err != nil {
			t.Fatalf("load payment: %v", err)
		}
		if payment.Status == paymentsdomain.StatusApproved {
			approved++
		}
	}
	if approved != 1 {
		t.Fatalf("expected exactly one payment approved per pass, got %d", approved)
	}
	if due, _ := f.queue.Due(ctx, time.Now().Add(time.Hour), 0); len(due) != 1 {
		t.Fatalf("expected one task left in the queue, got %d", len(due))
	}

	if err := authorizer.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce() failed: %v", err)
	}
	for _, order := range []*ordersdomain.Order{first, second} {
		if got := f.orderStatus(t, order.ID); got != ordersdomain.StatusPaid {
			t.Errorf("expected order %s paid after the second pass, got %s", order.ID, got)
		}
	}
}
