package app

import (
	"context"
	"log/slog"

	catalogports "github.com/mercato/backoffice/internal/catalog/ports"
	custports "github.com/mercato/backoffice/internal/customers/ports"
	discports "github.com/mercato/backoffice/internal/discounts/ports"
	"github.com/mercato/backoffice/internal/events"
	"github.com/mercato/backoffice/internal/orders/app/commands"
	"github.com/mercato/backoffice/internal/orders/app/queries"
	"github.com/mercato/backoffice/internal/orders/domain"
	"github.com/mercato/backoffice/internal/orders/metrics"
	"github.com/mercato/backoffice/internal/orders/ports"
)

// Service bundles the order use cases exposed over HTTP.
type Service struct {
	placeOrderHandler  commands.PlaceOrderHandler
	cancelOrderHandler *commands.CancelOrderCommandHandler
	getOrderHandler    *queries.GetOrderQueryHandler
	idempotency        ports.IdempotencyStore
}

// Dependencies carries everything the order use cases need.
type Dependencies struct {
	Orders      ports.OrderRepository
	Products    catalogports.ProductRepository
	Customers   custports.CustomerRepository
	Coupons     discports.CouponRepository
	Sales       discports.SaleRepository
	Usage       discports.UsageCounter
	Bus         *events.Bus
	Idempotency ports.IdempotencyStore
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
}

// NewService wires required dependencies.
func NewService(deps Dependencies) *Service {
	coreHandler := commands.NewPlaceOrderCommandHandler(
		deps.Orders,
		deps.Products,
		deps.Customers,
		deps.Coupons,
		deps.Sales,
		deps.Usage,
		deps.Bus,
	)

	return &Service{
		placeOrderHandler:  commands.NewObservablePlaceOrderHandler(coreHandler, deps.Logger, deps.Metrics),
		cancelOrderHandler: commands.NewCancelOrderCommandHandler(deps.Orders, deps.Bus),
		getOrderHandler:    queries.NewGetOrderQueryHandler(deps.Orders),
		idempotency:        deps.Idempotency,
	}
}

// PlaceOrder prices and persists a new order and starts the fulfillment
// choreography.
func (s *Service) PlaceOrder(ctx context.Context, cmd commands.PlaceOrderCommand) (*domain.Order, error) {
	return s.placeOrderHandler.Handle(ctx, cmd)
}

// CancelOrder cancels an order directly, triggering restock compensation.
func (s *Service) CancelOrder(ctx context.Context, id, reason string) (*domain.Order, error) {
	return s.cancelOrderHandler.Handle(ctx, commands.CancelOrderCommand{OrderID: id, Reason: reason})
}

// GetOrder retrieves an order by ID.
func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.getOrderHandler.Handle(ctx, queries.GetOrderQuery{OrderID: id})
}

// GetIdempotentResponse returns a previously stored response for the key, or
// nil when the key is new.
func (s *Service) GetIdempotentResponse(ctx context.Context, key string) (*ports.StoredResponse, error) {
	if s.idempotency == nil {
		return nil, nil
	}
	return s.idempotency.Get(ctx, key)
}

// SaveIdempotentResponse stores the response for replay on duplicate requests.
func (s *Service) SaveIdempotentResponse(ctx context.Context, key string, response ports.StoredResponse) error {
	if s.idempotency == nil {
		return nil
	}
	return s.idempotency.Save(ctx, key, response)
}
