package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	catalogports "github.com/mercato/backoffice/internal/catalog/ports"
	custports "github.com/mercato/backoffice/internal/customers/ports"
	discdomain "github.com/mercato/backoffice/internal/discounts/domain"
	discports "github.com/mercato/backoffice/internal/discounts/ports"
	"github.com/mercato/backoffice/internal/events"
	"github.com/mercato/backoffice/internal/orders/domain"
	"github.com/mercato/backoffice/internal/orders/ports"
)

// ItemInput is one requested line of a new order.
type ItemInput struct {
	ProductID string
	Quantity  int
}

// PlaceOrderCommand captures a purchase request.
type PlaceOrderCommand struct {
	CustomerID    string
	Items         []ItemInput
	CouponCodes   []string
	PaymentMethod string
	Installments  int
}

// Validate ensures the command adheres to input constraints.
func (c PlaceOrderCommand) Validate() error {
	if strings.TrimSpace(c.CustomerID) == "" {
		return errors.New("customer_id is required")
	}
	if len(c.Items) == 0 {
		return errors.New("at least one item is required")
	}
	for _, item := range c.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return errors.New("product_id is required for every item")
		}
		if item.Quantity <= 0 {
			return errors.New("quantity must be positive")
		}
	}
	if strings.TrimSpace(c.PaymentMethod) == "" {
		return errors.New("payment_method is required")
	}
	return nil
}

// PlaceOrderHandler is the contract the observable decorator wraps.
type PlaceOrderHandler interface {
	Handle(ctx context.Context, cmd PlaceOrderCommand) (*domain.Order, error)
}

// PlaceOrderCommandHandler reserves stock, prices the order through the
// discount engine, persists the order, and publishes OrderCreated to start
// the fulfillment choreography.
type PlaceOrderCommandHandler struct {
	orders    ports.OrderRepository
	products  catalogports.ProductRepository
	customers custports.CustomerRepository
	coupons   discports.CouponRepository
	sales     discports.SaleRepository
	usage     discports.UsageCounter
	bus       *events.Bus
	now       func() time.Time
}

func NewPlaceOrderCommandHandler(
	orders ports.OrderRepository,
	products catalogports.ProductRepository,
	customers custports.CustomerRepository,
	coupons discports.CouponRepository,
	sales discports.SaleRepository,
	usage discports.UsageCounter,
	bus *events.Bus,
) *PlaceOrderCommandHandler {
	return &PlaceOrderCommandHandler{
		orders:    orders,
		products:  products,
		customers: customers,
		coupons:   coupons,
		sales:     sales,
		usage:     usage,
		bus:       bus,
		now:       time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (h *PlaceOrderCommandHandler) WithClock(now func() time.Time) *PlaceOrderCommandHandler {
	h.now = now
	return h
}

func (h *PlaceOrderCommandHandler) Handle(ctx context.Context, cmd PlaceOrderCommand) (*domain.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	customer, err := h.customers.GetByID(ctx, cmd.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("load customer: %w", err)
	}

	items, orderedProducts, err := h.snapshotItems(ctx, cmd.Items)
	if err != nil {
		return nil, err
	}

	reserved, err := h.reserveStock(ctx, cmd.Items)
	if err != nil {
		return nil, err
	}

	now := h.now()
	totalCents, claims, err := h.price(ctx, items, orderedProducts, cmd.CouponCodes, now)
	if err != nil {
		h.releaseStock(ctx, reserved)
		return nil, err
	}

	reservedCoupons, err := h.reserveCoupons(ctx, claims)
	if err != nil {
		h.releaseStock(ctx, reserved)
		return nil, err
	}

	couponIDs := make([]string, len(claims))
	for i, claim := range claims {
		couponIDs[i] = claim.couponID
	}

	order, err := domain.NewOrder(
		uuid.NewString(),
		cmd.CustomerID,
		items,
		couponIDs,
		totalCents,
		cmd.PaymentMethod,
		cmd.Installments,
		customer.BillingAddress,
		customer.DeliveryAddress,
		now,
	)
	if err != nil {
		h.releaseStock(ctx, reserved)
		h.releaseCoupons(ctx, reservedCoupons)
		return nil, err
	}

	if err := h.orders.Create(ctx, order); err != nil {
		h.releaseStock(ctx, reserved)
		h.releaseCoupons(ctx, reservedCoupons)
		return nil, fmt.Errorf("persist order: %w", err)
	}

	for _, event := range order.PullEvents() {
		if err := h.bus.Publish(ctx, event); err != nil {
			return order, fmt.Errorf("order saved but event dispatch failed: %w", err)
		}
	}

	return order, nil
}

// snapshotItems resolves products and freezes price and category ids at
// order time.
func (h *PlaceOrderCommandHandler) snapshotItems(ctx context.Context, inputs []ItemInput) ([]domain.LineItem, []discdomain.OrderedProduct, error) {
	ids := make([]string, len(inputs))
	for i, input := range inputs {
		ids[i] = input.ProductID
	}

	products, err := h.products.ListByIDs(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("load products: %w", err)
	}

	items := make([]domain.LineItem, len(inputs))
	ordered := make([]discdomain.OrderedProduct, len(inputs))
	for i, input := range inputs {
		product := products[i]
		items[i] = domain.LineItem{
			ProductID:      product.ID,
			Quantity:       input.Quantity,
			UnitPriceCents: product.PriceCents,
			CategoryIDs:    product.CategoryIDs,
		}
		ordered[i] = discdomain.OrderedProduct{
			ProductID:   product.ID,
			CategoryIDs: product.CategoryIDs,
		}
	}

	return items, ordered, nil
}

func (h *PlaceOrderCommandHandler) reserveStock(ctx context.Context, inputs []ItemInput) ([]ItemInput, error) {
	var reserved []ItemInput
	for _, input := range inputs {
		if err := h.products.AdjustStock(ctx, input.ProductID, -input.Quantity); err != nil {
			h.releaseStock(ctx, reserved)
			return nil, fmt.Errorf("reserve stock for %s: %w", input.ProductID, err)
		}
		reserved = append(reserved, input)
	}
	return reserved, nil
}

func (h *PlaceOrderCommandHandler) releaseStock(ctx context.Context, reserved []ItemInput) {
	for _, input := range reserved {
		// Restock is a commutative delta; a failure here leaves the counter
		// to the reconciliation sweep rather than blocking the caller.
		_ = h.products.AdjustStock(ctx, input.ProductID, input.Quantity)
	}
}

// couponClaim is a coupon selected for the order, kept with its limit so the
// usage slot can be reserved without a second lookup.
type couponClaim struct {
	couponID   string
	code       string
	usageLimit int
}

// price composes sale discounts per line item, then coupon discounts on the
// order total, clamped by the discount engine's price floor.
func (h *PlaceOrderCommandHandler) price(ctx context.Context, items []domain.LineItem, ordered []discdomain.OrderedProduct, couponCodes []string, now time.Time) (int64, []couponClaim, error) {
	activeSales, err := h.sales.ListActive(ctx, now)
	if err != nil {
		return 0, nil, fmt.Errorf("load sales: %w", err)
	}

	var baseTotal, saleTotal int64
	for i, item := range items {
		baseTotal += item.SubtotalCents()

		var saleDiscounts []discdomain.Discount
		for _, sale := range activeSales {
			if sale.EligibleFor(ordered[i], item.UnitPriceCents, saleDiscounts) {
				saleDiscounts = append(saleDiscounts, sale.Discount)
			}
		}
		saleTotal += discdomain.ApplyDiscounts(item.SubtotalCents(), saleDiscounts)
	}

	summary := discdomain.OrderSummary{TotalCents: baseTotal, Products: ordered}

	var couponDiscounts []discdomain.Discount
	var claims []couponClaim

	claimed := func(id string) bool {
		for _, claim := range claims {
			if claim.couponID == id {
				return true
			}
		}
		return false
	}

	for _, code := range couponCodes {
		coupon, err := h.coupons.GetByCode(ctx, code)
		if err != nil {
			return 0, nil, fmt.Errorf("load coupon %s: %w", code, err)
		}
		currentUsage, err := h.usage.Current(ctx, coupon.ID)
		if err != nil {
			return 0, nil, fmt.Errorf("read usage for coupon %s: %w", code, err)
		}
		if err := coupon.Applicable(summary, currentUsage, now); err != nil {
			return 0, nil, fmt.Errorf("coupon %s: %w", code, err)
		}
		couponDiscounts = append(couponDiscounts, coupon.Discount)
		claims = append(claims, couponClaim{couponID: coupon.ID, code: coupon.Code, usageLimit: coupon.UsageLimit})
	}

	autoApply, err := h.coupons.ListAutoApply(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("load auto-apply coupons: %w", err)
	}
	for _, coupon := range autoApply {
		if claimed(coupon.ID) {
			continue
		}
		currentUsage, err := h.usage.Current(ctx, coupon.ID)
		if err != nil {
			return 0, nil, fmt.Errorf("read usage for coupon %s: %w", coupon.Code, err)
		}
		// Auto-applied coupons that do not fit the order are skipped, not
		// surfaced: the buyer never asked for them.
		if coupon.Applicable(summary, currentUsage, now) != nil {
			continue
		}
		couponDiscounts = append(couponDiscounts, coupon.Discount)
		claims = append(claims, couponClaim{couponID: coupon.ID, code: coupon.Code, usageLimit: coupon.UsageLimit})
	}

	// Each ApplyDiscounts call clamps against its own base, so sale and
	// coupon stages together could still sail past the cap. The final total
	// is clamped against the undiscounted base.
	total := discdomain.ApplyDiscounts(saleTotal, couponDiscounts)
	if floor := discdomain.PriceFloor(baseTotal); total < floor {
		total = floor
	}
	return total, claims, nil
}

// reserveCoupons claims one usage slot per coupon. The counter rejects the
// claim atomically at the limit, so two concurrent orders cannot both take
// the last redemption.
func (h *PlaceOrderCommandHandler) reserveCoupons(ctx context.Context, claims []couponClaim) ([]string, error) {
	var reserved []string
	for _, claim := range claims {
		if _, err := h.usage.Reserve(ctx, claim.couponID, claim.usageLimit); err != nil {
			h.releaseCoupons(ctx, reserved)
			return nil, fmt.Errorf("reserve coupon %s: %w", claim.code, err)
		}
		reserved = append(reserved, claim.couponID)
	}
	return reserved, nil
}

func (h *PlaceOrderCommandHandler) releaseCoupons(ctx context.Context, couponIDs []string) {
	for _, id := range couponIDs {
		_ = h.usage.Release(ctx, id)
	}
}
