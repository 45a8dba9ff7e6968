package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mercato/backoffice/internal/events"
	"github.com/mercato/backoffice/internal/payments/domain"
	"github.com/mercato/backoffice/internal/payments/ports"
)

// Service owns the payment lifecycle on our side of the gateway: creating
// payments for new orders, queueing their authorization, and folding gateway
// status reports back into the aggregate.
type Service struct {
	payments ports.PaymentRepository
	queue    ports.AuthorizationQueue
	bus      *events.Bus
	now      func() time.Time
}

func NewService(payments ports.PaymentRepository, queue ports.AuthorizationQueue, bus *events.Bus) *Service {
	return &Service{
		payments: payments,
		queue:    queue,
		bus:      bus,
		now:      time.Now,
	}
}

// WithClock overrides the time source, used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateForOrder creates a payment in Created and enqueues its authorization.
// The gateway is never called here; the worker picks the task up, so a slow
// or down processor cannot stall order placement.
func (s *Service) CreateForOrder(ctx context.Context, orderID string, amountCents int64, installments int, method string) (*domain.Payment, error) {
	now := s.now()

	payment, err := domain.NewPayment(uuid.NewString(), orderID, amountCents, installments, method, now)
	if err != nil {
		return nil, fmt.Errorf("new payment: %w", err)
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	task := ports.PendingAuthorization{
		PaymentID:     payment.ID,
		OrderID:       orderID,
		NextAttemptAt: now,
		CreatedAt:     now,
	}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		return nil, fmt.Errorf("enqueue authorization: %w", err)
	}

	return payment, nil
}

// ApplyStatus folds a gateway-reported status into the payment and publishes
// the resulting events. Duplicate or stale reports are absorbed by the
// aggregate and publish nothing.
func (s *Service) ApplyStatus(ctx context.Context, paymentID string, status domain.PaymentStatus) (*domain.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}

	if err := payment.ApplyStatus(status, s.now()); err != nil {
		return nil, fmt.Errorf("apply status: %w", err)
	}

	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}

	for _, event := range payment.PullEvents() {
		if err := s.bus.Publish(ctx, event); err != nil {
			return payment, fmt.Errorf("payment saved but event dispatch failed: %w", err)
		}
	}

	return payment, nil
}

// GetByID returns a payment.
func (s *Service) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	return s.payments.GetByID(ctx, id)
}

// GetByOrderID returns the payment charging the given order.
func (s *Service) GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	return s.payments.GetByOrderID(ctx, orderID)
}
