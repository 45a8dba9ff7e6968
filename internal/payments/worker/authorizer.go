package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mercato/backoffice/internal/config"
	ordersdomain "github.com/mercato/backoffice/internal/orders/domain"
	ordersports "github.com/mercato/backoffice/internal/orders/ports"
	"github.com/mercato/backoffice/internal/payments/app"
	"github.com/mercato/backoffice/internal/payments/domain"
	"github.com/mercato/backoffice/internal/payments/ports"
)

// Authorizer drains the pending-authorization queue. Order placement only
// writes a queue row; this worker owns every gateway call, retrying transient
// failures with exponential backoff and converting exhausted retries into a
// canceled payment so the order does not hang in Pending forever.
type Authorizer struct {
	payments ports.PaymentRepository
	queue    ports.AuthorizationQueue
	gateway  ports.Gateway
	orders   ordersports.OrderRepository
	service  *app.Service
	cfg      config.WorkerConfig
	logger   *slog.Logger
	now      func() time.Time
}

func NewAuthorizer(
	payments ports.PaymentRepository,
	queue ports.AuthorizationQueue,
	gateway ports.Gateway,
	orders ordersports.OrderRepository,
	service *app.Service,
	cfg config.WorkerConfig,
	logger *slog.Logger,
) *Authorizer {
	return &Authorizer{
		payments: payments,
		queue:    queue,
		gateway:  gateway,
		orders:   orders,
		service:  service,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the time source, used by tests.
func (a *Authorizer) WithClock(now func() time.Time) *Authorizer {
	a.now = now
	return a
}

// Run polls until the context is canceled.
func (a *Authorizer) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()

	a.logger.InfoContext(ctx, "authorization worker started", "poll_interval", a.cfg.PollInterval)

	for {
		select {
		case <-ctx.Done():
			a.logger.InfoContext(ctx, "authorization worker stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := a.RunOnce(ctx); err != nil {
				a.logger.ErrorContext(ctx, "authorization pass failed", "error", err)
			}
		}
	}
}

// RunOnce processes one batch of due tasks. Exported so tests can drive the
// worker without the ticker.
func (a *Authorizer) RunOnce(ctx context.Context) error {
	tasks, err := a.queue.Due(ctx, a.now(), a.cfg.AuthBatchSize)
	if err != nil {
		return err
	}

	for _, task := range tasks {
		if err := a.process(ctx, task); err != nil {
			a.logger.ErrorContext(ctx, "failed to process authorization",
				"payment_id", task.PaymentID,
				"order_id", task.OrderID,
				"error", err,
			)
		}
	}
	return nil
}

func (a *Authorizer) process(ctx context.Context, task ports.PendingAuthorization) error {
	payment, err := a.payments.GetByID(ctx, task.PaymentID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return a.queue.Remove(ctx, task.PaymentID)
		}
		return err
	}

	// A payment past Created was already authorized or settled elsewhere.
	if payment.Status != domain.StatusCreated {
		return a.queue.Remove(ctx, task.PaymentID)
	}

	order, err := a.orders.GetByID(ctx, task.OrderID)
	if err != nil {
		if errors.Is(err, ordersports.ErrNotFound) {
			return a.queue.Remove(ctx, task.PaymentID)
		}
		return err
	}

	// An order canceled before authorization went out needs no gateway hold.
	if order.Status == ordersdomain.StatusCanceled {
		if err := a.queue.Remove(ctx, task.PaymentID); err != nil {
			return err
		}
		_, err := a.service.ApplyStatus(ctx, payment.ID, domain.StatusCanceled)
		return err
	}

	result, err := a.gateway.Authorize(ctx, authorizeRequest(payment, order))
	switch {
	case err == nil:
		return a.succeed(ctx, payment, result)
	case errors.Is(err, ports.ErrGatewayDeclined):
		return a.decline(ctx, task, payment)
	default:
		return a.retryLater(ctx, task, payment, err)
	}
}

func authorizeRequest(payment *domain.Payment, order *ordersdomain.Order) ports.AuthorizeRequest {
	return ports.AuthorizeRequest{
		PaymentID:       payment.ID,
		OrderID:         order.ID,
		CustomerID:      order.CustomerID,
		AmountCents:     payment.AmountCents,
		Installments:    payment.Installments,
		Method:          payment.Method,
		BillingAddress:  order.BillingAddress,
		DeliveryAddress: order.DeliveryAddress,
	}
}

func (a *Authorizer) succeed(ctx context.Context, payment *domain.Payment, result *ports.GatewayResult) error {
	payment.AttachGatewayID(result.GatewayPaymentID, a.now())
	if err := a.payments.Update(ctx, payment); err != nil {
		return err
	}

	if err := a.queue.Remove(ctx, payment.ID); err != nil {
		return err
	}

	a.logger.InfoContext(ctx, "payment authorized",
		"payment_id", payment.ID,
		"order_id", payment.OrderID,
		"gateway_payment_id", result.GatewayPaymentID,
	)

	_, err := a.service.ApplyStatus(ctx, payment.ID, result.Status)
	return err
}

func (a *Authorizer) decline(ctx context.Context, task ports.PendingAuthorization, payment *domain.Payment) error {
	if err := a.queue.Remove(ctx, task.PaymentID); err != nil {
		return err
	}

	a.logger.WarnContext(ctx, "payment declined by gateway",
		"payment_id", payment.ID,
		"order_id", payment.OrderID,
	)

	_, err := a.service.ApplyStatus(ctx, payment.ID, domain.StatusRejected)
	return err
}

func (a *Authorizer) retryLater(ctx context.Context, task ports.PendingAuthorization, payment *domain.Payment, cause error) error {
	task.Attempts++
	task.LastError = cause.Error()

	if task.Attempts >= a.cfg.MaxAttempts {
		a.logger.ErrorContext(ctx, "authorization attempts exhausted, canceling payment",
			"payment_id", payment.ID,
			"order_id", payment.OrderID,
			"attempts", task.Attempts,
			"error", cause,
		)
		if err := a.queue.Remove(ctx, task.PaymentID); err != nil {
			return err
		}
		_, err := a.service.ApplyStatus(ctx, payment.ID, domain.StatusCanceled)
		return err
	}

	backoff := a.cfg.InitialBackoff << (task.Attempts - 1)
	task.NextAttemptAt = a.now().Add(backoff)

	a.logger.WarnContext(ctx, "authorization failed, retrying",
		"payment_id", payment.ID,
		"order_id", payment.OrderID,
		"attempts", task.Attempts,
		"next_attempt_at", task.NextAttemptAt,
		"error", cause,
	)

	return a.queue.Reschedule(ctx, task)
}
