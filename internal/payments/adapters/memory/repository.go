package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mercato/backoffice/internal/payments/domain"
	"github.com/mercato/backoffice/internal/payments/ports"
)

// Repository provides an in-memory payment store for local development and tests.
type Repository struct {
	mu       sync.RWMutex
	payments map[string]domain.Payment
}

func NewRepository() *Repository {
	return &Repository{payments: make(map[string]domain.Payment)}
}

func (r *Repository) Create(_ context.Context, payment *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments[payment.ID] = *payment
	return nil
}

func (r *Repository) GetByID(_ context.Context, id string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	payment, ok := r.payments[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &payment, nil
}

func (r *Repository) GetByOrderID(_ context.Context, orderID string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, payment := range r.payments {
		if payment.OrderID == orderID {
			copied := payment
			return &copied, nil
		}
	}
	return nil, ports.ErrNotFound
}

func (r *Repository) Update(_ context.Context, payment *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[payment.ID]; !ok {
		return ports.ErrNotFound
	}
	r.payments[payment.ID] = *payment
	return nil
}

// Queue is an in-memory authorization queue.
type Queue struct {
	mu    sync.Mutex
	tasks map[string]ports.PendingAuthorization
}

func NewQueue() *Queue {
	return &Queue{tasks: make(map[string]ports.PendingAuthorization)}
}

func (q *Queue) Enqueue(_ context.Context, task ports.PendingAuthorization) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks[task.PaymentID] = task
	return nil
}

func (q *Queue) Due(_ context.Context, now time.Time, limit int) ([]ports.PendingAuthorization, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []ports.PendingAuthorization
	for _, task := range q.tasks {
		if !task.NextAttemptAt.After(now) {
			due = append(due, task)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].NextAttemptAt.Before(due[j].NextAttemptAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (q *Queue) Reschedule(_ context.Context, task ports.PendingAuthorization) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.tasks[task.PaymentID]; !ok {
		return ports.ErrNotFound
	}
	q.tasks[task.PaymentID] = task
	return nil
}

func (q *Queue) Remove(_ context.Context, paymentID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.tasks, paymentID)
	return nil
}
