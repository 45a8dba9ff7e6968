package domain

import (
	"errors"
	"testing"
	"time"

	custdomain "github.com/mercato/backoffice/internal/customers/domain"
)

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	order, err := NewOrder(
		"order-1",
		"customer-1",
		[]LineItem{{ProductID: "product-1", Quantity: 2, UnitPriceCents: 1500}},
		nil,
		3000,
		"credit_card",
		1,
		custdomain.Address{Street: "1 Main St", City: "Lisbon", Zip: "1000", Country: "PT"},
		custdomain.Address{Street: "2 Pier Rd", City: "Porto", Zip: "4000", Country: "PT"},
		testTime,
	)
	if err != nil {
		t.Fatalf("NewOrder() failed: %v", err)
	}
	return order
}

func TestNewOrder(t *testing.T) {
	t.Run("starts pending and records creation event", func(t *testing.T) {
		order := newTestOrder(t)

		if order.Status != StatusPending {
			t.Errorf("expected status %s, got %s", StatusPending, order.Status)
		}
		if len(order.History) != 1 || order.History[0].Status != StatusPending {
			t.Errorf("expected history to open with pending, got %+v", order.History)
		}

		pulled := order.PullEvents()
		if len(pulled) != 1 {
			t.Fatalf("expected 1 event, got %d", len(pulled))
		}
		created, ok := pulled[0].(OrderCreated)
		if !ok {
			t.Fatalf("expected OrderCreated, got %T", pulled[0])
		}
		if created.TotalCents != 3000 {
			t.Errorf("expected total 3000, got %d", created.TotalCents)
		}
	})

	t.Run("rejects empty items", func(t *testing.T) {
		_, err := NewOrder("order-1", "customer-1", nil, nil, 0, "pix", 1, custdomain.Address{}, custdomain.Address{}, testTime)
		if !errors.Is(err, ErrEmptyItems) {
			t.Errorf("expected ErrEmptyItems, got %v", err)
		}
	})

	t.Run("rejects total above undiscounted item sum", func(t *testing.T) {
		items := []LineItem{{ProductID: "product-1", Quantity: 1, UnitPriceCents: 1000}}
		_, err := NewOrder("order-1", "customer-1", items, nil, 1001, "pix", 1, custdomain.Address{}, custdomain.Address{}, testTime)
		if err == nil {
			t.Error("expected error, got nil")
		}
	})
}

func TestOrderTransitions(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(*Order) error
		move    func(*Order) error
		wantErr error
	}{
		{
			name:    "pending to paid",
			prepare: func(o *Order) error { return nil },
			move:    func(o *Order) error { return o.MarkPaid(testTime) },
		},
		{
			name:    "paid to shipped",
			prepare: func(o *Order) error { return o.MarkPaid(testTime) },
			move:    func(o *Order) error { return o.MarkShipped(testTime) },
		},
		{
			name: "shipped to delivered",
			prepare: func(o *Order) error {
				if err := o.MarkPaid(testTime); err != nil {
					return err
				}
				return o.MarkShipped(testTime)
			},
			move: func(o *Order) error { return o.MarkDelivered(testTime) },
		},
		{
			name:    "pending to canceled",
			prepare: func(o *Order) error { return nil },
			move:    func(o *Order) error { return o.Cancel("buyer changed mind", testTime) },
		},
		{
			name:    "paid to canceled",
			prepare: func(o *Order) error { return o.MarkPaid(testTime) },
			move:    func(o *Order) error { return o.Cancel("payment reversed", testTime) },
		},
		{
			name:    "pending to shipped is illegal",
			prepare: func(o *Order) error { return nil },
			move:    func(o *Order) error { return o.MarkShipped(testTime) },
			wantErr: ErrInvalidTransition,
		},
		{
			name:    "pending to delivered is illegal",
			prepare: func(o *Order) error { return nil },
			move:    func(o *Order) error { return o.MarkDelivered(testTime) },
			wantErr: ErrInvalidTransition,
		},
		{
			name: "delivered cannot be canceled",
			prepare: func(o *Order) error {
				if err := o.MarkPaid(testTime); err != nil {
					return err
				}
				if err := o.MarkShipped(testTime); err != nil {
					return err
				}
				return o.MarkDelivered(testTime)
			},
			move:    func(o *Order) error { return o.Cancel("too late", testTime) },
			wantErr: ErrInvalidTransition,
		},
		{
			name:    "canceled cannot be paid",
			prepare: func(o *Order) error { return o.Cancel("gone", testTime) },
			move:    func(o *Order) error { return o.MarkPaid(testTime) },
			wantErr: ErrInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := newTestOrder(t)
			if err := tt.prepare(order); err != nil {
				t.Fatalf("prepare failed: %v", err)
			}

			err := tt.move(order)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestOrderCancel(t *testing.T) {
	t.Run("records restock quantities and reason", func(t *testing.T) {
		order := newTestOrder(t)
		order.PullEvents()

		if err := order.Cancel("payment canceled", testTime); err != nil {
			t.Fatalf("Cancel() failed: %v", err)
		}
		if order.Description != "payment canceled" {
			t.Errorf("expected reason on description, got %q", order.Description)
		}

		pulled := order.PullEvents()
		if len(pulled) != 1 {
			t.Fatalf("expected 1 event, got %d", len(pulled))
		}
		canceled, ok := pulled[0].(OrderCanceled)
		if !ok {
			t.Fatalf("expected OrderCanceled, got %T", pulled[0])
		}
		if len(canceled.Items) != 1 || canceled.Items[0].Quantity != 2 {
			t.Errorf("expected restock of 2 units, got %+v", canceled.Items)
		}
	})
}

func TestOrderHistory(t *testing.T) {
	t.Run("appends one entry per transition", func(t *testing.T) {
		order := newTestOrder(t)
		_ = order.MarkPaid(testTime.Add(time.Minute))
		_ = order.MarkShipped(testTime.Add(2 * time.Minute))
		_ = order.MarkDelivered(testTime.Add(3 * time.Minute))

		want := []OrderStatus{StatusPending, StatusPaid, StatusShipped, StatusDelivered}
		if len(order.History) != len(want) {
			t.Fatalf("expected %d history entries, got %d", len(want), len(order.History))
		}
		for i, status := range want {
			if order.History[i].Status != status {
				t.Errorf("history[%d]: expected %s, got %s", i, status, order.History[i].Status)
			}
		}
	})
}

func TestPullEvents(t *testing.T) {
	t.Run("clears pending events after pull", func(t *testing.T) {
		order := newTestOrder(t)
		if got := len(order.PullEvents()); got != 1 {
			t.Fatalf("expected 1 event on first pull, got %d", got)
		}
		if got := len(order.PullEvents()); got != 0 {
			t.Errorf("expected 0 events on second pull, got %d", got)
		}
	})
}
