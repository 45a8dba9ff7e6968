package memory

import (
	"context"
	"sync"

	"github.com/mercato/backoffice/internal/shipments/domain"
	"github.com/mercato/backoffice/internal/shipments/ports"
)

// Repository provides an in-memory shipment store for local development and tests.
type Repository struct {
	mu        sync.RWMutex
	shipments map[string]domain.Shipment
}

func NewRepository() *Repository {
	return &Repository{shipments: make(map[string]domain.Shipment)}
}

func (r *Repository) Create(_ context.Context, shipment *domain.Shipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shipments[shipment.ID] = snapshot(shipment)
	return nil
}

func (r *Repository) GetByID(_ context.Context, id string) (*domain.Shipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	shipment, ok := r.shipments[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	copied := snapshot(&shipment)
	return &copied, nil
}

func (r *Repository) GetByOrderID(_ context.Context, orderID string) (*domain.Shipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, shipment := range r.shipments {
		if shipment.OrderID == orderID {
			copied := snapshot(&shipment)
			return &copied, nil
		}
	}
	return nil, ports.ErrNotFound
}

func (r *Repository) Update(_ context.Context, shipment *domain.Shipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.shipments[shipment.ID]; !ok {
		return ports.ErrNotFound
	}
	r.shipments[shipment.ID] = snapshot(shipment)
	return nil
}

func snapshot(shipment *domain.Shipment) domain.Shipment {
	copied := *shipment
	copied.Tracking = append([]domain.TrackingEntry(nil), shipment.Tracking...)
	return copied
}

// CarrierRepository is an in-memory carrier store.
type CarrierRepository struct {
	mu       sync.RWMutex
	carriers map[string]domain.Carrier
	order    []string
}

func NewCarrierRepository() *CarrierRepository {
	return &CarrierRepository{carriers: make(map[string]domain.Carrier)}
}

// Seed registers carriers in the given order.
func (r *CarrierRepository) Seed(carriers ...domain.Carrier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, carrier := range carriers {
		if _, ok := r.carriers[carrier.ID]; !ok {
			r.order = append(r.order, carrier.ID)
		}
		r.carriers[carrier.ID] = carrier
	}
}

func (r *CarrierRepository) GetByID(_ context.Context, id string) (*domain.Carrier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	carrier, ok := r.carriers[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &carrier, nil
}

func (r *CarrierRepository) ListActive(_ context.Context) ([]domain.Carrier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var active []domain.Carrier
	for _, id := range r.order {
		if carrier := r.carriers[id]; carrier.Active {
			active = append(active, carrier)
		}
	}
	return active, nil
}
