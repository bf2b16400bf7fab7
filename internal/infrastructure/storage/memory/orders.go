package memory

import (
	"context"
	"slices"
	"strconv"

	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
	"oficina/internal/core/tenant"
	"oficina/internal/domain/serviceorder"
)

// OrderRepo implements serviceorder.Repository.
type OrderRepo struct {
	store *Store
}

// NewOrderRepo creates an order repository over s.
func NewOrderRepo(s *Store) *OrderRepo {
	return &OrderRepo{store: s}
}

func cloneOrder(o serviceorder.ServiceOrder) serviceorder.ServiceOrder {
	o.LineItems = slices.Clone(o.LineItems)
	o.MarkClean()
	return o
}

func (r *OrderRepo) Create(ctx context.Context, order *serviceorder.ServiceOrder) error {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[order.ID]; exists {
		return apperror.NewDuplicate("service order", "id", order.ID.String())
	}
	for _, o := range s.orders {
		if o.TenantID == tenantID && o.Number == order.Number {
			return apperror.NewDuplicate("service order", "number", strconv.FormatInt(order.Number, 10))
		}
	}
	order.TenantID = tenantID
	s.orders[order.ID] = cloneOrder(*order)
	s.onRollback(ctx, func() { delete(s.orders, order.ID) })
	return nil
}

func (r *OrderRepo) GetByID(ctx context.Context, orderID id.ID) (*serviceorder.ServiceOrder, error) {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return nil, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	o, ok := r.store.orders[orderID]
	if !ok || o.TenantID != tenantID {
		return nil, apperror.NewNotFound("service order", orderID)
	}
	out := cloneOrder(o)
	return &out, nil
}

func (r *OrderRepo) Update(ctx context.Context, order *serviceorder.ServiceOrder) error {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.orders[order.ID]
	if !ok || prev.TenantID != tenantID {
		return apperror.NewNotFound("service order", order.ID)
	}
	if prev.Revision != order.Revision {
		return apperror.NewConcurrentModification("service order", order.ID)
	}

	order.Touch()
	s.orders[order.ID] = cloneOrder(*order)
	s.onRollback(ctx, func() { s.orders[order.ID] = prev })
	return nil
}

// HistoryRepo implements serviceorder.HistoryRepository.
type HistoryRepo struct {
	store *Store
}

// NewHistoryRepo creates a status history repository over s.
func NewHistoryRepo(s *Store) *HistoryRepo {
	return &HistoryRepo{store: s}
}

func (r *HistoryRepo) Append(ctx context.Context, entry serviceorder.HistoryEntry) error {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.TenantID = tenantID
	s.history = append(s.history, entry)
	s.onRollback(ctx, func() {
		s.history = slices.DeleteFunc(s.history, func(e serviceorder.HistoryEntry) bool { return e.ID == entry.ID })
	})
	return nil
}

func (r *HistoryRepo) ListByOrder(ctx context.Context, orderID id.ID) ([]serviceorder.HistoryEntry, error) {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return nil, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	out := []serviceorder.HistoryEntry{}
	for _, e := range r.store.history {
		if e.TenantID == tenantID && e.ServiceOrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

var (
	_ serviceorder.Repository        = (*OrderRepo)(nil)
	_ serviceorder.HistoryRepository = (*HistoryRepo)(nil)
)
