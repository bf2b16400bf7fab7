package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
	"oficina/internal/core/tenant"
	"oficina/internal/domain/inventory"
)

// PartRepo implements inventory.PartRepository.
type PartRepo struct {
	store *Store
}

// NewPartRepo creates a part repository over s.
func NewPartRepo(s *Store) *PartRepo {
	return &PartRepo{store: s}
}

func (r *PartRepo) Create(ctx context.Context, part *inventory.Part) error {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.parts {
		if p.TenantID == tenantID && p.Code == part.Code {
			return apperror.NewDuplicate("part", "code", part.Code)
		}
	}
	part.TenantID = tenantID
	s.parts[part.ID] = *part
	s.onRollback(ctx, func() { delete(s.parts, part.ID) })
	return nil
}

func (r *PartRepo) GetByID(ctx context.Context, partID id.ID) (*inventory.Part, error) {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return nil, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.get(tenantID, partID)
}

// get returns a copy; callers hold the store mutex.
func (r *PartRepo) get(tenantID, partID id.ID) (*inventory.Part, error) {
	p, ok := r.store.parts[partID]
	if !ok || p.TenantID != tenantID {
		return nil, apperror.NewNotFound("part", partID)
	}
	return &p, nil
}

func (r *PartRepo) GetByCode(ctx context.Context, code string) (*inventory.Part, error) {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return nil, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, p := range r.store.parts {
		if p.TenantID == tenantID && p.Code == code {
			return &p, nil
		}
	}
	return nil, apperror.NewNotFound("part", code)
}

func (r *PartRepo) GetForUpdate(ctx context.Context, partID id.ID) (*inventory.Part, error) {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return nil, err
	}
	// Reject unknown parts before waiting on a lock.
	if _, err := r.GetByID(ctx, partID); err != nil {
		return nil, err
	}
	if err := r.store.lockPart(ctx, partID); err != nil {
		return nil, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.get(tenantID, partID)
}

func (r *PartRepo) UpdateQuantity(ctx context.Context, partID id.ID, quantity int) error {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := r.get(tenantID, partID)
	if err != nil {
		return err
	}
	prev := *current
	next := *current
	next.Quantity = quantity
	next.UpdatedAt = time.Now().UTC()
	s.parts[partID] = next
	s.onRollback(ctx, func() { s.parts[partID] = prev })
	return nil
}

func (r *PartRepo) Update(ctx context.Context, part *inventory.Part) error {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := r.get(tenantID, part.ID)
	if err != nil {
		return err
	}
	if current.Revision != part.Revision {
		return apperror.NewConcurrentModification("part", part.ID)
	}

	prev := *current
	next := *current
	next.Description = part.Description
	next.MinimumQuantity = part.MinimumQuantity
	next.UnitCost = part.UnitCost
	next.SalePrice = part.SalePrice
	next.Active = part.Active
	next.Touch()
	s.parts[part.ID] = next
	s.onRollback(ctx, func() { s.parts[part.ID] = prev })

	part.Revision = next.Revision
	part.UpdatedAt = next.UpdatedAt
	part.Quantity = next.Quantity
	return nil
}

func (r *PartRepo) ListLowStock(ctx context.Context, limit int) ([]*inventory.Part, error) {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return nil, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []*inventory.Part
	for _, p := range r.store.parts {
		if p.TenantID == tenantID && p.Active && p.IsLowStock() {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MovementRepo implements inventory.MovementRepository.
type MovementRepo struct {
	store *Store
}

// NewMovementRepo creates a ledger repository over s.
func NewMovementRepo(s *Store) *MovementRepo {
	return &MovementRepo{store: s}
}

func (r *MovementRepo) Create(ctx context.Context, mv inventory.Movement) error {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return err
	}
	if mv.TenantID() != tenantID {
		return apperror.NewInvalidMovement("movement tenant does not match request tenant")
	}
	if err := mv.Validate(); err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	s.movements = append(s.movements, mv)
	s.onRollback(ctx, func() {
		s.movements = slices.DeleteFunc(s.movements, func(m inventory.Movement) bool { return m.ID() == mv.ID() })
	})
	return nil
}

func (r *MovementRepo) ListByPart(ctx context.Context, partID id.ID, filter inventory.MovementFilter) ([]inventory.Movement, error) {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return nil, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []inventory.Movement
	for _, mv := range r.store.movements {
		if mv.TenantID() != tenantID || mv.PartID() != partID {
			continue
		}
		if len(filter.Kinds) > 0 && !slices.Contains(filter.Kinds, mv.Kind()) {
			continue
		}
		if filter.From != nil && mv.OccurredAt().Before(*filter.From) {
			continue
		}
		if filter.To != nil && !mv.OccurredAt().Before(*filter.To) {
			continue
		}
		out = append(out, mv)
	}
	return page(out, filter.Offset, filter.Limit), nil
}

func (r *MovementRepo) ListByOrder(ctx context.Context, orderID id.ID) ([]inventory.Movement, error) {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return nil, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []inventory.Movement
	for _, mv := range r.store.movements {
		if mv.TenantID() == tenantID && mv.ServiceOrderID() != nil && *mv.ServiceOrderID() == orderID {
			out = append(out, mv)
		}
	}
	return out, nil
}

func page[T any](items []T, offset, limit int) []T {
	offset = max(offset, 0)
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

var (
	_ inventory.PartRepository     = (*PartRepo)(nil)
	_ inventory.MovementRepository = (*MovementRepo)(nil)
)
