package memory

import (
	"context"
	"slices"
	"time"

	appctx "oficina/internal/core/context"
	"oficina/internal/core/events"
	"oficina/internal/core/id"
	"oficina/internal/core/numerator"
	"oficina/internal/core/tenant"
	"oficina/internal/domain/inventory"
	"oficina/internal/infrastructure/storage/postgres"
)

// Outbox implements events.Publisher. Events roll back with the transaction.
type Outbox struct {
	store *Store
}

// NewOutbox creates an outbox over s.
func NewOutbox(s *Store) *Outbox {
	return &Outbox{store: s}
}

func (o *Outbox) Publish(ctx context.Context, event events.Event) error {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return err
	}
	s := o.store
	s.mu.Lock()
	defer s.mu.Unlock()

	row := StoredEvent{ID: id.New(), TenantID: tenantID, Event: event, At: time.Now().UTC()}
	s.outbox = append(s.outbox, row)
	s.onRollback(ctx, func() {
		s.outbox = slices.DeleteFunc(s.outbox, func(e StoredEvent) bool { return e.ID == row.ID })
	})
	return nil
}

// Events returns the stored events of the given type, or all when eventType is empty.
func (o *Outbox) Events(eventType string) []StoredEvent {
	o.store.mu.Lock()
	defer o.store.mu.Unlock()
	var out []StoredEvent
	for _, e := range o.store.outbox {
		if eventType == "" || e.Event.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

// AuditRecord is one catalog change.
type AuditRecord struct {
	ID         id.ID
	TenantID   id.ID
	EntityType string
	EntityID   id.ID
	Action     string
	UserID     id.ID
	Before     any
	After      any
	// Changes is the column diff sys_audit would store.
	Changes map[string]any
	At      time.Time
}

// AuditLog implements inventory.AuditLogger.
type AuditLog struct {
	store *Store
}

// NewAuditLog creates an audit log over s.
func NewAuditLog(s *Store) *AuditLog {
	return &AuditLog{store: s}
}

func (a *AuditLog) LogChange(ctx context.Context, entityType string, entityID id.ID, action string, before, after any) error {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return err
	}
	s := a.store
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := AuditRecord{
		ID:         id.New(),
		TenantID:   tenantID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		UserID:     appctx.GetUserID(ctx),
		Before:     before,
		After:      after,
		Changes:    auditChanges(before, after),
		At:         time.Now().UTC(),
	}
	s.audit = append(s.audit, rec)
	s.onRollback(ctx, func() {
		s.audit = slices.DeleteFunc(s.audit, func(r AuditRecord) bool { return r.ID == rec.ID })
	})
	return nil
}

// Records returns the audit trail of one entity.
func (a *AuditLog) Records(entityID id.ID) []AuditRecord {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	var out []AuditRecord
	for _, r := range a.store.audit {
		if r.EntityID == entityID {
			out = append(out, r)
		}
	}
	return out
}

// History implements inventory.AuditLogger.
func (a *AuditLog) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]inventory.AuditChange, error) {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return nil, err
	}
	a.store.mu.Lock()
	defer a.store.mu.Unlock()

	var out []inventory.AuditChange
	for i := len(a.store.audit) - 1; i >= 0 && len(out) < limit; i-- {
		r := a.store.audit[i]
		if r.TenantID != tenantID || r.EntityType != entityType || r.EntityID != entityID {
			continue
		}
		out = append(out, inventory.AuditChange{
			Action:  r.Action,
			UserID:  id.Ptr(r.UserID),
			Changes: r.Changes,
			At:      r.At,
		})
	}
	return out, nil
}

func auditChanges(before, after any) map[string]any {
	if before == nil {
		return postgres.StructToMap(after)
	}
	return postgres.Diff(postgres.StructToMap(before), postgres.StructToMap(after))
}

type sequenceKey struct {
	tenantID id.ID
	key      string
}

// Numerator implements numerator.Generator. Inside a transaction a rolled
// back number is handed out again, so numbers stay gapless.
type Numerator struct {
	store *Store
}

// NewNumerator creates a generator over s.
func NewNumerator(s *Store) *Numerator {
	return &Numerator{store: s}
}

func (n *Numerator) NextNumber(ctx context.Context, key string) (int64, error) {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return 0, err
	}
	s := n.store
	s.mu.Lock()
	defer s.mu.Unlock()

	k := sequenceKey{tenantID: tenantID, key: key}
	s.sequences[k]++
	next := s.sequences[k]
	s.onRollback(ctx, func() {
		if s.sequences[k] == next {
			s.sequences[k]--
		}
	})
	return next, nil
}

var (
	_ events.Publisher      = (*Outbox)(nil)
	_ inventory.AuditLogger = (*AuditLog)(nil)
	_ numerator.Generator   = (*Numerator)(nil)
)
