package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	appctx "oficina/internal/core/context"
	"oficina/internal/core/id"
	"oficina/internal/core/tenant"
	"oficina/internal/domain/inventory"
)

// CompressionAlgo specifies the compression algorithm used.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID                id.ID           `db:"id"`
	TenantID          id.ID           `db:"tenant_id"`
	EntityType        string          `db:"entity_type"`
	EntityID          id.ID           `db:"entity_id"`
	Action            string          `db:"action"`
	UserID            *id.ID          `db:"user_id"`
	Changes           json.RawMessage `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// AuditService records field-level changes of catalog data (part descriptions, prices).
// Stock quantities are audited by the ledger itself and never pass through here.
type AuditService struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int // bytes
}

// NewAuditService creates a new audit service.
func NewAuditService(txManager *TxManager) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditService{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 4 * 1024,
	}, nil
}

// LogChange records the difference between before and after.
// before is nil for creations.
func (s *AuditService) LogChange(ctx context.Context, entityType string, entityID id.ID, action string, before, after any) error {
	var changes map[string]any
	if before == nil {
		changes = StructToMap(after)
	} else {
		changes = Diff(StructToMap(before), StructToMap(after))
	}
	if len(changes) == 0 {
		return nil
	}

	changesJSON, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}

	return s.Log(ctx, AuditEntry{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Changes:    changesJSON,
	})
}

// Log records an audit entry.
func (s *AuditService) Log(ctx context.Context, entry AuditEntry) error {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return err
	}
	entry.TenantID = tenantID

	if entry.UserID == nil {
		entry.UserID = id.Ptr(appctx.GetUserID(ctx))
	}
	if id.IsNil(entry.ID) {
		entry.ID = id.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	entry.CompressionAlgo = CompressionNone
	if len(entry.Changes) > s.compressThreshold {
		entry.ChangesCompressed = s.encoder.EncodeAll(entry.Changes, nil)
		entry.Changes = nil
		entry.CompressionAlgo = CompressionZstd
	}

	_, err = s.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO sys_audit (
			id, tenant_id, entity_type, entity_id, action, user_id,
			changes, changes_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		entry.ID, entry.TenantID, entry.EntityType, entry.EntityID, entry.Action, entry.UserID,
		entry.Changes, entry.ChangesCompressed, entry.CompressionAlgo, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// GetEntityHistory retrieves audit history for an entity, newest first.
func (s *AuditService) GetEntityHistory(ctx context.Context, entityType string, entityID id.ID, limit int) ([]AuditEntry, error) {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return nil, err
	}

	var entries []AuditEntry
	err = pgxscan.Select(ctx, s.txManager.GetQuerier(ctx), &entries, `
		SELECT id, tenant_id, entity_type, entity_id, action, user_id,
		       changes, changes_compressed, compression_algo, created_at
		FROM sys_audit
		WHERE tenant_id = $1 AND entity_type = $2 AND entity_id = $3
		ORDER BY created_at DESC
		LIMIT $4
	`, tenantID, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	for i := range entries {
		if err := s.decompress(&entries[i]); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// History implements inventory.AuditLogger.
func (s *AuditService) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]inventory.AuditChange, error) {
	entries, err := s.GetEntityHistory(ctx, entityType, entityID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]inventory.AuditChange, 0, len(entries))
	for _, e := range entries {
		var changes map[string]any
		if len(e.Changes) > 0 {
			if err := json.Unmarshal(e.Changes, &changes); err != nil {
				return nil, fmt.Errorf("decode audit %s: %w", e.ID, err)
			}
		}
		out = append(out, inventory.AuditChange{Action: e.Action, UserID: e.UserID, Changes: changes, At: e.CreatedAt})
	}
	return out, nil
}

func (s *AuditService) decompress(e *AuditEntry) error {
	if e.CompressionAlgo != CompressionZstd || len(e.ChangesCompressed) == 0 {
		return nil
	}
	decompressed, err := s.decoder.DecodeAll(e.ChangesCompressed, nil)
	if err != nil {
		return fmt.Errorf("decompress changes: %w", err)
	}
	e.Changes = decompressed
	e.ChangesCompressed = nil
	return nil
}

// Diff calculates the difference between old and new entity states.
func Diff(oldState, newState map[string]any) map[string]any {
	changes := make(map[string]any)

	for key, newVal := range newState {
		oldVal, exists := oldState[key]
		if !exists {
			changes[key] = map[string]any{"old": nil, "new": newVal}
		} else if !equal(oldVal, newVal) {
			changes[key] = map[string]any{"old": oldVal, "new": newVal}
		}
	}

	for key, oldVal := range oldState {
		if _, exists := newState[key]; !exists {
			changes[key] = map[string]any{"old": oldVal, "new": nil}
		}
	}

	return changes
}

// equal compares two column values. Decimals compare by their canonical string
// so 10 and 10.00 are not reported as a change.
func equal(a, b any) bool {
	if as, ok := a.(fmt.Stringer); ok {
		if bs, ok := b.(fmt.Stringer); ok {
			return as.String() == bs.String()
		}
	}
	return reflect.DeepEqual(a, b)
}

var _ inventory.AuditLogger = (*AuditService)(nil)
