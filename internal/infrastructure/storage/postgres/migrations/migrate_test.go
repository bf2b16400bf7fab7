package migrations

import (
	"io/fs"
	"path"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oficina/internal/domain/inventory"
	"oficina/internal/domain/serviceorder"
	"oficina/internal/infrastructure/storage/postgres"
)

func TestValidate(t *testing.T) {
	require.NoError(t, Validate())
}

// tableColumns parses the column names of a CREATE TABLE block.
func tableColumns(t *testing.T, table string) []string {
	t.Helper()
	entries, err := fs.ReadDir(files, Dir)
	require.NoError(t, err)

	start := regexp.MustCompile(`(?s)CREATE TABLE ` + table + ` \((.*?)\n\);`)
	for _, e := range entries {
		b, err := fs.ReadFile(files, path.Join(Dir, e.Name()))
		require.NoError(t, err)
		m := start.FindStringSubmatch(string(b))
		if m == nil {
			continue
		}
		var cols []string
		for _, line := range strings.Split(m[1], "\n") {
			fields := strings.Fields(line)
			if len(fields) < 2 || fields[0] == "UNIQUE" || fields[0] == "PRIMARY" {
				continue
			}
			cols = append(cols, fields[0])
		}
		return cols
	}
	t.Fatalf("table %s not found in migrations", table)
	return nil
}

func TestSchemaMatchesRepositoryColumns(t *testing.T) {
	tests := []struct {
		table   string
		columns []string
	}{
		{"parts", postgres.ExtractDBColumns[inventory.Part]()},
		{"stock_movements", postgres.ExtractDBColumns[inventory.MovementRecord]()},
		{"service_orders", postgres.ExtractDBColumns[serviceorder.ServiceOrder]()},
		{"service_order_items", postgres.ExtractDBColumns[serviceorder.LineItem]()},
		{"service_order_status_history", postgres.ExtractDBColumns[serviceorder.HistoryEntry]()},
		{"sys_outbox", postgres.ExtractDBColumns[postgres.OutboxMessage]()},
		{"sys_audit", postgres.ExtractDBColumns[postgres.AuditEntry]()},
	}
	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			schema := tableColumns(t, tt.table)
			for _, col := range tt.columns {
				assert.Contains(t, schema, col)
			}
		})
	}
}

func TestLedgerIsAppendOnly(t *testing.T) {
	b, err := fs.ReadFile(files, path.Join(Dir, "20260101000002_inventory.sql"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "BEFORE UPDATE OR DELETE ON stock_movements")
	assert.Contains(t, string(b), "CHECK (quantity >= 0)")
}
