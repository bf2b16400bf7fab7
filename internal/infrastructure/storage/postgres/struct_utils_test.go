package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"oficina/internal/core/entity"
	"oficina/internal/core/id"
	"oficina/internal/core/types"
)

type auditedPart struct {
	entity.Base
	Code      string      `db:"code"`
	SalePrice types.Money `db:"sale_price"`
	Internal  string      `db:"-"`
	NoTag     string
}

func TestExtractDBColumns_IncludesEmbedded(t *testing.T) {
	cols := ExtractDBColumns[auditedPart]()

	for _, expected := range []string{"id", "tenant_id", "revision", "created_at", "updated_at", "code", "sale_price"} {
		assert.Contains(t, cols, expected)
	}
	assert.NotContains(t, cols, "-")
	assert.Len(t, cols, 7)
	assert.Equal(t, "id", cols[0], "embedded columns keep their position")
	assert.Equal(t, []string{"code", "sale_price"}, cols[5:])
}

func TestStructToMap_AndDiff(t *testing.T) {
	base := entity.NewBase(id.New())
	before := auditedPart{Base: base, Code: "FLT-01", SalePrice: types.MustMoney("10")}
	after := before
	after.SalePrice = types.MustMoney("10.00")
	after.Code = "FLT-02"

	m := StructToMap(before)
	assert.Equal(t, base.ID, m["id"])
	assert.Equal(t, "FLT-01", m["code"])

	assert.Equal(t, m, StructToMap(&before))
	assert.Nil(t, StructToMap((*auditedPart)(nil)))
	assert.Nil(t, StructToMap("code"))

	changes := Diff(StructToMap(before), StructToMap(after))
	assert.Len(t, changes, 1)
	assert.Equal(t, map[string]any{"old": "FLT-01", "new": "FLT-02"}, changes["code"])
}
