package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
	"oficina/internal/core/types"
	"oficina/internal/domain/inventory"
)

func TestCatalog_CreatePartBooksOpeningStock(t *testing.T) {
	f := newFixture(t)
	p := f.seedPart(t, "  SPK-4  ", 7, 2)

	assert.Equal(t, "SPK-4", p.Code)
	assert.Equal(t, 7, p.Quantity)
	assert.True(t, p.Active)

	ledger, err := f.engine.MovementsByPart(f.ctx, p.ID, inventory.DefaultMovementFilter())
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.Equal(t, inventory.KindEntry, ledger[0].Kind())
	assert.Equal(t, 0, ledger[0].QuantityBefore())
	assert.Equal(t, 7, ledger[0].QuantityAfter())

	records := f.audit.Records(p.ID)
	require.Len(t, records, 1)
	assert.Equal(t, "create", records[0].Action)
	assert.Equal(t, f.user, records[0].UserID)
}

func TestCatalog_CreatePartValidation(t *testing.T) {
	f := newFixture(t)
	f.seedPart(t, "DUP-1", 0, 0)

	_, err := f.catalog.CreatePart(f.ctx, inventory.CreatePartInput{Code: "DUP-1", Description: "again", UserID: f.user})
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))

	_, err = f.catalog.CreatePart(f.ctx, inventory.CreatePartInput{Code: "", Description: "no code", UserID: f.user})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = f.catalog.CreatePart(f.ctx, inventory.CreatePartInput{Code: "NEG", Description: "neg", InitialQuantity: -1, UserID: f.user})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = f.catalog.CreatePart(f.ctx, inventory.CreatePartInput{
		Code: "CENTS", Description: "sub-cent cost", UnitCost: types.MustMoney("1.005"), UserID: f.user,
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = f.catalog.CreatePart(f.ctx, inventory.CreatePartInput{
		Code: "NOUSER", Description: "opening stock needs a user", InitialQuantity: 3,
	})
	assert.True(t, apperror.IsInvalidMovement(err))
	_, err = f.parts.GetByCode(f.ctx, "NOUSER")
	assert.True(t, apperror.IsNotFound(err), "part creation rolls back with its opening entry")
}

func TestCatalog_UpdateNeverTouchesQuantity(t *testing.T) {
	f := newFixture(t)
	p := f.seedPart(t, "AMR-1", 6, 1)

	desc := "Shock absorber, front"
	price := types.MustMoney("310.00")
	updated, err := f.catalog.UpdatePart(f.ctx, p.ID, p.Revision, inventory.PartChanges{
		Description: &desc,
		SalePrice:   &price,
	})
	require.NoError(t, err)
	assert.Equal(t, desc, updated.Description)
	assert.True(t, price.Equal(updated.SalePrice))
	assert.Equal(t, p.Revision+1, updated.Revision)
	assert.Equal(t, 6, updated.Quantity)

	_, err = f.engine.RecordExit(f.ctx, inventory.ExitInput{PartID: p.ID, Quantity: 2, UserID: f.user})
	require.NoError(t, err)

	current, err := f.catalog.GetPart(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Revision, current.Revision, "stock movements do not bump the revision")
	assert.Equal(t, 4, current.Quantity)
}

func TestCatalog_StaleRevisionIsRejected(t *testing.T) {
	f := newFixture(t)
	p := f.seedPart(t, "REVN-1", 1, 0)

	minimum := 3
	_, err := f.catalog.UpdatePart(f.ctx, p.ID, p.Revision, inventory.PartChanges{MinimumQuantity: &minimum})
	require.NoError(t, err)

	_, err = f.catalog.UpdatePart(f.ctx, p.ID, p.Revision, inventory.PartChanges{MinimumQuantity: &minimum})
	require.Error(t, err)
	assert.True(t, apperror.IsConcurrentModification(err))
	assert.True(t, apperror.IsRetryable(err))
}

func TestCatalog_DeactivateAndLowStock(t *testing.T) {
	f := newFixture(t)
	low := f.seedPart(t, "LOW-1", 1, 2)
	f.seedPart(t, "OK-1", 9, 2)
	gone := f.seedPart(t, "GONE-1", 0, 5)

	_, err := f.catalog.DeactivatePart(f.ctx, gone.ID, gone.Revision)
	require.NoError(t, err)

	_, err = f.catalog.DeactivatePart(f.ctx, gone.ID, gone.Revision+1)
	assert.True(t, apperror.HasCode(err, apperror.CodePartInactive))

	parts, err := f.catalog.ListLowStock(f.ctx, 0)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, low.ID, parts[0].ID)
}

func TestCatalog_PartAuditNewestFirst(t *testing.T) {
	f := newFixture(t)
	p := f.seedPart(t, "BAT-60", 2, 1)

	price := types.MustMoney("499.90")
	_, err := f.catalog.UpdatePart(f.ctx, p.ID, p.Revision, inventory.PartChanges{SalePrice: &price})
	require.NoError(t, err)

	trail, err := f.catalog.PartAudit(f.ctx, p.ID, 0)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, "update", trail[0].Action)
	assert.Contains(t, trail[0].Changes, "sale_price")
	assert.NotContains(t, trail[0].Changes, "description")
	assert.Equal(t, "create", trail[1].Action)
	assert.Contains(t, trail[1].Changes, "code")

	_, err = f.catalog.PartAudit(f.ctx, id.New(), 10)
	assert.True(t, apperror.IsNotFound(err))
}
