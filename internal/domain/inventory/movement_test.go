package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
	"oficina/internal/core/types"
)

func header() MovementHeader {
	return MovementHeader{
		TenantID:  id.New(),
		PartID:    id.New(),
		UserID:    id.New(),
		UnitValue: types.MustMoney("50.00"),
	}
}

func orderHeader() MovementHeader {
	h := header()
	orderID := id.New()
	h.ServiceOrderID = &orderID
	return h
}

func TestMovementKind_Sign(t *testing.T) {
	assert.Equal(t, 1, KindEntry.Sign())
	assert.Equal(t, 1, KindReversal.Sign())
	assert.Equal(t, -1, KindExit.Sign())
	assert.Equal(t, -1, KindOrderDeduction.Sign())
	assert.Equal(t, 0, KindAdjustment.Sign())
	assert.False(t, MovementKind("TRANSFER").Valid())
}

func TestConstructors_SnapshotMatchesKind(t *testing.T) {
	tests := []struct {
		name       string
		build      func() (Movement, error)
		wantKind   MovementKind
		wantBefore int
		wantAfter  int
		wantQty    int
	}{
		{"entry", func() (Movement, error) { return NewEntry(header(), 10, 5) }, KindEntry, 10, 15, 5},
		{"exit", func() (Movement, error) { return NewExit(header(), 10, 4) }, KindExit, 10, 6, 4},
		{"exit to zero", func() (Movement, error) { return NewExit(header(), 4, 4) }, KindExit, 4, 0, 4},
		{"order deduction", func() (Movement, error) { return NewOrderDeduction(orderHeader(), 3, 2) }, KindOrderDeduction, 3, 1, 2},
		{"reversal", func() (Movement, error) { return NewReversal(orderHeader(), 1, 2) }, KindReversal, 1, 3, 2},
		{"adjustment down", func() (Movement, error) {
			h := header()
			h.Reason = "inventory count"
			return NewAdjustment(h, 6, 3)
		}, KindAdjustment, 6, 3, 3},
		{"adjustment up", func() (Movement, error) {
			h := header()
			h.Reason = "found in back room"
			return NewAdjustment(h, 2, 9)
		}, KindAdjustment, 2, 9, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := tt.build()
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, m.Kind())
			assert.Equal(t, tt.wantBefore, m.QuantityBefore())
			assert.Equal(t, tt.wantAfter, m.QuantityAfter())
			assert.Equal(t, tt.wantQty, m.Quantity())
			assert.NoError(t, m.Validate())
			if m.Kind() != KindAdjustment {
				assert.Equal(t, m.Kind().Sign()*m.Quantity(), m.SignedImpact())
			}
		})
	}
}

func TestNewExit_InsufficientStock(t *testing.T) {
	_, err := NewExit(header(), 3, 5)
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 5, appErr.Details["requested"])
	assert.Equal(t, 3, appErr.Details["available"])
}

func TestConstructors_RejectInvalidInput(t *testing.T) {
	t.Run("zero quantity", func(t *testing.T) {
		_, err := NewEntry(header(), 1, 0)
		assert.True(t, apperror.IsInvalidMovement(err))
	})
	t.Run("negative quantity", func(t *testing.T) {
		_, err := NewExit(header(), 1, -1)
		assert.True(t, apperror.IsInvalidMovement(err))
	})
	t.Run("negative unit value", func(t *testing.T) {
		h := header()
		h.UnitValue = types.MustMoney("-0.01")
		_, err := NewEntry(h, 1, 1)
		assert.True(t, apperror.IsInvalidMovement(err))
	})
	t.Run("no-op adjustment", func(t *testing.T) {
		h := header()
		h.Reason = "inventory count"
		_, err := NewAdjustment(h, 4, 4)
		assert.True(t, apperror.IsInvalidMovement(err))
	})
	t.Run("negative adjustment", func(t *testing.T) {
		h := header()
		h.Reason = "inventory count"
		_, err := NewAdjustment(h, 4, -1)
		assert.True(t, apperror.IsInvalidMovement(err))
	})
	t.Run("missing user", func(t *testing.T) {
		h := header()
		h.UserID = id.Nil()
		_, err := NewEntry(h, 1, 1)
		assert.True(t, apperror.IsInvalidMovement(err))
	})
	t.Run("deduction without order", func(t *testing.T) {
		_, err := NewOrderDeduction(header(), 5, 1)
		assert.True(t, apperror.IsInvalidMovement(err))
	})
	t.Run("reversal without order", func(t *testing.T) {
		_, err := NewReversal(header(), 5, 1)
		assert.True(t, apperror.IsInvalidMovement(err))
	})
}

func TestReasonRules(t *testing.T) {
	tests := []struct {
		name    string
		kind    MovementKind
		reason  string
		wantErr bool
	}{
		{"adjustment without reason", KindAdjustment, "", true},
		{"adjustment blank reason", KindAdjustment, "   ", true},
		{"adjustment short reason", KindAdjustment, "ok", true},
		{"adjustment valid reason", KindAdjustment, "inventory count", false},
		{"adjustment three runes", KindAdjustment, "ção", false},
		{"exit without reason", KindExit, "", false},
		{"exit short reason", KindExit, "no", true},
		{"entry valid reason", KindEntry, "supplier delivery", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := header()
			h.Reason = tt.reason
			var err error
			switch tt.kind {
			case KindAdjustment:
				_, err = NewAdjustment(h, 5, 2)
			case KindExit:
				_, err = NewExit(h, 5, 2)
			default:
				_, err = NewEntry(h, 5, 2)
			}
			if tt.wantErr {
				assert.True(t, apperror.IsInvalidMovement(err), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTotalValue_MatchesStoredUnitValue(t *testing.T) {
	h := header()
	h.UnitValue = types.MustMoney("0.125")
	_, err := NewEntry(h, 0, 4)
	assert.True(t, apperror.IsInvalidMovement(err), "unit values keep two decimal places")

	h.UnitValue = types.MustMoney("33.33")
	m, err := NewEntry(h, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, "99.99", m.TotalValue().StringFixed(2))

	h.UnitValue = types.MustMoney("50.00")
	m, err = NewExit(h, 10, 4)
	require.NoError(t, err)
	assert.True(t, types.MustMoney("200.00").Equal(m.TotalValue()))
}

func TestRestoreMovement_RejectsBrokenSnapshot(t *testing.T) {
	m, err := NewExit(header(), 10, 4)
	require.NoError(t, err)

	rec := m.Record()
	restored, err := RestoreMovement(rec)
	require.NoError(t, err)
	assert.Equal(t, m.ID(), restored.ID())
	assert.Equal(t, 6, restored.QuantityAfter())

	rec.QuantityAfter = 7
	_, err = RestoreMovement(rec)
	assert.True(t, apperror.IsInvalidMovement(err))

	rec = m.Record()
	rec.Kind = KindEntry
	_, err = RestoreMovement(rec)
	assert.True(t, apperror.IsInvalidMovement(err))
}

func TestZeroMovement_IsInvalid(t *testing.T) {
	assert.Error(t, Movement{}.Validate())
}
