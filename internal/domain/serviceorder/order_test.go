package serviceorder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
	"oficina/internal/core/types"
)

func money(s string) types.Money { return types.MustMoney(s) }

func newOrder(t *testing.T, lines ...LineInput) *ServiceOrder {
	t.Helper()
	o, created, err := New(id.New(), 1, NewInput{
		VehicleID:          id.New(),
		ProblemDescription: "engine knocking",
		LaborValue:         money("150.00"),
		Lines:              lines,
	})
	require.NoError(t, err)
	assert.Equal(t, Transition{To: StatusQuote}, created)
	return o
}

func stockLine(qty int, unit string) LineInput {
	partID := id.New()
	return LineInput{
		Kind: LinePart, Origin: OriginStock, PartID: &partID,
		Description: "brake pad", Quantity: qty, UnitValue: money(unit),
	}
}

func TestTransitionTable_AllPairs(t *testing.T) {
	allowed := map[Status]map[Status]bool{
		StatusQuote:        {StatusApproved: true, StatusCancelled: true},
		StatusApproved:     {StatusInProgress: true, StatusCancelled: true},
		StatusInProgress:   {StatusAwaitingPart: true, StatusCompleted: true, StatusCancelled: true},
		StatusAwaitingPart: {StatusInProgress: true, StatusCancelled: true},
		StatusCompleted:    {StatusDelivered: true, StatusCancelled: true},
		StatusDelivered:    {},
		StatusCancelled:    {},
	}

	for _, from := range AllStatuses() {
		for _, to := range AllStatuses() {
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				o := &ServiceOrder{Status: from}
				tr, err := o.TransitionTo(to, "")

				switch {
				case from == to:
					require.NoError(t, err)
					assert.Nil(t, tr)
					assert.False(t, o.Dirty())
				case allowed[from][to]:
					require.NoError(t, err)
					require.NotNil(t, tr)
					assert.Equal(t, from, tr.From)
					assert.Equal(t, to, tr.To)
					assert.Equal(t, to, o.Status)
				default:
					require.Error(t, err)
					assert.True(t, apperror.IsInvalidStateTransition(err))
					appErr, _ := apperror.AsAppError(err)
					assert.Equal(t, string(from), appErr.Details["current"])
					assert.Equal(t, string(to), appErr.Details["requested"])
					assert.Equal(t, from, o.Status, "status must not change")
				}
			})
		}
	}
}

func TestStatus_Terminal(t *testing.T) {
	for _, s := range AllStatuses() {
		assert.Equal(t, s == StatusDelivered || s == StatusCancelled, s.IsTerminal(), s)
		if s.IsTerminal() {
			assert.Empty(t, s.AllowedTargets())
		}
	}
}

func TestApprove(t *testing.T) {
	o := newOrder(t)

	ts, err := o.Approve(false)
	require.NoError(t, err)
	assert.Empty(t, ts)
	assert.Equal(t, StatusQuote, o.Status)
	assert.False(t, o.ClientApproved)

	ts, err = o.Approve(true)
	require.NoError(t, err)
	require.Len(t, ts, 1)
	assert.Equal(t, StatusApproved, o.Status)
	assert.True(t, o.ClientApproved)

	ts, err = o.Approve(true)
	require.NoError(t, err)
	assert.Empty(t, ts, "approving an approved order is a no-op")

	_, err = o.Approve(false)
	assert.True(t, apperror.IsInvalidStateTransition(err))
}

func TestStart_RequiresClientApproval(t *testing.T) {
	o := &ServiceOrder{Status: StatusApproved}
	_, err := o.Start()
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeBusinessRule))
	assert.Equal(t, StatusApproved, o.Status)

	o.ClientApproved = true
	ts, err := o.Start()
	require.NoError(t, err)
	require.Len(t, ts, 1)
	assert.Equal(t, StatusInProgress, o.Status)

	paused := &ServiceOrder{Status: StatusAwaitingPart, ClientApproved: true}
	_, err = paused.Start()
	assert.True(t, apperror.IsInvalidStateTransition(err), "resume is the way back from AWAITING_PART")
}

func TestAwaitPartAndResume(t *testing.T) {
	o := &ServiceOrder{Status: StatusInProgress}

	ts, err := o.AwaitPart("waiting for alternator")
	require.NoError(t, err)
	require.Len(t, ts, 1)
	assert.Equal(t, "waiting for alternator", ts[0].Note)
	assert.Equal(t, StatusAwaitingPart, o.Status)

	ts, err = o.Resume()
	require.NoError(t, err)
	require.Len(t, ts, 1)
	assert.Equal(t, StatusInProgress, o.Status)

	approved := &ServiceOrder{Status: StatusApproved}
	_, err = approved.Resume()
	assert.True(t, apperror.IsInvalidStateTransition(err))
}

func TestComplete(t *testing.T) {
	o := &ServiceOrder{Status: StatusInProgress}
	ts, err := o.Complete()
	require.NoError(t, err)
	require.Len(t, ts, 1)
	assert.Equal(t, StatusCompleted, o.Status)
	require.NotNil(t, o.FinishedAt)

	paused := &ServiceOrder{Status: StatusAwaitingPart}
	ts, err = paused.Complete()
	require.NoError(t, err)
	require.Len(t, ts, 2)
	assert.Equal(t, Transition{From: StatusAwaitingPart, To: StatusInProgress, Note: "resumed on completion"}, ts[0])
	assert.Equal(t, StatusInProgress, ts[1].From)
	assert.Equal(t, StatusCompleted, ts[1].To)

	quote := &ServiceOrder{Status: StatusQuote}
	_, err = quote.Complete()
	assert.True(t, apperror.IsInvalidStateTransition(err))
	assert.Nil(t, quote.FinishedAt)
}

func TestDeliverAndCancel(t *testing.T) {
	o := &ServiceOrder{Status: StatusCompleted}
	_, err := o.Deliver()
	require.NoError(t, err)
	require.NotNil(t, o.DeliveredAt)

	_, err = o.Cancel("client gave up")
	assert.True(t, apperror.IsInvalidStateTransition(err), "delivered is terminal")

	q := &ServiceOrder{Status: StatusQuote, Notes: "first visit"}
	ts, err := q.Cancel("  client gave up  ")
	require.NoError(t, err)
	require.Len(t, ts, 1)
	assert.Equal(t, "client gave up", ts[0].Note)
	assert.Equal(t, "first visit\nCancelled: client gave up", q.Notes)

	ts, err = q.Cancel("again")
	require.NoError(t, err)
	assert.Empty(t, ts)
}

func TestRecalculate(t *testing.T) {
	o := newOrder(t,
		stockLine(2, "45.50"),
		LineInput{Kind: LinePart, Origin: OriginAdHoc, Description: "hose clamp", Quantity: 3, UnitValue: money("3.33"), Discount: money("0.99")},
		LineInput{Kind: LineLabor, Description: "diagnosis", Quantity: 1, UnitValue: money("80.00")},
	)
	// parts: 91.00 + (9.99 - 0.99) = 100.00; total = 150.00 + 100.00
	assert.Equal(t, "100.00", o.PartsValue.StringFixed(2))
	assert.Equal(t, "250.00", o.TotalValue.StringFixed(2))
	assert.Equal(t, "250.00", o.FinalValue.StringFixed(2))

	require.NoError(t, o.SetDiscount(money("10"), money("5.00")))
	assert.Equal(t, "30.00", o.DiscountTotal.StringFixed(2))
	assert.Equal(t, "220.00", o.FinalValue.StringFixed(2))

	require.NoError(t, o.SetDiscount(money("100"), money("50.00")))
	assert.True(t, o.FinalValue.IsZero(), "final value is floored at zero")
}

func TestRecalculate_Idempotent(t *testing.T) {
	o := newOrder(t, stockLine(3, "19.99"), stockLine(1, "0.05"))
	require.NoError(t, o.SetDiscount(money("7.5"), money("1.11")))

	o.Recalculate()
	first := *o
	o.Recalculate()

	assert.True(t, first.PartsValue.Equal(o.PartsValue))
	assert.True(t, first.TotalValue.Equal(o.TotalValue))
	assert.True(t, first.DiscountTotal.Equal(o.DiscountTotal))
	assert.True(t, first.FinalValue.Equal(o.FinalValue))
}

func TestRecalculate_DerivableFromStoredColumns(t *testing.T) {
	o := newOrder(t, stockLine(4, "0.12"), stockLine(3, "19.99"))
	require.NoError(t, o.SetDiscount(money("7.5"), money("1.11")))
	want := o.FinalValue

	// NUMERIC(14,2) columns keep two places; reloading must not shift totals.
	for i := range o.LineItems {
		o.LineItems[i].UnitValue = types.RoundMoney(o.LineItems[i].UnitValue)
		o.LineItems[i].Discount = types.RoundMoney(o.LineItems[i].Discount)
	}
	o.LaborValue = types.RoundMoney(o.LaborValue)
	o.Recalculate()
	assert.True(t, want.Equal(o.FinalValue), "%s != %s", want, o.FinalValue)

	_, _, err := New(id.New(), 2, NewInput{
		VehicleID:          id.New(),
		ProblemDescription: "noise",
		Lines:              []LineInput{stockLine(4, "0.125")},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestRecalculate_RoundsPercentageHalfUp(t *testing.T) {
	o := newOrder(t)
	require.NoError(t, o.SetLaborValue(money("33.33")))
	require.NoError(t, o.SetDiscount(money("15"), types.Zero()))
	// 33.33 * 0.15 = 4.9995
	assert.Equal(t, "5.00", o.DiscountTotal.StringFixed(2))
	assert.Equal(t, "28.33", o.FinalValue.StringFixed(2))
}

func TestLineItem_Validation(t *testing.T) {
	partID := id.New()
	tests := []struct {
		name string
		in   LineInput
	}{
		{"stock without part", LineInput{Kind: LinePart, Origin: OriginStock, Description: "x", Quantity: 1}},
		{"ad hoc with part", LineInput{Kind: LinePart, Origin: OriginAdHoc, PartID: &partID, Description: "x", Quantity: 1}},
		{"unknown origin", LineInput{Kind: LinePart, Origin: "BORROWED", Description: "x", Quantity: 1}},
		{"unknown kind", LineInput{Kind: "FEE", Description: "x", Quantity: 1}},
		{"zero quantity", LineInput{Kind: LineLabor, Description: "x", Quantity: 0}},
		{"negative unit", LineInput{Kind: LineLabor, Description: "x", Quantity: 1, UnitValue: money("-1")}},
		{"blank description", LineInput{Kind: LineLabor, Description: "  ", Quantity: 1}},
		{"discount above subtotal", LineInput{Kind: LineLabor, Description: "x", Quantity: 2, UnitValue: money("5"), Discount: money("10.01")}},
		{"unit value below cents", LineInput{Kind: LineLabor, Description: "x", Quantity: 4, UnitValue: money("0.125")}},
		{"discount below cents", LineInput{Kind: LineLabor, Description: "x", Quantity: 1, UnitValue: money("5"), Discount: money("0.005")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLineItem(tt.in)
			assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "got %v", err)
		})
	}

	item, err := NewLineItem(LineInput{Kind: LinePart, Origin: OriginClientSupplied, Description: "own tyre", Quantity: 4})
	require.NoError(t, err)
	assert.False(t, item.AffectsStock())
	assert.True(t, item.Total.IsZero())
}

func TestEditing_LockedAfterCompletion(t *testing.T) {
	o := newOrder(t, stockLine(1, "10.00"))
	itemID := o.LineItems[0].ID

	_, err := o.UpdateLineItem(itemID, stockLine(2, "10.00"))
	require.NoError(t, err)
	assert.Equal(t, itemID, o.LineItems[0].ID)
	assert.Equal(t, "20.00", o.PartsValue.StringFixed(2))

	_, err = o.UpdateLineItem(id.New(), stockLine(1, "1"))
	assert.True(t, apperror.IsNotFound(err))

	for _, s := range []Status{StatusCompleted, StatusDelivered, StatusCancelled} {
		o.Status = s
		_, err = o.AddLineItem(stockLine(1, "1.00"))
		assert.True(t, apperror.HasCode(err, apperror.CodeOrderLocked), s)
		assert.True(t, apperror.HasCode(o.RemoveLineItem(itemID), apperror.CodeOrderLocked), s)
		assert.True(t, apperror.HasCode(o.SetLaborValue(money("1")), apperror.CodeOrderLocked), s)
		assert.True(t, apperror.HasCode(o.SetDiscount(money("1"), money("1")), apperror.CodeOrderLocked), s)
	}
	assert.Len(t, o.LineItems, 1)
}

func TestValidate(t *testing.T) {
	o := newOrder(t)
	require.NoError(t, o.Validate(context.Background()))

	assert.Error(t, o.SetDiscount(money("101"), types.Zero()))
	assert.Error(t, o.SetDiscount(types.Zero(), money("-1")))
	assert.Error(t, o.SetLaborValue(money("-0.01")))
	assert.True(t, apperror.HasCode(o.SetLaborValue(money("10.005")), apperror.CodeValidation))
	assert.True(t, apperror.HasCode(o.SetDiscount(money("12.345"), types.Zero()), apperror.CodeValidation))
	assert.True(t, apperror.HasCode(o.SetDiscount(types.Zero(), money("0.001")), apperror.CodeValidation))

	_, _, err := New(id.New(), 2, NewInput{VehicleID: id.New()})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, _, err = New(id.New(), 3, NewInput{ProblemDescription: "noise"})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestStockLines(t *testing.T) {
	o := newOrder(t,
		stockLine(1, "1"),
		LineInput{Kind: LinePart, Origin: OriginAdHoc, Description: "bought outside", Quantity: 1},
		LineInput{Kind: LineLabor, Description: "labor", Quantity: 1},
		stockLine(2, "1"),
	)
	lines := o.StockLines()
	require.Len(t, lines, 2)
	assert.Equal(t, 1, lines[0].Quantity)
	assert.Equal(t, 2, lines[1].Quantity)
}
