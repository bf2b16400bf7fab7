package serviceorder_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oficina/internal/core/apperror"
	appctx "oficina/internal/core/context"
	"oficina/internal/core/events"
	"oficina/internal/core/id"
	"oficina/internal/core/tenant"
	"oficina/internal/core/types"
	"oficina/internal/domain/inventory"
	"oficina/internal/domain/reconciliation"
	"oficina/internal/domain/serviceorder"
	"oficina/internal/infrastructure/storage/memory"
	"oficina/pkg/metrics"
)

type fixture struct {
	ctx     context.Context
	user    id.ID
	outbox  *memory.Outbox
	engine  *inventory.Service
	catalog *inventory.Catalog
	orders  *serviceorder.Service
	reg     *prometheus.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	txm := memory.NewTxManager(store)
	f := &fixture{
		user:   id.New(),
		outbox: memory.NewOutbox(store),
		reg:    prometheus.NewRegistry(),
	}
	f.ctx = tenant.WithID(
		appctx.WithUser(context.Background(), &appctx.UserContext{UserID: f.user, Name: "Joana"}),
		id.New(),
	)

	invMetrics := metrics.NewInventory(f.reg)
	partRepo := memory.NewPartRepo(store)
	f.engine = inventory.NewService(partRepo, memory.NewMovementRepo(store), txm, f.outbox, invMetrics)
	f.catalog = inventory.NewCatalog(partRepo, f.engine, txm, memory.NewAuditLog(store))
	f.orders = serviceorder.NewService(
		memory.NewOrderRepo(store),
		memory.NewHistoryRepo(store),
		txm,
		memory.NewNumerator(store),
		reconciliation.NewService(f.engine, txm, invMetrics),
		f.outbox,
		metrics.NewOrders(f.reg),
	)
	return f
}

func (f *fixture) part(t *testing.T, code string, qty int) *inventory.Part {
	t.Helper()
	p, err := f.catalog.CreatePart(f.ctx, inventory.CreatePartInput{
		Code: code, Description: code, InitialQuantity: qty, UserID: f.user,
		UnitCost: types.MustMoney("20.00"), SalePrice: types.MustMoney("35.00"),
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) qty(t *testing.T, partID id.ID) int {
	t.Helper()
	q, err := f.engine.CurrentQuantity(f.ctx, partID)
	require.NoError(t, err)
	return q
}

func stockLine(p *inventory.Part, qty int) serviceorder.LineInput {
	partID := p.ID
	return serviceorder.LineInput{
		Kind: serviceorder.LinePart, Origin: serviceorder.OriginStock, PartID: &partID,
		Description: p.Code, Quantity: qty, UnitValue: p.SalePrice,
	}
}

func (f *fixture) create(t *testing.T, lines ...serviceorder.LineInput) *serviceorder.ServiceOrder {
	t.Helper()
	o, err := f.orders.Create(f.ctx, serviceorder.NewInput{
		VehicleID:          id.New(),
		ProblemDescription: "brakes squeal",
		LaborValue:         types.MustMoney("120.00"),
		Lines:              lines,
	})
	require.NoError(t, err)
	return o
}

func (f *fixture) inProgress(t *testing.T, lines ...serviceorder.LineInput) *serviceorder.ServiceOrder {
	t.Helper()
	o := f.create(t, lines...)
	_, err := f.orders.Approve(f.ctx, o.ID, true)
	require.NoError(t, err)
	o, err = f.orders.Start(f.ctx, o.ID)
	require.NoError(t, err)
	return o
}

func statuses(entries []serviceorder.HistoryEntry) []serviceorder.Status {
	out := make([]serviceorder.Status, len(entries))
	for i, e := range entries {
		out[i] = e.NewStatus
	}
	return out
}

func TestService_CreateAssignsIncreasingNumbers(t *testing.T) {
	f := newFixture(t)
	first := f.create(t)
	second := f.create(t)

	assert.Equal(t, serviceorder.StatusQuote, first.Status)
	assert.Greater(t, second.Number, first.Number)

	history, err := f.orders.History(f.ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].PreviousStatus)
	assert.Equal(t, serviceorder.StatusQuote, history[0].NewStatus)
	assert.Equal(t, "Joana", history[0].UserName)
	assert.Equal(t, f.user, history[0].UserID)
}

func TestService_CreateRequiresUser(t *testing.T) {
	f := newFixture(t)
	ctx := tenant.WithID(context.Background(), id.New())
	_, err := f.orders.Create(ctx, serviceorder.NewInput{VehicleID: id.New(), ProblemDescription: "x"})
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
}

func TestService_FullLifecycleDeductsOnce(t *testing.T) {
	f := newFixture(t)
	p := f.part(t, "PAD-1", 5)
	o := f.inProgress(t, stockLine(p, 2))

	o, err := f.orders.AwaitPart(f.ctx, o.ID, "waiting for caliper")
	require.NoError(t, err)
	o, err = f.orders.Resume(f.ctx, o.ID)
	require.NoError(t, err)

	o, err = f.orders.Complete(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, serviceorder.StatusCompleted, o.Status)
	assert.NotNil(t, o.FinishedAt)
	assert.Equal(t, 3, f.qty(t, p.ID))

	again, err := f.orders.Complete(f.ctx, o.ID)
	require.NoError(t, err, "completing twice is a no-op")
	assert.Equal(t, o.Revision, again.Revision)
	assert.Equal(t, 3, f.qty(t, p.ID), "no second deduction")

	o, err = f.orders.Deliver(f.ctx, o.ID)
	require.NoError(t, err)
	assert.NotNil(t, o.DeliveredAt)

	history, err := f.orders.History(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, []serviceorder.Status{
		serviceorder.StatusQuote,
		serviceorder.StatusApproved,
		serviceorder.StatusInProgress,
		serviceorder.StatusAwaitingPart,
		serviceorder.StatusInProgress,
		serviceorder.StatusCompleted,
		serviceorder.StatusDelivered,
	}, statuses(history))
	assert.Equal(t, "waiting for caliper", history[3].Note)

	assert.Len(t, f.outbox.Events(events.TypeStatusChanged), len(history))
	assert.Equal(t, float64(1), counterValue(t, f.reg, "service_order_transitions_total",
		map[string]string{"from": "COMPLETED", "to": "DELIVERED"}))
	assert.Equal(t, float64(1), counterValue(t, f.reg, "stock_movements_total",
		map[string]string{"kind": "ORDER_DEDUCTION"}))
}

func TestService_CompleteFailsWhenStockIsShort(t *testing.T) {
	f := newFixture(t)
	p := f.part(t, "P", 1)
	o := f.inProgress(t, stockLine(p, 2))
	before, err := f.orders.History(f.ctx, o.ID)
	require.NoError(t, err)

	_, err = f.orders.Complete(f.ctx, o.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	current, err := f.orders.Get(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, serviceorder.StatusInProgress, current.Status)
	assert.Nil(t, current.FinishedAt)
	assert.Equal(t, o.Revision, current.Revision)
	assert.Equal(t, 1, f.qty(t, p.ID))

	mvs, err := f.engine.MovementsByOrder(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Empty(t, mvs)

	after, err := f.orders.History(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, after, len(before), "failed completion writes no history")
}

func TestService_CompleteFromAwaitingPartWritesTwoEntries(t *testing.T) {
	f := newFixture(t)
	p := f.part(t, "BELT", 3)
	o := f.inProgress(t, stockLine(p, 1))

	_, err := f.orders.AwaitPart(f.ctx, o.ID, "belt on order")
	require.NoError(t, err)
	_, err = f.orders.Complete(f.ctx, o.ID)
	require.NoError(t, err)

	history, err := f.orders.History(f.ctx, o.ID)
	require.NoError(t, err)
	n := len(history)
	require.GreaterOrEqual(t, n, 2)
	assert.Equal(t, serviceorder.StatusInProgress, history[n-2].NewStatus)
	assert.Equal(t, serviceorder.StatusCompleted, history[n-1].NewStatus)
	require.NotNil(t, history[n-1].PreviousStatus)
	assert.Equal(t, serviceorder.StatusInProgress, *history[n-1].PreviousStatus)
	assert.Equal(t, 2, f.qty(t, p.ID))
}

func TestService_CancelCompletedOrderReversesStock(t *testing.T) {
	f := newFixture(t)
	a := f.part(t, "A", 4)
	b := f.part(t, "B", 6)
	o := f.inProgress(t, stockLine(a, 4), stockLine(b, 1))

	_, err := f.orders.Complete(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, f.qty(t, a.ID))
	assert.Equal(t, 5, f.qty(t, b.ID))

	o, err = f.orders.Cancel(f.ctx, o.ID, "warranty claim")
	require.NoError(t, err)
	assert.Equal(t, serviceorder.StatusCancelled, o.Status)
	assert.Contains(t, o.Notes, "warranty claim")
	assert.Equal(t, 4, f.qty(t, a.ID))
	assert.Equal(t, 6, f.qty(t, b.ID))

	mvs, err := f.engine.MovementsByOrder(f.ctx, o.ID)
	require.NoError(t, err)
	var deductions, reversals int
	for _, mv := range mvs {
		switch mv.Kind() {
		case inventory.KindOrderDeduction:
			deductions++
		case inventory.KindReversal:
			reversals++
		}
	}
	assert.Equal(t, 2, deductions)
	assert.Equal(t, 2, reversals)

	_, err = f.orders.Deliver(f.ctx, o.ID)
	assert.True(t, apperror.IsInvalidStateTransition(err))
}

func TestService_CancelBeforeCompletionTouchesNoStock(t *testing.T) {
	f := newFixture(t)
	p := f.part(t, "X", 2)
	o := f.inProgress(t, stockLine(p, 2))

	_, err := f.orders.Cancel(f.ctx, o.ID, "client withdrew")
	require.NoError(t, err)
	assert.Equal(t, 2, f.qty(t, p.ID))

	mvs, err := f.engine.MovementsByOrder(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Empty(t, mvs)
}

func TestService_ApproveRefusalKeepsQuote(t *testing.T) {
	f := newFixture(t)
	o := f.create(t)

	o, err := f.orders.Approve(f.ctx, o.ID, false)
	require.NoError(t, err)
	assert.Equal(t, serviceorder.StatusQuote, o.Status)
	assert.False(t, o.ClientApproved)

	history, err := f.orders.History(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1, "refusal is not a transition")

	_, err = f.orders.Start(f.ctx, o.ID)
	assert.True(t, apperror.IsInvalidStateTransition(err))
}

func TestService_EditsRecalculateAndRespectRevision(t *testing.T) {
	f := newFixture(t)
	p := f.part(t, "FILTER", 10)
	o := f.create(t)
	assert.Equal(t, "120.00", o.FinalValue.StringFixed(2))

	o, err := f.orders.AddLineItem(f.ctx, o.ID, o.Revision, stockLine(p, 2))
	require.NoError(t, err)
	assert.Equal(t, "70.00", o.PartsValue.StringFixed(2))
	assert.Equal(t, "190.00", o.TotalValue.StringFixed(2))

	stale := o.Revision - 1
	_, err = f.orders.SetDiscount(f.ctx, o.ID, stale, types.MustMoney("10"), types.Zero())
	assert.True(t, apperror.IsConcurrentModification(err))

	o, err = f.orders.SetDiscount(f.ctx, o.ID, o.Revision, types.MustMoney("10"), types.MustMoney("1.00"))
	require.NoError(t, err)
	assert.Equal(t, "20.00", o.DiscountTotal.StringFixed(2))
	assert.Equal(t, "170.00", o.FinalValue.StringFixed(2))

	o, err = f.orders.RemoveLineItem(f.ctx, o.ID, 0, o.LineItems[0].ID)
	require.NoError(t, err)
	assert.Empty(t, o.LineItems)
	assert.Equal(t, "107.00", o.FinalValue.StringFixed(2))

	stored, err := f.orders.Get(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.Revision, stored.Revision)
	assert.True(t, o.FinalValue.Equal(stored.FinalValue))
	assert.Equal(t, 10, f.qty(t, p.ID), "editing lines never moves stock")
}

func TestService_EditsLockedAfterCompletion(t *testing.T) {
	f := newFixture(t)
	o := f.inProgress(t)
	_, err := f.orders.Complete(f.ctx, o.ID)
	require.NoError(t, err)

	_, err = f.orders.SetLaborValue(f.ctx, o.ID, 0, types.MustMoney("1.00"))
	assert.True(t, apperror.HasCode(err, apperror.CodeOrderLocked))
}

func TestService_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.orders.Start(f.ctx, id.New())
	assert.True(t, apperror.IsNotFound(err))

	_, err = f.orders.History(f.ctx, id.New())
	assert.True(t, apperror.IsNotFound(err))
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			match := true
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					match = false
				}
			}
			if match {
				return m.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s %v not found", name, labels)
	return 0
}
