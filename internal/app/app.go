// Package app assembles the domain services over a storage backend.
package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"oficina/internal/config"
	"oficina/internal/core/events"
	corenumerator "oficina/internal/core/numerator"
	"oficina/internal/core/tx"
	"oficina/internal/domain/inventory"
	"oficina/internal/domain/reconciliation"
	"oficina/internal/domain/serviceorder"
	"oficina/internal/infrastructure/numerator"
	"oficina/internal/infrastructure/storage/memory"
	"oficina/internal/infrastructure/storage/postgres"
	"oficina/internal/infrastructure/storage/postgres/inventory_repo"
	"oficina/internal/infrastructure/storage/postgres/serviceorder_repo"
	"oficina/pkg/metrics"
)

// Storage is everything the services need from a backend.
type Storage struct {
	Parts     inventory.PartRepository
	Movements inventory.MovementRepository
	Orders    serviceorder.Repository
	History   serviceorder.HistoryRepository
	TxManager tx.Manager
	Numerator corenumerator.Generator
	Publisher events.Publisher
	Audit     inventory.AuditLogger
}

// Services are the domain entry points used by the transports.
type Services struct {
	Stock      *inventory.Service
	Catalog    *inventory.Catalog
	Reconciler *reconciliation.Service
	Orders     *serviceorder.Service
}

// NewServices wires the domain services. reg may be nil to skip metrics.
func NewServices(st Storage, reg prometheus.Registerer) *Services {
	var (
		invMetrics   *metrics.Inventory
		orderMetrics *metrics.Orders
	)
	if reg != nil {
		invMetrics = metrics.NewInventory(reg)
		orderMetrics = metrics.NewOrders(reg)
	}

	stock := inventory.NewService(st.Parts, st.Movements, st.TxManager, st.Publisher, invMetrics)
	reconciler := reconciliation.NewService(stock, st.TxManager, invMetrics)
	return &Services{
		Stock:      stock,
		Catalog:    inventory.NewCatalog(st.Parts, stock, st.TxManager, st.Audit),
		Reconciler: reconciler,
		Orders: serviceorder.NewService(
			st.Orders, st.History, st.TxManager, st.Numerator, reconciler, st.Publisher, orderMetrics,
		),
	}
}

// MemoryStorage backs every repository with store.
func MemoryStorage(store *memory.Store) Storage {
	return Storage{
		Parts:     memory.NewPartRepo(store),
		Movements: memory.NewMovementRepo(store),
		Orders:    memory.NewOrderRepo(store),
		History:   memory.NewHistoryRepo(store),
		TxManager: memory.NewTxManager(store),
		Numerator: memory.NewNumerator(store),
		Publisher: memory.NewOutbox(store),
		Audit:     memory.NewAuditLog(store),
	}
}

// PostgresStorage backs every repository with pool.
func PostgresStorage(pool *postgres.Pool, cfg config.Config) (Storage, error) {
	strategy, err := corenumerator.ParseStrategy(cfg.Numerator.Strategy)
	if err != nil {
		return Storage{}, err
	}
	opts := corenumerator.DefaultOptions()
	opts.Strategy = strategy
	if cfg.Numerator.RangeSize > 0 {
		opts.RangeSize = cfg.Numerator.RangeSize
	}

	txm := postgres.NewTxManager(pool, postgres.TxOptionsFrom(cfg.DB))
	audit, err := postgres.NewAuditService(txm)
	if err != nil {
		return Storage{}, fmt.Errorf("audit service: %w", err)
	}
	return Storage{
		Parts:     inventory_repo.NewPartRepo(txm),
		Movements: inventory_repo.NewMovementRepo(txm),
		Orders:    serviceorder_repo.NewOrderRepo(txm),
		History:   serviceorder_repo.NewHistoryRepo(txm),
		TxManager: txm,
		Numerator: numerator.NewWithTxManager(txm, pool, opts),
		Publisher: postgres.NewOutboxPublisher(txm),
		Audit:     audit,
	}, nil
}
