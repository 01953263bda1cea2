package repository

import (
	"context"
	"database/sql"
	"time"

	"marketsync/internal/models"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, so stores can be scoped
// to a caller-supplied transaction. The workflow orchestrator opens one
// transaction per critical block and builds tx-scoped stores from it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

// JobConfigStore persists the ordered job schedule list. Writers must be
// serialized by the caller (the scheduler holds a single-writer lock).
type JobConfigStore interface {
	LoadAll(ctx context.Context) ([]models.JobConfig, error)
	SaveAll(ctx context.Context, jobs []models.JobConfig) error
}

// LogStore is the append-only log sink for job runs.
type LogStore interface {
	Append(ctx context.Context, e models.LogEntry) error
	Recent(ctx context.Context, jobID string, limit int) ([]models.LogEntry, error)
	List(ctx context.Context, f models.LogFilter) ([]models.LogEntry, error)
	Stats(ctx context.Context, jobID string, days int) (models.LogStats, error)
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// OrderStore mirrors marketplace orders. Constructed over a DBTX so the
// critical block can scope writes to its transaction.
type OrderStore interface {
	Upsert(ctx context.Context, orders []models.Order) (models.UpsertCounts, error)
	Unexported(ctx context.Context) ([]models.Order, error)
	MarkExported(ctx context.Context, orderSNs []string) error
	Shipped(ctx context.Context) ([]models.Order, error)
	UpdateTracking(ctx context.Context, shipments []models.Shipment) (int, error)
	UnreportedShipped(ctx context.Context) ([]models.Order, error)
	MarkReported(ctx context.Context, orderSNs []string) error
}

// InventoryStore holds the product catalog and the stock mirror.
type InventoryStore interface {
	UpsertProducts(ctx context.Context, products []models.Product) (models.UpsertCounts, error)
	ActiveProducts(ctx context.Context) ([]models.Product, error)
	Mirror(ctx context.Context) ([]models.MirrorEntry, error)
	UpsertMirror(ctx context.Context, deltas []models.SyncDelta) (models.UpsertCounts, error)
	Pending(ctx context.Context) ([]models.SyncDelta, error)
	MarkSynced(ctx context.Context, deltas []models.SyncDelta) (int, error)
}

// ErpSource is the read-only view of the source of truth. In production it
// points at the ERP database; the default implementation reads the local
// erp_* tables.
type ErpSource interface {
	StockLevels(ctx context.Context) ([]models.StockLevel, error)
	Shipments(ctx context.Context, orderSNs []string) ([]models.Shipment, error)
}

// Repository aggregates the stores bound to the root DB handle.
type Repository struct {
	JobConfig JobConfigStore
	Logs      LogStore
	Orders    OrderStore
	Inventory InventoryStore
	Erp       ErpSource
	Auth      Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		JobConfig: NewJobConfigSQLite(db),
		Logs:      NewLogSQLite(db),
		Orders:    NewOrderSQLite(db),
		Inventory: NewInventorySQLite(db),
		Erp:       NewErpSQLite(db),
		Auth:      NewUserRepository(db),
	}
}
