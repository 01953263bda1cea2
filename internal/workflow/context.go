package workflow

import (
	"context"
	"database/sql"
	"fmt"

	"marketsync/internal/export"
	"marketsync/internal/joblog"
	"marketsync/internal/marketplace"
	"marketsync/internal/models"
	"marketsync/internal/repository"
)

// RunContext carries the collaborators and scratch state for one run.
// Store accessors return stores scoped to the current block: inside a
// transactional block they write through the block's transaction, which
// is committed or rolled back before the next block starts.
type RunContext struct {
	JobID string
	Args  models.RunArgs
	Log   *joblog.JobLogger

	Marketplace marketplace.Client
	Exporter    export.Exporter
	Erp         repository.ErpSource

	db *sql.DB
	tx *sql.Tx

	// scratch shared between phases of one run
	FetchedOrders   []models.Order
	FetchedProducts []models.Product
}

// NewRunContext builds the context for one run.
func NewRunContext(jobID string, args models.RunArgs, log *joblog.JobLogger,
	db *sql.DB, mp marketplace.Client, exp export.Exporter, erp repository.ErpSource) *RunContext {
	return &RunContext{
		JobID:       jobID,
		Args:        args,
		Log:         log,
		Marketplace: mp,
		Exporter:    exp,
		Erp:         erp,
		db:          db,
	}
}

func (rc *RunContext) dbtx() repository.DBTX {
	if rc.tx != nil {
		return rc.tx
	}
	return rc.db
}

// Orders returns an order store scoped to the current block.
func (rc *RunContext) Orders() repository.OrderStore {
	return repository.NewOrderSQLite(rc.dbtx())
}

// Inventory returns an inventory store scoped to the current block.
func (rc *RunContext) Inventory() repository.InventoryStore {
	return repository.NewInventorySQLite(rc.dbtx())
}

// beginBlock opens the transaction scope for a transactional block.
func (rc *RunContext) beginBlock(ctx context.Context) error {
	if rc.db == nil {
		return fmt.Errorf("run context has no database handle")
	}
	if rc.tx != nil {
		return fmt.Errorf("previous block transaction still open")
	}
	tx, err := rc.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin block transaction: %w", err)
	}
	rc.tx = tx
	return nil
}

// commitBlock commits the block's writes. After this point a later block
// failure cannot undo them.
func (rc *RunContext) commitBlock() error {
	if rc.tx == nil {
		return nil
	}
	err := rc.tx.Commit()
	rc.tx = nil
	if err != nil {
		return fmt.Errorf("commit block transaction: %w", err)
	}
	return nil
}

// rollbackBlock discards the block's partial writes.
func (rc *RunContext) rollbackBlock() {
	if rc.tx == nil {
		return
	}
	_ = rc.tx.Rollback()
	rc.tx = nil
}
