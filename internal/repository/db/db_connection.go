package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

// InitDB opens/creates the SQLite DB file and ensures tables exist.
//
// The pool must hold more than one connection: a workflow block
// transaction pins a connection for its whole lifetime, and the log sink
// appends entries on a second connection while the block is open. WAL
// plus busy_timeout handle the writer contention.
func InitDB(path string) (*sql.DB, error) {
	// Pragmas go in the DSN so every pooled connection gets them;
	// db.Exec would configure only whichever connection it happens to
	// draw.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	// Fail fast if the DB cannot be reached
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

const schemaJobs = `
CREATE TABLE IF NOT EXISTS jobs (
    position INTEGER PRIMARY KEY AUTOINCREMENT,
    job_type TEXT NOT NULL,
    interval_minutes INTEGER NOT NULL,
    enabled BOOLEAN NOT NULL DEFAULT 1,
    description TEXT NOT NULL DEFAULT ''
);
`

const schemaJobLogs = `
CREATE TABLE IF NOT EXISTS job_logs (
    id TEXT PRIMARY KEY,
    job_id TEXT NOT NULL,
    job_type TEXT NOT NULL,
    level TEXT NOT NULL,
    message TEXT NOT NULL,
    status TEXT,
    duration_seconds REAL,
    error_text TEXT,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_job_logs_job_id ON job_logs (job_id, created_at);
`

const schemaOrders = `
CREATE TABLE IF NOT EXISTS orders (
    order_sn TEXT PRIMARY KEY,
    status INTEGER NOT NULL,
    order_time TIMESTAMP NOT NULL,
    buyer_name TEXT,
    tracking_number TEXT,
    carrier TEXT,
    exported BOOLEAN NOT NULL DEFAULT 0,
    reported BOOLEAN NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaOrderItems = `
CREATE TABLE IF NOT EXISTS order_items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    order_sn TEXT NOT NULL REFERENCES orders(order_sn) ON DELETE CASCADE,
    sku TEXT NOT NULL,
    goods_id INTEGER NOT NULL,
    quantity INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_order_items_order_sn ON order_items (order_sn);
`

const schemaProducts = `
CREATE TABLE IF NOT EXISTS products (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    goods_id INTEGER NOT NULL,
    sku_id INTEGER NOT NULL,
    sku TEXT NOT NULL UNIQUE,
    name TEXT,
    active BOOLEAN NOT NULL DEFAULT 1
);
`

const schemaInventory = `
CREATE TABLE IF NOT EXISTS inventory (
    product_id INTEGER PRIMARY KEY REFERENCES products(id),
    local_stock INTEGER NOT NULL DEFAULT 0,
    remote_stock INTEGER NOT NULL DEFAULT 0,
    needs_sync BOOLEAN NOT NULL DEFAULT 0,
    last_synced TIMESTAMP,
    updated_at TIMESTAMP NOT NULL
);
`

// ERP-facing tables. In production the ErpSource points at the ERP
// database instead; these exist so a standalone deployment works.
const schemaErp = `
CREATE TABLE IF NOT EXISTS erp_stock (
    sku TEXT PRIMARY KEY,
    stock INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS erp_shipments (
    order_sn TEXT PRIMARY KEY,
    tracking_number TEXT NOT NULL,
    carrier TEXT NOT NULL
);
`

const schemaUsers = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL
);
`

func ensureSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		// In case of panic, rollback to avoid leaving an open transaction
		_ = tx.Rollback()
	}()

	for i, stmt := range []string{
		schemaJobs,
		schemaJobLogs,
		schemaOrders,
		schemaOrderItems,
		schemaProducts,
		schemaInventory,
		schemaErp,
		schemaUsers,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
