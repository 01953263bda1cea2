package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"marketsync/internal/models"
)

type InventorySQLite struct {
	db DBTX
}

func NewInventorySQLite(db DBTX) *InventorySQLite { return &InventorySQLite{db: db} }

var _ InventoryStore = (*InventorySQLite)(nil)

// UpsertProducts writes the marketplace SKU catalog, keyed by SKU.
// Existence is checked per row for exact inserted/updated counts.
func (r *InventorySQLite) UpsertProducts(ctx context.Context, products []models.Product) (models.UpsertCounts, error) {
	var counts models.UpsertCounts
	for _, p := range products {
		var exists bool
		err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM products WHERE sku = ?)`, p.SKU).Scan(&exists)
		if err != nil {
			return counts, fmt.Errorf("check product %s: %w", p.SKU, err)
		}
		if exists {
			_, err = r.db.ExecContext(ctx, `
				UPDATE products SET goods_id = ?, sku_id = ?, name = ?, active = ?
				WHERE sku = ?`, p.GoodsID, p.SkuID, p.Name, p.Active, p.SKU)
			if err != nil {
				return counts, fmt.Errorf("update product %s: %w", p.SKU, err)
			}
			counts.Updated++
		} else {
			_, err = r.db.ExecContext(ctx, `
				INSERT INTO products (goods_id, sku_id, sku, name, active)
				VALUES (?, ?, ?, ?, ?)`, p.GoodsID, p.SkuID, p.SKU, p.Name, p.Active)
			if err != nil {
				return counts, fmt.Errorf("insert product %s: %w", p.SKU, err)
			}
			counts.Inserted++
		}
	}
	return counts, nil
}

// ActiveProducts returns the marketplace-listed catalog entries.
func (r *InventorySQLite) ActiveProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, goods_id, sku_id, sku, COALESCE(name, ''), active
		FROM products WHERE active = 1 ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.GoodsID, &p.SkuID, &p.SKU, &p.Name, &p.Active); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Mirror returns the cached downstream view for all products, keyed by
// product id, including rows that have never been synced.
func (r *InventorySQLite) Mirror(ctx context.Context) ([]models.MirrorEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, local_stock, remote_stock, needs_sync, last_synced
		FROM inventory ORDER BY product_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MirrorEntry
	for rows.Next() {
		var (
			m      models.MirrorEntry
			synced sql.NullTime
		)
		if err := rows.Scan(&m.ProductID, &m.LocalStock, &m.RemoteStock, &m.NeedsSync, &synced); err != nil {
			return nil, err
		}
		if synced.Valid {
			t := synced.Time.UTC()
			m.LastSynced = &t
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpsertMirror writes computed deltas back to the mirror. Only needs_sync
// and local_stock move here; remote_stock changes exclusively through
// MarkSynced after a confirmed push.
func (r *InventorySQLite) UpsertMirror(ctx context.Context, deltas []models.SyncDelta) (models.UpsertCounts, error) {
	var counts models.UpsertCounts
	now := time.Now().UTC().Format(sqliteTimeLayout)

	for _, d := range deltas {
		var exists bool
		err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM inventory WHERE product_id = ?)`, d.EntityID).Scan(&exists)
		if err != nil {
			return counts, fmt.Errorf("check mirror %d: %w", d.EntityID, err)
		}
		if exists {
			_, err = r.db.ExecContext(ctx, `
				UPDATE inventory SET local_stock = ?, needs_sync = ?, updated_at = ?
				WHERE product_id = ?`, d.Target, d.NeedsSync, now, d.EntityID)
			if err != nil {
				return counts, fmt.Errorf("update mirror %d: %w", d.EntityID, err)
			}
			counts.Updated++
		} else {
			_, err = r.db.ExecContext(ctx, `
				INSERT INTO inventory (product_id, local_stock, remote_stock, needs_sync, updated_at)
				VALUES (?, ?, 0, ?, ?)`, d.EntityID, d.Target, d.NeedsSync, now)
			if err != nil {
				return counts, fmt.Errorf("insert mirror %d: %w", d.EntityID, err)
			}
			counts.Inserted++
		}
	}
	return counts, nil
}

// Pending returns deltas still flagged for sync, joined with the catalog
// for grouping data. Inactive products are excluded.
func (r *InventorySQLite) Pending(ctx context.Context) ([]models.SyncDelta, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT inv.product_id, p.goods_id, p.sku_id, p.sku, inv.remote_stock, inv.local_stock
		FROM inventory inv
		JOIN products p ON p.id = inv.product_id
		WHERE inv.needs_sync = 1 AND p.active = 1
		ORDER BY p.goods_id ASC, inv.product_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SyncDelta
	for rows.Next() {
		var (
			d       models.SyncDelta
			goodsID int64
		)
		if err := rows.Scan(&d.EntityID, &goodsID, &d.SkuID, &d.SKU, &d.Current, &d.Target); err != nil {
			return nil, err
		}
		if goodsID != 0 {
			d.GroupKey = strconv.FormatInt(goodsID, 10)
		}
		d.NeedsSync = true
		out = append(out, d)
	}
	return out, rows.Err()
}

// MarkSynced clears needs_sync and advances remote_stock to the pushed
// target, in one batch. Returns rows changed.
func (r *InventorySQLite) MarkSynced(ctx context.Context, deltas []models.SyncDelta) (int, error) {
	if len(deltas) == 0 {
		return 0, nil
	}
	now := time.Now().UTC().Format(sqliteTimeLayout)
	marked := 0
	for _, d := range deltas {
		res, err := r.db.ExecContext(ctx, `
			UPDATE inventory SET needs_sync = 0, remote_stock = ?, last_synced = ?, updated_at = ?
			WHERE product_id = ?`, d.Target, now, now, d.EntityID)
		if err != nil {
			return marked, fmt.Errorf("mark synced %d: %w", d.EntityID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			marked++
		}
	}
	return marked, nil
}
