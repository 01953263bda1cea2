package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"marketsync/internal/models"
)

type OrderSQLite struct {
	db DBTX
}

func NewOrderSQLite(db DBTX) *OrderSQLite { return &OrderSQLite{db: db} }

var _ OrderStore = (*OrderSQLite)(nil)

const sqliteTimeLayout = "2006-01-02 15:04:05"

// Upsert writes orders and their items. Existence is checked per row so
// the counts distinguish inserts from updates exactly.
func (r *OrderSQLite) Upsert(ctx context.Context, orders []models.Order) (models.UpsertCounts, error) {
	var counts models.UpsertCounts
	now := time.Now().UTC().Format(sqliteTimeLayout)

	for _, o := range orders {
		var exists bool
		err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM orders WHERE order_sn = ?)`, o.OrderSN).Scan(&exists)
		if err != nil {
			return counts, fmt.Errorf("check order %s: %w", o.OrderSN, err)
		}

		if exists {
			// Never regress exported/reported flags on re-import.
			_, err = r.db.ExecContext(ctx, `
				UPDATE orders SET status = ?, order_time = ?, buyer_name = ?, updated_at = ?
				WHERE order_sn = ?`,
				o.Status, o.OrderTime.UTC().Format(sqliteTimeLayout), o.BuyerName, now, o.OrderSN)
			if err != nil {
				return counts, fmt.Errorf("update order %s: %w", o.OrderSN, err)
			}
			counts.Updated++
		} else {
			_, err = r.db.ExecContext(ctx, `
				INSERT INTO orders (order_sn, status, order_time, buyer_name, tracking_number, carrier, exported, reported, updated_at)
				VALUES (?, ?, ?, ?, '', '', 0, 0, ?)`,
				o.OrderSN, o.Status, o.OrderTime.UTC().Format(sqliteTimeLayout), o.BuyerName, now)
			if err != nil {
				return counts, fmt.Errorf("insert order %s: %w", o.OrderSN, err)
			}
			counts.Inserted++
		}

		if err := r.replaceItems(ctx, o.OrderSN, o.Items); err != nil {
			return counts, err
		}
	}
	return counts, nil
}

func (r *OrderSQLite) replaceItems(ctx context.Context, orderSN string, items []models.OrderItem) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM order_items WHERE order_sn = ?`, orderSN); err != nil {
		return fmt.Errorf("clear items for %s: %w", orderSN, err)
	}
	for _, it := range items {
		if _, err := r.db.ExecContext(ctx, `
			INSERT INTO order_items (order_sn, sku, goods_id, quantity)
			VALUES (?, ?, ?, ?)`, orderSN, it.SKU, it.GoodsID, it.Quantity); err != nil {
			return fmt.Errorf("insert item %s/%s: %w", orderSN, it.SKU, err)
		}
	}
	return nil
}

// Unexported returns processing orders whose XML has not been delivered yet.
func (r *OrderSQLite) Unexported(ctx context.Context) ([]models.Order, error) {
	return r.queryOrders(ctx, `WHERE exported = 0 AND status = ?`, models.OrderStatusProcessing)
}

func (r *OrderSQLite) MarkExported(ctx context.Context, orderSNs []string) error {
	return r.setFlag(ctx, "exported", orderSNs)
}

// Shipped returns orders in shipped/delivered state, tracked or not.
func (r *OrderSQLite) Shipped(ctx context.Context) ([]models.Order, error) {
	return r.queryOrders(ctx, `WHERE status IN (?, ?)`,
		models.OrderStatusShipped, models.OrderStatusDelivered)
}

// UpdateTracking fills tracking data from ERP shipments and returns the
// number of rows that actually changed.
func (r *OrderSQLite) UpdateTracking(ctx context.Context, shipments []models.Shipment) (int, error) {
	updated := 0
	now := time.Now().UTC().Format(sqliteTimeLayout)
	for _, sh := range shipments {
		if sh.TrackingNumber == "" {
			continue
		}
		res, err := r.db.ExecContext(ctx, `
			UPDATE orders SET tracking_number = ?, carrier = ?, updated_at = ?
			WHERE order_sn = ? AND tracking_number <> ?`,
			sh.TrackingNumber, sh.Carrier, now, sh.OrderSN, sh.TrackingNumber)
		if err != nil {
			return updated, fmt.Errorf("update tracking %s: %w", sh.OrderSN, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			updated++
		}
	}
	return updated, nil
}

// UnreportedShipped returns tracked orders not yet confirmed downstream.
func (r *OrderSQLite) UnreportedShipped(ctx context.Context) ([]models.Order, error) {
	return r.queryOrders(ctx,
		`WHERE reported = 0 AND tracking_number <> '' AND status IN (?, ?)`,
		models.OrderStatusShipped, models.OrderStatusDelivered)
}

func (r *OrderSQLite) MarkReported(ctx context.Context, orderSNs []string) error {
	return r.setFlag(ctx, "reported", orderSNs)
}

func (r *OrderSQLite) setFlag(ctx context.Context, column string, orderSNs []string) error {
	if len(orderSNs) == 0 {
		return nil
	}
	now := time.Now().UTC().Format(sqliteTimeLayout)
	for _, sn := range orderSNs {
		if _, err := r.db.ExecContext(ctx,
			`UPDATE orders SET `+column+` = 1, updated_at = ? WHERE order_sn = ?`, now, sn); err != nil {
			return fmt.Errorf("mark %s %s: %w", column, sn, err)
		}
	}
	return nil
}

func (r *OrderSQLite) queryOrders(ctx context.Context, where string, args ...any) ([]models.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT order_sn, status, order_time, buyer_name, tracking_number, carrier, exported, reported, updated_at
		FROM orders `+where+` ORDER BY order_time ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Order, 0, 32)
	for rows.Next() {
		var (
			o         models.Order
			buyer     sql.NullString
			tracking  sql.NullString
			carrier   sql.NullString
		)
		if err := rows.Scan(&o.OrderSN, &o.Status, &o.OrderTime, &buyer,
			&tracking, &carrier, &o.Exported, &o.Reported, &o.UpdatedAt); err != nil {
			return nil, err
		}
		o.BuyerName = buyer.String
		o.TrackingNumber = tracking.String
		o.Carrier = carrier.String
		o.OrderTime = o.OrderTime.UTC()
		o.UpdatedAt = o.UpdatedAt.UTC()
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		items, err := r.itemsFor(ctx, out[i].OrderSN)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

func (r *OrderSQLite) itemsFor(ctx context.Context, orderSN string) ([]models.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT sku, goods_id, quantity FROM order_items WHERE order_sn = ? ORDER BY id ASC`, orderSN)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.SKU, &it.GoodsID, &it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
