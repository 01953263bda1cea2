package repository

import (
	"context"
	"strings"

	"marketsync/internal/models"
)

// ErpSQLite reads the source-of-truth tables. A real deployment would bind
// this to the ERP database connection instead of the local file.
type ErpSQLite struct {
	db DBTX
}

func NewErpSQLite(db DBTX) *ErpSQLite { return &ErpSQLite{db: db} }

var _ ErpSource = (*ErpSQLite)(nil)

// StockLevels returns current authoritative stock per SKU.
func (r *ErpSQLite) StockLevels(ctx context.Context) ([]models.StockLevel, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT sku, stock FROM erp_stock ORDER BY sku ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StockLevel
	for rows.Next() {
		var lv models.StockLevel
		if err := rows.Scan(&lv.SKU, &lv.Stock); err != nil {
			return nil, err
		}
		out = append(out, lv)
	}
	return out, rows.Err()
}

// Shipments returns ERP shipment records for the given order numbers.
func (r *ErpSQLite) Shipments(ctx context.Context, orderSNs []string) ([]models.Shipment, error) {
	if len(orderSNs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(orderSNs)), ",")
	args := make([]any, len(orderSNs))
	for i, sn := range orderSNs {
		args[i] = sn
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT order_sn, tracking_number, carrier
		FROM erp_shipments WHERE order_sn IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Shipment
	for rows.Next() {
		var sh models.Shipment
		if err := rows.Scan(&sh.OrderSN, &sh.TrackingNumber, &sh.Carrier); err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}
