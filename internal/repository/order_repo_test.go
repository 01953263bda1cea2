package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"marketsync/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func newOrderStore(t *testing.T) (*OrderSQLite, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	store := NewOrderSQLite(db)
	cleanup := func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet sqlmock expectations: %v", err)
		}
		_ = db.Close()
	}
	return store, mock, cleanup
}

func TestOrderSQLite_Upsert_CountsInsertsAndUpdates(t *testing.T) {
	t.Parallel()
	store, mock, cleanup := newOrderStore(t)
	defer cleanup()

	orderTime := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	existsQ := regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM orders WHERE order_sn = ?)")

	// first order is new
	mock.ExpectQuery(existsQ).WithArgs("SN-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).
		WithArgs("SN-1", models.OrderStatusProcessing, "2026-08-01 12:00:00", "alice", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM order_items WHERE order_sn = ?")).
		WithArgs("SN-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).
		WithArgs("SN-1", "SKU-A", int64(100), 2).
		WillReturnResult(sqlmock.NewResult(1, 1))

	// second order already exists: flags must not be touched
	mock.ExpectQuery(existsQ).WithArgs("SN-2").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = ?, order_time = ?, buyer_name = ?, updated_at = ?")).
		WithArgs(models.OrderStatusShipped, "2026-08-01 12:00:00", "bob", sqlmock.AnyArg(), "SN-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM order_items WHERE order_sn = ?")).
		WithArgs("SN-2").WillReturnResult(sqlmock.NewResult(0, 1))

	counts, err := store.Upsert(context.Background(), []models.Order{
		{
			OrderSN: "SN-1", Status: models.OrderStatusProcessing, OrderTime: orderTime, BuyerName: "alice",
			Items: []models.OrderItem{{SKU: "SKU-A", GoodsID: 100, Quantity: 2}},
		},
		{OrderSN: "SN-2", Status: models.OrderStatusShipped, OrderTime: orderTime, BuyerName: "bob"},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if counts.Inserted != 1 || counts.Updated != 1 {
		t.Fatalf("expected 1 insert / 1 update, got %+v", counts)
	}
}

func TestOrderSQLite_UpdateTracking_SkipsEmptyAndCountsChanges(t *testing.T) {
	t.Parallel()
	store, mock, cleanup := newOrderStore(t)
	defer cleanup()

	updateQ := regexp.QuoteMeta("UPDATE orders SET tracking_number = ?, carrier = ?, updated_at = ?")

	// SN-1 changes
	mock.ExpectExec(updateQ).
		WithArgs("TRK-1", "dhl", sqlmock.AnyArg(), "SN-1", "TRK-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// SN-2 already has this tracking number -> no row changes
	mock.ExpectExec(updateQ).
		WithArgs("TRK-2", "dhl", sqlmock.AnyArg(), "SN-2", "TRK-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	updated, err := store.UpdateTracking(context.Background(), []models.Shipment{
		{OrderSN: "SN-0"}, // empty tracking: skipped, no query
		{OrderSN: "SN-1", TrackingNumber: "TRK-1", Carrier: "dhl"},
		{OrderSN: "SN-2", TrackingNumber: "TRK-2", Carrier: "dhl"},
	})
	if err != nil {
		t.Fatalf("UpdateTracking: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 changed row, got %d", updated)
	}
}

func TestOrderSQLite_Unexported_LoadsItems(t *testing.T) {
	t.Parallel()
	store, mock, cleanup := newOrderStore(t)
	defer cleanup()

	now := time.Now().UTC()
	orderRows := sqlmock.NewRows([]string{
		"order_sn", "status", "order_time", "buyer_name", "tracking_number", "carrier", "exported", "reported", "updated_at",
	}).AddRow("SN-1", models.OrderStatusProcessing, now, "alice", "", "", false, false, now)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE exported = 0 AND status = ?")).
		WithArgs(models.OrderStatusProcessing).
		WillReturnRows(orderRows)
	mock.ExpectQuery(regexp.QuoteMeta("FROM order_items WHERE order_sn = ?")).
		WithArgs("SN-1").
		WillReturnRows(sqlmock.NewRows([]string{"sku", "goods_id", "quantity"}).
			AddRow("SKU-A", int64(100), 2).
			AddRow("SKU-B", int64(101), 1))

	out, err := store.Unexported(context.Background())
	if err != nil {
		t.Fatalf("Unexported: %v", err)
	}
	if len(out) != 1 || len(out[0].Items) != 2 {
		t.Fatalf("unexpected result: %+v", out)
	}
	if out[0].Items[0].SKU != "SKU-A" || out[0].Items[0].Quantity != 2 {
		t.Fatalf("item mapping wrong: %+v", out[0].Items)
	}
}

func TestOrderSQLite_MarkExported(t *testing.T) {
	t.Parallel()
	store, mock, cleanup := newOrderStore(t)
	defer cleanup()

	q := regexp.QuoteMeta("UPDATE orders SET exported = 1, updated_at = ? WHERE order_sn = ?")
	mock.ExpectExec(q).WithArgs(sqlmock.AnyArg(), "SN-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs(sqlmock.AnyArg(), "SN-2").WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.MarkExported(context.Background(), []string{"SN-1", "SN-2"}); err != nil {
		t.Fatalf("MarkExported: %v", err)
	}

	// empty input issues no queries
	if err := store.MarkExported(context.Background(), nil); err != nil {
		t.Fatalf("MarkExported(nil): %v", err)
	}
}
