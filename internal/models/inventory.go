package models

import "time"

// Product is one marketplace SKU known to the local catalog.
type Product struct {
	ID       int64  `json:"id"`
	GoodsID  int64  `json:"goods_id"` // marketplace product group; one push call per goods id
	SkuID    int64  `json:"sku_id"`
	SKU      string `json:"sku"`
	Active   bool   `json:"active"`
	Name     string `json:"name,omitempty"`
}

// StockLevel is an authoritative stock reading from the ERP.
type StockLevel struct {
	SKU   string `json:"sku"`
	Stock int    `json:"stock"`
}

// MirrorEntry is the cached downstream view of one product's stock: what
// the ERP says now vs. what the marketplace last confirmed.
type MirrorEntry struct {
	ProductID   int64      `json:"product_id"`
	LocalStock  int        `json:"local_stock"`  // authoritative (ERP)
	RemoteStock int        `json:"remote_stock"` // last confirmed downstream
	NeedsSync   bool       `json:"needs_sync"`
	LastSynced  *time.Time `json:"last_synced,omitempty"`
}

// SyncDelta is one entity whose authoritative value differs from the
// mirrored downstream value. Cleared only after a confirmed push; flagged,
// never deleted.
type SyncDelta struct {
	EntityID  int64  `json:"entity_id"` // product id (mirror row key)
	GroupKey  string `json:"group_key"` // marketplace goods id, or carrier for tracking pushes
	SkuID     int64  `json:"sku_id,omitempty"`
	SKU       string `json:"sku,omitempty"`
	Current   int    `json:"current"` // last value confirmed downstream
	Target    int    `json:"target"`  // authoritative value to push
	NeedsSync bool   `json:"needs_sync"`
}
