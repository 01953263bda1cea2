package models

import "time"

// Marketplace parent order status codes (as delivered by the REST API).
const (
	OrderStatusProcessing = 2
	OrderStatusCancelled  = 3
	OrderStatusShipped    = 4
	OrderStatusDelivered  = 5
)

// Order is one marketplace order mirrored into the local store.
type Order struct {
	OrderSN        string      `json:"order_sn"` // marketplace order number, unique
	Status         int         `json:"status"`
	OrderTime      time.Time   `json:"order_time"`
	BuyerName      string      `json:"buyer_name,omitempty"`
	TrackingNumber string      `json:"tracking_number,omitempty"`
	Carrier        string      `json:"carrier,omitempty"`
	Exported       bool        `json:"exported"` // order XML delivered to the ERP import dir
	Reported       bool        `json:"reported"` // tracking confirmed back to the marketplace
	Items          []OrderItem `json:"items,omitempty"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	SKU      string `json:"sku"`
	GoodsID  int64  `json:"goods_id"`
	Quantity int    `json:"quantity"`
}

// Shipment is the ERP's view of a dispatched order.
type Shipment struct {
	OrderSN        string `json:"order_sn"`
	TrackingNumber string `json:"tracking_number"`
	Carrier        string `json:"carrier"`
}

// UpsertCounts reports exactly how many rows were inserted vs. updated.
// The store checks row existence explicitly; rowcount guessing is not
// reliable for upserts.
type UpsertCounts struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}
