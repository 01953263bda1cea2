// Package export renders order artifacts for the ERP import and delivers
// them. The critical block's final phase consumes the Exporter interface.
package export

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"marketsync/internal/models"
)

// Exporter renders one entity to an artifact and delivers it downstream.
type Exporter interface {
	Render(o models.Order) ([]byte, error)
	Deliver(ctx context.Context, name string, artifact []byte) error
}

// orderDocument is the ERP import format for a single order.
type orderDocument struct {
	XMLName   xml.Name   `xml:"Order"`
	OrderSN   string     `xml:"OrderNumber"`
	OrderTime string     `xml:"OrderDate"`
	Buyer     string     `xml:"Buyer,omitempty"`
	Items     []itemNode `xml:"Items>Item"`
}

type itemNode struct {
	SKU      string `xml:"SKU"`
	Quantity int    `xml:"Quantity"`
}

// XMLExporter writes order XML files into a directory watched by the ERP
// importer.
type XMLExporter struct {
	dir string
}

var _ Exporter = (*XMLExporter)(nil)

func NewXMLExporter(dir string) *XMLExporter {
	return &XMLExporter{dir: dir}
}

// Render produces the ERP import document for one order. Orders without
// items cannot produce a valid document.
func (e *XMLExporter) Render(o models.Order) ([]byte, error) {
	if o.OrderSN == "" {
		return nil, fmt.Errorf("order has no order number")
	}
	if len(o.Items) == 0 {
		return nil, fmt.Errorf("order %s has no items", o.OrderSN)
	}

	doc := orderDocument{
		OrderSN:   o.OrderSN,
		OrderTime: o.OrderTime.UTC().Format(time.RFC3339),
		Buyer:     o.BuyerName,
	}
	for _, it := range o.Items {
		doc.Items = append(doc.Items, itemNode{SKU: it.SKU, Quantity: it.Quantity})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal order %s: %w", o.OrderSN, err)
	}
	return append([]byte(xml.Header), out...), nil
}

// Deliver writes the artifact atomically (tmp file + rename) so the ERP
// importer never reads a partial document.
func (e *XMLExporter) Deliver(ctx context.Context, name string, artifact []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	final := filepath.Join(e.dir, name)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, artifact, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
