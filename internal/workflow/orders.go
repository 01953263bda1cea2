package workflow

import (
	"context"
	"fmt"
	"time"

	"marketsync/internal/marketplace"
	"marketsync/internal/models"
)

// OrderSyncWorkflow declares the sync_orders pipeline.
//
// The import block is critical: importing depends on the fetch, exporting
// depends on the import, and a partial import would corrupt the ERP feed.
// The tracking block is best-effort: a shipment lookup failing for some
// orders must not block pushing tracking numbers already resolved for
// others.
func OrderSyncWorkflow() Workflow {
	return Workflow{
		Type:      models.JobSyncOrders,
		Preflight: credentialsPreflight,
		Blocks: []Block{
			{
				Name:          "import",
				Policy:        Critical,
				Transactional: true,
				Phases: []Phase{
					{Name: "fetch-orders", Run: fetchOrders},
					{Name: "import-orders", Run: importOrders},
					{Name: "export-orders", Run: exportOrders},
				},
			},
			{
				Name:   "tracking",
				Policy: BestEffort,
				Phases: []Phase{
					{Name: "refresh-tracking", Run: refreshTracking},
					{Name: "push-tracking", Run: pushTracking},
				},
			},
		},
	}
}

// credentialsPreflight fails the job before any phase if the marketplace
// client is not configured. No retry helps until configuration changes.
func credentialsPreflight(ctx context.Context, rc *RunContext) error {
	if err := rc.Marketplace.Validate(); err != nil {
		return Fatal(err)
	}
	return nil
}

func fetchOrders(ctx context.Context, rc *RunContext) error {
	args := rc.Args
	if args.DaysBack < 1 {
		return fmt.Errorf("days back must be >= 1, got %d", args.DaysBack)
	}
	switch args.OrderStatus {
	case models.OrderStatusProcessing, models.OrderStatusCancelled,
		models.OrderStatusShipped, models.OrderStatusDelivered:
	default:
		return fmt.Errorf("invalid order status filter %d", args.OrderStatus)
	}

	orders, err := rc.Marketplace.FetchOrders(ctx, marketplace.OrderFilter{
		ParentStatus: args.OrderStatus,
		Since:        time.Now().UTC().AddDate(0, 0, -args.DaysBack),
	})
	if err != nil {
		return Transient(err)
	}
	rc.FetchedOrders = orders
	rc.Log.Infof(ctx, "fetched %d orders (status=%d, days=%d)", len(orders), args.OrderStatus, args.DaysBack)
	return nil
}

func importOrders(ctx context.Context, rc *RunContext) error {
	if len(rc.FetchedOrders) == 0 {
		rc.Log.Infof(ctx, "no orders to import")
		return nil
	}
	counts, err := rc.Orders().Upsert(ctx, rc.FetchedOrders)
	if err != nil {
		return err
	}
	rc.Log.Infof(ctx, "imported orders: %d new, %d updated", counts.Inserted, counts.Updated)
	return nil
}

// exportOrders renders and delivers the ERP artifact for every new order.
// Orders that cannot produce a valid document are skipped with a warning;
// a delivery failure aborts the block because the ERP feed must not see a
// partial batch marked complete.
func exportOrders(ctx context.Context, rc *RunContext) error {
	store := rc.Orders()
	pending, err := store.Unexported(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		rc.Log.Infof(ctx, "no orders to export")
		return nil
	}

	exported := make([]string, 0, len(pending))
	skipped := 0
	for _, o := range pending {
		artifact, err := rc.Exporter.Render(o)
		if err != nil {
			skipped++
			rc.Log.Warnf(ctx, "skipping order %s: %v", o.OrderSN, err)
			continue
		}
		name := fmt.Sprintf("order_%s.xml", o.OrderSN)
		if err := rc.Exporter.Deliver(ctx, name, artifact); err != nil {
			return fmt.Errorf("deliver %s: %w", name, err)
		}
		exported = append(exported, o.OrderSN)
	}

	if err := store.MarkExported(ctx, exported); err != nil {
		return err
	}
	rc.Log.Infof(ctx, "exported %d orders (%d skipped)", len(exported), skipped)
	return nil
}

func refreshTracking(ctx context.Context, rc *RunContext) error {
	store := rc.Orders()
	shipped, err := store.Shipped(ctx)
	if err != nil {
		return err
	}
	if len(shipped) == 0 {
		rc.Log.Infof(ctx, "no shipped orders to refresh")
		return nil
	}

	sns := make([]string, len(shipped))
	for i, o := range shipped {
		sns[i] = o.OrderSN
	}
	shipments, err := rc.Erp.Shipments(ctx, sns)
	if err != nil {
		return Transient(err)
	}

	missing := 0
	valid := shipments[:0]
	for _, sh := range shipments {
		if sh.TrackingNumber == "" {
			missing++
			rc.Log.Warnf(ctx, "order %s has no tracking number yet", sh.OrderSN)
			continue
		}
		valid = append(valid, sh)
	}

	updated, err := store.UpdateTracking(ctx, valid)
	if err != nil {
		return err
	}
	rc.Log.Infof(ctx, "tracking refreshed: %d updated, %d pending", updated, missing)
	return nil
}

// pushTracking confirms tracking numbers downstream, grouped by carrier.
// Confirmed groups are marked reported; failed groups are retried on the
// next run.
func pushTracking(ctx context.Context, rc *RunContext) error {
	store := rc.Orders()
	pending, err := store.UnreportedShipped(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		rc.Log.Infof(ctx, "no tracking numbers to report")
		return nil
	}

	byCarrier := make(map[string][]models.Order)
	var carriers []string
	skipped := 0
	for _, o := range pending {
		if o.Carrier == "" {
			skipped++
			continue
		}
		if _, seen := byCarrier[o.Carrier]; !seen {
			carriers = append(carriers, o.Carrier)
		}
		byCarrier[o.Carrier] = append(byCarrier[o.Carrier], o)
	}
	if skipped > 0 {
		rc.Log.Warnf(ctx, "skipping %d orders without carrier; these will not be retried", skipped)
	}

	reported := 0
	failed := 0
	for _, carrier := range carriers {
		orders := byCarrier[carrier]
		if err := rc.Marketplace.PushTracking(ctx, carrier, orders); err != nil {
			failed++
			rc.Log.Errorf(ctx, "tracking push failed for carrier %s (%d orders): %v", carrier, len(orders), err)
			continue
		}
		sns := make([]string, len(orders))
		for i, o := range orders {
			sns[i] = o.OrderSN
		}
		if err := store.MarkReported(ctx, sns); err != nil {
			return err
		}
		reported += len(orders)
	}

	rc.Log.Infof(ctx, "tracking reported for %d orders (%d carriers failed)", reported, failed)
	if failed > 0 {
		return Transient(fmt.Errorf("%d carrier groups failed", failed))
	}
	return nil
}
