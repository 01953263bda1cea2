package workflow

import (
	"context"
	"fmt"

	"marketsync/internal/models"
	"marketsync/internal/syncengine"
)

// InventorySyncWorkflow declares the sync_inventory pipeline.
//
// The refresh block is critical and transactional: the mirror must never
// contain a half-applied stock snapshot. It commits before the push block
// opens, so a failed push cannot undo the refreshed mirror.
func InventorySyncWorkflow() Workflow {
	return Workflow{
		Type:      models.JobSyncInventory,
		Preflight: credentialsPreflight,
		Blocks: []Block{
			{
				Name:          "refresh",
				Policy:        Critical,
				Transactional: true,
				Phases: []Phase{
					{Name: "fetch-products", Run: fetchProducts},
					{Name: "import-products", Run: importProducts},
					{Name: "refresh-mirror", Run: refreshMirror},
				},
			},
			{
				Name:   "push",
				Policy: BestEffort,
				Phases: []Phase{
					{Name: "push-stock", Run: pushStock},
				},
			},
		},
	}
}

// fullMode reports whether this run refreshes the SKU catalog too. Quick
// mode only reconciles stock for already known products.
func fullMode(args models.RunArgs) bool { return args.Mode == "full" }

func fetchProducts(ctx context.Context, rc *RunContext) error {
	if !fullMode(rc.Args) {
		return ErrPhaseSkipped
	}
	products, err := rc.Marketplace.FetchProducts(ctx)
	if err != nil {
		return Transient(err)
	}
	rc.FetchedProducts = products
	rc.Log.Infof(ctx, "fetched %d products", len(products))
	return nil
}

func importProducts(ctx context.Context, rc *RunContext) error {
	if !fullMode(rc.Args) {
		return ErrPhaseSkipped
	}
	if len(rc.FetchedProducts) == 0 {
		rc.Log.Infof(ctx, "no products to import")
		return nil
	}
	counts, err := rc.Inventory().UpsertProducts(ctx, rc.FetchedProducts)
	if err != nil {
		return err
	}
	rc.Log.Infof(ctx, "imported products: %d new, %d updated", counts.Inserted, counts.Updated)
	return nil
}

// refreshMirror reconciles authoritative ERP stock against the mirror and
// flags rows that diverge from the last confirmed downstream value.
func refreshMirror(ctx context.Context, rc *RunContext) error {
	levels, err := rc.Erp.StockLevels(ctx)
	if err != nil {
		return Transient(err)
	}

	inv := rc.Inventory()
	mirror, err := inv.Mirror(ctx)
	if err != nil {
		return err
	}
	products, err := inv.ActiveProducts(ctx)
	if err != nil {
		return err
	}
	catalog := make(map[string]models.Product, len(products))
	for _, p := range products {
		catalog[p.SKU] = p
	}

	deltas := syncengine.ComputeDeltas(mirror, levels, catalog)
	counts, err := inv.UpsertMirror(ctx, deltas)
	if err != nil {
		return err
	}

	flagged := 0
	for _, d := range deltas {
		if d.NeedsSync {
			flagged++
		}
	}
	rc.Log.Infof(ctx, "mirror refreshed: %d rows (%d new), %d flagged for sync",
		counts.Inserted+counts.Updated, counts.Inserted, flagged)
	return nil
}

// pushStock pushes pending deltas grouped by goods id through the delta
// sync engine. Group failures are retried on the next run.
func pushStock(ctx context.Context, rc *RunContext) error {
	inv := rc.Inventory()
	pending, err := inv.Pending(ctx)
	if err != nil {
		return err
	}

	engine := syncengine.New(rc.Log)
	outcome, err := engine.PushDeltas(ctx, pending,
		func(ctx context.Context, goodsID string, deltas []models.SyncDelta) error {
			return rc.Marketplace.PushStock(ctx, goodsID, deltas)
		},
		func(ctx context.Context, deltas []models.SyncDelta) error {
			_, err := inv.MarkSynced(ctx, deltas)
			return err
		},
	)
	if err != nil {
		return err
	}

	rc.Log.Infof(ctx, "stock push: %d synced, %d/%d groups failed, %d skipped",
		outcome.Synced, outcome.FailedGroups, outcome.Groups, outcome.Skipped)
	if outcome.FailedGroups > 0 {
		return Transient(fmt.Errorf("%d of %d groups failed", outcome.FailedGroups, outcome.Groups))
	}
	return nil
}
