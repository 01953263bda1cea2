package syncengine

import (
	"context"
	"errors"
	"testing"

	"marketsync/internal/models"
)

func catalog() map[string]models.Product {
	return map[string]models.Product{
		"SKU-A": {ID: 1, GoodsID: 100, SkuID: 11, SKU: "SKU-A", Active: true},
		"SKU-B": {ID: 2, GoodsID: 100, SkuID: 12, SKU: "SKU-B", Active: true},
		"SKU-C": {ID: 3, GoodsID: 200, SkuID: 13, SKU: "SKU-C", Active: true},
	}
}

func TestComputeDeltas_FlagsDivergence(t *testing.T) {
	t.Parallel()
	mirror := []models.MirrorEntry{
		{ProductID: 1, LocalStock: 10, RemoteStock: 10},
		{ProductID: 2, LocalStock: 5, RemoteStock: 3},
	}
	levels := []models.StockLevel{
		{SKU: "SKU-A", Stock: 10}, // matches remote -> no sync
		{SKU: "SKU-B", Stock: 7},  // diverges -> sync
		{SKU: "SKU-C", Stock: 4},  // absent from mirror -> sync from zero
		{SKU: "UNKNOWN", Stock: 9},
	}

	deltas := ComputeDeltas(mirror, levels, catalog())
	if len(deltas) != 3 {
		t.Fatalf("unknown SKUs must be dropped, got %d deltas", len(deltas))
	}

	byID := make(map[int64]models.SyncDelta)
	for _, d := range deltas {
		byID[d.EntityID] = d
	}
	if byID[1].NeedsSync {
		t.Fatalf("matching stock must not be flagged: %+v", byID[1])
	}
	if !byID[2].NeedsSync || byID[2].Current != 3 || byID[2].Target != 7 {
		t.Fatalf("divergent stock: %+v", byID[2])
	}
	if !byID[3].NeedsSync || byID[3].Current != 0 || byID[3].Target != 4 {
		t.Fatalf("entity absent from mirror: %+v", byID[3])
	}
	if byID[2].GroupKey != "100" || byID[3].GroupKey != "200" {
		t.Fatalf("group keys wrong: %+v / %+v", byID[2], byID[3])
	}
}

func TestComputeDeltas_Idempotent(t *testing.T) {
	t.Parallel()
	mirror := []models.MirrorEntry{{ProductID: 2, LocalStock: 5, RemoteStock: 3}}
	levels := []models.StockLevel{{SKU: "SKU-B", Stock: 7}}

	first := ComputeDeltas(mirror, levels, catalog())
	second := ComputeDeltas(mirror, levels, catalog())
	if len(first) != 1 || len(second) != 1 || first[0] != second[0] {
		t.Fatalf("unchanged inputs must produce the same delta set: %+v vs %+v", first, second)
	}
}

func TestPushDeltas_GroupFailureLeavesOthersSynced(t *testing.T) {
	t.Parallel()
	deltas := []models.SyncDelta{
		{EntityID: 1, GroupKey: "100", SkuID: 11, SKU: "SKU-A", Target: 5, NeedsSync: true},
		{EntityID: 2, GroupKey: "100", SkuID: 12, SKU: "SKU-B", Target: 7, NeedsSync: true},
		{EntityID: 3, GroupKey: "200", SkuID: 13, SKU: "SKU-C", Target: 2, NeedsSync: true},
		{EntityID: 4, GroupKey: "300", SkuID: 14, SKU: "SKU-D", Target: 9, NeedsSync: true},
	}

	var marked [][]models.SyncDelta
	push := func(ctx context.Context, key string, items []models.SyncDelta) error {
		if key == "200" {
			return errors.New("api rejected")
		}
		return nil
	}
	mark := func(ctx context.Context, items []models.SyncDelta) error {
		marked = append(marked, items)
		return nil
	}

	out, err := New(nil).PushDeltas(context.Background(), deltas, push, mark)
	if err != nil {
		t.Fatalf("PushDeltas: %v", err)
	}
	if out.Groups != 3 || out.FailedGroups != 1 {
		t.Fatalf("expected 3 groups with 1 failure, got %+v", out)
	}
	if out.Synced != 3 {
		t.Fatalf("confirmed entries from other groups must be synced, got %d", out.Synced)
	}
	if len(marked) != 2 {
		t.Fatalf("failed group must not be marked, marked=%d groups", len(marked))
	}
	for _, group := range marked {
		for _, d := range group {
			if d.GroupKey == "200" {
				t.Fatalf("group 200 must stay flagged: %+v", d)
			}
		}
	}
}

func TestPushDeltas_MarkFailureLeavesGroupFlagged(t *testing.T) {
	t.Parallel()
	deltas := []models.SyncDelta{
		{EntityID: 1, GroupKey: "100", SkuID: 11, Target: 5, NeedsSync: true},
	}

	push := func(ctx context.Context, key string, items []models.SyncDelta) error { return nil }
	mark := func(ctx context.Context, items []models.SyncDelta) error {
		return errors.New("db locked")
	}

	out, err := New(nil).PushDeltas(context.Background(), deltas, push, mark)
	if err != nil {
		t.Fatalf("PushDeltas: %v", err)
	}
	// Pushed but unconfirmed: the group counts as failed and stays pending
	// for the next cycle, where the idempotent push repeats it safely.
	if out.FailedGroups != 1 || out.Synced != 0 {
		t.Fatalf("unconfirmed group must not count as synced: %+v", out)
	}
}

func TestPushDeltas_SkipsEntriesWithoutGroupingData(t *testing.T) {
	t.Parallel()
	deltas := []models.SyncDelta{
		{EntityID: 1, GroupKey: "", SkuID: 11, Target: 5, NeedsSync: true},
		{EntityID: 2, GroupKey: "100", SkuID: 0, Target: 7, NeedsSync: true},
		{EntityID: 3, GroupKey: "100", SkuID: 13, Target: 2, NeedsSync: true},
	}

	var pushed []models.SyncDelta
	push := func(ctx context.Context, key string, items []models.SyncDelta) error {
		pushed = append(pushed, items...)
		return nil
	}
	mark := func(ctx context.Context, items []models.SyncDelta) error { return nil }

	out, err := New(nil).PushDeltas(context.Background(), deltas, push, mark)
	if err != nil {
		t.Fatalf("PushDeltas: %v", err)
	}
	if out.Skipped != 2 {
		t.Fatalf("expected 2 skipped entries, got %+v", out)
	}
	if len(pushed) != 1 || pushed[0].EntityID != 3 {
		t.Fatalf("only the complete entry may be pushed: %+v", pushed)
	}
}

func TestPushDeltas_PreservesFirstSeenGroupOrder(t *testing.T) {
	t.Parallel()
	deltas := []models.SyncDelta{
		{EntityID: 1, GroupKey: "300", SkuID: 1, NeedsSync: true},
		{EntityID: 2, GroupKey: "100", SkuID: 2, NeedsSync: true},
		{EntityID: 3, GroupKey: "300", SkuID: 3, NeedsSync: true},
	}

	var order []string
	push := func(ctx context.Context, key string, items []models.SyncDelta) error {
		order = append(order, key)
		return nil
	}
	mark := func(ctx context.Context, items []models.SyncDelta) error { return nil }

	if _, err := New(nil).PushDeltas(context.Background(), deltas, push, mark); err != nil {
		t.Fatalf("PushDeltas: %v", err)
	}
	if len(order) != 2 || order[0] != "300" || order[1] != "100" {
		t.Fatalf("groups must be pushed in first-seen order, got %v", order)
	}
}
