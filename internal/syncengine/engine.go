// Package syncengine decides what must be pushed downstream and safely
// acknowledges pushes.
//
// Precondition: push operations are idempotent absolute-target calls. A
// crash between a confirmed push and MarkSynced leaves the group flagged
// and it will be re-pushed on the next cycle; idempotent downstream
// semantics make that retry safe. The engine cannot guarantee this itself.
package syncengine

import (
	"context"
	"strconv"

	"marketsync/internal/joblog"
	"marketsync/internal/models"
)

// PushFunc sends one group's deltas downstream.
type PushFunc func(ctx context.Context, groupKey string, deltas []models.SyncDelta) error

// MarkFunc records a confirmed push locally: clears needs_sync and
// advances the mirrored value to the pushed target, as one batch.
type MarkFunc func(ctx context.Context, deltas []models.SyncDelta) error

// Outcome summarizes one push cycle.
type Outcome struct {
	Groups       int `json:"groups"`
	FailedGroups int `json:"failed_groups"`
	Synced       int `json:"synced"`
	Skipped      int `json:"skipped"` // entries missing grouping data; never retried automatically
}

// ComputeDeltas compares authoritative stock readings against the cached
// mirror. Idempotent: unchanged inputs produce the same delta set.
// Authoritative entities absent from the mirror become new deltas with a
// zero mirrored value.
func ComputeDeltas(mirror []models.MirrorEntry, authoritative []models.StockLevel, bySKU map[string]models.Product) []models.SyncDelta {
	byProduct := make(map[int64]models.MirrorEntry, len(mirror))
	for _, m := range mirror {
		byProduct[m.ProductID] = m
	}

	deltas := make([]models.SyncDelta, 0, len(authoritative))
	for _, lv := range authoritative {
		p, ok := bySKU[lv.SKU]
		if !ok {
			continue // not a marketplace-listed SKU
		}
		d := models.SyncDelta{
			EntityID: p.ID,
			SkuID:    p.SkuID,
			SKU:      p.SKU,
			Target:   lv.Stock,
		}
		if p.GoodsID != 0 {
			d.GroupKey = strconv.FormatInt(p.GoodsID, 10)
		}
		if m, ok := byProduct[p.ID]; ok {
			d.Current = m.RemoteStock
		}
		d.NeedsSync = d.Current != d.Target
		deltas = append(deltas, d)
	}
	return deltas
}

// Engine pushes pending deltas in groups and reconciles local state only
// on confirmed success.
type Engine struct {
	log *joblog.JobLogger
}

func New(log *joblog.JobLogger) *Engine {
	return &Engine{log: log}
}

// PushDeltas groups deltas by GroupKey in first-seen order and invokes
// push once per group. Confirmed groups are marked synced atomically;
// failed groups are left untouched for the next cycle. Entries without a
// usable group key or SKU id are excluded and surfaced as a warning.
func (e *Engine) PushDeltas(ctx context.Context, deltas []models.SyncDelta, push PushFunc, mark MarkFunc) (Outcome, error) {
	var out Outcome

	groups := make(map[string][]models.SyncDelta)
	var order []string
	for _, d := range deltas {
		if d.GroupKey == "" || d.SkuID == 0 {
			out.Skipped++
			continue
		}
		if _, seen := groups[d.GroupKey]; !seen {
			order = append(order, d.GroupKey)
		}
		groups[d.GroupKey] = append(groups[d.GroupKey], d)
	}
	out.Groups = len(order)

	if out.Skipped > 0 && e.log != nil {
		e.log.Warnf(ctx, "skipping %d entries without grouping data; these will not be retried", out.Skipped)
	}
	if out.Groups == 0 {
		if e.log != nil && out.Skipped == 0 {
			e.log.Infof(ctx, "no deltas to sync")
		}
		return out, nil
	}

	for _, key := range order {
		items := groups[key]
		if err := push(ctx, key, items); err != nil {
			out.FailedGroups++
			if e.log != nil {
				e.log.Errorf(ctx, "push failed for group %s (%d entries): %v", key, len(items), err)
			}
			continue
		}
		if err := mark(ctx, items); err != nil {
			// Pushed but not reconciled: the group stays flagged and the
			// idempotent push precondition covers the retry.
			out.FailedGroups++
			if e.log != nil {
				e.log.Errorf(ctx, "mark-synced failed for group %s: %v", key, err)
			}
			continue
		}
		out.Synced += len(items)
		if e.log != nil {
			e.log.Infof(ctx, "group %s: %d entries synced", key, len(items))
		}
	}
	return out, nil
}
