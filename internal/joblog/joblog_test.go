package joblog

import (
	"context"
	"strings"
	"testing"
	"time"

	"marketsync/internal/models"
)

type captureStore struct {
	entries []models.LogEntry
}

func (s *captureStore) Append(ctx context.Context, e models.LogEntry) error {
	s.entries = append(s.entries, e)
	return nil
}
func (s *captureStore) Recent(ctx context.Context, jobID string, limit int) ([]models.LogEntry, error) {
	return nil, nil
}
func (s *captureStore) List(ctx context.Context, f models.LogFilter) ([]models.LogEntry, error) {
	return nil, nil
}
func (s *captureStore) Stats(ctx context.Context, jobID string, days int) (models.LogStats, error) {
	return models.LogStats{}, nil
}
func (s *captureStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}

func TestJobLogger_StampsJobIdentity(t *testing.T) {
	t.Parallel()
	store := &captureStore{}
	jl := New(store, nil, "sync_orders_1", "sync_orders")

	ctx := context.Background()
	jl.Started(ctx)
	jl.Infof(ctx, "fetched %d orders", 3)
	jl.Warnf(ctx, "skipping order %s", "SN-9")
	jl.Errorf(ctx, "push failed")

	if len(store.entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(store.entries))
	}
	for _, e := range store.entries {
		if e.JobID != "sync_orders_1" || e.JobType != "sync_orders" {
			t.Fatalf("entry missing job identity: %+v", e)
		}
	}
	if store.entries[1].Level != models.LogInfo ||
		store.entries[2].Level != models.LogWarning ||
		store.entries[3].Level != models.LogError {
		t.Fatalf("levels wrong: %+v", store.entries)
	}
}

func TestJobLogger_FinishedSuccess(t *testing.T) {
	t.Parallel()
	store := &captureStore{}
	jl := New(store, nil, "j1", "sync_inventory")

	jl.Finished(context.Background(), true, 1500*time.Millisecond, nil)

	e := store.entries[0]
	if e.Status != string(models.StateSuccess) {
		t.Fatalf("expected SUCCESS status, got %q", e.Status)
	}
	if e.Duration == nil || *e.Duration != 1.5 {
		t.Fatalf("duration wrong: %+v", e.Duration)
	}
	if e.ErrorText != "" {
		t.Fatalf("success entry must not carry error text: %q", e.ErrorText)
	}
}

func TestJobLogger_FinishedFailure(t *testing.T) {
	t.Parallel()
	store := &captureStore{}
	jl := New(store, nil, "j1", "sync_inventory")

	jl.Finished(context.Background(), false, time.Second, context.DeadlineExceeded)

	e := store.entries[0]
	if e.Status != string(models.StateFailed) || e.Level != models.LogError {
		t.Fatalf("failure entry wrong: %+v", e)
	}
	if !strings.Contains(e.Message, "FAILED") || e.ErrorText == "" {
		t.Fatalf("failure detail missing: %+v", e)
	}
}
