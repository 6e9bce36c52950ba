package queue_test

import (
	"context"
	"fmt"
	"testing"

	"bindery/internal/queue"
	"bindery/internal/testsupport"
)

func TestOpenInitializesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := store.NewJob(ctx, "/books/sample.acsm")
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected item ID to be assigned")
	}
	if item.RequestID == "" {
		t.Fatal("expected request ID to be assigned")
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", item.Status)
	}
	if item.Title != "Sample" {
		t.Fatalf("expected derived title, got %q", item.Title)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.RequestPath != "/books/sample.acsm" {
		t.Fatalf("unexpected fetched item: %#v", fetched)
	}
}

func TestUpdatePersistsJobFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewJob(t, store, "/books/moby.acsm")
	item.Title = "Moby Dick"
	item.Status = queue.StatusCompleted
	item.Format = "epub"
	item.OutputPath = "/library/Moby Dick.epub"
	item.RightsBuilt = true
	item.SetProgressComplete("Finalizing", "File fulfilled: Moby Dick.epub")
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Title != "Moby Dick" || fetched.Format != "epub" || !fetched.RightsBuilt {
		t.Fatalf("unexpected item after update: %#v", fetched)
	}
	if fetched.OutputPath != "/library/Moby Dick.epub" {
		t.Fatalf("unexpected output path: %q", fetched.OutputPath)
	}
	if fetched.ProgressPercent != 100 {
		t.Fatalf("expected progress 100, got %v", fetched.ProgressPercent)
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	stuck := []queue.Status{
		queue.StatusRequesting,
		queue.StatusParsing,
		queue.StatusBuildingRights,
		queue.StatusDownloading,
		queue.StatusClassifying,
		queue.StatusFinalizing,
	}
	var ids []int64
	for i, status := range stuck {
		item := testsupport.NewJob(t, store, fmt.Sprintf("/books/stuck-%d.acsm", i))
		item.Status = status
		if err := store.Update(ctx, item); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		ids = append(ids, item.ID)
	}
	completed := testsupport.NewJob(t, store, "/books/done.acsm")
	completed.Status = queue.StatusCompleted
	if err := store.Update(ctx, completed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	count, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	if int(count) != len(stuck) {
		t.Fatalf("expected %d items reset, got %d", len(stuck), count)
	}

	for _, id := range ids {
		updated, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if updated.Status != queue.StatusPending {
			t.Fatalf("expected pending, got %s", updated.Status)
		}
	}
	doneAfter, err := store.GetByID(ctx, completed.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if doneAfter.Status != queue.StatusCompleted {
		t.Fatalf("completed item must not be reset, got %s", doneAfter.Status)
	}
}

func TestRetryFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	failedA := testsupport.NewJob(t, store, "/books/a.acsm")
	failedA.SetFailed("Fulfillment failed: E_AUTH")
	if err := store.Update(ctx, failedA); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	failedB := testsupport.NewJob(t, store, "/books/b.acsm")
	failedB.SetFailed("Download failed with error 503")
	if err := store.Update(ctx, failedB); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	count, err := store.RetryFailed(ctx, failedA.ID)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 item retried, got %d", count)
	}

	retried, err := store.GetByID(ctx, failedA.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if retried.Status != queue.StatusPending || retried.ErrorMessage != "" {
		t.Fatalf("unexpected retried item: %#v", retried)
	}

	untouched, err := store.GetByID(ctx, failedB.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if untouched.Status != queue.StatusFailed {
		t.Fatalf("expected other item untouched, got %s", untouched.Status)
	}

	count, err = store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected remaining failed item retried, got %d", count)
	}
}

func TestNextForStatusesReturnsOldest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.NewJob(t, store, "/books/first.acsm")
	testsupport.NewJob(t, store, "/books/second.acsm")

	next, err := store.NextForStatuses(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("NextForStatuses failed: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("expected oldest pending item, got %#v", next)
	}

	none, err := store.NextForStatuses(ctx, queue.StatusCompleted)
	if err != nil {
		t.Fatalf("NextForStatuses failed: %v", err)
	}
	if none != nil {
		t.Fatalf("expected no completed items, got %#v", none)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewJob(t, store, "/books/pending.acsm")
	done := testsupport.NewJob(t, store, "/books/done.acsm")
	done.Status = queue.StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 items, got %d", len(all))
	}

	completedOnly, err := store.List(ctx, queue.StatusCompleted)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(completedOnly) != 1 || completedOnly[0].ID != done.ID {
		t.Fatalf("unexpected filtered list: %#v", completedOnly)
	}
}

func TestClearAndRemove(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	keep := testsupport.NewJob(t, store, "/books/keep.acsm")
	done := testsupport.NewJob(t, store, "/books/done.acsm")
	done.Status = queue.StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	cleared, err := store.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("ClearCompleted failed: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("expected 1 cleared, got %d", cleared)
	}

	removed, err := store.Remove(ctx, keep.ID)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !removed {
		t.Fatal("expected removal to report success")
	}

	missing, err := store.Remove(ctx, keep.ID)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if missing {
		t.Fatal("expected second removal to report no rows")
	}
}

func TestHealthCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewJob(t, store, "/books/pending.acsm")
	inflight := testsupport.NewJob(t, store, "/books/inflight.acsm")
	inflight.Status = queue.StatusDownloading
	if err := store.Update(ctx, inflight); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	failed := testsupport.NewJob(t, store, "/books/failed.acsm")
	failed.SetFailed("Unsupported file type")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 3 || health.Pending != 1 || health.Processing != 1 || health.Failed != 1 {
		t.Fatalf("unexpected health summary: %#v", health)
	}
}

func TestCheckHealthReportsSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists {
		t.Fatalf("unexpected database health: %#v", health)
	}
	if len(health.MissingColumns) != 0 {
		t.Fatalf("missing columns: %v", health.MissingColumns)
	}
	if !health.IntegrityCheck {
		t.Fatal("expected integrity check to pass")
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := queue.ParseStatus(" Building_Rights "); !ok || status != queue.StatusBuildingRights {
		t.Fatalf("ParseStatus = %q, %v", status, ok)
	}
	if _, ok := queue.ParseStatus("ripping"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}
