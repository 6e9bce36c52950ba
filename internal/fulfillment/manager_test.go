package fulfillment_test

import (
	"context"
	"testing"
	"time"

	"bindery/internal/fulfillment"
	"bindery/internal/queue"
	"bindery/internal/testsupport"
)

type notifierSpy struct {
	completed []string
	errors    []string
}

func (n *notifierSpy) NotifyAuthorized(ctx context.Context, accountID string) error { return nil }

func (n *notifierSpy) NotifyFulfillmentCompleted(ctx context.Context, title, outputPath string) error {
	n.completed = append(n.completed, title)
	return nil
}

func (n *notifierSpy) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if err != nil {
		n.errors = append(n.errors, err.Error())
	}
	return nil
}

func (n *notifierSpy) TestNotification(ctx context.Context) error { return nil }

func waitForStatus(t *testing.T, store *queue.Store, id int64, want queue.Status) *queue.Item {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		item, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if item != nil && item.Status == want {
			return item
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("item %d never reached status %s", id, want)
	return nil
}

func TestManagerProcessesQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.QueuePollInterval = 1
	store := testsupport.MustOpenStore(t, cfg)

	server := newRightsServer(t, serverOptions{title: "Moby Dick", content: epubBytes(t)})
	acsmPath := writeRequestArtifact(t, t.TempDir(), server.URL)
	job := testsupport.NewJob(t, store, acsmPath)

	notifier := &notifierSpy{}
	manager := fulfillment.NewManager(cfg, store, newFulfiller(t, cfg, nil), notifier, nil)
	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer manager.Stop()

	item := waitForStatus(t, store, job.ID, queue.StatusCompleted)
	if item.Title != "Moby Dick" || item.Format != "epub" || !item.RightsBuilt {
		t.Fatalf("unexpected completed item: %#v", item)
	}
	if item.OutputPath == "" {
		t.Fatal("expected output path recorded")
	}
	if item.ProgressPercent != 100 {
		t.Fatalf("progress = %v", item.ProgressPercent)
	}

	manager.Stop()
	if len(notifier.completed) != 1 || notifier.completed[0] != "Moby Dick" {
		t.Fatalf("notifications: %#v", notifier)
	}
}

func TestManagerPersistsFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.QueuePollInterval = 1
	store := testsupport.MustOpenStore(t, cfg)

	server := newRightsServer(t, serverOptions{replyBody: `<error xmlns="http://ns.adobe.com/adept" data="E_AUTH_FAILED"/>`})
	acsmPath := writeRequestArtifact(t, t.TempDir(), server.URL)
	job := testsupport.NewJob(t, store, acsmPath)

	notifier := &notifierSpy{}
	manager := fulfillment.NewManager(cfg, store, newFulfiller(t, cfg, nil), notifier, nil)
	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer manager.Stop()

	item := waitForStatus(t, store, job.ID, queue.StatusFailed)
	if item.ErrorMessage != "Fulfillment failed: E_AUTH_FAILED" {
		t.Fatalf("error message = %q", item.ErrorMessage)
	}

	manager.Stop()
	if len(notifier.errors) != 1 {
		t.Fatalf("expected one error notification, got %#v", notifier.errors)
	}
}

func TestManagerRejectsDoubleStart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	manager := fulfillment.NewManager(cfg, store, newFulfiller(t, cfg, nil), &notifierSpy{}, nil)

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer manager.Stop()

	if err := manager.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}
}
