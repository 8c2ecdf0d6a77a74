package offline_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/model"
)

func TestService_ProcessOutbox(t *testing.T) {
	t.Parallel()

	t.Run("failed delivery is rescheduled with backoff", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ctx := context.Background()

		if err := f.svc.SaveDocument(ctx, sampleDoc("doc-1")); err != nil {
			t.Fatalf("SaveDocument() error = %v", err)
		}

		f.tracker.Err = fmt.Errorf("registry down")
		delivered, err := f.svc.ProcessOutbox(ctx)
		if err != nil {
			t.Fatalf("ProcessOutbox() error = %v", err)
		}
		if delivered != 0 {
			t.Fatalf("delivered = %d, want 0", delivered)
		}

		pending, _ := f.svc.PendingIntents(ctx)
		if pending != 1 {
			t.Fatalf("pending = %d, want 1 after failure", pending)
		}

		// Not due yet: the retry is scheduled 2s out.
		delivered, err = f.svc.ProcessOutbox(ctx)
		if err != nil {
			t.Fatalf("ProcessOutbox() error = %v", err)
		}
		if delivered != 0 {
			t.Fatalf("delivered = %d before backoff elapsed, want 0", delivered)
		}

		entries, err := f.outbox.Due(ctx, f.clock.Now().Add(time.Hour), 10)
		if err != nil {
			t.Fatalf("Due() error = %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("got %d entries, want 1", len(entries))
		}
		if entries[0].Attempts != 1 {
			t.Errorf("Attempts = %d, want 1", entries[0].Attempts)
		}
		wantNext := f.clock.Now().Add(2 * time.Second)
		if !entries[0].NextAttemptAt.Equal(wantNext) {
			t.Errorf("NextAttemptAt = %v, want %v", entries[0].NextAttemptAt, wantNext)
		}

		// Registry recovers; after the backoff window the intent delivers.
		f.tracker.Err = nil
		f.clock.Advance(3 * time.Second)
		delivered, err = f.svc.ProcessOutbox(ctx)
		if err != nil {
			t.Fatalf("ProcessOutbox() error = %v", err)
		}
		if delivered != 1 {
			t.Fatalf("delivered = %d after recovery, want 1", delivered)
		}
		if pending, _ := f.svc.PendingIntents(ctx); pending != 0 {
			t.Errorf("pending = %d after delivery, want 0", pending)
		}
	})

	t.Run("backoff doubles per attempt", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ctx := context.Background()

		if err := f.svc.SaveDocument(ctx, sampleDoc("doc-1")); err != nil {
			t.Fatalf("SaveDocument() error = %v", err)
		}
		f.tracker.Err = fmt.Errorf("registry down")

		// First failure: retry in 2s. Second failure: retry in 4s.
		if _, err := f.svc.ProcessOutbox(ctx); err != nil {
			t.Fatalf("ProcessOutbox() error = %v", err)
		}
		f.clock.Advance(2 * time.Second)
		start := f.clock.Now()
		if _, err := f.svc.ProcessOutbox(ctx); err != nil {
			t.Fatalf("ProcessOutbox() error = %v", err)
		}

		entries, _ := f.outbox.Due(ctx, f.clock.Now().Add(time.Hour), 10)
		if len(entries) != 1 {
			t.Fatalf("got %d entries, want 1", len(entries))
		}
		if entries[0].Attempts != 2 {
			t.Errorf("Attempts = %d, want 2", entries[0].Attempts)
		}
		if !entries[0].NextAttemptAt.Equal(start.Add(4 * time.Second)) {
			t.Errorf("NextAttemptAt = %v, want %v", entries[0].NextAttemptAt, start.Add(4*time.Second))
		}
	})

	t.Run("opposing intents collapse", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ctx := context.Background()

		// Save then delete before anything is delivered: the track intent
		// must not survive.
		if err := f.svc.SaveDocument(ctx, sampleDoc("doc-1")); err != nil {
			t.Fatalf("SaveDocument() error = %v", err)
		}
		if err := f.svc.DeleteDocument(ctx, "doc-1"); err != nil {
			t.Fatalf("DeleteDocument() error = %v", err)
		}

		pending, _ := f.svc.PendingIntents(ctx)
		if pending != 1 {
			t.Fatalf("pending = %d, want 1 after collapse", pending)
		}

		if _, err := f.svc.ProcessOutbox(ctx); err != nil {
			t.Fatalf("ProcessOutbox() error = %v", err)
		}
		if rows := f.tracker.Rows(); len(rows) != 0 {
			t.Errorf("got %d registry rows, want 0 — track must not deliver", len(rows))
		}
	})

	t.Run("collapse is scoped to the resource type", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ctx := context.Background()

		// A document and a map can share an id. Deleting the document must
		// not cancel the map's track intent.
		if err := f.svc.SaveDocument(ctx, sampleDoc("shared")); err != nil {
			t.Fatalf("SaveDocument() error = %v", err)
		}
		cfg := smallConfig()
		cfg.TripID = "shared"
		if _, err := f.svc.DownloadMap(ctx, cfg, "", nil); err != nil {
			t.Fatalf("DownloadMap() error = %v", err)
		}
		if err := f.svc.DeleteDocument(ctx, "shared"); err != nil {
			t.Fatalf("DeleteDocument() error = %v", err)
		}

		entries, err := f.outbox.Due(ctx, f.clock.Now(), 10)
		if err != nil {
			t.Fatalf("Due() error = %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("got %d entries, want map track plus document untrack", len(entries))
		}
		if entries[0].ResourceType != model.ResourceMaps || entries[0].Action != model.OutboxTrack {
			t.Errorf("entry 0 = (%q, %q), want maps track", entries[0].ResourceType, entries[0].Action)
		}
		if entries[1].ResourceType != model.ResourceDocuments || entries[1].Action != model.OutboxUntrack {
			t.Errorf("entry 1 = (%q, %q), want documents untrack", entries[1].ResourceType, entries[1].Action)
		}
	})

	t.Run("empty outbox delivers nothing", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		delivered, err := f.svc.ProcessOutbox(context.Background())
		if err != nil {
			t.Fatalf("ProcessOutbox() error = %v", err)
		}
		if delivered != 0 {
			t.Errorf("delivered = %d, want 0", delivered)
		}
	})
}
