package offline_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/config"
	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/encryption"
	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/model"
	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/offline"
	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/testutil"
)

// fixture bundles a service wired to in-memory fakes.
type fixture struct {
	svc     *offline.Service
	docs    *testutil.MemoryDocumentStore
	tiles   *testutil.MemoryTileStore
	outbox  *testutil.MemoryOutbox
	tracker *testutil.MemoryTracker
	fetcher *testutil.StubTileFetcher
	urls    *testutil.StubBlobURLProvider
	clock   *testutil.StubClock
	sleeper *testutil.StubSleeper
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		docs:    testutil.NewMemoryDocumentStore(),
		tiles:   testutil.NewMemoryTileStore(),
		outbox:  testutil.NewMemoryOutbox(),
		tracker: testutil.NewMemoryTracker(),
		fetcher: testutil.NewStubTileFetcher(),
		urls:    testutil.NewStubBlobURLProvider(),
		clock:   testutil.FixedClock(),
	}
	f.sleeper = &testutil.StubSleeper{Clock: f.clock}
	f.svc = offline.NewService(f.docs, f.tiles, f.outbox, f.tracker, f.fetcher, f.urls,
		encryption.NewTestEncryptor(), offline.NewNopLogger(), f.clock, f.sleeper,
		offline.Options{UserID: "user-1", TileDelay: time.Millisecond})
	return f
}

func sampleDoc(id string) *model.OfflineDocument {
	return &model.OfflineDocument{
		ID:          id,
		FileName:    id + ".pdf",
		FileType:    "pdf",
		FileSize:    9,
		BlobData:    []byte("plaintext"),
		LastUpdated: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		SourceURL:   "https://files.example.com/" + id,
		TripID:      "trip-1",
	}
}

func TestService_SaveDocument(t *testing.T) {
	t.Parallel()

	t.Run("round trips the blob", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ctx := context.Background()

		if err := f.svc.SaveDocument(ctx, sampleDoc("doc-1")); err != nil {
			t.Fatalf("SaveDocument() error = %v", err)
		}

		got, err := f.svc.GetDocument(ctx, "doc-1")
		if err != nil {
			t.Fatalf("GetDocument() error = %v", err)
		}
		if got == nil {
			t.Fatal("document not found after save")
		}
		if !bytes.Equal(got.BlobData, []byte("plaintext")) {
			t.Errorf("BlobData = %q, want %q", got.BlobData, "plaintext")
		}
		if !got.SavedAt.Equal(f.clock.Now()) {
			t.Errorf("SavedAt = %v, want clock time %v", got.SavedAt, f.clock.Now())
		}
	})

	t.Run("stores the blob sealed", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ctx := context.Background()

		if err := f.svc.SaveDocument(ctx, sampleDoc("doc-1")); err != nil {
			t.Fatalf("SaveDocument() error = %v", err)
		}

		raw, err := f.docs.Get(ctx, "doc-1")
		if err != nil {
			t.Fatalf("raw Get() error = %v", err)
		}
		if bytes.Equal(raw.BlobData, []byte("plaintext")) {
			t.Error("stored blob equals plaintext, expected sealed bytes")
		}
	})

	t.Run("works with keys generated on a fresh install", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ctx := context.Background()

		// Wire the service exactly as a first run does: default config,
		// keys generated by config init, encryptor built from config.
		cfg := config.NewConfig("user-1", t.TempDir())
		if err := encryption.EnsureKeys(cfg.Encryption); err != nil {
			t.Fatalf("EnsureKeys() error = %v", err)
		}
		enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
		if err != nil {
			t.Fatalf("NewEncryptorFromConfig() error = %v", err)
		}
		svc := offline.NewService(f.docs, f.tiles, f.outbox, f.tracker, f.fetcher, f.urls,
			enc, offline.NewNopLogger(), f.clock, f.sleeper,
			offline.Options{UserID: "user-1"})

		if err := svc.SaveDocument(ctx, sampleDoc("doc-1")); err != nil {
			t.Fatalf("SaveDocument() error = %v", err)
		}
		got, err := svc.GetDocument(ctx, "doc-1")
		if err != nil {
			t.Fatalf("GetDocument() error = %v", err)
		}
		if got == nil || !bytes.Equal(got.BlobData, []byte("plaintext")) {
			t.Fatalf("got %+v, want plaintext round trip", got)
		}
	})

	t.Run("save is an idempotent upsert", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ctx := context.Background()

		if err := f.svc.SaveDocument(ctx, sampleDoc("doc-1")); err != nil {
			t.Fatalf("SaveDocument() error = %v", err)
		}
		updated := sampleDoc("doc-1")
		updated.BlobData = []byte("newer version")
		updated.FileSize = int64(len(updated.BlobData))
		if err := f.svc.SaveDocument(ctx, updated); err != nil {
			t.Fatalf("SaveDocument() error = %v", err)
		}

		docs, err := f.svc.ListDocuments(ctx)
		if err != nil {
			t.Fatalf("ListDocuments() error = %v", err)
		}
		if len(docs) != 1 {
			t.Fatalf("got %d documents, want 1", len(docs))
		}
		if !bytes.Equal(docs[0].BlobData, []byte("newer version")) {
			t.Errorf("BlobData = %q, want %q", docs[0].BlobData, "newer version")
		}
	})

	t.Run("enqueues a track intent", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ctx := context.Background()

		if err := f.svc.SaveDocument(ctx, sampleDoc("doc-1")); err != nil {
			t.Fatalf("SaveDocument() error = %v", err)
		}

		pending, err := f.svc.PendingIntents(ctx)
		if err != nil {
			t.Fatalf("PendingIntents() error = %v", err)
		}
		if pending != 1 {
			t.Fatalf("pending = %d, want 1", pending)
		}

		if _, err := f.svc.ProcessOutbox(ctx); err != nil {
			t.Fatalf("ProcessOutbox() error = %v", err)
		}
		rows := f.tracker.Rows()
		if len(rows) != 1 {
			t.Fatalf("got %d registry rows, want 1", len(rows))
		}
		rec := rows[0]
		if rec.UserID != "user-1" || rec.ResourceID != "doc-1" {
			t.Errorf("row = (%q, %q), want (user-1, doc-1)", rec.UserID, rec.ResourceID)
		}
		if rec.ResourceType != model.ResourceDocuments {
			t.Errorf("ResourceType = %q, want %q", rec.ResourceType, model.ResourceDocuments)
		}
		if rec.CacheSize != 9 {
			t.Errorf("CacheSize = %d, want 9", rec.CacheSize)
		}
	})

	t.Run("rejects empty id", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		doc := sampleDoc("")
		if err := f.svc.SaveDocument(context.Background(), doc); err == nil {
			t.Fatal("expected error for empty id")
		}
	})
}

func TestService_GetDocument_Missing(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	got, err := f.svc.GetDocument(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("GetDocument() error = %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil for uncached id", got)
	}

	exists, err := f.svc.DocumentExists(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("DocumentExists() error = %v", err)
	}
	if exists {
		t.Error("DocumentExists = true, want false")
	}
}

func TestService_DeleteDocument(t *testing.T) {
	t.Parallel()

	t.Run("removes the document and untracks", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ctx := context.Background()

		if err := f.svc.SaveDocument(ctx, sampleDoc("doc-1")); err != nil {
			t.Fatalf("SaveDocument() error = %v", err)
		}
		if _, err := f.svc.ProcessOutbox(ctx); err != nil {
			t.Fatalf("ProcessOutbox() error = %v", err)
		}

		if err := f.svc.DeleteDocument(ctx, "doc-1"); err != nil {
			t.Fatalf("DeleteDocument() error = %v", err)
		}
		if _, err := f.svc.ProcessOutbox(ctx); err != nil {
			t.Fatalf("ProcessOutbox() error = %v", err)
		}

		if got, _ := f.svc.GetDocument(ctx, "doc-1"); got != nil {
			t.Error("document still cached after delete")
		}
		if rows := f.tracker.Rows(); len(rows) != 0 {
			t.Errorf("got %d registry rows after untrack, want 0", len(rows))
		}
	})

	t.Run("deleting an unknown id is a no-op", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		if err := f.svc.DeleteDocument(context.Background(), "ghost"); err != nil {
			t.Fatalf("DeleteDocument() error = %v", err)
		}
	})
}

func TestService_StorageUsage(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	a := sampleDoc("doc-a")
	a.FileSize = 100
	b := sampleDoc("doc-b")
	b.FileSize = 250
	for _, doc := range []*model.OfflineDocument{a, b} {
		if err := f.svc.SaveDocument(ctx, doc); err != nil {
			t.Fatalf("SaveDocument() error = %v", err)
		}
	}

	usage, err := f.svc.StorageUsage(ctx)
	if err != nil {
		t.Fatalf("StorageUsage() error = %v", err)
	}
	if usage != 350 {
		t.Errorf("usage = %d, want 350", usage)
	}
}

func TestService_ClearAllDocuments(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	for _, id := range []string{"doc-a", "doc-b", "doc-c"} {
		if err := f.svc.SaveDocument(ctx, sampleDoc(id)); err != nil {
			t.Fatalf("SaveDocument() error = %v", err)
		}
	}
	if _, err := f.svc.ProcessOutbox(ctx); err != nil {
		t.Fatalf("ProcessOutbox() error = %v", err)
	}
	if rows := f.tracker.Rows(); len(rows) != 3 {
		t.Fatalf("got %d registry rows before clear, want 3", len(rows))
	}

	n, err := f.svc.ClearAllDocuments(ctx)
	if err != nil {
		t.Fatalf("ClearAllDocuments() error = %v", err)
	}
	if n != 3 {
		t.Errorf("cleared = %d, want 3", n)
	}

	if _, err := f.svc.ProcessOutbox(ctx); err != nil {
		t.Fatalf("ProcessOutbox() error = %v", err)
	}

	docs, _ := f.svc.ListDocuments(ctx)
	if len(docs) != 0 {
		t.Errorf("got %d documents after clear, want 0", len(docs))
	}
	if rows := f.tracker.Rows(); len(rows) != 0 {
		t.Errorf("got %d registry rows after clear, want 0", len(rows))
	}
}

func TestService_ViewableURL(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	url, err := f.svc.ViewableURL("ticket.pdf", []byte("bytes"))
	if err != nil {
		t.Fatalf("ViewableURL() error = %v", err)
	}
	if url == "" {
		t.Fatal("got empty url")
	}

	if err := f.svc.Revoke(url); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if len(f.urls.Revoked) != 1 || f.urls.Revoked[0] != url {
		t.Errorf("Revoked = %v, want [%s]", f.urls.Revoked, url)
	}
}
