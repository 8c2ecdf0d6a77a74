package offline

import (
	"bytes"
	"context"
	"fmt"

	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/model"
)

// SaveDocument caches a document for offline use. The write is an
// idempotent upsert keyed by doc.ID. A track intent is enqueued afterwards;
// enqueue failure is logged and swallowed so the local save stands — the
// user-visible "available offline" promise must hold even when registry
// bookkeeping does not.
func (s *Service) SaveDocument(ctx context.Context, doc *model.OfflineDocument) error {
	if doc.ID == "" {
		return fmt.Errorf("document id is required")
	}

	stored := *doc
	stored.SavedAt = s.clock.Now()

	if s.enc != nil {
		sealed, err := s.seal(doc.BlobData)
		if err != nil {
			return fmt.Errorf("encrypting document blob: %w", err)
		}
		stored.BlobData = sealed
	}

	if err := s.docs.Put(ctx, &stored); err != nil {
		return fmt.Errorf("saving document: %w", err)
	}

	s.enqueue(ctx, &model.OutboxEntry{
		Action:       model.OutboxTrack,
		ResourceID:   doc.ID,
		ResourceType: model.ResourceDocuments,
		TripID:       doc.TripID,
		CacheSize:    doc.FileSize,
	})

	s.logger.Info("document cached", "id", doc.ID, "name", doc.FileName, "size", doc.FileSize)
	s.warnIfOverLimit(ctx)
	return nil
}

// GetDocument returns the cached document, or nil if the id is not cached.
// A missing id is not an error.
func (s *Service) GetDocument(ctx context.Context, id string) (*model.OfflineDocument, error) {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading document: %w", err)
	}
	if doc == nil {
		return nil, nil
	}
	if err := s.openDoc(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// DocumentExists reports whether the document is cached.
func (s *Service) DocumentExists(ctx context.Context, id string) (bool, error) {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return false, fmt.Errorf("checking document: %w", err)
	}
	return doc != nil, nil
}

// DeleteDocument removes a cached document and enqueues an untrack intent.
// Deleting an unknown id is a no-op.
func (s *Service) DeleteDocument(ctx context.Context, id string) error {
	if err := s.docs.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}

	s.enqueue(ctx, &model.OutboxEntry{
		Action:       model.OutboxUntrack,
		ResourceID:   id,
		ResourceType: model.ResourceDocuments,
	})

	s.logger.Info("document removed from cache", "id", id)
	return nil
}

// ListDocuments returns every cached document with plaintext blobs.
func (s *Service) ListDocuments(ctx context.Context) ([]*model.OfflineDocument, error) {
	docs, err := s.docs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	for _, doc := range docs {
		if err := s.openDoc(doc); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

// StorageUsage returns the total size of cached document bytes as reported
// at save time.
func (s *Service) StorageUsage(ctx context.Context) (int64, error) {
	docs, err := s.docs.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing documents: %w", err)
	}
	var total int64
	for _, doc := range docs {
		total += doc.FileSize
	}
	return total, nil
}

// ClearAllDocuments removes every cached document, then enqueues one
// untrack intent per record. The registry has no bulk-untrack primitive.
func (s *Service) ClearAllDocuments(ctx context.Context) (int, error) {
	docs, err := s.docs.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing documents: %w", err)
	}

	if err := s.docs.DeleteAll(ctx); err != nil {
		return 0, fmt.Errorf("clearing documents: %w", err)
	}

	for _, doc := range docs {
		s.enqueue(ctx, &model.OutboxEntry{
			Action:       model.OutboxUntrack,
			ResourceID:   doc.ID,
			ResourceType: model.ResourceDocuments,
		})
	}

	s.logger.Info("document cache cleared", "count", len(docs))
	return len(docs), nil
}

// ViewableURL wraps a blob into a transient local handle. The caller must
// revoke it explicitly via Revoke.
func (s *Service) ViewableURL(name string, data []byte) (string, error) {
	return s.urls.ViewableURL(name, data)
}

// Revoke releases a handle returned by ViewableURL.
func (s *Service) Revoke(url string) error {
	return s.urls.Revoke(url)
}

// enqueue records a registry intent. Failures are logged and swallowed:
// tracking is a secondary effect and must never fail a primary operation.
func (s *Service) enqueue(ctx context.Context, entry *model.OutboxEntry) {
	entry.EnqueuedAt = s.clock.Now()
	entry.NextAttemptAt = entry.EnqueuedAt
	if err := s.outbox.Enqueue(ctx, entry); err != nil {
		s.logger.Warn("failed to enqueue registry intent", "action", entry.Action, "resource", entry.ResourceID, "error", err)
	}
}

// warnIfOverLimit logs when cached documents exceed the configured size
// limit. The limit is advisory: nothing is evicted.
func (s *Service) warnIfOverLimit(ctx context.Context) {
	if s.opts.CacheSizeLimit <= 0 {
		return
	}
	usage, err := s.StorageUsage(ctx)
	if err != nil {
		return
	}
	if usage > s.opts.CacheSizeLimit {
		s.logger.Warn("document cache exceeds configured size limit", "usage", usage, "limit", s.opts.CacheSizeLimit)
	}
}

func (s *Service) seal(plain []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.enc.Encrypt(bytes.NewReader(plain), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// openDoc decrypts the blob in place when encryption is configured.
func (s *Service) openDoc(doc *model.OfflineDocument) error {
	if s.enc == nil {
		return nil
	}
	var buf bytes.Buffer
	if err := s.enc.Decrypt(bytes.NewReader(doc.BlobData), &buf); err != nil {
		return fmt.Errorf("decrypting document blob: %w", err)
	}
	doc.BlobData = buf.Bytes()
	return nil
}
