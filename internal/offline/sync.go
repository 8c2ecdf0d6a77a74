package offline

import (
	"context"
	"fmt"
	"time"

	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/model"
)

// ResolvedDocument is the source's current view of a document, as reported
// by a caller-supplied resolver. The reconciler never fetches directly.
type ResolvedDocument struct {
	LastUpdated time.Time
	BlobData    []byte
	SourceURL   string
}

// ResolverFunc reports the source state of a document. Returning (nil, nil)
// means the source no longer has the document.
type ResolverFunc func(ctx context.Context, id string) (*ResolvedDocument, error)

// SyncResult lists the documents refreshed and the documents that failed
// during a sweep.
type SyncResult struct {
	Updated []string
	Errors  []string
}

// Reconcile sweeps every cached document against the resolver. A document
// is re-saved (blob, metadata, and registry tracking refreshed) only when
// the source reports a strictly newer timestamp. A document the source no
// longer has is skipped silently: a stale local copy beats forced deletion
// for a traveler in the field. Per-document failures are recorded and never
// stop the sweep; only an unreachable local store fails the whole call.
func (s *Service) Reconcile(ctx context.Context, resolve ResolverFunc) (*SyncResult, error) {
	docs, err := s.docs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing cached documents: %w", err)
	}

	result := &SyncResult{}
	for _, doc := range docs {
		current, err := resolve(ctx, doc.ID)
		if err != nil {
			s.logger.Warn("sync resolver failed", "id", doc.ID, "error", err)
			result.Errors = append(result.Errors, doc.ID)
			continue
		}
		if current == nil {
			s.logger.Debug("document gone at source, keeping cached copy", "id", doc.ID)
			continue
		}
		if !current.LastUpdated.After(doc.LastUpdated) {
			continue
		}

		fresh := &model.OfflineDocument{
			ID:          doc.ID,
			FileName:    doc.FileName,
			FileType:    doc.FileType,
			FileSize:    int64(len(current.BlobData)),
			BlobData:    current.BlobData,
			LastUpdated: current.LastUpdated,
			SourceURL:   current.SourceURL,
			TripID:      doc.TripID,
		}
		if err := s.SaveDocument(ctx, fresh); err != nil {
			s.logger.Warn("failed to refresh stale document", "id", doc.ID, "error", err)
			result.Errors = append(result.Errors, doc.ID)
			continue
		}

		s.logger.Info("document refreshed from source", "id", doc.ID)
		result.Updated = append(result.Updated, doc.ID)
	}

	return result, nil
}
