package usecase

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/insightbase/insightbase/internal/core/domain"
	"github.com/insightbase/insightbase/internal/core/ports"
)

const SubjectDocumentIngested = "documents.ingested"

// IngestDocumentUseCase stores an uploaded legal document and queues it
// for asynchronous extraction and indexing. Legal metadata (court, file
// number, law references) arrives with the upload; the worker only adds
// chunks and embeddings.
type IngestDocumentUseCase struct {
	store   ports.DocumentStore
	storage ports.ObjectStorage
	queue   ports.MessageQueue
	clock   ports.Clock
}

func NewIngestDocumentUseCase(
	store ports.DocumentStore,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	clock ports.Clock,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		store:   store,
		storage: storage,
		queue:   queue,
		clock:   clock,
	}
}

func (uc *IngestDocumentUseCase) Ingest(ctx context.Context, doc *domain.Document, content []byte) (*domain.Document, error) {
	if doc == nil || len(content) == 0 {
		return nil, fmt.Errorf("ingest document: %w", domain.ErrInvalidInput)
	}

	doc.ID = uuid.NewString()
	doc.Status = domain.StatusUploaded
	now := uc.clock.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	if doc.Title == "" {
		doc.Title = doc.Filename
	}
	if doc.Type == "" {
		doc.Type = domain.TypeOther
	}

	storageKey := fmt.Sprintf("%s_%s", doc.ID, sanitizeFilename(doc.Filename))
	path, err := uc.storage.Put(ctx, storageKey, bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}
	doc.StoragePath = path

	if err := uc.store.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document metadata: %w", err)
	}

	if err := uc.queue.Publish(ctx, SubjectDocumentIngested, []byte(doc.ID)); err != nil {
		return nil, fmt.Errorf("publish ingestion event: %w", err)
	}

	return doc, nil
}

func (uc *IngestDocumentUseCase) Get(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := uc.store.GetDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	return doc, nil
}

var _ ports.DocumentIngestor = (*IngestDocumentUseCase)(nil)

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
