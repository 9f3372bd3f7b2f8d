package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/insightbase/insightbase/internal/core/domain"
	"github.com/insightbase/insightbase/internal/core/ports"
)

// ProcessDocumentUseCase is the worker-side pipeline for one ingested
// document: load, extract text, chunk, embed, index, flip status.
type ProcessDocumentUseCase struct {
	store     ports.DocumentStore
	storage   ports.ObjectStorage
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
}

func NewProcessDocumentUseCase(
	store ports.DocumentStore,
	storage ports.ObjectStorage,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		store:     store,
		storage:   storage,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
	}
}

func (uc *ProcessDocumentUseCase) Process(ctx context.Context, documentID string) error {
	if err := uc.store.UpdateStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	if err := uc.processPipeline(ctx, documentID); err != nil {
		if failErr := uc.store.UpdateStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.store.UpdateStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}

	return nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, documentID string) error {
	doc, err := uc.store.GetDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}

	text, err := uc.extractText(ctx, doc)
	if err != nil {
		return err
	}

	pieces := uc.chunker.Split(text)
	if len(pieces) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero chunks"))
	}

	vectors, err := uc.embedder.Embed(ctx, pieces)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(pieces) {
		return domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(pieces)),
		)
	}

	chunks := make([]domain.Chunk, len(pieces))
	for i, content := range pieces {
		chunks[i] = domain.Chunk{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			Index:      i,
			Content:    content,
			Embedding:  vectors[i],
		}
	}

	if err := uc.store.IndexChunks(ctx, doc, chunks); err != nil {
		return fmt.Errorf("index chunks: %w", err)
	}

	return nil
}

func (uc *ProcessDocumentUseCase) extractText(ctx context.Context, doc *domain.Document) (string, error) {
	body, err := uc.storage.Get(ctx, doc.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open stored file: %w", err)
	}
	defer body.Close()

	text, err := uc.extractor.Extract(ctx, body, doc.MimeType)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	if text == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
	}
	return text, nil
}

var _ ports.ChunkProcessor = (*ProcessDocumentUseCase)(nil)
