package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/insightbase/insightbase/internal/core/domain"
)

func seedStoredDocument(store *documentStoreFake, storage *objectStorageFake) *domain.Document {
	doc := &domain.Document{
		ID:          "doc-1",
		Filename:    "karar.pdf",
		MimeType:    "application/pdf",
		StoragePath: "doc-1_karar.pdf",
		Status:      domain.StatusUploaded,
	}
	store.docs[doc.ID] = doc
	storage.objects[doc.StoragePath] = []byte("%PDF-1.4 ham veri")
	return doc
}

func TestProcessIndexesChunksAndFlipsStatus(t *testing.T) {
	store := newDocumentStoreFake()
	storage := newObjectStorageFake()
	doc := seedStoredDocument(store, storage)

	uc := NewProcessDocumentUseCase(
		store,
		storage,
		&extractorFake{text: "uzun karar metni"},
		&chunkerFake{chunks: []string{"parça bir", "parça iki"}},
		&embedderFake{},
	)

	if err := uc.Process(context.Background(), doc.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(store.statuses) != 2 ||
		store.statuses[0] != domain.StatusProcessing ||
		store.statuses[1] != domain.StatusReady {
		t.Fatalf("unexpected status transitions: %v", store.statuses)
	}
	if len(store.chunks) != 2 {
		t.Fatalf("expected 2 indexed chunks, got %d", len(store.chunks))
	}
	for i, chunk := range store.chunks {
		if chunk.DocumentID != doc.ID || chunk.Index != i {
			t.Fatalf("chunk %d malformed: %+v", i, chunk)
		}
		if chunk.ID == "" || len(chunk.Embedding) == 0 {
			t.Fatalf("chunk %d missing id or embedding", i)
		}
	}
	if doc.ChunkCount != 2 {
		t.Fatalf("chunk count not recorded, got %d", doc.ChunkCount)
	}
}

func TestProcessMarksFailedOnExtractionError(t *testing.T) {
	store := newDocumentStoreFake()
	storage := newObjectStorageFake()
	doc := seedStoredDocument(store, storage)

	uc := NewProcessDocumentUseCase(
		store,
		storage,
		&extractorFake{err: errors.New("corrupt pdf")},
		&chunkerFake{},
		&embedderFake{},
	)

	if err := uc.Process(context.Background(), doc.ID); err == nil {
		t.Fatalf("expected extraction failure")
	}

	if store.statuses[len(store.statuses)-1] != domain.StatusFailed {
		t.Fatalf("document must be marked failed, got %v", store.statuses)
	}
	if store.lastErr == "" {
		t.Fatalf("failure reason must be recorded")
	}
}

func TestProcessFailsOnEmptyExtractedText(t *testing.T) {
	store := newDocumentStoreFake()
	storage := newObjectStorageFake()
	doc := seedStoredDocument(store, storage)

	uc := NewProcessDocumentUseCase(
		store,
		storage,
		&extractorFake{text: ""},
		&chunkerFake{chunks: []string{"x"}},
		&embedderFake{},
	)

	err := uc.Process(context.Background(), doc.ID)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestProcessFailsOnMissingDocument(t *testing.T) {
	store := newDocumentStoreFake()
	uc := NewProcessDocumentUseCase(
		store,
		newObjectStorageFake(),
		&extractorFake{text: "metin"},
		&chunkerFake{chunks: []string{"x"}},
		&embedderFake{},
	)

	err := uc.Process(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProcessFailsOnEmbeddingMismatch(t *testing.T) {
	store := newDocumentStoreFake()
	storage := newObjectStorageFake()
	doc := seedStoredDocument(store, storage)

	uc := NewProcessDocumentUseCase(
		store,
		storage,
		&extractorFake{text: "metin"},
		&chunkerFake{chunks: []string{"a", "b", "c"}},
		&embedderFake{vectors: [][]float32{{0.1}}},
	)

	err := uc.Process(context.Background(), doc.ID)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input on vector mismatch, got %v", err)
	}
}
