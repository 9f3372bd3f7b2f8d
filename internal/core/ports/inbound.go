package ports

import (
	"context"

	"github.com/insightbase/insightbase/internal/core/domain"
)

// AnswerService is the primary inbound port: one question in, one grounded
// answer out.
type AnswerService interface {
	Answer(ctx context.Context, query, userID string, opts domain.RAGOptions) (*domain.RAGResponse, error)

	// AnswerStream runs the same pipeline but emits progress chunks on the
	// returned channel. The channel is closed after the complete (or error)
	// chunk is sent.
	AnswerStream(ctx context.Context, query, userID string, opts domain.RAGOptions) (<-chan domain.RAGStreamChunk, error)
}

// DocumentIngestor accepts uploaded documents and schedules them for
// asynchronous processing.
type DocumentIngestor interface {
	Ingest(ctx context.Context, doc *domain.Document, content []byte) (*domain.Document, error)
	Get(ctx context.Context, id string) (*domain.Document, error)
}

// ChunkProcessor is the worker-side port: extract, chunk, embed and index
// one previously ingested document.
type ChunkProcessor interface {
	Process(ctx context.Context, documentID string) error
}
