package ports

import (
	"context"
	"io"
	"time"

	"github.com/insightbase/insightbase/internal/core/domain"
)

// Embedder turns text into dense vectors. Implementations batch internally;
// the order of the returned vectors matches the input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// VectorQuery is one similarity search against the chunk index.
type VectorQuery struct {
	Embedding []float32
	Limit     int
	Access    *domain.AccessDomain
	Areas     []string
	Types     []domain.DocumentType
}

// KeywordQuery is one full-text search against the chunk index.
type KeywordQuery struct {
	Terms  []string
	Limit  int
	Access *domain.AccessDomain
}

// ExactQuery matches chunks whose documents carry specific law references
// or file numbers.
type ExactQuery struct {
	LawReferences []string
	FileNumbers   []string
	Limit         int
	Access        *domain.AccessDomain
}

// SearchStore is the retrieval side of the chunk index. Each method covers
// one branch of hybrid search; branches fail independently.
type SearchStore interface {
	VectorSearch(ctx context.Context, q VectorQuery) ([]domain.SearchResult, error)
	KeywordSearch(ctx context.Context, q KeywordQuery) ([]domain.SearchResult, error)
	ExactSearch(ctx context.Context, q ExactQuery) ([]domain.SearchResult, error)
}

// DocumentStore persists documents and their chunks.
type DocumentStore interface {
	SaveDocument(ctx context.Context, doc *domain.Document) error
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMsg string) error
	IndexChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error
}

// IdentityStore resolves user identity into the access facts retrieval
// filters on.
type IdentityStore interface {
	UserOrganizations(ctx context.Context, userID string) ([]string, error)
	UserRoles(ctx context.Context, userID string) ([]string, error)
	OrganizationAccessRules(ctx context.Context, orgIDs []string) (map[string]domain.AccessRule, error)
	UserDocumentGrants(ctx context.Context, userID string) ([]string, error)
}

// ChatLLM is a text-completion backend. Complete returns the raw model
// output; callers own any JSON parsing.
type ChatLLM interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error)

	// CompleteJSON asks for strict JSON output where the backend supports it.
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error)
}

// ObjectStorage stores raw uploaded files.
type ObjectStorage interface {
	Put(ctx context.Context, key string, r io.Reader) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// MessageQueue decouples upload from processing.
type MessageQueue interface {
	Publish(ctx context.Context, subject string, payload []byte) error
	Subscribe(ctx context.Context, subject, group string, handler func(ctx context.Context, payload []byte) error) (io.Closer, error)
}

// TextExtractor pulls plain text out of an uploaded file.
type TextExtractor interface {
	Extract(ctx context.Context, r io.Reader, mimeType string) (string, error)
	Supports(mimeType string) bool
}

// Chunker splits extracted text into overlapping windows.
type Chunker interface {
	Split(text string) []string
}

// Clock exists so time-sensitive logic (recency boosts, date sanitizing)
// is testable.
type Clock interface {
	Now() time.Time
}
