package usecase

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/insightbase/insightbase/internal/core/domain"
	"github.com/insightbase/insightbase/internal/core/ports"
	"github.com/insightbase/insightbase/internal/observability/logging"
)

// fixedNow anchors every time-sensitive assertion in this package.
var fixedNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type clockFake struct {
	now time.Time
}

func (c clockFake) Now() time.Time { return c.now }

func testClock() clockFake { return clockFake{now: fixedNow} }

func nopLogger() *slog.Logger { return logging.NewNopLogger() }

type chatLLMFake struct {
	completions []string
	calls       int
	jsonReply   string
	jsonErr     error
	err         error

	lastSystem string
	lastUser   string
}

func (f *chatLLMFake) Complete(_ context.Context, systemPrompt, userPrompt string, _ float64) (string, error) {
	f.lastSystem = systemPrompt
	f.lastUser = userPrompt
	if f.err != nil {
		return "", f.err
	}
	if f.calls < len(f.completions) {
		reply := f.completions[f.calls]
		f.calls++
		return reply, nil
	}
	f.calls++
	return "", io.EOF
}

func (f *chatLLMFake) CompleteJSON(_ context.Context, systemPrompt, userPrompt string, _ float64) (string, error) {
	f.lastSystem = systemPrompt
	f.lastUser = userPrompt
	if f.jsonErr != nil {
		return "", f.jsonErr
	}
	return f.jsonReply, nil
}

type embedderFake struct {
	vectors [][]float32
	err     error
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.vectors != nil {
		return f.vectors, nil
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (f *embedderFake) Dimensions() int { return 3 }

type searchStoreFake struct {
	vectorResults  []domain.SearchResult
	keywordResults []domain.SearchResult
	exactResults   []domain.SearchResult
	vectorErr      error
	keywordErr     error
	exactErr       error

	lastVectorQuery  ports.VectorQuery
	lastKeywordQuery ports.KeywordQuery
	lastExactQuery   ports.ExactQuery
}

func (f *searchStoreFake) VectorSearch(_ context.Context, q ports.VectorQuery) ([]domain.SearchResult, error) {
	f.lastVectorQuery = q
	return f.vectorResults, f.vectorErr
}

func (f *searchStoreFake) KeywordSearch(_ context.Context, q ports.KeywordQuery) ([]domain.SearchResult, error) {
	f.lastKeywordQuery = q
	return f.keywordResults, f.keywordErr
}

func (f *searchStoreFake) ExactSearch(_ context.Context, q ports.ExactQuery) ([]domain.SearchResult, error) {
	f.lastExactQuery = q
	return f.exactResults, f.exactErr
}

type identityFake struct {
	orgs   []string
	roles  []string
	grants []string
	rules  map[string]domain.AccessRule
	err    error
}

func (f *identityFake) UserOrganizations(_ context.Context, _ string) ([]string, error) {
	return f.orgs, f.err
}

func (f *identityFake) UserRoles(_ context.Context, _ string) ([]string, error) {
	return f.roles, f.err
}

func (f *identityFake) OrganizationAccessRules(_ context.Context, _ []string) (map[string]domain.AccessRule, error) {
	return f.rules, f.err
}

func (f *identityFake) UserDocumentGrants(_ context.Context, _ string) ([]string, error) {
	return f.grants, f.err
}

type documentStoreFake struct {
	docs     map[string]*domain.Document
	statuses []domain.DocumentStatus
	saveErr  error
	chunks   []domain.Chunk
	lastErr  string
}

func newDocumentStoreFake() *documentStoreFake {
	return &documentStoreFake{docs: make(map[string]*domain.Document)}
}

func (f *documentStoreFake) SaveDocument(_ context.Context, doc *domain.Document) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.docs[doc.ID] = doc
	return nil
}

func (f *documentStoreFake) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (f *documentStoreFake) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus, errMsg string) error {
	if _, ok := f.docs[id]; !ok {
		return domain.ErrDocumentNotFound
	}
	f.statuses = append(f.statuses, status)
	f.lastErr = errMsg
	f.docs[id].Status = status
	return nil
}

func (f *documentStoreFake) IndexChunks(_ context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	f.chunks = chunks
	doc.ChunkCount = len(chunks)
	return nil
}

type objectStorageFake struct {
	objects map[string][]byte
	putErr  error
}

func newObjectStorageFake() *objectStorageFake {
	return &objectStorageFake{objects: make(map[string][]byte)}
}

func (f *objectStorageFake) Put(_ context.Context, key string, r io.Reader) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.objects[key] = data
	return "/storage/" + key, nil
}

func (f *objectStorageFake) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *objectStorageFake) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

type queueFake struct {
	published map[string][][]byte
	err       error
}

func newQueueFake() *queueFake {
	return &queueFake{published: make(map[string][][]byte)}
}

func (f *queueFake) Publish(_ context.Context, subject string, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.published[subject] = append(f.published[subject], payload)
	return nil
}

func (f *queueFake) Subscribe(_ context.Context, _, _ string, _ func(context.Context, []byte) error) (io.Closer, error) {
	return io.NopCloser(nil), nil
}

type extractorFake struct {
	text string
	err  error
}

func (f *extractorFake) Extract(_ context.Context, _ io.Reader, _ string) (string, error) {
	return f.text, f.err
}

func (f *extractorFake) Supports(_ string) bool { return true }

type chunkerFake struct {
	chunks []string
}

func (f *chunkerFake) Split(_ string) []string { return f.chunks }
