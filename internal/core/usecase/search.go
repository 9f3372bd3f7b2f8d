package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/insightbase/insightbase/internal/core/domain"
	"github.com/insightbase/insightbase/internal/core/ports"
)

// legalIdiomPhrases trigger the keyword branch even when extraction found
// no explicit keywords. They are procedural terms that full-text search
// handles better than embeddings.
var legalIdiomPhrases = []string{
	"itirazın iptali",
	"menfi tespit",
	"alacağın tahsili",
	"tazminat",
	"şikayet",
	"istinaf",
	"temyiz",
	"karar düzeltme",
	"zamanaşımı",
	"ön ödeme",
	"haciz",
	"iflas",
	"konkordato",
}

// HybridSearcher fans one analyzed query out to the vector, keyword and
// exact-match branches in parallel, then filters and fuses the union. A
// failing branch degrades the search instead of failing it; only all
// branches failing is an error.
type HybridSearcher struct {
	embedder ports.Embedder
	store    ports.SearchStore
	access   *AccessResolver
	filter   *MetadataFilter
	ranker   *FusionRanker
	logger   *slog.Logger

	branchLimit int
}

func NewHybridSearcher(
	embedder ports.Embedder,
	store ports.SearchStore,
	access *AccessResolver,
	filter *MetadataFilter,
	ranker *FusionRanker,
	branchLimit int,
	logger *slog.Logger,
) *HybridSearcher {
	if branchLimit <= 0 {
		branchLimit = 20
	}
	return &HybridSearcher{
		embedder:    embedder,
		store:       store,
		access:      access,
		filter:      filter,
		ranker:      ranker,
		branchLimit: branchLimit,
		logger:      logger,
	}
}

func (s *HybridSearcher) Search(ctx context.Context, qc *domain.QueryContext, access *domain.AccessDomain) ([]domain.SearchResult, error) {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		vector  []domain.SearchResult
		keyword []domain.SearchResult
		exact   []domain.SearchResult
		errs    []error
	)

	fail := func(branch string, err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
		s.logger.Warn("search branch failed",
			slog.String("branch", branch),
			slog.String("error", err.Error()))
	}

	ran := 0

	if qc.RequiresSemanticSearch {
		ran++
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := s.vectorBranch(ctx, qc, access)
			if err != nil {
				fail("vector", err)
				return
			}
			vector = results
		}()
	}

	if s.keywordBranchNeeded(qc) {
		ran++
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := s.keywordBranch(ctx, qc, access)
			if err != nil {
				fail("keyword", err)
				return
			}
			keyword = results
		}()
	}

	if qc.RequiresExactMatch {
		ran++
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := s.exactBranch(ctx, qc, access)
			if err != nil {
				fail("exact", err)
				return
			}
			exact = results
		}()
	}

	wg.Wait()

	if ran > 0 && len(errs) == ran {
		return nil, domain.WrapError(domain.ErrTemporary, "hybrid search", errs[0])
	}

	merged := make([]domain.SearchResult, 0, len(vector)+len(keyword)+len(exact))
	merged = append(merged, vector...)
	merged = append(merged, keyword...)
	merged = append(merged, exact...)

	merged = s.access.FilterResultByAccess(access, merged)
	filtered := s.filter.Apply(qc, merged)
	final := s.ranker.Rank(qc, filtered)

	s.logger.Info("hybrid search complete",
		slog.Int("vector", len(vector)),
		slog.Int("keyword", len(keyword)),
		slog.Int("exact", len(exact)),
		slog.Int("final", len(final)))

	// A filtered-to-empty set is a valid outcome, not an error.
	return final, nil
}

func (s *HybridSearcher) vectorBranch(ctx context.Context, qc *domain.QueryContext, access *domain.AccessDomain) ([]domain.SearchResult, error) {
	embeddings, err := s.embedder.Embed(ctx, []string{qc.OriginalQuery})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, domain.WrapError(domain.ErrTemporary, "embed query", domain.ErrInvalidInput)
	}

	results, err := s.store.VectorSearch(ctx, ports.VectorQuery{
		Embedding: embeddings[0],
		Limit:     s.branchLimit,
		Access:    access,
		Areas:     qc.LegalAreas,
		Types:     allowedDocumentTypes(qc),
	})
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].VectorScore = clamp01(results[i].VectorScore)
	}
	return results, nil
}

func (s *HybridSearcher) keywordBranch(ctx context.Context, qc *domain.QueryContext, access *domain.AccessDomain) ([]domain.SearchResult, error) {
	terms := keywordTerms(qc)
	if len(terms) == 0 {
		terms = []string{qc.OriginalQuery}
	}

	results, err := s.store.KeywordSearch(ctx, ports.KeywordQuery{
		Terms:  terms,
		Limit:  s.branchLimit,
		Access: access,
	})
	if err != nil {
		return nil, err
	}
	// ts_rank_cd scores are unbounded; squash into [0,1] to be comparable
	// with cosine similarity.
	for i := range results {
		results[i].BM25Score = clamp01(results[i].BM25Score / 100.0)
	}
	return results, nil
}

func (s *HybridSearcher) exactBranch(ctx context.Context, qc *domain.QueryContext, access *domain.AccessDomain) ([]domain.SearchResult, error) {
	results, err := s.store.ExactSearch(ctx, ports.ExactQuery{
		LawReferences: qc.LawReferences,
		FileNumbers:   qc.FileNumbers,
		Limit:         s.branchLimit,
		Access:        access,
	})
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].ExactMatchScore = 1.0
	}
	return results, nil
}

func (s *HybridSearcher) keywordBranchNeeded(qc *domain.QueryContext) bool {
	if len(qc.LegalConcepts) > 0 || len(qc.LawReferences) > 0 || len(qc.Keywords) > 0 {
		return true
	}
	lower := turkishLower(qc.OriginalQuery)
	for _, phrase := range legalIdiomPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func keywordTerms(qc *domain.QueryContext) []string {
	terms := make([]string, 0, len(qc.Keywords)+len(qc.LegalConcepts)+len(qc.LawReferences)+len(qc.Courts))
	terms = append(terms, qc.Keywords...)
	terms = append(terms, qc.LegalConcepts...)
	terms = append(terms, qc.LawReferences...)
	terms = append(terms, qc.Courts...)
	return dedupeFold(terms)
}

func allowedDocumentTypes(qc *domain.QueryContext) []domain.DocumentType {
	var types []domain.DocumentType
	if qc.RequiresCaseLaw {
		types = append(types, domain.TypeCaseLaw)
	}
	if qc.RequiresLegislation {
		types = append(types, domain.TypeLegislation, domain.TypeRegulation)
	}
	return types
}
