package usecase

import (
	"sort"
	"strings"
	"time"

	"github.com/insightbase/insightbase/internal/core/domain"
	"github.com/insightbase/insightbase/internal/core/ports"
)

// FusionConfig holds the ranking weights. Defaults mirror the tuning the
// retrieval quality evals settled on.
type FusionConfig struct {
	VectorWeight   float64
	BM25Weight     float64
	MetadataWeight float64

	MaxChunksPerDocument int
	ContextGroupTopDocs  int
}

func DefaultFusionConfig() FusionConfig {
	return FusionConfig{
		VectorWeight:         0.55,
		BM25Weight:           0.35,
		MetadataWeight:       0.10,
		MaxChunksPerDocument: 3,
		ContextGroupTopDocs:  5,
	}
}

// FusionRanker turns the raw multi-branch candidate union into a single
// ranked list. The stages run in a fixed order: dedup, weighted scoring,
// metadata boost, diversity cap, priority rerank, context grouping, final
// sort.
type FusionRanker struct {
	cfg   FusionConfig
	clock ports.Clock
}

func NewFusionRanker(cfg FusionConfig, clock ports.Clock) *FusionRanker {
	if cfg.MaxChunksPerDocument <= 0 {
		cfg.MaxChunksPerDocument = 3
	}
	if cfg.ContextGroupTopDocs <= 0 {
		cfg.ContextGroupTopDocs = 5
	}
	return &FusionRanker{cfg: cfg, clock: clock}
}

func (f *FusionRanker) Rank(qc *domain.QueryContext, candidates []domain.SearchResult) []domain.SearchResult {
	if len(candidates) == 0 {
		return []domain.SearchResult{}
	}

	results := f.dedupeByChunk(candidates)

	for i := range results {
		f.scoreWeighted(qc, &results[i])
	}
	for i := range results {
		f.applyMetadataBoost(qc, &results[i])
	}

	results = f.capPerDocument(results)
	f.rerankByPriority(qc, results)
	results = f.groupContext(results)

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].FinalScore != results[j].FinalScore {
			return results[i].FinalScore > results[j].FinalScore
		}
		return results[i].Relevance > results[j].Relevance
	})

	return results
}

// dedupeByChunk collapses the same chunk arriving from multiple branches,
// keeping the strongest score seen per branch.
func (f *FusionRanker) dedupeByChunk(candidates []domain.SearchResult) []domain.SearchResult {
	index := make(map[string]int, len(candidates))
	out := make([]domain.SearchResult, 0, len(candidates))
	for _, c := range candidates {
		i, ok := index[c.ChunkID]
		if !ok {
			index[c.ChunkID] = len(out)
			out = append(out, c)
			continue
		}
		if c.VectorScore > out[i].VectorScore {
			out[i].VectorScore = c.VectorScore
		}
		if c.BM25Score > out[i].BM25Score {
			out[i].BM25Score = c.BM25Score
		}
		if c.ExactMatchScore > out[i].ExactMatchScore {
			out[i].ExactMatchScore = c.ExactMatchScore
		}
	}
	return out
}

func (f *FusionRanker) scoreWeighted(qc *domain.QueryContext, r *domain.SearchResult) {
	base := f.cfg.VectorWeight*r.VectorScore +
		f.cfg.BM25Weight*r.BM25Score +
		f.cfg.MetadataWeight*r.MetadataScore

	// An exact hit folds in separately so it lifts the score regardless of
	// how weak the other branches were.
	if r.ExactMatchScore > 0 {
		base = 0.7*base + 0.3*r.ExactMatchScore
	}

	if r.PublishDate != nil {
		const year = 365 * 24 * time.Hour
		age := f.clock.Now().Sub(*r.PublishDate)
		switch {
		case age <= year:
			base *= 1.10
		case age <= 2*year:
			base *= 1.05
		}
	}

	if intentMatchesType(qc, r.DocumentType) {
		base *= 1.10
	}

	base = clamp01(base)
	r.Relevance = base
	r.FinalScore = base
}

// applyMetadataBoost rewards alignment between the query's extracted
// metadata and the document's. Boosts accumulate additively into
// MetadataScore and apply multiplicatively to the final score.
func (f *FusionRanker) applyMetadataBoost(qc *domain.QueryContext, r *domain.SearchResult) {
	boost := 0.0

	if r.LegalArea != "" {
		for _, area := range qc.LegalAreas {
			if strings.EqualFold(r.LegalArea, area) {
				boost += 0.10
				break
			}
		}
	}

	if r.Court != "" {
		for _, court := range qc.Courts {
			if containsFold(r.Court, court) || containsFold(court, r.Court) {
				boost += 0.15
				break
			}
		}
	}

	if qc.StartDate != nil && qc.EndDate != nil && r.PublishDate != nil {
		if !r.PublishDate.Before(*qc.StartDate) && !r.PublishDate.After(*qc.EndDate) {
			boost += 0.05
		}
	}

	if len(r.LawReferences) > 0 {
	refLoop:
		for _, want := range qc.LawReferences {
			for _, have := range r.LawReferences {
				if containsFold(have, want) || containsFold(want, have) {
					boost += 0.20
					break refLoop
				}
			}
		}
	}

	r.MetadataScore = boost
	r.FinalScore = clamp01(r.FinalScore * (1 + boost))
}

// capPerDocument keeps only the top-scored chunks of each document so one
// long document cannot crowd out the rest of the context window.
func (f *FusionRanker) capPerDocument(results []domain.SearchResult) []domain.SearchResult {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].FinalScore > results[j].FinalScore
	})

	counts := make(map[string]int, len(results))
	out := results[:0:0]
	for _, r := range results {
		if counts[r.DocumentID] >= f.cfg.MaxChunksPerDocument {
			continue
		}
		counts[r.DocumentID]++
		out = append(out, r)
	}
	return out
}

func (f *FusionRanker) rerankByPriority(qc *domain.QueryContext, results []domain.SearchResult) {
	general := hasIntent(qc, defaultIntent)
	for i := range results {
		switch results[i].DocumentType {
		case domain.TypeLegislation:
			if qc.RequiresLegislation {
				results[i].FinalScore = clamp01(results[i].FinalScore * 1.15)
			}
		case domain.TypeCaseLaw:
			if qc.RequiresCaseLaw {
				results[i].FinalScore = clamp01(results[i].FinalScore * 1.15)
			}
		case domain.TypeCommentary:
			if general {
				results[i].FinalScore = results[i].FinalScore * 0.8
			}
		}
	}
}

// groupContext merges index-contiguous chunks of the top documents so the
// prompt builder can present them as one continuous passage.
func (f *FusionRanker) groupContext(results []domain.SearchResult) []domain.SearchResult {
	byDoc := make(map[string][]int)
	docOrder := make([]string, 0)
	for i, r := range results {
		if _, ok := byDoc[r.DocumentID]; !ok {
			docOrder = append(docOrder, r.DocumentID)
		}
		byDoc[r.DocumentID] = append(byDoc[r.DocumentID], i)
	}
	if len(docOrder) > f.cfg.ContextGroupTopDocs {
		docOrder = docOrder[:f.cfg.ContextGroupTopDocs]
	}

	for _, doc := range docOrder {
		idxs := byDoc[doc]
		sort.Slice(idxs, func(a, b int) bool {
			return results[idxs[a]].ChunkIndex < results[idxs[b]].ChunkIndex
		})
		for k := 0; k < len(idxs)-1; k++ {
			cur, next := idxs[k], idxs[k+1]
			if results[next].ChunkIndex == results[cur].ChunkIndex+1 {
				results[cur].IsMergedWithNext = true
				results[cur].MergedContent = results[cur].Content + "\n" + results[next].Content
			}
		}
	}

	return results
}

// intentMatchesType pairs the stated query intent with the document type it
// calls for. The retrieval-requirement flags are deliberately not consulted:
// they are broader than the intents and would boost too many documents.
func intentMatchesType(qc *domain.QueryContext, t domain.DocumentType) bool {
	switch t {
	case domain.TypeCaseLaw:
		return hasIntent(qc, "case_search")
	case domain.TypeLegislation:
		return hasIntent(qc, "article_explanation")
	default:
		return false
	}
}

func hasIntent(qc *domain.QueryContext, intent string) bool {
	for _, it := range qc.Intents {
		if it == intent {
			return true
		}
	}
	return false
}
