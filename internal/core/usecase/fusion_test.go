package usecase

import (
	"fmt"
	"math"
	"testing"

	"github.com/insightbase/insightbase/internal/core/domain"
)

func newRanker() *FusionRanker {
	return NewFusionRanker(DefaultFusionConfig(), testClock())
}

func TestRankScoresStayInUnitRange(t *testing.T) {
	recent := fixedNow.AddDate(0, -6, 0)
	rangeStart := fixedNow.AddDate(-1, 0, 0)
	qc := &domain.QueryContext{
		Intents:         []string{"case_search"},
		LegalAreas:      []string{"ceza_hukuku"},
		Courts:          []string{"Yargıtay 12. Ceza Dairesi"},
		LawReferences:   []string{"TCK 86"},
		StartDate:       &rangeStart,
		EndDate:         &fixedNow,
		RequiresCaseLaw: true,
	}
	candidates := []domain.SearchResult{{
		DocumentID:    "doc-a",
		ChunkID:       "a-1",
		VectorScore:   1.0,
		BM25Score:     1.0,
		DocumentType:  domain.TypeCaseLaw,
		LegalArea:     "ceza_hukuku",
		Court:         "Yargıtay 12. Ceza Dairesi",
		PublishDate:   &recent,
		LawReferences: []string{"TCK 86"},
	}}
	candidates[0].ExactMatchScore = 1.0

	results := newRanker().Rank(qc, candidates)
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
	r := results[0]
	if r.FinalScore < 0 || r.FinalScore > 1 {
		t.Fatalf("final score out of range: %f", r.FinalScore)
	}
	if r.Relevance < 0 || r.Relevance > 1 {
		t.Fatalf("relevance out of range: %f", r.Relevance)
	}
	// Every boost fired, so the stacked score must saturate.
	if r.FinalScore != 1.0 {
		t.Fatalf("expected saturated score, got %f", r.FinalScore)
	}
	if r.MetadataScore < 0.49 || r.MetadataScore > 0.51 {
		t.Fatalf("expected accumulated metadata boost 0.50, got %f", r.MetadataScore)
	}
}

func TestRankExactOnlyHitUsesReweightAlone(t *testing.T) {
	qc := &domain.QueryContext{Intents: []string{"general_legal_question"}}
	candidates := []domain.SearchResult{{
		DocumentID:      "doc-a",
		ChunkID:         "a-1",
		ExactMatchScore: 1.0,
	}}

	results := newRanker().Rank(qc, candidates)
	// Zero vector and bm25 leave only the 0.7/0.3 exact reweight, so the
	// score is exactly 0.3. Exact match must not also enter the weighted
	// blend; that slot belongs to the metadata sub-score.
	if got := results[0].FinalScore; math.Abs(got-0.30) > 1e-9 {
		t.Fatalf("expected 0.30 for an exact-only hit, got %f", got)
	}
}

func TestRankExactMatchNeverLowersScore(t *testing.T) {
	qc := &domain.QueryContext{Intents: []string{"general_legal_question"}}
	for _, vector := range []float64{0.0, 0.3, 0.7, 1.0} {
		without := newRanker().Rank(qc, []domain.SearchResult{
			{DocumentID: "doc-a", ChunkID: "a-1", VectorScore: vector},
		})[0].FinalScore
		with := newRanker().Rank(qc, []domain.SearchResult{
			{DocumentID: "doc-a", ChunkID: "a-1", VectorScore: vector, ExactMatchScore: 1.0},
		})[0].FinalScore

		if with < without {
			t.Fatalf("exact match lowered the score at vector=%f: %f < %f", vector, with, without)
		}
	}
}

func TestRankIntentBoostRequiresMatchingIntent(t *testing.T) {
	caseLaw := []domain.SearchResult{
		{DocumentID: "doc-a", ChunkID: "a-1", VectorScore: 0.5, DocumentType: domain.TypeCaseLaw},
	}

	// The requires-case-law flag alone must not fire the intent boost.
	flagOnly := newRanker().Rank(&domain.QueryContext{
		Intents:         []string{"general_legal_question"},
		RequiresCaseLaw: true,
	}, cloneResults(caseLaw))[0]
	if math.Abs(flagOnly.Relevance-0.275) > 1e-9 {
		t.Fatalf("expected unboosted relevance 0.275, got %f", flagOnly.Relevance)
	}

	withIntent := newRanker().Rank(&domain.QueryContext{
		Intents:         []string{"case_search"},
		RequiresCaseLaw: true,
	}, cloneResults(caseLaw))[0]
	if withIntent.Relevance <= flagOnly.Relevance {
		t.Fatalf("case_search intent must boost case law: %f <= %f", withIntent.Relevance, flagOnly.Relevance)
	}
}

func cloneResults(in []domain.SearchResult) []domain.SearchResult {
	out := make([]domain.SearchResult, len(in))
	copy(out, in)
	return out
}

func TestRankBetterVectorScoreRanksHigher(t *testing.T) {
	qc := &domain.QueryContext{Intents: []string{"general_legal_question"}}
	candidates := []domain.SearchResult{
		{DocumentID: "doc-a", ChunkID: "a-1", VectorScore: 0.3},
		{DocumentID: "doc-b", ChunkID: "b-1", VectorScore: 0.9},
	}

	results := newRanker().Rank(qc, candidates)
	if results[0].ChunkID != "b-1" {
		t.Fatalf("expected b-1 first, got %s", results[0].ChunkID)
	}
	if results[0].FinalScore <= results[1].FinalScore {
		t.Fatalf("scores not ordered: %f <= %f", results[0].FinalScore, results[1].FinalScore)
	}
}

func TestRankCapsChunksPerDocument(t *testing.T) {
	qc := &domain.QueryContext{Intents: []string{"general_legal_question"}}

	var candidates []domain.SearchResult
	for i := 0; i < 6; i++ {
		candidates = append(candidates, domain.SearchResult{
			DocumentID:  "doc-big",
			ChunkID:     fmt.Sprintf("big-%d", i),
			ChunkIndex:  i * 2,
			VectorScore: 0.9 - float64(i)*0.01,
		})
	}
	candidates = append(candidates, domain.SearchResult{
		DocumentID: "doc-small", ChunkID: "small-1", VectorScore: 0.2,
	})

	results := newRanker().Rank(qc, candidates)

	perDoc := make(map[string]int)
	for _, r := range results {
		perDoc[r.DocumentID]++
	}
	if perDoc["doc-big"] != 3 {
		t.Fatalf("expected 3 chunks for doc-big, got %d", perDoc["doc-big"])
	}
	if perDoc["doc-small"] != 1 {
		t.Fatalf("diversity cap must not evict other documents, got %d", perDoc["doc-small"])
	}
}

func TestRankDedupeKeepsStrongestBranchScores(t *testing.T) {
	qc := &domain.QueryContext{Intents: []string{"general_legal_question"}}
	candidates := []domain.SearchResult{
		{DocumentID: "doc-a", ChunkID: "a-1", VectorScore: 0.8},
		{DocumentID: "doc-a", ChunkID: "a-1", BM25Score: 0.6},
		{DocumentID: "doc-a", ChunkID: "a-1", ExactMatchScore: 1.0},
	}

	results := newRanker().Rank(qc, candidates)
	if len(results) != 1 {
		t.Fatalf("expected one deduplicated result, got %d", len(results))
	}
	r := results[0]
	if r.VectorScore != 0.8 || r.BM25Score != 0.6 || r.ExactMatchScore != 1.0 {
		t.Fatalf("branch scores not merged: %+v", r)
	}
}

func TestRankPrioritizesLegislationWhenRequired(t *testing.T) {
	qc := &domain.QueryContext{
		Intents:             []string{"article_explanation"},
		RequiresLegislation: true,
	}
	candidates := []domain.SearchResult{
		{DocumentID: "doc-comment", ChunkID: "c-1", VectorScore: 0.74, DocumentType: domain.TypeCommentary},
		{DocumentID: "doc-law", ChunkID: "l-1", VectorScore: 0.70, DocumentType: domain.TypeLegislation},
	}

	results := newRanker().Rank(qc, candidates)
	if results[0].ChunkID != "l-1" {
		t.Fatalf("legislation must outrank commentary for article queries, got %s first", results[0].ChunkID)
	}
}

func TestRankDemotesCommentaryOnGeneralIntent(t *testing.T) {
	qc := &domain.QueryContext{Intents: []string{"general_legal_question"}}
	candidates := []domain.SearchResult{
		{DocumentID: "doc-comment", ChunkID: "c-1", VectorScore: 0.75, DocumentType: domain.TypeCommentary},
		{DocumentID: "doc-case", ChunkID: "k-1", VectorScore: 0.70, DocumentType: domain.TypeCaseLaw},
	}

	results := newRanker().Rank(qc, candidates)
	if results[0].ChunkID != "k-1" {
		t.Fatalf("commentary must be demoted on general queries, got %s first", results[0].ChunkID)
	}
}

func TestRankRecencyBoost(t *testing.T) {
	qc := &domain.QueryContext{Intents: []string{"general_legal_question"}}
	recent := fixedNow.AddDate(0, -3, 0)
	old := fixedNow.AddDate(-4, 0, 0)
	candidates := []domain.SearchResult{
		{DocumentID: "doc-old", ChunkID: "o-1", VectorScore: 0.7, PublishDate: &old},
		{DocumentID: "doc-new", ChunkID: "n-1", VectorScore: 0.7, PublishDate: &recent},
	}

	results := newRanker().Rank(qc, candidates)
	if results[0].ChunkID != "n-1" {
		t.Fatalf("recent source must rank first, got %s", results[0].ChunkID)
	}
}

func TestRankMergesContiguousChunks(t *testing.T) {
	qc := &domain.QueryContext{Intents: []string{"general_legal_question"}}
	candidates := []domain.SearchResult{
		{DocumentID: "doc-a", ChunkID: "a-3", ChunkIndex: 3, Content: "birinci bölüm", VectorScore: 0.8},
		{DocumentID: "doc-a", ChunkID: "a-4", ChunkIndex: 4, Content: "ikinci bölüm", VectorScore: 0.7},
	}

	results := newRanker().Rank(qc, candidates)

	var merged *domain.SearchResult
	for i := range results {
		if results[i].ChunkID == "a-3" {
			merged = &results[i]
		}
	}
	if merged == nil || !merged.IsMergedWithNext {
		t.Fatalf("contiguous chunks must be merged, got %+v", results)
	}
	if merged.MergedContent != "birinci bölüm\nikinci bölüm" {
		t.Fatalf("unexpected merged content %q", merged.MergedContent)
	}
}

func TestRankEmptyInputReturnsEmptySlice(t *testing.T) {
	results := newRanker().Rank(&domain.QueryContext{}, nil)
	if results == nil || len(results) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", results)
	}
}

func TestRankKeepsEqualScoresStable(t *testing.T) {
	qc := &domain.QueryContext{Intents: []string{"general_legal_question"}}
	candidates := []domain.SearchResult{
		{DocumentID: "doc-a", ChunkID: "a-1", VectorScore: 0.5},
		{DocumentID: "doc-b", ChunkID: "b-1", VectorScore: 0.5},
	}
	results := newRanker().Rank(qc, candidates)
	if len(results) != 2 {
		t.Fatalf("expected both results, got %d", len(results))
	}
}
