package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/insightbase/insightbase/internal/core/domain"
)

const groundedAnswer = "TCK 86 maddesi kasten yaralama suçunu düzenler [KAYNAK-1]. " +
	"Bu yanıt hukuki görüş niteliği taşımaz, somut olayınız için bir avukata danışmanız önerilir."

func newTestOrchestrator(llm *chatLLMFake, store *searchStoreFake) *Orchestrator {
	clock := testClock()
	logger := nopLogger()

	analyzer := NewQueryAnalyzer(NewRegexExtractor(clock), NewLLMExtractor(llm, 0.1), clock, logger)
	access := NewAccessResolver(&identityFake{orgs: []string{"org-1"}}, newDocumentStoreFake(), clock, logger)
	searcher := NewHybridSearcher(
		&embedderFake{},
		store,
		access,
		NewMetadataFilter(DefaultMetadataFilterConfig()),
		NewFusionRanker(DefaultFusionConfig(), clock),
		20,
		logger,
	)
	validator := NewAnswerValidator(DefaultValidatorConfig(), llm, clock, logger)

	return NewOrchestrator(
		analyzer,
		access,
		searcher,
		NewPromptBuilder(clock, 10),
		llm,
		validator,
		NewCitationMapper(),
		clock,
		logger,
		OrchestratorConfig{MaxSources: 10, Temperature: 0.2, RetryOnValidation: true},
	)
}

func retrievedSource() domain.SearchResult {
	return domain.SearchResult{
		DocumentID:    "doc-a",
		ChunkID:       "a-1",
		Title:         "Yargıtay Kararı",
		Content:       "TCK 86 maddesi kasten yaralama suçunu düzenler ve cezası burada belirlenir",
		LawReferences: []string{"TCK 86"},
		IsGlobal:      true,
	}
}

func TestAnswerHappyPath(t *testing.T) {
	llm := &chatLLMFake{
		jsonErr:     errors.New("extraction model down"),
		completions: []string{groundedAnswer},
	}
	store := &searchStoreFake{vectorResults: []domain.SearchResult{retrievedSource()}}
	o := newTestOrchestrator(llm, store)

	resp, err := o.Answer(context.Background(), "TCK 86 nedir", "user-1", domain.RAGOptions{})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}

	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
	if resp.Answer != groundedAnswer {
		t.Fatalf("unexpected answer: %q", resp.Answer)
	}
	if resp.SourceCount != 1 {
		t.Fatalf("expected one source, got %d", resp.SourceCount)
	}
	if resp.ValidationResult == nil || !resp.ValidationResult.IsValid {
		t.Fatalf("expected valid validation result, got %+v", resp.ValidationResult)
	}
	if resp.Citations == nil || resp.Citations.TotalCitations != 1 {
		t.Fatalf("expected mapped citation, got %+v", resp.Citations)
	}
	if resp.CitationSummary == "" {
		t.Fatalf("expected citation summary")
	}
	if !resp.EndTime.After(resp.StartTime) && !resp.EndTime.Equal(resp.StartTime) {
		t.Fatalf("timing not recorded: start=%v end=%v", resp.StartTime, resp.EndTime)
	}
}

func TestAnswerNoSourcesReturnsApology(t *testing.T) {
	llm := &chatLLMFake{jsonErr: errors.New("down")}
	store := &searchStoreFake{}
	o := newTestOrchestrator(llm, store)

	resp, err := o.Answer(context.Background(), "TCK 86 nedir", "user-1", domain.RAGOptions{})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}

	if !resp.Success {
		t.Fatalf("no sources is a successful outcome")
	}
	if resp.Answer != "Üzgünüm, sorunuzla ilgili kaynak bulunamadı." {
		t.Fatalf("unexpected answer: %q", resp.Answer)
	}
	if llm.calls != 0 {
		t.Fatalf("generation must not run without sources, got %d calls", llm.calls)
	}
}

func TestAnswerPipelineFailureIsCaught(t *testing.T) {
	llm := &chatLLMFake{jsonErr: errors.New("down")}
	store := &searchStoreFake{
		vectorErr:  errors.New("pg down"),
		keywordErr: errors.New("pg down"),
		exactErr:   errors.New("pg down"),
	}
	o := newTestOrchestrator(llm, store)

	resp, err := o.Answer(context.Background(), "TCK 86 nedir", "user-1", domain.RAGOptions{})
	if err != nil {
		t.Fatalf("pipeline errors must be absorbed into the response: %v", err)
	}

	if resp.Success {
		t.Fatalf("expected failed response")
	}
	if resp.Answer != "Üzgünüm, sorunuz işlenirken bir hata oluştu." {
		t.Fatalf("unexpected failure answer: %q", resp.Answer)
	}
	if resp.ErrorMessage == "" {
		t.Fatalf("expected technical error message")
	}
}

func TestAnswerRetriesOnInvalidAnswer(t *testing.T) {
	llm := &chatLLMFake{
		jsonErr: errors.New("down"),
		completions: []string{
			"Karar şu şekildedir [KAYNAK-9].",
			groundedAnswer,
		},
	}
	store := &searchStoreFake{vectorResults: []domain.SearchResult{retrievedSource()}}
	o := newTestOrchestrator(llm, store)

	resp, err := o.Answer(context.Background(), "TCK 86 nedir", "user-1", domain.RAGOptions{})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}

	if llm.calls != 2 {
		t.Fatalf("expected one retry completion, got %d calls", llm.calls)
	}
	if resp.Answer != groundedAnswer {
		t.Fatalf("retry answer must replace the invalid one, got %q", resp.Answer)
	}
	if resp.EnhancedAnswer != groundedAnswer {
		t.Fatalf("enhanced answer not recorded")
	}
	if !resp.ValidationResult.IsValid {
		t.Fatalf("final validation must reflect the retry")
	}
	if !strings.Contains(llm.lastUser, "DOĞRULAMA SORUNLARI") {
		t.Fatalf("retry prompt must carry the findings preamble:\n%s", llm.lastUser)
	}
}

func TestAnswerKeepsOriginalWhenRetryIsNoBetter(t *testing.T) {
	llm := &chatLLMFake{
		jsonErr: errors.New("down"),
		completions: []string{
			"Karar şu şekildedir [KAYNAK-9].",
			"Başka bir karar [KAYNAK-8].",
		},
	}
	store := &searchStoreFake{vectorResults: []domain.SearchResult{retrievedSource()}}
	o := newTestOrchestrator(llm, store)

	resp, err := o.Answer(context.Background(), "TCK 86 nedir", "user-1", domain.RAGOptions{})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}

	if resp.Answer != "Karar şu şekildedir [KAYNAK-9]." {
		t.Fatalf("original answer must be kept, got %q", resp.Answer)
	}
	if resp.EnhancedAnswer != "" {
		t.Fatalf("no enhancement must be recorded for a failed retry")
	}
}

func TestAnswerSkipValidationOption(t *testing.T) {
	llm := &chatLLMFake{
		jsonErr:     errors.New("down"),
		completions: []string{"Atıfsız bir yanıt."},
	}
	store := &searchStoreFake{vectorResults: []domain.SearchResult{retrievedSource()}}
	o := newTestOrchestrator(llm, store)

	resp, err := o.Answer(context.Background(), "TCK 86 nedir", "user-1", domain.RAGOptions{SkipValidation: true})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}

	if resp.ValidationResult != nil {
		t.Fatalf("validation must be skipped, got %+v", resp.ValidationResult)
	}
	if llm.calls != 1 {
		t.Fatalf("no retry without validation, got %d calls", llm.calls)
	}
}

func TestAnswerHonorsMaxSourcesOption(t *testing.T) {
	llm := &chatLLMFake{
		jsonErr:     errors.New("down"),
		completions: []string{groundedAnswer},
	}
	second := retrievedSource()
	second.DocumentID = "doc-b"
	second.ChunkID = "b-1"
	second.VectorScore = 0.1
	first := retrievedSource()
	first.VectorScore = 0.9
	store := &searchStoreFake{vectorResults: []domain.SearchResult{first, second}}
	o := newTestOrchestrator(llm, store)

	resp, err := o.Answer(context.Background(), "TCK 86 nedir", "user-1", domain.RAGOptions{MaxSources: 1})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if resp.SourceCount != 1 {
		t.Fatalf("expected capped source count, got %d", resp.SourceCount)
	}
	if resp.Sources[0].ChunkID != "a-1" {
		t.Fatalf("cap must keep the best-ranked source, got %s", resp.Sources[0].ChunkID)
	}
}

func TestAnswerStreamEmitsOrderedChunks(t *testing.T) {
	llm := &chatLLMFake{
		jsonErr:     errors.New("down"),
		completions: []string{groundedAnswer},
	}
	store := &searchStoreFake{vectorResults: []domain.SearchResult{retrievedSource()}}
	o := newTestOrchestrator(llm, store)

	chunks, err := o.AnswerStream(context.Background(), "TCK 86 nedir", "user-1", domain.RAGOptions{})
	if err != nil {
		t.Fatalf("answer stream: %v", err)
	}

	var types []domain.StreamChunkType
	var final *domain.RAGResponse
	for chunk := range chunks {
		types = append(types, chunk.Type)
		if chunk.Type == domain.ChunkComplete {
			final = chunk.Response
		}
	}

	if len(types) == 0 || types[len(types)-1] != domain.ChunkComplete {
		t.Fatalf("stream must end with a complete chunk, got %v", types)
	}
	seen := make(map[domain.StreamChunkType]bool)
	for _, tp := range types {
		seen[tp] = true
	}
	for _, want := range []domain.StreamChunkType{domain.ChunkStatus, domain.ChunkSources, domain.ChunkAnswer, domain.ChunkCitations} {
		if !seen[want] {
			t.Fatalf("missing %s chunk in %v", want, types)
		}
	}
	if final == nil || !final.Success {
		t.Fatalf("final response missing or failed: %+v", final)
	}
}

func TestAnswerStreamReportsFailure(t *testing.T) {
	llm := &chatLLMFake{jsonErr: errors.New("down")}
	store := &searchStoreFake{
		vectorErr:  errors.New("pg down"),
		keywordErr: errors.New("pg down"),
		exactErr:   errors.New("pg down"),
	}
	o := newTestOrchestrator(llm, store)

	chunks, err := o.AnswerStream(context.Background(), "TCK 86 nedir", "user-1", domain.RAGOptions{})
	if err != nil {
		t.Fatalf("answer stream: %v", err)
	}

	var last domain.RAGStreamChunk
	for chunk := range chunks {
		last = chunk
	}
	if last.Type != domain.ChunkError {
		t.Fatalf("stream must end with an error chunk, got %s", last.Type)
	}
	if last.Response == nil || last.Response.Success {
		t.Fatalf("error chunk must carry the failed response")
	}
}
