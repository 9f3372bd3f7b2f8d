package usecase

import (
	"context"
	"log/slog"

	"github.com/insightbase/insightbase/internal/core/domain"
	"github.com/insightbase/insightbase/internal/core/ports"
)

const (
	noSourcesMessage = "Üzgünüm, sorunuzla ilgili kaynak bulunamadı."
	failureMessage   = "Üzgünüm, sorunuz işlenirken bir hata oluştu."
)

type OrchestratorConfig struct {
	MaxSources        int
	Temperature       float64
	RetryOnValidation bool
}

func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		MaxSources:        10,
		Temperature:       0.2,
		RetryOnValidation: true,
	}
}

// Orchestrator runs the full answer pipeline: analyze, resolve access,
// retrieve, generate, validate, map citations. It implements
// ports.AnswerService.
type Orchestrator struct {
	analyzer  *QueryAnalyzer
	access    *AccessResolver
	searcher  *HybridSearcher
	prompts   *PromptBuilder
	llm       ports.ChatLLM
	validator *AnswerValidator
	citations *CitationMapper
	clock     ports.Clock
	logger    *slog.Logger
	cfg       OrchestratorConfig
}

func NewOrchestrator(
	analyzer *QueryAnalyzer,
	access *AccessResolver,
	searcher *HybridSearcher,
	prompts *PromptBuilder,
	llm ports.ChatLLM,
	validator *AnswerValidator,
	citations *CitationMapper,
	clock ports.Clock,
	logger *slog.Logger,
	cfg OrchestratorConfig,
) *Orchestrator {
	if cfg.MaxSources <= 0 {
		cfg.MaxSources = 10
	}
	return &Orchestrator{
		analyzer:  analyzer,
		access:    access,
		searcher:  searcher,
		prompts:   prompts,
		llm:       llm,
		validator: validator,
		citations: citations,
		clock:     clock,
		logger:    logger,
		cfg:       cfg,
	}
}

func (o *Orchestrator) Answer(ctx context.Context, query, userID string, opts domain.RAGOptions) (*domain.RAGResponse, error) {
	resp := &domain.RAGResponse{
		Query:     query,
		UserID:    userID,
		StartTime: o.clock.Now(),
	}
	defer func() {
		resp.EndTime = o.clock.Now()
		resp.TotalDuration = resp.EndTime.Sub(resp.StartTime)
	}()

	if err := o.run(ctx, resp, opts, nil); err != nil {
		o.logger.Error("answer pipeline failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		resp.Success = false
		resp.Answer = failureMessage
		resp.ErrorMessage = err.Error()
	}
	return resp, nil
}

// run executes the pipeline into resp. emit is non-nil for streaming calls
// and receives progress chunks as the stages complete.
func (o *Orchestrator) run(ctx context.Context, resp *domain.RAGResponse, opts domain.RAGOptions, emit func(domain.RAGStreamChunk)) error {
	status := func(msg string) {
		if emit != nil {
			emit(domain.RAGStreamChunk{Type: domain.ChunkStatus, Status: msg})
		}
	}

	status("Sorgu analiz ediliyor")
	qc, err := o.analyzer.Analyze(ctx, resp.Query, resp.UserID)
	if err != nil {
		return err
	}
	resp.QueryContext = qc

	access, err := o.access.BuildAccessDomain(ctx, resp.UserID)
	if err != nil {
		return err
	}

	status("Kaynaklar aranıyor")
	sources, err := o.searcher.Search(ctx, qc, access)
	if err != nil {
		return err
	}

	maxSources := o.cfg.MaxSources
	if opts.MaxSources > 0 && opts.MaxSources < maxSources {
		maxSources = opts.MaxSources
	}
	if len(sources) > maxSources {
		sources = sources[:maxSources]
	}
	resp.Sources = sources
	resp.SourceCount = len(sources)

	if len(sources) == 0 {
		resp.Success = true
		resp.Answer = noSourcesMessage
		return nil
	}
	if emit != nil {
		emit(domain.RAGStreamChunk{Type: domain.ChunkSources, Sources: sources})
	}

	status("Yanıt oluşturuluyor")
	temperature := o.cfg.Temperature
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}

	answer, err := o.llm.Complete(ctx, o.prompts.SystemPrompt(), o.prompts.Build(qc, sources), temperature)
	if err != nil {
		return err
	}
	resp.Answer = answer
	if emit != nil {
		emit(domain.RAGStreamChunk{Type: domain.ChunkAnswer, Answer: answer})
	}

	if !opts.SkipValidation {
		status("Yanıt doğrulanıyor")
		vr := o.validator.Validate(ctx, answer, sources)
		resp.ValidationResult = vr

		if !vr.IsValid && o.cfg.RetryOnValidation && !opts.DisableRetry {
			status("Yanıt düzeltiliyor")
			retried, retryErr := o.llm.Complete(ctx, o.prompts.SystemPrompt(), o.prompts.BuildRetry(qc, sources, vr), temperature)
			if retryErr != nil {
				o.logger.Warn("validation retry failed, keeping original answer",
					slog.String("error", retryErr.Error()))
			} else {
				retryVR := o.validator.Validate(ctx, retried, sources)
				// Keep the retry only when it actually improved.
				if retryVR.IsValid || len(retryVR.Errors) < len(vr.Errors) {
					resp.Answer = retried
					resp.EnhancedAnswer = retried
					resp.ValidationResult = retryVR
				}
			}
		}
	}

	citations := o.citations.Map(resp.Answer, sources)
	resp.Citations = citations
	resp.CitationSummary = o.citations.Summary(citations)
	if emit != nil {
		emit(domain.RAGStreamChunk{Type: domain.ChunkCitations, Citations: citations})
	}

	resp.Success = true
	return nil
}

// AnswerStream runs the same pipeline and reports progress over a channel.
// The channel always ends with a complete or error chunk and is then
// closed.
func (o *Orchestrator) AnswerStream(ctx context.Context, query, userID string, opts domain.RAGOptions) (<-chan domain.RAGStreamChunk, error) {
	out := make(chan domain.RAGStreamChunk, 8)

	go func() {
		defer close(out)

		emit := func(chunk domain.RAGStreamChunk) {
			select {
			case out <- chunk:
			case <-ctx.Done():
			}
		}

		resp := &domain.RAGResponse{
			Query:     query,
			UserID:    userID,
			StartTime: o.clock.Now(),
		}

		err := o.run(ctx, resp, opts, emit)
		resp.EndTime = o.clock.Now()
		resp.TotalDuration = resp.EndTime.Sub(resp.StartTime)

		if err != nil {
			o.logger.Error("streaming answer pipeline failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()))
			resp.Success = false
			resp.Answer = failureMessage
			resp.ErrorMessage = err.Error()
			emit(domain.RAGStreamChunk{Type: domain.ChunkError, Error: failureMessage, Response: resp})
			return
		}

		emit(domain.RAGStreamChunk{Type: domain.ChunkComplete, Response: resp})
	}()

	return out, nil
}

var _ ports.AnswerService = (*Orchestrator)(nil)
