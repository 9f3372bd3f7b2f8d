package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/insightbase/insightbase/internal/config"
	"github.com/insightbase/insightbase/internal/core/ports"
	"github.com/insightbase/insightbase/internal/core/usecase"
	"github.com/insightbase/insightbase/internal/infrastructure/chunking"
	"github.com/insightbase/insightbase/internal/infrastructure/embedding/openaiembed"
	"github.com/insightbase/insightbase/internal/infrastructure/extractor/pdftext"
	identitypg "github.com/insightbase/insightbase/internal/infrastructure/identity/postgres"
	"github.com/insightbase/insightbase/internal/infrastructure/llm/openaichat"
	natsqueue "github.com/insightbase/insightbase/internal/infrastructure/queue/nats"
	"github.com/insightbase/insightbase/internal/infrastructure/resilience"
	searchpg "github.com/insightbase/insightbase/internal/infrastructure/search/postgres"
	"github.com/insightbase/insightbase/internal/infrastructure/storage/localfs"
	"github.com/insightbase/insightbase/internal/observability/logging"
)

// App holds every wired dependency both binaries draw from.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue     ports.MessageQueue
	Answers   ports.AnswerService
	Ingestor  ports.DocumentIngestor
	Processor ports.ChunkProcessor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	slog.SetDefault(logger)

	db, err := searchpg.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	store := searchpg.NewStore(db, cfg.EmbedDimensions)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure search schema: %w", err)
	}
	identity := identitypg.NewIdentityStore(db)
	if err := identity.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure identity schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	resilienceCfg := resilience.DefaultConfig()
	resilienceCfg.Logger = logger
	if cfg.BreakerConsecutiveFailures > 0 {
		resilienceCfg.BreakerConsecutiveFailures = uint32(cfg.BreakerConsecutiveFailures)
	}
	executor := resilience.NewExecutor(resilienceCfg)

	queue, err := natsqueue.New(cfg.NATSURL, natsqueue.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	llm := openaichat.New(openaichat.Config{
		BaseURL:     cfg.LLMBaseURL,
		APIKey:      cfg.LLMAPIKey,
		Model:       cfg.LLMModel,
		CallTimeout: cfg.LLMTimeout(),
	}, executor)
	embedder := openaiembed.New(openaiembed.Config{
		BaseURL:    cfg.EmbedBaseURL,
		APIKey:     cfg.EmbedAPIKey,
		Model:      cfg.EmbedModel,
		Dimensions: cfg.EmbedDimensions,
		Timeout:    2 * time.Minute,
	}, executor)

	clock := usecase.SystemClock{}

	analyzer := usecase.NewQueryAnalyzer(
		usecase.NewRegexExtractor(clock),
		usecase.NewLLMExtractor(llm, cfg.LLMTemperature),
		clock,
		logger,
	)
	access := usecase.NewAccessResolver(identity, store, clock, logger)

	filterCfg := usecase.DefaultMetadataFilterConfig()
	filterCfg.FilterByDateRange = cfg.FilterByDateRange
	filterCfg.FilterByDocumentType = cfg.FilterByDocumentType
	filter := usecase.NewMetadataFilter(filterCfg)

	fusionCfg := usecase.DefaultFusionConfig()
	fusionCfg.MaxChunksPerDocument = cfg.MaxChunksPerDoc
	ranker := usecase.NewFusionRanker(fusionCfg, clock)

	searcher := usecase.NewHybridSearcher(embedder, store, access, filter, ranker, cfg.SearchBranchLimit, logger)
	prompts := usecase.NewPromptBuilder(clock, cfg.MaxSources)

	validatorCfg := usecase.DefaultValidatorConfig()
	validatorCfg.MaxWarnings = cfg.ValidationMaxWarnings
	validatorCfg.MinCitationDensity = cfg.ValidationMinCiteDensity
	validatorCfg.EnableHallucinationCheck = cfg.ValidationLLMCheckEnabled
	validator := usecase.NewAnswerValidator(validatorCfg, llm, clock, logger)

	orchestrator := usecase.NewOrchestrator(
		analyzer,
		access,
		searcher,
		prompts,
		llm,
		validator,
		usecase.NewCitationMapper(),
		clock,
		logger,
		usecase.OrchestratorConfig{
			MaxSources:        cfg.MaxSources,
			Temperature:       cfg.LLMTemperature,
			RetryOnValidation: cfg.ValidationRetryEnabled,
		},
	)

	ingestor := usecase.NewIngestDocumentUseCase(store, storage, queue, clock)
	processor := usecase.NewProcessDocumentUseCase(
		store,
		storage,
		pdftext.New(),
		chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		embedder,
	)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Queue:     queue,
		Answers:   orchestrator,
		Ingestor:  ingestor,
		Processor: processor,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
