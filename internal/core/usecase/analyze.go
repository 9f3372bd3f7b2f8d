package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/insightbase/insightbase/internal/core/domain"
	"github.com/insightbase/insightbase/internal/core/ports"
)

const defaultIntent = "general_legal_question"

// lawRefAreaPrefixes maps a law abbreviation to the legal area it implies.
// Used only when neither extractor produced a legal area.
var lawRefAreaPrefixes = map[string]string{
	"TCK":       "ceza_hukuku",
	"TBK":       "borçlar_hukuku",
	"TTK":       "ticaret_hukuku",
	"TMK":       "medeni_hukuku",
	"İŞ KANUNU": "iş_hukuku",
}

// QueryAnalyzer merges deterministic and semantic extraction into one
// QueryContext. Deterministic entities win where both extractors speak;
// semantic fields (intents, concepts, keywords) come from the LLM alone.
type QueryAnalyzer struct {
	regex  *RegexExtractor
	llm    *LLMExtractor
	clock  ports.Clock
	logger *slog.Logger
}

func NewQueryAnalyzer(regex *RegexExtractor, llm *LLMExtractor, clock ports.Clock, logger *slog.Logger) *QueryAnalyzer {
	return &QueryAnalyzer{regex: regex, llm: llm, clock: clock, logger: logger}
}

// mergeRule glues one QueryContext field to its two extraction sources.
type mergeRule struct {
	field string
	apply func(ctx *domain.QueryContext, re domain.RegexExtraction, le domain.LLMExtraction)
}

var mergeRules = []mergeRule{
	{"law_references", func(c *domain.QueryContext, re domain.RegexExtraction, le domain.LLMExtraction) {
		c.LawReferences = unionFold(re.LawReferences, le.LawReferences)
	}},
	{"courts", func(c *domain.QueryContext, re domain.RegexExtraction, le domain.LLMExtraction) {
		c.Courts = unionFold(re.Courts, le.Courts)
	}},
	{"file_numbers", func(c *domain.QueryContext, re domain.RegexExtraction, le domain.LLMExtraction) {
		c.FileNumbers = re.FileNumbers
	}},
	{"dates", func(c *domain.QueryContext, re domain.RegexExtraction, le domain.LLMExtraction) {
		c.StartDate, c.EndDate = re.StartDate, re.EndDate
		c.DateExpressions = le.DateExpressions
	}},
	{"legal_areas", func(c *domain.QueryContext, re domain.RegexExtraction, le domain.LLMExtraction) {
		if len(le.LegalAreas) > 0 {
			c.LegalAreas = dedupeFold(le.LegalAreas)
		} else {
			c.LegalAreas = re.LegalAreas
		}
	}},
	{"semantic", func(c *domain.QueryContext, re domain.RegexExtraction, le domain.LLMExtraction) {
		c.Intents = dedupeFold(le.Intents)
		c.LegalConcepts = dedupeFold(le.LegalConcepts)
		c.Parties = dedupeFold(le.Parties)
		c.Keywords = dedupeFold(le.Keywords)
		c.QueryType = le.QueryType
		c.ConfidenceScore = le.ConfidenceScore
		c.RequiresCaseLaw = le.RequiresCaseLaw
		c.RequiresLegislation = le.RequiresLegislation
	}},
}

func (a *QueryAnalyzer) Analyze(ctx context.Context, query, userID string) (*domain.QueryContext, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("analyze query: %w", domain.ErrInvalidInput)
	}

	re := a.regex.Extract(query)
	le := a.llm.Extract(ctx, query)

	qc := &domain.QueryContext{
		OriginalQuery: query,
		UserID:        userID,
		Timestamp:     a.clock.Now(),
		Source: domain.ExtractionSource{
			RegexUsed:  true,
			LLMUsed:    !le.ExtractionFailed,
			LLMRawJSON: le.RawJSON,
		},
	}
	if le.ExtractionFailed {
		qc.Source.Warnings = append(qc.Source.Warnings, "llm extraction failed: "+le.ErrorMessage)
		a.logger.Warn("llm extraction failed, degrading to regex-only analysis",
			slog.String("user_id", userID),
			slog.String("error", le.ErrorMessage))
	}

	for _, rule := range mergeRules {
		rule.apply(qc, re, le)
	}

	a.postProcess(qc, re, le)

	a.logger.Info("query analyzed",
		slog.String("user_id", userID),
		slog.Any("intents", qc.Intents),
		slog.Int("law_references", len(qc.LawReferences)),
		slog.Float64("confidence", qc.ConfidenceScore))

	return qc, nil
}

func (a *QueryAnalyzer) postProcess(qc *domain.QueryContext, re domain.RegexExtraction, le domain.LLMExtraction) {
	if len(qc.Intents) == 0 {
		qc.Intents = []string{defaultIntent}
		qc.Source.Warnings = append(qc.Source.Warnings, "no intent extracted, defaulted to "+defaultIntent)
	}

	if len(qc.LegalAreas) == 0 {
		qc.LegalAreas = inferAreasFromLawRefs(qc.LawReferences)
	}

	qc.RequiresSemanticSearch = true
	qc.RequiresExactMatch = len(qc.LawReferences) > 0 || len(qc.FileNumbers) > 0
	for _, intent := range qc.Intents {
		switch intent {
		case "case_search", "precedent_search":
			qc.RequiresCaseLaw = true
		case "article_explanation", "law_summary":
			qc.RequiresLegislation = true
		}
	}

	if len(re.LawReferences) > 0 || len(re.Courts) > 0 {
		qc.ConfidenceScore = min(qc.ConfidenceScore+0.1, 1.0)
	}
	if le.ExtractionFailed {
		qc.ConfidenceScore = max(qc.ConfidenceScore-0.2, 0.0)
	}
	qc.ConfidenceScore = clamp01(qc.ConfidenceScore)

	a.sanitizeDates(qc)
}

// sanitizeDates repairs inverted ranges and future end dates instead of
// rejecting the query.
func (a *QueryAnalyzer) sanitizeDates(qc *domain.QueryContext) {
	if qc.StartDate != nil && qc.EndDate != nil && qc.StartDate.After(*qc.EndDate) {
		qc.StartDate, qc.EndDate = qc.EndDate, qc.StartDate
		qc.Source.Warnings = append(qc.Source.Warnings, "date range was inverted, swapped")
	}
	now := a.clock.Now()
	if qc.EndDate != nil && qc.EndDate.After(now) {
		qc.EndDate = &now
		qc.Source.Warnings = append(qc.Source.Warnings, "end date was in the future, clamped to now")
	}
}

func inferAreasFromLawRefs(refs []string) []string {
	var areas []string
	for _, ref := range refs {
		upper := strings.ToUpper(turkishUpper(ref))
		for prefix, area := range lawRefAreaPrefixes {
			if strings.HasPrefix(upper, prefix) {
				areas = append(areas, area)
			}
		}
	}
	return dedupeFold(areas)
}

func turkishUpper(s string) string {
	s = strings.ReplaceAll(s, "i", "İ")
	s = strings.ReplaceAll(s, "ı", "I")
	return strings.ToUpper(s)
}

// unionFold keeps the deterministic list's order and appends entries the
// semantic list found that the patterns missed.
func unionFold(primary, secondary []string) []string {
	merged := make([]string, 0, len(primary)+len(secondary))
	merged = append(merged, primary...)
	merged = append(merged, secondary...)
	return dedupeFold(merged)
}
