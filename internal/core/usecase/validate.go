package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/insightbase/insightbase/internal/core/domain"
	"github.com/insightbase/insightbase/internal/core/ports"
)

var (
	citationPattern      = regexp.MustCompile(`\[KAYNAK-(\d+)\]`)
	answerLawRefPattern  = regexp.MustCompile(`(TCK|TBK|CMK|HMK|TMK|İİK|TTK)\s*(\d+)`)
	answerDatePattern    = regexp.MustCompile(`\b(\d{2}\.\d{2}\.\d{4}|\d{4})\b`)
	answerCourtPattern   = regexp.MustCompile(`Yargıtay\s+\d+\.?\s*(?:Ceza|Hukuk)\s+Dairesi`)
	sentenceSplitPattern = regexp.MustCompile(`[.!?]\s+`)
)

// genericPhrases mark connective sentences that carry no claim of their
// own and are exempt from grounding checks.
var genericPhrases = []string{
	"sonuç olarak",
	"özetle",
	"bu nedenle",
	"dolayısıyla",
	"yukarıda belirtildiği",
	"aşağıda açıklandığı",
}

var disclaimerPhrases = []string{
	"hukuki görüş",
	"kesin hukuki danışma değil",
	"avukata danış",
	"hukuki yardım alınmalı",
}

type ValidatorConfig struct {
	MinCitationDensity       float64
	MaxWarnings              int
	UngroundedSentenceLimit  float64
	EnableHallucinationCheck bool
}

func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		MinCitationDensity:      0.2,
		MaxWarnings:             3,
		UngroundedSentenceLimit: 0.3,
	}
}

// AnswerValidator inspects a generated answer against its sources and
// collects errors and warnings. It never rewrites the answer.
type AnswerValidator struct {
	cfg    ValidatorConfig
	llm    ports.ChatLLM
	clock  ports.Clock
	logger *slog.Logger
}

func NewAnswerValidator(cfg ValidatorConfig, llm ports.ChatLLM, clock ports.Clock, logger *slog.Logger) *AnswerValidator {
	if cfg.MinCitationDensity <= 0 {
		cfg.MinCitationDensity = 0.2
	}
	if cfg.UngroundedSentenceLimit <= 0 {
		cfg.UngroundedSentenceLimit = 0.3
	}
	return &AnswerValidator{cfg: cfg, llm: llm, clock: clock, logger: logger}
}

func (v *AnswerValidator) Validate(ctx context.Context, answer string, sources []domain.SearchResult) *domain.ValidationResult {
	result := &domain.ValidationResult{Answer: answer}

	v.checkCitations(result, answer, sources)
	v.checkLawReferences(result, answer, sources)
	v.checkDates(result, answer, sources)
	v.checkCourts(result, answer, sources)
	v.checkGrounding(result, answer, sources)
	v.checkDisclaimer(result, answer)
	if v.cfg.EnableHallucinationCheck {
		v.checkHallucination(ctx, result, answer, sources)
	}

	result.IsValid = len(result.Errors) == 0 && len(result.Warnings) <= v.cfg.MaxWarnings

	v.logger.Info("answer validated",
		slog.Bool("is_valid", result.IsValid),
		slog.Int("errors", len(result.Errors)),
		slog.Int("warnings", len(result.Warnings)))

	return result
}

func (v *AnswerValidator) checkCitations(result *domain.ValidationResult, answer string, sources []domain.SearchResult) {
	matches := citationPattern.FindAllStringSubmatchIndex(answer, -1)

	if len(matches) == 0 {
		result.Warnings = append(result.Warnings, domain.ValidationWarning{
			Type:     domain.WarningMissingCitation,
			Message:  "Yanıt hiçbir kaynağa atıf içermiyor.",
			Severity: domain.SeverityHigh,
		})
		return
	}

	for _, m := range matches {
		n, err := strconv.Atoi(answer[m[2]:m[3]])
		if err != nil || n < 1 || n > len(sources) {
			result.Errors = append(result.Errors, domain.ValidationError{
				Type:     domain.ErrorInvalidCitation,
				Message:  fmt.Sprintf("Atıf [KAYNAK-%s] mevcut kaynak aralığının dışında (1-%d).", answer[m[2]:m[3]], len(sources)),
				Location: m[0],
			})
		}
	}

	sentences := splitSentences(answer)
	if len(sentences) > 0 {
		density := float64(len(matches)) / float64(len(sentences))
		if density < v.cfg.MinCitationDensity {
			result.Warnings = append(result.Warnings, domain.ValidationWarning{
				Type:     domain.WarningLowCitationDensity,
				Message:  fmt.Sprintf("Atıf yoğunluğu düşük: cümle başına %.2f atıf.", density),
				Severity: domain.SeverityMedium,
			})
		}
	}
}

func (v *AnswerValidator) checkLawReferences(result *domain.ValidationResult, answer string, sources []domain.SearchResult) {
	for _, m := range answerLawRefPattern.FindAllStringSubmatch(answer, -1) {
		ref := m[1] + " " + m[2]
		if !lawRefGrounded(ref, sources) {
			result.Warnings = append(result.Warnings, domain.ValidationWarning{
				Type:     domain.WarningUngroundedLawRef,
				Message:  fmt.Sprintf("Yanıttaki %q atfı hiçbir kaynakta geçmiyor.", ref),
				Severity: domain.SeverityHigh,
				Details:  ref,
			})
		}
	}
}

func (v *AnswerValidator) checkDates(result *domain.ValidationResult, answer string, sources []domain.SearchResult) {
	now := v.clock.Now()
	for _, m := range answerDatePattern.FindAllString(answer, -1) {
		parsed, ok := parseAnswerDate(m)
		if !ok {
			continue
		}
		if parsed.After(now) {
			result.Errors = append(result.Errors, domain.ValidationError{
				Type:    domain.ErrorFutureDate,
				Message: fmt.Sprintf("Yanıt gelecekteki bir tarihe atıf yapıyor: %s.", m),
				Details: m,
			})
			continue
		}
		if !dateNearAnySource(parsed, sources) {
			result.Warnings = append(result.Warnings, domain.ValidationWarning{
				Type:     domain.WarningUngroundedDate,
				Message:  fmt.Sprintf("Yanıttaki %s tarihi kaynak tarihleriyle örtüşmüyor.", m),
				Severity: domain.SeverityMedium,
				Details:  m,
			})
		}
	}
}

func (v *AnswerValidator) checkCourts(result *domain.ValidationResult, answer string, sources []domain.SearchResult) {
	for _, court := range answerCourtPattern.FindAllString(answer, -1) {
		if !courtGrounded(court, sources) {
			result.Warnings = append(result.Warnings, domain.ValidationWarning{
				Type:     domain.WarningUngroundedCourt,
				Message:  fmt.Sprintf("Yanıttaki %q mahkemesi hiçbir kaynakta geçmiyor.", court),
				Severity: domain.SeverityMedium,
				Details:  court,
			})
		}
	}
}

// checkGrounding flags answers where too many sentences have no lexical
// overlap with any source.
func (v *AnswerValidator) checkGrounding(result *domain.ValidationResult, answer string, sources []domain.SearchResult) {
	sentences := splitSentences(answer)
	if len(sentences) == 0 || len(sources) == 0 {
		return
	}

	sourceTokens := make([]map[string]struct{}, len(sources))
	for i, src := range sources {
		sourceTokens[i] = tokenSetTr(src.Content)
	}

	ungrounded := 0
	checked := 0
	for _, sentence := range sentences {
		if isGenericSentence(sentence) {
			continue
		}
		tokens := tokenSetTr(sentence)
		if len(tokens) == 0 {
			continue
		}
		checked++
		grounded := false
		for _, st := range sourceTokens {
			if jaccard(tokens, st) > 0.3 {
				grounded = true
				break
			}
		}
		if !grounded {
			ungrounded++
		}
	}

	if checked > 0 && float64(ungrounded)/float64(checked) > v.cfg.UngroundedSentenceLimit {
		result.Warnings = append(result.Warnings, domain.ValidationWarning{
			Type:     domain.WarningPoorGrounding,
			Message:  fmt.Sprintf("Yanıtın %d/%d cümlesi kaynaklarla örtüşmüyor.", ungrounded, checked),
			Severity: domain.SeverityHigh,
		})
	}
}

func (v *AnswerValidator) checkDisclaimer(result *domain.ValidationResult, answer string) {
	lower := turkishLower(answer)
	for _, phrase := range disclaimerPhrases {
		if strings.Contains(lower, phrase) {
			return
		}
	}
	result.Warnings = append(result.Warnings, domain.ValidationWarning{
		Type:     domain.WarningMissingDisclaimer,
		Message:  "Yanıt hukuki sorumluluk reddi içermiyor.",
		Severity: domain.SeverityLow,
	})
}

const hallucinationCheckPrompt = `Aşağıdaki YANIT metnini KAYNAKLAR ile karşılaştır. Yanıtta kaynaklarda bulunmayan hukuki iddia, kanun maddesi, karar veya tarih var mı?
SADECE şu JSON biçiminde yanıt ver:
{"has_hallucination": true|false, "hallucination_details": "...", "confidence": 0.0-1.0}`

func (v *AnswerValidator) checkHallucination(ctx context.Context, result *domain.ValidationResult, answer string, sources []domain.SearchResult) {
	var sb strings.Builder
	sb.WriteString("YANIT:\n")
	sb.WriteString(answer)
	sb.WriteString("\n\nKAYNAKLAR:\n")
	for i, src := range sources {
		fmt.Fprintf(&sb, "[KAYNAK-%d] %s\n", i+1, src.Content)
	}

	raw, err := v.llm.CompleteJSON(ctx, hallucinationCheckPrompt, sb.String(), 0)
	if err != nil {
		result.Warnings = append(result.Warnings, domain.ValidationWarning{
			Type:     domain.WarningValidationFailure,
			Message:  "Halüsinasyon denetimi çalıştırılamadı.",
			Severity: domain.SeverityLow,
			Details:  err.Error(),
		})
		return
	}

	var verdict struct {
		HasHallucination     bool    `json:"has_hallucination"`
		HallucinationDetails string  `json:"hallucination_details"`
		Confidence           float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &verdict); err != nil {
		result.Warnings = append(result.Warnings, domain.ValidationWarning{
			Type:     domain.WarningValidationFailure,
			Message:  "Halüsinasyon denetimi yanıtı çözümlenemedi.",
			Severity: domain.SeverityLow,
			Details:  err.Error(),
		})
		return
	}

	if verdict.HasHallucination {
		result.Errors = append(result.Errors, domain.ValidationError{
			Type:    domain.ErrorHallucination,
			Message: "Yanıt kaynaklarda bulunmayan bilgi içeriyor.",
			Details: verdict.HallucinationDetails,
		})
	}
}

func lawRefGrounded(ref string, sources []domain.SearchResult) bool {
	for _, src := range sources {
		if containsFold(src.Content, ref) {
			return true
		}
		for _, have := range src.LawReferences {
			if containsFold(have, ref) || containsFold(ref, have) {
				return true
			}
		}
	}
	return false
}

func courtGrounded(court string, sources []domain.SearchResult) bool {
	for _, src := range sources {
		if containsFold(src.Content, court) || containsFold(src.Court, court) {
			return true
		}
		if src.Court != "" && containsFold(court, src.Court) {
			return true
		}
	}
	return false
}

func dateNearAnySource(date time.Time, sources []domain.SearchResult) bool {
	const tolerance = 365 * 24 * time.Hour
	for _, src := range sources {
		if src.PublishDate == nil {
			continue
		}
		diff := date.Sub(*src.PublishDate)
		if diff < 0 {
			diff = -diff
		}
		if diff <= tolerance {
			return true
		}
	}
	return false
}

func parseAnswerDate(s string) (time.Time, bool) {
	if t, err := time.Parse("02.01.2006", s); err == nil {
		return t, true
	}
	if len(s) == 4 {
		year, err := strconv.Atoi(s)
		if err == nil && year >= 1900 && year <= 2200 {
			return time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

func splitSentences(s string) []string {
	parts := sentenceSplitPattern.Split(s, -1)
	out := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

func isGenericSentence(s string) bool {
	lower := turkishLower(s)
	for _, phrase := range genericPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func tokenSetTr(s string) map[string]struct{} {
	fields := strings.Fields(turkishLower(s))
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()[]")
		if len([]rune(f)) < 3 {
			continue
		}
		out[f] = struct{}{}
	}
	return out
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
