package usecase

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/insightbase/insightbase/internal/core/domain"
	"github.com/insightbase/insightbase/internal/core/ports"
)

const extractionSystemPrompt = `Sen Türk hukuku alanında uzmanlaşmış bir sorgu analiz asistanısın.
Kullanıcının hukuki sorusunu analiz et ve SADECE geçerli JSON döndür, başka hiçbir metin ekleme.

JSON şeması:
{
  "intent": ["case_search" | "precedent_search" | "article_explanation" | "law_summary" | "general_legal_question" | "document_comparison"],
  "legal_areas": ["ceza_hukuku" | "medeni_hukuku" | "borçlar_hukuku" | "ticaret_hukuku" | "iş_hukuku" | "idare_hukuku" | "anayasa_hukuku" | ...],
  "entities": {
    "law_references": ["TCK 86", ...],
    "courts": ["Yargıtay 12. Ceza Dairesi", ...],
    "date_expressions": ["son 5 yıl", ...],
    "legal_concepts": ["kasten yaralama", ...],
    "parties": ["işveren", "işçi", ...],
    "keywords": ["tazminat", ...]
  },
  "query_type": "question" | "search" | "comparison" | "summary",
  "requires_case_law": true | false,
  "requires_legislation": true | false,
  "confidence_score": 0.0-1.0
}

Kurallar:
- Kanun atıflarını "KISALTMA madde" biçiminde normalize et (örn. "TCK 86").
- Mahkeme adlarını tam biçimde yaz (örn. "Yargıtay 12. Ceza Dairesi").
- Emin olmadığın alanları boş bırak, uydurma.
- confidence_score analizinin kalitesini yansıtsın.

Örnek:
Soru: "Son 5 yıldaki Yargıtay kararlarında TCK 86 kapsamında kasten yaralama suçu nasıl değerlendirilmiş?"
Yanıt:
{"intent":["precedent_search"],"legal_areas":["ceza_hukuku"],"entities":{"law_references":["TCK 86"],"courts":["Yargıtay"],"date_expressions":["son 5 yıl"],"legal_concepts":["kasten yaralama"],"parties":[],"keywords":["kasten yaralama","suç"]},"query_type":"search","requires_case_law":true,"requires_legislation":true,"confidence_score":0.9}`

// llmExtractionPayload mirrors the JSON schema the extraction prompt asks
// the model to produce. Entity categories are nested so a sloppy model
// cannot collapse them into one list.
type llmExtractionPayload struct {
	Intent     []string `json:"intent"`
	LegalAreas []string `json:"legal_areas"`
	Entities   struct {
		LawReferences   []string `json:"law_references"`
		Courts          []string `json:"courts"`
		DateExpressions []string `json:"date_expressions"`
		LegalConcepts   []string `json:"legal_concepts"`
		Parties         []string `json:"parties"`
		Keywords        []string `json:"keywords"`
	} `json:"entities"`
	QueryType           string  `json:"query_type"`
	RequiresCaseLaw     bool    `json:"requires_case_law"`
	RequiresLegislation bool    `json:"requires_legislation"`
	ConfidenceScore     float64 `json:"confidence_score"`
}

// LLMExtractor asks the chat model to analyze a query semantically. A model
// or parse failure is reported inside the extraction value, never as an
// error: the analyzer degrades to regex-only results.
type LLMExtractor struct {
	llm         ports.ChatLLM
	temperature float64
}

func NewLLMExtractor(llm ports.ChatLLM, temperature float64) *LLMExtractor {
	return &LLMExtractor{llm: llm, temperature: temperature}
}

func (e *LLMExtractor) Extract(ctx context.Context, query string) domain.LLMExtraction {
	out := domain.LLMExtraction{OriginalQuery: query}

	raw, err := e.llm.CompleteJSON(ctx, extractionSystemPrompt, query, e.temperature)
	if err != nil {
		out.ExtractionFailed = true
		out.ErrorMessage = err.Error()
		return out
	}
	out.RawJSON = raw

	var payload llmExtractionPayload
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &payload); err != nil {
		out.ExtractionFailed = true
		out.ErrorMessage = "parse extraction json: " + err.Error()
		return out
	}

	out.Intents = cleanList(payload.Intent)
	out.LegalAreas = cleanList(payload.LegalAreas)
	out.LawReferences = cleanList(payload.Entities.LawReferences)
	out.Courts = cleanList(payload.Entities.Courts)
	out.DateExpressions = cleanList(payload.Entities.DateExpressions)
	out.LegalConcepts = cleanList(payload.Entities.LegalConcepts)
	out.Parties = cleanList(payload.Entities.Parties)
	out.Keywords = cleanList(payload.Entities.Keywords)
	out.QueryType = strings.TrimSpace(payload.QueryType)
	out.RequiresCaseLaw = payload.RequiresCaseLaw
	out.RequiresLegislation = payload.RequiresLegislation
	out.ConfidenceScore = clamp01(payload.ConfidenceScore)

	return out
}

// stripCodeFence unwraps answers a model insists on wrapping in markdown
// fences despite the JSON instruction.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
