package domain

import (
	"strings"
	"time"
)

// ExtractionSource records which extractors ran for a query and anything
// they had to work around. Kept on the context for debugging.
type ExtractionSource struct {
	RegexUsed  bool     `json:"regex_used"`
	LLMUsed    bool     `json:"llm_used"`
	LLMRawJSON string   `json:"llm_raw_json,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// QueryContext is the enriched representation of one user query, merged
// from deterministic (regex) and semantic (LLM) extraction. It is built
// once per request by the query analyzer and read-only downstream.
type QueryContext struct {
	OriginalQuery string    `json:"original_query"`
	UserID        string    `json:"user_id"`
	Timestamp     time.Time `json:"timestamp"`

	Intents         []string `json:"intents"`
	QueryType       string   `json:"query_type"`
	ConfidenceScore float64  `json:"confidence_score"`

	LegalAreas    []string `json:"legal_areas"`
	LegalConcepts []string `json:"legal_concepts,omitempty"`

	LawReferences []string `json:"law_references,omitempty"`
	Courts        []string `json:"courts,omitempty"`
	FileNumbers   []string `json:"file_numbers,omitempty"`

	StartDate       *time.Time `json:"start_date,omitempty"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	DateExpressions []string   `json:"date_expressions,omitempty"`

	Parties  []string `json:"parties,omitempty"`
	Keywords []string `json:"keywords,omitempty"`

	RequiresCaseLaw        bool `json:"requires_case_law"`
	RequiresLegislation    bool `json:"requires_legislation"`
	RequiresSemanticSearch bool `json:"requires_semantic_search"`
	RequiresExactMatch     bool `json:"requires_exact_match"`

	Source ExtractionSource `json:"source"`
}

// IsValid holds after analyzer post-processing: a non-blank query with at
// least one intent (a default intent is injected when extraction finds none).
func (c *QueryContext) IsValid() bool {
	return strings.TrimSpace(c.OriginalQuery) != "" && len(c.Intents) > 0
}

// RegexExtraction is the output of the deterministic pattern extractor.
type RegexExtraction struct {
	OriginalQuery string
	LawReferences []string
	Courts        []string
	FileNumbers   []string
	LegalAreas    []string
	StartDate     *time.Time
	EndDate       *time.Time
}

// LLMExtraction is the output of the semantic extractor. A failed
// extraction is a value with ExtractionFailed set, never an error.
type LLMExtraction struct {
	OriginalQuery string
	RawJSON       string

	Intents         []string
	LegalAreas      []string
	LawReferences   []string
	Courts          []string
	DateExpressions []string
	LegalConcepts   []string
	Parties         []string
	Keywords        []string

	QueryType           string
	RequiresCaseLaw     bool
	RequiresLegislation bool
	ConfidenceScore     float64

	ExtractionFailed bool
	ErrorMessage     string
}
