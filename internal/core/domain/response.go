package domain

import "time"

// RAGOptions tunes a single answer request. Zero values mean "use the
// service defaults".
type RAGOptions struct {
	MaxSources        int     `json:"max_sources,omitempty"`
	Temperature       float64 `json:"temperature,omitempty"`
	SkipValidation    bool    `json:"skip_validation,omitempty"`
	DisableRetry      bool    `json:"disable_retry,omitempty"`
	IncludeRawContext bool    `json:"include_raw_context,omitempty"`
}

// RAGResponse is the terminal result of one answer pipeline run. Success
// false always carries a user-facing Turkish message in Answer and the
// technical cause in ErrorMessage.
type RAGResponse struct {
	Success bool   `json:"success"`
	Query   string `json:"query"`
	UserID  string `json:"user_id"`

	QueryContext *QueryContext `json:"query_context,omitempty"`

	Answer          string                 `json:"answer"`
	EnhancedAnswer  string                 `json:"enhanced_answer,omitempty"`
	Citations       *CitationMappingResult `json:"citations,omitempty"`
	CitationSummary string                 `json:"citation_summary,omitempty"`

	Sources     []SearchResult `json:"sources,omitempty"`
	SourceCount int            `json:"source_count"`

	ValidationResult *ValidationResult `json:"validation_result,omitempty"`

	ErrorMessage string `json:"error_message,omitempty"`

	StartTime     time.Time     `json:"start_time"`
	EndTime       time.Time     `json:"end_time"`
	TotalDuration time.Duration `json:"total_duration"`
}

type StreamChunkType string

const (
	ChunkStatus    StreamChunkType = "status"
	ChunkSources   StreamChunkType = "sources"
	ChunkAnswer    StreamChunkType = "answer"
	ChunkCitations StreamChunkType = "citations"
	ChunkComplete  StreamChunkType = "complete"
	ChunkError     StreamChunkType = "error"
)

// RAGStreamChunk is one event on a streaming answer channel. Exactly one
// payload field is set, matching Type.
type RAGStreamChunk struct {
	Type      StreamChunkType        `json:"type"`
	Status    string                 `json:"status,omitempty"`
	Sources   []SearchResult         `json:"sources,omitempty"`
	Answer    string                 `json:"answer,omitempty"`
	Citations *CitationMappingResult `json:"citations,omitempty"`
	Response  *RAGResponse           `json:"response,omitempty"`
	Error     string                 `json:"error,omitempty"`
}
