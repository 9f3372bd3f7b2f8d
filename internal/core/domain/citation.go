package domain

import "time"

// CitationMapping binds one [KAYNAK-n] marker in the answer text to the
// source chunk it resolves to, plus the metadata a frontend needs for
// tooltips.
type CitationMapping struct {
	CitationText  string       `json:"citation_text"`
	CitationIndex int          `json:"citation_index"`
	Position      int          `json:"position"`
	DocumentID    string       `json:"document_id"`
	DocumentTitle string       `json:"document_title"`
	DocumentType  DocumentType `json:"document_type"`
	ChunkID       string       `json:"chunk_id"`
	Court         string       `json:"court,omitempty"`
	PublishDate   *time.Time   `json:"publish_date,omitempty"`
	FileNumber    string       `json:"file_number,omitempty"`
	LawReferences []string     `json:"law_references,omitempty"`
	URL           string       `json:"url,omitempty"`
}

type CitationMappingResult struct {
	OriginalAnswer string            `json:"original_answer"`
	Citations      []CitationMapping `json:"citations"`
	TotalCitations int               `json:"total_citations"`
	UniqueSources  int               `json:"unique_sources"`
}
