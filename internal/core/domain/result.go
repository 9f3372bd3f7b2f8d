package domain

import "time"

type DocumentType string

const (
	TypeLegislation DocumentType = "legislation"
	TypeCaseLaw     DocumentType = "case_law"
	TypeCommentary  DocumentType = "commentary"
	TypeRegulation  DocumentType = "regulation"
	TypeOther       DocumentType = "other"
)

// SearchResult is one retrieved chunk candidate. The raw sub-scores are
// normalized to [0,1] per source branch before fusion; FinalScore is only
// meaningful after the fusion ranker has run.
type SearchResult struct {
	DocumentID string `json:"document_id"`
	ChunkID    string `json:"chunk_id"`
	ChunkIndex int    `json:"chunk_index"`
	Title      string `json:"title"`

	Content          string `json:"content"`
	MergedContent    string `json:"merged_content,omitempty"`
	IsMergedWithNext bool   `json:"is_merged_with_next,omitempty"`

	VectorScore     float64 `json:"vector_score"`
	BM25Score       float64 `json:"bm25_score"`
	MetadataScore   float64 `json:"metadata_score"`
	ExactMatchScore float64 `json:"exact_match_score"`
	FinalScore      float64 `json:"final_score"`
	Relevance       float64 `json:"relevance"`

	DocumentType  DocumentType `json:"document_type"`
	LegalArea     string       `json:"legal_area"`
	Court         string       `json:"court,omitempty"`
	FileNumber    string       `json:"file_number,omitempty"`
	PublishDate   *time.Time   `json:"publish_date,omitempty"`
	LawReferences []string     `json:"law_references,omitempty"`
	URL           string       `json:"url,omitempty"`

	IsGlobal       bool   `json:"is_global"`
	OrganizationID string `json:"organization_id,omitempty"`

	IsAmended     bool       `json:"is_amended"`
	AmendmentDate *time.Time `json:"amendment_date,omitempty"`
}
