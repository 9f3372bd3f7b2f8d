package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// Document is an ingested legal source file and its extracted metadata.
type Document struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Filename    string       `json:"filename"`
	MimeType    string       `json:"mime_type"`
	StoragePath string       `json:"storage_path"`
	Type        DocumentType `json:"type"`

	LegalArea     string     `json:"legal_area,omitempty"`
	Court         string     `json:"court,omitempty"`
	FileNumber    string     `json:"file_number,omitempty"`
	PublishDate   *time.Time `json:"publish_date,omitempty"`
	LawReferences []string   `json:"law_references,omitempty"`
	URL           string     `json:"url,omitempty"`

	IsGlobal       bool   `json:"is_global"`
	OrganizationID string `json:"organization_id,omitempty"`

	IsAmended     bool       `json:"is_amended"`
	AmendmentDate *time.Time `json:"amendment_date,omitempty"`

	Status       DocumentStatus `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	ChunkCount   int            `json:"chunk_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Chunk is one indexed slice of a document, carrying a copy of the parent
// metadata so retrieval never joins back to the documents table.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Index      int    `json:"index"`
	Content    string `json:"content"`

	Embedding []float32 `json:"-"`
}
