package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/insightbase/insightbase/internal/core/domain"
	"github.com/insightbase/insightbase/internal/core/ports"
)

func (s *Store) SaveDocument(ctx context.Context, doc *domain.Document) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO documents (
	id, title, filename, mime_type, storage_path, document_type,
	legal_area, court, file_number, publish_date, law_references, url,
	is_global, organization_id, is_amended, amendment_date,
	status, error_message, chunk_count, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
`,
		doc.ID, doc.Title, doc.Filename, doc.MimeType, doc.StoragePath, string(doc.Type),
		nullIfEmpty(doc.LegalArea), nullIfEmpty(doc.Court), nullIfEmpty(doc.FileNumber),
		doc.PublishDate, pq.Array(doc.LawReferences), nullIfEmpty(doc.URL),
		doc.IsGlobal, nullIfEmpty(doc.OrganizationID), doc.IsAmended, doc.AmendmentDate,
		string(doc.Status), doc.ErrorMessage, doc.ChunkCount, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *Store) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, title, filename, mime_type, storage_path, document_type,
	legal_area, court, file_number, publish_date, law_references, url,
	is_global, organization_id, is_amended, amendment_date,
	status, error_message, chunk_count, created_at, updated_at
FROM documents
WHERE id = $1
`, id)

	var (
		doc       domain.Document
		docType   string
		legalArea sql.NullString
		court     sql.NullString
		fileNum   sql.NullString
		publish   sql.NullTime
		lawRefs   pq.StringArray
		url       sql.NullString
		orgID     sql.NullString
		amendDate sql.NullTime
		status    string
	)

	err := row.Scan(
		&doc.ID, &doc.Title, &doc.Filename, &doc.MimeType, &doc.StoragePath, &docType,
		&legalArea, &court, &fileNum, &publish, &lawRefs, &url,
		&doc.IsGlobal, &orgID, &doc.IsAmended, &amendDate,
		&status, &doc.ErrorMessage, &doc.ChunkCount, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", err)
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}

	doc.Type = domain.DocumentType(docType)
	doc.LegalArea = legalArea.String
	doc.Court = court.String
	doc.FileNumber = fileNum.String
	if publish.Valid {
		t := publish.Time
		doc.PublishDate = &t
	}
	doc.LawReferences = lawRefs
	doc.URL = url.String
	doc.OrganizationID = orgID.String
	if amendDate.Valid {
		t := amendDate.Time
		doc.AmendmentDate = &t
	}
	doc.Status = domain.DocumentStatus(status)
	return &doc, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMsg string) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMsg, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, "update document status", sql.ErrNoRows)
	}
	return nil
}

// IndexChunks replaces a document's chunks atomically and records the new
// chunk count.
func (s *Store) IndexChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin index tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, doc.ID); err != nil {
		return fmt.Errorf("delete stale chunks: %w", err)
	}

	for _, chunk := range chunks {
		_, err := tx.ExecContext(ctx, `
INSERT INTO chunks (id, document_id, chunk_index, content, embedding)
VALUES ($1,$2,$3,$4,$5::vector)
`, chunk.ID, chunk.DocumentID, chunk.Index, chunk.Content, vectorLiteral(chunk.Embedding))
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", chunk.Index, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE documents SET chunk_count = $2, updated_at = $3 WHERE id = $1
`, doc.ID, len(chunks), time.Now().UTC()); err != nil {
		return fmt.Errorf("update chunk count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit index tx: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ ports.DocumentStore = (*Store)(nil)
