package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/insightbase/insightbase/internal/core/domain"
	"github.com/insightbase/insightbase/internal/core/ports"
)

const resultColumns = `
	c.id, c.document_id, c.chunk_index, c.content,
	d.title, d.document_type, d.legal_area, d.court, d.file_number,
	d.publish_date, d.law_references, d.url,
	d.is_global, d.organization_id, d.is_amended, d.amendment_date`

func (s *Store) VectorSearch(ctx context.Context, q ports.VectorQuery) ([]domain.SearchResult, error) {
	args := []any{vectorLiteral(q.Embedding)}
	where, args := accessClause(q.Access, args)

	if len(q.Areas) > 0 {
		args = append(args, pq.Array(q.Areas))
		where = append(where, fmt.Sprintf("(d.legal_area IS NULL OR d.legal_area = ANY($%d))", len(args)))
	}
	if len(q.Types) > 0 {
		types := make([]string, len(q.Types))
		for i, t := range q.Types {
			types[i] = string(t)
		}
		args = append(args, pq.Array(types))
		where = append(where, fmt.Sprintf("d.document_type = ANY($%d)", len(args)))
	}

	args = append(args, limitOrDefault(q.Limit))
	query := fmt.Sprintf(`
SELECT %s,
	1 - (c.embedding <=> $1::vector) AS score
FROM chunks c
JOIN documents d ON d.id = c.document_id
WHERE d.status = 'ready' AND %s
ORDER BY c.embedding <=> $1::vector
LIMIT $%d`, resultColumns, strings.Join(where, " AND "), len(args))

	return s.queryResults(ctx, query, args, func(r *domain.SearchResult, score float64) {
		r.VectorScore = score
	})
}

func (s *Store) KeywordSearch(ctx context.Context, q ports.KeywordQuery) ([]domain.SearchResult, error) {
	tsquery := buildTSQuery(q.Terms)
	if tsquery == "" {
		return nil, nil
	}

	args := []any{tsquery}
	where, args := accessClause(q.Access, args)

	args = append(args, limitOrDefault(q.Limit))
	query := fmt.Sprintf(`
SELECT %s,
	ts_rank_cd(c.tsv, to_tsquery('turkish', $1)) AS score
FROM chunks c
JOIN documents d ON d.id = c.document_id
WHERE d.status = 'ready' AND c.tsv @@ to_tsquery('turkish', $1) AND %s
ORDER BY score DESC
LIMIT $%d`, resultColumns, strings.Join(where, " AND "), len(args))

	return s.queryResults(ctx, query, args, func(r *domain.SearchResult, score float64) {
		r.BM25Score = score
	})
}

func (s *Store) ExactSearch(ctx context.Context, q ports.ExactQuery) ([]domain.SearchResult, error) {
	if len(q.LawReferences) == 0 && len(q.FileNumbers) == 0 {
		return nil, nil
	}

	var args []any
	where, args := accessClause(q.Access, args)

	var exact []string
	if len(q.LawReferences) > 0 {
		args = append(args, pq.Array(q.LawReferences))
		exact = append(exact, fmt.Sprintf("d.law_references && $%d", len(args)))
	}
	if len(q.FileNumbers) > 0 {
		args = append(args, pq.Array(q.FileNumbers))
		exact = append(exact, fmt.Sprintf("d.file_number = ANY($%d)", len(args)))
	}
	where = append(where, "("+strings.Join(exact, " OR ")+")")

	args = append(args, limitOrDefault(q.Limit))
	query := fmt.Sprintf(`
SELECT %s,
	1.0 AS score
FROM chunks c
JOIN documents d ON d.id = c.document_id
WHERE d.status = 'ready' AND %s
ORDER BY d.publish_date DESC NULLS LAST, c.chunk_index
LIMIT $%d`, resultColumns, strings.Join(where, " AND "), len(args))

	return s.queryResults(ctx, query, args, func(r *domain.SearchResult, score float64) {
		r.ExactMatchScore = score
	})
}

func (s *Store) queryResults(ctx context.Context, query string, args []any, assign func(*domain.SearchResult, float64)) ([]domain.SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	var out []domain.SearchResult
	for rows.Next() {
		r, score, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		assign(&r, score)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return out, nil
}

func scanResult(rows *sql.Rows) (domain.SearchResult, float64, error) {
	var (
		r         domain.SearchResult
		docType   string
		legalArea sql.NullString
		court     sql.NullString
		fileNum   sql.NullString
		publish   sql.NullTime
		lawRefs   pq.StringArray
		url       sql.NullString
		orgID     sql.NullString
		amendDate sql.NullTime
		score     float64
	)

	err := rows.Scan(
		&r.ChunkID, &r.DocumentID, &r.ChunkIndex, &r.Content,
		&r.Title, &docType, &legalArea, &court, &fileNum,
		&publish, &lawRefs, &url,
		&r.IsGlobal, &orgID, &r.IsAmended, &amendDate,
		&score,
	)
	if err != nil {
		return domain.SearchResult{}, 0, fmt.Errorf("scan search result: %w", err)
	}

	r.DocumentType = domain.DocumentType(docType)
	r.LegalArea = legalArea.String
	r.Court = court.String
	r.FileNumber = fileNum.String
	if publish.Valid {
		t := publish.Time
		r.PublishDate = &t
	}
	r.LawReferences = lawRefs
	r.URL = url.String
	r.OrganizationID = orgID.String
	if amendDate.Valid {
		t := amendDate.Time
		r.AmendmentDate = &t
	}
	return r, score, nil
}

// accessClause appends the security predicate: global documents when
// allowed, the user's organizations, and per-document grants.
func accessClause(access *domain.AccessDomain, args []any) ([]string, []any) {
	if access == nil {
		return []string{"d.is_global"}, args
	}

	var terms []string
	if access.IncludeGlobalData {
		terms = append(terms, "d.is_global")
	}
	if len(access.OrganizationIDs) > 0 {
		args = append(args, pq.Array(access.OrganizationIDs))
		terms = append(terms, fmt.Sprintf("d.organization_id = ANY($%d)", len(args)))
	}
	if len(access.AllowedDocumentIDs) > 0 {
		args = append(args, pq.Array(access.AllowedDocumentIDs))
		terms = append(terms, fmt.Sprintf("d.id = ANY($%d)", len(args)))
	}
	if len(terms) == 0 {
		// No access facts at all: match nothing rather than everything.
		terms = append(terms, "FALSE")
	}
	return []string{"(" + strings.Join(terms, " OR ") + ")"}, args
}

// buildTSQuery joins terms with OR. Short all-caps tokens (law
// abbreviations) and bare numbers get prefix matching so "TCK" finds
// "TCK'nın" and "86" finds "86/1".
func buildTSQuery(terms []string) string {
	var parts []string
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		for _, word := range strings.Fields(term) {
			word = sanitizeTSWord(word)
			if word == "" {
				continue
			}
			if isShortAllCaps(word) || isNumeric(word) {
				parts = append(parts, "'"+word+"':*")
			} else {
				parts = append(parts, "'"+word+"'")
			}
		}
	}
	return strings.Join(parts, " | ")
}

func sanitizeTSWord(w string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\'', '\\', ':', '&', '|', '!', '(', ')':
			return -1
		}
		return r
	}, w)
}

func isShortAllCaps(w string) bool {
	runes := []rune(w)
	if len(runes) > 5 {
		return false
	}
	hasLetter := false
	for _, r := range runes {
		if r >= 'a' && r <= 'z' || r >= 'ç' && r <= 'ü' {
			return false
		}
		if r >= 'A' && r <= 'Z' || r == 'İ' || r == 'Ş' || r == 'Ç' || r == 'Ö' || r == 'Ü' || r == 'Ğ' || r == 'I' {
			hasLetter = true
		}
	}
	return hasLetter
}

func isNumeric(w string) bool {
	if w == "" {
		return false
	}
	_, err := strconv.Atoi(w)
	return err == nil
}

func vectorLiteral(v []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 20
	}
	return limit
}

var _ ports.SearchStore = (*Store)(nil)
