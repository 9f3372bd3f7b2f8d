package usecase

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/insightbase/insightbase/internal/core/domain"
)

// CitationMapper resolves the [KAYNAK-n] markers of a validated answer to
// their source chunks. Markers outside the 1..len(sources) range are
// skipped; the validator has already reported them.
type CitationMapper struct{}

func NewCitationMapper() *CitationMapper {
	return &CitationMapper{}
}

func (m *CitationMapper) Map(answer string, sources []domain.SearchResult) *domain.CitationMappingResult {
	result := &domain.CitationMappingResult{OriginalAnswer: answer}

	matches := citationPattern.FindAllStringSubmatchIndex(answer, -1)
	seenDocs := make(map[string]struct{})

	for _, match := range matches {
		n, err := strconv.Atoi(answer[match[2]:match[3]])
		if err != nil || n < 1 || n > len(sources) {
			continue
		}
		src := sources[n-1]

		result.Citations = append(result.Citations, domain.CitationMapping{
			CitationText:  answer[match[0]:match[1]],
			CitationIndex: n,
			Position:      match[0],
			DocumentID:    src.DocumentID,
			DocumentTitle: src.Title,
			DocumentType:  src.DocumentType,
			ChunkID:       src.ChunkID,
			Court:         src.Court,
			PublishDate:   src.PublishDate,
			FileNumber:    src.FileNumber,
			LawReferences: src.LawReferences,
			URL:           src.URL,
		})
		seenDocs[src.DocumentID] = struct{}{}
	}

	result.TotalCitations = len(result.Citations)
	result.UniqueSources = len(seenDocs)
	return result
}

// Summary renders the KAYNAKLAR section appended under the answer: one
// Markdown block per distinct cited document, in first-citation order.
func (m *CitationMapper) Summary(result *domain.CitationMappingResult) string {
	if result == nil || len(result.Citations) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n\n---\n\n")
	sb.WriteString("## KAYNAKLAR\n\n")

	seen := make(map[string]struct{}, len(result.Citations))
	displayIndex := 0
	for _, c := range result.Citations {
		if _, ok := seen[c.DocumentID]; ok {
			continue
		}
		seen[c.DocumentID] = struct{}{}
		displayIndex++

		fmt.Fprintf(&sb, "### [%d] %s\n", displayIndex, c.DocumentTitle)
		fmt.Fprintf(&sb, "- **Tür:** %s\n", documentTypeLabel(c.DocumentType))
		if c.Court != "" {
			fmt.Fprintf(&sb, "- **Mahkeme:** %s\n", c.Court)
		}
		if c.PublishDate != nil {
			fmt.Fprintf(&sb, "- **Tarih:** %s\n", c.PublishDate.Format("02.01.2006"))
		}
		if c.FileNumber != "" {
			fmt.Fprintf(&sb, "- **Dosya No:** %s\n", c.FileNumber)
		}
		if len(c.LawReferences) > 0 {
			fmt.Fprintf(&sb, "- **İlgili Kanunlar:** %s\n", strings.Join(c.LawReferences, ", "))
		}
		if c.URL != "" {
			fmt.Fprintf(&sb, "- **Bağlantı:** %s\n", c.URL)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
