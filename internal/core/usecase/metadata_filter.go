package usecase

import (
	"sort"
	"strings"

	"github.com/insightbase/insightbase/internal/core/domain"
)

// MetadataFilterConfig toggles the individual filter stages. All stages
// default to on; a stage whose query-side input is empty is a no-op
// regardless of its toggle.
type MetadataFilterConfig struct {
	FilterByLegalArea    bool
	FilterByCourt        bool
	FilterByDateRange    bool
	FilterByLawReference bool
	FilterByDocumentType bool
	FilterByFileNumber   bool
	PreferCurrentLaw     bool
}

func DefaultMetadataFilterConfig() MetadataFilterConfig {
	return MetadataFilterConfig{
		FilterByLegalArea:    true,
		FilterByCourt:        true,
		FilterByDateRange:    true,
		FilterByLawReference: true,
		FilterByDocumentType: true,
		FilterByFileNumber:   true,
		PreferCurrentLaw:     true,
	}
}

// MetadataFilter narrows a candidate set to the results consistent with
// the query's extracted metadata before fusion scoring runs.
type MetadataFilter struct {
	cfg MetadataFilterConfig
}

func NewMetadataFilter(cfg MetadataFilterConfig) *MetadataFilter {
	return &MetadataFilter{cfg: cfg}
}

func (f *MetadataFilter) Apply(qc *domain.QueryContext, results []domain.SearchResult) []domain.SearchResult {
	out := results

	if f.cfg.FilterByLegalArea && len(qc.LegalAreas) > 0 {
		out = keep(out, func(r domain.SearchResult) bool {
			if r.LegalArea == "" {
				return true
			}
			for _, area := range qc.LegalAreas {
				if strings.EqualFold(r.LegalArea, area) {
					return true
				}
			}
			return false
		})
	}

	if f.cfg.FilterByCourt && len(qc.Courts) > 0 {
		out = keep(out, func(r domain.SearchResult) bool {
			if r.Court == "" {
				return true
			}
			for _, court := range qc.Courts {
				if containsFold(r.Court, court) || containsFold(court, r.Court) {
					return true
				}
			}
			return false
		})
	}

	if f.cfg.FilterByDateRange && qc.StartDate != nil && qc.EndDate != nil {
		out = keep(out, func(r domain.SearchResult) bool {
			// A dated query cannot be satisfied by an undated document.
			if r.PublishDate == nil {
				return false
			}
			return !r.PublishDate.Before(*qc.StartDate) && !r.PublishDate.After(*qc.EndDate)
		})
	}

	if f.cfg.FilterByLawReference && len(qc.LawReferences) > 0 {
		out = keep(out, func(r domain.SearchResult) bool {
			if len(r.LawReferences) == 0 {
				return true
			}
			for _, want := range qc.LawReferences {
				for _, have := range r.LawReferences {
					if containsFold(have, want) || containsFold(want, have) {
						return true
					}
				}
			}
			return false
		})
	}

	if f.cfg.FilterByDocumentType {
		if types := allowedDocumentTypes(qc); len(types) > 0 {
			out = keep(out, func(r domain.SearchResult) bool {
				for _, t := range types {
					if r.DocumentType == t {
						return true
					}
				}
				return false
			})
		}
	}

	if f.cfg.FilterByFileNumber && len(qc.FileNumbers) > 0 {
		out = keep(out, func(r domain.SearchResult) bool {
			if r.FileNumber == "" {
				return true
			}
			for _, fn := range qc.FileNumbers {
				if strings.EqualFold(r.FileNumber, fn) {
					return true
				}
			}
			return false
		})
	}

	if f.cfg.PreferCurrentLaw {
		sort.SliceStable(out, func(i, j int) bool {
			return !out[i].IsAmended && out[j].IsAmended
		})
	}

	return out
}

func keep(results []domain.SearchResult, pred func(domain.SearchResult) bool) []domain.SearchResult {
	out := results[:0:0]
	for _, r := range results {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(turkishLower(haystack), turkishLower(needle))
}
