package usecase

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/insightbase/insightbase/internal/core/domain"
	"github.com/insightbase/insightbase/internal/core/ports"
)

var (
	lawRefPattern = regexp.MustCompile(`(?i)(TCK|TBK|CMK|HMK|TMK|İİK|TTK|VUK|SGK|İş\s+Kanunu|Anayasa)\s*(?:md\.?|madde)?\s*(\d+)(?:[/\-](\d+))?(?:[/\-]([a-zçğıöşü]+))?`)

	relativeDatePattern = regexp.MustCompile(`(?i)son\s+(\d+)\s+(yıl|ay|gün)`)
	absoluteDatePattern = regexp.MustCompile(`(\d{4})[/\-.](\d{1,2})[/\-.](\d{1,2})`)

	courtPattern = regexp.MustCompile(`(?i)(Yargıtay|Danıştay|AYM|Bölge\s+Adliye\s+Mahkemesi)\s+(\d+)\.?\s*(Ceza|Hukuk|İdari|Vergi)?\s*(Daire|Dairesi)?`)

	fileNumberPattern = regexp.MustCompile(`E\.\s*(\d{4})/(\d+)`)

	legalAreaPattern = regexp.MustCompile(`(?i)(ceza|medeni|ticaret|borçlar|iş|idare|anayasa)\s+hukuku?`)
)

// RegexExtractor pulls structured legal entities out of query text with
// deterministic patterns. It never fails: a query without matches yields an
// extraction with empty slices.
type RegexExtractor struct {
	clock ports.Clock
}

func NewRegexExtractor(clock ports.Clock) *RegexExtractor {
	return &RegexExtractor{clock: clock}
}

func (e *RegexExtractor) Extract(query string) domain.RegexExtraction {
	out := domain.RegexExtraction{OriginalQuery: query}

	out.LawReferences = e.extractLawReferences(query)
	out.Courts = e.extractCourts(query)
	out.FileNumbers = e.extractFileNumbers(query)
	out.LegalAreas = e.extractLegalAreas(query)
	out.StartDate, out.EndDate = e.extractDateRange(query)

	return out
}

func (e *RegexExtractor) extractLawReferences(query string) []string {
	matches := lawRefPattern.FindAllStringSubmatch(query, -1)
	if len(matches) == 0 {
		return nil
	}

	refs := make([]string, 0, len(matches))
	for _, m := range matches {
		abbr := strings.ToUpper(normalizeSpace(m[1]))
		ref := abbr + " " + m[2]
		if m[3] != "" {
			ref += "/" + m[3]
		}
		if m[4] != "" {
			ref += "-" + strings.ToLower(m[4])
		}
		refs = append(refs, ref)
	}
	return dedupeFold(refs)
}

func (e *RegexExtractor) extractCourts(query string) []string {
	matches := courtPattern.FindAllStringSubmatch(query, -1)
	if len(matches) == 0 {
		return nil
	}

	courts := make([]string, 0, len(matches))
	for _, m := range matches {
		name := canonicalCourtName(m[1])
		court := fmt.Sprintf("%s %s.", name, m[2])
		if m[3] != "" {
			court += " " + titleCaseTr(m[3]) + " Dairesi"
		} else {
			court += " Dairesi"
		}
		courts = append(courts, court)
	}
	return dedupeFold(courts)
}

func (e *RegexExtractor) extractFileNumbers(query string) []string {
	matches := fileNumberPattern.FindAllStringSubmatch(query, -1)
	if len(matches) == 0 {
		return nil
	}

	nums := make([]string, 0, len(matches))
	for _, m := range matches {
		nums = append(nums, fmt.Sprintf("E.%s/%s", m[1], m[2]))
	}
	return dedupeFold(nums)
}

func (e *RegexExtractor) extractLegalAreas(query string) []string {
	matches := legalAreaPattern.FindAllStringSubmatch(query, -1)
	if len(matches) == 0 {
		return nil
	}

	areas := make([]string, 0, len(matches))
	for _, m := range matches {
		area := strings.ToLower(turkishLower(m[1]))
		areas = append(areas, area+"_hukuku")
	}
	return dedupeFold(areas)
}

// extractDateRange prefers relative expressions ("son 5 yıl") over absolute
// dates when both appear in the same query.
func (e *RegexExtractor) extractDateRange(query string) (*time.Time, *time.Time) {
	now := e.clock.Now()

	if m := relativeDatePattern.FindStringSubmatch(query); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > 0 {
			end := now
			var start time.Time
			switch strings.ToLower(turkishLower(m[2])) {
			case "yıl":
				start = now.AddDate(-n, 0, 0)
			case "ay":
				start = now.AddDate(0, -n, 0)
			case "gün":
				start = now.AddDate(0, 0, -n)
			}
			if !start.IsZero() {
				return &start, &end
			}
		}
	}

	matches := absoluteDatePattern.FindAllStringSubmatch(query, -1)
	if len(matches) == 0 {
		return nil, nil
	}

	parse := func(m []string) (time.Time, bool) {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return time.Time{}, false
		}
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
	}

	start, ok := parse(matches[0])
	if !ok {
		return nil, nil
	}

	end := now
	if len(matches) > 1 {
		if last, ok := parse(matches[len(matches)-1]); ok {
			end = last
		}
	}
	return &start, &end
}

func canonicalCourtName(raw string) string {
	switch strings.ToLower(turkishLower(normalizeSpace(raw))) {
	case "yargıtay":
		return "Yargıtay"
	case "danıştay":
		return "Danıştay"
	case "aym":
		return "AYM"
	default:
		return "Bölge Adliye Mahkemesi"
	}
}

func titleCaseTr(s string) string {
	s = strings.ToLower(turkishLower(s))
	switch s {
	case "ceza":
		return "Ceza"
	case "hukuk":
		return "Hukuk"
	case "idari":
		return "İdari"
	case "vergi":
		return "Vergi"
	}
	return s
}

// turkishLower handles the dotted/dotless I pair that strings.ToLower maps
// incorrectly for Turkish text.
func turkishLower(s string) string {
	s = strings.ReplaceAll(s, "İ", "i")
	s = strings.ReplaceAll(s, "I", "ı")
	return strings.ToLower(s)
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// dedupeFold removes case-insensitive duplicates, keeping first occurrence
// order.
func dedupeFold(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		key := strings.ToLower(turkishLower(strings.TrimSpace(it)))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, strings.TrimSpace(it))
	}
	return out
}
