package usecase

import (
	"strings"
	"testing"
	"time"

	"github.com/insightbase/insightbase/internal/core/domain"
)

func TestBuildLabelsSourcesFromOne(t *testing.T) {
	b := NewPromptBuilder(testClock(), 10)

	qc := &domain.QueryContext{OriginalQuery: "TCK 86 nedir?", Intents: []string{"general_legal_question"}}
	sources := []domain.SearchResult{
		{Title: "Birinci Kaynak", Content: "içerik bir"},
		{Title: "İkinci Kaynak", Content: "içerik iki"},
	}

	prompt := b.Build(qc, sources)

	if !strings.Contains(prompt, "[KAYNAK-1] Birinci Kaynak") {
		t.Fatalf("first source must be labeled KAYNAK-1:\n%s", prompt)
	}
	if !strings.Contains(prompt, "[KAYNAK-2] İkinci Kaynak") {
		t.Fatalf("second source must be labeled KAYNAK-2:\n%s", prompt)
	}
	if strings.Contains(prompt, "[KAYNAK-0]") {
		t.Fatalf("labels must be 1-based:\n%s", prompt)
	}
}

func TestBuildIncludesMetadataLine(t *testing.T) {
	b := NewPromptBuilder(testClock(), 10)
	publish := time.Date(2023, 5, 10, 0, 0, 0, 0, time.UTC)

	qc := &domain.QueryContext{OriginalQuery: "soru", Intents: []string{"general_legal_question"}}
	sources := []domain.SearchResult{{
		Title:         "Karar",
		Content:       "içerik",
		DocumentType:  domain.TypeCaseLaw,
		Court:         "Yargıtay 12. Ceza Dairesi",
		FileNumber:    "E.2023/4567",
		PublishDate:   &publish,
		LawReferences: []string{"TCK 86"},
	}}

	prompt := b.Build(qc, sources)

	want := "Tür: Mahkeme Kararı | Mahkeme: Yargıtay 12. Ceza Dairesi | Esas No: E.2023/4567 | Tarih: 10.05.2023 | İlgili Mevzuat: TCK 86"
	if !strings.Contains(prompt, want) {
		t.Fatalf("metadata line missing:\n%s", prompt)
	}
}

func TestBuildWarnsOnAmendedSource(t *testing.T) {
	b := NewPromptBuilder(testClock(), 10)
	amended := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	qc := &domain.QueryContext{OriginalQuery: "soru", Intents: []string{"general_legal_question"}}
	sources := []domain.SearchResult{{
		Title:         "Eski Madde",
		Content:       "içerik",
		IsAmended:     true,
		AmendmentDate: &amended,
	}}

	prompt := b.Build(qc, sources)
	if !strings.Contains(prompt, "01.02.2024 tarihinde değişikliğe uğramıştır") {
		t.Fatalf("amendment warning missing:\n%s", prompt)
	}
}

func TestBuildWarnsOnStaleSource(t *testing.T) {
	b := NewPromptBuilder(testClock(), 10)
	old := fixedNow.AddDate(-7, 0, 0)

	qc := &domain.QueryContext{OriginalQuery: "soru", Intents: []string{"general_legal_question"}}
	sources := []domain.SearchResult{{Title: "Eski Karar", Content: "içerik", PublishDate: &old}}

	prompt := b.Build(qc, sources)
	if !strings.Contains(prompt, "5 yıldan eskidir") {
		t.Fatalf("staleness warning missing:\n%s", prompt)
	}
}

func TestBuildUsesMergedContent(t *testing.T) {
	b := NewPromptBuilder(testClock(), 10)

	qc := &domain.QueryContext{OriginalQuery: "soru", Intents: []string{"general_legal_question"}}
	sources := []domain.SearchResult{{
		Title:            "Karar",
		Content:          "sadece ilk parça",
		MergedContent:    "ilk parça\nikinci parça",
		IsMergedWithNext: true,
	}}

	prompt := b.Build(qc, sources)
	if !strings.Contains(prompt, "ilk parça\nikinci parça") {
		t.Fatalf("merged content must be preferred:\n%s", prompt)
	}
}

func TestBuildAppliesIntentTemplate(t *testing.T) {
	b := NewPromptBuilder(testClock(), 10)

	qc := &domain.QueryContext{OriginalQuery: "soru", Intents: []string{"case_search"}}
	prompt := b.Build(qc, []domain.SearchResult{{Title: "Karar", Content: "içerik"}})

	if !strings.Contains(prompt, "YANIT BİÇİMİ:") {
		t.Fatalf("intent template section missing:\n%s", prompt)
	}
	if !strings.Contains(prompt, "karar bazında") {
		t.Fatalf("case_search template missing:\n%s", prompt)
	}
}

func TestBuildCapsSourceCount(t *testing.T) {
	b := NewPromptBuilder(testClock(), 2)

	qc := &domain.QueryContext{OriginalQuery: "soru", Intents: []string{"general_legal_question"}}
	sources := []domain.SearchResult{
		{Title: "Bir", Content: "a"},
		{Title: "İki", Content: "b"},
		{Title: "Üç", Content: "c"},
	}

	prompt := b.Build(qc, sources)
	if strings.Contains(prompt, "[KAYNAK-3]") {
		t.Fatalf("source cap not applied:\n%s", prompt)
	}
}

func TestBuildRetryEmbedsFindings(t *testing.T) {
	b := NewPromptBuilder(testClock(), 10)

	qc := &domain.QueryContext{OriginalQuery: "soru", Intents: []string{"general_legal_question"}}
	sources := []domain.SearchResult{{Title: "Karar", Content: "içerik"}}
	vr := &domain.ValidationResult{
		Errors: []domain.ValidationError{
			{Type: domain.ErrorInvalidCitation, Message: "Atıf aralık dışında."},
		},
		Warnings: []domain.ValidationWarning{
			{Type: domain.WarningMissingDisclaimer, Message: "Sorumluluk reddi eksik."},
		},
	}

	prompt := b.BuildRetry(qc, sources, vr)

	if !strings.Contains(prompt, "- HATA: Atıf aralık dışında.") {
		t.Fatalf("error finding missing:\n%s", prompt)
	}
	if !strings.Contains(prompt, "- UYARI: Sorumluluk reddi eksik.") {
		t.Fatalf("warning finding missing:\n%s", prompt)
	}
	if !strings.Contains(prompt, "[KAYNAK-1] Karar") {
		t.Fatalf("retry prompt must still carry the sources:\n%s", prompt)
	}
}
