package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/insightbase/insightbase/internal/core/domain"
	"github.com/insightbase/insightbase/internal/core/ports"
)

const answerSystemPrompt = `Sen Türk hukuku alanında uzman bir hukuki araştırma asistanısın.

Görevin, SADECE sana verilen kaynaklara dayanarak kullanıcının hukuki sorusunu yanıtlamak.

Kurallar:
1. Yanıtındaki HER hukuki iddia için ilgili kaynağa [KAYNAK-n] biçiminde atıf yap.
2. Kaynaklarda olmayan hiçbir bilgiyi yanıtına ekleme. Emin değilsen "verilen kaynaklarda bu konuda bilgi bulunmamaktadır" de.
3. Kanun maddelerini ve mahkeme kararlarını kaynaklardaki haliyle aktar, uydurma.
4. Tarihleri kaynaklardaki haliyle kullan.
5. Yanıtın sonuna şu uyarıyı ekle: "Bu yanıt hukuki görüş niteliği taşımaz, kesin hukuki danışma değildir. Somut olayınız için bir avukata danışmanız önerilir."
6. Türkçe yanıt ver.`

const stricterRetryPreamble = `ÖNCEKİ YANITINDA DOĞRULAMA SORUNLARI TESPİT EDİLDİ. Aşağıdaki sorunları gidererek yanıtını yeniden yaz:
%s
Atıf kurallarına bu kez kesinlikle uy: her iddia için [KAYNAK-n], kaynak dışı bilgi yok.`

// intentTemplates appends an output-structure instruction matching the
// dominant intent.
var intentTemplates = map[string]string{
	"case_search":         "Yanıtını karar bazında yapılandır: her ilgili karar için mahkeme, esas numarası, tarih ve özet ver.",
	"precedent_search":    "Yanıtını içtihat analizi olarak yapılandır: yerleşik görüşü, varsa görüş ayrılıklarını ve güncel eğilimi belirt.",
	"article_explanation": "Yanıtını madde açıklaması olarak yapılandır: maddenin metni, unsurları, uygulama koşulları ve varsa ilgili içtihat.",
	"law_summary":         "Yanıtını mevzuat özeti olarak yapılandır: düzenlemenin amacı, kapsamı ve temel hükümleri.",
	"document_comparison": "Yanıtını karşılaştırma olarak yapılandır: ortak noktalar, farklar ve pratik sonuçları.",
}

// PromptBuilder assembles the grounded answer prompt from the ranked
// sources. Source labels are 1-based and match what the validator and
// citation mapper expect.
type PromptBuilder struct {
	clock      ports.Clock
	maxSources int
}

func NewPromptBuilder(clock ports.Clock, maxSources int) *PromptBuilder {
	if maxSources <= 0 {
		maxSources = 10
	}
	return &PromptBuilder{clock: clock, maxSources: maxSources}
}

func (b *PromptBuilder) SystemPrompt() string {
	return answerSystemPrompt
}

// Build renders the user prompt: query, structured context hints and the
// numbered source blocks.
func (b *PromptBuilder) Build(qc *domain.QueryContext, sources []domain.SearchResult) string {
	if len(sources) > b.maxSources {
		sources = sources[:b.maxSources]
	}

	var sb strings.Builder

	sb.WriteString("SORU: ")
	sb.WriteString(qc.OriginalQuery)
	sb.WriteString("\n\n")

	if hints := b.contextHints(qc); hints != "" {
		sb.WriteString("SORGU BAĞLAMI:\n")
		sb.WriteString(hints)
		sb.WriteString("\n")
	}

	sb.WriteString("KAYNAKLAR:\n\n")
	for i, src := range sources {
		b.writeSource(&sb, i+1, src)
	}

	if tmpl := b.intentTemplate(qc); tmpl != "" {
		sb.WriteString("YANIT BİÇİMİ: ")
		sb.WriteString(tmpl)
		sb.WriteString("\n\n")
	}

	sb.WriteString("Yukarıdaki kaynaklara dayanarak soruyu yanıtla. Her iddia için [KAYNAK-n] atıfı kullan.")

	return sb.String()
}

// BuildRetry prepends the validation findings of the failed attempt so the
// model can correct them.
func (b *PromptBuilder) BuildRetry(qc *domain.QueryContext, sources []domain.SearchResult, vr *domain.ValidationResult) string {
	var findings strings.Builder
	for _, e := range vr.Errors {
		findings.WriteString("- HATA: " + e.Message + "\n")
	}
	for _, w := range vr.Warnings {
		findings.WriteString("- UYARI: " + w.Message + "\n")
	}

	return fmt.Sprintf(stricterRetryPreamble, findings.String()) + "\n\n" + b.Build(qc, sources)
}

func (b *PromptBuilder) writeSource(sb *strings.Builder, n int, src domain.SearchResult) {
	fmt.Fprintf(sb, "[KAYNAK-%d] %s\n", n, src.Title)

	var meta []string
	meta = append(meta, "Tür: "+documentTypeLabel(src.DocumentType))
	if src.Court != "" {
		meta = append(meta, "Mahkeme: "+src.Court)
	}
	if src.FileNumber != "" {
		meta = append(meta, "Esas No: "+src.FileNumber)
	}
	if src.PublishDate != nil {
		meta = append(meta, "Tarih: "+src.PublishDate.Format("02.01.2006"))
	}
	if len(src.LawReferences) > 0 {
		meta = append(meta, "İlgili Mevzuat: "+strings.Join(src.LawReferences, ", "))
	}
	sb.WriteString(strings.Join(meta, " | "))
	sb.WriteString("\n")

	if warning := b.stalenessWarning(src); warning != "" {
		sb.WriteString(warning)
		sb.WriteString("\n")
	}

	content := src.Content
	if src.IsMergedWithNext && src.MergedContent != "" {
		content = src.MergedContent
	}
	sb.WriteString(content)
	sb.WriteString("\n\n")
}

// stalenessWarning flags amended sources and sources older than five
// years so the model qualifies them in the answer.
func (b *PromptBuilder) stalenessWarning(src domain.SearchResult) string {
	if src.IsAmended {
		if src.AmendmentDate != nil {
			return fmt.Sprintf("DİKKAT: Bu kaynak %s tarihinde değişikliğe uğramıştır, güncel halini teyit edin.",
				src.AmendmentDate.Format("02.01.2006"))
		}
		return "DİKKAT: Bu kaynak değişikliğe uğramıştır, güncel halini teyit edin."
	}
	if src.PublishDate != nil && b.clock.Now().Sub(*src.PublishDate) > 5*365*24*time.Hour {
		return "DİKKAT: Bu kaynak 5 yıldan eskidir, güncelliğini teyit edin."
	}
	return ""
}

func (b *PromptBuilder) contextHints(qc *domain.QueryContext) string {
	var lines []string
	if len(qc.LegalAreas) > 0 {
		lines = append(lines, "- Hukuk alanı: "+strings.Join(qc.LegalAreas, ", "))
	}
	if len(qc.LawReferences) > 0 {
		lines = append(lines, "- İlgili mevzuat: "+strings.Join(qc.LawReferences, ", "))
	}
	if len(qc.Courts) > 0 {
		lines = append(lines, "- İlgili mahkemeler: "+strings.Join(qc.Courts, ", "))
	}
	if qc.StartDate != nil && qc.EndDate != nil {
		lines = append(lines, fmt.Sprintf("- Tarih aralığı: %s - %s",
			qc.StartDate.Format("02.01.2006"), qc.EndDate.Format("02.01.2006")))
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func (b *PromptBuilder) intentTemplate(qc *domain.QueryContext) string {
	for _, intent := range qc.Intents {
		if tmpl, ok := intentTemplates[intent]; ok {
			return tmpl
		}
	}
	return ""
}

func documentTypeLabel(t domain.DocumentType) string {
	switch t {
	case domain.TypeLegislation:
		return "Mevzuat"
	case domain.TypeCaseLaw:
		return "Mahkeme Kararı"
	case domain.TypeCommentary:
		return "Doktrin"
	case domain.TypeRegulation:
		return "Yönetmelik"
	default:
		return "Diğer"
	}
}
