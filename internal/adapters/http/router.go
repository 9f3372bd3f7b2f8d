package httpadapter

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/insightbase/insightbase/internal/core/domain"
	"github.com/insightbase/insightbase/internal/core/ports"
	"github.com/insightbase/insightbase/internal/observability/metrics"
)

// maxUploadBytes bounds a single document upload (50 MiB).
const maxUploadBytes = 50 << 20

type Router struct {
	answers  ports.AnswerService
	ingestor ports.DocumentIngestor
	metrics  *metrics.HTTPServerMetrics
	logger   *slog.Logger
	service  string
}

func NewRouter(
	answers ports.AnswerService,
	ingestor ports.DocumentIngestor,
	m *metrics.HTTPServerMetrics,
	logger *slog.Logger,
	service string,
) *Router {
	return &Router{
		answers:  answers,
		ingestor: ingestor,
		metrics:  m,
		logger:   logger,
		service:  service,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/rag/query", rt.answerQuery)
	mux.HandleFunc("/v1/rag/query/stream", rt.answerQueryStream)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(rt.logger, handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type answerRequest struct {
	Query   string            `json:"query"`
	UserID  string            `json:"user_id"`
	Options domain.RAGOptions `json:"options"`
}

func decodeAnswerRequest(r *http.Request) (answerRequest, string) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, "invalid json body"
	}
	if strings.TrimSpace(req.Query) == "" {
		return req, "query is required"
	}
	if strings.TrimSpace(req.UserID) == "" {
		return req, "user_id is required"
	}
	return req, ""
}

func (rt *Router) answerQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	req, problem := decodeAnswerRequest(r)
	if problem != "" {
		writeError(w, http.StatusBadRequest, problem)
		return
	}

	start := time.Now()
	resp, err := rt.answers.Answer(r.Context(), req.Query, req.UserID, req.Options)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordAnswer(rt.service, "query", resp.Success, resp.SourceCount, time.Since(start))
		if resp.ValidationResult != nil {
			rt.metrics.RecordValidation(rt.service, resp.ValidationResult.IsValid, len(resp.ValidationResult.Warnings))
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) answerQueryStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	req, problem := decodeAnswerRequest(r)
	if problem != "" {
		writeError(w, http.StatusBadRequest, problem)
		return
	}

	start := time.Now()
	chunks, err := rt.answers.AnswerStream(r.Context(), req.Query, req.UserID, req.Options)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	final, streamErr := streamChunks(w, chunks)
	if streamErr != nil {
		rt.logger.Warn("answer stream aborted",
			slog.String("request_id", requestIDFromContext(r.Context())),
			slog.String("error", streamErr.Error()))
		return
	}

	if rt.metrics != nil && final != nil {
		rt.metrics.RecordAnswer(rt.service, "query_stream", final.Success, final.SourceCount, time.Since(start))
		if final.ValidationResult != nil {
			rt.metrics.RecordValidation(rt.service, final.ValidationResult.IsValid, len(final.ValidationResult.Warnings))
		}
	}
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading upload failed")
		return
	}

	doc := documentFromForm(r, fileHeader.Filename, fileHeader.Header.Get("Content-Type"))
	saved, err := rt.ingestor.Ingest(r.Context(), doc, content)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, saved)
}

// documentFromForm reads the optional legal metadata fields sent alongside
// the upload.
func documentFromForm(r *http.Request, filename, mimeType string) *domain.Document {
	doc := &domain.Document{
		Title:          strings.TrimSpace(r.FormValue("title")),
		Filename:       filename,
		MimeType:       mimeType,
		Type:           domain.DocumentType(strings.TrimSpace(r.FormValue("document_type"))),
		LegalArea:      strings.TrimSpace(r.FormValue("legal_area")),
		Court:          strings.TrimSpace(r.FormValue("court")),
		FileNumber:     strings.TrimSpace(r.FormValue("file_number")),
		URL:            strings.TrimSpace(r.FormValue("url")),
		OrganizationID: strings.TrimSpace(r.FormValue("organization_id")),
	}

	if refs := strings.TrimSpace(r.FormValue("law_references")); refs != "" {
		for _, ref := range strings.Split(refs, ",") {
			if ref = strings.TrimSpace(ref); ref != "" {
				doc.LawReferences = append(doc.LawReferences, ref)
			}
		}
	}
	if v, err := strconv.ParseBool(r.FormValue("is_global")); err == nil {
		doc.IsGlobal = v
	}
	if v, err := strconv.ParseBool(r.FormValue("is_amended")); err == nil {
		doc.IsAmended = v
	}
	if t, err := time.Parse("2006-01-02", r.FormValue("publish_date")); err == nil {
		doc.PublishDate = &t
	}
	if t, err := time.Parse("2006-01-02", r.FormValue("amendment_date")); err == nil {
		doc.AmendmentDate = &t
	}
	return doc
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	doc, err := rt.ingestor.Get(r.Context(), id)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
