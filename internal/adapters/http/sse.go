package httpadapter

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/insightbase/insightbase/internal/core/domain"
)

// streamChunks forwards pipeline chunks as server-sent events. It returns
// the terminal response carried by the complete or error chunk, when the
// stream produced one before the client went away.
func streamChunks(w http.ResponseWriter, chunks <-chan domain.RAGStreamChunk) (*domain.RAGResponse, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming is not supported by response writer")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	var final *domain.RAGResponse
	for chunk := range chunks {
		payload, err := json.Marshal(chunk)
		if err != nil {
			return final, err
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", chunk.Type, payload); err != nil {
			return final, err
		}
		flusher.Flush()

		if chunk.Type == domain.ChunkComplete || chunk.Type == domain.ChunkError {
			final = chunk.Response
		}
	}

	if _, err := io.WriteString(w, "data: [DONE]\n\n"); err != nil {
		return final, err
	}
	flusher.Flush()
	return final, nil
}
