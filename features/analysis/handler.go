package analysis

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"paperlens/internal/middleware"
	"paperlens/internal/pipeline"
)

// Runner executes a full analysis for one document. Satisfied by
// *pipeline.Pipeline.
type Runner interface {
	Run(ctx context.Context, documentID, content string) *pipeline.RunContext
}

type Handler struct {
	runner Runner
}

func NewHandler(runner Runner) *Handler {
	return &Handler{runner: runner}
}

// Create accepts a document and runs the analysis synchronously, returning
// the structured summary or the failure that stopped the run.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	// 10 MB limit, plain text documents only
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)

	var req struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	rc := h.runner.Run(r.Context(), req.ID, req.Text)

	if rc.State == pipeline.StateFailed {
		h.writeFailure(r.Context(), w, rc)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": rc.Summary,
		"meta": map[string]interface{}{
			"runId":            rc.RunID,
			"documentId":       rc.DocumentID,
			"state":            rc.State,
			"chunkCount":       len(rc.Chunks),
			"supportingChunks": rc.SupportingChunks,
		},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeFailure(ctx context.Context, w http.ResponseWriter, rc *pipeline.RunContext) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnprocessableEntity)

	resp := map[string]interface{}{
		"error": map[string]string{
			"stage":   rc.Failure.Stage,
			"kind":    string(rc.Failure.Kind),
			"message": rc.Failure.Message,
		},
		"meta": map[string]interface{}{
			"runId":      rc.RunID,
			"documentId": rc.DocumentID,
			"state":      rc.State,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
