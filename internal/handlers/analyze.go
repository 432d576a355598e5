package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sightlinehq/sightline/internal/analyze"
	"github.com/sightlinehq/sightline/internal/ratelimit"
)

// AnalyzeHandler turns a caller-supplied prompt (usually a blob of
// violation JSON) into a structured accessibility report.
type AnalyzeHandler struct {
	pipeline *analyze.Pipeline
	limiter  *ratelimit.Limiter
	logger   *slog.Logger
}

func NewAnalyzeHandler(pipeline *analyze.Pipeline, limiter *ratelimit.Limiter, logger *slog.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{pipeline: pipeline, limiter: limiter, logger: logger}
}

type analyzeRequest struct {
	Prompt string `json:"prompt"`
}

// Analyze handles POST /analyze. The report field is a JSON string, not
// an embedded object, so clients can hand it to a second parser as-is.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if h.limiter.Check(w, r, "analyze") {
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErrorDetails(w, "invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		jsonErrorDetails(w, "prompt is required", "the prompt field must be a non-empty string", http.StatusBadRequest)
		return
	}

	report, err := h.pipeline.AnalyzePrompt(r.Context(), req.Prompt)
	if err != nil {
		h.logger.Error("analyze failed", "err", err)
		jsonErrorDetails(w, "analysis failed", err.Error(), http.StatusInternalServerError)
		return
	}

	payload, err := json.Marshal(report)
	if err != nil {
		jsonErrorDetails(w, "analysis failed", err.Error(), http.StatusInternalServerError)
		return
	}

	jsonOK(w, map[string]string{"report": string(payload)})
}
