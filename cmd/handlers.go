package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prepforge/prepforge/internal/config"
	"github.com/prepforge/prepforge/internal/model"
	"github.com/prepforge/prepforge/internal/normalize"
	"github.com/prepforge/prepforge/internal/store"
)

const apiVersion = "1.0.0"

// server carries the shared environment into the HTTP handlers.
type server struct {
	cfg *config.Config
	env *appEnv
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "version": apiVersion})
}

func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req model.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body", nil)
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	resp, err := s.env.Assistant.Analyze(r.Context(), &req)
	if err != nil {
		s.writeAnalysisError(w, string(req.Mode), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleAnalyzeStream(w http.ResponseWriter, r *http.Request) {
	var req model.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body", nil)
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "streaming unsupported", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	var buf strings.Builder
	flush := func() {
		if buf.Len() == 0 {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", escapeSSE(buf.String()))
		flusher.Flush()
		buf.Reset()
	}

	err := s.env.Assistant.AnalyzeStream(r.Context(), &req, func(delta string) {
		buf.WriteString(delta)
		if buf.Len() >= 10 || strings.Contains(buf.String(), "\n") {
			flush()
		}
	})
	flush()
	if err != nil {
		fmt.Fprintf(w, "data: [ERROR] %s\n\n", err.Error())
		flusher.Flush()
		return
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// escapeSSE reframes newlines so multi-line code survives SSE transport.
// Escaped \n sequences inside string literals are protected first so the
// client can tell them apart from real line breaks.
func escapeSSE(chunk string) string {
	chunk = strings.ReplaceAll(chunk, `\n`, "<<SLASHN>>")
	return strings.ReplaceAll(chunk, "\n", "<<NEWLINE>>")
}

func (s *server) handleOCR(w http.ResponseWriter, r *http.Request) {
	var req model.ImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body", nil)
		return
	}
	if err := req.Validate(s.cfg.Server.MaxImageSizeMB); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	text, confidence, err := s.env.OCR.ExtractText(r.Context(), req.ImageBase64, req.ImageType)
	if err != nil {
		zap.L().Error("ocr failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
		return
	}

	warnings := []string{}
	if confidence < 0.85 {
		warnings = append(warnings, "OCR confidence is low. Please review the extracted text and make corrections if needed.")
	}
	writeJSON(w, http.StatusOK, model.OCRResponse{
		ExtractedText: text,
		Confidence:    confidence,
		Warnings:      warnings,
	})
}

func (s *server) handleAnalyzeImage(w http.ResponseWriter, r *http.Request) {
	var req model.ImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body", nil)
		return
	}
	if err := req.Validate(s.cfg.Server.MaxImageSizeMB); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	resp, err := s.env.Assistant.AnalyzeImage(r.Context(), &req)
	if err != nil {
		s.writeAnalysisError(w, string(model.ModeFast), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req model.OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body", nil)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	resp, err := s.env.Assistant.Optimize(r.Context(), &req)
	if err != nil {
		s.writeAnalysisError(w, "optimize", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleExplainSimple(w http.ResponseWriter, r *http.Request) {
	var req model.ExplainSimpleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body", nil)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	resp, err := s.env.Assistant.ExplainSimple(r.Context(), &req)
	if err != nil {
		s.writeAnalysisError(w, "explain-simple", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleExplainCode(w http.ResponseWriter, r *http.Request) {
	var req model.ExplainCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body", nil)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	// Response is the bare explanation object, no envelope. Parse failures
	// degrade inside the parser, so only generator errors reach here.
	result, err := s.env.Assistant.ExplainCode(r.Context(), &req)
	if err != nil {
		zap.L().Error("explain code failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req model.ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body", nil)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}
	if req.Timeout > s.cfg.Sandbox.MaxTimeoutSecs {
		req.Timeout = s.cfg.Sandbox.MaxTimeoutSecs
	}

	result, err := s.env.Sandbox.Run(r.Context(), req.Code, time.Duration(req.Timeout)*time.Second)
	if err != nil {
		zap.L().Error("execute failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.Filter{
		Mode:   model.Mode(q.Get("mode")),
		Status: model.AnalysisStatus(q.Get("status")),
		Limit:  50,
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Limit = n
		}
	}

	recs, err := s.env.Store.ListAnalyses(r.Context(), filter)
	if err != nil {
		zap.L().Error("list analyses failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"analyses": recs, "count": len(recs)})
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.env.Cache.Stats())
}

// writeAnalysisError maps extraction failures to the INVALID_RESPONSE
// envelope clients expect (HTTP 200 with success=false); anything else is a
// plain 500.
func (s *server) writeAnalysisError(w http.ResponseWriter, mode string, err error) {
	if errors.Is(err, normalize.ErrExtraction) {
		writeJSON(w, http.StatusOK, model.ErrorResponse{
			Error: model.ErrorDetails{
				Code:    "INVALID_RESPONSE",
				Message: "Failed to parse AI response",
				Details: map[string]any{"error": err.Error()},
			},
			Metadata: model.Metadata{
				RequestID:    uuid.NewString(),
				Mode:         mode,
				PrimaryModel: s.cfg.Anthropic.Model,
				GeneratedAt:  time.Now().UTC(),
			},
		})
		return
	}
	zap.L().Error("request failed", zap.String("mode", mode), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	writeJSON(w, status, model.ErrorResponse{
		Error: model.ErrorDetails{Code: code, Message: message, Details: details},
		Metadata: model.Metadata{
			RequestID:   uuid.NewString(),
			GeneratedAt: time.Now().UTC(),
		},
	})
}
