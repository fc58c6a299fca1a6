package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepforge/prepforge/internal/cache"
	"github.com/prepforge/prepforge/internal/config"
	"github.com/prepforge/prepforge/internal/model"
	"github.com/prepforge/prepforge/internal/ocr"
	"github.com/prepforge/prepforge/internal/pipeline"
	"github.com/prepforge/prepforge/internal/resilience"
	"github.com/prepforge/prepforge/internal/sandbox"
	"github.com/prepforge/prepforge/internal/store"
	"github.com/prepforge/prepforge/pkg/claude"
	"github.com/prepforge/prepforge/pkg/openai"
)

// --- Stub backends ---

type stubGenerator struct {
	createFn func(ctx context.Context, req claude.MessageRequest) (*claude.MessageResponse, error)
	streamFn func(ctx context.Context, req claude.MessageRequest, onText func(delta string)) (*claude.MessageResponse, error)
}

func (s *stubGenerator) CreateMessage(ctx context.Context, req claude.MessageRequest) (*claude.MessageResponse, error) {
	return s.createFn(ctx, req)
}

func (s *stubGenerator) StreamMessage(ctx context.Context, req claude.MessageRequest, onText func(delta string)) (*claude.MessageResponse, error) {
	if s.streamFn == nil {
		return nil, eris.New("streaming not stubbed")
	}
	return s.streamFn(ctx, req, onText)
}

type stubReviewer struct {
	completeFn func(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error)
}

func (s *stubReviewer) ChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	return s.completeFn(ctx, req)
}

func textGenerator(content string) *stubGenerator {
	return &stubGenerator{
		createFn: func(context.Context, claude.MessageRequest) (*claude.MessageResponse, error) {
			return &claude.MessageResponse{Content: []claude.ContentBlock{{Type: "text", Text: content}}}, nil
		},
	}
}

const solutionContent = `{
  "code": "def solve(nums):\n    return sorted(nums)",
  "lines": [],
  "complexity": {
    "time": {"notation": "O(n log n)", "explanation": "sort dominates"},
    "space": {"notation": "O(n)", "explanation": "sorted copy"}
  },
  "edge_cases": [],
  "common_mistakes": [],
  "alternative_approaches": []
}`

// --- Server fixture ---

func newTestServer(t *testing.T, gen claude.Client, rev openai.Client) *server {
	t.Helper()

	testCfg := &config.Config{
		Anthropic: config.AnthropicConfig{Model: "claude-sonnet-4-5-20250929", MaxTokens: 4096},
		OpenAI:    config.OpenAIConfig{Model: "gpt-4o-mini"},
		Retry:     config.RetryConfig{MaxAttempts: 1, BaseDelayMs: 1},
		Sandbox:   config.SandboxConfig{PythonPath: "python3", MaxTimeoutSecs: 5},
		Server: config.ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"*"},
			RatePerMinute:  100,
			MaxImageSizeMB: 5,
		},
	}

	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	results := cache.New(16, time.Hour)
	retry := resilience.FromRetryConfig(1, 1)

	return &server{
		cfg: testCfg,
		env: &appEnv{
			Store:     st,
			Assistant: pipeline.New(testCfg, gen, rev, results, st),
			Cache:     results,
			Sandbox:   sandbox.NewRunner("python3"),
			OCR:       ocr.NewVisionExtractor(gen, testCfg.Anthropic.Model, retry),
			Generator: gen,
			Reviewer:  rev,
		},
	}
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// --- Tests ---

func TestHealthRoute(t *testing.T) {
	s := newTestServer(t, textGenerator(solutionContent), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rr := httptest.NewRecorder()
	s.routes().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestAnalyzeHandler_Success(t *testing.T) {
	s := newTestServer(t, textGenerator(solutionContent), nil)

	rr := postJSON(t, s.routes(), "/api/v1/analyze", map[string]string{
		"problem_text": "Given a list of integers, return them in sorted order.",
		"mode":         "fast",
	})

	require.Equal(t, http.StatusOK, rr.Code)
	var resp model.AnalyzeResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Data.Code, "sorted(nums)")
	assert.Equal(t, "fast", resp.Metadata.Mode)
}

func TestAnalyzeHandler_ValidationError(t *testing.T) {
	s := newTestServer(t, textGenerator(solutionContent), nil)

	rr := postJSON(t, s.routes(), "/api/v1/analyze", map[string]string{
		"problem_text": "short",
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_REQUEST", resp.Error.Code)
}

func TestAnalyzeHandler_ExtractionFailureEnvelope(t *testing.T) {
	s := newTestServer(t, textGenerator("I cannot help with that."), nil)

	rr := postJSON(t, s.routes(), "/api/v1/analyze", map[string]string{
		"problem_text": "Given a list of integers, return them in sorted order.",
	})

	// extraction failures are reported in-band, not as HTTP errors
	require.Equal(t, http.StatusOK, rr.Code)
	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "INVALID_RESPONSE", resp.Error.Code)
}

func TestAnalyzeStreamHandler(t *testing.T) {
	gen := &stubGenerator{
		streamFn: func(_ context.Context, _ claude.MessageRequest, onText func(delta string)) (*claude.MessageResponse, error) {
			onText("def solve():\n")
			onText("    return 1")
			return &claude.MessageResponse{}, nil
		},
	}
	s := newTestServer(t, gen, nil)

	rr := postJSON(t, s.routes(), "/api/v1/analyze-stream", map[string]string{
		"problem_text": "Given a list of integers, return them in sorted order.",
	})

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))
	body := rr.Body.String()
	assert.Contains(t, body, "<<NEWLINE>>")
	assert.Contains(t, body, "data: [DONE]")
}

func TestExplainCodeHandler(t *testing.T) {
	s := newTestServer(t, textGenerator(`{
  "thought_process": "Sorting first makes duplicates adjacent.",
  "lines": [{"line": 1, "code": "nums.sort()", "explanation": "order the input"}]
}`), nil)

	rr := postJSON(t, s.routes(), "/api/v1/explain-code", map[string]string{
		"problem_text": "Find duplicates in a list.",
		"code":         "nums.sort()",
	})

	require.Equal(t, http.StatusOK, rr.Code)
	var body model.CodeExplanation
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Sorting first makes duplicates adjacent.", body.ThoughtProcess)
	require.Len(t, body.Lines, 1)
	assert.Equal(t, "nums.sort()", body.Lines[0].Code)
}

func TestExplainCodeHandler_RequiresCode(t *testing.T) {
	s := newTestServer(t, textGenerator(solutionContent), nil)

	rr := postJSON(t, s.routes(), "/api/v1/explain-code", map[string]string{
		"problem_text": "Find duplicates in a list.",
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOCRHandler_LowConfidenceWarning(t *testing.T) {
	// short extraction text drives the confidence heuristic below 0.85
	s := newTestServer(t, textGenerator("x = 1"), nil)

	rr := postJSON(t, s.routes(), "/api/v1/ocr", map[string]string{
		"image_base64": "aGVsbG8=",
		"image_type":   "png",
	})

	require.Equal(t, http.StatusOK, rr.Code)
	var resp model.OCRResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "x = 1", resp.ExtractedText)
	assert.Less(t, resp.Confidence, 0.85)
	require.Len(t, resp.Warnings, 1)
}

func TestOCRHandler_RejectsOversizedImage(t *testing.T) {
	s := newTestServer(t, textGenerator("x = 1"), nil)
	s.cfg.Server.MaxImageSizeMB = 0

	rr := postJSON(t, s.routes(), "/api/v1/ocr", map[string]string{
		"image_base64": "aGVsbG8=",
		"image_type":   "png",
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExecuteHandler(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}
	s := newTestServer(t, textGenerator(solutionContent), nil)

	rr := postJSON(t, s.routes(), "/api/v1/execute", map[string]any{
		"code":    "print('hi')",
		"timeout": 5,
	})

	require.Equal(t, http.StatusOK, rr.Code)
	var result sandbox.ExecResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, "hi\n", result.Output)
}

func TestHistoryRoute(t *testing.T) {
	s := newTestServer(t, textGenerator(solutionContent), nil)
	require.NoError(t, s.env.Store.RecordAnalysis(context.Background(), &model.AnalysisRecord{
		ID:          "run-1",
		Fingerprint: "fp",
		Mode:        model.ModeFast,
		Status:      model.AnalysisSucceeded,
		CreatedAt:   time.Now().UTC(),
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history?limit=10", nil)
	rr := httptest.NewRecorder()
	s.routes().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Count    int                    `json:"count"`
		Analyses []model.AnalysisRecord `json:"analyses"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "run-1", body.Analyses[0].ID)
}

func TestStatsRoute(t *testing.T) {
	s := newTestServer(t, textGenerator(solutionContent), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	rr := httptest.NewRecorder()
	s.routes().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var stats cache.Stats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, 0, stats.Entries)
}

func TestEscapeSSE(t *testing.T) {
	assert.Equal(t, "a<<NEWLINE>>b", escapeSSE("a\nb"))
	assert.Equal(t, `print("a<<SLASHN>>b")`, escapeSSE(`print("a\nb")`))
}
