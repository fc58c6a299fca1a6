// Package pipeline orchestrates problem analysis: generation through the
// Claude client, response normalization, mode-based verification, result
// caching, and best-effort history recording.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/prepforge/prepforge/internal/cache"
	"github.com/prepforge/prepforge/internal/config"
	"github.com/prepforge/prepforge/internal/cost"
	"github.com/prepforge/prepforge/internal/model"
	"github.com/prepforge/prepforge/internal/normalize"
	"github.com/prepforge/prepforge/internal/ocr"
	"github.com/prepforge/prepforge/internal/resilience"
	"github.com/prepforge/prepforge/internal/store"
	"github.com/prepforge/prepforge/pkg/claude"
	"github.com/prepforge/prepforge/pkg/openai"
)

// Assistant composes the generator, reviewer, result cache, and history
// store behind the analysis operations the HTTP and CLI surfaces expose.
type Assistant struct {
	cfg       *config.Config
	generator claude.Client
	reviewer  openai.Client
	results   *cache.Cache
	history   store.Store
	retry     resilience.RetryConfig
	costs     *cost.Calculator
}

// New creates an Assistant. The history store may be nil, in which case
// recording is disabled.
func New(
	cfg *config.Config,
	generator claude.Client,
	reviewer openai.Client,
	results *cache.Cache,
	history store.Store,
) *Assistant {
	return &Assistant{
		cfg:       cfg,
		generator: generator,
		reviewer:  reviewer,
		results:   results,
		history:   history,
		retry:     resilience.FromRetryConfig(cfg.Retry.MaxAttempts, cfg.Retry.BaseDelayMs),
		costs:     cost.NewCalculator(cfg.Pricing),
	}
}

// Analyze solves a coding problem and returns the full response envelope.
// Results are served from the cache when an identical problem was analyzed
// in the same mode within the TTL.
func (a *Assistant) Analyze(ctx context.Context, req *model.AnalyzeRequest) (*model.AnalyzeResponse, error) {
	requestID := uuid.NewString()
	start := time.Now()

	key := cache.Key(req.ProblemText, string(req.Mode))
	if sol, ok := a.results.Get(key); ok {
		meta := model.Metadata{
			RequestID:       requestID,
			Mode:            string(req.Mode),
			PrimaryModel:    a.cfg.Anthropic.Model,
			GeneratedAt:     time.Now().UTC(),
			LatencyMS:       time.Since(start).Milliseconds(),
			Cached:          true,
			CostEstimateUSD: cost.Estimate(req.Mode),
		}
		a.record(ctx, &model.AnalysisRecord{
			ID:          requestID,
			Fingerprint: key,
			Mode:        req.Mode,
			Status:      model.AnalysisSucceeded,
			Cached:      true,
			LatencyMS:   meta.LatencyMS,
			CreatedAt:   time.Now().UTC(),
		})
		return &model.AnalyzeResponse{
			Success:  true,
			Data:     sol,
			Metadata: meta,
			Warnings: []string{},
		}, nil
	}

	sol, err := a.generateSolution(ctx, buildProblemPrompt(req))
	if err != nil {
		a.record(ctx, &model.AnalysisRecord{
			ID:          requestID,
			Fingerprint: key,
			Mode:        req.Mode,
			Status:      model.AnalysisFailed,
			LatencyMS:   time.Since(start).Milliseconds(),
			CreatedAt:   time.Now().UTC(),
		})
		return nil, err
	}

	outcome := a.escalate(ctx, req, sol)

	a.results.Put(key, outcome.solution)

	meta := model.Metadata{
		RequestID:          requestID,
		Mode:               string(req.Mode),
		PrimaryModel:       a.cfg.Anthropic.Model,
		VerificationModel:  outcome.reviewerModel,
		VerificationStatus: outcome.status,
		GeneratedAt:        time.Now().UTC(),
		LatencyMS:          time.Since(start).Milliseconds(),
		CostEstimateUSD:    cost.Estimate(req.Mode),
	}
	a.record(ctx, &model.AnalysisRecord{
		ID:                 requestID,
		Fingerprint:        key,
		Mode:               req.Mode,
		Status:             model.AnalysisSucceeded,
		VerificationStatus: outcome.status,
		LatencyMS:          meta.LatencyMS,
		CostUSD:            meta.CostEstimateUSD,
		CreatedAt:          time.Now().UTC(),
	})
	return &model.AnalyzeResponse{
		Success:  true,
		Data:     outcome.solution,
		Metadata: meta,
		Warnings: outcome.warnings,
	}, nil
}

// AnalyzeStream streams raw solution code as it is generated, calling onText
// for each fragment. Fragments are passed through untouched; no retry runs
// once streaming has begun since earlier fragments may already have reached
// the caller.
func (a *Assistant) AnalyzeStream(ctx context.Context, req *model.AnalyzeRequest, onText func(delta string)) error {
	_, err := a.generator.StreamMessage(ctx, claude.MessageRequest{
		Model:       a.cfg.Anthropic.Model,
		MaxTokens:   int64(a.cfg.Anthropic.MaxTokens),
		System:      claude.BuildCachedSystemBlocks(systemPromptStream),
		Messages:    []claude.Message{{Role: "user", Content: buildProblemPrompt(req)}},
		Temperature: ptrFloat(0.1),
	}, onText)
	if err != nil {
		return eris.Wrap(err, "claude stream")
	}
	return nil
}

// Optimize rewrites an existing solution toward the requested goal.
func (a *Assistant) Optimize(ctx context.Context, req *model.OptimizeRequest) (*model.AnalyzeResponse, error) {
	requestID := uuid.NewString()
	start := time.Now()

	userPrompt := fmt.Sprintf(
		"PROBLEM:\n%s\n\nCURRENT CODE:\n%s\n\nOPTIMIZATION GOAL: %s\n\nOptimize this solution focusing on %s.",
		req.ProblemText, req.CurrentCode, req.Goal, req.Goal,
	)
	content, err := a.createWithRetry(ctx, claude.MessageRequest{
		Model:       a.cfg.Anthropic.Model,
		MaxTokens:   int64(a.cfg.Anthropic.MaxTokens),
		System:      claude.BuildCachedSystemBlocks(systemPromptOptimize),
		Messages:    []claude.Message{{Role: "user", Content: userPrompt}},
		Temperature: ptrFloat(0.2),
	}, "optimize")
	if err != nil {
		return nil, err
	}
	sol, err := normalize.ParseSolution(content)
	if err != nil {
		return nil, err
	}
	return &model.AnalyzeResponse{
		Success: true,
		Data:    sol,
		Metadata: model.Metadata{
			RequestID:       requestID,
			Mode:            "optimize",
			PrimaryModel:    a.cfg.Anthropic.Model,
			GeneratedAt:     time.Now().UTC(),
			LatencyMS:       time.Since(start).Milliseconds(),
			CostEstimateUSD: cost.EstimateOptimize(),
		},
		Warnings: []string{},
	}, nil
}

// ExplainCode produces a thought-process walkthrough of user-supplied code.
// The parser never fails; a degenerate response yields a fixed failure notice.
func (a *Assistant) ExplainCode(ctx context.Context, req *model.ExplainCodeRequest) (*model.CodeExplanation, error) {
	userPrompt := fmt.Sprintf("PROBLEM:\n%s\n\nCODE:\n%s", req.ProblemText, req.Code)
	content, err := a.createWithRetry(ctx, claude.MessageRequest{
		Model:       a.cfg.Anthropic.Model,
		MaxTokens:   2000,
		System:      claude.BuildCachedSystemBlocks(systemPromptExplainCode),
		Messages:    []claude.Message{{Role: "user", Content: userPrompt}},
		Temperature: ptrFloat(0.1),
	}, "explain-code")
	if err != nil {
		return nil, err
	}
	return normalize.ParseCodeExplanation(content), nil
}

// ExplainSimple produces a beginner-level walkthrough of a solution. The
// simplified parser never fails; a degenerate response yields a plain-text
// fallback explanation.
func (a *Assistant) ExplainSimple(ctx context.Context, req *model.ExplainSimpleRequest) (*model.ExplainSimpleResponse, error) {
	requestID := uuid.NewString()
	start := time.Now()

	userPrompt := fmt.Sprintf(
		"PROBLEM:\n%s\n\nCODE:\n%s\n\nTARGET AUDIENCE: %s\n\nExplain this solution simply.",
		req.ProblemText, req.Code, req.TargetLevel,
	)
	content, err := a.createWithRetry(ctx, claude.MessageRequest{
		Model:       a.cfg.Anthropic.Model,
		MaxTokens:   int64(a.cfg.Anthropic.MaxTokens),
		System:      claude.BuildCachedSystemBlocks(systemPromptSimplify),
		Messages:    []claude.Message{{Role: "user", Content: userPrompt}},
		Temperature: ptrFloat(0.3),
	}, "explain-simple")
	if err != nil {
		return nil, err
	}
	return &model.ExplainSimpleResponse{
		Success: true,
		Data:    normalize.ParseSimplified(content),
		Metadata: model.Metadata{
			RequestID:       requestID,
			Mode:            "explain-simple",
			PrimaryModel:    a.cfg.Anthropic.Model,
			GeneratedAt:     time.Now().UTC(),
			LatencyMS:       time.Since(start).Milliseconds(),
			CostEstimateUSD: cost.EstimateExplainSimple(),
		},
		Warnings: []string{},
	}, nil
}

// AnalyzeImage solves a problem from a screenshot in a single vision call.
func (a *Assistant) AnalyzeImage(ctx context.Context, req *model.ImageRequest) (*model.AnalyzeResponse, error) {
	requestID := uuid.NewString()
	start := time.Now()

	content, err := a.createWithRetry(ctx, claude.MessageRequest{
		Model:     a.cfg.Anthropic.Model,
		MaxTokens: int64(a.cfg.Anthropic.MaxTokens),
		Messages: []claude.Message{{
			Role:    "user",
			Content: systemPromptAnalyzeImage,
			Images: []claude.ImageBlock{{
				MediaType: ocr.MediaType(req.ImageType),
				Data:      req.ImageBase64,
			}},
		}},
		Temperature: ptrFloat(0.1),
	}, "analyze-image")
	if err != nil {
		return nil, err
	}
	sol, err := normalize.ParseSolution(content)
	if err != nil {
		return nil, err
	}
	return &model.AnalyzeResponse{
		Success: true,
		Data:    sol,
		Metadata: model.Metadata{
			RequestID:       requestID,
			Mode:            string(model.ModeFast),
			PrimaryModel:    a.cfg.Anthropic.Model,
			GeneratedAt:     time.Now().UTC(),
			LatencyMS:       time.Since(start).Milliseconds(),
			CostEstimateUSD: cost.Estimate(model.ModeFast),
		},
		Warnings: []string{},
	}, nil
}

// generateSolution runs one generate-and-normalize round.
func (a *Assistant) generateSolution(ctx context.Context, userPrompt string) (*model.Solution, error) {
	content, err := a.createWithRetry(ctx, claude.MessageRequest{
		Model:       a.cfg.Anthropic.Model,
		MaxTokens:   int64(a.cfg.Anthropic.MaxTokens),
		System:      claude.BuildCachedSystemBlocks(systemPromptAnalyze),
		Messages:    []claude.Message{{Role: "user", Content: userPrompt}},
		Temperature: ptrFloat(0.1),
	}, "analyze")
	if err != nil {
		return nil, err
	}
	return normalize.ParseSolution(content)
}

// createWithRetry calls the generator under the configured retry policy and
// returns the concatenated text content.
func (a *Assistant) createWithRetry(ctx context.Context, req claude.MessageRequest, phase string) (string, error) {
	cfg := a.retry
	cfg.OnRetry = resilience.RetryLogger("claude", phase)
	resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*claude.MessageResponse, error) {
		resp, err := a.generator.CreateMessage(ctx, req)
		if err != nil {
			return nil, claude.ClassifyErr(err)
		}
		return resp, nil
	})
	if err != nil {
		return "", eris.Wrapf(err, "claude %s", phase)
	}
	a.logGeneratorCost(req.Model, phase, resp.Usage)
	return resp.Text(), nil
}

// logGeneratorCost attributes the measured spend of one generator call.
func (a *Assistant) logGeneratorCost(modelName, phase string, u claude.TokenUsage) {
	usd := a.costs.Cost("anthropic", modelName, cost.Usage{
		Input:      u.InputTokens,
		Output:     u.OutputTokens,
		CacheWrite: u.CacheCreationInputTokens,
		CacheRead:  u.CacheReadInputTokens,
	})
	zap.L().Info("cost attribution",
		zap.String("model", modelName),
		zap.String("phase", phase),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Int64("cache_write_tokens", u.CacheCreationInputTokens),
		zap.Int64("cache_read_tokens", u.CacheReadInputTokens),
		zap.Float64("measured_cost_usd", usd),
	)
}

// record persists the audit row. Failures are logged and swallowed so a
// broken store never fails a request.
func (a *Assistant) record(ctx context.Context, rec *model.AnalysisRecord) {
	if a.history == nil {
		return
	}
	if err := a.history.RecordAnalysis(ctx, rec); err != nil {
		zap.L().Warn("pipeline: record analysis", zap.String("id", rec.ID), zap.Error(err))
	}
}

func buildProblemPrompt(req *model.AnalyzeRequest) string {
	var b strings.Builder
	b.WriteString("PROBLEM:\n")
	b.WriteString(req.ProblemText)
	if req.SampleInput != "" {
		b.WriteString("\n\nSAMPLE INPUT:\n" + req.SampleInput)
	}
	if req.SampleOutput != "" {
		b.WriteString("\n\nEXPECTED OUTPUT:\n" + req.SampleOutput)
	}
	if req.Difficulty != "" {
		b.WriteString("\n\nDIFFICULTY: " + string(req.Difficulty))
	}
	return b.String()
}

func ptrFloat(f float64) *float64 { return &f }
func ptrInt(i int) *int           { return &i }
