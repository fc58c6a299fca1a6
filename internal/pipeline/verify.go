package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/prepforge/prepforge/internal/model"
	"github.com/prepforge/prepforge/internal/normalize"
	"github.com/prepforge/prepforge/internal/resilience"
	"github.com/prepforge/prepforge/pkg/openai"
)

// escalation is the outcome of running a solution through the verification
// ladder for its mode.
type escalation struct {
	solution      *model.Solution
	status        model.VerificationStatus
	reviewerModel string
	warnings      []string
}

// escalate applies the per-mode verification policy:
//
//	fast:          return the solution untouched.
//	verified:      run the reviewer; reviewer failure downgrades to
//	               status "skipped" with a warning, never an error.
//	comprehensive: as verified, plus exactly one regeneration round when
//	               the reviewer reports issues. Never a second round.
func (a *Assistant) escalate(ctx context.Context, req *model.AnalyzeRequest, sol *model.Solution) escalation {
	out := escalation{solution: sol, warnings: []string{}}
	if req.Mode == model.ModeFast {
		return out
	}

	verification, err := a.reviewSolution(ctx, req, sol.Code)
	if err != nil {
		zap.L().Warn("pipeline: verification unavailable", zap.Error(err))
		out.status = model.VerificationSkipped
		out.warnings = append(out.warnings, "Verification skipped: "+err.Error())
		return out
	}
	out.status = verification.Status()
	out.reviewerModel = a.cfg.OpenAI.Model
	for _, issue := range verification.Issues {
		if issue.Severity == model.SeverityError {
			out.warnings = append(out.warnings, "Verification issue: "+issue.Description)
		}
	}

	if req.Mode == model.ModeComprehensive && verification.HasIssues() {
		refined := *req
		refined.ProblemText += "\n\nNote: Address these issues:\n" + formatIssues(verification.Issues)
		better, err := a.generateSolution(ctx, buildProblemPrompt(&refined))
		if err != nil {
			zap.L().Warn("pipeline: refinement failed, keeping first solution", zap.Error(err))
			out.status = model.VerificationSkipped
			out.warnings = append(out.warnings, "Verification skipped: "+err.Error())
			return out
		}
		out.solution = better
	}
	return out
}

// reviewSolution asks the reviewer to validate a solution and parses its
// structured verdict.
func (a *Assistant) reviewSolution(ctx context.Context, req *model.AnalyzeRequest, code string) (*model.Verification, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "PROBLEM:\n%s\n\nSOLUTION TO VERIFY:\n```python\n%s\n```", req.ProblemText, code)
	if req.SampleInput != "" && req.SampleOutput != "" {
		fmt.Fprintf(&b, "\n\nTEST CASE:\nInput: %s\nExpected: %s", req.SampleInput, req.SampleOutput)
	}
	b.WriteString("\n\nVerify this solution for correctness and completeness.")

	cfg := a.retry
	cfg.OnRetry = resilience.RetryLogger("openai", "verify")
	resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*openai.ChatCompletionResponse, error) {
		return a.reviewer.ChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:          a.cfg.OpenAI.Model,
			Temperature:    ptrFloat(0.2),
			MaxTokens:      ptrInt(2048),
			ResponseFormat: &openai.ResponseFormat{Type: "json_object"},
			Messages: []openai.Message{
				{Role: "system", Content: systemPromptVerify},
				{Role: "user", Content: b.String()},
			},
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "verify solution")
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("verify solution: empty completion")
	}

	usd := a.costs.Tokens("openai", a.cfg.OpenAI.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	zap.L().Info("cost attribution",
		zap.String("model", a.cfg.OpenAI.Model),
		zap.String("phase", "verify"),
		zap.Int("input_tokens", resp.Usage.PromptTokens),
		zap.Int("output_tokens", resp.Usage.CompletionTokens),
		zap.Float64("measured_cost_usd", usd),
	)

	return normalize.ParseVerification(resp.Choices[0].Message.Content), nil
}

func formatIssues(issues []model.Issue) string {
	var b strings.Builder
	for _, issue := range issues {
		fmt.Fprintf(&b, "- [%s] %s", issue.Severity, issue.Description)
		if issue.Fix != "" {
			fmt.Fprintf(&b, " (suggested fix: %s)", issue.Fix)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
