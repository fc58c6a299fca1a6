package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prepforge/prepforge/internal/model"
	"github.com/prepforge/prepforge/pkg/claude"
	"github.com/prepforge/prepforge/pkg/openai"
)

const cleanReview = `{
  "is_correct": true,
  "issues": [],
  "edge_cases_missing": [],
  "optimization_suggestions": [],
  "overall_score": 95
}`

const issueReview = `{
  "is_correct": false,
  "issues": [
    {"severity": "error", "description": "fails on empty input", "line": 1, "fix": "guard for empty list"},
    {"severity": "suggestion", "description": "name could be clearer"}
  ],
  "edge_cases_missing": ["empty list"],
  "optimization_suggestions": [],
  "overall_score": 60
}`

func TestAnalyze_Verified_CleanReviewPasses(t *testing.T) {
	gen := new(mockGenerator)
	rev := new(mockReviewer)
	gen.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(solutionContent), nil).Once()
	rev.On("ChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return req.ResponseFormat != nil && req.ResponseFormat.Type == "json_object" &&
			strings.Contains(req.Messages[1].Content, "SOLUTION TO VERIFY")
	})).Return(reviewResponse(cleanReview), nil).Once()

	a := newTestAssistant(gen, rev, nil)
	resp, err := a.Analyze(context.Background(), analyzeRequest(model.ModeVerified))

	require.NoError(t, err)
	assert.Equal(t, model.VerificationPassed, resp.Metadata.VerificationStatus)
	assert.Equal(t, "gpt-4o-mini", resp.Metadata.VerificationModel)
	assert.Empty(t, resp.Warnings)
	rev.AssertExpectations(t)
}

func TestAnalyze_Verified_ErrorIssuesBecomeWarnings(t *testing.T) {
	gen := new(mockGenerator)
	rev := new(mockReviewer)
	gen.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(solutionContent), nil).Once()
	rev.On("ChatCompletion", mock.Anything, mock.Anything).Return(reviewResponse(issueReview), nil).Once()

	a := newTestAssistant(gen, rev, nil)
	resp, err := a.Analyze(context.Background(), analyzeRequest(model.ModeVerified))

	require.NoError(t, err)
	assert.Equal(t, model.VerificationFailed, resp.Metadata.VerificationStatus)
	require.Len(t, resp.Warnings, 1)
	assert.Equal(t, "Verification issue: fails on empty input", resp.Warnings[0])
	// verified mode never regenerates, even with issues
	gen.AssertNumberOfCalls(t, "CreateMessage", 1)
}

func TestAnalyze_Verified_ReviewerFailureSkips(t *testing.T) {
	gen := new(mockGenerator)
	rev := new(mockReviewer)
	gen.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(solutionContent), nil).Once()
	rev.On("ChatCompletion", mock.Anything, mock.Anything).Return(nil, eris.New("reviewer unavailable"))

	a := newTestAssistant(gen, rev, nil)
	resp, err := a.Analyze(context.Background(), analyzeRequest(model.ModeVerified))

	require.NoError(t, err)
	assert.Equal(t, model.VerificationSkipped, resp.Metadata.VerificationStatus)
	assert.Empty(t, resp.Metadata.VerificationModel)
	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0], "Verification skipped:")
	assert.Contains(t, resp.Data.Code, "sorted(nums)")
}

func TestAnalyze_Comprehensive_RefinesExactlyOnce(t *testing.T) {
	gen := new(mockGenerator)
	rev := new(mockReviewer)
	gen.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(solutionContent), nil).Once()
	gen.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req claude.MessageRequest) bool {
		return strings.Contains(req.Messages[0].Content, "Address these issues")
	})).Return(textResponse(refinedContent), nil).Once()
	rev.On("ChatCompletion", mock.Anything, mock.Anything).Return(reviewResponse(issueReview), nil).Once()

	a := newTestAssistant(gen, rev, nil)
	resp, err := a.Analyze(context.Background(), analyzeRequest(model.ModeComprehensive))

	require.NoError(t, err)
	assert.Contains(t, resp.Data.Code, "if not nums")
	gen.AssertNumberOfCalls(t, "CreateMessage", 2)
	// the refined solution is not re-reviewed
	rev.AssertNumberOfCalls(t, "ChatCompletion", 1)
}

func TestAnalyze_Comprehensive_CleanReviewNoRefine(t *testing.T) {
	gen := new(mockGenerator)
	rev := new(mockReviewer)
	gen.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(solutionContent), nil).Once()
	rev.On("ChatCompletion", mock.Anything, mock.Anything).Return(reviewResponse(cleanReview), nil).Once()

	a := newTestAssistant(gen, rev, nil)
	resp, err := a.Analyze(context.Background(), analyzeRequest(model.ModeComprehensive))

	require.NoError(t, err)
	assert.Equal(t, model.VerificationPassed, resp.Metadata.VerificationStatus)
	gen.AssertNumberOfCalls(t, "CreateMessage", 1)
}

func TestAnalyze_Comprehensive_RefinementFailureKeepsFirstSolution(t *testing.T) {
	gen := new(mockGenerator)
	rev := new(mockReviewer)
	gen.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(solutionContent), nil).Once()
	gen.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, eris.New("overloaded"))
	rev.On("ChatCompletion", mock.Anything, mock.Anything).Return(reviewResponse(issueReview), nil).Once()

	a := newTestAssistant(gen, rev, nil)
	resp, err := a.Analyze(context.Background(), analyzeRequest(model.ModeComprehensive))

	require.NoError(t, err)
	assert.Equal(t, model.VerificationSkipped, resp.Metadata.VerificationStatus)
	assert.Contains(t, resp.Data.Code, "sorted(nums)")
}

func TestFormatIssues(t *testing.T) {
	got := formatIssues([]model.Issue{
		{Severity: model.SeverityError, Description: "fails on empty input", Fix: "guard for empty list"},
		{Severity: model.SeveritySuggestion, Description: "name could be clearer"},
	})
	assert.Equal(t,
		"- [error] fails on empty input (suggested fix: guard for empty list)\n- [suggestion] name could be clearer",
		got)
}
