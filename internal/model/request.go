package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Mode selects how much verification an analysis request receives.
type Mode string

const (
	// ModeFast runs generation only.
	ModeFast Mode = "fast"
	// ModeVerified runs generation plus a secondary review.
	ModeVerified Mode = "verified"
	// ModeComprehensive runs generation, review, and at most one refinement
	// round driven by reviewer findings.
	ModeComprehensive Mode = "comprehensive"
)

// Valid reports whether the mode is one of the supported values.
func (m Mode) Valid() bool {
	switch m {
	case ModeFast, ModeVerified, ModeComprehensive:
		return true
	}
	return false
}

// Difficulty is an optional hint about problem difficulty.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// OptimizationGoal selects what an optimize request should prioritize.
type OptimizationGoal string

const (
	OptimizeTime        OptimizationGoal = "time"
	OptimizeSpace       OptimizationGoal = "space"
	OptimizeReadability OptimizationGoal = "readability"
)

// TargetLevel selects the audience for a simplified explanation.
type TargetLevel string

const (
	LevelBeginner     TargetLevel = "beginner"
	LevelIntermediate TargetLevel = "intermediate"
)

// Request size limits, mirrored by the HTTP layer.
const (
	MinProblemLength = 10
	MaxProblemLength = 10000
	MaxCodeLength    = 5000
	MaxSampleLength  = 2000
)

// AnalyzeRequest asks the assistant to solve a coding problem.
type AnalyzeRequest struct {
	ProblemText  string     `json:"problem_text"`
	SampleInput  string     `json:"sample_input,omitempty"`
	SampleOutput string     `json:"sample_output,omitempty"`
	Difficulty   Difficulty `json:"difficulty,omitempty"`
	Mode         Mode       `json:"mode,omitempty"`
}

// Normalize trims and sanitizes the request in place and applies defaults.
func (r *AnalyzeRequest) Normalize() {
	r.ProblemText = strings.TrimSpace(strings.ReplaceAll(r.ProblemText, "\x00", ""))
	if r.Mode == "" {
		r.Mode = ModeFast
	}
}

// Validate checks field constraints. Callers should Normalize first.
func (r *AnalyzeRequest) Validate() error {
	if len(r.ProblemText) < MinProblemLength {
		return eris.Errorf("problem_text must be at least %d characters", MinProblemLength)
	}
	if len(r.ProblemText) > MaxProblemLength {
		return eris.Errorf("problem_text must be at most %d characters", MaxProblemLength)
	}
	if len(r.SampleInput) > MaxSampleLength || len(r.SampleOutput) > MaxSampleLength {
		return eris.Errorf("sample input/output must be at most %d characters", MaxSampleLength)
	}
	if !r.Mode.Valid() {
		return eris.Errorf("unknown mode %q", r.Mode)
	}
	return nil
}

// OptimizeRequest asks the assistant to improve an existing solution.
type OptimizeRequest struct {
	ProblemText string           `json:"problem_text"`
	CurrentCode string           `json:"current_code"`
	Goal        OptimizationGoal `json:"optimization_goal,omitempty"`
}

// Validate checks field constraints and applies the default goal.
func (r *OptimizeRequest) Validate() error {
	if len(r.ProblemText) < MinProblemLength || len(r.ProblemText) > MaxProblemLength {
		return eris.Errorf("problem_text must be %d-%d characters", MinProblemLength, MaxProblemLength)
	}
	if len(r.CurrentCode) < MinProblemLength || len(r.CurrentCode) > MaxCodeLength {
		return eris.Errorf("current_code must be %d-%d characters", MinProblemLength, MaxCodeLength)
	}
	if r.Goal == "" {
		r.Goal = OptimizeTime
	}
	return nil
}

// ExplainSimpleRequest asks for a beginner-level walkthrough of code.
type ExplainSimpleRequest struct {
	ProblemText string      `json:"problem_text"`
	Code        string      `json:"code"`
	TargetLevel TargetLevel `json:"target_level,omitempty"`
}

// Validate checks field constraints and applies the default level.
func (r *ExplainSimpleRequest) Validate() error {
	if len(r.ProblemText) < MinProblemLength || len(r.ProblemText) > MaxProblemLength {
		return eris.Errorf("problem_text must be %d-%d characters", MinProblemLength, MaxProblemLength)
	}
	if len(r.Code) < MinProblemLength || len(r.Code) > MaxCodeLength {
		return eris.Errorf("code must be %d-%d characters", MinProblemLength, MaxCodeLength)
	}
	if r.TargetLevel == "" {
		r.TargetLevel = LevelBeginner
	}
	return nil
}

// ExplainCodeRequest asks for an interview-oriented walkthrough of code.
type ExplainCodeRequest struct {
	ProblemText string `json:"problem_text"`
	Code        string `json:"code"`
}

// Validate checks field constraints. The problem statement is optional here;
// code can be explained on its own.
func (r *ExplainCodeRequest) Validate() error {
	if r.Code == "" {
		return eris.New("code is required")
	}
	if len(r.Code) > MaxProblemLength {
		return eris.Errorf("code must be at most %d characters", MaxProblemLength)
	}
	if len(r.ProblemText) > MaxProblemLength {
		return eris.Errorf("problem_text must be at most %d characters", MaxProblemLength)
	}
	return nil
}

// ImageRequest carries a base64-encoded problem screenshot.
type ImageRequest struct {
	ImageBase64 string `json:"image_base64"`
	ImageType   string `json:"image_type"`
}

// imageTypes lists accepted image formats.
var imageTypes = map[string]bool{"png": true, "jpg": true, "jpeg": true, "webp": true}

// Validate checks the image payload against the given size budget in MB.
// Base64 inflates binary data by roughly a third, hence the 1.33 factor.
func (r *ImageRequest) Validate(maxSizeMB int) error {
	if r.ImageBase64 == "" {
		return eris.New("image_base64 is required")
	}
	if !imageTypes[r.ImageType] {
		return eris.Errorf("unsupported image_type %q", r.ImageType)
	}
	maxBase64 := float64(maxSizeMB) * 1024 * 1024 * 1.33
	if float64(len(r.ImageBase64)) > maxBase64 {
		return eris.Errorf("image too large: maximum size is %dMB", maxSizeMB)
	}
	return nil
}

// ExecuteRequest asks the sandbox to run a snippet of code.
type ExecuteRequest struct {
	Code    string `json:"code"`
	Timeout int    `json:"timeout,omitempty"`
}

// Validate checks code size and clamps the timeout into [1, 30] seconds.
func (r *ExecuteRequest) Validate() error {
	if r.Code == "" {
		return eris.New("code is required")
	}
	if len(r.Code) > MaxProblemLength {
		return eris.Errorf("code must be at most %d characters", MaxProblemLength)
	}
	if r.Timeout == 0 {
		r.Timeout = 10
	}
	if r.Timeout < 1 || r.Timeout > 30 {
		return eris.New("timeout must be between 1 and 30 seconds")
	}
	return nil
}

// Metadata describes how a response was produced.
type Metadata struct {
	RequestID          string             `json:"request_id"`
	Mode               string             `json:"mode"`
	PrimaryModel       string             `json:"primary_model"`
	VerificationModel  string             `json:"verification_model,omitempty"`
	VerificationStatus VerificationStatus `json:"verification_status,omitempty"`
	GeneratedAt        time.Time          `json:"generated_at"`
	LatencyMS          int64              `json:"latency_ms"`
	Cached             bool               `json:"cached"`
	CostEstimateUSD    float64            `json:"cost_estimate_usd,omitempty"`
}

// AnalyzeResponse is the success envelope for analyze-style endpoints.
type AnalyzeResponse struct {
	Success  bool      `json:"success"`
	Data     *Solution `json:"data"`
	Metadata Metadata  `json:"metadata"`
	Warnings []string  `json:"warnings"`
}

// ExplainSimpleResponse is the success envelope for simplified explanations.
type ExplainSimpleResponse struct {
	Success  bool                   `json:"success"`
	Data     *SimplifiedExplanation `json:"data"`
	Metadata Metadata               `json:"metadata"`
	Warnings []string               `json:"warnings"`
}

// OCRResponse is the result of extracting problem text from an image.
type OCRResponse struct {
	ExtractedText string   `json:"extracted_text"`
	Confidence    float64  `json:"confidence"`
	Warnings      []string `json:"warnings"`
}

// ErrorDetails carries a machine-readable error code plus context.
type ErrorDetails struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse is the failure envelope shared by all endpoints.
type ErrorResponse struct {
	Success  bool         `json:"success"`
	Error    ErrorDetails `json:"error"`
	Metadata Metadata     `json:"metadata"`
}
