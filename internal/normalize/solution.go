package normalize

import (
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/prepforge/prepforge/internal/model"
)

// Wire representations tolerate partial or malformed fields: anything that
// fails to decode is skipped rather than failing the whole response.
type solutionWire struct {
	Code           string            `json:"code"`
	Lines          []json.RawMessage `json:"lines"`
	Complexity     complexityWire    `json:"complexity"`
	EdgeCases      []json.RawMessage `json:"edge_cases"`
	CommonMistakes []json.RawMessage `json:"common_mistakes"`
	Alternatives   []json.RawMessage `json:"alternative_approaches"`
}

type complexityWire struct {
	Time  model.ComplexityInfo `json:"time"`
	Space model.ComplexityInfo `json:"space"`
}

type edgeCaseWire struct {
	Case          string `json:"case"`
	Handled       *bool  `json:"handled"`
	How           string `json:"how"`
	LineReference int    `json:"line_reference"`
}

// ParseSolution extracts and normalizes a full analysis record from raw model
// output. Missing fields default rather than fail; only a total extraction
// failure returns an error.
func ParseSolution(content string) (*model.Solution, error) {
	raw, err := ExtractJSON(content)
	if err != nil {
		return nil, eris.Wrap(err, "parse solution")
	}

	var wire solutionWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, eris.Wrap(err, "parse solution")
	}

	sol := &model.Solution{
		Code:           wire.Code,
		Language:       "python",
		Lines:          []model.LineExplanation{},
		Complexity:     normalizeComplexity(wire.Complexity),
		EdgeCases:      []model.EdgeCase{},
		CommonMistakes: []model.CommonMistake{},
		Alternatives:   []model.Alternative{},
		TestResults:    []model.TestResult{},
	}

	for _, raw := range wire.Lines {
		var line model.LineExplanation
		if json.Unmarshal(raw, &line) == nil {
			sol.Lines = append(sol.Lines, line)
		}
	}

	for _, raw := range wire.EdgeCases {
		var ec edgeCaseWire
		if json.Unmarshal(raw, &ec) != nil {
			continue
		}
		handled := true
		if ec.Handled != nil {
			handled = *ec.Handled
		}
		sol.EdgeCases = append(sol.EdgeCases, model.EdgeCase{
			Case:          ec.Case,
			Handled:       handled,
			How:           ec.How,
			LineReference: ec.LineReference,
		})
	}

	for _, raw := range wire.CommonMistakes {
		var m model.CommonMistake
		if json.Unmarshal(raw, &m) == nil {
			sol.CommonMistakes = append(sol.CommonMistakes, m)
		}
	}

	for _, raw := range wire.Alternatives {
		var a model.Alternative
		if json.Unmarshal(raw, &a) == nil {
			sol.Alternatives = append(sol.Alternatives, a)
		}
	}

	return sol, nil
}

func normalizeComplexity(c complexityWire) model.Complexity {
	if c.Time.Notation == "" {
		c.Time.Notation = UnknownNotation
	}
	if c.Space.Notation == "" {
		c.Space.Notation = UnknownNotation
	}
	return model.Complexity{Time: c.Time, Space: c.Space}
}

// ParseSimplified extracts a beginner-level explanation. It never fails: an
// unparseable response degrades to the raw text as the explanation.
func ParseSimplified(content string) *model.SimplifiedExplanation {
	raw, err := ExtractJSON(content)
	if err != nil {
		explanation := truncateRunes(content, 500)
		if explanation == "" {
			explanation = "Unable to parse explanation"
		}
		return &model.SimplifiedExplanation{
			Explanation: explanation,
			Steps:       []model.SimplifiedStep{},
			KeyConcepts: []model.KeyConcept{},
		}
	}

	var wire struct {
		Explanation string            `json:"simplified_explanation"`
		Steps       []json.RawMessage `json:"step_by_step"`
		KeyConcepts []json.RawMessage `json:"key_concepts"`
	}
	_ = json.Unmarshal(raw, &wire)

	out := &model.SimplifiedExplanation{
		Explanation: wire.Explanation,
		Steps:       []model.SimplifiedStep{},
		KeyConcepts: []model.KeyConcept{},
	}
	for _, raw := range wire.Steps {
		var s model.SimplifiedStep
		if json.Unmarshal(raw, &s) == nil {
			out.Steps = append(out.Steps, s)
		}
	}
	for _, raw := range wire.KeyConcepts {
		var k model.KeyConcept
		if json.Unmarshal(raw, &k) == nil {
			out.KeyConcepts = append(out.KeyConcepts, k)
		}
	}
	return out
}

// ParseCodeExplanation extracts a thought-process walkthrough. It never
// fails: an unparseable response degrades to a fixed failure notice with no
// line annotations.
func ParseCodeExplanation(content string) *model.CodeExplanation {
	fallback := &model.CodeExplanation{
		ThoughtProcess: "Explanation generation failed",
		Lines:          []model.ExplainedLine{},
	}

	raw, err := ExtractJSON(content)
	if err != nil {
		return fallback
	}

	var wire struct {
		ThoughtProcess string            `json:"thought_process"`
		Lines          []json.RawMessage `json:"lines"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return fallback
	}

	out := &model.CodeExplanation{
		ThoughtProcess: wire.ThoughtProcess,
		Lines:          []model.ExplainedLine{},
	}
	for _, raw := range wire.Lines {
		var l model.ExplainedLine
		if json.Unmarshal(raw, &l) == nil {
			out.Lines = append(out.Lines, l)
		}
	}
	return out
}

// ParseVerification decodes a reviewer response. A response that cannot be
// parsed defaults to a passing assessment with a score of 80 so a flaky
// reviewer degrades the result instead of failing the request.
func ParseVerification(content string) *model.Verification {
	fallback := &model.Verification{
		IsCorrect:               true,
		Issues:                  []model.Issue{},
		EdgeCasesMissing:        []string{},
		OptimizationSuggestions: []string{},
		Score:                   80,
	}

	span := jsonObjectRe.FindString(content)
	if span == "" {
		return fallback
	}

	var wire struct {
		IsCorrect               *bool             `json:"is_correct"`
		Issues                  []json.RawMessage `json:"issues"`
		EdgeCasesMissing        []string          `json:"edge_cases_missing"`
		OptimizationSuggestions []string          `json:"optimization_suggestions"`
		Score                   *int              `json:"overall_score"`
	}
	if err := json.Unmarshal([]byte(span), &wire); err != nil {
		return fallback
	}

	v := &model.Verification{
		IsCorrect:               true,
		Issues:                  []model.Issue{},
		EdgeCasesMissing:        wire.EdgeCasesMissing,
		OptimizationSuggestions: wire.OptimizationSuggestions,
		Score:                   80,
	}
	if wire.IsCorrect != nil {
		v.IsCorrect = *wire.IsCorrect
	}
	if wire.Score != nil {
		v.Score = *wire.Score
	}
	if v.EdgeCasesMissing == nil {
		v.EdgeCasesMissing = []string{}
	}
	if v.OptimizationSuggestions == nil {
		v.OptimizationSuggestions = []string{}
	}
	for _, raw := range wire.Issues {
		var issue model.Issue
		if json.Unmarshal(raw, &issue) == nil {
			v.Issues = append(v.Issues, issue)
		}
	}
	return v
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
