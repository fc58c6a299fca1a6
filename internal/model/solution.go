package model

// Solution is the fully normalized result of a problem analysis: the
// generated code plus every layer of explanation the assistant produces.
// A Solution is created once by the normalizer and never mutated afterward.
type Solution struct {
	Code           string            `json:"code"`
	Language       string            `json:"language"`
	Lines          []LineExplanation `json:"lines"`
	Complexity     Complexity        `json:"complexity"`
	EdgeCases      []EdgeCase        `json:"edge_cases"`
	CommonMistakes []CommonMistake   `json:"common_mistakes"`
	Alternatives   []Alternative     `json:"alternative_approaches"`
	TestResults    []TestResult      `json:"test_results"`
}

// LineExplanation annotates a single line of the generated solution.
type LineExplanation struct {
	LineNumber     int    `json:"line_number"`
	Code           string `json:"code"`
	Explanation    string `json:"explanation"`
	ComplexityNote string `json:"complexity_note,omitempty"`
	IsKeyLine      bool   `json:"is_key_line"`
}

// ComplexityInfo holds a single big-O notation with its justification.
type ComplexityInfo struct {
	Notation    string `json:"notation"`
	Explanation string `json:"explanation"`
}

// Complexity is the full time/space analysis for a solution.
type Complexity struct {
	Time  ComplexityInfo `json:"time"`
	Space ComplexityInfo `json:"space"`
}

// EdgeCase describes one edge case and whether the solution handles it.
type EdgeCase struct {
	Case          string `json:"case"`
	Handled       bool   `json:"handled"`
	How           string `json:"how"`
	LineReference int    `json:"line_reference,omitempty"`
}

// CommonMistake describes a mistake candidates typically make on this problem.
type CommonMistake struct {
	Mistake    string `json:"mistake"`
	WhyWrong   string `json:"why_wrong"`
	HowAvoided string `json:"how_avoided"`
}

// Alternative describes another viable approach with its tradeoffs.
type Alternative struct {
	Name            string `json:"name"`
	TimeComplexity  string `json:"time_complexity"`
	SpaceComplexity string `json:"space_complexity"`
	WhenToUse       string `json:"when_to_use"`
	CodeSnippet     string `json:"code_snippet,omitempty"`
}

// TestResult records one sample test execution against the solution.
type TestResult struct {
	Input    string `json:"input"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Passed   bool   `json:"passed"`
}

// Clone returns a deep copy of the solution so cached snapshots cannot be
// mutated by later callers.
func (s *Solution) Clone() *Solution {
	if s == nil {
		return nil
	}
	out := *s
	out.Lines = append([]LineExplanation(nil), s.Lines...)
	out.EdgeCases = append([]EdgeCase(nil), s.EdgeCases...)
	out.CommonMistakes = append([]CommonMistake(nil), s.CommonMistakes...)
	out.Alternatives = append([]Alternative(nil), s.Alternatives...)
	out.TestResults = append([]TestResult(nil), s.TestResults...)
	return &out
}

// CodeExplanation is an interview-oriented walkthrough of user-supplied
// code: the overall thought process plus per-line annotations.
type CodeExplanation struct {
	ThoughtProcess string          `json:"thought_process"`
	Lines          []ExplainedLine `json:"lines"`
}

// ExplainedLine annotates one line of user-supplied code.
type ExplainedLine struct {
	Line        int    `json:"line"`
	Code        string `json:"code"`
	Explanation string `json:"explanation"`
}

// SimplifiedExplanation is a beginner-level walkthrough of a solution.
type SimplifiedExplanation struct {
	Explanation string           `json:"simplified_explanation"`
	Steps       []SimplifiedStep `json:"step_by_step"`
	KeyConcepts []KeyConcept     `json:"key_concepts"`
}

// SimplifiedStep is one numbered step in a simplified walkthrough.
type SimplifiedStep struct {
	Step        int    `json:"step"`
	Title       string `json:"title"`
	Explanation string `json:"explanation"`
	Analogy     string `json:"analogy,omitempty"`
}

// KeyConcept defines a term a beginner needs to follow the explanation.
type KeyConcept struct {
	Term       string `json:"term"`
	Definition string `json:"simple_definition"`
	Example    string `json:"example,omitempty"`
}
