// Package normalize turns raw model output into structured records. Models
// return JSON wrapped in prose, markdown fences, or worse; the extraction
// ladder here tries progressively more aggressive salvage before giving up.
package normalize

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/prepforge/prepforge/internal/model"
)

// ErrExtraction is returned when no strategy could recover a JSON object or
// code from the response text.
var ErrExtraction = eris.New("could not extract valid JSON or code from response")

// Sentinels filled into records whose complexity analysis is missing or was
// salvaged from bare code. Overridable in tests.
var (
	UnknownNotation    = "O(?)"
	PendingExplanation = "Analysis pending"
)

var (
	jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)
	fenceOpenRe  = regexp.MustCompile("```json\\s*")
	fenceRe      = regexp.MustCompile("```\\s*")
	trailObjRe   = regexp.MustCompile(`,\s*}`)
	trailArrRe   = regexp.MustCompile(`,\s*]`)
	codeFieldRe  = regexp.MustCompile(`(?s)"code"\s*:\s*"((?:[^"\\]|\\.)*)"`)
)

// ExtractJSON recovers a JSON object from model output. It returns bytes that
// are guaranteed to unmarshal into an object. The strategies run in order of
// increasing aggressiveness and the first success wins:
//
//  1. parse the trimmed content directly
//  2. parse the span from the first "{" to the last "}"
//  3. strip markdown fences and trailing commas, then retry the span
//  4. salvage the "code" field and wrap it in a minimal record
//  5. salvage code starting at a "def "/"class " marker
func ExtractJSON(content string) ([]byte, error) {
	trimmed := strings.TrimSpace(content)
	if isJSONObject(trimmed) {
		return []byte(trimmed), nil
	}

	if span := jsonObjectRe.FindString(content); isJSONObject(span) {
		return []byte(span), nil
	}

	cleaned := fenceOpenRe.ReplaceAllString(trimmed, "")
	cleaned = fenceRe.ReplaceAllString(cleaned, "")
	cleaned = trailObjRe.ReplaceAllString(cleaned, "}")
	cleaned = trailArrRe.ReplaceAllString(cleaned, "]")
	if span := jsonObjectRe.FindString(cleaned); isJSONObject(span) {
		return []byte(span), nil
	}

	if m := codeFieldRe.FindStringSubmatch(content); m != nil {
		return json.Marshal(minimalRecord(unquote(m[1])))
	}

	if code := salvageCode(content); code != "" {
		return json.Marshal(minimalRecord(code))
	}

	return nil, ErrExtraction
}

func isJSONObject(s string) bool {
	if s == "" || s[0] != '{' {
		return false
	}
	var obj map[string]json.RawMessage
	return json.Unmarshal([]byte(s), &obj) == nil
}

// unquote resolves JSON escapes in a string captured without its quotes.
func unquote(escaped string) string {
	var s string
	if err := json.Unmarshal([]byte(`"`+escaped+`"`), &s); err != nil {
		return escaped
	}
	return s
}

// salvageCode collects everything from the first function or class
// definition onward. Returns "" when no marker is present.
func salvageCode(content string) string {
	var lines []string
	inCode := false
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "def ") || strings.HasPrefix(trimmed, "class ") {
			inCode = true
		}
		if inCode {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// minimalRecord builds a bare but valid solution from salvaged code. Line
// numbers count every source line, blank ones included, but blank lines get
// no annotation entry.
func minimalRecord(code string) *model.Solution {
	var lines []model.LineExplanation
	for i, line := range strings.Split(code, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, model.LineExplanation{
			LineNumber: i + 1,
			Code:       line,
		})
	}

	return &model.Solution{
		Code:  code,
		Lines: lines,
		Complexity: model.Complexity{
			Time:  model.ComplexityInfo{Notation: UnknownNotation, Explanation: PendingExplanation},
			Space: model.ComplexityInfo{Notation: UnknownNotation, Explanation: PendingExplanation},
		},
		EdgeCases:      []model.EdgeCase{},
		CommonMistakes: []model.CommonMistake{},
		Alternatives:   []model.Alternative{},
	}
}
