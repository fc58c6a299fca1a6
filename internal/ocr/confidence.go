// Package ocr estimates how reliably text was extracted from a problem
// screenshot. The model itself does the extraction; this package only judges
// the result.
package ocr

// ConfidenceFloor is the minimum confidence reported for any non-empty
// extraction. Overridable for callers that want a stricter floor.
var ConfidenceFloor = 0.5

// EstimateConfidence scores extracted text on crude length heuristics.
// Empty text scores 0; anything else lands between ConfidenceFloor and 1.
func EstimateConfidence(text string) float64 {
	if text == "" {
		return 0.0
	}

	confidence := 1.0

	if len(text) < 50 {
		confidence -= 0.2
	}
	if wordCount(text) < 10 {
		confidence -= 0.15
	}

	if confidence < ConfidenceFloor {
		return ConfidenceFloor
	}
	if confidence > 1.0 {
		return 1.0
	}
	return confidence
}

func wordCount(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		switch r {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			inWord = false
		default:
			if !inWord {
				count++
				inWord = true
			}
		}
	}
	return count
}
