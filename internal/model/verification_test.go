package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerification_StatusThresholds(t *testing.T) {
	tests := []struct {
		score int
		want  VerificationStatus
	}{
		{100, VerificationPassed},
		{90, VerificationPassed},
		{89, VerificationPassedWarn},
		{70, VerificationPassedWarn},
		{69, VerificationFailed},
		{0, VerificationFailed},
	}
	for _, tt := range tests {
		v := Verification{Score: tt.score}
		assert.Equal(t, tt.want, v.Status(), "score %d", tt.score)
	}
}

func TestSolution_CloneIsDeep(t *testing.T) {
	orig := &Solution{
		Code:      "def solve(): return 1",
		Lines:     []LineExplanation{{LineNumber: 1, Code: "def solve(): return 1"}},
		EdgeCases: []EdgeCase{{Case: "empty input", Handled: true}},
	}
	copied := orig.Clone()
	copied.Code = "changed"
	copied.Lines[0].Explanation = "changed"
	copied.EdgeCases[0].Handled = false

	assert.Equal(t, "def solve(): return 1", orig.Code)
	assert.Empty(t, orig.Lines[0].Explanation)
	assert.True(t, orig.EdgeCases[0].Handled)

	var nilSolution *Solution
	assert.Nil(t, nilSolution.Clone())
}
