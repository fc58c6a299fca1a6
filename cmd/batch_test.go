package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prepforge/prepforge/internal/model"
)

func TestApplyDefaultMode(t *testing.T) {
	unset := model.AnalyzeRequest{ProblemText: "reverse a linked list"}
	applyDefaultMode(&unset, "verified")
	assert.Equal(t, model.ModeVerified, unset.Mode)

	explicit := model.AnalyzeRequest{ProblemText: "reverse a linked list", Mode: model.ModeFast}
	applyDefaultMode(&explicit, "verified")
	assert.Equal(t, model.ModeFast, explicit.Mode, "explicit fast must not be promoted by the flag")

	noFlag := model.AnalyzeRequest{ProblemText: "reverse a linked list"}
	applyDefaultMode(&noFlag, "")
	assert.Equal(t, model.ModeFast, noFlag.Mode, "unset mode defaults to fast")
}
