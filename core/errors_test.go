package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModerationVerdictErr(t *testing.T) {
	assert.NoError(t, ModerationVerdict{Allowed: true, Reason: "profanity"}.Err())

	err := ModerationVerdict{Reason: "harmful_instructions", Message: "no"}.Err()
	assert.ErrorIs(t, err, ErrModerationBlocked)
	assert.EqualError(t, err, "input blocked by moderation: harmful_instructions")
}
