package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildOrder(t *testing.T) {
	p := Build("Student: hi\nAssistant: hello", "What is a binary search tree?")

	sys := strings.Index(p, "You are StudyBuddy")
	hist := strings.Index(p, "Chat history:\nStudent: hi\nAssistant: hello")
	q := strings.Index(p, "Student question:\nWhat is a binary search tree?")
	end := strings.Index(p, closing)

	assert.Equal(t, 0, sys)
	assert.Greater(t, hist, sys)
	assert.Greater(t, q, hist)
	assert.Greater(t, end, q)
	assert.True(t, strings.HasSuffix(p, closing))
}

func TestBuildEmptyHistory(t *testing.T) {
	p := Build("", "q")
	assert.Contains(t, p, "Chat history:\n\n\nStudent question:\nq")
}

func TestSystemInstructionDescribesSchema(t *testing.T) {
	s := SystemInstruction()
	for _, key := range []string{"answer", "key_points", "follow_up_questions", "references"} {
		assert.Contains(t, s, `"`+key+`"`)
	}
	assert.Contains(t, s, jsonOnly)
	assert.Equal(t, s, SystemInstruction())
}
