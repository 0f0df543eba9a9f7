package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateContentBoundary(t *testing.T) {
	assert.NoError(t, ValidateContent(strings.Repeat("a", MaxContentLength)))
	assert.ErrorIs(t, ValidateContent(strings.Repeat("a", MaxContentLength+1)), ErrContentTooLong)
}

func TestValidateContentRejectsNewlines(t *testing.T) {
	assert.ErrorIs(t, ValidateContent("line one\nline two"), ErrContentMultiline)
	assert.ErrorIs(t, ValidateContent("trailing\r"), ErrContentMultiline)
	assert.NoError(t, ValidateContent(""))
}

func TestMessageLine(t *testing.T) {
	msg := Message{Timestamp: "2024-01-01 00:00:00", Content: "hi"}
	assert.Equal(t, "2024-01-01 00:00:00,hi", msg.Line())
}
