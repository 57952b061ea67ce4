package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "42_report.docx", ObjectKey(42, "report.docx"))
	assert.Equal(t, "1_", ObjectKey(1, ""))
	// Underscores in the filename don't break uniqueness: the id prefix alone
	// already distinguishes attachments.
	assert.NotEqual(t, ObjectKey(1, "2_x.png"), ObjectKey(12, "x.png"))
}
