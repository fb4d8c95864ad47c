package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "a…@e….com", MaskEmail("ada@example.com"))
	assert.Equal(t, "a…@e….com", MaskEmail("  ADA@Example.COM "))
	assert.Equal(t, "***", MaskEmail("abc"))
	assert.Equal(t, "", MaskEmail(""))
}
