package otp

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sixDigits = regexp.MustCompile(`^[0-9]{6}$`)

func TestGenerate_Format(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := Generate()
		require.NoError(t, err)
		assert.Regexp(t, sixDigits, code)
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("012345", "012345"))
	assert.False(t, Equal("012345", "012346"))
	assert.False(t, Equal("012345", "12345"))
	assert.False(t, Equal("", "000000"))
}
