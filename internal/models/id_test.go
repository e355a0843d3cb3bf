package models

import (
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	id := NewID("inv")
	require.True(t, strings.HasPrefix(id, "inv_"))

	_, err := ulid.Parse(strings.TrimPrefix(id, "inv_"))
	assert.NoError(t, err)
}

func TestNewID_Monotonic(t *testing.T) {
	prev := NewID("inv")
	for i := 0; i < 100; i++ {
		next := NewID("inv")
		assert.Greater(t, next, prev)
		prev = next
	}
}
