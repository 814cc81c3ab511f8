package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases", "Acme", "acme"},
		{"trims whitespace", "  ACME  ", "acme"},
		{"case and space variants collapse", "ACME ", "acme"},
		{"empty stays empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Key(tt.input))
		})
	}
}

func TestNameStore(t *testing.T) {
	store := NewNameStore()

	_, ok := store.Get("acme")
	assert.False(t, ok)
	assert.Equal(t, 0, store.size())

	store.Set("acme", "id-123")

	id, ok := store.Get("acme")
	assert.True(t, ok)
	assert.Equal(t, "id-123", id)
	assert.Equal(t, 1, store.size())

	// Distinct raw spellings share one entry through Key
	id, ok = store.Get(Key("ACME "))
	assert.True(t, ok)
	assert.Equal(t, "id-123", id)
}
