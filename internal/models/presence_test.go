package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresence_Clone(t *testing.T) {
	original := &Presence{
		Name:   "alice",
		Color:  "#ff0000",
		Cursor: &Cursor{Anchor: 1, Head: 3},
	}

	clone := original.Clone()
	require.NotNil(t, clone)
	assert.Equal(t, original, clone)

	// Изменение копии не затрагивает оригинал
	clone.Cursor.Head = 10
	clone.Name = "bob"
	assert.Equal(t, 3, original.Cursor.Head)
	assert.Equal(t, "alice", original.Name)

	var empty *Presence
	assert.Nil(t, empty.Clone())
}

func TestPresence_Equal(t *testing.T) {
	tests := []struct {
		a        *Presence
		b        *Presence
		name     string
		expected bool
	}{
		{name: "both nil", a: nil, b: nil, expected: true},
		{name: "one nil", a: &Presence{}, b: nil, expected: false},
		{name: "same without cursor", a: &Presence{Name: "a"}, b: &Presence{Name: "a"}, expected: true},
		{name: "different color", a: &Presence{Color: "red"}, b: &Presence{Color: "blue"}, expected: false},
		{
			name:     "same cursor",
			a:        &Presence{Cursor: &Cursor{Anchor: 2, Head: 2}},
			b:        &Presence{Cursor: &Cursor{Anchor: 2, Head: 2}},
			expected: true,
		},
		{
			name:     "cursor moved",
			a:        &Presence{Cursor: &Cursor{Anchor: 2, Head: 2}},
			b:        &Presence{Cursor: &Cursor{Anchor: 2, Head: 5}},
			expected: false,
		},
		{
			name:     "cursor removed",
			a:        &Presence{Cursor: &Cursor{}},
			b:        &Presence{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.a.Equal(tt.b))
			assert.Equal(t, tt.expected, tt.b.Equal(tt.a), "Equal should be symmetric")
		})
	}
}
