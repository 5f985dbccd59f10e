package attrs

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestLookup(t *testing.T) {
	u := uuid.MustParse("7c3f3d8e-5b0e-4b8a-9a53-2f7f7b1e0c11")
	list := []any{"username", "acme", "principal_id", u, "count", 3, "dangling"}

	v, ok := Lookup(list, "username")
	assert.True(t, ok)
	assert.Equal(t, "acme", v)

	v, ok = Lookup(list, "principal_id")
	assert.True(t, ok)
	assert.Equal(t, u.String(), v)

	_, ok = Lookup(list, "count")
	assert.False(t, ok)

	_, ok = Lookup(list, "dangling")
	assert.False(t, ok)
}

func TestFirstOf(t *testing.T) {
	list := []any{"username", "acme", "reason", ""}
	assert.Equal(t, "acme", FirstOf(list, "principal_id", "username"))
	assert.Equal(t, "", FirstOf(list, "reason", "missing"))
}
