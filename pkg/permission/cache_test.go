package permission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVectorCache_HitMiss(t *testing.T) {
	perms := []Permission{
		{Route: "/security/users", Action: ActionView, Status: StatusActive},
	}
	c := NewVectorCache(16, time.Minute)

	v1 := c.Resolve("/security/users", perms)
	assert.True(t, v1.View)

	// Second resolve is served from cache even if the slice changed —
	// callers must purge on permission-set changes.
	v2 := c.Resolve("/security/users", nil)
	assert.Equal(t, v1, v2)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestVectorCache_Purge(t *testing.T) {
	perms := []Permission{
		{Route: "/security/users", Action: ActionView, Status: StatusActive},
	}
	c := NewVectorCache(16, 0)

	_ = c.Resolve("/security/users", perms)
	assert.Equal(t, 1, c.Len())

	c.Purge()
	assert.Equal(t, 0, c.Len())

	// Post-purge resolve recomputes against the new permission set.
	v := c.Resolve("/security/users", nil)
	assert.False(t, v.Any())
}

func TestVectorCache_DefaultSize(t *testing.T) {
	c := NewVectorCache(0, 0)
	assert.NotNil(t, c)
	assert.Equal(t, 0, c.Len())
}
