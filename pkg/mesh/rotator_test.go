package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyRotatorRoundRobin(t *testing.T) {
	r := NewKeyRotator([]string{"a", "b", "c"})

	assert.Equal(t, "a", r.Next())
	assert.Equal(t, "b", r.Next())
	assert.Equal(t, "c", r.Next())
	assert.Equal(t, "a", r.Next())
}

func TestKeyRotatorCountAndHasKeys(t *testing.T) {
	r := NewKeyRotator([]string{"a", "b"})
	assert.Equal(t, 2, r.Count())
	assert.True(t, r.HasKeys())
}

func TestKeyRotatorEmptyReturnsEmptyKey(t *testing.T) {
	r := NewKeyRotator(nil)
	assert.False(t, r.HasKeys())
	assert.Equal(t, 0, r.Count())
	assert.Equal(t, "", r.Next())
}

func TestLoadKeyRotatorFromEnv(t *testing.T) {
	t.Setenv("MESHY_API_KEY", "k1")
	t.Setenv("MESHY_API_KEY_2", "k2")
	t.Setenv("MESHY_API_KEY_3", "")

	r := LoadKeyRotatorFromEnv()
	assert.Equal(t, 2, r.Count())
}
