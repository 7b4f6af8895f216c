package uuid

import (
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	id := New()
	assert.NotEqual(t, uuid.Nil, id)
	assert.True(t, IsUUIDv7(id))
}

func TestNewRandom(t *testing.T) {
	id, err := NewRandom()
	assert.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestParse(t *testing.T) {
	validUUID := "123e4567-e89b-12d3-a456-426614174000"
	id, err := Parse(validUUID)
	assert.NoError(t, err)
	assert.Equal(t, validUUID, id.String())

	_, err = Parse("invalid-uuid")
	assert.Error(t, err)
}

func TestRequestID(t *testing.T) {
	id, err := Parse(RequestID())
	require.NoError(t, err)
	assert.True(t, IsUUIDv7(id))
	assert.NotEqual(t, RequestID(), RequestID())
}

func TestRandomName(t *testing.T) {
	hexName := regexp.MustCompile(`^[0-9a-f]+$`)
	for _, n := range []int{1, 32, 40, 100} {
		name, err := RandomName(n)
		require.NoError(t, err)
		assert.Len(t, name, n)
		assert.Regexp(t, hexName, name)
	}

	a, _ := RandomName(40)
	b, _ := RandomName(40)
	assert.NotEqual(t, a, b)

	_, err := RandomName(0)
	assert.Error(t, err)
}
