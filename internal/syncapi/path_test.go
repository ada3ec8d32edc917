package syncapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserPath_RoundTrip(t *testing.T) {
	p := UserPath("u-1", "allergies")
	assert.Equal(t, "users/u-1/allergies", p)

	uid, key, err := ParsePath(p)
	require.NoError(t, err)
	assert.Equal(t, "u-1", uid)
	assert.Equal(t, "allergies", key)
}

func TestParsePath_Invalid(t *testing.T) {
	for _, p := range []string{
		"",
		"users",
		"users/u-1",
		"users//history",
		"users/u-1/",
		"groups/u-1/history",
		"users/u-1/history/extra",
	} {
		_, _, err := ParsePath(p)
		assert.ErrorIs(t, err, ErrInvalidPath, p)
	}
}
