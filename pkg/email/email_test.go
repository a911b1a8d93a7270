package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "campaign/pkg/domain-errors"
)

func TestNormalize(t *testing.T) {
	got, err := Normalize("  Jane.Doe@Example.ORG ")
	require.NoError(t, err)
	assert.Equal(t, "Jane.Doe@example.org", got)

	for _, bad := range []string{"", "not-an-address", "Jane <jane@example.org>", "a@b@c"} {
		_, err := Normalize(bad)
		require.Error(t, err, bad)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), bad)
	}
}

func TestDomain(t *testing.T) {
	assert.Equal(t, "example.org", Domain("x@Example.org"))
	assert.Empty(t, Domain("nodomain"))
}
