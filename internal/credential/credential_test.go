package credential

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		encoded, err := Hash("family-secret")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(encoded, "$argon2id$"))

		ok, err := Verify("family-secret", encoded)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("wrong credential fails", func(t *testing.T) {
		encoded, err := Hash("family-secret")
		require.NoError(t, err)

		ok, err := Verify("guess", encoded)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("hashes are salted", func(t *testing.T) {
		a, err := Hash("same")
		require.NoError(t, err)
		b, err := Hash("same")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("malformed hash", func(t *testing.T) {
		_, err := Verify("x", "not-a-hash")
		assert.ErrorIs(t, err, ErrMalformedHash)

		_, err = Verify("x", "$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA")
		assert.ErrorIs(t, err, ErrMalformedHash)
	})
}
