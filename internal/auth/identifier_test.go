package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyIdentifierEmail(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"doc@school.example", "@", "a@b", "weird@@input"} {
		id := ClassifyIdentifier(raw)
		require.Equal(t, KindEmail, id.Kind, raw)
		require.Equal(t, raw, id.Value)
	}
}

func TestClassifyIdentifierToken(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"a1b2c3d4e5", "", "no-at-sign", "1234567890"} {
		id := ClassifyIdentifier(raw)
		require.Equal(t, KindToken, id.Kind, raw)
		require.Equal(t, raw, id.Value)
	}
}
