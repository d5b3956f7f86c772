package relay

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStaticTokenAuthenticator(t *testing.T) {
	auth := NewStaticTokenAuthenticator(map[string]string{"tok-1": "user-1"})

	req, err := http.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, err)

	_, err = auth.Authenticate(req)
	require.ErrorIs(t, err, ErrUnauthenticated)

	req.Header.Set("Authorization", "Bearer unknown")
	_, err = auth.Authenticate(req)
	require.ErrorIs(t, err, ErrUnauthenticated)

	req.Header.Set("Authorization", "tok-1")
	_, err = auth.Authenticate(req)
	require.ErrorIs(t, err, ErrUnauthenticated)

	req.Header.Set("Authorization", "Bearer tok-1")
	userID, err := auth.Authenticate(req)
	require.NoError(t, err)
	require.Equal(t, "user-1", userID)
}

func TestLoadStaticTokens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tok-1: user-1\ntok-2: user-2\n"), 0o600))

	tokens, err := LoadStaticTokens(path)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"tok-1": "user-1", "tok-2": "user-2"}, tokens)

	_, err = LoadStaticTokens(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
