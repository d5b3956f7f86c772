package relay

import (
	"net/http"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrUnauthenticated is returned when a request carries no valid credential.
var ErrUnauthenticated = errors.New("relay: not authenticated")

// Authenticator resolves the calling user from a request. The real identity
// provider lives in front of this service; implementations here only check
// credentials it issued.
type Authenticator interface {
	Authenticate(r *http.Request) (string, error)
}

// StaticTokenAuthenticator maps bearer tokens to user ids from a static
// table. It stands in for the SaaS identity provider in deployments where the
// relay runs behind a trusted gateway that issues per-user service tokens.
type StaticTokenAuthenticator struct {
	tokens map[string]string
}

var _ Authenticator = (*StaticTokenAuthenticator)(nil)

func NewStaticTokenAuthenticator(tokens map[string]string) *StaticTokenAuthenticator {
	return &StaticTokenAuthenticator{tokens: tokens}
}

// LoadStaticTokens reads a yaml map of token -> user id.
func LoadStaticTokens(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read tokens file")
	}
	tokens := map[string]string{}
	if err := yaml.Unmarshal(b, &tokens); err != nil {
		return nil, errors.Wrap(err, "parse tokens file")
	}
	return tokens, nil
}

func (a *StaticTokenAuthenticator) Authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", ErrUnauthenticated
	}
	userID, ok := a.tokens[token]
	if !ok {
		return "", ErrUnauthenticated
	}
	return userID, nil
}
