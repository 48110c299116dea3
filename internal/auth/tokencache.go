package auth

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"

	"github.com/gas-mcp/gas-mcp-server/internal/errors"
)

// DefaultCachePath returns the well-known home-directory path the login
// flow (out of scope here) is expected to have written a token to.
func DefaultCachePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New(errors.CodeInternal, "resolving home directory", err)
	}
	return filepath.Join(home, ".gas-mcp", "token.json"), nil
}

// LoadCachedToken reads a previously-obtained token from path. The Core
// never parses its fields beyond what oauth2.Token itself exposes.
func LoadCachedToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeAuth, "no cached token; run the login flow first", err).
				WithContext("path", path)
		}
		return nil, errors.New(errors.CodeInternal, "reading cached token", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, errors.New(errors.CodeAuth, "cached token is corrupt", err).WithContext("path", path)
	}
	return &token, nil
}

// SaveToken persists token to path, creating parent directories with
// owner-only permissions since it holds a refresh token.
func SaveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.New(errors.CodeInternal, "creating token cache directory", err)
	}
	data, err := json.Marshal(token)
	if err != nil {
		return errors.New(errors.CodeInternal, "marshaling token", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.New(errors.CodeInternal, "writing cached token", err)
	}
	return nil
}

// NewCachingTokenSource wraps cfg's own TokenSource (which refreshes but
// never persists) so that every time the access token rotates, the new
// token is re-saved to path. That way the next process start picks up
// the latest refresh token instead of re-running the login flow.
func NewCachingTokenSource(ctx context.Context, cfg *oauth2.Config, initial *oauth2.Token, path string) oauth2.TokenSource {
	return &persistingTokenSource{
		inner: cfg.TokenSource(ctx, initial),
		path:  path,
		last:  initial,
	}
}

type persistingTokenSource struct {
	inner oauth2.TokenSource
	path  string
	last  *oauth2.Token
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := p.inner.Token()
	if err != nil {
		return nil, errors.New(errors.CodeAuth, "refreshing token", err)
	}
	if p.last == nil || token.AccessToken != p.last.AccessToken {
		p.last = token
		_ = SaveToken(p.path, token) // best-effort; a failed write just means next refresh re-saves
	}
	return token, nil
}
