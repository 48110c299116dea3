// Package auth names the single capability the rest of the Core needs
// from authentication: a token source per scriptId. The OAuth 2.0 PKCE
// dance itself and consent screen are out of scope (see spec's Non-goals).
// This package replaces kairos's implicit global-client assumption with an
// explicit capability, and tokencache.go loads and saves the resulting
// oauth2.Token as a JSON file,
// per the "global auth singleton → AuthProvider capability" redesign.
package auth

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/gas-mcp/gas-mcp-server/internal/errors"
)

// Provider hands out an oauth2.TokenSource for a project. The Core treats
// whatever it returns as opaque: it never inspects or stores tokens
// itself, only threads the TokenSource into gasapi.NewRestClient.
type Provider interface {
	Token(ctx context.Context, scriptID string) (oauth2.TokenSource, error)
}

// SingleAccountProvider is the minimal Provider every scriptId in one
// server process shares: all GAS projects are authorized under the same
// Google account, so every scriptId gets the same underlying
// TokenSource. This matches how a personal or single-team GAS-MCP
// deployment actually authenticates today.
type SingleAccountProvider struct {
	source oauth2.TokenSource
}

// NewSingleAccountProvider wraps an already-constructed TokenSource
// (typically built by the caller from a cached token file plus an
// oauth2.Config, outside this package's scope).
func NewSingleAccountProvider(source oauth2.TokenSource) *SingleAccountProvider {
	return &SingleAccountProvider{source: source}
}

func (p *SingleAccountProvider) Token(ctx context.Context, scriptID string) (oauth2.TokenSource, error) {
	if p.source == nil {
		return nil, errors.New(errors.CodeAuth, "no token source configured", nil).WithContext("scriptId", scriptID)
	}
	return p.source, nil
}
