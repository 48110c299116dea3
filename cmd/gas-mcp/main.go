// Command gas-mcp runs the GAS-MCP stdio server: it mediates between an
// MCP client and the Google Apps Script REST API, giving every tool call
// a consistent local-mirror view of a project's files.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/gas-mcp/gas-mcp-server/internal/auth"
	"github.com/gas-mcp/gas-mcp-server/internal/config"
	"github.com/gas-mcp/gas-mcp-server/internal/deploy"
	"github.com/gas-mcp/gas-mcp-server/internal/gasapi"
	"github.com/gas-mcp/gas-mcp-server/internal/lock"
	"github.com/gas-mcp/gas-mcp-server/internal/mcpserver"
	"github.com/gas-mcp/gas-mcp-server/internal/orchestrator"
	"github.com/gas-mcp/gas-mcp-server/internal/rsync"
	"github.com/gas-mcp/gas-mcp-server/internal/telemetry"
)

// scriptScopes are the Apps Script API scopes the REST client needs for
// content, version/deployment, and Execution API calls.
var scriptScopes = []string{
	"https://www.googleapis.com/auth/script.projects",
	"https://www.googleapis.com/auth/script.deployments",
	"https://www.googleapis.com/auth/script.scriptapp",
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWithCLI(os.Args[1:])
	if err != nil {
		fatal(err)
	}

	logger := telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	tokenSource, err := buildTokenSource(ctx, cfg.Auth)
	if err != nil {
		fatal(err)
	}
	authProvider := auth.NewSingleAccountProvider(tokenSource)

	projectTokenSource, err := authProvider.Token(ctx, "")
	if err != nil {
		fatal(err)
	}
	restClient, err := gasapi.NewRestClient(ctx, projectTokenSource)
	if err != nil {
		fatal(fmt.Errorf("building gasapi client: %w", err))
	}

	client := gasapi.NewResilientClient(
		restClient,
		cfg.GasAPI.MaxAttempts,
		cfg.GasAPI.CircuitFailureMax,
		time.Duration(cfg.GasAPI.RequestTimeoutSecs)*time.Second,
	)

	if err := os.MkdirAll(cfg.Repos.Root, 0o755); err != nil {
		fatal(fmt.Errorf("creating repos root %s: %w", cfg.Repos.Root, err))
	}

	locks := lock.NewManager(cfg.Repos.Root, time.Duration(cfg.Lock.TimeoutSeconds)*time.Second)
	orch := orchestrator.NewManager(
		cfg.Repos.Root,
		time.Duration(cfg.Lock.TimeoutSeconds)*time.Second,
		client,
		cfg.Git.FallbackUserName,
		cfg.Git.FallbackUserEmail,
	)
	rsyncEngine := rsync.NewEngine(client, cfg.Repos.Root)
	deployMgr := deploy.NewManager(client, cfg.Repos.Root, locks)

	app := &toolset{
		client:   client,
		orch:     orch,
		rsync:    rsyncEngine,
		deploy:   deployMgr,
		reposDir: cfg.Repos.Root,
	}

	srv := mcpserver.NewServer(cfg.Server.Name, cfg.Server.Version)
	for _, desc := range app.descriptors() {
		srv.Register(desc)
	}

	logger.Info("gas-mcp starting", "reposRoot", cfg.Repos.Root)
	if err := srv.ServeStdio(); err != nil {
		fatal(fmt.Errorf("serving stdio: %w", err))
	}
}

// buildTokenSource loads the cached OAuth token and, if a client
// id/secret is configured, wraps it in a source that refreshes and
// re-persists the token on rotation. Without client credentials the
// cached access token is used as-is until it expires, since refreshing
// requires the client secret.
func buildTokenSource(ctx context.Context, cfg config.AuthConfig) (oauth2.TokenSource, error) {
	cachePath := cfg.TokenCache
	if cachePath == "" {
		path, err := auth.DefaultCachePath()
		if err != nil {
			return nil, err
		}
		cachePath = path
	}

	token, err := auth.LoadCachedToken(cachePath)
	if err != nil {
		return nil, err
	}

	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return oauth2.StaticTokenSource(token), nil
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       scriptScopes,
		Endpoint:     google.Endpoint,
	}
	return auth.NewCachingTokenSource(ctx, oauthCfg, token, cachePath), nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
