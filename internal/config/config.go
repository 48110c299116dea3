// Package config loads and normalizes the gas-mcp server's runtime
// configuration: defaults, then an optional file, then a profile
// override file, then GASMCP_-prefixed environment variables, then
// explicit CLI --set overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the root configuration for the gas-mcp server process.
type Config struct {
	Log       LogConfig       `koanf:"log"`
	Server    ServerConfig    `koanf:"server"`
	Repos     ReposConfig     `koanf:"repos"`
	Git       GitConfig       `koanf:"git"`
	Lock      LockConfig      `koanf:"lock"`
	GasAPI    GasAPIConfig    `koanf:"gasapi"`
	Auth      AuthConfig      `koanf:"auth"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// AuthConfig names the OAuth client used to refresh a cached token. The
// PKCE/consent flow that first produces the cached token is out of
// scope; the server only ever refreshes an existing grant.
type AuthConfig struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	TokenCache   string `koanf:"token_cache"` // defaults to ~/.gas-mcp/token.json
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

// ServerConfig names the MCP server for the initialize handshake.
type ServerConfig struct {
	Name    string `koanf:"name"`
	Version string `koanf:"version"`
}

// ReposConfig locates the local mirror root.
type ReposConfig struct {
	Root string `koanf:"root"` // <repos-root>/project-<scriptId>/...
}

// GitConfig supplies the fallback git identity used when the user has
// no global git config, per spec.md §4.G.
type GitConfig struct {
	FallbackUserName  string `koanf:"fallback_user_name"`
	FallbackUserEmail string `koanf:"fallback_user_email"`
}

// LockConfig tunes LockManager's bounded wait.
type LockConfig struct {
	TimeoutSeconds int `koanf:"timeout_seconds"`
}

// GasAPIConfig tunes the resilience wrapper around the GasApi external
// contract (spec.md §4.E).
type GasAPIConfig struct {
	MaxAttempts        int `koanf:"max_attempts"`
	CircuitFailureMax  int `koanf:"circuit_failure_max"`
	RequestTimeoutSecs int `koanf:"request_timeout_seconds"`
}

// TelemetryConfig toggles trace-id log correlation.
type TelemetryConfig struct {
	Enabled bool `koanf:"enabled"`
}

// Global koanf instance, mirroring the teacher's single-instance loader.
var k = koanf.New(".")

// Load resolves configuration from defaults, files, and environment
// variables, with no profile layering or CLI overrides.
func Load(path string) (*Config, error) {
	return loadWithOverrides(path, "", nil)
}

// LoadWithProfile resolves configuration with environment-specific
// layering: the base file, then a profile-specific override file
// (config.yaml + config.dev.yaml), merged on top. Profile-specific
// files are optional.
func LoadWithProfile(path, profile string) (*Config, error) {
	return loadWithOverrides(path, profile, nil)
}

// LoadWithCLI resolves configuration and applies CLI overrides.
// Supported flags:
//   - --config=/path/to/gas-mcp.yaml
//   - --profile=dev (or --env=dev)
//   - --set key=value (repeatable)
func LoadWithCLI(args []string) (*Config, error) {
	path, profile, overrides, err := parseCLIOverrides(args)
	if err != nil {
		return nil, err
	}
	return loadWithOverrides(path, profile, overrides)
}

func loadWithOverrides(path, profile string, overrides map[string]any) (*Config, error) {
	k.Set("log.level", "info")
	k.Set("log.format", "text")

	k.Set("server.name", "gas-mcp")
	k.Set("server.version", "0.1.0")

	k.Set("repos.root", defaultReposRoot())

	k.Set("git.fallback_user_name", "gas-mcp")
	k.Set("git.fallback_user_email", "gas-mcp@localhost")

	k.Set("lock.timeout_seconds", 30)

	k.Set("gasapi.max_attempts", 3)
	k.Set("gasapi.circuit_failure_max", 5)
	k.Set("gasapi.request_timeout_seconds", 60)

	k.Set("telemetry.enabled", false)

	configPath := path
	if configPath == "" {
		configPath = defaultConfigPath()
	}
	if configPath != "" {
		if err := loadFromFile(configPath); err != nil {
			return nil, err
		}
	}

	if profile != "" && configPath != "" {
		if profilePath := profileConfigPath(configPath, profile); profilePath != "" {
			if err := loadFromFile(profilePath); err != nil {
				return nil, err
			}
		}
	}

	if err := k.Load(env.Provider("GASMCP_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "GASMCP_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	for key, value := range overrides {
		_ = k.Set(key, value)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func parseCLIOverrides(args []string) (string, string, map[string]any, error) {
	overrides := make(map[string]any)
	var path, profile string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		switch {
		case arg == "--config":
			if i+1 >= len(args) {
				return "", "", nil, fmt.Errorf("missing value for --config")
			}
			path = args[i+1]
			i++
		case strings.HasPrefix(arg, "--config="):
			path = strings.TrimPrefix(arg, "--config=")
		case arg == "--profile" || arg == "--env":
			if i+1 >= len(args) {
				return "", "", nil, fmt.Errorf("missing value for %s", arg)
			}
			profile = args[i+1]
			i++
		case strings.HasPrefix(arg, "--profile="):
			profile = strings.TrimPrefix(arg, "--profile=")
		case strings.HasPrefix(arg, "--env="):
			profile = strings.TrimPrefix(arg, "--env=")
		case arg == "--set":
			if i+1 >= len(args) {
				return "", "", nil, fmt.Errorf("missing value for --set")
			}
			key, value, err := parseKeyValue(args[i+1])
			if err != nil {
				return "", "", nil, err
			}
			overrides[key] = value
			i++
		case strings.HasPrefix(arg, "--set="):
			key, value, err := parseKeyValue(strings.TrimPrefix(arg, "--set="))
			if err != nil {
				return "", "", nil, err
			}
			overrides[key] = value
		}
	}
	return path, profile, overrides, nil
}

func parseKeyValue(raw string) (string, any, error) {
	parts := strings.SplitN(raw, "=", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("invalid --set value %q (expected key=value)", raw)
	}
	key := strings.TrimSpace(parts[0])
	if key == "" {
		return "", nil, fmt.Errorf("invalid --set key in %q", raw)
	}
	return key, parseOverrideValue(strings.TrimSpace(parts[1])), nil
}

func parseOverrideValue(raw string) any {
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "{") || strings.HasPrefix(raw, "[") || strings.HasPrefix(raw, "\"") {
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err == nil {
			return value
		}
	}
	if value, err := strconv.ParseBool(raw); err == nil {
		return value
	}
	if value, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return value
	}
	if value, err := strconv.ParseFloat(raw, 64); err == nil {
		return value
	}
	return raw
}

func loadFromFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	return k.Load(file.Provider(path), yaml.Parser())
}

func defaultConfigPath() string {
	candidates := []string{filepath.Join(".gas-mcp", "config.yaml")}
	if homeDir, err := os.UserHomeDir(); err == nil && homeDir != "" {
		candidates = append(candidates, filepath.Join(homeDir, ".gas-mcp", "config.yaml"))
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, "gas-mcp", "config.yaml"))
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// profileConfigPath returns the path to a profile-specific config file
// ("config.yaml" + "dev" -> "config.dev.yaml"), or "" if it doesn't exist.
func profileConfigPath(basePath, profile string) string {
	if basePath == "" || profile == "" {
		return ""
	}
	dir := filepath.Dir(basePath)
	base := filepath.Base(basePath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)

	profilePath := filepath.Join(dir, name+"."+profile+ext)
	if _, err := os.Stat(profilePath); err == nil {
		return profilePath
	}
	return ""
}

func defaultReposRoot() string {
	if homeDir, err := os.UserHomeDir(); err == nil && homeDir != "" {
		return filepath.Join(homeDir, ".gas-mcp", "repos")
	}
	return filepath.Join(os.TempDir(), "gas-mcp-repos")
}
