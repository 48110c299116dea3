// Package githost is a thin, scoped invoker of the local git binary. All
// operations funnel through run(), the single choke point that always
// calls exec.Command with an argv array — never a shell string.
package githost

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gas-mcp/gas-mcp-server/internal/errors"
)

// Host scopes every git invocation to one working directory (a project's
// mirror directory, or a polyrepo subdirectory within it).
type Host struct {
	dir string
}

// New returns a Host scoped to dir. It does not itself touch the
// filesystem; call EnsureRepo to initialize if needed.
func New(dir string) *Host {
	return &Host{dir: dir}
}

var branchNameRe = regexp.MustCompile(`^[A-Za-z0-9._/-]+$`)

// run is the single choke point every other method goes through.
func (h *Host) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = h.dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", errors.New(errors.CodeInternal, "git "+strings.Join(args, " ")+" failed", fmt.Errorf("%s", msg))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// EnsureRepo initializes a git repository at dir if one doesn't already
// exist, sets user.name/user.email (from global config or the supplied
// fallback), and creates an initial empty commit so HEAD resolves.
func (h *Host) EnsureRepo(ctx context.Context, fallbackName, fallbackEmail string) error {
	if _, err := h.run(ctx, "rev-parse", "--git-dir"); err == nil {
		return nil
	}

	if _, err := h.run(ctx, "init"); err != nil {
		return err
	}

	name, email := h.resolveIdentity(ctx, fallbackName, fallbackEmail)
	if _, err := h.run(ctx, "config", "user.name", name); err != nil {
		return err
	}
	if _, err := h.run(ctx, "config", "user.email", email); err != nil {
		return err
	}

	if _, err := h.run(ctx, "commit", "--allow-empty", "-m", "gas-mcp: initial commit"); err != nil {
		return err
	}
	return nil
}

func (h *Host) resolveIdentity(ctx context.Context, fallbackName, fallbackEmail string) (string, string) {
	name, err := h.run(ctx, "config", "--global", "--get", "user.name")
	if err != nil || name == "" {
		name = fallbackName
	}
	email, err := h.run(ctx, "config", "--global", "--get", "user.email")
	if err != nil || email == "" {
		email = fallbackEmail
	}
	return name, email
}

// EnsureFeatureBranch checks out desired (sanitized) from whatever branch
// is currently checked out, creating it if needed; it does not first check
// that the repo is on its default branch. Branch names
// are restricted to a safe whitelist to prevent option injection via a
// leading "-".
func (h *Host) EnsureFeatureBranch(ctx context.Context, desired string) error {
	sanitized := sanitizeBranchName(desired)
	if err := validateBranchName(sanitized); err != nil {
		return err
	}

	current, err := h.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return err
	}
	if current == sanitized {
		return nil
	}

	if _, err := h.run(ctx, "rev-parse", "--verify", sanitized); err == nil {
		_, err := h.run(ctx, "checkout", sanitized)
		return err
	}

	_, err = h.run(ctx, "checkout", "-b", sanitized)
	return err
}

func sanitizeBranchName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '/', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

func validateBranchName(name string) error {
	if name == "" {
		return errors.New(errors.CodeValidation, "branch name is empty after sanitization", nil)
	}
	if strings.HasPrefix(name, "-") {
		return errors.New(errors.CodeValidation, "branch name must not start with '-'", nil).
			WithContext("branch", name)
	}
	if !branchNameRe.MatchString(name) {
		return errors.New(errors.CodeValidation, "branch name contains illegal characters", nil).
			WithContext("branch", name)
	}
	return nil
}

// Add stages the given paths (relative to dir).
func (h *Host) Add(ctx context.Context, paths ...string) error {
	args := append([]string{"add", "--"}, paths...)
	_, err := h.run(ctx, args...)
	return err
}

// Commit creates a commit with message. Hooks execute naturally as part
// of `git commit`.
func (h *Host) Commit(ctx context.Context, message string) error {
	_, err := h.run(ctx, "commit", "-m", message)
	return err
}

// Status returns `git status --porcelain` output.
func (h *Host) Status(ctx context.Context) (string, error) {
	return h.run(ctx, "status", "--porcelain")
}

// ResetHard discards all uncommitted changes.
func (h *Host) ResetHard(ctx context.Context) error {
	_, err := h.run(ctx, "reset", "--hard")
	return err
}

// RevParseHEAD returns the current HEAD commit hash.
func (h *Host) RevParseHEAD(ctx context.Context) (string, error) {
	return h.run(ctx, "rev-parse", "HEAD")
}

// ShowStatHEAD returns `git show --stat HEAD`, used for human-readable
// commit summaries in tool responses.
func (h *Host) ShowStatHEAD(ctx context.Context) (string, error) {
	return h.run(ctx, "show", "--stat", "HEAD")
}

// HooksPath returns the repo's configured core.hooksPath, or the default
// ".git/hooks" if unset.
func (h *Host) HooksPath(ctx context.Context) (string, error) {
	path, err := h.run(ctx, "config", "--get", "core.hooksPath")
	if err != nil || path == "" {
		return ".git/hooks", nil
	}
	return path, nil
}

// HookResult is the outcome of running a named hook script directly,
// outside of a git command that would otherwise trigger it.
type HookResult struct {
	Ran      bool // false when no executable hook script exists
	ExitCode int
	Stderr   string
}

// RunHook executes hookName (e.g. "pre-commit") from the repo's hooks
// directory against the currently staged index, if an executable script
// exists there. GitOperationManager calls this directly in its
// hook-validation step, ahead of the real `git commit` in step 7 — by
// the time `git commit` runs naturally, the hook has already approved
// (or rewritten) the staged content, so it is expected to be a no-op.
func (h *Host) RunHook(ctx context.Context, hookName string) (HookResult, error) {
	hooksDir, err := h.HooksPath(ctx)
	if err != nil {
		return HookResult{}, err
	}
	hookPath := hooksDir
	if !filepath.IsAbs(hookPath) {
		hookPath = filepath.Join(h.dir, hooksDir)
	}
	hookPath = filepath.Join(hookPath, hookName)

	info, err := os.Stat(hookPath)
	if err != nil || info.IsDir() || info.Mode()&0o111 == 0 {
		return HookResult{Ran: false}, nil
	}

	cmd := exec.CommandContext(ctx, hookPath)
	cmd.Dir = h.dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr == nil {
		return HookResult{Ran: true, ExitCode: 0}, nil
	}
	exitErr, ok := runErr.(*exec.ExitError)
	if !ok {
		return HookResult{}, errors.New(errors.CodeInternal, "running "+hookName+" hook", runErr)
	}
	return HookResult{Ran: true, ExitCode: exitErr.ExitCode(), Stderr: strings.TrimSpace(stderr.String())}, nil
}
