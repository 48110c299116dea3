// Package lock provides the per-project exclusive write lock every
// remote-mutating operation takes before touching LocalMirror or GasApi.
// Reads never lock; deployment operations share the same lock as writes.
package lock

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"github.com/gas-mcp/gas-mcp-server/internal/errors"
)

// State describes the current lock holder, written alongside the flock
// file so a timed-out waiter can report who's holding it.
type State struct {
	PID         int    `json:"pid"`
	StartedAtMs int64  `json:"startedAtMs"`
	Tool        string `json:"tool"`
	Operation   string `json:"operation"`
}

// Manager acquires and releases the exclusive lock for a project's
// scriptId under reposRoot.
type Manager struct {
	reposRoot string
	timeout   time.Duration
}

// NewManager builds a Manager with the given bounded-wait timeout
// (spec.md default: 30s).
func NewManager(reposRoot string, timeout time.Duration) *Manager {
	return &Manager{reposRoot: reposRoot, timeout: timeout}
}

func (m *Manager) projectDir(scriptID string) string {
	return filepath.Join(m.reposRoot, "project-"+scriptID)
}

func (m *Manager) lockPath(scriptID string) string {
	return filepath.Join(m.projectDir(scriptID), ".lock")
}

func (m *Manager) statePath(scriptID string) string {
	return filepath.Join(m.projectDir(scriptID), ".lock.state")
}

// WithLock runs fn while holding scriptId's exclusive lock. It waits up
// to the configured timeout for a live holder to release; a holder whose
// PID is no longer running is treated as stale and taken over
// immediately regardless of age.
func (m *Manager) WithLock(ctx context.Context, scriptID, tool, operation string, fn func() error) error {
	dir := m.projectDir(scriptID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.New(errors.CodeInternal, "creating project directory for lock", err)
	}

	fl := flock.New(m.lockPath(scriptID))

	deadline := time.Now().Add(m.timeout)
	for {
		locked, err := fl.TryLock()
		if err != nil {
			return errors.New(errors.CodeInternal, "acquiring lock", err).WithContext("scriptId", scriptID)
		}
		if locked {
			break
		}

		if holder, ok := m.readState(scriptID); ok && !isProcessAlive(holder.PID) {
			// Stale holder: its process is gone. flock itself would have
			// released automatically in this case, but a concurrent
			// waiter may still observe the stale state file; clear it
			// and retry immediately rather than waiting out the timeout.
			_ = os.Remove(m.statePath(scriptID))
			continue
		}

		if time.Now().After(deadline) {
			holder, _ := m.readState(scriptID)
			return m.timeoutError(scriptID, holder)
		}

		select {
		case <-ctx.Done():
			return errors.New(errors.CodeTransient, "lock wait canceled", ctx.Err()).WithContext("scriptId", scriptID)
		case <-time.After(50 * time.Millisecond):
		}
	}

	defer func() {
		_ = os.Remove(m.statePath(scriptID))
		_ = fl.Unlock()
	}()

	if err := m.writeState(scriptID, State{
		PID:         os.Getpid(),
		StartedAtMs: time.Now().UnixMilli(),
		Tool:        tool,
		Operation:   operation,
	}); err != nil {
		return err
	}

	return fn()
}

func (m *Manager) timeoutError(scriptID string, holder State) error {
	err := errors.New(errors.CodeLockTimeout, "lock holder did not release in time", nil).
		WithContext("scriptId", scriptID)
	if holder.PID != 0 {
		err = err.WithContext("holderPid", holder.PID).
			WithContext("holderTool", holder.Tool).
			WithContext("holderOperation", holder.Operation)
	}
	return err
}

func (m *Manager) writeState(scriptID string, state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return errors.New(errors.CodeInternal, "marshaling lock state", err)
	}
	if err := os.WriteFile(m.statePath(scriptID), data, 0o644); err != nil {
		return errors.New(errors.CodeInternal, "writing lock state", err)
	}
	return nil
}

func (m *Manager) readState(scriptID string) (State, bool) {
	data, err := os.ReadFile(m.statePath(scriptID))
	if err != nil {
		return State{}, false
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, false
	}
	return state, true
}

// isProcessAlive reports whether pid refers to a live process, using the
// null-signal probe: Kill with signal 0 checks existence and permission
// without actually sending a signal.
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	return err == nil
}
