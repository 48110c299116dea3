package mirror

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/gas-mcp/gas-mcp-server/internal/errors"
)

const ledgerFileName = ".mcp-ledger.json"

// Ledger tracks every relative path ever written to a mirror, independent
// of whether its xattr/mtime metadata stamp succeeded. Registering a path
// here happens before the write it describes, so a crash between the
// write and the metadata stamp still leaves the file visible to rsync
// and ls instead of silently orphaned (spec's first-sync hazard).
type Ledger struct {
	mu   sync.Mutex
	path string
	set  map[string]struct{}
}

type ledgerFile struct {
	Paths []string `json:"paths"`
}

// OpenLedger loads dir's ledger file, starting from an empty in-memory
// ledger if the file is absent (nothing is written until the first change).
func OpenLedger(dir string) (*Ledger, error) {
	path := filepath.Join(dir, ledgerFileName)
	l := &Ledger{path: path, set: make(map[string]struct{})}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, errors.New(errors.CodeInternal, "reading mirror ledger", err)
	}

	var lf ledgerFile
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil, errors.New(errors.CodeInternal, "parsing mirror ledger", err)
	}
	for _, p := range lf.Paths {
		l.set[p] = struct{}{}
	}
	return l, nil
}

// Track registers relPath in the ledger, persisting before the caller
// proceeds to write the file's bytes.
func (l *Ledger) Track(relPath string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.set[relPath]; exists {
		return nil
	}
	l.set[relPath] = struct{}{}
	return l.persistLocked()
}

// Untrack removes relPath from the ledger, e.g. after a successful delete.
func (l *Ledger) Untrack(relPath string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.set[relPath]; !exists {
		return nil
	}
	delete(l.set, relPath)
	return l.persistLocked()
}

// Paths returns every tracked relative path.
func (l *Ledger) Paths() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	paths := make([]string, 0, len(l.set))
	for p := range l.set {
		paths = append(paths, p)
	}
	return paths
}

func (l *Ledger) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return errors.New(errors.CodeInternal, "creating mirror directory", err)
	}
	paths := make([]string, 0, len(l.set))
	for p := range l.set {
		paths = append(paths, p)
	}
	data, err := json.Marshal(ledgerFile{Paths: paths})
	if err != nil {
		return errors.New(errors.CodeInternal, "marshaling mirror ledger", err)
	}
	return atomicWriteFile(l.path, data)
}
