package deploy

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/gas-mcp/gas-mcp-server/internal/errors"
)

const stateFileName = ".deploy-state.json"

// deployState is the manager's local memory of rollback targets and the
// commit staging was last promoted at, persisted alongside the project's
// mirror directory so it survives process restarts.
type deployState struct {
	PriorStagingVersion   int64  `json:"priorStagingVersion,omitempty"`
	PriorProdVersion      int64  `json:"priorProdVersion,omitempty"`
	StagingPromotedCommit string `json:"stagingPromotedCommit,omitempty"`
}

func statePath(reposRoot, scriptID string) string {
	return filepath.Join(reposRoot, "project-"+scriptID, stateFileName)
}

func loadState(reposRoot, scriptID string) (deployState, error) {
	data, err := os.ReadFile(statePath(reposRoot, scriptID))
	if err != nil {
		if os.IsNotExist(err) {
			return deployState{}, nil
		}
		return deployState{}, errors.New(errors.CodeInternal, "reading deploy state", err)
	}
	var s deployState
	if err := json.Unmarshal(data, &s); err != nil {
		return deployState{}, errors.New(errors.CodeInternal, "parsing deploy state", err)
	}
	return s, nil
}

func saveState(reposRoot, scriptID string, s deployState) error {
	dir := filepath.Join(reposRoot, "project-"+scriptID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.New(errors.CodeInternal, "creating project directory for deploy state", err)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return errors.New(errors.CodeInternal, "marshaling deploy state", err)
	}
	if err := os.WriteFile(statePath(reposRoot, scriptID), data, 0o644); err != nil {
		return errors.New(errors.CodeInternal, "writing deploy state", err)
	}
	return nil
}
