package strategy

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/gas-mcp/gas-mcp-server/internal/errors"
	"github.com/gas-mcp/gas-mcp-server/internal/gasapi"
	"github.com/gas-mcp/gas-mcp-server/internal/pathresolver"
	"github.com/gas-mcp/gas-mcp-server/internal/wrapper"
)

const defaultSimilarityThreshold = 0.8

// AiderEdit is one fuzzy find/replace request in a batch.
type AiderEdit struct {
	SearchText          string
	ReplaceText         string
	SimilarityThreshold float64 // 0 means defaultSimilarityThreshold
}

// Aider performs fuzzy find/replace: each edit's SearchText is matched
// against a sliding window of the file, scored by normalized Levenshtein
// similarity, rather than requiring an exact substring. All matches are
// computed against the original content before any edit is applied, so
// edits are independent of one another; overlapping matches reject the
// whole batch, and any unmatched edit fails the whole batch (no partial
// apply).
type Aider struct {
	Client        gasapi.Client
	ScriptID      string
	Path          string
	Edits         []AiderEdit
	ModuleOptions *wrapper.ModuleOptions
	ChangeReason  string

	name         string
	resolvedType pathresolver.FileType
	resolvedOpts wrapper.ModuleOptions
	prior        PriorFile
}

type aiderMatch struct {
	start, end int
	edit       AiderEdit
}

func (a *Aider) ComputeChanges(ctx context.Context) (*Plan, error) {
	name, _, err := pathresolver.LocalToGas(a.Path)
	if err != nil {
		return nil, err
	}
	a.name = name

	files, err := a.Client.ListContent(ctx, a.ScriptID)
	if err != nil {
		return nil, err
	}
	existing, found := findFile(files, name)
	if !found {
		return nil, errors.New(errors.CodeNotFound, "aider: file not found", nil).WithContext("path", a.Path)
	}

	content, opts := unwrapIfServerJS(existing.Source, existing.Type)
	a.resolvedType = existing.Type
	a.prior = PriorFile{Existed: true, Content: []byte(content), FileType: existing.Type, ModuleOptions: opts}
	a.resolvedOpts = opts
	if a.ModuleOptions != nil {
		a.resolvedOpts = *a.ModuleOptions
	}

	matches := make([]aiderMatch, 0, len(a.Edits))
	for _, edit := range a.Edits {
		m, ok := findBestWindow(content, edit)
		if !ok {
			return nil, errors.New(errors.CodeValidation, "aider: no sufficiently similar match found", nil).
				WithContext("path", a.Path).WithContext("searchText", edit.SearchText)
		}
		matches = append(matches, m)
	}

	if err := rejectOverlaps(matches); err != nil {
		return nil, err
	}

	// Apply in descending-position order so earlier offsets stay valid.
	sort.Slice(matches, func(i, j int) bool { return matches[i].start > matches[j].start })
	newContent := content
	for _, m := range matches {
		newContent = newContent[:m.start] + m.edit.ReplaceText + newContent[m.end:]
	}

	return &Plan{
		AffectedFiles:    []string{a.Path},
		ProposedContents: map[string][]byte{a.Path: []byte(newContent)},
		PriorFiles:       map[string]PriorFile{a.Path: a.prior},
	}, nil
}

func (a *Aider) ApplyChanges(ctx context.Context, canonical map[string][]byte) error {
	content, err := wrapIfServerJS(string(canonical[a.Path]), a.name, a.resolvedType, a.resolvedOpts)
	if err != nil {
		return err
	}
	_, err = a.Client.UpdateFile(ctx, a.ScriptID, gasapi.File{
		Name:   a.name,
		Type:   a.resolvedType,
		Source: content,
	}, -1)
	return err
}

func (a *Aider) Rollback(ctx context.Context) error {
	content, err := wrapIfServerJS(string(a.prior.Content), a.name, a.prior.FileType, a.prior.ModuleOptions)
	if err != nil {
		return err
	}
	_, err = a.Client.UpdateFile(ctx, a.ScriptID, gasapi.File{
		Name:   a.name,
		Type:   a.prior.FileType,
		Source: content,
	}, -1)
	return err
}

func (a *Aider) Describe() Description {
	return Description{Type: "aider", CommitMessage: a.ChangeReason}
}

// findBestWindow slides a window of [0.6*len(search), 1.4*len(search)]
// characters across content, scoring each window's normalized similarity
// to edit.SearchText, and keeps the best candidate above threshold.
func findBestWindow(content string, edit AiderEdit) (aiderMatch, bool) {
	threshold := edit.SimilarityThreshold
	if threshold <= 0 {
		threshold = defaultSimilarityThreshold
	}

	searchLen := len(edit.SearchText)
	if searchLen == 0 {
		return aiderMatch{}, false
	}
	minLen := maxInt(1, int(0.6*float64(searchLen)))
	maxLen := int(1.4*float64(searchLen)) + 1
	if maxLen > len(content) {
		maxLen = len(content)
	}

	normalizedSearch := normalizeForMatch(edit.SearchText)

	best := aiderMatch{}
	bestScore := -1.0
	found := false

	for wlen := minLen; wlen <= maxLen; wlen++ {
		if wlen <= 0 || wlen > len(content) {
			continue
		}
		for start := 0; start+wlen <= len(content); start++ {
			window := content[start : start+wlen]
			score := levenshtein.Match(normalizeForMatch(window), normalizedSearch, nil)
			if score > bestScore {
				bestScore = score
				best = aiderMatch{start: start, end: start + wlen, edit: edit}
				found = true
			}
			if bestScore >= 1.0 {
				break
			}
		}
		if bestScore >= 1.0 {
			break
		}
	}

	if !found || bestScore < threshold {
		return aiderMatch{}, false
	}
	return best, true
}

var whitespaceRunRe = regexp.MustCompile(`[ \t]+`)

// normalizeForMatch collapses whitespace runs, normalizes line endings,
// and trims per-line leading whitespace. This is a known source of false
// positives on indentation-sensitive code (open question: whether to
// preserve relative indentation instead of trimming it entirely).
func normalizeForMatch(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = whitespaceRunRe.ReplaceAllString(strings.TrimLeft(line, " \t"), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func rejectOverlaps(matches []aiderMatch) error {
	sorted := append([]aiderMatch(nil), matches...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].start < sorted[j].start })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].start < sorted[i-1].end {
			return errors.New(errors.CodeValidation, "aider: matched regions overlap", nil).
				WithContext("firstStart", sorted[i-1].start).WithContext("secondStart", sorted[i].start)
		}
	}
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
