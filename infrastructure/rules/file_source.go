// Package rules provides file-backed rule storage for deployments that manage
// the scoring ruleset as configuration rather than through the admin API.
package rules

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/cellango/SecurityApps/domain/entity"
	"github.com/cellango/SecurityApps/shared/common"
)

// FileSource reads and writes the ruleset as a JSON document on disk. A
// missing file yields the built-in default ruleset so a fresh deployment
// scores sensibly before any rules are authored.
type FileSource struct {
	path string
	mu   sync.Mutex
}

// NewFileSource creates a file-backed rule source
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

type ruleFile struct {
	Rules []entity.Rule `json:"rules"`
}

// Load returns the rules from the backing file, or the default ruleset when
// the file does not exist.
func (s *FileSource) Load(ctx context.Context) ([]entity.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return entity.DefaultRules(), nil
	}
	if err != nil {
		return nil, common.WrapError(err, common.ErrCodeInternal, "reading rule file")
	}

	var doc ruleFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, common.WrapError(err, common.ErrCodeInvalidInput, "parsing rule file")
	}
	return doc.Rules, nil
}

// Save replaces the backing file atomically via a rename. Duplicate ids and
// malformed conditions are rejected before anything touches disk.
func (s *FileSource) Save(ctx context.Context, rules []entity.Rule) error {
	if _, err := entity.NewRuleSet(rules); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(ruleFile{Rules: rules}, "", "  ")
	if err != nil {
		return common.WrapError(err, common.ErrCodeInvalidInput, "encoding rule file")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".rules-*.json")
	if err != nil {
		return common.WrapError(err, common.ErrCodeInternal, "creating rule file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return common.WrapError(err, common.ErrCodeInternal, "writing rule file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return common.WrapError(err, common.ErrCodeInternal, "closing rule file")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return common.WrapError(err, common.ErrCodeInternal, "replacing rule file")
	}
	return nil
}
