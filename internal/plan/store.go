// internal/plan/store.go
package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// PlanFileName is the artifact name inside the plan directory.
const PlanFileName = "remediation-plan.json"

// Store persists the plan artifact to a local directory. Activities on
// the same worker read it back by path, so a later run can resume from
// a previously built plan.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns where the plan artifact lives.
func (s *Store) Path() string {
	return filepath.Join(s.dir, PlanFileName)
}

// Write persists the plan and returns the artifact path. The write goes
// through a temp file and rename so readers never see a partial plan.
func (s *Store) Write(p *OrgPlan) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create plan directory: %w", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode plan: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, PlanFileName+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp plan file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to write plan: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to close plan file: %w", err)
	}

	path := s.Path()
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to publish plan: %w", err)
	}
	return path, nil
}

// Read loads a plan artifact from path.
func (s *Store) Read(path string) (*OrgPlan, error) {
	if path == "" {
		path = s.Path()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}

	var p OrgPlan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode plan file %s: %w", path, err)
	}
	return &p, nil
}
