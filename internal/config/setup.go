package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/arunsoman/match-magic/internal/model"
	"github.com/arunsoman/match-magic/internal/transform"
)

// SetupVersion is the current setup-document schema version.
const SetupVersion = 1

// Setup is the persisted reconciliation document: everything needed to
// reproduce a run except the input rows. JSON is the canonical encoding;
// YAML is accepted as an alternate.
type Setup struct {
	Version           int                    `json:"version" yaml:"version"`
	Mappings          []model.ColumnMapping  `json:"mappings" yaml:"mappings"`
	VirtualFields     []model.VirtualField   `json:"virtualFields,omitempty" yaml:"virtualFields,omitempty"`
	Transformations   []model.Pipeline       `json:"transformations,omitempty" yaml:"transformations,omitempty"`
	SortConfiguration model.ReconcileConfig  `json:"sortConfiguration" yaml:"sortConfiguration"`
}

// LoadSetup reads a setup document, selecting the codec by file extension.
func LoadSetup(path string) (*Setup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read setup %s", path)
	}

	var s Setup
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, eris.Wrapf(err, "config: parse setup %s", path)
		}
	default:
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, eris.Wrapf(err, "config: parse setup %s", path)
		}
	}

	s.SortConfiguration.Normalize()
	return &s, nil
}

// ParseSetup decodes a JSON setup document from memory.
func ParseSetup(data []byte) (*Setup, error) {
	var s Setup
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, eris.Wrap(err, "config: parse setup")
	}
	s.SortConfiguration.Normalize()
	return &s, nil
}

// Save writes the document as indented JSON.
func (s *Setup) Save(path string) error {
	if s.Version == 0 {
		s.Version = SetupVersion
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return eris.Wrap(err, "config: marshal setup")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return eris.Wrapf(err, "config: write setup %s", path)
	}
	return nil
}

// Validate checks the document invariants that do not depend on row data:
// mapping shapes, virtual-field arity and operations, and step schemas.
func (s *Setup) Validate() error {
	if s.Version > SetupVersion {
		return eris.Errorf("config: setup version %d is newer than supported %d", s.Version, SetupVersion)
	}
	if len(s.Mappings) == 0 {
		return eris.New("config: setup has no column mappings")
	}

	ids := make(map[string]bool, len(s.Mappings))
	for _, m := range s.Mappings {
		if err := m.Validate(); err != nil {
			return err
		}
		if m.ID != "" && ids[m.ID] {
			return eris.Errorf("config: duplicate mapping id %q", m.ID)
		}
		ids[m.ID] = true
	}

	for _, vf := range s.VirtualFields {
		if err := vf.Validate(); err != nil {
			return err
		}
	}

	for _, pl := range s.Transformations {
		if err := transform.ValidatePipeline(pl); err != nil {
			return err
		}
	}

	if err := s.SortConfiguration.Validate(); err != nil {
		return err
	}
	return nil
}
