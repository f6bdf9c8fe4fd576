// Package bundle loads and stores model bundles: a model description plus the
// encoder, column names and outcome labels needed to serve it.
package bundle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"predictd/internal/encoder"
	"predictd/internal/model"
)

// Bundle is the on-disk form of a servable model.
type Bundle struct {
	Name        string        `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Model       model.Spec    `json:"model" yaml:"model" toml:"model"`
	Encoder     *encoder.Spec `json:"encoder,omitempty" yaml:"encoder,omitempty" toml:"encoder,omitempty"`

	// Columns are the input column names; when set every row must match their count.
	Columns []string `json:"columns,omitempty" yaml:"columns,omitempty" toml:"columns,omitempty"`
	// Outcomes label the score columns of a soft model.
	Outcomes []any `json:"outcomes,omitempty" yaml:"outcomes,omitempty" toml:"outcomes,omitempty"`
	// Threshold on the second score column for two-label models.
	Threshold *float64 `json:"threshold,omitempty" yaml:"threshold,omitempty" toml:"threshold,omitempty"`

	SupportsSoftScores bool           `json:"supports_soft_scores,omitempty" yaml:"supports_soft_scores,omitempty" toml:"supports_soft_scores,omitempty"`
	TestAccuracy       float64        `json:"test_acc,omitempty" yaml:"test_acc,omitempty" toml:"test_acc,omitempty"`
	CreatedUnix        int64          `json:"created,omitempty" yaml:"created,omitempty" toml:"created,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty" toml:"metadata,omitempty"`
}

// Validate checks the fields every servable bundle needs.
func (b *Bundle) Validate() error {
	if b.Model.Type == "" {
		return fmt.Errorf("bundle: model type is required")
	}
	if b.Threshold != nil && (*b.Threshold < 0 || *b.Threshold > 1) {
		return fmt.Errorf("bundle: threshold %v outside [0,1]", *b.Threshold)
	}
	return nil
}

func isBundleExt(ext string) bool {
	switch strings.ToLower(ext) {
	case ".json", ".yaml", ".yml", ".toml":
		return true
	}
	return false
}

// Load reads a bundle based on its extension.
// Supports: .json, .yaml/.yml, .toml
func Load(path string) (*Bundle, error) {
	if path == "" {
		return nil, fmt.Errorf("empty bundle path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out Bundle
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &out)
	case ".json":
		err = json.Unmarshal(b, &out)
	case ".toml":
		err = toml.Unmarshal(b, &out)
	default:
		return nil, fmt.Errorf("unsupported bundle extension: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

// Save writes b in the format implied by the extension of path.
func Save(path string, b *Bundle) error {
	var (
		data []byte
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(b)
	case ".json":
		data, err = json.MarshalIndent(b, "", "  ")
	case ".toml":
		data, err = toml.Marshal(b)
	default:
		return fmt.Errorf("unsupported bundle extension: %s", ext)
	}
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
