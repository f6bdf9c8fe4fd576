package bundle

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Metadata is the optional YAML file shipped next to a bundle inside a
// container image. Its known keys override the bundle; other keys are kept.
type Metadata struct {
	Columns             []string       `yaml:"columns,omitempty"`
	Outcomes            []any          `yaml:"outcomes,omitempty"`
	SupportsSoftScoring *bool          `yaml:"supports_soft_scoring,omitempty"`
	Extra               map[string]any `yaml:",inline"`
}

// LoadMetadata reads path. A missing file yields empty metadata.
func LoadMetadata(path string) (Metadata, error) {
	var md Metadata
	if path == "" {
		return md, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return md, nil
	}
	if err != nil {
		return md, err
	}
	if err := yaml.Unmarshal(b, &md); err != nil {
		return md, fmt.Errorf("decode metadata: %w", err)
	}
	return md, nil
}

// Apply overlays md on b.
func (md Metadata) Apply(b *Bundle) {
	if len(md.Columns) > 0 {
		b.Columns = md.Columns
	}
	if len(md.Outcomes) > 0 {
		b.Outcomes = md.Outcomes
	}
	if md.SupportsSoftScoring != nil {
		b.SupportsSoftScores = *md.SupportsSoftScoring
	}
	if len(md.Extra) > 0 {
		if b.Metadata == nil {
			b.Metadata = make(map[string]any, len(md.Extra))
		}
		for k, v := range md.Extra {
			b.Metadata[k] = v
		}
	}
}
