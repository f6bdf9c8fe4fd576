package manager

import (
	"fmt"

	"predictd/internal/bundle"
	"predictd/pkg/types"
)

// ServicesFromDir declares one bundle service per bundle file in dir, each at
// /<file name>/predict. metadataPath, if set, is applied to all of them.
func ServicesFromDir(dir, metadataPath string) ([]ServiceSpec, error) {
	entries, err := bundle.Scan(dir)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no bundles in %s", dir)
	}
	out := make([]ServiceSpec, 0, len(entries))
	for _, e := range entries {
		out = append(out, ServiceSpec{
			ID:           e.ID,
			Kind:         types.KindBundle,
			Source:       e.Path,
			MetadataPath: metadataPath,
		})
	}
	return out, nil
}
