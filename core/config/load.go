package config

import (
	"fmt"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// Load reads and validates the configuration at path. Unknown keys are
// rejected so typos surface instead of silently reverting to defaults.
func Load(fs afero.Fs, path string) (*Configuration, error) {
	contents, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}

	out := Default()
	if err := yaml.UnmarshalStrict(contents, out); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	return out, nil
}
