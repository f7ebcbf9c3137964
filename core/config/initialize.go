package config

import (
	"fmt"
	"log"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// Initialize writes a default configuration file at path. It refuses to
// overwrite an existing file.
func Initialize(fs afero.Fs, path string, logger *log.Logger) (*Configuration, error) {
	if exists, err := afero.Exists(fs, path); err != nil {
		return nil, err
	} else if exists {
		return nil, fmt.Errorf("%s already exists, not overwriting", path)
	}

	cfg := Default()
	contents, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	if err := afero.WriteFile(fs, path, contents, 0644); err != nil {
		return nil, err
	}
	logger.Printf("wrote %s", path)
	return cfg, nil
}
