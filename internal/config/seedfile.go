// Package config holds the console's file-based configuration: the optional
// YAML bootstrap file consumed by `rims db seed`.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/regionops/rims/internal/model"
)

// SeedFile is the top-level structure of a bootstrap accounts file.
type SeedFile struct {
	Accounts []SeedAccount `yaml:"accounts"`
}

// SeedAccount defines one account to bootstrap into the durable store.
type SeedAccount struct {
	Username string `yaml:"username"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

// LoadSeedFile reads and validates a YAML bootstrap file.
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var sf SeedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	if len(sf.Accounts) == 0 {
		return nil, fmt.Errorf("seed file %s defines no accounts", path)
	}
	for i, a := range sf.Accounts {
		if a.Username == "" || a.Name == "" || a.Password == "" {
			return nil, fmt.Errorf("seed account %d: username, name, and password are required", i)
		}
		if !model.Role(a.Role).Valid() {
			return nil, fmt.Errorf("seed account %d: invalid role %q", i, a.Role)
		}
	}
	return &sf, nil
}
