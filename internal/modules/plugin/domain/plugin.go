package domain

import (
	"errors"
	"fmt"
)

// ErrIdentifierMismatch reports a dispensed plugin that claims a
// different identifier than its manifest advertised.
var ErrIdentifierMismatch = errors.New("plugin identifier mismatch")

// ManifestFileName is the file the discovery scan looks for in each
// plugin search path entry.
const ManifestFileName = "manager.yaml"

// Manifest describes one discoverable manager plugin binary.
type Manifest struct {
	Identifier  string `yaml:"identifier"`
	DisplayName string `yaml:"display_name"`
	Binary      string `yaml:"binary"`
}

func (m Manifest) Validate() error {
	if m.Identifier == "" {
		return fmt.Errorf("plugin identifier is required")
	}
	if m.Binary == "" {
		return fmt.Errorf("plugin binary path is required")
	}
	return nil
}
