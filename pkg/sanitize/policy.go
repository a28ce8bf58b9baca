package sanitize

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy carries extra denylist tokens loaded from a YAML file:
//
//	deny:
//	  - "pickle"
//	  - "base64"
type Policy struct {
	Deny []string `yaml:"deny"`
}

// LoadPolicy reads a policy file. The tokens extend the built-in
// denylist; there is no way to remove built-in tokens.
func LoadPolicy(path string) (Policy, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy file: %w", err)
	}
	var p Policy
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Policy{}, fmt.Errorf("parse policy YAML: %w", err)
	}
	return p, nil
}
