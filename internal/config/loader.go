package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// envPattern matches ${VAR} and ${VAR:-default} expressions.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// Load reads the YAML configuration file at path, substitutes environment
// variables, and decodes it. Secrets like the bot token are expected to
// arrive through ${VAR} references rather than being written into the file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	expanded, missing := expandEnv(raw)
	if len(missing) > 0 {
		return nil, fmt.Errorf("config: %s references unset environment variables: %s",
			path, strings.Join(missing, ", "))
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &cfg, nil
}

// expandEnv substitutes ${VAR} and ${VAR:-default} references and returns
// the names of variables that were unset and carried no default.
func expandEnv(raw []byte) ([]byte, []string) {
	var missing []string

	out := envPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		groups := envPattern.FindSubmatch(match)
		name := string(groups[1])

		if value, ok := os.LookupEnv(name); ok {
			return []byte(value)
		}
		if groups[2] != nil {
			return groups[2]
		}

		missing = append(missing, name)
		return match
	})

	return out, missing
}
