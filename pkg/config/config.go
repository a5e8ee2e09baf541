// Package config loads optional YAML defaults for osmaug's CLI flags
// (spec §6). A defaults file lets an operator pin --verbose/--commit/
// --metrics-addr for repeated runs (e.g. a cron-driven minutely-diff
// importer) without repeating flags on every invocation; explicit CLI
// flags always override a value loaded from file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults holds the subset of CLI flags an operator can pin in a
// defaults file.
type Defaults struct {
	Verbose     bool   `yaml:"verbose"`
	Commit      bool   `yaml:"commit"`
	MetricsAddr string `yaml:"metrics_addr"`
	OutputDir   string `yaml:"output_dir"`
	LogLevel    string `yaml:"log_level"`
	LogJSON     bool   `yaml:"log_json"`
}

// Load reads and parses a YAML defaults file at path. A missing file is
// not an error: it just means no defaults are pinned, and the zero
// Defaults (all flags fall back to their cobra-declared defaults) is
// returned.
func Load(path string) (Defaults, error) {
	var d Defaults
	if path == "" {
		return d, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return d, nil
		}
		return d, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return d, nil
}
