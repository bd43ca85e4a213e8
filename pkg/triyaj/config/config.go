// Package config loads the engine configuration from a YAML file. A missing
// file is not an error: every field has a default so the engine can start
// with nothing but a catalog directory.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/triyaj/pkg/triyaj/internalerr"
	"github.com/cognicore/triyaj/pkg/triyaj/policy"
)

// Config is the engine configuration.
type Config struct {
	CatalogDir     string `yaml:"catalog_dir"`
	FacilitiesPath string `yaml:"facilities_path"`
	Policy         Policy `yaml:"policy"`
	Log            Log    `yaml:"log"`
}

// Policy holds the stop-policy overrides. Zero values leave the catalog and
// the built-in defaults in charge; the two booleans default to true when
// absent, which is why they are pointers.
type Policy struct {
	MaxQuestions            int     `yaml:"max_questions"`
	MinExpectedGain         float64 `yaml:"min_expected_gain"`
	HighConfidenceThreshold float64 `yaml:"high_confidence_threshold"`
	AllowSameDayToContinue  *bool   `yaml:"allow_same_day_to_continue"`
	DeniedRemovesKnown      *bool   `yaml:"denied_removes_known"`
}

// Log configures console and file logging for the binaries.
type Log struct {
	Verbose bool   `yaml:"verbose"`
	Folder  string `yaml:"folder"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{CatalogDir: "data"}
}

// Load reads the YAML configuration at path. An empty path or a missing file
// yields Default(); malformed YAML is an ErrInvalidConfig.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("config %s: %w: %v", path, internalerr.ErrInvalidConfig, err)
	}
	return cfg, nil
}

// SameDayContinues reports whether a same-day hit keeps the session going
// instead of ending it with a SAME_DAY envelope.
func (p Policy) SameDayContinues() bool {
	return p.AllowSameDayToContinue == nil || *p.AllowSameDayToContinue
}

// DeniedRemoves reports whether denying a symptom drops an earlier
// confirmation of it.
func (p Policy) DeniedRemoves() bool {
	return p.DeniedRemovesKnown == nil || *p.DeniedRemovesKnown
}

// Options maps the overrides onto the stop policy's knobs, keeping the
// defaults where nothing was set.
func (p Policy) Options() policy.Options {
	opts := policy.DefaultOptions()
	if p.MaxQuestions > 0 {
		opts.MaxQuestionsOverride = p.MaxQuestions
	}
	if p.MinExpectedGain > 0 {
		opts.MinExpectedGain = p.MinExpectedGain
	}
	if p.HighConfidenceThreshold > 0 {
		opts.HighConfidenceThreshold = p.HighConfidenceThreshold
	}
	return opts
}
