// Copyright the ctuscan authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/ctuscan/ctuscan/internal/funcutil"
	"gopkg.in/yaml.v3"
)

var (
	// The global config file
	configFile string
)

// SetGlobalConfig sets the global config filename
func SetGlobalConfig(filename string) {
	configFile = filename
}

// LoadGlobal loads the config file that has been set by SetGlobalConfig
func LoadGlobal() (*Config, error) {
	return Load(configFile)
}

// Config is the analyzer configuration.
// If some field is not defined in the config file, it will be empty/zero in the
// struct. Private fields are not populated from a yaml file, but computed after
// initialization.
type Config struct {
	Options `yaml:",inline"`

	sourceFile string

	// Checkers is the set of enabled detectors. Empty enables every
	// registered detector.
	Checkers []string `yaml:"checkers"`

	// Severities is the set of enabled diagnostic severities. Empty enables
	// only errors.
	Severities []string `yaml:"severities"`
}

// Options holds the scalar tuning knobs of the analyzer.
type Options struct {
	// BuildDir is the directory holding the incremental analysis cache.
	// Empty disables caching.
	BuildDir string `yaml:"build-dir"`

	// Jobs is the number of files checked in parallel. Zero or negative
	// means one worker per available CPU.
	Jobs int `yaml:"jobs"`

	// MaxCtuDepth limits the number of pass-through hops followed by the
	// whole-program path search. Values <= 0 fall back to the default; the
	// hard ceiling MaxCtuDepthLimit always applies.
	MaxCtuDepth int `yaml:"max-ctu-depth"`

	// UserDefines are the preprocessor defines in effect. They participate
	// in the cache checksum.
	UserDefines string `yaml:"defines"`

	// Inconclusive allows low-confidence facts to participate in the
	// whole-program path search.
	Inconclusive bool `yaml:"inconclusive"`

	// LogLevel controls the verbosity of the tool.
	LogLevel int `yaml:"log-level"`

	// SilenceWarn suppresses warning output.
	SilenceWarn bool `yaml:"silence-warn"`
}

// NewDefault returns the default configuration.
func NewDefault() *Config {
	return &Config{
		sourceFile: "",
		Checkers:   nil,
		Severities: nil,
		Options: Options{
			BuildDir:     "",
			Jobs:         0,
			MaxCtuDepth:  DefaultMaxCtuDepth,
			UserDefines:  "",
			Inconclusive: false,
			LogLevel:     int(InfoLevel),
			SilenceWarn:  false,
		},
	}
}

// Load reads a configuration from a yaml file.
func Load(filename string) (*Config, error) {
	cfg := NewDefault()
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file: %w", err)
	}

	cfg.sourceFile = filename

	// If the log level has not been specified (i.e. it is 0) set the default
	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}

	if cfg.MaxCtuDepth <= 0 {
		cfg.MaxCtuDepth = DefaultMaxCtuDepth
	}
	if cfg.MaxCtuDepth > MaxCtuDepthLimit {
		cfg.MaxCtuDepth = MaxCtuDepthLimit
	}

	cfg.Checkers = funcutil.Map(cfg.Checkers, strings.TrimSpace)
	cfg.Severities = funcutil.Map(cfg.Severities, strings.TrimSpace)

	return cfg, nil
}

// RelPath returns filename path relative to the config source file
func (c Config) RelPath(filename string) string {
	return path.Join(path.Dir(c.sourceFile), filename)
}

// CheckerEnabled returns true if the named detector is enabled. An empty
// checker list enables everything.
func (c Config) CheckerEnabled(name string) bool {
	if len(c.Checkers) == 0 {
		return true
	}
	return funcutil.Contains(c.Checkers, name)
}

// SeverityEnabled returns true if diagnostics of the given severity should be
// reported. Errors are always enabled.
func (c Config) SeverityEnabled(severity string) bool {
	if severity == "error" {
		return true
	}
	return funcutil.Contains(c.Severities, severity)
}

// Verbose returns true if the configured verbosity is larger than Info
// (i.e. Debug or Trace).
func (c Config) Verbose() bool {
	return c.LogLevel >= int(DebugLevel)
}

// ExceedsCtuDepth returns true if the input depth exceeds the configured
// maximum search depth or the hard ceiling.
func (c Config) ExceedsCtuDepth(d int) bool {
	max := c.MaxCtuDepth
	if max <= 0 {
		max = DefaultMaxCtuDepth
	}
	if max > MaxCtuDepthLimit {
		max = MaxCtuDepthLimit
	}
	return d >= max
}

// ToolInfo returns the effective tool configuration string. It participates in
// the per-file cache checksum so that a configuration change invalidates every
// cached result.
func (c Config) ToolInfo() string {
	sevs := append([]string(nil), c.Severities...)
	sort.Strings(sevs)
	checkers := append([]string(nil), c.Checkers...)
	sort.Strings(checkers)
	return fmt.Sprintf("%s|%s|%s|%v|%s",
		Version, strings.Join(sevs, ","), strings.Join(checkers, ","), c.Inconclusive, c.UserDefines)
}
