package config

import "time"

// CoalesceConfig represents the coalesce configuration file structure
type CoalesceConfig struct {
	// Defaults contains default settings for runs
	Defaults DefaultsConfig `yaml:"defaults,omitempty" json:"defaults,omitempty" mapstructure:"defaults"`

	// Sections maps section names to their configuration
	Sections map[string]SectionConfig `yaml:"sections,omitempty" json:"sections,omitempty" mapstructure:"sections"`
}

// DefaultsConfig contains default configuration values
type DefaultsConfig struct {
	// Jobs is the maximum number of workers per section
	Jobs int `yaml:"jobs,omitempty" json:"jobs,omitempty" mapstructure:"jobs"`

	// PollInterval bounds each wait on the control channel
	PollInterval time.Duration `yaml:"pollInterval,omitempty" json:"pollInterval,omitempty" mapstructure:"pollInterval"`

	// Timeout bounds a whole run
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty" mapstructure:"timeout"`

	// OutputFormat is the default output format (table, json, yaml, toml)
	OutputFormat string `yaml:"outputFormat,omitempty" json:"outputFormat,omitempty" mapstructure:"outputFormat"`

	// NoColor disables colored output
	NoColor bool `yaml:"noColor,omitempty" json:"noColor,omitempty" mapstructure:"noColor"`
}

// SectionConfig describes one named group of files and the checks run on them
type SectionConfig struct {
	// Root is the directory file patterns are resolved against
	Root string `yaml:"root,omitempty" json:"root,omitempty" mapstructure:"root"`

	// Files are glob patterns selecting the files to analyse; ** matches any depth
	Files []string `yaml:"files,omitempty" json:"files,omitempty" mapstructure:"files"`

	// Ignore are glob patterns removed from the selection
	Ignore []string `yaml:"ignore,omitempty" json:"ignore,omitempty" mapstructure:"ignore"`

	// Settings are passed to every check in the section
	Settings map[string]interface{} `yaml:"settings,omitempty" json:"settings,omitempty" mapstructure:"settings"`

	// Checks are the analysis tasks of the section
	Checks []CheckConfig `yaml:"checks,omitempty" json:"checks,omitempty" mapstructure:"checks"`

	// Disabled sections are skipped unless requested by name
	Disabled bool `yaml:"disabled,omitempty" json:"disabled,omitempty" mapstructure:"disabled"`
}

// CheckConfig configures one check within a section
type CheckConfig struct {
	// Name identifies the check in results; defaults to Kind
	Name string `yaml:"name,omitempty" json:"name,omitempty" mapstructure:"name"`

	// Kind selects the check implementation
	Kind string `yaml:"kind" json:"kind" mapstructure:"kind"`

	// Settings are decoded into the kind's options
	Settings map[string]interface{} `yaml:"settings,omitempty" json:"settings,omitempty" mapstructure:"settings"`
}

// SectionInfo summarises a configured section for listings
type SectionInfo struct {
	Name     string   `json:"name" yaml:"name" toml:"name"`
	Root     string   `json:"root" yaml:"root" toml:"root"`
	Files    []string `json:"files" yaml:"files" toml:"files"`
	Checks   []string `json:"checks" yaml:"checks" toml:"checks"`
	Disabled bool     `json:"disabled,omitempty" yaml:"disabled,omitempty" toml:"disabled,omitempty"`
}
