package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/aryankumar/coalesce/internal/util"
)

const (
	defaultConfigName = ".coalesce"
	defaultConfigFile = ".coalesce.yaml"
	envPrefix         = "COALESCE"
)

// Default values applied after loading
const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultTimeout      = 10 * time.Minute
	DefaultOutputFormat = "table"
	DefaultRoot         = "."
)

// DefaultSectionName is the section created when none is configured
const DefaultSectionName = "default"

var envKeyReplacer = strings.NewReplacer(".", "_")

// OutputFormats lists the accepted values of defaults.outputFormat
var OutputFormats = []string{"table", "json", "yaml", "toml"}

// FlagBindings maps persistent CLI flags to configuration keys
var FlagBindings = map[string]string{
	"jobs":          "defaults.jobs",
	"poll-interval": "defaults.pollInterval",
	"timeout":       "defaults.timeout",
	"output":        "defaults.outputFormat",
	"no-color":      "defaults.noColor",
}

// Manager handles coalesce configuration
type Manager struct {
	configPath string
	config     *CoalesceConfig
	viper      *viper.Viper
}

// NewManager creates a new configuration manager.
// An empty path searches the working directory and then $HOME for .coalesce.{yaml,toml,json}.
func NewManager(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
		viper:      viper.New(),
		config:     &CoalesceConfig{},
	}
}

// BindFlags binds the flags named in FlagBindings so that explicitly set
// flags override the file and environment
func (m *Manager) BindFlags(flags *pflag.FlagSet) error {
	for flag, key := range FlagBindings {
		f := flags.Lookup(flag)
		if f == nil {
			continue
		}
		if err := m.viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %q: %w", flag, err)
		}
	}
	return nil
}

// Load loads the configuration from file, environment and bound flags
func (m *Manager) Load() (*CoalesceConfig, error) {
	if m.configPath != "" {
		m.viper.SetConfigFile(m.configPath)
	} else {
		m.viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			m.viper.AddConfigPath(home)
		}
		m.viper.SetConfigName(defaultConfigName)
	}

	// Set environment variable support, e.g. COALESCE_DEFAULTS_JOBS
	m.viper.SetEnvPrefix(envPrefix)
	m.viper.SetEnvKeyReplacer(envKeyReplacer)
	m.viper.AutomaticEnv()
	for _, key := range FlagBindings {
		// AutomaticEnv only covers keys viper already knows about
		m.viper.BindEnv(key)
	}

	m.config = &CoalesceConfig{}

	if err := m.viper.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we'll use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := m.viper.Unmarshal(m.config); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal config: %v", util.ErrInvalidConfig, err)
	}

	m.applyDefaults()

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return m.config, nil
}

// ConfigFileUsed returns the file the configuration was read from, if any
func (m *Manager) ConfigFileUsed() string {
	return m.viper.ConfigFileUsed()
}

// Save writes the current configuration to file
func (m *Manager) Save() error {
	if m.configPath == "" {
		m.configPath = defaultConfigFile
	}

	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	d := m.config.Defaults
	m.viper.Set("defaults.jobs", d.Jobs)
	m.viper.Set("defaults.pollInterval", d.PollInterval.String())
	m.viper.Set("defaults.timeout", d.Timeout.String())
	m.viper.Set("defaults.outputFormat", d.OutputFormat)
	m.viper.Set("defaults.noColor", d.NoColor)
	m.viper.Set("sections", m.config.Sections)

	if err := m.viper.WriteConfigAs(m.configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *CoalesceConfig {
	return m.config
}

// GetSection returns configuration for a named section
func (m *Manager) GetSection(name string) (SectionConfig, bool) {
	section, ok := m.config.Sections[name]
	return section, ok
}

// SetSection sets or replaces a section
func (m *Manager) SetSection(name string, section SectionConfig) {
	if m.config.Sections == nil {
		m.config.Sections = make(map[string]SectionConfig)
	}
	m.config.Sections[name] = section
}

// RemoveSection removes a section
func (m *Manager) RemoveSection(name string) {
	delete(m.config.Sections, name)
}

// SectionNames returns all section names in sorted order
func (m *Manager) SectionNames() []string {
	names := maps.Keys(m.config.Sections)
	slices.Sort(names)
	return names
}

// EnabledSections returns the names of sections that are not disabled, sorted
func (m *Manager) EnabledSections() []string {
	enabled := make([]string, 0, len(m.config.Sections))
	for _, name := range m.SectionNames() {
		if !m.config.Sections[name].Disabled {
			enabled = append(enabled, name)
		}
	}
	return enabled
}

// Resolve returns the sections to run for the requested names.
// No names selects every enabled section; unknown names fail with ErrSectionNotFound.
func (m *Manager) Resolve(names []string) ([]string, error) {
	if len(names) == 0 {
		return m.EnabledSections(), nil
	}

	resolved := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := m.config.Sections[name]; !ok {
			return nil, fmt.Errorf("%w: %q", util.ErrSectionNotFound, name)
		}
		if !seen[name] {
			seen[name] = true
			resolved = append(resolved, name)
		}
	}
	return resolved, nil
}

// Sections returns a listing of all configured sections
func (m *Manager) Sections() []SectionInfo {
	infos := make([]SectionInfo, 0, len(m.config.Sections))
	for _, name := range m.SectionNames() {
		s := m.config.Sections[name]
		checks := make([]string, 0, len(s.Checks))
		for _, c := range s.Checks {
			label := c.Kind
			if c.Name != "" && c.Name != c.Kind {
				label = c.Name + " (" + c.Kind + ")"
			}
			checks = append(checks, label)
		}
		infos = append(infos, SectionInfo{
			Name:     name,
			Root:     s.Root,
			Files:    s.Files,
			Checks:   checks,
			Disabled: s.Disabled,
		})
	}
	return infos
}

// Validate checks the loaded configuration and reports every problem found
func (m *Manager) Validate() error {
	errs := &util.MultiError{}
	d := m.config.Defaults

	if d.Jobs < 1 {
		errs.Add(util.NewValidationError("defaults.jobs", d.Jobs, "must be at least 1"))
	}
	if d.PollInterval <= 0 {
		errs.Add(util.NewValidationError("defaults.pollInterval", d.PollInterval, "must be positive"))
	}
	if d.Timeout < 0 {
		errs.Add(util.NewValidationError("defaults.timeout", d.Timeout, "must not be negative"))
	}
	if !slices.Contains(OutputFormats, d.OutputFormat) {
		errs.Add(util.NewValidationError("defaults.outputFormat", d.OutputFormat, fmt.Sprintf("must be one of %v", OutputFormats)))
	}

	for _, name := range m.SectionNames() {
		s := m.config.Sections[name]
		if len(s.Files) == 0 {
			errs.Add(util.NewValidationError("sections."+name+".files", nil, "at least one pattern is required"))
		}
		for i, c := range s.Checks {
			if c.Kind == "" {
				errs.Add(util.NewValidationError(fmt.Sprintf("sections.%s.checks[%d].kind", name, i), nil, "is required"))
			}
		}
	}

	return errs.ErrorOrNil()
}

// applyDefaults sets default values for configuration
func (m *Manager) applyDefaults() {
	if m.config == nil {
		return
	}

	if m.config.Defaults.Jobs == 0 {
		m.config.Defaults.Jobs = defaultJobs()
	}
	if m.config.Defaults.PollInterval == 0 {
		m.config.Defaults.PollInterval = DefaultPollInterval
	}
	if m.config.Defaults.Timeout == 0 {
		m.config.Defaults.Timeout = DefaultTimeout
	}
	if m.config.Defaults.OutputFormat == "" {
		m.config.Defaults.OutputFormat = DefaultOutputFormat
	}

	for name, section := range m.config.Sections {
		if section.Root == "" {
			section.Root = DefaultRoot
		}
		m.config.Sections[name] = section
	}
}

// defaultJobs uses one worker per CPU, capped to keep external tools from
// overwhelming small machines
func defaultJobs() int {
	n := runtime.NumCPU()
	if n > 8 {
		n = 8
	}
	return n
}

// DefaultSection returns the starter section written by "coalesce init"
func DefaultSection() SectionConfig {
	return SectionConfig{
		Root:   DefaultRoot,
		Files:  []string{"**/*.go"},
		Ignore: []string{"vendor/**", ".git/**"},
		Settings: map[string]interface{}{
			"max_line_length": 120,
		},
		Checks: []CheckConfig{
			{Kind: "line-length"},
			{Kind: "trailing-whitespace"},
			{Name: "todo", Kind: "pattern", Settings: map[string]interface{}{
				"pattern":  `TODO|FIXME`,
				"severity": "info",
			}},
		},
	}
}
