// Package config provides configuration management for the antscope CLI.
//
// Values come from defaults, an antscope.yaml file, ANTSCOPE_ environment variables and
// command line flags, in increasing order of precedence.
package config

import "time"

// CacheConfig bounds the analysis caches.
type CacheConfig struct {
	// IntrospectionSize is the number of class loaders whose definition tables are kept
	IntrospectionSize int `koanf:"introspection_size" yaml:"introspection_size"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	Debounce time.Duration `koanf:"debounce" yaml:"debounce"`
}

// Config holds all CLI configuration options.
type Config struct {
	BuildFile    string            `koanf:"build_file" yaml:"build_file"`
	AntHome      string            `koanf:"ant_home" yaml:"ant_home,omitempty"`
	Classpath    []string          `koanf:"classpath" yaml:"classpath,omitempty"`
	Properties   map[string]string `koanf:"properties" yaml:"properties,omitempty"`
	StatePath    string            `koanf:"state_path" yaml:"state_path"`
	Verbose      bool              `koanf:"verbose" yaml:"verbose,omitempty"`
	OutputFormat string            `koanf:"output" yaml:"output"`
	Cache        CacheConfig       `koanf:"cache" yaml:"cache"`
	Watch        WatchConfig       `koanf:"watch" yaml:"watch"`

	// ProjectRoot is the directory relative paths resolve against
	ProjectRoot string `koanf:"-" yaml:"-"`
}

// Default configuration values.
const (
	DefaultBuildFile         = "build.xml"
	DefaultStateFile         = ".antscope/index.db"
	DefaultOutput            = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultIntrospectionSize = 64
	DefaultDebounce          = 300 * time.Millisecond
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "antscope.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "antscope.yml"

// Defaults returns a Config holding the default values.
func Defaults() *Config {
	return &Config{
		BuildFile:    DefaultBuildFile,
		StatePath:    DefaultStateFile,
		OutputFormat: DefaultOutput,
		Cache:        CacheConfig{IntrospectionSize: DefaultIntrospectionSize},
		Watch:        WatchConfig{Debounce: DefaultDebounce},
	}
}
