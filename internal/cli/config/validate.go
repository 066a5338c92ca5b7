package config

import (
	"fmt"
	"os"
	"slices"
)

// OutputFormats lists the accepted values of the output key.
var OutputFormats = []string{"auto", "text", "markdown", "json"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.BuildFile == "" {
		return fmt.Errorf("build_file is required")
	}
	if !slices.Contains(OutputFormats, c.OutputFormat) {
		return fmt.Errorf("invalid output format %q (want one of %v)", c.OutputFormat, OutputFormats)
	}
	if c.Cache.IntrospectionSize <= 0 {
		return fmt.Errorf("cache.introspection_size must be positive, got %d", c.Cache.IntrospectionSize)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	return nil
}

// ValidateBuildFile checks that the build file exists.
func (c *Config) ValidateBuildFile() error {
	if _, err := os.Stat(c.BuildFile); os.IsNotExist(err) {
		return fmt.Errorf("build file does not exist: %s\nHint: use --file to point at a build file", c.BuildFile)
	}
	return nil
}
