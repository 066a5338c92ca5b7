package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0600))
	return cfgPath
}

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringP("file", "f", "", "build file")
	flags.String("state", "", "state database")
	flags.StringP("output", "o", "", "output format")
	flags.BoolP("verbose", "v", false, "verbose")
	flags.String("config", "", "config file")
	return flags
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, "verbose: false\n")
	root := filepath.Dir(cfgPath)

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(root, DefaultBuildFile), cfg.BuildFile)
	assert.Equal(t, filepath.Join(root, DefaultStateFile), cfg.StatePath)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, DefaultIntrospectionSize, cfg.Cache.IntrospectionSize)
	assert.Equal(t, DefaultDebounce, cfg.Watch.Debounce)
	assert.Equal(t, cfgPath, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_File(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, `build_file: ant/main.xml
ant_home: /opt/ant
classpath:
  - lib/tasks.jar
  - /shared/classes
properties:
  env: ci
  version: 2
output: json
cache:
  introspection_size: 8
watch:
  debounce: 1s
`)
	root := filepath.Dir(cfgPath)

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "ant/main.xml"), cfg.BuildFile)
	assert.Equal(t, "/opt/ant", cfg.AntHome)
	assert.Equal(t, []string{filepath.Join(root, "lib/tasks.jar"), "/shared/classes"}, cfg.Classpath)
	assert.Equal(t, map[string]string{"env": "ci", "version": "2"}, cfg.Properties)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, 8, cfg.Cache.IntrospectionSize)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
}

func TestLoadConfig_Precedence(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		flag    string
		want    string
		setFlag bool
	}{
		{name: "file", want: "text"},
		{name: "env over file", env: "markdown", want: "markdown"},
		{name: "flag over env", env: "markdown", flag: "json", setFlag: true, want: "json"},
		{name: "unset flag uses env", env: "markdown", want: "markdown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			cfgPath := writeConfig(t, "output: text\n")
			if tt.env != "" {
				t.Setenv("ANTSCOPE_OUTPUT", tt.env)
			}
			flags := testFlags()
			if tt.setFlag {
				require.NoError(t, flags.Set("output", tt.flag))
			}

			cfg, err := LoadConfig(cfgPath, flags)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.OutputFormat)
		})
	}
}

func TestLoadConfig_NestedEnv(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, "")
	t.Setenv("ANTSCOPE_CACHE__INTROSPECTION_SIZE", "128")
	t.Setenv("ANTSCOPE_CLASSPATH", "/a.jar,/b.jar")
	t.Setenv("ANTSCOPE_WATCH__DEBOUNCE", "50ms")

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)
	assert.Equal(t, 128, cfg.Cache.IntrospectionSize)
	assert.Equal(t, []string{"/a.jar", "/b.jar"}, cfg.Classpath)
	assert.Equal(t, 50*time.Millisecond, cfg.Watch.Debounce)
}

func TestLoadConfig_FlagPathsRelativeToCWD(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, "build_file: from_file.xml\n")
	flags := testFlags()
	require.NoError(t, flags.Set("file", "other/build.xml"))
	require.NoError(t, flags.Set("state", "idx.db"))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	want, _ := filepath.Abs("other/build.xml")
	assert.Equal(t, want, cfg.BuildFile)
	want, _ = filepath.Abs("idx.db")
	assert.Equal(t, want, cfg.StatePath)
}

func TestLoadConfig_Invalid(t *testing.T) {
	ResetConfig()
	_, err := LoadConfig(writeConfig(t, "output: html\n"), nil)
	assert.ErrorContains(t, err, "invalid output format")

	ResetConfig()
	_, err = LoadConfig(writeConfig(t, "build_file: [unclosed\n"), nil)
	assert.ErrorContains(t, err, "error reading config file")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		errSubstr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "empty build file", mutate: func(c *Config) { c.BuildFile = "" }, errSubstr: "build_file is required"},
		{name: "bad output", mutate: func(c *Config) { c.OutputFormat = "xml" }, errSubstr: "invalid output format"},
		{name: "zero cache", mutate: func(c *Config) { c.Cache.IntrospectionSize = 0 }, errSubstr: "introspection_size"},
		{name: "negative debounce", mutate: func(c *Config) { c.Watch.Debounce = -time.Second }, errSubstr: "debounce"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Defaults()
			tt.mutate(c)
			err := c.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errSubstr)
		})
	}
}

func TestValidateBuildFile(t *testing.T) {
	c := Defaults()
	c.BuildFile = filepath.Join(t.TempDir(), "missing.xml")
	assert.ErrorContains(t, c.ValidateBuildFile(), "build file does not exist")
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))

	logger := slog.New(slog.DiscardHandler)
	ctx := context.WithValue(context.Background(), LoggerKey(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}
