package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/antscope/internal/cli/config"
	"github.com/leapstack-labs/antscope/internal/cli/output"
)

// initConfig is the layout of a generated config file.
type initConfig struct {
	BuildFile string             `yaml:"build_file"`
	AntHome   string             `yaml:"ant_home,omitempty"`
	StatePath string             `yaml:"state_path"`
	Output    string             `yaml:"output"`
	Cache     config.CacheConfig `yaml:"cache"`
	Watch     struct {
		Debounce string `yaml:"debounce"`
	} `yaml:"watch"`
}

type initFile struct {
	name    string
	content []byte
}

const configHeader = `# antscope configuration
# Values can be overridden with ANTSCOPE_* environment variables and flags.
`

const exampleBuildFile = `<?xml version="1.0" encoding="UTF-8"?>
<project name="example" default="dist" basedir=".">
  <property file="build.properties"/>
  <property name="build.dir" value="build"/>

  <macrodef name="banner">
    <attribute name="text"/>
    <sequential>
      <echo message="== @{text} =="/>
    </sequential>
  </macrodef>

  <target name="init">
    <mkdir dir="${build.dir}"/>
  </target>

  <target name="compile" depends="init" description="Compile sources">
    <banner text="compile"/>
  </target>

  <target name="dist" depends="compile" description="Build the distribution">
    <banner text="dist ${version}"/>
  </target>
</project>
`

const exampleProperties = `version=1.0.0
`

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var example bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create an antscope configuration file",
		Long: `Create antscope.yaml with the default settings.

Use --example to also write a small build.xml and build.properties to try the
other commands on.`,
		Example: `  # Initialize in current directory
  antscope init

  # Initialize in a new directory with an example build file
  antscope init my-project --example

  # Force overwrite existing config
  antscope init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			cfg := getConfig()
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))
			return runInit(r, dir, force, example)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	cmd.Flags().BoolVar(&example, "example", false, "Also create an example build file")

	return cmd
}

func runInit(r *output.Renderer, dir string, force, example bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	data, err := defaultConfigYAML()
	if err != nil {
		return err
	}
	files := []initFile{{config.ConfigFileName, data}}
	if example {
		files = append(files,
			initFile{config.DefaultBuildFile, []byte(exampleBuildFile)},
			initFile{"build.properties", []byte(exampleProperties)},
		)
	}

	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists. Use --force to overwrite", f.name)
		}
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f.name), f.content, 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.name, err)
		}
		r.StatusLine(f.name, "success", "")
	}

	r.Println("")
	r.Success("antscope initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  antscope targets     List the targets of build.xml")
	r.Println("  antscope dag         Show the dependency graph")
	r.Println("  antscope discover    Index build files for search")

	return nil
}

func defaultConfigYAML() ([]byte, error) {
	d := config.Defaults()
	ic := initConfig{
		BuildFile: d.BuildFile,
		StatePath: d.StatePath,
		Output:    d.OutputFormat,
		Cache:     d.Cache,
	}
	if home := os.Getenv("ANT_HOME"); home != "" {
		ic.AntHome = home
	}
	ic.Watch.Debounce = d.Watch.Debounce.String()

	data, err := yaml.Marshal(ic)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return append([]byte(configHeader), data...), nil
}
