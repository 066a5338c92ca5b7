package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/antscope/internal/buildfile"
	"github.com/leapstack-labs/antscope/internal/cli/config"
	"github.com/leapstack-labs/antscope/internal/cli/output"
	"github.com/leapstack-labs/antscope/internal/session"
	"github.com/leapstack-labs/antscope/pkg/core"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Session  *session.Session
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with a session and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func()) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	sess := newSession(cfg, logger)
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Session:  sess,
		Renderer: r,
	}, sess.Close
}

// newSession opens a session over the whole file system; build files use FS paths.
func newSession(cfg *config.Config, logger *slog.Logger) *session.Session {
	return session.New(sessionOptions(cfg, logger))
}

func sessionOptions(cfg *config.Config, logger *slog.Logger) session.Options {
	opts := session.Options{
		FS:                     os.DirFS("/"),
		Properties:             cfg.Properties,
		IntrospectionCacheSize: cfg.Cache.IntrospectionSize,
		Logger:                 logger,
	}
	if cfg.AntHome != "" {
		opts.AntHome = fsPath(cfg.AntHome)
	}
	for _, entry := range cfg.Classpath {
		opts.Classpath = append(opts.Classpath, fsPath(entry))
	}
	return opts
}

// fsPath converts an OS path to the session's FS path.
func fsPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return buildfile.FSPath(p)
}

// OpenProject opens the context of a build file, the configured one when file is "".
func (c *CommandContext) OpenProject(file string) (*session.ProjectContext, error) {
	if file == "" {
		if err := c.Cfg.ValidateBuildFile(); err != nil {
			return nil, err
		}
		file = c.Cfg.BuildFile
	}
	pc, err := c.Session.Context(fsPath(file))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file, err)
	}
	return pc, nil
}

// Location renders where an element is, relative to the project root when possible.
func (c *CommandContext) Location(e *core.Element) string {
	if e == nil {
		return ""
	}
	return c.RelPath(e.File) + ":" + strconv.Itoa(e.Line)
}

// RelPath renders an FS path relative to the project root when possible.
func (c *CommandContext) RelPath(p string) string {
	osPath := buildfile.OSPath(p)
	if c.Cfg.ProjectRoot != "" {
		if rel, err := filepath.Rel(c.Cfg.ProjectRoot, osPath); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return osPath
}

// getConfig returns the current configuration, or the defaults when none was loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	cfg := config.Defaults()
	if cwd, err := os.Getwd(); err == nil {
		cfg.ProjectRoot = cwd
		cfg.BuildFile = filepath.Join(cwd, cfg.BuildFile)
		cfg.StatePath = filepath.Join(cwd, cfg.StatePath)
	}
	return cfg
}

// OutputLocation converts an element position for JSON output.
func (c *CommandContext) OutputLocation(e *core.Element) output.Location {
	if e == nil {
		return output.Location{}
	}
	return output.Location{File: c.RelPath(e.File), Line: e.Line}
}

// relOSPath renders an OS path relative to the project root when possible.
func (c *CommandContext) relOSPath(p string) string {
	return c.RelPath(buildfile.FSPath(p))
}
