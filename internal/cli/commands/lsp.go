package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/antscope/internal/cli/config"
	"github.com/leapstack-labs/antscope/internal/lsp"
)

// NewLSPCommand creates the lsp command.
func NewLSPCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		Long: `Start the LSP server for editor integration.

The server communicates over stdin/stdout using JSON-RPC. It publishes
diagnostics for open build files and answers hover and go-to-definition
requests for target names, property references and custom elements.

The root build file comes from the configuration, or build.xml under the
client's workspace root (rootUri parameter).`,
		Example: `  # Start LSP server (usually called by an editor)
  antscope lsp`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLSP(cmd)
		},
	}

	return cmd
}

func runLSP(cmd *cobra.Command) error {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	opts := lsp.Options{
		Session: sessionOptions(cfg, logger),
		Logger:  logger,
	}
	if cfg.ValidateBuildFile() == nil {
		opts.BuildFile = fsPath(cfg.BuildFile)
	}

	server := lsp.NewServer(cmd.InOrStdin(), cmd.OutOrStdout(), opts)
	return server.Run()
}
