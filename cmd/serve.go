package cmd

import (
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/shiplet/ast-search/api"
	"github.com/shiplet/ast-search/internal/ingest"
	"github.com/shiplet/ast-search/internal/mcpserver"
	"github.com/shiplet/ast-search/internal/scan"
)

func newServeCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the search as an MCP tool over stdio",
		Long: `Serve exposes the search as the ` + mcpserver.ToolName + ` MCP tool on stdin and
stdout. Paths in tool calls resolve inside the working directory. Logs go to
stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.resolve(cmd)
			if err != nil {
				return err
			}
			log, err := newLogger(cmd.ErrOrStderr(), cfg)
			if err != nil {
				return err
			}
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("working directory: %w", err)
			}
			tool := &mcpserver.Tool{
				Loader: &ingest.Loader{FS: osfs.New(cwd), Strict: cfg.Strict, Logger: log},
				Defaults: scan.Options{
					Query: api.Query{
						Expression: api.ExpressionKind(cfg.Expression),
						Multiple:   cfg.Multiple,
					},
					Workers:    cfg.Workers,
					Extensions: cfg.Extensions,
					Exclude:    cfg.Exclude,
				},
				Logger: log,
			}
			log.Info("serving MCP over stdio", "root", cwd, "tool", mcpserver.ToolName)
			return mcpserver.ServeStdio(Version, tool)
		},
	}
}
