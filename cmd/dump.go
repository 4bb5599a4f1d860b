package cmd

import (
	"bytes"
	"fmt"

	"github.com/go-git/go-billy/v5/util"
	"github.com/spf13/cobra"

	"github.com/shiplet/ast-search/internal/ingest"
)

func newDumpCmd(o *options) *cobra.Command {
	var output, path string
	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Write the parsed ESTree of a file as JSON",
		Long: `Dump parses a file the same way a search does and writes the resulting
ESTree as indented JSON with sorted keys. --path narrows the output to the
values selected by a JSONPath expression.`,
		Example: `  ast-search dump src/App.vue
  ast-search dump src/util.js -o - --path '$.body[*].type'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.resolve(cmd)
			if err != nil {
				return err
			}
			log, err := newLogger(cmd.ErrOrStderr(), cfg)
			if err != nil {
				return err
			}
			h, err := newHost()
			if err != nil {
				return err
			}
			abs, err := h.abs(args)
			if err != nil {
				return err
			}
			loader := &ingest.Loader{FS: h.fs, Strict: cfg.Strict, Logger: log}
			return dump(cmd, h, loader, abs[0], path, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "output.json", "destination file, or - for stdout")
	cmd.Flags().StringVar(&path, "path", "", "JSONPath selecting the values to write")
	return cmd
}

// dump writes the tree of file, or the values path selects in it, to output.
func dump(cmd *cobra.Command, h *host, loader *ingest.Loader, file, path, output string) error {
	doc, err := loader.Load(cmd.Context(), file)
	if err != nil {
		return err
	}
	var v any = doc.Raw
	if path != "" {
		if v, err = ingest.SelectRaw(doc, path); err != nil {
			return err
		}
	}

	if output == "-" {
		return ingest.Dump(cmd.OutOrStdout(), v)
	}
	var buf bytes.Buffer
	if err := ingest.Dump(&buf, v); err != nil {
		return err
	}
	dst, err := h.abs([]string{output})
	if err != nil {
		return err
	}
	if err := util.WriteFile(h.fs, dst[0], buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s tree to %s\n", h.display(file), h.display(dst[0]))
	return nil
}
