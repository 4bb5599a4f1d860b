package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/shiplet/ast-search/api"
	"github.com/shiplet/ast-search/internal/config"
	"github.com/shiplet/ast-search/internal/ingest"
	"github.com/shiplet/ast-search/internal/report"
	"github.com/shiplet/ast-search/internal/scan"
	"github.com/shiplet/ast-search/internal/search"
)

var errNoInput = errors.New("no files given: pass paths as arguments or with --file")

// options holds every flag value; commands read the ones they define.
type options struct {
	files      []string
	function   string
	property   string
	expression string
	multiple   bool
	locations  bool
	scope      string
	debug      bool
	jsonOut    bool
	database   string
	workers    int
	strict     bool
	exclude    []string

	configPath string
	logLevel   string
	logJSON    bool
}

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "ast-search [paths...]",
		Short: "Report functions or properties whose bodies contain an expression",
		Long: `ast-search parses JavaScript, TypeScript, the <script> block of Vue, Svelte
and HTML files, or ESTree JSON, finds the function or property with the given
name and reports whether an expression such as ThisExpression occurs inside it.

Matching files are printed one per line. Nothing is printed when the function
or property is missing or does not contain the expression.`,
		Example: `  ast-search -f src/App.vue --fn setup -e ThisExpression
  ast-search src --function load --multiple --locations
  ast-search -f src/store.js -p actions --scope '$.body[0]'`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, o, args)
		},
	}

	flags := cmd.Flags()
	flags.SetNormalizeFunc(normalizeAliases)
	flags.StringSliceVarP(&o.files, "file", "f", nil, "file or directory to search (repeatable)")
	flags.StringVar(&o.function, "function", "", "name of the function body to search (alias --fn)")
	flags.StringVarP(&o.property, "property", "p", "", "name of the property to search")
	flags.StringVarP(&o.expression, "expression", "e", string(api.ThisExpression),
		"expression kind to look for (alias --exp): "+strings.Join(kindNames(), ", "))
	flags.BoolVarP(&o.multiple, "multiple", "m", false, "check every function with the name, not only the first")
	flags.BoolVarP(&o.locations, "locations", "l", false, "print file:line:column of each match instead of the file")
	flags.StringVar(&o.scope, "scope", "", "JSONPath selecting the subtrees to search in")
	flags.BoolVarP(&o.debug, "debug", "d", false, "write the parsed tree of the first file to ./output.json and exit")
	flags.BoolVar(&o.jsonOut, "json", false, "print matches as JSON")
	flags.StringVar(&o.database, "db", "", "record matches in this SQLite database")
	flags.IntVar(&o.workers, "workers", 0, "files searched in parallel (default: number of CPUs)")
	flags.BoolVar(&o.strict, "strict", false, "treat syntax errors as failures instead of searching the recovered tree")
	flags.StringSliceVar(&o.exclude, "exclude", nil, "glob patterns of files and directories to skip")

	persistent := cmd.PersistentFlags()
	persistent.StringVar(&o.configPath, "config", "", "config file (default "+config.DefaultFile+" if present)")
	persistent.StringVar(&o.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	persistent.BoolVar(&o.logJSON, "log-json", false, "log as JSON")

	cmd.AddCommand(newDumpCmd(o), newReportCmd(o), newServeCmd(o), newVersionCmd())
	return cmd
}

// normalizeAliases maps --fn and --exp onto their long names.
func normalizeAliases(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	switch name {
	case "fn":
		name = "function"
	case "exp":
		name = "expression"
	}
	return pflag.NormalizedName(name)
}

func kindNames() []string {
	var names []string
	for _, k := range api.ExpressionKinds() {
		names = append(names, string(k))
	}
	return names
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func runSearch(cmd *cobra.Command, o *options, args []string) error {
	paths := append(slices.Clone(o.files), args...)
	if len(paths) == 0 {
		return errNoInput
	}
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
	abs, err := h.abs(paths)
	if err != nil {
		return err
	}
	loader := &ingest.Loader{FS: h.fs, Strict: cfg.Strict, Logger: log}

	if o.debug {
		return dump(cmd, h, loader, abs[0], "", "output.json")
	}

	q := api.Query{
		Function:   o.function,
		Property:   o.property,
		Expression: api.ExpressionKind(cfg.Expression),
		Multiple:   cfg.Multiple,
	}
	s := &scan.Scanner{
		Loader: loader,
		Opts: scan.Options{
			Query:      q,
			Scope:      o.scope,
			Workers:    cfg.Workers,
			Extensions: cfg.Extensions,
			Exclude:    cfg.Exclude,
		},
		Logger: log,
	}
	rep, err := s.Run(cmd.Context(), abs)
	if err != nil {
		return err
	}
	h.relativize(rep)

	if cfg.Database != "" {
		store, err := report.Open(cfg.Database)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		run, err := store.Save(cmd.Context(), q, rep.Hits)
		if err != nil {
			return err
		}
		log.Info("recorded matches", "db", cfg.Database, "run", run, "hits", len(rep.Hits))
	}

	out := cmd.OutOrStdout()
	if o.jsonOut {
		hits := rep.Hits
		if hits == nil {
			hits = []search.Hit{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(hits); err != nil {
			return err
		}
	} else {
		for _, id := range rep.Identifiers(o.locations) {
			fmt.Fprintln(out, id)
		}
	}

	for _, f := range rep.Failures {
		log.Error("could not search file", "path", f.Path, "error", f.Err)
	}
	if n := len(rep.Failures); n > 0 {
		return fmt.Errorf("%d of %d files could not be searched", n, rep.Files)
	}
	return nil
}

// resolve layers explicitly set flags over the config file over defaults.
func (o *options) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Discover(o.configPath)
	if err != nil {
		return cfg, err
	}
	override(cmd, "expression", &cfg.Expression, o.expression)
	override(cmd, "multiple", &cfg.Multiple, o.multiple)
	override(cmd, "workers", &cfg.Workers, o.workers)
	override(cmd, "strict", &cfg.Strict, o.strict)
	override(cmd, "db", &cfg.Database, o.database)
	override(cmd, "exclude", &cfg.Exclude, o.exclude)
	override(cmd, "log-level", &cfg.LogLevel, o.logLevel)
	override(cmd, "log-json", &cfg.LogJSON, o.logJSON)
	if _, err := cfg.Level(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func override[T any](cmd *cobra.Command, name string, dst *T, v T) {
	if f := cmd.Flag(name); f != nil && f.Changed {
		*dst = v
	}
}
