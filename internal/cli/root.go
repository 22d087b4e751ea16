// Package cli defines the stepcov command line.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dshills/stepcov/internal/app"
	"github.com/dshills/stepcov/internal/config"
	"github.com/dshills/stepcov/internal/logging"
)

// RootOptions holds the flags of the root command.
type RootOptions struct {
	ConfigPath string
	Include    []string
	Exclude    []string
	SearchPath []string
	Output     string
	Summary    string
	LogLevel   string
	Syntax     string
	Watch      bool
}

// NewRootCommand creates the stepcov command. version is printed by --version.
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "stepcov [flags] FILE [ARGS...]",
		Short: "stepcov - line coverage for Lua programs",
		Long: "Run FILE under a single-step interrupt hook and write LCOV tracefiles\n" +
			"for every source it loads. ARGS are passed to the program.",
		Version:       version,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config(args[1:])
			if err != nil {
				return err
			}
			logging.Set(logging.New(logging.Config{
				Level:  levelOf(cfg.LogLevel),
				Output: cmd.ErrOrStderr(),
				Prefix: "stepcov",
			}))
			defer func() { _ = logging.Get().Sync() }()

			if opts.Watch {
				return app.Watch(cmd.Context(), cfg, args[0], func(res *app.Result, err error) {
					printResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), res, err)
				})
			}
			res, err := app.Run(cmd.Context(), cfg, args[0])
			printResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), res, err)
			return err
		},
	}
	cmd.Flags().SetInterspersed(false)

	f := cmd.Flags()
	f.StringVarP(&opts.ConfigPath, "config", "c", "", "read settings from FILE (.toml or .yaml)")
	f.StringArrayVarP(&opts.SearchPath, "include-path", "I", nil, "add DIR to the module search path")
	f.StringArrayVarP(&opts.Exclude, "exclude-from-coverage", "E", nil, "skip sources whose path contains DIR")
	f.StringArrayVar(&opts.Include, "include-in-coverage", nil, "only cover sources whose path contains DIR")
	f.StringVarP(&opts.Output, "tracefile-output", "o", "", "write all trace data to a single FILE")
	f.StringVar(&opts.Summary, "summary", "", "write a JSON summary to FILE")
	f.StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	f.StringVar(&opts.Syntax, "syntax", "", "lexical syntax for line filtering (auto|lua|js)")
	f.BoolVar(&opts.Watch, "watch", false, "rerun whenever a covered source changes")

	return cmd
}

// config loads the config file and overlays the flags.
func (o *RootOptions) config(args []string) (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return cfg, err
	}
	cfg.Merge(config.Config{
		Include:    o.Include,
		Exclude:    o.Exclude,
		SearchPath: o.SearchPath,
		Output:     o.Output,
		Summary:    o.Summary,
		LogLevel:   o.LogLevel,
		Syntax:     o.Syntax,
		Args:       args,
	})
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func levelOf(s string) logging.LogLevel {
	l, _ := logging.ParseLogLevel(s)
	return l
}

func printResult(out, errOut io.Writer, res *app.Result, err error) {
	if err != nil || res == nil {
		return
	}
	if res.EvalErr != nil {
		fmt.Fprintf(errOut, "Error in evaluating %s: %v\n", res.Script, res.EvalErr)
	}
	fmt.Fprintf(out, "%d files, %d/%d lines (%.1f%%)\n",
		len(res.Files), res.Hit, res.Found, res.Percent())
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context, cmd *cobra.Command) error {
	return cmd.ExecuteContext(ctx)
}
