package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tidwall/pretty"

	"github.com/dshills/bly/internal/app"
	"github.com/dshills/bly/internal/config"
	"github.com/dshills/bly/internal/dispatcher/hook"
)

// injectFlag collects repeated --inject NAME[=JSON] values.
type injectFlag []app.Descriptor

var _ pflag.Value = (*injectFlag)(nil)

func (f *injectFlag) String() string {
	names := make([]string, len(*f))
	for i, d := range *f {
		names[i] = d.Name
	}
	return "[" + strings.Join(names, ",") + "]"
}

func (f *injectFlag) Set(s string) error {
	d, err := app.ParseDescriptor(s)
	if err != nil {
		return err
	}
	*f = append(*f, d)
	return nil
}

func (f *injectFlag) Type() string { return "NAME[=JSON]" }

func newRunCmd(flags *globalFlags) *cobra.Command {
	var (
		plugins pluginFlags
		injects injectFlag
		query   string
		compact bool
		stats   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load plugins, inject actions and print the results snapshot",
		Example: `  bly run -p counter.lua --inject increment --inject 'add={"n":5}'
  bly run -p orders/ --inject checkout --query total
  bly run -p counter.lua -i increment -i increment --stats`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var overrides []func(*config.Config)
			if stats {
				overrides = append(overrides, withMetrics)
			}
			s, err := newSession(flags, &plugins, os.Stderr, overrides...)
			if err != nil {
				return err
			}
			defer s.Close()

			var timing *hook.TimingHook
			if stats {
				timing = hook.NewTimingHook(nil)
				s.app.Hooks().Register(timing)
			}

			chain := s.app.Chain()
			for _, d := range injects {
				chain = chain.Inject(d, nil)
			}
			if err := chain.Err(); err != nil {
				return err
			}

			snap := s.app.Latest()
			var out []byte
			if query != "" {
				out = []byte(snap.Query(query).Raw)
			} else if out, err = snap.MarshalJSON(); err != nil {
				return err
			}
			if !compact {
				out = pretty.Pretty(out)
			} else {
				out = append(out, '\n')
			}
			if _, err := fmt.Fprint(cmd.OutOrStdout(), string(out)); err != nil {
				return err
			}
			if stats {
				return writeStats(cmd.ErrOrStderr(), s.app.Dispatcher().Metrics(), timing)
			}
			return nil
		},
	}

	plugins.bind(cmd.Flags())
	cmd.Flags().VarP(&injects, "inject", "i", "action to inject, in order (repeatable)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "print only this gjson path of the snapshot")
	cmd.Flags().BoolVar(&compact, "compact", false, "print compact JSON")
	cmd.Flags().BoolVar(&stats, "stats", false, "print dispatch counts and latency percentiles to stderr")
	return cmd
}
