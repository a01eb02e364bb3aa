package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/dshills/bly/internal/app"
	"github.com/dshills/bly/internal/view"
)

func newViewCmd(flags *globalFlags) *cobra.Command {
	var (
		plugins pluginFlags
		logFile string
	)

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Show the results snapshot in the terminal",
		Long: `view loads plugins and draws the results snapshot after every dispatch.
Type :NAME or :NAME={"json":"payload"} and Enter to inject an action.
The last dispatches are listed above the status line (config: history).
Escape cancels the prompt; q, Escape or Ctrl-C quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// The screen owns the terminal, so logs go to a file or nowhere.
			var logOut io.Writer = io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return err
				}
				defer f.Close()
				logOut = f
			}

			s, err := newSession(flags, &plugins, logOut)
			if err != nil {
				return err
			}
			defer s.Close()

			screen, err := tcell.NewScreen()
			if err != nil {
				return err
			}
			if err := screen.Init(); err != nil {
				return err
			}
			defer screen.Fini()

			v := view.New(screen, view.WithTitle(s.cfg.Title), view.WithHistory(s.history))
			detach, err := v.Attach(s.app)
			if err != nil {
				return err
			}
			defer detach()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return v.Run(ctx, func(d app.Descriptor) error {
				_, err := s.app.Inject(d, nil)
				return err
			})
		},
	}

	plugins.bind(cmd.Flags())
	cmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file")
	return cmd
}

