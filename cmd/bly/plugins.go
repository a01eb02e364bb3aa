package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newPluginsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List plugins found in the plugin paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			loader := newLoader(cfg)
			infos, err := loader.Discover()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(infos) == 0 {
				fmt.Fprintf(out, "no plugins in %v\n", loader.Paths())
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tVERSION\tCAPABILITIES\tPATH\tSTATUS")
			for _, info := range append(infos, loader.Shadowed()...) {
				ver, caps, status := "-", "-", "ok"
				if m := info.Manifest; m != nil {
					if m.Version != "" {
						ver = m.Version
					}
					names := make([]string, 0, len(m.Grants()))
					for _, c := range m.Grants() {
						names = append(names, string(c))
					}
					if len(names) > 0 {
						caps = strings.Join(names, ",")
					}
				}
				switch {
				case info.Error != nil:
					status = info.Error.Error()
				case info.ShadowedBy != "":
					status = "shadowed by " + info.ShadowedBy
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", info.Name, ver, caps, info.Path, status)
			}
			return w.Flush()
		},
	}
}
