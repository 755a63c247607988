package main

import (
	"fmt"

	"github.com/spf13/cobra"

	cfgpkg "expsplit/internal/config"
)

func newInitCmd(c *cli) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a default config file and .env template",
		Long: `Creates expsplit.json (or expsplit.yaml with --format yaml) and a .env template in
dir (default: current directory). Existing files are left untouched.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			created, err := cfgpkg.WriteTemplates(dir, format)
			if err != nil {
				return configErr("init: %w", err)
			}
			if len(created) == 0 {
				_, _ = fmt.Fprintf(c.stderr, "nothing to do: templates already exist in %s\n", dir)
			}
			for _, p := range created {
				_, _ = fmt.Fprintln(c.stdout, p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "config format: json|yaml")
	return cmd
}
