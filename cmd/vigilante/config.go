package main

import (
	"github.com/spf13/cobra"

	"github.com/platformbuilds/vigilante-core/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	var template string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML (secrets masked)",
		Example: `  vigilante config
  vigilante config --template production > configs/config.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if template != "" {
				out, err := config.GenerateConfigTemplate(template)
				if err != nil {
					return err
				}
				_, err = a.stdout.Write([]byte(out))
				return err
			}

			cfg, _, err := a.loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			out, err := cfg.Dump()
			if err != nil {
				return err
			}
			_, err = a.stdout.Write(out)
			return err
		},
	}
	cmd.Flags().StringVar(&template, "template", "", "print a commented template for an environment instead")
	return cmd
}
