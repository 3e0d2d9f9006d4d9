package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/platformbuilds/vigilante-core/internal/config"
	"github.com/platformbuilds/vigilante-core/internal/monitoring"
)

type app struct {
	configFile string
	stdout     io.Writer
	stderr     io.Writer
}

func newRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{stdout: out, stderr: errOut}

	cmd := &cobra.Command{
		Use:           "vigilante",
		Short:         "Slope displacement early warning from radar series",
		Long:          "vigilante replays slope-stability radar series, classifies each step as NORMAL, ALERTA or ALARMA, and asks an optional LLM advisor for a second opinion.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       monitoring.Version,
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	cmd.PersistentFlags().StringVar(&a.configFile, "config", "", "path to config.yaml (default: /etc/vigilante, ./configs, .)")
	cmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().String("format", "", "console format: rich, plain, json")

	cmd.AddCommand(
		newSimulateCmd(a),
		newServeCmd(a),
		newEventsCmd(a),
		newConfigCmd(a),
	)
	return cmd
}

// persistentKeys maps root flags to config keys.
var persistentKeys = map[string]string{
	"log-level": "log_level",
	"format":    "console_format",
}

// loadConfig reads file, env and defaults, then applies the flags of cmd
// that were set explicitly. keys maps flag names to config keys.
func (a *app) loadConfig(cmd *cobra.Command, keys map[string]string) (*config.Config, *viper.Viper, error) {
	v, err := config.NewViper(a.configFile)
	if err != nil {
		return nil, nil, err
	}
	if err := bindFlags(v, cmd.Flags(), persistentKeys); err != nil {
		return nil, nil, err
	}
	if err := bindFlags(v, cmd.Flags(), keys); err != nil {
		return nil, nil, err
	}
	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for name, key := range keys {
		f := flags.Lookup(name)
		if f == nil {
			return fmt.Errorf("unknown flag %q", name)
		}
		if !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind --%s: %w", name, err)
		}
	}
	return nil
}
