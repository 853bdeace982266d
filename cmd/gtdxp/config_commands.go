package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nhle/gtdxp-os/internal/model"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigPathCommand(ctx))
	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand(ctx))

	return configCmd
}

func newConfigPathCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), ctx.configPath)
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			anonKey := "not set"
			switch {
			case cfg.Auth.AnonKey != "":
				anonKey = "set (config or environment)"
			case ctx.anonKey(cfg) != "":
				anonKey = "set (keyring)"
			}

			rows := [][]string{
				{"app.name", cfg.App.Name},
				{"auth.url", valueOr(cfg.Auth.URL, "not set")},
				{"auth.anon_key", anonKey},
				{"auth.callback_addr", cfg.Auth.CallbackAddr},
				{"auth.session_check_sec", strconv.Itoa(cfg.Auth.SessionCheckSec)},
				{"display.theme", cfg.Display.Theme},
				{"display.light", strconv.FormatBool(cfg.Display.Light)},
				{"display.clock_24h", strconv.FormatBool(cfg.Display.Clock24)},
				{"toast.duration_ms", strconv.Itoa(cfg.Toast.DurationMS)},
				{"toast.max_visible", strconv.Itoa(cfg.Toast.MaxVisible)},
				{"log.level", cfg.Log.Level},
				{"log.format", cfg.Log.Format},
				{"log.path", cfg.Log.Path},
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", ctx.configPath)
			fmt.Fprintln(out, renderTable([]string{"Key", "Value"}, rows, nil))
			return nil
		},
	}
}

func newConfigInitCommand(ctx *commandContext) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := ctx.configPath
			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			defaults, err := model.LoadConfig("")
			if err != nil {
				return err
			}
			if err := model.SaveConfig(target, defaults); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote default configuration to %s\n", target)
			fmt.Fprintln(out, "Set auth.url, then store the anon key with `gtdxp auth set-key`.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite an existing configuration file")
	return cmd
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
