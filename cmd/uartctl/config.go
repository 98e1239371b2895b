package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/danmuck/uartctl/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write or check configuration files",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write a sample config; the format follows the extension",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			format := strings.TrimPrefix(filepath.Ext(path), ".")
			if err := config.WriteTemplate(path, format, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	validateCmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Load and validate a config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok device=%s target=%s probe=%s retrieve=%s\n",
				cfg.Serial.Device, cfg.Actions.Target, cfg.Actions.ProbeMode, cfg.Actions.RetrieveMode)
			return nil
		},
	}

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}
