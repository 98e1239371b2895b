package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/danmuck/uartctl/internal/client"
	"github.com/danmuck/uartctl/internal/protocol"
	"github.com/spf13/cobra"
)

func newSendCmd(opts *rootOptions, d deps) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one command to a device and print the answer",
	}
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", time.Minute, "bound for the whole exchange, 0 disables")

	// withController opens the link, runs fn and closes the link.
	withController := func(cmd *cobra.Command, fn func(ctx context.Context, c *client.Controller) error) error {
		cfg, err := opts.load()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		link, err := d.open(ctx, cfg.Transport())
		if err != nil {
			return fmt.Errorf("open %s: %w", cfg.Serial.Device, err)
		}
		defer link.Close()
		return fn(ctx, client.New(link))
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Query the firmware version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withController(cmd, func(ctx context.Context, c *client.Controller) error {
					v, err := c.Version(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), v)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "ping",
			Short: "Ask the device to probe its configured target",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withController(cmd, func(ctx context.Context, c *client.Controller) error {
					text, ok, err := c.Ping(ctx)
					if err != nil {
						return err
					}
					state := "unreachable"
					if ok {
						state = "reachable"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", state, text)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "read <count>",
			Short: "Run count sequential retrievals and print each outcome",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				count, err := strconv.ParseUint(args[0], 0, 16)
				if err != nil {
					return fmt.Errorf("count %q: want 0..65535", args[0])
				}
				return withController(cmd, func(ctx context.Context, c *client.Controller) error {
					out := cmd.OutOrStdout()
					ok, err := c.Read(ctx, uint16(count), func(r protocol.ReadResult) {
						outcome := "failed"
						if r.Success {
							outcome = "ok"
						}
						fmt.Fprintf(out, "%d %s\n", r.Index, outcome)
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%d/%d succeeded\n", ok, count)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "shutdown",
			Short: "Ask the device to power off",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withController(cmd, func(ctx context.Context, c *client.Controller) error {
					if err := c.Shutdown(ctx); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "acknowledged")
					return nil
				})
			},
		},
	)
	return cmd
}
