package main

import (
	"fmt"

	"github.com/danmuck/uartctl/internal/protocol"
	"github.com/spf13/cobra"
)

// buildVersion is set with -ldflags "-X main.buildVersion=x.y.z".
var buildVersion = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build and protocol versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "uartctl %s\n", buildVersion)
			fmt.Fprintf(out, "firmware %s\n", protocol.FirmwareVersion)
			for _, op := range protocol.Opcodes() {
				fmt.Fprintf(out, "opcode 0x%02X %-8s frame=%d payload=%d\n", byte(op), op, op.FrameLen(), op.PayloadWidth())
			}
			return nil
		},
	}
}
