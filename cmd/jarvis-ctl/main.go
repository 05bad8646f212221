package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jarvis/internal/ipc"
)

func main() {
	var socket string

	root := &cobra.Command{
		Use:           "jarvis-ctl",
		Short:         "Control a running jarvis daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&socket, "socket", "s", ipc.SocketPath, "Control socket path")

	send := func(cmd string) func(*cobra.Command, []string) error {
		return func(c *cobra.Command, _ []string) error {
			r, err := ipc.SendCommand(socket, cmd)
			if err != nil {
				return fmt.Errorf("jarvis not running: %w", err)
			}
			if !r.OK {
				return fmt.Errorf("%s: %s", cmd, r.Error)
			}
			if r.State != "" {
				fmt.Fprintln(c.OutOrStdout(), r.State)
			}
			return nil
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "wake",
			Short: "Capture one command without the wake phrase",
			Args:  cobra.NoArgs,
			RunE:  send(ipc.CmdWake),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print the listening state",
			Args:  cobra.NoArgs,
			RunE:  send(ipc.CmdStatus),
		},
		&cobra.Command{
			Use:   "quit",
			Short: "Shut the daemon down",
			Args:  cobra.NoArgs,
			RunE:  send(ipc.CmdQuit),
		},
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
