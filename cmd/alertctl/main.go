package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "alertctl",
		Short: "Operate the picking-verification alert service",
		Long: `alertctl talks to the alert service control port (gRPC) to inspect the
alert session, clear the playback queue or reset the session, and mints
operator tokens when the service runs with CONTROL_TOKEN_SECRET.`,
		SilenceUsage: true,
	}
	opts := bindGlobal(rootCmd)

	rootCmd.AddCommand(stateCmd(opts))
	rootCmd.AddCommand(clearCmd(opts))
	rootCmd.AddCommand(resetCmd(opts))
	rootCmd.AddCommand(scanCmd(opts))
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
