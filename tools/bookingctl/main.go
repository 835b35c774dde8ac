// Command bookingctl is the operator CLI for the booking service: schema migrations,
// availability lookups, health probes and development tokens.
package main

import (
	"fmt"
	"os"

	"github.com/md-rashed-zaman/salonbook/libs/runtime"
	"github.com/spf13/cobra"
)

func main() {
	_ = runtime.LoadDotEnv()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bookingctl",
		Short:         "Operate the salon booking service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(migrateCmd())
	root.AddCommand(slotsCmd())
	root.AddCommand(healthCmd())
	root.AddCommand(tokenCmd())
	return root
}
