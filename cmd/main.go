// marketplace-notifications delivers marketplace notifications and runs the
// scheduled event detectors that produce them.
//
// Usage:
//
//	marketplace-notifications serve
//	marketplace-notifications detect rental_overdue
//	marketplace-notifications detectors
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "marketplace-notifications",
		Short: "Marketplace notification service",
		Long: `marketplace-notifications persists in-app notifications, fans them out to
email, SMS and push, and runs the detectors that notice time-based
marketplace events such as due rentals or stale orders.

Configuration is read from the environment, an optional .env file and an
optional file named by CONFIG_FILE.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(detectCmd())
	rootCmd.AddCommand(detectorsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
