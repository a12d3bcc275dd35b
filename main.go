package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

var (
	serverURL  string
	configPath string
	outputJSON bool
	verbose    bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "autosense",
	Short: "AutoSense X system dashboard",
	Long: `autosense is a terminal client for the AutoSense X backend.

Run without a command to open the interactive dashboard. The subcommands
query the same backend for scripting and quick checks.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDashboard,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "Backend URL (overrides config and AUTOSENSE_SERVER)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("AUTOSENSE_CONFIG"), "Path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&outputJSON, "json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.Flags().String("landing", "", "Landing URL carrying ?token= from a Google redirect")
	dashboardCmd.Flags().String("landing", "", "Landing URL carrying ?token= from a Google redirect")

	loginCmd.Flags().StringP("user", "u", "", "Username (prompted when empty)")
	loginCmd.Flags().Bool("google", false, "Sign in with Google")
	loginCmd.Flags().String("listen", "127.0.0.1:5173", "Loopback address that receives the Google redirect")
	loginCmd.Flags().String("landing", "", "Landing URL copied from the browser after a Google redirect")

	reportCmd.Flags().StringP("output", "o", "", "Where to write the PDF report")
	historyCmd.Flags().IntP("limit", "n", 20, "Number of snapshots to show")

	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(alertsCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(mcpCmd)
}
