package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/axellelanca/linkshortener/internal/config"
	"github.com/axellelanca/linkshortener/internal/logging"
	"github.com/spf13/cobra"
)

// Version is reported by /health.
const Version = "1.0.0"

// Cfg is the global variable that will contain the loaded configuration
// It will be accessible to all Cobra commands throughout the application
var Cfg *config.Config

// Logger is built from Cfg.Log once the configuration is loaded.
var Logger *slog.Logger

var configFile string

// RootCmd is the base command for the CLI application
// All other commands (run-server, create, stats, list, delete, migrate) are added as subcommands
var RootCmd = &cobra.Command{
	Use:   "linkshortener",
	Short: "A link shortener service",
	Long: `A link shortener that maps short alphanumeric codes to long URLs,
redirects visitors and counts clicks per link.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute is the main entry point for the Cobra application
// It is called from 'main.go' and handles command execution and error handling
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./configs/config.yaml)")

	// Subcommands register themselves via their own init() functions,
	// which keeps cmd free of import cycles.
}

// initConfig loads the configuration from file, environment and defaults
// before any subcommand runs.
func initConfig() error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}
	Cfg = cfg
	Logger = logging.New(cfg.Log, os.Stderr)
	slog.SetDefault(Logger)
	return nil
}
