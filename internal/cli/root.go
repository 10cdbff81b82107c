// Package cli provides the command-line interface for vpool-wizard.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/openvstorage/vpool-wizard/internal/config"
	"github.com/openvstorage/vpool-wizard/internal/logging"
	"github.com/openvstorage/vpool-wizard/internal/version"
)

var (
	// Global flags
	cfgFile      string
	hostFlag     string
	portFlag     int
	clientIDFlag string
	verbose      bool

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vpool-wizard",
		Short: "Storage pool provisioning wizard for Open vStorage installations",
		Long: `vpool-wizard ` + version.Version + ` - Built: ` + version.BuildTime + `
Provisioning tool for Open vStorage pools (vPools).

Discovers the eligible storage backends of an installation, inspects their
presets and capacity, and walks through the sizing of a new pool - either
from subcommands or interactively ('vpool-wizard wizard').

Connection settings are read from ~/.config/openvstorage/wizardconfig and
can be overridden per invocation with --host, --port and --client-id.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewDefaultCLILogger()
			if verbose {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&hostFlag, "host", "", "Management host of the local installation (overrides config)")
	rootCmd.PersistentFlags().IntVar(&portFlag, "port", 0, "Management port of the local installation (overrides config)")
	rootCmd.PersistentFlags().StringVar(&clientIDFlag, "client-id", "", "API client id (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	return rootCmd
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newBackendsCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newWizardCmd())
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling...\n", sig)
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the global CLI context with signal handling. The
// context is cancelled when the user presses Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}

// loadConfig loads the wizardconfig and applies the global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if hostFlag != "" {
		cfg.Host = hostFlag
	}
	if portFlag != 0 {
		cfg.Port = portFlag
	}
	if clientIDFlag != "" {
		cfg.ClientID = clientIDFlag
	}
	return cfg, nil
}
