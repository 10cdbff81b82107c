// Package cli provides configuration management commands.
package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/openvstorage/vpool-wizard/internal/api"
	"github.com/openvstorage/vpool-wizard/internal/config"
	"github.com/openvstorage/vpool-wizard/internal/constants"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the wizardconfig",
		Long: `Configuration management commands.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  test  - Test the connection to the local installation
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigTestCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup.

The configuration is saved to ~/.config/openvstorage/wizardconfig with
restricted permissions (the client secret is stored in it).

Use --force to overwrite an existing configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := config.DefaultPath()
			if err != nil {
				return err
			}

			if !force {
				if _, err := os.Stat(configPath); err == nil {
					fmt.Printf("Configuration already exists at: %s\n", configPath)
					fmt.Println("Use --force to overwrite or 'config show' to view it.")
					return nil
				}
			}

			fmt.Println("vPool Wizard Configuration Setup")
			fmt.Println("================================")
			fmt.Println()

			cfg := config.New()

			for cfg.Host == "" {
				cfg.Host, err = promptLine("Management host (required)")
				if err != nil {
					return err
				}
			}

			portInput, err := promptLine(fmt.Sprintf("Management port [%d]", constants.DefaultAPIPort))
			if err != nil {
				return err
			}
			if portInput != "" {
				port, err := strconv.Atoi(portInput)
				if err != nil {
					return fmt.Errorf("invalid port %q", portInput)
				}
				cfg.Port = port
			}

			for cfg.ClientID == "" {
				cfg.ClientID, err = promptLine("Client id (required)")
				if err != nil {
					return err
				}
			}
			for cfg.ClientSecret == "" {
				cfg.ClientSecret, err = promptSecret("Client secret (required)")
				if err != nil {
					return err
				}
			}

			proxyMode, err := promptLine("Proxy mode (no-proxy, system, basic, ntlm) [no-proxy]")
			if err != nil {
				return err
			}
			if proxyMode != "" {
				cfg.ProxyMode = proxyMode
			}
			if cfg.ProxyMode == "basic" || cfg.ProxyMode == "ntlm" {
				cfg.ProxyHost, err = promptLine("Proxy host")
				if err != nil {
					return err
				}
				proxyPort, err := promptLine("Proxy port [8080]")
				if err != nil {
					return err
				}
				if proxyPort != "" {
					cfg.ProxyPort, err = strconv.Atoi(proxyPort)
					if err != nil {
						return fmt.Errorf("invalid proxy port %q", proxyPort)
					}
				}
				cfg.ProxyUser, err = promptLine("Proxy user (optional)")
				if err != nil {
					return err
				}
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("configuration not usable: %w", err)
			}
			if err := config.Save(cfg, configPath); err != nil {
				return err
			}

			fmt.Printf("\nConfiguration saved to: %s\n", configPath)
			fmt.Println("Run 'vpool-wizard config test' to verify the connection.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fmt.Println("[platform]")
			fmt.Printf("host          = %s\n", cfg.Host)
			fmt.Printf("port          = %d\n", cfg.Port)
			fmt.Printf("client_id     = %s\n", cfg.ClientID)
			fmt.Printf("client_secret = %s\n", maskSecret(cfg.ClientSecret))
			fmt.Println()
			fmt.Println("[proxy]")
			fmt.Printf("mode          = %s\n", cfg.ProxyMode)
			if cfg.ProxyHost != "" {
				fmt.Printf("host          = %s\n", cfg.ProxyHost)
				fmt.Printf("port          = %d\n", cfg.ProxyPort)
				fmt.Printf("user          = %s\n", cfg.ProxyUser)
			}
			fmt.Println()
			fmt.Println("[wizard.defaults]")
			fmt.Printf("sco_size      = %d MiB\n", cfg.Defaults.SCOSize)
			fmt.Printf("write_buffer  = %d MiB\n", cfg.Defaults.WriteBuffer)
			fmt.Printf("dtl           = %s over %s\n", cfg.Defaults.DTLMode, cfg.Defaults.DTLTransport)
			fmt.Printf("cache         = %s, %s\n", cfg.Defaults.CacheStrategy, cfg.Defaults.DedupeMode)
			fmt.Printf("cluster_size  = %d KiB\n", cfg.Defaults.ClusterSize)

			if err := cfg.Validate(); err != nil {
				fmt.Printf("\nWarning: configuration not usable: %v\n", err)
			}
			return nil
		},
	}
}

// newConfigTestCmd creates the 'config test' command.
func newConfigTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Test the connection to the local installation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("configuration not usable: %w", err)
			}

			client, err := api.NewClient(cfg)
			if err != nil {
				return err
			}

			fmt.Printf("Connecting to %s...\n", cfg.BaseURL())
			entries, err := client.ListBackends(GetContext(), constants.BackendTypeAlba, api.ConnectionParams{UseLocal: true})
			if err != nil {
				if api.IsAuthError(err) {
					return fmt.Errorf("credentials rejected: %w", err)
				}
				return fmt.Errorf("connection failed: %w", err)
			}

			available := 0
			for _, entry := range entries {
				if entry.Available {
					available++
				}
			}
			fmt.Printf("Connection OK - %d backend(s) visible, %d available.\n", len(entries), available)
			return nil
		},
	}
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgFile
			if path == "" {
				var err error
				path, err = config.DefaultPath()
				if err != nil {
					return err
				}
			}
			fmt.Println(path)
			return nil
		},
	}
}

// maskSecret hides all but the last four characters of a secret.
func maskSecret(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
