package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openvstorage/vpool-wizard/internal/api"
	"github.com/openvstorage/vpool-wizard/internal/logging"
	"github.com/openvstorage/vpool-wizard/internal/tui"
)

// newWizardCmd creates the 'wizard' command, the interactive pool wizard.
func newWizardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wizard",
		Short: "Run the interactive pool creation wizard",
		Long: `Walk through the pool creation flow interactively: connection, backend
discovery and selection, preset choice and sizing.

The wizard needs a usable configuration ('vpool-wizard config init').`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("configuration not usable: %w (run 'vpool-wizard config init')", err)
			}

			client, err := api.NewClient(cfg)
			if err != nil {
				return err
			}

			// Log lines would corrupt the alternate-screen rendering.
			logging.SetMode("tui")
			defer logging.SetMode("cli")

			return tui.Run(GetContext(), cfg, client)
		},
	}
}
