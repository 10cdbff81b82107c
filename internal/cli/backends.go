// Package cli provides the backend discovery commands.
package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/openvstorage/vpool-wizard/internal/api"
	"github.com/openvstorage/vpool-wizard/internal/cloud/s3check"
	"github.com/openvstorage/vpool-wizard/internal/constants"
	"github.com/openvstorage/vpool-wizard/internal/events"
	"github.com/openvstorage/vpool-wizard/internal/progress"
	"github.com/openvstorage/vpool-wizard/internal/wizard"
)

// newBackendsCmd creates the 'backends' command group.
func newBackendsCmd() *cobra.Command {
	backendsCmd := &cobra.Command{
		Use:   "backends",
		Short: "Discover and inspect storage backends",
		Long: `Backend discovery commands.

Commands:
  discover  - List the eligible backends of an installation
  presets   - Show the presets of a discovered backend
  check-s3  - Probe an S3-compatible endpoint for reachability`,
	}

	backendsCmd.AddCommand(newBackendsDiscoverCmd())
	backendsCmd.AddCommand(newBackendsPresetsCmd())
	backendsCmd.AddCommand(newBackendsCheckS3Cmd())

	return backendsCmd
}

// remoteFlags holds the flags selecting a remote installation. Without
// --remote-host the discovery targets the configured local installation.
type remoteFlags struct {
	host         string
	port         int
	clientID     string
	clientSecret string
}

func addRemoteFlags(cmd *cobra.Command, flags *remoteFlags) {
	cmd.Flags().StringVar(&flags.host, "remote-host", "", "Discover against a remote installation (relay)")
	cmd.Flags().IntVar(&flags.port, "remote-port", constants.DefaultAPIPort, "Management port of the remote installation")
	cmd.Flags().StringVar(&flags.clientID, "remote-client-id", "", "API client id of the remote installation")
	cmd.Flags().StringVar(&flags.clientSecret, "remote-client-secret", "", "API client secret of the remote installation (prompted when omitted)")
}

// runDiscovery wires up state, discoverer and progress output, runs one
// discovery and returns the populated state.
func runDiscovery(backendType string, remote remoteFlags) (*wizard.State, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration not usable: %w (run 'vpool-wizard config init')", err)
	}

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	bus := events.NewBus(0)
	defer bus.Close()

	state := wizard.NewState(bus)
	state.ApplyDefaults(cfg.Defaults)
	state.SetBackendType(backendType)

	scope := wizard.ScopePrimary
	if remote.host != "" {
		secret := remote.clientSecret
		if secret == "" {
			secret, err = promptSecret(fmt.Sprintf("Client secret for %s", remote.host))
			if err != nil {
				return nil, err
			}
		}
		state.SetUseLocal(scope, false)
		state.SetHost(scope, remote.host)
		state.SetPort(scope, remote.port)
		state.SetClientID(scope, remote.clientID)
		state.SetClientSecret(scope, secret)
	}

	watchDone := make(chan struct{})
	eventCh := bus.SubscribeAll()
	go func() {
		defer close(watchDone)
		progress.Watch(eventCh, progress.NewCLIProgress())
	}()

	discoverer := wizard.NewDiscoverer(state, client, bus)
	err = discoverer.Discover(GetContext(), scope)
	bus.Close()
	<-watchDone

	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}
	return state, nil
}

// newBackendsDiscoverCmd creates the 'backends discover' command.
func newBackendsDiscoverCmd() *cobra.Command {
	var backendType string
	var remote remoteFlags

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List the eligible backends of an installation",
		Long: `Discover the storage backends a new pool could be built on.

Backends are listed only when they are available and have at least one
capacity unit (ASD) attached. Use --remote-host to discover against a
remote installation; the local one relays the calls.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := runDiscovery(backendType, remote)
			if err != nil {
				return err
			}

			backends := state.Backends(wizard.ScopePrimary)
			if len(backends) == 0 {
				fmt.Println("No eligible backends found.")
				return nil
			}

			chosen := state.ChosenBackend(wizard.ScopePrimary)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tGUID\tPRESETS\t")
			for _, b := range backends {
				marker := ""
				if chosen != nil && chosen.GUID == b.GUID {
					marker = " *"
				}
				fmt.Fprintf(w, "%s%s\t%s\t%d\t\n", b.Name, marker, b.GUID, len(b.Presets))
			}
			w.Flush()
			fmt.Println("\n(* = default selection)")
			return nil
		},
	}

	cmd.Flags().StringVarP(&backendType, "type", "t", constants.BackendTypeAlba, "Backend type filter ("+strings.Join(constants.BackendTypes, ", ")+")")
	addRemoteFlags(cmd, &remote)

	return cmd
}

// newBackendsPresetsCmd creates the 'backends presets' command.
func newBackendsPresetsCmd() *cobra.Command {
	var backendType string
	var backendName string
	var remote remoteFlags

	cmd := &cobra.Command{
		Use:   "presets",
		Short: "Show the presets of a discovered backend",
		Long: `Discover the backends of an installation and print the presets of one of
them: colour-coded policy status, replication factor, compression and
encryption settings.

Without --backend the first discovered backend (the wizard's default
selection) is shown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := runDiscovery(backendType, remote)
			if err != nil {
				return err
			}

			if backendName != "" {
				for _, b := range state.Backends(wizard.ScopePrimary) {
					if b.Name == backendName || b.GUID == backendName {
						state.SelectBackend(wizard.ScopePrimary, b.GUID)
						break
					}
				}
			}

			backend := state.ChosenBackend(wizard.ScopePrimary)
			if backend == nil {
				return fmt.Errorf("no backend to show (requested %q)", backendName)
			}

			presets := wizard.EnhancePresets(backend.Presets)
			if len(presets) == 0 {
				fmt.Printf("Backend %s has no presets.\n", backend.Name)
				return nil
			}

			fmt.Printf("Presets of backend %s (%s):\n\n", backend.Name, backend.GUID)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSTATUS\tPOLICIES\tREPLICATION\tCOMPRESSION\tENCRYPTION\t")
			for _, p := range presets {
				replication := "-"
				if p.ReplicationFactor > 0 {
					replication = fmt.Sprintf("%dx", p.ReplicationFactor)
				}
				policies := make([]string, 0, len(p.Policies))
				for _, policy := range p.Policies {
					policies = append(policies, policy.Text)
				}
				status := string(p.Color)
				if p.InUse {
					status += ", in use"
				}
				if p.IsDefault {
					status += ", default"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
					p.Name, status, strings.Join(policies, " "), replication, p.Compression, p.Encryption)
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&backendType, "type", "t", constants.BackendTypeAlba, "Backend type filter")
	cmd.Flags().StringVarP(&backendName, "backend", "b", "", "Backend name or GUID to show")
	addRemoteFlags(cmd, &remote)

	return cmd
}

// newBackendsCheckS3Cmd creates the 'backends check-s3' command.
func newBackendsCheckS3Cmd() *cobra.Command {
	var params s3check.Params

	cmd := &cobra.Command{
		Use:   "check-s3",
		Short: "Probe an S3-compatible endpoint for reachability",
		Long: `Check that an S3-compatible object store answers authenticated calls.

Run this before pointing a ceph_s3, amazon_s3 or swift_s3 pool at the
endpoint: a typo in the endpoint or credentials surfaces here instead of
during the first volume write. With --bucket the probe heads that bucket,
otherwise it lists the buckets the credentials can see.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if params.SecretKey == "" {
				params.SecretKey, err = promptSecret("S3 secret key")
				if err != nil {
					return err
				}
			}

			if err := s3check.Probe(GetContext(), cfg, params); err != nil {
				return err
			}
			fmt.Println("S3 endpoint reachable.")
			return nil
		},
	}

	cmd.Flags().StringVar(&params.Endpoint, "endpoint", "", "S3 endpoint URL, e.g. https://ceph.local:7480")
	cmd.Flags().StringVar(&params.Region, "region", "", "S3 region (defaults to "+s3check.DefaultRegion+")")
	cmd.Flags().StringVar(&params.AccessKey, "access-key", "", "S3 access key")
	cmd.Flags().StringVar(&params.SecretKey, "secret-key", "", "S3 secret key (prompted when omitted)")
	cmd.Flags().StringVar(&params.Bucket, "bucket", "", "Bucket to head instead of listing buckets")
	cmd.MarkFlagRequired("endpoint")
	cmd.MarkFlagRequired("access-key")

	return cmd
}
