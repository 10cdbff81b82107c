package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/openvstorage/vpool-wizard/internal/validation"
)

// newValidateCmd creates the 'validate' command.
//
// The same predicates gate the wizard fields; the command exists so scripts
// can pre-check values before feeding them in.
func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <kind> <value>",
		Short: "Check a value against the wizard field rules",
		Long: `Validate a value against the field rules of the pool wizard.

Kinds:
  name          pool name (3-22 lowercase chars, digits and dashes)
  backend-name  backend name (up to 50 chars)
  preset-name   preset name (3-20 mixed-case chars, dashes, underscores)
  ip            IPv4 dotted quad
  host          IPv4 address or dotted hostname
  port          TCP port (1-65535)
  guid          platform GUID

Exits non-zero when the value is invalid.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, value := args[0], args[1]

			var valid bool
			switch kind {
			case "name":
				valid = validation.ValidateName(value)
			case "backend-name":
				valid = validation.ValidateBackendName(value)
			case "preset-name":
				valid = validation.ValidatePresetName(value)
			case "ip":
				valid = validation.ValidateIP(value)
			case "host":
				valid = validation.ValidateHost(value)
			case "port":
				port, err := strconv.Atoi(value)
				valid = err == nil && validation.ValidatePort(port)
			case "guid":
				valid = validation.ValidateGUID(value)
			default:
				return fmt.Errorf("unknown kind %q", kind)
			}

			if !valid {
				return fmt.Errorf("%q is not a valid %s", value, kind)
			}
			fmt.Printf("%q is a valid %s\n", value, kind)
			return nil
		},
	}

	return cmd
}
