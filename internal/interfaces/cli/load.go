package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"sysplug.dev/cli/internal/core/capability"
	"sysplug.dev/cli/internal/core/descriptor"
	"sysplug.dev/cli/pkg/system"
)

// LoadFlags holds the flags of the load command
type LoadFlags struct {
	Set      []string
	Describe bool
}

// NewLoadCommand creates the load command
func NewLoadCommand(container *CLIContainer) *cobra.Command {
	var flags LoadFlags

	cmd := &cobra.Command{
		Use:   "load <filename> <name>",
		Short: "Load a single system plugin",
		Long: `Resolve <filename> on the system plugin search path, load it and
instantiate the entry point <name>. Systems that accept configuration are
configured with the --set values.`,
		Example: `  sysplug load physics sysplug::systems::Physics --set gravity=-9.8
  sysplug load /opt/plugins/libsensors.so Sensors --describe`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := systemLoader(container)
			if err != nil {
				return err
			}

			cfg, err := parseSetFlags(flags.Set)
			if err != nil {
				return err
			}

			h, err := loader.TryLoad(cmd.Context(), descriptor.New(args[0], args[1], cfg))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printHandle(out, h)
			if err := configureHandle(cmd, h); err != nil {
				return err
			}

			if flags.Describe {
				fmt.Fprintln(out)
				fmt.Fprint(out, loader.DescribeLoadedPlugins())
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&flags.Set, "set", nil, "Configuration value as key=value (repeatable)")
	cmd.Flags().BoolVar(&flags.Describe, "describe", false, "Describe loaded plugins afterwards")

	return cmd
}

// parseSetFlags turns key=value pairs into a configuration payload. Values
// are decoded as YAML scalars so numbers and booleans keep their type.
func parseSetFlags(pairs []string) (system.Config, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	cfg := make(system.Config, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set value %q (expected key=value)", pair)
		}

		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil || value == nil {
			value = raw
		}
		cfg[key] = value
	}
	return cfg, nil
}

func printHandle(out io.Writer, h *capability.Handle) {
	fmt.Fprintf(out, "%s %s\n", successStyle.Render("✅ Loaded"), h)
	fmt.Fprintf(out, "   %s %s\n", mutedStyle.Render("path:"), h.Path())
}

// configureHandle hands the descriptor's configuration to systems that
// accept it.
func configureHandle(cmd *cobra.Command, h *capability.Handle) error {
	c, ok := h.Configurer()
	if !ok {
		return nil
	}
	if err := c.Configure(cmd.Context(), h.Descriptor().Config()); err != nil {
		return fmt.Errorf("failed to configure %s: %w", h.Descriptor(), err)
	}
	return nil
}
