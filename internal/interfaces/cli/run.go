package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sysplug.dev/cli/internal/application/services"
	"sysplug.dev/cli/internal/core/capability"
	"sysplug.dev/cli/internal/infrastructure/config"
	"sysplug.dev/cli/pkg/system"
)

// RunFlags holds the flags of the run command
type RunFlags struct {
	Concurrency int
	FailFast    bool
	Describe    bool
	Iterations  int
	Step        time.Duration
}

// NewRunCommand creates the run command
func NewRunCommand(container *CLIContainer) *cobra.Command {
	var flags RunFlags

	cmd := &cobra.Command{
		Use:   "run <manifest.yaml>",
		Short: "Load every system plugin listed in a manifest",
		Long: `Load the system plugins listed in a YAML manifest, configure the systems
that accept configuration and optionally drive their update hooks.

Manifest format:

  plugins:
    - filename: physics
      name: sysplug::systems::Physics
      config:
        gravity: -9.8`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := systemLoader(container)
			if err != nil {
				return err
			}

			manifest, err := config.LoadManifest(args[0])
			if err != nil {
				return err
			}

			concurrency := flags.Concurrency
			if concurrency <= 0 && container.Settings != nil {
				concurrency = container.Settings.Concurrency
			}

			results, batchErr := loader.LoadAll(cmd.Context(), manifest.Plugins, services.BatchOptions{
				Concurrency: concurrency,
				FailFast:    flags.FailFast,
			})

			handles, failed := reportResults(cmd, results)
			for _, h := range handles {
				if err := configureHandle(cmd, h); err != nil {
					return err
				}
			}

			if flags.Iterations > 0 {
				if err := stepSystems(cmd.Context(), handles, flags.Iterations, flags.Step); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Ran %d iterations over %d systems\n", flags.Iterations, len(handles))
			}

			if flags.Describe {
				fmt.Fprintln(cmd.OutOrStdout())
				fmt.Fprint(cmd.OutOrStdout(), loader.DescribeLoadedPlugins())
			}

			if failed > 0 {
				if batchErr != nil {
					return fmt.Errorf("%d of %d system plugins failed to load: %w", failed, len(results), batchErr)
				}
				return fmt.Errorf("%d of %d system plugins failed to load", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&flags.Concurrency, "concurrency", 0, "Maximum parallel loads (default from configuration)")
	cmd.Flags().BoolVar(&flags.FailFast, "fail-fast", false, "Stop starting new loads after the first failure")
	cmd.Flags().BoolVar(&flags.Describe, "describe", false, "Describe loaded plugins afterwards")
	cmd.Flags().IntVar(&flags.Iterations, "iterations", 0, "Drive the update hooks of loaded systems this many times")
	cmd.Flags().DurationVar(&flags.Step, "step", time.Millisecond, "Simulated time per iteration")

	return cmd
}

// reportResults prints one line per manifest entry and returns the loaded
// handles in manifest order.
func reportResults(cmd *cobra.Command, results []services.BatchResult) ([]*capability.Handle, int) {
	out := cmd.OutOrStdout()
	var handles []*capability.Handle
	failed := 0

	for i, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(out, "%s %d: %v\n", errorStyle.Render("❌"), i, r.Err)
			continue
		}
		handles = append(handles, r.Handle)
		fmt.Fprintf(out, "%s %d: %s\n", successStyle.Render("✅"), i, r.Handle)
	}
	return handles, failed
}

// stepSystems runs the pre-update, update and post-update phases in order,
// each across every system that provides it.
func stepSystems(ctx context.Context, handles []*capability.Handle, iterations int, step time.Duration) error {
	for i := 1; i <= iterations; i++ {
		info := system.UpdateInfo{
			SimTime:    time.Duration(i) * step,
			Step:       step,
			Iterations: uint64(i),
		}

		for _, h := range handles {
			if s, ok := h.PreUpdater(); ok {
				if err := s.PreUpdate(ctx, info); err != nil {
					return fmt.Errorf("pre-update of %s: %w", h.Descriptor(), err)
				}
			}
		}
		for _, h := range handles {
			if s, ok := h.Updater(); ok {
				if err := s.Update(ctx, info); err != nil {
					return fmt.Errorf("update of %s: %w", h.Descriptor(), err)
				}
			}
		}
		for _, h := range handles {
			if s, ok := h.PostUpdater(); ok {
				if err := s.PostUpdate(ctx, info); err != nil {
					return fmt.Errorf("post-update of %s: %w", h.Descriptor(), err)
				}
			}
		}
	}
	return nil
}
