package cli

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"sysplug.dev/cli/internal/application/services"
	"sysplug.dev/cli/internal/infrastructure/config"
)

var (
	Version   = "dev"     // Overridden by ldflags
	BuildTime = "unknown" // Overridden by ldflags
)

// Overrides are the persistent flags that take precedence over the
// configuration file and environment.
type Overrides struct {
	ConfigPath  string
	Debug       bool
	Backend     string
	PluginPaths []string
}

// CLIContainer holds all the dependencies for CLI commands. The fields are
// populated by MainContainer once the persistent flags are parsed.
type CLIContainer struct {
	Settings      *config.Settings
	SystemLoader  *services.SystemLoader
	Logger        hclog.Logger
	MainContainer interface{} // Will be set to *di.Container, avoiding circular import
}

// NewRootCommand RootCommand represents the base command when called without any subcommands
func NewRootCommand(container *CLIContainer) *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "sysplug",
		Short: "sysplug - system plugin resolution and instantiation",
		Long: `sysplug locates system plugin libraries on the system plugin search path,
loads them and instantiates the systems they export.

The search path is assembled from $SYSPLUG_SYSTEM_PLUGIN_PATH, directories
registered with --plugin-path or the configuration file, ~/.sysplug/plugins
and the install directory, in that order.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initializeContainer(cmd, container); err != nil {
				return fmt.Errorf("failed to initialize: %w", err)
			}
			return nil
		},
	}

	// Set custom version template
	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} version {{.Version}}\nBuild time: %s\nGo version: %s\nPlatform: %s/%s\n",
		BuildTime, goVersion(), runtime.GOOS, runtime.GOARCH))

	// Add persistent flags
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("config", "", "Config file path (default is $HOME/.sysplug/config.yaml)")
	rootCmd.PersistentFlags().StringArray("plugin-path", nil, "Additional system plugin directory (repeatable)")
	rootCmd.PersistentFlags().String("backend", "", "Loader backend: native or rpc")

	// Add subcommands
	rootCmd.AddCommand(NewPathsCommand(container))
	rootCmd.AddCommand(NewFindCommand(container))
	rootCmd.AddCommand(NewLoadCommand(container))
	rootCmd.AddCommand(NewRunCommand(container))

	return rootCmd
}

// goVersion returns the Go version used to build the binary
func goVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.GoVersion
	}
	return "unknown"
}

// initializeContainer hands the persistent flags to the main container
func initializeContainer(cmd *cobra.Command, container *CLIContainer) error {
	mainContainer, ok := container.MainContainer.(interface {
		Initialize(Overrides) error
	})
	if !ok {
		return nil
	}

	var o Overrides
	o.ConfigPath, _ = cmd.Flags().GetString("config")
	o.Debug, _ = cmd.Flags().GetBool("debug")
	o.PluginPaths, _ = cmd.Flags().GetStringArray("plugin-path")
	if cmd.Flags().Changed("backend") {
		o.Backend, _ = cmd.Flags().GetString("backend")
	}

	return mainContainer.Initialize(o)
}

// Execute runs the root command. The returned error has already been
// printed.
func Execute(ctx context.Context, container *CLIContainer) error {
	rootCmd := NewRootCommand(container)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), errorStyle.Render("Error: "+err.Error()))
		return err
	}
	return nil
}
