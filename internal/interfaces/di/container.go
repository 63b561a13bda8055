package di

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"

	"sysplug.dev/cli/internal/application/ports"
	"sysplug.dev/cli/internal/application/services"
	"sysplug.dev/cli/internal/core/searchpath"
	"sysplug.dev/cli/internal/infrastructure/config"
	"sysplug.dev/cli/internal/infrastructure/logging"
	"sysplug.dev/cli/internal/infrastructure/native"
	"sysplug.dev/cli/internal/infrastructure/rpcloader"
	"sysplug.dev/cli/internal/interfaces/cli"
)

// Container holds all application dependencies
type Container struct {
	// Configuration
	ConfigRepo *config.Repository
	Settings   *config.Settings

	// Core services
	Resolver     *searchpath.Resolver
	SystemLoader *services.SystemLoader

	// CLI
	CLIContainer *cli.CLIContainer

	// Logger
	Logger hclog.Logger

	logOutput io.Writer
}

// NewContainer creates the container. Components are built by Initialize
// once the command line has been parsed.
func NewContainer() *Container {
	c := &Container{
		Logger:    logging.Discard(),
		logOutput: os.Stderr,
	}
	c.CLIContainer = &cli.CLIContainer{MainContainer: c}
	return c
}

// Initialize loads the configuration, applies the overrides and wires the
// system loader.
func (c *Container) Initialize(o cli.Overrides) error {
	// 1. Load configuration
	c.ConfigRepo = config.NewRepository(o.ConfigPath)
	settings, err := c.ConfigRepo.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Apply command line overrides
	if o.Backend != "" {
		settings.Backend = o.Backend
	}
	if o.Debug {
		settings.LogLevel = "debug"
	}
	settings.PluginPaths = append(settings.PluginPaths, o.PluginPaths...)
	if err := c.ConfigRepo.Validate(settings); err != nil {
		return fmt.Errorf("invalid command line overrides: %w", err)
	}
	c.Settings = settings

	// 3. Logger
	c.Logger = logging.New(logging.Options{
		Level:  settings.LogLevel,
		Output: c.logOutput,
		JSON:   settings.LogJSON,
	})

	// 4. Search path and loader backend
	naming := searchpath.SharedLibraryNaming
	if settings.Backend == config.BackendRPC {
		naming = searchpath.ExecutableNaming
	}
	c.Resolver = searchpath.NewResolver(searchpath.Options{
		EnvVar:     settings.PluginPathEnv,
		HomeSuffix: settings.HomePluginDir,
		InstallDir: settings.InstallPluginDir,
		Naming:     naming,
	})

	loader, err := c.newDynamicLoader(settings)
	if err != nil {
		return err
	}

	// 5. Application services
	c.SystemLoader = services.NewSystemLoader(c.Resolver, loader, c.Logger.Named("loader"))
	for _, path := range settings.PluginPaths {
		c.SystemLoader.AddSearchPath(path)
	}

	// 6. CLI container
	c.CLIContainer.Settings = c.Settings
	c.CLIContainer.SystemLoader = c.SystemLoader
	c.CLIContainer.Logger = c.Logger

	c.Logger.Debug("container initialized", "backend", settings.Backend, "config", c.ConfigRepo.ConfigPath())
	return nil
}

func (c *Container) newDynamicLoader(settings *config.Settings) (ports.DynamicLoader, error) {
	switch settings.Backend {
	case config.BackendRPC:
		return rpcloader.NewLoader(rpcloader.Options{Logger: c.Logger.Named("rpc")}), nil
	default:
		loader, err := native.NewLoader(native.Options{Logger: c.Logger.Named("native")})
		if err != nil {
			return nil, fmt.Errorf("failed to create native loader: %w", err)
		}
		return loader, nil
	}
}

// GetCLIContainer returns the CLI container for command execution
func (c *Container) GetCLIContainer() *cli.CLIContainer {
	return c.CLIContainer
}

// Shutdown stops plugin processes started by the rpc backend. Native
// libraries stay mapped until the process exits.
func (c *Container) Shutdown(ctx context.Context) error {
	if c.SystemLoader == nil {
		return nil
	}
	if err := c.SystemLoader.Close(); err != nil {
		return fmt.Errorf("failed to stop plugins: %w", err)
	}
	c.Logger.Debug("application shutdown complete")
	return nil
}
