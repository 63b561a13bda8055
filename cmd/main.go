package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"sysplug.dev/cli/internal/interfaces/cli"
	"sysplug.dev/cli/internal/interfaces/di"
)

func main() {
	container := di.NewContainer()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := cli.Execute(ctx, container.GetCLIContainer())
	stop()

	if shutdownErr := container.Shutdown(context.Background()); shutdownErr != nil {
		container.Logger.Error("error during shutdown", "error", shutdownErr)
	}
	if err != nil {
		os.Exit(1)
	}
}
