package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sysplug.dev/cli/internal/application/services"
)

var errNotInitialized = errors.New("system loader not initialized")

// NewPathsCommand creates the paths command
func NewPathsCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Show the system plugin search path",
		Long: `Show the combined system plugin search path in resolution order, with
the source each directory came from. Directories that do not exist are
marked but kept, since libraries may be installed later.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := systemLoader(container)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render("System plugin search path"))
			for i, entry := range loader.SearchPaths() {
				line := fmt.Sprintf("%2d. %s %s", i+1, originStyle.Render(string(entry.Origin)), entry.Dir)
				if _, err := os.Stat(entry.Dir); err != nil {
					line += " " + mutedStyle.Render("(missing)")
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}

func systemLoader(container *CLIContainer) (*services.SystemLoader, error) {
	if container == nil || container.SystemLoader == nil {
		return nil, errNotInitialized
	}
	return container.SystemLoader, nil
}
