package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewFindCommand creates the find command
func NewFindCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "find <filename>",
		Short: "Resolve a system plugin library on the search path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := systemLoader(container)
			if err != nil {
				return err
			}

			path, ok := loader.FindLibrary(args[0])
			if !ok {
				return fmt.Errorf("system plugin library %q not found on the search path", args[0])
			}

			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}
