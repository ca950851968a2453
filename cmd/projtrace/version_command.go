package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"projtrace/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the program version written into cache records",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "projtrace %s\n", version.Current())
			return nil
		},
	}
}
