package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDedupeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dedupe",
		Short: "Report documents of the corpus that repeat an earlier word set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService(cmd.Context(), root.cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, id := range svc.RemoveDuplicates(cmd.Context()) {
				fmt.Fprintf(out, "Found duplicate document id %d\n", id)
			}
			fmt.Fprintf(out, "%d documents remain\n", svc.Stats().Documents)
			return nil
		},
	}
}
