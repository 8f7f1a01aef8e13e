package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newMatchCmd(root *rootOptions) *cobra.Command {
	var (
		id       int
		parallel bool
		all      bool
		format   string
	)

	cmd := &cobra.Command{
		Use:   "match <words...>",
		Short: "Show which query words occur in a document",
		Long: `Show which plus words of a query occur in a document. A minus word
present in the document empties the result.

Examples:
  searchserver match --corpus docs.yaml --id 2 -- fluffy cat -collar
  searchserver match --corpus docs.yaml --all curly cat`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && !cmd.Flags().Changed("id") {
				return fmt.Errorf("either --id or --all is required")
			}
			svc, err := buildService(cmd.Context(), root.cfg)
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")
			ids := []int{id}
			if all {
				ids = svc.DocumentIDs()
			}

			type row struct {
				ID     int      `json:"id"`
				Words  []string `json:"words"`
				Status string   `json:"status"`
			}
			rows := make([]row, 0, len(ids))
			for _, docID := range ids {
				res, err := svc.Match(cmd.Context(), query, docID, policyOf(parallel))
				if err != nil {
					return err
				}
				rows = append(rows, row{ID: docID, Words: res.Words, Status: res.Status.String()})
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				return writeJSON(out, rows)
			}
			for _, r := range rows {
				fmt.Fprintf(out, "{ document_id = %d, status = %s, words = %s }\n", r.ID, r.Status, strings.Join(r.Words, " "))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&id, "id", 0, "Document id to match against")
	cmd.Flags().BoolVar(&all, "all", false, "Match against every document")
	cmd.Flags().BoolVarP(&parallel, "parallel", "p", false, "Match with the parallel executor")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}
