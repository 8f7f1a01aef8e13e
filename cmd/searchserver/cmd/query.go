package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/service"
)

type queryOptions struct {
	status   string
	parallel bool
	each     bool
	page     int
	pageSize int
	format   string
}

func newQueryCmd(root *rootOptions) *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query <words...>",
		Short: "Find the top documents of the corpus for a query",
		Long: `Find the top documents of the corpus for a query.

Words prefixed with '-' exclude every document containing them. Put
the query after '--' when it contains minus words.

Examples:
  searchserver query --corpus docs.yaml -- curly cat -collar
  searchserver query --corpus docs.yaml --status banned groomed
  searchserver query --corpus docs.yaml --each -- cat "dog -fluffy"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := index.ParseStatus(opts.status)
			if err != nil {
				return err
			}
			svc, err := buildService(cmd.Context(), root.cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if opts.each {
				results, err := svc.ProcessQueries(cmd.Context(), args)
				if err != nil {
					return err
				}
				if opts.format == "json" {
					return writeJSON(out, results)
				}
				for i, docs := range results {
					fmt.Fprintf(out, "Results for query: %s\n", args[i])
					printDocs(out, docs)
				}
				return nil
			}

			res, err := svc.Search(cmd.Context(), service.SearchRequest{
				Query:    strings.Join(args, " "),
				Status:   status,
				Policy:   policyOf(opts.parallel),
				Page:     opts.page,
				PageSize: opts.pageSize,
			})
			if err != nil {
				return err
			}
			if opts.format == "json" {
				return writeJSON(out, res)
			}
			printDocs(out, res.Documents)
			if res.TotalPages > 1 {
				fmt.Fprintf(out, "page %d of %d\n", res.Page, res.TotalPages)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.status, "status", "ACTUAL", "Only documents with this status: actual, irrelevant, banned, removed")
	cmd.Flags().BoolVarP(&opts.parallel, "parallel", "p", false, "Rank with the parallel executor")
	cmd.Flags().BoolVar(&opts.each, "each", false, "Treat every argument as a separate query and run them as a batch")
	cmd.Flags().IntVar(&opts.page, "page", 1, "Page of results to print")
	cmd.Flags().IntVar(&opts.pageSize, "page-size", 0, "Results per page (default from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	return cmd
}

func printDocs(w io.Writer, docs []ranker.ScoredDoc) {
	for _, d := range docs {
		fmt.Fprintf(w, "{ document_id = %d, relevance = %g, rating = %d }\n", d.ID, d.Relevance, d.Rating)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
