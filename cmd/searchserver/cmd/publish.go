package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/ingestion/loader"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/kafka"
)

type publishOptions struct {
	remove   []int
	parallel bool
	dryRun   bool
}

func newPublishCmd(root *rootOptions) *cobra.Command {
	var opts publishOptions

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish corpus documents and removals to the document topic",
		Long: `Publish every document of the corpus as an add event, followed by a
remove event per --remove id, to the configured Kafka topic. Running
servers apply them through their document consumer.

Examples:
  searchserver publish --corpus docs.yaml
  searchserver publish --remove 3 --remove 7 --parallel
  searchserver publish --corpus docs.yaml --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			events, err := corpusEvents(cfg.Search.CorpusFile, opts)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				return fmt.Errorf("nothing to publish: set --corpus or --remove")
			}

			var sink publisher.Sink
			if opts.dryRun {
				sink = printSink{w: cmd.OutOrStdout()}
			} else {
				producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.Documents)
				defer producer.Close()
				sink = producer
			}
			if err := publisher.New(sink).Publish(cmd.Context(), events...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "published %d events\n", len(events))
			return nil
		},
	}

	cmd.Flags().IntSliceVar(&opts.remove, "remove", nil, "Document id to remove (repeatable)")
	cmd.Flags().BoolVarP(&opts.parallel, "parallel", "p", false, "Request the parallel removal path")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print events as JSON instead of publishing")
	return cmd
}

func corpusEvents(path string, opts publishOptions) ([]ingestion.DocumentEvent, error) {
	var events []ingestion.DocumentEvent
	if path != "" {
		corpus, err := loader.LoadFile(path)
		if err != nil {
			return nil, err
		}
		for _, doc := range corpus.Documents {
			events = append(events, ingestion.DocumentEvent{
				Op:         ingestion.OpAdd,
				DocumentID: doc.ID,
				Text:       doc.Text,
				Status:     doc.Status,
				Ratings:    doc.Ratings,
			})
		}
	}
	for _, id := range opts.remove {
		events = append(events, ingestion.DocumentEvent{
			Op:         ingestion.OpRemove,
			DocumentID: id,
			Parallel:   opts.parallel,
		})
	}
	return events, nil
}

// printSink writes one JSON line per event.
type printSink struct {
	w io.Writer
}

func (s printSink) Publish(_ context.Context, events ...kafka.Event) error {
	for _, ev := range events {
		msgs, err := kafka.EncodeEvents(ev)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.w, "%s\t%s\n", msgs[0].Key, msgs[0].Value)
	}
	return nil
}
