// Package cmd provides the CLI commands for searchserver.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/ingestion/loader"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/service"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/logger"
)

type rootOptions struct {
	configPath string
	logLevel   string
	corpusPath string
	cfg        *config.Config
}

// NewRootCmd creates the root command for the searchserver CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "searchserver",
		Short: "In-memory TF-IDF document search server",
		Long: `searchserver indexes short text documents in memory and ranks them
by TF-IDF relevance, with plus and minus query words, stop words,
status filters and parallel execution.

Run 'searchserver serve' for the HTTP API, or query a YAML corpus
directly with 'query', 'match' and 'dedupe'.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.Logging.Level = opts.logLevel
			}
			if opts.corpusPath != "" {
				cfg.Search.CorpusFile = opts.corpusPath
			}
			logger.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Logging level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.corpusPath, "corpus", "", "YAML corpus loaded at startup")

	cmd.AddCommand(
		newServeCmd(opts),
		newQueryCmd(opts),
		newMatchCmd(opts),
		newDedupeCmd(opts),
		newPublishCmd(opts),
		newLoadtestCmd(),
	)
	return cmd
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// buildService creates the engine and executor from cfg, wraps them in a
// service and loads the configured corpus into it. Stop words from the
// config win over the corpus file's.
func buildService(ctx context.Context, cfg *config.Config, opts ...service.Option) (*service.Service, error) {
	corpus := &loader.Corpus{}
	if cfg.Search.CorpusFile != "" {
		var err error
		if corpus, err = loader.LoadFile(cfg.Search.CorpusFile); err != nil {
			return nil, err
		}
	}
	stopWords := cfg.Search.StopWords
	if stopWords == "" {
		stopWords = corpus.StopWords
	}

	engine, err := indexer.NewEngine(stopWords, indexer.WithWorkers(cfg.Search.Workers))
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	exec := executor.New(engine,
		executor.WithWorkers(cfg.Search.Workers),
		executor.WithShardCount(cfg.Search.ShardCount),
		executor.WithChunkSize(cfg.Search.ChunkSize),
	)
	opts = append([]service.Option{
		service.WithRequestWindow(cfg.Search.RequestWindow),
		service.WithPageSize(cfg.Search.PageSize),
	}, opts...)
	svc := service.New(engine, exec, opts...)

	if _, err := corpus.Apply(ctx, svc); err != nil {
		return nil, fmt.Errorf("loading corpus: %w", err)
	}
	return svc, nil
}

func policyOf(parallel bool) executor.Policy {
	if parallel {
		return executor.Parallel
	}
	return executor.Sequential
}
