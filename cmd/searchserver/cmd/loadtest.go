package cmd

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/spf13/cobra"
)

var defaultLoadQueries = []string{
	"cat",
	"fluffy cat",
	"groomed dog -collar",
	"white cat fashionable collar",
	"expressive eyes",
	"tail -fluffy",
}

type loadtestOptions struct {
	url         string
	concurrency int
	duration    time.Duration
	parallel    bool
	queries     []string
}

func newLoadtestCmd() *cobra.Command {
	var opts loadtestOptions

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Fire search queries at a running server and report latency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.concurrency <= 0 {
				return fmt.Errorf("concurrency must be positive")
			}
			if len(opts.queries) == 0 {
				opts.queries = defaultLoadQueries
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "target %s, %d workers for %s, %d queries\n",
				opts.url, opts.concurrency, opts.duration, len(opts.queries))

			rep := runLoad(cmd.Context(), opts)
			rep.print(out, opts.duration)
			if rep.total == rep.failed {
				return fmt.Errorf("no request succeeded; is the server running at %s?", opts.url)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "http://localhost:8080", "Base URL of the search server")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 10, "Concurrent workers")
	cmd.Flags().DurationVar(&opts.duration, "duration", 30*time.Second, "Test duration")
	cmd.Flags().BoolVarP(&opts.parallel, "parallel", "p", false, "Ask the server for parallel ranking")
	cmd.Flags().StringArrayVarP(&opts.queries, "query", "q", nil, "Query to send (repeatable)")
	return cmd
}

type loadReport struct {
	mu        sync.Mutex
	total     int
	failed    int
	latencies []time.Duration
	codes     map[int]int
}

func (r *loadReport) record(d time.Duration, code int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total++
	if err != nil {
		r.failed++
		return
	}
	if code < 200 || code >= 300 {
		r.failed++
	}
	r.latencies = append(r.latencies, d)
	r.codes[code]++
}

func runLoad(ctx context.Context, opts loadtestOptions) *loadReport {
	rep := &loadReport{codes: make(map[int]int)}
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        opts.concurrency * 2,
			MaxIdleConnsPerHost: opts.concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	defer client.CloseIdleConnections()

	ctx, cancel := context.WithTimeout(ctx, opts.duration)
	defer cancel()

	var wg sync.WaitGroup
	for worker := range opts.concurrency {
		wg.Go(func() {
			for i := worker; ctx.Err() == nil; i++ {
				target := searchURL(opts.url, opts.queries[i%len(opts.queries)], opts.parallel)
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
				if err != nil {
					rep.record(0, 0, err)
					return
				}
				start := time.Now()
				resp, err := client.Do(req)
				if ctx.Err() != nil {
					return
				}
				if err != nil {
					rep.record(time.Since(start), 0, err)
					continue
				}
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				rep.record(time.Since(start), resp.StatusCode, nil)
			}
		})
	}
	wg.Wait()
	return rep
}

func searchURL(base, query string, parallel bool) string {
	v := url.Values{"q": {query}}
	if parallel {
		v.Set("parallel", "true")
	}
	return base + "/api/v1/search?" + v.Encode()
}

func (r *loadReport) print(w io.Writer, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(w, "requests: %d, failed: %d", r.total, r.failed)
	if r.total > 0 {
		fmt.Fprintf(w, ", %.1f req/s", float64(r.total)/d.Seconds())
	}
	fmt.Fprintln(w)
	if len(r.latencies) == 0 {
		return
	}

	lat := slices.Clone(r.latencies)
	slices.Sort(lat)
	var sum time.Duration
	for _, l := range lat {
		sum += l
	}
	fmt.Fprintf(w, "latency: min %s avg %s p50 %s p90 %s p99 %s max %s\n",
		lat[0], sum/time.Duration(len(lat)),
		percentile(lat, 50), percentile(lat, 90), percentile(lat, 99), lat[len(lat)-1])

	codes := make([]int, 0, len(r.codes))
	for code := range r.codes {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, r.codes[code])
	}
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[min(max(idx, 0), len(sorted)-1)]
}
