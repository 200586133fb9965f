// Command nuberd runs a ride-dispatch simulation: it builds a dispatcher
// from config, seeds a worker roster, submits a paced batch of randomized
// requests across the configured regions, waits for every result and prints
// a per-region summary.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nuberhq/nuber/dispatch"
	"github.com/nuberhq/nuber/internal/config"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, logger)
	}

	opts := []dispatch.Option{
		dispatch.WithAcquireTimeout(cfg.AcquireTimeout),
		dispatch.WithAcquireAttempts(cfg.AcquireAttempts),
		dispatch.WithGracePeriod(cfg.GracePeriod),
		dispatch.WithEventLogging(cfg.LogEvents),
	}
	if !cfg.LogEvents {
		opts = append(opts, dispatch.WithEventLog(dispatch.NewSlogEvents(logger)))
	}

	d, err := dispatch.NewDispatcher(cfg.Regions, opts...)
	if err != nil {
		log.Fatalf("failed to build dispatcher: %v", err)
	}

	for i := range cfg.Workers {
		d.AddWorker(dispatch.NewWorker(fmt.Sprintf("worker-%d", i+1), cfg.MaxPickupDelay))
	}

	banner := color.New(color.FgGreen, color.Bold)
	_, _ = banner.Printf("nuberd: %d regions, %d workers, %d requests at %.0f req/s\n",
		len(cfg.Regions), cfg.Workers, cfg.Requests, cfg.SubmitRate)

	futures := submitLoad(cfg, d, logger)
	summary := collectResults(futures)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GracePeriod+5*time.Second)
	defer cancel()
	if err := d.Shutdown(ctx); err != nil {
		logger.Warn("shutdown finished with abandoned jobs", "error", err)
	}

	renderSummary(summary, cfg)
}

// submitLoad submits cfg.Requests randomized requests round-robin-ish over
// the regions, paced by a rate limiter, and returns the result handles
// keyed by region.
func submitLoad(cfg *config.Config, d *dispatch.Dispatcher, logger *slog.Logger) map[string][]*dispatch.Future {
	names := make([]string, 0, len(cfg.Regions))
	for name := range cfg.Regions {
		names = append(names, name)
	}
	sort.Strings(names)

	limiter := rate.NewLimiter(rate.Limit(cfg.SubmitRate), 1)

	var mu sync.Mutex
	futures := make(map[string][]*dispatch.Future, len(names))

	var g errgroup.Group
	g.SetLimit(8)
	for i := range cfg.Requests {
		g.Go(func() error {
			if err := limiter.Wait(context.Background()); err != nil {
				return err
			}

			region := names[i%len(names)]
			req := dispatch.NewRequest(
				fmt.Sprintf("rider-%d", i+1),
				rand.N(cfg.MaxRequestDuration),
			)

			future, err := d.Submit(req, region)
			if err != nil {
				logger.Error("submit rejected", "request", req.Name, "region", region, "error", err)
				return nil
			}

			mu.Lock()
			futures[region] = append(futures[region], future)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return futures
}

type regionSummary struct {
	region    string
	completed int
	failed    int
	total     time.Duration
}

// collectResults blocks on every future, advancing a progress bar as
// results land.
func collectResults(futures map[string][]*dispatch.Future) []regionSummary {
	submitted := 0
	for _, fs := range futures {
		submitted += len(fs)
	}

	bar := progressbar.NewOptions(submitted,
		progressbar.OptionSetDescription("Completing rides"),
		progressbar.OptionSetWidth(50),
		progressbar.OptionShowCount(),
	)

	names := make([]string, 0, len(futures))
	for name := range futures {
		names = append(names, name)
	}
	sort.Strings(names)

	summaries := make([]regionSummary, 0, len(names))
	for _, name := range names {
		s := regionSummary{region: name}
		for _, f := range futures[name] {
			res := f.Get()
			if res.Failed() {
				s.failed++
			} else {
				s.completed++
				s.total += res.Elapsed
			}
			_ = bar.Add(1)
		}
		summaries = append(summaries, s)
	}
	fmt.Println()

	return summaries
}

func renderSummary(summaries []regionSummary, cfg *config.Config) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Region", "Capacity", "Completed", "Failed", "Avg Trip")

	for _, s := range summaries {
		avg := "-"
		if s.completed > 0 {
			avg = (s.total / time.Duration(s.completed)).Round(time.Millisecond).String()
		}
		_ = table.Append(
			s.region,
			fmt.Sprintf("%d", cfg.Regions[s.region]),
			fmt.Sprintf("%d", s.completed),
			fmt.Sprintf("%d", s.failed),
			avg,
		)
	}

	if err := table.Render(); err != nil {
		color.Red("error rendering summary table: %v", err)
	}
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", "error", err)
	}
}
