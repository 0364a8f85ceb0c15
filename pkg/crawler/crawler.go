// Package crawler drives a breadth-first crawl: it fetches URLs from a
// frontier, hands each FetchResult to the decision engine, and queues the
// links the engine returns.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"crawl-core/pkg/config"
	"crawl-core/pkg/engine"
	"crawl-core/pkg/fetch"
	"crawl-core/pkg/models"
	"crawl-core/pkg/parse"
	"crawl-core/pkg/queue"
	"crawl-core/pkg/scope"
	"crawl-core/pkg/sitemap"
	"crawl-core/pkg/utils"
)

// Options controls one crawl run
type Options struct {
	Seeds            []string
	Sitemaps         []string      // Sitemap URLs whose pages are added as seeds
	MaxDepth         int           // 0 = unlimited
	MaxPages         int           // Cap on URLs ever queued; 0 = unlimited
	Workers          int           // 0 = AppConfig.NumWorkers
	ProgressInterval time.Duration // 0 disables progress logging
}

// Summary describes a finished crawl
type Summary struct {
	Seeds       int
	Queued      int64
	Fetched     int64
	FetchErrors int64
	Admitted    int64
	Dropped     int // Queued URLs discarded on cancellation
	Duration    time.Duration
}

// Crawler fetches pages and feeds them through one engine
type Crawler struct {
	log     *logrus.Entry
	engine  *engine.Engine
	fetcher fetch.HTTPFetcher
	filter  *scope.Filter
	pq      *queue.Frontier
	output  *DecisionLog
	opts    Options

	wg       sync.WaitGroup // One count per queued item not yet processed
	enqueued sync.Map       // Normalized URLs ever queued

	queued      atomic.Int64
	fetched     atomic.Int64
	fetchErrors atomic.Int64
	admitted    atomic.Int64
}

// New creates a Crawler. output may be nil.
func New(cfg *config.AppConfig, eng *engine.Engine, fetcher fetch.HTTPFetcher, output *DecisionLog, opts Options, baseLogger *logrus.Entry) (*Crawler, error) {
	filter, err := scope.New(cfg)
	if err != nil {
		return nil, err
	}
	if opts.Workers <= 0 {
		opts.Workers = cfg.NumWorkers
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	logger := baseLogger.WithField("component", "crawler")
	return &Crawler{
		log:     logger,
		engine:  eng,
		fetcher: fetcher,
		filter:  filter,
		pq:      queue.NewFrontier(logger),
		output:  output,
		opts:    opts,
	}, nil
}

// Run crawls until the frontier is exhausted or ctx is cancelled. The
// returned error is ctx's error on cancellation, or a setup failure.
func (c *Crawler) Run(ctx context.Context) (Summary, error) {
	startTime := time.Now()
	summary := Summary{}

	seeds := c.validSeeds(c.opts.Seeds)
	if len(c.opts.Sitemaps) > 0 {
		collector := sitemap.NewCollector(c.fetcher, 0, c.log)
		for _, smURL := range c.opts.Sitemaps {
			pages, err := collector.Collect(ctx, smURL)
			if err != nil {
				if ctx.Err() != nil {
					return summary, ctx.Err()
				}
				c.log.Warnf("Sitemap '%s' unusable: %v", smURL, err)
				continue
			}
			seeds = append(seeds, c.validSeeds(pages)...)
		}
	}

	for _, seed := range seeds {
		if c.enqueue(models.WorkItem{URL: seed, Depth: 0}) {
			summary.Seeds++
		}
	}
	if summary.Seeds == 0 {
		return summary, fmt.Errorf("%w: no valid in-scope seed URLs", utils.ErrConfigValidation)
	}
	c.log.Infof("Crawl starting with %d seed(s) and %d worker(s)", summary.Seeds, c.opts.Workers)

	var workers sync.WaitGroup
	for i := 1; i <= c.opts.Workers; i++ {
		workers.Add(1)
		go func(workerLog *logrus.Entry) {
			defer workers.Done()
			c.worker(ctx, workerLog)
		}(c.log.WithField("worker_id", i))
	}

	stopProgress := c.startProgress(ctx)

	tasksDone := make(chan struct{})
	go func() { c.wg.Wait(); close(tasksDone) }()
	select {
	case <-tasksDone:
		c.log.Info("Frontier exhausted")
		c.pq.Close()
	case <-ctx.Done():
		summary.Dropped = c.pq.Drain()
		c.wg.Add(-summary.Dropped)
		c.log.Warnf("Crawl cancelled (%v), dropped %d queued URL(s)", ctx.Err(), summary.Dropped)
	}
	workers.Wait()
	stopProgress()

	summary.Queued = c.queued.Load()
	summary.Fetched = c.fetched.Load()
	summary.FetchErrors = c.fetchErrors.Load()
	summary.Admitted = c.admitted.Load()
	summary.Duration = time.Since(startTime)

	c.log.WithFields(logrus.Fields{
		"fetched":      summary.Fetched,
		"admitted":     summary.Admitted,
		"fetch_errors": summary.FetchErrors,
		"duration":     summary.Duration.String(),
	}).Info("Crawl finished")

	return summary, ctx.Err()
}

// validSeeds normalizes and scope-checks seed URLs, dropping repeats
func (c *Crawler) validSeeds(raw []string) []string {
	var out []string
	seen := make(map[string]bool, len(raw))
	for _, s := range raw {
		normalized, u, err := parse.ParseAndNormalize(s)
		if err != nil {
			c.log.Warnf("Invalid seed '%s': %v. Skipping.", s, err)
			continue
		}
		if err := c.filter.Check(u); err != nil {
			c.log.Warnf("Seed '%s' out of scope: %v. Skipping.", s, err)
			continue
		}
		if !seen[normalized] {
			seen[normalized] = true
			out = append(out, normalized)
		}
	}
	return out
}

// enqueue queues item unless it was queued before or the page budget is spent
func (c *Crawler) enqueue(item models.WorkItem) bool {
	if _, loaded := c.enqueued.LoadOrStore(item.URL, struct{}{}); loaded {
		return false
	}
	if n := c.queued.Add(1); c.opts.MaxPages > 0 && n > int64(c.opts.MaxPages) {
		c.queued.Add(-1)
		return false
	}
	c.wg.Add(1)
	if !c.pq.Add(item) {
		c.wg.Done()
		return false
	}
	return true
}

func (c *Crawler) worker(ctx context.Context, workerLog *logrus.Entry) {
	workerLog.Debug("Worker starting")
	defer workerLog.Debug("Worker finished")

	for {
		item, ok := c.pq.Pop()
		if !ok {
			return
		}
		c.processItem(ctx, item, workerLog)
		c.wg.Done()
	}
}

// processItem runs one fetch-decide-enqueue step. Panics are contained to
// the item.
func (c *Crawler) processItem(ctx context.Context, item models.WorkItem, workerLog *logrus.Entry) {
	taskLog := workerLog.WithFields(logrus.Fields{"url": item.URL, "depth": item.Depth})
	defer func() {
		if r := recover(); r != nil {
			taskLog.WithFields(logrus.Fields{
				"panic_info":  r,
				"stack_trace": string(debug.Stack()),
			}).Error("PANIC recovered in crawl worker")
		}
	}()

	// A closed engine rejects everything, so the fetch would be wasted
	if ctx.Err() != nil || c.engine.Closed() {
		return
	}

	result, fetchErr := c.fetcher.Fetch(ctx, item.URL)
	if fetchErr != nil {
		if ctx.Err() != nil {
			return
		}
		c.fetchErrors.Add(1)
		taskLog.WithField("category", utils.CategorizeError(fetchErr)).Warnf("Fetch failed: %v", fetchErr)
		// The engine still records the URL; a response-less result is dead.
		result = models.FetchResult{URL: item.URL}
	} else {
		c.fetched.Add(1)
	}

	out, err := c.engine.ProcessPage(item.URL, result)
	if err != nil {
		if !errors.Is(err, utils.ErrEngineClosed) {
			taskLog.Errorf("Engine failed: %v", err)
		}
		return
	}
	c.output.Record(item, result.Status, out, fetchErr)

	if !out.Verdict.Admitted {
		return
	}
	c.admitted.Add(1)
	taskLog.WithFields(logrus.Fields{"words": out.WordCount, "links": len(out.Links)}).Info("Page admitted")

	if c.opts.MaxDepth > 0 && item.Depth >= c.opts.MaxDepth {
		return
	}
	for _, link := range out.Links {
		c.enqueue(models.WorkItem{URL: link, Depth: item.Depth + 1})
	}
}

// startProgress logs crawl progress periodically until the returned stop
// function is called
func (c *Crawler) startProgress(ctx context.Context) (stop func()) {
	if c.opts.ProgressInterval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	ticker := time.NewTicker(c.opts.ProgressInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.log.WithFields(logrus.Fields{
					"queue_len": c.pq.Len(),
					"queued":    c.queued.Load(),
					"fetched":   c.fetched.Load(),
					"admitted":  c.admitted.Load(),
				}).Info("Crawl progress")
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}
