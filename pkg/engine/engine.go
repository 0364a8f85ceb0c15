// Package engine decides, for each fetched page, which outbound links are
// worth crawling next, and keeps the crawl-wide state behind that decision.
package engine

import (
	"context"
	"fmt"
	"net/url"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"crawl-core/pkg/config"
	"crawl-core/pkg/detect"
	"crawl-core/pkg/markup"
	"crawl-core/pkg/models"
	"crawl-core/pkg/parse"
	"crawl-core/pkg/process"
	"crawl-core/pkg/scope"
	"crawl-core/pkg/stats"
	"crawl-core/pkg/storage"
	"crawl-core/pkg/utils"
)

// Engine runs the admission pipeline. All methods are safe for concurrent use.
type Engine struct {
	runID string
	ctx   context.Context // Run-scoped; cancellation stops new calls
	log   *logrus.Entry

	// lifecycle is held shared by every in-flight call and exclusively by Close,
	// so Close waits for in-flight calls before releasing the visited store.
	lifecycle sync.RWMutex
	closed    bool

	visited   storage.VisitedStore
	filter    *scope.Filter
	parser    markup.Parser
	links     *process.LinkExtractor
	traps     *detect.TrapDetector
	dedup     *detect.ContentDeduplicator
	quality   *detect.QualityGate
	stats     *stats.Aggregator
	stopWords map[string]struct{}
	topWords  int

	counters map[models.Reason]*atomic.Int64 // Keys fixed at construction
}

// Option customizes an Engine
type Option func(*Engine)

// WithParser replaces the default goquery markup parser
func WithParser(p markup.Parser) Option {
	return func(e *Engine) { e.parser = p }
}

// WithVisitedStore supplies the visited set instead of opening one from config.
// The engine takes ownership and closes it.
func WithVisitedStore(s storage.VisitedStore) Option {
	return func(e *Engine) { e.visited = s }
}

// New creates an Engine with empty state for one run. cfg is validated (and
// defaulted) in place; warnings are logged.
func New(ctx context.Context, cfg *config.AppConfig, logger *logrus.Entry, opts ...Option) (*Engine, error) {
	warnings, err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := logger.WithField("run_id", runID)
	for _, w := range warnings {
		log.Warn(w)
	}

	filter, err := scope.New(cfg)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		runID:     runID,
		ctx:       ctx,
		log:       log,
		filter:    filter,
		traps:     detect.NewTrapDetector(cfg.TrapThreshold),
		dedup:     detect.NewContentDeduplicator(),
		quality:   detect.NewQualityGate(cfg.MinWords),
		stats:     stats.NewAggregator(),
		stopWords: cfg.StopWordSet(),
		topWords:  cfg.TopWords,
		counters:  make(map[models.Reason]*atomic.Int64, len(models.AllReasons)+1),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.parser == nil {
		e.parser = markup.NewGoqueryParser(log)
	}
	if e.visited == nil {
		e.visited, err = storage.Open(ctx, cfg.VisitedBackend, log)
		if err != nil {
			return nil, err
		}
	}
	e.links = process.NewLinkExtractor(filter, log)

	e.counters[models.ReasonAdmitted] = &atomic.Int64{}
	for _, r := range models.AllReasons {
		e.counters[r] = &atomic.Int64{}
	}

	log.WithFields(logrus.Fields{
		"visited_backend": cfg.VisitedBackend,
		"trap_threshold":  e.traps.Threshold(),
		"min_words":       e.quality.MinWords(),
	}).Debug("Crawl engine initialized")
	return e, nil
}

// RunID identifies this engine's run in logs and reports
func (e *Engine) RunID() string { return e.runID }

// Process returns the normalized in-scope links of an admitted page, or an
// empty list when any gate rejects it. The error is non-nil only when the
// engine is closed or the pipeline itself failed.
func (e *Engine) Process(rawURL string, r models.FetchResult) ([]string, error) {
	out, err := e.ProcessPage(rawURL, r)
	return out.Links, err
}

// ProcessPage is Process with the full decision attached
func (e *Engine) ProcessPage(rawURL string, r models.FetchResult) (out models.Outcome, err error) {
	e.lifecycle.RLock()
	defer e.lifecycle.RUnlock()

	if e.closed {
		return out, utils.ErrEngineClosed
	}
	if ctxErr := e.ctx.Err(); ctxErr != nil {
		return out, fmt.Errorf("%w: %w", utils.ErrEngineClosed, ctxErr)
	}

	taskLog := e.log.WithField("url", rawURL)
	startTime := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: panic: %v", utils.ErrInternal, rec)
			out = models.Outcome{}
			taskLog.WithFields(logrus.Fields{
				"panic_info":  rec,
				"stack_trace": string(debug.Stack()),
			}).Error("PANIC recovered in ProcessPage")
			return
		}
		if err == nil && !out.Verdict.Reason.IsValid() {
			err = fmt.Errorf("%w: pipeline ended with unknown reason %q", utils.ErrInternal, string(out.Verdict.Reason))
			out = models.Outcome{}
		}
		if err != nil {
			taskLog.WithField("category", utils.CategorizeError(err)).Warnf("Pipeline failed: %v", err)
			return
		}
		e.counters[out.Verdict.Reason].Add(1)

		logFields := logrus.Fields{"reason": out.Verdict.Reason.String(), "duration": time.Since(startTime).String()}
		if out.Verdict.Admitted {
			logFields["links"] = len(out.Links)
			logFields["words"] = out.WordCount
			taskLog.WithFields(logFields).Debug("Page admitted")
		} else {
			taskLog.WithFields(logFields).Debug("Page rejected")
		}
	}()

	return e.run(rawURL, r, taskLog)
}

// run is the linear admission pipeline. Each gate either rejects with no
// links or falls through. The requested URL is claimed before any other gate
// so that two concurrent calls for one URL cannot both pass.
func (e *Engine) run(rawURL string, r models.FetchResult, taskLog *logrus.Entry) (models.Outcome, error) {
	var out models.Outcome

	// 1. Normalize. The normalized string is the table key; links resolve
	// against the URL as requested, trailing slash intact.
	normalized, base, err := parse.ParseAndNormalize(rawURL)
	if err != nil {
		taskLog.Debugf("Cannot normalize: %v", err)
		out.Verdict = models.Reject(models.ReasonMalformedURL)
		return out, nil
	}
	out.URL = normalized
	out.EffectiveURL = normalized
	requested, err := url.Parse(normalized)
	if err != nil {
		return out, fmt.Errorf("%w: re-parsing normalized URL '%s': %w", utils.ErrInternal, normalized, err)
	}

	// 2. Visited
	added, err := e.visited.MarkVisited(normalized)
	if err != nil {
		return out, err
	}
	if !added {
		out.Verdict = models.Reject(models.ReasonAlreadyVisited)
		return out, nil
	}

	// 3. Trap
	if pattern, count, trap := e.traps.Observe(requested); trap {
		taskLog.WithFields(logrus.Fields{"pattern": pattern, "count": count}).Debug("Trap pattern over threshold")
		out.Verdict = models.Reject(models.ReasonTrap)
		return out, nil
	}

	// 4. Quality
	if v := e.quality.CheckLiveness(r); !v.Admitted {
		out.Verdict = v
		return out, nil
	}
	page := e.parser.Parse(r.Body, r.ContentType())
	text := page.Text
	tokens := process.Tokenize(text)
	out.WordCount = len(tokens)
	if v := e.quality.CheckDensity(out.WordCount); !v.Admitted {
		out.Verdict = v
		return out, nil
	}

	// 5. Effective URL
	effective, linkBase, verdict, err := e.resolveEffective(normalized, base, r)
	if err != nil {
		return out, err
	}
	out.EffectiveURL = effective
	if !verdict.Admitted {
		out.Verdict = verdict
		return out, nil
	}
	effectiveURL, err := url.Parse(effective)
	if err != nil {
		return out, fmt.Errorf("%w: re-parsing effective URL '%s': %w", utils.ErrInternal, effective, err)
	}

	// 6. Duplicate content
	fingerprint, duplicate := e.dedup.CheckAndRecord(text)
	out.Fingerprint = fingerprint
	if duplicate {
		out.Verdict = models.Reject(models.ReasonDuplicate)
		return out, nil
	}

	// 7. Statistics
	e.stats.Record(effective, effectiveURL.Host, out.WordCount, process.ContentWords(tokens, e.stopWords))

	// 8. Links
	out.Links = e.links.Extract(linkBase, page.Hrefs)
	out.Verdict = models.Admit()
	return out, nil
}

// resolveEffective returns the normalized URL the content actually lives at
// and the un-normalized URL its links resolve against. When the fetcher
// followed a redirect, the target is resolved against the response URL, must
// stay in scope, and is claimed in the visited set.
func (e *Engine) resolveEffective(normalized string, requested *url.URL, r models.FetchResult) (string, *url.URL, models.Verdict, error) {
	if r.RedirectedTo == "" {
		return normalized, requested, models.Admit(), nil
	}

	from := requested
	if r.URL != "" {
		if responseURL, err := parse.Resolve(requested, r.URL); err == nil {
			from = responseURL
		}
	}
	targetURL, err := parse.Resolve(from, r.RedirectedTo)
	if err != nil {
		return normalized, requested, models.Reject(models.ReasonMalformedURL), nil
	}
	target := parse.NormalizeURL(targetURL)
	if target == normalized {
		// /dir redirected to /dir/: same page, but links resolve from the target
		return normalized, targetURL, models.Admit(), nil
	}

	normalizedTarget, err := url.Parse(target)
	if err != nil {
		return target, nil, models.Verdict{}, fmt.Errorf("%w: re-parsing redirect target '%s': %w", utils.ErrInternal, target, err)
	}
	if scopeErr := e.filter.Check(normalizedTarget); scopeErr != nil {
		e.log.WithField("url", normalized).Debugf("Redirect target rejected: %v", scopeErr)
		return target, targetURL, models.Reject(models.ReasonOutOfScope), nil
	}

	added, err := e.visited.MarkVisited(target)
	if err != nil {
		return target, targetURL, models.Verdict{}, err
	}
	if !added {
		return target, targetURL, models.Reject(models.ReasonAlreadyVisited), nil
	}
	return target, targetURL, models.Admit(), nil
}

// Close stops accepting calls, waits for in-flight calls, and releases the
// visited store. Report accessors keep working afterwards.
func (e *Engine) Close() error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.log.Debug("Crawl engine closed")
	return e.visited.Close()
}

// Closed reports whether new calls are refused
func (e *Engine) Closed() bool {
	e.lifecycle.RLock()
	defer e.lifecycle.RUnlock()
	return e.closed || e.ctx.Err() != nil
}

// WriteVisitedLog writes every visited URL to filePath. It must be called
// before Close.
func (e *Engine) WriteVisitedLog(filePath string) error {
	e.lifecycle.RLock()
	defer e.lifecycle.RUnlock()
	if e.closed {
		return utils.ErrEngineClosed
	}
	return e.visited.WriteVisitedLog(filePath)
}

// IsVisited reports whether a URL (normalized here) was already claimed
func (e *Engine) IsVisited(rawURL string) (bool, error) {
	normalized, _, err := parse.ParseAndNormalize(rawURL)
	if err != nil {
		return false, err
	}
	e.lifecycle.RLock()
	defer e.lifecycle.RUnlock()
	if e.closed {
		return false, utils.ErrEngineClosed
	}
	return e.visited.IsVisited(normalized)
}

// Counters returns how many calls ended with each reason, including admitted
func (e *Engine) Counters() map[models.Reason]int64 {
	out := make(map[models.Reason]int64, len(e.counters))
	for r, c := range e.counters {
		out[r] = c.Load()
	}
	return out
}

// Longest returns the longest admitted page
func (e *Engine) Longest() models.LongestPage { return e.stats.Longest() }

// Subdomains returns the page count per host, sorted by host
func (e *Engine) Subdomains() []models.SubdomainCount { return e.stats.Subdomains() }

// TopWords returns the n most frequent non-stop words
func (e *Engine) TopWords(n int) []models.WordCount { return e.stats.TopWords(n) }

// TrapPatterns returns the visit count of every path pattern seen
func (e *Engine) TrapPatterns() map[string]int { return e.traps.Counts() }

// Report snapshots all analytics. n <= 0 uses the configured top_words.
func (e *Engine) Report(n int) models.Report {
	if n <= 0 {
		n = e.topWords
	}
	report := e.stats.Snapshot(n)
	report.RunID = e.runID
	report.GeneratedAt = time.Now().UTC()

	visited, err := e.visited.Count()
	if err != nil {
		e.log.Warnf("Counting visited URLs failed: %v", err)
	}
	report.VisitedURLs = visited

	report.Rejections = make(map[string]int64)
	for _, r := range models.AllReasons {
		if c := e.counters[r].Load(); c > 0 {
			report.Rejections[r.String()] = c
		}
	}
	return report
}
