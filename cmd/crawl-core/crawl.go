package main

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"crawl-core/pkg/crawler"
	"crawl-core/pkg/fetch"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed-url...]",
		Short: "Crawl live sites breadth-first from seed URLs",
		Long:  `Crawl fetches the seed URLs (and the pages listed in any --sitemap), runs
each response through the decision engine and follows the links it admits.

Fetching is a single attempt per URL: there are no retries, no rate limiting
and no robots.txt handling, so only point it at sites you are allowed to load.`,
		Example: `  crawl-core crawl https://www.ics.uci.edu/ --max-pages 200 -o report.md
  crawl-core crawl --sitemap https://www.stat.uci.edu/sitemap.xml --max-depth 2`,
		RunE: runCrawlCmd,
	}
	addOutputFlags(cmd)
	cmd.Flags().StringSlice("sitemap", nil, "Sitemap URL whose pages are used as seeds (repeatable)")
	cmd.Flags().Int("max-depth", 0, "Maximum link depth from a seed (0 = unlimited)")
	cmd.Flags().Int("max-pages", 0, "Maximum number of URLs to fetch (0 = unlimited)")
	cmd.Flags().IntP("workers", "w", 0, "Concurrent fetch workers (default: num_workers from config)")
	cmd.Flags().Duration("progress", 30*time.Second, "Interval between progress log lines (0 disables)")
	return cmd
}

func runCrawlCmd(cmd *cobra.Command, args []string) error {
	sitemaps, _ := cmd.Flags().GetStringSlice("sitemap")
	if len(args) == 0 && len(sitemaps) == 0 {
		return errors.New("at least one seed URL or --sitemap is required")
	}

	env, err := setupRun(cmd)
	if err != nil {
		return err
	}
	entry := logrus.NewEntry(env.log)

	var decisions *crawler.DecisionLog
	if path, _ := cmd.Flags().GetString("decisions"); path != "" {
		decisions, err = crawler.CreateDecisionLog(path, entry)
		if err != nil {
			env.engine.Close()
			return err
		}
		defer decisions.Close()
	}

	opts := crawler.Options{Seeds: args, Sitemaps: sitemaps}
	opts.MaxDepth, _ = cmd.Flags().GetInt("max-depth")
	opts.MaxPages, _ = cmd.Flags().GetInt("max-pages")
	opts.Workers, _ = cmd.Flags().GetInt("workers")
	opts.ProgressInterval, _ = cmd.Flags().GetDuration("progress")

	fetcher := fetch.NewFetcher(fetch.NewClient(env.cfg.HTTPClientSettings, entry), env.cfg, entry)
	c, err := crawler.New(env.cfg, env.engine, fetcher, decisions, opts, entry)
	if err != nil {
		env.engine.Close()
		return err
	}

	_, crawlErr := c.Run(cmd.Context())
	if crawlErr != nil && !errors.Is(crawlErr, context.Canceled) {
		env.engine.Close()
		return crawlErr
	}
	if crawlErr != nil {
		env.log.Warn("Crawl cancelled, report covers the pages processed so far")
	}
	return finishRun(cmd, env)
}
