package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"crawl-core/pkg/crawler"
	"crawl-core/pkg/models"
	"crawl-core/pkg/utils"
)

// maxReplayLine bounds one JSONL record (URL, headers and full body)
const maxReplayLine = 64 * 1024 * 1024

// replayRecord is one line of a replay file. Body is the raw response text.
type replayRecord struct {
	URL          string            `json:"url"`
	Status       int               `json:"status"`
	Headers      map[string]string `json:"headers,omitempty"`
	Body         string            `json:"body"`
	RedirectedTo string            `json:"redirected_to,omitempty"`
}

func (r replayRecord) fetchResult() models.FetchResult {
	return models.FetchResult{
		URL:          r.URL,
		Status:       r.Status,
		Headers:      r.Headers,
		Body:         []byte(r.Body),
		RedirectedTo: r.RedirectedTo,
	}
}

// replayStats counts what happened to the lines of a replay file
type replayStats struct {
	lines    atomic.Int64
	skipped  atomic.Int64
	admitted atomic.Int64
	links    atomic.Int64
}

// NewReplayCmd creates the replay command.
func NewReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <fetches.jsonl>",
		Short: "Run recorded fetch results through the decision engine",
		Long:  `Replay reads a JSONL file with one fetch result per line:

  {"url": "...", "status": 200, "headers": {"Content-Type": "text/html"}, "body": "<html>...", "redirected_to": ""}

and runs every record through the decision engine with a pool of workers.
Use "-" to read from stdin. The report is printed to stdout unless --report
names a file.`,
		Args: cobra.ExactArgs(1),
		RunE: runReplay,
	}
	addOutputFlags(cmd)
	cmd.Flags().IntP("workers", "w", 0, "Concurrent workers (default: num_workers from config)")
	return cmd
}

func runReplay(cmd *cobra.Command, args []string) error {
	env, err := setupRun(cmd)
	if err != nil {
		return err
	}

	var in io.Reader
	if args[0] == "-" {
		in = cmd.InOrStdin()
	} else {
		file, err := os.Open(args[0])
		if err != nil {
			env.engine.Close()
			return fmt.Errorf("open replay file: %w", err)
		}
		defer file.Close()
		in = file
	}

	var decisions *crawler.DecisionLog
	if path, _ := cmd.Flags().GetString("decisions"); path != "" {
		decisions, err = crawler.CreateDecisionLog(path, logrus.NewEntry(env.log))
		if err != nil {
			env.engine.Close()
			return err
		}
		defer decisions.Close()
	}

	workers, _ := cmd.Flags().GetInt("workers")
	if workers <= 0 {
		workers = env.cfg.NumWorkers
	}

	stats, replayErr := replay(cmd.Context(), env, in, workers, decisions)
	env.log.WithFields(logrus.Fields{
		"lines":    stats.lines.Load(),
		"skipped":  stats.skipped.Load(),
		"admitted": stats.admitted.Load(),
		"links":    stats.links.Load(),
	}).Info("Replay finished")

	if err := finishRun(cmd, env); err != nil {
		return err
	}
	if replayErr != nil && errors.Is(replayErr, context.Canceled) {
		env.log.Warn("Replay cancelled, report covers the pages processed so far")
		return nil
	}
	return replayErr
}

// replay feeds every line of in to the engine using up to workers goroutines.
// Undecodable lines are logged and skipped; a closed engine stops the run.
func replay(ctx context.Context, env *runEnv, in io.Reader, workers int, decisions *crawler.DecisionLog) (*replayStats, error) {
	stats := &replayStats{}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 1024*1024), maxReplayLine)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if gctx.Err() != nil {
			break
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		stats.lines.Add(1)

		var rec replayRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			stats.skipped.Add(1)
			env.log.WithField("line", lineNo).Warnf("Skipping undecodable record: %v", err)
			continue
		}

		item := models.WorkItem{URL: rec.URL}
		g.Go(func() error {
			result := rec.fetchResult()
			out, err := env.engine.ProcessPage(rec.URL, result)
			if err != nil {
				if errors.Is(err, utils.ErrEngineClosed) {
					return err
				}
				env.log.WithField("url", rec.URL).Errorf("Engine failed: %v", err)
				return nil
			}
			decisions.Record(item, result.Status, out, nil)
			if out.Verdict.Admitted {
				stats.admitted.Add(1)
				stats.links.Add(int64(len(out.Links)))
			}
			return nil
		})
	}

	waitErr := g.Wait()
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("%w: reading replay input at line %d: %w", utils.ErrParsing, lineNo+1, err)
	}
	if ctx.Err() != nil {
		return stats, ctx.Err()
	}
	return stats, waitErr
}
