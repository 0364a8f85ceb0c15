package main

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"crawl-core/pkg/fetch"
)

// fetchOutput is what the fetch command prints
type fetchOutput struct {
	URL          string   `json:"url"`
	Status       int      `json:"status"`
	RedirectedTo string   `json:"redirected_to,omitempty"`
	Admitted     bool     `json:"admitted"`
	Reason       string   `json:"reason"`
	WordCount    int      `json:"word_count"`
	Fingerprint  string   `json:"fingerprint,omitempty"`
	Links        []string `json:"links"`
}

// NewFetchCmd creates the fetch command.
func NewFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <url>",
		Short: "Fetch one URL and show the engine's decision and extracted links",
		Args:  cobra.ExactArgs(1),
		RunE:  runFetch,
	}
}

func runFetch(cmd *cobra.Command, args []string) error {
	env, err := setupRun(cmd)
	if err != nil {
		return err
	}
	defer env.engine.Close()
	entry := logrus.NewEntry(env.log)

	fetcher := fetch.NewFetcher(fetch.NewClient(env.cfg.HTTPClientSettings, entry), env.cfg, entry)
	result, err := fetcher.Fetch(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out, err := env.engine.ProcessPage(args[0], result)
	if err != nil {
		return err
	}

	links := out.Links
	if links == nil {
		links = []string{}
	}
	b, err := json.MarshalIndent(fetchOutput{
		URL:          out.URL,
		Status:       result.Status,
		RedirectedTo: result.RedirectedTo,
		Admitted:     out.Verdict.Admitted,
		Reason:       out.Verdict.Reason.String(),
		WordCount:    out.WordCount,
		Fingerprint:  out.Fingerprint,
		Links:        links,
	}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}
