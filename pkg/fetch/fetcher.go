package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"crawl-core/pkg/config"
	"crawl-core/pkg/models"
	"crawl-core/pkg/utils"
)

// HTTPFetcher produces the FetchResult for one URL
type HTTPFetcher interface {
	Fetch(ctx context.Context, rawURL string) (models.FetchResult, error)
}

var _ HTTPFetcher = (*Fetcher)(nil)

// Fetcher turns one GET into a models.FetchResult. It makes a single attempt:
// no retries, no rate limiting, no robots.txt.
type Fetcher struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
	log          *logrus.Entry
}

// NewFetcher creates a Fetcher using the HTTP settings of cfg
func NewFetcher(client *http.Client, cfg *config.AppConfig, log *logrus.Entry) *Fetcher {
	return &Fetcher{
		client:       client,
		userAgent:    cfg.UserAgent,
		maxBodyBytes: cfg.MaxBodyBytes,
		log:          log.WithField("component", "fetcher"),
	}
}

// Fetch performs a GET. Any HTTP status is a result, not an error; the error
// is reserved for requests that produced no response at all.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (models.FetchResult, error) {
	result := models.FetchResult{URL: rawURL}
	reqLog := f.log.WithField("url", rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return result, fmt.Errorf("%w: %w", utils.ErrRequestCreation, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return result, err
		}
		reqLog.Debugf("Network error: %v", err)
		return result, fmt.Errorf("%w: %w", utils.ErrFetch, err)
	}
	defer resp.Body.Close()

	result.Status = resp.StatusCode
	result.Headers = flattenHeaders(resp.Header)
	if final := resp.Request.URL.String(); final != rawURL {
		result.RedirectedTo = final
	}

	limited := io.Reader(resp.Body)
	if f.maxBodyBytes > 0 {
		limited = io.LimitReader(resp.Body, f.maxBodyBytes+1) // +1 to detect exceeding the limit
	}
	body, err := io.ReadAll(limited)
	if err != nil {
		return result, fmt.Errorf("%w: reading body from '%s': %w", utils.ErrResponseBodyRead, rawURL, err)
	}
	if f.maxBodyBytes > 0 && int64(len(body)) > f.maxBodyBytes {
		return result, fmt.Errorf("%w: page '%s' exceeds max size (%d bytes)", utils.ErrResponseBodyRead, rawURL, f.maxBodyBytes)
	}
	result.Body = body

	reqLog.WithFields(logrus.Fields{"status_code": resp.StatusCode, "bytes": len(body)}).Debug("Fetched")
	return result, nil
}

// flattenHeaders keeps the first value of each header under its canonical name
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if len(values) > 0 {
			out[name] = values[0]
		}
	}
	return out
}
