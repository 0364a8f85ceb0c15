package crawler

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"crawl-core/pkg/models"
	"crawl-core/pkg/utils"
)

// DecisionLog appends one JSON line per processed page. It is safe for
// concurrent use; a nil *DecisionLog discards everything.
type DecisionLog struct {
	mu      sync.Mutex
	w       io.Writer
	closer  io.Closer
	path    string
	written int
	log     *logrus.Entry
}

// NewDecisionLog writes records to w
func NewDecisionLog(w io.Writer, log *logrus.Entry) *DecisionLog {
	return &DecisionLog{w: w, log: log.WithField("component", "decision_log")}
}

// CreateDecisionLog truncates or creates path and writes records to it
func CreateDecisionLog(path string, log *logrus.Entry) (*DecisionLog, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: create decision log '%s': %w", utils.ErrReportWrite, path, err)
	}
	dl := NewDecisionLog(file, log)
	dl.closer = file
	dl.path = path
	dl.log.Infof("Writing page decisions to %s", path)
	return dl, nil
}

// Record builds the line for one outcome and writes it
func (dl *DecisionLog) Record(item models.WorkItem, status int, out models.Outcome, fetchErr error) {
	if dl == nil {
		return
	}
	rec := models.DecisionRecord{
		URL:       item.URL,
		Depth:     item.Depth,
		Status:    status,
		Admitted:  out.Verdict.Admitted,
		Reason:    out.Verdict.Reason.String(),
		WordCount: out.WordCount,
		Links:     len(out.Links),
	}
	if out.URL != "" {
		rec.URL = out.URL
	}
	if out.EffectiveURL != "" && out.EffectiveURL != rec.URL {
		rec.EffectiveURL = out.EffectiveURL
	}
	if fetchErr != nil {
		rec.FetchError = fetchErr.Error()
	}
	dl.Write(rec)
}

// Write appends rec as one JSON line
func (dl *DecisionLog) Write(rec models.DecisionRecord) {
	if dl == nil {
		return
	}
	jsonBytes, err := json.Marshal(rec)
	if err != nil {
		dl.log.WithField("url", rec.URL).Errorf("Failed to marshal decision: %v", err)
		return
	}

	dl.mu.Lock()
	defer dl.mu.Unlock()
	if _, err := dl.w.Write(append(jsonBytes, '\n')); err != nil {
		dl.log.WithFields(logrus.Fields{"url": rec.URL, "file": dl.path}).Errorf("Failed to write decision: %v", err)
		return
	}
	dl.written++
}

// Written returns the number of records written so far
func (dl *DecisionLog) Written() int {
	if dl == nil {
		return 0
	}
	dl.mu.Lock()
	defer dl.mu.Unlock()
	return dl.written
}

// Close closes the underlying file, if this log opened one
func (dl *DecisionLog) Close() error {
	if dl == nil || dl.closer == nil {
		return nil
	}
	dl.mu.Lock()
	defer dl.mu.Unlock()
	if err := dl.closer.Close(); err != nil {
		return fmt.Errorf("%w: close decision log '%s': %w", utils.ErrReportWrite, dl.path, err)
	}
	dl.closer = nil
	return nil
}
