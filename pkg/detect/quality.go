package detect

import (
	"net/http"

	"crawl-core/pkg/models"
)

// DefaultMinWords is the visible word count below which a page is low-information
const DefaultMinWords = 100

// QualityGate rejects dead and near-empty pages
type QualityGate struct {
	minWords int
}

// NewQualityGate creates a QualityGate. minWords <= 0 uses the default,
// matching how AppConfig treats an unset min_words.
func NewQualityGate(minWords int) *QualityGate {
	if minWords <= 0 {
		minWords = DefaultMinWords
	}
	return &QualityGate{minWords: minWords}
}

// CheckLiveness admits only a 200 response with a non-empty body. An
// unfollowed 3xx is dead; a followed redirect arrives as a 200 whose
// RedirectedTo names the final URL.
func (g *QualityGate) CheckLiveness(r models.FetchResult) models.Verdict {
	if r.Status != http.StatusOK || len(r.Body) == 0 {
		return models.Reject(models.ReasonDead)
	}
	return models.Admit()
}

// CheckDensity admits pages with at least minWords words
func (g *QualityGate) CheckDensity(words int) models.Verdict {
	if words < g.minWords {
		return models.Reject(models.ReasonLowInformation)
	}
	return models.Admit()
}

// MinWords returns the configured density threshold
func (g *QualityGate) MinWords() int { return g.minWords }
