package agent

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"support-orchestrator/internal/common/logger"
	"support-orchestrator/internal/models"
	"support-orchestrator/internal/store"

	"support-orchestrator/internal/common/errors"
)

const FAQAgentName = "faq"

// candidateLimit bounds backend-side candidate retrieval.
const candidateLimit = 50

// searcher is implemented by stores that can pre-filter candidates by
// relevance (the Elasticsearch backend). Local scoring still picks the
// final answer.
type searcher interface {
	Search(ctx context.Context, query string, k int) ([]models.FAQRecord, error)
}

// FAQAgent answers product and policy questions by fuzzy-matching the
// query against the FAQ knowledge base.
type FAQAgent struct {
	faqs      store.FAQStore
	threshold float64
	logger    logger.Logger
}

func NewFAQAgent(faqs store.FAQStore, threshold float64, lg logger.Logger) *FAQAgent {
	return &FAQAgent{
		faqs:      faqs,
		threshold: threshold,
		logger:    lg.WithFields(map[string]interface{}{"agent": FAQAgentName}),
	}
}

func (a *FAQAgent) Name() string { return FAQAgentName }

func (a *FAQAgent) Handle(ctx context.Context, req *Request) (*models.Response, error) {
	records, err := a.candidates(ctx, req.Query)
	if err != nil {
		return nil, errors.NewStoreUnavailableError(err)
	}

	best, score := bestMatch(req.Query, records)
	confidence := normalizeScore(score)

	if best == nil || confidence < a.threshold {
		a.logger.Debug("no faq cleared threshold", map[string]interface{}{
			"bestScore": confidence,
			"threshold": a.threshold,
		})
		return &models.Response{
			Status:     models.StatusNoAnswer,
			Agent:      FAQAgentName,
			Message:    "I couldn't find a specific answer to your question in our knowledge base. Please contact our customer support team for detailed assistance, or try rephrasing your question.",
			Confidence: confidence,
			Data:       map[string]interface{}{"bestScore": confidence},
			Timestamp:  time.Now().UTC(),
		}, nil
	}

	return &models.Response{
		Status:     models.StatusSuccess,
		Agent:      FAQAgentName,
		Message:    best.Answer,
		Confidence: confidence,
		Data: map[string]interface{}{
			"faqId":    best.ID,
			"category": best.Category,
			"question": best.Question,
		},
		Timestamp: time.Now().UTC(),
	}, nil
}

// candidates returns the records to score. Stores with backend-side
// relevance search narrow the set first; the result is re-sorted by id
// so tie-breaking matches the full scan.
func (a *FAQAgent) candidates(ctx context.Context, query string) ([]models.FAQRecord, error) {
	s, ok := a.faqs.(searcher)
	if !ok {
		return a.faqs.All(ctx)
	}

	records, err := s.Search(ctx, query, candidateLimit)
	if err != nil {
		a.logger.WithError(err).Warn("candidate search failed, scanning full knowledge base", nil)
		return a.faqs.All(ctx)
	}
	if len(records) == 0 {
		return a.faqs.All(ctx)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

// bestMatch scores every record and returns the highest. Records are
// ordered by ascending id, and only a strictly greater score replaces
// the current best, so ties resolve to the lowest id.
func bestMatch(query string, records []models.FAQRecord) (*models.FAQRecord, int) {
	queryLower := strings.ToLower(query)
	queryWords := strings.Fields(queryLower)

	var best *models.FAQRecord
	bestScore := 0
	for i := range records {
		score := scoreRecord(queryLower, queryWords, &records[i])
		if score > bestScore {
			best = &records[i]
			bestScore = score
		}
	}
	return best, bestScore
}

// scoreRecord blends exact keyword hits, fuzzy keyword similarity and
// question/answer token overlap into a single integer score.
func scoreRecord(queryLower string, queryWords []string, rec *models.FAQRecord) int {
	score := 0

	for _, keyword := range rec.Keywords {
		kw := strings.ToLower(keyword)
		if strings.Contains(queryLower, kw) {
			score += 3
		}
		for _, qw := range queryWords {
			similarity := charRatio(kw, qw)
			if similarity > 0.8 {
				score += 2
			} else if similarity > 0.6 {
				score++
			}
		}
	}

	questionWords := strings.Fields(strings.ToLower(rec.Question))
	answerWords := strings.Fields(strings.ToLower(rec.Answer))

	for _, qw := range queryWords {
		if containsWord(questionWords, qw) {
			score += 2
		}
		if containsWord(answerWords, qw) {
			score++
		}
		for _, word := range questionWords {
			if charRatio(word, qw) > 0.8 {
				score++
			}
		}
	}

	return score
}

// normalizeScore maps the unbounded integer score into [0, 1).
// Monotonic, so ranking is unaffected; a score of zero stays zero.
func normalizeScore(score int) float64 {
	if score <= 0 {
		return 0
	}
	return float64(score) / (float64(score) + 4)
}

func charRatio(a, b string) float64 {
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).Ratio()
}

func containsWord(words []string, w string) bool {
	for _, word := range words {
		if word == w {
			return true
		}
	}
	return false
}
