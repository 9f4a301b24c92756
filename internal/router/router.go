// Package router resolves a query to an intent and dispatches it to
// the matching agent. Classification prefers the external service;
// when it times out, errors out, or is not confident enough, a local
// keyword heuristic takes over. Classification never fails a request.
package router

import (
	"context"
	"errors"
	"strings"
	"time"

	"support-orchestrator/internal/agent"
	"support-orchestrator/internal/classifier"
	stderrs "support-orchestrator/internal/common/errors"
	"support-orchestrator/internal/common/logger"
	"support-orchestrator/internal/common/metrics"
	"support-orchestrator/internal/common/validation"
	"support-orchestrator/internal/models"
)

// fallbackConfidence is reported when the keyword heuristic resolves
// an intent. Deliberately below typical classifier scores.
const fallbackConfidence = 0.5

type Router struct {
	classifier classifier.Classifier
	threshold  float64
	agents     map[models.Intent]agent.Agent
	logger     logger.Logger
}

func New(cls classifier.Classifier, threshold float64, agents map[models.Intent]agent.Agent, lg logger.Logger) *Router {
	return &Router{
		classifier: cls,
		threshold:  threshold,
		agents:     agents,
		logger:     lg.WithFields(map[string]interface{}{"component": "router"}),
	}
}

// Classify resolves the query's intent. The external classifier gets
// exactly one attempt; any failure or low-confidence result falls
// back to the keyword heuristic. Entities are extracted on both paths.
func (r *Router) Classify(ctx context.Context, query string, turns []models.Turn) *models.ClassificationResult {
	start := time.Now()
	result, err := r.classifier.Classify(ctx, query, turns)
	metrics.ClassifierDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil && result.Confidence >= r.threshold:
		metrics.ClassifierCalls.WithLabelValues("ok").Inc()
		mergeEntities(result, query)
		return result
	case err == nil:
		metrics.ClassifierCalls.WithLabelValues("ok").Inc()
		r.logger.Debug("classifier below threshold, using fallback", map[string]interface{}{
			"intent":     result.Intent,
			"confidence": result.Confidence,
			"threshold":  r.threshold,
		})
	case errors.Is(err, classifier.ErrClassificationTimeout):
		metrics.ClassifierCalls.WithLabelValues("timeout").Inc()
		r.logger.Warn("classifier timed out, using fallback", nil)
	default:
		metrics.ClassifierCalls.WithLabelValues("error").Inc()
		r.logger.Warn("classifier failed, using fallback", map[string]interface{}{
			"error": err.Error(),
		})
	}

	metrics.ClassifierFallbacks.Inc()
	return r.fallback(query)
}

// Dispatch runs the agent registered for the resolved intent.
func (r *Router) Dispatch(ctx context.Context, result *models.ClassificationResult, req *agent.Request) (*models.Response, error) {
	a, ok := r.agents[result.Intent]
	if !ok {
		a, ok = r.agents[models.IntentGeneral]
		if !ok {
			return nil, stderrs.NewInternalError(errors.New("no agent registered for general intent"))
		}
	}
	req.Entities = result.Entities
	return a.Handle(ctx, req)
}

// Heuristic exposes the deterministic local classification. The
// orchestrator keys the response cache on it, so a repeated query
// resolves to the same fingerprint without an external call.
func (r *Router) Heuristic(query string) *models.ClassificationResult {
	return r.fallback(query)
}

var (
	refundKeywords = []string{
		"refund", "return", "money back", "cancel order",
		"invoice", "inv", "receipt", "transaction",
	}
	faqKeywords = []string{
		"product", "specification", "specs", "dimension",
		"feature", "how to", "compatible", "warranty",
		"shipping", "payment", "policy",
	}
)

// fallback is the deterministic keyword heuristic. An extracted
// invoice identifier forces refund intent regardless of keywords.
func (r *Router) fallback(query string) *models.ClassificationResult {
	entities := validation.ExtractEntities(query)
	result := &models.ClassificationResult{
		Intent:     models.IntentGeneral,
		Confidence: 0,
		Entities:   entities,
		Fallback:   true,
	}

	if _, ok := entities[models.EntityInvoiceNo]; ok {
		result.Intent = models.IntentRefund
		result.Confidence = fallbackConfidence
		return result
	}

	lower := strings.ToLower(query)
	refundScore := countKeywords(lower, refundKeywords)
	faqScore := countKeywords(lower, faqKeywords)

	switch {
	case refundScore > faqScore:
		result.Intent = models.IntentRefund
		result.Confidence = fallbackConfidence
	case faqScore > 0:
		result.Intent = models.IntentFAQ
		result.Confidence = fallbackConfidence
	}
	return result
}

func countKeywords(lower string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}

// mergeEntities backfills locally extractable identifiers the service
// missed, so agents see them regardless of which path ran.
func mergeEntities(result *models.ClassificationResult, query string) {
	extracted := validation.ExtractEntities(query)
	if result.Entities == nil {
		result.Entities = map[string]string{}
	}
	for k, v := range extracted {
		if _, ok := result.Entities[k]; !ok {
			result.Entities[k] = v
		}
	}
}
