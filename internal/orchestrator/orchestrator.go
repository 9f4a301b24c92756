// Package orchestrator is the composition root for query processing:
// it wires one incoming request through session validation, the
// response cache, the triage router and the interaction log, and
// guarantees every path terminates in a well-formed Response.
package orchestrator

import (
	"context"
	"time"

	"support-orchestrator/internal/agent"
	"support-orchestrator/internal/cache"
	"support-orchestrator/internal/common/config"
	"support-orchestrator/internal/common/errors"
	"support-orchestrator/internal/common/logger"
	"support-orchestrator/internal/common/metrics"
	"support-orchestrator/internal/common/observability"
	"support-orchestrator/internal/common/validation"
	"support-orchestrator/internal/models"
	"support-orchestrator/internal/router"
	"support-orchestrator/internal/session"
	"support-orchestrator/internal/store"
)

// triageAgent attributes pre-routing failures (validation, quota,
// expiry, timeout) that no specialized agent ever saw.
const triageAgent = "triage"

// summaryLimit bounds the per-turn summary kept in session context.
const summaryLimit = 120

type Orchestrator struct {
	cfg      *config.Config
	sessions *session.Manager
	cache    cache.Cache
	router   *router.Router
	log      store.InteractionLog
	errs     *errors.Handler
	obs      *observability.Observability
	logger   logger.Logger
}

func New(cfg *config.Config, sessions *session.Manager, c cache.Cache, r *router.Router, log store.InteractionLog, errs *errors.Handler, obs *observability.Observability, lg logger.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		sessions: sessions,
		cache:    c,
		router:   r,
		log:      log,
		errs:     errs,
		obs:      obs,
		logger:   lg.WithFields(map[string]interface{}{"component": "orchestrator"}),
	}
}

// Process handles one query for one session. Recoverable failures
// come back as error Responses; only fatal conditions return a
// non-nil error. Session quota and context are committed only after a
// terminal Response is produced, so aborted and timed-out requests
// leave the session untouched.
func (o *Orchestrator) Process(ctx context.Context, sessionID, text string) (*models.Response, error) {
	start := time.Now()

	query := validation.SanitizeQuery(text)
	if err := validation.ValidateQuery(query); err != nil {
		// Malformed input never reaches the session, so no quota is
		// consumed asking the user to rephrase.
		return o.recoverable(triageAgent, errors.NewValidationError(err.Error(), "query rejected"))
	}

	o.sessions.Lock(sessionID)
	defer o.sessions.Unlock(sessionID)

	sess, err := o.sessions.Begin(ctx, sessionID)
	if err != nil {
		resp, fatal := o.errs.ToResponse(triageAgent, err)
		if fatal != nil {
			return nil, fatal
		}
		return resp, nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, o.cfg.Server.RequestTimeout())
	defer cancel()

	// Cache keys derive from the deterministic local classification so
	// a probe never needs the external service.
	local := o.router.Heuristic(query)
	fp := cache.Fingerprint(query, local.Intent, local.Entities)

	if resp, ok := o.cache.Lookup(reqCtx, fp); ok {
		o.finish(ctx, sessionID, query, models.Intent(resp.Agent), resp, start)
		return resp, nil
	}

	result := o.router.Classify(reqCtx, query, sess.RecentContext(o.cfg.Classifier.ContextTurns))

	if reqCtx.Err() != nil {
		return o.timeout(sessionID)
	}

	resp, err := o.router.Dispatch(reqCtx, result, &agent.Request{
		SessionID: sessionID,
		Query:     query,
		Entities:  result.Entities,
		Session:   sess,
	})
	if err != nil {
		// Fatal: abort without caching or logging a misleading
		// success, session untouched.
		return nil, err
	}

	if reqCtx.Err() != nil {
		return o.timeout(sessionID)
	}

	o.cache.Store(reqCtx, fp, resp, o.cfg.Cache.TTL())
	o.finish(ctx, sessionID, query, result.Intent, resp, start)
	return resp, nil
}

// EndSession deletes the session and every interaction record tied to
// it. Privacy cleanup is all-or-nothing from the caller's view.
func (o *Orchestrator) EndSession(ctx context.Context, sessionID string) error {
	o.sessions.Lock(sessionID)
	defer o.sessions.Unlock(sessionID)

	if err := o.sessions.End(ctx, sessionID); err != nil {
		return err
	}
	if err := o.log.DeleteBySession(ctx, sessionID); err != nil {
		return errors.NewStoreUnavailableError(err)
	}
	return nil
}

// History returns the session's interaction trail in append order.
func (o *Orchestrator) History(ctx context.Context, sessionID string) ([]models.InteractionRecord, error) {
	return o.log.ListBySession(ctx, sessionID)
}

// RefundHistory returns the session's logged refund requests.
func (o *Orchestrator) RefundHistory(ctx context.Context, sessionID string) ([]models.RefundRequest, error) {
	return o.log.ListRefundsBySession(ctx, sessionID)
}

// finish commits the turn and records the outcome. Runs on the parent
// context so a request deadline reached during dispatch cannot tear
// the commit in half.
func (o *Orchestrator) finish(ctx context.Context, sessionID, query string, intent models.Intent, resp *models.Response, start time.Time) {
	now := time.Now().UTC()

	if err := o.log.Append(ctx, models.InteractionRecord{
		SessionID: sessionID,
		Timestamp: now,
		Query:     query,
		Intent:    intent,
		Status:    resp.Status,
	}); err != nil {
		o.logger.WithError(err).Warn("interaction log append failed", map[string]interface{}{
			"sessionId": sessionID,
		})
	}

	if err := o.sessions.Commit(ctx, sessionID, models.Turn{
		Query:     query,
		Summary:   summarize(resp.Message),
		Intent:    intent,
		Timestamp: now,
	}); err != nil {
		o.logger.WithError(err).Error("session commit failed", map[string]interface{}{
			"sessionId": sessionID,
		})
	}

	elapsed := time.Since(start)
	metrics.QueriesProcessed.WithLabelValues(string(intent), string(resp.Status)).Inc()
	metrics.QueryDuration.WithLabelValues(string(intent)).Observe(elapsed.Seconds())
	o.obs.RecordRequestProcessed(ctx, string(resp.Status))
	o.obs.RecordRequestDuration(ctx, elapsed, string(resp.Status))
}

func (o *Orchestrator) timeout(sessionID string) (*models.Response, error) {
	return o.recoverable(triageAgent, errors.NewRequestTimeoutError(sessionID))
}

func (o *Orchestrator) recoverable(agentName string, stdErr *errors.StandardError) (*models.Response, error) {
	resp, fatal := o.errs.ToResponse(agentName, stdErr)
	if fatal != nil {
		return nil, fatal
	}
	return resp, nil
}

func summarize(message string) string {
	if len(message) > summaryLimit {
		return message[:summaryLimit]
	}
	return message
}
