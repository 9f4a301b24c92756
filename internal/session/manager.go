// Package session owns per-session conversational state and enforces
// the lifecycle rules: idle timeout, query quota, bounded context.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"support-orchestrator/internal/common/config"
	stderrors "support-orchestrator/internal/common/errors"
	"support-orchestrator/internal/common/logger"
	"support-orchestrator/internal/common/metrics"
	"support-orchestrator/internal/models"
)

// Manager is the exclusive owner of Session mutation. Operations for
// a single session id are serialized through Lock/Unlock; distinct
// sessions proceed in parallel.
type Manager struct {
	repo   Repository
	cfg    config.SessionConfig
	logger logger.Logger

	mu    sync.Mutex
	locks map[string]*sessionLock

	now func() time.Time
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewManager(repo Repository, cfg config.SessionConfig, log logger.Logger) *Manager {
	return &Manager{
		repo:   repo,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "session-manager"}),
		locks:  make(map[string]*sessionLock),
		now:    time.Now,
	}
}

// NewID generates an opaque session id.
func NewID() string {
	return uuid.NewString()
}

// Lock serializes processing for one session id. Unlock must be
// called with the same id.
func (m *Manager) Lock(id string) {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sessionLock{}
		m.locks[id] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
}

func (m *Manager) Unlock(id string) {
	m.mu.Lock()
	l, ok := m.locks[id]
	if ok {
		l.refs--
		if l.refs == 0 {
			delete(m.locks, id)
		}
	}
	m.mu.Unlock()

	if ok {
		l.mu.Unlock()
	}
}

// Begin validates the session for a new query. An unseen id creates a
// fresh session; an idle session beyond timeout is purged and the
// request fails with SESSION_EXPIRED; a session at its query quota
// fails with QUOTA_EXCEEDED and the counter is not advanced.
func (m *Manager) Begin(ctx context.Context, id string) (*models.Session, error) {
	sess, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, stderrors.NewStoreUnavailableError(err)
	}

	now := m.now()

	if sess != nil && sess.IsExpired(m.cfg.Timeout(), now) {
		// Privacy requirement: purge, never revive.
		if err := m.repo.Delete(ctx, id); err != nil {
			return nil, stderrors.NewStoreUnavailableError(err)
		}
		metrics.SessionsActive.Dec()
		m.logger.Info("session expired on access", map[string]interface{}{"sessionId": id})
		return nil, stderrors.NewSessionExpiredError(id)
	}

	if sess == nil {
		sess = &models.Session{
			ID:           id,
			CreatedAt:    now,
			LastActivity: now,
		}
		if err := m.repo.Put(ctx, sess); err != nil {
			return nil, stderrors.NewStoreUnavailableError(err)
		}
		metrics.SessionsActive.Inc()
		m.logger.Info("session created", map[string]interface{}{"sessionId": id})
	}

	if sess.QueryCount >= m.cfg.MaxQueries {
		return nil, stderrors.NewQuotaExceededError(id, m.cfg.MaxQueries)
	}

	return sess, nil
}

// Commit records a completed turn: the query counter advances, the
// activity timestamp moves, and the bounded context buffer gains the
// exchange. Called only after a terminal Response exists, so aborted
// requests leave the session untouched.
func (m *Manager) Commit(ctx context.Context, id string, turn models.Turn) error {
	sess, err := m.repo.Get(ctx, id)
	if err != nil {
		return stderrors.NewStoreUnavailableError(err)
	}
	if sess == nil {
		// Swept between Begin and Commit; the response already went
		// out, nothing left to record.
		return nil
	}

	sess.QueryCount++
	sess.Touch(m.now())
	sess.AppendTurn(turn, m.cfg.ContextTurns)

	if err := m.repo.Put(ctx, sess); err != nil {
		return stderrors.NewStoreUnavailableError(err)
	}
	return nil
}

// MarkRefundApproved persists the approved invoice set used for
// idempotent refund confirmation.
func (m *Manager) MarkRefundApproved(ctx context.Context, id, invoiceNo string) error {
	sess, err := m.repo.Get(ctx, id)
	if err != nil || sess == nil {
		return err
	}
	sess.MarkRefundApproved(invoiceNo)
	return m.repo.Put(ctx, sess)
}

// End deletes the session outright. Part of the privacy cleanup
// path; callers also purge the session's interaction records.
func (m *Manager) End(ctx context.Context, id string) error {
	sess, err := m.repo.Get(ctx, id)
	if err != nil {
		return stderrors.NewStoreUnavailableError(err)
	}
	if sess == nil {
		return nil
	}
	if err := m.repo.Delete(ctx, id); err != nil {
		return stderrors.NewStoreUnavailableError(err)
	}
	metrics.SessionsActive.Dec()
	m.logger.Info("session ended", map[string]interface{}{"sessionId": id})
	return nil
}

// Sweep purges every session idle beyond the timeout. It shares the
// cutoff rule with Begin, so a session is expired for the sweeper iff
// it would be expired on access.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	ids, err := m.repo.IDs(ctx)
	if err != nil {
		return 0, err
	}

	now := m.now()
	swept := 0
	for _, id := range ids {
		sess, err := m.repo.Get(ctx, id)
		if err != nil {
			return swept, err
		}
		if sess == nil || !sess.IsExpired(m.cfg.Timeout(), now) {
			continue
		}
		if err := m.repo.Delete(ctx, id); err != nil {
			return swept, err
		}
		swept++
		metrics.SessionsActive.Dec()
		metrics.SessionsSwept.Inc()
	}

	if swept > 0 {
		m.logger.Info("sweep purged idle sessions", map[string]interface{}{"count": swept})
	}
	return swept, nil
}

// StartSweeper runs Sweep on the configured interval until ctx is
// cancelled. Live session access may proceed concurrently.
func (m *Manager) StartSweeper(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.SweepInterval())
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.Sweep(ctx); err != nil {
					m.logger.WithError(err).Warn("session sweep failed", nil)
				}
			}
		}
	}()
}
