// internal/session/manager_test.go
package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"support-orchestrator/internal/common/config"
	stderrors "support-orchestrator/internal/common/errors"
	"support-orchestrator/internal/common/logger"
	"support-orchestrator/internal/models"
)

func testSessionConfig() config.SessionConfig {
	return config.SessionConfig{
		TimeoutSeconds:       1800,
		MaxQueries:           3,
		ContextTurns:         2,
		SweepIntervalSeconds: 60,
		Backend:              "memory",
	}
}

func newTestManager(t *testing.T) (*Manager, *time.Time) {
	t.Helper()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager(NewInMemoryRepository(), testSessionConfig(), logger.NewTestLogger(t))
	m.now = func() time.Time { return now }
	return m, &now
}

func turn(query string) models.Turn {
	return models.Turn{
		Query:   query,
		Summary: "handled",
		Intent:  models.IntentGeneral,
	}
}

func TestManager_BeginCreatesSession(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	sess, err := m.Begin(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", sess.ID)
	assert.Equal(t, 0, sess.QueryCount)
}

func TestManager_QuotaExactness(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	// With MaxQueries = 3 the third query succeeds, the fourth fails.
	for i := 0; i < 3; i++ {
		_, err := m.Begin(ctx, "s1")
		require.NoError(t, err, "query %d should be admitted", i+1)
		require.NoError(t, m.Commit(ctx, "s1", turn("q")))
	}

	_, err := m.Begin(ctx, "s1")
	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeQuotaExceeded, stderrors.CodeOf(err))
}

func TestManager_QuotaFailureDoesNotAdvanceCounter(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := m.Begin(ctx, "s1")
		require.NoError(t, err)
		require.NoError(t, m.Commit(ctx, "s1", turn("q")))
	}

	_, err := m.Begin(ctx, "s1")
	require.Error(t, err)

	sess, repoErr := m.repo.Get(ctx, "s1")
	require.NoError(t, repoErr)
	assert.Equal(t, 3, sess.QueryCount)
}

func TestManager_AbortedRequestLeavesSessionUntouched(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Begin(ctx, "s1")
	require.NoError(t, err)
	// No Commit: quota and context must not move.

	sess, repoErr := m.repo.Get(ctx, "s1")
	require.NoError(t, repoErr)
	assert.Equal(t, 0, sess.QueryCount)
	assert.Empty(t, sess.Context)
}

func TestManager_TimeoutEviction(t *testing.T) {
	m, now := newTestManager(t)
	ctx := context.Background()

	_, err := m.Begin(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, m.Commit(ctx, "s1", turn("q")))

	*now = now.Add(1800*time.Second + time.Second)

	_, err = m.Begin(ctx, "s1")
	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeSessionExpired, stderrors.CodeOf(err))

	// Context is unrecoverable: the next access starts fresh.
	sess, err := m.Begin(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, sess.QueryCount)
	assert.Empty(t, sess.Context)
}

func TestManager_ExpiryAtExactCutoff(t *testing.T) {
	m, now := newTestManager(t)
	ctx := context.Background()

	_, err := m.Begin(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, m.Commit(ctx, "s1", turn("q")))

	*now = now.Add(1800 * time.Second)

	_, err = m.Begin(ctx, "s1")
	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeSessionExpired, stderrors.CodeOf(err))
}

func TestManager_SweepAgreesWithLazyExpiry(t *testing.T) {
	m, now := newTestManager(t)
	ctx := context.Background()

	_, err := m.Begin(ctx, "live")
	require.NoError(t, err)
	require.NoError(t, m.Commit(ctx, "live", turn("q")))

	_, err = m.Begin(ctx, "idle")
	require.NoError(t, err)
	require.NoError(t, m.Commit(ctx, "idle", turn("q")))

	*now = now.Add(900 * time.Second)
	require.NoError(t, m.Commit(ctx, "live", turn("q2")))

	*now = now.Add(900 * time.Second)

	swept, err := m.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	_, err = m.Begin(ctx, "live")
	assert.NoError(t, err)

	sess, err := m.repo.Get(ctx, "idle")
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestManager_ContextBounded(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	// ContextTurns = 2, MaxQueries = 3.
	for i, q := range []string{"first", "second", "third"} {
		_, err := m.Begin(ctx, "s1")
		require.NoError(t, err, "query %d", i+1)
		require.NoError(t, m.Commit(ctx, "s1", turn(q)))
	}

	sess, err := m.repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, sess.Context, 2)
	assert.Equal(t, "second", sess.Context[0].Query)
	assert.Equal(t, "third", sess.Context[1].Query)
}

func TestManager_MarkRefundApprovedPersists(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Begin(ctx, "s1")
	require.NoError(t, err)

	require.NoError(t, m.MarkRefundApproved(ctx, "s1", "INV1001"))
	require.NoError(t, m.MarkRefundApproved(ctx, "s1", "INV1001"))

	sess, err := m.repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"INV1001"}, sess.ApprovedRefunds)
}

func TestManager_EndDeletesSession(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Begin(ctx, "s1")
	require.NoError(t, err)

	require.NoError(t, m.End(ctx, "s1"))

	sess, err := m.repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, sess)

	// Ending twice is harmless.
	assert.NoError(t, m.End(ctx, "s1"))
}

func TestNewID_Unique(t *testing.T) {
	assert.NotEqual(t, NewID(), NewID())
}
