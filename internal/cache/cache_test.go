// internal/cache/cache_test.go
package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"support-orchestrator/internal/models"
)

func successResponse(msg string) *models.Response {
	return &models.Response{
		Status:  models.StatusSuccess,
		Agent:   "faq",
		Message: msg,
	}
}

func newClockedCache(maxEntries int) (*InMemoryCache, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewInMemoryCache(maxEntries)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"What Is Your Return Policy?", "what is your return policy?"},
		{"  what is   your return policy?  ", "what is your return policy?"},
		{"REFUND\tINV1001", "refund inv1001"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in))
	}
}

func TestFingerprint_NormalizationShares(t *testing.T) {
	a := Fingerprint("What is your RETURN policy?", models.IntentFAQ, nil)
	b := Fingerprint("  what is your return   policy? ", models.IntentFAQ, nil)
	assert.Equal(t, a, b)
}

func TestFingerprint_IntentSeparates(t *testing.T) {
	a := Fingerprint("invoice question", models.IntentFAQ, nil)
	b := Fingerprint("invoice question", models.IntentRefund, nil)
	assert.NotEqual(t, a, b)
}

func TestFingerprint_EntitiesSeparateCustomers(t *testing.T) {
	a := Fingerprint("refund please", models.IntentRefund, map[string]string{
		models.EntityInvoiceNo: "INV1001", models.EntityCustomerID: "CUST100",
	})
	b := Fingerprint("refund please", models.IntentRefund, map[string]string{
		models.EntityInvoiceNo: "INV1001", models.EntityCustomerID: "CUST200",
	})
	assert.NotEqual(t, a, b)
}

func TestFingerprint_EntityOrderStable(t *testing.T) {
	// Map iteration order must not affect the fingerprint.
	for i := 0; i < 10; i++ {
		a := Fingerprint("q", models.IntentRefund, map[string]string{"a": "1", "b": "2", "c": "3"})
		b := Fingerprint("q", models.IntentRefund, map[string]string{"c": "3", "b": "2", "a": "1"})
		require.Equal(t, a, b)
	}
}

func TestInMemoryCache_HitWithinTTL(t *testing.T) {
	c, now := newClockedCache(10)
	ctx := context.Background()

	c.Store(ctx, "fp", successResponse("answer"), 300*time.Second)

	*now = now.Add(299 * time.Second)
	got, ok := c.Lookup(ctx, "fp")
	require.True(t, ok)
	assert.Equal(t, "answer", got.Message)
}

func TestInMemoryCache_ExpiredIsMiss(t *testing.T) {
	c, now := newClockedCache(10)
	ctx := context.Background()

	c.Store(ctx, "fp", successResponse("answer"), 300*time.Second)

	*now = now.Add(300*time.Second + time.Millisecond)
	_, ok := c.Lookup(ctx, "fp")
	assert.False(t, ok)

	// Expired entries are evicted on lookup.
	c.mu.Lock()
	_, present := c.entries["fp"]
	c.mu.Unlock()
	assert.False(t, present)
}

func TestInMemoryCache_NeverStoresErrors(t *testing.T) {
	c, _ := newClockedCache(10)
	ctx := context.Background()

	c.Store(ctx, "fp", &models.Response{Status: models.StatusError, Agent: "refund"}, time.Minute)

	_, ok := c.Lookup(ctx, "fp")
	assert.False(t, ok)
}

func TestInMemoryCache_StoresNoAnswer(t *testing.T) {
	c, _ := newClockedCache(10)
	ctx := context.Background()

	c.Store(ctx, "fp", &models.Response{Status: models.StatusNoAnswer, Agent: "general"}, time.Minute)

	_, ok := c.Lookup(ctx, "fp")
	assert.True(t, ok)
}

func TestInMemoryCache_EvictsOldestAtCap(t *testing.T) {
	c, now := newClockedCache(2)
	ctx := context.Background()

	c.Store(ctx, "first", successResponse("1"), time.Hour)
	*now = now.Add(time.Second)
	c.Store(ctx, "second", successResponse("2"), time.Hour)
	*now = now.Add(time.Second)
	c.Store(ctx, "third", successResponse("3"), time.Hour)

	_, ok := c.Lookup(ctx, "first")
	assert.False(t, ok, "oldest entry should be evicted")

	_, ok = c.Lookup(ctx, "second")
	assert.True(t, ok)
	_, ok = c.Lookup(ctx, "third")
	assert.True(t, ok)
}

func TestInMemoryCache_OverwriteDoesNotEvict(t *testing.T) {
	c, _ := newClockedCache(2)
	ctx := context.Background()

	c.Store(ctx, "a", successResponse("1"), time.Hour)
	c.Store(ctx, "b", successResponse("2"), time.Hour)
	c.Store(ctx, "a", successResponse("updated"), time.Hour)

	got, ok := c.Lookup(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, "updated", got.Message)

	_, ok = c.Lookup(ctx, "b")
	assert.True(t, ok)
}
