// internal/agent/faq_test.go
package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"support-orchestrator/internal/common/logger"
	"support-orchestrator/internal/models"
)

type fakeFAQStore struct {
	records []models.FAQRecord
	fail    error
}

func (f *fakeFAQStore) All(ctx context.Context) ([]models.FAQRecord, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	return f.records, nil
}

func knowledgeBase() []models.FAQRecord {
	return []models.FAQRecord{
		{ID: 1, Category: "returns", Question: "What is your return policy?",
			Answer: "Items can be returned within 30 days of purchase.", Keywords: []string{"return", "policy", "refund"}},
		{ID: 2, Category: "shipping", Question: "How long does shipping take?",
			Answer: "Standard shipping takes 3-5 business days.", Keywords: []string{"shipping", "delivery", "time"}},
		{ID: 3, Category: "payment", Question: "What payment methods do you accept?",
			Answer: "We accept all major credit cards and PayPal.", Keywords: []string{"payment", "credit card", "paypal"}},
	}
}

func newFAQFixture(t *testing.T, records []models.FAQRecord, threshold float64) *FAQAgent {
	t.Helper()
	return NewFAQAgent(&fakeFAQStore{records: records}, threshold, logger.NewTestLogger(t))
}

func faqRequest(query string) *Request {
	return &Request{SessionID: "s1", Query: query, Entities: map[string]string{}}
}

func TestFAQAgent_MatchAboveThreshold(t *testing.T) {
	a := newFAQFixture(t, knowledgeBase(), 0.35)

	resp, err := a.Handle(context.Background(), faqRequest("what is your return policy"))

	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, resp.Status)
	assert.Equal(t, FAQAgentName, resp.Agent)
	assert.Equal(t, "Items can be returned within 30 days of purchase.", resp.Message)
	assert.Equal(t, 1, resp.Data["faqId"])
	assert.GreaterOrEqual(t, resp.Confidence, 0.35)
}

func TestFAQAgent_NoAnswerBelowThreshold(t *testing.T) {
	a := newFAQFixture(t, knowledgeBase(), 0.35)

	resp, err := a.Handle(context.Background(), faqRequest("zebra xylophone quantum"))

	require.NoError(t, err)
	assert.Equal(t, models.StatusNoAnswer, resp.Status)
	assert.NotNil(t, resp.Data["bestScore"])
	assert.Less(t, resp.Confidence, 0.35)
}

func TestFAQAgent_Deterministic(t *testing.T) {
	a := newFAQFixture(t, knowledgeBase(), 0.35)
	ctx := context.Background()

	first, err := a.Handle(ctx, faqRequest("how long does shipping take"))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := a.Handle(ctx, faqRequest("how long does shipping take"))
		require.NoError(t, err)
		assert.Equal(t, first.Message, again.Message)
		assert.Equal(t, first.Data["faqId"], again.Data["faqId"])
		assert.Equal(t, first.Confidence, again.Confidence)
	}
}

func TestFAQAgent_TieBreakLowestID(t *testing.T) {
	// Identical records except id; both score the same for the query.
	records := []models.FAQRecord{
		{ID: 7, Category: "a", Question: "Do you ship overseas?",
			Answer: "Answer seven.", Keywords: []string{"overseas"}},
		{ID: 4, Category: "a", Question: "Do you ship overseas?",
			Answer: "Answer four.", Keywords: []string{"overseas"}},
	}
	// Store serves records ordered by ascending id.
	a := newFAQFixture(t, []models.FAQRecord{records[1], records[0]}, 0.1)

	resp, err := a.Handle(context.Background(), faqRequest("do you ship overseas"))

	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, resp.Status)
	assert.Equal(t, 4, resp.Data["faqId"])
	assert.Equal(t, "Answer four.", resp.Message)
}

func TestFAQAgent_FuzzyKeywordMatch(t *testing.T) {
	a := newFAQFixture(t, knowledgeBase(), 0.35)

	// "shiping" is a near-miss for the "shipping" keyword.
	resp, err := a.Handle(context.Background(), faqRequest("how long does shiping usually take"))

	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, resp.Status)
	assert.Equal(t, 2, resp.Data["faqId"])
}

func TestFAQAgent_StoreFailureIsFatal(t *testing.T) {
	a := NewFAQAgent(&fakeFAQStore{fail: context.DeadlineExceeded}, 0.35, logger.NewTestLogger(t))

	resp, err := a.Handle(context.Background(), faqRequest("any question"))

	require.Error(t, err)
	assert.Nil(t, resp)
}

type searchingFAQStore struct {
	fakeFAQStore
	results   []models.FAQRecord
	searchErr error
	lastQuery string
	lastK     int
	allCalls  int
}

func (f *searchingFAQStore) All(ctx context.Context) ([]models.FAQRecord, error) {
	f.allCalls++
	return f.fakeFAQStore.All(ctx)
}

func (f *searchingFAQStore) Search(ctx context.Context, query string, k int) ([]models.FAQRecord, error) {
	f.lastQuery = query
	f.lastK = k
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.results, nil
}

func TestFAQAgent_SearchNarrowsCandidates(t *testing.T) {
	kb := knowledgeBase()
	// Relevance order from the backend; local scoring still decides.
	st := &searchingFAQStore{
		fakeFAQStore: fakeFAQStore{records: kb},
		results:      []models.FAQRecord{kb[1], kb[0]},
	}
	a := NewFAQAgent(st, 0.35, logger.NewTestLogger(t))

	resp, err := a.Handle(context.Background(), faqRequest("what is your return policy"))

	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, resp.Status)
	assert.Equal(t, 1, resp.Data["faqId"])
	assert.Equal(t, "what is your return policy", st.lastQuery)
	assert.Equal(t, candidateLimit, st.lastK)
	assert.Zero(t, st.allCalls, "search results replace the full scan")
}

func TestFAQAgent_SearchFailureFallsBackToFullScan(t *testing.T) {
	st := &searchingFAQStore{
		fakeFAQStore: fakeFAQStore{records: knowledgeBase()},
		searchErr:    context.DeadlineExceeded,
	}
	a := NewFAQAgent(st, 0.35, logger.NewTestLogger(t))

	resp, err := a.Handle(context.Background(), faqRequest("how long does shipping take"))

	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, resp.Status)
	assert.Equal(t, 2, resp.Data["faqId"])
	assert.Equal(t, 1, st.allCalls)
}

func TestNormalizeScore(t *testing.T) {
	assert.Equal(t, 0.0, normalizeScore(0))
	assert.Equal(t, 0.0, normalizeScore(-1))
	assert.InDelta(t, 0.2, normalizeScore(1), 0.001)
	assert.InDelta(t, 0.5, normalizeScore(4), 0.001)
	assert.Less(t, normalizeScore(100), 1.0)
	assert.Greater(t, normalizeScore(5), normalizeScore(4))
}
