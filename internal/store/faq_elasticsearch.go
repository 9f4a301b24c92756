package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"support-orchestrator/internal/models"
)

// ElasticFAQStore serves the knowledge base from an Elasticsearch
// index instead of the local JSON file. All still returns the full
// record set so local scoring behaves identically across backends.
type ElasticFAQStore struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticFAQStore(client *elasticsearch.Client, index string) *ElasticFAQStore {
	return &ElasticFAQStore{client: client, index: index}
}

const faqFetchSize = 1000

func (s *ElasticFAQStore) All(ctx context.Context) ([]models.FAQRecord, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{"match_all": map[string]interface{}{}},
		"sort":  []interface{}{map[string]interface{}{"id": "asc"}},
	}
	raw, _ := json.Marshal(body)

	size := faqFetchSize
	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  strings.NewReader(string(raw)),
		Size:  &size,
	}

	records, err := s.search(ctx, req)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ID < records[j].ID
	})
	return records, nil
}

// Search runs a server-side relevance query over question, answer and
// keywords. Used when the caller wants Elasticsearch scoring rather
// than the local matcher.
func (s *ElasticFAQStore) Search(ctx context.Context, query string, k int) ([]models.FAQRecord, error) {
	if k < 1 {
		k = 5
	}
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"question^3", "keywords^2", "answer"},
				"type":   "best_fields",
			},
		},
	}
	raw, _ := json.Marshal(body)

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  strings.NewReader(string(raw)),
		Size:  &k,
	}

	return s.search(ctx, req)
}

func (s *ElasticFAQStore) search(ctx context.Context, req esapi.SearchRequest) ([]models.FAQRecord, error) {
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("faq search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("faq search failed: %s", res.String())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source models.FAQRecord `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode faq search response: %w", err)
	}

	records := make([]models.FAQRecord, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		records = append(records, hit.Source)
	}
	return records, nil
}
