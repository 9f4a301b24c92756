// Package classifier calls the external intent-classification service
// and normalizes its responses into a ClassificationResult.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"support-orchestrator/internal/common/config"
	"support-orchestrator/internal/common/logger"
	"support-orchestrator/internal/models"
)

var (
	ErrClassificationTimeout = errors.New("CLASSIFICATION_TIMEOUT")
	ErrClassificationFailed  = errors.New("CLASSIFICATION_FAILED")
)

// Classifier resolves a query (plus recent conversation turns) to an
// intent. Implementations must return within the configured deadline.
type Classifier interface {
	Classify(ctx context.Context, query string, turns []models.Turn) (*models.ClassificationResult, error)
}

// HTTPClassifier is the production implementation. One request per
// query, no retries: a slow classifier is handled by the keyword
// fallback upstream, not by stacking attempts inside the deadline.
type HTTPClassifier struct {
	cfg    config.ClassifierConfig
	client *http.Client
	logger logger.Logger
}

func NewHTTPClassifier(cfg config.ClassifierConfig, log logger.Logger) *HTTPClassifier {
	return &HTTPClassifier{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout(),
		},
		logger: log.WithFields(map[string]interface{}{
			"component": "classifier",
		}),
	}
}

type classifyRequest struct {
	Query       string   `json:"query"`
	Context     []string `json:"context,omitempty"`
	Model       string   `json:"model,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
}

type classifyResponse struct {
	Intent     string            `json:"intent"`
	Confidence json.RawMessage   `json:"confidence"`
	Entities   map[string]string `json:"entities"`
}

func (c *HTTPClassifier) Classify(ctx context.Context, query string, turns []models.Turn) (*models.ClassificationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout())
	defer cancel()

	reqBody := classifyRequest{
		Query:       query,
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}
	for _, t := range turns {
		reqBody.Context = append(reqBody.Context, fmt.Sprintf("[%s] %s", t.Intent, t.Summary))
	}

	body, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/classify", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassificationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return nil, ErrClassificationTimeout
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassificationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrClassificationFailed, resp.StatusCode)
	}

	var apiResponse classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrClassificationFailed, err)
	}

	intent := models.Intent(strings.ToLower(strings.TrimSpace(apiResponse.Intent)))
	if !intent.Valid() {
		return nil, fmt.Errorf("%w: unknown intent %q", ErrClassificationFailed, apiResponse.Intent)
	}

	result := &models.ClassificationResult{
		Intent:     intent,
		Confidence: normalizeConfidence(apiResponse.Confidence),
		Entities:   apiResponse.Entities,
	}
	if result.Entities == nil {
		result.Entities = map[string]string{}
	}

	c.logger.Debug("intent classified", map[string]interface{}{
		"intent":      result.Intent,
		"confidence":  result.Confidence,
		"entityCount": len(result.Entities),
	})

	return result, nil
}

// confidenceLabels maps the qualitative labels the service sometimes
// emits instead of a number.
var confidenceLabels = map[string]float64{
	"high":   0.8,
	"medium": 0.6,
	"low":    0.4,
}

// normalizeConfidence accepts a JSON number or a label string and
// always yields a score in [0, 1]. Anything unrecognized scores 0.5.
func normalizeConfidence(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0.5
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return clamp01(num)
	}

	var label string
	if err := json.Unmarshal(raw, &label); err == nil {
		label = strings.ToLower(strings.TrimSpace(label))
		if v, ok := confidenceLabels[label]; ok {
			return v
		}
		if num, err := strconv.ParseFloat(label, 64); err == nil {
			return clamp01(num)
		}
	}
	return 0.5
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
