package models

import "time"

// Intent is the categorical label assigned to a query.
type Intent string

const (
	IntentRefund  Intent = "refund"
	IntentFAQ     Intent = "faq"
	IntentGeneral Intent = "general"
)

// Valid reports whether the label belongs to the closed intent set.
func (i Intent) Valid() bool {
	switch i {
	case IntentRefund, IntentFAQ, IntentGeneral:
		return true
	}
	return false
}

// Status is the terminal outcome of a processed query.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusError    Status = "error"
	StatusNoAnswer Status = "no_answer"
)

// Response is the standardized output shape. Every code path through
// the core terminates in exactly one Response.
type Response struct {
	Status     Status                 `json:"status"`
	Agent      string                 `json:"agent"`
	Message    string                 `json:"message"`
	Confidence float64                `json:"confidence"`
	Data       map[string]interface{} `json:"data,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// Cacheable reports whether the response may populate the cache.
// Transient failures must not be memoized.
func (r *Response) Cacheable() bool {
	return r.Status == StatusSuccess || r.Status == StatusNoAnswer
}

// ClassificationResult is the outcome of classifying a query, whether
// produced by the external service or the local fallback heuristic.
type ClassificationResult struct {
	Intent     Intent            `json:"intent"`
	Confidence float64           `json:"confidence"`
	Entities   map[string]string `json:"entities,omitempty"`
	Fallback   bool              `json:"fallback"`
}

// Entity names used in ClassificationResult.Entities.
const (
	EntityInvoiceNo  = "invoice_no"
	EntityCustomerID = "customer_id"
)
