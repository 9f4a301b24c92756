package models

import "time"

// TransactionRecord is one line item from the read-only transaction
// reference data. Lookup key is the (InvoiceNo, CustomerID) pair.
type TransactionRecord struct {
	InvoiceNo   string    `json:"invoiceNo" db:"invoice_no"`
	StockCode   string    `json:"stockCode" db:"stock_code"`
	Description string    `json:"description" db:"description"`
	Quantity    int       `json:"quantity" db:"quantity"`
	InvoiceDate time.Time `json:"invoiceDate" db:"invoice_date"`
	UnitPrice   float64   `json:"unitPrice" db:"unit_price"`
	CustomerID  string    `json:"customerId" db:"customer_id"`
}

// Total returns the line-item amount.
func (t *TransactionRecord) Total() float64 {
	return t.UnitPrice * float64(t.Quantity)
}

// FAQRecord is one entry from the read-only FAQ knowledge base.
type FAQRecord struct {
	ID       int      `json:"id"`
	Category string   `json:"category"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Keywords []string `json:"keywords"`
}

// InteractionRecord is one append-only entry in the interaction log.
type InteractionRecord struct {
	SessionID string    `json:"sessionId" db:"session_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Query     string    `json:"query" db:"query"`
	Intent    Intent    `json:"intent" db:"intent"`
	Status    Status    `json:"status" db:"status"`
}

// RefundRequest is the structured record appended for an approved
// refund. Status starts as "pending"; the core never advances it.
type RefundRequest struct {
	SessionID   string    `json:"sessionId" db:"session_id"`
	Timestamp   time.Time `json:"timestamp" db:"timestamp"`
	CustomerID  string    `json:"customerId" db:"customer_id"`
	InvoiceNo   string    `json:"invoiceNo" db:"invoice_no"`
	StockCode   string    `json:"stockCode" db:"stock_code"`
	Description string    `json:"description" db:"description"`
	Quantity    int       `json:"quantity" db:"quantity"`
	UnitPrice   float64   `json:"unitPrice" db:"unit_price"`
	Reason      string    `json:"reason" db:"reason"`
	Status      string    `json:"status" db:"status"`
}
