package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"support-orchestrator/internal/models"
)

// InteractionLog is the append-only audit trail. Every processed
// query is appended regardless of outcome; refund requests get a
// second, richer record.
type InteractionLog interface {
	Append(ctx context.Context, rec models.InteractionRecord) error
	AppendRefund(ctx context.Context, rec models.RefundRequest) error
	// ListBySession returns the session's interactions in append order.
	ListBySession(ctx context.Context, sessionID string) ([]models.InteractionRecord, error)
	ListRefundsBySession(ctx context.Context, sessionID string) ([]models.RefundRequest, error)
	// DeleteBySession removes all records for the session. Used by
	// the privacy cleanup path only.
	DeleteBySession(ctx context.Context, sessionID string) error
}

// PostgresInteractionLog persists the audit trail in Postgres.
type PostgresInteractionLog struct {
	db *sql.DB
}

func NewPostgresInteractionLog(db *sql.DB) *PostgresInteractionLog {
	return &PostgresInteractionLog{db: db}
}

func (l *PostgresInteractionLog) Append(ctx context.Context, rec models.InteractionRecord) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO interactions (session_id, created_at, query, intent, status)
		VALUES ($1, $2, $3, $4, $5)`,
		rec.SessionID,
		rec.Timestamp,
		rec.Query,
		rec.Intent,
		rec.Status,
	)
	if err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}
	return nil
}

func (l *PostgresInteractionLog) AppendRefund(ctx context.Context, rec models.RefundRequest) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO refund_requests (
			session_id, created_at, customer_id, invoice_no,
			stock_code, description, quantity, unit_price, reason, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.SessionID,
		rec.Timestamp,
		rec.CustomerID,
		rec.InvoiceNo,
		rec.StockCode,
		rec.Description,
		rec.Quantity,
		rec.UnitPrice,
		rec.Reason,
		rec.Status,
	)
	if err != nil {
		return fmt.Errorf("insert refund request: %w", err)
	}
	return nil
}

func (l *PostgresInteractionLog) ListBySession(ctx context.Context, sessionID string) ([]models.InteractionRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT session_id, created_at, query, intent, status
		FROM interactions
		WHERE session_id = $1
		ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	defer rows.Close()

	var out []models.InteractionRecord
	for rows.Next() {
		var rec models.InteractionRecord
		if err := rows.Scan(&rec.SessionID, &rec.Timestamp, &rec.Query, &rec.Intent, &rec.Status); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (l *PostgresInteractionLog) ListRefundsBySession(ctx context.Context, sessionID string) ([]models.RefundRequest, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT session_id, created_at, customer_id, invoice_no,
		       stock_code, description, quantity, unit_price, reason, status
		FROM refund_requests
		WHERE session_id = $1
		ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query refund requests: %w", err)
	}
	defer rows.Close()

	var out []models.RefundRequest
	for rows.Next() {
		var rec models.RefundRequest
		if err := rows.Scan(&rec.SessionID, &rec.Timestamp, &rec.CustomerID, &rec.InvoiceNo,
			&rec.StockCode, &rec.Description, &rec.Quantity, &rec.UnitPrice, &rec.Reason, &rec.Status); err != nil {
			return nil, fmt.Errorf("scan refund request: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (l *PostgresInteractionLog) DeleteBySession(ctx context.Context, sessionID string) error {
	if _, err := l.db.ExecContext(ctx, `DELETE FROM refund_requests WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("delete refund requests: %w", err)
	}
	if _, err := l.db.ExecContext(ctx, `DELETE FROM interactions WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("delete interactions: %w", err)
	}
	return nil
}

// InMemoryInteractionLog keeps the trail in process memory. Default
// backend when no database is configured, and the test double.
type InMemoryInteractionLog struct {
	mu      sync.Mutex
	records []models.InteractionRecord
	refunds []models.RefundRequest
}

func NewInMemoryInteractionLog() *InMemoryInteractionLog {
	return &InMemoryInteractionLog{}
}

func (l *InMemoryInteractionLog) Append(ctx context.Context, rec models.InteractionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return nil
}

func (l *InMemoryInteractionLog) AppendRefund(ctx context.Context, rec models.RefundRequest) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refunds = append(l.refunds, rec)
	return nil
}

func (l *InMemoryInteractionLog) ListBySession(ctx context.Context, sessionID string) ([]models.InteractionRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.InteractionRecord
	for _, rec := range l.records {
		if rec.SessionID == sessionID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (l *InMemoryInteractionLog) ListRefundsBySession(ctx context.Context, sessionID string) ([]models.RefundRequest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.RefundRequest
	for _, rec := range l.refunds {
		if rec.SessionID == sessionID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (l *InMemoryInteractionLog) DeleteBySession(ctx context.Context, sessionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.records[:0]
	for _, rec := range l.records {
		if rec.SessionID != sessionID {
			kept = append(kept, rec)
		}
	}
	l.records = kept

	keptRefunds := l.refunds[:0]
	for _, rec := range l.refunds {
		if rec.SessionID != sessionID {
			keptRefunds = append(keptRefunds, rec)
		}
	}
	l.refunds = keptRefunds
	return nil
}
