// Package store provides read-only access to the transaction and FAQ
// reference data and the append-only interaction log.
package store

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"support-orchestrator/internal/models"
)

var (
	// ErrTransactionNotFound means no record exists for the invoice.
	ErrTransactionNotFound = errors.New("TRANSACTION_NOT_FOUND")
	// ErrCustomerMismatch means the invoice exists but for a
	// different customer. Callers must not surface the distinction.
	ErrCustomerMismatch = errors.New("CUSTOMER_MISMATCH")
)

// TransactionStore verifies refund requests against immutable
// reference data.
type TransactionStore interface {
	// Verify returns the record for the exact (invoiceNo, customerID)
	// pair. Returns ErrTransactionNotFound when the invoice is
	// unknown, ErrCustomerMismatch when it belongs to another
	// customer.
	Verify(ctx context.Context, invoiceNo, customerID string) (*models.TransactionRecord, error)
}

// PostgresTransactionStore reads the transactions table.
type PostgresTransactionStore struct {
	db *sql.DB
}

func NewPostgresTransactionStore(db *sql.DB) *PostgresTransactionStore {
	return &PostgresTransactionStore{db: db}
}

const verifyQuery = `
	SELECT invoice_no, stock_code, description, quantity, invoice_date, unit_price, customer_id
	FROM transactions
	WHERE invoice_no = $1`

func (s *PostgresTransactionStore) Verify(ctx context.Context, invoiceNo, customerID string) (*models.TransactionRecord, error) {
	rows, err := s.db.QueryContext(ctx, verifyQuery, invoiceNo)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	found := false
	for rows.Next() {
		var rec models.TransactionRecord
		if err := rows.Scan(
			&rec.InvoiceNo, &rec.StockCode, &rec.Description,
			&rec.Quantity, &rec.InvoiceDate, &rec.UnitPrice, &rec.CustomerID,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		found = true
		if strings.EqualFold(rec.CustomerID, customerID) {
			return &rec, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	if found {
		return nil, ErrCustomerMismatch
	}
	return nil, ErrTransactionNotFound
}

// CSVTransactionStore loads the transactions file once at startup.
// Columns: InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID.
type CSVTransactionStore struct {
	records []models.TransactionRecord
}

func NewCSVTransactionStore(path string) (*CSVTransactionStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transactions file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read transactions file: %w", err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("transactions file %s is empty", path)
	}

	records := make([]models.TransactionRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := parseTransactionRow(row)
		if err != nil {
			return nil, fmt.Errorf("transactions file %s line %d: %w", path, i+2, err)
		}
		records = append(records, rec)
	}

	return &CSVTransactionStore{records: records}, nil
}

func parseTransactionRow(row []string) (models.TransactionRecord, error) {
	var rec models.TransactionRecord
	if len(row) != 7 {
		return rec, fmt.Errorf("expected 7 columns, got %d", len(row))
	}

	qty, err := strconv.Atoi(strings.TrimSpace(row[3]))
	if err != nil {
		return rec, fmt.Errorf("quantity: %w", err)
	}
	date, err := time.Parse("2006-01-02", strings.TrimSpace(row[4]))
	if err != nil {
		return rec, fmt.Errorf("invoice date: %w", err)
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(row[5]), 64)
	if err != nil {
		return rec, fmt.Errorf("unit price: %w", err)
	}

	rec = models.TransactionRecord{
		InvoiceNo:   strings.TrimSpace(row[0]),
		StockCode:   strings.TrimSpace(row[1]),
		Description: strings.TrimSpace(row[2]),
		Quantity:    qty,
		InvoiceDate: date,
		UnitPrice:   price,
		CustomerID:  strings.TrimSpace(row[6]),
	}
	return rec, nil
}

func (s *CSVTransactionStore) Verify(ctx context.Context, invoiceNo, customerID string) (*models.TransactionRecord, error) {
	found := false
	for i := range s.records {
		rec := &s.records[i]
		if !strings.EqualFold(rec.InvoiceNo, invoiceNo) {
			continue
		}
		found = true
		if strings.EqualFold(rec.CustomerID, customerID) {
			cp := *rec
			return &cp, nil
		}
	}
	if found {
		return nil, ErrCustomerMismatch
	}
	return nil, ErrTransactionNotFound
}
