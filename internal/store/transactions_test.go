// internal/store/transactions_test.go
package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDate(t *testing.T) time.Time {
	t.Helper()
	return time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
}

var transactionColumns = []string{
	"invoice_no", "stock_code", "description", "quantity", "invoice_date", "unit_price", "customer_id",
}

func TestPostgresTransactionStore_ExactMatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT invoice_no`).
		WithArgs("INV1001").
		WillReturnRows(sqlmock.NewRows(transactionColumns).
			AddRow("INV1001", "SKU100", "Wireless Mouse", 2, sampleDate(t), 24.99, "CUST267"))

	s := NewPostgresTransactionStore(db)
	rec, err := s.Verify(context.Background(), "INV1001", "CUST267")

	require.NoError(t, err)
	assert.Equal(t, "INV1001", rec.InvoiceNo)
	assert.Equal(t, "CUST267", rec.CustomerID)
	assert.InDelta(t, 49.98, rec.Total(), 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTransactionStore_CustomerMismatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT invoice_no`).
		WithArgs("INV1001").
		WillReturnRows(sqlmock.NewRows(transactionColumns).
			AddRow("INV1001", "SKU100", "Wireless Mouse", 2, sampleDate(t), 24.99, "CUST999"))

	s := NewPostgresTransactionStore(db)
	_, err = s.Verify(context.Background(), "INV1001", "CUST267")

	assert.ErrorIs(t, err, ErrCustomerMismatch)
}

func TestPostgresTransactionStore_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT invoice_no`).
		WithArgs("INV9999").
		WillReturnRows(sqlmock.NewRows(transactionColumns))

	s := NewPostgresTransactionStore(db)
	_, err = s.Verify(context.Background(), "INV9999", "CUST267")

	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

const sampleTransactionsCSV = `InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID
INV1001,SKU100,Wireless Mouse,2,2025-01-15,24.99,CUST267
INV1001,SKU101,USB Cable,1,2025-01-15,7.50,CUST267
INV1002,SKU200,Mechanical Keyboard,1,2025-02-03,89.00,CUST300
`

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeTempCSV(t *testing.T, content string) string {
	return writeTempFile(t, "transactions.csv", content)
}

func TestCSVTransactionStore_Verify(t *testing.T) {
	s, err := NewCSVTransactionStore(writeTempCSV(t, sampleTransactionsCSV))
	require.NoError(t, err)
	ctx := context.Background()

	rec, err := s.Verify(ctx, "INV1001", "CUST267")
	require.NoError(t, err)
	assert.Equal(t, "Wireless Mouse", rec.Description)

	_, err = s.Verify(ctx, "INV1002", "CUST267")
	assert.ErrorIs(t, err, ErrCustomerMismatch)

	_, err = s.Verify(ctx, "INV9999", "CUST267")
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestCSVTransactionStore_CaseInsensitiveLookup(t *testing.T) {
	s, err := NewCSVTransactionStore(writeTempCSV(t, sampleTransactionsCSV))
	require.NoError(t, err)

	rec, err := s.Verify(context.Background(), "inv1001", "cust267")
	require.NoError(t, err)
	assert.Equal(t, "INV1001", rec.InvoiceNo)
}

func TestCSVTransactionStore_MalformedRowRejected(t *testing.T) {
	bad := "InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID\nINV1001,SKU100,Mouse,two,2025-01-15,24.99,CUST267\n"
	_, err := NewCSVTransactionStore(writeTempCSV(t, bad))
	assert.Error(t, err)
}
