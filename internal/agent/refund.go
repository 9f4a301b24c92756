package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	stderrors "errors"

	"support-orchestrator/internal/common/errors"
	"support-orchestrator/internal/common/logger"
	"support-orchestrator/internal/common/validation"
	"support-orchestrator/internal/models"
	"support-orchestrator/internal/store"
)

const RefundAgentName = "refund"

// RefundLedger records a session's approved refunds. Satisfied by the
// session manager so approvals survive the request.
type RefundLedger interface {
	MarkRefundApproved(ctx context.Context, sessionID, invoiceNo string) error
}

// RefundAgent verifies refund requests against the transaction
// reference data and logs approved ones.
type RefundAgent struct {
	transactions store.TransactionStore
	log          store.InteractionLog
	ledger       RefundLedger
	errs         *errors.Handler
	logger       logger.Logger
}

func NewRefundAgent(transactions store.TransactionStore, log store.InteractionLog, ledger RefundLedger, errs *errors.Handler, lg logger.Logger) *RefundAgent {
	return &RefundAgent{
		transactions: transactions,
		log:          log,
		ledger:       ledger,
		errs:         errs,
		logger:       lg.WithFields(map[string]interface{}{"agent": RefundAgentName}),
	}
}

func (a *RefundAgent) Name() string { return RefundAgentName }

func (a *RefundAgent) Handle(ctx context.Context, req *Request) (*models.Response, error) {
	invoiceNo := req.Entities[models.EntityInvoiceNo]
	customerID := req.Entities[models.EntityCustomerID]

	// Entities may be absent when the fallback produced the intent
	// from keywords alone.
	if invoiceNo == "" || customerID == "" {
		extracted := validation.ExtractEntities(req.Query)
		if invoiceNo == "" {
			invoiceNo = extracted[models.EntityInvoiceNo]
		}
		if customerID == "" {
			customerID = extracted[models.EntityCustomerID]
		}
	}

	if invoiceNo == "" || customerID == "" {
		return a.requestMissingFields(invoiceNo, customerID)
	}

	record, err := a.transactions.Verify(ctx, invoiceNo, customerID)
	if err != nil {
		switch {
		case stderrors.Is(err, store.ErrTransactionNotFound):
			return a.toResponse(errors.NewTransactionNotFoundError(invoiceNo))
		case stderrors.Is(err, store.ErrCustomerMismatch):
			return a.toResponse(errors.NewVerificationMismatchError())
		default:
			return nil, errors.NewStoreUnavailableError(err)
		}
	}

	reason := extractRefundReason(req.Query)
	if reason == "" {
		return a.requestReason(record)
	}
	if err := validation.ValidateRefundReason(reason); err != nil {
		return a.toResponse(errors.NewValidationError(err.Error(), "refund reason rejected"))
	}

	// Repeated requests for an already-approved invoice re-confirm
	// the prior approval. No second log entry.
	if req.Session == nil || !req.Session.HasApprovedRefund(invoiceNo) {
		refund := models.RefundRequest{
			SessionID:   req.SessionID,
			Timestamp:   time.Now().UTC(),
			CustomerID:  record.CustomerID,
			InvoiceNo:   record.InvoiceNo,
			StockCode:   record.StockCode,
			Description: record.Description,
			Quantity:    record.Quantity,
			UnitPrice:   record.UnitPrice,
			Reason:      reason,
			Status:      "pending",
		}
		if err := a.log.AppendRefund(ctx, refund); err != nil {
			return nil, errors.NewStoreUnavailableError(err)
		}
		if err := a.ledger.MarkRefundApproved(ctx, req.SessionID, invoiceNo); err != nil {
			return nil, errors.NewInternalError(err)
		}
		a.logger.Info("refund approved", map[string]interface{}{
			"sessionId": req.SessionID,
			"invoiceNo": invoiceNo,
		})
	}

	return approvedResponse(record), nil
}

func (a *RefundAgent) requestMissingFields(invoiceNo, customerID string) (*models.Response, error) {
	var missing []string
	if invoiceNo == "" {
		missing = append(missing, "Invoice Number (format: INV####)")
	}
	if customerID == "" {
		missing = append(missing, "Customer ID (format: CUST###)")
	}

	stdErr := errors.NewValidationError(
		fmt.Sprintf("To process your refund request, I need the following information: %s. You can find these details in your order confirmation email or receipt.",
			strings.Join(missing, ", ")),
		"missing refund identifiers",
	)
	stdErr.Metadata = map[string]interface{}{"missingFields": missing}
	return a.toResponse(stdErr)
}

func (a *RefundAgent) requestReason(record *models.TransactionRecord) (*models.Response, error) {
	stdErr := errors.NewValidationError(
		fmt.Sprintf("I found your transaction for %s ($%.2f x %d). To complete the refund request, please tell me the reason for the return.",
			record.Description, record.UnitPrice, record.Quantity),
		"refund reason missing",
	)
	stdErr.Metadata = map[string]interface{}{"transactionVerified": true, "awaitingReason": true}
	return a.toResponse(stdErr)
}

func (a *RefundAgent) toResponse(stdErr *errors.StandardError) (*models.Response, error) {
	resp, fatal := a.errs.ToResponse(RefundAgentName, stdErr)
	if fatal != nil {
		return nil, fatal
	}
	return resp, nil
}

// approvedResponse is deterministic given the transaction record so
// repeated approvals return identical structured data.
func approvedResponse(record *models.TransactionRecord) *models.Response {
	return &models.Response{
		Status: models.StatusSuccess,
		Agent:  RefundAgentName,
		Message: fmt.Sprintf(
			"Your refund request for %s (invoice %s) has been approved. Refund amount: $%.2f. The refund will be processed to your original payment method within 5-7 business days.",
			record.Description, record.InvoiceNo, record.Total()),
		Confidence: 0.9,
		Data: map[string]interface{}{
			"invoiceNo":    record.InvoiceNo,
			"customerId":   record.CustomerID,
			"stockCode":    record.StockCode,
			"description":  record.Description,
			"quantity":     record.Quantity,
			"unitPrice":    record.UnitPrice,
			"refundAmount": record.Total(),
		},
		Timestamp: time.Now().UTC(),
	}
}

// reasonIndicators introduce an explanation in free text. Checked in
// order; the first indicator with enough trailing text wins.
var reasonIndicators = []string{
	"because", "reason", "due to", "since", "as", "defective",
	"broken", "not working", "wrong", "mistake", "changed mind",
}

func extractRefundReason(text string) string {
	lower := strings.ToLower(text)
	for _, indicator := range reasonIndicators {
		idx := strings.Index(lower, indicator)
		if idx < 0 {
			continue
		}
		candidate := strings.TrimSpace(lower[idx+len(indicator):])
		if len(candidate) > 10 {
			return truncate(candidate, validation.MaxReasonLength)
		}
	}

	// No marker but the message is substantial enough to stand as the
	// reason itself.
	trimmed := strings.TrimSpace(text)
	if len(trimmed) > 20 {
		return truncate(trimmed, validation.MaxReasonLength)
	}
	return ""
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
