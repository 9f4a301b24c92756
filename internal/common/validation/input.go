package validation

import (
	"fmt"
	"regexp"
	"strings"

	"support-orchestrator/internal/models"
)

const (
	MinQueryLength = 3
	MaxQueryLength = 1000

	MinReasonLength = 10
	MaxReasonLength = 500
)

var (
	invoicePattern  = regexp.MustCompile(`INV\d{4}`)
	customerPattern = regexp.MustCompile(`CUST\d{3}`)
	strippedChars   = strings.NewReplacer("<", "", ">", "", `"`, "", "'", "")
)

// SanitizeQuery trims, collapses internal whitespace and strips
// characters with markup or quoting significance.
func SanitizeQuery(text string) string {
	text = strippedChars.Replace(text)
	return strings.Join(strings.Fields(text), " ")
}

// ValidateQuery checks a sanitized query against the length bounds.
func ValidateQuery(query string) error {
	if len(strings.TrimSpace(query)) < MinQueryLength {
		return fmt.Errorf("please provide a more detailed question (at least %d characters)", MinQueryLength)
	}
	if len(query) > MaxQueryLength {
		return fmt.Errorf("query is too long (maximum %d characters)", MaxQueryLength)
	}
	return nil
}

// ValidateRefundReason checks a refund reason against the length bounds.
func ValidateRefundReason(reason string) error {
	if len(strings.TrimSpace(reason)) < MinReasonLength {
		return fmt.Errorf("please provide a detailed reason (at least %d characters)", MinReasonLength)
	}
	if len(reason) > MaxReasonLength {
		return fmt.Errorf("reason is too long (maximum %d characters)", MaxReasonLength)
	}
	return nil
}

// ExtractEntities pulls invoice and customer identifiers out of free
// text. Matching is case-insensitive; extracted values are uppercase.
func ExtractEntities(text string) map[string]string {
	upper := strings.ToUpper(text)
	entities := map[string]string{}
	if m := invoicePattern.FindString(upper); m != "" {
		entities[models.EntityInvoiceNo] = m
	}
	if m := customerPattern.FindString(upper); m != "" {
		entities[models.EntityCustomerID] = m
	}
	return entities
}
