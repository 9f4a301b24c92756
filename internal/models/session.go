package models

import "time"

// Turn is one completed conversation exchange kept in the session's
// bounded context buffer, most-recent-last.
type Turn struct {
	Query     string    `json:"query"`
	Summary   string    `json:"summary"`
	Intent    Intent    `json:"intent"`
	Timestamp time.Time `json:"timestamp"`
}

// Session holds per-session conversational state. The session manager
// exclusively owns Session values and their mutation.
type Session struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"createdAt"`
	LastActivity    time.Time `json:"lastActivity"`
	QueryCount      int       `json:"queryCount"`
	Context         []Turn    `json:"context,omitempty"`
	ApprovedRefunds []string  `json:"approvedRefunds,omitempty"`
}

// IsExpired checks if the session has been idle beyond timeout.
func (s *Session) IsExpired(timeout time.Duration, now time.Time) bool {
	return now.Sub(s.LastActivity) >= timeout
}

// Touch updates the last activity timestamp.
func (s *Session) Touch(now time.Time) {
	s.LastActivity = now
}

// AppendTurn appends a completed exchange to the context buffer,
// dropping the oldest turn once maxTurns is exceeded.
func (s *Session) AppendTurn(t Turn, maxTurns int) {
	s.Context = append(s.Context, t)
	if maxTurns > 0 && len(s.Context) > maxTurns {
		s.Context = s.Context[len(s.Context)-maxTurns:]
	}
}

// RecentContext returns up to n most recent turns for classifier input.
func (s *Session) RecentContext(n int) []Turn {
	if n <= 0 || len(s.Context) <= n {
		return s.Context
	}
	return s.Context[len(s.Context)-n:]
}

// HasApprovedRefund reports whether the invoice already has an approved
// refund within this session.
func (s *Session) HasApprovedRefund(invoiceNo string) bool {
	for _, inv := range s.ApprovedRefunds {
		if inv == invoiceNo {
			return true
		}
	}
	return false
}

// MarkRefundApproved records an approved invoice, once.
func (s *Session) MarkRefundApproved(invoiceNo string) {
	if !s.HasApprovedRefund(invoiceNo) {
		s.ApprovedRefunds = append(s.ApprovedRefunds, invoiceNo)
	}
}
