// Package agent contains the specialized handlers the router
// dispatches to: refund verification, FAQ search and the general
// fallback. Agents never fail outright; every path returns a
// well-formed Response.
package agent

import (
	"context"

	"support-orchestrator/internal/models"
)

// Request carries everything an agent may need for one query. The
// session pointer is read-only inside agents; mutations go through
// the session manager.
type Request struct {
	SessionID string
	Query     string
	Entities  map[string]string
	Session   *models.Session
}

// Agent handles a routed query. Recoverable failures are folded into
// the Response; only fatal conditions (store unavailable, invariant
// violation) come back as an error and abort the request.
type Agent interface {
	Name() string
	Handle(ctx context.Context, req *Request) (*models.Response, error)
}
