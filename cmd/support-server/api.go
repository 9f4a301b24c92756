// cmd/support-server/api.go
package main

import (
	"encoding/json"
	"net/http"
	"strings"

	"support-orchestrator/internal/common/logger"
	"support-orchestrator/internal/orchestrator"
	"support-orchestrator/internal/session"
)

type api struct {
	orch   *orchestrator.Orchestrator
	logger logger.Logger
}

func newAPI(orch *orchestrator.Orchestrator, log logger.Logger) *api {
	return &api{
		orch:   orch,
		logger: log.WithFields(map[string]interface{}{"component": "http"}),
	}
}

type queryRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// handleQuery is POST /v1/query. A missing session id starts a new
// session; the assigned id comes back in the response envelope.
func (a *api) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.SessionID == "" {
		req.SessionID = session.NewID()
	}

	resp, err := a.orch.Process(r.Context(), req.SessionID, req.Text)
	if err != nil {
		a.logger.WithError(err).Error("request aborted", map[string]interface{}{
			"sessionId": req.SessionID,
		})
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "internal error, please try again later",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": req.SessionID,
		"response":   resp,
	})
}

// handleSession serves the per-session subresources:
//
//	GET    /v1/sessions/{id}/history
//	GET    /v1/sessions/{id}/refunds
//	DELETE /v1/sessions/{id}
func (a *api) handleSession(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/sessions/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session id required"})
		return
	}
	sessionID := parts[0]

	switch {
	case r.Method == http.MethodDelete && len(parts) == 1:
		if err := a.orch.EndSession(r.Context(), sessionID); err != nil {
			a.logger.WithError(err).Error("session cleanup failed", map[string]interface{}{
				"sessionId": sessionID,
			})
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cleanup failed"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	case r.Method == http.MethodGet && len(parts) == 2 && parts[1] == "history":
		records, err := a.orch.History(r.Context(), sessionID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"interactions": records})

	case r.Method == http.MethodGet && len(parts) == 2 && parts[1] == "refunds":
		records, err := a.orch.RefundHistory(r.Context(), sessionID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "refunds unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"refundRequests": records})

	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
