package errors

import (
	"time"

	"support-orchestrator/internal/models"
)

// Handler converts errors into standardized Responses at the
// agent/router boundary. The caller never receives a raw failure.
type Handler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

func NewHandler(logger Logger) *Handler {
	return &Handler{logger: logger}
}

// ToResponse normalizes err and converts it into a terminal Response
// attributed to agent. Fatal codes return (nil, *StandardError) so the
// request aborts without caching or logging a misleading success.
func (h *Handler) ToResponse(agent string, err error) (*models.Response, *StandardError) {
	stdErr := h.normalize(err)

	if Fatal(stdErr.Code) {
		h.logger.Error("request aborted", map[string]interface{}{
			"agent":     agent,
			"errorCode": string(stdErr.Code),
			"details":   stdErr.Details,
		})
		return nil, stdErr
	}

	h.logger.Warn("recoverable failure converted to response", map[string]interface{}{
		"agent":       agent,
		"errorCode":   string(stdErr.Code),
		"recoverable": stdErr.Recoverable,
	})

	return &models.Response{
		Status:    models.StatusError,
		Agent:     agent,
		Message:   stdErr.Message,
		Data:      errorData(stdErr),
		Timestamp: time.Now().UTC(),
	}, nil
}

// normalize ensures we always have a StandardError.
func (h *Handler) normalize(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return NewInternalError(err)
}

func errorData(stdErr *StandardError) map[string]interface{} {
	data := map[string]interface{}{
		"errorCode":   string(stdErr.Code),
		"recoverable": stdErr.Recoverable,
	}
	for k, v := range stdErr.Metadata {
		data[k] = v
	}
	return data
}
