package agent

import (
	"context"
	"time"

	"support-orchestrator/internal/models"
)

const GeneralAgentName = "general"

// GeneralAgent is the terminal fallback for queries no other agent
// can resolve.
type GeneralAgent struct{}

func NewGeneralAgent() *GeneralAgent { return &GeneralAgent{} }

func (a *GeneralAgent) Name() string { return GeneralAgentName }

func (a *GeneralAgent) Handle(ctx context.Context, req *Request) (*models.Response, error) {
	return &models.Response{
		Status:  models.StatusNoAnswer,
		Agent:   GeneralAgentName,
		Message: "I'm not sure I fully understood your request. I can help with refund requests (please include your invoice number and customer ID) or questions about our products and policies. How can I help further?",
		Data: map[string]interface{}{
			"capabilities": []string{"refund", "faq"},
		},
		Timestamp: time.Now().UTC(),
	}, nil
}
