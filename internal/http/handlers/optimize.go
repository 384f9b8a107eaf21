package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmaintain/makepromptsbetter-sub000/internal/service"
)

// OptimizeHandler handles prompt optimization endpoints.
type OptimizeHandler struct {
	optimizerSvc *service.OptimizerService
}

// NewOptimizeHandler creates a new optimize handler.
func NewOptimizeHandler(optimizerSvc *service.OptimizerService) *OptimizeHandler {
	return &OptimizeHandler{optimizerSvc: optimizerSvc}
}

// OptimizeInput represents an optimization request.
type OptimizeInput struct {
	Body struct {
		Prompt  string `json:"prompt" minLength:"1" maxLength:"10000" doc:"Draft prompt to optimize"`
		Context string `json:"context,omitempty" maxLength:"5000" doc:"Optional context about the prompt's purpose"`
	}
}

// OptimizeOutput represents an optimization response.
type OptimizeOutput struct {
	Body struct {
		ID              int64  `json:"id"`
		OptimizedPrompt string `json:"optimized_prompt"`
		Score           int    `json:"score"`
		TokenBalance    int    `json:"token_balance"`
	}
}

// Optimize handles spending one token to improve a prompt.
func (h *OptimizeHandler) Optimize(ctx context.Context, input *OptimizeInput) (*OptimizeOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	result, err := h.optimizerSvc.Optimize(ctx, userID, getFingerprint(ctx), input.Body.Prompt, input.Body.Context)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInsufficientBalance):
			return nil, huma.NewError(http.StatusPaymentRequired, "insufficient tokens")
		case errors.Is(err, service.ErrUserNotFound):
			return nil, huma.Error404NotFound("user not found")
		default:
			return nil, huma.Error500InternalServerError("failed to optimize prompt")
		}
	}

	return &OptimizeOutput{
		Body: struct {
			ID              int64  `json:"id"`
			OptimizedPrompt string `json:"optimized_prompt"`
			Score           int    `json:"score"`
			TokenBalance    int    `json:"token_balance"`
		}{
			ID:              result.Record.ID,
			OptimizedPrompt: result.Record.OptimizedPrompt,
			Score:           result.Record.Score,
			TokenBalance:    result.TokenBalance,
		},
	}, nil
}

// RateInput represents a rating request.
type RateInput struct {
	Body struct {
		Prompt string `json:"prompt" minLength:"1" maxLength:"10000" doc:"Prompt to score"`
	}
}

// RateOutput represents a rating response.
type RateOutput struct {
	Body struct {
		Score int `json:"score" doc:"Quality score from 1 to 10"`
	}
}

// Rate handles scoring a prompt without spending a token. No auth required.
func (h *OptimizeHandler) Rate(ctx context.Context, input *RateInput) (*RateOutput, error) {
	// Rating is the one unauthenticated LLM path; usage is attributed to the
	// fingerprint when a session is present and left anonymous otherwise.
	score, err := h.optimizerSvc.Rate(ctx, getFingerprint(ctx), input.Body.Prompt)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to rate prompt")
	}

	return &RateOutput{
		Body: struct {
			Score int `json:"score" doc:"Quality score from 1 to 10"`
		}{
			Score: score,
		},
	}, nil
}
