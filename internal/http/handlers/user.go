package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmaintain/makepromptsbetter-sub000/internal/http/mw"
	"github.com/jmaintain/makepromptsbetter-sub000/internal/service"
)

// UserHandler handles user profile and usage endpoints.
type UserHandler struct {
	userSvc    *service.UserService
	tokenSvc   *service.TokenService
	personaSvc *service.PersonaService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(userSvc *service.UserService, tokenSvc *service.TokenService, personaSvc *service.PersonaService) *UserHandler {
	return &UserHandler{userSvc: userSvc, tokenSvc: tokenSvc, personaSvc: personaSvc}
}

// UserResponse represents a user profile in responses.
type UserResponse struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	TokenBalance int    `json:"token_balance"`
	HasPurchased bool   `json:"has_purchased"`
	CreatedAt    string `json:"created_at"`
}

// GetUserOutput represents the current-user response.
type GetUserOutput struct {
	Body UserResponse
}

// GetUser returns the authenticated user's profile, creating the user row
// on first sight of a valid session token.
func (h *UserHandler) GetUser(ctx context.Context, input *struct{}) (*GetUserOutput, error) {
	claims := mw.GetUserClaims(ctx)
	if claims == nil {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	user, err := h.userSvc.EnsureUser(ctx, claims.UserID, claims.Email, claims.FirstName, claims.LastName)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to load user")
	}

	return &GetUserOutput{
		Body: UserResponse{
			ID:           user.ID,
			Email:        user.Email,
			FirstName:    user.FirstName,
			LastName:     user.LastName,
			TokenBalance: user.TokenBalance,
			HasPurchased: user.HasPurchased,
			CreatedAt:    user.CreatedAt.Format(time.RFC3339),
		},
	}, nil
}

// GetStatsOutput represents the usage stats response.
type GetStatsOutput struct {
	Body struct {
		TokenBalance       int  `json:"token_balance"`
		HasPurchased       bool `json:"has_purchased"`
		OptimizationsToday int  `json:"optimizations_today"`
		PersonasToday      int  `json:"personas_today"`
		DailyPersonaLimit  int  `json:"daily_persona_limit"`
	}
}

// GetStats returns the user's balance and today's usage counts.
func (h *UserHandler) GetStats(ctx context.Context, input *struct{}) (*GetStatsOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	stats, err := h.userSvc.Stats(ctx, userID, getFingerprint(ctx), h.personaSvc.DailyLimit())
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return nil, huma.Error404NotFound("user not found")
		}
		return nil, huma.Error500InternalServerError("failed to get stats")
	}

	return &GetStatsOutput{
		Body: struct {
			TokenBalance       int  `json:"token_balance"`
			HasPurchased       bool `json:"has_purchased"`
			OptimizationsToday int  `json:"optimizations_today"`
			PersonasToday      int  `json:"personas_today"`
			DailyPersonaLimit  int  `json:"daily_persona_limit"`
		}{
			TokenBalance:       stats.TokenBalance,
			HasPurchased:       stats.HasPurchased,
			OptimizationsToday: stats.OptimizationsToday,
			PersonasToday:      stats.PersonasToday,
			DailyPersonaLimit:  stats.DailyPersonaLimit,
		},
	}, nil
}

// GetCreditsOutput represents the credits response.
type GetCreditsOutput struct {
	Body struct {
		TokenBalance int    `json:"token_balance"`
		ResetsAt     string `json:"resets_at" doc:"When daily quotas reset (next midnight, server time)"`
	}
}

// GetCredits returns the token balance and the next daily-quota reset time.
func (h *UserHandler) GetCredits(ctx context.Context, input *struct{}) (*GetCreditsOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	balance, err := h.tokenSvc.GetBalance(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return nil, huma.Error404NotFound("user not found")
		}
		return nil, huma.Error500InternalServerError("failed to get balance")
	}

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)

	return &GetCreditsOutput{
		Body: struct {
			TokenBalance int    `json:"token_balance"`
			ResetsAt     string `json:"resets_at" doc:"When daily quotas reset (next midnight, server time)"`
		}{
			TokenBalance: balance,
			ResetsAt:     midnight.Format(time.RFC3339),
		},
	}, nil
}
