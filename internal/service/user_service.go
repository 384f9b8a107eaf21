package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmaintain/makepromptsbetter-sub000/internal/models"
	"github.com/jmaintain/makepromptsbetter-sub000/internal/repository"
)

// UserService manages user records and aggregate views over them.
type UserService struct {
	repos        *repository.Repositories
	tokens       *TokenService
	welcomeBonus int
	logger       *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(repos *repository.Repositories, tokens *TokenService, welcomeBonus int, logger *slog.Logger) *UserService {
	return &UserService{
		repos:        repos,
		tokens:       tokens,
		welcomeBonus: welcomeBonus,
		logger:       logger.With("component", "users"),
	}
}

// EnsureUser upserts the user from auth claims and grants the one-time
// welcome bonus to first-time users. Returns the current user record.
func (s *UserService) EnsureUser(ctx context.Context, id, email, firstName, lastName string) (*models.User, error) {
	existing, err := s.repos.User.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:        id,
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing != nil {
		user.CreatedAt = existing.CreatedAt
	}

	if err := s.repos.User.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	if existing == nil && s.welcomeBonus > 0 {
		// The reference id makes the bonus single-shot even if two
		// first requests race
		_, err := s.tokens.Credit(ctx, id, s.welcomeBonus, models.TxTypeBonus,
			"Welcome bonus", "welcome_"+id, "")
		if err != nil {
			return nil, fmt.Errorf("failed to grant welcome bonus: %w", err)
		}
		s.logger.Info("welcome bonus granted", "user_id", id, "tokens", s.welcomeBonus)
	}

	return s.repos.User.GetByID(ctx, id)
}

// Get returns the user or ErrUserNotFound.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repos.User.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UserStats aggregates a user's usage state for the stats endpoint.
type UserStats struct {
	TokenBalance       int  `json:"token_balance"`
	HasPurchased       bool `json:"has_purchased"`
	OptimizationsToday int  `json:"optimizations_today"`
	PersonasToday      int  `json:"personas_today"`
	DailyPersonaLimit  int  `json:"daily_persona_limit"`
}

// Stats returns the usage snapshot for a user. The fingerprint attributes
// the daily counts; it is currently always the user id but stays a separate
// parameter.
func (s *UserService) Stats(ctx context.Context, userID, fingerprint string, dailyPersonaLimit int) (*UserStats, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	since := startOfDay(time.Now())
	optsToday, err := s.repos.Optimization.CountByOwnerSince(ctx, fingerprint, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count optimizations: %w", err)
	}
	personasToday, err := s.repos.Persona.CountByOwnerSince(ctx, fingerprint, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count personas: %w", err)
	}

	return &UserStats{
		TokenBalance:       user.TokenBalance,
		HasPurchased:       user.HasPurchased,
		OptimizationsToday: optsToday,
		PersonasToday:      personasToday,
		DailyPersonaLimit:  dailyPersonaLimit,
	}, nil
}

// DataSummary counts the records a fingerprint owns, for the privacy
// endpoint that precedes an erasure request.
type DataSummary struct {
	Optimizations int `json:"optimizations"`
	Personas      int `json:"personas"`
}

// Summary returns how many records the fingerprint owns.
func (s *UserService) Summary(ctx context.Context, fingerprint string) (*DataSummary, error) {
	opts, err := s.repos.Optimization.CountByOwner(ctx, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("failed to count optimizations: %w", err)
	}
	personas, err := s.repos.Persona.CountByOwner(ctx, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("failed to count personas: %w", err)
	}
	return &DataSummary{Optimizations: opts, Personas: personas}, nil
}
