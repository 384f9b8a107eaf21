package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmaintain/makepromptsbetter-sub000/internal/models"
	"github.com/jmaintain/makepromptsbetter-sub000/internal/repository"
)

const optimizeTokenCost = 1

const optimizeSystemPrompt = `You are an expert prompt engineer. Rewrite the user's draft prompt so a large language model produces a better result. Preserve the user's intent and any constraints. Return only the improved prompt, no commentary.`

const rateSystemPrompt = `You are an expert prompt engineer. Rate the quality of the following prompt on a scale of 1 to 10, where 10 is a precise, well-scoped, unambiguous prompt. Respond with only the integer.`

// OptimizerService runs prompt optimizations and ratings through the LLM,
// charges tokens, and writes the audit records.
type OptimizerService struct {
	repos  *repository.Repositories
	tokens *TokenService
	llm    LLMClient
	logger *slog.Logger
}

// NewOptimizerService creates a new optimizer service.
func NewOptimizerService(repos *repository.Repositories, tokens *TokenService, llm LLMClient, logger *slog.Logger) *OptimizerService {
	return &OptimizerService{
		repos:  repos,
		tokens: tokens,
		llm:    llm,
		logger: logger.With("component", "optimizer"),
	}
}

// OptimizeResult is the outcome of one optimize call.
type OptimizeResult struct {
	Record       *models.Optimization
	TokenBalance int
}

// Optimize improves a draft prompt. The balance is checked before the LLM
// call so a broke user never reaches the external API, and the token is
// deducted after the call succeeds so a failed call costs nothing.
func (s *OptimizerService) Optimize(ctx context.Context, userID, fingerprint, prompt, promptContext string) (*OptimizeResult, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, fmt.Errorf("prompt must not be empty")
	}

	balance, err := s.tokens.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance < optimizeTokenCost {
		return nil, ErrInsufficientBalance
	}

	userPrompt := prompt
	if promptContext != "" {
		userPrompt = fmt.Sprintf("Prompt:\n%s\n\nAdditional context:\n%s", prompt, promptContext)
	}

	optimized, err := s.llm.Complete(ctx, optimizeSystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("optimization failed: %w", err)
	}

	record := &models.Optimization{
		OriginalPrompt:  prompt,
		Context:         promptContext,
		OptimizedPrompt: optimized,
		Score:           scorePrompt(optimized),
		Fingerprint:     fingerprint,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.repos.Optimization.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store optimization: %w", err)
	}

	newBalance, err := s.tokens.Deduct(ctx, userID, optimizeTokenCost,
		"Prompt optimization", fmt.Sprintf("opt_%d", record.ID))
	if err != nil {
		return nil, err
	}

	s.logUsage(ctx, &userID, &fingerprint, "optimize", len(userPrompt), len(optimized))

	return &OptimizeResult{Record: record, TokenBalance: newBalance}, nil
}

// Rate scores a prompt 1 to 10 without charging tokens. It is open to
// unauthenticated callers, so it takes no user id.
func (s *OptimizerService) Rate(ctx context.Context, fingerprint, prompt string) (int, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return 0, fmt.Errorf("prompt must not be empty")
	}

	reply, err := s.llm.Complete(ctx, rateSystemPrompt, prompt)
	if err != nil {
		return 0, fmt.Errorf("rating failed: %w", err)
	}

	score := parseScore(reply)
	var fpPtr *string
	if fingerprint != "" {
		fpPtr = &fingerprint
	}
	s.logUsage(ctx, nil, fpPtr, "rate", len(prompt), len(reply))

	return score, nil
}

// ListToday returns the fingerprint's optimizations since local midnight.
func (s *OptimizerService) ListToday(ctx context.Context, fingerprint string) ([]*models.Optimization, error) {
	return s.repos.Optimization.ListByOwnerSince(ctx, fingerprint, startOfDay(time.Now()))
}

// CountToday returns how many optimizations the fingerprint has made since
// local midnight.
func (s *OptimizerService) CountToday(ctx context.Context, fingerprint string) (int, error) {
	return s.repos.Optimization.CountByOwnerSince(ctx, fingerprint, startOfDay(time.Now()))
}

func (s *OptimizerService) logUsage(ctx context.Context, userID, fingerprint *string, requestType string, inputChars, outputChars int) {
	log := &models.UsageLog{
		ID:               ulid.Make().String(),
		UserID:           userID,
		Fingerprint:      fingerprint,
		RequestType:      requestType,
		InputChars:       inputChars,
		OutputChars:      outputChars,
		EstimatedCostUSD: estimateCost(inputChars, outputChars),
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.repos.UsageLog.Create(ctx, log); err != nil {
		// Usage logging never blocks the user-facing result
		s.logger.Error("failed to write usage log", "error", err)
	}
}

// startOfDay returns local midnight for the given time. Daily quotas are
// calendar-day buckets in server local time.
func startOfDay(t time.Time) time.Time {
	t = t.Local()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// estimateCost approximates LLM spend from character counts, roughly four
// characters per model token at gpt-4o-mini rates.
func estimateCost(inputChars, outputChars int) float64 {
	inputTokens := float64(inputChars) / 4
	outputTokens := float64(outputChars) / 4
	return inputTokens*0.15/1_000_000 + outputTokens*0.60/1_000_000
}

// parseScore extracts a 1-10 integer from a model reply, defaulting to 5
// when the reply is not parseable.
func parseScore(reply string) int {
	fields := strings.FieldsFunc(strings.TrimSpace(reply), func(r rune) bool {
		return r < '0' || r > '9'
	})
	for _, f := range fields {
		if n, err := strconv.Atoi(f); err == nil && n >= 1 && n <= 10 {
			return n
		}
	}
	return 5
}

// scorePrompt assigns the stored improvement score for an optimized prompt.
// Longer, structured prompts score higher; capped at 100.
func scorePrompt(optimized string) int {
	score := 50 + len(optimized)/40
	if strings.Contains(optimized, "\n") {
		score += 10
	}
	if score > 100 {
		score = 100
	}
	return score
}
