package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmaintain/makepromptsbetter-sub000/internal/models"
	"github.com/jmaintain/makepromptsbetter-sub000/internal/repository"
)

const personaSystemPrompt = `You are an expert at writing system prompts for AI assistants. Given a short description of a desired assistant, write a complete, reusable system prompt that defines its role, tone, expertise, and boundaries. Return only the system prompt.`

const personaEnhanceSystemPrompt = `You are an expert at refining AI assistant system prompts. You will receive an existing system prompt and the user's answers to follow-up questions about audience, tone, and constraints. Rewrite the system prompt to incorporate the answers. Return only the revised system prompt.`

// PersonaService generates and refines reusable system-prompt personas.
type PersonaService struct {
	repos      *repository.Repositories
	llm        LLMClient
	dailyLimit int
	logger     *slog.Logger
}

// NewPersonaService creates a new persona service.
func NewPersonaService(repos *repository.Repositories, llm LLMClient, dailyLimit int, logger *slog.Logger) *PersonaService {
	return &PersonaService{
		repos:      repos,
		llm:        llm,
		dailyLimit: dailyLimit,
		logger:     logger.With("component", "personas"),
	}
}

// Generate creates a phase 1 persona from a free-text description. The
// per-fingerprint daily cap is checked against the calendar-day bucket.
func (s *PersonaService) Generate(ctx context.Context, fingerprint, name, input string) (*models.Persona, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("persona description must not be empty")
	}
	if name == "" {
		name = deriveName(input)
	}

	count, err := s.repos.Persona.CountByOwnerSince(ctx, fingerprint, startOfDay(time.Now()))
	if err != nil {
		return nil, fmt.Errorf("failed to check daily quota: %w", err)
	}
	if count >= s.dailyLimit {
		return nil, ErrQuotaExceeded
	}

	generated, err := s.llm.Complete(ctx, personaSystemPrompt, input)
	if err != nil {
		return nil, fmt.Errorf("persona generation failed: %w", err)
	}

	persona := &models.Persona{
		Name:             name,
		OriginalInput:    input,
		GeneratedPersona: generated,
		Fingerprint:      fingerprint,
		Phase:            models.PersonaPhaseGenerated,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.repos.Persona.Create(ctx, persona); err != nil {
		return nil, fmt.Errorf("failed to store persona: %w", err)
	}

	s.logUsage(ctx, fingerprint, "persona_generate", len(input), len(generated))

	return persona, nil
}

// Enhance applies the user's follow-up answers to a phase 1 persona,
// replacing the generated body and advancing the phase. The id is unchanged.
func (s *PersonaService) Enhance(ctx context.Context, fingerprint string, id int64, answers map[string]string) (*models.Persona, error) {
	persona, err := s.getOwned(ctx, fingerprint, id)
	if err != nil {
		return nil, err
	}

	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode answers: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Current system prompt:\n")
	sb.WriteString(persona.GeneratedPersona)
	sb.WriteString("\n\nAnswers:\n")
	for q, a := range answers {
		fmt.Fprintf(&sb, "- %s: %s\n", q, a)
	}

	enhanced, err := s.llm.Complete(ctx, personaEnhanceSystemPrompt, sb.String())
	if err != nil {
		return nil, fmt.Errorf("persona enhancement failed: %w", err)
	}

	if err := s.repos.Persona.UpdateEnhancement(ctx, id, enhanced, string(answersJSON)); err != nil {
		return nil, fmt.Errorf("failed to store enhancement: %w", err)
	}

	s.logUsage(ctx, fingerprint, "persona_enhance", sb.Len(), len(enhanced))

	return s.repos.Persona.GetByID(ctx, id)
}

// Save exempts a persona from retention deletion.
func (s *PersonaService) Save(ctx context.Context, fingerprint string, id int64) (*models.Persona, error) {
	persona, err := s.getOwned(ctx, fingerprint, id)
	if err != nil {
		return nil, err
	}

	if !persona.Saved {
		if err := s.repos.Persona.MarkSaved(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to mark persona saved: %w", err)
		}
		persona.Saved = true
	}

	return persona, nil
}

// Test runs a prompt through a persona's system prompt and returns the reply.
func (s *PersonaService) Test(ctx context.Context, fingerprint string, id int64, testPrompt string) (string, error) {
	persona, err := s.getOwned(ctx, fingerprint, id)
	if err != nil {
		return "", err
	}

	testPrompt = strings.TrimSpace(testPrompt)
	if testPrompt == "" {
		return "", fmt.Errorf("test prompt must not be empty")
	}

	reply, err := s.llm.Complete(ctx, persona.GeneratedPersona, testPrompt)
	if err != nil {
		return "", fmt.Errorf("persona test failed: %w", err)
	}

	s.logUsage(ctx, fingerprint, "persona_test", len(testPrompt), len(reply))

	return reply, nil
}

// ListSaved returns the fingerprint's saved personas, newest first.
func (s *PersonaService) ListSaved(ctx context.Context, fingerprint string) ([]*models.Persona, error) {
	return s.repos.Persona.ListSavedByOwner(ctx, fingerprint)
}

// CountToday returns how many personas the fingerprint generated today.
func (s *PersonaService) CountToday(ctx context.Context, fingerprint string) (int, error) {
	return s.repos.Persona.CountByOwnerSince(ctx, fingerprint, startOfDay(time.Now()))
}

// DailyLimit returns the per-fingerprint daily generation cap.
func (s *PersonaService) DailyLimit() int {
	return s.dailyLimit
}

// getOwned loads a persona and verifies the caller's fingerprint owns it.
// A persona owned by someone else is reported as not found, not forbidden,
// so ids cannot be probed.
func (s *PersonaService) getOwned(ctx context.Context, fingerprint string, id int64) (*models.Persona, error) {
	persona, err := s.repos.Persona.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get persona: %w", err)
	}
	if persona == nil || persona.Fingerprint != fingerprint {
		return nil, ErrPersonaNotFound
	}
	return persona, nil
}

func (s *PersonaService) logUsage(ctx context.Context, fingerprint, requestType string, inputChars, outputChars int) {
	log := &models.UsageLog{
		ID:               ulid.Make().String(),
		Fingerprint:      &fingerprint,
		RequestType:      requestType,
		InputChars:       inputChars,
		OutputChars:      outputChars,
		EstimatedCostUSD: estimateCost(inputChars, outputChars),
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.repos.UsageLog.Create(ctx, log); err != nil {
		s.logger.Error("failed to write usage log", "error", err)
	}
}

// deriveName builds a short display name from the description.
func deriveName(input string) string {
	words := strings.Fields(input)
	if len(words) > 5 {
		words = words[:5]
	}
	return strings.Join(words, " ")
}
