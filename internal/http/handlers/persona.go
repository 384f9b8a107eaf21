package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmaintain/makepromptsbetter-sub000/internal/models"
	"github.com/jmaintain/makepromptsbetter-sub000/internal/service"
)

// PersonaHandler handles AI assistant (persona) endpoints.
type PersonaHandler struct {
	personaSvc *service.PersonaService
}

// NewPersonaHandler creates a new persona handler.
func NewPersonaHandler(personaSvc *service.PersonaService) *PersonaHandler {
	return &PersonaHandler{personaSvc: personaSvc}
}

// PersonaResponse represents a persona in responses.
type PersonaResponse struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	GeneratedPersona string `json:"generated_persona"`
	Phase            string `json:"phase"`
	Saved            bool   `json:"saved"`
	CreatedAt        string `json:"created_at"`
}

func toPersonaResponse(p *models.Persona) PersonaResponse {
	return PersonaResponse{
		ID:               p.ID,
		Name:             p.Name,
		GeneratedPersona: p.GeneratedPersona,
		Phase:            p.Phase,
		Saved:            p.Saved,
		CreatedAt:        p.CreatedAt.Format(time.RFC3339),
	}
}

// CreatePersonaInput represents a persona creation request.
type CreatePersonaInput struct {
	Body struct {
		Name        string `json:"name,omitempty" maxLength:"100" doc:"Optional name; derived from the description when empty"`
		Description string `json:"description" minLength:"1" maxLength:"5000" doc:"Free-text description of the assistant"`
	}
}

// CreatePersonaOutput represents a persona creation response.
type CreatePersonaOutput struct {
	Body PersonaResponse
}

// CreatePersona handles phase-1 persona generation.
func (h *PersonaHandler) CreatePersona(ctx context.Context, input *CreatePersonaInput) (*CreatePersonaOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	persona, err := h.personaSvc.Generate(ctx, getFingerprint(ctx), input.Body.Name, input.Body.Description)
	if err != nil {
		if errors.Is(err, service.ErrQuotaExceeded) {
			return nil, huma.Error429TooManyRequests("daily assistant limit reached")
		}
		return nil, huma.Error500InternalServerError("failed to create assistant")
	}

	return &CreatePersonaOutput{Body: toPersonaResponse(persona)}, nil
}

// EnhancePersonaInput represents a phase-2 enhancement request.
type EnhancePersonaInput struct {
	ID   int64 `path:"id" doc:"Assistant ID"`
	Body struct {
		Answers map[string]string `json:"answers" doc:"Enhancement question answers"`
	}
}

// EnhancePersonaOutput represents an enhancement response.
type EnhancePersonaOutput struct {
	Body PersonaResponse
}

// EnhancePersona applies enhancement answers and regenerates the persona text.
func (h *PersonaHandler) EnhancePersona(ctx context.Context, input *EnhancePersonaInput) (*EnhancePersonaOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	persona, err := h.personaSvc.Enhance(ctx, getFingerprint(ctx), input.ID, input.Body.Answers)
	if err != nil {
		if errors.Is(err, service.ErrPersonaNotFound) {
			return nil, huma.Error404NotFound("assistant not found")
		}
		return nil, huma.Error500InternalServerError("failed to enhance assistant")
	}

	return &EnhancePersonaOutput{Body: toPersonaResponse(persona)}, nil
}

// SavePersonaInput represents a save request.
type SavePersonaInput struct {
	ID int64 `path:"id" doc:"Assistant ID"`
}

// SavePersonaOutput represents a save response.
type SavePersonaOutput struct {
	Body PersonaResponse
}

// SavePersona marks a persona as saved, exempting it from retention deletion.
func (h *PersonaHandler) SavePersona(ctx context.Context, input *SavePersonaInput) (*SavePersonaOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	persona, err := h.personaSvc.Save(ctx, getFingerprint(ctx), input.ID)
	if err != nil {
		if errors.Is(err, service.ErrPersonaNotFound) {
			return nil, huma.Error404NotFound("assistant not found")
		}
		return nil, huma.Error500InternalServerError("failed to save assistant")
	}

	return &SavePersonaOutput{Body: toPersonaResponse(persona)}, nil
}

// TestPersonaInput represents a persona test request.
type TestPersonaInput struct {
	Body struct {
		AssistantID int64  `json:"assistant_id" doc:"Assistant to test"`
		Prompt      string `json:"prompt" minLength:"1" maxLength:"5000" doc:"Test prompt to run through the assistant"`
	}
}

// TestPersonaOutput represents a persona test response.
type TestPersonaOutput struct {
	Body struct {
		Response string `json:"response"`
	}
}

// TestPersona runs a test prompt through a persona's system prompt.
func (h *PersonaHandler) TestPersona(ctx context.Context, input *TestPersonaInput) (*TestPersonaOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	reply, err := h.personaSvc.Test(ctx, getFingerprint(ctx), input.Body.AssistantID, input.Body.Prompt)
	if err != nil {
		if errors.Is(err, service.ErrPersonaNotFound) {
			return nil, huma.Error404NotFound("assistant not found")
		}
		return nil, huma.Error500InternalServerError("failed to test assistant")
	}

	return &TestPersonaOutput{
		Body: struct {
			Response string `json:"response"`
		}{
			Response: reply,
		},
	}, nil
}

// ListPersonasOutput represents the saved-assistant list response.
type ListPersonasOutput struct {
	Body struct {
		Assistants []PersonaResponse `json:"assistants"`
	}
}

// ListPersonas returns the user's saved personas.
func (h *PersonaHandler) ListPersonas(ctx context.Context, input *struct{}) (*ListPersonasOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	personas, err := h.personaSvc.ListSaved(ctx, getFingerprint(ctx))
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list assistants")
	}

	responses := make([]PersonaResponse, 0, len(personas))
	for _, p := range personas {
		responses = append(responses, toPersonaResponse(p))
	}

	return &ListPersonasOutput{
		Body: struct {
			Assistants []PersonaResponse `json:"assistants"`
		}{
			Assistants: responses,
		},
	}, nil
}
