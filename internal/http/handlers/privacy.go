package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmaintain/makepromptsbetter-sub000/internal/service"
)

// PrivacyHandler handles data-summary and erasure endpoints.
type PrivacyHandler struct {
	userSvc    *service.UserService
	cleanupSvc *service.CleanupService
}

// NewPrivacyHandler creates a new privacy handler.
func NewPrivacyHandler(userSvc *service.UserService, cleanupSvc *service.CleanupService) *PrivacyHandler {
	return &PrivacyHandler{userSvc: userSvc, cleanupSvc: cleanupSvc}
}

// DataSummaryOutput represents the stored-data summary response.
type DataSummaryOutput struct {
	Body struct {
		Optimizations int `json:"optimizations"`
		Assistants    int `json:"assistants"`
	}
}

// GetDataSummary returns how many records are stored for the user.
func (h *PrivacyHandler) GetDataSummary(ctx context.Context, input *struct{}) (*DataSummaryOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	summary, err := h.userSvc.Summary(ctx, getFingerprint(ctx))
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to summarize data")
	}

	return &DataSummaryOutput{
		Body: struct {
			Optimizations int `json:"optimizations"`
			Assistants    int `json:"assistants"`
		}{
			Optimizations: summary.Optimizations,
			Assistants:    summary.Personas,
		},
	}, nil
}

// DeleteMyDataOutput represents the erasure response.
type DeleteMyDataOutput struct {
	Body struct {
		OptimizationsDeleted int64 `json:"optimizations_deleted"`
		AssistantsDeleted    int64 `json:"assistants_deleted"`
	}
}

// DeleteMyData immediately deletes all records owned by the user, saved
// personas included. Repeating the call returns zero counts.
func (h *PrivacyHandler) DeleteMyData(ctx context.Context, input *struct{}) (*DeleteMyDataOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	result, err := h.cleanupSvc.DeleteUserData(ctx, getFingerprint(ctx))
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to delete data")
	}

	return &DeleteMyDataOutput{
		Body: struct {
			OptimizationsDeleted int64 `json:"optimizations_deleted"`
			AssistantsDeleted    int64 `json:"assistants_deleted"`
		}{
			OptimizationsDeleted: result.OptimizationsDeleted,
			AssistantsDeleted:    result.PersonasDeleted,
		},
	}, nil
}
