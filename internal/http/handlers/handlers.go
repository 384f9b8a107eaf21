// Package handlers contains HTTP handlers for the API.
package handlers

import (
	"context"

	"github.com/jmaintain/makepromptsbetter-sub000/internal/http/mw"
	"github.com/jmaintain/makepromptsbetter-sub000/internal/version"
)

// HealthCheckOutput represents health check response.
type HealthCheckOutput struct {
	Body struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
}

// HealthCheck returns the health status of the API.
func HealthCheck(ctx context.Context, input *struct{}) (*HealthCheckOutput, error) {
	return &HealthCheckOutput{
		Body: struct {
			Status  string `json:"status"`
			Version string `json:"version"`
		}{
			Status:  "healthy",
			Version: version.Get().Version,
		},
	}, nil
}

// getUserID extracts user ID from context.
func getUserID(ctx context.Context) string {
	claims := mw.GetUserClaims(ctx)
	if claims == nil {
		return ""
	}
	return claims.UserID
}

// getFingerprint returns the owner key for the authenticated user. It is
// currently always the user id, but ownership attribution and the
// authenticated principal stay separate concepts.
func getFingerprint(ctx context.Context) string {
	return getUserID(ctx)
}
