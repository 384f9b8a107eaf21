package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmaintain/makepromptsbetter-sub000/internal/models"
	"github.com/jmaintain/makepromptsbetter-sub000/internal/service"
)

// BillingHandler handles token package and checkout endpoints.
type BillingHandler struct {
	paymentSvc *service.PaymentService
	tokenSvc   *service.TokenService
}

// NewBillingHandler creates a new billing handler.
func NewBillingHandler(paymentSvc *service.PaymentService, tokenSvc *service.TokenService) *BillingHandler {
	return &BillingHandler{paymentSvc: paymentSvc, tokenSvc: tokenSvc}
}

// ListPackagesOutput represents the token package catalog response.
type ListPackagesOutput struct {
	Body struct {
		Packages []models.TokenPackage `json:"packages"`
	}
}

// ListPackages returns the purchasable token packages. No auth required.
func (h *BillingHandler) ListPackages(ctx context.Context, input *struct{}) (*ListPackagesOutput, error) {
	return &ListPackagesOutput{
		Body: struct {
			Packages []models.TokenPackage `json:"packages"`
		}{
			Packages: h.paymentSvc.Packages(),
		},
	}, nil
}

// TransactionResponse represents a ledger entry in responses.
type TransactionResponse struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Amount      int    `json:"amount"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// GetBalanceInput represents a balance request.
type GetBalanceInput struct {
	Limit  int `query:"limit" default:"50" minimum:"1" maximum:"200" doc:"Max transactions to return"`
	Offset int `query:"offset" default:"0" minimum:"0" doc:"Transactions to skip"`
}

// GetBalanceOutput represents a balance response.
type GetBalanceOutput struct {
	Body struct {
		TokenBalance int                   `json:"token_balance"`
		Transactions []TransactionResponse `json:"transactions"`
	}
}

// GetBalance returns the token balance and recent transaction history.
func (h *BillingHandler) GetBalance(ctx context.Context, input *GetBalanceInput) (*GetBalanceOutput, error) {
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

	history, err := h.tokenSvc.GetHistory(ctx, userID, input.Limit, input.Offset)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get transaction history")
	}

	transactions := make([]TransactionResponse, 0, len(history))
	for _, tx := range history {
		transactions = append(transactions, TransactionResponse{
			ID:          tx.ID,
			Type:        string(tx.Type),
			Amount:      tx.Amount,
			Description: tx.Description,
			CreatedAt:   tx.CreatedAt.Format(time.RFC3339),
		})
	}

	return &GetBalanceOutput{
		Body: struct {
			TokenBalance int                   `json:"token_balance"`
			Transactions []TransactionResponse `json:"transactions"`
		}{
			TokenBalance: balance,
			Transactions: transactions,
		},
	}, nil
}

// CreateCheckoutInput represents a checkout session request.
type CreateCheckoutInput struct {
	Body struct {
		PackageID string `json:"package_id" minLength:"1" doc:"Token package to purchase"`
	}
}

// CreateCheckoutOutput represents a checkout session response.
type CreateCheckoutOutput struct {
	Body struct {
		SessionID   string `json:"session_id"`
		CheckoutURL string `json:"checkout_url"`
	}
}

// CreateCheckout starts a payment flow for a token package.
func (h *BillingHandler) CreateCheckout(ctx context.Context, input *CreateCheckoutInput) (*CreateCheckoutOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	result, err := h.paymentSvc.CreateCheckoutSession(ctx, userID, input.Body.PackageID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownPackage):
			return nil, huma.Error400BadRequest("unknown token package")
		case errors.Is(err, service.ErrDuplicatePaymentIntent):
			return nil, huma.Error409Conflict("payment already recorded")
		default:
			return nil, huma.Error500InternalServerError("failed to create checkout session")
		}
	}

	return &CreateCheckoutOutput{
		Body: struct {
			SessionID   string `json:"session_id"`
			CheckoutURL string `json:"checkout_url"`
		}{
			SessionID:   result.SessionID,
			CheckoutURL: result.CheckoutURL,
		},
	}, nil
}
