package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/jmaintain/makepromptsbetter-sub000/internal/config"
	"github.com/jmaintain/makepromptsbetter-sub000/internal/service"
)

// StripeWebhookHandler handles Stripe webhook events.
type StripeWebhookHandler struct {
	cfg        *config.Config
	paymentSvc *service.PaymentService
	logger     *slog.Logger
}

// NewStripeWebhookHandler creates a new Stripe webhook handler.
func NewStripeWebhookHandler(cfg *config.Config, paymentSvc *service.PaymentService, logger *slog.Logger) *StripeWebhookHandler {
	return &StripeWebhookHandler{
		cfg:        cfg,
		paymentSvc: paymentSvc,
		logger:     logger,
	}
}

// HandleWebhook processes incoming Stripe webhooks.
// This is a raw HTTP handler since huma doesn't handle raw body verification well.
func (h *StripeWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	const maxBodySize = 65536 // 64KB

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	// Signature is verified over the raw body before any parsing
	sigHeader := r.Header.Get("Stripe-Signature")
	event, err := webhook.ConstructEvent(payload, sigHeader, h.cfg.StripeWebhookSecret)
	if err != nil {
		h.logger.Error("failed to verify webhook signature", "error", err)
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if err := h.handleEvent(ctx, event); err != nil {
		h.logger.Error("failed to handle webhook event", "type", event.Type, "error", err)
		// Return 200 to prevent Stripe from retrying; idempotent confirm
		// means a later redelivery is harmless either way
		w.WriteHeader(http.StatusOK)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// handleEvent routes events to appropriate handlers. Unrecognized event
// types are accepted and ignored.
func (h *StripeWebhookHandler) handleEvent(ctx context.Context, event stripe.Event) error {
	h.logger.Info("received Stripe webhook", "type", event.Type, "id", event.ID)

	switch event.Type {
	case "checkout.session.completed":
		return h.handleCheckoutComplete(ctx, event)

	case "payment_intent.payment_failed":
		return h.handlePaymentFailed(ctx, event)

	default:
		h.logger.Debug("unhandled webhook event type", "type", event.Type)
		return nil
	}
}

// handleCheckoutComplete confirms the pending payment and credits tokens.
func (h *StripeWebhookHandler) handleCheckoutComplete(ctx context.Context, event stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}

	// The pending row may be keyed by the session id when the intent was not
	// materialized at checkout creation
	intentID := ""
	if session.PaymentIntent != nil {
		intentID = session.PaymentIntent.ID
	}

	if err := h.paymentSvc.ConfirmCheckoutSession(ctx, intentID, session.ID); err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			h.logger.Warn("checkout session has no matching payment",
				"session_id", session.ID,
				"payment_intent_id", intentID,
			)
			return nil
		}
		return fmt.Errorf("failed to confirm payment: %w", err)
	}

	h.logger.Info("payment confirmed",
		"session_id", session.ID,
		"payment_intent_id", intentID,
	)

	return nil
}

// handlePaymentFailed marks the pending payment as failed.
func (h *StripeWebhookHandler) handlePaymentFailed(ctx context.Context, event stripe.Event) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return fmt.Errorf("failed to unmarshal payment intent: %w", err)
	}

	reason := "payment failed"
	if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
		reason = intent.LastPaymentError.Msg
	}

	if err := h.paymentSvc.FailPayment(ctx, intent.ID, reason); err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			h.logger.Warn("failed payment intent has no matching payment", "payment_intent_id", intent.ID)
			return nil
		}
		return fmt.Errorf("failed to mark payment failed: %w", err)
	}

	h.logger.Info("payment marked failed", "payment_intent_id", intent.ID, "reason", reason)

	return nil
}
