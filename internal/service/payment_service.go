package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/checkout/session"

	"github.com/jmaintain/makepromptsbetter-sub000/internal/config"
	"github.com/jmaintain/makepromptsbetter-sub000/internal/models"
	"github.com/jmaintain/makepromptsbetter-sub000/internal/repository"
)

// PaymentService translates payment-provider events into token credits and
// payment status transitions. Events may arrive more than once or out of
// order; every transition is idempotent.
type PaymentService struct {
	repos   *repository.Repositories
	tokens  *TokenService
	billing *config.BillingConfig
	cfg     *config.Config
	logger  *slog.Logger
}

// NewPaymentService creates a new payment service.
func NewPaymentService(repos *repository.Repositories, tokens *TokenService, billing *config.BillingConfig, cfg *config.Config, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		repos:   repos,
		tokens:  tokens,
		billing: billing,
		cfg:     cfg,
		logger:  logger.With("component", "payments"),
	}
}

// Packages returns the purchasable token package catalog.
func (s *PaymentService) Packages() []models.TokenPackage {
	return s.billing.ActivePackages()
}

// CheckoutResult is returned from CreateCheckoutSession.
type CheckoutResult struct {
	SessionID   string
	CheckoutURL string
	Payment     *models.Payment
}

// CreateCheckoutSession starts a Stripe Checkout flow for a token package
// and records the pending payment before the provider confirms anything.
func (s *PaymentService) CreateCheckoutSession(ctx context.Context, userID, packageID string) (*CheckoutResult, error) {
	pkg := s.billing.GetPackage(packageID)
	if pkg == nil {
		return nil, ErrUnknownPackage
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(s.cfg.CheckoutSuccessURL),
		CancelURL:         stripe.String(s.cfg.CheckoutCancelURL),
		ClientReferenceID: stripe.String(userID),
	}
	params.AddMetadata("user_id", userID)
	params.AddMetadata("package_id", pkg.ID)
	params.AddMetadata("tokens", fmt.Sprintf("%d", pkg.Tokens))

	if pkg.StripePriceID != "" {
		params.LineItems = []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(pkg.StripePriceID),
			Quantity: stripe.Int64(1),
		}}
	} else {
		// No configured price id; charge ad hoc in cents
		params.LineItems = []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(int64(pkg.PriceUSD * 100)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(pkg.DisplayName),
				},
			},
			Quantity: stripe.Int64(1),
		}}
	}

	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	// The payment intent is not always materialized until the session
	// completes; fall back to the session id as the unique key and let the
	// webhook resolve it.
	intentID := sess.ID
	if sess.PaymentIntent != nil {
		intentID = sess.PaymentIntent.ID
	}

	payment, err := s.RecordPendingPayment(ctx, userID, pkg.ID, intentID, sess.ID, pkg.PriceUSD, pkg.Tokens)
	if err != nil {
		return nil, err
	}

	return &CheckoutResult{
		SessionID:   sess.ID,
		CheckoutURL: sess.URL,
		Payment:     payment,
	}, nil
}

// RecordPendingPayment stores a pending payment keyed by the payment intent
// id. Fails with ErrDuplicatePaymentIntent if that id is already recorded.
func (s *PaymentService) RecordPendingPayment(ctx context.Context, userID, packageID, paymentIntentID, sessionID string, amountUSD float64, tokensGranted int) (*models.Payment, error) {
	existing, err := s.repos.Payment.GetByPaymentIntentID(ctx, paymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check payment intent: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicatePaymentIntent
	}

	payment := &models.Payment{
		ID:              ulid.Make().String(),
		UserID:          userID,
		PaymentIntentID: paymentIntentID,
		SessionID:       sessionID,
		PackageID:       packageID,
		AmountUSD:       amountUSD,
		TokensGranted:   tokensGranted,
		Status:          models.PaymentPending,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.repos.Payment.Create(ctx, payment); err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrDuplicatePaymentIntent
		}
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	s.logger.Info("pending payment recorded",
		"payment_id", payment.ID,
		"user_id", userID,
		"package_id", packageID,
		"payment_intent_id", paymentIntentID,
	)

	return payment, nil
}

// ConfirmPayment transitions a pending payment to completed and issues the
// token credit exactly once, using the payment intent id as the idempotency
// reference. A repeat confirmation for an already-terminal payment is a
// no-op. An unknown intent id is a reportable inconsistency.
func (s *PaymentService) ConfirmPayment(ctx context.Context, paymentIntentID string) error {
	return s.ConfirmCheckoutSession(ctx, paymentIntentID, "")
}

// ConfirmCheckoutSession is the webhook entry point for confirmation. The
// pending row may be keyed by the intent id or, when the intent did not yet
// exist at checkout creation, by the session id; either resolves it.
func (s *PaymentService) ConfirmCheckoutSession(ctx context.Context, paymentIntentID, sessionID string) error {
	payment, err := s.lookup(ctx, paymentIntentID, sessionID)
	if err != nil {
		return err
	}

	switch payment.Status {
	case models.PaymentCompleted:
		s.logger.Info("payment already completed, ignoring duplicate confirmation",
			"payment_id", payment.ID, "payment_intent_id", paymentIntentID)
		return nil
	case models.PaymentFailed, models.PaymentRefunded:
		s.logger.Warn("confirmation for terminal payment ignored",
			"payment_id", payment.ID, "status", payment.Status)
		return nil
	}

	// Credit first, mark completed second. If the process dies between the
	// two, the webhook retry re-runs this path and the credit dedupes on
	// the reference id.
	description := fmt.Sprintf("Purchased %d tokens (%s package)", payment.TokensGranted, payment.PackageID)
	balance, err := s.tokens.Credit(ctx, payment.UserID, payment.TokensGranted,
		models.TxTypePurchase, description, payment.PaymentIntentID, payment.Metadata)
	if err != nil {
		return fmt.Errorf("failed to credit tokens: %w", err)
	}

	if err := s.repos.Payment.MarkCompleted(ctx, payment.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to mark payment completed: %w", err)
	}

	s.logger.Info("payment confirmed",
		"payment_id", payment.ID,
		"user_id", payment.UserID,
		"tokens_granted", payment.TokensGranted,
		"balance_after", balance,
	)

	return nil
}

// FailPayment transitions a pending payment to failed, storing the reason.
// No credit is issued. No-op if the payment is already terminal.
func (s *PaymentService) FailPayment(ctx context.Context, paymentIntentID, reason string) error {
	payment, err := s.lookup(ctx, paymentIntentID, "")
	if err != nil {
		return err
	}

	if payment.Status != models.PaymentPending {
		s.logger.Info("failure event for terminal payment ignored",
			"payment_id", payment.ID, "status", payment.Status)
		return nil
	}

	if err := s.repos.Payment.MarkFailed(ctx, payment.ID, reason); err != nil {
		return fmt.Errorf("failed to mark payment failed: %w", err)
	}

	s.logger.Info("payment failed",
		"payment_id", payment.ID,
		"user_id", payment.UserID,
		"reason", reason,
	)

	return nil
}

// GetHistory returns the user's payments, newest first.
func (s *PaymentService) GetHistory(ctx context.Context, userID string, limit, offset int) ([]*models.Payment, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repos.Payment.GetByUserID(ctx, userID, limit, offset)
}

// lookup resolves a payment by intent id, falling back to the checkout
// session id for payments recorded before the intent existed.
func (s *PaymentService) lookup(ctx context.Context, paymentIntentID, sessionID string) (*models.Payment, error) {
	var payment *models.Payment
	var err error

	if paymentIntentID != "" {
		payment, err = s.repos.Payment.GetByPaymentIntentID(ctx, paymentIntentID)
		if err != nil {
			return nil, fmt.Errorf("failed to get payment: %w", err)
		}
	}
	if payment == nil && sessionID != "" {
		// Covers pending rows keyed by session id, and rows where the
		// session id itself was stored as the intent key
		payment, err = s.repos.Payment.GetBySessionID(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to get payment by session: %w", err)
		}
		if payment == nil {
			payment, err = s.repos.Payment.GetByPaymentIntentID(ctx, sessionID)
			if err != nil {
				return nil, fmt.Errorf("failed to get payment: %w", err)
			}
		}
	}
	if payment == nil {
		s.logger.Error("payment event with no matching record",
			"payment_intent_id", paymentIntentID, "session_id", sessionID)
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}
