// Package models defines the domain models for the application.
package models

import "time"

// ========================================
// Users
// ========================================

// User holds identity and billing state. TokenBalance is a cache of the
// latest ledger state; the token_transactions table is the source of truth.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	TokenBalance int       `json:"token_balance"`
	HasPurchased bool      `json:"has_purchased"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ========================================
// Token Transactions
// ========================================

// TransactionType defines the type of token transaction.
type TransactionType string

const (
	TxTypePurchase  TransactionType = "purchase"  // Tokens bought via a payment
	TxTypeDeduction TransactionType = "deduction" // Tokens spent on an API call
	TxTypeRefund    TransactionType = "refund"    // Tokens returned after a refund
	TxTypeBonus     TransactionType = "bonus"     // Promotional or welcome tokens
)

// TokenTransaction is an immutable ledger entry. Amount is positive for
// credits and negative for debits; BalanceAfter is the balance snapshot
// once this entry is applied.
type TokenTransaction struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Type         TransactionType `json:"type"`
	Amount       int             `json:"amount"`
	Description  string          `json:"description"`
	ReferenceID  *string         `json:"reference_id,omitempty"` // UNIQUE per user - prevents double-credit
	BalanceAfter int             `json:"balance_after"`
	Metadata     string          `json:"metadata,omitempty"` // JSON-encoded, optional
	CreatedAt    time.Time       `json:"created_at"`
}

// ========================================
// Payments
// ========================================

// PaymentStatus is the lifecycle state of a payment record.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Payment records one payment-provider transaction. PaymentIntentID is the
// idempotency key: at most one token credit is ever issued per intent id.
type Payment struct {
	ID              string        `json:"id"`
	UserID          string        `json:"user_id"`
	PaymentIntentID string        `json:"payment_intent_id"`
	SessionID       string        `json:"session_id,omitempty"`
	PackageID       string        `json:"package_id"`
	AmountUSD       float64       `json:"amount_usd"`
	TokensGranted   int           `json:"tokens_granted"`
	Status          PaymentStatus `json:"status"`
	FailureReason   string        `json:"failure_reason,omitempty"`
	Metadata        string        `json:"metadata,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
}

// ========================================
// Token Packages
// ========================================

// TokenPackage is a catalog entry for a purchasable token bundle.
type TokenPackage struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	DisplayName   string  `json:"display_name"`
	Tokens        int     `json:"tokens"`
	PriceUSD      float64 `json:"price_usd"`
	PerTokenUSD   float64 `json:"per_token_usd"`
	Description   string  `json:"description"`
	Popular       bool    `json:"popular"`
	Active        bool    `json:"active"`
	StripePriceID string  `json:"stripe_price_id,omitempty"`
	SortOrder     int     `json:"sort_order"`
}

// ========================================
// Optimizations
// ========================================

// Optimization is the audit row written for every optimize call. Rows are
// never updated and are deleted by the cleanup service after the retention
// window.
type Optimization struct {
	ID              int64     `json:"id"`
	OriginalPrompt  string    `json:"original_prompt"`
	Context         string    `json:"context,omitempty"`
	OptimizedPrompt string    `json:"optimized_prompt"`
	Score           int       `json:"score"`
	Fingerprint     string    `json:"fingerprint"`
	CreatedAt       time.Time `json:"created_at"`
}

// ========================================
// Personas
// ========================================

// Persona phases. A persona is created in phase 1 and advances to phase 2
// when the enhancement answers are applied.
const (
	PersonaPhaseGenerated = "1"
	PersonaPhaseEnhanced  = "2"
)

// Persona is a generated reusable system prompt. Saved personas are exempt
// from retention deletion; unsaved ones age out like optimizations.
type Persona struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	OriginalInput      string    `json:"original_input"`
	GeneratedPersona   string    `json:"generated_persona"`
	EnhancementAnswers *string   `json:"enhancement_answers,omitempty"` // JSON-encoded
	Fingerprint        string    `json:"fingerprint"`
	Phase              string    `json:"phase"`
	Saved              bool      `json:"saved"`
	CreatedAt          time.Time `json:"created_at"`
}

// ========================================
// Usage Logs
// ========================================

// UsageLog is an append-only record of one LLM API call, kept longer than
// the other ephemeral records for billing audit.
type UsageLog struct {
	ID               string    `json:"id"`
	UserID           *string   `json:"user_id,omitempty"`
	Fingerprint      *string   `json:"fingerprint,omitempty"`
	RequestType      string    `json:"request_type"`
	InputChars       int       `json:"input_chars"`
	OutputChars      int       `json:"output_chars"`
	EstimatedCostUSD float64   `json:"estimated_cost_usd"`
	CreatedAt        time.Time `json:"created_at"`
}
