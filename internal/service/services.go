package service

import (
	"log/slog"

	"github.com/jmaintain/makepromptsbetter-sub000/internal/config"
	"github.com/jmaintain/makepromptsbetter-sub000/internal/repository"
)

// Services bundles all service instances for handler wiring.
type Services struct {
	Tokens    *TokenService
	Payments  *PaymentService
	Cleanup   *CleanupService
	Optimizer *OptimizerService
	Personas  *PersonaService
	Users     *UserService
}

// NewServices constructs the full service graph.
func NewServices(repos *repository.Repositories, cfg *config.Config, billing *config.BillingConfig, llm LLMClient, logger *slog.Logger) *Services {
	tokens := NewTokenService(repos, logger)

	return &Services{
		Tokens:    tokens,
		Payments:  NewPaymentService(repos, tokens, billing, cfg, logger),
		Cleanup:   NewCleanupService(repos, cfg.RecordRetention, cfg.UsageLogRetention, cfg.CleanupInterval, logger),
		Optimizer: NewOptimizerService(repos, tokens, llm, logger),
		Personas:  NewPersonaService(repos, llm, cfg.DailyPersonaLimit, logger),
		Users:     NewUserService(repos, tokens, cfg.WelcomeBonus, logger),
	}
}
