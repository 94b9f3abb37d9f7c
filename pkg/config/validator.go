package config

import (
	"fmt"

	"github.com/modforge/assembly/pkg/models"
)

// Validator validates configuration comprehensively with clear error messages,
// mirroring the teacher's pkg/config/validator.go fail-fast shape.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation, stopping at the first error.
func (v *Validator) ValidateAll() error {
	if err := v.validateTiers(); err != nil {
		return fmt.Errorf("tier validation failed: %w", err)
	}
	if err := v.validateLLMProviders(); err != nil {
		return fmt.Errorf("LLM provider validation failed: %w", err)
	}
	if err := v.validateDefaults(); err != nil {
		return fmt.Errorf("defaults validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validateTiers() error {
	tiers := v.cfg.TierRegistry.GetAll()
	free, ok := tiers[models.TierFree]
	if !ok {
		return NewValidationError("tier", string(models.TierFree), "", ErrMissingRequiredField)
	}
	if free.DailyRequests != 0 || free.MonthlyRequests != 0 || free.MaxModsPerRequest != 0 || free.AITokenLimit != 0 {
		return NewValidationError("tier", string(models.TierFree), "limits",
			fmt.Errorf("%w: free tier must have all limits at 0", ErrInvalidValue))
	}
	for _, tier := range []models.Tier{models.TierTest, models.TierPremium, models.TierPro} {
		if _, ok := tiers[tier]; !ok {
			return NewValidationError("tier", string(tier), "", ErrMissingRequiredField)
		}
	}
	return nil
}

func (v *Validator) validateLLMProviders() error {
	providers := v.cfg.LLMProviderRegistry.GetAll()
	if len(providers) == 0 {
		return fmt.Errorf("%w: at least one llm provider must be configured", ErrMissingRequiredField)
	}
	for name, p := range providers {
		if p.Model == "" {
			return NewValidationError("llm_provider", name, "model", ErrMissingRequiredField)
		}
		if p.MaxOutputTokens < 256 {
			return NewValidationError("llm_provider", name, "max_output_tokens", ErrInvalidValue)
		}
		switch p.Type {
		case LLMProviderGenAI, LLMProviderOpenAI:
		default:
			return NewValidationError("llm_provider", name, "type", ErrInvalidValue)
		}
	}
	return nil
}

func (v *Validator) validateDefaults() error {
	d := v.cfg.Defaults
	if d == nil {
		return fmt.Errorf("%w: defaults", ErrMissingRequiredField)
	}
	if d.FanoutLimit < 1 {
		return NewValidationError("defaults", "", "fanout_limit", ErrInvalidValue)
	}
	if d.ExternalServiceLimit < 1 {
		return NewValidationError("defaults", "", "external_service_limit", ErrInvalidValue)
	}
	if d.RequestBudgetAssembly <= 0 || d.RequestBudgetCrash <= 0 {
		return NewValidationError("defaults", "", "request_budget", ErrInvalidValue)
	}
	if d.RRFConstant <= 0 {
		return NewValidationError("defaults", "", "rrf_constant", ErrInvalidValue)
	}
	return nil
}
