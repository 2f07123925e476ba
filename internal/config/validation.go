package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// CustomValidator carries the validator instance with the extra rules registered.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator registers the date, environment and log-level rules.
func NewValidator() (*CustomValidator, error) {
	v := validator.New()

	registrations := map[string]validator.Func{
		"environment": validateEnvironment,
		"loglevel":    validateLogLevel,
		"dateonly":    validateDateOnly,
	}
	for name, fn := range registrations {
		if err := v.RegisterValidation(name, fn); err != nil {
			return nil, fmt.Errorf("failed to register %q validation: %w", name, err)
		}
	}

	return &CustomValidator{validator: v}, nil
}

// Validate checks a loaded configuration against every registered rule.
func Validate(cfg *Config) error {
	cv, err := NewValidator()
	if err != nil {
		return err
	}
	return cv.Validate(cfg)
}

// Validate runs struct validation followed by the cross-field checks.
func (cv *CustomValidator) Validate(cfg *Config) error {
	if err := cv.validator.Struct(cfg); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}
	return validateCrossField(cfg)
}

func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func validateDateOnly(fl validator.FieldLevel) bool {
	_, err := time.Parse("2006-01-02", fl.Field().String())
	return err == nil
}

// validateCrossField checks relations single-field tags cannot express.
func validateCrossField(cfg *Config) error {
	from, err := cfg.Search.ParsedDateFrom()
	if err != nil {
		return fmt.Errorf("invalid search date_from: %w", err)
	}
	to, err := cfg.Search.ParsedDateTo()
	if err != nil {
		return fmt.Errorf("invalid search date_to: %w", err)
	}
	if !from.Before(to) {
		return fmt.Errorf("search date_from %s must precede date_to %s", cfg.Search.DateFrom, cfg.Search.DateTo)
	}
	return nil
}

func formatValidationErrors(errs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q validation", e.Namespace(), e.Tag()))
	}
	return fmt.Errorf("configuration validation failed: %s", strings.Join(msgs, "; "))
}
