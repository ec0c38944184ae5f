package utils

import (
	"regexp"
	"strings"

	"github.com/hirosato/account-statements/backend/internal/domain/errors"
)

var (
	// IDRegex validates entity, account, currency and transaction IDs
	IDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.:\-]{0,127}$`)

	// CurrencyCodeRegex validates ISO 4217 style codes
	CurrencyCodeRegex = regexp.MustCompile(`^[A-Z]{3}$`)
)

// ValidateID validates an identifier used in a path or argument
func ValidateID(value, fieldName string) error {
	if !IDRegex.MatchString(value) {
		return errors.NewValidationError("invalid " + fieldName).WithDetail("field", fieldName)
	}
	return nil
}

// ValidateOptionalID validates value only when it is set
func ValidateOptionalID(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return ValidateID(value, fieldName)
}

// ValidateCurrency validates a currency code
func ValidateCurrency(currency string) error {
	if !CurrencyCodeRegex.MatchString(currency) {
		return errors.NewValidationError("invalid currency code, should be a 3-letter code (e.g., USD)")
	}
	return nil
}

// ValidateTenantID validates a tenant ID
func ValidateTenantID(tenantID string) error {
	if strings.TrimSpace(tenantID) == "" {
		return errors.NewTenantError("tenant ID is required")
	}
	return nil
}

// ValidateRequiredString validates that a string is not empty
func ValidateRequiredString(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return errors.NewValidationError(fieldName + " is required")
	}
	return nil
}
