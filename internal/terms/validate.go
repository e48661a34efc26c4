package terms

import (
	"fmt"

	"github.com/shopspring/decimal"

	"dealroom/internal/domain"
)

// Validation finding codes.
const (
	CodeUnknownTerm            = "UNKNOWN_TERM"
	CodeBelowMinimum           = "BELOW_MINIMUM"
	CodeAboveMaximum           = "ABOVE_MAXIMUM"
	CodeExcessPrecision        = "EXCESS_PRECISION"
	CodeBusinessClassification = "BUSINESS_CLASSIFICATION"
	CodeOutsideBusinessRange   = "OUTSIDE_BUSINESS_RANGE"
)

// Validate checks a value against the term's registered rules and returns
// findings in a fixed order: range, precision, business classification,
// contextual rules. It never rejects by itself; severity policy belongs to
// the caller.
func Validate(key domain.TermKey, value decimal.Decimal) []domain.Finding {
	meta, err := Get(key)
	if err != nil {
		return []domain.Finding{{
			Field:    key,
			Message:  err.Error(),
			Value:    value,
			Code:     CodeUnknownTerm,
			Severity: domain.SeverityError,
		}}
	}

	var findings []domain.Finding
	findings = append(findings, checkRange(value, meta)...)
	findings = append(findings, checkPrecision(value, meta)...)
	findings = append(findings, checkBusinessClassification(value, meta)...)
	findings = append(findings, checkContextualRules(value, meta)...)
	return findings
}

func checkRange(value decimal.Decimal, meta Metadata) []domain.Finding {
	var findings []domain.Finding
	if value.LessThan(meta.Min) {
		findings = append(findings, domain.Finding{
			Field:    meta.Key,
			Message:  fmt.Sprintf("%s must be at least %s. Current: %s", meta.DisplayName, meta.FormatValue(meta.Min), meta.FormatValue(value)),
			Value:    value,
			Code:     CodeBelowMinimum,
			Severity: domain.SeverityError,
		})
	}
	if value.GreaterThan(meta.Max) {
		findings = append(findings, domain.Finding{
			Field:    meta.Key,
			Message:  fmt.Sprintf("%s cannot exceed %s. Current: %s", meta.DisplayName, meta.FormatValue(meta.Max), meta.FormatValue(value)),
			Value:    value,
			Code:     CodeAboveMaximum,
			Severity: domain.SeverityError,
		})
	}
	return findings
}

func checkPrecision(value decimal.Decimal, meta Metadata) []domain.Finding {
	// Exponent is negative for fractional digits, so "1.234" is -3.
	if value.Exponent() < -meta.Precision {
		return []domain.Finding{{
			Field:    meta.Key,
			Message:  fmt.Sprintf("%s precision limited to %d decimal places", meta.DisplayName, meta.Precision),
			Value:    value,
			Code:     CodeExcessPrecision,
			Severity: domain.SeverityError,
		}}
	}
	return nil
}

// checkBusinessClassification annotates the value with its band, or warns
// when bands exist but none match. Bands are declared non-overlapping; if a
// config bug introduces overlap, the first declared band wins.
func checkBusinessClassification(value decimal.Decimal, meta Metadata) []domain.Finding {
	for _, rule := range meta.BusinessRules {
		if rule.Contains(value) {
			return []domain.Finding{{
				Field:    meta.Key,
				Message:  fmt.Sprintf("%s: %s", meta.DisplayName, rule.Description),
				Value:    value,
				Code:     CodeBusinessClassification,
				Severity: domain.SeverityInfo,
			}}
		}
	}
	if len(meta.BusinessRules) > 0 {
		return []domain.Finding{{
			Field:    meta.Key,
			Message:  fmt.Sprintf("%s of %s is outside typical business ranges", meta.DisplayName, meta.FormatValue(value)),
			Value:    value,
			Code:     CodeOutsideBusinessRange,
			Severity: domain.SeverityWarning,
		}}
	}
	return nil
}

func checkContextualRules(value decimal.Decimal, meta Metadata) []domain.Finding {
	var findings []domain.Finding
	for _, rule := range meta.ContextualRules {
		if rule.AppliesTo(value) {
			findings = append(findings, domain.Finding{
				Field:    meta.Key,
				Message:  rule.Message,
				Value:    value,
				Code:     rule.Code,
				Severity: rule.Severity,
			})
		}
	}
	return findings
}

// HasErrors reports whether any finding carries error severity.
func HasErrors(findings []domain.Finding) bool {
	for _, f := range findings {
		if f.Severity == domain.SeverityError {
			return true
		}
	}
	return false
}

// HasWarnings reports whether any finding carries warning severity.
func HasWarnings(findings []domain.Finding) bool {
	for _, f := range findings {
		if f.Severity == domain.SeverityWarning {
			return true
		}
	}
	return false
}
