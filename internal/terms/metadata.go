// Package terms holds the static metadata registry for every simulation
// input and the validator that turns (term, value) into findings.
package terms

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"dealroom/internal/domain"
)

type DataType string

const (
	TypeCurrency   DataType = "currency"
	TypePercentage DataType = "percentage"
	TypeInteger    DataType = "integer"
	TypeDecimal    DataType = "decimal"
	TypeText       DataType = "text"
)

type RuleCondition string

const (
	ConditionAbove  RuleCondition = "above"
	ConditionBelow  RuleCondition = "below"
	ConditionEquals RuleCondition = "equals"
)

// BusinessRule is an informational classification band. Bands only ever
// annotate a value; they never reject it. Declared non-overlapping; gaps
// between bands mean "outside typical business ranges".
type BusinessRule struct {
	Name        string
	Min         decimal.Decimal
	Max         decimal.Decimal
	Description string
}

func (r BusinessRule) Contains(v decimal.Decimal) bool {
	return v.GreaterThanOrEqual(r.Min) && v.LessThanOrEqual(r.Max)
}

// ContextualRule is a threshold-triggered advisory with its own code and
// severity, independent of the business bands.
type ContextualRule struct {
	Condition RuleCondition
	Threshold decimal.Decimal
	Message   string
	Code      string
	Severity  domain.Severity
}

func (r ContextualRule) AppliesTo(v decimal.Decimal) bool {
	switch r.Condition {
	case ConditionAbove:
		return v.GreaterThan(r.Threshold)
	case ConditionBelow:
		return v.LessThan(r.Threshold)
	case ConditionEquals:
		return v.Equal(r.Threshold)
	}
	return false
}

// Metadata describes one term: display info, hard limits, precision, and its
// rule sets. Instances live only in the registry and are read-only.
type Metadata struct {
	Key             domain.TermKey
	DisplayName     string
	Unit            string
	Type            DataType
	Min             decimal.Decimal
	Max             decimal.Decimal
	Precision       int32
	Description     string
	BusinessRules   []BusinessRule
	ContextualRules []ContextualRule
}

// FormatValue renders a value for user-facing messages in the term's unit.
func (m Metadata) FormatValue(v decimal.Decimal) string {
	switch m.Type {
	case TypeCurrency:
		return "£" + groupThousands(v.StringFixed(m.Precision))
	case TypePercentage:
		return v.StringFixed(m.Precision) + "%"
	case TypeText:
		return v.String()
	default:
		return v.StringFixed(m.Precision)
	}
}

// RangeDescription renders the legal range for prompts, e.g. "£0 - £1,000,000,000".
func (m Metadata) RangeDescription() string {
	return fmt.Sprintf("%s - %s", m.FormatValue(m.Min), m.FormatValue(m.Max))
}

// BusinessContext returns the matching band name in display form, or a
// generic label when no band matches.
func (m Metadata) BusinessContext(v decimal.Decimal) string {
	for _, rule := range m.BusinessRules {
		if rule.Contains(v) {
			return strings.ReplaceAll(rule.Name, "_", " ")
		}
	}
	return "Outside typical ranges"
}

// groupThousands inserts commas into the integer part of a formatted number.
func groupThousands(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, fracPart := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i:]
	}
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + fracPart
	if neg {
		out = "-" + out
	}
	return out
}
