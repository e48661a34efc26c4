package terms_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"dealroom/internal/domain"
	"dealroom/internal/terms"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return v
}

func codes(findings []domain.Finding) []string {
	out := make([]string, len(findings))
	for i, f := range findings {
		out[i] = f.Code
	}
	return out
}

func TestValidateInBandValueSingleInfoFinding(t *testing.T) {
	// strictly inside range, valid precision, inside exactly one band
	cases := []struct {
		key   domain.TermKey
		value string
	}{
		{domain.TermEBITDA, "5000000"},
		{domain.TermInterestRate, "7.25"},
		{domain.TermMultiple, "8.0"},
		{domain.TermFactorScore, "1.0"},
	}
	for _, tc := range cases {
		findings := terms.Validate(tc.key, dec(t, tc.value))
		if len(findings) != 1 {
			t.Fatalf("%s=%s: findings %v, want exactly one", tc.key, tc.value, codes(findings))
		}
		f := findings[0]
		if f.Code != terms.CodeBusinessClassification || f.Severity != domain.SeverityInfo {
			t.Fatalf("%s=%s: got %s/%s", tc.key, tc.value, f.Code, f.Severity)
		}
	}
}

func TestValidateBelowMinimumKeepsClassificationCheck(t *testing.T) {
	// one unit below min: range error plus the band checks still running
	findings := terms.Validate(domain.TermMultiple, dec(t, "0.0"))
	if len(findings) != 2 {
		t.Fatalf("findings %v, want range error and band warning", codes(findings))
	}
	if findings[0].Code != terms.CodeBelowMinimum || findings[0].Severity != domain.SeverityError {
		t.Fatalf("first finding %s/%s", findings[0].Code, findings[0].Severity)
	}
	if findings[1].Code != terms.CodeOutsideBusinessRange || findings[1].Severity != domain.SeverityWarning {
		t.Fatalf("second finding %s/%s", findings[1].Code, findings[1].Severity)
	}
}

func TestValidateAboveMaximum(t *testing.T) {
	findings := terms.Validate(domain.TermEBITDA, dec(t, "1000000001"))
	if len(findings) != 3 {
		t.Fatalf("findings %v", codes(findings))
	}
	want := []string{terms.CodeAboveMaximum, terms.CodeOutsideBusinessRange, "EBITDA_BOARD_APPROVAL_REQUIRED"}
	for i, code := range want {
		if findings[i].Code != code {
			t.Fatalf("finding %d = %s, want %s", i, findings[i].Code, code)
		}
	}
}

func TestValidateExcessPrecision(t *testing.T) {
	findings := terms.Validate(domain.TermMultiple, dec(t, "5.25"))
	var found bool
	for _, f := range findings {
		if f.Code == terms.CodeExcessPrecision {
			found = true
			if f.Severity != domain.SeverityError {
				t.Fatalf("precision severity = %s", f.Severity)
			}
		}
	}
	if !found {
		t.Fatalf("expected precision error, got %v", codes(findings))
	}

	// two fractional digits are fine for a precision-2 term
	for _, f := range terms.Validate(domain.TermInterestRate, dec(t, "5.25")) {
		if f.Code == terms.CodeExcessPrecision {
			t.Fatalf("unexpected precision error for interest rate")
		}
	}
}

func TestValidateContextualRules(t *testing.T) {
	cases := []struct {
		key   domain.TermKey
		value string
		code  string
	}{
		{domain.TermEBITDA, "150000000", "EBITDA_BOARD_APPROVAL_REQUIRED"},
		{domain.TermInterestRate, "16", "INTEREST_RATE_REFINANCING_ADVISORY"},
		{domain.TermMultiple, "25", "MULTIPLE_MARKET_VERIFICATION_REQUIRED"},
		{domain.TermFactorScore, "0.4", "FACTOR_RISK_MITIGATION_REVIEW"},
	}
	for _, tc := range cases {
		findings := terms.Validate(tc.key, dec(t, tc.value))
		var found bool
		for _, f := range findings {
			if f.Code == tc.code {
				found = true
				if f.Severity != domain.SeverityWarning {
					t.Fatalf("%s: severity = %s", tc.code, f.Severity)
				}
			}
		}
		if !found {
			t.Fatalf("%s=%s: missing %s in %v", tc.key, tc.value, tc.code, codes(findings))
		}
	}

	// below the threshold the advisory must stay silent
	for _, f := range terms.Validate(domain.TermInterestRate, dec(t, "15")) {
		if f.Code == "INTEREST_RATE_REFINANCING_ADVISORY" {
			t.Fatalf("advisory fired at the threshold itself")
		}
	}
}

func TestValidateUnknownTerm(t *testing.T) {
	findings := terms.Validate(domain.TermKey("nonsense"), dec(t, "1"))
	if len(findings) != 1 || findings[0].Code != terms.CodeUnknownTerm || findings[0].Severity != domain.SeverityError {
		t.Fatalf("unexpected findings %v", codes(findings))
	}
}

func TestValidateBandGap(t *testing.T) {
	// 5.005 sits between the Low_Risk and Moderate_Risk interest bands
	findings := terms.Validate(domain.TermInterestRate, dec(t, "5.005"))
	var gap bool
	for _, f := range findings {
		if f.Code == terms.CodeOutsideBusinessRange && f.Severity == domain.SeverityWarning {
			gap = true
		}
	}
	if !gap {
		t.Fatalf("expected band gap warning, got %v", codes(findings))
	}
}

func TestValidateIntegerTermsHaveNoBands(t *testing.T) {
	findings := terms.Validate(domain.TermCompany1Price, dec(t, "50"))
	if len(findings) != 0 {
		t.Fatalf("expected clean result, got %v", codes(findings))
	}
}

func TestHasErrorsAndWarnings(t *testing.T) {
	clean := terms.Validate(domain.TermCompany1Shares, dec(t, "1000"))
	if terms.HasErrors(clean) || terms.HasWarnings(clean) {
		t.Fatalf("clean findings misclassified: %v", codes(clean))
	}
	bad := terms.Validate(domain.TermCompany1Shares, dec(t, "999"))
	if !terms.HasErrors(bad) {
		t.Fatalf("expected error findings, got %v", codes(bad))
	}
}

func TestFormatValue(t *testing.T) {
	ebitda := terms.MustGet(domain.TermEBITDA)
	if got := ebitda.FormatValue(dec(t, "1000000")); got != "£1,000,000" {
		t.Fatalf("currency format = %q", got)
	}
	rate := terms.MustGet(domain.TermInterestRate)
	if got := rate.FormatValue(dec(t, "5.5")); got != "5.50%" {
		t.Fatalf("percentage format = %q", got)
	}
}

func TestGetUnknownTerm(t *testing.T) {
	if _, err := terms.Get(domain.TermKey("missing")); err == nil {
		t.Fatalf("expected unknown term error")
	}
}
