package terms

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"dealroom/internal/domain"
)

// ErrUnknownTerm indicates a term key with no registry entry. This is a
// configuration bug, not a runtime data condition.
type ErrUnknownTerm struct {
	Key domain.TermKey
}

func (e ErrUnknownTerm) Error() string {
	return fmt.Sprintf("unknown term %q", string(e.Key))
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// registry is built once at init and never mutated afterwards. All reads go
// through Get/All; there is no write accessor on purpose.
var registry = map[domain.TermKey]Metadata{
	domain.TermEBITDA: {
		Key:         domain.TermEBITDA,
		DisplayName: "EBITDA",
		Unit:        "£",
		Type:        TypeCurrency,
		Min:         d("0"),
		Max:         d("1000000000"),
		Precision:   0,
		Description: "Earnings Before Interest, Taxes, Depreciation, and Amortization",
		BusinessRules: []BusinessRule{
			{Name: "Small_Business", Min: d("0"), Max: d("10000000"), Description: "Small to medium enterprises"},
			{Name: "Large_Enterprise", Min: d("10000001"), Max: d("100000000"), Description: "Large enterprises"},
			{Name: "Mega_Corporation", Min: d("100000001"), Max: d("1000000000"), Description: "Mega corporations requiring board approval"},
		},
		ContextualRules: []ContextualRule{
			{
				Condition: ConditionAbove,
				Threshold: d("100000000"),
				Message:   "High EBITDA (>£100M) - Board approval may be required",
				Code:      "EBITDA_BOARD_APPROVAL_REQUIRED",
				Severity:  domain.SeverityWarning,
			},
		},
	},
	domain.TermInterestRate: {
		Key:         domain.TermInterestRate,
		DisplayName: "Interest Rate",
		Unit:        "%",
		Type:        TypePercentage,
		Min:         d("0"),
		Max:         d("100"),
		Precision:   2,
		Description: "Cost of capital for debt financing",
		BusinessRules: []BusinessRule{
			{Name: "Low_Risk", Min: d("0"), Max: d("5"), Description: "Low risk, favorable market conditions"},
			{Name: "Moderate_Risk", Min: d("5.01"), Max: d("10"), Description: "Moderate risk, normal market conditions"},
			{Name: "High_Risk", Min: d("10.01"), Max: d("100"), Description: "High risk, challenging market conditions"},
		},
		ContextualRules: []ContextualRule{
			{
				Condition: ConditionAbove,
				Threshold: d("15"),
				Message:   "High interest rate (>15%) - Consider refinancing options",
				Code:      "INTEREST_RATE_REFINANCING_ADVISORY",
				Severity:  domain.SeverityWarning,
			},
		},
	},
	domain.TermMultiple: {
		Key:         domain.TermMultiple,
		DisplayName: "Valuation Multiple",
		Unit:        "x",
		Type:        TypeDecimal,
		Min:         d("0.1"),
		Max:         d("50"),
		Precision:   1,
		Description: "Industry-specific EBITDA multiplier",
		BusinessRules: []BusinessRule{
			{Name: "Distressed_Valuation", Min: d("0.1"), Max: d("5"), Description: "Distressed or declining industry"},
			{Name: "Standard_Valuation", Min: d("5.1"), Max: d("15"), Description: "Standard industry multiples"},
			{Name: "Premium_Valuation", Min: d("15.1"), Max: d("50"), Description: "Premium or high-growth industry"},
		},
		ContextualRules: []ContextualRule{
			{
				Condition: ConditionAbove,
				Threshold: d("20"),
				Message:   "Very high multiple (>20x) - Verify market comparables",
				Code:      "MULTIPLE_MARKET_VERIFICATION_REQUIRED",
				Severity:  domain.SeverityWarning,
			},
		},
	},
	domain.TermFactorScore: {
		Key:         domain.TermFactorScore,
		DisplayName: "Risk Factor Score",
		Unit:        "",
		Type:        TypeDecimal,
		Min:         d("0.1"),
		Max:         d("2.0"),
		Precision:   2,
		Description: "Risk adjustment factor (1.0 = neutral, <1.0 = risky, >1.0 = premium)",
		BusinessRules: []BusinessRule{
			{Name: "High_Risk", Min: d("0.1"), Max: d("0.8"), Description: "High risk factors present"},
			{Name: "Neutral_Risk", Min: d("0.81"), Max: d("1.2"), Description: "Neutral risk profile"},
			{Name: "Premium_Quality", Min: d("1.21"), Max: d("2.0"), Description: "Premium quality with low risk"},
		},
		ContextualRules: []ContextualRule{
			{
				Condition: ConditionBelow,
				Threshold: d("0.5"),
				Message:   "High risk score (<0.5) - Review risk mitigation strategies",
				Code:      "FACTOR_RISK_MITIGATION_REVIEW",
				Severity:  domain.SeverityWarning,
			},
		},
	},

	domain.TermCompany1Price:  companyPrice(domain.TermCompany1Price, 1),
	domain.TermCompany1Shares: companyShares(domain.TermCompany1Shares, 1),
	domain.TermCompany2Price:  companyPrice(domain.TermCompany2Price, 2),
	domain.TermCompany2Shares: companyShares(domain.TermCompany2Shares, 2),
	domain.TermCompany3Price:  companyPrice(domain.TermCompany3Price, 3),
	domain.TermCompany3Shares: companyShares(domain.TermCompany3Shares, 3),

	domain.TermInvestor1BidC1: investorBid(domain.TermInvestor1BidC1, 1, 1),
	domain.TermInvestor1BidC2: investorBid(domain.TermInvestor1BidC2, 1, 2),
	domain.TermInvestor1BidC3: investorBid(domain.TermInvestor1BidC3, 1, 3),
	domain.TermInvestor2BidC1: investorBid(domain.TermInvestor2BidC1, 2, 1),
	domain.TermInvestor2BidC2: investorBid(domain.TermInvestor2BidC2, 2, 2),
	domain.TermInvestor2BidC3: investorBid(domain.TermInvestor2BidC3, 2, 3),
	domain.TermInvestor3BidC1: investorBid(domain.TermInvestor3BidC1, 3, 1),
	domain.TermInvestor3BidC2: investorBid(domain.TermInvestor3BidC2, 3, 2),
	domain.TermInvestor3BidC3: investorBid(domain.TermInvestor3BidC3, 3, 3),

	domain.TermCompany1DealApproval: dealApproval(domain.TermCompany1DealApproval, 1),
	domain.TermCompany2DealApproval: dealApproval(domain.TermCompany2DealApproval, 2),
	domain.TermCompany3DealApproval: dealApproval(domain.TermCompany3DealApproval, 3),
}

func companyPrice(key domain.TermKey, n int) Metadata {
	return Metadata{
		Key:         key,
		DisplayName: fmt.Sprintf("Company %d Price", n),
		Unit:        "#",
		Type:        TypeInteger,
		Min:         d("1"),
		Max:         d("100"),
		Precision:   0,
		Description: fmt.Sprintf("Share price for Company %d", n),
	}
}

func companyShares(key domain.TermKey, n int) Metadata {
	return Metadata{
		Key:         key,
		DisplayName: fmt.Sprintf("Company %d Shares", n),
		Unit:        "#",
		Type:        TypeInteger,
		Min:         d("1000"),
		Max:         d("50000"),
		Precision:   0,
		Description: fmt.Sprintf("Number of shares for Company %d", n),
	}
}

func investorBid(key domain.TermKey, investor, company int) Metadata {
	return Metadata{
		Key:         key,
		DisplayName: fmt.Sprintf("Investor %d Bid C%d", investor, company),
		Unit:        "#",
		Type:        TypeInteger,
		Min:         d("0"),
		Max:         d("20000"),
		Precision:   0,
		Description: fmt.Sprintf("Investor %d bid for Company %d shares", investor, company),
	}
}

func dealApproval(key domain.TermKey, n int) Metadata {
	return Metadata{
		Key:         key,
		DisplayName: fmt.Sprintf("Company %d Deal Finalization", n),
		Unit:        "",
		Type:        TypeText,
		Min:         d("0"),
		Max:         d("1"),
		Precision:   0,
		Description: fmt.Sprintf("Final approval for the outcome of Company %d's trading", n),
	}
}

// Get returns the metadata for a term key.
func Get(key domain.TermKey) (Metadata, error) {
	m, ok := registry[key]
	if !ok {
		return Metadata{}, ErrUnknownTerm{Key: key}
	}
	return m, nil
}

// MustGet is for callers that already validated the key against a game
// definition; a miss is a programmer error.
func MustGet(key domain.TermKey) Metadata {
	m, err := Get(key)
	if err != nil {
		panic(err)
	}
	return m
}

// Known reports whether the key has a registry entry.
func Known(key domain.TermKey) bool {
	_, ok := registry[key]
	return ok
}

// Keys returns all registered term keys in lexical order.
func Keys() []domain.TermKey {
	keys := make([]domain.TermKey, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
