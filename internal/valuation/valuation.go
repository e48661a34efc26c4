// Package valuation holds the pure calculators: the valuation formula for
// the single-formula game and the bid analytics for the trading game. No
// I/O, no state.
package valuation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"dealroom/internal/domain"
	"dealroom/internal/games"
)

// Game1Valuation is the FBITDA formula: ebitda x multiple x factor score.
// The interest rate term gates approval but does not enter the formula;
// that asymmetry is inherited behavior and must not be folded in here.
func Game1Valuation(ebitda, multiple, factorScore decimal.Decimal) decimal.Decimal {
	return ebitda.Mul(multiple).Mul(factorScore)
}

// CapitalRaised resolves a company's outcome. When bids fit into the
// available shares the raised amount is price x total bids, the capital
// actually committed at the clearing price. Oversubscription has no numeric
// answer until shares are allocated, so it yields the allocation variant.
func CapitalRaised(price, availableShares, totalBids decimal.Decimal) domain.CapitalRaised {
	if totalBids.LessThanOrEqual(availableShares) {
		return domain.RaisedAmount(price.Mul(totalBids))
	}
	return domain.AllocationNeeded()
}

// Subscription classifies demand against supply.
func Subscription(availableShares, totalBids decimal.Decimal) domain.SubscriptionStatus {
	switch totalBids.Cmp(availableShares) {
	case 0:
		return domain.SubscriptionFilled
	case -1:
		return domain.SubscriptionUnder
	default:
		return domain.SubscriptionOver
	}
}

// CompanyResult is one company's line in the round summary.
type CompanyResult struct {
	Company         int                       `json:"company"`
	Price           decimal.Decimal           `json:"price"`
	AvailableShares decimal.Decimal           `json:"available_shares"`
	SharesBidFor    decimal.Decimal           `json:"shares_bid_for"`
	CapitalRaised   domain.CapitalRaised      `json:"capital_raised"`
	Subscription    domain.SubscriptionStatus `json:"subscription" enum:"Filled,Under,Over"`
}

// Summary is the trading game's round report. MostBids is the 1-based
// company index, or zero when no company received any bids.
type Summary struct {
	Companies []CompanyResult `json:"companies"`
	MostBids  int             `json:"most_bids,omitempty"`
}

// MostBidsLabel renders MostBids for display.
func (s Summary) MostBidsLabel() string {
	if s.MostBids == 0 {
		return "No data"
	}
	return fmt.Sprintf("Company %d", s.MostBids)
}

// SharesBidFor sums every investor's bids per company. Missing bids count
// as zero.
func SharesBidFor(team2 map[domain.TermKey]decimal.Decimal) map[int]decimal.Decimal {
	totals := make(map[int]decimal.Decimal, 3)
	for company := 1; company <= 3; company++ {
		total := decimal.Zero
		for investor := 1; investor <= 3; investor++ {
			key, err := games.InvestorBidTerm(investor, company)
			if err != nil {
				panic(err)
			}
			if bid, ok := team2[key]; ok {
				total = total.Add(bid)
			}
		}
		totals[company] = total
	}
	return totals
}

// MostBids scans companies in declared order and keeps the first company
// whose total strictly exceeds the running maximum. A later company with an
// equal total therefore never displaces an earlier one, and all-zero totals
// return zero.
func MostBids(totals map[int]decimal.Decimal) int {
	max := decimal.Zero
	best := 0
	for company := 1; company <= 3; company++ {
		if totals[company].GreaterThan(max) {
			max = totals[company]
			best = company
		}
	}
	return best
}

// BuildSummary assembles the full trading round report from both teams'
// raw values. Either side missing entirely yields an empty summary. A
// company whose pricing is absent contributes zero price and shares, which
// surfaces as oversubscribed the moment anyone bids on it.
func BuildSummary(team1, team2 map[domain.TermKey]decimal.Decimal) Summary {
	if len(team1) == 0 || len(team2) == 0 {
		return Summary{}
	}

	totals := SharesBidFor(team2)
	var results []CompanyResult
	for company := 1; company <= 3; company++ {
		priceKey, sharesKey, err := games.CompanyTerms(company)
		if err != nil {
			panic(err)
		}
		price := team1[priceKey]
		shares := team1[sharesKey]
		results = append(results, CompanyResult{
			Company:         company,
			Price:           price,
			AvailableShares: shares,
			SharesBidFor:    totals[company],
			CapitalRaised:   CapitalRaised(price, shares, totals[company]),
			Subscription:    Subscription(shares, totals[company]),
		})
	}
	return Summary{
		Companies: results,
		MostBids:  MostBids(totals),
	}
}
