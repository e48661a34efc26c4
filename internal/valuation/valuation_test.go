package valuation_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"dealroom/internal/domain"
	"dealroom/internal/valuation"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return v
}

func TestGame1Valuation(t *testing.T) {
	got := valuation.Game1Valuation(dec(t, "1000000"), dec(t, "5.0"), dec(t, "1.1"))
	if want := dec(t, "5500000"); !got.Equal(want) {
		t.Fatalf("valuation = %s, want %s", got, want)
	}
}

func TestCapitalRaisedUsesTotalBids(t *testing.T) {
	// 800 of 1000 shares bid at price 10: capital is 8,000, not 10,000
	result := valuation.CapitalRaised(dec(t, "10"), dec(t, "1000"), dec(t, "800"))
	amount, ok := result.Amount()
	if !ok {
		t.Fatalf("expected numeric amount")
	}
	if want := dec(t, "8000"); !amount.Equal(want) {
		t.Fatalf("capital = %s, want %s", amount, want)
	}
}

func TestCapitalRaisedOversubscribed(t *testing.T) {
	result := valuation.CapitalRaised(dec(t, "10"), dec(t, "1000"), dec(t, "1200"))
	if !result.NeedsAllocation() {
		t.Fatalf("expected allocation-needed variant")
	}
	if _, ok := result.Amount(); ok {
		t.Fatalf("allocation-needed must not expose an amount")
	}
	if result.String() != "Allocate" {
		t.Fatalf("display = %q", result.String())
	}
}

func TestCapitalRaisedExactFill(t *testing.T) {
	result := valuation.CapitalRaised(dec(t, "10"), dec(t, "1000"), dec(t, "1000"))
	amount, ok := result.Amount()
	if !ok || !amount.Equal(dec(t, "10000")) {
		t.Fatalf("exact fill capital = %s ok=%v", amount, ok)
	}
}

func TestSubscription(t *testing.T) {
	cases := []struct {
		shares, bids string
		want         domain.SubscriptionStatus
	}{
		{"1000", "1000", domain.SubscriptionFilled},
		{"1000", "800", domain.SubscriptionUnder},
		{"1000", "1200", domain.SubscriptionOver},
	}
	for _, tc := range cases {
		got := valuation.Subscription(dec(t, tc.shares), dec(t, tc.bids))
		if got != tc.want {
			t.Fatalf("subscription(%s,%s) = %s, want %s", tc.shares, tc.bids, got, tc.want)
		}
	}
}

func TestMostBidsFirstToReachMaxWins(t *testing.T) {
	totals := map[int]decimal.Decimal{
		1: dec(t, "100"),
		2: dec(t, "150"),
		3: dec(t, "150"),
	}
	// company3's equal total must not displace company2
	if got := valuation.MostBids(totals); got != 2 {
		t.Fatalf("most bids = %d, want 2", got)
	}
}

func TestMostBidsAllZero(t *testing.T) {
	totals := map[int]decimal.Decimal{
		1: decimal.Zero,
		2: decimal.Zero,
		3: decimal.Zero,
	}
	if got := valuation.MostBids(totals); got != 0 {
		t.Fatalf("most bids = %d, want 0", got)
	}
	if label := (valuation.Summary{}).MostBidsLabel(); label != "No data" {
		t.Fatalf("label = %q", label)
	}
}

func TestSharesBidForSumsAcrossInvestors(t *testing.T) {
	team2 := map[domain.TermKey]decimal.Decimal{
		domain.TermInvestor1BidC1: dec(t, "100"),
		domain.TermInvestor2BidC1: dec(t, "250"),
		// investor3's bid on company1 missing: counts as zero
		domain.TermInvestor1BidC2: dec(t, "50"),
	}
	totals := valuation.SharesBidFor(team2)
	if !totals[1].Equal(dec(t, "350")) {
		t.Fatalf("company1 total = %s", totals[1])
	}
	if !totals[2].Equal(dec(t, "50")) {
		t.Fatalf("company2 total = %s", totals[2])
	}
	if !totals[3].Equal(decimal.Zero) {
		t.Fatalf("company3 total = %s", totals[3])
	}
}

func TestBuildSummary(t *testing.T) {
	team1 := map[domain.TermKey]decimal.Decimal{
		domain.TermCompany1Price:  dec(t, "10"),
		domain.TermCompany1Shares: dec(t, "1000"),
		domain.TermCompany2Price:  dec(t, "20"),
		domain.TermCompany2Shares: dec(t, "2000"),
		domain.TermCompany3Price:  dec(t, "30"),
		domain.TermCompany3Shares: dec(t, "3000"),
	}
	team2 := map[domain.TermKey]decimal.Decimal{
		domain.TermInvestor1BidC1: dec(t, "500"),
		domain.TermInvestor2BidC1: dec(t, "300"),
		domain.TermInvestor1BidC2: dec(t, "2000"),
		domain.TermInvestor2BidC2: dec(t, "500"),
		domain.TermInvestor3BidC3: dec(t, "3000"),
	}
	summary := valuation.BuildSummary(team1, team2)
	if len(summary.Companies) != 3 {
		t.Fatalf("companies = %d", len(summary.Companies))
	}

	c1 := summary.Companies[0]
	amount, _ := c1.CapitalRaised.Amount()
	if !amount.Equal(dec(t, "8000")) || c1.Subscription != domain.SubscriptionUnder {
		t.Fatalf("company1 = %s/%s", amount, c1.Subscription)
	}

	c2 := summary.Companies[1]
	if !c2.CapitalRaised.NeedsAllocation() || c2.Subscription != domain.SubscriptionOver {
		t.Fatalf("company2 = %s/%s", c2.CapitalRaised, c2.Subscription)
	}

	c3 := summary.Companies[2]
	amount, _ = c3.CapitalRaised.Amount()
	if !amount.Equal(dec(t, "90000")) || c3.Subscription != domain.SubscriptionFilled {
		t.Fatalf("company3 = %s/%s", amount, c3.Subscription)
	}

	if summary.MostBids != 3 || summary.MostBidsLabel() != "Company 3" {
		t.Fatalf("most bids = %d (%s)", summary.MostBids, summary.MostBidsLabel())
	}
}

func TestBuildSummaryMissingSide(t *testing.T) {
	team1 := map[domain.TermKey]decimal.Decimal{
		domain.TermCompany1Price: dec(t, "10"),
	}
	summary := valuation.BuildSummary(team1, nil)
	if len(summary.Companies) != 0 || summary.MostBids != 0 {
		t.Fatalf("expected empty summary, got %+v", summary)
	}
}
