package games_test

import (
	"testing"

	"dealroom/internal/domain"
	"dealroom/internal/games"
	"dealroom/internal/terms"
)

func TestEveryGameTermIsRegistered(t *testing.T) {
	for _, gt := range games.Types() {
		def, err := games.Get(gt)
		if err != nil {
			t.Fatalf("get %s: %v", gt, err)
		}
		for _, key := range def.Terms {
			if _, err := terms.Get(key); err != nil {
				t.Fatalf("game %s term %s: %v", gt, key, err)
			}
		}
	}
}

func TestGetUnknownGame(t *testing.T) {
	if _, err := games.Get(domain.GameType("chess")); err == nil {
		t.Fatalf("expected unknown game error")
	}
}

func TestTermMembership(t *testing.T) {
	ok, err := games.IsValidTerm(domain.GameValuation, domain.TermEBITDA)
	if err != nil || !ok {
		t.Fatalf("ebitda should belong to the valuation game: %v", err)
	}
	ok, err = games.IsValidTerm(domain.GameValuation, domain.TermCompany1Price)
	if err != nil || ok {
		t.Fatalf("company pricing must not belong to the valuation game")
	}
	ok, err = games.IsValidTerm(domain.GameTrading, domain.TermCompany3DealApproval)
	if err != nil || !ok {
		t.Fatalf("deal approvals belong to the trading game: %v", err)
	}
}

func TestTermCounts(t *testing.T) {
	valuationDef, _ := games.Get(domain.GameValuation)
	if len(valuationDef.Terms) != 4 {
		t.Fatalf("valuation terms = %d, want 4", len(valuationDef.Terms))
	}
	tradingDef, _ := games.Get(domain.GameTrading)
	if len(tradingDef.Terms) != 18 {
		t.Fatalf("trading terms = %d, want 18", len(tradingDef.Terms))
	}
	if len(tradingDef.CompletionTerms()) != 3 {
		t.Fatalf("trading completion terms = %d, want 3", len(tradingDef.CompletionTerms()))
	}
	if len(valuationDef.CompletionTerms()) != 4 {
		t.Fatalf("valuation completion terms = %d, want 4", len(valuationDef.CompletionTerms()))
	}
}

func TestCompanyTermsLookup(t *testing.T) {
	price, shares, err := games.CompanyTerms(2)
	if err != nil {
		t.Fatalf("company 2: %v", err)
	}
	if price != domain.TermCompany2Price || shares != domain.TermCompany2Shares {
		t.Fatalf("company 2 terms = %s, %s", price, shares)
	}
	if _, _, err := games.CompanyTerms(4); err == nil {
		t.Fatalf("expected error for company index 4")
	}
	if _, _, err := games.CompanyTerms(0); err == nil {
		t.Fatalf("expected error for company index 0")
	}
}

func TestInvestorBidTermLookup(t *testing.T) {
	key, err := games.InvestorBidTerm(3, 1)
	if err != nil {
		t.Fatalf("investor 3 company 1: %v", err)
	}
	if key != domain.TermInvestor3BidC1 {
		t.Fatalf("bid term = %s", key)
	}
	if _, err := games.InvestorBidTerm(4, 1); err == nil {
		t.Fatalf("expected error for investor index 4")
	}
	if _, err := games.InvestorBidTerm(1, 0); err == nil {
		t.Fatalf("expected error for company index 0")
	}
}

func TestRoleDescription(t *testing.T) {
	desc, err := games.RoleDescription(domain.GameTrading, domain.TeamOne)
	if err != nil {
		t.Fatalf("role: %v", err)
	}
	if desc != "Team 1 - Company Pricing Team" {
		t.Fatalf("role description = %q", desc)
	}
	if _, err := games.RoleDescription(domain.GameTrading, domain.TeamID(3)); err == nil {
		t.Fatalf("expected error for team 3")
	}
}
