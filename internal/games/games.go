// Package games is the static catalog of game variants: which terms each
// game uses, what the two teams do, and how completion is decided.
package games

import (
	"fmt"

	"dealroom/internal/domain"
	"dealroom/internal/terms"
)

// ErrUnknownGame indicates a game type with no definition.
type ErrUnknownGame struct {
	Type domain.GameType
}

func (e ErrUnknownGame) Error() string {
	return fmt.Sprintf("unknown game type %q", string(e.Type))
}

type TeamRole struct {
	Name        string
	Description string
}

type Metadata struct {
	Name              string
	Description       string
	Roles             map[domain.TeamID]TeamRole
	CompletionMessage string
}

// Definition is one game variant. Terms is the full relevant term set in
// declaration order; completionTerms is the subset whose approvals decide
// completion, which for the trading game is only the deal-approval terms.
type Definition struct {
	Type            domain.GameType
	Metadata        Metadata
	Terms           []domain.TermKey
	completionTerms []domain.TermKey
	termSet         map[domain.TermKey]struct{}
}

func (d Definition) HasTerm(key domain.TermKey) bool {
	_, ok := d.termSet[key]
	return ok
}

// CompletionTerms returns the terms whose OK approvals mark the game done.
func (d Definition) CompletionTerms() []domain.TermKey {
	return d.completionTerms
}

// DealApprovalTerms are created only by round finalization in the trading
// game and gate its completion.
var DealApprovalTerms = []domain.TermKey{
	domain.TermCompany1DealApproval,
	domain.TermCompany2DealApproval,
	domain.TermCompany3DealApproval,
}

// PricingInputTerms are Team 1's required trading inputs.
var PricingInputTerms = []domain.TermKey{
	domain.TermCompany1Price, domain.TermCompany1Shares,
	domain.TermCompany2Price, domain.TermCompany2Shares,
	domain.TermCompany3Price, domain.TermCompany3Shares,
}

// BidInputTerms are Team 2's required trading inputs.
var BidInputTerms = []domain.TermKey{
	domain.TermInvestor1BidC1, domain.TermInvestor1BidC2, domain.TermInvestor1BidC3,
	domain.TermInvestor2BidC1, domain.TermInvestor2BidC2, domain.TermInvestor2BidC3,
	domain.TermInvestor3BidC1, domain.TermInvestor3BidC2, domain.TermInvestor3BidC3,
}

var valuationTerms = []domain.TermKey{
	domain.TermEBITDA,
	domain.TermInterestRate,
	domain.TermMultiple,
	domain.TermFactorScore,
}

var definitions = map[domain.GameType]Definition{
	domain.GameValuation: newDefinition(
		domain.GameValuation,
		Metadata{
			Name:        "FBITDA Valuation",
			Description: "Financial valuation simulation using EBITDA multiples",
			Roles: map[domain.TeamID]TeamRole{
				domain.TeamOne: {Name: "Input Terms", Description: "Enter financial metrics for valuation calculation"},
				domain.TeamTwo: {Name: "Approve Terms", Description: "Review and approve submitted financial terms"},
			},
			CompletionMessage: "FBITDA Valuation Complete! All terms approved by Team 2.",
		},
		valuationTerms,
		valuationTerms,
	),
	domain.GameTrading: newDefinition(
		domain.GameTrading,
		Metadata{
			Name:        "Company Trading Simulation",
			Description: "Multi-company pricing and investment bidding simulation",
			Roles: map[domain.TeamID]TeamRole{
				domain.TeamOne: {Name: "Company Pricing Team", Description: "Set price and shares for Company 1, 2, and 3"},
				domain.TeamTwo: {Name: "Investment Bidding Team", Description: "Submit investment bids for each company"},
			},
			CompletionMessage: "Trading Simulation Complete! All bids approved and deals finalized.",
		},
		concat(PricingInputTerms, BidInputTerms, DealApprovalTerms),
		DealApprovalTerms,
	),
}

func newDefinition(gt domain.GameType, meta Metadata, termList, completion []domain.TermKey) Definition {
	set := make(map[domain.TermKey]struct{}, len(termList))
	for _, k := range termList {
		set[k] = struct{}{}
	}
	return Definition{
		Type:            gt,
		Metadata:        meta,
		Terms:           termList,
		completionTerms: completion,
		termSet:         set,
	}
}

func concat(lists ...[]domain.TermKey) []domain.TermKey {
	var out []domain.TermKey
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// Every term named by a game definition must have a registry entry. A miss
// here is a configuration bug, so fail at process start rather than on the
// first unlucky lookup.
func init() {
	for gt, def := range definitions {
		for _, key := range def.Terms {
			if !terms.Known(key) {
				panic(fmt.Sprintf("game %s references unregistered term %s", gt, key))
			}
		}
	}
}

// Get returns the definition for a game type.
func Get(gt domain.GameType) (Definition, error) {
	def, ok := definitions[gt]
	if !ok {
		return Definition{}, ErrUnknownGame{Type: gt}
	}
	return def, nil
}

// Types returns all game types in a stable order.
func Types() []domain.GameType {
	return []domain.GameType{domain.GameValuation, domain.GameTrading}
}

// IsValidTerm reports whether a term belongs to the game.
func IsValidTerm(gt domain.GameType, key domain.TermKey) (bool, error) {
	def, err := Get(gt)
	if err != nil {
		return false, err
	}
	return def.HasTerm(key), nil
}

// RoleDescription renders the team heading shown to players, e.g.
// "Team 1 - Company Pricing Team".
func RoleDescription(gt domain.GameType, team domain.TeamID) (string, error) {
	def, err := Get(gt)
	if err != nil {
		return "", err
	}
	role, ok := def.Metadata.Roles[team]
	if !ok {
		return "", fmt.Errorf("game %s has no role for team %d", gt, team)
	}
	return fmt.Sprintf("Team %d - %s", team, role.Name), nil
}

// CompletionMessage returns the message shown when a game completes.
func CompletionMessage(gt domain.GameType) (string, error) {
	def, err := Get(gt)
	if err != nil {
		return "", err
	}
	return def.Metadata.CompletionMessage, nil
}

// CompanyTerms maps a company index to its price and shares terms. The index
// must be 1..3; anything else is an error, never a silent default.
func CompanyTerms(company int) (price, shares domain.TermKey, err error) {
	switch company {
	case 1:
		return domain.TermCompany1Price, domain.TermCompany1Shares, nil
	case 2:
		return domain.TermCompany2Price, domain.TermCompany2Shares, nil
	case 3:
		return domain.TermCompany3Price, domain.TermCompany3Shares, nil
	default:
		return "", "", fmt.Errorf("company index %d out of range 1..3", company)
	}
}

var investorBidTerms = map[[2]int]domain.TermKey{
	{1, 1}: domain.TermInvestor1BidC1, {1, 2}: domain.TermInvestor1BidC2, {1, 3}: domain.TermInvestor1BidC3,
	{2, 1}: domain.TermInvestor2BidC1, {2, 2}: domain.TermInvestor2BidC2, {2, 3}: domain.TermInvestor2BidC3,
	{3, 1}: domain.TermInvestor3BidC1, {3, 2}: domain.TermInvestor3BidC2, {3, 3}: domain.TermInvestor3BidC3,
}

// InvestorBidTerm maps (investor, company) to the bid term.
func InvestorBidTerm(investor, company int) (domain.TermKey, error) {
	key, ok := investorBidTerms[[2]int{investor, company}]
	if !ok {
		return "", fmt.Errorf("no bid term for investor %d, company %d", investor, company)
	}
	return key, nil
}
