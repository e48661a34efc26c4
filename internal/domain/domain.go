package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// TermKey identifies one simulation input. Keys are stable strings and are
// used as map keys throughout; never rename a published key.
type TermKey string

const (
	TermEBITDA       TermKey = "ebitda"
	TermInterestRate TermKey = "interest_rate"
	TermMultiple     TermKey = "multiple"
	TermFactorScore  TermKey = "factor_score"

	TermCompany1Price  TermKey = "company1_price"
	TermCompany1Shares TermKey = "company1_shares"
	TermCompany2Price  TermKey = "company2_price"
	TermCompany2Shares TermKey = "company2_shares"
	TermCompany3Price  TermKey = "company3_price"
	TermCompany3Shares TermKey = "company3_shares"

	TermInvestor1BidC1 TermKey = "investor1_bid_c1"
	TermInvestor1BidC2 TermKey = "investor1_bid_c2"
	TermInvestor1BidC3 TermKey = "investor1_bid_c3"
	TermInvestor2BidC1 TermKey = "investor2_bid_c1"
	TermInvestor2BidC2 TermKey = "investor2_bid_c2"
	TermInvestor2BidC3 TermKey = "investor2_bid_c3"
	TermInvestor3BidC1 TermKey = "investor3_bid_c1"
	TermInvestor3BidC2 TermKey = "investor3_bid_c2"
	TermInvestor3BidC3 TermKey = "investor3_bid_c3"

	TermCompany1DealApproval TermKey = "company1_deal_approval"
	TermCompany2DealApproval TermKey = "company2_deal_approval"
	TermCompany3DealApproval TermKey = "company3_deal_approval"
)

// TeamID is 1 or 2; the simulation is strictly two-sided.
type TeamID int

const (
	TeamOne TeamID = 1
	TeamTwo TeamID = 2
)

func (t TeamID) Valid() bool { return t == TeamOne || t == TeamTwo }

type GameType string

const (
	GameValuation GameType = "valuation"
	GameTrading   GameType = "trading"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

type ApprovalStatus string

const (
	ApprovalTBD ApprovalStatus = "tbd"
	ApprovalOK  ApprovalStatus = "ok"
)

// Toggled flips TBD to OK and back. Anything unrecognized resolves to OK so
// that the first toggle on a fresh approval always approves.
func (s ApprovalStatus) Toggled() ApprovalStatus {
	if s == ApprovalOK {
		return ApprovalTBD
	}
	return ApprovalOK
}

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Finding is one validation result. Findings are data, never errors; the
// caller decides whether a given severity blocks, prompts, or just displays.
type Finding struct {
	Field    TermKey         `json:"field"`
	Message  string          `json:"message"`
	Value    decimal.Decimal `json:"value"`
	Code     string          `json:"code"`
	Severity Severity        `json:"severity" enum:"error,warning,info"`
}

type GameSession struct {
	ID          string        `json:"id"`
	GameType    GameType      `json:"game_type" enum:"valuation,trading"`
	Status      SessionStatus `json:"status" enum:"active,completed,cancelled"`
	CreatedAt   string        `json:"created_at" format:"date-time"`
	CompletedAt *string       `json:"completed_at,omitempty" format:"date-time"`
}

func (s GameSession) IsActive() bool { return s.Status == SessionActive }

// TeamValue is one (session, team, term) entry. Updates replace the row by
// its unique key; the previous value is never mutated in place.
type TeamValue struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	TeamID    TeamID          `json:"team_id"`
	TermKey   TermKey         `json:"term_key"`
	Value     decimal.Decimal `json:"value"`
	UpdatedAt string          `json:"updated_at" format:"date-time"`
}

type Approval struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	TermKey   TermKey        `json:"term_key"`
	Status    ApprovalStatus `json:"status" enum:"tbd,ok"`
	UpdatedAt string         `json:"updated_at" format:"date-time"`
}

type SubscriptionStatus string

const (
	SubscriptionFilled SubscriptionStatus = "Filled"
	SubscriptionUnder  SubscriptionStatus = "Under"
	SubscriptionOver   SubscriptionStatus = "Over"
)

// CapitalRaised is a two-variant result: either a concrete amount, or the
// oversubscribed case where shares must be allocated before capital is known.
// It is deliberately not a number with a magic placeholder.
type CapitalRaised struct {
	amount          decimal.Decimal
	needsAllocation bool
}

func RaisedAmount(amount decimal.Decimal) CapitalRaised {
	return CapitalRaised{amount: amount}
}

func AllocationNeeded() CapitalRaised {
	return CapitalRaised{needsAllocation: true}
}

func (c CapitalRaised) NeedsAllocation() bool { return c.needsAllocation }

// Amount returns the raised amount; ok is false for the allocation-needed variant.
func (c CapitalRaised) Amount() (decimal.Decimal, bool) {
	if c.needsAllocation {
		return decimal.Decimal{}, false
	}
	return c.amount, true
}

func (c CapitalRaised) String() string {
	if c.needsAllocation {
		return "Allocate"
	}
	return c.amount.String()
}

func (c CapitalRaised) MarshalJSON() ([]byte, error) {
	if c.needsAllocation {
		return json.Marshal(map[string]any{"needs_allocation": true})
	}
	return json.Marshal(map[string]any{"needs_allocation": false, "amount": c.amount})
}

type Event struct {
	ID        int64  `json:"id"`
	TS        string `json:"ts" format:"date-time"`
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	TermKey   string `json:"term_key,omitempty"`
	Payload   string `json:"payload_json"`
}
