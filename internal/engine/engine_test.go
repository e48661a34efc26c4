package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dealroom/internal/db"
	"dealroom/internal/domain"
	"dealroom/internal/engine"
	"dealroom/internal/games"
	"dealroom/internal/migrate"
	"dealroom/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn)
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return v
}

func (env testEnv) mustSet(t *testing.T, sessionID string, team domain.TeamID, key domain.TermKey, value string) {
	t.Helper()
	if err := env.Engine.SetTeamValue(env.Ctx, sessionID, team, key, dec(t, value)); err != nil {
		t.Fatalf("set %s=%s: %v", key, value, err)
	}
}

func (env testEnv) mustToggle(t *testing.T, sessionID string, key domain.TermKey) {
	t.Helper()
	if _, err := env.Engine.ToggleApproval(env.Ctx, sessionID, key); err != nil {
		t.Fatalf("toggle %s: %v", key, err)
	}
}

// fillTradingInputs enters every pricing and bid input for a trading session.
func (env testEnv) fillTradingInputs(t *testing.T, sessionID string) {
	t.Helper()
	for company := 1; company <= 3; company++ {
		priceKey, sharesKey, err := games.CompanyTerms(company)
		if err != nil {
			t.Fatal(err)
		}
		env.mustSet(t, sessionID, domain.TeamOne, priceKey, "10")
		env.mustSet(t, sessionID, domain.TeamOne, sharesKey, "1000")
		for investor := 1; investor <= 3; investor++ {
			bidKey, err := games.InvestorBidTerm(investor, company)
			if err != nil {
				t.Fatal(err)
			}
			env.mustSet(t, sessionID, domain.TeamTwo, bidKey, "100")
		}
	}
}

func TestCreateSessionRejectsUnknownGame(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.CreateSession(env.Ctx, "", domain.GameType("poker")); err == nil {
		t.Fatalf("expected unknown game error")
	}
}

func TestValueUpdateResetsApproval(t *testing.T) {
	env := newTestEnv(t)
	s, err := env.Engine.CreateSession(env.Ctx, "s1", domain.GameValuation)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	env.mustSet(t, s.ID, domain.TeamOne, domain.TermEBITDA, "1000000")
	env.mustToggle(t, s.ID, domain.TermEBITDA)

	status, err := env.Engine.GetApprovalStatus(env.Ctx, s.ID, domain.TermEBITDA)
	if err != nil || status != domain.ApprovalOK {
		t.Fatalf("expected ok after toggle, got %q err %v", status, err)
	}

	// re-submitting the value must invalidate the prior sign-off
	env.mustSet(t, s.ID, domain.TeamOne, domain.TermEBITDA, "2000000")
	status, err = env.Engine.GetApprovalStatus(env.Ctx, s.ID, domain.TermEBITDA)
	if err != nil || status != domain.ApprovalTBD {
		t.Fatalf("expected tbd after value change, got %q err %v", status, err)
	}
}

func TestToggleApprovalIdempotentPair(t *testing.T) {
	env := newTestEnv(t)
	s, _ := env.Engine.CreateSession(env.Ctx, "s1", domain.GameValuation)
	env.mustSet(t, s.ID, domain.TeamOne, domain.TermMultiple, "5.0")

	// first toggle on a fresh approval always approves
	status, err := env.Engine.ToggleApproval(env.Ctx, s.ID, domain.TermMultiple)
	if err != nil || status != domain.ApprovalOK {
		t.Fatalf("first toggle: got %q err %v", status, err)
	}
	status, err = env.Engine.ToggleApproval(env.Ctx, s.ID, domain.TermMultiple)
	if err != nil || status != domain.ApprovalTBD {
		t.Fatalf("second toggle: got %q err %v", status, err)
	}
}

func TestToggleRejectsTermOutsideGame(t *testing.T) {
	env := newTestEnv(t)
	s, _ := env.Engine.CreateSession(env.Ctx, "s1", domain.GameValuation)
	if _, err := env.Engine.ToggleApproval(env.Ctx, s.ID, domain.TermCompany1Price); !errors.Is(err, engine.ErrTermNotInGame) {
		t.Fatalf("expected ErrTermNotInGame, got %v", err)
	}
}

func TestValuationRequiresAllApprovals(t *testing.T) {
	env := newTestEnv(t)
	s, _ := env.Engine.CreateSession(env.Ctx, "s1", domain.GameValuation)
	env.mustSet(t, s.ID, domain.TeamOne, domain.TermEBITDA, "1000000")
	env.mustSet(t, s.ID, domain.TeamOne, domain.TermInterestRate, "5.5")
	env.mustSet(t, s.ID, domain.TeamOne, domain.TermMultiple, "5.0")
	env.mustSet(t, s.ID, domain.TeamOne, domain.TermFactorScore, "1.1")

	env.mustToggle(t, s.ID, domain.TermEBITDA)
	env.mustToggle(t, s.ID, domain.TermInterestRate)
	env.mustToggle(t, s.ID, domain.TermMultiple)

	snap, err := env.Engine.SessionSnapshot(env.Ctx, s.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Valuation != nil {
		t.Fatalf("expected nil valuation with one term pending, got %s", snap.Valuation)
	}
	if snap.IsComplete {
		t.Fatalf("expected incomplete session")
	}

	env.mustToggle(t, s.ID, domain.TermFactorScore)
	snap, err = env.Engine.SessionSnapshot(env.Ctx, s.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Valuation == nil {
		t.Fatalf("expected valuation once all terms approved")
	}
	if want := dec(t, "5500000"); !snap.Valuation.Equal(want) {
		t.Fatalf("valuation = %s, want %s", snap.Valuation, want)
	}
	if !snap.IsComplete {
		t.Fatalf("expected complete session")
	}
	if snap.Progress.Approved != 4 || snap.Progress.Total != 4 {
		t.Fatalf("progress = %+v", snap.Progress)
	}
}

func TestFinalizeRequiresAllInputs(t *testing.T) {
	env := newTestEnv(t)
	s, _ := env.Engine.CreateSession(env.Ctx, "s1", domain.GameTrading)
	env.mustSet(t, s.ID, domain.TeamOne, domain.TermCompany1Price, "10")

	if err := env.Engine.FinalizeRound(env.Ctx, s.ID); !errors.Is(err, engine.ErrInputsIncomplete) {
		t.Fatalf("expected ErrInputsIncomplete, got %v", err)
	}

	env.fillTradingInputs(t, s.ID)
	if err := env.Engine.FinalizeRound(env.Ctx, s.ID); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	// running it again is a domain error, not a silent no-op
	if err := env.Engine.FinalizeRound(env.Ctx, s.ID); !errors.Is(err, engine.ErrRoundFinalized) {
		t.Fatalf("expected ErrRoundFinalized, got %v", err)
	}
}

func TestFinalizeRejectsValuationGame(t *testing.T) {
	env := newTestEnv(t)
	s, _ := env.Engine.CreateSession(env.Ctx, "s1", domain.GameValuation)
	if err := env.Engine.FinalizeRound(env.Ctx, s.ID); !errors.Is(err, engine.ErrNotTradingGame) {
		t.Fatalf("expected ErrNotTradingGame, got %v", err)
	}
}

func TestTradingCompletionDependsOnlyOnDealApprovals(t *testing.T) {
	env := newTestEnv(t)
	s, _ := env.Engine.CreateSession(env.Ctx, "s1", domain.GameTrading)
	env.fillTradingInputs(t, s.ID)

	// approve every input term; without finalization that is still incomplete
	for _, key := range append(append([]domain.TermKey{}, games.PricingInputTerms...), games.BidInputTerms...) {
		env.mustToggle(t, s.ID, key)
	}
	snap, err := env.Engine.SessionSnapshot(env.Ctx, s.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.IsComplete {
		t.Fatalf("expected incomplete before finalization")
	}

	if err := env.Engine.FinalizeRound(env.Ctx, s.ID); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	for _, key := range games.DealApprovalTerms {
		env.mustToggle(t, s.ID, key)
	}
	snap, err = env.Engine.SessionSnapshot(env.Ctx, s.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !snap.IsComplete {
		t.Fatalf("expected complete after deal approvals")
	}
	if snap.Valuation != nil {
		t.Fatalf("trading game must not compute a valuation")
	}
}

func TestRoundSummaryCapitalRaised(t *testing.T) {
	env := newTestEnv(t)
	s, _ := env.Engine.CreateSession(env.Ctx, "s1", domain.GameTrading)
	env.fillTradingInputs(t, s.ID)

	// company1 undersubscribed: bids 800 of 1000 at price 10
	env.mustSet(t, s.ID, domain.TeamTwo, domain.TermInvestor1BidC1, "300")
	env.mustSet(t, s.ID, domain.TeamTwo, domain.TermInvestor2BidC1, "300")
	env.mustSet(t, s.ID, domain.TeamTwo, domain.TermInvestor3BidC1, "200")
	// company2 oversubscribed: bids 1200 of 1000
	env.mustSet(t, s.ID, domain.TeamTwo, domain.TermInvestor1BidC2, "400")
	env.mustSet(t, s.ID, domain.TeamTwo, domain.TermInvestor2BidC2, "400")
	env.mustSet(t, s.ID, domain.TeamTwo, domain.TermInvestor3BidC2, "400")

	summary, err := env.Engine.RoundSummary(env.Ctx, s.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	c1 := summary.Companies[0]
	amount, ok := c1.CapitalRaised.Amount()
	if !ok {
		t.Fatalf("company1 should have a numeric amount")
	}
	// raised capital is price x total bids, not price x available shares
	if want := dec(t, "8000"); !amount.Equal(want) {
		t.Fatalf("company1 capital = %s, want %s", amount, want)
	}
	if c1.Subscription != domain.SubscriptionUnder {
		t.Fatalf("company1 subscription = %s", c1.Subscription)
	}

	c2 := summary.Companies[1]
	if !c2.CapitalRaised.NeedsAllocation() {
		t.Fatalf("company2 should need allocation")
	}
	if c2.Subscription != domain.SubscriptionOver {
		t.Fatalf("company2 subscription = %s", c2.Subscription)
	}
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	s, _ := env.Engine.CreateSession(env.Ctx, "s1", domain.GameValuation)

	done, err := env.Engine.CompleteSession(env.Ctx, s.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != domain.SessionCompleted || done.CompletedAt == nil {
		t.Fatalf("unexpected session after complete: %+v", done)
	}
	// a completed session can be neither completed again nor cancelled
	if _, err := env.Engine.CompleteSession(env.Ctx, s.ID); !errors.Is(err, engine.ErrSessionNotActive) {
		t.Fatalf("expected ErrSessionNotActive, got %v", err)
	}
	if _, err := env.Engine.CancelSession(env.Ctx, s.ID); !errors.Is(err, engine.ErrSessionCompleted) {
		t.Fatalf("expected ErrSessionCompleted, got %v", err)
	}
	// writes are rejected once the session left active
	err = env.Engine.SetTeamValue(env.Ctx, s.ID, domain.TeamOne, domain.TermEBITDA, dec(t, "1"))
	if !errors.Is(err, engine.ErrSessionNotActive) {
		t.Fatalf("expected ErrSessionNotActive on write, got %v", err)
	}

	s2, _ := env.Engine.CreateSession(env.Ctx, "s2", domain.GameTrading)
	cancelled, err := env.Engine.CancelSession(env.Ctx, s2.ID)
	if err != nil || cancelled.Status != domain.SessionCancelled {
		t.Fatalf("cancel: %+v err %v", cancelled, err)
	}

	active, err := env.Engine.ListActiveSessions(env.Ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected no active sessions, got %d", len(active))
	}
}

func TestLookupsOnMissingSession(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.GetSession(env.Ctx, "nope"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := env.Engine.GetApprovalStatus(env.Ctx, "nope", domain.TermEBITDA); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := env.Engine.GetTeamValue(env.Ctx, "nope", domain.TeamOne, domain.TermEBITDA); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEventAppendOnStateChanges(t *testing.T) {
	env := newTestEnv(t)
	s, _ := env.Engine.CreateSession(env.Ctx, "s1", domain.GameValuation)
	env.mustSet(t, s.ID, domain.TeamOne, domain.TermEBITDA, "1000000")
	env.mustToggle(t, s.ID, domain.TermEBITDA)
	if _, err := env.Engine.CompleteSession(env.Ctx, s.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	evts, err := env.Engine.Repo.ListEvents(env.Ctx, s.ID, 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(evts) < 4 {
		t.Fatalf("expected create/update/toggle/complete events, got %d", len(evts))
	}
}
