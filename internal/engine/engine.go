package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"dealroom/internal/domain"
	"dealroom/internal/events"
	"dealroom/internal/games"
	"dealroom/internal/notify"
	"dealroom/internal/repo"
	"dealroom/internal/valuation"
)

// Domain precondition violations surfaced to callers. Not-found reads come
// back as repo.ErrNotFound instead.
var (
	ErrSessionNotActive = errors.New("session is not active")
	ErrSessionCompleted = errors.New("session is already completed")
	ErrInvalidTeam      = errors.New("team must be 1 or 2")
	ErrTermNotInGame    = errors.New("term does not belong to this game")
	ErrNotTradingGame   = errors.New("operation applies to the trading game only")
	ErrRoundFinalized   = errors.New("round already finalized")
	ErrInputsIncomplete = errors.New("not all input data has been entered, finalization impossible")
)

// Engine coordinates session writes. Every mutating operation runs inside a
// single transaction; notifications go out only after commit.
type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Notify notify.Notifier
	Now    func() time.Time
}

func New(db *sql.DB) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Notify: notify.Noop{},
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) nowRFC3339() string {
	return e.now().UTC().Format(time.RFC3339)
}

// CreateSession starts a new active session. An empty id gets a generated one.
func (e Engine) CreateSession(ctx context.Context, id string, gameType domain.GameType) (domain.GameSession, error) {
	if _, err := games.Get(gameType); err != nil {
		return domain.GameSession{}, err
	}
	if id == "" {
		id = uuid.NewString()
	}
	s := domain.GameSession{
		ID:        id,
		GameType:  gameType,
		Status:    domain.SessionActive,
		CreatedAt: e.nowRFC3339(),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.GameSession{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertSessionTx(ctx, tx, s); err != nil {
		return domain.GameSession{}, fmt.Errorf("insert session: %w", err)
	}
	if err := e.Events.Append(ctx, tx, events.TypeSessionCreated, s.ID, "", events.EventPayload{"game_type": string(gameType)}); err != nil {
		return domain.GameSession{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.GameSession{}, err
	}
	e.Notify.SessionStatusChanged(ctx, s.ID, notify.EventSessionCreated)
	return s, nil
}

func (e Engine) GetSession(ctx context.Context, id string) (domain.GameSession, error) {
	return e.Repo.GetSession(ctx, id)
}

func (e Engine) ListActiveSessions(ctx context.Context) ([]domain.GameSession, error) {
	return e.Repo.ListActiveSessions(ctx)
}

// SetTeamValue upserts a term value and unconditionally resets that term's
// approval to TBD in the same transaction. No value may remain approved
// after being changed; that coupling is the core invariant here.
func (e Engine) SetTeamValue(ctx context.Context, sessionID string, team domain.TeamID, key domain.TermKey, value decimal.Decimal) error {
	if !team.Valid() {
		return ErrInvalidTeam
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	s, err := e.Repo.GetSessionTx(ctx, tx, sessionID)
	if err != nil {
		return err
	}
	if !s.IsActive() {
		return ErrSessionNotActive
	}
	ok, err := games.IsValidTerm(s.GameType, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrTermNotInGame, key)
	}

	now := e.nowRFC3339()
	if err := e.Repo.UpsertTeamValueTx(ctx, tx, domain.TeamValue{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		TeamID:    team,
		TermKey:   key,
		Value:     value,
		UpdatedAt: now,
	}); err != nil {
		return fmt.Errorf("upsert team value: %w", err)
	}

	approval, err := e.Repo.GetApprovalTx(ctx, tx, sessionID, key)
	if errors.Is(err, repo.ErrNotFound) {
		approval = domain.Approval{ID: uuid.NewString(), SessionID: sessionID, TermKey: key}
	} else if err != nil {
		return err
	}
	approval.Status = domain.ApprovalTBD
	approval.UpdatedAt = now
	if err := e.Repo.UpsertApprovalTx(ctx, tx, approval); err != nil {
		return fmt.Errorf("reset approval: %w", err)
	}

	if err := e.Events.Append(ctx, tx, events.TypeValueUpdated, sessionID, string(key), events.EventPayload{
		"team_id": int(team),
		"value":   value.String(),
	}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.Notify.ValueChanged(ctx, sessionID, team, key, value)
	e.Notify.ApprovalChanged(ctx, sessionID, key, domain.ApprovalTBD)
	return nil
}

// ToggleApproval flips a term's approval between TBD and OK. A term with no
// approval record yet starts at TBD, so the first toggle yields OK.
func (e Engine) ToggleApproval(ctx context.Context, sessionID string, key domain.TermKey) (domain.ApprovalStatus, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	s, err := e.Repo.GetSessionTx(ctx, tx, sessionID)
	if err != nil {
		return "", err
	}
	if !s.IsActive() {
		return "", ErrSessionNotActive
	}
	ok, err := games.IsValidTerm(s.GameType, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTermNotInGame, key)
	}

	approval, err := e.Repo.GetApprovalTx(ctx, tx, sessionID, key)
	if errors.Is(err, repo.ErrNotFound) {
		approval = domain.Approval{ID: uuid.NewString(), SessionID: sessionID, TermKey: key, Status: domain.ApprovalTBD}
	} else if err != nil {
		return "", err
	}
	approval.Status = approval.Status.Toggled()
	approval.UpdatedAt = e.nowRFC3339()
	if err := e.Repo.UpsertApprovalTx(ctx, tx, approval); err != nil {
		return "", fmt.Errorf("upsert approval: %w", err)
	}
	if err := e.Events.Append(ctx, tx, events.TypeApprovalToggled, sessionID, string(key), events.EventPayload{
		"status": string(approval.Status),
	}); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	e.Notify.ApprovalChanged(ctx, sessionID, key, approval.Status)
	return approval.Status, nil
}

func (e Engine) GetTeamValue(ctx context.Context, sessionID string, team domain.TeamID, key domain.TermKey) (decimal.Decimal, error) {
	if !team.Valid() {
		return decimal.Decimal{}, ErrInvalidTeam
	}
	return e.Repo.GetTeamValue(ctx, sessionID, team, key)
}

func (e Engine) GetApprovalStatus(ctx context.Context, sessionID string, key domain.TermKey) (domain.ApprovalStatus, error) {
	a, err := e.Repo.GetApproval(ctx, sessionID, key)
	if err != nil {
		return "", err
	}
	return a.Status, nil
}

type Progress struct {
	Total    int `json:"total"`
	Approved int `json:"approved"`
	Pending  int `json:"pending"`
}

// Snapshot is the aggregate session view handed to presentation callers.
type Snapshot struct {
	Session           domain.GameSession                                   `json:"session"`
	TeamValues        map[domain.TeamID]map[domain.TermKey]decimal.Decimal `json:"team_values"`
	Approvals         map[domain.TermKey]domain.ApprovalStatus             `json:"approvals"`
	Valuation         *decimal.Decimal                                     `json:"valuation,omitempty"`
	IsComplete        bool                                                 `json:"is_complete"`
	Progress          Progress                                             `json:"progress"`
	CompletionMessage string                                               `json:"completion_message,omitempty"`
}

// SessionSnapshot assembles the session, both teams' values, all approvals,
// the computed valuation (single-formula game only), the completion flag,
// and approval progress.
func (e Engine) SessionSnapshot(ctx context.Context, sessionID string) (Snapshot, error) {
	s, err := e.Repo.GetSession(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	def, err := games.Get(s.GameType)
	if err != nil {
		return Snapshot{}, err
	}

	teamValues := make(map[domain.TeamID]map[domain.TermKey]decimal.Decimal, 2)
	for _, team := range []domain.TeamID{domain.TeamOne, domain.TeamTwo} {
		values, err := e.Repo.GetTeamValues(ctx, sessionID, team)
		if err != nil {
			return Snapshot{}, err
		}
		if len(values) > 0 {
			teamValues[team] = values
		}
	}

	approvalList, err := e.Repo.ListApprovals(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	approvals := make(map[domain.TermKey]domain.ApprovalStatus, len(approvalList))
	for _, a := range approvalList {
		approvals[a.TermKey] = a.Status
	}

	snap := Snapshot{
		Session:    s,
		TeamValues: teamValues,
		Approvals:  approvals,
	}

	if s.GameType == domain.GameValuation {
		snap.Valuation = computeValuation(def, teamValues[domain.TeamOne], approvals)
	}

	snap.IsComplete = isComplete(def, approvals)
	if snap.IsComplete {
		snap.CompletionMessage = def.Metadata.CompletionMessage
	}

	approved := 0
	for _, status := range approvals {
		if status == domain.ApprovalOK {
			approved++
		}
	}
	total := len(def.Terms)
	snap.Progress = Progress{Total: total, Approved: approved, Pending: total - approved}
	return snap, nil
}

// computeValuation returns the formula result only when every required term
// is approved and Team 1 has entered all of them. The interest rate is part
// of the gate but not the formula.
func computeValuation(def games.Definition, team1 map[domain.TermKey]decimal.Decimal, approvals map[domain.TermKey]domain.ApprovalStatus) *decimal.Decimal {
	for _, key := range def.Terms {
		if approvals[key] != domain.ApprovalOK {
			return nil
		}
		if _, ok := team1[key]; !ok {
			return nil
		}
	}
	v := valuation.Game1Valuation(team1[domain.TermEBITDA], team1[domain.TermMultiple], team1[domain.TermFactorScore])
	return &v
}

// isComplete checks the game's completion terms only. For the trading game
// those are the three deal-approval terms, not the fifteen inputs; the
// inputs were already gated by finalization.
func isComplete(def games.Definition, approvals map[domain.TermKey]domain.ApprovalStatus) bool {
	for _, key := range def.CompletionTerms() {
		if approvals[key] != domain.ApprovalOK {
			return false
		}
	}
	return true
}

// FinalizeRound creates the trading game's three deal-approval terms at TBD
// once every pricing and bid input is present. It refuses to run twice.
func (e Engine) FinalizeRound(ctx context.Context, sessionID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	s, err := e.Repo.GetSessionTx(ctx, tx, sessionID)
	if err != nil {
		return err
	}
	if s.GameType != domain.GameTrading {
		return ErrNotTradingGame
	}
	if !s.IsActive() {
		return ErrSessionNotActive
	}

	team1, err := e.Repo.GetTeamValuesTx(ctx, tx, sessionID, domain.TeamOne)
	if err != nil {
		return err
	}
	team2, err := e.Repo.GetTeamValuesTx(ctx, tx, sessionID, domain.TeamTwo)
	if err != nil {
		return err
	}
	for _, key := range games.PricingInputTerms {
		if _, ok := team1[key]; !ok {
			return ErrInputsIncomplete
		}
	}
	for _, key := range games.BidInputTerms {
		if _, ok := team2[key]; !ok {
			return ErrInputsIncomplete
		}
	}

	if _, err := e.Repo.GetApprovalTx(ctx, tx, sessionID, domain.TermCompany1DealApproval); err == nil {
		return ErrRoundFinalized
	} else if !errors.Is(err, repo.ErrNotFound) {
		return err
	}

	now := e.nowRFC3339()
	for _, key := range games.DealApprovalTerms {
		if err := e.Repo.UpsertApprovalTx(ctx, tx, domain.Approval{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			TermKey:   key,
			Status:    domain.ApprovalTBD,
			UpdatedAt: now,
		}); err != nil {
			return fmt.Errorf("create deal approval %s: %w", key, err)
		}
	}
	if err := e.Events.Append(ctx, tx, events.TypeRoundFinalized, sessionID, "", nil); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	for _, key := range games.DealApprovalTerms {
		e.Notify.ApprovalChanged(ctx, sessionID, key, domain.ApprovalTBD)
	}
	e.Notify.SessionStatusChanged(ctx, sessionID, notify.EventRoundFinalized)
	return nil
}

// RoundSummary computes the trading game's bid analytics from both teams'
// current values.
func (e Engine) RoundSummary(ctx context.Context, sessionID string) (valuation.Summary, error) {
	s, err := e.Repo.GetSession(ctx, sessionID)
	if err != nil {
		return valuation.Summary{}, err
	}
	if s.GameType != domain.GameTrading {
		return valuation.Summary{}, ErrNotTradingGame
	}
	team1, err := e.Repo.GetTeamValues(ctx, sessionID, domain.TeamOne)
	if err != nil {
		return valuation.Summary{}, err
	}
	team2, err := e.Repo.GetTeamValues(ctx, sessionID, domain.TeamTwo)
	if err != nil {
		return valuation.Summary{}, err
	}
	return valuation.BuildSummary(team1, team2), nil
}

// CompleteSession moves an active session to completed.
func (e Engine) CompleteSession(ctx context.Context, sessionID string) (domain.GameSession, error) {
	return e.transitionSession(ctx, sessionID, domain.SessionCompleted, events.TypeSessionCompleted, notify.EventSessionCompleted)
}

// CancelSession moves any non-completed session to cancelled.
func (e Engine) CancelSession(ctx context.Context, sessionID string) (domain.GameSession, error) {
	return e.transitionSession(ctx, sessionID, domain.SessionCancelled, events.TypeSessionCancelled, notify.EventSessionCancelled)
}

func (e Engine) transitionSession(ctx context.Context, sessionID string, target domain.SessionStatus, eventType, notifyEvent string) (domain.GameSession, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.GameSession{}, err
	}
	defer tx.Rollback()

	s, err := e.Repo.GetSessionTx(ctx, tx, sessionID)
	if err != nil {
		return domain.GameSession{}, err
	}
	if err := ensureSessionTransition(s.Status, target); err != nil {
		return domain.GameSession{}, err
	}
	now := e.nowRFC3339()
	s.Status = target
	s.CompletedAt = &now
	if err := e.Repo.UpdateSessionStatusTx(ctx, tx, sessionID, s.Status, s.CompletedAt); err != nil {
		return domain.GameSession{}, err
	}
	if err := e.Events.Append(ctx, tx, eventType, sessionID, "", nil); err != nil {
		return domain.GameSession{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.GameSession{}, err
	}
	e.Notify.SessionStatusChanged(ctx, sessionID, notifyEvent)
	return s, nil
}

// ensureSessionTransition enforces the session lifecycle: completion only
// from active, cancellation from anything not yet completed.
func ensureSessionTransition(current, target domain.SessionStatus) error {
	switch target {
	case domain.SessionCompleted:
		if current != domain.SessionActive {
			return ErrSessionNotActive
		}
	case domain.SessionCancelled:
		if current == domain.SessionCompleted {
			return ErrSessionCompleted
		}
	default:
		return fmt.Errorf("invalid target session status %q", target)
	}
	return nil
}
