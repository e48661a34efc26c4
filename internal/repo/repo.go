package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"dealroom/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func scanSession(row *sql.Row) (domain.GameSession, error) {
	var s domain.GameSession
	var completedAt sql.NullString
	err := row.Scan(&s.ID, &s.GameType, &s.Status, &s.CreatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	if completedAt.Valid {
		s.CompletedAt = &completedAt.String
	}
	return s, err
}

func (r Repo) InsertSessionTx(ctx context.Context, tx *sql.Tx, s domain.GameSession) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO game_sessions(id,game_type,status,created_at,completed_at) VALUES (?,?,?,?,?)`,
		s.ID, s.GameType, s.Status, s.CreatedAt, s.CompletedAt)
	return err
}

func (r Repo) GetSession(ctx context.Context, id string) (domain.GameSession, error) {
	return scanSession(r.DB.QueryRowContext(ctx, `SELECT id,game_type,status,created_at,completed_at FROM game_sessions WHERE id=?`, id))
}

func (r Repo) GetSessionTx(ctx context.Context, tx *sql.Tx, id string) (domain.GameSession, error) {
	return scanSession(tx.QueryRowContext(ctx, `SELECT id,game_type,status,created_at,completed_at FROM game_sessions WHERE id=?`, id))
}

func (r Repo) UpdateSessionStatusTx(ctx context.Context, tx *sql.Tx, id string, status domain.SessionStatus, completedAt *string) error {
	res, err := tx.ExecContext(ctx, `UPDATE game_sessions SET status=?, completed_at=? WHERE id=?`, status, completedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) ListActiveSessions(ctx context.Context) ([]domain.GameSession, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,game_type,status,created_at,completed_at FROM game_sessions WHERE status=? ORDER BY created_at DESC`, domain.SessionActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.GameSession
	for rows.Next() {
		var s domain.GameSession
		var completedAt sql.NullString
		if err := rows.Scan(&s.ID, &s.GameType, &s.Status, &s.CreatedAt, &completedAt); err != nil {
			return nil, err
		}
		if completedAt.Valid {
			s.CompletedAt = &completedAt.String
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// UpsertTeamValueTx replaces the (session, team, term) row; the previous
// value is overwritten by key, never edited in place.
func (r Repo) UpsertTeamValueTx(ctx context.Context, tx *sql.Tx, v domain.TeamValue) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO team_values(id,session_id,team_id,term_key,value,updated_at) VALUES (?,?,?,?,?,?)
		ON CONFLICT(session_id,team_id,term_key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		v.ID, v.SessionID, int(v.TeamID), v.TermKey, v.Value.String(), v.UpdatedAt)
	return err
}

func (r Repo) GetTeamValue(ctx context.Context, sessionID string, team domain.TeamID, key domain.TermKey) (decimal.Decimal, error) {
	var raw string
	err := r.DB.QueryRowContext(ctx, `SELECT value FROM team_values WHERE session_id=? AND team_id=? AND term_key=?`,
		sessionID, int(team), key).Scan(&raw)
	if err == sql.ErrNoRows {
		return decimal.Decimal{}, ErrNotFound
	}
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(raw)
}

func scanTeamValues(rows *sql.Rows) (map[domain.TermKey]decimal.Decimal, error) {
	defer rows.Close()
	values := make(map[domain.TermKey]decimal.Decimal)
	for rows.Next() {
		var key domain.TermKey
		var raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, err
		}
		values[key] = v
	}
	return values, rows.Err()
}

// GetTeamValues returns the team's full term map; empty map when the team
// has not submitted anything yet.
func (r Repo) GetTeamValues(ctx context.Context, sessionID string, team domain.TeamID) (map[domain.TermKey]decimal.Decimal, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT term_key,value FROM team_values WHERE session_id=? AND team_id=?`, sessionID, int(team))
	if err != nil {
		return nil, err
	}
	return scanTeamValues(rows)
}

func (r Repo) GetTeamValuesTx(ctx context.Context, tx *sql.Tx, sessionID string, team domain.TeamID) (map[domain.TermKey]decimal.Decimal, error) {
	rows, err := tx.QueryContext(ctx, `SELECT term_key,value FROM team_values WHERE session_id=? AND team_id=?`, sessionID, int(team))
	if err != nil {
		return nil, err
	}
	return scanTeamValues(rows)
}

func scanApproval(row *sql.Row) (domain.Approval, error) {
	var a domain.Approval
	err := row.Scan(&a.ID, &a.SessionID, &a.TermKey, &a.Status, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	return a, err
}

func (r Repo) UpsertApprovalTx(ctx context.Context, tx *sql.Tx, a domain.Approval) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO approval_status(id,session_id,term_key,status,updated_at) VALUES (?,?,?,?,?)
		ON CONFLICT(session_id,term_key) DO UPDATE SET status=excluded.status, updated_at=excluded.updated_at`,
		a.ID, a.SessionID, a.TermKey, a.Status, a.UpdatedAt)
	return err
}

func (r Repo) GetApproval(ctx context.Context, sessionID string, key domain.TermKey) (domain.Approval, error) {
	return scanApproval(r.DB.QueryRowContext(ctx, `SELECT id,session_id,term_key,status,updated_at FROM approval_status WHERE session_id=? AND term_key=?`, sessionID, key))
}

func (r Repo) GetApprovalTx(ctx context.Context, tx *sql.Tx, sessionID string, key domain.TermKey) (domain.Approval, error) {
	return scanApproval(tx.QueryRowContext(ctx, `SELECT id,session_id,term_key,status,updated_at FROM approval_status WHERE session_id=? AND term_key=?`, sessionID, key))
}

func (r Repo) ListApprovals(ctx context.Context, sessionID string) ([]domain.Approval, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,session_id,term_key,status,updated_at FROM approval_status WHERE session_id=? ORDER BY term_key`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Approval
	for rows.Next() {
		var a domain.Approval
		if err := rows.Scan(&a.ID, &a.SessionID, &a.TermKey, &a.Status, &a.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// ListEvents returns the most recent audit events, newest first.
func (r Repo) ListEvents(ctx context.Context, sessionID string, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id,ts,type,COALESCE(session_id,''),COALESCE(term_key,''),payload_json FROM events`
	args := []any{}
	if sessionID != "" {
		query += ` WHERE session_id=?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.SessionID, &e.TermKey, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
