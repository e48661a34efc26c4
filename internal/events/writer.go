package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Event types appended by the engine.
const (
	TypeSessionCreated   = "session.created"
	TypeValueUpdated     = "value.updated"
	TypeApprovalToggled  = "approval.toggled"
	TypeRoundFinalized   = "round.finalized"
	TypeSessionCompleted = "session.completed"
	TypeSessionCancelled = "session.cancelled"
)

// Writer appends audit events inside the caller's transaction so the event
// commits or rolls back with the mutation it records.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type EventPayload map[string]any

func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, sessionID, termKey string, payload EventPayload) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,type,session_id,term_key,payload_json) VALUES (?,?,?,?,?)`,
		ts, evtType, nullable(sessionID), nullable(termKey), string(data))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
