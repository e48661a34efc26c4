// Package notify is the fire-and-forget change channel for external
// observers. Publish failures are logged and swallowed: notification is
// best-effort signaling, never part of the write's consistency.
package notify

import (
	"context"

	"github.com/shopspring/decimal"

	"dealroom/internal/domain"
)

// Session lifecycle event names published on the status channel.
const (
	EventSessionCreated   = "session_created"
	EventRoundFinalized   = "round_finalized"
	EventSessionCompleted = "session_completed"
	EventSessionCancelled = "session_cancelled"
)

type Notifier interface {
	ValueChanged(ctx context.Context, sessionID string, team domain.TeamID, key domain.TermKey, value decimal.Decimal)
	ApprovalChanged(ctx context.Context, sessionID string, key domain.TermKey, status domain.ApprovalStatus)
	SessionStatusChanged(ctx context.Context, sessionID string, event string)
	Close() error
}

// Noop is the default notifier when no Redis URL is configured.
type Noop struct{}

func (Noop) ValueChanged(context.Context, string, domain.TeamID, domain.TermKey, decimal.Decimal) {}
func (Noop) ApprovalChanged(context.Context, string, domain.TermKey, domain.ApprovalStatus)       {}
func (Noop) SessionStatusChanged(context.Context, string, string)                                 {}
func (Noop) Close() error                                                                         { return nil }
