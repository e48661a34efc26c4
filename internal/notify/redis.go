package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"dealroom/internal/domain"
)

const publishTimeout = 2 * time.Second

// Redis publishes session changes on per-session channels:
// session:{id}:team_data, session:{id}:approvals, session:{id}:status.
type Redis struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedis(url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Redis{client: redis.NewClient(opts), now: time.Now}, nil
}

func (r *Redis) publish(ctx context.Context, channel string, message map[string]any) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("notify: marshal %s: %v", channel, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := r.client.Publish(ctx, channel, data).Err(); err != nil {
		log.Printf("notify: publish %s: %v", channel, err)
	}
}

func (r *Redis) ValueChanged(ctx context.Context, sessionID string, team domain.TeamID, key domain.TermKey, value decimal.Decimal) {
	r.publish(ctx, fmt.Sprintf("session:%s:team_data", sessionID), map[string]any{
		"type":      "team_data_update",
		"team_id":   int(team),
		"term_key":  string(key),
		"value":     value.String(),
		"timestamp": r.now().UTC().Format(time.RFC3339),
	})
}

func (r *Redis) ApprovalChanged(ctx context.Context, sessionID string, key domain.TermKey, status domain.ApprovalStatus) {
	r.publish(ctx, fmt.Sprintf("session:%s:approvals", sessionID), map[string]any{
		"type":      "approval_update",
		"term_key":  string(key),
		"status":    string(status),
		"timestamp": r.now().UTC().Format(time.RFC3339),
	})
}

func (r *Redis) SessionStatusChanged(ctx context.Context, sessionID string, event string) {
	r.publish(ctx, fmt.Sprintf("session:%s:status", sessionID), map[string]any{
		"type":      event,
		"timestamp": r.now().UTC().Format(time.RFC3339),
	})
}

func (r *Redis) Close() error {
	return r.client.Close()
}
