package redis

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"ops-analytics/internal/storage"
)

// DefaultPrefix namespaces alert view-state keys.
const DefaultPrefix = "ops:alerts:"

// AlertStateStore implements storage.AlertStateStore with two Redis sets,
// <prefix>read and <prefix>expanded, holding alert ids.
type AlertStateStore struct {
	client redis.UniversalClient
	prefix string
}

// NewAlertStateStore creates a store. An empty prefix means DefaultPrefix.
func NewAlertStateStore(client redis.UniversalClient, prefix string) *AlertStateStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &AlertStateStore{client: client, prefix: prefix}
}

// Compile-time interface check.
var _ storage.AlertStateStore = (*AlertStateStore)(nil)

func (s *AlertStateStore) readKey() string     { return s.prefix + "read" }
func (s *AlertStateStore) expandedKey() string { return s.prefix + "expanded" }

// MarkRead adds ids to the read set.
func (s *AlertStateStore) MarkRead(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.client.SAdd(ctx, s.readKey(), toAny(ids)...).Err(); err != nil {
		return fmt.Errorf("mark alerts read: %w", err)
	}
	return nil
}

// MarkUnread removes ids from the read set.
func (s *AlertStateStore) MarkUnread(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.client.SRem(ctx, s.readKey(), toAny(ids)...).Err(); err != nil {
		return fmt.Errorf("mark alerts unread: %w", err)
	}
	return nil
}

// SetExpanded records whether an alert is expanded.
func (s *AlertStateStore) SetExpanded(ctx context.Context, id string, expanded bool) error {
	var err error
	if expanded {
		err = s.client.SAdd(ctx, s.expandedKey(), id).Err()
	} else {
		err = s.client.SRem(ctx, s.expandedKey(), id).Err()
	}
	if err != nil {
		return fmt.Errorf("set alert expanded: %w", err)
	}
	return nil
}

// State returns the read and expanded sets.
func (s *AlertStateStore) State(ctx context.Context) (map[string]bool, map[string]bool, error) {
	var readCmd, expandedCmd *redis.StringSliceCmd
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		readCmd = p.SMembers(ctx, s.readKey())
		expandedCmd = p.SMembers(ctx, s.expandedKey())
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("load alert state: %w", err)
	}

	return toSet(readCmd.Val()), toSet(expandedCmd.Val()), nil
}

// Retain drops view state for ids not in live. It intersects both sets with a
// scratch set inside one MULTI/EXEC.
func (s *AlertStateStore) Retain(ctx context.Context, live []string) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if len(live) == 0 {
			p.Del(ctx, s.readKey(), s.expandedKey())
			return nil
		}

		scratch := s.prefix + "live:" + uuid.NewString()
		p.SAdd(ctx, scratch, toAny(live)...)
		p.SInterStore(ctx, s.readKey(), s.readKey(), scratch)
		p.SInterStore(ctx, s.expandedKey(), s.expandedKey(), scratch)
		p.Del(ctx, scratch)
		return nil
	})
	if err != nil {
		return fmt.Errorf("retain alert state: %w", err)
	}
	return nil
}

func toAny(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func toSet(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}
