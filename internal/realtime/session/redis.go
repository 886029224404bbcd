package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/labpulse/labpulse/internal/common/cnst"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore implements Store on the shared state store. The client is
// injected so one connection pool serves sessions, rooms, and the broker.
type RedisStore struct {
	logger      *zap.Logger
	client      redis.UniversalClient
	sessionTTL  time.Duration
	presenceTTL time.Duration
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(logger *zap.Logger, client redis.UniversalClient, sessionTTL, presenceTTL time.Duration) *RedisStore {
	return &RedisStore{
		logger:      logger.Named("session.store.redis"),
		client:      client,
		sessionTTL:  sessionTTL,
		presenceTTL: presenceTTL,
	}
}

func sessionKey(cid string) string     { return cnst.KeyPrefixSession + cid }
func presenceKey(userID string) string { return cnst.KeyPrefixPresence + userID }
func userConnsKey(userID string) string {
	return cnst.KeyPrefixUserConns + userID
}

// SaveSession implements Store.SaveSession
func (s *RedisStore) SaveSession(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sess.CID, err)
	}
	return s.client.Set(ctx, sessionKey(sess.CID), data, s.sessionTTL).Err()
}

// GetSession implements Store.GetSession
func (s *RedisStore) GetSession(ctx context.Context, cid string) (*Session, error) {
	data, err := s.client.Get(ctx, sessionKey(cid)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", cid, err)
	}
	return &sess, nil
}

// UpdateSession implements Store.UpdateSession. Read-modify-write without a
// lock: handlers on one connection run serially and different handlers write
// disjoint keys, so last-writer-wins is acceptable.
func (s *RedisStore) UpdateSession(ctx context.Context, cid string, partial map[string]any) (*Session, error) {
	sess, err := s.GetSession(ctx, cid)
	if err != nil {
		return nil, err
	}
	if sess.Data == nil {
		sess.Data = make(map[string]any, len(partial))
	}
	for k, v := range partial {
		sess.Data[k] = v
	}
	if err := s.SaveSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// DeleteSession implements Store.DeleteSession
func (s *RedisStore) DeleteSession(ctx context.Context, cid string) error {
	return s.client.Del(ctx, sessionKey(cid)).Err()
}

// TrackConnection implements Store.TrackConnection. The index carries the
// session TTL so it cannot outlive the sessions it points at.
func (s *RedisStore) TrackConnection(ctx context.Context, cid, userID string) error {
	key := userConnsKey(userID)
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, key, cid)
	pipe.Expire(ctx, key, s.sessionTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// UntrackConnection implements Store.UntrackConnection
func (s *RedisStore) UntrackConnection(ctx context.Context, cid, userID string) (int, error) {
	if userID == "" {
		sess, err := s.GetSession(ctx, cid)
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				// Nothing to untrack; treat as last connection already gone.
				return 0, nil
			}
			return 0, err
		}
		userID = sess.UserID
		if userID == "" {
			return 0, nil
		}
	}

	key := userConnsKey(userID)
	pipe := s.client.TxPipeline()
	pipe.SRem(ctx, key, cid)
	card := pipe.SCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return int(card.Val()), nil
}

// Connections implements Store.Connections
func (s *RedisStore) Connections(ctx context.Context, userID string) ([]string, error) {
	return s.client.SMembers(ctx, userConnsKey(userID)).Result()
}

// SetPresence implements Store.SetPresence
func (s *RedisStore) SetPresence(ctx context.Context, record *PresenceRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal presence %s: %w", record.UserID, err)
	}
	return s.client.Set(ctx, presenceKey(record.UserID), data, s.presenceTTL).Err()
}

// GetPresence implements Store.GetPresence
func (s *RedisStore) GetPresence(ctx context.Context, userID string) (*PresenceRecord, error) {
	data, err := s.client.Get(ctx, presenceKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return OfflineRecord(userID), nil
		}
		return nil, err
	}

	var record PresenceRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		s.logger.Warn("corrupt presence record, treating as offline",
			zap.String("user_id", userID),
			zap.Error(err))
		return OfflineRecord(userID), nil
	}
	return &record, nil
}

// GetPresenceBatch implements Store.GetPresenceBatch with a single pipelined
// round trip regardless of how many users are asked about.
func (s *RedisStore) GetPresenceBatch(ctx context.Context, userIDs []string) (map[string]*PresenceRecord, error) {
	result := make(map[string]*PresenceRecord, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(userIDs))
	for i, uid := range userIDs {
		cmds[i] = pipe.Get(ctx, presenceKey(uid))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	for i, uid := range userIDs {
		data, err := cmds[i].Result()
		if err != nil {
			result[uid] = OfflineRecord(uid)
			continue
		}
		var record PresenceRecord
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			result[uid] = OfflineRecord(uid)
			continue
		}
		result[uid] = &record
	}
	return result, nil
}

// ClearPresence implements Store.ClearPresence
func (s *RedisStore) ClearPresence(ctx context.Context, userID string) error {
	return s.client.Del(ctx, presenceKey(userID)).Err()
}

// SessionExists implements Store.SessionExists
func (s *RedisStore) SessionExists(ctx context.Context, cid string) (bool, error) {
	n, err := s.client.Exists(ctx, sessionKey(cid)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Close implements Store.Close. The Redis client is shared and owned by the
// caller, so nothing is closed here.
func (s *RedisStore) Close() error {
	return nil
}
