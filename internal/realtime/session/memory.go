package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MemoryStore implements Store in process memory. It serves single-instance
// deployments, tests, and the degraded-mode fallback when Redis is away.
// TTLs are emulated by expiry timestamps checked on read.
type MemoryStore struct {
	logger      *zap.Logger
	sessionTTL  time.Duration
	presenceTTL time.Duration

	mu        sync.RWMutex
	sessions  map[string]*memEntry
	userConns map[string]map[string]struct{}
	presence  map[string]*memPresence
}

type memEntry struct {
	session   *Session
	expiresAt time.Time
}

type memPresence struct {
	record    *PresenceRecord
	expiresAt time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(logger *zap.Logger, sessionTTL, presenceTTL time.Duration) *MemoryStore {
	return &MemoryStore{
		logger:      logger.Named("session.store.memory"),
		sessionTTL:  sessionTTL,
		presenceTTL: presenceTTL,
		sessions:    make(map[string]*memEntry),
		userConns:   make(map[string]map[string]struct{}),
		presence:    make(map[string]*memPresence),
	}
}

// SaveSession implements Store.SaveSession
func (s *MemoryStore) SaveSession(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.CID] = &memEntry{session: sess, expiresAt: time.Now().Add(s.sessionTTL)}
	return nil
}

// GetSession implements Store.GetSession
func (s *MemoryStore) GetSession(_ context.Context, cid string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[cid]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, ErrSessionNotFound
	}
	return entry.session, nil
}

// UpdateSession implements Store.UpdateSession
func (s *MemoryStore) UpdateSession(_ context.Context, cid string, partial map[string]any) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[cid]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, ErrSessionNotFound
	}
	if entry.session.Data == nil {
		entry.session.Data = make(map[string]any, len(partial))
	}
	for k, v := range partial {
		entry.session.Data[k] = v
	}
	entry.expiresAt = time.Now().Add(s.sessionTTL)
	return entry.session, nil
}

// DeleteSession implements Store.DeleteSession
func (s *MemoryStore) DeleteSession(_ context.Context, cid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, cid)
	return nil
}

// TrackConnection implements Store.TrackConnection
func (s *MemoryStore) TrackConnection(_ context.Context, cid, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conns, ok := s.userConns[userID]
	if !ok {
		conns = make(map[string]struct{})
		s.userConns[userID] = conns
	}
	conns[cid] = struct{}{}
	return nil
}

// UntrackConnection implements Store.UntrackConnection
func (s *MemoryStore) UntrackConnection(_ context.Context, cid, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if userID == "" {
		entry, ok := s.sessions[cid]
		if !ok {
			return 0, nil
		}
		userID = entry.session.UserID
		if userID == "" {
			return 0, nil
		}
	}

	conns, ok := s.userConns[userID]
	if !ok {
		return 0, nil
	}
	delete(conns, cid)
	if len(conns) == 0 {
		delete(s.userConns, userID)
		return 0, nil
	}
	return len(conns), nil
}

// Connections implements Store.Connections
func (s *MemoryStore) Connections(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conns := s.userConns[userID]
	out := make([]string, 0, len(conns))
	for cid := range conns {
		out = append(out, cid)
	}
	return out, nil
}

// SetPresence implements Store.SetPresence
func (s *MemoryStore) SetPresence(_ context.Context, record *PresenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presence[record.UserID] = &memPresence{
		record:    record,
		expiresAt: time.Now().Add(s.presenceTTL),
	}
	return nil
}

// GetPresence implements Store.GetPresence
func (s *MemoryStore) GetPresence(_ context.Context, userID string) (*PresenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.presenceLocked(userID), nil
}

// GetPresenceBatch implements Store.GetPresenceBatch
func (s *MemoryStore) GetPresenceBatch(_ context.Context, userIDs []string) (map[string]*PresenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]*PresenceRecord, len(userIDs))
	for _, uid := range userIDs {
		result[uid] = s.presenceLocked(uid)
	}
	return result, nil
}

func (s *MemoryStore) presenceLocked(userID string) *PresenceRecord {
	entry, ok := s.presence[userID]
	if !ok || time.Now().After(entry.expiresAt) {
		return OfflineRecord(userID)
	}
	return entry.record
}

// ClearPresence implements Store.ClearPresence
func (s *MemoryStore) ClearPresence(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.presence, userID)
	return nil
}

// SessionExists implements Store.SessionExists
func (s *MemoryStore) SessionExists(_ context.Context, cid string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[cid]
	return ok && time.Now().Before(entry.expiresAt), nil
}

// Close implements Store.Close
func (s *MemoryStore) Close() error {
	return nil
}
