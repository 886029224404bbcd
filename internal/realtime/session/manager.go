package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager is the store facade the rest of the core talks to. Every store
// failure is absorbed here: logged at warn with a correlation id, then
// degraded to an in-process fallback so a Redis outage never crashes the
// connection-handling path. The fallback only sees this instance's own
// connections; cross-instance visibility returns when the store does.
type Manager struct {
	logger   *zap.Logger
	primary  Store
	fallback *MemoryStore
}

func NewManager(logger *zap.Logger, primary Store, sessionTTL, presenceTTL time.Duration) *Manager {
	return &Manager{
		logger:   logger.Named("session.manager"),
		primary:  primary,
		fallback: NewMemoryStore(logger, sessionTTL, presenceTTL),
	}
}

func (m *Manager) warnDegraded(op string, err error) string {
	correlationID := uuid.NewString()
	m.logger.Warn("session store unavailable, degrading to process-local state",
		zap.String("op", op),
		zap.String("correlation_id", correlationID),
		zap.Error(err))
	return correlationID
}

// SaveSession upserts the connection's session blob. Never returns a store
// outage to the caller; the session continues process-locally.
func (m *Manager) SaveSession(ctx context.Context, sess *Session) error {
	if err := m.primary.SaveSession(ctx, sess); err != nil {
		m.warnDegraded("save_session", err)
		return m.fallback.SaveSession(ctx, sess)
	}
	// Mirror into the fallback so degraded reads still see it.
	_ = m.fallback.SaveSession(ctx, sess)
	return nil
}

// GetSession resolves the blob, preferring the shared store.
func (m *Manager) GetSession(ctx context.Context, cid string) (*Session, error) {
	sess, err := m.primary.GetSession(ctx, cid)
	if err == nil {
		return sess, nil
	}
	if errors.Is(err, ErrSessionNotFound) {
		return m.fallback.GetSession(ctx, cid)
	}
	m.warnDegraded("get_session", err)
	return m.fallback.GetSession(ctx, cid)
}

// UpdateSession merges partial into the session's data bag.
func (m *Manager) UpdateSession(ctx context.Context, cid string, partial map[string]any) (*Session, error) {
	sess, err := m.primary.UpdateSession(ctx, cid, partial)
	if err == nil {
		_ = m.fallback.SaveSession(ctx, sess)
		return sess, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		m.warnDegraded("update_session", err)
	}
	return m.fallback.UpdateSession(ctx, cid, partial)
}

// DeleteSession removes the blob everywhere. Best effort.
func (m *Manager) DeleteSession(ctx context.Context, cid string) {
	if err := m.primary.DeleteSession(ctx, cid); err != nil {
		m.warnDegraded("delete_session", err)
	}
	_ = m.fallback.DeleteSession(ctx, cid)
}

// TrackConnection records cid in the user's connection index.
func (m *Manager) TrackConnection(ctx context.Context, cid, userID string) {
	if err := m.primary.TrackConnection(ctx, cid, userID); err != nil {
		m.warnDegraded("track_connection", err)
	}
	_ = m.fallback.TrackConnection(ctx, cid, userID)
}

// UntrackConnection removes cid from the index and reports whether this was
// the user's last connection. With the store away the answer comes from the
// process-local index, which is correct for single-instance operation and
// conservative otherwise.
func (m *Manager) UntrackConnection(ctx context.Context, cid, userID string) (last bool) {
	localRemaining, _ := m.fallback.UntrackConnection(ctx, cid, userID)
	remaining, err := m.primary.UntrackConnection(ctx, cid, userID)
	if err != nil {
		m.warnDegraded("untrack_connection", err)
		return localRemaining == 0
	}
	return remaining == 0
}

// Connections lists the user's connection ids across all instances.
func (m *Manager) Connections(ctx context.Context, userID string) []string {
	conns, err := m.primary.Connections(ctx, userID)
	if err != nil {
		m.warnDegraded("connections", err)
		conns, _ = m.fallback.Connections(ctx, userID)
	}
	return conns
}

// SetUserPresence validates and writes the user's presence record.
func (m *Manager) SetUserPresence(ctx context.Context, userID string, status PresenceStatus, metadata map[string]any) error {
	if !ValidStatus(status) {
		return ErrInvalidStatus
	}
	record := &PresenceRecord{
		UserID:    userID,
		Status:    status,
		UpdatedAt: time.Now(),
		Metadata:  metadata,
	}
	if err := m.primary.SetPresence(ctx, record); err != nil {
		m.warnDegraded("set_presence", err)
	}
	return m.fallback.SetPresence(ctx, record)
}

// Heartbeat refreshes the presence TTL, preserving the current status. A
// heartbeat from a user with expired presence revives them as online.
func (m *Manager) Heartbeat(ctx context.Context, userID string) {
	record := m.GetUserPresence(ctx, userID)
	status := record.Status
	if status == StatusOffline {
		status = StatusOnline
	}
	if err := m.SetUserPresence(ctx, userID, status, record.Metadata); err != nil {
		m.logger.Warn("heartbeat refresh failed",
			zap.String("user_id", userID),
			zap.Error(err))
	}
}

// GetUserPresence never fails: a missing record, an expired record, and a
// store outage all read as offline.
func (m *Manager) GetUserPresence(ctx context.Context, userID string) *PresenceRecord {
	record, err := m.primary.GetPresence(ctx, userID)
	if err != nil {
		m.warnDegraded("get_presence", err)
		record, _ = m.fallback.GetPresence(ctx, userID)
	}
	if record == nil {
		record = OfflineRecord(userID)
	}
	return record
}

// GetOnlineUsers resolves presence for many users in one batched store call.
func (m *Manager) GetOnlineUsers(ctx context.Context, userIDs []string) map[string]*PresenceRecord {
	records, err := m.primary.GetPresenceBatch(ctx, userIDs)
	if err != nil {
		m.warnDegraded("get_presence_batch", err)
		records, _ = m.fallback.GetPresenceBatch(ctx, userIDs)
	}
	return records
}

// ClearPresence drops the user's record; subsequent reads are offline.
func (m *Manager) ClearPresence(ctx context.Context, userID string) {
	if err := m.primary.ClearPresence(ctx, userID); err != nil {
		m.warnDegraded("clear_presence", err)
	}
	_ = m.fallback.ClearPresence(ctx, userID)
}

// SessionExists serves the room registry's stale-member sweep.
func (m *Manager) SessionExists(ctx context.Context, cid string) bool {
	ok, err := m.primary.SessionExists(ctx, cid)
	if err != nil {
		m.warnDegraded("session_exists", err)
		ok, _ = m.fallback.SessionExists(ctx, cid)
	}
	return ok
}
