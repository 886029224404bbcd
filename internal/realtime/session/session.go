// Package session persists per-connection metadata and per-user presence in
// the shared state store. Everything here is TTL-bounded: an instance that
// dies without running disconnect cleanup leaves entries that self-expire.
package session

import (
	"context"
	"time"
)

// Session is the per-connection blob keyed by connection id. Handlers may
// stash arbitrary keys in Data; by convention different handlers write
// disjoint keys, so read-modify-write with last-writer-wins is acceptable.
type Session struct {
	CID         string         `json:"cid"`
	UserID      string         `json:"user_id,omitempty"`
	OrgID       string         `json:"org_id,omitempty"`
	ConnectedAt time.Time      `json:"connected_at"`
	RemoteAddr  string         `json:"remote_addr,omitempty"`
	UserAgent   string         `json:"user_agent,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

// PresenceStatus is a user's reachability state.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusAway    PresenceStatus = "away"
	StatusBusy    PresenceStatus = "busy"
	StatusOffline PresenceStatus = "offline"
)

// ValidStatus reports whether s is a client-settable presence status.
// Offline is excluded: it is derived from disconnects and TTL expiry only.
func ValidStatus(s PresenceStatus) bool {
	switch s {
	case StatusOnline, StatusAway, StatusBusy:
		return true
	}
	return false
}

// PresenceRecord is the per-user presence entry. Absence of a record in the
// store means offline.
type PresenceRecord struct {
	UserID    string         `json:"user_id"`
	Status    PresenceStatus `json:"status"`
	UpdatedAt time.Time      `json:"updated_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// OfflineRecord is the synthetic record returned for users with no stored
// presence.
func OfflineRecord(userID string) *PresenceRecord {
	return &PresenceRecord{UserID: userID, Status: StatusOffline}
}

// Store is the persistence contract. Implementations must make every removal
// tolerant of already-absent state so disconnect cleanup can run twice.
type Store interface {
	// SaveSession upserts a session blob with the session TTL.
	SaveSession(ctx context.Context, s *Session) error
	// GetSession returns ErrSessionNotFound on miss.
	GetSession(ctx context.Context, cid string) (*Session, error)
	// UpdateSession merges partial into the session's Data bag and returns
	// the merged session. Concurrent updates are last-writer-wins.
	UpdateSession(ctx context.Context, cid string, partial map[string]any) (*Session, error)
	// DeleteSession removes the blob; deleting a missing session is a no-op.
	DeleteSession(ctx context.Context, cid string) error

	// TrackConnection adds cid to the user's connection index.
	TrackConnection(ctx context.Context, cid, userID string) error
	// UntrackConnection removes cid from the index and reports how many
	// connections the user still has. An empty userID is resolved from the
	// session blob first.
	UntrackConnection(ctx context.Context, cid, userID string) (remaining int, err error)
	// Connections lists the user's live connection ids.
	Connections(ctx context.Context, userID string) ([]string, error)

	// SetPresence writes the record with the presence TTL.
	SetPresence(ctx context.Context, record *PresenceRecord) error
	// GetPresence returns an offline record (not an error) on miss or expiry.
	GetPresence(ctx context.Context, userID string) (*PresenceRecord, error)
	// GetPresenceBatch resolves many users in one store round trip.
	GetPresenceBatch(ctx context.Context, userIDs []string) (map[string]*PresenceRecord, error)
	// ClearPresence removes the record immediately (last disconnect).
	ClearPresence(ctx context.Context, userID string) error

	// SessionExists reports whether the session blob is still live. Used by
	// the room registry's reconciliation sweep.
	SessionExists(ctx context.Context, cid string) (bool, error)

	Close() error
}
