// Package platform defines the boundary to the rest of the system: identity
// lookup, permission sets, and current-state snapshots all live behind these
// interfaces. The realtime core never touches the relational model directly.
package platform

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a referenced identity or resource does not
// exist in the platform.
var ErrNotFound = errors.New("platform: not found")

// Resource kinds known to the directory. They double as the room-name
// prefixes on the wire.
const (
	KindDevice        = "device"
	KindExperiment    = "experiment"
	KindTask          = "task"
	KindTaskExecution = "task-execution"
	KindUser          = "user"
	KindOrganization  = "org"
)

// Identity is an authenticated principal.
type Identity struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	OrgID     string `json:"org_id"`
	Role      string `json:"role"`
	Active    bool   `json:"active"`
	Deleted   bool   `json:"deleted"`
	Superuser bool   `json:"superuser"`
}

// Resource is the minimal projection the core needs for scope checks.
type Resource struct {
	Kind  string `json:"kind"`
	ID    string `json:"id"`
	OrgID string `json:"org_id"`
}

// IdentityResolver resolves a token subject to a full identity.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, id string) (*Identity, error)
}

// PermissionSource returns the identity's granted "resource:action" pairs.
type PermissionSource interface {
	Permissions(ctx context.Context, identityID string) ([]string, error)
}

// ResourceDirectory answers existence/org-scope questions and serves the
// join-time state snapshots pushed after a successful subscribe.
type ResourceDirectory interface {
	Resource(ctx context.Context, kind, id string) (*Resource, error)
	Snapshot(ctx context.Context, kind, id string) (map[string]any, error)
}
