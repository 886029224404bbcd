package platform

import (
	"context"
	"sync"
)

// Fake is an in-memory platform used by tests and by deployments that have
// not wired a real backend yet. Unknown identities and resources resolve to
// ErrNotFound, so the default posture is deny.
type Fake struct {
	mu          sync.RWMutex
	identities  map[string]*Identity
	permissions map[string][]string
	resources   map[string]*Resource
	snapshots   map[string]map[string]any
}

var (
	_ IdentityResolver  = (*Fake)(nil)
	_ PermissionSource  = (*Fake)(nil)
	_ ResourceDirectory = (*Fake)(nil)
)

func NewFake() *Fake {
	return &Fake{
		identities:  make(map[string]*Identity),
		permissions: make(map[string][]string),
		resources:   make(map[string]*Resource),
		snapshots:   make(map[string]map[string]any),
	}
}

func resourceKey(kind, id string) string {
	return kind + ":" + id
}

// AddIdentity registers an identity with its granted permissions.
func (f *Fake) AddIdentity(identity *Identity, permissions ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identities[identity.ID] = identity
	f.permissions[identity.ID] = permissions
}

// AddResource registers a resource, optionally with a state snapshot.
func (f *Fake) AddResource(res *Resource, snapshot map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := resourceKey(res.Kind, res.ID)
	f.resources[key] = res
	if snapshot != nil {
		f.snapshots[key] = snapshot
	}
}

func (f *Fake) ResolveIdentity(_ context.Context, id string) (*Identity, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	identity, ok := f.identities[id]
	if !ok {
		return nil, ErrNotFound
	}
	return identity, nil
}

func (f *Fake) Permissions(_ context.Context, identityID string) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	perms, ok := f.permissions[identityID]
	if !ok {
		return nil, nil
	}
	return perms, nil
}

func (f *Fake) Resource(_ context.Context, kind, id string) (*Resource, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	res, ok := f.resources[resourceKey(kind, id)]
	if !ok {
		return nil, ErrNotFound
	}
	return res, nil
}

func (f *Fake) Snapshot(_ context.Context, kind, id string) (map[string]any, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if _, ok := f.resources[resourceKey(kind, id)]; !ok {
		return nil, ErrNotFound
	}
	return f.snapshots[resourceKey(kind, id)], nil
}
