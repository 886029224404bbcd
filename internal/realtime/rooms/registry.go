package rooms

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/labpulse/labpulse/internal/common/cnst"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Registry maps rooms to the connection ids subscribed to them. The local
// table is authoritative for delivery on this instance; every mutation is
// mirrored to the shared store in the same call so other instances can answer
// "who, anywhere, watches this room". Mirror writes are best effort: a store
// outage degrades room visibility to this process but never fails a join.
type Registry struct {
	logger        *zap.Logger
	client        redis.UniversalClient // nil for single-instance deployments
	sweepInterval time.Duration

	mu    sync.RWMutex
	local map[string]map[string]struct{} // room -> set of cids
}

// LivenessProbe reports whether a connection id still has a live session.
// The reconciliation sweep uses it to reap members whose disconnect cleanup
// never ran.
type LivenessProbe interface {
	SessionExists(ctx context.Context, cid string) bool
}

func NewRegistry(logger *zap.Logger, client redis.UniversalClient, sweepInterval time.Duration) *Registry {
	return &Registry{
		logger:        logger.Named("rooms"),
		client:        client,
		sweepInterval: sweepInterval,
		local:         make(map[string]map[string]struct{}),
	}
}

func membersKey(room string) string  { return cnst.KeyPrefixRoomMembers + room }
func userRoomsKey(uid string) string { return cnst.KeyPrefixUserRooms + uid }

// mirrorTTL is the safety net on mirrored membership keys, matching the
// session blob's TTL: if every instance dies before cleanup the keys expire
// on their own. Mutations and the sweep refresh it for live memberships.
const mirrorTTL = 24 * time.Hour

func (r *Registry) warnStore(op, room string, err error) {
	r.logger.Warn("room mirror unavailable, membership is process-local",
		zap.String("op", op),
		zap.String("room", room),
		zap.Error(err))
}

// AddToRoom adds cid to the room's member set, locally and in the store. If
// userID is given the room is also recorded in the user's room index so a
// full disconnect can sweep it in one call.
func (r *Registry) AddToRoom(ctx context.Context, cid, room, userID string) {
	r.mu.Lock()
	members, ok := r.local[room]
	if !ok {
		members = make(map[string]struct{})
		r.local[room] = members
	}
	members[cid] = struct{}{}
	r.mu.Unlock()

	if r.client == nil {
		return
	}
	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, membersKey(room), cid)
	pipe.Expire(ctx, membersKey(room), mirrorTTL)
	if userID != "" {
		pipe.SAdd(ctx, userRoomsKey(userID), room)
		pipe.Expire(ctx, userRoomsKey(userID), mirrorTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.warnStore("add_to_room", room, err)
	}
}

// RemoveFromRoom is the inverse of AddToRoom. Removing a non-member is a
// no-op, which makes disconnect cleanup safe to run twice.
func (r *Registry) RemoveFromRoom(ctx context.Context, cid, room, userID string) {
	r.mu.Lock()
	if members, ok := r.local[room]; ok {
		delete(members, cid)
		if len(members) == 0 {
			delete(r.local, room)
		}
	}
	r.mu.Unlock()

	if r.client == nil {
		return
	}
	pipe := r.client.TxPipeline()
	pipe.SRem(ctx, membersKey(room), cid)
	pipe.Expire(ctx, membersKey(room), mirrorTTL)
	if userID != "" {
		pipe.SRem(ctx, userRoomsKey(userID), room)
		pipe.Expire(ctx, userRoomsKey(userID), mirrorTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.warnStore("remove_from_room", room, err)
	}
}

// LocalMembers returns the member cids connected to this instance.
func (r *Registry) LocalMembers(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.local[room]
	out := make([]string, 0, len(members))
	for cid := range members {
		out = append(out, cid)
	}
	return out
}

// RoomMembers returns the member cids across all instances. Falls back to
// the local view when the store is unreachable.
func (r *Registry) RoomMembers(ctx context.Context, room string) []string {
	if r.client != nil {
		members, err := r.client.SMembers(ctx, membersKey(room)).Result()
		if err == nil {
			return members
		}
		if !errors.Is(err, redis.Nil) {
			r.warnStore("room_members", room, err)
		}
	}
	return r.LocalMembers(room)
}

// RoomCount returns the number of members across all instances.
func (r *Registry) RoomCount(ctx context.Context, room string) int {
	if r.client != nil {
		n, err := r.client.SCard(ctx, membersKey(room)).Result()
		if err == nil {
			return int(n)
		}
		r.warnStore("room_count", room, err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.local[room])
}

// UserRooms returns the rooms recorded in the user's room index.
func (r *Registry) UserRooms(ctx context.Context, userID string) []string {
	if r.client == nil {
		return nil
	}
	roomsList, err := r.client.SMembers(ctx, userRoomsKey(userID)).Result()
	if err != nil {
		r.warnStore("user_rooms", userID, err)
		return nil
	}
	return roomsList
}

// RemoveConnection drops cid from every room it joined on this instance and
// mirrors the removals. The user's room index is left alone; the user's other
// connections may still hold those rooms, so only the last disconnect clears
// it via CleanupUserRooms. Safe to run twice.
func (r *Registry) RemoveConnection(ctx context.Context, cid string) {
	r.mu.RLock()
	joined := make([]string, 0, 4)
	for room, members := range r.local {
		if _, ok := members[cid]; ok {
			joined = append(joined, room)
		}
	}
	r.mu.RUnlock()

	for _, room := range joined {
		r.RemoveFromRoom(ctx, cid, room, "")
	}
}

// ClearRoom removes every member, locally and in the store.
func (r *Registry) ClearRoom(ctx context.Context, room string) {
	r.mu.Lock()
	delete(r.local, room)
	r.mu.Unlock()

	if r.client == nil {
		return
	}
	if err := r.client.Del(ctx, membersKey(room)).Err(); err != nil {
		r.warnStore("clear_room", room, err)
	}
}

// CleanupUserRooms drops the user's room index after their last connection
// closes. The per-room member sets are not swept here; stale cids in them
// are unreachable no-ops until the reconciliation sweep reaps them.
func (r *Registry) CleanupUserRooms(ctx context.Context, userID string) {
	if r.client == nil {
		return
	}
	if err := r.client.Del(ctx, userRoomsKey(userID)).Err(); err != nil {
		r.warnStore("cleanup_user_rooms", userID, err)
	}
}

// ActiveRoomCount returns the number of rooms with at least one local member.
func (r *Registry) ActiveRoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.local)
}

// RunSweep periodically reconciles mirrored member sets against live
// sessions, bounding the growth left behind by crashed instances. The
// interval is a tunable (default 60s), not a correctness requirement.
func (r *Registry) RunSweep(ctx context.Context, probe LivenessProbe) {
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweepOnce(ctx, probe)
		}
	}
}

func (r *Registry) sweepOnce(ctx context.Context, probe LivenessProbe) {
	reaped := 0
	for _, room := range r.sweepTargets(ctx) {
		live := 0
		for _, cid := range r.RoomMembers(ctx, room) {
			if probe.SessionExists(ctx, cid) {
				live++
				continue
			}
			r.RemoveFromRoom(ctx, cid, room, "")
			reaped++
		}
		if live > 0 && r.client != nil {
			if err := r.client.Expire(ctx, membersKey(room), mirrorTTL).Err(); err != nil {
				r.warnStore("sweep_refresh", room, err)
			}
		}
	}
	if reaped > 0 {
		r.logger.Info("reaped stale room members", zap.Int("count", reaped))
	}
}

// sweepTargets lists every room with a mirrored member set, not just the
// rooms this instance holds locally, so a survivor reaps memberships a
// crashed instance left behind.
func (r *Registry) sweepTargets(ctx context.Context) []string {
	r.mu.RLock()
	targets := make([]string, 0, len(r.local))
	seen := make(map[string]struct{}, len(r.local))
	for room := range r.local {
		targets = append(targets, room)
		seen[room] = struct{}{}
	}
	r.mu.RUnlock()

	if r.client == nil {
		return targets
	}
	iter := r.client.Scan(ctx, 0, membersKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		room := strings.TrimPrefix(iter.Val(), cnst.KeyPrefixRoomMembers)
		if _, ok := seen[room]; ok {
			continue
		}
		seen[room] = struct{}{}
		targets = append(targets, room)
	}
	if err := iter.Err(); err != nil {
		r.warnStore("sweep_scan", "", err)
	}
	return targets
}
