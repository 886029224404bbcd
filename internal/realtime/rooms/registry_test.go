package rooms

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRegistry(t *testing.T) (*Registry, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRegistry(zap.NewNop(), client, time.Minute), mr
}

func TestJoinLeave(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()
	room := DeviceRoom("d1")

	r.AddToRoom(ctx, "cid-1", room, "u1")
	assert.Contains(t, r.RoomMembers(ctx, room), "cid-1")
	assert.Contains(t, r.LocalMembers(room), "cid-1")
	assert.Equal(t, 1, r.RoomCount(ctx, room))
	assert.Contains(t, r.UserRooms(ctx, "u1"), room)

	r.RemoveFromRoom(ctx, "cid-1", room, "u1")
	assert.NotContains(t, r.RoomMembers(ctx, room), "cid-1")
	assert.Equal(t, 0, r.RoomCount(ctx, room))
	assert.Empty(t, r.UserRooms(ctx, "u1"))
}

func TestNeverJoinedRoomIsEmpty(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	assert.Empty(t, r.RoomMembers(ctx, ExperimentRoom("nope")))
	assert.Equal(t, 0, r.RoomCount(ctx, ExperimentRoom("nope")))
}

func TestRemoveNonMemberIsNoop(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()
	room := TaskRoom("t1")

	r.AddToRoom(ctx, "cid-1", room, "")
	// Removing someone who never joined changes nothing
	r.RemoveFromRoom(ctx, "cid-ghost", room, "")
	assert.ElementsMatch(t, []string{"cid-1"}, r.RoomMembers(ctx, room))

	// Double-remove of a member is equally harmless
	r.RemoveFromRoom(ctx, "cid-1", room, "")
	r.RemoveFromRoom(ctx, "cid-1", room, "")
	assert.Empty(t, r.RoomMembers(ctx, room))
}

func TestJoinIsIdempotent(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()
	room := OrgRoom("o1")

	r.AddToRoom(ctx, "cid-1", room, "u1")
	r.AddToRoom(ctx, "cid-1", room, "u1")
	assert.Equal(t, 1, r.RoomCount(ctx, room))
}

func TestClearRoom(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()
	room := BroadcastRoom

	r.AddToRoom(ctx, "cid-1", room, "")
	r.AddToRoom(ctx, "cid-2", room, "")
	r.ClearRoom(ctx, room)

	assert.Empty(t, r.RoomMembers(ctx, room))
	assert.Empty(t, r.LocalMembers(room))
}

func TestCleanupUserRooms(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	r.AddToRoom(ctx, "cid-1", DeviceRoom("d1"), "u1")
	r.AddToRoom(ctx, "cid-1", ExperimentRoom("e1"), "u1")
	require.Len(t, r.UserRooms(ctx, "u1"), 2)

	r.CleanupUserRooms(ctx, "u1")
	assert.Empty(t, r.UserRooms(ctx, "u1"))
	// Member sets are left for the sweep, per the cleanup contract
	assert.Contains(t, r.RoomMembers(ctx, DeviceRoom("d1")), "cid-1")
}

func TestCrossInstanceVisibility(t *testing.T) {
	r1, mr := newTestRegistry(t)
	client2 := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client2.Close() })
	r2 := NewRegistry(zap.NewNop(), client2, time.Minute)

	ctx := context.Background()
	room := DeviceRoom("d1")

	r1.AddToRoom(ctx, "cid-1", room, "u1")

	// Instance 2 sees the membership through the store even though the
	// connection lives on instance 1.
	assert.Contains(t, r2.RoomMembers(ctx, room), "cid-1")
	assert.Empty(t, r2.LocalMembers(room))
}

func TestStoreOutageDegradesToLocal(t *testing.T) {
	r, mr := newTestRegistry(t)
	ctx := context.Background()
	room := DeviceRoom("d1")

	mr.Close()

	// Joins still succeed process-locally
	r.AddToRoom(ctx, "cid-1", room, "u1")
	assert.Contains(t, r.RoomMembers(ctx, room), "cid-1")
	assert.Equal(t, 1, r.RoomCount(ctx, room))
}

type fakeProbe struct{ live map[string]bool }

func (p fakeProbe) SessionExists(_ context.Context, cid string) bool { return p.live[cid] }

func TestSweepReapsDeadMembers(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()
	room := DeviceRoom("d1")

	r.AddToRoom(ctx, "cid-live", room, "")
	r.AddToRoom(ctx, "cid-dead", room, "")

	r.sweepOnce(ctx, fakeProbe{live: map[string]bool{"cid-live": true}})

	assert.ElementsMatch(t, []string{"cid-live"}, r.RoomMembers(ctx, room))
	assert.ElementsMatch(t, []string{"cid-live"}, r.LocalMembers(room))
}

func TestActiveRoomCount(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	assert.Equal(t, 0, r.ActiveRoomCount())
	r.AddToRoom(ctx, "cid-1", DeviceRoom("d1"), "")
	r.AddToRoom(ctx, "cid-1", TaskRoom("t1"), "")
	assert.Equal(t, 2, r.ActiveRoomCount())

	r.RemoveFromRoom(ctx, "cid-1", DeviceRoom("d1"), "")
	assert.Equal(t, 1, r.ActiveRoomCount())
}

func TestRemoveConnectionLeavesEveryRoom(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	r.AddToRoom(ctx, "cid-1", DeviceRoom("d1"), "u1")
	r.AddToRoom(ctx, "cid-1", ExperimentRoom("e1"), "u1")
	r.AddToRoom(ctx, "cid-2", DeviceRoom("d1"), "u1")

	r.RemoveConnection(ctx, "cid-1")

	assert.ElementsMatch(t, []string{"cid-2"}, r.RoomMembers(ctx, DeviceRoom("d1")))
	assert.Empty(t, r.RoomMembers(ctx, ExperimentRoom("e1")))
	// the user's other connection still holds rooms, so the index survives
	assert.Contains(t, r.UserRooms(ctx, "u1"), DeviceRoom("d1"))

	// running it again is harmless
	r.RemoveConnection(ctx, "cid-1")
	assert.ElementsMatch(t, []string{"cid-2"}, r.RoomMembers(ctx, DeviceRoom("d1")))
}

func TestSweepReapsCrashedInstanceRooms(t *testing.T) {
	crashed, mr := newTestRegistry(t)
	ctx := context.Background()
	crashed.AddToRoom(ctx, "cid-dead", DeviceRoom("d1"), "u1")

	// a fresh instance that never saw the room still reaps the shared mirror
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	survivor := NewRegistry(zap.NewNop(), client, time.Minute)

	survivor.sweepOnce(ctx, fakeProbe{})

	assert.Empty(t, survivor.RoomMembers(ctx, DeviceRoom("d1")))
	assert.False(t, mr.Exists("labpulse:room:members:device:d1"))
}

func TestMirrorKeysCarryExpiry(t *testing.T) {
	r, mr := newTestRegistry(t)
	ctx := context.Background()

	r.AddToRoom(ctx, "cid-1", DeviceRoom("d1"), "u1")

	assert.Greater(t, mr.TTL("labpulse:room:members:device:d1"), time.Duration(0))
	assert.Greater(t, mr.TTL("labpulse:user:rooms:u1"), time.Duration(0))
}
