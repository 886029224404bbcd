package channel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/labpulse/labpulse/internal/auth"
	"github.com/labpulse/labpulse/internal/common/config"
	"github.com/labpulse/labpulse/internal/common/errorx"
	"github.com/labpulse/labpulse/internal/platform"
	"github.com/labpulse/labpulse/internal/realtime/event"
	"github.com/labpulse/labpulse/internal/realtime/rooms"
	"github.com/labpulse/labpulse/internal/realtime/session"
	"github.com/labpulse/labpulse/pkg/metrics"
)

// fakeConn satisfies Conn and records every event pushed at it.
type fakeConn struct {
	cid      string
	identity *platform.Identity
	events   []*event.Envelope
}

func (f *fakeConn) CID() string                   { return f.cid }
func (f *fakeConn) Identity() *platform.Identity  { return f.identity }
func (f *fakeConn) SendEvent(env *event.Envelope) { f.events = append(f.events, env) }

func (f *fakeConn) lastEvent(t *testing.T) *event.Envelope {
	t.Helper()
	require.NotEmpty(t, f.events)
	return f.events[len(f.events)-1]
}

// captureRouter stands in for the hub's room-emit primitive.
type captureRouter struct {
	rooms []string
	envs  []*event.Envelope
}

func (r *captureRouter) EmitToRoom(_ context.Context, room string, env *event.Envelope) error {
	r.rooms = append(r.rooms, room)
	r.envs = append(r.envs, env)
	return nil
}

type channelEnv struct {
	set      *Set
	fake     *platform.Fake
	registry *rooms.Registry
	sessions *session.Manager
	router   *captureRouter
}

func newChannelEnv(t *testing.T) *channelEnv {
	t.Helper()
	logger := zap.NewNop()
	fake := platform.NewFake()
	registry := rooms.NewRegistry(logger, nil, time.Minute)
	sessions := session.NewManager(logger,
		session.NewMemoryStore(logger, time.Hour, 5*time.Minute), time.Hour, 5*time.Minute)
	router := &captureRouter{}

	set := NewSet(&Deps{
		Logger:    logger,
		Checker:   auth.NewChecker(logger, fake, fake),
		Registry:  registry,
		Sessions:  sessions,
		Directory: fake,
		Emitter:   event.NewEmitter(logger, router),
		Metrics:   metrics.New(config.MetricsConfig{}),
	})
	return &channelEnv{set: set, fake: fake, registry: registry, sessions: sessions, router: router}
}

func (e *channelEnv) channel(t *testing.T, name string) *Channel {
	t.Helper()
	ch, ok := e.set.Get(name)
	require.True(t, ok)
	return ch
}

// viewer is an org-1 member with view grants on devices, experiments, tasks.
func (e *channelEnv) viewer(cid string) *fakeConn {
	identity := &platform.Identity{ID: "u-" + cid, OrgID: "org-1", Active: true}
	e.fake.AddIdentity(identity, "device:view", "experiment:view", "task:view")
	return &fakeConn{cid: cid, identity: identity}
}

func assertClientError(t *testing.T, env *event.Envelope, category errorx.Category) {
	t.Helper()
	require.Equal(t, event.TypeError, env.Type)
	cerr, ok := env.Payload.(*errorx.ClientError)
	require.True(t, ok)
	assert.Equal(t, category, cerr.Category)
}

func TestSetHasAllChannels(t *testing.T) {
	env := newChannelEnv(t)
	for _, name := range []string{"devices", "experiments", "tasks", "notifications"} {
		_, ok := env.set.Get(name)
		assert.True(t, ok, name)
	}
	_, ok := env.set.Get("metrics")
	assert.False(t, ok)
}

func TestOnConnectAcks(t *testing.T) {
	env := newChannelEnv(t)
	conn := env.viewer("c1")

	env.channel(t, "devices").OnConnect(context.Background(), conn)

	ack := conn.lastEvent(t)
	assert.Equal(t, event.TypeConnected, ack.Type)
	assert.Equal(t, "c1", ack.SubjectID)
}

func TestSubscribeJoinsRoomAcksAndPushesSnapshot(t *testing.T) {
	env := newChannelEnv(t)
	env.fake.AddResource(&platform.Resource{Kind: platform.KindDevice, ID: "d1", OrgID: "org-1"},
		map[string]any{"status": "online"})
	conn := env.viewer("c1")
	ch := env.channel(t, "devices")

	ch.HandleFrame(context.Background(), conn, []byte(`{"action":"subscribe","id":"d1"}`))

	require.Len(t, conn.events, 2)
	assert.Equal(t, event.TypeSubscribed, conn.events[0].Type)
	assert.Equal(t, event.TypeState, conn.events[1].Type)
	assert.Equal(t, []string{"c1"}, env.registry.LocalMembers("device:d1"))
}

func TestSubscribeIsIdempotent(t *testing.T) {
	env := newChannelEnv(t)
	env.fake.AddResource(&platform.Resource{Kind: platform.KindDevice, ID: "d1", OrgID: "org-1"}, nil)
	conn := env.viewer("c1")
	ch := env.channel(t, "devices")

	frame := []byte(`{"action":"subscribe","id":"d1"}`)
	ch.HandleFrame(context.Background(), conn, frame)
	ch.HandleFrame(context.Background(), conn, frame)

	assert.Equal(t, []string{"c1"}, env.registry.LocalMembers("device:d1"))
}

func TestSubscribeOtherOrgDenied(t *testing.T) {
	env := newChannelEnv(t)
	env.fake.AddResource(&platform.Resource{Kind: platform.KindDevice, ID: "d2", OrgID: "org-2"}, nil)
	conn := env.viewer("c1")

	env.channel(t, "devices").HandleFrame(context.Background(), conn,
		[]byte(`{"action":"subscribe","id":"d2"}`))

	assertClientError(t, conn.lastEvent(t), errorx.CategoryAccessDenied)
	assert.Empty(t, env.registry.LocalMembers("device:d2"))
}

func TestSubscribeUnknownResourceNotFound(t *testing.T) {
	env := newChannelEnv(t)
	conn := env.viewer("c1")

	env.channel(t, "devices").HandleFrame(context.Background(), conn,
		[]byte(`{"action":"subscribe","id":"ghost"}`))

	assertClientError(t, conn.lastEvent(t), errorx.CategoryNotFound)
	assert.Empty(t, env.registry.LocalMembers("device:ghost"))
}

func TestSubscribeMissingIDRejected(t *testing.T) {
	env := newChannelEnv(t)
	conn := env.viewer("c1")

	env.channel(t, "devices").HandleFrame(context.Background(), conn,
		[]byte(`{"action":"subscribe"}`))

	assertClientError(t, conn.lastEvent(t), errorx.CategoryValidation)
}

func TestUnknownActionRejected(t *testing.T) {
	env := newChannelEnv(t)
	conn := env.viewer("c1")

	env.channel(t, "experiments").HandleFrame(context.Background(), conn,
		[]byte(`{"action":"reboot","id":"e1"}`))

	assertClientError(t, conn.lastEvent(t), errorx.CategoryValidation)
}

func TestMalformedFrameRejected(t *testing.T) {
	env := newChannelEnv(t)
	conn := env.viewer("c1")

	env.channel(t, "devices").HandleFrame(context.Background(), conn, []byte(`garbage`))

	assertClientError(t, conn.lastEvent(t), errorx.CategoryValidation)
}

func TestUnsubscribeNeverJoinedStillAcks(t *testing.T) {
	env := newChannelEnv(t)
	conn := env.viewer("c1")

	env.channel(t, "devices").HandleFrame(context.Background(), conn,
		[]byte(`{"action":"unsubscribe","id":"d1"}`))

	assert.Equal(t, event.TypeUnsubscribed, conn.lastEvent(t).Type)
}

func TestUnsubscribeLeavesRoom(t *testing.T) {
	env := newChannelEnv(t)
	env.fake.AddResource(&platform.Resource{Kind: platform.KindExperiment, ID: "e1", OrgID: "org-1"}, nil)
	conn := env.viewer("c1")
	ch := env.channel(t, "experiments")

	ch.HandleFrame(context.Background(), conn, []byte(`{"action":"subscribe","id":"e1"}`))
	require.Equal(t, []string{"c1"}, env.registry.LocalMembers("experiment:e1"))

	ch.HandleFrame(context.Background(), conn, []byte(`{"action":"unsubscribe","id":"e1"}`))
	assert.Empty(t, env.registry.LocalMembers("experiment:e1"))
}
