package broker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/labpulse/labpulse/internal/common/config"
	"github.com/labpulse/labpulse/internal/realtime/event"
	"github.com/labpulse/labpulse/pkg/metrics"
)

type captureDeliverer struct {
	mu    sync.Mutex
	rooms []string
	raws  [][]byte
}

func (d *captureDeliverer) DeliverLocal(_ context.Context, room string, raw []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rooms = append(d.rooms, room)
	d.raws = append(d.raws, raw)
}

func (d *captureDeliverer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rooms)
}

func newTestBroker(t *testing.T, mr *miniredis.Miniredis) (*Broker, *captureDeliverer) {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	b := New(zap.NewNop(), client, config.BrokerConfig{Topic: "labpulse:events"},
		metrics.New(config.MetricsConfig{}))
	deliverer := &captureDeliverer{}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go b.Run(ctx, deliverer)
	// let the subscription settle before anyone publishes
	time.Sleep(50 * time.Millisecond)

	return b, deliverer
}

func TestPublishReachesOtherInstancesOnly(t *testing.T) {
	mr := miniredis.RunT(t)
	b1, d1 := newTestBroker(t, mr)
	_, d2 := newTestBroker(t, mr)

	env := event.NewEnvelope(event.TypeDeviceStatus, "d1", &event.DeviceStatus{Status: "online"})
	require.NoError(t, b1.Publish(context.Background(), "device:d1", env))

	require.Eventually(t, func() bool { return d2.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "device:d1", d2.rooms[0])

	var received map[string]any
	require.NoError(t, json.Unmarshal(d2.raws[0], &received))
	assert.Equal(t, "device.status", received["event_type"])
	assert.Equal(t, "online", received["status"])

	// the publisher filters its own echo
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, d1.count())
}

func TestMalformedTopicMessagesAreSkipped(t *testing.T) {
	mr := miniredis.RunT(t)
	_, d := newTestBroker(t, mr)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	require.NoError(t, client.Publish(context.Background(), "labpulse:events", "{not json").Err())
	require.NoError(t, client.Publish(context.Background(), "labpulse:events", `{"origin":"other"}`).Err())

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, d.count())
}

func TestDistinctOriginIDs(t *testing.T) {
	mr := miniredis.RunT(t)
	b1, _ := newTestBroker(t, mr)
	b2, _ := newTestBroker(t, mr)
	assert.NotEqual(t, b1.OriginID(), b2.OriginID())
}
