package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingRouter captures emitted (room, envelope) pairs.
type recordingRouter struct {
	emits []struct {
		room string
		env  *Envelope
	}
}

func (r *recordingRouter) EmitToRoom(_ context.Context, room string, env *Envelope) error {
	r.emits = append(r.emits, struct {
		room string
		env  *Envelope
	}{room, env})
	return nil
}

func newTestEmitter(t *testing.T) (*Emitter, *recordingRouter) {
	t.Helper()
	router := &recordingRouter{}
	return NewEmitter(zap.NewNop(), router), router
}

func TestEmitDeviceTelemetryRoutesToDeviceRoom(t *testing.T) {
	emitter, router := newTestEmitter(t)

	err := emitter.EmitDeviceTelemetry(context.Background(), "d1",
		&DeviceTelemetry{Metrics: map[string]float64{"temp": 20}})
	require.NoError(t, err)

	require.Len(t, router.emits, 1)
	assert.Equal(t, "device:d1", router.emits[0].room)
	assert.Equal(t, TypeDeviceTelemetry, router.emits[0].env.Type)
	assert.Equal(t, "d1", router.emits[0].env.SubjectID)
}

func TestEmitRejectsInvalidPayloadWithoutRouting(t *testing.T) {
	emitter, router := newTestEmitter(t)

	err := emitter.EmitExperimentProgress(context.Background(), "e1",
		&ExperimentProgress{Progress: 250})
	assert.ErrorIs(t, err, ErrInvalidProgress)
	assert.Empty(t, router.emits)
}

func TestEmitTaskExecutionRoutesToBothRooms(t *testing.T) {
	emitter, router := newTestEmitter(t)

	err := emitter.EmitTaskExecutionStarted(context.Background(), "x1",
		&TaskExecutionStarted{TaskID: "t1"})
	require.NoError(t, err)

	require.Len(t, router.emits, 2)
	assert.Equal(t, "task-execution:x1", router.emits[0].room)
	assert.Equal(t, "task:t1", router.emits[1].room)
	// Same envelope instance to both rooms, same correlation id
	assert.Equal(t, router.emits[0].env.CorrelationID, router.emits[1].env.CorrelationID)
}

func TestEmitSystemNotificationRoutesToBroadcast(t *testing.T) {
	emitter, router := newTestEmitter(t)

	err := emitter.EmitSystemNotification(context.Background(),
		&Notification{Level: "critical", Message: "maintenance window"})
	require.NoError(t, err)

	require.Len(t, router.emits, 1)
	assert.Equal(t, "broadcast", router.emits[0].room)
}

func TestEmitPresenceRoutesToUserRoom(t *testing.T) {
	emitter, router := newTestEmitter(t)

	require.NoError(t, emitter.EmitPresence(context.Background(), "u1",
		&PresenceChange{Status: "offline"}))
	require.Len(t, router.emits, 1)
	assert.Equal(t, "user:u1", router.emits[0].room)
}

func TestEmitAlertRoutesToOrgRoom(t *testing.T) {
	emitter, router := newTestEmitter(t)

	require.NoError(t, emitter.EmitAlert(context.Background(), "o1",
		&Notification{Level: "warning", Message: "device offline"}))
	require.Len(t, router.emits, 1)
	assert.Equal(t, "org:o1", router.emits[0].room)
}
