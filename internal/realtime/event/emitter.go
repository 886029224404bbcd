package event

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/labpulse/labpulse/internal/realtime/rooms"
	"go.uber.org/zap"
)

// RoomEmitter is the router's room-emit primitive. The hub implements it;
// background jobs and API handlers only ever see the Emitter built on top.
type RoomEmitter interface {
	EmitToRoom(ctx context.Context, room string, env *Envelope) error
}

// Emitter is the typed entry point for pushing realtime updates. Every
// method validates the payload, derives the target room deterministically
// from the subject id, and routes. Membership is the registry's concern.
type Emitter struct {
	logger *zap.Logger
	router RoomEmitter
}

func NewEmitter(logger *zap.Logger, router RoomEmitter) *Emitter {
	return &Emitter{
		logger: logger.Named("emitter"),
		router: router,
	}
}

// NewEnvelope builds an envelope head with a fresh correlation id.
func NewEnvelope(eventType Type, subjectID string, payload any) *Envelope {
	return &Envelope{
		Type:          eventType,
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.NewString(),
		SubjectID:     subjectID,
		Payload:       payload,
	}
}

func (e *Emitter) emit(ctx context.Context, room string, env *Envelope) error {
	if err := env.Validate(); err != nil {
		e.logger.Warn("rejected invalid event",
			zap.String("event_type", string(env.Type)),
			zap.String("subject_id", env.SubjectID),
			zap.Error(err))
		return err
	}
	return e.router.EmitToRoom(ctx, room, env)
}

func (e *Emitter) EmitDeviceTelemetry(ctx context.Context, deviceID string, p *DeviceTelemetry) error {
	return e.emit(ctx, rooms.DeviceRoom(deviceID), NewEnvelope(TypeDeviceTelemetry, deviceID, p))
}

func (e *Emitter) EmitDeviceStatus(ctx context.Context, deviceID string, p *DeviceStatus) error {
	return e.emit(ctx, rooms.DeviceRoom(deviceID), NewEnvelope(TypeDeviceStatus, deviceID, p))
}

func (e *Emitter) EmitDeviceHeartbeat(ctx context.Context, deviceID string, p *DeviceHeartbeat) error {
	return e.emit(ctx, rooms.DeviceRoom(deviceID), NewEnvelope(TypeDeviceHeartbeat, deviceID, p))
}

func (e *Emitter) EmitDeviceCommand(ctx context.Context, deviceID string, p *DeviceCommand) error {
	return e.emit(ctx, rooms.DeviceRoom(deviceID), NewEnvelope(TypeDeviceCommand, deviceID, p))
}

func (e *Emitter) EmitExperimentLifecycle(ctx context.Context, experimentID string, p *ExperimentLifecycle) error {
	return e.emit(ctx, rooms.ExperimentRoom(experimentID), NewEnvelope(TypeExperimentLifecycle, experimentID, p))
}

func (e *Emitter) EmitExperimentProgress(ctx context.Context, experimentID string, p *ExperimentProgress) error {
	return e.emit(ctx, rooms.ExperimentRoom(experimentID), NewEnvelope(TypeExperimentProgress, experimentID, p))
}

func (e *Emitter) EmitExperimentData(ctx context.Context, experimentID string, p *ExperimentData) error {
	return e.emit(ctx, rooms.ExperimentRoom(experimentID), NewEnvelope(TypeExperimentData, experimentID, p))
}

// Task execution events go to both the parent task's room and the specific
// execution's room: dashboards watch the task, detail views the execution.
func (e *Emitter) emitExecution(ctx context.Context, taskID, executionID string, env *Envelope) error {
	if err := e.emit(ctx, rooms.TaskExecutionRoom(executionID), env); err != nil {
		return err
	}
	if taskID == "" {
		return nil
	}
	return e.router.EmitToRoom(ctx, rooms.TaskRoom(taskID), env)
}

func (e *Emitter) EmitTaskExecutionStarted(ctx context.Context, executionID string, p *TaskExecutionStarted) error {
	return e.emitExecution(ctx, p.TaskID, executionID, NewEnvelope(TypeTaskExecutionStarted, executionID, p))
}

func (e *Emitter) EmitTaskExecutionProgress(ctx context.Context, executionID string, p *TaskExecutionProgress) error {
	return e.emitExecution(ctx, p.TaskID, executionID, NewEnvelope(TypeTaskExecutionProgress, executionID, p))
}

func (e *Emitter) EmitTaskExecutionCompleted(ctx context.Context, executionID string, p *TaskExecutionCompleted) error {
	return e.emitExecution(ctx, p.TaskID, executionID, NewEnvelope(TypeTaskExecutionCompleted, executionID, p))
}

// EmitSystemNotification fans out to the global broadcast room.
func (e *Emitter) EmitSystemNotification(ctx context.Context, p *Notification) error {
	env := NewEnvelope(TypeNotificationSystem, "system", p)
	return e.emit(ctx, rooms.BroadcastRoom, env)
}

func (e *Emitter) EmitUserNotification(ctx context.Context, userID string, p *Notification) error {
	return e.emit(ctx, rooms.UserRoom(userID), NewEnvelope(TypeNotificationUser, userID, p))
}

// EmitAlert notifies an entire organization.
func (e *Emitter) EmitAlert(ctx context.Context, orgID string, p *Notification) error {
	return e.emit(ctx, rooms.OrgRoom(orgID), NewEnvelope(TypeNotificationAlert, orgID, p))
}

// EmitPresence announces a presence transition to the user's watchers.
func (e *Emitter) EmitPresence(ctx context.Context, userID string, p *PresenceChange) error {
	return e.emit(ctx, rooms.UserRoom(userID), NewEnvelope(TypeUserPresence, userID, p))
}
