package channel

import (
	"context"

	"github.com/labpulse/labpulse/internal/common/cnst"
	"github.com/labpulse/labpulse/internal/platform"
	"github.com/labpulse/labpulse/internal/realtime/rooms"
)

// newTasksChannel serves task and task-execution rooms. A subscribe with
// scope "execution" targets the execution's own room; the default targets
// the parent task so dashboards see every execution under it.
func newTasksChannel(deps *Deps) *Channel {
	c := newChannel(cnst.ChannelTasks, deps)

	taskSpec := roomSpec{
		kind:            platform.KindTask,
		room:            rooms.TaskRoom,
		canJoin:         deps.Checker.CanAccessTask,
		directoryBacked: true,
	}
	executionSpec := roomSpec{
		kind:            platform.KindTaskExecution,
		room:            rooms.TaskExecutionRoom,
		canJoin:         deps.Checker.CanAccessTaskExecution,
		directoryBacked: true,
	}

	pick := func(frame *Frame) roomSpec {
		if frame.Scope == "execution" {
			return executionSpec
		}
		return taskSpec
	}

	c.handle(cnst.ActionSubscribe, func(ctx context.Context, conn Conn, frame *Frame) {
		c.subscribe(ctx, conn, frame, pick(frame))
	})
	c.handle(cnst.ActionUnsubscribe, func(ctx context.Context, conn Conn, frame *Frame) {
		c.unsubscribe(ctx, conn, frame, pick(frame))
	})
	return c
}
