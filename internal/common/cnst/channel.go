package cnst

// ChannelType identifies an isolated event channel. Each channel owns its
// connect/disconnect lifecycle and message-handler table; unrelated event
// streams never share handler state.
type ChannelType string

const (
	ChannelDevices       ChannelType = "devices"
	ChannelExperiments   ChannelType = "experiments"
	ChannelTasks         ChannelType = "tasks"
	ChannelNotifications ChannelType = "notifications"
)

func (c ChannelType) String() string {
	return string(c)
}

// ActionType is the verb carried by an inbound client frame.
type ActionType string

const (
	// ActionSubscribe joins the room derived from the frame's subject id
	ActionSubscribe ActionType = "subscribe"
	// ActionUnsubscribe leaves the room derived from the frame's subject id
	ActionUnsubscribe ActionType = "unsubscribe"
	// ActionCommand dispatches a device command (devices channel only)
	ActionCommand ActionType = "command"
	// ActionRequestState replies with the subject's current snapshot
	ActionRequestState ActionType = "request_state"
	// ActionHeartbeat refreshes the caller's presence TTL
	ActionHeartbeat ActionType = "heartbeat"
	// ActionSetStatus updates the caller's presence status
	ActionSetStatus ActionType = "set_status"
)

func (a ActionType) String() string {
	return string(a)
}
