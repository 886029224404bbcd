package event

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyTelemetry  = errors.New("telemetry must carry at least one metric")
	ErrMissingCommand  = errors.New("command name is required")
	ErrMissingMessage  = errors.New("notification message is required")
	ErrInvalidProgress = errors.New("progress must be between 0 and 100")
)

// DeviceTelemetry carries a batch of metric readings from one device.
type DeviceTelemetry struct {
	Metrics map[string]float64 `json:"metrics"`
	Unit    string             `json:"unit,omitempty"`
}

func (p *DeviceTelemetry) Validate() error {
	if len(p.Metrics) == 0 {
		return ErrEmptyTelemetry
	}
	return nil
}

var deviceStatuses = map[string]bool{
	"online": true, "offline": true, "error": true, "maintenance": true,
}

// DeviceStatus reports a device status transition.
type DeviceStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (p *DeviceStatus) Validate() error {
	if !deviceStatuses[p.Status] {
		return fmt.Errorf("unknown device status %q", p.Status)
	}
	return nil
}

// DeviceHeartbeat is a periodic liveness signal from a device.
type DeviceHeartbeat struct {
	UptimeSeconds float64 `json:"uptime_seconds,omitempty"`
	FirmwareVer   string  `json:"firmware_version,omitempty"`
}

func (p *DeviceHeartbeat) Validate() error {
	if p.UptimeSeconds < 0 {
		return errors.New("uptime cannot be negative")
	}
	return nil
}

// DeviceCommand is a control instruction pushed to a device's watchers.
type DeviceCommand struct {
	Command    string         `json:"command"`
	Parameters map[string]any `json:"parameters,omitempty"`
	IssuedBy   string         `json:"issued_by,omitempty"`
}

func (p *DeviceCommand) Validate() error {
	if p.Command == "" {
		return ErrMissingCommand
	}
	return nil
}

var experimentStates = map[string]bool{
	"created": true, "started": true, "paused": true,
	"resumed": true, "completed": true, "aborted": true,
}

// ExperimentLifecycle reports an experiment state transition.
type ExperimentLifecycle struct {
	State  string `json:"state"`
	Reason string `json:"reason,omitempty"`
}

func (p *ExperimentLifecycle) Validate() error {
	if !experimentStates[p.State] {
		return fmt.Errorf("unknown experiment state %q", p.State)
	}
	return nil
}

// ExperimentProgress reports completion percentage.
type ExperimentProgress struct {
	Progress float64 `json:"progress"`
	Stage    string  `json:"stage,omitempty"`
}

func (p *ExperimentProgress) Validate() error {
	if p.Progress < 0 || p.Progress > 100 {
		return ErrInvalidProgress
	}
	return nil
}

// ExperimentData announces newly collected samples.
type ExperimentData struct {
	SampleCount int    `json:"sample_count"`
	DataType    string `json:"data_type,omitempty"`
}

func (p *ExperimentData) Validate() error {
	if p.SampleCount < 0 {
		return errors.New("sample count cannot be negative")
	}
	return nil
}

// TaskExecutionStarted marks the start of one execution of a task.
type TaskExecutionStarted struct {
	TaskID   string `json:"task_id"`
	Executor string `json:"executor,omitempty"`
}

func (p *TaskExecutionStarted) Validate() error {
	if p.TaskID == "" {
		return errors.New("task id is required")
	}
	return nil
}

// TaskExecutionProgress reports execution progress.
type TaskExecutionProgress struct {
	TaskID   string  `json:"task_id"`
	Progress float64 `json:"progress"`
	Step     string  `json:"step,omitempty"`
}

func (p *TaskExecutionProgress) Validate() error {
	if p.Progress < 0 || p.Progress > 100 {
		return ErrInvalidProgress
	}
	return nil
}

// TaskExecutionCompleted marks the end of an execution.
type TaskExecutionCompleted struct {
	TaskID   string `json:"task_id"`
	Success  bool   `json:"success"`
	ExitCode int    `json:"exit_code,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (p *TaskExecutionCompleted) Validate() error {
	if p.TaskID == "" {
		return errors.New("task id is required")
	}
	return nil
}

var notificationLevels = map[string]bool{
	"info": true, "warning": true, "critical": true,
}

// Notification is a system, user, or alert notification.
type Notification struct {
	Level   string `json:"level"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message"`
}

func (p *Notification) Validate() error {
	if p.Message == "" {
		return ErrMissingMessage
	}
	if !notificationLevels[p.Level] {
		return fmt.Errorf("unknown notification level %q", p.Level)
	}
	return nil
}

// PresenceChange announces a user's presence transition to their watchers.
type PresenceChange struct {
	Status   string         `json:"status"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (p *PresenceChange) Validate() error {
	switch p.Status {
	case "online", "away", "busy", "offline":
		return nil
	}
	return fmt.Errorf("unknown presence status %q", p.Status)
}
