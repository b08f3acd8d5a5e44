package entity

import (
	"time"
)

type SessionState string

const (
	SessionIdle      SessionState = "idle"
	SessionActive    SessionState = "active"
	SessionPaused    SessionState = "paused"
	SessionCompleted SessionState = "completed"
)

const MinDetectionInterval = 4000 * time.Millisecond

type GuidanceSession struct {
	ID                 string
	State              SessionState
	DetectionInterval  time.Duration
	LastCycleStartedAt time.Time
}

type SessionEventType string

const (
	EventStarted      SessionEventType = "started"
	EventPaused       SessionEventType = "paused"
	EventResumed      SessionEventType = "resumed"
	EventStepAdvanced SessionEventType = "step_advanced"
	EventRestarted    SessionEventType = "restarted"
	EventCompleted    SessionEventType = "completed"
)

type SessionEvent struct {
	Type      SessionEventType
	SessionID string
	Task      *Task
	At        time.Time
}

// SessionSnapshot is a read-only view of the orchestrator state.
type SessionSnapshot struct {
	SessionID         string        `json:"session_id"`
	State             SessionState  `json:"state"`
	DetectionInterval time.Duration `json:"detection_interval"`
	LastCycleAt       time.Time     `json:"last_cycle_at"`
	TaskDescription   string        `json:"task,omitempty"`
	StepIndex         int           `json:"step_index"`
	StepCount         int           `json:"step_count"`
	CurrentStep       *TaskStep     `json:"current_step,omitempty"`
	Shown             []string      `json:"shown,omitempty"`
	Timeouts          int           `json:"consecutive_timeouts"`
}
