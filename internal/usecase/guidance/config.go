package guidance

import (
	"time"

	"screen-guide/internal/domain/entity"
)

const (
	DegradedInstruction = "Click on a highlighted element to continue"
	RecoveryNotice      = "Screen detection is taking longer than usual. Retrying shortly..."
	FallbackNextStep    = "Look for the next highlighted element to keep going."
	NoStepsWelcome      = "I'll guide you through this task step by step. Look for the highlighted elements on your screen."
)

type Config struct {
	WatchdogTimeout   time.Duration
	RecoveryBackoff   time.Duration
	RestartDelay      time.Duration
	HelpResumeDelay   time.Duration
	CallTimeout       time.Duration
	UICap             int
	MaxRecoveries     int
	BaseInterval      time.Duration
	MediumInterval    time.Duration
	HighInterval      time.Duration
	MediumLoadPercent float64
	HighLoadPercent   float64
}

func DefaultConfig() Config {
	return Config{
		WatchdogTimeout:   10 * time.Second,
		RecoveryBackoff:   5 * time.Second,
		RestartDelay:      time.Second,
		HelpResumeDelay:   3 * time.Second,
		CallTimeout:       15 * time.Second,
		UICap:             5,
		MaxRecoveries:     3,
		BaseInterval:      4000 * time.Millisecond,
		MediumInterval:    6000 * time.Millisecond,
		HighInterval:      8000 * time.Millisecond,
		MediumLoadPercent: 50,
		HighLoadPercent:   70,
	}
}

// IntervalForLoad picks the cycle interval for a load sample. The result is
// never below entity.MinDetectionInterval.
func (c Config) IntervalForLoad(load float64) time.Duration {
	iv := c.BaseInterval
	switch {
	case load > c.HighLoadPercent:
		iv = c.HighInterval
	case load > c.MediumLoadPercent:
		iv = c.MediumInterval
	}
	if iv < entity.MinDetectionInterval {
		iv = entity.MinDetectionInterval
	}
	return iv
}
