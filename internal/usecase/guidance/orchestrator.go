package guidance

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"screen-guide/internal/application/port/input"
	"screen-guide/internal/application/port/output"
	"screen-guide/internal/domain/entity"
	"screen-guide/internal/usecase/cascade"

	"github.com/google/uuid"
)

var _ input.GuidanceController = (*Orchestrator)(nil)

var ErrEmptyTask = errors.New("task description is empty")

// FrameDetector turns a frame into a detection set.
type FrameDetector interface {
	Detect(ctx context.Context, img image.Image) cascade.Result
}

// Metrics is optional; a nil Metrics records nothing.
type Metrics interface {
	CycleFinished(outcome string, elapsed time.Duration)
	CycleTimedOut()
	SessionRestarted()
	IntervalSet(d time.Duration)
	StateChanged(state entity.SessionState)
}

const (
	outcomeShown         = "shown"
	outcomeEmpty         = "empty"
	outcomeCaptureFailed = "capture_failed"
)

type Deps struct {
	Scheduler output.Scheduler
	Capture   output.CaptureSource
	Detector  FrameDetector
	Overlay   output.OverlayPort
	Assistant output.AssistantPort
	Sampler   output.LoadSampler
	Listener  output.SessionListener
	Logger    output.LoggerPort
	Metrics   Metrics
}

// Orchestrator drives the guidance state machine. Every field below the
// dependencies is owned by the scheduler's loop and only touched there.
type Orchestrator struct {
	cfg       Config
	sched     output.Scheduler
	capture   output.CaptureSource
	detector  FrameDetector
	overlay   output.OverlayPort
	assistant output.AssistantPort
	sampler   output.LoadSampler
	listener  output.SessionListener
	logger    output.LoggerPort
	metrics   Metrics
	now       func() time.Time

	session entity.GuidanceSession
	task    *entity.Task
	shown   entity.DetectionSet

	// epoch changes whenever the session is torn down; callbacks captured
	// under an older epoch are ignored.
	epoch    uint64
	cycle    uint64
	inFlight bool
	cancel   context.CancelFunc
	timeouts int

	tickTimer     output.Timer
	watchdog      output.Timer
	resumeTimer   output.Timer
	pausedForHelp bool
	completedSent bool
}

func New(cfg Config, deps Deps) *Orchestrator {
	if cfg.UICap <= 0 {
		cfg.UICap = 5
	}
	o := &Orchestrator{
		cfg:       cfg,
		sched:     deps.Scheduler,
		capture:   deps.Capture,
		detector:  deps.Detector,
		overlay:   deps.Overlay,
		assistant: deps.Assistant,
		sampler:   deps.Sampler,
		listener:  deps.Listener,
		logger:    deps.Logger.WithField("component", "guidance"),
		metrics:   deps.Metrics,
		now:       time.Now,
	}
	o.session = entity.GuidanceSession{State: entity.SessionIdle, DetectionInterval: cfg.IntervalForLoad(0)}
	return o
}

func (o *Orchestrator) StartGuidance(description string) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return ErrEmptyTask
	}
	return o.sched.Post(func() { o.start(description) })
}

func (o *Orchestrator) Pause() error {
	return o.sched.Post(func() { o.pause(false) })
}

func (o *Orchestrator) Resume() error {
	return o.sched.Post(o.resume)
}

func (o *Orchestrator) Stop() error {
	return o.sched.Post(o.stop)
}

func (o *Orchestrator) Reset() error {
	return o.sched.Post(o.reset)
}

func (o *Orchestrator) HandleClick(detectionID string) error {
	return o.sched.Post(func() { o.handleClick(detectionID) })
}

func (o *Orchestrator) RequestHelp(question string) error {
	return o.sched.Post(func() { o.requestHelp(question) })
}

// Status returns a snapshot taken on the loop.
func (o *Orchestrator) Status(ctx context.Context) (entity.SessionSnapshot, error) {
	ch := make(chan entity.SessionSnapshot, 1)
	if err := o.sched.Post(func() { ch <- o.snapshot() }); err != nil {
		return entity.SessionSnapshot{}, err
	}
	select {
	case s := <-ch:
		return s, nil
	case <-ctx.Done():
		return entity.SessionSnapshot{}, ctx.Err()
	}
}

func (o *Orchestrator) start(description string) {
	switch o.session.State {
	case entity.SessionActive, entity.SessionPaused:
		o.logger.Warn("Start ignored, guidance already running", "state", o.session.State)
		return
	}

	ctx, cancel := o.callContext()
	steps := o.assistant.RequestPlan(ctx, description)
	cancel()

	o.begin(entity.NewTask(description, steps))
	if step := o.task.StepAnnouncement(); step != "" {
		o.assistant.Announce("Let's start. " + step)
	} else {
		o.assistant.Announce(NoStepsWelcome)
	}
	o.emit(entity.EventStarted)
}

// begin opens a new session for task and schedules the first cycle.
func (o *Orchestrator) begin(task *entity.Task) {
	o.epoch++
	o.task = task
	o.timeouts = 0
	o.completedSent = false
	o.pausedForHelp = false
	o.session.ID = uuid.NewString()
	o.setState(entity.SessionActive)

	o.logger.Info("Guidance started",
		"session", o.session.ID,
		"task", task.Description,
		"steps", len(task.Steps),
		"stepIndex", task.CurrentStepIndex,
	)
	o.scheduleTick(0)
}

func (o *Orchestrator) pause(forHelp bool) {
	if o.session.State == entity.SessionPaused && !forHelp {
		// An explicit pause keeps a help pause from resuming on its own.
		o.pausedForHelp = false
		o.stopTimer(&o.resumeTimer)
		return
	}
	if o.session.State != entity.SessionActive {
		o.logger.Debug("Pause ignored", "state", o.session.State)
		return
	}
	o.stopTimer(&o.tickTimer)
	o.abortCycle()
	o.hideAll()
	o.pausedForHelp = forHelp
	o.setState(entity.SessionPaused)
	o.emit(entity.EventPaused)
}

func (o *Orchestrator) resume() {
	if o.session.State != entity.SessionPaused {
		o.logger.Debug("Resume ignored", "state", o.session.State)
		return
	}
	o.stopTimer(&o.resumeTimer)
	o.pausedForHelp = false
	o.setState(entity.SessionActive)
	o.scheduleTick(o.session.DetectionInterval)
	o.emit(entity.EventResumed)
}

func (o *Orchestrator) stop() {
	if o.session.State == entity.SessionIdle {
		o.logger.Debug("Stop ignored", "state", o.session.State)
		return
	}
	// Also cancels a restart waiting on its delay.
	o.teardown()
	o.setState(entity.SessionCompleted)
	if !o.completedSent {
		o.completedSent = true
		o.emit(entity.EventCompleted)
	}
	o.logger.Info("Guidance stopped", "session", o.session.ID)
}

func (o *Orchestrator) reset() {
	o.stop()
	o.teardown()
	o.task = nil
	o.timeouts = 0
	o.session = entity.GuidanceSession{DetectionInterval: o.cfg.IntervalForLoad(0)}
	o.setState(entity.SessionIdle)
}

// teardown cancels every pending callback of the current session.
func (o *Orchestrator) teardown() {
	o.epoch++
	o.stopTimer(&o.tickTimer)
	o.stopTimer(&o.resumeTimer)
	o.abortCycle()
	o.hideAll()
}

func (o *Orchestrator) scheduleTick(d time.Duration) {
	o.stopTimer(&o.tickTimer)
	epoch := o.epoch
	o.tickTimer = o.sched.AfterFunc(d, func() {
		if epoch != o.epoch || o.session.State != entity.SessionActive {
			return
		}
		o.tick()
	})
}

func (o *Orchestrator) tick() {
	if o.inFlight {
		return
	}

	interval := o.cfg.IntervalForLoad(o.currentLoad())
	if interval != o.session.DetectionInterval {
		o.logger.Info("Detection interval adjusted", "from", o.session.DetectionInterval.String(), "to", interval.String())
	}
	o.session.DetectionInterval = interval
	if o.metrics != nil {
		o.metrics.IntervalSet(interval)
	}

	o.cycle++
	epoch, cycle := o.epoch, o.cycle
	started := o.now()
	o.session.LastCycleStartedAt = started
	o.inFlight = true

	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.WatchdogTimeout)
	o.cancel = cancel
	o.watchdog = o.sched.AfterFunc(o.cfg.WatchdogTimeout, func() {
		o.onWatchdog(epoch, cycle)
	})

	o.sched.Go(func() func() {
		res, err := o.detectFrame(ctx)
		// Work that ran out its deadline is a timeout even when its result
		// reaches the loop before the watchdog does.
		expired := errors.Is(ctx.Err(), context.DeadlineExceeded)
		return func() {
			if expired {
				o.onWatchdog(epoch, cycle)
				return
			}
			o.onCycleResult(epoch, cycle, started, res, err)
		}
	})
}

// detectFrame runs off the loop and must not touch orchestrator state.
func (o *Orchestrator) detectFrame(ctx context.Context) (res cascade.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("detection panic: %v", r)
		}
	}()

	img, err := o.capture.Capture(ctx)
	if err != nil {
		return cascade.Result{}, fmt.Errorf("capture: %w", err)
	}
	return o.detector.Detect(ctx, img), nil
}

func (o *Orchestrator) current(epoch, cycle uint64) bool {
	return o.inFlight && epoch == o.epoch && cycle == o.cycle
}

func (o *Orchestrator) onCycleResult(epoch, cycle uint64, started time.Time, res cascade.Result, err error) {
	if !o.current(epoch, cycle) {
		o.logger.Debug("Dropping stale cycle result", "cycle", cycle)
		return
	}
	o.finishCycle()
	o.timeouts = 0
	elapsed := o.now().Sub(started)
	interval := o.session.DetectionInterval

	if err != nil {
		o.logger.Warn("Cycle skipped", "error", err)
		o.hideAll()
		o.recordCycle(outcomeCaptureFailed, elapsed)
		o.scheduleTick(interval)
		return
	}

	if len(res.Set) == 0 {
		o.hideAll()
		o.recordCycle(outcomeEmpty, elapsed)
		o.scheduleTick(interval)
		return
	}

	set := res.Set.Cap(o.cfg.UICap)
	ctx, cancel := o.callContext()
	text, gerr := o.assistant.RequestStepGuidance(ctx, set.Summary(), o.task)
	cancel()
	if gerr != nil || strings.TrimSpace(text) == "" {
		if gerr != nil {
			o.logger.Warn("Step guidance unavailable", "error", gerr)
		}
		text = DegradedInstruction
	}

	if epoch != o.epoch || o.session.State != entity.SessionActive {
		return
	}

	o.hideAll()
	if err := o.overlay.Show(set, text); err != nil {
		o.logger.Error("Overlay show failed", "error", err)
	}
	o.shown = set
	o.logger.Info("Highlights shown", "tier", res.Tier, "count", len(set), "elapsed", elapsed.String())
	o.recordCycle(outcomeShown, elapsed)
	o.scheduleTick(interval)
}

func (o *Orchestrator) onWatchdog(epoch, cycle uint64) {
	if !o.current(epoch, cycle) {
		return
	}
	o.finishCycle()
	o.timeouts++
	if o.metrics != nil {
		o.metrics.CycleTimedOut()
	}
	o.logger.Warn("Detection cycle timed out",
		"timeout", o.cfg.WatchdogTimeout.String(),
		"consecutive", o.timeouts,
	)

	err := o.guard(func() error {
		if err := o.overlay.HideAll(); err != nil {
			return fmt.Errorf("hide overlays: %w", err)
		}
		o.shown = nil
		if err := o.overlay.ShowNotice(RecoveryNotice); err != nil {
			return fmt.Errorf("show notice: %w", err)
		}
		return nil
	})
	if err != nil {
		o.logger.Error("Recovery failed", "error", err)
		o.restart("recovery failed")
		return
	}
	if o.timeouts > o.cfg.MaxRecoveries {
		o.restart("too many consecutive timeouts")
		return
	}
	o.scheduleTick(o.cfg.RecoveryBackoff)
}

// restart tears the session down and starts it again with the same task.
func (o *Orchestrator) restart(reason string) {
	err := o.guard(func() error {
		task := o.task
		o.logger.Warn("Restarting guidance", "reason", reason, "delay", o.cfg.RestartDelay.String())
		if o.metrics != nil {
			o.metrics.SessionRestarted()
		}

		o.teardown()
		o.setState(entity.SessionCompleted)
		if !o.completedSent {
			o.completedSent = true
			o.emit(entity.EventCompleted)
		}
		o.emit(entity.EventRestarted)

		epoch := o.epoch
		o.tickTimer = o.sched.AfterFunc(o.cfg.RestartDelay, func() {
			if epoch != o.epoch || o.session.State != entity.SessionCompleted || task == nil {
				return
			}
			o.begin(task)
		})
		return nil
	})
	if err != nil {
		o.logger.Error("Restart failed", "error", err)
	}
}

func (o *Orchestrator) handleClick(id string) {
	if o.session.State != entity.SessionActive {
		o.logger.Debug("Click ignored", "state", o.session.State, "id", id)
		return
	}
	clicked, ok := o.shown.Find(id)
	if !ok {
		o.logger.Debug("Click on unknown detection", "id", id)
		return
	}

	if err := o.overlay.Hide(id); err != nil {
		o.logger.Warn("Overlay hide failed", "id", id, "error", err)
	}
	o.shown = removeID(o.shown, id)

	ctx, cancel := o.callContext()
	defer cancel()
	o.assistant.NotifyUserClicked(ctx, o.task, clicked)

	if o.task.HasSteps() && o.task.Advance() {
		o.logger.Info("Advanced step", "index", o.task.CurrentStepIndex, "of", len(o.task.Steps))
		o.assistant.Announce(o.task.StepAnnouncement())
		o.emit(entity.EventStepAdvanced)
		return
	}

	text, err := o.assistant.RequestNextGuidance(ctx, o.task, clicked)
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			o.logger.Warn("Next-step guidance unavailable", "error", err)
		}
		text = FallbackNextStep
	}
	o.assistant.Announce(text)
}

func (o *Orchestrator) requestHelp(question string) {
	wasActive := o.session.State == entity.SessionActive
	if wasActive {
		o.pause(true)
	}

	ctx, cancel := o.callContext()
	answer := o.assistant.RequestHelp(ctx, o.task, question)
	cancel()
	o.assistant.Announce(answer)

	if !wasActive {
		return
	}
	epoch := o.epoch
	o.stopTimer(&o.resumeTimer)
	o.resumeTimer = o.sched.AfterFunc(o.cfg.HelpResumeDelay, func() {
		if epoch != o.epoch || !o.pausedForHelp {
			return
		}
		o.resume()
	})
}

func (o *Orchestrator) snapshot() entity.SessionSnapshot {
	s := entity.SessionSnapshot{
		SessionID:         o.session.ID,
		State:             o.session.State,
		DetectionInterval: o.session.DetectionInterval,
		LastCycleAt:       o.session.LastCycleStartedAt,
		Timeouts:          o.timeouts,
	}
	if o.task != nil {
		s.TaskDescription = o.task.Description
		s.StepIndex = o.task.CurrentStepIndex
		s.StepCount = len(o.task.Steps)
		if step := o.task.CurrentStep(); step != nil {
			cp := *step
			s.CurrentStep = &cp
		}
	}
	for _, d := range o.shown {
		s.Shown = append(s.Shown, fmt.Sprintf("%s: %s", d.ID, d.Label))
	}
	return s
}

func (o *Orchestrator) finishCycle() {
	o.inFlight = false
	o.stopTimer(&o.watchdog)
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

// abortCycle invalidates any in-flight cycle so its result is dropped.
func (o *Orchestrator) abortCycle() {
	if o.inFlight {
		o.cycle++
	}
	o.finishCycle()
}

func (o *Orchestrator) hideAll() {
	if err := o.overlay.HideAll(); err != nil {
		o.logger.Warn("Overlay hide-all failed", "error", err)
	}
	o.shown = nil
}

func (o *Orchestrator) stopTimer(t *output.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

func (o *Orchestrator) setState(s entity.SessionState) {
	o.session.State = s
	if o.metrics != nil {
		o.metrics.StateChanged(s)
	}
}

func (o *Orchestrator) emit(t entity.SessionEventType) {
	if o.listener == nil {
		return
	}
	o.listener.OnSessionEvent(entity.SessionEvent{
		Type:      t,
		SessionID: o.session.ID,
		Task:      o.task.Clone(),
		At:        o.now(),
	})
}

func (o *Orchestrator) recordCycle(outcome string, elapsed time.Duration) {
	if o.metrics != nil {
		o.metrics.CycleFinished(outcome, elapsed)
	}
}

func (o *Orchestrator) currentLoad() float64 {
	if o.sampler == nil {
		return 0
	}
	return o.sampler.CurrentLoadPercent()
}

func (o *Orchestrator) callContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), o.cfg.CallTimeout)
}

// guard converts a panic in fn into an error.
func (o *Orchestrator) guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func removeID(set entity.DetectionSet, id string) entity.DetectionSet {
	out := make(entity.DetectionSet, 0, len(set))
	for _, d := range set {
		if d.ID != id {
			out = append(out, d)
		}
	}
	return out
}
