package guidance

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sort"
	"time"

	"screen-guide/internal/application/port/output"
	"screen-guide/internal/domain/entity"
	"screen-guide/internal/infrastructure/logger"
	"screen-guide/internal/usecase/cascade"
)

// manualScheduler runs loop callbacks only when the test drives it.
type manualScheduler struct {
	now      time.Duration
	seq      int
	queue    []func()
	timers   []*manualTimer
	holdWork bool
	held     []func() func()
}

type manualTimer struct {
	at      time.Duration
	seq     int
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (s *manualScheduler) Post(fn func()) error {
	s.queue = append(s.queue, fn)
	return nil
}

func (s *manualScheduler) AfterFunc(d time.Duration, fn func()) output.Timer {
	s.seq++
	t := &manualTimer{at: s.now + d, seq: s.seq, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

func (s *manualScheduler) Go(work func() func()) {
	if s.holdWork {
		s.held = append(s.held, work)
		return
	}
	if next := work(); next != nil {
		s.queue = append(s.queue, next)
	}
}

func (s *manualScheduler) drain() {
	for len(s.queue) > 0 {
		fn := s.queue[0]
		s.queue = s.queue[1:]
		fn()
	}
}

// advance moves the clock forward and fires due timers in order.
func (s *manualScheduler) advance(d time.Duration) {
	target := s.now + d
	s.drain()
	for {
		t := s.nextDue(target)
		if t == nil {
			break
		}
		s.now = t.at
		t.stopped = true
		t.fn()
		s.drain()
	}
	s.now = target
}

func (s *manualScheduler) nextDue(target time.Duration) *manualTimer {
	var due []*manualTimer
	for _, t := range s.timers {
		if !t.stopped && t.at <= target {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].at != due[j].at {
			return due[i].at < due[j].at
		}
		return due[i].seq < due[j].seq
	})
	return due[0]
}

// release completes held background work and runs its continuations.
func (s *manualScheduler) release() {
	held := s.held
	s.held = nil
	for _, w := range held {
		if next := w(); next != nil {
			s.queue = append(s.queue, next)
		}
	}
	s.drain()
}

type fakeCapture struct {
	err   error
	calls int
}

func (c *fakeCapture) Capture(ctx context.Context) (image.Image, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return image.NewRGBA(image.Rect(0, 0, 100, 100)), nil
}

// deadlineCapture blocks until the cycle context expires.
type deadlineCapture struct{ calls int }

func (c *deadlineCapture) Capture(ctx context.Context) (image.Image, error) {
	c.calls++
	<-ctx.Done()
	return nil, ctx.Err()
}

type fakeDetector struct {
	set   entity.DetectionSet
	calls int
}

func (d *fakeDetector) Detect(ctx context.Context, img image.Image) cascade.Result {
	d.calls++
	return cascade.Result{Set: d.set, Tier: "fake"}
}

type fakeOverlay struct {
	calls       []string
	shown       entity.DetectionSet
	instruction string
	panicNotice bool
}

func (o *fakeOverlay) Show(set entity.DetectionSet, instruction string) error {
	o.calls = append(o.calls, fmt.Sprintf("show:%d", len(set)))
	o.shown = set
	o.instruction = instruction
	return nil
}

func (o *fakeOverlay) Hide(id string) error {
	o.calls = append(o.calls, "hide:"+id)
	return nil
}

func (o *fakeOverlay) HideAll() error {
	o.calls = append(o.calls, "hide_all")
	return nil
}

func (o *fakeOverlay) ShowNotice(text string) error {
	if o.panicNotice {
		panic("notice window gone")
	}
	o.calls = append(o.calls, "notice")
	return nil
}

func (o *fakeOverlay) count(call string) int {
	n := 0
	for _, c := range o.calls {
		if c == call {
			n++
		}
	}
	return n
}

type fakeAssistant struct {
	steps       []entity.TaskStep
	guidance    string
	guidanceErr error
	next        string
	help        string

	announced []string
	summaries []string
	clicked   []entity.Detection
	questions []string
}

func (a *fakeAssistant) RequestPlan(ctx context.Context, description string) []entity.TaskStep {
	return a.steps
}

func (a *fakeAssistant) RequestStepGuidance(ctx context.Context, summary string, task *entity.Task) (string, error) {
	a.summaries = append(a.summaries, summary)
	return a.guidance, a.guidanceErr
}

func (a *fakeAssistant) NotifyUserClicked(ctx context.Context, task *entity.Task, clicked entity.Detection) {
	a.clicked = append(a.clicked, clicked)
}

func (a *fakeAssistant) RequestNextGuidance(ctx context.Context, task *entity.Task, clicked entity.Detection) (string, error) {
	if a.next == "" {
		return "", errors.New("no model")
	}
	return a.next, nil
}

func (a *fakeAssistant) RequestHelp(ctx context.Context, task *entity.Task, question string) string {
	a.questions = append(a.questions, question)
	return a.help
}

func (a *fakeAssistant) Announce(text string) {
	a.announced = append(a.announced, text)
}

type fakeSampler struct{ load float64 }

func (s *fakeSampler) CurrentLoadPercent() float64 { return s.load }

type recordingListener struct{ events []entity.SessionEvent }

func (l *recordingListener) OnSessionEvent(ev entity.SessionEvent) {
	l.events = append(l.events, ev)
}

func (l *recordingListener) types() []entity.SessionEventType {
	out := make([]entity.SessionEventType, 0, len(l.events))
	for _, ev := range l.events {
		out = append(out, ev.Type)
	}
	return out
}

func detections(n int) entity.DetectionSet {
	set := make(entity.DetectionSet, 0, n)
	for i := 1; i <= n; i++ {
		set = append(set, entity.Detection{
			ID:         fmt.Sprintf("detection_%d", i),
			Label:      fmt.Sprintf("Button %d", i),
			Box:        image.Rect(i*10, 10, i*10+8, 20),
			Action:     fmt.Sprintf("Click Button %d", i),
			Confidence: 0.9,
			Kind:       entity.KindButton,
		})
	}
	return set
}

func threeSteps() []entity.TaskStep {
	return entity.NormalizeSteps([]entity.TaskStep{
		{Description: "Open the File menu"},
		{Description: "Choose Save As"},
		{Description: "Press Save"},
	})
}

type harness struct {
	sched     *manualScheduler
	capture   *fakeCapture
	detector  *fakeDetector
	overlay   *fakeOverlay
	assistant *fakeAssistant
	sampler   *fakeSampler
	listener  *recordingListener
	orch      *Orchestrator
}

func newHarness() *harness {
	return newHarnessWith(DefaultConfig())
}

func newHarnessWith(cfg Config) *harness {
	h := &harness{
		sched:     &manualScheduler{},
		capture:   &fakeCapture{},
		detector:  &fakeDetector{set: detections(3)},
		overlay:   &fakeOverlay{},
		assistant: &fakeAssistant{steps: threeSteps(), guidance: "Click File", help: "Use the File menu"},
		sampler:   &fakeSampler{},
		listener:  &recordingListener{},
	}
	h.orch = New(cfg, Deps{
		Scheduler: h.sched,
		Capture:   h.capture,
		Detector:  h.detector,
		Overlay:   h.overlay,
		Assistant: h.assistant,
		Sampler:   h.sampler,
		Listener:  h.listener,
		Logger:    logger.NewNop(),
	})
	return h
}

// started starts guidance and runs the first cycle.
func (h *harness) started() *harness {
	if err := h.orch.StartGuidance("save the document"); err != nil {
		panic(err)
	}
	h.sched.advance(0)
	return h
}
