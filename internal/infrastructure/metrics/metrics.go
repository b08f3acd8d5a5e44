package metrics

import (
	"time"

	"screen-guide/internal/domain/entity"
	"screen-guide/internal/usecase/cascade"
	"screen-guide/internal/usecase/guidance"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	_ cascade.Recorder = (*Provider)(nil)
	_ guidance.Metrics = (*Provider)(nil)
)

var sessionStates = []entity.SessionState{
	entity.SessionIdle,
	entity.SessionActive,
	entity.SessionPaused,
	entity.SessionCompleted,
}

// Provider records guidance metrics. A nil *Provider is valid and records
// nothing.
type Provider struct {
	tierOutcomes  *prometheus.CounterVec
	tierLatency   *prometheus.HistogramVec
	cycles        *prometheus.CounterVec
	cycleLatency  prometheus.Histogram
	timeouts      prometheus.Counter
	restarts      prometheus.Counter
	interval      prometheus.Gauge
	state         *prometheus.GaugeVec
	load          *prometheus.GaugeVec
	remoteBreaker prometheus.Gauge
}

func NewProvider(registry *prometheus.Registry) *Provider {
	if registry == nil {
		return nil
	}

	p := &Provider{
		tierOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guide_cascade_tier_outcomes_total",
				Help: "Detection tier runs by tier and outcome (hit, empty, failed)",
			},
			[]string{"tier", "outcome"},
		),
		tierLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "guide_cascade_tier_duration_seconds",
				Help:    "Time spent in each detection tier",
				Buckets: []float64{.05, .1, .25, .5, 1, 2, 4, 8},
			},
			[]string{"tier"},
		),
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guide_cycles_total",
				Help: "Completed detection cycles by outcome",
			},
			[]string{"outcome"},
		),
		cycleLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "guide_cycle_duration_seconds",
				Help:    "Capture plus detection time of completed cycles",
				Buckets: []float64{.1, .25, .5, 1, 2, 4, 8, 10},
			},
		),
		timeouts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "guide_cycle_timeouts_total",
				Help: "Detection cycles abandoned by the watchdog",
			},
		),
		restarts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "guide_session_restarts_total",
				Help: "Guidance sessions restarted after failed recovery",
			},
		),
		interval: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "guide_detection_interval_seconds",
				Help: "Current interval between detection cycles",
			},
		),
		state: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "guide_session_state",
				Help: "1 for the current guidance session state, 0 otherwise",
			},
			[]string{"state"},
		),
		load: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "guide_system_load_percent",
				Help: "Latest sampled system load",
			},
			[]string{"resource"},
		),
		remoteBreaker: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "guide_remote_breaker_open",
				Help: "1 while the remote detection circuit breaker rejects calls",
			},
		),
	}

	registry.MustRegister(
		p.tierOutcomes,
		p.tierLatency,
		p.cycles,
		p.cycleLatency,
		p.timeouts,
		p.restarts,
		p.interval,
		p.state,
		p.load,
		p.remoteBreaker,
	)

	return p
}

func (p *Provider) TierHit(tier string, count int, elapsed time.Duration) {
	p.observeTier(tier, "hit", elapsed)
}

func (p *Provider) TierEmpty(tier string, elapsed time.Duration) {
	p.observeTier(tier, "empty", elapsed)
}

func (p *Provider) TierFailed(tier string, elapsed time.Duration) {
	p.observeTier(tier, "failed", elapsed)
}

func (p *Provider) observeTier(tier, outcome string, elapsed time.Duration) {
	if p == nil {
		return
	}
	p.tierOutcomes.WithLabelValues(tier, outcome).Inc()
	p.tierLatency.WithLabelValues(tier).Observe(elapsed.Seconds())
}

func (p *Provider) CycleFinished(outcome string, elapsed time.Duration) {
	if p == nil {
		return
	}
	p.cycles.WithLabelValues(outcome).Inc()
	p.cycleLatency.Observe(elapsed.Seconds())
}

func (p *Provider) CycleTimedOut() {
	if p != nil {
		p.timeouts.Inc()
	}
}

func (p *Provider) SessionRestarted() {
	if p != nil {
		p.restarts.Inc()
	}
}

func (p *Provider) IntervalSet(d time.Duration) {
	if p != nil {
		p.interval.Set(d.Seconds())
	}
}

func (p *Provider) StateChanged(state entity.SessionState) {
	if p == nil {
		return
	}
	for _, s := range sessionStates {
		v := 0.0
		if s == state {
			v = 1
		}
		p.state.WithLabelValues(string(s)).Set(v)
	}
}

func (p *Provider) LoadSampled(cpuPercent, memPercent float64) {
	if p == nil {
		return
	}
	p.load.WithLabelValues("cpu").Set(cpuPercent)
	p.load.WithLabelValues("memory").Set(memPercent)
}

func (p *Provider) BreakerChanged(open bool) {
	if p == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	p.remoteBreaker.Set(v)
}
