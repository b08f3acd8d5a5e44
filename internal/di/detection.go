package di

import (
	"screen-guide/internal/application/port/output"
	"screen-guide/internal/config"
	"screen-guide/internal/infrastructure/detector"
	"screen-guide/internal/infrastructure/detector/basic"
	"screen-guide/internal/infrastructure/detector/heuristic"
	"screen-guide/internal/infrastructure/detector/objectmodel"
	"screen-guide/internal/infrastructure/detector/remote"
	"screen-guide/internal/infrastructure/metrics"
	"screen-guide/internal/infrastructure/resilience"
	"screen-guide/internal/usecase/cascade"
)

// NewCascade builds the detection tiers in priority order: remote service,
// object model, heuristic, basic. Disabled tiers are skipped.
func NewCascade(cfg config.DetectionConfig, log output.LoggerPort, m *metrics.Provider) *cascade.Cascade {
	var tiers []cascade.Tier

	if cfg.EnableRemote {
		breaker := resilience.NewCircuitBreaker("remote-detection", cfg.BreakerThreshold, cfg.BreakerReset)
		breaker.OnStateChange(func(name string, from, to resilience.CircuitState) {
			log.Warn("Circuit breaker changed state", "breaker", name, "from", from.String(), "to", to.String())
			m.BreakerChanged(to == resilience.CircuitOpen)
		})

		rcfg := remote.DefaultConfig(cfg.RemoteURL)
		rcfg.Timeout = cfg.RemoteTimeout
		rcfg.RequestFloor = cfg.RequestFloor
		tiers = append(tiers, cascade.Tier{
			Detector:      remote.New(rcfg, breaker, log.WithField("component", "remote-detector")),
			Class:         cascade.Learned,
			MinConfidence: cfg.RemoteMinConfidence,
		})
	}
	if cfg.EnableObjectModel {
		tiers = append(tiers, objectModelTier(cfg, log))
	}
	if cfg.EnableHeuristic {
		tiers = append(tiers, cascade.Tier{
			Detector:      heuristic.New(heuristic.DefaultConfig()),
			Class:         cascade.Heuristic,
			MinConfidence: cfg.HeuristicMinConfidence,
		})
	}
	if cfg.EnableBasic {
		tiers = append(tiers, cascade.Tier{
			Detector:      basic.New(basic.DefaultConfig()),
			Class:         cascade.Heuristic,
			MinConfidence: cfg.BasicMinConfidence,
		})
	}

	ccfg := cascade.DefaultConfig()
	ccfg.MaxResults = cfg.MaxDetections
	return cascade.New(tiers, ccfg, log, m)
}

// objectModelTier counts as learned only when a model service backs it;
// templates alone are heuristic.
func objectModelTier(cfg config.DetectionConfig, log output.LoggerPort) cascade.Tier {
	log = log.WithField("component", "objectmodel")

	var model objectmodel.Model
	class := cascade.Heuristic
	if cfg.ObjectModelURL != "" {
		scfg := objectmodel.DefaultServiceConfig(cfg.ObjectModelURL)
		if cfg.ObjectModelTimeout > 0 {
			scfg.Timeout = cfg.ObjectModelTimeout
		}
		model = objectmodel.NewServiceModel(scfg, log)
		class = cascade.Learned
	}

	return cascade.Tier{
		Detector:      objectmodel.New(objectmodel.DefaultConfig(), model, log),
		Class:         class,
		MinConfidence: cfg.ObjectMinConfidence,
	}
}

// NewLocalDetector is the detector behind the detection service: the
// heuristic detector with the basic one as fallback.
func NewLocalDetector() *detector.Chain {
	return detector.NewChain(
		heuristic.New(heuristic.DefaultConfig()),
		basic.New(basic.DefaultConfig()),
	)
}
