package di

import (
	"context"
	"fmt"
	"io"

	"screen-guide/internal/application/port/output"
	"screen-guide/internal/config"
	"screen-guide/internal/infrastructure/capture/file"
	"screen-guide/internal/infrastructure/capture/rod"
	"screen-guide/internal/infrastructure/eventloop"
	"screen-guide/internal/infrastructure/llm/gemini"
	"screen-guide/internal/infrastructure/llm/openrouter"
	"screen-guide/internal/infrastructure/loadsampler"
	"screen-guide/internal/infrastructure/logger"
	"screen-guide/internal/infrastructure/metrics"
	"screen-guide/internal/infrastructure/userinteraction"
	"screen-guide/internal/usecase/assistant"
	"screen-guide/internal/usecase/guidance"
	"screen-guide/internal/usecase/planner"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const loopBuffer = 64

type Container struct {
	Config       config.Config
	Logger       output.LoggerPort
	LLM          output.LLMPort
	Capture      output.CaptureSource
	Console      *userinteraction.ConsoleUserInteraction
	Loop         *eventloop.Loop
	Sampler      *loadsampler.Sampler
	Registry     *prometheus.Registry
	Metrics      *metrics.Provider
	Assistant    *assistant.Assistant
	Conversation *assistant.Conversation
	Guidance     *guidance.Orchestrator

	closers []func()
}

// NewContainer wires the guide process. Capture in browser mode launches a
// browser, so ctx bounds the launch.
func NewContainer(ctx context.Context, cfg config.Config, in io.Reader, out io.Writer) (*Container, error) {
	logCfg := logger.DefaultConfig("guide")
	logCfg.Dir = cfg.Log.Dir
	logCfg.Level = cfg.Log.Level
	logCfg.Console = cfg.Log.Console
	log, err := logger.NewLoggerAdapter(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	c := &Container{Config: cfg, Logger: log}
	c.closers = append(c.closers, func() { _ = log.Close() })

	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	c.Metrics = metrics.NewProvider(c.Registry)

	llm, err := c.newLLM(ctx)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create LLM: %w", err)
	}
	c.LLM = llm

	capture, err := c.newCapture(ctx)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create capture: %w", err)
	}
	c.Capture = capture

	c.Console = userinteraction.NewConsoleUserInteraction(in, out)
	c.Loop = eventloop.New(log, loopBuffer)

	samplerCfg := loadsampler.DefaultConfig()
	samplerCfg.Period = cfg.Sampler.Period
	samplerCfg.ErrorPeriod = cfg.Sampler.ErrorPeriod
	samplerCfg.MemoryThreshold = cfg.Sampler.MemoryThreshold
	c.Sampler = loadsampler.New(samplerCfg, log, c.Metrics)

	plan := planner.New(llm, log)

	assistantCfg := assistant.DefaultConfig()
	assistantCfg.MaxTries = cfg.LLM.MaxRetries
	assistantCfg.CacheTTL = cfg.LLM.CacheTTL
	asst, err := assistant.New(assistantCfg, llm, plan, c.Console, log)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create assistant: %w", err)
	}
	c.Assistant = asst
	c.closers = append(c.closers, asst.Close)

	c.Conversation = assistant.NewConversation(llm, assistant.MarkerPolicy{}, c.Console, log, cfg.LLM.MaxRetries)

	cascade := NewCascade(cfg.Detection, log, c.Metrics)
	log.Info("Detection cascade ready", "tiers", cascade.TierNames())

	c.Guidance = guidance.New(guidanceConfig(cfg.Guidance), guidance.Deps{
		Scheduler: c.Loop,
		Capture:   capture,
		Detector:  cascade,
		Overlay:   c.Console,
		Assistant: asst,
		Sampler:   c.Sampler,
		Listener:  c.Console,
		Logger:    log,
		Metrics:   c.Metrics,
	})

	return c, nil
}

// Close releases resources in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

func (c *Container) newLLM(ctx context.Context) (output.LLMPort, error) {
	cfg := c.Config.LLM
	switch cfg.Provider {
	case config.ProviderGemini:
		gcfg := gemini.DefaultConfig(cfg.GeminiAPIKey, cfg.GeminiModel)
		gcfg.Logger = c.Logger
		adapter, err := gemini.NewGeminiAdapter(ctx, gcfg)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, func() { _ = adapter.Close() })
		return adapter, nil
	default:
		if cfg.APIKey == "" {
			c.Logger.Warn("OPENROUTER_API_KEY is empty, model calls will fail and fall back")
		}
		ocfg := openrouter.DefaultConfig(cfg.APIKey, cfg.Model)
		ocfg.BaseURL = cfg.BaseURL
		ocfg.LogHTTP = cfg.LogHTTP
		ocfg.Logger = c.Logger
		return openrouter.NewOpenRouterAdapter(ocfg), nil
	}
}

func (c *Container) newCapture(ctx context.Context) (output.CaptureSource, error) {
	cfg := c.Config.Capture
	if cfg.Mode == config.CaptureFile {
		return file.New(cfg.FilePath), nil
	}

	bcfg := rod.DefaultConfig()
	bcfg.Headless = cfg.Headless
	bcfg.StartURL = cfg.StartURL
	browser, err := rod.NewBrowserAdapter(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, browser.Close)
	return browser, nil
}

func guidanceConfig(g config.GuidanceConfig) guidance.Config {
	return guidance.Config{
		WatchdogTimeout:   g.WatchdogTimeout,
		RecoveryBackoff:   g.RecoveryBackoff,
		RestartDelay:      g.RestartDelay,
		HelpResumeDelay:   g.HelpResumeDelay,
		CallTimeout:       g.CallTimeout,
		UICap:             g.UICap,
		MaxRecoveries:     g.MaxRecoveries,
		BaseInterval:      g.BaseInterval,
		MediumInterval:    g.MediumInterval,
		HighInterval:      g.HighInterval,
		MediumLoadPercent: g.MediumLoadPercent,
		HighLoadPercent:   g.HighLoadPercent,
	}
}
