package config

import (
	"errors"
	"fmt"
	"time"

	"screen-guide/internal/application/port/output"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"

	CaptureBrowser = "browser"
	CaptureFile    = "file"
)

// Config enumerates every tunable of the guide and the detection service.
type Config struct {
	LLM       LLMConfig
	Detection DetectionConfig
	Guidance  GuidanceConfig
	Sampler   SamplerConfig
	Capture   CaptureConfig
	Server    ServerConfig
	Log       LogConfig
}

type LLMConfig struct {
	Provider     string
	APIKey       string
	Model        string
	BaseURL      string
	GeminiAPIKey string
	GeminiModel  string
	MaxRetries   uint
	CacheTTL     time.Duration
	LogHTTP      bool
}

type DetectionConfig struct {
	RemoteURL        string
	RemoteTimeout    time.Duration
	RequestFloor     float64
	MaxDetections    int
	BreakerThreshold int
	BreakerReset     time.Duration

	ObjectModelURL     string
	ObjectModelTimeout time.Duration

	EnableRemote      bool
	EnableObjectModel bool
	EnableHeuristic   bool
	EnableBasic       bool

	RemoteMinConfidence    float64
	ObjectMinConfidence    float64
	HeuristicMinConfidence float64
	BasicMinConfidence     float64

	ServiceAddr string
}

type GuidanceConfig struct {
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

type SamplerConfig struct {
	Period          time.Duration
	ErrorPeriod     time.Duration
	MemoryThreshold float64
}

type CaptureConfig struct {
	Mode     string
	Headless bool
	StartURL string
	FilePath string
}

type ServerConfig struct {
	Addr string
}

type LogConfig struct {
	Dir     string
	Level   string
	Console bool
}

func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider:    ProviderOpenRouter,
			BaseURL:     "https://openrouter.ai/api/v1",
			Model:       "openai/gpt-4o-mini",
			GeminiModel: "gemini-1.5-flash",
			MaxRetries:  2,
			CacheTTL:    2 * time.Minute,
		},
		Detection: DetectionConfig{
			RemoteURL:        "http://localhost:8000",
			RemoteTimeout:    6 * time.Second,
			RequestFloor:     0.5,
			MaxDetections:    10,
			BreakerThreshold: 3,
			BreakerReset:     30 * time.Second,

			ObjectModelTimeout: 3 * time.Second,

			EnableRemote:      true,
			EnableObjectModel: true,
			EnableHeuristic:   true,
			EnableBasic:       true,

			RemoteMinConfidence:    0.5,
			ObjectMinConfidence:    0.3,
			HeuristicMinConfidence: 0.5,
			BasicMinConfidence:     0.3,

			ServiceAddr: ":8000",
		},
		Guidance: GuidanceConfig{
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
		},
		Sampler: SamplerConfig{
			Period:          5 * time.Second,
			ErrorPeriod:     10 * time.Second,
			MemoryThreshold: 80,
		},
		Capture: CaptureConfig{
			Mode:     CaptureBrowser,
			StartURL: "about:blank",
		},
		Log: LogConfig{
			Dir:   "log",
			Level: "info",
		},
	}
}

// Load overlays environment values on top of Default.
func Load(src output.ConfigPort) (Config, error) {
	cfg := Default()

	cfg.LLM.Provider = src.GetWithDefault("LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.APIKey = src.Get("OPENROUTER_API_KEY")
	cfg.LLM.Model = src.GetWithDefault("OPENROUTER_MODEL_NAME", cfg.LLM.Model)
	cfg.LLM.BaseURL = src.GetWithDefault("OPENROUTER_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.GeminiAPIKey = src.Get("GOOGLE_API_KEY")
	cfg.LLM.GeminiModel = src.GetWithDefault("GEMINI_MODEL_NAME", cfg.LLM.GeminiModel)
	cfg.LLM.MaxRetries = uint(src.GetInt("LLM_MAX_RETRIES", int(cfg.LLM.MaxRetries)))
	cfg.LLM.CacheTTL = src.GetDuration("LLM_CACHE_TTL", cfg.LLM.CacheTTL)
	cfg.LLM.LogHTTP = src.GetBool("LLM_LOG_HTTP", cfg.LLM.LogHTTP)

	d := &cfg.Detection
	d.RemoteURL = src.GetWithDefault("DETECTION_SERVICE_URL", d.RemoteURL)
	d.RemoteTimeout = src.GetDuration("DETECTION_SERVICE_TIMEOUT", d.RemoteTimeout)
	d.RequestFloor = src.GetFloat("DETECTION_CONFIDENCE", d.RequestFloor)
	d.MaxDetections = src.GetInt("DETECTION_MAX_RESULTS", d.MaxDetections)
	d.BreakerThreshold = src.GetInt("DETECTION_BREAKER_THRESHOLD", d.BreakerThreshold)
	d.BreakerReset = src.GetDuration("DETECTION_BREAKER_RESET", d.BreakerReset)
	d.ObjectModelURL = src.GetWithDefault("DETECTION_OBJECT_MODEL_URL", d.ObjectModelURL)
	d.ObjectModelTimeout = src.GetDuration("DETECTION_OBJECT_MODEL_TIMEOUT", d.ObjectModelTimeout)
	d.EnableRemote = src.GetBool("DETECTION_REMOTE_ENABLED", d.EnableRemote)
	d.EnableObjectModel = src.GetBool("DETECTION_OBJECT_ENABLED", d.EnableObjectModel)
	d.EnableHeuristic = src.GetBool("DETECTION_HEURISTIC_ENABLED", d.EnableHeuristic)
	d.EnableBasic = src.GetBool("DETECTION_BASIC_ENABLED", d.EnableBasic)
	d.RemoteMinConfidence = src.GetFloat("DETECTION_REMOTE_MIN_CONFIDENCE", d.RemoteMinConfidence)
	d.ObjectMinConfidence = src.GetFloat("DETECTION_OBJECT_MIN_CONFIDENCE", d.ObjectMinConfidence)
	d.HeuristicMinConfidence = src.GetFloat("DETECTION_HEURISTIC_MIN_CONFIDENCE", d.HeuristicMinConfidence)
	d.BasicMinConfidence = src.GetFloat("DETECTION_BASIC_MIN_CONFIDENCE", d.BasicMinConfidence)
	d.ServiceAddr = src.GetWithDefault("DETECTION_SERVICE_ADDR", d.ServiceAddr)

	g := &cfg.Guidance
	g.WatchdogTimeout = src.GetDuration("GUIDANCE_WATCHDOG_TIMEOUT", g.WatchdogTimeout)
	g.RecoveryBackoff = src.GetDuration("GUIDANCE_RECOVERY_BACKOFF", g.RecoveryBackoff)
	g.RestartDelay = src.GetDuration("GUIDANCE_RESTART_DELAY", g.RestartDelay)
	g.HelpResumeDelay = src.GetDuration("GUIDANCE_HELP_RESUME_DELAY", g.HelpResumeDelay)
	g.CallTimeout = src.GetDuration("GUIDANCE_CALL_TIMEOUT", g.CallTimeout)
	g.UICap = src.GetInt("GUIDANCE_UI_CAP", g.UICap)
	g.MaxRecoveries = src.GetInt("GUIDANCE_MAX_RECOVERIES", g.MaxRecoveries)
	g.MediumLoadPercent = src.GetFloat("GUIDANCE_MEDIUM_LOAD_PERCENT", g.MediumLoadPercent)
	g.HighLoadPercent = src.GetFloat("GUIDANCE_HIGH_LOAD_PERCENT", g.HighLoadPercent)

	cfg.Sampler.Period = src.GetDuration("SAMPLER_PERIOD", cfg.Sampler.Period)
	cfg.Sampler.ErrorPeriod = src.GetDuration("SAMPLER_ERROR_PERIOD", cfg.Sampler.ErrorPeriod)
	cfg.Sampler.MemoryThreshold = src.GetFloat("SAMPLER_MEMORY_THRESHOLD", cfg.Sampler.MemoryThreshold)

	cfg.Capture.Mode = src.GetWithDefault("CAPTURE_MODE", cfg.Capture.Mode)
	cfg.Capture.Headless = src.GetBool("BROWSER_HEADLESS", cfg.Capture.Headless)
	cfg.Capture.StartURL = src.GetWithDefault("BROWSER_START_URL", cfg.Capture.StartURL)
	cfg.Capture.FilePath = src.Get("CAPTURE_FILE")

	cfg.Server.Addr = src.Get("STATUS_ADDR")

	cfg.Log.Dir = src.GetWithDefault("LOG_DIR", cfg.Log.Dir)
	cfg.Log.Level = src.GetWithDefault("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Console = src.GetBool("LOG_CONSOLE", cfg.Log.Console)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var ErrInvalidConfig = errors.New("invalid config")

func (c Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderOpenRouter, ProviderGemini:
	default:
		return fmt.Errorf("%w: unknown LLM provider %q", ErrInvalidConfig, c.LLM.Provider)
	}
	switch c.Capture.Mode {
	case CaptureBrowser:
	case CaptureFile:
		if c.Capture.FilePath == "" {
			return fmt.Errorf("%w: CAPTURE_FILE is required in file mode", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown capture mode %q", ErrInvalidConfig, c.Capture.Mode)
	}
	if c.Detection.MaxDetections <= 0 {
		return fmt.Errorf("%w: max detections must be positive", ErrInvalidConfig)
	}
	if c.Guidance.UICap <= 0 {
		return fmt.Errorf("%w: UI cap must be positive", ErrInvalidConfig)
	}
	if c.Guidance.MediumLoadPercent > c.Guidance.HighLoadPercent {
		return fmt.Errorf("%w: medium load threshold above high threshold", ErrInvalidConfig)
	}
	if c.Detection.RemoteTimeout >= c.Guidance.WatchdogTimeout {
		return fmt.Errorf("%w: remote detection timeout must be below the watchdog", ErrInvalidConfig)
	}
	return nil
}
