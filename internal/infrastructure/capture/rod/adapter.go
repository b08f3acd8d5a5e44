package rod

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"screen-guide/internal/application/port/output"
	"screen-guide/internal/infrastructure/capture"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

var _ output.BrowserPort = (*BrowserAdapter)(nil)

const (
	defaultTimeout = 10 * time.Second
	defaultQuality = 90
)

// BrowserAdapter captures the viewport of a rod-driven browser page.
type BrowserAdapter struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page
	timeout  time.Duration
	quality  int

	mu     sync.Mutex
	closed bool
}

type BrowserConfig struct {
	Headless  bool
	NoSandbox bool
	Timeout   time.Duration
	StartURL  string
	Quality   int
	Width     int
	Height    int
}

func DefaultConfig() BrowserConfig {
	return BrowserConfig{
		Headless:  false,
		NoSandbox: false,
		Timeout:   defaultTimeout,
		StartURL:  "about:blank",
		Quality:   defaultQuality,
		Width:     1280,
		Height:    800,
	}
}

func NewBrowserAdapter(ctx context.Context, cfg BrowserConfig) (*BrowserAdapter, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = defaultQuality
	}
	if cfg.StartURL == "" {
		cfg.StartURL = "about:blank"
	}

	l := launcher.New().
		Context(ctx).
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox).
		Delete("use-mock-keychain")

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: cfg.StartURL})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	if cfg.Width > 0 && cfg.Height > 0 {
		err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             cfg.Width,
			Height:            cfg.Height,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			_ = browser.Close()
			l.Kill()
			return nil, fmt.Errorf("failed to set viewport: %w", err)
		}
	}

	return &BrowserAdapter{
		browser:  browser,
		launcher: l,
		page:     page,
		timeout:  cfg.Timeout,
		quality:  cfg.Quality,
	}, nil
}

func (b *BrowserAdapter) Navigate(ctx context.Context, url string) error {
	page, err := b.livePage(ctx)
	if err != nil {
		return err
	}
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load failed: %w", err)
	}
	return nil
}

// Capture takes a viewport screenshot and decodes it.
func (b *BrowserAdapter) Capture(ctx context.Context) (image.Image, error) {
	page, err := b.livePage(ctx)
	if err != nil {
		return nil, err
	}

	data, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: gson.Int(b.quality),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w: %w", capture.ErrNoFrame, err)
	}
	return capture.Decode(data)
}

func (b *BrowserAdapter) CurrentURL() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ""
	}
	info, err := b.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (b *BrowserAdapter) IsReady() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.closed && b.page != nil
}

func (b *BrowserAdapter) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	if b.browser != nil {
		_ = b.browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher.Cleanup()
	}
}

func (b *BrowserAdapter) livePage(ctx context.Context) (*rod.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, fmt.Errorf("browser closed: %w", capture.ErrNoFrame)
	}
	return b.page.Context(ctx).Timeout(b.timeout), nil
}
