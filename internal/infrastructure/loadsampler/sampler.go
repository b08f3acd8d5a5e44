// Package loadsampler samples CPU and memory load in the background. Readers
// see the latest sample through atomic cells and never block.
package loadsampler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime/debug"
	"sync/atomic"
	"time"

	"screen-guide/internal/application/port/output"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

var _ output.LoadSampler = (*Sampler)(nil)

// Observer is told about every successful sample.
type Observer interface {
	LoadSampled(cpuPercent, memPercent float64)
}

type Config struct {
	Period          time.Duration
	ErrorPeriod     time.Duration
	CPUWindow       time.Duration
	MemoryThreshold float64
	InitialLoad     float64
}

func DefaultConfig() Config {
	return Config{
		Period:          5 * time.Second,
		ErrorPeriod:     10 * time.Second,
		CPUWindow:       time.Second,
		MemoryThreshold: 80,
		InitialLoad:     50,
	}
}

type Sampler struct {
	cfg      Config
	logger   output.LoggerPort
	observer Observer

	cpu     atomic.Uint64
	mem     atomic.Uint64
	sampled atomic.Bool

	readCPU    func(ctx context.Context) (float64, error)
	readMemory func(ctx context.Context) (float64, error)
	freeMemory func()
}

func New(cfg Config, logger output.LoggerPort, observer Observer) *Sampler {
	s := &Sampler{
		cfg:        cfg,
		logger:     logger.WithField("component", "loadsampler"),
		observer:   observer,
		freeMemory: debug.FreeOSMemory,
	}
	s.readCPU = s.systemCPU
	s.readMemory = systemMemory
	return s
}

// CurrentLoadPercent returns the latest CPU sample, or the configured
// initial load before the first sample lands.
func (s *Sampler) CurrentLoadPercent() float64 {
	if !s.sampled.Load() {
		return s.cfg.InitialLoad
	}
	return math.Float64frombits(s.cpu.Load())
}

func (s *Sampler) MemoryPercent() float64 {
	return math.Float64frombits(s.mem.Load())
}

// Run samples until ctx is done.
func (s *Sampler) Run(ctx context.Context) error {
	for {
		delay := s.cfg.Period
		if err := s.sample(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Warn("Load sample failed", "error", err)
			delay = s.cfg.ErrorPeriod
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (s *Sampler) sample(ctx context.Context) error {
	cpuPct, cpuErr := s.readCPU(ctx)
	memPct, memErr := s.readMemory(ctx)
	if err := errors.Join(cpuErr, memErr); err != nil {
		return err
	}

	s.cpu.Store(math.Float64bits(cpuPct))
	s.mem.Store(math.Float64bits(memPct))
	s.sampled.Store(true)

	if s.observer != nil {
		s.observer.LoadSampled(cpuPct, memPct)
	}

	if memPct > s.cfg.MemoryThreshold {
		s.logger.Info("Memory above threshold, releasing memory", "memoryPercent", memPct)
		s.freeMemory()
	}
	return nil
}

func (s *Sampler) systemCPU(ctx context.Context) (float64, error) {
	pcts, err := cpu.PercentWithContext(ctx, s.cfg.CPUWindow, false)
	if err != nil {
		return 0, fmt.Errorf("cpu percent: %w", err)
	}
	if len(pcts) == 0 {
		return 0, errors.New("cpu percent: no data")
	}
	return pcts[0], nil
}

func systemMemory(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("virtual memory: %w", err)
	}
	return vm.UsedPercent, nil
}
