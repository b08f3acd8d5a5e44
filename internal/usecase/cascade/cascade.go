package cascade

import (
	"context"
	"fmt"
	"image"
	"sort"
	"strings"
	"time"

	"screen-guide/internal/application/port/output"
	"screen-guide/internal/domain/entity"
)

type TierClass string

const (
	Learned   TierClass = "learned"
	Heuristic TierClass = "heuristic"
)

// DedupThreshold is the IoU at or above which two candidates of one tier
// are considered the same element.
func (c TierClass) DedupThreshold() float64 {
	if c == Learned {
		return 0.5
	}
	return 0.3
}

type Tier struct {
	Detector      output.Detector
	Class         TierClass
	MinConfidence float64
}

// Recorder receives per-tier outcomes. Implementations must be safe for
// concurrent use.
type Recorder interface {
	TierHit(tier string, count int, elapsed time.Duration)
	TierEmpty(tier string, elapsed time.Duration)
	TierFailed(tier string, elapsed time.Duration)
}

type Result struct {
	Set  entity.DetectionSet
	Tier string
}

type Config struct {
	MaxResults int
}

func DefaultConfig() Config {
	return Config{MaxResults: entity.DefaultMaxDetections}
}

// Cascade asks tiers in priority order and returns the first non-empty
// merged result.
type Cascade struct {
	tiers    []Tier
	cfg      Config
	logger   output.LoggerPort
	recorder Recorder
}

func New(tiers []Tier, cfg Config, logger output.LoggerPort, recorder Recorder) *Cascade {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = entity.DefaultMaxDetections
	}
	return &Cascade{
		tiers:    tiers,
		cfg:      cfg,
		logger:   logger.WithField("component", "cascade"),
		recorder: recorder,
	}
}

func (c *Cascade) TierNames() []string {
	names := make([]string, 0, len(c.tiers))
	for _, t := range c.tiers {
		names = append(names, t.Detector.Name())
	}
	return names
}

// Detect never fails: tier errors and panics count as empty tiers, and
// exhausting every tier yields an empty set.
func (c *Cascade) Detect(ctx context.Context, img image.Image) Result {
	for _, tier := range c.tiers {
		if ctx.Err() != nil {
			c.logger.Warn("Detection abandoned", "error", ctx.Err())
			return Result{}
		}

		name := tier.Detector.Name()
		start := time.Now()
		raw, err := c.runTier(ctx, tier, img)
		elapsed := time.Since(start)
		if err != nil {
			c.logger.Warn("Detection tier failed", "tier", name, "error", err, "elapsed", elapsed.String())
			c.recordFailed(name, elapsed)
			continue
		}

		set := c.merge(tier, raw)
		if len(set) == 0 {
			c.logger.Debug("Detection tier empty", "tier", name, "raw", len(raw))
			c.recordEmpty(name, elapsed)
			continue
		}

		for i := range set {
			set[i].ID = fmt.Sprintf("detection_%d", i)
		}
		c.logger.Info("Detection tier hit", "tier", name, "count", len(set), "elapsed", elapsed.String())
		c.recordHit(name, len(set), elapsed)
		return Result{Set: set, Tier: name}
	}

	c.logger.Info("All detection tiers empty")
	return Result{}
}

func (c *Cascade) runTier(ctx context.Context, tier Tier, img image.Image) (dets []entity.Detection, err error) {
	defer func() {
		if r := recover(); r != nil {
			dets = nil
			err = fmt.Errorf("tier %s panic: %v", tier.Detector.Name(), r)
		}
	}()
	return tier.Detector.Detect(ctx, img, tier.MinConfidence, c.cfg.MaxResults)
}

// merge validates, filters by the tier floor, ranks by priority weight times
// confidence, removes overlaps and truncates.
func (c *Cascade) merge(tier Tier, raw []entity.Detection) entity.DetectionSet {
	candidates := make([]entity.Detection, 0, len(raw))
	for _, d := range raw {
		if d.Kind == "" {
			d.Kind = entity.KindFromLabel(d.Label)
		}
		if strings.TrimSpace(d.Action) == "" {
			d.Action = "Click " + d.Label
		}
		if err := d.Validate(); err != nil {
			c.logger.Warn("Dropping malformed detection", "tier", tier.Detector.Name(), "label", d.Label, "error", err)
			continue
		}
		if d.Confidence < tier.MinConfidence {
			continue
		}
		candidates = append(candidates, d)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := candidates[i].Score(), candidates[j].Score()
		if si != sj {
			return si > sj
		}
		return candidates[i].Confidence > candidates[j].Confidence
	})

	threshold := tier.Class.DedupThreshold()
	kept := make(entity.DetectionSet, 0, len(candidates))
	for _, cand := range candidates {
		dup := false
		for _, k := range kept {
			if entity.IoU(cand.Box, k.Box) >= threshold {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		kept = append(kept, cand)
		if len(kept) == c.cfg.MaxResults {
			break
		}
	}
	return kept
}

func (c *Cascade) recordHit(tier string, n int, d time.Duration) {
	if c.recorder != nil {
		c.recorder.TierHit(tier, n, d)
	}
}

func (c *Cascade) recordEmpty(tier string, d time.Duration) {
	if c.recorder != nil {
		c.recorder.TierEmpty(tier, d)
	}
}

func (c *Cascade) recordFailed(tier string, d time.Duration) {
	if c.recorder != nil {
		c.recorder.TierFailed(tier, d)
	}
}
