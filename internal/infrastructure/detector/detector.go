// Package detector holds helpers shared by the detector implementations.
package detector

import (
	"fmt"
	"image"
	"runtime/debug"
	"sort"

	"screen-guide/internal/domain/entity"
)

// Safely runs fn and turns a panic into an error so one bad frame cannot
// take down the caller.
func Safely(name string, fn func() ([]entity.Detection, error)) (dets []entity.Detection, err error) {
	defer func() {
		if r := recover(); r != nil {
			dets = nil
			err = fmt.Errorf("%s detector panic: %v\n%s", name, r, debug.Stack())
		}
	}()
	return fn()
}

// OverlapOfSmaller is the intersection area divided by the smaller box area.
func OverlapOfSmaller(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	smaller := min(a.Dx()*a.Dy(), b.Dx()*b.Dy())
	if smaller <= 0 {
		return 0
	}
	return float64(inter.Dx()*inter.Dy()) / float64(smaller)
}

// Suppress keeps detections in the given order, dropping any whose overlap
// with an already kept one exceeds threshold.
func Suppress(dets []entity.Detection, threshold float64, overlap func(a, b image.Rectangle) float64) []entity.Detection {
	kept := make([]entity.Detection, 0, len(dets))
	for _, d := range dets {
		dup := false
		for _, k := range kept {
			if overlap(d.Box, k.Box) > threshold {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, d)
		}
	}
	return kept
}

func SortByConfidence(dets []entity.Detection) {
	sort.SliceStable(dets, func(i, j int) bool {
		return dets[i].Confidence > dets[j].Confidence
	})
}

func SortByScore(dets []entity.Detection) {
	sort.SliceStable(dets, func(i, j int) bool {
		return dets[i].Score() > dets[j].Score()
	})
}

func FilterConfidence(dets []entity.Detection, minConfidence float64) []entity.Detection {
	out := dets[:0]
	for _, d := range dets {
		if d.Confidence >= minConfidence {
			out = append(out, d)
		}
	}
	return out
}

func Limit(dets []entity.Detection, n int) []entity.Detection {
	if n > 0 && len(dets) > n {
		return dets[:n]
	}
	return dets
}
