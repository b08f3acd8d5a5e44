package entity

import (
	"errors"
	"fmt"
	"image"
	"strings"
)

type ElementKind string

const (
	KindButton        ElementKind = "button"
	KindTextField     ElementKind = "text_field"
	KindIcon          ElementKind = "icon"
	KindLink          ElementKind = "link"
	KindWindowControl ElementKind = "window_control"
	KindGeneric       ElementKind = "generic"
)

func (k ElementKind) Valid() bool {
	switch k {
	case KindButton, KindTextField, KindIcon, KindLink, KindWindowControl, KindGeneric:
		return true
	}
	return false
}

// PriorityWeight ranks element kinds when merging candidates of one tier.
func (k ElementKind) PriorityWeight() float64 {
	switch k {
	case KindButton:
		return 5
	case KindTextField:
		return 4
	case KindWindowControl:
		return 3
	case KindLink:
		return 2
	case KindIcon:
		return 1
	default:
		return 0.5
	}
}

// KindFromLabel infers the element kind from a free-form detector label.
func KindFromLabel(label string) ElementKind {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "close"), strings.Contains(l, "minimize"), strings.Contains(l, "maximize"), strings.Contains(l, "window_control"):
		return KindWindowControl
	case strings.Contains(l, "text"), strings.Contains(l, "input"), strings.Contains(l, "field"), strings.Contains(l, "address"), strings.Contains(l, "search"):
		return KindTextField
	case strings.Contains(l, "button"):
		return KindButton
	case strings.Contains(l, "link"):
		return KindLink
	case strings.Contains(l, "icon"):
		return KindIcon
	}
	return KindGeneric
}

var (
	ErrEmptyLabel      = errors.New("detection label is empty")
	ErrInvalidBox      = errors.New("detection box is degenerate")
	ErrConfidenceRange = errors.New("detection confidence out of range")
	ErrUnknownKind     = errors.New("detection kind is unknown")
)

// Detection is one UI element found in a captured frame. Box is in capture
// coordinates with Min as the top-left and Max as the bottom-right corner.
type Detection struct {
	ID         string
	Label      string
	Box        image.Rectangle
	Action     string
	Confidence float64
	Kind       ElementKind
}

func (d Detection) Validate() error {
	if strings.TrimSpace(d.Label) == "" {
		return ErrEmptyLabel
	}
	if d.Box.Min.X >= d.Box.Max.X || d.Box.Min.Y >= d.Box.Max.Y {
		return fmt.Errorf("%w: %v", ErrInvalidBox, d.Box)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("%w: %.3f", ErrConfidenceRange, d.Confidence)
	}
	if !d.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, d.Kind)
	}
	return nil
}

func (d Detection) Score() float64 {
	return d.Kind.PriorityWeight() * d.Confidence
}

// IoU returns the intersection-over-union of two boxes in [0, 1].
func IoU(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	ia := area(inter)
	union := area(a) + area(b) - ia
	if union <= 0 {
		return 0
	}
	return float64(ia) / float64(union)
}

func area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}

const DefaultMaxDetections = 10

// DetectionSet is an ordered, deduplicated collection of detections.
type DetectionSet []Detection

func (s DetectionSet) Cap(n int) DetectionSet {
	if n < 0 || len(s) <= n {
		return s
	}
	return s[:n]
}

func (s DetectionSet) Find(id string) (Detection, bool) {
	for _, d := range s {
		if d.ID == id {
			return d, true
		}
	}
	return Detection{}, false
}

// Summary renders the set for the assistant prompt. Only the first five
// elements are listed.
func (s DetectionSet) Summary() string {
	if len(s) == 0 {
		return "No elements are highlighted on the screen."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "I can see %d highlighted elements on the screen:\n", len(s))
	for i, d := range s {
		if i == 5 {
			fmt.Fprintf(&b, "...and %d more elements\n", len(s)-5)
			break
		}
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, d.Label, d.Action)
	}
	b.WriteString("\nWhich highlighted element should be clicked next?")
	return b.String()
}
