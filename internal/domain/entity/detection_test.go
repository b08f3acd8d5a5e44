package entity

import (
	"fmt"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetection_Validate(t *testing.T) {
	valid := Detection{Label: "Save", Box: image.Rect(0, 0, 10, 10), Confidence: 0.7, Kind: KindButton}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Detection)
		want   error
	}{
		{"empty label", func(d *Detection) { d.Label = "  " }, ErrEmptyLabel},
		{"zero width", func(d *Detection) { d.Box = image.Rect(5, 0, 5, 10) }, ErrInvalidBox},
		{"confidence above one", func(d *Detection) { d.Confidence = 1.2 }, ErrConfidenceRange},
		{"negative confidence", func(d *Detection) { d.Confidence = -0.1 }, ErrConfidenceRange},
		{"unknown kind", func(d *Detection) { d.Kind = "slider" }, ErrUnknownKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid
			tt.mutate(&d)
			assert.ErrorIs(t, d.Validate(), tt.want)
		})
	}
}

func TestKindFromLabel(t *testing.T) {
	tests := map[string]ElementKind{
		"Close":         KindWindowControl,
		"search box":    KindTextField,
		"Address bar":   KindTextField,
		"Submit Button": KindButton,
		"help link":     KindLink,
		"gear icon":     KindIcon,
		"OK":            KindGeneric,
	}
	for label, want := range tests {
		assert.Equal(t, want, KindFromLabel(label), label)
	}
}

func TestScore_RanksByKindThenConfidence(t *testing.T) {
	button := Detection{Kind: KindButton, Confidence: 0.5}
	icon := Detection{Kind: KindIcon, Confidence: 0.9}
	assert.Greater(t, button.Score(), icon.Score())
	assert.InDelta(t, 2.5, button.Score(), 1e-9)
	assert.InDelta(t, 0.25, Detection{Kind: KindGeneric, Confidence: 0.5}.Score(), 1e-9)
}

func TestIoU(t *testing.T) {
	a := image.Rect(0, 0, 10, 10)
	assert.InDelta(t, 1.0, IoU(a, a), 1e-9)
	assert.InDelta(t, 0.0, IoU(a, image.Rect(20, 20, 30, 30)), 1e-9)
	// 5x10 overlap over 150 union.
	assert.InDelta(t, 50.0/150.0, IoU(a, image.Rect(5, 0, 15, 10)), 1e-9)
	assert.InDelta(t, 0.0, IoU(a, image.Rect(10, 0, 20, 10)), 1e-9)
}

func TestDetectionSet_CapAndFind(t *testing.T) {
	set := DetectionSet{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	assert.Len(t, set.Cap(2), 2)
	assert.Len(t, set.Cap(5), 3)

	d, ok := set.Find("b")
	assert.True(t, ok)
	assert.Equal(t, "b", d.ID)
	_, ok = set.Find("z")
	assert.False(t, ok)
}

func TestDetectionSet_Summary(t *testing.T) {
	assert.Equal(t, "No elements are highlighted on the screen.", DetectionSet{}.Summary())

	var set DetectionSet
	for i := 0; i < 7; i++ {
		set = append(set, Detection{Label: fmt.Sprintf("E%d", i), Action: fmt.Sprintf("Click E%d", i)})
	}
	s := set.Summary()
	assert.Contains(t, s, "I can see 7 highlighted elements on the screen:")
	assert.Contains(t, s, "1. E0 - Click E0")
	assert.Contains(t, s, "5. E4 - Click E4")
	assert.NotContains(t, s, "E5 - ")
	assert.Contains(t, s, "...and 2 more elements")
	assert.Contains(t, s, "Which highlighted element should be clicked next?")
}
