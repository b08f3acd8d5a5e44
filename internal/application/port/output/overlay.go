package output

import "screen-guide/internal/domain/entity"

// OverlayPort renders highlight regions over the screen. Clicks on a region
// are reported back through input.GuidanceController.HandleClick.
type OverlayPort interface {
	Show(set entity.DetectionSet, instruction string) error
	Hide(id string) error
	HideAll() error
	ShowNotice(text string) error
}
