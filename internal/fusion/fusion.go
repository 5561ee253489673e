// Package fusion combines per-modality labels into a final label.
package fusion

import "disaster-classifier/internal/models"

// Fuse applies the late-fusion OR rule. Absent labels count as not
// informative, so Fuse("", "") is LabelNotInformative.
func Fuse(text, image models.Label) models.Label {
	if text.IsInformative() || image.IsInformative() {
		return models.LabelInformative
	}
	return models.LabelNotInformative
}
