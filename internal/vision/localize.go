// Package vision adapts localized object annotations into detections.
package vision

import (
	"strings"

	"github.com/avvvet/sightline/internal/models"
)

// Distances estimated from normalized box height
const (
	nearMeters    = 1.0
	midMeters     = 2.0
	farMeters     = 4.0
	unknownMeters = 3.0
)

// Localizer drops weak detections and buckets the rest
type Localizer struct {
	MinConfidence float64
}

func NewLocalizer(minConfidence float64) *Localizer {
	return &Localizer{MinConfidence: minConfidence}
}

// Localize converts annotations in frame order. Unnamed annotations are skipped.
func (l *Localizer) Localize(annotations []models.Annotation) []models.DetectedObject {
	objects := make([]models.DetectedObject, 0, len(annotations))
	for _, a := range annotations {
		name := strings.ToLower(strings.TrimSpace(a.Name))
		if name == "" || a.Score < l.MinConfidence {
			continue
		}
		objects = append(objects, models.NewDetectedObject(
			name,
			a.Score,
			Position(a.Box),
			Distance(a.Box),
		))
	}
	return objects
}

// Position buckets a box by the mean x of its vertices
func Position(box models.BoundingBox) models.Position {
	if len(box.Vertices) == 0 {
		return models.PositionUnknown
	}

	var sum float64
	for _, v := range box.Vertices {
		sum += v.X
	}
	x := sum / float64(len(box.Vertices))

	switch {
	case x < 0.33:
		return models.PositionLeft
	case x < 0.66:
		return models.PositionCenter
	default:
		return models.PositionRight
	}
}

// Distance is a coarse estimate: taller boxes are closer
func Distance(box models.BoundingBox) float64 {
	if len(box.Vertices) == 0 {
		return unknownMeters
	}

	top, bottom := box.Vertices[0].Y, box.Vertices[0].Y
	for _, v := range box.Vertices[1:] {
		if v.Y < top {
			top = v.Y
		}
		if v.Y > bottom {
			bottom = v.Y
		}
	}

	switch height := bottom - top; {
	case height > 0.4:
		return nearMeters
	case height > 0.2:
		return midMeters
	default:
		return farMeters
	}
}
