// Package safety derives the engine's own verdict on the path ahead and
// vets generated text against it.
package safety

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/avvvet/sightline/internal/models"
)

const (
	// CenterThresholdMeters bounds a center hazard
	CenterThresholdMeters = 3.0
	// SideThresholdMeters bounds a near-side object
	SideThresholdMeters = 2.5
	// crowdLimit is the relevant-object count above which the path is crowded
	crowdLimit = 3
	// namedHazards caps how many objects a phrase names
	namedHazards = 2
)

// Buckets splits detections into the near sets the verdict is built from.
type Buckets struct {
	Center []models.DetectedObject
	Left   []models.DetectedObject
	Right  []models.DetectedObject
}

// Relevant returns center, left and right objects in that order.
func (b Buckets) Relevant() []models.DetectedObject {
	out := make([]models.DetectedObject, 0, len(b.Center)+len(b.Left)+len(b.Right))
	out = append(out, b.Center...)
	out = append(out, b.Left...)
	return append(out, b.Right...)
}

// Split buckets objects by position and distance.
func Split(objects []models.DetectedObject) Buckets {
	var b Buckets
	for _, o := range objects {
		switch {
		case IsCenterHazard(o):
			b.Center = append(b.Center, o)
		case o.Position == models.PositionLeft && o.DistanceMeters < SideThresholdMeters:
			b.Left = append(b.Left, o)
		case o.Position == models.PositionRight && o.DistanceMeters < SideThresholdMeters:
			b.Right = append(b.Right, o)
		}
	}
	return b
}

// IsCenterHazard reports whether o is directly ahead within the danger threshold.
func IsCenterHazard(o models.DetectedObject) bool {
	return o.Position == models.PositionCenter && o.DistanceMeters < CenterThresholdMeters
}

// CenterHazards returns the near-center subset of objects.
func CenterHazards(objects []models.DetectedObject) []models.DetectedObject {
	return Split(objects).Center
}

// Analyze turns one frame of detections into a verdict. Center hazards
// dominate crowding, crowding dominates a narrow passage.
func Analyze(objects []models.DetectedObject) models.SafetyVerdict {
	b := Split(objects)
	relevant := b.Relevant()

	verdict := models.SafetyVerdict{HazardObjects: relevant}

	switch {
	case len(b.Center) > 0:
		verdict.Status = models.StatusDanger
		verdict.Summary = fmt.Sprintf("DANGER: %s blocking path at %sm",
			strings.Join(names(b.Center, namedHazards), ", "),
			formatMeters(minDistance(b.Center)))
	case len(relevant) > crowdLimit:
		verdict.Status = models.StatusCaution
		verdict.Summary = fmt.Sprintf("CAUTION: Multiple nearby objects (%d total)", len(relevant))
	case len(b.Left) > 0 && len(b.Right) > 0:
		verdict.Status = models.StatusNarrow
		verdict.Summary = "NARROW: Objects on both sides"
	case len(relevant) > 0:
		verdict.Status = models.StatusCaution
		verdict.Summary = "Path appears navigable with caution"
	default:
		verdict.Status = models.StatusClear
		verdict.Summary = "Path appears clear within 3 meters"
	}

	return verdict
}

// Crowded reports whether a verdict is a CAUTION caused by too many nearby objects.
func Crowded(v models.SafetyVerdict) bool {
	return v.Status == models.StatusCaution && len(v.HazardObjects) > crowdLimit
}

func names(objects []models.DetectedObject, limit int) []string {
	if len(objects) < limit {
		limit = len(objects)
	}
	out := make([]string, 0, limit)
	for _, o := range objects[:limit] {
		out = append(out, o.Name)
	}
	return out
}

func minDistance(objects []models.DetectedObject) float64 {
	lowest := objects[0].DistanceMeters
	for _, o := range objects[1:] {
		if o.DistanceMeters < lowest {
			lowest = o.DistanceMeters
		}
	}
	return lowest
}

func formatMeters(d float64) string {
	return strconv.FormatFloat(d, 'f', -1, 64)
}
