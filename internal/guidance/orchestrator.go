// Package guidance decides what to announce for each frame of an active
// route and turns that decision into a vetted utterance.
package guidance

import (
	"strings"

	"github.com/avvvet/sightline/internal/models"
	"github.com/avvvet/sightline/internal/route"
	"github.com/avvvet/sightline/internal/safety"
)

// Guide evaluates one frame against a session snapshot. It never advances
// the route and never mutates the session; a center hazard overrides the
// planned step for this cycle only.
func Guide(objects []models.DetectedObject, session route.Session) models.GuidanceDecision {
	verdict := safety.Analyze(objects)

	if !session.Active {
		return models.GuidanceDecision{
			AnnouncedStep: models.ActionStop,
			NarrationHint: route.NotActiveStep.Description,
			Description:   route.NotActiveStep.Description,
			Verdict:       verdict,
		}
	}

	step, _ := session.CurrentInstruction()
	decision := models.GuidanceDecision{
		AnnouncedStep: step.Action,
		Description:   step.Description,
		StepIndex:     session.StepIndex,
		FinalStep:     session.Final(),
		Verdict:       verdict,
	}

	if verdict.Status == models.StatusDanger {
		decision.AnnouncedStep = models.ActionStop
		decision.SafetyOverride = true
	}

	decision.NarrationHint = narrationHint(step, verdict, objects)
	return decision
}

// narrationHint joins the planned step, the safety summary and the near
// side objects, e.g. "Turn left at the corner; NARROW: Objects on both
// sides; left: bench; right: door".
func narrationHint(step models.RouteStep, verdict models.SafetyVerdict, objects []models.DetectedObject) string {
	parts := []string{step.Description, verdict.Summary}

	if verdict.Status != models.StatusClear {
		b := safety.Split(objects)
		if len(b.Left) > 0 {
			parts = append(parts, "left: "+joinNames(b.Left))
		}
		if len(b.Right) > 0 {
			parts = append(parts, "right: "+joinNames(b.Right))
		}
	}

	return strings.Join(parts, "; ")
}

func joinNames(objects []models.DetectedObject) string {
	names := make([]string, len(objects))
	for i, o := range objects {
		names[i] = o.Name
	}
	return strings.Join(names, ", ")
}
