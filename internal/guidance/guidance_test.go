package guidance

import (
	"context"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/avvvet/sightline/internal/llm"
	"github.com/avvvet/sightline/internal/memory"
	"github.com/avvvet/sightline/internal/models"
	"github.com/avvvet/sightline/internal/prompts"
	"github.com/avvvet/sightline/internal/route"
	"github.com/avvvet/sightline/internal/safety"
)

func obj(name string, pos models.Position, dist float64) models.DetectedObject {
	return models.NewDetectedObject(name, 0.9, pos, dist)
}

func activeSession(t *testing.T, destination string, advances int) route.Session {
	t.Helper()
	n := route.NewNavigator(route.DefaultTable())
	require.NoError(t, n.Start(destination))
	for i := 0; i < advances; i++ {
		_, err := n.Advance()
		require.NoError(t, err)
	}
	return n.Snapshot()
}

func TestGuide_ClearPathAnnouncesPlannedStep(t *testing.T) {
	d := Guide(nil, activeSession(t, "cafeteria", 0))

	assert.Equal(t, models.ActionForward, d.AnnouncedStep)
	assert.False(t, d.SafetyOverride)
	assert.Equal(t, "Walk straight down the hallway", d.Description)
	assert.Equal(t, "Walk straight down the hallway; Path appears clear within 3 meters", d.NarrationHint)
	assert.Equal(t, models.StatusClear, d.Verdict.Status)
	assert.False(t, d.FinalStep)
}

func TestGuide_CenterHazardOverridesWithoutMutatingSession(t *testing.T) {
	session := activeSession(t, "washroom", 1)
	objects := []models.DetectedObject{obj("person", models.PositionCenter, 0.8)}

	d := Guide(objects, session)

	assert.Equal(t, models.ActionStop, d.AnnouncedStep)
	assert.True(t, d.SafetyOverride)
	assert.Equal(t, 1, d.StepIndex)
	assert.Equal(t, "Turn right at the first intersection", d.Description)

	step, ok := session.CurrentInstruction()
	require.True(t, ok)
	assert.Equal(t, models.ActionRight, step.Action)

	d = Guide(nil, session)
	assert.Equal(t, models.ActionRight, d.AnnouncedStep)
	assert.False(t, d.SafetyOverride)
}

func TestGuide_SideObjectsNamedWhenNotClear(t *testing.T) {
	objects := []models.DetectedObject{
		obj("bench", models.PositionLeft, 1.0),
		obj("door", models.PositionRight, 2.0),
		obj("tree", models.PositionRight, 9.0),
	}
	d := Guide(objects, activeSession(t, "cafeteria", 2))

	assert.Equal(t, models.ActionLeft, d.AnnouncedStep)
	assert.Equal(t, "Turn left at the corner; NARROW: Objects on both sides; left: bench; right: door", d.NarrationHint)
}

func TestGuide_FinalStep(t *testing.T) {
	d := Guide(nil, activeSession(t, "washroom", 10))
	assert.Equal(t, models.ActionStop, d.AnnouncedStep)
	assert.True(t, d.FinalStep)
	assert.False(t, d.SafetyOverride)
}

func TestGuide_Inactive(t *testing.T) {
	d := Guide(nil, route.Session{})
	assert.Equal(t, models.ActionStop, d.AnnouncedStep)
	assert.False(t, d.SafetyOverride)
	assert.Equal(t, "Navigation is not active. Please start a route.", d.NarrationHint)
}

func genObject() gopter.Gen {
	return gopter.CombineGens(
		gen.OneConstOf("chair", "table", "person", "door"),
		gen.OneConstOf(models.PositionLeft, models.PositionCenter, models.PositionRight, models.PositionUnknown),
		gen.Float64Range(0, 6),
	).Map(func(v []interface{}) models.DetectedObject {
		return obj(v[0].(string), v[1].(models.Position), v[2].(float64))
	})
}

// Property: override is set exactly when a center hazard is present
func TestGuideOverrideMatchesCenterHazard(t *testing.T) {
	session := route.NewNavigator(route.DefaultTable())
	require.NoError(t, session.Start("cafeteria"))
	snapshot := session.Snapshot()

	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	properties.Property("override iff center hazard", prop.ForAll(
		func(objects []models.DetectedObject) bool {
			d := Guide(objects, snapshot)
			hazard := len(safety.CenterHazards(objects)) > 0
			if d.SafetyOverride != hazard {
				return false
			}
			if hazard {
				return d.AnnouncedStep == models.ActionStop
			}
			return d.AnnouncedStep == models.ActionForward
		},
		gen.SliceOf(genObject()),
	))
	properties.TestingRun(t)
}

type stubProvider struct {
	content string
	err     error
	calls   int
	prompts []string
}

func (s *stubProvider) Generate(ctx context.Context, request *llm.LLMRequest) (*llm.LLMResponse, error) {
	s.calls++
	s.prompts = append(s.prompts, request.Prompt)
	if s.err != nil {
		return nil, s.err
	}
	return &llm.LLMResponse{Content: s.content}, nil
}

func TestNarrator_FilterOverridesUnsafeText(t *testing.T) {
	p := &stubProvider{content: "Walk forward."}
	n := NewNarrator(p, nil, zap.NewNop())

	objects := []models.DetectedObject{obj("chair", models.PositionCenter, 1.2)}
	text := n.Speak(context.Background(), Utterance{Intent: models.IntentNavigate, Objects: objects})

	assert.Equal(t, "Stop! chair ahead.", text)
}

func TestNarrator_CleansMarkdown(t *testing.T) {
	p := &stubProvider{content: "**Path is clear.** Keep going."}
	n := NewNarrator(p, nil, zap.NewNop())

	text := n.Speak(context.Background(), Utterance{Intent: models.IntentWhatIsAhead})
	assert.Equal(t, "Path is clear. Keep going.", text)
}

func TestNarrator_UnitTokensReplaced(t *testing.T) {
	p := &stubProvider{content: "Door about 2 meters ahead."}
	n := NewNarrator(p, nil, zap.NewNop())

	text := n.Speak(context.Background(), Utterance{Intent: models.IntentWhatIsAhead})
	assert.Equal(t, safety.CautiousPhrase, text)
}

func TestNarrator_Fallbacks(t *testing.T) {
	failing := &stubProvider{err: errors.New("deadline exceeded")}
	hazard := []models.DetectedObject{obj("pillar", models.PositionCenter, 0.5)}
	decision := &models.GuidanceDecision{AnnouncedStep: models.ActionLeft, Description: "Turn left at the corner"}

	tests := []struct {
		name     string
		provider llm.LLMProvider
		u        Utterance
		want     string
	}{
		{"failure with hazard", failing, Utterance{Intent: models.IntentDescribeSurroundings, Objects: hazard}, prompts.HazardFallback},
		{"failure without hazard", failing, Utterance{Intent: models.IntentSafetyCheck}, "Checking safety. Stand still."},
		{"navigate falls back to step", failing, Utterance{Intent: models.IntentNavigate, Decision: decision}, "Turn left at the corner"},
		{"navigate without decision", nil, Utterance{Intent: models.IntentNavigate}, "Wait. Processing path."},
		{"navigate step yields to hazard", nil, Utterance{Intent: models.IntentNavigate, Decision: decision, Objects: hazard}, prompts.HazardFallback},
		{"no provider", nil, Utterance{Intent: models.IntentEmergencyStop}, "Stop. Wait for guidance."},
		{"empty generation", &stubProvider{content: " ** "}, Utterance{Intent: models.IntentWhatIsAhead}, "Checking ahead. Hold on."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNarrator(tt.provider, nil, zap.NewNop())
			assert.Equal(t, tt.want, n.Speak(context.Background(), tt.u))
		})
	}
}

func TestNarrator_StaticIntentsSkipGenerator(t *testing.T) {
	p := &stubProvider{content: "something else"}
	n := NewNarrator(p, nil, zap.NewNop())

	assert.Equal(t, prompts.HelpText, n.Speak(context.Background(), Utterance{Intent: models.IntentHelp}))
	assert.Equal(t, prompts.StopSessionPhrase, n.Speak(context.Background(), Utterance{Intent: models.IntentStopSession}))
	assert.Zero(t, p.calls)
}

func TestNarrator_RecordsAndReplaysHistory(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewManager(memory.NewInMemoryStore(0), 10, zap.NewNop())
	p := &stubProvider{content: "Turn left now."}
	n := NewNarrator(p, mem, zap.NewNop())

	n.Speak(ctx, Utterance{SessionID: "s1", Intent: models.IntentWhatIsAhead})
	n.Speak(ctx, Utterance{SessionID: "s1", Intent: models.IntentWhatIsAhead})

	require.Len(t, p.prompts, 2)
	assert.NotContains(t, p.prompts[0], "RECENTLY SAID")
	assert.Contains(t, p.prompts[1], "Assistant: Turn left now.")

	history, err := mem.History(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Assistant: Turn left now.\nAssistant: Turn left now.\n", history)
}

func TestNarrator_EphemeralSkipsHistory(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryStore(0)
	mem := memory.NewManager(store, 10, zap.NewNop())
	p := &stubProvider{content: "Turn left now."}
	n := NewNarrator(p, mem, zap.NewNop())

	require.NoError(t, mem.RecordAssistant(ctx, "s1", "Earlier."))

	assert.Equal(t, "Turn left now.", n.Speak(ctx, Utterance{SessionID: "s1", Intent: models.IntentWhatIsAhead, Ephemeral: true}))
	require.Len(t, p.prompts, 1)
	assert.NotContains(t, p.prompts[0], "Earlier.")

	stored, err := store.LoadSession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, stored.Messages, 1)
	assert.Equal(t, "Earlier.", stored.Messages[0].Content)
}
