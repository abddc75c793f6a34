package intent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/avvvet/sightline/internal/llm"
	"github.com/avvvet/sightline/internal/models"
	"github.com/avvvet/sightline/internal/route"
)

func strPtr(s string) *string { return &s }

func newResolver() *Resolver {
	return NewResolver(route.DefaultTable())
}

func TestResolve(t *testing.T) {
	r := newResolver()

	tests := []struct {
		name     string
		label    string
		dest     *string
		intent   models.IntentNode
		wantDest *string
		needs    bool
	}{
		{"navigate with known destination", "navigate", strPtr("Cafeteria"), models.IntentNavigate, strPtr("cafeteria"), false},
		{"navigate with unknown destination", "NAVIGATE", strPtr("library"), models.IntentDescribeSurroundings, nil, true},
		{"navigate without destination", "Navigate", nil, models.IntentDescribeSurroundings, nil, true},
		{"empty label", "", nil, models.IntentDescribeSurroundings, nil, false},
		{"unknown label drops destination", "dance", strPtr("washroom"), models.IntentDescribeSurroundings, nil, false},
		{"padded label", "  safety_check ", nil, models.IntentSafetyCheck, nil, false},
		{"unknown destination discarded", "what_is_ahead", strPtr("mars"), models.IntentWhatIsAhead, nil, false},
		{"known destination kept on other intents", "help", strPtr("washroom"), models.IntentHelp, strPtr("washroom"), false},
		{"stop session", "STOP_SESSION", nil, models.IntentStopSession, nil, false},
		{"emergency stop", "emergency_stop", nil, models.IntentEmergencyStop, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(tt.label, tt.dest)
			assert.Equal(t, tt.intent, res.Intent)
			assert.Equal(t, tt.wantDest, res.Destination)
			assert.Equal(t, tt.needs, res.NeedsDestination)
		})
	}
}

// Property: unrecognized labels resolve to DESCRIBE_SURROUNDINGS with no destination
func TestResolveUnrecognizedIsSafeDefault(t *testing.T) {
	r := newResolver()
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("unknown label is the safe default", prop.ForAll(
		func(label string, dest string) bool {
			if _, ok := ParseIntent(label); ok {
				return true
			}
			res := r.Resolve(label, &dest)
			return res.Intent == models.IntentDescribeSurroundings && res.Destination == nil
		},
		gen.AnyString(),
		gen.OneGenOf(gen.AnyString(), gen.OneConstOf("cafeteria", "washroom")),
	))

	properties.TestingRun(t)
}

func TestRank(t *testing.T) {
	order := []models.IntentNode{
		models.IntentEmergencyStop,
		models.IntentSafetyCheck,
		models.IntentNavigate,
		models.IntentWhatIsAhead,
		models.IntentDescribeSurroundings,
	}
	for i := 0; i < len(order)-1; i++ {
		assert.Greater(t, Rank(order[i]), Rank(order[i+1]), "%s should outrank %s", order[i], order[i+1])
	}
}

var (
	danger = models.SafetyVerdict{Status: models.StatusDanger}
	clear  = models.SafetyVerdict{Status: models.StatusClear}
	crowd  = models.SafetyVerdict{Status: models.StatusCaution, HazardObjects: make([]models.DetectedObject, 4)}
)

func TestArbiter_HazardPreemptsAndResumes(t *testing.T) {
	a := NewArbiter(ResumeAfterHazard)
	a.Submit(Resolution{Intent: models.IntentWhatIsAhead})

	r, ok := a.Next(danger)
	require.True(t, ok)
	assert.Equal(t, models.IntentEmergencyStop, r.Intent)
	assert.True(t, r.Auto)

	pending, ok := a.Pending()
	require.True(t, ok)
	assert.Equal(t, models.IntentWhatIsAhead, pending.Intent)

	r, ok = a.Next(clear)
	require.True(t, ok)
	assert.Equal(t, models.IntentWhatIsAhead, r.Intent)
	assert.False(t, r.Auto)

	_, ok = a.Next(clear)
	assert.False(t, ok)
}

func TestArbiter_RequireReRequest(t *testing.T) {
	a := NewArbiter(RequireReRequest)
	a.Submit(Resolution{Intent: models.IntentDescribeSurroundings})

	r, _ := a.Next(danger)
	assert.Equal(t, models.IntentEmergencyStop, r.Intent)

	_, ok := a.Next(clear)
	assert.False(t, ok)

	a.Submit(Resolution{Intent: models.IntentHelp})
	r, ok = a.Next(clear)
	require.True(t, ok)
	assert.Equal(t, models.IntentHelp, r.Intent)
}

func TestArbiter_NewRequestOverwritesSlot(t *testing.T) {
	a := NewArbiter(ResumeAfterHazard)
	a.Submit(Resolution{Intent: models.IntentDescribeSurroundings})
	a.Submit(Resolution{Intent: models.IntentSafetyCheck})

	r, ok := a.Next(clear)
	require.True(t, ok)
	assert.Equal(t, models.IntentSafetyCheck, r.Intent)
}

func TestArbiter_CrowdingCompetesByRank(t *testing.T) {
	a := NewArbiter(ResumeAfterHazard)

	r, ok := a.Next(crowd)
	require.True(t, ok)
	assert.Equal(t, models.IntentSafetyCheck, r.Intent)

	a.Submit(Resolution{Intent: models.IntentDescribeSurroundings})
	r, _ = a.Next(crowd)
	assert.Equal(t, models.IntentSafetyCheck, r.Intent)
	_, stillPending := a.Pending()
	assert.True(t, stillPending)

	a.Submit(Resolution{Intent: models.IntentStopSession})
	r, _ = a.Next(crowd)
	assert.Equal(t, models.IntentStopSession, r.Intent)
}

func TestArbiter_Idle(t *testing.T) {
	a := NewArbiter(ResumeAfterHazard)
	_, ok := a.Next(clear)
	assert.False(t, ok)

	a.Submit(Resolution{Intent: models.IntentHelp})
	a.Clear()
	_, ok = a.Next(clear)
	assert.False(t, ok)
}

type stubProvider struct {
	content string
	err     error
	prompt  string
}

func (s *stubProvider) Generate(ctx context.Context, request *llm.LLMRequest) (*llm.LLMResponse, error) {
	s.prompt = request.Prompt
	if s.err != nil {
		return nil, s.err
	}
	return &llm.LLMResponse{Content: s.content}, nil
}

func TestClassifier_WithProvider(t *testing.T) {
	p := &stubProvider{content: "```json\n{\"intent\": \"NAVIGATE\", \"destination\": \"washroom\"}\n```"}
	c := NewClassifier(p, newResolver(), zap.NewNop())

	r := c.Classify(context.Background(), "guide me to the washroom please")
	assert.Equal(t, models.IntentNavigate, r.Intent)
	require.NotNil(t, r.Destination)
	assert.Equal(t, "washroom", *r.Destination)
	assert.True(t, strings.Contains(p.prompt, "guide me to the washroom please"))
}

func TestClassifier_FailuresResolveToDefault(t *testing.T) {
	resolver := newResolver()
	for name, p := range map[string]*stubProvider{
		"provider error": {err: errors.New("timeout")},
		"garbage":        {content: "no idea"},
		"bad label":      {content: `{"intent": "FLY"}`},
	} {
		t.Run(name, func(t *testing.T) {
			r := NewClassifier(p, resolver, zap.NewNop()).Classify(context.Background(), "hmm")
			assert.Equal(t, models.IntentDescribeSurroundings, r.Intent)
			assert.Nil(t, r.Destination)
		})
	}
}

func TestClassifier_Keywords(t *testing.T) {
	c := NewClassifier(nil, newResolver(), zap.NewNop())

	tests := []struct {
		text   string
		intent models.IntentNode
		dest   string
	}{
		{"Take me to the cafeteria", models.IntentNavigate, "cafeteria"},
		{"take me to the library", models.IntentDescribeSurroundings, ""},
		{"Is it safe to walk?", models.IntentSafetyCheck, ""},
		{"What's ahead of me", models.IntentWhatIsAhead, ""},
		{"where am I", models.IntentDescribeSurroundings, ""},
		{"please stop", models.IntentStopSession, ""},
		{"help", models.IntentHelp, ""},
		{"banana", models.IntentDescribeSurroundings, ""},
		{"", models.IntentDescribeSurroundings, ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			r := c.Classify(context.Background(), tt.text)
			assert.Equal(t, tt.intent, r.Intent)
			if tt.dest == "" {
				assert.Nil(t, r.Destination)
			} else {
				require.NotNil(t, r.Destination)
				assert.Equal(t, tt.dest, *r.Destination)
			}
		})
	}
}
