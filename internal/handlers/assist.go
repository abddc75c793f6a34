package handlers

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/avvvet/sightline/internal/guidance"
	"github.com/avvvet/sightline/internal/intent"
	"github.com/avvvet/sightline/internal/memory"
	"github.com/avvvet/sightline/internal/models"
	"github.com/avvvet/sightline/internal/prompts"
	"github.com/avvvet/sightline/internal/route"
	"github.com/avvvet/sightline/internal/safety"
	"github.com/avvvet/sightline/internal/vision"
)

// AssistHandler runs the request cycle shared by every transport
type AssistHandler struct {
	registry   *Registry
	resolver   *intent.Resolver
	classifier *intent.Classifier
	narrator   *guidance.Narrator
	localizer  *vision.Localizer
	memory     *memory.Manager
	logger     *zap.Logger
}

// Deps wires an AssistHandler. Memory is optional.
type Deps struct {
	Registry   *Registry
	Resolver   *intent.Resolver
	Classifier *intent.Classifier
	Narrator   *guidance.Narrator
	Localizer  *vision.Localizer
	Memory     *memory.Manager
	Logger     *zap.Logger
}

func NewAssistHandler(d Deps) *AssistHandler {
	return &AssistHandler{
		registry:   d.Registry,
		resolver:   d.Resolver,
		classifier: d.Classifier,
		narrator:   d.Narrator,
		localizer:  d.Localizer,
		memory:     d.Memory,
		logger:     d.Logger,
	}
}

// cycle is one request's view of a session
type cycle struct {
	session *Session
	kept    bool
	req     *models.AssistRequest
	objects []models.DetectedObject
	verdict models.SafetyVerdict
	resp    *models.AssistResponse
}

// Process handles one request. It always returns a response; failures are
// reported through the error fields.
func (h *AssistHandler) Process(ctx context.Context, req *models.AssistRequest) *models.AssistResponse {
	s, kept := h.session(req)

	s.mu.Lock()
	defer s.mu.Unlock()

	c := &cycle{
		session: s,
		kept:    kept,
		req:     req,
		objects: h.objects(req),
		resp:    &models.AssistResponse{SessionID: s.ID},
	}
	c.verdict = safety.Analyze(c.objects)

	switch requestType(req) {
	case models.RequestCommand:
		h.command(ctx, c)
	case models.RequestStart:
		h.start(ctx, c)
	case models.RequestAdvance:
		h.advance(ctx, c)
	case models.RequestStop:
		h.stop(ctx, c, models.IntentStopSession)
	case models.RequestFrame:
		h.frame(ctx, c)
	case models.RequestStatus, models.RequestPing:
	default:
		setError(c.resp, models.ErrorUnknownType, "unknown request type: "+req.Type)
	}

	c.resp.Status = s.navigator.Snapshot().Status()
	c.resp.Speak = c.resp.SpeechText != ""

	s.logger.Debug("Request processed",
		zap.String("type", requestType(req)),
		zap.String("intent", string(c.resp.Intent)),
		zap.String("verdict", string(c.verdict.Status)),
		zap.Bool("active", c.resp.Status.Active))

	return c.resp
}

// session returns the conversation a request runs in. Only command and start
// register one; other requests on an unknown id get a blank session that is
// not kept.
func (h *AssistHandler) session(req *models.AssistRequest) (*Session, bool) {
	switch requestType(req) {
	case models.RequestCommand, models.RequestStart:
		return h.registry.Get(req.SessionID), true
	}
	if s, ok := h.registry.Lookup(req.SessionID); ok {
		return s, true
	}
	return h.registry.Transient(req.SessionID), false
}

func requestType(req *models.AssistRequest) string {
	if req.Type != "" {
		return strings.ToLower(req.Type)
	}
	if req.Text != "" || req.Intent != "" {
		return models.RequestCommand
	}
	return models.RequestFrame
}

func (h *AssistHandler) objects(req *models.AssistRequest) []models.DetectedObject {
	if len(req.Annotations) == 0 {
		return req.Objects
	}
	objects := make([]models.DetectedObject, 0, len(req.Objects)+len(req.Annotations))
	objects = append(objects, req.Objects...)
	return append(objects, h.localizer.Localize(req.Annotations)...)
}

func (h *AssistHandler) command(ctx context.Context, c *cycle) {
	var res intent.Resolution
	switch {
	case c.req.Intent != "":
		res = h.resolver.Resolve(c.req.Intent, c.req.Destination)
	case strings.TrimSpace(c.req.Text) != "":
		if h.memory != nil {
			if err := h.memory.RecordUser(ctx, c.session.ID, c.req.Text); err != nil {
				c.session.logger.Warn("Failed to record transcript", zap.Error(err))
			}
		}
		res = h.classifier.Classify(ctx, c.req.Text)
	default:
		res = h.resolver.Resolve("", nil)
	}

	if _, hazard := intent.AutoTrigger(c.verdict); res.NeedsDestination && !hazard {
		c.session.arbiter.Clear()
		h.clarify(c, nil)
		return
	}

	c.session.arbiter.Submit(res)
	if effective, ok := c.session.arbiter.Next(c.verdict); ok {
		h.execute(ctx, c, effective)
	}
}

// frame runs one camera cycle. On an active route only an emergency stop or
// a pending user request displaces the step; a crowded path is narrated as
// part of the step. Every frame of an active route carries a decision.
func (h *AssistHandler) frame(ctx context.Context, c *cycle) {
	active := c.session.navigator.Snapshot().Active
	effective, ok := c.session.arbiter.Next(c.verdict)

	switch {
	case ok && !(active && effective.Auto && effective.Intent == models.IntentSafetyCheck):
		h.execute(ctx, c, effective)
	case active:
		h.guide(ctx, c)
	}

	if snapshot := c.session.navigator.Snapshot(); c.resp.Decision == nil && snapshot.Active {
		decision := guidance.Guide(c.objects, snapshot)
		c.resp.Decision = &decision
	}
}

func (h *AssistHandler) execute(ctx context.Context, c *cycle, res intent.Resolution) {
	c.resp.Intent = res.Intent
	c.resp.Destination = res.Destination

	switch res.Intent {
	case models.IntentNavigate:
		h.begin(c, *res.Destination)
	case models.IntentStopSession:
		h.stop(ctx, c, res.Intent)
	case models.IntentEmergencyStop:
		decision := guidance.Guide(c.objects, c.session.navigator.Snapshot())
		c.resp.Decision = &decision
		c.resp.SpeechText = h.speak(ctx, c, res.Intent, &decision)
		c.session.logger.Info("Emergency stop", zap.String("summary", c.verdict.Summary), zap.Bool("auto", res.Auto))
	default:
		c.resp.SpeechText = h.speak(ctx, c, res.Intent, nil)
	}
}

func (h *AssistHandler) start(ctx context.Context, c *cycle) {
	c.resp.Intent = models.IntentNavigate
	if c.req.Destination == nil {
		h.clarify(c, nil)
		return
	}
	h.begin(c, *c.req.Destination)
}

func (h *AssistHandler) begin(c *cycle, destination string) {
	if err := c.session.navigator.Start(destination); err != nil {
		h.clarify(c, err)
		return
	}

	key := c.session.navigator.Snapshot().Destination()
	c.resp.Intent = models.IntentNavigate
	c.resp.Destination = &key
	c.resp.SpeechText = safety.Filter(prompts.StartPhrase(key), c.objects)
	c.session.logger.Info("Navigation started", zap.String("destination", key))
}

func (h *AssistHandler) advance(ctx context.Context, c *cycle) {
	c.resp.Intent = models.IntentNavigate
	if _, err := c.session.navigator.Advance(); err != nil {
		setError(c.resp, models.ErrorNotActive, err.Error())
		c.resp.SpeechText = route.NotActiveStep.Description
		return
	}
	h.guide(ctx, c)
}

// stop ends the conversation: the route and pending slot are reset, the
// session leaves the registry and its history is cleared.
func (h *AssistHandler) stop(ctx context.Context, c *cycle, node models.IntentNode) {
	c.session.navigator.Stop()
	c.session.arbiter.Clear()
	c.resp.Intent = node
	c.resp.SpeechText = h.speak(ctx, c, models.IntentStopSession, nil)

	h.registry.Remove(c.session.ID)
	if h.memory != nil {
		if err := h.memory.ClearSession(ctx, c.session.ID); err != nil {
			c.session.logger.Warn("Failed to clear history", zap.Error(err))
		}
	}
}

// guide announces the current step. Reaching the final step without an
// override ends the session.
func (h *AssistHandler) guide(ctx context.Context, c *cycle) {
	snapshot := c.session.navigator.Snapshot()
	decision := guidance.Guide(c.objects, snapshot)

	dest := snapshot.Destination()
	c.resp.Intent = models.IntentNavigate
	c.resp.Destination = &dest
	c.resp.Decision = &decision
	c.resp.SpeechText = h.speak(ctx, c, models.IntentNavigate, &decision)

	if decision.FinalStep && !decision.SafetyOverride {
		c.session.navigator.Stop()
		c.session.logger.Info("Arrived", zap.String("destination", dest))
	}
}

func (h *AssistHandler) speak(ctx context.Context, c *cycle, node models.IntentNode, decision *models.GuidanceDecision) string {
	return h.narrator.Speak(ctx, guidance.Utterance{
		SessionID:        c.session.ID,
		Intent:           node,
		Objects:          c.objects,
		Verdict:          c.verdict,
		SceneDescription: c.req.SceneDescription,
		Destination:      c.session.navigator.Snapshot().Destination(),
		Decision:         decision,
		Ephemeral:        !c.kept,
	})
}

func (h *AssistHandler) clarify(c *cycle, err error) {
	c.resp.Intent = models.IntentDescribeSurroundings
	c.resp.Destination = nil
	c.resp.SpeechText = safety.Filter(prompts.ClarifyDestination(h.resolver.KnownDestinations()), c.objects)

	msg := "destination is required"
	var invalid *route.InvalidDestinationError
	if errors.As(err, &invalid) {
		msg = invalid.Error()
	}
	setError(c.resp, models.ErrorInvalidDestination, msg)
}

func setError(resp *models.AssistResponse, code, message string) {
	resp.ErrorCode = &code
	resp.ErrorMessage = &message
}

// ExpireSession forgets the history of a session the registry dropped as idle
func (h *AssistHandler) ExpireSession(sessionID string) {
	if h.memory == nil {
		return
	}
	if err := h.memory.ClearSession(context.Background(), sessionID); err != nil {
		h.logger.Warn("Failed to clear idle history", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// CloseSession ends a conversation whose connection went away. Stored
// history is left to expire.
func (h *AssistHandler) CloseSession(sessionID string) {
	if h.registry.Remove(sessionID) {
		h.logger.Debug("Session closed", zap.String("session_id", sessionID))
	}
	if h.memory != nil {
		h.memory.Evict(sessionID)
	}
}
