package handlers

import (
	"errors"
	"log"

	"threadmem/internal/logging"
	"threadmem/internal/metrics"
	"threadmem/internal/models"
	"threadmem/internal/providers"
	"threadmem/internal/threads"

	"github.com/gofiber/fiber/v2"
)

// ThreadHandler exposes the tool-facing thread API over HTTP.
type ThreadHandler struct {
	store    *threads.Store
	planner  *threads.Planner
	registry *providers.Registry
	metrics  *metrics.Metrics
}

// NewThreadHandler creates a new thread handler
func NewThreadHandler(store *threads.Store, planner *threads.Planner, registry *providers.Registry, m *metrics.Metrics) *ThreadHandler {
	return &ThreadHandler{
		store:    store,
		planner:  planner,
		registry: registry,
		metrics:  m,
	}
}

// threadError maps the error taxonomy onto HTTP statuses with a
// machine-readable kind and the failing thread ID in the body.
func threadError(c *fiber.Ctx, err error) error {
	var te *threads.ThreadError
	if !errors.As(err, &te) {
		log.Printf("❌ [API] Unexpected error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	status := fiber.StatusInternalServerError
	switch te.Kind {
	case threads.KindThreadNotFound:
		status = fiber.StatusNotFound
	case threads.KindInvalidSequence:
		status = fiber.StatusBadRequest
	case threads.KindContentTooLarge:
		status = fiber.StatusRequestEntityTooLarge
	case threads.KindStoreUnavailable:
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"error":     te.Error(),
		"kind":      string(te.Kind),
		"thread_id": te.ThreadID,
	})
}

// CreateThread creates a new conversation thread.
// POST /api/threads
func (h *ThreadHandler) CreateThread(c *fiber.Ctx) error {
	var req struct {
		ToolName       string         `json:"tool_name"`
		ParentThreadID string         `json:"parent_thread_id"`
		InitialContext map[string]any `json:"initial_context"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.ToolName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "tool_name is required",
		})
	}

	thread, err := h.store.Create(c.Context(), req.ToolName, req.ParentThreadID, req.InitialContext)
	if err != nil {
		return threadError(c, err)
	}

	h.metrics.ThreadsCreated.Inc()
	return c.Status(fiber.StatusCreated).JSON(thread)
}

// GetThread returns a thread by ID.
// GET /api/threads/:id
func (h *ThreadHandler) GetThread(c *fiber.Ctx) error {
	thread, err := h.store.Get(c.Context(), c.Params("id"))
	if err != nil {
		return threadError(c, err)
	}
	return c.JSON(thread)
}

// Resolve exposes the pure continuation resolver.
// POST /api/resolve
func (h *ThreadHandler) Resolve(c *fiber.Ctx) error {
	var req struct {
		ContinuationID string `json:"continuation_id"`
		TurnSequence   int    `json:"turn_sequence"`
		Terminal       bool   `json:"terminal"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	rule, err := threads.ResolveContinuation(req.ContinuationID, req.TurnSequence, req.Terminal)
	if err != nil {
		return threadError(c, err)
	}
	return c.JSON(fiber.Map{"rule": string(rule)})
}

// appendTurnRequest is the body for the turn-append endpoint. TurnSequence
// and Terminal drive continuation resolution; Summary is only consumed on
// finalize.
type appendTurnRequest struct {
	Role         string             `json:"role"`
	Content      string             `json:"content"`
	Files        []string           `json:"files"`
	Tool         string             `json:"tool"`
	Model        string             `json:"model"`
	Usage        *models.TokenUsage `json:"usage"`
	TurnSequence int                `json:"turn_sequence"`
	Terminal     bool               `json:"terminal"`
	Summary      string             `json:"summary"`
}

// AppendTurn resolves the continuation rule, appends the turn, and finalizes
// when the caller signals the terminal turn. The response carries the
// updated thread, the applied rule, any RESUME seed summary, and a
// continuation offer.
// POST /api/threads/:id/turns
func (h *ThreadHandler) AppendTurn(c *fiber.Ctx) error {
	threadID := c.Params("id")

	var req appendTurnRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Role == "" || req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "role and content are required",
		})
	}

	rule, err := threads.ResolveContinuation(threadID, req.TurnSequence, req.Terminal)
	if err != nil {
		return threadError(c, err)
	}

	seedSummary := ""
	if rule == threads.RuleResume {
		_, seed, err := h.store.ResumeSeed(c.Context(), threadID)
		if err != nil {
			return threadError(c, err)
		}
		seedSummary = seed
		h.metrics.ThreadsResumed.Inc()
	} else {
		thread, err := h.store.Get(c.Context(), threadID)
		if err != nil {
			return threadError(c, err)
		}
		if err := h.store.ValidateSequence(thread, req.TurnSequence); err != nil {
			return threadError(c, err)
		}
	}

	turn := models.Turn{
		Role:    models.TurnRole(req.Role),
		Content: req.Content,
		Files:   req.Files,
		Tool:    req.Tool,
		Model:   req.Model,
		Usage:   req.Usage,
	}

	thread, err := h.store.AppendTurn(c.Context(), threadID, turn)
	if err != nil {
		return threadError(c, err)
	}
	h.metrics.TurnsAppended.Inc()
	logging.WithThread(threadID, req.Tool).Debug("turn appended",
		"rule", string(rule), "sequence", req.TurnSequence, "terminal", req.Terminal)

	if rule == threads.RuleFinalize {
		if err := h.store.Finalize(c.Context(), threadID, req.Summary); err != nil {
			return threadError(c, err)
		}
		thread.Summary = req.Summary
	}

	resp := fiber.Map{
		"rule":   string(rule),
		"thread": thread,
		"offer":  threads.BuildContinuationOffer(thread, nil),
	}
	if seedSummary != "" {
		resp["seed_summary"] = seedSummary
	}
	return c.JSON(resp)
}

// Finalize persists the terminal summary for a thread.
// POST /api/threads/:id/finalize
func (h *ThreadHandler) Finalize(c *fiber.Ctx) error {
	var req struct {
		Summary string `json:"summary"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.store.Finalize(c.Context(), c.Params("id"), req.Summary); err != nil {
		return threadError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Thread finalized"})
}

// GetReferences returns the deduplicated, priority-ordered reference list
// for a thread.
// GET /api/threads/:id/references
func (h *ThreadHandler) GetReferences(c *fiber.Ctx) error {
	thread, err := h.store.Get(c.Context(), c.Params("id"))
	if err != nil {
		return threadError(c, err)
	}
	return c.JSON(fiber.Map{
		"thread_id":  thread.ID,
		"references": threads.CollectReferences(thread),
	})
}

// PlanInclusion collects a thread's references and plans them under a token
// budget. The budget comes from max_tokens, or from the model's context
// window when only a model name is given.
// POST /api/threads/:id/plan
func (h *ThreadHandler) PlanInclusion(c *fiber.Ctx) error {
	threadID := c.Params("id")

	var req struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 && req.Model != "" {
		maxTokens = h.registry.MaxContextTokens(req.Model)
	}

	thread, err := h.store.Get(c.Context(), threadID)
	if err != nil {
		return threadError(c, err)
	}

	refs := threads.CollectReferences(thread)
	plan, err := h.planner.Plan(refs, maxTokens)
	if err != nil {
		if errors.Is(err, threads.ErrContentTooLarge) {
			h.metrics.PlanRejectedTotal.Inc()
		}
		// attach the thread ID the planner did not know about
		var te *threads.ThreadError
		if errors.As(err, &te) && te.ThreadID == "" {
			te.ThreadID = threadID
		}
		return threadError(c, err)
	}

	h.metrics.RecordPlan(len(plan.Include), len(plan.Skip))
	return c.JSON(fiber.Map{
		"thread_id":  threadID,
		"max_tokens": maxTokens,
		"plan":       plan,
	})
}

// BuildOffer returns a continuation offer with the calling tool's suggested
// next actions.
// POST /api/threads/:id/offer
func (h *ThreadHandler) BuildOffer(c *fiber.Ctx) error {
	var req struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	thread, err := h.store.Get(c.Context(), c.Params("id"))
	if err != nil {
		return threadError(c, err)
	}
	return c.JSON(threads.BuildContinuationOffer(thread, req.Suggestions))
}
