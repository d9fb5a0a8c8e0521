package server

import (
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/QQHKX/rollcall-module/errors"
	"github.com/QQHKX/rollcall-module/game"
)

// maxImportBody bounds a roster import payload.
const maxImportBody = 1 << 20

// RollcallHandler handles HTTP requests for the rollcall API
//
// Flow: HTTP Request -> rollcallRoutes -> RollcallHandler -> RollcallService
//
// Responsibilities:
// - Validate request parameters
// - Call RollcallService for business logic
// - Format and return HTTP responses
type RollcallHandler struct {
	app    *App
	logger zerolog.Logger
}

// NewRollcallHandler creates a new rollcall handler
func NewRollcallHandler(app *App) *RollcallHandler {
	return &RollcallHandler{
		app:    app,
		logger: app.logger.With().Str("handler", "rollcall").Logger(),
	}
}

// DrawRequest carries the optional layout measurement. Without one the
// geometry is omitted and the client requests a plan once measured.
type DrawRequest struct {
	Layout *game.Layout `json:"layout,omitempty"`
}

// Draw executes a single draw and returns the committed result with its
// reel plan.
func (h *RollcallHandler) Draw(c *gin.Context) {
	ctx := c.Request.Context()

	var req DrawRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		BadRequest(c, errors.New(errors.ErrInvalidRequest, "Invalid request payload"))
		return
	}

	var layout game.Layout
	if req.Layout != nil {
		layout = *req.Layout
	}

	outcome, err := h.app.service.Draw(ctx, layout)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to execute draw")
		HandleAppError(c, err)
		return
	}

	h.logger.Info().
		Str("student_id", outcome.Result.StudentID).
		Str("name", outcome.Result.Name).
		Str("rarity", string(outcome.Result.Rarity)).
		Msg("Draw executed")

	OK(c, outcome)
}

// MultiDrawRequest starts an auto multi-draw session.
type MultiDrawRequest struct {
	Count  int          `json:"count,omitempty"`
	Layout *game.Layout `json:"layout,omitempty"`
}

// MultiDrawStartResponse returns the new session id.
type MultiDrawStartResponse struct {
	SessionID string `json:"sessionId"`
}

// StartMultiDraw launches an auto multi-draw session.
func (h *RollcallHandler) StartMultiDraw(c *gin.Context) {
	var req MultiDrawRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		BadRequest(c, errors.New(errors.ErrInvalidRequest, "Invalid request payload"))
		return
	}
	if req.Count < 0 {
		BadRequest(c, errors.New(errors.ErrInvalidRequest, "Invalid count: must not be negative"))
		return
	}

	var layout game.Layout
	if req.Layout != nil {
		layout = *req.Layout
	}

	sessionID, err := h.app.service.StartMultiDraw(req.Count, layout)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to start multi-draw")
		HandleAppError(c, err)
		return
	}

	Created(c, MultiDrawStartResponse{SessionID: sessionID})
}

// MultiDrawState returns the progress snapshot of a session.
func (h *RollcallHandler) MultiDrawState(c *gin.Context) {
	snapshot, err := h.app.service.MultiDrawState(c.Param("id"))
	if err != nil {
		HandleAppError(c, err)
		return
	}
	OK(c, snapshot)
}

// InterruptMultiDraw relays an interrupt request to a session. The auto
// sequence rejects it until all draws have revealed.
func (h *RollcallHandler) InterruptMultiDraw(c *gin.Context) {
	if err := h.app.service.InterruptMultiDraw(c.Param("id")); err != nil {
		HandleAppError(c, err)
		return
	}
	NoContent(c)
}

// ReelPlanRequest carries the layout to re-plan against.
type ReelPlanRequest struct {
	Layout game.Layout `json:"layout" binding:"required"`
}

// PlanReel recomputes the reel geometry for the last draw against a fresh
// layout measurement.
func (h *RollcallHandler) PlanReel(c *gin.Context) {
	var req ReelPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, errors.New(errors.ErrInvalidRequest, "Invalid request payload"))
		return
	}

	outcome, err := h.app.service.PlanReel(req.Layout)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	OK(c, outcome)
}

// RosterResponse bundles the roster with its pool status.
type RosterResponse struct {
	Students []game.Student `json:"students"`
	Pool     PoolStatus     `json:"pool"`
}

// ListRoster returns the roster and pool status.
func (h *RollcallHandler) ListRoster(c *gin.Context) {
	OK(c, RosterResponse{
		Students: h.app.service.Students(),
		Pool:     h.app.service.Pool(),
	})
}

// AddStudentRequest creates one roster entry.
type AddStudentRequest struct {
	Name      string `json:"name" binding:"required"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// AddStudent appends a student to the roster.
func (h *RollcallHandler) AddStudent(c *gin.Context) {
	ctx := c.Request.Context()

	var req AddStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, errors.New(errors.ErrInvalidRequest, "Invalid request payload"))
		return
	}

	student, err := h.app.service.AddStudent(ctx, req.Name, req.AvatarURL)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	Created(c, student)
}

// RemoveStudent deletes a roster entry.
func (h *RollcallHandler) RemoveStudent(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.app.service.RemoveStudent(ctx, c.Param("id")); err != nil {
		HandleAppError(c, err)
		return
	}
	NoContent(c)
}

// ToggleStar flips a student's starred flag.
func (h *RollcallHandler) ToggleStar(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.app.service.ToggleStar(ctx, c.Param("id")); err != nil {
		HandleAppError(c, err)
		return
	}
	NoContent(c)
}

// ImportResponse reports how many entries were imported.
type ImportResponse struct {
	Imported int    `json:"imported"`
	Mode     string `json:"mode"`
}

// ImportRoster imports names from a plain-text or CSV/TSV body. The mode
// query parameter selects append (default) or replace.
func (h *RollcallHandler) ImportRoster(c *gin.Context) {
	ctx := c.Request.Context()

	mode := game.ImportMode(c.DefaultQuery("mode", string(game.ImportAppend)))
	if mode != game.ImportAppend && mode != game.ImportReplace {
		BadRequest(c, errors.New(errors.ErrInvalidRequest, "Invalid mode: must be append or replace"))
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBody))
	if err != nil {
		BadRequest(c, errors.New(errors.ErrInvalidRequest, "Failed to read import payload"))
		return
	}

	count, err := h.app.service.ImportRoster(ctx, string(body), mode)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	OK(c, ImportResponse{Imported: count, Mode: string(mode)})
}

// ResetPool repopulates the no-repeat pool from the full roster.
func (h *RollcallHandler) ResetPool(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.app.service.ResetPool(ctx); err != nil {
		HandleAppError(c, err)
		return
	}
	OK(c, h.app.service.Pool())
}

// GetSettings returns the current settings.
func (h *RollcallHandler) GetSettings(c *gin.Context) {
	OK(c, h.app.service.Settings())
}

// UpdateSettings replaces the settings.
func (h *RollcallHandler) UpdateSettings(c *gin.Context) {
	ctx := c.Request.Context()

	var settings game.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		BadRequest(c, errors.New(errors.ErrInvalidRequest, "Invalid request payload"))
		return
	}

	updated, err := h.app.service.UpdateSettings(ctx, settings)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	OK(c, updated)
}

// GetHistory returns draw history, oldest first. The limit query parameter
// caps the number of records; zero or absent means all.
func (h *RollcallHandler) GetHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			BadRequest(c, errors.New(errors.ErrInvalidRequest, "Invalid limit"))
			return
		}
		limit = parsed
	}
	OK(c, h.app.service.History(limit))
}

// ClearHistory drops all draw history.
func (h *RollcallHandler) ClearHistory(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.app.service.ClearHistory(ctx); err != nil {
		HandleAppError(c, err)
		return
	}
	NoContent(c)
}
