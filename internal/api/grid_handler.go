package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/user-admin-api/internal/grid"
	"github.com/user-admin-api/internal/models"
	"github.com/user-admin-api/internal/service"
)

// GridHandler exposes grid sessions over HTTP.
// Every mutating call answers with the session state after the change.
type GridHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewGridHandler creates a new GridHandler
func NewGridHandler(services *service.Services, log zerolog.Logger) *GridHandler {
	return &GridHandler{
		services: services,
		log:      log.With().Str("handler", "grid").Logger(),
	}
}

type filterRequest struct {
	Query string `json:"query"`
}

type selectionRequest struct {
	IDs     []string `json:"ids" binding:"required"`
	Checked bool     `json:"checked"`
}

type selectAllRequest struct {
	Checked bool `json:"checked"`
}

type cellRequest struct {
	UserID string       `json:"userId" binding:"required"`
	Field  models.Field `json:"field" binding:"required"`
}

type stageRequest struct {
	Value string `json:"value"`
}

type keyRequest struct {
	Key grid.Key `json:"key" binding:"required"`
}

type targetRequest struct {
	Target string `json:"target"`
}

type fieldValueRequest struct {
	Field models.Field `json:"field" binding:"required"`
	Value string       `json:"value"`
}

// session resolves :sid, answering 404 itself when it is unknown
func (h *GridHandler) session(c *gin.Context) (*grid.Controller, bool) {
	ctrl, err := h.services.Grid.Get(c.Param("sid"))
	if err != nil {
		respondError(c, h.log, err)
		return nil, false
	}
	return ctrl, true
}

func (h *GridHandler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func (h *GridHandler) respondState(c *gin.Context, status int, sid string, ctrl *grid.Controller) {
	state, err := ctrl.State(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(status, gin.H{
		"session_id": sid,
		"state":      state,
	})
}

// Open handles POST /v1/grid/sessions
func (h *GridHandler) Open(c *gin.Context) {
	sid, ctrl := h.services.Grid.Open()
	h.respondState(c, http.StatusCreated, sid, ctrl)
}

// State handles GET /v1/grid/sessions/:sid
func (h *GridHandler) State(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	h.respondState(c, http.StatusOK, c.Param("sid"), ctrl)
}

// Close handles DELETE /v1/grid/sessions/:sid
func (h *GridHandler) Close(c *gin.Context) {
	if err := h.services.Grid.Close(c.Param("sid")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetFilter handles PUT /v1/grid/sessions/:sid/filter
func (h *GridHandler) SetFilter(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	var req filterRequest
	if !h.bind(c, &req) {
		return
	}
	ctrl.SetFilter(req.Query)
	h.respondState(c, http.StatusOK, c.Param("sid"), ctrl)
}

// Select handles POST /v1/grid/sessions/:sid/selection
func (h *GridHandler) Select(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	var req selectionRequest
	if !h.bind(c, &req) {
		return
	}
	ctrl.Select(req.IDs, req.Checked)
	h.respondState(c, http.StatusOK, c.Param("sid"), ctrl)
}

// SelectAll handles POST /v1/grid/sessions/:sid/selection/all
func (h *GridHandler) SelectAll(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	var req selectAllRequest
	if !h.bind(c, &req) {
		return
	}
	if err := ctrl.SelectAll(c.Request.Context(), req.Checked); err != nil {
		respondError(c, h.log, err)
		return
	}
	h.respondState(c, http.StatusOK, c.Param("sid"), ctrl)
}

// ClickCell handles POST /v1/grid/sessions/:sid/cell
func (h *GridHandler) ClickCell(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	var req cellRequest
	if !h.bind(c, &req) {
		return
	}
	if err := ctrl.ClickCell(c.Request.Context(), req.UserID, req.Field); err != nil {
		respondError(c, h.log, err)
		return
	}
	h.respondState(c, http.StatusOK, c.Param("sid"), ctrl)
}

// Stage handles PUT /v1/grid/sessions/:sid/cell
func (h *GridHandler) Stage(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	var req stageRequest
	if !h.bind(c, &req) {
		return
	}
	if err := ctrl.Stage(req.Value); err != nil {
		respondError(c, h.log, err)
		return
	}
	h.respondState(c, http.StatusOK, c.Param("sid"), ctrl)
}

// Key handles POST /v1/grid/sessions/:sid/cell/key
func (h *GridHandler) Key(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	var req keyRequest
	if !h.bind(c, &req) {
		return
	}
	if err := ctrl.Key(c.Request.Context(), req.Key); err != nil {
		respondError(c, h.log, err)
		return
	}
	h.respondState(c, http.StatusOK, c.Param("sid"), ctrl)
}

// Blur handles POST /v1/grid/sessions/:sid/cell/blur
func (h *GridHandler) Blur(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	var req targetRequest
	if !h.bind(c, &req) {
		return
	}
	if err := ctrl.Blur(c.Request.Context(), req.Target); err != nil {
		respondError(c, h.log, err)
		return
	}
	h.respondState(c, http.StatusOK, c.Param("sid"), ctrl)
}

// Focus handles POST /v1/grid/sessions/:sid/focus
func (h *GridHandler) Focus(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	var req targetRequest
	if !h.bind(c, &req) {
		return
	}
	ctrl.Focus(req.Target)
	h.respondState(c, http.StatusOK, c.Param("sid"), ctrl)
}

// DeleteSelected handles POST /v1/grid/sessions/:sid/delete
func (h *GridHandler) DeleteSelected(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	removed, err := ctrl.DeleteSelected(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.log.Info().Str("session_id", c.Param("sid")).Int("removed", removed).Msg("Selected users deleted")
	h.respondState(c, http.StatusOK, c.Param("sid"), ctrl)
}

// BulkEdit handles POST /v1/grid/sessions/:sid/bulk-edit
func (h *GridHandler) BulkEdit(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	var req fieldValueRequest
	if !h.bind(c, &req) {
		return
	}
	updated, err := ctrl.BulkEdit(c.Request.Context(), req.Field, req.Value)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.log.Info().
		Str("session_id", c.Param("sid")).
		Str("field", string(req.Field)).
		Int("updated", updated).
		Msg("Bulk edit applied")
	h.respondState(c, http.StatusOK, c.Param("sid"), ctrl)
}

// BulkDomain handles GET /v1/grid/sessions/:sid/bulk-edit/domain?field=
func (h *GridHandler) BulkDomain(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	field := models.Field(c.Query("field"))
	values, err := ctrl.BulkDomain(c.Request.Context(), field)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"field":  field,
		"values": values,
	})
}
