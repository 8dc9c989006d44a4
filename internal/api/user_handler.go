package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/user-admin-api/internal/models"
	"github.com/user-admin-api/internal/service"
)

// UserHandler handles user collection endpoints
type UserHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(services *service.Services, log zerolog.Logger) *UserHandler {
	return &UserHandler{
		services: services,
		log:      log.With().Str("handler", "user").Logger(),
	}
}

type idsRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

type bulkEditRequest struct {
	IDs   []string     `json:"ids" binding:"required"`
	Field models.Field `json:"field" binding:"required"`
	Value string       `json:"value"`
}

// List handles GET /v1/users?q=
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.services.User.List(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"count": len(users),
	})
}

// Get handles GET /v1/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.services.User.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Create handles POST /v1/users
func (h *UserHandler) Create(c *gin.Context) {
	var req models.NewUser
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	user, err := h.services.User.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Patch handles PATCH /v1/users/:id with a JSON merge patch body
func (h *UserHandler) Patch(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "merge patch body is required"})
		return
	}

	result, err := h.services.User.Patch(c.Request.Context(), c.Param("id"), body)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Delete handles POST /v1/users/delete
func (h *UserHandler) Delete(c *gin.Context) {
	var req idsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ids are required"})
		return
	}

	removed, err := h.services.User.Delete(c.Request.Context(), req.IDs)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// BulkEdit handles POST /v1/users/bulk
func (h *UserHandler) BulkEdit(c *gin.Context) {
	var req bulkEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ids and field are required"})
		return
	}

	updated, err := h.services.User.BulkEdit(c.Request.Context(), req.IDs, req.Field, req.Value)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"updated": updated,
		"field":   req.Field,
		"value":   req.Value,
	})
}

// Departments handles GET /v1/users/departments
func (h *UserHandler) Departments(c *gin.Context) {
	departments, err := h.services.User.Departments(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"departments": departments})
}
