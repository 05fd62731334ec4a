package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/internal/models"
	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/internal/service"
	appErrors "github.com/Gabusnow21/Administrador-de-Notas-Matematicas/pkg/errors"
	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/pkg/response"
)

type activityService interface {
	ListRoots(ctx context.Context, subjectID, termID string) ([]models.Activity, error)
	Get(ctx context.Context, id string) (*models.Activity, error)
	Create(ctx context.Context, actor models.Principal, req service.CreateActivityRequest) (*models.Activity, error)
	Update(ctx context.Context, actor models.Principal, id string, req service.UpdateActivityRequest) (*models.Activity, error)
	Delete(ctx context.Context, actor models.Principal, id string) (*service.ActivityDeletion, error)
}

// ActivityHandler exposes weighted activity endpoints.
type ActivityHandler struct {
	activities activityService
}

// NewActivityHandler constructs handler.
func NewActivityHandler(activities activityService) *ActivityHandler {
	return &ActivityHandler{activities: activities}
}

// List godoc
// @Summary List the activity tree of a subject and term
// @Tags Activities
// @Produce json
// @Param subject_id query string true "Subject"
// @Param term_id query string true "Term"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /activities [get]
func (h *ActivityHandler) List(c *gin.Context) {
	subjectID := strings.TrimSpace(c.Query("subject_id"))
	termID := strings.TrimSpace(c.Query("term_id"))
	if subjectID == "" || termID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "subject_id and term_id are required"))
		return
	}
	activities, err := h.activities.ListRoots(c.Request.Context(), subjectID, termID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activities, map[string]interface{}{"count": len(activities)})
}

// Get godoc
// @Summary Get an activity with its sub-activities
// @Tags Activities
// @Produce json
// @Param id path string true "Activity ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /activities/{id} [get]
func (h *ActivityHandler) Get(c *gin.Context) {
	activity, err := h.activities.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activity)
}

// Create godoc
// @Summary Create an activity
// @Tags Activities
// @Accept json
// @Produce json
// @Param payload body service.CreateActivityRequest true "Activity payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /activities [post]
func (h *ActivityHandler) Create(c *gin.Context) {
	actor, err := principalFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.CreateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	activity, err := h.activities.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, activity)
}

// Update godoc
// @Summary Update an activity
// @Tags Activities
// @Accept json
// @Produce json
// @Param id path string true "Activity ID"
// @Param payload body service.UpdateActivityRequest true "Activity payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /activities/{id} [put]
func (h *ActivityHandler) Update(c *gin.Context) {
	actor, err := principalFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.UpdateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	activity, err := h.activities.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activity)
}

// Delete godoc
// @Summary Delete an activity, its sub-activities and their grades
// @Tags Activities
// @Produce json
// @Param id path string true "Activity ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /activities/{id} [delete]
func (h *ActivityHandler) Delete(c *gin.Context) {
	actor, err := principalFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.activities.Delete(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
