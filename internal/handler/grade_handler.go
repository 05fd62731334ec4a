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

type gradeService interface {
	Upsert(ctx context.Context, actor models.Principal, req service.UpsertGradeRequest) (*models.Grade, bool, error)
	ListByActivity(ctx context.Context, actor models.Principal, activityID string) ([]models.Grade, error)
	ListByStudent(ctx context.Context, actor models.Principal, studentID string) ([]models.Grade, error)
	GradeSheet(ctx context.Context, actor models.Principal, sectionID, activityID string) (*service.GradeSheet, error)
}

// GradeHandler exposes grade endpoints.
type GradeHandler struct {
	grades gradeService
}

// NewGradeHandler constructs handler.
func NewGradeHandler(grades gradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// Upsert godoc
// @Summary Record the grade of a student in an activity
// @Description Updates the existing grade of the pair in place, otherwise creates it.
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body service.UpsertGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /grades [post]
func (h *GradeHandler) Upsert(c *gin.Context) {
	actor, err := principalFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.UpsertGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	grade, created, err := h.grades.Upsert(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if created {
		response.Created(c, grade)
		return
	}
	response.JSON(c, http.StatusOK, grade)
}

// ByActivity godoc
// @Summary List the grades of an activity
// @Tags Grades
// @Produce json
// @Param id path string true "Activity ID"
// @Success 200 {object} response.Envelope
// @Router /grades/activity/{id} [get]
func (h *GradeHandler) ByActivity(c *gin.Context) {
	actor, err := principalFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	grades, err := h.grades.ListByActivity(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, map[string]interface{}{"count": len(grades)})
}

// ByStudent godoc
// @Summary List the grades of a student
// @Tags Grades
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /grades/student/{id} [get]
func (h *GradeHandler) ByStudent(c *gin.Context) {
	actor, err := principalFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	grades, err := h.grades.ListByStudent(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, map[string]interface{}{"count": len(grades)})
}

// Sheet godoc
// @Summary Grade sheet of a section for one activity
// @Tags Grades
// @Produce json
// @Param section_id query string true "Section"
// @Param activity_id query string true "Activity"
// @Success 200 {object} response.Envelope
// @Router /grades/sheet [get]
func (h *GradeHandler) Sheet(c *gin.Context) {
	actor, err := principalFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	sectionID := strings.TrimSpace(c.Query("section_id"))
	activityID := strings.TrimSpace(c.Query("activity_id"))
	if sectionID == "" || activityID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "section_id and activity_id are required"))
		return
	}
	sheet, err := h.grades.GradeSheet(c.Request.Context(), actor, sectionID, activityID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet)
}
