package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/internal/models"
	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/internal/service"
	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/pkg/response"
)

type reportCardService interface {
	ReportCard(ctx context.Context, actor models.Principal, studentID string) (*models.ReportCard, error)
	RenderPDF(ctx context.Context, actor models.Principal, studentID string) (*service.Rendered, error)
	RenderCSV(ctx context.Context, actor models.Principal, studentID string) (*service.Rendered, error)
}

// ReportHandler serves report cards.
type ReportHandler struct {
	reports reportCardService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports reportCardService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// ReportCard godoc
// @Summary Report card of a student
// @Tags Reports
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/report-card/{studentId} [get]
func (h *ReportHandler) ReportCard(c *gin.Context) {
	actor, err := principalFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	card, err := h.reports.ReportCard(c.Request.Context(), actor, c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, card)
}

// PDF godoc
// @Summary Download the report card as PDF
// @Tags Reports
// @Produce application/pdf
// @Param studentId path string true "Student ID"
// @Success 200 {file} binary
// @Router /reports/report-card/{studentId}/pdf [get]
func (h *ReportHandler) PDF(c *gin.Context) {
	h.download(c, h.reports.RenderPDF)
}

// CSV godoc
// @Summary Download the report card as CSV
// @Tags Reports
// @Produce text/csv
// @Param studentId path string true "Student ID"
// @Success 200 {file} binary
// @Router /reports/report-card/{studentId}/csv [get]
func (h *ReportHandler) CSV(c *gin.Context) {
	h.download(c, h.reports.RenderCSV)
}

func (h *ReportHandler) download(c *gin.Context, render func(context.Context, models.Principal, string) (*service.Rendered, error)) {
	actor, err := principalFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	doc, err := render(c.Request.Context(), actor, c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, doc.Filename, doc.ContentType, doc.Body)
}
