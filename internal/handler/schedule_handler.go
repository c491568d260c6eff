package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-booking-api/internal/models"
	"github.com/noah-isme/campus-booking-api/internal/service"
	appErrors "github.com/noah-isme/campus-booking-api/pkg/errors"
	"github.com/noah-isme/campus-booking-api/pkg/response"
)

// ScheduleHandler exposes recurring-schedule import endpoints.
type ScheduleHandler struct {
	imports *service.ImportService
}

// NewScheduleHandler constructs ScheduleHandler.
func NewScheduleHandler(imports *service.ImportService) *ScheduleHandler {
	return &ScheduleHandler{imports: imports}
}

// ImportRequest wraps the rows of a schedule import batch.
type ImportRequest struct {
	Rows []models.ScheduleImportRow `json:"rows"`
}

// Import godoc
// @Summary Import recurring schedule rows
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body handler.ImportRequest true "Import rows"
// @Success 200 {object} response.Envelope
// @Router /schedules/import [post]
func (h *ScheduleHandler) Import(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.imports.ImportSchedule(c.Request.Context(), req.Rows)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Template godoc
// @Summary Download the import template CSV
// @Tags Schedules
// @Produce text/csv
// @Success 200 {file} binary
// @Router /schedules/import/template [get]
func (h *ScheduleHandler) Template(c *gin.Context) {
	data, err := h.imports.ImportTemplate()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="schedule-import-template.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}
