package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opencampus/course-portal-api/internal/service"
	appErrors "github.com/opencampus/course-portal-api/pkg/errors"
	"github.com/opencampus/course-portal-api/pkg/export"
	"github.com/opencampus/course-portal-api/pkg/response"
)

// CalendarHandler projects the student's enrolled schedule onto calendar
// views and exports.
type CalendarHandler struct {
	calendar *service.CalendarService
	exporter *export.PDFExporter
}

// NewCalendarHandler constructs CalendarHandler.
func NewCalendarHandler(calendar *service.CalendarService, exporter *export.PDFExporter) *CalendarHandler {
	return &CalendarHandler{calendar: calendar, exporter: exporter}
}

// Events godoc
// @Summary Calendar events for a date range
// @Tags Calendar
// @Produce json
// @Security BearerAuth
// @Param start query string true "Range start (YYYY-MM-DD)"
// @Param end query string true "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /calendar/events [get]
func (h *CalendarHandler) Events(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil || claims.StudentID == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	start, err := time.Parse("2006-01-02", c.Query("start"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "start must be YYYY-MM-DD"))
		return
	}
	end, err := time.Parse("2006-01-02", c.Query("end"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "end must be YYYY-MM-DD"))
		return
	}
	if end.Before(start) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "end must not precede start"))
		return
	}

	events, err := h.calendar.StudentCalendar(c.Request.Context(), *claims.StudentID, start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// ExportTimetable godoc
// @Summary Download the weekly timetable as PDF
// @Tags Calendar
// @Produce application/pdf
// @Security BearerAuth
// @Success 200 {file} binary
// @Router /calendar/export [get]
func (h *CalendarHandler) ExportTimetable(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil || claims.StudentID == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	dataset, err := h.calendar.TimetableDataset(c.Request.Context(), *claims.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	content, err := h.exporter.Render(dataset, "Weekly Timetable")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable"))
		return
	}
	filename := fmt.Sprintf("timetable-%s.pdf", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", content)
}
