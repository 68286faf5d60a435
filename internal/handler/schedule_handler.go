package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anton-kx/timetable-api/internal/service"
	appErrors "github.com/anton-kx/timetable-api/pkg/errors"
	"github.com/anton-kx/timetable-api/pkg/response"
)

// ScheduleHandler serves schedule lookups for the chat front end.
type ScheduleHandler struct {
	schedule *service.ScheduleService
}

// NewScheduleHandler constructs a schedule handler.
func NewScheduleHandler(schedule *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedule: schedule}
}

// Lessons returns a group's lessons for a date as structured rows.
func (h *ScheduleHandler) Lessons(c *gin.Context) {
	groupID, date, err := groupAndDate(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	lessons, err := h.schedule.LessonsForDay(c.Request.Context(), groupID, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons, nil)
}

// Day returns the rendered day text the bot sends verbatim.
func (h *ScheduleHandler) Day(c *gin.Context) {
	groupID, date, err := groupAndDate(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	text, err := h.schedule.DayText(c.Request.Context(), groupID, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"text": text}, nil)
}

// Week returns the rendered text for the study week containing the date.
func (h *ScheduleHandler) Week(c *gin.Context) {
	groupID, date, err := groupAndDate(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	text, err := h.schedule.WeekText(c.Request.Context(), groupID, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"text": text}, nil)
}

// groupAndDate parses the :id path param and the date query param. A missing
// date means today.
func groupAndDate(c *gin.Context) (int64, time.Time, error) {
	groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid group id")
	}

	raw := c.Query("date")
	if raw == "" {
		now := time.Now().UTC()
		return groupID, time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return 0, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	return groupID, date, nil
}
