package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/anton-kx/timetable-api/internal/models"
	"github.com/anton-kx/timetable-api/internal/service"
	"github.com/anton-kx/timetable-api/pkg/response"
)

// GroupHandler exposes study-group endpoints.
type GroupHandler struct {
	schedule *service.ScheduleService
}

// NewGroupHandler constructs a group handler.
func NewGroupHandler(schedule *service.ScheduleService) *GroupHandler {
	return &GroupHandler{schedule: schedule}
}

// List returns study groups, filterable by a code search string.
func (h *GroupHandler) List(c *gin.Context) {
	var filter models.GroupFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = limit
	}

	groups, pagination, err := h.schedule.Groups(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, pagination)
}
