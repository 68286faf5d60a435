package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/anton-kx/timetable-api/internal/service"
	appErrors "github.com/anton-kx/timetable-api/pkg/errors"
	"github.com/anton-kx/timetable-api/pkg/response"
)

// UserHandler exposes the chat user's group selection.
type UserHandler struct {
	users *service.UserService
}

// NewUserHandler constructs a user handler.
func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type selectGroupRequest struct {
	GroupID   int64  `json:"group_id"`
	GroupCode string `json:"group_code"`
}

// SelectGroup makes a group the user's active selection, by id or by code.
func (h *UserHandler) SelectGroup(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid user id"))
		return
	}

	var req selectGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	ctx := c.Request.Context()
	switch {
	case req.GroupID > 0:
		group, err := h.users.SelectGroup(ctx, userID, req.GroupID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, group, nil)
	case req.GroupCode != "":
		group, err := h.users.SelectGroupByCode(ctx, userID, req.GroupCode)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, group, nil)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "group_id or group_code is required"))
	}
}

// ActiveGroup returns the user's current selection.
func (h *UserHandler) ActiveGroup(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid user id"))
		return
	}

	group, err := h.users.ActiveGroup(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, group, nil)
}
