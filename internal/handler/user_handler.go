package handler

import (
	"net/http"

	"github.com/arisehq/levelup/internal/service"
	"github.com/arisehq/levelup/pkg/response"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService  service.UserService
	badgeService service.BadgeService
}

func NewUserHandler(userService service.UserService, badgeService service.BadgeService) *UserHandler {
	return &UserHandler{
		userService:  userService,
		badgeService: badgeService,
	}
}

// GetStatus returns the authenticated user's XP, streaks and derived rank.
func (h *UserHandler) GetStatus(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	status, err := h.userService.GetStatus(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": status})
}

func (h *UserHandler) GetBadges(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	badges, err := h.badgeService.ListUserBadges(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": badges})
}
