package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/warblerhq/warbler/internal/api/middleware"
	"github.com/warblerhq/warbler/pkg/response"
)

type followRequest struct {
	ToUserID string `json:"to_user_id" binding:"required"`
}

// APIFollow creates a follow edge from the signed-in user.
// @Summary Follow a user
// @Tags relations
// @Accept json
// @Produce json
// @Param request body followRequest true "target user"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/relations/follow [post]
func (h *Handler) APIFollow(c *gin.Context) {
	uid, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "login required")
		return
	}
	var req followRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.relations.Follow(c.Request.Context(), uid, req.ToUserID); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, nil)
}

// APIUnfollow removes a follow edge from the signed-in user.
// @Summary Unfollow a user
// @Tags relations
// @Accept json
// @Produce json
// @Param request body followRequest true "target user"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/relations/unfollow [post]
func (h *Handler) APIUnfollow(c *gin.Context) {
	uid, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "login required")
		return
	}
	var req followRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.relations.Unfollow(c.Request.Context(), uid, req.ToUserID); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, nil)
}

// APIListFollowing lists who a user follows.
// @Summary List following
// @Tags relations
// @Param user_id path string true "user id"
// @Param page query int false "page" default(1)
// @Param page_size query int false "page size" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/relations/{user_id}/following [get]
func (h *Handler) APIListFollowing(c *gin.Context) {
	userID := c.Param("user_id")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	list, err := h.relations.ListFollowing(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

// APIListFollowers lists a user's followers.
// @Summary List followers
// @Tags relations
// @Param user_id path string true "user id"
// @Param page query int false "page" default(1)
// @Param page_size query int false "page size" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/relations/{user_id}/followers [get]
func (h *Handler) APIListFollowers(c *gin.Context) {
	userID := c.Param("user_id")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	list, err := h.relations.ListFollowers(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

// APICheck reports both directions of a relationship in one call.
// @Summary Check relationship between two users
// @Tags relations
// @Param from query string true "user A"
// @Param to query string true "user B"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/relations/check [get]
func (h *Handler) APICheck(c *gin.Context) {
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		response.BadRequest(c, "from and to are required")
		return
	}
	following, err := h.relations.IsFollowing(c.Request.Context(), from, to)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	followedBy, err := h.relations.IsFollowedBy(c.Request.Context(), from, to)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"following": following, "followed_by": followedBy})
}
