package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/warblerhq/warbler/internal/api/middleware"
	"github.com/warblerhq/warbler/internal/service"
	"github.com/warblerhq/warbler/pkg/logger"
)

func (h *Handler) ListUsers(c *gin.Context) {
	q := c.Query("q")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	users, err := h.users.Search(c.Request.Context(), q, page, 50)
	if err != nil {
		h.renderError(c, err)
		return
	}
	h.render(c, http.StatusOK, "users_index.html", gin.H{"Users": users, "Query": q})
}

func (h *Handler) ShowUser(c *gin.Context) {
	ctx := c.Request.Context()
	profile, err := h.users.Get(ctx, c.Param("id"))
	if err != nil {
		h.notFound(c)
		return
	}

	msgs, err := h.messages.ListByUser(ctx, profile.ID, 1, 100)
	if err != nil {
		h.renderError(c, err)
		return
	}
	views, err := h.messageViews(ctx, msgs)
	if err != nil {
		h.renderError(c, err)
		return
	}

	msgCount, err := h.messages.CountByUser(ctx, profile.ID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	followingCount, err := h.relations.CountFollowing(ctx, profile.ID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	followerCount, err := h.relations.CountFollowers(ctx, profile.ID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	liked, err := h.messages.ListLiked(ctx, profile.ID, 1, 1000)
	if err != nil {
		h.renderError(c, err)
		return
	}

	data := gin.H{
		"Profile":        profile,
		"Messages":       views,
		"MessageCount":   msgCount,
		"FollowingCount": followingCount,
		"FollowerCount":  followerCount,
		"LikeCount":      len(liked),
	}
	if uid, ok := middleware.CurrentUser(c); ok && uid != profile.ID {
		following, err := h.relations.IsFollowing(ctx, uid, profile.ID)
		if err != nil {
			h.renderError(c, err)
			return
		}
		data["IsFollowing"] = following
	}
	h.render(c, http.StatusOK, "users_show.html", data)
}

func (h *Handler) Following(c *gin.Context) {
	ctx := c.Request.Context()
	profile, err := h.users.Get(ctx, c.Param("id"))
	if err != nil {
		h.notFound(c)
		return
	}
	ids, err := h.relations.ListFollowing(ctx, profile.ID, 1, 100)
	if err != nil {
		h.renderError(c, err)
		return
	}
	users, err := h.users.GetByIDs(ctx, ids)
	if err != nil {
		h.renderError(c, err)
		return
	}
	h.render(c, http.StatusOK, "following.html", gin.H{"Profile": profile, "Users": users})
}

func (h *Handler) Followers(c *gin.Context) {
	ctx := c.Request.Context()
	profile, err := h.users.Get(ctx, c.Param("id"))
	if err != nil {
		h.notFound(c)
		return
	}
	ids, err := h.relations.ListFollowers(ctx, profile.ID, 1, 100)
	if err != nil {
		h.renderError(c, err)
		return
	}
	users, err := h.users.GetByIDs(ctx, ids)
	if err != nil {
		h.renderError(c, err)
		return
	}
	h.render(c, http.StatusOK, "followers.html", gin.H{"Profile": profile, "Users": users})
}

func (h *Handler) Likes(c *gin.Context) {
	ctx := c.Request.Context()
	profile, err := h.users.Get(ctx, c.Param("id"))
	if err != nil {
		h.notFound(c)
		return
	}
	msgs, err := h.messages.ListLiked(ctx, profile.ID, 1, 100)
	if err != nil {
		h.renderError(c, err)
		return
	}
	views, err := h.messageViews(ctx, msgs)
	if err != nil {
		h.renderError(c, err)
		return
	}
	h.render(c, http.StatusOK, "likes.html", gin.H{"Profile": profile, "Messages": views})
}

func (h *Handler) FollowUser(c *gin.Context) {
	uid, _ := middleware.CurrentUser(c)
	s := middleware.Sess(c)

	err := h.relations.Follow(c.Request.Context(), uid, c.Param("id"))
	switch {
	case err == nil:
	case errors.Is(err, service.ErrFollowSelf):
		s.Flash("You cannot follow yourself.")
		h.redirect(c, "/users/"+uid)
		return
	case errors.Is(err, service.ErrUserNotFound):
		h.notFound(c)
		return
	default:
		h.renderError(c, err)
		return
	}
	h.redirect(c, "/users/"+uid+"/following")
}

func (h *Handler) UnfollowUser(c *gin.Context) {
	uid, _ := middleware.CurrentUser(c)
	if err := h.relations.Unfollow(c.Request.Context(), uid, c.Param("id")); err != nil {
		h.renderError(c, err)
		return
	}
	h.redirect(c, "/users/"+uid+"/following")
}

func (h *Handler) ProfileForm(c *gin.Context) {
	uid, _ := middleware.CurrentUser(c)
	profile, err := h.users.Get(c.Request.Context(), uid)
	if err != nil {
		h.renderError(c, err)
		return
	}
	h.render(c, http.StatusOK, "profile_edit.html", gin.H{"Profile": profile})
}

type profileForm struct {
	Username       string `form:"username" binding:"required,username"`
	Email          string `form:"email" binding:"required,email"`
	ImageURL       string `form:"image_url"`
	HeaderImageURL string `form:"header_image_url"`
	Bio            string `form:"bio"`
	Location       string `form:"location"`
	Password       string `form:"password" binding:"required"`
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	uid, _ := middleware.CurrentUser(c)
	s := middleware.Sess(c)

	var form profileForm
	if err := c.ShouldBind(&form); err != nil {
		s.Flash("Please check the profile fields and try again.")
		h.redirect(c, "/users/profile")
		return
	}

	upd := service.ProfileUpdate{
		Username:       &form.Username,
		Email:          &form.Email,
		ImageURL:       &form.ImageURL,
		HeaderImageURL: &form.HeaderImageURL,
		Bio:            &form.Bio,
		Location:       &form.Location,
	}
	_, err := h.users.UpdateProfile(c.Request.Context(), uid, form.Password, upd)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidCredentials):
		middleware.Deny(c)
		return
	case errors.Is(err, service.ErrUsernameTaken), errors.Is(err, service.ErrEmailTaken):
		s.Flash("Username or e-mail already taken")
		h.redirect(c, "/users/profile")
		return
	default:
		h.renderError(c, err)
		return
	}
	h.redirect(c, "/users/"+uid)
}

// DeleteUser removes the signed-in account, cascading to messages,
// likes and follow edges, and kills every live session for it.
func (h *Handler) DeleteUser(c *gin.Context) {
	uid, _ := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	if err := h.users.Delete(ctx, uid); err != nil {
		h.renderError(c, err)
		return
	}
	if err := h.sessions.DestroyAllForUser(ctx, uid); err != nil {
		logger.Warn("destroy sessions", zap.String("user", uid), zap.Error(err))
	}
	if err := middleware.Destroy(c); err != nil {
		logger.Warn("destroy session", zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/signup")
}
