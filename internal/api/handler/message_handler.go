package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/warblerhq/warbler/internal/api/middleware"
	"github.com/warblerhq/warbler/internal/service"
	"github.com/warblerhq/warbler/pkg/logger"
)

// Home renders the signed-in timeline, or the landing page for guests.
func (h *Handler) Home(c *gin.Context) {
	uid, ok := middleware.CurrentUser(c)
	if !ok {
		h.render(c, http.StatusOK, "home.html", nil)
		return
	}
	msgs, err := h.messages.Timeline(c.Request.Context(), uid)
	if err != nil {
		h.renderError(c, err)
		return
	}
	views, err := h.messageViews(c.Request.Context(), msgs)
	if err != nil {
		h.renderError(c, err)
		return
	}
	h.render(c, http.StatusOK, "home.html", gin.H{"Timeline": views})
}

func (h *Handler) NewMessageForm(c *gin.Context) {
	h.render(c, http.StatusOK, "message_new.html", nil)
}

type messageForm struct {
	Text string `form:"text" binding:"required"`
}

func (h *Handler) CreateMessage(c *gin.Context) {
	uid, _ := middleware.CurrentUser(c)
	s := middleware.Sess(c)

	var form messageForm
	if err := c.ShouldBind(&form); err != nil {
		s.Flash("Message text is required.")
		h.redirect(c, "/messages/new")
		return
	}

	if _, err := h.messages.Post(c.Request.Context(), uid, form.Text); err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyMessage), errors.Is(err, service.ErrMessageTooLong):
			s.Flash(err.Error())
			h.redirect(c, "/messages/new")
		default:
			h.renderError(c, err)
		}
		return
	}
	h.redirect(c, "/users/"+uid)
}

func (h *Handler) ShowMessage(c *gin.Context) {
	ctx := c.Request.Context()
	m, err := h.messages.Get(ctx, c.Param("id"))
	if err != nil {
		h.notFound(c)
		return
	}
	author, err := h.users.Get(ctx, m.UserID)
	if err != nil {
		h.notFound(c)
		return
	}
	likeCount, err := h.messages.CountLikes(ctx, m.ID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	data := gin.H{"Message": m, "Author": author, "LikeCount": likeCount}
	if uid, ok := middleware.CurrentUser(c); ok {
		liked, err := h.messages.HasLiked(ctx, uid, m.ID)
		if err != nil {
			h.renderError(c, err)
			return
		}
		data["HasLiked"] = liked
	}
	h.render(c, http.StatusOK, "message_show.html", data)
}

// DeleteMessage removes a message the signed-in user owns. A foreign or
// unknown message id is denied exactly like a missing login, with no
// partial side effect.
func (h *Handler) DeleteMessage(c *gin.Context) {
	uid, _ := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	m, err := h.messages.Get(ctx, c.Param("id"))
	if err != nil || m.UserID != uid {
		middleware.Deny(c)
		return
	}
	if err := h.messages.Delete(ctx, m.ID); err != nil {
		h.renderError(c, err)
		return
	}
	h.redirect(c, "/users/"+uid)
}

func (h *Handler) LikeMessage(c *gin.Context) {
	uid, _ := middleware.CurrentUser(c)
	s := middleware.Sess(c)

	err := h.messages.Like(c.Request.Context(), uid, c.Param("id"))
	switch {
	case err == nil:
	case errors.Is(err, service.ErrLikeOwnMessage):
		s.Flash("You cannot like your own message.")
	case errors.Is(err, service.ErrMessageGone):
		h.notFound(c)
		return
	default:
		h.renderError(c, err)
		return
	}
	h.redirect(c, backTo(c))
}

func (h *Handler) UnlikeMessage(c *gin.Context) {
	uid, _ := middleware.CurrentUser(c)
	if err := h.messages.Unlike(c.Request.Context(), uid, c.Param("id")); err != nil {
		h.renderError(c, err)
		return
	}
	h.redirect(c, backTo(c))
}

// backTo picks the page to return to after a like/unlike toggle.
func backTo(c *gin.Context) string {
	if ref := c.Request.Referer(); ref != "" {
		return ref
	}
	return "/"
}

func (h *Handler) notFound(c *gin.Context) {
	c.String(http.StatusNotFound, "404 Not Found")
}

func (h *Handler) renderError(c *gin.Context, err error) {
	logger.Error("handler", zap.String("path", c.Request.URL.Path), zap.Error(err))
	s := middleware.Sess(c)
	s.Flash("Something went wrong, please try again.")
	h.redirect(c, "/")
}
