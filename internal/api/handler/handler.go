package handler

import (
	"context"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/warblerhq/warbler/internal/api/middleware"
	"github.com/warblerhq/warbler/internal/model"
	"github.com/warblerhq/warbler/internal/service"
	"github.com/warblerhq/warbler/internal/session"
	"github.com/warblerhq/warbler/pkg/logger"
)

type Handler struct {
	users     service.UserService
	messages  service.MessageService
	relations service.RelationshipService
	sessions  *session.Manager
}

func New(users service.UserService, messages service.MessageService, relations service.RelationshipService, sessions *session.Manager) *Handler {
	return &Handler{users: users, messages: messages, relations: relations, sessions: sessions}
}

var usernameRx = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)

// RegisterFormValidators installs custom binding validators. Call once
// before routes are mounted.
func RegisterFormValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernameRx.MatchString(fl.Field().String())
		})
	}
}

// render draws a view with flashes and the signed-in user injected.
// Flashes are consumed here, so the session save must precede the write.
func (h *Handler) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Flashes"] = middleware.Sess(c).PopFlashes()
	if uid, ok := middleware.CurrentUser(c); ok {
		if u, err := h.users.Get(c.Request.Context(), uid); err == nil {
			data["CurrentUser"] = u
		}
	}
	if err := middleware.Save(c); err != nil {
		logger.Error("save session", zap.Error(err))
	}
	c.HTML(status, name, data)
}

// MessageView pairs a message with its author for the templates.
type MessageView struct {
	ID        string
	Text      string
	CreatedAt time.Time
	Author    *model.User
}

func (h *Handler) messageViews(ctx context.Context, msgs []*model.Message) ([]MessageView, error) {
	ids := make([]string, 0, len(msgs))
	seen := map[string]bool{}
	for _, m := range msgs {
		if !seen[m.UserID] {
			seen[m.UserID] = true
			ids = append(ids, m.UserID)
		}
	}
	authors, err := h.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.User, len(authors))
	for _, u := range authors {
		byID[u.ID] = u
	}
	views := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		author, ok := byID[m.UserID]
		if !ok {
			continue
		}
		views = append(views, MessageView{ID: m.ID, Text: m.Text, CreatedAt: m.CreatedAt, Author: author})
	}
	return views, nil
}
