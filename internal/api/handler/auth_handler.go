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

type signupForm struct {
	Username string `form:"username" binding:"required,username"`
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required,min=6"`
	ImageURL string `form:"image_url" binding:"omitempty,url"`
}

type loginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

func (h *Handler) SignupForm(c *gin.Context) {
	h.render(c, http.StatusOK, "signup.html", nil)
}

func (h *Handler) Signup(c *gin.Context) {
	s := middleware.Sess(c)

	var form signupForm
	if err := c.ShouldBind(&form); err != nil {
		s.Flash("Please check the signup fields and try again.")
		h.redirect(c, "/signup")
		return
	}

	u, err := h.users.Signup(c.Request.Context(), form.Username, form.Email, form.Password, form.ImageURL)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUsernameTaken), errors.Is(err, service.ErrEmailTaken):
			// single message for both fields, no enumeration help
			s.Flash("Username or e-mail already taken")
		default:
			logger.Error("signup", zap.Error(err))
			s.Flash("Something went wrong, please try again.")
		}
		h.redirect(c, "/signup")
		return
	}

	s.SetUser(u.ID)
	h.redirect(c, "/")
}

func (h *Handler) LoginForm(c *gin.Context) {
	h.render(c, http.StatusOK, "login.html", nil)
}

func (h *Handler) Login(c *gin.Context) {
	s := middleware.Sess(c)

	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		s.Flash("Invalid credentials.")
		h.redirect(c, "/login")
		return
	}

	u, err := h.users.Authenticate(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		// bad password and unknown username read the same
		s.Flash("Invalid credentials.")
		h.redirect(c, "/login")
		return
	}

	s.SetUser(u.ID)
	s.Flash("Hello, " + u.Username + "!")
	h.redirect(c, "/")
}

func (h *Handler) Logout(c *gin.Context) {
	s := middleware.Sess(c)
	s.ClearUser()
	s.Flash("You have successfully logged out.")
	h.redirect(c, "/login")
}

// redirect saves pending session changes and issues a 302. Cookies ride
// on response headers, so the save has to happen first.
func (h *Handler) redirect(c *gin.Context, location string) {
	if err := middleware.Save(c); err != nil {
		logger.Error("save session", zap.Error(err))
	}
	c.Redirect(http.StatusFound, location)
}
