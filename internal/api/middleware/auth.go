package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/warblerhq/warbler/pkg/logger"
)

// UnauthorizedFlash is the one-time message shown when a guarded
// action is attempted without (or with the wrong) login.
const UnauthorizedFlash = "Access unauthorized."

// RequireLogin gates a route on a logged-in session. Anonymous requests
// are redirected home with a flash; the handler never runs, so no
// partial mutation can happen.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			Deny(c)
			return
		}
		c.Next()
	}
}

// Deny aborts the request with the standard unauthorized flash + redirect.
// Used both by the gate and by handlers that discover an ownership
// violation after loading the resource.
func Deny(c *gin.Context) {
	s := Sess(c)
	s.Flash(UnauthorizedFlash)
	if err := Save(c); err != nil {
		logger.Error("save session on deny", zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/")
	c.Abort()
}
