package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/warblerhq/warbler/internal/session"
)

const (
	sessionKey    = "warbler.session"
	sessionMgrKey = "warbler.session.manager"
)

// Session opens the browser session and stashes it on the gin context.
// Handlers mutate it via Sess(c) and must call Save(c) before writing
// the response body or redirecting (cookies ride on the headers).
func Session(mgr *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(sessionKey, mgr.Open(c.Request.Context(), c.Request))
		c.Set(sessionMgrKey, mgr)
		c.Next()
	}
}

// Sess returns the request's session. Panics if the Session middleware
// is not installed, which is a wiring bug.
func Sess(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}

// CurrentUser returns the logged-in user id for this request.
func CurrentUser(c *gin.Context) (string, bool) {
	return Sess(c).CurrentUser()
}

// Save persists session changes and refreshes the cookie. No-op when
// nothing changed.
func Save(c *gin.Context) error {
	s := Sess(c)
	if !s.Dirty() {
		return nil
	}
	mgr := c.MustGet(sessionMgrKey).(*session.Manager)
	return mgr.Save(c.Request.Context(), c.Writer, s)
}

// Destroy drops the session server-side and expires the cookie.
func Destroy(c *gin.Context) error {
	mgr := c.MustGet(sessionMgrKey).(*session.Manager)
	return mgr.Destroy(c.Request.Context(), c.Writer, Sess(c))
}
