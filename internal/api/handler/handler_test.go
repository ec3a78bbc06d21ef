package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/warblerhq/warbler/internal/api/handler"
	"github.com/warblerhq/warbler/internal/api/middleware"
	"github.com/warblerhq/warbler/internal/api/router"
	"github.com/warblerhq/warbler/internal/cache"
	"github.com/warblerhq/warbler/internal/config"
	"github.com/warblerhq/warbler/internal/model"
	"github.com/warblerhq/warbler/internal/repository"
	"github.com/warblerhq/warbler/internal/service"
	"github.com/warblerhq/warbler/internal/session"
)

type testApp struct {
	engine   *gin.Engine
	sessions *session.Manager
	users    service.UserService
	messages service.MessageService
	db       *gorm.DB
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	likeRepo := repository.NewLikeRepository(db)

	followers := cache.NewFollowerCache(rdb, time.Minute)
	sessions := session.NewManager(rdb, "test-secret", "warbler_session", time.Hour)

	users := service.NewUserService(userRepo, followRepo, followers, bcrypt.MinCost)
	messages := service.NewMessageService(msgRepo, likeRepo, followRepo)
	relations := service.NewRelationshipService(followRepo, userRepo, followers)

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.RateLimit.RPS = 1000
	cfg.RateLimit.Burst = 1000

	h := handler.New(users, messages, relations, sessions)
	engine := router.New(cfg, h, sessions)

	return &testApp{engine: engine, sessions: sessions, users: users, messages: messages, db: db}
}

func (a *testApp) signup(t *testing.T, username string) *model.User {
	t.Helper()
	u, err := a.users.Signup(context.Background(), username, username+"@example.com", "password", "")
	require.NoError(t, err)
	return u
}

// loginCookie mints a session cookie for userID, the way a browser
// would hold one after logging in.
func (a *testApp) loginCookie(t *testing.T, userID string) *http.Cookie {
	t.Helper()
	s := a.sessions.Open(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	s.SetUser(userID)
	rec := httptest.NewRecorder()
	require.NoError(t, a.sessions.Save(context.Background(), rec, s))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func (a *testApp) do(t *testing.T, method, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)
	return rec
}

// flashesFor reads the one-time messages pending on the session cookie
// the server sent back.
func (a *testApp) flashesFor(t *testing.T, rec *httptest.ResponseRecorder, fallback *http.Cookie) []string {
	t.Helper()
	c := fallback
	for _, rc := range rec.Result().Cookies() {
		if rc.Name == "warbler_session" {
			c = rc
		}
	}
	require.NotNil(t, c, "no session cookie in play")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	return a.sessions.Open(context.Background(), req).PopFlashes()
}

func (a *testApp) messageCount(t *testing.T) int64 {
	t.Helper()
	var cnt int64
	require.NoError(t, a.db.Model(&model.Message{}).Count(&cnt).Error)
	return cnt
}

func TestAddMessage(t *testing.T) {
	a := newTestApp(t)
	u := a.signup(t, "testuser")
	cookie := a.loginCookie(t, u.ID)

	rec := a.do(t, http.MethodPost, "/messages/new", url.Values{"text": {"Hello"}}, cookie)

	assert.Equal(t, http.StatusFound, rec.Code)

	var msgs []model.Message
	require.NoError(t, a.db.Find(&msgs).Error)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hello", msgs[0].Text)
	assert.Equal(t, u.ID, msgs[0].UserID)
}

func TestAddMessageLoggedOut(t *testing.T) {
	a := newTestApp(t)
	a.signup(t, "testuser")

	rec := a.do(t, http.MethodPost, "/messages/new", url.Values{"text": {"Hello"}})

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Zero(t, a.messageCount(t), "no partial side effect")
	assert.Contains(t, a.flashesFor(t, rec, nil), middleware.UnauthorizedFlash)
}

func TestDeleteMessage(t *testing.T) {
	a := newTestApp(t)
	u := a.signup(t, "testuser")
	m, err := a.messages.Post(context.Background(), u.ID, "Hello")
	require.NoError(t, err)
	cookie := a.loginCookie(t, u.ID)

	rec := a.do(t, http.MethodPost, "/messages/"+m.ID+"/delete", url.Values{}, cookie)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Zero(t, a.messageCount(t))
}

func TestDeleteMessageLoggedOut(t *testing.T) {
	a := newTestApp(t)
	u := a.signup(t, "testuser")
	m, err := a.messages.Post(context.Background(), u.ID, "Hello")
	require.NoError(t, err)

	rec := a.do(t, http.MethodPost, "/messages/"+m.ID+"/delete", url.Values{})

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.EqualValues(t, 1, a.messageCount(t), "message must survive")
	assert.Contains(t, a.flashesFor(t, rec, nil), middleware.UnauthorizedFlash)
}

func TestDeleteOtherUsersMessage(t *testing.T) {
	a := newTestApp(t)
	owner := a.signup(t, "owner")
	intruder := a.signup(t, "intruder")
	m, err := a.messages.Post(context.Background(), owner.ID, "Hello")
	require.NoError(t, err)
	cookie := a.loginCookie(t, intruder.ID)

	rec := a.do(t, http.MethodPost, "/messages/"+m.ID+"/delete", url.Values{}, cookie)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.EqualValues(t, 1, a.messageCount(t), "message must survive")
	assert.Contains(t, a.flashesFor(t, rec, cookie), middleware.UnauthorizedFlash)
}

func TestFollowingPage(t *testing.T) {
	a := newTestApp(t)
	u := a.signup(t, "testuser")
	other := a.signup(t, "friend")
	require.NoError(t, a.db.Create(&model.Follow{ID: "f1", FollowerID: u.ID, FolloweeID: other.ID}).Error)
	cookie := a.loginCookie(t, u.ID)

	rec := a.do(t, http.MethodGet, "/users/"+u.ID+"/following", nil, cookie)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "@friend")
}

func TestFollowingPageLoggedOut(t *testing.T) {
	a := newTestApp(t)
	u := a.signup(t, "testuser")

	rec := a.do(t, http.MethodGet, "/users/"+u.ID+"/following", nil)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, a.flashesFor(t, rec, nil), middleware.UnauthorizedFlash)
}

func TestSignupFlow(t *testing.T) {
	a := newTestApp(t)

	form := url.Values{
		"username": {"newbie"},
		"email":    {"newbie@example.com"},
		"password": {"password"},
	}
	rec := a.do(t, http.MethodPost, "/signup", form)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	// the new session is logged in
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "warbler_session" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	uid, ok := a.sessions.Open(context.Background(), req).CurrentUser()
	require.True(t, ok)

	u, err := a.users.Get(context.Background(), uid)
	require.NoError(t, err)
	assert.Equal(t, "newbie", u.Username)
}

func TestSignupDuplicateUsername(t *testing.T) {
	a := newTestApp(t)
	a.signup(t, "taken")

	form := url.Values{
		"username": {"taken"},
		"email":    {"fresh@example.com"},
		"password": {"password"},
	}
	rec := a.do(t, http.MethodPost, "/signup", form)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/signup", rec.Header().Get("Location"))

	var cnt int64
	require.NoError(t, a.db.Model(&model.User{}).Count(&cnt).Error)
	assert.EqualValues(t, 1, cnt, "no second row")
	assert.Contains(t, a.flashesFor(t, rec, nil), "Username or e-mail already taken")
}

func TestLoginFlow(t *testing.T) {
	a := newTestApp(t)
	a.signup(t, "testuser")

	rec := a.do(t, http.MethodPost, "/login", url.Values{"username": {"testuser"}, "password": {"password"}})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = a.do(t, http.MethodPost, "/login", url.Values{"username": {"testuser"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Contains(t, a.flashesFor(t, rec, nil), "Invalid credentials.")

	// unknown user reads exactly the same
	rec = a.do(t, http.MethodPost, "/login", url.Values{"username": {"ghost"}, "password": {"password"}})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Contains(t, a.flashesFor(t, rec, nil), "Invalid credentials.")
}

func TestFollowAndUnfollow(t *testing.T) {
	a := newTestApp(t)
	u := a.signup(t, "testuser")
	other := a.signup(t, "friend")
	cookie := a.loginCookie(t, u.ID)

	rec := a.do(t, http.MethodPost, "/users/follow/"+other.ID, url.Values{}, cookie)
	assert.Equal(t, http.StatusFound, rec.Code)

	var cnt int64
	require.NoError(t, a.db.Model(&model.Follow{}).Count(&cnt).Error)
	assert.EqualValues(t, 1, cnt)

	rec = a.do(t, http.MethodPost, "/users/stop-following/"+other.ID, url.Values{}, cookie)
	assert.Equal(t, http.StatusFound, rec.Code)

	require.NoError(t, a.db.Model(&model.Follow{}).Count(&cnt).Error)
	assert.Zero(t, cnt)
}

func TestDeleteAccountCascades(t *testing.T) {
	a := newTestApp(t)
	u := a.signup(t, "testuser")
	other := a.signup(t, "friend")
	_, err := a.messages.Post(context.Background(), u.ID, "bye")
	require.NoError(t, err)
	require.NoError(t, a.db.Create(&model.Follow{ID: "f1", FollowerID: u.ID, FolloweeID: other.ID}).Error)
	cookie := a.loginCookie(t, u.ID)

	rec := a.do(t, http.MethodPost, "/users/delete", url.Values{}, cookie)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/signup", rec.Header().Get("Location"))

	var cnt int64
	require.NoError(t, a.db.Model(&model.User{}).Count(&cnt).Error)
	assert.EqualValues(t, 1, cnt, "only the other user remains")
	assert.Zero(t, a.messageCount(t))
	require.NoError(t, a.db.Model(&model.Follow{}).Count(&cnt).Error)
	assert.Zero(t, cnt)

	// the old cookie no longer authenticates
	rec = a.do(t, http.MethodPost, "/messages/new", url.Values{"text": {"ghost"}}, cookie)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Zero(t, a.messageCount(t))
}

func TestAPICheckRelation(t *testing.T) {
	a := newTestApp(t)
	u := a.signup(t, "ada")
	other := a.signup(t, "bob")
	require.NoError(t, a.db.Create(&model.Follow{ID: "f1", FollowerID: u.ID, FolloweeID: other.ID}).Error)

	rec := a.do(t, http.MethodGet, "/api/v1/relations/check?from="+u.ID+"&to="+other.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"following":true`)
	assert.Contains(t, rec.Body.String(), `"followed_by":false`)
}

func TestAPIFollowRequiresLogin(t *testing.T) {
	a := newTestApp(t)
	other := a.signup(t, "bob")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/relations/follow",
		strings.NewReader(`{"to_user_id":"`+other.ID+`"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
