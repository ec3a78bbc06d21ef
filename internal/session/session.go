package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CurrUserKey is the well-known key holding the logged-in user id.
const CurrUserKey = "curr_user"

// Manager loads and persists browser sessions. State lives in Redis
// under session:<id>; the cookie only carries the id, HMAC-signed so
// a client cannot forge or swap ids.
type Manager struct {
	client     *redis.Client
	secret     []byte
	cookieName string
	ttl        time.Duration
}

func NewManager(client *redis.Client, secret, cookieName string, ttl time.Duration) *Manager {
	return &Manager{client: client, secret: []byte(secret), cookieName: cookieName, ttl: ttl}
}

type sessionData struct {
	Values  map[string]string `json:"values"`
	Flashes []string          `json:"flashes,omitempty"`
}

// Session is the per-request view of one browser session. Mutations are
// local until Save.
type Session struct {
	id    string
	mgr   *Manager
	data  sessionData
	dirty bool
}

// Open returns the session for the request's cookie. A missing, tampered
// or expired cookie yields a fresh anonymous session, never an error.
func (m *Manager) Open(ctx context.Context, r *http.Request) *Session {
	s := &Session{id: uuid.New().String(), mgr: m, data: sessionData{Values: map[string]string{}}}

	c, err := r.Cookie(m.cookieName)
	if err != nil {
		return s
	}
	sid, err := m.verify(c.Value)
	if err != nil {
		return s
	}
	raw, err := m.client.Get(ctx, redisKey(sid)).Bytes()
	if err != nil {
		return s
	}
	var data sessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return s
	}
	if data.Values == nil {
		data.Values = map[string]string{}
	}
	s.id = sid
	s.data = data
	return s
}

// Save persists the session to Redis and (re)writes the cookie.
func (m *Manager) Save(ctx context.Context, w http.ResponseWriter, s *Session) error {
	raw, err := json.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := m.client.Set(ctx, redisKey(s.id), raw, m.ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	token, err := m.sign(s.id)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Destroy drops the server-side state and expires the cookie.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if err := m.client.Del(ctx, redisKey(s.id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// DestroyAllForUser removes every live session belonging to userID
// (account deletion path).
func (m *Manager) DestroyAllForUser(ctx context.Context, userID string) error {
	iter := m.client.Scan(ctx, 0, "session:*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := m.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var data sessionData
		if json.Unmarshal(raw, &data) != nil {
			continue
		}
		if data.Values[CurrUserKey] == userID {
			_ = m.client.Del(ctx, key).Err()
		}
	}
	return iter.Err()
}

func (s *Session) CurrentUser() (string, bool) {
	id, ok := s.data.Values[CurrUserKey]
	return id, ok && id != ""
}

func (s *Session) SetUser(userID string) {
	s.data.Values[CurrUserKey] = userID
	s.dirty = true
}

func (s *Session) ClearUser() {
	delete(s.data.Values, CurrUserKey)
	s.dirty = true
}

// Flash queues a one-time message for the next rendered page.
func (s *Session) Flash(msg string) {
	s.data.Flashes = append(s.data.Flashes, msg)
	s.dirty = true
}

// PopFlashes returns queued flashes and clears them.
func (s *Session) PopFlashes() []string {
	out := s.data.Flashes
	if len(out) > 0 {
		s.data.Flashes = nil
		s.dirty = true
	}
	return out
}

// Dirty reports whether the session changed since it was opened.
func (s *Session) Dirty() bool { return s.dirty }

func (s *Session) ID() string { return s.id }

func redisKey(sid string) string { return "session:" + sid }

func (m *Manager) sign(sid string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sid": sid})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session cookie: %w", err)
	}
	return signed, nil
}

var errBadCookie = errors.New("invalid session cookie")

func (m *Manager) verify(value string) (string, error) {
	token, err := jwt.Parse(value, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errBadCookie
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return "", errBadCookie
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errBadCookie
	}
	sid, _ := claims["sid"].(string)
	if sid == "" {
		return "", errBadCookie
	}
	return sid, nil
}
