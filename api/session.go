package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"flow-api/domain"
)

// SessionCookie is the name of the session cookie set at sign-in.
const SessionCookie = "flowsession"

const sessionUserField = "user_id"

// Sessions stores cookie-token sessions in Redis as hashes, so connect
// flows can stash short-lived values (like the pocket request code) next to
// the user id.
type Sessions struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessions creates a session store with the given TTL.
func NewSessions(client *redis.Client, ttl time.Duration) *Sessions {
	return &Sessions{client: client, ttl: ttl}
}

func sessionKey(token string) string {
	return "sess:" + token
}

// Create starts a session for the user and sets the cookie on the response.
func (s *Sessions) Create(ctx context.Context, c echo.Context, userID int64) (string, error) {
	token := uuid.NewString()
	key := sessionKey(token)
	if err := s.client.HSet(ctx, key, sessionUserField, strconv.FormatInt(userID, 10)).Err(); err != nil {
		return "", err
	}
	if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
		return "", err
	}
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

// UserID resolves a session token to the signed-in user's id.
func (s *Sessions) UserID(ctx context.Context, token string) (int64, bool, error) {
	v, err := s.client.HGet(ctx, sessionKey(token), sessionUserField).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return id, true, nil
}

// SetValue stashes a named value on the session.
func (s *Sessions) SetValue(ctx context.Context, token, field, value string) error {
	return s.client.HSet(ctx, sessionKey(token), field, value).Err()
}

// Value reads a named value off the session; absent fields yield "".
func (s *Sessions) Value(ctx context.Context, token, field string) (string, error) {
	v, err := s.client.HGet(ctx, sessionKey(token), field).Result()
	if err == redis.Nil {
		return "", nil
	}
	return v, err
}

// Destroy deletes the session and expires the cookie.
func (s *Sessions) Destroy(ctx context.Context, c echo.Context) error {
	token, ok := sessionToken(c)
	if ok {
		if err := s.client.Del(ctx, sessionKey(token)).Err(); err != nil {
			return err
		}
	}
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	return nil
}

func sessionToken(c echo.Context) (string, bool) {
	cookie, err := c.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// userHandler is a handler that runs with the resolved session user.
type userHandler func(c echo.Context, u *domain.User) error

// requireUser resolves the session user before running h, short-circuiting
// with a uniform unauthorized response otherwise.
func (d Deps) requireUser(h userHandler) echo.HandlerFunc {
	return func(c echo.Context) error {
		u := d.currentUser(c)
		if u == nil {
			return unauthorized(c)
		}
		return h(c, u)
	}
}

// requireAdmin additionally requires the configured admin account.
func (d Deps) requireAdmin(h userHandler) echo.HandlerFunc {
	return func(c echo.Context) error {
		u := d.currentUser(c)
		if u == nil || d.AdminEmail == "" || u.Email != d.AdminEmail {
			return unauthorized(c)
		}
		return h(c, u)
	}
}

func (d Deps) currentUser(c echo.Context) *domain.User {
	token, ok := sessionToken(c)
	if !ok {
		return nil
	}
	ctx := c.Request().Context()
	userID, ok, err := d.Sessions.UserID(ctx, token)
	if err != nil || !ok {
		return nil
	}
	u, err := d.Store.GetUser(ctx, userID)
	if err != nil {
		d.Log.Warnf("session user lookup failed: %v", err)
		return nil
	}
	return u
}
