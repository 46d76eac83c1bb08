// This file implements the PIN gate. After a successful unlock the handler
// marks the cookie session as unlocked; while the gate is enabled every route
// outside the exempt prefixes answers 423 Locked until that flag is present.
//
// The session itself is provided by gin-contrib/sessions (cookie store) and
// must be installed before RequirePINUnlock.

package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// SessionName is the cookie name of the unlock session.
const SessionName = "medremind_session"

const (
	sessionKeyUnlocked   = "unlocked"
	sessionKeyUnlockedAt = "unlocked_at"
)

// SessionOptions configures the cookie session store.
type SessionOptions struct {
	Secret []byte
	MaxAge time.Duration
	Secure bool
}

// Sessions installs a signed cookie session store. The cookie is HttpOnly and
// SameSite=Strict.
func Sessions(opts SessionOptions) gin.HandlerFunc {
	store := cookie.NewStore(opts.Secret)
	maxAge := int(opts.MaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int((12 * time.Hour).Seconds())
	}
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteStrictMode,
	})
	return sessions.Sessions(SessionName, store)
}

// ErrNoSession is returned when no session middleware is installed.
var ErrNoSession = errors.New("session store not installed")

// GateOptions configures RequirePINUnlock.
type GateOptions struct {
	// Enabled turns the gate on. When false the middleware is a no-op.
	Enabled bool
	// Exempt lists path prefixes reachable while locked (e.g. "/api/v1/auth").
	// A prefix matches itself and the paths below it, never a sibling such as
	// "/api/v1/authors".
	Exempt []string
}

// RequirePINUnlock aborts with 423 Locked unless the session carries the
// unlock flag or the path is exempt.
func RequirePINUnlock(opts GateOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !opts.Enabled || IsUnlocked(c) {
			c.Next()
			return
		}
		path := c.Request.URL.Path
		for _, p := range opts.Exempt {
			if exemptPath(path, p) {
				c.Next()
				return
			}
		}
		abortError(c, http.StatusLocked, "locked", "enter your PIN to unlock")
	}
}

// exemptPath reports whether path is prefix or lies beneath it.
func exemptPath(path, prefix string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return false
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// IsUnlocked reports whether the current session is unlocked. It returns
// false when no session middleware is installed.
func IsUnlocked(c *gin.Context) bool {
	if _, ok := c.Get(sessions.DefaultKey); !ok {
		return false
	}
	v, _ := sessions.Default(c).Get(sessionKeyUnlocked).(bool)
	return v
}

// MarkUnlocked sets the unlock flag on the session and saves it.
func MarkUnlocked(c *gin.Context, at time.Time) error {
	if _, ok := c.Get(sessions.DefaultKey); !ok {
		return ErrNoSession
	}
	s := sessions.Default(c)
	s.Set(sessionKeyUnlocked, true)
	s.Set(sessionKeyUnlockedAt, at.Unix())
	return s.Save()
}

// ClearUnlocked removes every session value and saves the session.
func ClearUnlocked(c *gin.Context) error {
	if _, ok := c.Get(sessions.DefaultKey); !ok {
		return ErrNoSession
	}
	s := sessions.Default(c)
	s.Clear()
	return s.Save()
}
