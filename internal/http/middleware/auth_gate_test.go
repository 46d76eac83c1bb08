package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newGateRouter(enabled bool) *gin.Engine {
	r := gin.New()
	r.Use(Sessions(SessionOptions{Secret: []byte("0123456789abcdef0123456789abcdef"), MaxAge: time.Hour}))
	r.Use(RequirePINUnlock(GateOptions{Enabled: enabled, Exempt: []string{"/api/v1/auth"}}))

	r.POST("/api/v1/auth/unlock", func(c *gin.Context) {
		if err := MarkUnlocked(c, time.Now()); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})
	r.POST("/api/v1/auth/lock", func(c *gin.Context) {
		_ = ClearUnlocked(c)
		c.Status(http.StatusNoContent)
	})
	r.GET("/api/v1/medications", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"unlocked": IsUnlocked(c)})
	})
	r.GET("/api/v1/auth", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/authors", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func serveWithCookies(r http.Handler, method, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRequirePINUnlock_LockedUntilUnlock(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := newGateRouter(true)

	w := serveWithCookies(r, http.MethodGet, "/api/v1/medications", nil)
	if w.Code != http.StatusLocked {
		t.Fatalf("expected 423 while locked, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["code"] != "locked" {
		t.Fatalf("unexpected locked body: %s (%v)", w.Body.String(), err)
	}

	// Auth routes stay reachable.
	w = serveWithCookies(r, http.MethodPost, "/api/v1/auth/unlock", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("unlock -> %d", w.Code)
	}
	cookies := w.Result().Cookies()
	if len(cookies) == 0 || cookies[0].Name != SessionName || !cookies[0].HttpOnly {
		t.Fatalf("expected HttpOnly session cookie, got %+v", cookies)
	}

	w = serveWithCookies(r, http.MethodGet, "/api/v1/medications", cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 once unlocked, got %d", w.Code)
	}

	// Locking again clears the flag.
	w = serveWithCookies(r, http.MethodPost, "/api/v1/auth/lock", cookies)
	if w.Code != http.StatusNoContent {
		t.Fatalf("lock -> %d", w.Code)
	}
	w = serveWithCookies(r, http.MethodGet, "/api/v1/medications", w.Result().Cookies())
	if w.Code != http.StatusLocked {
		t.Fatalf("expected 423 after lock, got %d", w.Code)
	}
}

func TestRequirePINUnlock_ExemptMatchesWholeSegments(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := newGateRouter(true)

	cases := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/api/v1/auth", http.StatusOK},
		{http.MethodPost, "/api/v1/auth/unlock", http.StatusNoContent},
		{http.MethodGet, "/api/v1/authors", http.StatusLocked},
		{http.MethodGet, "/api/v1/authanything", http.StatusLocked},
	}
	for _, tc := range cases {
		if w := serveWithCookies(r, tc.method, tc.path, nil); w.Code != tc.want {
			t.Fatalf("%s %s -> %d, want %d", tc.method, tc.path, w.Code, tc.want)
		}
	}
}

func TestRequirePINUnlock_DisabledIsNoop(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := newGateRouter(false)

	w := serveWithCookies(r, http.MethodGet, "/api/v1/medications", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with gate disabled, got %d", w.Code)
	}
}

func TestIsUnlocked_NoSessionMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if IsUnlocked(c) {
		t.Fatalf("expected locked without a session store")
	}
}

func TestMarkUnlocked_NoSessionMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	if err := MarkUnlocked(c, time.Now()); err != ErrNoSession {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if err := ClearUnlocked(c); err != ErrNoSession {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}
