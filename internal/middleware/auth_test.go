package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"teachereval/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuth(t *testing.T) *Auth {
	t.Helper()
	a, err := NewAuth(config.AdminConfig{
		Password:      "s3cret",
		SessionSecret: "test-secret",
		SessionTTL:    time.Hour,
	})
	require.NoError(t, err)
	return a
}

func protectedRouter(a *Auth) *gin.Engine {
	r := gin.New()
	r.POST("/login", func(c *gin.Context) {
		if err := a.Login(c, c.PostForm("password")); err != nil {
			c.Status(http.StatusUnauthorized)
			return
		}
		c.Status(http.StatusNoContent)
	})
	ok := func(c *gin.Context) { c.String(http.StatusOK, "ok") }
	r.GET("/page", a.RequireAdmin(Page), ok)
	r.GET("/api", a.RequireAdmin(API), ok)
	r.POST("/import", a.RequireAdmin(Forbidden), ok)
	return r
}

func TestRequireAdminWithoutSession(t *testing.T) {
	r := protectedRouter(newAuth(t))

	tests := []struct {
		method, path string
		wantStatus   int
	}{
		{http.MethodGet, "/page", http.StatusFound},
		{http.MethodGet, "/api", http.StatusUnauthorized},
		{http.MethodPost, "/import", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusFound {
				assert.Equal(t, LoginPath, w.Header().Get("Location"))
			}
		})
	}
}

func TestLoginSetsSessionCookie(t *testing.T) {
	a := newAuth(t)
	r := protectedRouter(a)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("password=wrong"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Result().Cookies())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("password=s3cret"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	for _, path := range []string{"/page", "/api"} {
		w = httptest.NewRecorder()
		req = httptest.NewRequest(http.MethodGet, path, nil)
		req.AddCookie(cookies[0])
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestSessionRejectsExpiredAndForeignTokens(t *testing.T) {
	a := newAuth(t)
	r := protectedRouter(a)

	a.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := a.IssueToken()
	require.NoError(t, err)
	a.now = time.Now

	other, err := NewAuth(config.AdminConfig{Password: "x", SessionSecret: "another-secret", SessionTTL: time.Hour})
	require.NoError(t, err)
	foreign, err := other.IssueToken()
	require.NoError(t, err)

	for name, token := range map[string]string{"expired": expired, "foreign": foreign, "garbage": "abc.def.ghi"} {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api", nil)
			req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestNewAuthWithHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hashed-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	a, err := NewAuth(config.AdminConfig{PasswordHash: string(hash), Password: "ignored", SessionSecret: "s"})
	require.NoError(t, err)
	assert.NoError(t, a.CheckPassword("hashed-pass"))
	assert.ErrorIs(t, a.CheckPassword("ignored"), ErrWrongPassword)

	_, err = NewAuth(config.AdminConfig{PasswordHash: "not-a-hash", SessionSecret: "s"})
	assert.Error(t, err)

	_, err = NewAuth(config.AdminConfig{SessionSecret: "s"})
	assert.Error(t, err)
}
