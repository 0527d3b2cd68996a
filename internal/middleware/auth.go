package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"teachereval/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	SessionCookie = "admin_session"
	LoginPath     = "/admin/login"
	adminRole     = "admin"
	AdminKey      = "is_admin"
)

var ErrWrongPassword = errors.New("wrong password")

// Mode decides how RequireAdmin answers an unauthenticated request.
type Mode int

const (
	// Page redirects to the login form.
	Page Mode = iota
	// API answers 401 with a JSON error.
	API
	// Forbidden answers 403 with a JSON error.
	Forbidden
)

type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Auth checks the shared admin password and keeps the admin session in a
// signed cookie.
type Auth struct {
	hash   []byte
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewAuth prepares the password check. A configured bcrypt hash is used as is,
// otherwise the plain password is hashed once here.
func NewAuth(cfg config.AdminConfig) (*Auth, error) {
	hash := []byte(cfg.PasswordHash)
	if len(hash) == 0 {
		if cfg.Password == "" {
			return nil, errors.New("admin password is not configured")
		}
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
	} else if _, err := bcrypt.Cost(hash); err != nil {
		return nil, fmt.Errorf("invalid ADMIN_PASSWORD_HASH: %w", err)
	}

	return &Auth{
		hash:   hash,
		secret: []byte(cfg.SessionSecret),
		ttl:    cfg.SessionTTL,
		secure: cfg.SecureCookie,
		now:    time.Now,
	}, nil
}

func (a *Auth) CheckPassword(password string) error {
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// IssueToken signs a session token valid for the configured TTL.
func (a *Auth) IssueToken() (string, error) {
	now := a.now()
	claims := AdminClaims{
		Role: adminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Login checks the password and sets the session cookie.
func (a *Auth) Login(c *gin.Context, password string) error {
	if err := a.CheckPassword(password); err != nil {
		return err
	}
	token, err := a.IssueToken()
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, int(a.ttl.Seconds()), "/", "", a.secure, true)
	return nil
}

func (a *Auth) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", a.secure, true)
}

// IsAdmin reports whether the request carries a valid session cookie.
func (a *Auth) IsAdmin(c *gin.Context) bool {
	raw, err := c.Cookie(SessionCookie)
	if err != nil || raw == "" {
		return false
	}

	token, err := jwt.ParseWithClaims(raw, &AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return false
	}
	claims, ok := token.Claims.(*AdminClaims)
	return ok && claims.Role == adminRole
}

// RequireAdmin rejects requests without an admin session, answering according to mode.
func (a *Auth) RequireAdmin(mode Mode) gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.IsAdmin(c) {
			c.Set(AdminKey, true)
			c.Next()
			return
		}

		switch mode {
		case Page:
			c.Redirect(http.StatusFound, LoginPath)
		case Forbidden:
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin session required"})
		default:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Admin session required"})
		}
		c.Abort()
	}
}
