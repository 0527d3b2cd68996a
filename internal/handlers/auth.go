package handlers

import (
	"errors"
	"log"
	"net/http"

	"teachereval/internal/middleware"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	auth *middleware.Auth
}

func NewAuthHandler(auth *middleware.Auth) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// LoginRequest is the login form or JSON body
type LoginRequest struct {
	Password string `form:"password" json:"password" binding:"required"`
}

// LoginPage shows the password form, or goes straight to the dashboard when
// the session is still valid.
func (h *AuthHandler) LoginPage(c *gin.Context) {
	if h.auth.IsAdmin(c) {
		c.Redirect(http.StatusFound, "/admin")
		return
	}
	render(c, http.StatusOK, "login.html", "Admin login", nil)
}

// Login checks the shared admin password
func (h *AuthHandler) Login(c *gin.Context) {
	asJSON := wantsJSON(c)

	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		if asJSON {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password is required", "fields": bindingErrors(err)})
			return
		}
		render(c, http.StatusBadRequest, "login.html", "Admin login", gin.H{"Error": "Password is required"})
		return
	}

	if err := h.auth.Login(c, req.Password); err != nil {
		if !errors.Is(err, middleware.ErrWrongPassword) {
			internalError(c, err, !asJSON)
			return
		}
		log.Printf("Failed admin login from %s", c.ClientIP())
		if asJSON {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
			return
		}
		render(c, http.StatusUnauthorized, "login.html", "Admin login", gin.H{"Error": "Invalid password"})
		return
	}

	if asJSON {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	c.Redirect(http.StatusSeeOther, "/admin")
}

// Logout clears the session cookie
func (h *AuthHandler) Logout(c *gin.Context) {
	h.auth.Logout(c)
	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"status": "logged out"})
		return
	}
	c.Redirect(http.StatusSeeOther, middleware.LoginPath)
}
