package controller

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/product-catalog/internal/auth"
	"github.com/iyhunko/product-catalog/internal/config"
	"github.com/iyhunko/product-catalog/internal/http/middleware"
)

// Authenticator checks admin credentials and issues session tokens.
type Authenticator interface {
	Login(username, password string) (auth.Session, error)
}

// Controller handles health, admin session and fallback requests.
type Controller struct {
	config        *config.Config
	authenticator Authenticator
}

// New creates a new Controller with the given configuration and authenticator.
func New(config *config.Config, authenticator Authenticator) *Controller {
	return &Controller{
		config:        config,
		authenticator: authenticator,
	}
}

// Health handles the liveness probe.
func (con *Controller) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// LoginRequest represents the request body for the admin login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued session token.
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

// Login exchanges admin credentials for a session token.
func (con *Controller) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	session, err := con.authenticator.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			slog.Warn("Failed admin login", slog.String("client_ip", c.ClientIP()))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		slog.Error("Failed to issue session token", slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log in"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Session reports the admin session behind the request token.
func (con *Controller) Session(c *gin.Context) {
	claims, ok := c.MustGet(middleware.ClaimsKey).(*auth.Claims)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var expiresAt string
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, gin.H{
		"username":  claims.Username,
		"expiresAt": expiresAt,
	})
}

// NotFound answers requests that match no route.
func (con *Controller) NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found"})
}
