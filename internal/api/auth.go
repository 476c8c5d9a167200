package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fitsnap/fitsnap/internal/service"
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	Token   string       `json:"token"`
	Profile *profileView `json:"profile"`
}

func (r *Router) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	if len(req.Password) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 8 characters"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, err)
		return
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	profile, err := r.social.RegisterProfile(c.Request.Context(), username, string(hash))
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := r.tokens.Issue(profile.ID, profile.Username)
	if err != nil {
		respondError(c, err)
		return
	}

	r.logger.Info("Registered profile",
		zap.Int64("profile_id", profile.ID),
		zap.String("username", profile.Username))

	c.JSON(http.StatusCreated, authResponse{
		Token:   token,
		Profile: r.profileView(c.Request.Context(), profile),
	})
}

func (r *Router) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	profile, err := r.social.Credentials(c.Request.Context(), username)
	if err != nil {
		// A missing profile and a wrong password look the same to the
		// caller.
		if service.IsKind(err, service.KindNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		respondError(c, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := r.tokens.Issue(profile.ID, profile.Username)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, authResponse{
		Token:   token,
		Profile: r.profileView(c.Request.Context(), profile),
	})
}
