package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CredentialsRequest is the payload for both sign-up and sign-in.
type CredentialsRequest struct {
	// Dashboard account name
	Username string `json:"username" binding:"required" example:"ops"`
	Password string `json:"password" binding:"required" example:"s3cret"`
}

// @Summary      Register a dashboard account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      CredentialsRequest  true  "Credentials"
// @Success      200   {object}  map[string]int  "id"
// @Failure      400   {object}  map[string]string
// @Router       /auth/sign-up [post]
func (h *Handler) signUp(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}

	id, err := h.services.SignUp(req.Username, req.Password)
	if err != nil {
		h.logAndJSONError(c, http.StatusBadRequest, err.Error(), "auth_sign_up_failed", err, "username", req.Username)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// @Summary      Obtain an API token
// @Description  Exchanges credentials for the bearer token that /api/v1 and /ws accept.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      CredentialsRequest  true  "Credentials"
// @Success      200   {object}  map[string]string  "token"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/sign-in [post]
func (h *Handler) signIn(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}

	token, err := h.services.GenerateToken(req.Username, req.Password)
	if err != nil {
		// Generic message: don't leak whether the account exists.
		h.logAndJSONError(c, http.StatusUnauthorized, "invalid credentials", "auth_sign_in_failed", err, "username", req.Username)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
