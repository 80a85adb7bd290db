package handlers

import (
	"errors"
	"net/http"

	"github.com/robert0714/scm-ldap-plugin/internal/models"
	"github.com/robert0714/scm-ldap-plugin/internal/services"

	"github.com/gin-gonic/gin"
)

// invalidCredentialsMessage is the one message every credential failure
// gets. An unknown user and a wrong password produce byte-identical
// responses, so the endpoint cannot be used to probe for accounts.
const invalidCredentialsMessage = "invalid username or password"

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// userResponse is the public view of a user record.
type userResponse struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email,omitempty"`
	FullName   string `json:"fullName,omitempty"`
	Role       string `json:"role"`
	AuthSource string `json:"authSource"`
	ExternalDN string `json:"externalDn,omitempty"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FullName:   u.FullName,
		Role:       u.Role,
		AuthSource: u.AuthSource,
		ExternalDN: u.ExternalDN,
	}
}

// AuthHandler serves the credential verification API
type AuthHandler struct {
	userService *services.UserService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(userService *services.UserService) *AuthHandler {
	return &AuthHandler{
		userService: userService,
	}
}

// Login godoc
//
//	@Summary		Verify credentials
//	@Description	Authenticates a username and password against the configured provider and returns the user together with the groups resolved for this login. No session or token is issued.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		object{username=string,password=string}			true	"Credentials"
//	@Success		200		{object}	object{user=object,groups=[]string}				"Authentication succeeded"
//	@Failure		400		{object}	object{error=string}							"Malformed request body"
//	@Failure		401		{object}	object{error=string}							"Credentials rejected (same body for unknown user and wrong password)"
//	@Failure		409		{object}	object{error=string}							"Username collides with an existing account"
//	@Failure		429		{object}	object{error=string,error_description=string}	"Rate limit exceeded"
//	@Failure		503		{object}	object{error=string}							"Authentication backend not available"
//	@Router			/api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	user, groups, err := h.userService.Authenticate(
		c.Request.Context(),
		req.Username,
		req.Password,
	)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			// ErrUserNotFound matches this branch too, the two cases
			// must stay indistinguishable on the wire
			c.JSON(http.StatusUnauthorized, gin.H{"error": invalidCredentialsMessage})
		case errors.Is(err, services.ErrUsernameConflict):
			c.JSON(http.StatusConflict, gin.H{
				"error": "username conflict with existing user, contact an administrator",
			})
		case errors.Is(err, services.ErrAuthProviderFailed):
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "authentication backend not available",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":   newUserResponse(user),
		"groups": groups,
	})
}
