package handlers

import (
	"errors"
	"net/http"

	"github.com/robert0714/scm-ldap-plugin/internal/models"
	"github.com/robert0714/scm-ldap-plugin/internal/services"

	"github.com/gin-gonic/gin"
)

// ConfigHandler manages the directory connection configuration API
type ConfigHandler struct {
	configService *services.ConfigService
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(configService *services.ConfigService) *ConfigHandler {
	return &ConfigHandler{
		configService: configService,
	}
}

type connectionTestRequest struct {
	Username string             `json:"username" binding:"required"`
	Password string             `json:"password" binding:"required"`
	Config   *models.LDAPConfig `json:"config"`
}

// GetConfig godoc
//
//	@Summary		Read directory configuration
//	@Description	Returns the active directory connection configuration. The connection password is replaced by a dummy marker.
//	@Tags			Config
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	models.LDAPConfig		"Active configuration, password masked"
//	@Failure		401	{object}	object{error=string}	"Missing or invalid admin token"
//	@Failure		500	{object}	object{error=string}	"Configuration could not be loaded"
//	@Router			/api/v1/config/ldap [get]
func (h *ConfigHandler) GetConfig(c *gin.Context) {
	cfg, err := h.configService.Get(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load configuration"})
		return
	}

	c.JSON(http.StatusOK, cfg)
}

// UpdateConfig godoc
//
//	@Summary		Replace directory configuration
//	@Description	Validates and stores the submitted configuration and reloads the running directory engine. A password equal to the dummy marker keeps the stored secret.
//	@Tags			Config
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	models.LDAPConfig		"Stored configuration, password masked"
//	@Failure		400	{object}	object{error=string}	"Malformed body or configuration the engine rejects"
//	@Failure		401	{object}	object{error=string}	"Missing or invalid admin token"
//	@Failure		500	{object}	object{error=string}	"Configuration could not be stored"
//	@Router			/api/v1/config/ldap [put]
func (h *ConfigHandler) UpdateConfig(c *gin.Context) {
	var submitted models.LDAPConfig
	if err := c.ShouldBindJSON(&submitted); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid configuration: " + err.Error()})
		return
	}

	stored, err := h.configService.Update(c.Request.Context(), &submitted)
	if err != nil {
		if errors.Is(err, services.ErrInvalidConfig) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store configuration"})
		return
	}

	c.JSON(http.StatusOK, stored)
}

// TestConfig godoc
//
//	@Summary		Test directory configuration
//	@Description	Runs a single authentication attempt with the submitted configuration, or the stored one when the body carries no config. The stored configuration is never modified. The response reports how far the attempt got, with the resolved user and groups on success.
//	@Tags			Config
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		object{username=string,password=string,config=object}					true	"Probe credentials and optional configuration override"
//	@Success		200		{object}	object{bind=bool,searchUser=bool,authenticateUser=bool,error=string}	"Attempt outcome"
//	@Failure		400		{object}	object{error=string}													"Malformed body or configuration the engine rejects"
//	@Failure		401		{object}	object{error=string}													"Missing or invalid admin token"
//	@Failure		500		{object}	object{error=string}													"Stored configuration could not be loaded"
//	@Router			/api/v1/config/ldap/test [post]
func (h *ConfigHandler) TestConfig(c *gin.Context) {
	var req connectionTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	result, err := h.configService.Test(
		c.Request.Context(),
		req.Config,
		req.Username,
		req.Password,
	)
	if err != nil {
		if errors.Is(err, services.ErrInvalidConfig) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run configuration test"})
		return
	}

	c.JSON(http.StatusOK, result)
}
