package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pjecz/hercules/internal/access"
	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/middleware"
	"github.com/pjecz/hercules/internal/models"
	"github.com/pjecz/hercules/internal/service"
	appErrors "github.com/pjecz/hercules/pkg/errors"
	"github.com/pjecz/hercules/pkg/response"
)

// AuthHandler wires the session endpoints to the auth service.
type AuthHandler struct {
	service      *service.AuthService
	secureCookie bool
}

// NewAuthHandler creates a new handler. secureCookie marks the session cookie
// as HTTPS only.
func NewAuthHandler(svc *service.AuthService, secureCookie bool) *AuthHandler {
	return &AuthHandler{service: svc, secureCookie: secureCookie}
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate user by email and password, sets the session cookie
// @Tags Autenticacion
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, res.AccessToken, int(res.ExpiresIn), "/", "", h.secureCookie, true)
	response.JSON(c, http.StatusOK, res, nil)
}

// Logout clears the session cookie. Tokens are stateless and expire on their own.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.secureCookie, true)
	response.Success(c, "/login", "Ha salido de este programa.")
}

// Profile godoc
// @Summary Get current user
// @Description Returns the authenticated user with its roles and capabilities
// @Tags Autenticacion
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /perfil [get]
func (h *AuthHandler) Profile(c *gin.Context) {
	user := middleware.CurrentUser(c)
	response.JSON(c, http.StatusOK, gin.H{
		"id":           user.ID,
		"email":        user.Email,
		"nombre":       user.Nombre,
		"autoridad_id": user.AutoridadID,
		"roles":        user.Roles(),
	}, nil)
}

// ChangePassword godoc
// @Summary Change password
// @Description Change the password of the current user
// @Tags Autenticacion
// @Accept json
// @Produce json
// @Param payload body dto.ChangePasswordForm true "Change password"
// @Success 303 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /perfil/contrasena [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var form dto.ChangePasswordForm
	if err := c.ShouldBind(&form); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.service.ChangePassword(c.Request.Context(), middleware.CurrentUser(c), form); err != nil {
		response.Fail(c, err, nil)
		return
	}
	response.Success(c, "/perfil", "Se ha cambiado su contrasena.")
}

// GenerateAPIKey issues a new API key for a user. Users may renew their own;
// renewing someone else's needs administration of usuarios.
func (h *AuthHandler) GenerateAPIKey(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	actor := middleware.CurrentUser(c)
	if actor.ID != id && !actor.Can(access.ModuleUsuarios, access.LevelAdmin) {
		response.Forbidden(c)
		return
	}
	res, err := h.service.GenerateAPIKey(c.Request.Context(), actor, id)
	if err != nil {
		response.Fail(c, err, nil)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
