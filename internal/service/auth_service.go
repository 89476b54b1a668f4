package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/pjecz/hercules/internal/access"
	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
	appErrors "github.com/pjecz/hercules/pkg/errors"
	"github.com/pjecz/hercules/pkg/safe"
)

// APIKeyTTL is the lifetime of a generated API key.
const APIKeyTTL = 90 * 24 * time.Hour

const apiKeyPrefixLen = 8

type authUsuarioRepository interface {
	Get(ctx context.Context, id int64) (*models.Usuario, error)
	FindByEmail(ctx context.Context, email string) (*models.Usuario, error)
	FindByAPIKeyPrefix(ctx context.Context, prefix string) ([]models.Usuario, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
	SetAPIKey(ctx context.Context, id int64, prefix, hash string, expiracion time.Time) error
}

type capabilityProvider interface {
	Capabilities(ctx context.Context, usuarioID int64) (access.CapabilitySet, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// AuthService provides authentication use cases.
type AuthService struct {
	repo      authUsuarioRepository
	caps      capabilityProvider
	lifecycle lifecycle
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUsuarioRepository, caps capabilityProvider, tx txRunner, audit auditRecorder, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.Expiration <= 0 {
		config.Expiration = 12 * time.Hour
	}
	if config.Issuer == "" {
		config.Issuer = "hercules"
	}
	return &AuthService{
		repo:      repo,
		caps:      caps,
		lifecycle: lifecycle{tx: tx, audit: audit, module: access.ModuleUsuarios},
		validator: validate,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// Login authenticates a user by email and password and issues a session token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "correo o contrasena no validos")
	}
	email, err := safe.Email(req.Email)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "correo o contrasena incorrectos")
	}

	usuario, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "correo o contrasena incorrectos")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch usuario")
	}
	if !usuario.IsActive() {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "la cuenta esta inactiva")
	}
	if usuario.Contrasena == "" || bcrypt.CompareHashAndPassword([]byte(usuario.Contrasena), []byte(req.Password)) != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "correo o contrasena incorrectos")
	}

	caps, err := s.caps.Capabilities(ctx, usuario.ID)
	if err != nil {
		return nil, err
	}

	token, issuedAt, err := s.generateToken(usuario)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}
	s.logger.Sugar().Infow("login", "usuario_id", usuario.ID, "ip", req.IP)

	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.Expiration.Seconds()),
		IssuedAt:    issuedAt,
		User: models.UsuarioInfo{
			ID:     usuario.ID,
			Email:  usuario.Email,
			Nombre: usuario.NombreCompleto(),
			Roles:  caps.Roles(),
		},
	}, nil
}

// ValidateToken parses and validates a session token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithIssuer(s.config.Issuer))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}
	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || claims.UsuarioID == 0 {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// AuthenticateAPIKey resolves the active, unexpired user owning key.
func (s *AuthService) AuthenticateAPIKey(ctx context.Context, key string) (*models.Usuario, error) {
	key = strings.TrimSpace(key)
	if len(key) <= apiKeyPrefixLen {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid api key")
	}
	candidates, err := s.repo.FindByAPIKeyPrefix(ctx, key[:apiKeyPrefixLen])
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch api key")
	}
	now := s.now()
	for i := range candidates {
		u := candidates[i]
		if u.APIKeyExpiracion == nil || now.After(*u.APIKeyExpiracion) {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(u.APIKey), []byte(key)) == nil {
			return &u, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid api key")
}

// GenerateAPIKey replaces the API key of a user. The clear key is returned once.
func (s *AuthService) GenerateAPIKey(ctx context.Context, actor *models.CurrentUser, usuarioID int64) (*models.APIKeyResponse, error) {
	usuario, err := s.repo.Get(ctx, usuarioID)
	if err != nil {
		return nil, mapRepoError(err, "usuario no encontrado", "failed to fetch usuario")
	}
	if !usuario.IsActive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "el usuario esta eliminado")
	}

	key, err := newAPIKey()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate api key")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash api key")
	}
	expiracion := s.now().UTC().Add(APIKeyTTL)

	err = s.lifecycle.write(ctx, actor, func(ctx context.Context) error {
		return s.repo.SetAPIKey(ctx, usuario.ID, key[:apiKeyPrefixLen], string(hash), expiracion)
	}, func() (string, string) {
		return "Nueva API Key para " + usuario.Email, DetailURL(access.ModuleUsuarios, usuario.ID)
	})
	if err != nil {
		return nil, mapRepoError(err, "usuario no encontrado", "failed to store api key")
	}
	return &models.APIKeyResponse{APIKey: key, Expiracion: expiracion}, nil
}

// ChangePassword updates the password of the acting user.
func (s *AuthService) ChangePassword(ctx context.Context, actor *models.CurrentUser, form dto.ChangePasswordForm) error {
	if err := validate(s.validator, form); err != nil {
		return err
	}
	usuario, err := s.repo.Get(ctx, actor.ID)
	if err != nil {
		return mapRepoError(err, "usuario no encontrado", "failed to fetch usuario")
	}
	if bcrypt.CompareHashAndPassword([]byte(usuario.Contrasena), []byte(form.OldPassword)) != nil {
		return appErrors.Clone(appErrors.ErrValidation, "la contrasena actual no coincide")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(form.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	err = s.lifecycle.write(ctx, actor, func(ctx context.Context) error {
		return s.repo.UpdatePassword(ctx, usuario.ID, string(hash))
	}, func() (string, string) {
		return "Cambio de contrasena de " + usuario.Email, DetailURL(access.ModuleUsuarios, usuario.ID)
	})
	return mapRepoError(err, "usuario no encontrado", "failed to update password")
}

// CurrentUser loads the request-bound view of an active user.
func (s *AuthService) CurrentUser(ctx context.Context, usuarioID int64) (*models.CurrentUser, error) {
	usuario, err := s.repo.Get(ctx, usuarioID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "usuario no encontrado")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch usuario")
	}
	if !usuario.IsActive() {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "la cuenta esta inactiva")
	}
	caps, err := s.caps.Capabilities(ctx, usuario.ID)
	if err != nil {
		return nil, err
	}
	return &models.CurrentUser{
		ID:           usuario.ID,
		Email:        usuario.Email,
		Nombre:       usuario.NombreCompleto(),
		AutoridadID:  usuario.AutoridadID,
		Capabilities: caps,
	}, nil
}

func (s *AuthService) generateToken(u *models.Usuario) (string, time.Time, error) {
	issuedAt := s.now().UTC()
	claims := &models.JWTClaims{
		UsuarioID: u.ID,
		Email:     u.Email,
		Nombre:    u.NombreCompleto(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   fmt.Sprintf("%d", u.ID),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.Expiration)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, issuedAt, nil
}

// newAPIKey returns <8 hex prefix><43 base64url chars>.
func newAPIKey() (string, error) {
	prefix := make([]byte, apiKeyPrefixLen/2)
	secret := make([]byte, 32)
	if _, err := rand.Read(prefix); err != nil {
		return "", err
	}
	if _, err := rand.Read(secret); err != nil {
		return "", err
	}
	return hex.EncodeToString(prefix) + base64.RawURLEncoding.EncodeToString(secret), nil
}
