package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pjecz/hercules/internal/access"
	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
	appErrors "github.com/pjecz/hercules/pkg/errors"
)

type usuarioAuthStub struct {
	byID map[int64]*models.Usuario
}

func newUsuarioAuthStub(users ...*models.Usuario) *usuarioAuthStub {
	s := &usuarioAuthStub{byID: map[int64]*models.Usuario{}}
	for _, u := range users {
		s.byID[u.ID] = u
	}
	return s
}

func (s *usuarioAuthStub) Get(ctx context.Context, id int64) (*models.Usuario, error) {
	if u, ok := s.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *usuarioAuthStub) FindByEmail(ctx context.Context, email string) (*models.Usuario, error) {
	for _, u := range s.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *usuarioAuthStub) FindByAPIKeyPrefix(ctx context.Context, prefix string) ([]models.Usuario, error) {
	var out []models.Usuario
	for _, u := range s.byID {
		if u.APIKeyPrefijo == prefix {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *usuarioAuthStub) UpdatePassword(ctx context.Context, id int64, hash string) error {
	s.byID[id].Contrasena = hash
	return nil
}

func (s *usuarioAuthStub) SetAPIKey(ctx context.Context, id int64, prefix, hash string, expiracion time.Time) error {
	u := s.byID[id]
	u.APIKeyPrefijo, u.APIKey, u.APIKeyExpiracion = prefix, hash, &expiracion
	return nil
}

type capsStub struct{ set access.CapabilitySet }

func (c capsStub) Capabilities(ctx context.Context, usuarioID int64) (access.CapabilitySet, error) {
	return c.set, nil
}

func hashed(t *testing.T, clear string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(clear), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func authUser(t *testing.T) *models.Usuario {
	u := &models.Usuario{
		ID:              7,
		AutoridadID:     1,
		Email:           "juez@pjecz.gob.mx",
		Nombres:         "Ana",
		ApellidoPaterno: "Lopez",
		Contrasena:      hashed(t, "s3creta-larga"),
	}
	u.Estatus = models.EstatusActivo
	return u
}

func newAuthFixture(t *testing.T, users ...*models.Usuario) (*AuthService, *usuarioAuthStub, *fakeAudit) {
	repo := newUsuarioAuthStub(users...)
	caps := capsStub{set: access.NewCapabilitySet([]string{"JUZGADOS"}, []access.Grant{{Module: access.ModuleExhExhortos, Level: access.LevelCreate}})}
	audit := &fakeAudit{}
	svc := NewAuthService(repo, caps, &fakeTx{}, audit, nil, nil, AuthConfig{Secret: "test-secret", Expiration: time.Hour})
	return svc, repo, audit
}

func TestAuthLogin(t *testing.T) {
	svc, _, _ := newAuthFixture(t, authUser(t))

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "Juez@PJECZ.gob.mx", Password: "s3creta-larga"})
	require.NoError(t, err)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "Ana Lopez", resp.User.Nombre)
	assert.Equal(t, []string{"JUZGADOS"}, resp.User.Roles)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UsuarioID)
	assert.Equal(t, "hercules", claims.Issuer)
}

func TestAuthLoginFailures(t *testing.T) {
	inactive := authUser(t)
	inactive.ID = 8
	inactive.Email = "baja@pjecz.gob.mx"
	inactive.Estatus = models.EstatusBorrado
	svc, _, _ := newAuthFixture(t, authUser(t), inactive)

	cases := []struct {
		name string
		req  models.LoginRequest
		want *appErrors.Error
	}{
		{name: "wrong password", req: models.LoginRequest{Email: "juez@pjecz.gob.mx", Password: "otra"}, want: appErrors.ErrInvalidCredentials},
		{name: "unknown email", req: models.LoginRequest{Email: "nadie@pjecz.gob.mx", Password: "x"}, want: appErrors.ErrInvalidCredentials},
		{name: "inactive", req: models.LoginRequest{Email: "baja@pjecz.gob.mx", Password: "s3creta-larga"}, want: appErrors.ErrInactiveAccount},
		{name: "malformed", req: models.LoginRequest{Email: "no-es-correo", Password: "x"}, want: appErrors.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestAuthValidateTokenRejectsForeignSecret(t *testing.T) {
	svc, _, _ := newAuthFixture(t, authUser(t))
	other := NewAuthService(newUsuarioAuthStub(authUser(t)), capsStub{}, &fakeTx{}, &fakeAudit{}, nil, nil, AuthConfig{Secret: "otro"})

	resp, err := other.Login(context.Background(), models.LoginRequest{Email: "juez@pjecz.gob.mx", Password: "s3creta-larga"})
	require.NoError(t, err)
	_, err = svc.ValidateToken(resp.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthAPIKeyLifecycle(t *testing.T) {
	svc, repo, audit := newAuthFixture(t, authUser(t))
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	generated, err := svc.GenerateAPIKey(context.Background(), testActor(), 7)
	require.NoError(t, err)
	assert.Len(t, generated.APIKey, 8+43)
	assert.Equal(t, now.Add(APIKeyTTL), generated.Expiracion)
	assert.Equal(t, generated.APIKey[:8], repo.byID[7].APIKeyPrefijo)
	assert.NotEqual(t, generated.APIKey, repo.byID[7].APIKey)
	assert.Equal(t, []string{"Nueva API Key para juez@pjecz.gob.mx"}, audit.descriptions())

	u, err := svc.AuthenticateAPIKey(context.Background(), generated.APIKey)
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)

	_, err = svc.AuthenticateAPIKey(context.Background(), generated.APIKey[:8]+"x")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
	_, err = svc.AuthenticateAPIKey(context.Background(), "corta")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	svc.now = func() time.Time { return now.Add(APIKeyTTL + time.Minute) }
	_, err = svc.AuthenticateAPIKey(context.Background(), generated.APIKey)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthChangePassword(t *testing.T) {
	svc, repo, audit := newAuthFixture(t, authUser(t))
	actor := testActor()

	err := svc.ChangePassword(context.Background(), actor, dto.ChangePasswordForm{OldPassword: "equivocada", NewPassword: "nueva-contrasena-1"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	require.NoError(t, svc.ChangePassword(context.Background(), actor, dto.ChangePasswordForm{OldPassword: "s3creta-larga", NewPassword: "nueva-contrasena-1"}))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.byID[7].Contrasena), []byte("nueva-contrasena-1")))
	assert.Equal(t, []string{"Cambio de contrasena de juez@pjecz.gob.mx"}, audit.descriptions())
}

func TestAuthCurrentUser(t *testing.T) {
	svc, _, _ := newAuthFixture(t, authUser(t))

	cu, err := svc.CurrentUser(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cu.AutoridadID)
	assert.True(t, cu.Capabilities.CanInsert(access.ModuleExhExhortos))
	assert.False(t, cu.Capabilities.CanAdmin(access.ModuleExhExhortos))

	_, err = svc.CurrentUser(context.Background(), 99)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
