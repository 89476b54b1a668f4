package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
	"github.com/pjecz/hercules/pkg/config"
	appErrors "github.com/pjecz/hercules/pkg/errors"
	"github.com/pjecz/hercules/pkg/storage"
)

type fakeAdjuntos struct {
	rows   map[int64]*models.Adjunto
	nextID int64
	stale  []models.Adjunto
}

func newFakeAdjuntos() *fakeAdjuntos {
	return &fakeAdjuntos{rows: map[int64]*models.Adjunto{}}
}

func (f *fakeAdjuntos) Reserve(ctx context.Context, a *models.Adjunto) error {
	f.nextID++
	a.ID = f.nextID
	a.Estado = models.AdjuntoPendiente
	a.Touch(time.Now())
	cp := *a
	f.rows[a.ID] = &cp
	return nil
}

func (f *fakeAdjuntos) Commit(ctx context.Context, id int64, sha1, sha256, url string, tamano int64, estado string) error {
	a, ok := f.rows[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.HashSHA1, a.HashSHA256, a.URL, a.Tamano, a.Estado = sha1, sha256, url, tamano, estado
	return nil
}

func (f *fakeAdjuntos) Get(ctx context.Context, id int64) (*models.Adjunto, error) {
	a, ok := f.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAdjuntos) List(ctx context.Context, filter dto.AdjuntoFilter) ([]models.Adjunto, int, error) {
	return nil, 0, nil
}

func (f *fakeAdjuntos) ListByParent(ctx context.Context, parentID int64) ([]models.Adjunto, error) {
	var out []models.Adjunto
	for id := int64(1); id <= f.nextID; id++ {
		if a, ok := f.rows[id]; ok && a.ParentID == parentID && a.IsActive() {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAdjuntos) ListStalePending(ctx context.Context, before time.Time) ([]models.Adjunto, error) {
	return f.stale, nil
}

func (f *fakeAdjuntos) SetEstado(ctx context.Context, id int64, estado string) error {
	a, ok := f.rows[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.Estado = estado
	return nil
}

func (f *fakeAdjuntos) SetEstatus(ctx context.Context, id int64, e models.Estatus) error {
	a, ok := f.rows[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.Estatus = e
	return nil
}

type plainIDs struct{}

func (plainIDs) Encode(id int64) string { return "h" + strconv.FormatInt(id, 10) }

type flowFixture struct {
	flow   *AttachmentFlow
	repo   *fakeAdjuntos
	audit  *fakeAudit
	bucket *storage.LocalBucket
}

func newFlowFixture(t *testing.T, family AttachmentFamily, maxBytes int64) *flowFixture {
	t.Helper()
	bucket, err := storage.NewLocalBucket(t.TempDir(), "pjecz-soportes", "http://localhost:8080/deposito", storage.NewSignedURLSigner("secret", time.Hour))
	require.NoError(t, err)
	registry := storage.NewStaticRegistry(map[string]storage.Bucket{family.Bucket: bucket}, 15*time.Minute)
	repo := newFakeAdjuntos()
	audit := &fakeAudit{}
	flow := NewAttachmentFlow(family, repo, registry, plainIDs{}, &fakeTx{}, audit, AttachmentFlowConfig{MaxBytes: maxBytes}, zap.NewNop())
	flow.now = func() time.Time { return time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC) }
	return &flowFixture{flow: flow, repo: repo, audit: audit, bucket: bucket}
}

func TestAttachmentFlowStore(t *testing.T) {
	fx := newFlowFixture(t, SoportesAdjuntosFamily, 0)
	content := "contenido del reporte"

	got, err := fx.flow.Store(context.Background(), testActor(), AttachmentDraft{ParentID: 12, Descripcion: "Captura de pantalla"}, Upload{Filename: "captura.PNG", Content: strings.NewReader(content)})
	require.NoError(t, err)

	sum := sha256.Sum256([]byte(content))
	assert.Equal(t, hex.EncodeToString(sum[:]), got.HashSHA256)
	assert.Len(t, got.HashSHA1, 40)
	assert.Equal(t, int64(len(content)), got.Tamano)
	assert.Equal(t, "soportes_adjuntos/2024/05/06/h1-captura-de-pantalla.png", got.Key)
	assert.Equal(t, "http://localhost:8080/deposito/pjecz-soportes/"+got.Key, got.URL)

	row := fx.repo.rows[got.ID]
	assert.Equal(t, got.URL, row.URL)
	assert.Equal(t, "image/png", row.TipoDocumento)
	assert.Equal(t, models.AdjuntoPendiente, row.Estado)
	assert.Equal(t, []string{"Nuevo archivo CAPTURA DE PANTALLA"}, fx.audit.descriptions())

	ok, err := fx.flow.Verify(context.Background(), got.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAttachmentFlowStoreSameParentTwice(t *testing.T) {
	fx := newFlowFixture(t, SoportesAdjuntosFamily, 0)
	draft := AttachmentDraft{ParentID: 7, Descripcion: "Oficio"}

	first, err := fx.flow.Store(context.Background(), testActor(), draft, Upload{Filename: "oficio.pdf", Content: strings.NewReader("%PDF-primero")})
	require.NoError(t, err)
	second, err := fx.flow.Store(context.Background(), testActor(), draft, Upload{Filename: "oficio.pdf", Content: strings.NewReader("%PDF-segundo")})
	require.NoError(t, err)

	assert.NotEqual(t, first.Key, second.Key)
	assert.NotEqual(t, first.URL, second.URL)
	for _, id := range []int64{first.ID, second.ID} {
		ok, err := fx.flow.Verify(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, ok, "adjunto %d", id)
	}

	_, data, _, err := fx.flow.Open(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-primero", string(data))
}

func TestAttachmentFlowRejectsExtensionBeforeReserve(t *testing.T) {
	fx := newFlowFixture(t, ExhExhortosArchivosFamily, 0)

	_, err := fx.flow.Store(context.Background(), testActor(), AttachmentDraft{ParentID: 1, Descripcion: "Oficio"}, Upload{Filename: "oficio.docx", Content: strings.NewReader("x")})
	assert.ErrorIs(t, err, appErrors.ErrNotAllowedExtension)
	assert.Empty(t, fx.repo.rows)
}

func TestAttachmentFlowDiscardsFailedUpload(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    *appErrors.Error
	}{
		{name: "empty", content: "", want: appErrors.ErrEmpty},
		{name: "too large", content: "0123456789", want: appErrors.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newFlowFixture(t, SoportesAdjuntosFamily, 4)

			_, err := fx.flow.Store(context.Background(), testActor(), AttachmentDraft{ParentID: 3, Descripcion: "Bitacora"}, Upload{Filename: "log.txt", Content: strings.NewReader(tc.content)})
			assert.ErrorIs(t, err, tc.want)
			require.Len(t, fx.repo.rows, 1)
			assert.Equal(t, models.EstatusBorrado, fx.repo.rows[1].Estatus)
			assert.Empty(t, fx.repo.rows[1].URL)
			assert.Empty(t, fx.audit.descriptions())
		})
	}
}

func TestAttachmentFlowParentGate(t *testing.T) {
	fx := newFlowFixture(t, ExhExhortosArchivosFamily, 0)
	fx.flow.WithParentGate(func(ctx context.Context, parentID int64) error {
		return appErrors.Clone(appErrors.ErrFinalized, "el exhorto ya fue enviado")
	})

	_, err := fx.flow.Store(context.Background(), testActor(), AttachmentDraft{ParentID: 1, Descripcion: "Oficio"}, Upload{Filename: "oficio.pdf", Content: strings.NewReader("%PDF")})
	assert.ErrorIs(t, err, appErrors.ErrFinalized)
	assert.Empty(t, fx.repo.rows)
}

func TestAttachmentFlowMonthInWord(t *testing.T) {
	fx := newFlowFixture(t, ExhExhortosRespuestasArchivosFamily, 0)

	got, err := fx.flow.Store(context.Background(), testActor(), AttachmentDraft{ParentID: 2, Descripcion: "Acuerdo"}, Upload{Filename: "acuerdo.pdf", Content: strings.NewReader("%PDF-1.4")})
	require.NoError(t, err)
	assert.Equal(t, "exh_exhortos_respuestas_archivos/2024/mayo/06/h1-acuerdo.pdf", got.Key)
	assert.Equal(t, models.AdjuntoRecibido, got.Estado)
}

func TestAttachmentFlowOpenAndSignedURL(t *testing.T) {
	fx := newFlowFixture(t, SoportesAdjuntosFamily, 0)
	got, err := fx.flow.Store(context.Background(), testActor(), AttachmentDraft{ParentID: 5, Descripcion: "Manual"}, Upload{Filename: "manual.pdf", Content: strings.NewReader("%PDF-1.7")})
	require.NoError(t, err)

	row, data, contentType, err := fx.flow.Open(context.Background(), got.ID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))
	assert.Equal(t, "application/pdf", contentType)
	assert.Equal(t, int64(5), row.ParentID)

	link, err := fx.flow.SignedURL(context.Background(), got.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, link)

	_, changed, err := fx.flow.Delete(context.Background(), testActor(), got.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	_, _, _, err = fx.flow.Open(context.Background(), got.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = fx.flow.SignedURL(context.Background(), got.ID)
	assert.ErrorIs(t, err, appErrors.ErrFileNotFound)
}

func TestAttachmentFlowRecoverRequiresBytes(t *testing.T) {
	fx := newFlowFixture(t, SoportesAdjuntosFamily, 0)
	reserved := &models.Adjunto{ParentID: 1, Descripcion: "SIN BYTES"}
	require.NoError(t, fx.repo.Reserve(context.Background(), reserved))
	require.NoError(t, fx.repo.SetEstatus(context.Background(), reserved.ID, models.EstatusBorrado))

	_, changed, err := fx.flow.Recover(context.Background(), testActor(), reserved.ID)
	assert.ErrorIs(t, err, appErrors.ErrFileNotFound)
	assert.False(t, changed)
}

func TestAttachmentFlowSweep(t *testing.T) {
	fx := newFlowFixture(t, SoportesAdjuntosFamily, 0)
	for i := 0; i < 3; i++ {
		require.NoError(t, fx.repo.Reserve(context.Background(), &models.Adjunto{ParentID: 1, Descripcion: "PENDIENTE"}))
	}
	fx.repo.rows[2].URL = "http://localhost:8080/deposito/pjecz-soportes/ya/subido.pdf"
	for _, id := range []int64{1, 2, 3} {
		fx.repo.stale = append(fx.repo.stale, *fx.repo.rows[id])
	}

	swept, err := fx.flow.Sweep(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, swept)
	assert.Equal(t, models.EstatusBorrado, fx.repo.rows[1].Estatus)
	assert.Equal(t, models.EstatusActivo, fx.repo.rows[2].Estatus)
	assert.Equal(t, models.EstatusBorrado, fx.repo.rows[3].Estatus)
}

func TestAttachmentFlowMissingBucket(t *testing.T) {
	registry := storage.NewStaticRegistry(map[string]storage.Bucket{}, time.Minute)
	flow := NewAttachmentFlow(SoportesAdjuntosFamily, newFakeAdjuntos(), registry, plainIDs{}, &fakeTx{}, &fakeAudit{}, AttachmentFlowConfig{}, nil)

	_, err := flow.Store(context.Background(), testActor(), AttachmentDraft{ParentID: 1, Descripcion: "X"}, Upload{Filename: "a.pdf", Content: strings.NewReader("x")})
	require.Error(t, err)
	assert.Equal(t, config.BucketSoportes, SoportesAdjuntosFamily.Bucket)
}
