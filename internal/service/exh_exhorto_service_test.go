package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
	"github.com/pjecz/hercules/internal/repository"
	appErrors "github.com/pjecz/hercules/pkg/errors"
)

type fakeExhRepo struct {
	items    map[int64]*models.ExhExhorto
	resumen  map[int64]*models.ExhExhortoResumen
	updates  int
	estatus  map[int64]models.Estatus
	resErr   error
	setCalls int
}

func newFakeExhRepo(e ...*models.ExhExhorto) *fakeExhRepo {
	r := &fakeExhRepo{
		items:   map[int64]*models.ExhExhorto{},
		resumen: map[int64]*models.ExhExhortoResumen{},
		estatus: map[int64]models.Estatus{},
	}
	for _, x := range e {
		r.items[x.ID] = x
		r.resumen[x.ID] = &models.ExhExhortoResumen{}
	}
	return r
}

func (r *fakeExhRepo) Get(ctx context.Context, id int64) (*models.ExhExhorto, error) {
	e, ok := r.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (r *fakeExhRepo) GetForUpdate(ctx context.Context, id int64) (*models.ExhExhorto, error) {
	return r.Get(ctx, id)
}

func (r *fakeExhRepo) List(ctx context.Context, f dto.ExhExhortoFilter) ([]models.ExhExhorto, int, error) {
	out := make([]models.ExhExhorto, 0, len(r.items))
	for _, e := range r.items {
		out = append(out, *e)
	}
	return out, len(out), nil
}

func (r *fakeExhRepo) Create(ctx context.Context, e *models.ExhExhorto) error {
	e.ID = int64(len(r.items) + 1)
	r.items[e.ID] = e
	return nil
}

func (r *fakeExhRepo) Update(ctx context.Context, e *models.ExhExhorto) error {
	r.updates++
	cp := *e
	r.items[e.ID] = &cp
	return nil
}

func (r *fakeExhRepo) SetEstado(ctx context.Context, id int64, from, to models.ExhEstado) error {
	r.setCalls++
	e := r.items[id]
	if e.Estado != from {
		return repository.ErrStaleState
	}
	e.EstadoAnterior, e.Estado = string(from), to
	return nil
}

func (r *fakeExhRepo) Resumen(ctx context.Context, id int64) (models.ExhExhortoResumen, error) {
	if r.resErr != nil {
		return models.ExhExhortoResumen{}, r.resErr
	}
	return *r.resumen[id], nil
}

func (r *fakeExhRepo) SetEstatus(ctx context.Context, id int64, e models.Estatus) error {
	r.items[id].Estatus = e
	r.estatus[id] = e
	return nil
}

type fakePartes struct {
	fakeCascade
	items []models.ExhExhortoParte
}

func (f *fakePartes) List(ctx context.Context, filter dto.ExhChildFilter) ([]models.ExhExhortoParte, int, error) {
	return f.items, len(f.items), nil
}

type fakeAutoridades struct{ items map[int64]*models.Autoridad }

func (f *fakeAutoridades) Get(ctx context.Context, id int64) (*models.Autoridad, error) {
	if a, ok := f.items[id]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

type fakeExternos struct{ byEstado map[string]*models.ExhExterno }

func (f *fakeExternos) GetActiveByEstado(ctx context.Context, estadoClave string) (*models.ExhExterno, error) {
	if e, ok := f.byEstado[estadoClave]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

// fakeExhArchivos keeps the resumen of the repo in sync when an archivo is acknowledged.
type fakeExhArchivos struct {
	repo   *fakeExhRepo
	items  []models.Adjunto
	marked map[int64]string
}

func (f *fakeExhArchivos) ActiveByParent(ctx context.Context, parentID int64) ([]models.Adjunto, error) {
	return f.items, nil
}

func (f *fakeExhArchivos) Open(ctx context.Context, id int64) (*models.Adjunto, []byte, string, error) {
	for _, a := range f.items {
		if a.ID == id {
			cp := a
			return &cp, []byte("%PDF-" + a.NombreArchivo), "application/pdf", nil
		}
	}
	return nil, nil, "", sql.ErrNoRows
}

func (f *fakeExhArchivos) MarkEstado(ctx context.Context, id int64, estado string) error {
	if f.marked == nil {
		f.marked = map[int64]string{}
	}
	f.marked[id] = estado
	for _, res := range f.repo.resumen {
		res.ArchivosRecibidos++
	}
	return nil
}

type fakePeer struct {
	exhortoErr  error
	rejectFiles map[string]bool
	sent        []PeerExhorto
	files       []string
}

func (f *fakePeer) RecibirExhorto(ctx context.Context, peer models.ExhExterno, exhorto PeerExhorto) (*PeerAcuse, error) {
	if f.exhortoErr != nil {
		return nil, f.exhortoErr
	}
	f.sent = append(f.sent, exhorto)
	return &PeerAcuse{ExhortoOrigenID: exhorto.ExhortoOrigenID, FolioSeguimiento: "FOLIO-1"}, nil
}

func (f *fakePeer) RecibirExhortoArchivo(ctx context.Context, peer models.ExhExterno, exhortoOrigenID, filename string, data []byte) (*PeerAcuse, error) {
	if f.rejectFiles[filename] {
		return nil, errors.New(filename + ": rechazado por el externo")
	}
	f.files = append(f.files, filename)
	return &PeerAcuse{ExhortoOrigenID: exhortoOrigenID}, nil
}

type exhFixture struct {
	svc      *ExhExhortoService
	repo     *fakeExhRepo
	partes   *fakePartes
	archivos *fakeExhArchivos
	cascade  *fakeCascade
	peer     *fakePeer
	audit    *fakeAudit
}

func pendingExhorto() *models.ExhExhorto {
	return &models.ExhExhorto{
		ID:                     1,
		ExhortoOrigenID:        "ABC123",
		EstadoDestinoClave:     "05",
		NumeroExpedienteOrigen: "123/2024",
		Remitente:              models.RemitenteInterno,
		Estado:                 models.ExhPendiente,
		UniversalMixin:         models.UniversalMixin{Estatus: models.EstatusActivo},
	}
}

func newExhFixture(e *models.ExhExhorto) *exhFixture {
	repo := newFakeExhRepo(e)
	fx := &exhFixture{
		repo:    repo,
		partes:  &fakePartes{items: []models.ExhExhortoParte{{ID: 1, ExhExhortoID: e.ID, Nombre: "JUAN"}}},
		cascade: &fakeCascade{},
		peer:    &fakePeer{},
		audit:   &fakeAudit{},
		archivos: &fakeExhArchivos{repo: repo, items: []models.Adjunto{
			{ID: 10, ParentID: e.ID, NombreArchivo: "oficio.pdf", URL: "exh/oficio.pdf"},
			{ID: 11, ParentID: e.ID, NombreArchivo: "acuerdo.pdf", URL: "exh/acuerdo.pdf"},
		}},
	}
	repo.resumen[e.ID] = &models.ExhExhortoResumen{PartesActivas: 1, ArchivosActivos: 2}
	externos := &fakeExternos{byEstado: map[string]*models.ExhExterno{"05": {ID: 3, Clave: "COAH", EstadoClave: "05"}}}
	fx.svc = NewExhExhortoService(repo, fx.partes, fx.cascade, &fakeAutoridades{}, externos, &fakeTx{}, fx.audit,
		ExhExhortoConfig{EstadoClave: "05"}, validator.New(), zap.NewNop()).
		WithExchange(fx.archivos, fx.peer)
	return fx
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to models.ExhEstado
		want     bool
	}{
		{models.ExhPendiente, models.ExhProcesando, true},
		{models.ExhPendiente, models.ExhRecibido, false},
		{models.ExhProcesando, models.ExhRecibido, true},
		{models.ExhRecibido, models.ExhContestado, true},
		{models.ExhDiligenciado, models.ExhRechazado, false},
		{models.ExhContestado, models.ExhCancelado, false},
		{models.ExhCancelado, models.ExhPendiente, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCheckGuard(t *testing.T) {
	assert.Error(t, checkGuard(models.ExhProcesando, models.ExhExhortoResumen{ArchivosActivos: 1}))
	assert.Error(t, checkGuard(models.ExhProcesando, models.ExhExhortoResumen{PartesActivas: 1}))
	assert.NoError(t, checkGuard(models.ExhProcesando, models.ExhExhortoResumen{PartesActivas: 1, ArchivosActivos: 1}))
	assert.Error(t, checkGuard(models.ExhRecibido, models.ExhExhortoResumen{ArchivosActivos: 2, ArchivosRecibidos: 1}))
	assert.Error(t, checkGuard(models.ExhRecibido, models.ExhExhortoResumen{}))
	assert.NoError(t, checkGuard(models.ExhRecibido, models.ExhExhortoResumen{ArchivosActivos: 2, ArchivosRecibidos: 2}))
	assert.Error(t, checkGuard(models.ExhContestado, models.ExhExhortoResumen{}))
	assert.NoError(t, checkGuard(models.ExhCancelado, models.ExhExhortoResumen{}))
}

func TestExhExhortoChangeEstadoGuards(t *testing.T) {
	ctx := context.Background()

	t.Run("without partes", func(t *testing.T) {
		fx := newExhFixture(pendingExhorto())
		fx.repo.resumen[1].PartesActivas = 0

		_, err := fx.svc.ChangeEstado(ctx, testActor(), 1, dto.ExhExhortoEstadoForm{Estado: "procesando"})
		require.Error(t, err)
		assert.ErrorIs(t, err, appErrors.ErrValidation)
		assert.Equal(t, models.ExhPendiente, fx.repo.items[1].Estado)
		assert.Empty(t, fx.audit.entries)
	})

	t.Run("not allowed by the state machine", func(t *testing.T) {
		fx := newExhFixture(pendingExhorto())

		_, err := fx.svc.ChangeEstado(ctx, testActor(), 1, dto.ExhExhortoEstadoForm{Estado: "RECIBIDO"})
		assert.ErrorIs(t, err, appErrors.ErrFinalized)
		assert.Zero(t, fx.repo.setCalls)
	})

	t.Run("deleted exhorto", func(t *testing.T) {
		e := pendingExhorto()
		e.Estatus = models.EstatusBorrado
		fx := newExhFixture(e)

		_, err := fx.svc.ChangeEstado(ctx, testActor(), 1, dto.ExhExhortoEstadoForm{Estado: "CANCELADO"})
		assert.ErrorIs(t, err, appErrors.ErrFinalized)
	})

	t.Run("missing exhorto", func(t *testing.T) {
		fx := newExhFixture(pendingExhorto())

		_, err := fx.svc.ChangeEstado(ctx, testActor(), 99, dto.ExhExhortoEstadoForm{Estado: "CANCELADO"})
		assert.ErrorIs(t, err, appErrors.ErrNotFound)
	})

	t.Run("allowed", func(t *testing.T) {
		fx := newExhFixture(pendingExhorto())

		e, err := fx.svc.ChangeEstado(ctx, testActor(), 1, dto.ExhExhortoEstadoForm{Estado: "CANCELADO"})
		require.NoError(t, err)
		assert.Equal(t, models.ExhCancelado, e.Estado)
		assert.Equal(t, string(models.ExhPendiente), e.EstadoAnterior)
		assert.Equal(t, []string{"Exhorto 123/2024 pasa a CANCELADO"}, fx.audit.descriptions())
	})
}

func TestExhExhortoEnviar(t *testing.T) {
	ctx := context.Background()
	fx := newExhFixture(pendingExhorto())
	var steps []int

	msg, err := fx.svc.Enviar(ctx, testActor(), 1, func(p int, _ string) { steps = append(steps, p) })
	require.NoError(t, err)

	assert.Equal(t, "Exhorto ABC123 enviado a COAH, 2 de 2 archivos recibidos.", msg)
	assert.Equal(t, models.ExhRecibido, fx.repo.items[1].Estado)
	assert.Equal(t, "FOLIO-1", fx.repo.items[1].FolioSeguimiento)
	require.Len(t, fx.peer.sent, 1)
	assert.Len(t, fx.peer.sent[0].Partes, 1)
	assert.Len(t, fx.peer.sent[0].Archivos, 2)
	assert.Equal(t, []string{"oficio.pdf", "acuerdo.pdf"}, fx.peer.files)
	assert.Equal(t, models.AdjuntoRecibido, fx.archivos.marked[10])
	assert.Equal(t, []int{10, 50, 90}, steps)
	assert.Equal(t, []string{
		"Exhorto 123/2024 pasa a PROCESANDO",
		"Exhorto 123/2024 RECIBIDO por el externo",
	}, fx.audit.descriptions())
}

func TestExhExhortoEnviarPeerRejectsExhorto(t *testing.T) {
	fx := newExhFixture(pendingExhorto())
	fx.peer.exhortoErr = appErrors.Clone(appErrors.ErrUpload, "el externo rechazo el exhorto")

	_, err := fx.svc.Enviar(context.Background(), testActor(), 1, nil)
	require.Error(t, err)
	assert.Equal(t, models.ExhPendiente, fx.repo.items[1].Estado)
	assert.Empty(t, fx.peer.files)
	assert.Empty(t, fx.audit.entries)
}

func TestExhExhortoEnviarPartialArchivos(t *testing.T) {
	fx := newExhFixture(pendingExhorto())
	fx.peer.rejectFiles = map[string]bool{"acuerdo.pdf": true}

	msg, err := fx.svc.Enviar(context.Background(), testActor(), 1, nil)
	require.NoError(t, err)
	assert.Contains(t, msg, "1 de 2 archivos recibidos")
	assert.Contains(t, msg, "Advertencias: acuerdo.pdf: rechazado por el externo")
	assert.Equal(t, models.ExhProcesando, fx.repo.items[1].Estado)
}

func TestExhExhortoEnviarSkipsUnstoredArchivos(t *testing.T) {
	fx := newExhFixture(pendingExhorto())
	fx.archivos.items[1].URL = ""

	_, err := fx.svc.Enviar(context.Background(), testActor(), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"oficio.pdf"}, fx.peer.files)
	// the resumen still counts two active archivos, so it stays PROCESANDO
	assert.Equal(t, models.ExhProcesando, fx.repo.items[1].Estado)
}

func TestExhExhortoEnviarGate(t *testing.T) {
	ctx := context.Background()

	t.Run("foreign exhorto", func(t *testing.T) {
		e := pendingExhorto()
		e.Remitente = models.RemitenteExterno
		fx := newExhFixture(e)
		err := fx.svc.EnviarGate(ctx, 1)
		assert.ErrorIs(t, err, appErrors.ErrNotValidParam)
		assert.True(t, appErrors.IsValidationFamily(err))
	})

	t.Run("already sent", func(t *testing.T) {
		e := pendingExhorto()
		e.Estado = models.ExhProcesando
		fx := newExhFixture(e)
		assert.ErrorIs(t, fx.svc.EnviarGate(ctx, 1), appErrors.ErrFinalized)
	})

	t.Run("without archivos", func(t *testing.T) {
		fx := newExhFixture(pendingExhorto())
		fx.repo.resumen[1].ArchivosActivos = 0
		assert.ErrorIs(t, fx.svc.EnviarGate(ctx, 1), appErrors.ErrValidation)
	})

	t.Run("ready", func(t *testing.T) {
		fx := newExhFixture(pendingExhorto())
		assert.NoError(t, fx.svc.EnviarGate(ctx, 1))
	})
}

func TestExhExhortoChildGates(t *testing.T) {
	ctx := context.Background()
	e := pendingExhorto()
	fx := newExhFixture(e)

	assert.NoError(t, fx.svc.EditGate(ctx, 1))
	assert.ErrorIs(t, fx.svc.RespuestaGate(ctx, 1), appErrors.ErrFinalized)
	assert.NoError(t, fx.svc.ActualizacionGate(ctx, 1))

	fx.repo.items[1].Estado = models.ExhRecibido
	assert.ErrorIs(t, fx.svc.EditGate(ctx, 1), appErrors.ErrFinalized)
	assert.NoError(t, fx.svc.RespuestaGate(ctx, 1))

	fx.repo.items[1].Estado = models.ExhCancelado
	assert.ErrorIs(t, fx.svc.ActualizacionGate(ctx, 1), appErrors.ErrFinalized)
}

func TestExhExhortoDeleteCascades(t *testing.T) {
	ctx := context.Background()
	fx := newExhFixture(pendingExhorto())

	e, changed, err := fx.svc.Delete(ctx, testActor(), 1)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.False(t, e.IsActive())
	assert.Equal(t, []int64{1}, fx.partes.parents)
	assert.Equal(t, []int64{1}, fx.cascade.parents)
	assert.Equal(t, []string{"Eliminado exhorto 123/2024"}, fx.audit.descriptions())

	_, changed, err = fx.svc.Delete(ctx, testActor(), 1)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, fx.audit.entries, 1)

	_, changed, err = fx.svc.Recover(ctx, testActor(), 1)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.EstatusActivo, fx.repo.items[1].Estatus)
}
