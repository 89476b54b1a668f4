package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjecz/hercules/internal/access"
	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
	"github.com/pjecz/hercules/internal/repository"
	appErrors "github.com/pjecz/hercules/pkg/errors"
	"github.com/pjecz/hercules/pkg/jobs"
)

type fakeTareaStore struct {
	mu         sync.Mutex
	items      map[string]*models.Tarea
	progress   []int
	getErr     error
	listFilter dto.TareaFilter
}

func newFakeTareaStore() *fakeTareaStore {
	return &fakeTareaStore{items: map[string]*models.Tarea{}}
}

func (f *fakeTareaStore) Create(ctx context.Context, t *models.Tarea) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.items[t.ID] = &cp
	return nil
}

func (f *fakeTareaStore) Get(ctx context.Context, id string) (*models.Tarea, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	t, ok := f.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTareaStore) List(ctx context.Context, filter dto.TareaFilter) ([]models.Tarea, int, error) {
	f.listFilter = filter
	return nil, 0, nil
}

func (f *fakeTareaStore) ListUnfinished(ctx context.Context) ([]models.Tarea, error) {
	var out []models.Tarea
	for _, t := range f.items {
		if !t.Estado.Terminal() {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTareaStore) MarkRunning(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.items[id]
	if t.Estado != models.TareaQueued {
		return repository.ErrStaleState
	}
	t.Estado = models.TareaRunning
	return nil
}

func (f *fakeTareaStore) UpdateProgress(ctx context.Context, id string, progreso int, mensaje string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = append(f.progress, progreso)
	f.items[id].Progreso = progreso
	f.items[id].Mensaje = mensaje
	return nil
}

func (f *fakeTareaStore) Finish(ctx context.Context, t *models.Tarea) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.items[t.ID]
	if !ok {
		return sql.ErrNoRows
	}
	if cur.Estado.Terminal() {
		return repository.ErrStaleState
	}
	cur.Estado, cur.Mensaje, cur.Progreso = t.Estado, t.Mensaje, t.Progreso
	cur.Resultado, cur.Archivo, cur.URL = t.Resultado, t.Archivo, t.URL
	return nil
}

type fakeDispatcher struct {
	jobs []jobs.Job
	err  error
}

func (f *fakeDispatcher) Enqueue(job jobs.Job) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeSweeper struct {
	n   int
	age time.Duration
}

func (f *fakeSweeper) Family() AttachmentFamily { return SoportesAdjuntosFamily }

func (f *fakeSweeper) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	f.age = maxAge
	return f.n, nil
}

func newTareaFixture() (*TareaService, *fakeTareaStore, *fakeDispatcher) {
	store := newFakeTareaStore()
	queue := &fakeDispatcher{}
	svc := NewTareaService(store, nil, TareaServiceConfig{MaxRetries: 2, RefreshSeconds: 3}, nil)
	svc.AttachQueue(queue)
	return svc, store, queue
}

func TestTareaLaunchAndRun(t *testing.T) {
	ctx := context.Background()
	svc, store, queue := newTareaFixture()
	svc.Register("demo", func(ctx context.Context, tc *TaskContext) (TaskResult, error) {
		tc.Progress(50, "mitad")
		tc.Progress(150, "fuera de rango")
		return TaskResult{Mensaje: "listo " + tc.Param("nombre")}, nil
	})

	tarea, err := svc.LaunchTask(ctx, testActor(), "demo", "Demostracion", models.TareaParametros{"nombre": "x"})
	require.NoError(t, err)
	assert.Equal(t, models.TareaQueued, tarea.Estado)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, tarea.ID, queue.jobs[0].ID)

	require.NoError(t, svc.Handle(ctx, queue.jobs[0]))
	got := store.items[tarea.ID]
	assert.Equal(t, models.TareaDone, got.Estado)
	assert.Equal(t, "listo x", got.Mensaje)
	assert.Equal(t, 100, got.Progreso)
	assert.Equal(t, []int{50, 100}, store.progress)

	// a second delivery of the same job is a no-op
	assert.NoError(t, svc.Handle(ctx, queue.jobs[0]))
}

func TestTareaLaunchRejects(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTareaFixture()

	_, err := svc.LaunchTask(ctx, nil, "demo", "", nil)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.LaunchTask(ctx, testActor(), "desconocido", "", nil)
	assert.ErrorIs(t, err, appErrors.ErrNotValidParam)
}

func TestTareaLaunchQueueFull(t *testing.T) {
	svc, store, queue := newTareaFixture()
	queue.err = jobs.ErrQueueFull
	svc.Register("demo", func(ctx context.Context, tc *TaskContext) (TaskResult, error) { return TaskResult{}, nil })

	tarea, err := svc.LaunchTask(context.Background(), testActor(), "demo", "", nil)
	require.Error(t, err)
	require.NotNil(t, tarea)
	assert.Equal(t, models.TareaError, store.items[tarea.ID].Estado)
}

func TestTareaCommandFailureIsPermanent(t *testing.T) {
	ctx := context.Background()
	svc, store, queue := newTareaFixture()
	svc.Register("falla", func(ctx context.Context, tc *TaskContext) (TaskResult, error) {
		return TaskResult{}, appErrors.Clone(appErrors.ErrNotValidParam, "falta el parametro exh_exhorto_id")
	})
	svc.Register("panico", func(ctx context.Context, tc *TaskContext) (TaskResult, error) {
		panic("boom")
	})

	a, err := svc.LaunchTask(ctx, testActor(), "falla", "", nil)
	require.NoError(t, err)
	err = svc.Handle(ctx, queue.jobs[0])
	assert.True(t, jobs.IsPermanent(err))
	assert.Equal(t, models.TareaError, store.items[a.ID].Estado)
	assert.Equal(t, "falta el parametro exh_exhorto_id", store.items[a.ID].Mensaje)

	b, err := svc.LaunchTask(ctx, testActor(), "panico", "", nil)
	require.NoError(t, err)
	err = svc.Handle(ctx, queue.jobs[1])
	assert.True(t, jobs.IsPermanent(err))
	assert.Contains(t, store.items[b.ID].Mensaje, "boom")
}

func TestTareaHandleRetriesTransientErrors(t *testing.T) {
	ctx := context.Background()
	svc, store, queue := newTareaFixture()
	svc.Register("demo", func(ctx context.Context, tc *TaskContext) (TaskResult, error) { return TaskResult{}, nil })
	tarea, err := svc.LaunchTask(ctx, testActor(), "demo", "", nil)
	require.NoError(t, err)

	store.getErr = errors.New("connection reset")
	job := queue.jobs[0]
	err = svc.Handle(ctx, job)
	require.Error(t, err)
	assert.False(t, jobs.IsPermanent(err))

	job.Attempt = 2
	err = svc.Handle(ctx, job)
	assert.True(t, jobs.IsPermanent(err))
	store.getErr = nil
	assert.Equal(t, models.TareaError, store.items[tarea.ID].Estado)
}

func TestTareaHandleMissingTarea(t *testing.T) {
	svc, _, _ := newTareaFixture()
	err := svc.Handle(context.Background(), jobs.Job{ID: "nope"})
	assert.True(t, jobs.IsPermanent(err))
}

func TestTareaRecoverUnfinished(t *testing.T) {
	svc, store, queue := newTareaFixture()
	store.items["a"] = &models.Tarea{ID: "a", Comando: "demo", Estado: models.TareaRunning}
	store.items["b"] = &models.Tarea{ID: "b", Comando: "demo", Estado: models.TareaQueued}
	store.items["c"] = &models.Tarea{ID: "c", Comando: "demo", Estado: models.TareaDone}

	n, err := svc.RecoverUnfinished(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, models.TareaError, store.items["a"].Estado)
	assert.Equal(t, "Tarea interrumpida por reinicio", store.items["a"].Mensaje)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "b", queue.jobs[0].ID)
}

func TestTareaFinishTwiceIsFinalized(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTareaFixture()
	store.items["a"] = &models.Tarea{ID: "a", Estado: models.TareaRunning}

	require.NoError(t, svc.Done(ctx, "a", TaskResult{Mensaje: "ok"}))
	assert.ErrorIs(t, svc.Fail(ctx, "a", "tarde"), appErrors.ErrFinalized)
	assert.Equal(t, models.TareaDone, store.items["a"].Estado)
}

func TestTareaVisibility(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTareaFixture()
	id := "6f1c1a4e-4a55-4f0c-9d4b-1b1e6a0c2f11"
	store.items[id] = &models.Tarea{ID: id, UsuarioID: 99, Estado: models.TareaRunning}

	_, err := svc.Get(ctx, testActor(), id)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	admin := testActor()
	admin.Capabilities = access.NewCapabilitySet([]string{"ADMINISTRADOR"}, []access.Grant{{Module: access.ModuleTareas, Level: access.LevelAdmin}})
	detail, err := svc.Get(ctx, admin, id)
	require.NoError(t, err)
	assert.Equal(t, 3, detail.RefreshSeconds)

	_, err = svc.Get(ctx, admin, "no-es-uuid")
	assert.ErrorIs(t, err, appErrors.ErrNotValidParam)

	_, _, err = svc.List(ctx, testActor(), dto.TareaFilter{UsuarioID: 99})
	require.NoError(t, err)
	assert.Equal(t, int64(7), store.listFilter.UsuarioID)

	_, _, err = svc.List(ctx, admin, dto.TareaFilter{UsuarioID: 99})
	require.NoError(t, err)
	assert.Equal(t, int64(99), store.listFilter.UsuarioID)
}

func TestDepurarAdjuntosCommand(t *testing.T) {
	sweeper := &fakeSweeper{n: 3}
	cmd := DepurarAdjuntosCommand(0, sweeper)
	tc := &TaskContext{Tarea: &models.Tarea{Parametros: models.TareaParametros{"horas": "48"}}}

	res, err := cmd(context.Background(), tc)
	require.NoError(t, err)
	assert.Equal(t, "Se depuraron 3 adjuntos (SOPORTES ADJUNTOS: 3).", res.Mensaje)
	assert.Equal(t, float64(48), sweeper.age.Hours())

	tc.Tarea.Parametros["horas"] = "x"
	_, err = cmd(context.Background(), tc)
	assert.ErrorIs(t, err, appErrors.ErrNotValidParam)
}

func TestEnviarExhortoCommandRequiresID(t *testing.T) {
	cmd := EnviarExhortoCommand(nil)
	_, err := cmd(context.Background(), &TaskContext{Tarea: &models.Tarea{}})
	assert.ErrorIs(t, err, appErrors.ErrNotValidParam)
}
