package service

import (
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/pjecz/hercules/internal/access"
	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
	"github.com/pjecz/hercules/pkg/config"
	appErrors "github.com/pjecz/hercules/pkg/errors"
	"github.com/pjecz/hercules/pkg/safe"
	"github.com/pjecz/hercules/pkg/storage"
)

// AttachmentFamily describes where the bytes of one attachment table go.
type AttachmentFamily struct {
	Module            access.Module
	Bucket            string
	BaseDirectory     string
	AllowedExtensions []string
	// CommitEstado is the estado written when the upload succeeds.
	CommitEstado string
	MonthInWord  bool
}

var (
	SoportesAdjuntosFamily = AttachmentFamily{
		Module:            access.ModuleSoportesAdjuntos,
		Bucket:            config.BucketSoportes,
		BaseDirectory:     "soportes_adjuntos",
		AllowedExtensions: []string{"pdf", "jpg", "jpeg", "png", "doc", "docx", "xls", "xlsx", "txt", "zip"},
		CommitEstado:      models.AdjuntoPendiente,
	}
	ExhExhortosArchivosFamily = AttachmentFamily{
		Module:            access.ModuleExhExhortosArchivos,
		Bucket:            config.BucketExhExhortos,
		BaseDirectory:     "exh_exhortos_archivos",
		AllowedExtensions: []string{"pdf"},
		CommitEstado:      models.AdjuntoPendiente,
		MonthInWord:       true,
	}
	ExhExhortosRespuestasArchivosFamily = AttachmentFamily{
		Module:            access.ModuleExhExhortosRespuestasArchivos,
		Bucket:            config.BucketExhExhortos,
		BaseDirectory:     "exh_exhortos_respuestas_archivos",
		AllowedExtensions: []string{"pdf"},
		CommitEstado:      models.AdjuntoRecibido,
		MonthInWord:       true,
	}
)

const defaultMaxUploadBytes = 32 << 20

type adjuntoStore interface {
	Reserve(ctx context.Context, a *models.Adjunto) error
	Commit(ctx context.Context, id int64, sha1, sha256, url string, tamano int64, estado string) error
	Get(ctx context.Context, id int64) (*models.Adjunto, error)
	List(ctx context.Context, f dto.AdjuntoFilter) ([]models.Adjunto, int, error)
	ListByParent(ctx context.Context, parentID int64) ([]models.Adjunto, error)
	ListStalePending(ctx context.Context, before time.Time) ([]models.Adjunto, error)
	SetEstado(ctx context.Context, id int64, estado string) error
	SetEstatus(ctx context.Context, id int64, e models.Estatus) error
}

type bucketSource interface {
	Bucket(family string) (storage.Bucket, error)
	SignedURLTTL() time.Duration
}

type idEncoder interface {
	Encode(id int64) string
}

// ParentGate rejects attachment changes the parent row does not allow.
type ParentGate func(ctx context.Context, parentID int64) error

// AttachmentDraft is the user input of an upload.
type AttachmentDraft struct {
	ParentID      int64
	Descripcion   string
	TipoDocumento string
}

// Upload is the incoming file, read exactly once.
type Upload struct {
	Filename string
	Content  io.Reader
}

// ReservedAttachment is a row inserted before its bytes reached storage. It has
// no url nor hashes to read.
type ReservedAttachment struct {
	id          int64
	parentID    int64
	descripcion string
	filename    string
	reservedAt  time.Time
}

func (r ReservedAttachment) ID() int64       { return r.id }
func (r ReservedAttachment) ParentID() int64 { return r.parentID }

// CommittedAttachment is a row whose bytes are stored and hashed.
type CommittedAttachment struct {
	ID         int64
	ParentID   int64
	URL        string
	Key        string
	HashSHA1   string
	HashSHA256 string
	Tamano     int64
	Estado     string
}

// AttachmentFlowConfig bounds the uploads of a family.
type AttachmentFlowConfig struct {
	MaxBytes int64
}

// AttachmentFlow writes attachment rows in two phases: reserve the row, upload the
// bytes, then commit url and hashes. A failed upload soft-deletes the reservation.
type AttachmentFlow struct {
	family    AttachmentFamily
	repo      adjuntoStore
	buckets   bucketSource
	ids       idEncoder
	lifecycle lifecycle
	gate      ParentGate
	maxBytes  int64
	now       func() time.Time
	logger    *zap.Logger
}

func NewAttachmentFlow(family AttachmentFamily, repo adjuntoStore, buckets bucketSource, ids idEncoder, tx txRunner, audit auditRecorder, cfg AttachmentFlowConfig, logger *zap.Logger) *AttachmentFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxUploadBytes
	}
	return &AttachmentFlow{
		family:    family,
		repo:      repo,
		buckets:   buckets,
		ids:       ids,
		lifecycle: lifecycle{tx: tx, audit: audit, module: family.Module},
		maxBytes:  cfg.MaxBytes,
		now:       time.Now,
		logger:    logger.With(zap.String("family", string(family.Module))),
	}
}

// WithParentGate installs the check run before any change to the family's rows.
func (f *AttachmentFlow) WithParentGate(gate ParentGate) *AttachmentFlow {
	f.gate = gate
	return f
}

func (f *AttachmentFlow) Family() AttachmentFamily { return f.family }

func (f *AttachmentFlow) checkParent(ctx context.Context, parentID int64) error {
	if f.gate == nil {
		return nil
	}
	return f.gate(ctx, parentID)
}

func (f *AttachmentFlow) List(ctx context.Context, filter dto.AdjuntoFilter) ([]models.Adjunto, int, error) {
	filter.Descripcion = safe.String(filter.Descripcion, safe.StringOptions{SaveEnie: true})
	items, total, err := f.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list adjuntos")
	}
	return items, total, nil
}

func (f *AttachmentFlow) Get(ctx context.Context, id int64) (*models.Adjunto, error) {
	a, err := f.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "archivo no encontrado", "failed to fetch adjunto")
	}
	return a, nil
}

// Store runs the whole upload. Extension problems are reported before any row exists.
func (f *AttachmentFlow) Store(ctx context.Context, actor *models.CurrentUser, draft AttachmentDraft, upload Upload) (*CommittedAttachment, error) {
	descripcion := safe.String(draft.Descripcion, safe.StringOptions{MaxLen: 256, SaveEnie: true})
	if descripcion == "" {
		return nil, appErrors.Clone(appErrors.ErrEmpty, "la descripcion es obligatoria")
	}
	if upload.Content == nil {
		return nil, appErrors.Clone(appErrors.ErrEmpty, "falta el archivo")
	}
	if err := f.checkParent(ctx, draft.ParentID); err != nil {
		return nil, err
	}
	bucket, err := f.buckets.Bucket(f.family.Bucket)
	if err != nil {
		return nil, err
	}
	scope := &storage.Scope{
		Bucket:            bucket,
		BaseDirectory:     f.family.BaseDirectory,
		UploadDate:        f.now(),
		AllowedExtensions: f.family.AllowedExtensions,
		MonthInWord:       f.family.MonthInWord,
	}
	if err := scope.SetContentType(upload.Filename); err != nil {
		return nil, err
	}

	draft.Descripcion = descripcion
	reserved, err := f.reserve(ctx, draft, upload.Filename, scope.ContentType())
	if err != nil {
		return nil, err
	}

	committed, err := f.upload(ctx, reserved, scope, upload.Content)
	if err != nil {
		f.discard(ctx, reserved, err)
		return nil, err
	}

	err = f.lifecycle.write(ctx, actor, func(ctx context.Context) error {
		return f.repo.Commit(ctx, committed.ID, committed.HashSHA1, committed.HashSHA256, committed.URL, committed.Tamano, committed.Estado)
	}, func() (string, string) {
		return fmt.Sprintf("Nuevo archivo %s", reserved.descripcion), DetailURL(f.family.Module, committed.ID)
	})
	if err != nil {
		if delErr := bucket.Delete(ctx, committed.Key); delErr != nil {
			f.logger.Warn("orphan blob left after failed commit", zap.String("key", committed.Key), zap.Error(delErr))
		}
		f.discard(ctx, reserved, err)
		return nil, mapRepoError(err, "archivo no encontrado", "failed to commit adjunto")
	}
	return committed, nil
}

func (f *AttachmentFlow) reserve(ctx context.Context, draft AttachmentDraft, filename, contentType string) (ReservedAttachment, error) {
	row := &models.Adjunto{
		ParentID:      draft.ParentID,
		Descripcion:   draft.Descripcion,
		NombreArchivo: safe.String(filename, safe.StringOptions{MaxLen: 256, KeepAccents: true, KeepCase: true}),
		TipoDocumento: draft.TipoDocumento,
	}
	if row.TipoDocumento == "" {
		row.TipoDocumento = contentType
	}
	if err := f.repo.Reserve(ctx, row); err != nil {
		return ReservedAttachment{}, mapRepoError(err, "archivo no encontrado", "failed to reserve adjunto")
	}
	return ReservedAttachment{
		id:          row.ID,
		parentID:    row.ParentID,
		descripcion: row.Descripcion,
		filename:    row.NombreArchivo,
		reservedAt:  row.Creado,
	}, nil
}

func (f *AttachmentFlow) upload(ctx context.Context, reserved ReservedAttachment, scope *storage.Scope, content io.Reader) (*CommittedAttachment, error) {
	data, err := io.ReadAll(io.LimitReader(content, f.maxBytes+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpload.Code, appErrors.ErrUpload.Status, "no se pudo leer el archivo")
	}
	if len(data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrEmpty, "el archivo esta vacio")
	}
	if int64(len(data)) > f.maxBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("el archivo excede %d bytes", f.maxBytes))
	}

	sum1 := sha1.Sum(data)
	sum256 := sha256.Sum256(data)

	// Keyed by the row's own id; a parent can hold many files with one descripcion.
	key, err := scope.SetFilename(f.ids.Encode(reserved.id), reserved.descripcion)
	if err != nil {
		return nil, err
	}
	url, err := scope.Upload(ctx, data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpload.Code, appErrors.ErrUpload.Status, "no se pudo subir el archivo al deposito")
	}
	return &CommittedAttachment{
		ID:         reserved.id,
		ParentID:   reserved.parentID,
		URL:        url,
		Key:        key,
		HashSHA1:   hex.EncodeToString(sum1[:]),
		HashSHA256: hex.EncodeToString(sum256[:]),
		Tamano:     int64(len(data)),
		Estado:     f.family.CommitEstado,
	}, nil
}

// discard soft-deletes a reservation whose upload failed.
func (f *AttachmentFlow) discard(ctx context.Context, reserved ReservedAttachment, cause error) {
	f.logger.Warn("attachment upload failed", zap.Int64("adjunto_id", reserved.id), zap.Error(cause))
	if err := f.repo.SetEstatus(ctx, reserved.id, models.EstatusBorrado); err != nil {
		f.logger.Error("failed to discard reserved adjunto", zap.Int64("adjunto_id", reserved.id), zap.Error(err))
	}
}

// Verify downloads the stored bytes again and compares their SHA-256.
func (f *AttachmentFlow) Verify(ctx context.Context, id int64) (bool, error) {
	a, err := f.Get(ctx, id)
	if err != nil {
		return false, err
	}
	data, _, err := f.read(ctx, a)
	if err != nil {
		return false, err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]) == a.HashSHA256, nil
}

// Open returns the bytes of an active, stored attachment with its content type.
func (f *AttachmentFlow) Open(ctx context.Context, id int64) (*models.Adjunto, []byte, string, error) {
	a, err := f.Get(ctx, id)
	if err != nil {
		return nil, nil, "", err
	}
	if !a.IsActive() {
		return nil, nil, "", appErrors.Clone(appErrors.ErrNotFound, "archivo eliminado")
	}
	data, contentType, err := f.read(ctx, a)
	if err != nil {
		return nil, nil, "", err
	}
	return a, data, contentType, nil
}

// SignedURL returns a short-lived link to the stored bytes.
func (f *AttachmentFlow) SignedURL(ctx context.Context, id int64) (string, error) {
	a, err := f.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if !a.IsActive() || !a.Stored() {
		return "", appErrors.Clone(appErrors.ErrFileNotFound, "el archivo no esta disponible")
	}
	bucket, err := f.buckets.Bucket(f.family.Bucket)
	if err != nil {
		return "", err
	}
	blob, err := storage.BlobNameFromURL(a.URL, bucket.Name())
	if err != nil {
		return "", err
	}
	return bucket.SignedURL(ctx, blob, f.buckets.SignedURLTTL())
}

func (f *AttachmentFlow) read(ctx context.Context, a *models.Adjunto) ([]byte, string, error) {
	if !a.Stored() {
		return nil, "", appErrors.Clone(appErrors.ErrFileNotFound, "el archivo no se ha subido")
	}
	bucket, err := f.buckets.Bucket(f.family.Bucket)
	if err != nil {
		return nil, "", err
	}
	blob, err := storage.BlobNameFromURL(a.URL, bucket.Name())
	if err != nil {
		return nil, "", err
	}
	data, err := storage.Download(ctx, bucket, blob)
	if err != nil {
		return nil, "", err
	}
	return data, storage.ContentTypeFor(storage.Extension(blob)), nil
}

// MarkEstado moves a stored attachment to estado, e.g. RECIBIDO on a peer acuse.
func (f *AttachmentFlow) MarkEstado(ctx context.Context, id int64, estado string) error {
	if err := f.repo.SetEstado(ctx, id, estado); err != nil {
		return mapRepoError(err, "archivo no encontrado", "failed to update adjunto estado")
	}
	return nil
}

// ActiveByParent lists the active attachments of a parent, oldest first.
func (f *AttachmentFlow) ActiveByParent(ctx context.Context, parentID int64) ([]models.Adjunto, error) {
	items, err := f.repo.ListByParent(ctx, parentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list adjuntos by parent")
	}
	return items, nil
}

func (f *AttachmentFlow) Delete(ctx context.Context, actor *models.CurrentUser, id int64) (*models.Adjunto, bool, error) {
	return f.setEstatus(ctx, actor, id, models.EstatusBorrado)
}

func (f *AttachmentFlow) Recover(ctx context.Context, actor *models.CurrentUser, id int64) (*models.Adjunto, bool, error) {
	return f.setEstatus(ctx, actor, id, models.EstatusActivo)
}

func (f *AttachmentFlow) setEstatus(ctx context.Context, actor *models.CurrentUser, id int64, target models.Estatus) (*models.Adjunto, bool, error) {
	a, err := f.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if err := f.checkParent(ctx, a.ParentID); err != nil {
		return a, false, err
	}
	if target == models.EstatusActivo && !a.Stored() {
		return a, false, appErrors.Clone(appErrors.ErrFileNotFound, "no se puede recuperar un archivo que no se subio")
	}
	return changeEstatus[models.Adjunto](ctx, f.lifecycle, actor, f.repo, id, target,
		func(a *models.Adjunto) string { return "archivo " + a.Descripcion }, "archivo no encontrado", nil)
}

// Sweep soft-deletes reservations older than maxAge that never got their bytes.
func (f *AttachmentFlow) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	stale, err := f.repo.ListStalePending(ctx, f.now().Add(-maxAge))
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list stale adjuntos")
	}
	swept := 0
	for _, a := range stale {
		if a.Stored() {
			continue
		}
		if err := f.repo.SetEstatus(ctx, a.ID, models.EstatusBorrado); err != nil {
			f.logger.Warn("failed to sweep adjunto", zap.Int64("adjunto_id", a.ID), zap.Error(err))
			continue
		}
		swept++
	}
	return swept, nil
}
