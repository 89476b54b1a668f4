package service

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/pjecz/hercules/internal/access"
	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
	appErrors "github.com/pjecz/hercules/pkg/errors"
	"github.com/pjecz/hercules/pkg/safe"
)

type bitacoraStore interface {
	Insert(ctx context.Context, b *models.Bitacora) error
	Get(ctx context.Context, id int64) (*models.Bitacora, error)
	List(ctx context.Context, f dto.BitacoraFilter) ([]models.Bitacora, int, error)
}

type moduloLookup interface {
	IDByNombre(ctx context.Context, nombre string) (int64, error)
}

// AuditService appends bitácora rows. Record must be called with the context
// of the transaction that performed the mutation.
type AuditService struct {
	repo    bitacoraStore
	modulos moduloLookup
	ids     *lru.Cache[access.Module, int64]
	logger  *zap.Logger
	now     func() time.Time
}

func NewAuditService(repo bitacoraStore, modulos moduloLookup, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	ids, _ := lru.New[access.Module, int64](len(access.Modules) * 2)
	return &AuditService{repo: repo, modulos: modulos, ids: ids, logger: logger, now: time.Now}
}

// Record inserts one bitácora row. The url must belong to the module.
func (s *AuditService) Record(ctx context.Context, actor *models.CurrentUser, module access.Module, descripcion, url string) error {
	if actor == nil || actor.ID == 0 {
		return appErrors.Clone(appErrors.ErrForbidden, "se requiere un usuario para la bitacora")
	}
	if !module.Owns(url) {
		return appErrors.Clone(appErrors.ErrNotValidParam, fmt.Sprintf("la url %q no pertenece al modulo %s", url, module))
	}
	moduloID, err := s.moduloID(ctx, module)
	if err != nil {
		return err
	}
	row := &models.Bitacora{
		ModuloID:    moduloID,
		UsuarioID:   actor.ID,
		Descripcion: safe.Message(descripcion, safe.DefaultMessageMaxLen),
		URL:         url,
		Creado:      s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, row); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "no se pudo registrar la bitacora")
	}
	return nil
}

func (s *AuditService) moduloID(ctx context.Context, module access.Module) (int64, error) {
	if id, ok := s.ids.Get(module); ok {
		return id, nil
	}
	id, err := s.modulos.IDByNombre(ctx, module.String())
	if err != nil {
		return 0, mapRepoError(err, "el modulo "+module.String()+" no esta registrado", "failed to resolve modulo")
	}
	s.ids.Add(module, id)
	return id, nil
}

// ForgetModules drops the cached module ids, used after the modulos catalog changes.
func (s *AuditService) ForgetModules() {
	s.ids.Purge()
}

func (s *AuditService) Get(ctx context.Context, id int64) (*models.Bitacora, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "bitacora no encontrada", "failed to fetch bitacora")
	}
	return b, nil
}

func (s *AuditService) List(ctx context.Context, f dto.BitacoraFilter) ([]models.Bitacora, int, error) {
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bitacoras")
	}
	return items, total, nil
}
