package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/pjecz/hercules/internal/access"
	"github.com/pjecz/hercules/internal/models"
	"github.com/pjecz/hercules/internal/repository"
	appErrors "github.com/pjecz/hercules/pkg/errors"
)

// txRunner runs fn inside one database transaction bound to the context.
type txRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type auditRecorder interface {
	Record(ctx context.Context, actor *models.CurrentUser, module access.Module, descripcion, url string) error
}

type estatusSetter interface {
	SetEstatus(ctx context.Context, id int64, e models.Estatus) error
}

// DetailURL is the detail page of a row, under the module's route.
func DetailURL(module access.Module, id int64) string {
	return module.Route() + "/" + strconv.FormatInt(id, 10)
}

// mapRepoError translates repository failures into application errors.
func mapRepoError(err error, notFound, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Clone(appErrors.ErrConflict, "ya existe un registro con esos datos")
	case errors.Is(err, repository.ErrStaleState):
		return appErrors.Clone(appErrors.ErrFinalized, "el registro cambio de estado")
	default:
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return err
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, op)
	}
}

func validate(v *validator.Validate, form interface{}) error {
	if err := v.Struct(form); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "formulario no valido: "+err.Error())
	}
	return nil
}

// lifecycle writes a mutation and its bitácora row in one transaction.
type lifecycle struct {
	tx     txRunner
	audit  auditRecorder
	module access.Module
}

// write runs fn, then appends the audit row built by describe once fn has set the ids.
func (l lifecycle) write(ctx context.Context, actor *models.CurrentUser, fn func(ctx context.Context) error, describe func() (string, string)) error {
	return l.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return err
		}
		descripcion, url := describe()
		return l.audit.Record(ctx, actor, l.module, descripcion, url)
	})
}

// toggle soft-deletes or recovers id. A row already in the target estatus is left
// untouched and no audit row is written.
func (l lifecycle) toggle(ctx context.Context, actor *models.CurrentUser, repo estatusSetter, id int64, current, target models.Estatus, label string, cascade func(ctx context.Context) error) (bool, error) {
	if current == target {
		return false, nil
	}
	verb := "Eliminado"
	if target == models.EstatusActivo {
		verb = "Recuperado"
	}
	err := l.write(ctx, actor, func(ctx context.Context) error {
		if err := repo.SetEstatus(ctx, id, target); err != nil {
			return err
		}
		if cascade != nil {
			return cascade(ctx)
		}
		return nil
	}, func() (string, string) {
		return verb + " " + label, DetailURL(l.module, id)
	})
	return err == nil, err
}

type entityStore[T any] interface {
	Get(ctx context.Context, id int64) (*T, error)
	SetEstatus(ctx context.Context, id int64, e models.Estatus) error
}

// mixed is satisfied by pointers to entities embedding models.UniversalMixin.
type mixed[T any] interface {
	*T
	IsActive() bool
	SoftDelete(now time.Time)
	Recover(now time.Time)
}

// changeEstatus loads the row, flips its estatus with the audit row and returns
// the updated row plus whether anything changed.
func changeEstatus[T any, P mixed[T]](ctx context.Context, l lifecycle, actor *models.CurrentUser, repo entityStore[T], id int64, target models.Estatus, label func(P) string, notFound string, cascade func(ctx context.Context) error) (P, bool, error) {
	raw, err := repo.Get(ctx, id)
	if err != nil {
		return nil, false, mapRepoError(err, notFound, "failed to fetch row")
	}
	row := P(raw)
	current := models.EstatusBorrado
	if row.IsActive() {
		current = models.EstatusActivo
	}
	changed, err := l.toggle(ctx, actor, repo, id, current, target, label(row), cascade)
	if err != nil {
		return nil, false, mapRepoError(err, notFound, "failed to change estatus")
	}
	if changed {
		if target == models.EstatusBorrado {
			row.SoftDelete(time.Now())
		} else {
			row.Recover(time.Now())
		}
	}
	return row, changed, nil
}
