package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pjecz/hercules/internal/models"
	appErrors "github.com/pjecz/hercules/pkg/errors"
)

// Names of the registered background commands.
const (
	ComandoProbarEndpoints   = "exh_externos.probar_endpoints"
	ComandoEnviarExhorto     = "exh_exhortos.enviar"
	ComandoExportarBitacoras = "bitacoras.exportar"
	ComandoDepurarAdjuntos   = "adjuntos.depurar"
)

type endpointProber interface {
	ProbeAll(ctx context.Context, id int64, progress func(percent int, msg string)) (ProbeSummary, error)
}

type exhortoSender interface {
	Enviar(ctx context.Context, actor *models.CurrentUser, id int64, progress func(percent int, msg string)) (string, error)
}

type bitacoraExporter interface {
	ExportBitacoras(ctx context.Context, tareaID string, params models.TareaParametros, progress func(percent int, msg string)) (*ExportResult, error)
}

type adjuntoSweeper interface {
	Family() AttachmentFamily
	Sweep(ctx context.Context, maxAge time.Duration) (int, error)
}

func idParam(tc *TaskContext, key string, required bool) (int64, error) {
	raw := strings.TrimSpace(tc.Param(key))
	if raw == "" {
		if required {
			return 0, appErrors.Clone(appErrors.ErrNotValidParam, "falta el parametro "+key)
		}
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrNotValidParam, key+" no valido")
	}
	return id, nil
}

// ProbarEndpointsCommand refreshes the materias of one peer (exh_externo_id) or of all active peers.
func ProbarEndpointsCommand(prober endpointProber) TaskCommand {
	return func(ctx context.Context, tc *TaskContext) (TaskResult, error) {
		id, err := idParam(tc, "exh_externo_id", false)
		if err != nil {
			return TaskResult{}, err
		}
		summary, err := prober.ProbeAll(ctx, id, tc.Progress)
		if err != nil {
			return TaskResult{}, err
		}
		return TaskResult{Mensaje: summary.Message()}, nil
	}
}

// EnviarExhortoCommand sends exh_exhorto_id to its peer as the launching user.
func EnviarExhortoCommand(sender exhortoSender) TaskCommand {
	return func(ctx context.Context, tc *TaskContext) (TaskResult, error) {
		id, err := idParam(tc, "exh_exhorto_id", true)
		if err != nil {
			return TaskResult{}, err
		}
		msg, err := sender.Enviar(ctx, tc.Actor, id, tc.Progress)
		if err != nil {
			return TaskResult{}, err
		}
		return TaskResult{Mensaje: msg}, nil
	}
}

func ExportarBitacorasCommand(exporter bitacoraExporter) TaskCommand {
	return func(ctx context.Context, tc *TaskContext) (TaskResult, error) {
		res, err := exporter.ExportBitacoras(ctx, tc.Tarea.ID, tc.Tarea.Parametros, tc.Progress)
		if err != nil {
			return TaskResult{}, err
		}
		return TaskResult{
			Mensaje: fmt.Sprintf("Se exportaron %d bitacoras.", res.Rows),
			Archivo: res.Filename,
			URL:     res.URL,
		}, nil
	}
}

// DepurarAdjuntosCommand sweeps stale reservations of every family. The
// parameter horas overrides maxAge.
func DepurarAdjuntosCommand(maxAge time.Duration, sweepers ...adjuntoSweeper) TaskCommand {
	return func(ctx context.Context, tc *TaskContext) (TaskResult, error) {
		age := maxAge
		if raw := tc.Param("horas"); raw != "" {
			hours, err := strconv.Atoi(raw)
			if err != nil || hours <= 0 {
				return TaskResult{}, appErrors.Clone(appErrors.ErrNotValidParam, "horas no valido")
			}
			age = time.Duration(hours) * time.Hour
		}
		parts := make([]string, 0, len(sweepers))
		total := 0
		for i, sw := range sweepers {
			n, err := sw.Sweep(ctx, age)
			if err != nil {
				return TaskResult{}, err
			}
			total += n
			parts = append(parts, fmt.Sprintf("%s: %d", sw.Family().Module, n))
			tc.Progress((i+1)*100/len(sweepers), "Depurado "+string(sw.Family().Module))
		}
		return TaskResult{Mensaje: fmt.Sprintf("Se depuraron %d adjuntos (%s).", total, strings.Join(parts, ", "))}, nil
	}
}
