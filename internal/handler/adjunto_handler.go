package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pjecz/hercules/internal/access"
	"github.com/pjecz/hercules/internal/datatable"
	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/middleware"
	"github.com/pjecz/hercules/internal/models"
	"github.com/pjecz/hercules/internal/service"
	appErrors "github.com/pjecz/hercules/pkg/errors"
	"github.com/pjecz/hercules/pkg/response"
	"github.com/pjecz/hercules/pkg/storage"
)

// FileField is the multipart field carrying the uploaded file.
const FileField = "archivo"

// AdjuntoHandler serves one attachment family: the uniform listing plus
// upload, download and signed view.
type AdjuntoHandler struct {
	flow      *service.AttachmentFlow
	parent    access.Module
	parentKey string
}

// NewAdjuntoHandler builds the handler; parentKey is the filter field of the
// parent id in datatable requests, e.g. soporte_ticket_id.
func NewAdjuntoHandler(flow *service.AttachmentFlow, parent access.Module, parentKey string) *AdjuntoHandler {
	return &AdjuntoHandler{flow: flow, parent: parent, parentKey: parentKey}
}

func (h *AdjuntoHandler) module() access.Module { return h.flow.Family().Module }

// Register mounts the listing routes and the file routes under the family prefix.
func (h *AdjuntoHandler) Register(g *gin.RouterGroup) {
	res := &Resource[models.Adjunto, dto.AdjuntoForm]{
		Module:       h.module(),
		Label:        "archivo",
		ParentModule: h.parent,
		List: func(c *gin.Context, estatus models.Estatus, page dto.Page) ([]models.Adjunto, int, error) {
			parentID, _ := datatable.ParentID(c, h.parentKey)
			return h.flow.List(c.Request.Context(), dto.AdjuntoFilter{
				Estatus:     estatus,
				ParentID:    parentID,
				Descripcion: datatable.TextFragment(c, "descripcion"),
				Page:        page,
			})
		},
		Row:     h.row,
		ID:      func(a *models.Adjunto) int64 { return a.ID },
		Get:     h.flow.Get,
		Delete:  h.flow.Delete,
		Recover: h.flow.Recover,
	}
	res.Register(g)

	grp := g.Group(h.module().Route())
	insert := middleware.PermissionRequired(h.module(), access.LevelCreate)
	view := middleware.PermissionRequired(h.module(), access.LevelView)
	grp.GET("/nuevo/:parent_id", insert, res.newForm)
	grp.POST("/nuevo/:parent_id", insert, h.Upload)
	grp.GET("/descargar_archivo/:id", view, h.Download)
	grp.GET("/ver_archivo/:id", view, h.View)
}

func (h *AdjuntoHandler) row(a *models.Adjunto) datatable.Row {
	return datatable.Row{
		"detalle":        datatable.Link("descripcion", a.Descripcion, service.DetailURL(h.module(), a.ID)),
		"nombre_archivo": a.NombreArchivo,
		"estado":         a.Estado,
		"tamano":         a.Tamano,
		"creado":         a.Creado.Format("2006-01-02 15:04"),
		"descargar":      a.Stored(),
	}
}

// Upload godoc
// @Summary Upload an attachment
// @Description Reserves the row, stores the bytes and commits hashes and url
// @Tags Archivos
// @Accept multipart/form-data
// @Produce json
// @Param parent_id path int true "Parent ID"
// @Param descripcion formData string true "Descripcion"
// @Param archivo formData file true "Archivo"
// @Success 303 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /{familia}/nuevo/{parent_id} [post]
func (h *AdjuntoHandler) Upload(c *gin.Context) {
	parentID, err := pathID(c, "parent_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var form dto.AdjuntoForm
	if err := c.ShouldBind(&form); err != nil {
		response.Warning(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "formulario no valido"), form)
		return
	}

	header, err := c.FormFile(FileField)
	if err != nil {
		response.Warning(c, appErrors.Clone(appErrors.ErrEmpty, "falta el archivo"), form)
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Warning(c, appErrors.Wrap(err, appErrors.ErrUpload.Code, appErrors.ErrUpload.Status, "no se pudo leer el archivo"), form)
		return
	}
	defer file.Close()

	committed, err := h.flow.Store(c.Request.Context(), middleware.CurrentUser(c), service.AttachmentDraft{
		ParentID:      parentID,
		Descripcion:   form.Descripcion,
		TipoDocumento: datatable.Value(c, "tipo_documento"),
	}, service.Upload{Filename: header.Filename, Content: file})
	if err != nil {
		if errors.Is(err, appErrors.ErrFinalized) {
			warn(c, service.DetailURL(h.parent, parentID), err)
			return
		}
		response.Fail(c, err, form)
		return
	}
	response.Success(c, service.DetailURL(h.module(), committed.ID), "Nuevo archivo "+header.Filename)
}

// Download streams the stored bytes as an attachment.
func (h *AdjuntoHandler) Download(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	a, data, contentType, err := h.flow.Open(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.NombreArchivo))
	c.Data(http.StatusOK, contentType, data)
}

// View redirects to a short lived signed URL of the file.
func (h *AdjuntoHandler) View(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	url, err := h.flow.SignedURL(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

// SignedHandler serves the signed links issued by local buckets.
type SignedHandler struct {
	registry *storage.Registry
}

func NewSignedHandler(registry *storage.Registry) *SignedHandler {
	return &SignedHandler{registry: registry}
}

func (h *SignedHandler) Serve(c *gin.Context) {
	bucket, key, err := h.registry.ResolveSigned(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	data, err := storage.Download(c.Request.Context(), bucket, key)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, storage.ContentTypeFor(storage.Extension(key)), data)
}
