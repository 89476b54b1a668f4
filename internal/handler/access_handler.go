package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/pjecz/hercules/internal/access"
	"github.com/pjecz/hercules/internal/datatable"
	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
	"github.com/pjecz/hercules/internal/service"
)

func ModuloResource(svc *service.ModuloService) Registrar {
	return &Resource[models.Modulo, dto.ModuloForm]{
		Module: access.ModuleModulos,
		Label:  "modulo",
		List: func(c *gin.Context, estatus models.Estatus, page dto.Page) ([]models.Modulo, int, error) {
			return svc.List(c.Request.Context(), dto.ModuloFilter{
				Estatus: estatus,
				Nombre:  datatable.TextFragment(c, "nombre"),
				Page:    page,
			})
		},
		Row: func(m *models.Modulo) datatable.Row {
			return datatable.Row{
				"detalle":       datatable.Link("nombre", m.Nombre, service.DetailURL(access.ModuleModulos, m.ID)),
				"nombre_corto":  m.NombreCorto,
				"icono":         m.Icono,
				"ruta":          m.Ruta,
				"en_navegacion": m.EnNavegacion,
			}
		},
		ID:      func(m *models.Modulo) int64 { return m.ID },
		Get:     svc.Get,
		Create:  root(svc.Create),
		Update:  svc.Update,
		Delete:  svc.Delete,
		Recover: svc.Recover,
	}
}

func RolResource(svc *service.RolService) Registrar {
	return &Resource[models.Rol, dto.RolForm]{
		Module: access.ModuleRoles,
		Label:  "rol",
		List: func(c *gin.Context, estatus models.Estatus, page dto.Page) ([]models.Rol, int, error) {
			return svc.List(c.Request.Context(), dto.RolFilter{
				Estatus: estatus,
				Nombre:  datatable.TextFragment(c, "nombre"),
				Page:    page,
			})
		},
		Row: func(r *models.Rol) datatable.Row {
			return datatable.Row{
				"detalle": datatable.Link("nombre", r.Nombre, service.DetailURL(access.ModuleRoles, r.ID)),
			}
		},
		ID:      func(r *models.Rol) int64 { return r.ID },
		Get:     svc.Get,
		Create:  root(svc.Create),
		Update:  svc.Update,
		Delete:  svc.Delete,
		Recover: svc.Recover,
	}
}

func PermisoResource(svc *service.PermisoService) Registrar {
	return &Resource[models.Permiso, dto.PermisoForm]{
		Module: access.ModulePermisos,
		Label:  "permiso",
		List: func(c *gin.Context, estatus models.Estatus, page dto.Page) ([]models.Permiso, int, error) {
			rolID, _ := datatable.ParentID(c, "rol_id")
			moduloID, _ := datatable.ParentID(c, "modulo_id")
			return svc.List(c.Request.Context(), dto.PermisoFilter{
				Estatus:  estatus,
				RolID:    rolID,
				ModuloID: moduloID,
				Nombre:   datatable.TextFragment(c, "nombre"),
				Page:     page,
			})
		},
		Row: func(p *models.Permiso) datatable.Row {
			return datatable.Row{
				"detalle": datatable.Link("nombre", p.Nombre, service.DetailURL(access.ModulePermisos, p.ID)),
				"rol":     datatable.Link("nombre", p.RolNombre, service.DetailURL(access.ModuleRoles, p.RolID)),
				"modulo":  datatable.Link("nombre", p.ModuloNombre, service.DetailURL(access.ModuleModulos, p.ModuloID)),
				"nivel":   p.Nivel,
			}
		},
		ID:      func(p *models.Permiso) int64 { return p.ID },
		Get:     svc.Get,
		Create:  root(svc.Create),
		Update:  svc.Update,
		Delete:  svc.Delete,
		Recover: svc.Recover,
	}
}

func UsuarioResource(svc *service.UsuarioService) Registrar {
	return &Resource[models.Usuario, dto.UsuarioForm]{
		Module: access.ModuleUsuarios,
		Label:  "usuario",
		List: func(c *gin.Context, estatus models.Estatus, page dto.Page) ([]models.Usuario, int, error) {
			autoridadID, _ := datatable.ParentID(c, "autoridad_id")
			return svc.List(c.Request.Context(), dto.UsuarioFilter{
				Estatus:        estatus,
				AutoridadID:    autoridadID,
				AutoridadClave: datatable.ClaveFragment(c, "autoridad_clave"),
				Email:          datatable.Value(c, "email"),
				Nombres:        datatable.TextFragment(c, "nombres"),
				Page:           page,
			})
		},
		Row: func(u *models.Usuario) datatable.Row {
			return datatable.Row{
				"detalle":   datatable.Link("email", u.Email, service.DetailURL(access.ModuleUsuarios, u.ID)),
				"nombre":    u.NombreCompleto(),
				"puesto":    u.Puesto,
				"autoridad": datatable.Link("clave", u.AutoridadClave, service.DetailURL(access.ModuleAutoridades, u.AutoridadID)),
			}
		},
		ID:      func(u *models.Usuario) int64 { return u.ID },
		Get:     svc.Get,
		Create:  root(svc.Create),
		Update:  svc.Update,
		Delete:  svc.Delete,
		Recover: svc.Recover,
	}
}

// UsuarioRolResource has no edicion: a link is replaced by deleting it and creating another.
func UsuarioRolResource(svc *service.UsuarioRolService) Registrar {
	return &Resource[models.UsuarioRol, dto.UsuarioRolForm]{
		Module: access.ModuleUsuariosRoles,
		Label:  "usuario-rol",
		List: func(c *gin.Context, estatus models.Estatus, page dto.Page) ([]models.UsuarioRol, int, error) {
			usuarioID, _ := datatable.ParentID(c, "usuario_id")
			rolID, _ := datatable.ParentID(c, "rol_id")
			return svc.List(c.Request.Context(), dto.UsuarioRolFilter{
				Estatus:   estatus,
				UsuarioID: usuarioID,
				RolID:     rolID,
				Page:      page,
			})
		},
		Row: func(ur *models.UsuarioRol) datatable.Row {
			return datatable.Row{
				"detalle": datatable.Link("descripcion", ur.Descripcion, service.DetailURL(access.ModuleUsuariosRoles, ur.ID)),
				"usuario": datatable.Link("email", ur.UsuarioEmail, service.DetailURL(access.ModuleUsuarios, ur.UsuarioID)),
				"rol":     datatable.Link("nombre", ur.RolNombre, service.DetailURL(access.ModuleRoles, ur.RolID)),
			}
		},
		ID:      func(ur *models.UsuarioRol) int64 { return ur.ID },
		Get:     svc.Get,
		Create:  root(svc.Create),
		Delete:  svc.Delete,
		Recover: svc.Recover,
	}
}
