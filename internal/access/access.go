// Package access holds the module catalog, permission levels and the
// per-user capability set consulted before every handler.
package access

import (
	"encoding/json"
	"sort"
	"strings"
)

// Module identifies a protected area of the platform. Its value is the
// uppercase Modulo.nombre stored in the database.
type Module string

const (
	ModuleAutoridades                   Module = "AUTORIDADES"
	ModuleBitacoras                     Module = "BITACORAS"
	ModuleDistritos                     Module = "DISTRITOS"
	ModuleExhExhortos                   Module = "EXH EXHORTOS"
	ModuleExhExhortosActualizaciones    Module = "EXH EXHORTOS ACTUALIZACIONES"
	ModuleExhExhortosArchivos           Module = "EXH EXHORTOS ARCHIVOS"
	ModuleExhExhortosPartes             Module = "EXH EXHORTOS PARTES"
	ModuleExhExhortosPromociones        Module = "EXH EXHORTOS PROMOCIONES"
	ModuleExhExhortosRespuestas         Module = "EXH EXHORTOS RESPUESTAS"
	ModuleExhExhortosRespuestasArchivos Module = "EXH EXHORTOS RESPUESTAS ARCHIVOS"
	ModuleExhExhortosRespuestasVideos   Module = "EXH EXHORTOS RESPUESTAS VIDEOS"
	ModuleExhExternos                   Module = "EXH EXTERNOS"
	ModuleModulos                       Module = "MODULOS"
	ModulePermisos                      Module = "PERMISOS"
	ModuleRoles                         Module = "ROLES"
	ModuleSoportesAdjuntos              Module = "SOPORTES ADJUNTOS"
	ModuleSoportesTickets               Module = "SOPORTES TICKETS"
	ModuleTareas                        Module = "TAREAS"
	ModuleUsuarios                      Module = "USUARIOS"
	ModuleUsuariosRoles                 Module = "USUARIOS ROLES"
)

// Modules lists every module known to the code, in catalog order.
var Modules = []Module{
	ModuleAutoridades,
	ModuleBitacoras,
	ModuleDistritos,
	ModuleExhExhortos,
	ModuleExhExhortosActualizaciones,
	ModuleExhExhortosArchivos,
	ModuleExhExhortosPartes,
	ModuleExhExhortosPromociones,
	ModuleExhExhortosRespuestas,
	ModuleExhExhortosRespuestasArchivos,
	ModuleExhExhortosRespuestasVideos,
	ModuleExhExternos,
	ModuleModulos,
	ModulePermisos,
	ModuleRoles,
	ModuleSoportesAdjuntos,
	ModuleSoportesTickets,
	ModuleTareas,
	ModuleUsuarios,
	ModuleUsuariosRoles,
}

// ParseModule maps a stored module name to the enum. Unknown names report false.
func ParseModule(name string) (Module, bool) {
	candidate := Module(strings.ToUpper(strings.TrimSpace(name)))
	for _, m := range Modules {
		if m == candidate {
			return m, true
		}
	}
	return "", false
}

func (m Module) String() string { return string(m) }

// Route is the URL prefix every handler of the module is mounted under.
func (m Module) Route() string {
	return "/" + strings.ReplaceAll(strings.ToLower(string(m)), " ", "_")
}

// Owns reports whether url is the module route or a path below it.
func (m Module) Owns(url string) bool {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	route := m.Route()
	return url == route || strings.HasPrefix(url, route+"/")
}

// ModuleForURL finds the module whose route owns url.
func ModuleForURL(url string) (Module, bool) {
	for _, m := range Modules {
		if m.Owns(url) {
			return m, true
		}
	}
	return "", false
}

// Level is the permission level granted on a module.
type Level int

const (
	LevelView   Level = 1
	LevelModify Level = 2
	LevelCreate Level = 3
	LevelAdmin  Level = 4
)

func (l Level) Valid() bool { return l >= LevelView && l <= LevelAdmin }

func (l Level) String() string {
	switch l {
	case LevelView:
		return "VER"
	case LevelModify:
		return "MODIFICAR"
	case LevelCreate:
		return "CREAR"
	case LevelAdmin:
		return "ADMINISTRAR"
	default:
		return "NINGUNO"
	}
}

// Grant is one active Permiso as seen by a user: module plus level.
type Grant struct {
	Module Module
	Level  Level
}

// CapabilitySet is the effective access of one user. The level on a module
// is the maximum among the user's active roles.
type CapabilitySet struct {
	levels map[Module]Level
	roles  []string
}

// NewCapabilitySet folds the grants of every role into one set.
func NewCapabilitySet(roles []string, grants []Grant) CapabilitySet {
	set := CapabilitySet{levels: make(map[Module]Level, len(grants))}
	for _, g := range grants {
		if !g.Level.Valid() || g.Module == "" {
			continue
		}
		if g.Level > set.levels[g.Module] {
			set.levels[g.Module] = g.Level
		}
	}
	seen := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		if _, ok := seen[r]; ok || r == "" {
			continue
		}
		seen[r] = struct{}{}
		set.roles = append(set.roles, r)
	}
	sort.Strings(set.roles)
	return set
}

// Level returns the effective level on m, zero when there is none.
func (s CapabilitySet) Level(m Module) Level { return s.levels[m] }

// Has reports whether the user holds at least level on m.
func (s CapabilitySet) Has(m Module, level Level) bool {
	return level.Valid() && s.levels[m] >= level
}

func (s CapabilitySet) CanView(m Module) bool   { return s.Has(m, LevelView) }
func (s CapabilitySet) CanEdit(m Module) bool   { return s.Has(m, LevelModify) }
func (s CapabilitySet) CanInsert(m Module) bool { return s.Has(m, LevelCreate) }
func (s CapabilitySet) CanAdmin(m Module) bool  { return s.Has(m, LevelAdmin) }

// Roles returns the names of the user's active roles, sorted.
func (s CapabilitySet) Roles() []string {
	out := make([]string, len(s.roles))
	copy(out, s.roles)
	return out
}

// HasRole reports whether the user holds the named role.
func (s CapabilitySet) HasRole(name string) bool {
	for _, r := range s.roles {
		if strings.EqualFold(r, name) {
			return true
		}
	}
	return false
}

// Modules returns the modules the user can view, for navigation.
func (s CapabilitySet) Modules() []Module {
	out := make([]Module, 0, len(s.levels))
	for m := range s.levels {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Summary exposes the four predicates of one module to the page layer.
type Summary struct {
	View   bool `json:"can_view"`
	Edit   bool `json:"can_edit"`
	Insert bool `json:"can_insert"`
	Admin  bool `json:"can_admin"`
}

func (s CapabilitySet) Summary(m Module) Summary {
	return Summary{View: s.CanView(m), Edit: s.CanEdit(m), Insert: s.CanInsert(m), Admin: s.CanAdmin(m)}
}

type snapshot struct {
	Roles  []string       `json:"roles"`
	Levels map[string]int `json:"levels"`
}

func (s CapabilitySet) MarshalJSON() ([]byte, error) {
	snap := snapshot{Roles: s.Roles(), Levels: make(map[string]int, len(s.levels))}
	for m, l := range s.levels {
		snap.Levels[string(m)] = int(l)
	}
	return json.Marshal(snap)
}

func (s *CapabilitySet) UnmarshalJSON(data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	grants := make([]Grant, 0, len(snap.Levels))
	for name, level := range snap.Levels {
		grants = append(grants, Grant{Module: Module(name), Level: Level(level)})
	}
	*s = NewCapabilitySet(snap.Roles, grants)
	return nil
}
