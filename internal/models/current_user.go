package models

import "github.com/pjecz/hercules/internal/access"

// CurrentUser is the request-bound view of the authenticated user.
type CurrentUser struct {
	ID           int64
	Email        string
	Nombre       string
	AutoridadID  int64
	Capabilities access.CapabilitySet
}

func (u *CurrentUser) Roles() []string {
	if u == nil {
		return nil
	}
	return u.Capabilities.Roles()
}

// Can reports whether the user holds at least level on module.
func (u *CurrentUser) Can(module access.Module, level access.Level) bool {
	return u != nil && u.Capabilities.Has(module, level)
}
