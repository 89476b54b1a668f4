package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/pjecz/hercules/internal/access"
	"github.com/pjecz/hercules/pkg/response"
)

// PermissionRequired lets the request through only when the current user holds at
// least level on module. The handler never runs otherwise.
func PermissionRequired(module access.Module, level access.Level) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.Can(module, level) {
			response.Forbidden(c)
			return
		}
		c.Next()
	}
}

// AdminRequired guards the destructive routes of a module.
func AdminRequired(module access.Module) gin.HandlerFunc {
	return PermissionRequired(module, access.LevelAdmin)
}
