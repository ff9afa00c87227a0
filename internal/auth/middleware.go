package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/ginext"

	"donationBoard/internal/dto"
)

// RequireAdmin stops requests that do not carry a valid admin token.
func (g *Gate) RequireAdmin() gin.HandlerFunc {
	return func(c *ginext.Context) {
		if !g.IsAdmin(c) {
			g.log.Warn().Str("path", c.Request.URL.Path).Str("ip", c.ClientIP()).Msg("admin-only request without admin token")
			dto.AdminRequiredError(c)
			return
		}
		c.Next()
	}
}
