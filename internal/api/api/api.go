package api

import (
	"html/template"

	"github.com/gin-contrib/cors"
	"github.com/wb-go/wbf/ginext"

	"donationBoard/cmd/middleware"
	"donationBoard/internal/auth"
	"donationBoard/internal/service"
)

type Routers struct {
	Service  service.Service
	Gate     *auth.Gate
	Template *template.Template
	Mode     string
}

func NewRouters(r *Routers) *ginext.Engine {
	mode := r.Mode
	if mode == "" {
		mode = "release"
	}
	app := ginext.New(mode)

	app.Use(middleware.RequestID())
	app.Use(middleware.LoggingMiddleware())
	app.Use(cors.Default())
	if r.Template != nil {
		app.SetHTMLTemplate(r.Template)
	}

	app.GET("/", r.Service.Page)

	apiGroup := app.Group("/v1")

	apiGroup.GET("/events", r.Service.ListEvents)
	apiGroup.POST("/events", r.Service.CreateEvent)
	apiGroup.GET("/events/export", r.Service.Export)
	apiGroup.POST("/events/import", r.Service.Import)
	apiGroup.GET("/events/:id", r.Service.GetEvent)
	apiGroup.POST("/events/:id/donations", r.Service.Donate)
	apiGroup.GET("/stats", r.Service.Stats)

	admin := apiGroup.Group("", r.Gate.RequireAdmin())
	admin.PUT("/events/:id", r.Service.EditEvent)
	admin.DELETE("/events/:id", r.Service.DeleteEvent)

	apiGroup.POST("/admin/login", r.Service.AdminLogin)
	apiGroup.POST("/admin/logout", r.Service.AdminLogout)
	apiGroup.GET("/admin", r.Service.AdminStatus)

	return app
}
