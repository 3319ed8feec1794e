package api

import (
	"github.com/gin-contrib/cors"
	"github.com/wb-go/wbf/ginext"

	"github.com/Luhive/luhive-mvp-sub000/cmd/middleware"
	"github.com/Luhive/luhive-mvp-sub000/internal/service"
)

type Routers struct {
	Service service.Service
}

func NewRouters(r *Routers) *ginext.Engine {
	app := ginext.New("release")

	app.Use(middleware.LoggingMiddleware())
	app.Use(cors.Default())
	apiGroup := app.Group("/v1")

	apiGroup.POST("/communities", r.Service.CreateCommunity)
	apiGroup.GET("/communities/:slug", r.Service.GetCommunity)
	apiGroup.GET("/communities/:slug/dashboard", r.Service.GetDashboard)
	apiGroup.POST("/communities/:slug/events", r.Service.CreateEvent)

	apiGroup.GET("/events/:id", r.Service.GetEvent)
	apiGroup.PUT("/events/:id", r.Service.UpdateEvent)
	apiGroup.POST("/events/:id/publish", r.Service.PublishEvent)
	apiGroup.POST("/events/:id/unpublish", r.Service.UnpublishEvent)
	apiGroup.POST("/events/:id/cancel", r.Service.CancelEvent)

	apiGroup.POST("/events/:id/register", r.Service.Register)
	apiGroup.DELETE("/events/:id/register", r.Service.Unregister)
	apiGroup.POST("/events/:id/subscribe", r.Service.Subscribe)
	apiGroup.GET("/events/:id/attendees", r.Service.GetAttendees)
	apiGroup.POST("/events/:id/registrations/:regID/review", r.Service.ReviewRegistration)

	apiGroup.GET("/registrations/verify", r.Service.VerifyRegistration)

	return app
}
