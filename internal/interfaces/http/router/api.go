package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/erp/ordersync/internal/infrastructure/auth"
	"github.com/erp/ordersync/internal/interfaces/http/handler"
	"github.com/erp/ordersync/internal/interfaces/http/middleware"

	_ "github.com/erp/ordersync/docs"
)

// APIHandlers are the handlers served by the order sync API
type APIHandlers struct {
	Notifications *handler.NotificationHandler
	Orders        *handler.OrderHandler
	Sync          *handler.SyncHandler
	System        *handler.SystemHandler
}

// RegisterAPI mounts every route. Notification intake is unauthenticated
// since marketplaces push without operator credentials; order reads and
// manual sync require a bearer token carrying the matching scope.
func RegisterAPI(r *Router, h APIHandlers, authn gin.HandlerFunc) {
	r.engine.GET("/health", h.System.Health)

	channels := Routes{
		Prefix: "/channels/:channel_id",
		Endpoints: []Endpoint{
			{Method: http.MethodPost, Path: "/notifications", Handler: h.Notifications.Receive},
		},
		Children: []Routes{{
			Middleware: []gin.HandlerFunc{authn, middleware.RequireScope(auth.ScopeSyncTrigger)},
			Endpoints: []Endpoint{
				{Method: http.MethodPost, Path: "/sync", Handler: h.Sync.TriggerSync},
			},
		}},
	}

	orders := Routes{
		Prefix:     "/orders/:order_id",
		Middleware: []gin.HandlerFunc{authn, middleware.RequireScope(auth.ScopeOrdersRead)},
		Endpoints: []Endpoint{
			{Method: http.MethodGet, Path: "", Handler: h.Orders.GetOrder},
			{Method: http.MethodGet, Path: "/audit", Handler: h.Orders.GetAudit},
		},
	}

	system := Routes{
		Prefix: "/system",
		Endpoints: []Endpoint{
			{Method: http.MethodGet, Path: "/info", Handler: h.System.GetSystemInfo},
		},
	}

	r.Add(channels, orders, system).Mount()
}

// RegisterSwagger serves the OpenAPI UI under /swagger.
func RegisterSwagger(engine *gin.Engine) {
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
