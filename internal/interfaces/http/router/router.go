package router

import (
	"github.com/gin-gonic/gin"
)

// Module is a set of routes mounted under the versioned API group.
type Module interface {
	Mount(api *gin.RouterGroup)
}

// Router mounts modules under /api/<version>.
type Router struct {
	engine  *gin.Engine
	version string
	modules []Module
}

// Option configures a Router.
type Option func(*Router)

// WithAPIVersion sets the version segment of the API prefix. Default "v1".
func WithAPIVersion(version string) Option {
	return func(r *Router) { r.version = version }
}

// NewRouter creates a Router on engine.
func NewRouter(engine *gin.Engine, opts ...Option) *Router {
	r := &Router{engine: engine, version: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add queues modules for Mount.
func (r *Router) Add(modules ...Module) *Router {
	r.modules = append(r.modules, modules...)
	return r
}

// Mount registers every queued module on the engine.
func (r *Router) Mount() {
	api := r.engine.Group("/api/" + r.version)
	for _, m := range r.modules {
		m.Mount(api)
	}
}

// Endpoint is one method and path bound to a handler.
type Endpoint struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
}

// Routes is a route table sharing a prefix and middleware. Children inherit
// both.
type Routes struct {
	Prefix     string
	Middleware []gin.HandlerFunc
	Endpoints  []Endpoint
	Children   []Routes
}

// Mount implements Module.
func (rt Routes) Mount(parent *gin.RouterGroup) {
	group := parent.Group(rt.Prefix, rt.Middleware...)
	for _, e := range rt.Endpoints {
		group.Handle(e.Method, e.Path, e.Handler)
	}
	for _, child := range rt.Children {
		child.Mount(group)
	}
}
