package router

import "github.com/gin-gonic/gin"

// Registry mounts feature modules under the shared /api group. Shared
// middlewares attach to the group before any module registers, so every
// module's routes see them.
type Registry struct {
	Engine *gin.Engine
	API    *gin.RouterGroup

	shared  []gin.HandlerFunc
	modules []Module
}

func NewRegistry(engine *gin.Engine) *Registry {
	return &Registry{Engine: engine, API: engine.Group("/api")}
}

func (r *Registry) Use(mw ...gin.HandlerFunc) {
	r.shared = append(r.shared, mw...)
}

func (r *Registry) Add(mods ...Module) {
	r.modules = append(r.modules, mods...)
}

// RegisterAll wires the shared middlewares and then every module, in the
// order they were added.
func (r *Registry) RegisterAll() {
	if len(r.shared) > 0 {
		r.API.Use(r.shared...)
	}
	for _, m := range r.modules {
		m.Register(r.API)
	}
}
