package crud

import "github.com/gin-gonic/gin"

// Options describes one routed CRUD unit.
type Options struct {
	// Name labels the module in audit entries, event topics and the
	// settings file.
	Name string
	// Object is the casbin object class for the default permission check.
	Object string
	// Path is the route prefix under the API group, e.g. "/factories".
	Path string
	// Endpoints statically disables endpoints when set to false; absent
	// keys stay enabled. The settings file can still disable enabled ones
	// at runtime.
	Endpoints map[string]bool
	// Roles lists the role codes granted the object's actions when the
	// policy store is seeded.
	Roles []string
}

// Mount registers the five standard routes on rg and returns the entity
// subgroup so callers can append entity-scoped routes such as manager
// assignment.
func (ctl *Controller[T, PT, C, U]) Mount(rg *gin.RouterGroup, opts Options) *gin.RouterGroup {
	group := rg.Group(opts.Path)
	group.POST("", ctl.Create)
	group.GET("", ctl.List)
	group.GET("/:id", ctl.Get)
	group.PATCH("/:id", ctl.Update)
	group.DELETE("/:id", ctl.Delete)
	return group
}
