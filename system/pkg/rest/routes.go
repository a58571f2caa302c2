package rest

import "github.com/gin-gonic/gin"

type HttpMethod int

const (
	GET HttpMethod = iota
	POST
	PUT
	PATCH
	DELETE
)

func (m HttpMethod) String() string {
	switch m {
	case GET:
		return "GET"
	case POST:
		return "POST"
	case PUT:
		return "PUT"
	case PATCH:
		return "PATCH"
	case DELETE:
		return "DELETE"
	}
	return "UNKNOWN"
}

type Route struct {
	Method      HttpMethod
	Path        string
	HandlerFunc gin.HandlerFunc
	Group       string
}

func NewRoute(method HttpMethod, group, path string, handler gin.HandlerFunc) Route {
	return Route{
		Method:      method,
		Path:        path,
		Group:       group,
		HandlerFunc: handler,
	}
}

// Register mounts routes and middleware on engine, one router group per
// distinct Group. Middleware with group "*" applies to the whole engine.
func Register(engine *gin.Engine, middleware []Middleware, routes []Route) {
	for _, m := range middleware {
		if m.Group == "*" {
			engine.Use(m.Handler)
		}
	}

	groups := map[string]*gin.RouterGroup{}
	for _, r := range routes {
		group, exists := groups[r.Group]
		if !exists {
			group = engine.Group("/" + r.Group)
			for _, m := range middleware {
				if m.Group == r.Group {
					group.Use(m.Handler)
				}
			}
			groups[r.Group] = group
		}

		group.Handle(r.Method.String(), r.Path, r.HandlerFunc)
	}
}
