package server

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/kbukum/usersvc/component"
)

const componentName = "http-server"

var (
	_ component.Component     = (*ServerComponent)(nil)
	_ component.Describable   = (*ServerComponent)(nil)
	_ component.RouteProvider = (*ServerComponent)(nil)
)

// probe and info routes are listed after the API and marked "(system)".
var systemPaths = []string{"/health", "/alive", "/ready", "/info"}

var methodRank = []string{"GET", "POST", "PUT", "PATCH", "DELETE"}

// ServerComponent runs a Server under a component.Registry. It is
// healthy while the listener is bound.
type ServerComponent struct {
	server *Server
}

func NewComponent(s *Server) *ServerComponent { return &ServerComponent{server: s} }

func (sc *ServerComponent) Name() string                    { return componentName }
func (sc *ServerComponent) Start(ctx context.Context) error { return sc.server.Start(ctx) }
func (sc *ServerComponent) Stop(ctx context.Context) error  { return sc.server.Stop(ctx) }

func (sc *ServerComponent) Health(context.Context) component.Health {
	h := component.Health{Name: componentName, Status: component.StatusHealthy}
	if !sc.server.Listening() {
		h.Status, h.Message = component.StatusUnhealthy, "HTTP server not listening"
	}
	return h
}

func (sc *ServerComponent) Describe() component.Description {
	return component.Description{
		Name:    "HTTP Server",
		Type:    "server",
		Details: sc.server.Addr(),
		Port:    sc.server.config.Port,
	}
}

// Routes lists API routes sorted by path then method, followed by the
// system routes.
func (sc *ServerComponent) Routes() []component.Route {
	routes := make([]component.Route, 0)
	for _, r := range sc.server.engine.Routes() {
		handler := formatHandlerName(r.Handler)
		if slices.Contains(systemPaths, r.Path) {
			handler += " (system)"
		}
		routes = append(routes, component.Route{Method: r.Method, Path: r.Path, Handler: handler})
	}
	slices.SortFunc(routes, func(a, b component.Route) int {
		return cmp.Or(
			cmp.Compare(isSystem(a.Path), isSystem(b.Path)),
			cmp.Compare(a.Path, b.Path),
			cmp.Compare(rank(a.Method), rank(b.Method)),
		)
	})
	return routes
}

func isSystem(path string) int {
	if slices.Contains(systemPaths, path) {
		return 1
	}
	return 0
}

func rank(method string) int {
	if i := slices.Index(methodRank, method); i >= 0 {
		return i
	}
	return len(methodRank)
}

// formatHandlerName shortens Gin's handler names for the summary:
// "github.com/kbukum/usersvc/api.(*App).listUsers-fm" becomes
// "App.listUsers" and closures such as "endpoint.Health.func1" become
// "health".
func formatHandlerName(full string) string {
	name := strings.TrimSuffix(full, "-fm")
	name = name[strings.LastIndex(name, "/")+1:]
	name = strings.NewReplacer("(*", "", ")", "").Replace(name)

	if strings.Contains(name, ".func") {
		parts := strings.Split(name, ".")
		for i := len(parts) - 1; i >= 0; i-- {
			if !strings.HasPrefix(parts[i], "func") {
				return strings.ToLower(parts[i])
			}
		}
	}
	if pkg, rest, ok := strings.Cut(name, "."); ok && rest != "" && strings.ToLower(pkg) == pkg {
		return rest
	}
	return name
}
