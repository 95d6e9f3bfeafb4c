package webservices

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/hocman2/funmap/funmap"
	"github.com/hocman2/funmap/funmaprenderer"
	"github.com/hocman2/funmap/viewer"
	"github.com/jamesrr39/goutil/logpkg"
)

const (
	APIPath   = "/api"
	AdminPath = "/admin"
)

type RouterOptions struct {
	// Middlewares run before every route, in order
	Middlewares []func(http.Handler) http.Handler
	// TracingMiddleware is required, chunk previews are traced
	TracingMiddleware func(http.Handler) http.Handler
	ShouldProfile     bool
}

// NewRouter mounts the API services under /api and the admin page under /admin.
func NewRouter(logger *logpkg.Logger, session *viewer.Session, projection *funmap.Projection, renderer funmaprenderer.ChunkRenderer, options RouterOptions) chi.Router {
	router := chi.NewRouter()
	for _, middleware := range options.Middlewares {
		router.Use(middleware)
	}

	router.Route(APIPath, func(r chi.Router) {
		r.Mount("/info", NewInfoService(logger, session, projection))
		r.Mount("/focus", NewFocusService(logger, session, projection))
		r.Group(func(r chi.Router) {
			r.Use(options.TracingMiddleware)
			r.Mount("/chunks", NewChunkService(logger, session, renderer, options.ShouldProfile))
		})
		r.Mount("/events", NewEventsService(logger, session))
	})
	router.Mount(AdminPath, NewAdminService(logger, session, APIPath))

	return router
}
