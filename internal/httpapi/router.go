package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"videogen/internal/infra/geoip"
	"videogen/internal/middleware"
)

// NewRouter assembles the HTTP surface. The geo resolver may be nil; the
// locale hint is then simply absent.
func NewRouter(app *App, geo geoip.CountryResolver) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(*app.Logger))
	r.Use(middleware.Locale(geo))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/generate", app.handleGenerate)
		r.Post("/generate/regenerate", app.handleRegenerate)

		r.Post("/jobs", app.handleSubmitJob)
		r.Get("/jobs", app.handleListJobs)
		r.Get("/jobs/{id}", app.handleGetJob)

		r.Get("/history", app.handleListHistory)
		r.Delete("/history/{id}", app.handleDeleteHistory)
		r.Get("/history/search", app.handleSearchHistory)
		r.Get("/history/export.csv", app.handleExportCSV)

		r.Get("/healthz", app.handleHealthz)
	})

	if app.Videos != nil {
		fileServer := http.StripPrefix("/videos/", http.FileServer(http.Dir(app.Videos.BasePath())))
		r.Get("/videos/*", func(w http.ResponseWriter, req *http.Request) {
			fileServer.ServeHTTP(w, req)
		})
	}

	return r
}
