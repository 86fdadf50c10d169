package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/edytjahyadi/AI-Fashion/internal/http/handlers"
	appmw "github.com/edytjahyadi/AI-Fashion/internal/middleware"
)

func NewRouter(app *handlers.App) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP, chimw.Recoverer)
	r.Use(appmw.RequestID)
	r.Use(appmw.Logger(app.Logger))
	r.Use(appmw.CORS(app.Config.CORSAllowedOrigins))
	r.Use(appmw.RateLimit(app.Config.RateLimitPerMin, time.Minute))

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", app.SessionCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", app.SessionGet)
			r.Post("/person", app.UploadPerson)
			r.Post("/garment", app.UploadGarment)
			r.Post("/generate", app.Generate)
			r.Post("/reset", app.Reset)
			r.Get("/download", app.DownloadAll)
			r.Route("/slots/{index}", func(r chi.Router) {
				r.Post("/regenerate", app.Regenerate)
				r.Get("/download", app.DownloadSlot)
			})
		})
	})

	return r
}
