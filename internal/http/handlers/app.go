package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/edytjahyadi/AI-Fashion/internal/domain"
	"github.com/edytjahyadi/AI-Fashion/internal/infra"
	"github.com/edytjahyadi/AI-Fashion/internal/session"
)

// App bundles the dependencies shared by all handlers.
type App struct {
	Config       *infra.Config
	Logger       zerolog.Logger
	Sessions     *session.Store
	Orchestrator *session.Orchestrator
}

// NewApp constructs the handler container.
func NewApp(cfg *infra.Config, logger zerolog.Logger, store *session.Store, orch *session.Orchestrator) *App {
	return &App{Config: cfg, Logger: logger, Sessions: store, Orchestrator: orch}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"code": code, "message": message})
}

// domainError maps the error taxonomy onto HTTP responses. Every failure is
// slot- or request-local; nothing here is fatal to the application.
func (a *App) domainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		a.error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrSlotPending):
		a.error(w, http.StatusConflict, "slot_pending", err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		a.error(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, domain.ErrSlotIndex):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrInvalidImageEncoding):
		a.error(w, http.StatusUnprocessableEntity, "invalid_image", err.Error())
	default:
		a.error(w, http.StatusInternalServerError, "internal", err.Error())
	}
}
