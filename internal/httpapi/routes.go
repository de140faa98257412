package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/pubquiz-backend/internal/auth"
	"github.com/DoyleJ11/pubquiz-backend/internal/quiz"
	"github.com/DoyleJ11/pubquiz-backend/internal/registry"
	"github.com/DoyleJ11/pubquiz-backend/internal/store"
	"github.com/DoyleJ11/pubquiz-backend/internal/ws"
)

// API bundles the dependencies the HTTP surface needs.
type API struct {
	Store    store.Store
	Registry *registry.Registry
	Director *quiz.Director
	Ledger   *quiz.Ledger
	Auth     *auth.TokenIssuer
	Log      *zap.Logger
}

// SetupRoutes builds the router with the API's dependencies injected.
func SetupRoutes(a *API) http.Handler {
	r := chi.NewRouter()

	r.Post("/login", a.Login)
	r.Put("/teams/profile", a.UpdateTeamProfile)

	r.Route("/api/rooms", func(r chi.Router) {
		r.Get("/", a.ListRooms)
		r.Post("/", a.CreateRoom)
		r.Get("/{roomID}", a.GetRoom)
		r.Put("/{roomID}", a.UpdateRoom)
		r.Delete("/{roomID}", a.DeleteRoom)
	})

	r.Route("/questions", func(r chi.Router) {
		r.Get("/", a.ListQuestions)
		r.Post("/", a.CreateQuestion)
		r.Get("/{questionID}", a.GetQuestion)
		r.Put("/{questionID}", a.UpdateQuestion)
		r.Delete("/{questionID}", a.DeleteQuestion)
		r.Patch("/{questionID}/activate", a.ActivateQuestion)
		r.Patch("/{questionID}/deactivate", a.DeactivateQuestion)
	})

	r.Get("/healthz", Healthz)
	r.Get("/ws/{roomID}/{teamID}", ws.Handler(ws.Deps{
		Store:    a.Store,
		Registry: a.Registry,
		Director: a.Director,
		Ledger:   a.Ledger,
		Auth:     a.Auth,
		Log:      a.Log,
	}))
	return r
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
