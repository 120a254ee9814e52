package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"mockmate-backend/internal/handlers"
	"mockmate-backend/internal/middleware"
	"mockmate-backend/internal/websocket"
)

type Handlers struct {
	Questions *handlers.QuestionHandler
	Groups    *handlers.GroupHandler
	Progress  *handlers.ProgressHandler
	Credits   *handlers.CreditHandler
	AI        *handlers.AIHandler
	Fields    *handlers.FieldHandler
	Stats     *handlers.StatsHandler
}

type Options struct {
	FrontendURL         string
	AIRequestsPerMinute int
}

// New wires every route. The returned limiter must be stopped on shutdown.
func New(jwtAuth *middleware.JWTAuth, h Handlers, wsHub *websocket.Hub, opts Options) (*chi.Mux, *middleware.RateLimiter) {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.CORS(opts.FrontendURL))

	aiLimiter := middleware.NewRateLimiter(opts.AIRequestsPerMinute, time.Minute)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/fields", h.Fields.List) // Public

		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)

			// ──── Credits ────
			r.Route("/credits", func(r chi.Router) {
				r.Get("/", h.Credits.Get)
				r.Post("/deduct", h.Credits.Deduct)
				r.Post("/refresh", h.Credits.Refresh)
			})

			// ──── AI ────
			r.Route("/ai", func(r chi.Router) {
				r.Use(aiLimiter.Middleware)
				r.Post("/generate-questions", h.AI.GenerateQuestions)
				r.Post("/evaluate-answer", h.AI.EvaluateAnswer)
				r.Post("/transcribe", h.AI.Transcribe)
			})

			// ──── Questions ────
			r.Route("/questions", func(r chi.Router) {
				r.Post("/", h.Questions.Create)
				r.Get("/", h.Questions.List)
				r.Get("/practice", h.Questions.Practice)
				r.Get("/{id}", h.Questions.Get)
				r.Put("/{id}", h.Questions.Update)
				r.Delete("/{id}", h.Questions.Delete)
				r.Put("/{id}/visibility", h.Questions.SetVisibility)
				r.With(aiLimiter.Middleware).Post("/{id}/attempts", h.Questions.SubmitAttempt)
				r.Get("/{id}/attempts", h.Questions.ListAttempts)
				r.Post("/{id}/notes", h.Questions.AddNote)
				r.Delete("/{id}/notes/{noteId}", h.Questions.DeleteNote)
			})

			// ──── Groups ────
			r.Route("/groups", func(r chi.Router) {
				r.Post("/", h.Groups.Create)
				r.Get("/", h.Groups.List)
				r.Get("/{id}", h.Groups.Get)
				r.Put("/{id}", h.Groups.Rename)
				r.Put("/{id}/progress", h.Groups.UpdateProgress)
				r.Delete("/{id}", h.Groups.Delete)
			})

			// ──── Progress ────
			r.Route("/progress", func(r chi.Router) {
				r.Put("/", h.Progress.Save)
				r.Get("/", h.Progress.Load)
				r.Get("/all", h.Progress.List)
				r.Delete("/{id}", h.Progress.Delete)
			})

			r.Get("/stats", h.Stats.Get)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r, aiLimiter
}
