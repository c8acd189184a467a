package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/urbanfIare/dmt-app/internal/handlers"
	"github.com/urbanfIare/dmt-app/internal/middleware"
	"github.com/urbanfIare/dmt-app/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	sessionHandler *handlers.StudySessionHandler,
	exceptionHandler *handlers.PhoneExceptionHandler,
	attendanceHandler *handlers.AttendanceHandler,
	restrictionHandler *handlers.RestrictionHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Exception requests and decisions (20 req/min per user)
	exceptionLimiter := middleware.NewRateLimiter(20, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── WebSocket (authenticates via ?token=) ────
		if wsHub != nil {
			r.Get("/ws", wsHub.HandleWebSocket)
		}

		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)

			// ──── Study Session Routes ────
			r.Route("/study-sessions", func(r chi.Router) {
				r.Post("/", sessionHandler.Create)
				r.Get("/", sessionHandler.List)
				r.Get("/current", sessionHandler.ListCurrent)
				r.Get("/group/{groupID}", sessionHandler.ListByGroup)
				r.Get("/group/{groupID}/upcoming", sessionHandler.ListUpcoming)
				r.Get("/{id}", sessionHandler.Get)
				r.Put("/{id}", sessionHandler.Update)
				r.Put("/{id}/status", sessionHandler.UpdateStatus)
				r.Delete("/{id}", sessionHandler.Delete)
				r.Get("/{id}/restriction-status", sessionHandler.RestrictionStatus)
				r.Get("/{id}/restriction-summary", sessionHandler.RestrictionSummary)
			})

			// ──── Phone Exception Routes ────
			r.Route("/phone-exceptions", func(r chi.Router) {
				r.Get("/", exceptionHandler.ListByStatus)
				r.Get("/active", exceptionHandler.ListActive)
				r.Get("/user/{userID}", exceptionHandler.ListByUser)
				r.Get("/session/{sessionID}", exceptionHandler.ListBySession)
				r.Get("/group/{groupID}/pending", exceptionHandler.ListPendingByGroup)
				r.Get("/{id}", exceptionHandler.Get)

				r.Group(func(r chi.Router) {
					r.Use(exceptionLimiter.Middleware)
					r.Post("/", exceptionHandler.Create)
					r.Put("/{id}", exceptionHandler.Update)
					r.Put("/{id}/decision", exceptionHandler.Decide)
					r.Delete("/{id}", exceptionHandler.Delete)
				})
			})

			// ──── Attendance Routes ────
			r.Route("/attendances", func(r chi.Router) {
				r.Post("/", attendanceHandler.Create)
				r.Get("/user/{userID}", attendanceHandler.ListByUser)
				r.Get("/session/{sessionID}", attendanceHandler.ListBySession)
				r.Get("/group/{groupID}", attendanceHandler.ListByGroup)
				r.Get("/summary/user/{userID}/group/{groupID}", attendanceHandler.Summary)
				r.Get("/{id}", attendanceHandler.Get)
				r.Put("/{id}", attendanceHandler.Update)
				r.Delete("/{id}", attendanceHandler.Delete)
			})

			// ──── Restriction Routes ────
			r.Route("/restrictions", func(r chi.Router) {
				r.Get("/me", restrictionHandler.Me)
				r.Get("/users/{userID}", restrictionHandler.ForUser)
				r.Get("/sessions/{sessionID}/users/{userID}", restrictionHandler.ForUserInSession)
			})

			r.Get("/realtime/users/{userID}/status", restrictionHandler.RealtimeStatus)
		})
	})

	return r
}
