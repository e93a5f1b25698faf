package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"refdata-backend/application/ports"
	"refdata-backend/application/services"
	"refdata-backend/interfaces/http/rest/handlers"
	"refdata-backend/interfaces/http/rest/middleware"
)

// Router creates and configures the HTTP router
type Router struct {
	books   *services.BookService
	history *services.HistoryService
	actors  ports.ActorResolver
	logger  *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	books *services.BookService,
	history *services.HistoryService,
	actors ports.ActorResolver,
	logger *zap.Logger,
) *Router {
	return &Router{
		books:   books,
		history: history,
		actors:  actors,
		logger:  logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", middleware.UserHeader},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ActorResolution(rt.actors, rt.logger))

		bookHandler := handlers.NewBookHandler(rt.books, rt.logger)
		r.Route("/books", func(r chi.Router) {
			r.Get("/", bookHandler.ListBooks)
			r.Post("/", bookHandler.CreateBook)
			r.Put("/", bookHandler.UpdateBook)
			r.Get("/{bookID}", bookHandler.GetBook)
			r.Delete("/{bookID}", bookHandler.DeleteBook)
		})
		r.Get("/aspects/{ownerID}/book", bookHandler.GetBookByOwner)

		r.Route("/items", func(r chi.Router) {
			r.Post("/", bookHandler.CreateItem)
			r.Get("/{itemID}", bookHandler.GetItem)
			r.Get("/{itemID}/path", bookHandler.GetItemPath)
			r.Put("/{itemID}", bookHandler.UpdateItem)
			r.Delete("/{itemID}", bookHandler.DeleteItem)
			r.Post("/{itemID}/move", bookHandler.MoveItem)
		})

		historyHandler := handlers.NewHistoryHandler(rt.history, rt.logger)
		r.Route("/history", func(r chi.Router) {
			r.Get("/", historyHandler.GetTimeline)
			r.Get("/entities/{entityID}", historyHandler.GetEntityTimeline)
			r.Get("/entities/{entityID}/steps", historyHandler.GetEntitySteps)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
