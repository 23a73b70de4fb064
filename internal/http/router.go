package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"docsage/internal/handlers"
	"docsage/internal/indexer"
	"docsage/internal/rag"
	"docsage/internal/storage"
	"docsage/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	RAGEngine          rag.Engine
	Pipeline           *indexer.Pipeline
	DocRepo            storage.DocumentStore
	VectorStore        vectorstore.VectorStore
	CollectionName     string
	EmbeddingModelName string
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	askHandler := handlers.NewAskHandler(deps.RAGEngine)
	documentHandler := handlers.NewDocumentHandler(deps.Pipeline, deps.DocRepo)
	healthHandler := handlers.NewHealthHandler(deps.VectorStore, deps.CollectionName)
	statsHandler := handlers.NewStatsHandler(deps.Pipeline, deps.EmbeddingModelName)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)
		r.Method(http.MethodPost, "/ask", askHandler)
		r.Method(http.MethodGet, "/stats", statsHandler)

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", documentHandler.List)
			r.Post("/", documentHandler.Upload)
			r.Delete("/{id}", documentHandler.Delete)
		})
	})

	return r
}
