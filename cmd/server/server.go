package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	appkafka "example.com/bookfeed/internal/broker"
	"example.com/bookfeed/internal/imagestore"
	config "example.com/bookfeed/internal/init"
	"example.com/bookfeed/internal/logger"
	"example.com/bookfeed/internal/middleware"
	"example.com/bookfeed/internal/store"
)

type Server struct {
	store       store.StoreInterface
	kafkaWriter appkafka.KafkaWriter
	images      *imagestore.ImageStore
}

var logg = logger.New()

// Run starts the HTTPS server with JWT-protected routes and graceful shutdown.
func Run(ctx context.Context, st store.StoreInterface, writer appkafka.KafkaWriter, images *imagestore.ImageStore, cfg *config.Config) {
	s := &Server{
		store:       st,
		kafkaWriter: writer,
		images:      images,
	}

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second, // prevent slowloris attacks
		WriteTimeout: 10 * time.Second,
	}

	// --- Start server in a goroutine ---
	go func() {
		logg.Info("server", "Starting HTTPS server on "+cfg.ServerAddr)
		// TLS: cert and key paths come from config and must hold valid certificates
		if err := srv.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey); err != nil && err != http.ErrServerClosed {
			logg.Error("server", "Server stopped unexpectedly", err)
		}
	}()

	// --- Graceful shutdown ---
	<-ctx.Done()
	logg.Info("server", "Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("server", "Error during server shutdown", err)
	} else {
		logg.Info("server", "Server stopped gracefully")
	}
}

// routes builds the route table. Every endpoint except registration sits
// behind the JWT middleware.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	auth := func(h http.HandlerFunc) http.Handler {
		return middleware.JWTAuth(h)
	}

	// Public endpoint for user registration (no JWT required)
	mux.Handle("POST /users", http.HandlerFunc(s.createUserHandler))

	// Users & follow graph
	mux.Handle("GET /users", auth(s.listUsersHandler))
	mux.Handle("GET /users/me", auth(s.profileHandler))
	mux.Handle("GET /users/{userId}/stats", auth(s.userStatsHandler))
	mux.Handle("PATCH /users/{userId}/follow", auth(s.toggleFollowHandler))

	// Books & likes
	mux.Handle("GET /books", auth(s.listBooksHandler))
	mux.Handle("POST /books", auth(s.createBookHandler))
	mux.Handle("GET /books/recommended", auth(s.recommendedBooksHandler))
	mux.Handle("GET /books/search", auth(s.searchBooksHandler))
	mux.Handle("GET /books/{id}", auth(s.getBookHandler))
	mux.Handle("PATCH /books/{bookId}/like", auth(s.toggleLikeHandler))
	mux.Handle("PUT /books/{bookId}/like", auth(s.likeBookHandler))
	mux.Handle("DELETE /books/{bookId}/like", auth(s.unlikeBookHandler))
	mux.Handle("GET /books/{bookId}/liked", auth(s.checkLikedHandler))

	// Feed
	mux.Handle("GET /feed", auth(s.getFeedHandler))

	return mux
}

// writeJSON encodes v with the proper content type.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// storeError maps store failures onto HTTP statuses: a missing document is
// the caller's problem, anything else is ours.
func storeError(w http.ResponseWriter, module, notFoundMsg string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		logg.Info(module, notFoundMsg)
		http.Error(w, notFoundMsg, http.StatusNotFound)
		return
	}
	logg.Error(module, "Storage operation failed", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// publishEvent sends an engagement event for the stats worker. The state
// change is already committed, so a broker failure only logs.
func (s *Server) publishEvent(module string, ev appkafka.Event) {
	if err := appkafka.WriteEvent(s.kafkaWriter, ev); err != nil {
		logg.Error(module, "Failed to publish engagement event", err)
	}
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
