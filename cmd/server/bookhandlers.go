package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	appkafka "example.com/bookfeed/internal/broker"
	"example.com/bookfeed/internal/imagestore"
	"example.com/bookfeed/internal/middleware"
	"example.com/bookfeed/internal/models"
	"github.com/google/uuid"
)

// --- HTTP Handlers ---

// listBooksHandler handles GET /books: every book annotated with whether the
// caller follows the poster and liked the book. Posters are batch-fetched in
// one IN query instead of one lookup per book.
func (s *Server) listBooksHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	books, err := s.store.GetAllBooks()
	if err != nil {
		logg.Error("http/books", "Failed to list books", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	actor, err := s.store.GetUser(actorID)
	if err != nil {
		storeError(w, "http/books", "user not found", err)
		return
	}

	annotated, err := s.annotateBooks(books, actor)
	if err != nil {
		logg.Error("http/books", "Failed to join posters for books", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, annotated)
}

// getBookHandler handles GET /books/{id}: a single book with the poster
// identity populated. 404 when the book does not exist.
func (s *Server) getBookHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	book, err := s.store.GetBook(r.PathValue("id"))
	if err != nil {
		storeError(w, "http/books", "book not found", err)
		return
	}

	actor, err := s.store.GetUser(actorID)
	if err != nil {
		storeError(w, "http/books", "user not found", err)
		return
	}

	annotated, err := s.annotateBooks([]models.Book{book}, actor)
	if err != nil {
		logg.Error("http/books", "Failed to join poster for book", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, annotated[0])
}

// createBookHandler handles POST /books.
// Expects JSON body: {"title", "author", "genre", "review", "image"(base64)}.
// The cover image is required; it is written to disk before the record, and
// removed again if the record insert fails.
func (s *Server) createBookHandler(w http.ResponseWriter, r *http.Request) {
	type req struct {
		Title  string `json:"title"`
		Author string `json:"author"`
		Genre  string `json:"genre"`
		Review string `json:"review"`
		Image  string `json:"image"`
	}
	var body req

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logg.Error("http/books", "Invalid request body", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		logg.Info("http/books", "Unauthorized book creation attempt")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if len(body.Title) == 0 || len(body.Title) > 200 {
		logg.Info("http/books", "Book title length invalid for user_id="+actorID)
		http.Error(w, "title must be 1-200 characters", http.StatusBadRequest)
		return
	}
	if len(body.Review) > 5000 {
		logg.Info("http/books", "Book review too long for user_id="+actorID)
		http.Error(w, "review must be at most 5000 characters", http.StatusBadRequest)
		return
	}

	imagePath, err := s.images.Save(body.Image)
	if err != nil {
		if errors.Is(err, imagestore.ErrEmptyPayload) {
			logg.Info("http/books", "Book creation without image for user_id="+actorID)
			http.Error(w, "image missing in request", http.StatusBadRequest)
			return
		}
		logg.Error("http/books", "Failed to store image", err)
		http.Error(w, "invalid image payload", http.StatusBadRequest)
		return
	}

	book := models.Book{
		ID:       uuid.NewString(),
		Title:    body.Title,
		Author:   body.Author,
		Genre:    body.Genre,
		Review:   body.Review,
		Image:    imagePath,
		PostedBy: actorID,
		LikedBy:  []string{},
		Created:  time.Now(),
	}

	if err := appkafka.WriteEvent(s.kafkaWriter, appkafka.NewPostCreated(actorID)); err != nil {
		logg.Error("http/books", "Failed to publish post event", err)
		s.removeImage(book.Image)
		http.Error(w, "failed to publish post event: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := s.store.AddBook(book); err != nil {
		logg.Error("http/books", "Failed to save book", err)
		s.removeImage(book.Image)
		http.Error(w, "failed to save book: "+err.Error(), http.StatusInternalServerError)
		return
	}

	logg.Info("http/books", "Book posted successfully by user_id="+actorID)

	writeJSON(w, http.StatusCreated, book)
}

// removeImage is the compensating delete for a failed book insert.
func (s *Server) removeImage(relPath string) {
	if err := s.images.Remove(relPath); err != nil {
		logg.Error("http/books", "Failed to clean up orphaned image", err)
	}
}

// toggleLikeHandler handles PATCH /books/{bookId}/like: one call flips the
// caller's membership in the liked_by set.
func (s *Server) toggleLikeHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	liked, ownerID, err := s.store.ToggleLike(actorID, r.PathValue("bookId"))
	if err != nil {
		storeError(w, "http/likes", "book not found", err)
		return
	}

	s.publishEvent("http/likes", appkafka.NewLikeToggled(ownerID, liked))

	message := "Book unliked successfully."
	if liked {
		message = "Book liked successfully."
	}
	logg.Info("http/likes", "Like toggled by user_id="+actorID)

	writeJSON(w, http.StatusOK, map[string]any{
		"message": message,
		"liked":   liked,
	})
}

// likeBookHandler handles PUT /books/{bookId}/like: explicit like, a no-op
// when the caller already likes the book.
func (s *Server) likeBookHandler(w http.ResponseWriter, r *http.Request) {
	s.setLike(w, r, true, "Book liked successfully.")
}

// unlikeBookHandler handles DELETE /books/{bookId}/like: explicit unlike,
// a no-op when the caller does not like the book.
func (s *Server) unlikeBookHandler(w http.ResponseWriter, r *http.Request) {
	s.setLike(w, r, false, "Book unliked successfully.")
}

func (s *Server) setLike(w http.ResponseWriter, r *http.Request, want bool, message string) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	changed, ownerID, err := s.store.SetLike(actorID, r.PathValue("bookId"), want)
	if err != nil {
		storeError(w, "http/likes", "book not found", err)
		return
	}

	if changed {
		s.publishEvent("http/likes", appkafka.NewLikeToggled(ownerID, want))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": message,
		"liked":   want,
	})
}

// checkLikedHandler handles GET /books/{bookId}/liked.
// Returns {"isLiked": bool}.
func (s *Server) checkLikedHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	isLiked, err := s.store.IsLiked(actorID, r.PathValue("bookId"))
	if err != nil {
		storeError(w, "http/likes", "book not found", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"isLiked": isLiked})
}

// getFeedHandler handles GET /feed: books posted by users the caller
// follows, newest first. Query parameters: ?limit=50
func (s *Server) getFeedHandler(w http.ResponseWriter, r *http.Request) {
	limitStr := r.URL.Query().Get("limit")

	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		logg.Info("http/feed", "Unauthorized feed access attempt")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	limit := 50
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	feed, err := s.store.GetFeed(actorID, limit)
	if err != nil {
		storeError(w, "http/feed", "user not found", err)
		return
	}

	actor, err := s.store.GetUser(actorID)
	if err != nil {
		storeError(w, "http/feed", "user not found", err)
		return
	}

	annotated, err := s.annotateBooks(feed, actor)
	if err != nil {
		logg.Error("http/feed", "Failed to join posters for feed", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	logg.Info("http/feed", "Feed retrieved for user_id="+actorID+" with limit="+strconv.Itoa(limit))

	writeJSON(w, http.StatusOK, annotated)
}

// recommendedBooksHandler handles GET /books/recommended: books whose author
// name matches someone the caller follows.
func (s *Server) recommendedBooksHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	books, err := s.store.GetRecommended(actorID)
	if err != nil {
		storeError(w, "http/recommended", "user not found", err)
		return
	}

	if books == nil {
		books = []models.Book{}
	}
	writeJSON(w, http.StatusOK, books)
}

// searchBooksHandler handles GET /books/search?genre=&author=&keywords=.
// All provided filters apply conjunctively; an empty result is a valid 200.
func (s *Server) searchBooksHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	books, err := s.store.SearchBooks(q.Get("genre"), q.Get("author"), q.Get("keywords"))
	if err != nil {
		logg.Error("http/search", "Failed to search books", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if books == nil {
		books = []models.Book{}
	}
	writeJSON(w, http.StatusOK, books)
}

// annotateBooks joins books with their posters (one batch IN lookup) and the
// caller's follow/like relation to each.
func (s *Server) annotateBooks(books []models.Book, actor models.User) ([]models.AnnotatedBook, error) {
	seen := make(map[string]bool)
	var posterIDs []string
	for _, b := range books {
		if !seen[b.PostedBy] {
			seen[b.PostedBy] = true
			posterIDs = append(posterIDs, b.PostedBy)
		}
	}

	posters, err := s.store.GetUsersByIDs(posterIDs)
	if err != nil {
		return nil, err
	}

	posterByID := make(map[string]models.PosterInfo, len(posters))
	for _, p := range posters {
		posterByID[p.ID] = models.PosterInfo{ID: p.ID, Username: p.Username}
	}

	annotated := make([]models.AnnotatedBook, 0, len(books))
	for _, b := range books {
		item := models.AnnotatedBook{
			Book:                 b,
			CurrentUserFollowing: containsID(actor.Following, b.PostedBy),
			CurrentUserLiked:     containsID(b.LikedBy, actor.ID),
		}
		if p, ok := posterByID[b.PostedBy]; ok {
			item.PostedByUser = &p
		}
		annotated = append(annotated, item)
	}
	return annotated, nil
}
