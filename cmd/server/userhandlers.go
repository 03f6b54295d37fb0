package server

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	appkafka "example.com/bookfeed/internal/broker"
	"example.com/bookfeed/internal/middleware"
	"example.com/bookfeed/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// createUserHandler handles POST /users.
// Expects JSON body: {"username": "example"}
// Returns JSON response: {"user_id": <id>, "token": <jwt>}
func (s *Server) createUserHandler(w http.ResponseWriter, r *http.Request) {
	type req struct{ Username string }
	var body req

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logg.Error("http/users", "Invalid request body", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if len(body.Username) == 0 || len(body.Username) > 50 {
		logg.Info("http/users", "Invalid username length")
		http.Error(w, "username must be 1-50 characters", http.StatusBadRequest)
		return
	}

	userID, err := s.store.GetUserIDByUsername(body.Username)
	if err != nil {
		logg.Error("http/users", "Failed to query existing username", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if userID == "" {
		userID, err = s.store.CreateUser(body.Username)
		if err != nil {
			logg.Error("http/users", "Failed to create user", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		logg.Info("http/users", "User created successfully with user_id="+userID)
	} else {
		logg.Info("http/users", "User already exists, returning existing user_id="+userID)
	}

	secret := []byte(os.Getenv("JWT_SECRET"))
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour * 24).Unix(),
	})
	tokenStr, err := token.SignedString(secret)
	if err != nil {
		http.Error(w, "failed to generate token", http.StatusInternalServerError)
		return
	}

	resp := map[string]any{
		"user_id": userID,
		"token":   tokenStr,
	}

	writeJSON(w, http.StatusOK, resp)
}

// listUsersHandler handles GET /users.
func (s *Server) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.GetAllUsers()
	if err != nil {
		logg.Error("http/users", "Failed to list users", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// profileHandler handles GET /users/me, returning the caller's own record.
func (s *Server) profileHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := s.store.GetUser(userID)
	if err != nil {
		storeError(w, "http/users", "user not found", err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// userStatsHandler handles GET /users/{userId}/stats. Counters are
// maintained asynchronously by the stats worker, so they may trail the
// current graph state slightly.
func (s *Server) userStatsHandler(w http.ResponseWriter, r *http.Request) {
	targetID := r.PathValue("userId")

	if _, err := s.store.GetUser(targetID); err != nil {
		storeError(w, "http/stats", "user not found", err)
		return
	}

	stats, err := s.store.GetStats(targetID)
	if err != nil {
		logg.Error("http/stats", "Failed to load stats for user_id="+targetID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// toggleFollowHandler handles PATCH /users/{userId}/follow.
// Flips the follow edge from the caller to the target user, keeping both
// sides of the relation in sync.
func (s *Server) toggleFollowHandler(w http.ResponseWriter, r *http.Request) {
	targetID := r.PathValue("userId")

	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		logg.Info("http/follow", "Unauthorized follow attempt")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if actorID == targetID {
		logg.Info("http/follow", "Rejected self-follow attempt")
		http.Error(w, "cannot follow yourself", http.StatusBadRequest)
		return
	}

	following, err := s.store.ToggleFollow(actorID, targetID)
	if err != nil {
		storeError(w, "http/follow", "user not found", err)
		return
	}

	s.publishEvent("http/follow", appkafka.NewFollowToggled(targetID, following))

	message := "Unfollow successfully."
	if following {
		message = "Follow successfully."
		logg.Info("http/follow", "User "+actorID+" followed "+targetID)
	} else {
		logg.Info("http/follow", "User "+actorID+" unfollowed "+targetID)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":   message,
		"following": following,
	})
}
