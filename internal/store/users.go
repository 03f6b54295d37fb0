package store

import (
	"time"

	"example.com/bookfeed/internal/models"
	"github.com/gocql/gocql"
)

// --- User operations ---

// GetUserIDByUsername returns the existing user_id by username.
// If the user does not exist, it returns empty string without an error.
func (s *Store) GetUserIDByUsername(username string) (string, error) {
	var id string
	err := s.Session.Query(
		`SELECT user_id FROM users_by_username WHERE username = ?`,
		username,
	).Scan(&id)
	if err != nil {
		if err == gocql.ErrNotFound {
			return "", nil
		}
		logg.Error("store", "Failed to query user by username", err)
		return "", err
	}
	return id, nil
}

// CreateUser creates a new user if the username does not exist.
// Returns the existing user_id if username already exists.
func (s *Store) CreateUser(username string) (string, error) {
	existingID, err := s.GetUserIDByUsername(username)
	if err != nil {
		return "", err
	}
	if existingID != "" {
		return existingID, nil
	}

	// Generate a new UUID for user_id
	id := gocql.TimeUUID().String()

	// Insert into users_by_username table using CAS
	result := make(map[string]interface{})
	applied, err := s.Session.Query(`
		INSERT INTO users_by_username (username, user_id)
		VALUES (?, ?) IF NOT EXISTS`,
		username, id,
	).MapScanCAS(result)
	if err != nil {
		logg.Error("store", "Failed to create username entry", err)
		return "", err
	}

	if !applied {
		// Another process already created this user
		return s.GetUserIDByUsername(username)
	}

	// Insert into main users table
	err = s.Session.Query(`
		INSERT INTO users (user_id, username, created_at)
		VALUES (?, ?, ?)`,
		id, username, time.Now(),
	).Exec()
	if err != nil {
		logg.Error("store", "Failed to create user in main table", err)
		return "", err
	}

	logg.Info("store", "User created successfully (username anonymized)")
	return id, nil
}

// GetUser loads a single user with both sides of the follow relation.
func (s *Store) GetUser(userID string) (models.User, error) {
	var u models.User
	var created time.Time
	err := s.Session.Query(`
		SELECT user_id, username, following, followers, created_at
		FROM users WHERE user_id = ?`,
		userID,
	).Scan(&u.ID, &u.Username, &u.Following, &u.Followers, &created)
	if err != nil {
		if err == gocql.ErrNotFound {
			return models.User{}, ErrNotFound
		}
		logg.Error("store", "Failed to load user", err)
		return models.User{}, err
	}
	u.Created = created
	return u, nil
}

// GetAllUsers returns every registered user.
func (s *Store) GetAllUsers() ([]models.User, error) {
	iter := s.Session.Query(`
		SELECT user_id, username, following, followers, created_at FROM users`,
	).Iter()

	var res []models.User
	var u models.User
	for iter.Scan(&u.ID, &u.Username, &u.Following, &u.Followers, &u.Created) {
		res = append(res, u)
		u = models.User{}
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to list users", err)
		return nil, err
	}
	return res, nil
}

// GetUsersByIDs batch-fetches users by id in a single IN query.
func (s *Store) GetUsersByIDs(ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	iter := s.Session.Query(`
		SELECT user_id, username, following, followers, created_at
		FROM users WHERE user_id IN ?`,
		ids,
	).Iter()

	var res []models.User
	var u models.User
	for iter.Scan(&u.ID, &u.Username, &u.Following, &u.Followers, &u.Created) {
		res = append(res, u)
		u = models.User{}
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to batch-fetch users", err)
		return nil, err
	}
	return res, nil
}

// --- Follow operations ---

// ToggleFollow flips the follow edge from actor to target and returns the
// resulting state (true when the actor now follows the target). Both sides of
// the relation are mutated in one logged batch so the edge stays symmetric,
// and set add/remove keeps concurrent toggles idempotent.
func (s *Store) ToggleFollow(actorID, targetID string) (bool, error) {
	var targetExists string
	if err := s.Session.Query(
		`SELECT user_id FROM users WHERE user_id = ?`, targetID,
	).Scan(&targetExists); err != nil {
		if err == gocql.ErrNotFound {
			return false, ErrNotFound
		}
		logg.Error("store", "Failed to look up follow target", err)
		return false, err
	}

	actor, err := s.GetUser(actorID)
	if err != nil {
		return false, err
	}

	following := !contains(actor.Following, targetID)

	batch := s.Session.NewBatch(gocql.LoggedBatch)
	if following {
		batch.Query(`UPDATE users SET following = following + ? WHERE user_id = ?`, []string{targetID}, actorID)
		batch.Query(`UPDATE users SET followers = followers + ? WHERE user_id = ?`, []string{actorID}, targetID)
	} else {
		batch.Query(`UPDATE users SET following = following - ? WHERE user_id = ?`, []string{targetID}, actorID)
		batch.Query(`UPDATE users SET followers = followers - ? WHERE user_id = ?`, []string{actorID}, targetID)
	}

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to toggle follow relationship", err)
		return false, err
	}

	logg.Info("store", "Follow relationship toggled (user IDs anonymized)")
	return following, nil
}

// --- Engagement counters ---

// BumpStats applies counter deltas for a user. Counter updates cannot share a
// logged batch with regular writes, so each non-zero delta is its own
// statement.
func (s *Store) BumpStats(userID string, posts, likes, followers int64) error {
	apply := func(column string, delta int64) error {
		if delta == 0 {
			return nil
		}
		return s.Session.Query(
			`UPDATE user_stats SET `+column+` = `+column+` + ? WHERE user_id = ?`,
			delta, userID,
		).Exec()
	}

	if err := apply("posts", posts); err != nil {
		logg.Error("store", "Failed to bump post counter", err)
		return err
	}
	if err := apply("likes_received", likes); err != nil {
		logg.Error("store", "Failed to bump likes counter", err)
		return err
	}
	if err := apply("followers", followers); err != nil {
		logg.Error("store", "Failed to bump follower counter", err)
		return err
	}
	return nil
}

// GetStats returns a user's engagement counters. A user with no recorded
// engagement yet gets all-zero stats, not an error.
func (s *Store) GetStats(userID string) (models.UserStats, error) {
	st := models.UserStats{UserID: userID}
	err := s.Session.Query(`
		SELECT posts, likes_received, followers
		FROM user_stats WHERE user_id = ?`,
		userID,
	).Scan(&st.Posts, &st.LikesReceived, &st.Followers)
	if err != nil && err != gocql.ErrNotFound {
		logg.Error("store", "Failed to load user stats", err)
		return models.UserStats{}, err
	}
	return st, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
