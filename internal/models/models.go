package models

import "time"

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Following []string  `json:"following"`
	Followers []string  `json:"followers"`
	Created   time.Time `json:"created"`
}

// Book is a posted review. Image holds a relative path like "images/<name>",
// empty if no cover was stored.
type Book struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Author   string    `json:"author"`
	Genre    string    `json:"genre"`
	Review   string    `json:"review"`
	Image    string    `json:"image,omitempty"`
	PostedBy string    `json:"posted_by"`
	LikedBy  []string  `json:"liked_by"`
	Created  time.Time `json:"created"`
}

// PosterInfo is the slice of a User embedded in annotated book responses.
type PosterInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// AnnotatedBook is a Book joined with poster identity and the caller's
// relation to it.
type AnnotatedBook struct {
	Book
	PostedByUser         *PosterInfo `json:"posted_by_user,omitempty"`
	CurrentUserFollowing bool        `json:"current_user_following"`
	CurrentUserLiked     bool        `json:"current_user_liked"`
}

// UserStats are engagement counters maintained asynchronously by the worker.
type UserStats struct {
	UserID        string `json:"user_id"`
	Posts         int64  `json:"posts"`
	LikesReceived int64  `json:"likes_received"`
	Followers     int64  `json:"followers"`
}
