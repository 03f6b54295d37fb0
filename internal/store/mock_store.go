package store

import (
	"errors"
	"fmt"
	"strings"

	"example.com/bookfeed/internal/models"
)

var mockUserCounter int

// MockStore simulates Cassandra operations for testing.
type MockStore struct {
	Users      map[string]*models.User
	Books      map[string]*models.Book
	Stats      map[string]*models.UserStats
	ShouldFail bool // flag to simulate failures
}

// NewMock initializes a new mock store
func NewMock() *MockStore {
	return &MockStore{
		Users: make(map[string]*models.User),
		Books: make(map[string]*models.Book),
		Stats: make(map[string]*models.UserStats),
	}
}

func (m *MockStore) Close() {}

// --- Users & follow graph ---

func (m *MockStore) CreateUser(username string) (string, error) {
	if m.ShouldFail {
		return "", errors.New("mock: create user failed")
	}
	if id, _ := m.GetUserIDByUsername(username); id != "" {
		return id, nil
	}
	mockUserCounter++
	id := fmt.Sprintf("user_%d", mockUserCounter)
	m.Users[id] = &models.User{ID: id, Username: username}
	return id, nil
}

func (m *MockStore) GetUserIDByUsername(username string) (string, error) {
	for id, u := range m.Users {
		if u.Username == username {
			return id, nil
		}
	}
	return "", nil
}

func (m *MockStore) GetUser(userID string) (models.User, error) {
	if m.ShouldFail {
		return models.User{}, errors.New("mock: get user failed")
	}
	u, ok := m.Users[userID]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return *u, nil
}

func (m *MockStore) GetAllUsers() ([]models.User, error) {
	if m.ShouldFail {
		return nil, errors.New("mock: list users failed")
	}
	var res []models.User
	for _, u := range m.Users {
		res = append(res, *u)
	}
	return res, nil
}

func (m *MockStore) GetUsersByIDs(ids []string) ([]models.User, error) {
	if m.ShouldFail {
		return nil, errors.New("mock: batch get users failed")
	}
	var res []models.User
	for _, id := range ids {
		if u, ok := m.Users[id]; ok {
			res = append(res, *u)
		}
	}
	return res, nil
}

func (m *MockStore) ToggleFollow(actorID, targetID string) (bool, error) {
	if m.ShouldFail {
		return false, errors.New("mock: follow failed")
	}
	target, ok := m.Users[targetID]
	if !ok {
		return false, ErrNotFound
	}
	actor, ok := m.Users[actorID]
	if !ok {
		return false, ErrNotFound
	}

	if contains(actor.Following, targetID) {
		actor.Following = remove(actor.Following, targetID)
		target.Followers = remove(target.Followers, actorID)
		return false, nil
	}
	actor.Following = append(actor.Following, targetID)
	target.Followers = append(target.Followers, actorID)
	return true, nil
}

// --- Books & likes ---

func (m *MockStore) AddBook(book models.Book) error {
	if m.ShouldFail {
		return errors.New("mock: add book failed")
	}
	b := book
	m.Books[book.ID] = &b
	return nil
}

func (m *MockStore) GetBook(bookID string) (models.Book, error) {
	if m.ShouldFail {
		return models.Book{}, errors.New("mock: get book failed")
	}
	b, ok := m.Books[bookID]
	if !ok {
		return models.Book{}, ErrNotFound
	}
	return *b, nil
}

func (m *MockStore) GetAllBooks() ([]models.Book, error) {
	if m.ShouldFail {
		return nil, errors.New("mock: list books failed")
	}
	var res []models.Book
	for _, b := range m.Books {
		res = append(res, *b)
	}
	sortNewestFirst(res)
	return res, nil
}

func (m *MockStore) ToggleLike(userID, bookID string) (bool, string, error) {
	if m.ShouldFail {
		return false, "", errors.New("mock: toggle like failed")
	}
	b, ok := m.Books[bookID]
	if !ok {
		return false, "", ErrNotFound
	}
	if contains(b.LikedBy, userID) {
		b.LikedBy = remove(b.LikedBy, userID)
		return false, b.PostedBy, nil
	}
	b.LikedBy = append(b.LikedBy, userID)
	return true, b.PostedBy, nil
}

func (m *MockStore) SetLike(userID, bookID string, want bool) (bool, string, error) {
	if m.ShouldFail {
		return false, "", errors.New("mock: set like failed")
	}
	b, ok := m.Books[bookID]
	if !ok {
		return false, "", ErrNotFound
	}
	if contains(b.LikedBy, userID) == want {
		return false, b.PostedBy, nil
	}
	if want {
		b.LikedBy = append(b.LikedBy, userID)
	} else {
		b.LikedBy = remove(b.LikedBy, userID)
	}
	return true, b.PostedBy, nil
}

func (m *MockStore) IsLiked(userID, bookID string) (bool, error) {
	if m.ShouldFail {
		return false, errors.New("mock: is liked failed")
	}
	b, ok := m.Books[bookID]
	if !ok {
		return false, ErrNotFound
	}
	return contains(b.LikedBy, userID), nil
}

// --- Derived views ---

func (m *MockStore) GetFeed(userID string, limit int) ([]models.Book, error) {
	if m.ShouldFail {
		return nil, errors.New("mock: get feed failed")
	}
	user, ok := m.Users[userID]
	if !ok {
		return nil, ErrNotFound
	}

	var res []models.Book
	for _, b := range m.Books {
		if contains(user.Following, b.PostedBy) {
			res = append(res, *b)
		}
	}
	sortNewestFirst(res)
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (m *MockStore) GetRecommended(userID string) ([]models.Book, error) {
	if m.ShouldFail {
		return nil, errors.New("mock: get recommended failed")
	}
	user, ok := m.Users[userID]
	if !ok {
		return nil, ErrNotFound
	}

	names := make(map[string]bool)
	for _, id := range user.Following {
		if f, ok := m.Users[id]; ok {
			names[strings.ToLower(f.Username)] = true
		}
	}

	var res []models.Book
	for _, b := range m.Books {
		if names[strings.ToLower(b.Author)] {
			res = append(res, *b)
		}
	}
	sortNewestFirst(res)
	return res, nil
}

func (m *MockStore) SearchBooks(genre, author, keywords string) ([]models.Book, error) {
	if m.ShouldFail {
		return nil, errors.New("mock: search failed")
	}
	var res []models.Book
	for _, b := range m.Books {
		if genre != "" && b.Genre != genre {
			continue
		}
		if author != "" && b.Author != author {
			continue
		}
		res = append(res, *b)
	}
	res = filterByKeywords(res, keywords)
	sortNewestFirst(res)
	return res, nil
}

// --- Engagement counters ---

func (m *MockStore) BumpStats(userID string, posts, likes, followers int64) error {
	if m.ShouldFail {
		return errors.New("mock: bump stats failed")
	}
	st, ok := m.Stats[userID]
	if !ok {
		st = &models.UserStats{UserID: userID}
		m.Stats[userID] = st
	}
	st.Posts += posts
	st.LikesReceived += likes
	st.Followers += followers
	return nil
}

func (m *MockStore) GetStats(userID string) (models.UserStats, error) {
	if m.ShouldFail {
		return models.UserStats{}, errors.New("mock: get stats failed")
	}
	if st, ok := m.Stats[userID]; ok {
		return *st, nil
	}
	return models.UserStats{UserID: userID}, nil
}

func remove(ids []string, id string) []string {
	var res []string
	for _, v := range ids {
		if v != id {
			res = append(res, v)
		}
	}
	return res
}

// ---------------------------------------------
// MockStoreFail always returns errors for negative tests
type MockStoreFail struct{}

func (m *MockStoreFail) Close() {}

func (m *MockStoreFail) CreateUser(username string) (string, error) {
	return "", errors.New("mock store create user failed")
}

func (m *MockStoreFail) GetUserIDByUsername(username string) (string, error) {
	return "", errors.New("mock store get user by username failed")
}

func (m *MockStoreFail) GetUser(userID string) (models.User, error) {
	return models.User{}, errors.New("mock store get user failed")
}

func (m *MockStoreFail) GetAllUsers() ([]models.User, error) {
	return nil, errors.New("mock store list users failed")
}

func (m *MockStoreFail) GetUsersByIDs(ids []string) ([]models.User, error) {
	return nil, errors.New("mock store batch get users failed")
}

func (m *MockStoreFail) ToggleFollow(actorID, targetID string) (bool, error) {
	return false, errors.New("mock store toggle follow failed")
}

func (m *MockStoreFail) AddBook(book models.Book) error {
	return errors.New("mock store add book failed")
}

func (m *MockStoreFail) GetBook(bookID string) (models.Book, error) {
	return models.Book{}, errors.New("mock store get book failed")
}

func (m *MockStoreFail) GetAllBooks() ([]models.Book, error) {
	return nil, errors.New("mock store list books failed")
}

func (m *MockStoreFail) ToggleLike(userID, bookID string) (bool, string, error) {
	return false, "", errors.New("mock store toggle like failed")
}

func (m *MockStoreFail) SetLike(userID, bookID string, want bool) (bool, string, error) {
	return false, "", errors.New("mock store set like failed")
}

func (m *MockStoreFail) IsLiked(userID, bookID string) (bool, error) {
	return false, errors.New("mock store is liked failed")
}

func (m *MockStoreFail) GetFeed(userID string, limit int) ([]models.Book, error) {
	return nil, errors.New("mock store get feed failed")
}

func (m *MockStoreFail) GetRecommended(userID string) ([]models.Book, error) {
	return nil, errors.New("mock store get recommended failed")
}

func (m *MockStoreFail) SearchBooks(genre, author, keywords string) ([]models.Book, error) {
	return nil, errors.New("mock store search failed")
}

func (m *MockStoreFail) BumpStats(userID string, posts, likes, followers int64) error {
	return errors.New("mock store bump stats failed")
}

func (m *MockStoreFail) GetStats(userID string) (models.UserStats, error) {
	return models.UserStats{}, errors.New("mock store get stats failed")
}
