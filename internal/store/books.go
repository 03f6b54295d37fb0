package store

import (
	"sort"
	"strings"

	"example.com/bookfeed/internal/models"
	"github.com/gocql/gocql"
)

const bookColumns = `book_id, title, author, genre, review, image, posted_by, liked_by, created_at`

func scanBooks(iter *gocql.Iter) ([]models.Book, error) {
	var res []models.Book
	var b models.Book
	for iter.Scan(&b.ID, &b.Title, &b.Author, &b.Genre, &b.Review, &b.Image, &b.PostedBy, &b.LikedBy, &b.Created) {
		res = append(res, b)
		b = models.Book{}
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return res, nil
}

// --- Book operations ---

// AddBook inserts the book together with its poster-index row in one logged
// batch, so the feed index never references a missing book.
func (s *Store) AddBook(book models.Book) error {
	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`
		INSERT INTO books (book_id, title, author, genre, review, image, posted_by, liked_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		book.ID, book.Title, book.Author, book.Genre, book.Review, book.Image,
		book.PostedBy, book.LikedBy, book.Created,
	)
	batch.Query(`
		INSERT INTO books_by_poster (posted_by, created_at, book_id)
		VALUES (?, ?, ?)`,
		book.PostedBy, book.Created, book.ID,
	)

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to add book", err)
		return err
	}

	logg.Info("store", "Book added (book content anonymized)")
	return nil
}

// GetBook loads a single book by id.
func (s *Store) GetBook(bookID string) (models.Book, error) {
	var b models.Book
	err := s.Session.Query(
		`SELECT `+bookColumns+` FROM books WHERE book_id = ?`,
		bookID,
	).Scan(&b.ID, &b.Title, &b.Author, &b.Genre, &b.Review, &b.Image, &b.PostedBy, &b.LikedBy, &b.Created)
	if err != nil {
		if err == gocql.ErrNotFound {
			return models.Book{}, ErrNotFound
		}
		logg.Error("store", "Failed to load book", err)
		return models.Book{}, err
	}
	return b, nil
}

// GetAllBooks returns every posted book, newest first.
func (s *Store) GetAllBooks() ([]models.Book, error) {
	iter := s.Session.Query(`SELECT ` + bookColumns + ` FROM books`).Iter()
	books, err := scanBooks(iter)
	if err != nil {
		logg.Error("store", "Failed to list books", err)
		return nil, err
	}
	sortNewestFirst(books)
	return books, nil
}

// --- Like operations ---

// ToggleLike flips the caller's membership in the book's liked_by set and
// returns the resulting state plus the book owner's id. The mutation is an
// atomic set add/remove, never a whole-array rewrite.
func (s *Store) ToggleLike(userID, bookID string) (bool, string, error) {
	book, err := s.GetBook(bookID)
	if err != nil {
		return false, "", err
	}

	liked := !contains(book.LikedBy, userID)
	if err := s.applyLike(userID, bookID, liked); err != nil {
		return false, "", err
	}

	logg.Info("store", "Like toggled (user and book IDs anonymized)")
	return liked, book.PostedBy, nil
}

// SetLike drives the like edge to the wanted state. Returns whether anything
// changed; a no-op still succeeds.
func (s *Store) SetLike(userID, bookID string, want bool) (bool, string, error) {
	book, err := s.GetBook(bookID)
	if err != nil {
		return false, "", err
	}

	if contains(book.LikedBy, userID) == want {
		return false, book.PostedBy, nil
	}
	if err := s.applyLike(userID, bookID, want); err != nil {
		return false, "", err
	}
	return true, book.PostedBy, nil
}

func (s *Store) applyLike(userID, bookID string, add bool) error {
	stmt := `UPDATE books SET liked_by = liked_by - ? WHERE book_id = ?`
	if add {
		stmt = `UPDATE books SET liked_by = liked_by + ? WHERE book_id = ?`
	}
	if err := s.Session.Query(stmt, []string{userID}, bookID).Exec(); err != nil {
		logg.Error("store", "Failed to update liked_by set", err)
		return err
	}
	return nil
}

// IsLiked reports whether the user is in the book's liked_by set.
func (s *Store) IsLiked(userID, bookID string) (bool, error) {
	book, err := s.GetBook(bookID)
	if err != nil {
		return false, err
	}
	return contains(book.LikedBy, userID), nil
}

// --- Derived views ---

// GetFeed returns books posted by users the caller follows, newest first.
// Computed on read from the poster index so an unfollow takes effect
// immediately.
func (s *Store) GetFeed(userID string, limit int) ([]models.Book, error) {
	user, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if len(user.Following) == 0 {
		return nil, nil
	}

	var bookIDs []string
	for _, posterID := range user.Following {
		iter := s.Session.Query(`
			SELECT book_id FROM books_by_poster
			WHERE posted_by = ? LIMIT ?`,
			posterID, limit,
		).Iter()

		var id string
		for iter.Scan(&id) {
			bookIDs = append(bookIDs, id)
		}
		if err := iter.Close(); err != nil {
			logg.Error("store", "Failed to read poster index", err)
			return nil, err
		}
	}

	if len(bookIDs) == 0 {
		return nil, nil
	}

	iter := s.Session.Query(
		`SELECT `+bookColumns+` FROM books WHERE book_id IN ?`,
		bookIDs,
	).Iter()
	books, err := scanBooks(iter)
	if err != nil {
		logg.Error("store", "Failed to batch-fetch feed books", err)
		return nil, err
	}

	sortNewestFirst(books)
	if len(books) > limit {
		books = books[:limit]
	}

	logg.Info("store", "User feed retrieved successfully (IDs and content anonymized)")
	return books, nil
}

// GetRecommended returns books whose author name matches the display name of
// a user the caller follows. Matching is case-insensitive.
func (s *Store) GetRecommended(userID string) ([]models.Book, error) {
	user, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if len(user.Following) == 0 {
		return nil, nil
	}

	followed, err := s.GetUsersByIDs(user.Following)
	if err != nil {
		return nil, err
	}

	names := make(map[string]bool, len(followed))
	for _, f := range followed {
		names[strings.ToLower(f.Username)] = true
	}

	books, err := s.GetAllBooks()
	if err != nil {
		return nil, err
	}

	var res []models.Book
	for _, b := range books {
		if names[strings.ToLower(b.Author)] {
			res = append(res, b)
		}
	}
	return res, nil
}

// SearchBooks applies a conjunctive filter. Genre and author are pushed down
// as equality predicates; keywords match as a case-insensitive substring over
// title, review and author.
func (s *Store) SearchBooks(genre, author, keywords string) ([]models.Book, error) {
	stmt := `SELECT ` + bookColumns + ` FROM books`
	var conds []string
	var vals []interface{}

	if genre != "" {
		conds = append(conds, "genre = ?")
		vals = append(vals, genre)
	}
	if author != "" {
		conds = append(conds, "author = ?")
		vals = append(vals, author)
	}
	if len(conds) > 0 {
		stmt += " WHERE " + strings.Join(conds, " AND ") + " ALLOW FILTERING"
	}

	iter := s.Session.Query(stmt, vals...).Iter()
	books, err := scanBooks(iter)
	if err != nil {
		logg.Error("store", "Failed to search books", err)
		return nil, err
	}

	books = filterByKeywords(books, keywords)
	sortNewestFirst(books)
	return books, nil
}

func filterByKeywords(books []models.Book, keywords string) []models.Book {
	if keywords == "" {
		return books
	}
	needle := strings.ToLower(keywords)
	var res []models.Book
	for _, b := range books {
		haystack := strings.ToLower(b.Title + " " + b.Review + " " + b.Author)
		if strings.Contains(haystack, needle) {
			res = append(res, b)
		}
	}
	return res
}

func sortNewestFirst(books []models.Book) {
	sort.Slice(books, func(i, j int) bool {
		if !books[i].Created.Equal(books[j].Created) {
			return books[i].Created.After(books[j].Created)
		}
		return books[i].ID > books[j].ID
	})
}
