package library

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store is the single source of truth for books, users, borrow records and
// notifications within a session. It mediates every read between the
// presentation layer and the collaborator: each collection carries its data,
// a loading flag and a last-error field, and refetches replace collections
// wholesale so local state never drifts from server truth for long.
//
// One Store is constructed at app start and injected into consumers; it is
// safe for use from multiple goroutines but provides no record-level locking
// beyond the per-record in-flight guard on borrowing operations.
type Store struct {
	client  *Client
	session *Session

	mu sync.RWMutex

	books        []Book
	booksByID    map[string]Book
	booksLoading bool
	booksErr     error

	users        []User
	usersByID    map[string]User
	usersLoading bool
	usersErr     error

	records        []BorrowRecord
	recordsLoading bool
	recordsErr     error

	notifications        []Notification
	notificationsLoading bool
	notificationsErr     error

	inflight map[string]struct{}
}

// NewStore builds the store and subscribes it to the session's login signal,
// so the collections repopulate after a session that started unauthenticated.
// Collections begin empty with loading=true until the first fetch settles.
func NewStore(client *Client, session *Session) *Store {
	s := &Store{
		client:               client,
		session:              session,
		booksByID:            map[string]Book{},
		usersByID:            map[string]User{},
		booksLoading:         true,
		usersLoading:         true,
		recordsLoading:       true,
		notificationsLoading: true,
		inflight:             map[string]struct{}{},
	}
	session.OnLogin(func() { s.RefetchAll(context.Background()) })
	return s
}

// Bootstrap performs the initial fetch of every collection. Without a stored
// credential it settles all loading flags and leaves the collections empty.
func (s *Store) Bootstrap(ctx context.Context) { s.RefetchAll(ctx) }

// RefetchAll refreshes every collection. Notifications are scoped to the
// session user, so they are skipped when no user is stored.
func (s *Store) RefetchAll(ctx context.Context) {
	s.RefetchBooks(ctx)
	s.RefetchUsers(ctx)
	s.RefetchBorrowRecords(ctx)
	if u := s.session.User(); u != nil {
		s.RefetchNotifications(ctx, u.ID)
	} else {
		s.mu.Lock()
		s.notificationsLoading = false
		s.mu.Unlock()
	}
}

// RefetchBooks replaces the catalog with the collaborator's current state.
// Failures keep the last-good catalog and record the error; a missing
// credential is a silent no-op.
func (s *Store) RefetchBooks(ctx context.Context) {
	if !s.session.HasCredential() {
		s.mu.Lock()
		s.booksLoading = false
		s.mu.Unlock()
		return
	}
	s.mu.Lock()
	s.booksLoading = true
	s.mu.Unlock()

	books, err := s.client.Books(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.booksLoading = false
	if err != nil {
		s.booksErr = err
		return
	}
	s.booksErr = nil
	s.setBooksLocked(books)
}

// RefetchUsers replaces the roster; same error discipline as RefetchBooks.
func (s *Store) RefetchUsers(ctx context.Context) {
	if !s.session.HasCredential() {
		s.mu.Lock()
		s.usersLoading = false
		s.mu.Unlock()
		return
	}
	s.mu.Lock()
	s.usersLoading = true
	s.mu.Unlock()

	users, err := s.client.Users(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.usersLoading = false
	if err != nil {
		s.usersErr = err
		return
	}
	s.usersErr = nil
	s.users = users
	s.usersByID = make(map[string]User, len(users))
	for _, u := range users {
		s.usersByID[u.ID] = u
	}
}

// RefetchBorrowRecords replaces the borrow collection. The client already
// maps a 404 to an empty result, so "no records yet" is not an error here.
func (s *Store) RefetchBorrowRecords(ctx context.Context) {
	if !s.session.HasCredential() {
		s.mu.Lock()
		s.recordsLoading = false
		s.mu.Unlock()
		return
	}
	s.mu.Lock()
	s.recordsLoading = true
	s.mu.Unlock()

	records, err := s.client.BorrowRecords(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordsLoading = false
	if err != nil {
		s.recordsErr = err
		return
	}
	s.recordsErr = nil
	s.records = records
}

// RefetchNotifications replaces the notification collection for userID.
func (s *Store) RefetchNotifications(ctx context.Context, userID string) {
	if !s.session.HasCredential() {
		s.mu.Lock()
		s.notificationsLoading = false
		s.mu.Unlock()
		return
	}
	s.mu.Lock()
	s.notificationsLoading = true
	s.mu.Unlock()

	notifications, err := s.client.Notifications(ctx, userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.notificationsLoading = false
	if err != nil {
		s.notificationsErr = err
		return
	}
	s.notificationsErr = nil
	s.notifications = notifications
}

// setBooksLocked replaces the catalog and rebuilds the id index. Caller holds
// the write lock.
func (s *Store) setBooksLocked(books []Book) {
	s.books = books
	s.booksByID = make(map[string]Book, len(books))
	for _, b := range books {
		s.booksByID[b.ID] = b
	}
}

// Books returns a snapshot of the catalog with its loading flag and last
// error.
func (s *Store) Books() ([]Book, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Book, len(s.books))
	copy(out, s.books)
	return out, s.booksLoading, s.booksErr
}

// Users returns a snapshot of the roster.
func (s *Store) Users() ([]User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, len(s.users))
	copy(out, s.users)
	return out, s.usersLoading, s.usersErr
}

// BorrowRecords returns a snapshot of the borrow collection.
func (s *Store) BorrowRecords() ([]BorrowRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]BorrowRecord, len(s.records))
	copy(out, s.records)
	return out, s.recordsLoading, s.recordsErr
}

// Notifications returns a snapshot of the notification collection.
func (s *Store) Notifications() ([]Notification, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Notification, len(s.notifications))
	copy(out, s.notifications)
	return out, s.notificationsLoading, s.notificationsErr
}

// BookByID looks up a book in the current catalog.
func (s *Store) BookByID(id string) (Book, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.booksByID[id]
	return b, ok
}

// UserByID looks up a user in the current roster.
func (s *Store) UserByID(id string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.usersByID[id]
	return u, ok
}

// UserBorrowRecords filters the current borrow collection by user. It is
// recomputed from current state on every call, so in-flight mutations are
// visible immediately.
func (s *Store) UserBorrowRecords(userID string) []BorrowRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []BorrowRecord
	for _, r := range s.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out
}

// MarkNotificationRead flags one notification read remotely, then mirrors the
// updated notification locally.
func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	updated, err := s.client.MarkNotificationRead(ctx, id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == updated.ID {
			s.notifications[i] = *updated
			break
		}
	}
	return nil
}

// MarkAllNotificationsRead flags every notification read remotely and
// locally, reporting how many the server updated.
func (s *Store) MarkAllNotificationsRead(ctx context.Context) (int, error) {
	count, err := s.client.MarkAllNotificationsRead(ctx)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		s.notifications[i].Read = true
	}
	return count, nil
}

// CreateBook adds a catalog entry remotely, then refetches the catalog so the
// cache reflects the server's view of the new entry.
func (s *Store) CreateBook(ctx context.Context, form BookForm) (*Book, error) {
	book, err := s.client.CreateBook(ctx, form)
	if err != nil {
		return nil, err
	}
	s.RefetchBooks(ctx)
	return book, nil
}

// UpdateBook edits a catalog entry remotely, then refetches the catalog.
func (s *Store) UpdateBook(ctx context.Context, id string, form BookForm) (*Book, error) {
	book, err := s.client.UpdateBook(ctx, id, form)
	if err != nil {
		return nil, err
	}
	s.RefetchBooks(ctx)
	return book, nil
}

// Stats computes the dashboard aggregate from current state using the status
// resolver; nothing here is persisted.
func (s *Store) Stats(now time.Time) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		TotalBooks: len(s.books),
		TotalUsers: len(s.users),
	}

	counts := map[string]int{}
	for i := range s.records {
		r := &s.records[i]
		counts[r.BookID]++
		switch ResolveStatus(r, now) {
		case StatusOverdue:
			st.OverdueBooks++
			st.ActiveBorrows++
		case StatusReserved, StatusBorrowed, StatusDueSoon:
			st.ActiveBorrows++
		}
	}

	for bookID, n := range counts {
		st.MostBorrowedBooks = append(st.MostBorrowedBooks, BookBorrowCount{BookID: bookID, Count: n})
	}
	sort.Slice(st.MostBorrowedBooks, func(i, j int) bool {
		a, b := st.MostBorrowedBooks[i], st.MostBorrowedBooks[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.BookID < b.BookID
	})
	if len(st.MostBorrowedBooks) > 5 {
		st.MostBorrowedBooks = st.MostBorrowedBooks[:5]
	}

	return st
}
