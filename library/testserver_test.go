package library_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"library-portal/library"
)

// fakeAPI is a minimal stateful collaborator for store and borrow tests:
// enough of the real endpoint semantics (availability decrement on reserve,
// 404 on empty lists, JSON error bodies) to drive the client end to end.
type fakeAPI struct {
	srv *httptest.Server

	mu        sync.Mutex
	books     map[string]*library.Book
	records   map[string]*library.BorrowRecord
	nextID    int
	failBooks bool
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{
		books:   map[string]*library.Book{},
		records: map[string]*library.BorrowRecord{},
	}

	r := mux.NewRouter()
	r.HandleFunc("/books", f.listBooks).Methods("GET")
	r.HandleFunc("/borrows", f.listBorrows).Methods("GET")
	r.HandleFunc("/borrows/{bookId}/reserve", f.reserve).Methods("POST")
	r.HandleFunc("/borrows/{id}/pickup", f.pickup).Methods("POST")
	r.HandleFunc("/borrows/{id}/return", f.confirmReturn).Methods("POST")
	r.HandleFunc("/notifications", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "No notifications found")
	}).Methods("GET")
	r.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusOK, []library.User{})
	}).Methods("GET")

	f.srv = httptest.NewServer(r)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) addBook(id, title string, total, available int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.books[id] = &library.Book{
		ID:              id,
		Title:           title,
		Author:          "Test Author",
		TotalCopies:     total,
		AvailableCopies: available,
	}
}

func (f *fakeAPI) setFailBooks(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failBooks = fail
}

func (f *fakeAPI) listBooks(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failBooks {
		writeError(w, http.StatusInternalServerError, "catalog unavailable")
		return
	}
	books := make([]*library.Book, 0, len(f.books))
	for _, b := range f.books {
		books = append(books, b)
	}
	writeBody(w, http.StatusOK, books)
}

func (f *fakeAPI) listBorrows(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.records) == 0 {
		writeError(w, http.StatusNotFound, "No borrow records found")
		return
	}
	records := make([]*library.BorrowRecord, 0, len(f.records))
	for _, rec := range f.records {
		records = append(records, rec)
	}
	writeBody(w, http.StatusOK, records)
}

func (f *fakeAPI) reserve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	book, ok := f.books[mux.Vars(r)["bookId"]]
	if !ok {
		writeError(w, http.StatusNotFound, "Book not found")
		return
	}
	if book.AvailableCopies <= 0 {
		writeError(w, http.StatusConflict, "No copies available")
		return
	}
	f.nextID++
	now := time.Now().UTC()
	rec := &library.BorrowRecord{
		ID:                   "r" + strconv.Itoa(f.nextID),
		BookID:               book.ID,
		UserID:               "u1",
		Status:               library.StatusReserved,
		ReservedAt:           now,
		ReservationExpiresAt: now.Add(library.ReservationWindow),
	}
	f.records[rec.ID] = rec
	book.AvailableCopies--
	writeBody(w, http.StatusCreated, rec)
}

func (f *fakeAPI) pickup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LoanDurationDays int `json:"loanDurationDays"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[mux.Vars(r)["id"]]
	if !ok {
		writeError(w, http.StatusNotFound, "Borrow record not found")
		return
	}
	now := time.Now().UTC()
	due := now.AddDate(0, 0, req.LoanDurationDays)
	rec.Status = library.StatusBorrowed
	rec.PickupDate = &now
	rec.DueDate = &due
	writeBody(w, http.StatusOK, rec)
}

func (f *fakeAPI) confirmReturn(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[mux.Vars(r)["id"]]
	if !ok {
		writeError(w, http.StatusNotFound, "Borrow record not found")
		return
	}
	now := time.Now().UTC()
	rec.Status = library.StatusReturned
	rec.ReturnDate = &now
	if book, ok := f.books[rec.BookID]; ok && book.AvailableCopies < book.TotalCopies {
		book.AvailableCopies++
	}
	writeBody(w, http.StatusOK, rec)
}

func writeBody(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"message": msg})
}

// newTestSession opens a throwaway session store.
func newTestSession(t *testing.T) *library.Session {
	t.Helper()
	s, err := library.NewSession(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// newAuthedSession opens a session that already holds a credential, so store
// fetches are not skipped.
func newAuthedSession(t *testing.T) *library.Session {
	t.Helper()
	s := newTestSession(t)
	u := &library.User{ID: "u1", Email: "u1@example.com", Name: "Test User", Role: library.RoleClient, IsActive: true}
	require.NoError(t, s.SaveCredentials(u, "test-token"))
	return s
}
