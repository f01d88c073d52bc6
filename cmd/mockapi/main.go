// mockapi is an in-memory stand-in for the library collaborator service. It
// implements the endpoint surface the client consumes (auth, books, users,
// borrows, notifications) with seeded data, real JWTs and bcrypt-verified
// passwords, so the CLI can be exercised without the production backend.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"library-portal/library"
)

type claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

type server struct {
	secret []byte

	mu            sync.Mutex
	books         map[string]*library.Book
	users         map[string]*library.User
	passwords     map[string]string // user id -> bcrypt hash
	records       map[string]*library.BorrowRecord
	notifications map[string]*library.Notification
}

func main() {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "mockapi-dev-secret"
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	s := &server{
		secret:        []byte(secret),
		books:         map[string]*library.Book{},
		users:         map[string]*library.User{},
		passwords:     map[string]string{},
		records:       map[string]*library.BorrowRecord{},
		notifications: map[string]*library.Notification{},
	}
	s.seed()

	r := mux.NewRouter()
	r.HandleFunc("/auth/login", s.login).Methods("POST")
	r.HandleFunc("/auth/signup", s.signup).Methods("POST")

	authed := r.NewRoute().Subrouter()
	authed.Use(s.authMiddleware)
	authed.HandleFunc("/books", s.listBooks).Methods("GET")
	authed.HandleFunc("/books", s.createBook).Methods("POST")
	authed.HandleFunc("/books/{id}", s.getBook).Methods("GET")
	authed.HandleFunc("/books/{id}", s.updateBook).Methods("PUT")
	authed.HandleFunc("/users", s.listUsers).Methods("GET")
	authed.HandleFunc("/users/{id}", s.getUser).Methods("GET")
	authed.HandleFunc("/borrows", s.listBorrows).Methods("GET")
	authed.HandleFunc("/borrows/history", s.borrowHistory).Methods("GET")
	authed.HandleFunc("/borrows/{id}", s.getBorrow).Methods("GET")
	authed.HandleFunc("/borrows/{bookId}/reserve", s.reserve).Methods("POST")
	authed.HandleFunc("/borrows/{id}/pickup", s.pickup).Methods("POST")
	authed.HandleFunc("/borrows/{id}/return", s.confirmReturn).Methods("POST")
	authed.HandleFunc("/notifications", s.listNotifications).Methods("GET")
	authed.HandleFunc("/notifications/read-all", s.markAllRead).Methods("PATCH")
	authed.HandleFunc("/notifications/{id}/read", s.markRead).Methods("PATCH")

	log.Println("mockapi listening on port", port)
	log.Fatal(http.ListenAndServe(":"+port, r))
}

// seed loads the demo catalog and two accounts: a librarian
// (admin@library.local / admin123) and a client (emma@library.local /
// reading123).
func (s *server) seed() {
	seedBooks := []library.Book{
		{Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", Category: "Classic Literature", ISBN: "978-0-7432-7356-5", TotalCopies: 5, AvailableCopies: 5, PublishedYear: 1925},
		{Title: "To Kill a Mockingbird", Author: "Harper Lee", Category: "Classic Literature", ISBN: "978-0-06-112008-4", TotalCopies: 4, AvailableCopies: 4, PublishedYear: 1960},
		{Title: "Clean Code", Author: "Robert C. Martin", Category: "Technology", ISBN: "978-0-13-235088-4", TotalCopies: 3, AvailableCopies: 3, PublishedYear: 2008},
		{Title: "Atomic Habits", Author: "James Clear", Category: "Self-Help", ISBN: "978-0-7352-1129-2", TotalCopies: 6, AvailableCopies: 6, PublishedYear: 2018},
		{Title: "Sapiens", Author: "Yuval Noah Harari", Category: "Non-Fiction", ISBN: "978-0-06-231609-7", TotalCopies: 5, AvailableCopies: 5, PublishedYear: 2011},
		{Title: "Dune", Author: "Frank Herbert", Category: "Science Fiction", ISBN: "978-0-441-17271-9", TotalCopies: 3, AvailableCopies: 3, PublishedYear: 1965},
	}
	for i := range seedBooks {
		b := seedBooks[i]
		b.ID = uuid.NewString()
		s.books[b.ID] = &b
	}

	s.addUser("Sarah the Librarian", "admin@library.local", "admin123", library.RoleLibrarian)
	s.addUser("Emma Wilson", "emma@library.local", "reading123", library.RoleClient)
}

func (s *server) addUser(name, email, password string, role library.UserRole) *library.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash seed password: %v", err)
	}
	u := &library.User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		Role:      role,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	s.users[u.ID] = u
	s.passwords[u.ID] = string(hash)
	return u
}

func (s *server) signToken(userID string) (string, error) {
	c := &claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

func (s *server) parseToken(tokenStr string) (*claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if c, ok := token.Claims.(*claims); ok && token.Valid {
		return c, nil
	}
	return nil, errors.New("invalid token")
}

type contextKey string

const contextUserID contextKey = "user_id"

func contextWithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextUserID, id)
}

func userIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextUserID).(string)
	return id
}

func (s *server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			jsonError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		c, err := s.parseToken(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			jsonError(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		ctx := contextWithUserID(r.Context(), c.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"message": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid input", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if u.Email != req.Email {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(s.passwords[id]), []byte(req.Password)) != nil {
			break
		}
		token, err := s.signToken(id)
		if err != nil {
			jsonError(w, "Failed to issue token", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": u, "token": token})
		return
	}
	jsonError(w, "Invalid email or password", http.StatusUnauthorized)
}

func (s *server) signup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid input", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		jsonError(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == req.Email {
			jsonError(w, "Email already registered", http.StatusConflict)
			return
		}
	}
	u := s.addUser(req.Name, req.Email, req.Password, library.RoleClient)
	token, err := s.signToken(u.ID)
	if err != nil {
		jsonError(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":    u,
		"token":   token,
		"message": "Welcome to the library!",
	})
}

// ---------------------------------------------------------------------------
// Books
// ---------------------------------------------------------------------------

func (s *server) listBooks(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	books := make([]*library.Book, 0, len(s.books))
	for _, b := range s.books {
		books = append(books, b)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Title < books[j].Title })
	writeJSON(w, http.StatusOK, books)
}

func (s *server) getBook(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[mux.Vars(r)["id"]]
	if !ok {
		jsonError(w, "Book not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *server) createBook(w http.ResponseWriter, r *http.Request) {
	b, errMsg := bookFromForm(r, &library.Book{ID: uuid.NewString()})
	if errMsg != "" {
		jsonError(w, errMsg, http.StatusBadRequest)
		return
	}
	b.AvailableCopies = b.TotalCopies

	s.mu.Lock()
	s.books[b.ID] = b
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, b)
}

func (s *server) updateBook(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.books[mux.Vars(r)["id"]]
	if !ok {
		jsonError(w, "Book not found", http.StatusNotFound)
		return
	}
	borrowed := existing.TotalCopies - existing.AvailableCopies
	b, errMsg := bookFromForm(r, existing)
	if errMsg != "" {
		jsonError(w, errMsg, http.StatusBadRequest)
		return
	}
	b.AvailableCopies = b.TotalCopies - borrowed
	if b.AvailableCopies < 0 {
		b.AvailableCopies = 0
	}
	writeJSON(w, http.StatusOK, b)
}

func bookFromForm(r *http.Request, b *library.Book) (*library.Book, string) {
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		return nil, "Invalid form data"
	}
	b.Title = r.FormValue("title")
	b.Author = r.FormValue("author")
	b.Category = r.FormValue("category")
	b.ISBN = r.FormValue("isbn")
	b.Description = r.FormValue("description")
	if b.Title == "" || b.Author == "" {
		return nil, "Title and author are required"
	}
	copies, err := strconv.Atoi(r.FormValue("totalCopies"))
	if err != nil || copies < 0 {
		return nil, "Invalid totalCopies"
	}
	b.TotalCopies = copies
	if v := r.FormValue("publishedYear"); v != "" {
		if year, err := strconv.Atoi(v); err == nil {
			b.PublishedYear = year
		}
	}
	if _, header, err := r.FormFile("coverImage"); err == nil {
		b.CoverImage = "/covers/" + header.Filename
	}
	return b, ""
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func (s *server) listUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]*library.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	writeJSON(w, http.StatusOK, users)
}

func (s *server) getUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[mux.Vars(r)["id"]]
	if !ok {
		jsonError(w, "User not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// ---------------------------------------------------------------------------
// Borrows
// ---------------------------------------------------------------------------

// visibleRecords returns the caller's records, or everything for librarians.
func (s *server) visibleRecords(userID string) []*library.BorrowRecord {
	caller := s.users[userID]
	var out []*library.BorrowRecord
	for _, rec := range s.records {
		if (caller != nil && caller.Role == library.RoleLibrarian) || rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReservedAt.Before(out[j].ReservedAt) })
	return out
}

func (s *server) listBorrows(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.visibleRecords(userIDFromContext(r.Context()))
	if len(records) == 0 {
		// Clients treat this as "no records yet", not an error.
		jsonError(w, "No borrow records found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *server) borrowHistory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.visibleRecords(userIDFromContext(r.Context()))

	filtered := records[:0]
	for _, rec := range records {
		if v := r.URL.Query().Get("from"); v != "" {
			if from, err := time.Parse(time.RFC3339, v); err == nil && rec.ReservedAt.Before(from) {
				continue
			}
		}
		if v := r.URL.Query().Get("to"); v != "" {
			if to, err := time.Parse(time.RFC3339, v); err == nil && rec.ReservedAt.After(to) {
				continue
			}
		}
		filtered = append(filtered, rec)
	}
	if filtered == nil {
		filtered = []*library.BorrowRecord{}
	}
	writeJSON(w, http.StatusOK, filtered)
}

func (s *server) getBorrow(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[mux.Vars(r)["id"]]
	if !ok {
		jsonError(w, "Borrow record not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *server) reserve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[mux.Vars(r)["bookId"]]
	if !ok {
		jsonError(w, "Book not found", http.StatusNotFound)
		return
	}
	if book.AvailableCopies <= 0 {
		jsonError(w, "No copies available", http.StatusConflict)
		return
	}

	userID := userIDFromContext(r.Context())
	now := time.Now().UTC()
	rec := &library.BorrowRecord{
		ID:                   uuid.NewString(),
		BookID:               book.ID,
		UserID:               userID,
		Status:               library.StatusReserved,
		ReservedAt:           now,
		ReservationExpiresAt: now.Add(library.ReservationWindow),
	}
	s.records[rec.ID] = rec
	book.AvailableCopies--

	n := &library.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     "Book Reserved",
		Message:   fmt.Sprintf("%s has been reserved. Please pick it up within 48 hours.", book.Title),
		Type:      library.NotifySuccess,
		CreatedAt: now,
	}
	s.notifications[n.ID] = n

	writeJSON(w, http.StatusCreated, rec)
}

func (s *server) pickup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LoanDurationDays int `json:"loanDurationDays"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid input", http.StatusBadRequest)
		return
	}
	if req.LoanDurationDays <= 0 {
		req.LoanDurationDays = library.DefaultLoanDurationDays
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[mux.Vars(r)["id"]]
	if !ok {
		jsonError(w, "Borrow record not found", http.StatusNotFound)
		return
	}
	if rec.Status != library.StatusReserved {
		jsonError(w, "Record is not reserved", http.StatusConflict)
		return
	}

	now := time.Now().UTC()
	due := now.AddDate(0, 0, req.LoanDurationDays)
	rec.Status = library.StatusBorrowed
	rec.PickupDate = &now
	rec.DueDate = &due
	writeJSON(w, http.StatusOK, rec)
}

func (s *server) confirmReturn(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[mux.Vars(r)["id"]]
	if !ok {
		jsonError(w, "Borrow record not found", http.StatusNotFound)
		return
	}
	if rec.Status == library.StatusReturned {
		jsonError(w, "Record already returned", http.StatusConflict)
		return
	}

	now := time.Now().UTC()
	rec.Status = library.StatusReturned
	rec.ReturnDate = &now
	if book, ok := s.books[rec.BookID]; ok && book.AvailableCopies < book.TotalCopies {
		book.AvailableCopies++
	}
	writeJSON(w, http.StatusOK, rec)
}

// ---------------------------------------------------------------------------
// Notifications
// ---------------------------------------------------------------------------

func (s *server) listNotifications(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		jsonError(w, "userId is required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*library.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		jsonError(w, "No notifications found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) markRead(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[mux.Vars(r)["id"]]
	if !ok {
		jsonError(w, "Notification not found", http.StatusNotFound)
		return
	}
	n.Read = true
	writeJSON(w, http.StatusOK, map[string]any{"notification": n})
}

func (s *server) markAllRead(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			count++
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}
