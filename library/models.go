package library

import "time"

// UserRole distinguishes librarians (catalog and roster management) from
// clients (browsing and borrowing).
type UserRole string

const (
	RoleLibrarian UserRole = "librarian"
	RoleClient    UserRole = "client"
)

// BorrowStatus is the lifecycle state of a borrow record. StatusDueSoon and
// StatusOverdue are display-only: they are computed by ResolveStatus and never
// stored. StatusExpired is produced server-side when a reservation lapses.
type BorrowStatus string

const (
	StatusReserved BorrowStatus = "reserved"
	StatusBorrowed BorrowStatus = "borrowed"
	StatusDueSoon  BorrowStatus = "due_soon"
	StatusOverdue  BorrowStatus = "overdue"
	StatusReturned BorrowStatus = "returned"
	StatusExpired  BorrowStatus = "expired"
)

// ReservationWindow is how long a reserved book waits for pickup before the
// server expires the reservation.
const ReservationWindow = 48 * time.Hour

// DefaultLoanDurationDays is the loan duration applied at pickup when the
// caller does not choose one.
const DefaultLoanDurationDays = 14

// Book is one catalog entry. AvailableCopies is owned by the collaborator:
// reserve/return operations refetch the catalog rather than trusting a local
// decrement, so 0 <= AvailableCopies <= TotalCopies holds at all times.
type Book struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Category        string `json:"category"`
	ISBN            string `json:"isbn"`
	TotalCopies     int    `json:"totalCopies"`
	AvailableCopies int    `json:"availableCopies"`
	CoverImage      string `json:"coverImage,omitempty"`
	Description     string `json:"description,omitempty"`
	PublishedYear   int    `json:"publishedYear,omitempty"`
}

// User is a roster entry.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      UserRole  `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// BorrowRecord tracks one physical-copy loan from reservation through return.
// Optional dates are nil until the lifecycle reaches them.
type BorrowRecord struct {
	ID                   string       `json:"id"`
	BookID               string       `json:"bookId"`
	UserID               string       `json:"userId"`
	Status               BorrowStatus `json:"status"`
	ReservedAt           time.Time    `json:"reservedAt"`
	ReservationExpiresAt time.Time    `json:"reservationExpiresAt"`
	PickupDate           *time.Time   `json:"pickupDate,omitempty"`
	DueDate              *time.Time   `json:"dueDate,omitempty"`
	ReturnDate           *time.Time   `json:"returnDate,omitempty"`
}

// NotificationType classifies a notification for display.
type NotificationType string

const (
	NotifyInfo    NotificationType = "info"
	NotifyWarning NotificationType = "warning"
	NotifySuccess NotificationType = "success"
	NotifyError   NotificationType = "error"
)

// Notification is a per-user message created by the collaborator (or as a
// reservation side effect); the only client-side mutation is marking it read.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

// BookBorrowCount pairs a book with how often it was borrowed, for reports.
type BookBorrowCount struct {
	BookID string `json:"bookId"`
	Count  int    `json:"count"`
}

// Stats is the dashboard aggregate computed from current store state.
type Stats struct {
	TotalBooks        int               `json:"totalBooks"`
	TotalUsers        int               `json:"totalUsers"`
	ActiveBorrows     int               `json:"activeBorrows"`
	OverdueBooks      int               `json:"overdueBooks"`
	MostBorrowedBooks []BookBorrowCount `json:"mostBorrowedBooks"`
}
