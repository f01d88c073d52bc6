package library

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	_ "github.com/mattn/go-sqlite3"
)

// The two durable credential keys. Every remote call is gated on the token's
// presence; a missing token is a recognized non-error condition.
const (
	sessionKeyUser  = "library_user"
	sessionKeyToken = "library_token"
)

// Session persists the authentication credential (serialized user + bearer
// token) in a small SQLite key/value table so it survives restarts, and
// broadcasts a signal after every successful login so the store can
// repopulate itself.
type Session struct {
	db *sql.DB

	mu        sync.Mutex
	listeners []func()
}

// NewSession opens (or creates) the session database at dbPath.
func NewSession(dbPath string) (*Session, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create session dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS session (key TEXT PRIMARY KEY, value TEXT NOT NULL);`); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply session schema: %w", err)
	}

	return &Session{db: db}, nil
}

// Close closes the underlying database.
func (s *Session) Close() error { return s.db.Close() }

// OnLogin registers fn to run after every successful login or signup. The
// store subscribes here to refetch its collections once a credential exists.
func (s *Session) OnLogin(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Session) announceLogin() {
	s.mu.Lock()
	listeners := make([]func(), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// SaveCredentials stores the user and token, then fires the login signal.
func (s *Session) SaveCredentials(user *User, token string) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.set(sessionKeyUser, string(data)); err != nil {
		return err
	}
	if err := s.set(sessionKeyToken, token); err != nil {
		return err
	}
	s.announceLogin()
	return nil
}

// Clear removes the stored credential (logout).
func (s *Session) Clear() error {
	_, err := s.db.Exec(`DELETE FROM session WHERE key IN (?, ?)`, sessionKeyUser, sessionKeyToken)
	return err
}

// Token returns the stored bearer token, or "" when unauthenticated.
func (s *Session) Token() string {
	value, err := s.get(sessionKeyToken)
	if err != nil {
		return ""
	}
	return value
}

// User returns the stored user, or nil when unauthenticated.
func (s *Session) User() *User {
	value, err := s.get(sessionKeyUser)
	if err != nil || value == "" {
		return nil
	}
	var u User
	if err := json.Unmarshal([]byte(value), &u); err != nil {
		return nil
	}
	return &u
}

// HasCredential reports whether a token is stored. Fetches skip silently
// without one.
func (s *Session) HasCredential() bool { return s.Token() != "" }

// SwitchRole updates the stored user's role in place. Purely a session-side
// view change; the roster entry on the server is untouched.
func (s *Session) SwitchRole(role UserRole) error {
	u := s.User()
	if u == nil {
		return fmt.Errorf("no active session")
	}
	u.Role = role
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return s.set(sessionKeyUser, string(data))
}

// TokenExpiry inspects the stored token's exp claim without verifying the
// signature (the client holds no signing secret). Returns the zero time when
// no token is stored or the token carries no expiry.
func (s *Session) TokenExpiry() time.Time {
	tok := s.Token()
	if tok == "" {
		return time.Time{}
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

func (s *Session) set(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO session(key,value) VALUES(?,?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, key, value)
	return err
}

func (s *Session) get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM session WHERE key=?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}
