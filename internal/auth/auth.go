package auth

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const sessionCookie = "forum_session"

// Session is one browsing session. UserID is zero for anonymous
// visitors; they still get a session so view dedup works for them.
type Session struct {
	ID     string
	UserID int64
}

type Manager struct {
	db     *sql.DB
	maxAge time.Duration
}

func NewManager(db *sql.DB, maxAge time.Duration) *Manager {
	return &Manager{db: db, maxAge: maxAge}
}

// Ensure returns the request's session, creating an anonymous one (and
// setting the cookie) if none exists or it expired.
func (m *Manager) Ensure(w http.ResponseWriter, r *http.Request) (Session, error) {
	if s, ok := m.Current(r); ok {
		return s, nil
	}

	id := uuid.New().String()
	expires := time.Now().Add(m.maxAge)
	_, err := m.db.Exec(`INSERT INTO sessions(id,user_id,viewed_posts,expires_at) VALUES(?,NULL,'',?)`, id, expires)
	if err != nil {
		return Session{}, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
	return Session{ID: id}, nil
}

// Login binds a user to the session, dropping the user's other
// sessions first so only one login is active at a time.
func (m *Manager) Login(sessionID string, userID int64) error {
	if _, err := m.db.Exec(`DELETE FROM sessions WHERE user_id = ? AND id != ?`, userID, sessionID); err != nil {
		return err
	}
	_, err := m.db.Exec(`UPDATE sessions SET user_id = ? WHERE id = ?`, userID, sessionID)
	return err
}

// Logout detaches the user but keeps the session row, so the viewed
// set survives and the visitor keeps deduping anonymously.
func (m *Manager) Logout(r *http.Request) error {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	_, err = m.db.Exec(`UPDATE sessions SET user_id = NULL WHERE id = ?`, c.Value)
	return err
}

func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) {
	c, _ := r.Cookie(sessionCookie)
	if c != nil && c.Value != "" {
		m.db.Exec(`DELETE FROM sessions WHERE id = ?`, c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
	})
}

// Current resolves the request's session if present and unexpired.
func (m *Manager) Current(r *http.Request) (Session, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return Session{}, false
	}
	var uid sql.NullInt64
	var exp time.Time
	err = m.db.QueryRow(`SELECT user_id, expires_at FROM sessions WHERE id = ?`, c.Value).Scan(&uid, &exp)
	if err != nil || time.Now().After(exp) {
		return Session{}, false
	}
	return Session{ID: c.Value, UserID: uid.Int64}, true
}
