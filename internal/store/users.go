package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/AndtsI4/CyberForum/internal/models"
)

// Register creates a user. The very first user ever inserted becomes
// the admin; the count and the insert happen in the same transaction so
// two racing first registrations cannot both win.
func (s *Store) Register(ctx context.Context, username, email, password, bio string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if err := validateBio(bio); err != nil {
		return nil, err
	}

	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}

	u := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Bio:          bio,
		ImageFile:    "default.jpg",
		CreatedAt:    s.now(),
		LastSeen:     s.now(),
	}

	err = s.withTx(ctx, "register", func(tx *sql.Tx) error {
		if err := checkTaken(ctx, tx, "username", username, 0); err != nil {
			return err
		}
		if err := checkTaken(ctx, tx, "email", email, 0); err != nil {
			return err
		}

		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
			return &TransactionError{Op: "register", Err: err}
		}
		u.IsAdmin = count == 0

		res, err := tx.ExecContext(ctx, `INSERT INTO users(username,email,password_hash,bio,image_file,is_admin,created_at,last_seen)
			VALUES(?,?,?,?,?,?,?,?)`,
			u.Username, u.Email, u.PasswordHash, u.Bio, u.ImageFile, u.IsAdmin, u.CreatedAt, u.LastSeen)
		if err != nil {
			return &TransactionError{Op: "register", Err: err}
		}
		u.ID, _ = res.LastInsertId()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate resolves an email/password pair to a user. Every failure
// mode returns the same ErrAuthFailure.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.userBy(ctx, "email", strings.TrimSpace(email))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrAuthFailure
	} else if err != nil {
		return nil, err
	}
	if !s.verify(u.PasswordHash, password) {
		return nil, ErrAuthFailure
	}
	return u, nil
}

// UpdateProfile changes username, email, bio and (when non-empty) the
// profile image. Uniqueness checks skip the user's own row so keeping a
// value unchanged is never a collision.
func (s *Store) UpdateProfile(ctx context.Context, userID int64, username, email, bio, imageFile string) error {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if err := validateUsername(username); err != nil {
		return err
	}
	if err := validateEmail(email); err != nil {
		return err
	}
	if err := validateBio(bio); err != nil {
		return err
	}

	return s.withTx(ctx, "update profile", func(tx *sql.Tx) error {
		if err := checkTaken(ctx, tx, "username", username, userID); err != nil {
			return err
		}
		if err := checkTaken(ctx, tx, "email", email, userID); err != nil {
			return err
		}

		q := `UPDATE users SET username=?, email=?, bio=? WHERE id=?`
		args := []any{username, email, bio, userID}
		if imageFile != "" {
			q = `UPDATE users SET username=?, email=?, bio=?, image_file=? WHERE id=?`
			args = []any{username, email, bio, imageFile, userID}
		}
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return &TransactionError{Op: "update profile", Err: err}
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// TouchLastSeen marks the user active; called on every authenticated
// request.
func (s *Store) TouchLastSeen(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET last_seen=? WHERE id=?`, s.now(), userID)
	return err
}

// DeleteUser removes the user and everything hanging off them: their
// likes, their comments, comments and likes on their posts, their
// posts and their sessions. Children go before parents, one commit.
func (s *Store) DeleteUser(ctx context.Context, userID int64) error {
	return s.withTx(ctx, "delete user", func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id=?`, userID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		} else if err != nil {
			return &TransactionError{Op: "delete user", Err: err}
		}

		stmts := []string{
			`DELETE FROM comments WHERE post_id IN (SELECT id FROM posts WHERE user_id=?)`,
			`DELETE FROM post_likes WHERE post_id IN (SELECT id FROM posts WHERE user_id=?)`,
			`DELETE FROM comments WHERE user_id=?`,
			`DELETE FROM post_likes WHERE user_id=?`,
			`DELETE FROM posts WHERE user_id=?`,
			`DELETE FROM sessions WHERE user_id=?`,
			`DELETE FROM users WHERE id=?`,
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q, userID); err != nil {
				return &TransactionError{Op: "delete user", Err: err}
			}
		}
		return nil
	})
}

func (s *Store) UserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.userBy(ctx, "id", id)
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.userBy(ctx, "username", username)
}

func (s *Store) userBy(ctx context.Context, col string, val any) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `SELECT id,username,email,password_hash,bio,image_file,is_admin,created_at,last_seen
		FROM users WHERE `+col+`=?`, val).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Bio, &u.ImageFile, &u.IsAdmin, &u.CreatedAt, &u.LastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns all users, oldest first. Admin panel only.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,username,email,password_hash,bio,image_file,is_admin,created_at,last_seen
		FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Bio, &u.ImageFile, &u.IsAdmin, &u.CreatedAt, &u.LastSeen); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// PostCount feeds rank derivation.
func (s *Store) PostCount(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE user_id=?`, userID).Scan(&n)
	return n, err
}

func checkTaken(ctx context.Context, tx *sql.Tx, field, value string, selfID int64) error {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE `+field+`=?`, value).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	} else if err != nil {
		return err
	}
	if id == selfID {
		return nil
	}
	return &DuplicateError{Field: field}
}
