// Package access holds the authorization decisions, kept free of HTTP
// so they can be tested in isolation.
package access

import (
	"errors"

	"github.com/AndtsI4/CyberForum/internal/models"
)

var (
	// ErrAuthRequired means no authenticated identity was presented.
	ErrAuthRequired = errors.New("authentication required")
	// ErrForbidden means the identity is authenticated but not allowed.
	ErrForbidden = errors.New("forbidden")
)

// Identity is the acting principal resolved from a session. The zero
// value is an anonymous visitor.
type Identity struct {
	UserID        int64
	IsAdmin       bool
	Authenticated bool
}

// CanMutate reports whether id may update or delete the post: the
// author may, and any admin may.
func CanMutate(post *models.Post, id Identity) bool {
	if !id.Authenticated {
		return false
	}
	return id.UserID == post.UserID || id.IsAdmin
}

// RequireMutate turns a CanMutate denial into the right error:
// AuthRequired for anonymous callers, Forbidden otherwise.
func RequireMutate(post *models.Post, id Identity) error {
	if !id.Authenticated {
		return ErrAuthRequired
	}
	if !CanMutate(post, id) {
		return ErrForbidden
	}
	return nil
}

// RequireAdmin gates moderation views.
func RequireAdmin(id Identity) error {
	if !id.Authenticated {
		return ErrAuthRequired
	}
	if !id.IsAdmin {
		return ErrForbidden
	}
	return nil
}
