package store

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/AndtsI4/CyberForum/internal/models"
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func validateUsername(u string) error {
	if n := utf8.RuneCountInString(u); n < 4 || n > 20 {
		return &ValidationError{Field: "username", Message: "must be 4-20 characters"}
	}
	return nil
}

func validateEmail(e string) error {
	if !emailRe.MatchString(e) {
		return &ValidationError{Field: "email", Message: "invalid email address"}
	}
	return nil
}

func validatePassword(pw string) error {
	if n := utf8.RuneCountInString(pw); n < 8 || n > 20 {
		return &ValidationError{Field: "password", Message: "must be 8-20 characters"}
	}
	return nil
}

func validateBio(bio string) error {
	if utf8.RuneCountInString(bio) > 200 {
		return &ValidationError{Field: "bio", Message: "must be at most 200 characters"}
	}
	return nil
}

func validateTitle(t string) error {
	if strings.TrimSpace(t) == "" {
		return &ValidationError{Field: "title", Message: "required"}
	}
	if utf8.RuneCountInString(t) > 100 {
		return &ValidationError{Field: "title", Message: "must be at most 100 characters"}
	}
	return nil
}

func validatePostContent(c string) error {
	if strings.TrimSpace(c) == "" {
		return &ValidationError{Field: "content", Message: "required"}
	}
	return nil
}

func validateCategory(c string) error {
	if !models.ValidCategory(c) {
		return &ValidationError{Field: "category", Message: "unknown category"}
	}
	return nil
}

func validateCommentContent(c string) error {
	if n := utf8.RuneCountInString(strings.TrimSpace(c)); n < 2 || n > 500 {
		return &ValidationError{Field: "content", Message: "must be 2-500 characters"}
	}
	return nil
}
