package models

import "time"

type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Bio          string
	ImageFile    string
	IsAdmin      bool
	CreatedAt    time.Time
	LastSeen     time.Time
}

type Post struct {
	ID         int64
	UserID     int64
	Title      string
	Content    string
	Category   string
	ImageFile  string
	Views      int64
	DatePosted time.Time
	UpdatedAt  *time.Time

	// Populated on reads, not stored.
	Author       string
	Likes        int
	CommentCount int
}

type Comment struct {
	ID         int64
	PostID     int64
	UserID     int64
	Content    string
	DatePosted time.Time
	Author     string
}

const DefaultCategory = "General Discussion"

// Categories is the fixed set a post may belong to.
var Categories = []string{
	"Software Engineering",
	"Web Developing",
	"Exploiting",
	"Ethical Hacking",
	"Linux",
	"Cybersecurity",
	"Coding",
	"General Discussion",
	"Malware",
}

func ValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}
