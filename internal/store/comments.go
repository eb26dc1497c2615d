package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/AndtsI4/CyberForum/internal/access"
	"github.com/AndtsI4/CyberForum/internal/models"
)

// CreateComment attaches a comment to a post. Anonymous callers are
// rejected before anything touches the database.
func (s *Store) CreateComment(ctx context.Context, postID int64, id access.Identity, content string) (*models.Comment, error) {
	if !id.Authenticated {
		return nil, ErrAuthRequired
	}
	content = strings.TrimSpace(content)
	if err := validateCommentContent(content); err != nil {
		return nil, err
	}

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE id=?`, postID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}

	c := &models.Comment{
		PostID:     postID,
		UserID:     id.UserID,
		Content:    content,
		DatePosted: s.now(),
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO comments(post_id,user_id,content,date_posted) VALUES(?,?,?,?)`,
		c.PostID, c.UserID, c.Content, c.DatePosted)
	if err != nil {
		return nil, err
	}
	c.ID, _ = res.LastInsertId()
	return c, nil
}

// CommentsForPost returns a post's comments oldest first.
func (s *Store) CommentsForPost(ctx context.Context, postID int64) ([]models.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT c.id, c.post_id, c.user_id, c.content, c.date_posted, u.username
		FROM comments c JOIN users u ON u.id=c.user_id WHERE c.post_id=? ORDER BY c.date_posted`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Content, &c.DatePosted, &c.Author); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
