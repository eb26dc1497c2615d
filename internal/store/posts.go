package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/AndtsI4/CyberForum/internal/access"
	"github.com/AndtsI4/CyberForum/internal/models"
)

func (s *Store) CreatePost(ctx context.Context, authorID int64, title, content, category, imageFile string) (*models.Post, error) {
	title = strings.TrimSpace(title)
	if category == "" {
		category = models.DefaultCategory
	}

	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if err := validatePostContent(content); err != nil {
		return nil, err
	}
	if err := validateCategory(category); err != nil {
		return nil, err
	}

	p := &models.Post{
		UserID:     authorID,
		Title:      title,
		Content:    content,
		Category:   category,
		ImageFile:  imageFile,
		DatePosted: s.now(),
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO posts(user_id,title,content,category,image_file,views,date_posted)
		VALUES(?,?,?,?,?,0,?)`,
		p.UserID, p.Title, p.Content, p.Category, nullable(p.ImageFile), p.DatePosted)
	if err != nil {
		return nil, err
	}
	p.ID, _ = res.LastInsertId()
	return p, nil
}

// UpdatePost edits title, content, category and optionally the image.
// Only the author or an admin may edit; updated_at records the edit.
func (s *Store) UpdatePost(ctx context.Context, postID int64, id access.Identity, title, content, category, imageFile string) (*models.Post, error) {
	post, err := s.PostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireMutate(post, id); err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	if category == "" {
		category = post.Category
	}
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if err := validatePostContent(content); err != nil {
		return nil, err
	}
	if err := validateCategory(category); err != nil {
		return nil, err
	}

	now := s.now()
	q := `UPDATE posts SET title=?, content=?, category=?, updated_at=? WHERE id=?`
	args := []any{title, content, category, now, postID}
	if imageFile != "" {
		q = `UPDATE posts SET title=?, content=?, category=?, image_file=?, updated_at=? WHERE id=?`
		args = []any{title, content, category, imageFile, now, postID}
	}
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return nil, err
	}

	post.Title = title
	post.Content = content
	post.Category = category
	if imageFile != "" {
		post.ImageFile = imageFile
	}
	post.UpdatedAt = &now
	return post, nil
}

// DeletePost removes the post with its comments and likes in one
// transaction, gated by the same author-or-admin rule.
func (s *Store) DeletePost(ctx context.Context, postID int64, id access.Identity) error {
	post, err := s.PostByID(ctx, postID)
	if err != nil {
		return err
	}
	if err := access.RequireMutate(post, id); err != nil {
		return err
	}

	return s.withTx(ctx, "delete post", func(tx *sql.Tx) error {
		for _, q := range []string{
			`DELETE FROM comments WHERE post_id=?`,
			`DELETE FROM post_likes WHERE post_id=?`,
			`DELETE FROM posts WHERE id=?`,
		} {
			if _, err := tx.ExecContext(ctx, q, postID); err != nil {
				return &TransactionError{Op: "delete post", Err: err}
			}
		}
		return nil
	})
}

const postCols = `p.id, p.user_id, p.title, p.content, p.category, p.image_file, p.views, p.date_posted, p.updated_at, u.username,
	(SELECT COUNT(*) FROM post_likes l WHERE l.post_id=p.id),
	(SELECT COUNT(*) FROM comments c WHERE c.post_id=p.id)`

func (s *Store) PostByID(ctx context.Context, id int64) (*models.Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postCols+` FROM posts p JOIN users u ON u.id=p.user_id WHERE p.id=?`, id)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return p, nil
}

// PostFilter narrows ListPosts. Zero values mean "no filter".
type PostFilter struct {
	Query    string // substring over title or content
	Category string
	AuthorID int64
	LikedBy  int64
	Offset   int
	Limit    int
}

// ListPosts returns posts newest first.
func (s *Store) ListPosts(ctx context.Context, f PostFilter) ([]models.Post, error) {
	q := `SELECT ` + postCols + ` FROM posts p JOIN users u ON u.id=p.user_id`
	var wheres []string
	var args []any

	if f.Query != "" {
		wheres = append(wheres, `(p.title LIKE ? OR p.content LIKE ?)`)
		pat := "%" + f.Query + "%"
		args = append(args, pat, pat)
	}
	if f.Category != "" {
		wheres = append(wheres, `p.category = ?`)
		args = append(args, f.Category)
	}
	if f.AuthorID != 0 {
		wheres = append(wheres, `p.user_id = ?`)
		args = append(args, f.AuthorID)
	}
	if f.LikedBy != 0 {
		wheres = append(wheres, `p.id IN (SELECT post_id FROM post_likes WHERE user_id=?)`)
		args = append(args, f.LikedBy)
	}

	if len(wheres) > 0 {
		q += " WHERE " + strings.Join(wheres, " AND ")
	}
	q += " ORDER BY p.date_posted DESC"
	if f.Limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(r rowScanner) (*models.Post, error) {
	var p models.Post
	var image sql.NullString
	var updated sql.NullTime
	err := r.Scan(&p.ID, &p.UserID, &p.Title, &p.Content, &p.Category, &image, &p.Views, &p.DatePosted, &updated, &p.Author, &p.Likes, &p.CommentCount)
	if err != nil {
		return nil, err
	}
	p.ImageFile = image.String
	if updated.Valid {
		t := updated.Time
		p.UpdatedAt = &t
	}
	return &p, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
