package store

import (
	"context"
	"database/sql"
	"errors"
)

// ToggleLike flips the (user, post) like relation and reports the new
// state. The read and the write share one transaction so two racing
// toggles cannot double-insert.
func (s *Store) ToggleLike(ctx context.Context, userID, postID int64) (liked bool, err error) {
	err = s.withTx(ctx, "toggle like", func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE id=?`, postID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		} else if err != nil {
			return &TransactionError{Op: "toggle like", Err: err}
		}

		err = tx.QueryRowContext(ctx, `SELECT 1 FROM post_likes WHERE user_id=? AND post_id=?`, userID, postID).Scan(&exists)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := tx.ExecContext(ctx, `INSERT INTO post_likes(user_id,post_id) VALUES(?,?)`, userID, postID); err != nil {
				return &TransactionError{Op: "toggle like", Err: err}
			}
			liked = true
		case err != nil:
			return &TransactionError{Op: "toggle like", Err: err}
		default:
			if _, err := tx.ExecContext(ctx, `DELETE FROM post_likes WHERE user_id=? AND post_id=?`, userID, postID); err != nil {
				return &TransactionError{Op: "toggle like", Err: err}
			}
			liked = false
		}
		return nil
	})
	return liked, err
}

// LikeCount is the cardinality of the relation for one post; there is
// no stored counter to drift from it.
func (s *Store) LikeCount(ctx context.Context, postID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM post_likes WHERE post_id=?`, postID).Scan(&n)
	return n, err
}

// Likes reports whether the user currently likes the post.
func (s *Store) Likes(ctx context.Context, userID, postID int64) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM post_likes WHERE user_id=? AND post_id=?`, userID, postID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}
