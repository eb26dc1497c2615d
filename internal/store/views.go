package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
)

// maxViewedPosts bounds the per-session dedup set; past the bound the
// oldest entries fall off and those posts may count again.
const maxViewedPosts = 512

// ViewSet is the set of post ids a session has already viewed, kept in
// insertion order so eviction drops the oldest.
type ViewSet struct {
	ids []int64
}

// ParseViewSet decodes the comma-joined form stored on the session row.
// Malformed entries are skipped rather than failing the whole set.
func ParseViewSet(s string) ViewSet {
	var v ViewSet
	for _, part := range strings.Split(s, ",") {
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		v.ids = append(v.ids, id)
	}
	return v
}

func (v ViewSet) Encode() string {
	parts := make([]string, len(v.ids))
	for i, id := range v.ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func (v ViewSet) Contains(id int64) bool {
	for _, got := range v.ids {
		if got == id {
			return true
		}
	}
	return false
}

func (v ViewSet) Add(id int64) ViewSet {
	if v.Contains(id) {
		return v
	}
	ids := append(append([]int64(nil), v.ids...), id)
	if len(ids) > maxViewedPosts {
		ids = ids[len(ids)-maxViewedPosts:]
	}
	return ViewSet{ids: ids}
}

func (v ViewSet) Len() int { return len(v.ids) }

// RecordView counts one view of postID for the given session. The first
// view in a session increments posts.views and remembers the post id on
// the session row, both in one transaction; repeats are no-ops. Works
// identically for anonymous and logged-in sessions.
func (s *Store) RecordView(ctx context.Context, sessionID string, postID int64) (incremented bool, err error) {
	err = s.withTx(ctx, "record view", func(tx *sql.Tx) error {
		var raw string
		err := tx.QueryRowContext(ctx, `SELECT viewed_posts FROM sessions WHERE id=?`, sessionID).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		} else if err != nil {
			return &TransactionError{Op: "record view", Err: err}
		}

		seen := ParseViewSet(raw)
		if seen.Contains(postID) {
			return nil
		}

		res, err := tx.ExecContext(ctx, `UPDATE posts SET views=views+1 WHERE id=?`, postID)
		if err != nil {
			return &TransactionError{Op: "record view", Err: err}
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}

		if _, err := tx.ExecContext(ctx, `UPDATE sessions SET viewed_posts=? WHERE id=?`, seen.Add(postID).Encode(), sessionID); err != nil {
			return &TransactionError{Op: "record view", Err: err}
		}
		incremented = true
		return nil
	})
	return incremented, err
}
