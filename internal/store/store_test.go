package store_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/AndtsI4/CyberForum/internal/access"
	"github.com/AndtsI4/CyberForum/internal/db"
	"github.com/AndtsI4/CyberForum/internal/models"
	"github.com/AndtsI4/CyberForum/internal/store"
)

func newTestStore(t *testing.T) (*store.Store, *sql.DB) {
	t.Helper()
	dbc, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { dbc.Close() })
	if err := db.Migrate(dbc); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store.New(dbc), dbc
}

const testPassword = "hunter2hunter2"

func mustRegister(t *testing.T, st *store.Store, username, email string) *models.User {
	t.Helper()
	u, err := st.Register(context.Background(), username, email, testPassword, "")
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return u
}

func mustPost(t *testing.T, st *store.Store, authorID int64, title string) *models.Post {
	t.Helper()
	p, err := st.CreatePost(context.Background(), authorID, title, "some content here", "", "")
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}

func newSession(t *testing.T, dbc *sql.DB, id string) {
	t.Helper()
	_, err := dbc.Exec(`INSERT INTO sessions(id,user_id,viewed_posts,expires_at) VALUES(?,NULL,'',?)`,
		id, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("insert session: %v", err)
	}
}

func count(t *testing.T, dbc *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	if err := dbc.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

// --- identity ---

func TestFirstUserBecomesAdmin(t *testing.T) {
	st, _ := newTestStore(t)

	first := mustRegister(t, st, "neo0001", "neo@example.com")
	if !first.IsAdmin {
		t.Error("first registered user should be admin")
	}

	second := mustRegister(t, st, "trinity", "trinity@example.com")
	if second.IsAdmin {
		t.Error("second registered user should not be admin")
	}
}

func TestRegisterDuplicateEmailCreatesNoRow(t *testing.T) {
	st, dbc := newTestStore(t)
	mustRegister(t, st, "neo0001", "neo@example.com")

	_, err := st.Register(context.Background(), "different", "neo@example.com", testPassword, "")
	var dup *store.DuplicateError
	if !errors.As(err, &dup) || dup.Field != "email" {
		t.Fatalf("got %v, want DuplicateError{email}", err)
	}
	if n := count(t, dbc, `SELECT COUNT(*) FROM users`); n != 1 {
		t.Errorf("user count = %d after failed registration, want 1", n)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	st, _ := newTestStore(t)
	mustRegister(t, st, "neo0001", "neo@example.com")

	_, err := st.Register(context.Background(), "neo0001", "other@example.com", testPassword, "")
	var dup *store.DuplicateError
	if !errors.As(err, &dup) || dup.Field != "username" {
		t.Fatalf("got %v, want DuplicateError{username}", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	st, _ := newTestStore(t)

	tests := []struct {
		name      string
		username  string
		email     string
		password  string
		bio       string
		wantField string
	}{
		{"short username", "abc", "a@b.co", testPassword, "", "username"},
		{"long username", "abcdefghijklmnopqrstu", "a@b.co", testPassword, "", "username"},
		{"bad email", "validname", "not-an-email", testPassword, "", "email"},
		{"short password", "validname", "a@b.co", "short", "", "password"},
		{"long password", "validname", "a@b.co", "123456789012345678901", "", "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := st.Register(context.Background(), tt.username, tt.email, tt.password, tt.bio)
			var vErr *store.ValidationError
			if !errors.As(err, &vErr) || vErr.Field != tt.wantField {
				t.Errorf("got %v, want ValidationError on %q", err, tt.wantField)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	st, _ := newTestStore(t)
	u := mustRegister(t, st, "neo0001", "neo@example.com")

	got, err := st.Authenticate(context.Background(), "neo@example.com", testPassword)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("authenticated id = %d, want %d", got.ID, u.ID)
	}

	if _, err := st.Authenticate(context.Background(), "neo@example.com", "wrongpassword"); !errors.Is(err, store.ErrAuthFailure) {
		t.Errorf("wrong password: got %v, want ErrAuthFailure", err)
	}
	if _, err := st.Authenticate(context.Background(), "ghost@example.com", testPassword); !errors.Is(err, store.ErrAuthFailure) {
		t.Errorf("unknown email: got %v, want ErrAuthFailure", err)
	}
}

func TestUpdateProfileUniquenessExcludesSelf(t *testing.T) {
	st, _ := newTestStore(t)
	u := mustRegister(t, st, "neo0001", "neo@example.com")
	mustRegister(t, st, "trinity", "trinity@example.com")

	// Keeping your own values is not a collision.
	if err := st.UpdateProfile(context.Background(), u.ID, "neo0001", "neo@example.com", "new bio", ""); err != nil {
		t.Fatalf("unchanged values rejected: %v", err)
	}

	// Taking someone else's email is.
	err := st.UpdateProfile(context.Background(), u.ID, "neo0001", "trinity@example.com", "", "")
	var dup *store.DuplicateError
	if !errors.As(err, &dup) || dup.Field != "email" {
		t.Fatalf("got %v, want DuplicateError{email}", err)
	}

	got, err := st.UserByID(context.Background(), u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Bio != "new bio" {
		t.Errorf("bio = %q, want %q", got.Bio, "new bio")
	}
}

// --- content ---

func TestUpdatePostSetsUpdatedAt(t *testing.T) {
	st, _ := newTestStore(t)
	u := mustRegister(t, st, "neo0001", "neo@example.com")
	p := mustPost(t, st, u.ID, "first")
	if p.UpdatedAt != nil {
		t.Fatal("fresh post should have no updated_at")
	}

	edited := time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC)
	st.SetClock(func() time.Time { return edited })

	id := access.Identity{UserID: u.ID, Authenticated: true}
	got, err := st.UpdatePost(context.Background(), p.ID, id, "first (edited)", "updated content", "Linux", "")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.UpdatedAt == nil || !got.UpdatedAt.Equal(edited) {
		t.Errorf("updated_at = %v, want %v", got.UpdatedAt, edited)
	}
	if got.Category != "Linux" {
		t.Errorf("category = %q, want Linux", got.Category)
	}
}

func TestMutationAuthorization(t *testing.T) {
	st, _ := newTestStore(t)
	author := mustRegister(t, st, "neo0001", "neo@example.com") // admin (first)
	other := mustRegister(t, st, "trinity", "trinity@example.com")
	p := mustPost(t, st, other.ID, "owned by other")

	stranger := access.Identity{UserID: 12345, Authenticated: true}
	if _, err := st.UpdatePost(context.Background(), p.ID, stranger, "x", "y", "", ""); !errors.Is(err, store.ErrForbidden) {
		t.Errorf("stranger update: got %v, want ErrForbidden", err)
	}
	if err := st.DeletePost(context.Background(), p.ID, access.Identity{}); !errors.Is(err, store.ErrAuthRequired) {
		t.Errorf("anonymous delete: got %v, want ErrAuthRequired", err)
	}

	// Admin may delete someone else's post.
	admin := access.Identity{UserID: author.ID, IsAdmin: true, Authenticated: true}
	if err := st.DeletePost(context.Background(), p.ID, admin); err != nil {
		t.Errorf("admin delete: %v", err)
	}
	if _, err := st.PostByID(context.Background(), p.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("deleted post lookup: got %v, want ErrNotFound", err)
	}
}

func TestCreateCommentRequiresAuth(t *testing.T) {
	st, _ := newTestStore(t)
	u := mustRegister(t, st, "neo0001", "neo@example.com")
	p := mustPost(t, st, u.ID, "a post")

	if _, err := st.CreateComment(context.Background(), p.ID, access.Identity{}, "hello there"); !errors.Is(err, store.ErrAuthRequired) {
		t.Fatalf("got %v, want ErrAuthRequired", err)
	}

	id := access.Identity{UserID: u.ID, Authenticated: true}
	if _, err := st.CreateComment(context.Background(), p.ID, id, "x"); err == nil {
		t.Error("one-char comment should fail validation")
	}
	c, err := st.CreateComment(context.Background(), p.ID, id, "hello there")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	if c.PostID != p.ID || c.UserID != u.ID {
		t.Errorf("comment ownership = (post %d, user %d)", c.PostID, c.UserID)
	}
}

func TestDeletePostCascadesComments(t *testing.T) {
	st, dbc := newTestStore(t)
	u := mustRegister(t, st, "neo0001", "neo@example.com")
	p := mustPost(t, st, u.ID, "doomed")

	id := access.Identity{UserID: u.ID, IsAdmin: true, Authenticated: true}
	if _, err := st.CreateComment(context.Background(), p.ID, id, "first comment"); err != nil {
		t.Fatal(err)
	}
	if _, err := st.ToggleLike(context.Background(), u.ID, p.ID); err != nil {
		t.Fatal(err)
	}

	if err := st.DeletePost(context.Background(), p.ID, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n := count(t, dbc, `SELECT COUNT(*) FROM comments WHERE post_id=?`, p.ID); n != 0 {
		t.Errorf("orphaned comments: %d", n)
	}
	if n := count(t, dbc, `SELECT COUNT(*) FROM post_likes WHERE post_id=?`, p.ID); n != 0 {
		t.Errorf("orphaned likes: %d", n)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	st, dbc := newTestStore(t)
	victim := mustRegister(t, st, "neo0001", "neo@example.com")
	other := mustRegister(t, st, "trinity", "trinity@example.com")

	victimPost := mustPost(t, st, victim.ID, "victim's post")
	otherPost := mustPost(t, st, other.ID, "other's post")

	victimID := access.Identity{UserID: victim.ID, Authenticated: true}
	otherID := access.Identity{UserID: other.ID, Authenticated: true}

	// Other user comments on and likes the victim's post; the victim
	// comments on the other user's post.
	if _, err := st.CreateComment(context.Background(), victimPost.ID, otherID, "nice post"); err != nil {
		t.Fatal(err)
	}
	if _, err := st.ToggleLike(context.Background(), other.ID, victimPost.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := st.CreateComment(context.Background(), otherPost.ID, victimID, "thanks"); err != nil {
		t.Fatal(err)
	}

	if err := st.DeleteUser(context.Background(), victim.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	if n := count(t, dbc, `SELECT COUNT(*) FROM posts WHERE user_id=?`, victim.ID); n != 0 {
		t.Errorf("victim posts remaining: %d", n)
	}
	if n := count(t, dbc, `SELECT COUNT(*) FROM comments`); n != 0 {
		t.Errorf("comments remaining: %d (victim's own and those on their posts should be gone)", n)
	}
	if n := count(t, dbc, `SELECT COUNT(*) FROM post_likes`); n != 0 {
		t.Errorf("likes remaining: %d", n)
	}

	// The untouched user's post survives.
	if _, err := st.PostByID(context.Background(), otherPost.ID); err != nil {
		t.Errorf("bystander post: %v", err)
	}

	if err := st.DeleteUser(context.Background(), victim.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
}

// --- social graph ---

func TestToggleLikeRoundTrip(t *testing.T) {
	st, _ := newTestStore(t)
	u := mustRegister(t, st, "neo0001", "neo@example.com")
	p := mustPost(t, st, u.ID, "likeable")

	before, err := st.LikeCount(context.Background(), p.ID)
	if err != nil {
		t.Fatal(err)
	}

	liked, err := st.ToggleLike(context.Background(), u.ID, p.ID)
	if err != nil || !liked {
		t.Fatalf("first toggle: liked=%v err=%v", liked, err)
	}
	if n, _ := st.LikeCount(context.Background(), p.ID); n != before+1 {
		t.Errorf("like count after like = %d, want %d", n, before+1)
	}

	liked, err = st.ToggleLike(context.Background(), u.ID, p.ID)
	if err != nil || liked {
		t.Fatalf("second toggle: liked=%v err=%v", liked, err)
	}
	if n, _ := st.LikeCount(context.Background(), p.ID); n != before {
		t.Errorf("like count after unlike = %d, want %d", n, before)
	}
}

func TestToggleLikeMissingPost(t *testing.T) {
	st, _ := newTestStore(t)
	u := mustRegister(t, st, "neo0001", "neo@example.com")
	if _, err := st.ToggleLike(context.Background(), u.ID, 9999); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

// --- view tracking ---

func TestRecordViewDedupsPerSession(t *testing.T) {
	st, dbc := newTestStore(t)
	u := mustRegister(t, st, "neo0001", "neo@example.com")
	p := mustPost(t, st, u.ID, "viewed")
	newSession(t, dbc, "sess-a")
	newSession(t, dbc, "sess-b")

	inc, err := st.RecordView(context.Background(), "sess-a", p.ID)
	if err != nil || !inc {
		t.Fatalf("first view: inc=%v err=%v", inc, err)
	}
	inc, err = st.RecordView(context.Background(), "sess-a", p.ID)
	if err != nil || inc {
		t.Fatalf("repeat view: inc=%v err=%v", inc, err)
	}

	got, err := st.PostByID(context.Background(), p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Views != 1 {
		t.Errorf("views = %d after two views in one session, want 1", got.Views)
	}

	// A different session counts again.
	if inc, err := st.RecordView(context.Background(), "sess-b", p.ID); err != nil || !inc {
		t.Fatalf("other session: inc=%v err=%v", inc, err)
	}
	got, _ = st.PostByID(context.Background(), p.ID)
	if got.Views != 2 {
		t.Errorf("views = %d, want 2", got.Views)
	}
}

func TestRecordViewUnknownSession(t *testing.T) {
	st, _ := newTestStore(t)
	u := mustRegister(t, st, "neo0001", "neo@example.com")
	p := mustPost(t, st, u.ID, "viewed")

	if _, err := st.RecordView(context.Background(), "no-such-session", p.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

// --- listing ---

func TestListPostsFilters(t *testing.T) {
	st, _ := newTestStore(t)
	u := mustRegister(t, st, "neo0001", "neo@example.com")

	if _, err := st.CreatePost(context.Background(), u.ID, "kernel hardening", "grsecurity notes", "Linux", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := st.CreatePost(context.Background(), u.ID, "xss basics", "script injection", "Cybersecurity", ""); err != nil {
		t.Fatal(err)
	}

	byCat, err := st.ListPosts(context.Background(), store.PostFilter{Category: "Linux"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byCat) != 1 || byCat[0].Title != "kernel hardening" {
		t.Errorf("category filter returned %d posts", len(byCat))
	}

	byQuery, err := st.ListPosts(context.Background(), store.PostFilter{Query: "injection"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byQuery) != 1 || byQuery[0].Title != "xss basics" {
		t.Errorf("substring filter returned %d posts", len(byQuery))
	}

	paged, err := st.ListPosts(context.Background(), store.PostFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(paged) != 1 {
		t.Errorf("offset paging returned %d posts, want 1", len(paged))
	}
}

func TestDefaultCategory(t *testing.T) {
	st, _ := newTestStore(t)
	u := mustRegister(t, st, "neo0001", "neo@example.com")
	p := mustPost(t, st, u.ID, "uncategorized")
	if p.Category != models.DefaultCategory {
		t.Errorf("category = %q, want %q", p.Category, models.DefaultCategory)
	}
}
