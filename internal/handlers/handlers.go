package handlers

import (
	"errors"
	"html/template"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/AndtsI4/CyberForum/internal/access"
	"github.com/AndtsI4/CyberForum/internal/auth"
	"github.com/AndtsI4/CyberForum/internal/config"
	"github.com/AndtsI4/CyberForum/internal/derive"
	"github.com/AndtsI4/CyberForum/internal/images"
	"github.com/AndtsI4/CyberForum/internal/models"
	"github.com/AndtsI4/CyberForum/internal/store"
)

type Handler struct {
	store    *store.Store
	sessions *auth.Manager
	images   *images.Store
	cfg      *config.Config
	tpls     *template.Template
}

func New(st *store.Store, sessions *auth.Manager, imgs *images.Store, cfg *config.Config) *Handler {
	tpls := template.Must(template.ParseGlob(filepath.Join("web", "templates", "*.html")))
	return &Handler{store: st, sessions: sessions, images: imgs, cfg: cfg, tpls: tpls}
}

// identity resolves the acting principal from the session cookie and
// touches last_seen for logged-in users.
func (h *Handler) identity(r *http.Request) (access.Identity, *models.User) {
	s, ok := h.sessions.Current(r)
	if !ok || s.UserID == 0 {
		return access.Identity{}, nil
	}
	u, err := h.store.UserByID(r.Context(), s.UserID)
	if err != nil {
		return access.Identity{}, nil
	}
	if err := h.store.TouchLastSeen(r.Context(), u.ID); err != nil {
		log.Printf("touch last_seen: %v", err)
	}
	return access.Identity{UserID: u.ID, IsAdmin: u.IsAdmin, Authenticated: true}, u
}

func (h *Handler) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if id, _ := h.identity(r); !id.Authenticated {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	}
}

// fail maps domain errors to HTTP statuses.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *store.ValidationError
	var dErr *store.DuplicateError
	switch {
	case errors.As(err, &vErr), errors.As(err, &dErr):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, store.ErrAuthFailure), errors.Is(err, store.ErrAuthRequired):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, store.ErrForbidden):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case errors.Is(err, store.ErrNotFound):
		h.NotFound(w, r)
	default:
		log.Printf("[error] %v (%s %s)", err, r.Method, r.URL.Path)
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

// -------- Pages

type postVM struct {
	models.Post
	Posted      string
	Edited      string
	ReadingTime int
}

func (h *Handler) postVM(p models.Post, now time.Time) postVM {
	vm := postVM{Post: p, Posted: derive.RelativeTime(p.DatePosted, now), ReadingTime: derive.ReadingTime(p.Content)}
	if p.UpdatedAt != nil {
		vm.Edited = derive.RelativeTime(*p.UpdatedAt, now)
	}
	return vm
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		h.NotFound(w, r)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	f := store.PostFilter{
		Query:    strings.TrimSpace(r.URL.Query().Get("q")),
		Category: r.URL.Query().Get("category"),
		Limit:    h.cfg.PageSize,
		Offset:   (page - 1) * h.cfg.PageSize,
	}

	id, _ := h.identity(r)
	if id.Authenticated && r.URL.Query().Get("mine") == "1" {
		f.AuthorID = id.UserID
	}
	if id.Authenticated && r.URL.Query().Get("liked") == "1" {
		f.LikedBy = id.UserID
	}

	posts, err := h.store.ListPosts(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	now := time.Now().UTC()
	vms := make([]postVM, 0, len(posts))
	for _, p := range posts {
		vms = append(vms, h.postVM(p, now))
	}

	h.tpls.ExecuteTemplate(w, "home", map[string]any{
		"Title":      "CyberForum",
		"Logged":     id.Authenticated,
		"Posts":      vms,
		"Categories": models.Categories,
		"Query":      r.URL.Query(),
		"Page":       page,
		"NextPage":   page + 1,
		"PrevPage":   page - 1,
		"HasMore":    len(posts) == h.cfg.PageSize,
	})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.tpls.ExecuteTemplate(w, "register", map[string]any{"Title": "Register"})
		return
	case http.MethodPost:
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.FormValue("password") != r.FormValue("confirm_password") {
		http.Error(w, "passwords do not match", http.StatusBadRequest)
		return
	}

	_, err := h.store.Register(r.Context(),
		r.FormValue("username"), r.FormValue("email"), r.FormValue("password"), r.FormValue("bio"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/login?registered=1", http.StatusSeeOther)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.tpls.ExecuteTemplate(w, "login", map[string]any{
			"Title":      "Login",
			"Registered": r.URL.Query().Get("registered") == "1",
		})
		return
	case http.MethodPost:
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	u, err := h.store.Authenticate(r.Context(), r.FormValue("email"), r.FormValue("password"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	s, err := h.sessions.Ensure(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.sessions.Login(s.ID, u.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r); err != nil {
		log.Printf("logout: %v", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) NewPost(w http.ResponseWriter, r *http.Request) {
	h.tpls.ExecuteTemplate(w, "new_post", map[string]any{
		"Title":      "New Post",
		"Logged":     true,
		"Categories": models.Categories,
	})
}

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	id, _ := h.identity(r)

	imageRef, err := h.formImage(r, 800, 800)
	if err != nil {
		http.Error(w, "bad image", http.StatusBadRequest)
		return
	}

	p, err := h.store.CreatePost(r.Context(), id.UserID,
		r.FormValue("title"), r.FormValue("content"), r.FormValue("category"), imageRef)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/post/"+strconv.FormatInt(p.ID, 10), http.StatusSeeOther)
}

// PostByID renders a post, counting the view once per session.
func (h *Handler) PostByID(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/post/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		h.NotFound(w, r)
		return
	}
	pid, _ := strconv.ParseInt(parts[0], 10, 64)

	s, err := h.sessions.Ensure(w, r)
	if err == nil {
		if _, err := h.store.RecordView(r.Context(), s.ID, pid); err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Printf("record view: %v", err)
		}
	}

	p, err := h.store.PostByID(r.Context(), pid)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	comments, err := h.store.CommentsForPost(r.Context(), pid)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	id, _ := h.identity(r)
	liked := false
	if id.Authenticated {
		liked, _ = h.store.Likes(r.Context(), id.UserID, pid)
	}

	now := time.Now().UTC()
	type commentVM struct {
		models.Comment
		Posted string
	}
	cvms := make([]commentVM, 0, len(comments))
	for _, c := range comments {
		cvms = append(cvms, commentVM{Comment: c, Posted: derive.RelativeTime(c.DatePosted, now)})
	}

	h.tpls.ExecuteTemplate(w, "post", map[string]any{
		"Title":    p.Title,
		"Post":     h.postVM(*p, now),
		"Comments": cvms,
		"Logged":   id.Authenticated,
		"Liked":    liked,
		"CanEdit":  access.CanMutate(p, id),
	})
}

func (h *Handler) EditPost(w http.ResponseWriter, r *http.Request) {
	pid, _ := strconv.ParseInt(r.FormValue("id"), 10, 64)
	p, err := h.store.PostByID(r.Context(), pid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id, _ := h.identity(r)
	if !access.CanMutate(p, id) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	h.tpls.ExecuteTemplate(w, "edit_post", map[string]any{
		"Title":      "Edit Post",
		"Logged":     true,
		"Post":       p,
		"Categories": models.Categories,
	})
}

func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	id, _ := h.identity(r)
	pid, _ := strconv.ParseInt(r.FormValue("id"), 10, 64)

	imageRef, err := h.formImage(r, 800, 800)
	if err != nil {
		http.Error(w, "bad image", http.StatusBadRequest)
		return
	}

	p, err := h.store.UpdatePost(r.Context(), pid, id,
		r.FormValue("title"), r.FormValue("content"), r.FormValue("category"), imageRef)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/post/"+strconv.FormatInt(p.ID, 10), http.StatusSeeOther)
}

func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	id, _ := h.identity(r)
	pid, _ := strconv.ParseInt(r.FormValue("id"), 10, 64)

	if err := h.store.DeletePost(r.Context(), pid, id); err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	id, _ := h.identity(r)
	pid, _ := strconv.ParseInt(r.FormValue("post_id"), 10, 64)

	if _, err := h.store.CreateComment(r.Context(), pid, id, r.FormValue("content")); err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/post/"+strconv.FormatInt(pid, 10), http.StatusSeeOther)
}

func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	id, _ := h.identity(r)
	pid, _ := strconv.ParseInt(r.FormValue("id"), 10, 64)

	if _, err := h.store.ToggleLike(r.Context(), id.UserID, pid); err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/post/"+strconv.FormatInt(pid, 10), http.StatusSeeOther)
}

// Account shows and updates the logged-in user's profile.
func (h *Handler) Account(w http.ResponseWriter, r *http.Request) {
	id, u := h.identity(r)
	if u == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if r.Method == http.MethodPost {
		imageRef, err := h.formImage(r, 150, 150)
		if err != nil {
			http.Error(w, "bad image", http.StatusBadRequest)
			return
		}
		err = h.store.UpdateProfile(r.Context(), id.UserID,
			r.FormValue("username"), r.FormValue("email"), r.FormValue("bio"), imageRef)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		http.Redirect(w, r, "/account", http.StatusSeeOther)
		return
	}

	n, err := h.store.PostCount(r.Context(), u.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.tpls.ExecuteTemplate(w, "account", map[string]any{
		"Title":  "Account",
		"Logged": true,
		"User":   u,
		"Rank":   derive.Rank(u.IsAdmin, n),
	})
}

// AdminPanel lists every user and post for moderation.
func (h *Handler) AdminPanel(w http.ResponseWriter, r *http.Request) {
	id, _ := h.identity(r)
	if err := access.RequireAdmin(id); err != nil {
		h.fail(w, r, err)
		return
	}

	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	posts, err := h.store.ListPosts(r.Context(), store.PostFilter{})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	type userVM struct {
		models.User
		Rank     string
		LastSeen string
	}
	now := time.Now().UTC()
	uvms := make([]userVM, 0, len(users))
	for _, u := range users {
		n, err := h.store.PostCount(r.Context(), u.ID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		uvms = append(uvms, userVM{User: u, Rank: derive.Rank(u.IsAdmin, n), LastSeen: derive.RelativeTime(u.LastSeen, now)})
	}

	h.tpls.ExecuteTemplate(w, "admin", map[string]any{
		"Title":  "Admin Panel",
		"Logged": true,
		"Users":  uvms,
		"Posts":  posts,
	})
}

// AdminDeleteUser removes a user and all their content.
func (h *Handler) AdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	id, _ := h.identity(r)
	if err := access.RequireAdmin(id); err != nil {
		h.fail(w, r, err)
		return
	}

	uid, _ := strconv.ParseInt(r.FormValue("id"), 10, 64)
	if err := h.store.DeleteUser(r.Context(), uid); err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (h *Handler) MyPosts(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/?mine=1", http.StatusSeeOther)
}

func (h *Handler) MyLiked(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/?liked=1", http.StatusSeeOther)
}

func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotFound)
	h.tpls.ExecuteTemplate(w, "notfound", map[string]any{"Title": "Not Found"})
}

// formImage pulls an optional uploaded image out of the form and stores
// it. Empty string means no image was sent.
func (h *Handler) formImage(r *http.Request, maxW, maxH int) (string, error) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		// Plain form post without a file part.
		return "", nil
	}
	f, _, err := r.FormFile("image")
	if err != nil {
		return "", nil
	}
	defer f.Close()
	return h.images.Save(f, maxW, maxH)
}
