package main

import (
	"log"
	"net/http"
	"os"

	"github.com/AndtsI4/CyberForum/internal/auth"
	"github.com/AndtsI4/CyberForum/internal/config"
	"github.com/AndtsI4/CyberForum/internal/db"
	"github.com/AndtsI4/CyberForum/internal/handlers"
	"github.com/AndtsI4/CyberForum/internal/images"
	"github.com/AndtsI4/CyberForum/internal/store"
)

func main() {
	cfg := config.Load()

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatal(err)
	}

	dbc, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal(err)
	}
	defer dbc.Close()

	if err := db.Migrate(dbc); err != nil {
		log.Fatal(err)
	}

	st := store.New(dbc)
	sessions := auth.NewManager(dbc, cfg.SessionMaxAge)

	imgs, err := images.NewStore(cfg.UploadsDir)
	if err != nil {
		log.Fatal(err)
	}

	h := handlers.New(st, sessions, imgs, cfg)

	// static files
	fs := http.FileServer(http.Dir("./web/static"))
	http.Handle("/static/", http.StripPrefix("/static/", fs))

	// routes
	http.HandleFunc("/", h.Index)
	http.HandleFunc("/register", h.Register)
	http.HandleFunc("/login", h.Login)
	http.HandleFunc("/logout", h.Logout)

	http.HandleFunc("/post/new", h.RequireAuth(h.NewPost))
	http.HandleFunc("/post/create", h.RequireAuth(h.CreatePost))
	http.HandleFunc("/post/edit", h.RequireAuth(h.EditPost))
	http.HandleFunc("/post/update", h.RequireAuth(h.UpdatePost))
	http.HandleFunc("/post/delete", h.RequireAuth(h.DeletePost))
	http.HandleFunc("/post/", h.PostByID) // /post/{id}

	http.HandleFunc("/comment/create", h.RequireAuth(h.CreateComment))
	http.HandleFunc("/like", h.RequireAuth(h.Like))

	http.HandleFunc("/account", h.RequireAuth(h.Account))
	http.HandleFunc("/admin", h.AdminPanel)
	http.HandleFunc("/admin/delete-user", h.AdminDeleteUser)

	http.HandleFunc("/filter/mine", h.RequireAuth(h.MyPosts))
	http.HandleFunc("/filter/liked", h.RequireAuth(h.MyLiked))

	// 404 fallback
	http.HandleFunc("/404", h.NotFound)

	addr := ":" + cfg.Port

	log.Printf("listening on %s", addr)
	err = http.ListenAndServe(addr, handlers.WithRecover(http.DefaultServeMux))
	if err != nil {
		log.Fatal(err)
	}
}
