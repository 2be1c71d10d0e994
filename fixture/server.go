// Package fixture serves a small in-memory site with posts and threaded
// comments, rendered the way the client expects pages to be structured.
package fixture

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	sessionCookie = "sessionid"
	csrfHeader    = "X-CSRFToken"
)

type Post struct {
	Slug   string
	Title  string
	Body   string
	Status bool
}

type Comment struct {
	ID       int
	ParentID int
	Post     string
	Author   string
	Body     string
	Created  time.Time
	Children []*Comment
}

type jsonResp map[string]any

// Server is an http.Handler for the fixture site
type Server struct {
	mu       sync.Mutex
	mux      *chi.Mux
	log      zerolog.Logger
	token    string
	posts    map[string]*Post
	order    []string
	comments map[int]*Comment
	roots    map[string][]*Comment
	nextID   int
}

// New creates a server seeded with two posts and a short thread
func New(log zerolog.Logger) *Server {
	s := &Server{
		mux:      chi.NewRouter(),
		log:      log,
		token:    uuid.NewString(),
		posts:    make(map[string]*Post),
		comments: make(map[int]*Comment),
		roots:    make(map[string][]*Comment),
		nextID:   1,
	}
	s.AddPost(&Post{Slug: "hello", Title: "Hello, threads", Body: "The first post.", Status: true})
	s.AddPost(&Post{Slug: "quiet", Title: "A quiet post", Body: "Nobody is here.", Status: false})

	first, _ := s.AddComment("hello", 0, "alice", "first!")
	s.AddComment("hello", first.ID, "bob", "welcome")
	s.AddComment("hello", 0, "carol", "nice post")

	s.mux.Use(middleware.RequestID)
	s.mux.Use(middleware.Recoverer)
	s.mux.Use(s.requestLogger)

	s.mux.Get("/", s.IndexHandler)
	s.mux.Get("/post/{slug}", s.PostHandler)
	s.mux.Group(func(r chi.Router) {
		r.Use(s.checkCSRF)
		r.Post("/post/comment", s.CommentHandler)
		r.Post("/post/status/{slug}", s.StatusHandler)
	})
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Token is the anti-forgery token embedded in every page
func (s *Server) Token() string { return s.token }

func (s *Server) AddPost(p *Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[p.Slug]; !ok {
		s.order = append(s.order, p.Slug)
	}
	s.posts[p.Slug] = p
}

// Post returns a copy of the post with the given slug
func (s *Server) Post(slug string) (Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[slug]
	if !ok {
		return Post{}, false
	}
	return *p, true
}

// AddComment stores a comment; parent 0 makes it a top-level comment
func (s *Server) AddComment(slug string, parent int, author, body string) (*Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addComment(slug, parent, author, body)
}

func (s *Server) addComment(slug string, parent int, author, body string) (*Comment, error) {
	if _, ok := s.posts[slug]; !ok {
		return nil, errUnknownPost
	}
	c := &Comment{
		ID:       s.nextID,
		ParentID: parent,
		Post:     slug,
		Author:   author,
		Body:     body,
		Created:  time.Now(),
	}
	if parent != 0 {
		p, ok := s.comments[parent]
		if !ok || p.Post != slug {
			return nil, errUnknownParent
		}
		p.Children = append(p.Children, c)
	} else {
		s.roots[slug] = append(s.roots[slug], c)
	}
	s.comments[c.ID] = c
	s.nextID++
	return c, nil
}

// Comment returns the stored comment with the given id
func (s *Server) Comment(id int) (Comment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok {
		return Comment{}, false
	}
	return *c, true
}

func (s *Server) IndexHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	posts := make([]Post, 0, len(s.order))
	for _, slug := range s.order {
		posts = append(posts, *s.posts[slug])
	}
	s.mu.Unlock()

	s.startSession(w, r)
	s.execTmpl(w, "index", struct {
		Token string
		Posts []Post
	}{s.token, posts})
}

func (s *Server) PostHandler(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	// render under the lock: the comment tree is shared
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[slug]
	if !ok {
		http.NotFound(w, r)
		return
	}

	s.startSession(w, r)
	s.execTmpl(w, "post", struct {
		Token        string
		Post         Post
		Comments     []*Comment
		FormTemplate any
	}{s.token, *p, s.roots[slug], formTemplate(slug)})
}

func (s *Server) CommentHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, jsonResp{"error": "invalid form"})
		return
	}
	slug := r.PostForm.Get("post")
	body := strings.TrimSpace(r.PostForm.Get("body_md"))
	if body == "" {
		writeJSON(w, http.StatusBadRequest, jsonResp{"error": "empty comment"})
		return
	}
	parent := 0
	if v := r.PostForm.Get("parent_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, jsonResp{"error": "invalid parent"})
			return
		}
		parent = id
	}

	s.mu.Lock()
	c, err := s.addComment(slug, parent, "you", body)
	s.mu.Unlock()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, jsonResp{"error": err.Error()})
		return
	}

	var buf bytes.Buffer
	if err := tmpls.ExecuteTemplate(&buf, "comment", c); err != nil {
		s.log.Error().Err(err).Msg("could not render comment")
		writeJSON(w, http.StatusInternalServerError, jsonResp{"error": "internal server error"})
		return
	}
	s.log.Info().Int("id", c.ID).Int("parent", parent).Str("post", slug).Msg("comment added")
	writeJSON(w, http.StatusOK, jsonResp{"comment": buf.String()})
}

func (s *Server) StatusHandler(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	s.mu.Lock()
	p, ok := s.posts[slug]
	var status bool
	if ok {
		p.Status = !p.Status
		status = p.Status
	}
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, jsonResp{"error": "no such post"})
		return
	}
	s.log.Info().Str("post", slug).Bool("status", status).Msg("status changed")
	writeJSON(w, http.StatusOK, jsonResp{"status": status})
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	if _, err := r.Cookie(sessionCookie); err == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    uuid.NewString(),
		Path:     "/",
		HttpOnly: true,
	})
}

// checkCSRF rejects state-changing requests without the session cookie or
// the page's token
func (s *Server) checkCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie(sessionCookie); err != nil {
			writeJSON(w, http.StatusForbidden, jsonResp{"error": "no session"})
			return
		}
		if r.Header.Get(csrfHeader) != s.token {
			writeJSON(w, http.StatusBadRequest, jsonResp{"error": "The CSRF token is missing or invalid."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) execTmpl(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := tmpls.ExecuteTemplate(&buf, name, data); err != nil {
		s.log.Error().Err(err).Str("template", name).Msg("could not render page")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
