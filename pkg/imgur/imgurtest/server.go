// Package imgurtest provides an in-process fake of the imgur endpoints used
// by imgurstats, for tests.
package imgurtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"imgurstats/pkg/config"
)

// Post is one fake submission. Album posts carry Images.
type Post struct {
	ID            string
	Title         string
	Type          string
	Views         int64
	Points        int64
	Ups           int64
	Downs         int64
	CommentCount  int64
	FavoriteCount int64
	Viral         bool
	Datetime      int64
	Images        []Image
}

// Image is one fake image with its current view count.
type Image struct {
	Hash  string
	Ext   string
	Mime  string
	Views int64
}

// Server serves fake account data. Set fields before requests are made, or
// use SetViews while requests are in flight.
type Server struct {
	*httptest.Server

	mu sync.Mutex
	// Account is the name returned by /3/account/me; empty means signed out.
	Account    string
	Subscribed bool
	// Posts holds each account's submissions, newest first.
	Posts map[string][]Post
	// Images holds each account's image listing, in listing order.
	Images map[string][]Image
	// PostsPerPage is the submissions page size.
	PostsPerPage int
	// FailPath makes requests whose path contains it answer with FailStatus.
	FailPath   string
	FailStatus int
	// FailCount limits FailPath to the first n matching requests; 0 means always.
	FailCount int
	// OnRequest is called for every request before it is served.
	OnRequest func(r *http.Request)

	requests []string
}

// NewServer starts a fake imgur.
func NewServer() *Server {
	s := &Server{
		Posts:        make(map[string][]Post),
		Images:       make(map[string][]Image),
		PostsPerPage: 2,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /3/account/me", s.handleMe)
	mux.HandleFunc("GET /3/account/{user}/submissions/{page}/newest", s.handleSubmissions)
	mux.HandleFunc("GET /site/{user}/ajax/images", s.handleImages)
	mux.HandleFunc("GET /site/{user}/ajax/views", s.handleViews)

	s.Server = httptest.NewServer(s.intercept(mux))
	return s
}

// Config returns an ImgurConfig pointing every endpoint at the fake.
func (s *Server) Config() config.ImgurConfig {
	cfg := config.DefaultConfig().Imgur
	cfg.APIBaseURL = s.URL
	cfg.WebBaseURL = s.URL
	cfg.SiteURLTemplate = s.URL + "/site/{user}"
	cfg.Timeout = 5 * time.Second
	return cfg
}

// Requests returns the request URIs served so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestsTo counts served requests whose path contains part.
func (s *Server) RequestsTo(part string) int {
	n := 0
	for _, r := range s.Requests() {
		if strings.Contains(r, part) {
			n++
		}
	}
	return n
}

// SetViews updates the view count of hash for user's images and posts.
func (s *Server) SetViews(user, hash string, views int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Images[user] {
		if s.Images[user][i].Hash == hash {
			s.Images[user][i].Views = views
		}
	}
	for i := range s.Posts[user] {
		if s.Posts[user][i].ID == hash {
			s.Posts[user][i].Views = views
		}
	}
}

func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.URL.RequestURI())
		fail := s.FailPath != "" && strings.Contains(r.URL.Path, s.FailPath)
		if fail && s.FailCount > 0 {
			s.FailCount--
			if s.FailCount == 0 {
				s.FailPath = ""
			}
		}
		status := s.FailStatus
		hook := s.OnRequest
		s.mu.Unlock()

		if hook != nil {
			hook(r)
		}
		if fail {
			if status == 0 {
				status = http.StatusInternalServerError
			}
			http.Error(w, "fake failure", status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeEnvelope(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"data":    data,
		"success": true,
		"status":  200,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	name, subscribed := s.Account, s.Subscribed
	s.mu.Unlock()

	if name == "" {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data":    map[string]string{"error": "Authentication required"},
			"success": false,
			"status":  403,
		})
		return
	}
	writeEnvelope(w, map[string]interface{}{"url": name, "is_subscribed": subscribed})
}

func (s *Server) handleSubmissions(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.PathValue("page"))
	if err != nil {
		http.Error(w, "bad page", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	posts := s.Posts[r.PathValue("user")]
	per := s.PostsPerPage
	start := page * per
	var window []Post
	if start < len(posts) {
		end := start + per
		if end > len(posts) {
			end = len(posts)
		}
		window = append(window, posts[start:end]...)
	}
	s.mu.Unlock()

	rows := make([]map[string]interface{}, 0, len(window))
	for _, p := range window {
		row := map[string]interface{}{
			"id":             p.ID,
			"title":          p.Title,
			"type":           p.Type,
			"views":          p.Views,
			"points":         p.Points,
			"ups":            p.Ups,
			"downs":          p.Downs,
			"comment_count":  p.CommentCount,
			"favorite_count": p.FavoriteCount,
			"in_most_viral":  p.Viral,
			"datetime":       p.Datetime,
			"is_album":       len(p.Images) > 0,
		}
		if len(p.Images) > 0 {
			images := make([]map[string]interface{}, 0, len(p.Images))
			for _, img := range p.Images {
				images = append(images, map[string]interface{}{"id": img.Hash, "type": img.Mime, "views": img.Views})
			}
			row["images"] = images
		}
		rows = append(rows, row)
	}
	writeEnvelope(w, rows)
}

func (s *Server) handleImages(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("perPage"))
	if perPage <= 0 {
		perPage = 60
	}

	s.mu.Lock()
	images := s.Images[r.PathValue("user")]
	total := len(images)
	start := page * perPage
	var window []Image
	if start < total {
		end := start + perPage
		if end > total {
			end = total
		}
		window = append(window, images[start:end]...)
	}
	s.mu.Unlock()

	metas := make([]map[string]interface{}, 0, len(window))
	for _, img := range window {
		metas = append(metas, map[string]interface{}{
			"hash":     img.Hash,
			"ext":      img.Ext,
			"mimetype": img.Mime,
			"views":    0,
			"title":    nil,
		})
	}
	writeEnvelope(w, map[string]interface{}{"count": total, "images": metas})
}

func (s *Server) handleViews(w http.ResponseWriter, r *http.Request) {
	hashes := strings.Split(r.URL.Query().Get("images"), ",")

	s.mu.Lock()
	byHash := make(map[string]int64)
	for _, img := range s.Images[r.PathValue("user")] {
		byHash[img.Hash] = img.Views
	}
	s.mu.Unlock()

	// views are sent as strings, in request order
	var b strings.Builder
	b.WriteString(`{"data":{`)
	first := true
	for _, h := range hashes {
		views, ok := byHash[h]
		if !ok {
			continue
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		fmt.Fprintf(&b, "%q:%q", h, strconv.FormatInt(views, 10))
	}
	b.WriteString(`},"success":true,"status":200}`)

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(b.String()))
}
