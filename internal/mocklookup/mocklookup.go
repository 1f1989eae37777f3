// Package mocklookup serves a small user directory that answers the e-mail
// availability queries of the demo form without leaving the machine.
package mocklookup

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// User is one directory entry.
type User struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// DefaultUsers seeds the directory.
func DefaultUsers() []User {
	return []User{
		{ID: 1, Name: "Leanne Graham", Username: "Bret", Email: "Sincere@april.biz"},
		{ID: 2, Name: "Ervin Howell", Username: "Antonette", Email: "Shanna@melissa.tv"},
		{ID: 3, Name: "Clementine Bauch", Username: "Samantha", Email: "Nathan@yesenia.net"},
	}
}

// Server is the directory service.
type Server struct {
	mu     sync.RWMutex
	users  []User
	delay  time.Duration
	fail   int
	logger *zap.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithUsers replaces the seeded users.
func WithUsers(users ...User) Option {
	return func(s *Server) { s.users = append([]User(nil), users...) }
}

// WithDelay delays every answer.
func WithDelay(d time.Duration) Option {
	return func(s *Server) { s.delay = d }
}

// WithFailure answers every query with status.
func WithFailure(status int) Option {
	return func(s *Server) { s.fail = status }
}

// WithLogger sets the request logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a Server.
func New(opts ...Option) *Server {
	s := &Server{users: DefaultUsers(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers a user so later queries see the address as taken.
func (s *Server) Add(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = len(s.users) + 1
	}
	s.users = append(s.users, u)
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Get("/users", s.listUsers)
	r.Post("/users", s.createUser)
	return r
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-r.Context().Done():
			return
		}
	}
	if s.fail != 0 {
		http.Error(w, http.StatusText(s.fail), s.fail)
		return
	}

	email := strings.TrimSpace(r.URL.Query().Get("email"))
	s.mu.RLock()
	matches := make([]User, 0, len(s.users))
	for _, u := range s.users {
		if email == "" || strings.EqualFold(u.Email, email) {
			matches = append(matches, u)
		}
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, matches)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var u User
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil || strings.TrimSpace(u.Email) == "" {
		http.Error(w, "email is required", http.StatusBadRequest)
		return
	}
	s.Add(u)
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("query", r.URL.RawQuery),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
