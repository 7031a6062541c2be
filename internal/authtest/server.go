// Package authtest runs an in-process REST backend with JWT access tokens and
// opaque refresh tokens, for exercising the refresh pipeline end to end.
package authtest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/joy-dx/sessionnet/dto"
)

const (
	RefreshPath   = "/auth/token/refresh/"
	LoginPath     = "/auth/login/"
	Password      = "correct-password"
	CreatorAnswer = "42"
)

type User struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Bio       string `json:"bio"`
	IsCreator bool   `json:"is_creator"`
}

type accessClaims struct {
	Generation int64 `json:"gen"`
	jwt.RegisteredClaims
}

type Server struct {
	*httptest.Server
	mux    *http.ServeMux
	secret []byte
	ttl    time.Duration

	mu            sync.Mutex
	generation    int64
	refreshTokens map[string]string
	users         map[string]*User
	hits          map[string]int
	refreshGate   chan struct{}
	refreshStatus int
	rotate        bool

	refreshCalls atomic.Int64
}

type Option func(s *Server)

// WithRotation makes every refresh issue a new refresh token and revoke the old one.
func WithRotation() Option {
	return func(s *Server) { s.rotate = true }
}

// WithAccessTTL sets the lifetime of issued access tokens.
func WithAccessTTL(d time.Duration) Option {
	return func(s *Server) { s.ttl = d }
}

func New(t testing.TB, opts ...Option) *Server {
	t.Helper()

	s := &Server{
		mux:           http.NewServeMux(),
		secret:        []byte("authtest-" + uuid.NewString()),
		ttl:           time.Hour,
		refreshTokens: map[string]string{},
		users: map[string]*User{
			"alice": {ID: 1, Username: "alice", Email: "alice@example.com"},
		},
		hits: map[string]int{},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mux.HandleFunc("POST "+RefreshPath, s.handleRefresh)
	s.mux.HandleFunc("POST "+LoginPath, s.handleLogin)
	s.mux.HandleFunc("POST /auth/register/", s.handleRegister)
	s.HandleAuthed("GET /auth/me/", s.handleMe)
	s.HandleAuthed("PUT /auth/me/update/", s.handleUpdate)
	s.HandleAuthed("POST /auth/creator/become/", s.handleBecomeCreator)
	s.HandleAuthed("POST /auth/creator/verify/", s.handleVerifyCreator)

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.mu.Unlock()
		s.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

// HandleAuthed registers a handler that requires a valid bearer access token.
func (s *Server) HandleAuthed(pattern string, h func(w http.ResponseWriter, r *http.Request, user string)) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		user, err := s.authenticate(r)
		if err != nil {
			WriteJSON(w, http.StatusUnauthorized, map[string]string{"detail": err.Error()})
			return
		}
		h(w, r, user)
	})
}

// HandlePublic registers a handler with no auth check.
func (s *Server) HandlePublic(pattern string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, h)
}

// IssuePair mints a fresh credential pair for user.
func (s *Server) IssuePair(user string) dto.Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(user)
}

func (s *Server) issueLocked(user string) dto.Credentials {
	refresh := uuid.NewString()
	s.refreshTokens[refresh] = user
	return dto.Credentials{AccessToken: s.accessLocked(user), RefreshToken: refresh}
}

func (s *Server) accessLocked(user string) string {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Generation: s.generation,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		panic(fmt.Sprintf("authtest: sign token: %v", err))
	}
	return signed
}

// ExpireAccess revokes every access token issued so far.
func (s *Server) ExpireAccess() {
	s.mu.Lock()
	s.generation++
	s.mu.Unlock()
}

// RevokeRefresh forgets every refresh token issued so far.
func (s *Server) RevokeRefresh() {
	s.mu.Lock()
	s.refreshTokens = map[string]string{}
	s.mu.Unlock()
}

// FailRefresh forces the refresh endpoint to answer with status.
// Zero restores normal behaviour.
func (s *Server) FailRefresh(status int) {
	s.mu.Lock()
	s.refreshStatus = status
	s.mu.Unlock()
}

// HoldRefresh blocks refresh calls until the returned func is called.
func (s *Server) HoldRefresh() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.refreshGate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.refreshGate = nil
			s.mu.Unlock()
			close(gate)
		})
	}
}

func (s *Server) RefreshCalls() int64 {
	return s.refreshCalls.Load()
}

func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *Server) authenticate(r *http.Request) (string, error) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return "", errors.New("authentication credentials were not provided")
	}

	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("token not valid: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if claims.Generation < s.generation {
		return "", errors.New("token has been revoked")
	}
	return claims.Subject, nil
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)

	s.mu.Lock()
	gate := s.refreshGate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	var body struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Refresh == "" {
		WriteJSON(w, http.StatusBadRequest, map[string][]string{"refresh": {"This field is required."}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refreshStatus != 0 {
		WriteJSON(w, s.refreshStatus, map[string]string{"detail": "refresh rejected"})
		return
	}
	user, ok := s.refreshTokens[body.Refresh]
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
		return
	}

	resp := map[string]string{"access": s.accessLocked(user)}
	if s.rotate {
		delete(s.refreshTokens, body.Refresh)
		next := uuid.NewString()
		s.refreshTokens[next] = user
		resp["refresh"] = next
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.Username == "" || body.Password == "" {
		WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "username and password are required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[body.Username]
	if !ok || body.Password != Password {
		WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid username or password"})
		return
	}
	WriteJSON(w, http.StatusOK, authPayload(user, s.issueLocked(user.Username)))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		Password2 string `json:"password2"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	// field order mirrors the serializer
	if body.Password != body.Password2 {
		writeRaw(w, http.StatusBadRequest, `{"password":["Passwords do not match."]}`)
		return
	}
	if !strings.Contains(body.Email, "@") {
		writeRaw(w, http.StatusBadRequest, `{"email":["Invalid format"],"username":["Required."]}`)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[body.Username]; exists {
		writeRaw(w, http.StatusBadRequest, `{"username":["A user with that username already exists."]}`)
		return
	}
	user := &User{ID: len(s.users) + 1, Username: body.Username, Email: body.Email}
	s.users[user.Username] = user
	WriteJSON(w, http.StatusCreated, authPayload(user, s.issueLocked(user.Username)))
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, username string) {
	s.mu.Lock()
	user := *s.users[username]
	s.mu.Unlock()
	WriteJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request, username string) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[username]
	if bio, ok := body["bio"].(string); ok {
		user.Bio = bio
	}
	if email, ok := body["email"].(string); ok {
		if !strings.Contains(email, "@") {
			writeRaw(w, http.StatusBadRequest, `{"email":["Enter a valid email address."]}`)
			return
		}
		user.Email = email
	}
	WriteJSON(w, http.StatusOK, *user)
}

func (s *Server) handleBecomeCreator(w http.ResponseWriter, r *http.Request, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[username]
	if user.IsCreator {
		WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "already a creator"})
		return
	}
	user.IsCreator = true
	WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "you are now a creator",
		"user":    *user,
	})
}

func (s *Server) handleVerifyCreator(w http.ResponseWriter, r *http.Request, username string) {
	var body struct {
		Answer string `json:"answer"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[username]
	switch {
	case user.IsCreator:
		WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "already a creator"})
	case body.Answer == "":
		writeRaw(w, http.StatusBadRequest, `{"answer":["This field is required."]}`)
	case body.Answer != CreatorAnswer:
		writeRaw(w, http.StatusBadRequest, `{"success":false,"message":"wrong answer, try again","attempts_left":2}`)
	default:
		user.IsCreator = true
		WriteJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "you are now a creator",
			"user":    *user,
		})
	}
}

func authPayload(user *User, creds dto.Credentials) map[string]any {
	return map[string]any{
		"user": *user,
		"tokens": map[string]string{
			"access":  creds.AccessToken,
			"refresh": creds.RefreshToken,
		},
	}
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
