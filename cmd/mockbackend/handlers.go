package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"lunaalba-client/internal/shared/logs"
)

const (
	accessTokenTTL  = 20 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
	refreshCookie   = "lunaalba_refresh"
)

type mockUser struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	CreatedAt time.Time       `json:"createdAt"`
	Profile   json.RawMessage `json:"profile,omitempty"`

	passwordHash string
}

type backend struct {
	mu            sync.Mutex
	users         map[string]mockUser // by email
	refreshTokens map[string]string   // refresh token -> email, deleted on use
	secret        []byte
}

func newBackend(secret string) *backend {
	return &backend{
		users:         make(map[string]mockUser),
		refreshTokens: make(map[string]string),
		secret:        []byte(secret),
	}
}

type authRequest struct {
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Profile  json.RawMessage `json:"profile,omitempty"`
}

func (b *backend) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "email and password are required"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.users[req.Email]; exists {
		writeJSON(w, http.StatusConflict, map[string]any{"message": "an account with this email already exists"})
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "failed to create account"})
		return
	}
	user := mockUser{
		ID:           uuid.NewString(),
		Email:        req.Email,
		CreatedAt:    time.Now(),
		Profile:      req.Profile,
		passwordHash: string(hash),
	}
	b.users[req.Email] = user
	logs.Info("mock account created", "user_id", user.ID)

	b.respondWithTokens(w, user)
}

func (b *backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "malformed request"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	user, exists := b.users[req.Email]
	if !exists || bcrypt.CompareHashAndPassword([]byte(user.passwordHash), []byte(req.Password)) != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "invalid email or password"})
		return
	}
	b.respondWithTokens(w, user)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (b *backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	// Body is optional; cookie-based refresh sends none.
	_ = json.NewDecoder(r.Body).Decode(&req)
	token := req.RefreshToken
	if token == "" {
		if c, err := r.Cookie(refreshCookie); err == nil {
			token = c.Value
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	email, ok := b.refreshTokens[token]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "invalid refresh token"})
		return
	}
	// Rotation: the presented token is spent no matter what happens next.
	delete(b.refreshTokens, token)

	user, exists := b.users[email]
	if !exists {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "unknown account"})
		return
	}
	b.respondWithTokens(w, user)
}

func (b *backend) handleMe(w http.ResponseWriter, r *http.Request) {
	email, ok := b.authenticate(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "authentication required"})
		return
	}

	b.mu.Lock()
	user, exists := b.users[email]
	b.mu.Unlock()
	if !exists {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "unknown account"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": user})
}

func (b *backend) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(refreshCookie); err == nil {
		b.mu.Lock()
		delete(b.refreshTokens, c.Value)
		b.mu.Unlock()
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (b *backend) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// respondWithTokens issues a fresh access/refresh pair for the user. Caller
// must hold b.mu.
func (b *backend) respondWithTokens(w http.ResponseWriter, user mockUser) {
	accessToken, err := b.issueAccessToken(user)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "failed to issue token"})
		return
	}
	refreshToken := uuid.NewString()
	b.refreshTokens[refreshToken] = user.Email

	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    refreshToken,
		Path:     "/auth",
		HttpOnly: true,
		MaxAge:   int(refreshTokenTTL.Seconds()),
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"user":         user,
			"accessToken":  accessToken,
			"expiresIn":    int(accessTokenTTL.Seconds()),
			"refreshToken": refreshToken,
		},
	})
}

func (b *backend) issueAccessToken(user mockUser) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(accessTokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(b.secret)
}

// authenticate verifies the bearer token and returns the account email.
func (b *backend) authenticate(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	tokenString := strings.TrimPrefix(auth, "Bearer ")

	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return b.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", false
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}
	email, _ := claims["email"].(string)
	return email, email != ""
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logs.Error("failed to encode response", "error", err)
	}
}
