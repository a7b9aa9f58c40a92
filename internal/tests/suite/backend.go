package suite

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"receipts/internal/model"
)

const signingKey = "test-secret"

// Backend - фейковые REST бэкенды (авторизация и основной) на одном роутере.
type Backend struct {
	mu      sync.Mutex
	users   map[string]account
	access  map[string]string // access -> email
	refresh map[string]string // refresh -> email
	tasks   []model.Task

	refreshCalls atomic.Int32
	unauthorized atomic.Int32
	holdRefresh  atomic.Int32
	refreshDelay atomic.Int64
	rejectAll    atomic.Bool
}

type account struct {
	password string
	user     model.User
}

func NewBackend() *Backend {
	return &Backend{
		users:   map[string]account{},
		access:  map[string]string{},
		refresh: map[string]string{},
	}
}

func (b *Backend) AddUser(email, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[email] = account{
		password: password,
		user: model.User{
			ID:        uuid.NewString(),
			Username:  email,
			Email:     email,
			Role:      "user",
			CreatedAt: model.Now(),
		},
	}
}

// ExpireAccess делает все выданные access токены недействительными.
func (b *Backend) ExpireAccess() {
	b.mu.Lock()
	b.access = map[string]string{}
	b.mu.Unlock()
}

// RevokeRefresh отзывает все refresh токены.
func (b *Backend) RevokeRefresh() {
	b.mu.Lock()
	b.refresh = map[string]string{}
	b.mu.Unlock()
}

func (b *Backend) RefreshCalls() int { return int(b.refreshCalls.Load()) }

func (b *Backend) Unauthorized() int { return int(b.unauthorized.Load()) }

// SetRefreshDelay держит refresh запрос открытым, чтобы клиенты успели встать в очередь.
func (b *Backend) SetRefreshDelay(d time.Duration) {
	b.refreshDelay.Store(int64(d))
}

// RejectAll заставляет отвечать 401 на любой защищённый запрос, даже со свежим токеном.
func (b *Backend) RejectAll(on bool) {
	b.rejectAll.Store(on)
}

// HoldRefreshUntil задерживает ответ refresh, пока бэкенд не отдаст n ответов 401.
func (b *Backend) HoldRefreshUntil(n int) {
	b.holdRefresh.Store(int32(n))
}

// Issue выдаёт пару токенов пользователю, как это сделал бы вход.
func (b *Backend) Issue(email string) model.TokenPair {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueLocked(email)
}

// Rotate меняет refresh токен на новую пару. ok=false - токен неизвестен.
func (b *Backend) Rotate(refreshToken string) (model.TokenPair, bool) {
	b.refreshCalls.Add(1)
	deadline := time.Now().Add(3 * time.Second)
	for b.unauthorized.Load() < b.holdRefresh.Load() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if d := time.Duration(b.refreshDelay.Load()); d > 0 {
		time.Sleep(d)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	email, ok := b.refresh[refreshToken]
	if !ok {
		return model.TokenPair{}, false
	}
	delete(b.refresh, refreshToken)
	return b.issueLocked(email), true
}

func (b *Backend) issueLocked(email string) model.TokenPair {
	access, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   b.users[email].user.ID,
		"email": email,
		"jti":   uuid.NewString(),
		"exp":   time.Now().Add(15 * time.Minute).Unix(),
	}).SignedString([]byte(signingKey))
	refresh := uuid.NewString()

	b.access[access] = email
	b.refresh[refresh] = email
	return model.TokenPair{AccessToken: access, RefreshToken: refresh}
}

func (b *Backend) AddTask(name string) model.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addTaskLocked(model.CreateTaskInput{TaskName: name})
}

func (b *Backend) addTaskLocked(in model.CreateTaskInput) model.Task {
	task := model.Task{
		ID:          uuid.NewString(),
		TaskName:    in.TaskName,
		Description: in.Description,
		DueDate:     in.DueDate,
		State:       model.TaskEnabled,
		CreatedAt:   model.Now(),
	}
	b.tasks = append(b.tasks, task)
	return task
}

func (b *Backend) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/api/v1/auth/local/login", b.login)
	r.Post("/api/v1/auth/local/register", b.register)
	r.Post("/api/v1/auth/common/refresh", b.refreshToken)

	r.Group(func(r chi.Router) {
		r.Use(b.authenticated)

		r.Post("/api/v1/auth/common/logout", b.logout)
		r.Get("/api/v1/users/me", b.me)

		r.Get("/api/v1/main/tasks", b.listTasks)
		r.Post("/api/v1/main/tasks", b.createTask)
		r.Get("/api/v1/main/tasks/{id}", b.getTask)
		r.Delete("/api/v1/main/tasks/{id}", b.deleteTask)
	})
	return r
}

func (b *Backend) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")

		b.mu.Lock()
		email, ok := b.access[token]
		b.mu.Unlock()

		if header == "" || !ok || b.rejectAll.Load() {
			b.unauthorized.Add(1)
			// FastAPI-подобная ошибка без конверта
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Could not validate credentials"})
			return
		}
		r.Header.Set("X-Test-Email", email)
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var in model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		fail(w, http.StatusBadRequest, "invalid body")
		return
	}

	b.mu.Lock()
	acc, ok := b.users[in.Username]
	if !ok || acc.password != in.Password {
		b.mu.Unlock()
		fail(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	pair := b.issueLocked(in.Username)
	b.mu.Unlock()

	user := acc.user
	ok200(w, model.LoginResult{User: &user, Tokens: pair})
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var in model.Registration
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		fail(w, http.StatusBadRequest, "invalid body")
		return
	}

	b.mu.Lock()
	if _, exists := b.users[in.Email]; exists {
		b.mu.Unlock()
		fail(w, http.StatusConflict, "user already exists")
		return
	}
	b.mu.Unlock()

	b.AddUser(in.Email, in.Password)

	b.mu.Lock()
	user := b.users[in.Email].user
	pair := b.issueLocked(in.Email)
	b.mu.Unlock()

	ok200(w, model.LoginResult{User: &user, Tokens: pair})
}

func (b *Backend) refreshToken(w http.ResponseWriter, r *http.Request) {
	var in model.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		fail(w, http.StatusBadRequest, "invalid body")
		return
	}

	pair, ok := b.Rotate(in.RefreshToken)
	if !ok {
		fail(w, http.StatusUnauthorized, "refresh token expired")
		return
	}
	ok200(w, model.LoginResult{Tokens: pair})
}

func (b *Backend) logout(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) me(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	acc := b.users[r.Header.Get("X-Test-Email")]
	b.mu.Unlock()
	ok200(w, acc.user)
}

func (b *Backend) listTasks(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	tasks := append([]model.Task{}, b.tasks...)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, model.ListEnvelope[model.Task]{
		Success:    true,
		Timestamp:  model.Now(),
		Data:       tasks,
		TotalCount: len(tasks),
	})
}

func (b *Backend) createTask(w http.ResponseWriter, r *http.Request) {
	var in model.CreateTaskInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		fail(w, http.StatusBadRequest, "invalid body")
		return
	}

	b.mu.Lock()
	task := b.addTaskLocked(in)
	b.mu.Unlock()

	// бэкенд без конверта: клиент должен обернуть сам
	writeJSON(w, http.StatusCreated, task)
}

func (b *Backend) getTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.tasks {
		if t.ID == id {
			ok200(w, t)
			return
		}
	}
	fail(w, http.StatusNotFound, "task not found")
}

func (b *Backend) deleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	b.mu.Lock()
	defer b.mu.Unlock()
	for i, t := range b.tasks {
		if t.ID == id {
			b.tasks = append(b.tasks[:i], b.tasks[i+1:]...)
			ok200(w, true)
			return
		}
	}
	fail(w, http.StatusNotFound, "task not found")
}

func ok200[T any](w http.ResponseWriter, data T) {
	writeJSON(w, http.StatusOK, model.Envelope[T]{Success: true, Timestamp: model.Now(), Data: &data})
}

func fail(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, model.Envelope[struct{}]{Success: false, Message: message, Timestamp: model.Now()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
