package routers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/gw-todo/internal/jwt"
	"github.com/sbilibin2017/gw-todo/internal/models"
	"github.com/sbilibin2017/gw-todo/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test_secret"

type testEnv struct {
	db     *sqlx.DB
	tokens *jwt.JWT
	users  http.Handler
	todos  http.Handler
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := storage.Open(ctx, storage.DriverSQLite, ":memory:", 1, 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, storage.Migrate(ctx, db))

	tokens := jwt.New(jwt.WithSecretKey(testSecret), jwt.WithExpiration(time.Hour))
	cfg := Config{
		DB:             db,
		JWT:            tokens,
		AllowedOrigins: []string{"http://localhost:5173"},
		Now:            steppedClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), time.Minute),
	}

	return &testEnv{
		db:     db,
		tokens: tokens,
		users:  NewUsersRouter(cfg),
		todos:  NewTodosRouter(cfg),
	}
}

// steppedClock returns a clock that advances by step on every call.
func steppedClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(step)
		return now
	}
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func errorOf(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp["error"]
}

func decodeTodo(t *testing.T, rr *httptest.ResponseRecorder) models.Todo {
	t.Helper()
	var todo models.Todo
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &todo))
	return todo
}

func (e *testEnv) registerAndLogin(t *testing.T, email string) string {
	t.Helper()
	creds := map[string]string{"email": email, "password": "secret1"}

	rr := do(t, e.users, http.MethodPost, "/api/users/register", "", creds)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = do(t, e.users, http.MethodPost, "/api/users/login", "", creds)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["token"])
	return resp["token"]
}

func TestUsers_RegisterAndLogin(t *testing.T) {
	e := setup(t)
	creds := map[string]string{"email": "alice@example.com", "password": "secret1"}

	rr := do(t, e.users, http.MethodPost, "/api/users/register", "", creds)
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.JSONEq(t, `{"message":"User registered"}`, rr.Body.String())

	rr = do(t, e.users, http.MethodPost, "/api/users/register", "", creds)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "Email already in use", errorOf(t, rr))

	var count int
	require.NoError(t, e.db.Get(&count, "SELECT COUNT(*) FROM users WHERE email = ?", "alice@example.com"))
	assert.Equal(t, 1, count)

	rr = do(t, e.users, http.MethodPost, "/api/users/register", "", map[string]string{"email": "bad", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid email or password", errorOf(t, rr))

	rr = do(t, e.users, http.MethodPost, "/api/users/login", "", creds)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	var userID int64
	require.NoError(t, e.db.Get(&userID, "SELECT id FROM users WHERE email = ?", "alice@example.com"))
	gotID, err := e.tokens.GetUserID(context.Background(), resp["token"])
	require.NoError(t, err)
	assert.Equal(t, userID, gotID)

	wrongPassword := do(t, e.users, http.MethodPost, "/api/users/login", "", map[string]string{"email": "alice@example.com", "password": "wrong!!"})
	unknownEmail := do(t, e.users, http.MethodPost, "/api/users/login", "", map[string]string{"email": "nobody@example.com", "password": "secret1"})
	missingPassword := do(t, e.users, http.MethodPost, "/api/users/login", "", map[string]string{"email": "alice@example.com"})
	for _, rr := range []*httptest.ResponseRecorder{wrongPassword, unknownEmail, missingPassword} {
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.JSONEq(t, `{"error":"Invalid credentials"}`, rr.Body.String())
	}
}

func TestUsers_LongPassword(t *testing.T) {
	e := setup(t)
	creds := map[string]string{"email": "long@example.com", "password": strings.Repeat("a", 100)}

	rr := do(t, e.users, http.MethodPost, "/api/users/register", "", creds)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = do(t, e.users, http.MethodPost, "/api/users/login", "", creds)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["token"])
}

func TestTodos_BuyMilkScenario(t *testing.T) {
	e := setup(t)
	token := e.registerAndLogin(t, "alice@example.com")

	rr := do(t, e.todos, http.MethodPost, "/api/todos", token, map[string]string{"title": "Buy milk"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decodeTodo(t, rr)
	assert.Equal(t, "Buy milk", created.Title)
	assert.Nil(t, created.Description)
	assert.False(t, created.IsCompleted)
	assert.Positive(t, created.ID)

	path := fmt.Sprintf("/api/todos/%d", created.ID)

	rr = do(t, e.todos, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, created.ID, decodeTodo(t, rr).ID)

	rr = do(t, e.todos, http.MethodPut, path, token, map[string]bool{"isCompleted": true})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decodeTodo(t, rr)
	assert.True(t, updated.IsCompleted)
	assert.Equal(t, "Buy milk", updated.Title)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt), "updatedAt %v must be after %v", updated.UpdatedAt, created.UpdatedAt)
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))

	rr = do(t, e.todos, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	fetched := decodeTodo(t, rr)
	assert.True(t, fetched.IsCompleted)
	assert.True(t, fetched.UpdatedAt.Equal(updated.UpdatedAt))

	rr = do(t, e.todos, http.MethodPut, path, token, map[string]string{"description": "Y"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	described := decodeTodo(t, rr)
	assert.True(t, described.UpdatedAt.After(updated.UpdatedAt))

	rr = do(t, e.todos, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	fetched = decodeTodo(t, rr)
	require.NotNil(t, fetched.Description)
	assert.Equal(t, "Y", *fetched.Description)
	assert.Equal(t, "Buy milk", fetched.Title)
	assert.True(t, fetched.IsCompleted)

	rr = do(t, e.todos, http.MethodPut, path, token, map[string]string{"title": "   "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Title is required", errorOf(t, rr))

	rr = do(t, e.todos, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, e.todos, http.MethodGet, path, token, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "Unauthorized or Not Found", errorOf(t, rr))

	rr = do(t, e.todos, http.MethodGet, "/api/todos", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestTodos_Ownership(t *testing.T) {
	e := setup(t)
	alice := e.registerAndLogin(t, "alice@example.com")
	bob := e.registerAndLogin(t, "bob@example.com")

	rr := do(t, e.todos, http.MethodPost, "/api/todos", alice, map[string]string{"title": "Alice's todo", "description": "private"})
	require.Equal(t, http.StatusCreated, rr.Code)
	todo := decodeTodo(t, rr)
	path := fmt.Sprintf("/api/todos/%d", todo.ID)

	rr = do(t, e.todos, http.MethodGet, path, bob, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "Unauthorized or Not Found", errorOf(t, rr))

	rr = do(t, e.todos, http.MethodPut, path, bob, map[string]string{"title": "hijacked"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "Unauthorized", errorOf(t, rr))

	rr = do(t, e.todos, http.MethodDelete, path, bob, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "Unauthorized", errorOf(t, rr))

	rr = do(t, e.todos, http.MethodGet, path, alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	unchanged := decodeTodo(t, rr)
	assert.Equal(t, "Alice's todo", unchanged.Title)
	require.NotNil(t, unchanged.Description)
	assert.Equal(t, "private", *unchanged.Description)
}

func TestTodos_ListOwnNewestFirst(t *testing.T) {
	e := setup(t)
	tokens := map[string]string{
		"alice": e.registerAndLogin(t, "alice@example.com"),
		"bob":   e.registerAndLogin(t, "bob@example.com"),
	}

	for _, name := range []string{"alice", "bob"} {
		for i := 1; i <= 2; i++ {
			rr := do(t, e.todos, http.MethodPost, "/api/todos", tokens[name], map[string]string{"title": fmt.Sprintf("%s %d", name, i)})
			require.Equal(t, http.StatusCreated, rr.Code)
		}
	}

	for _, name := range []string{"alice", "bob"} {
		rr := do(t, e.todos, http.MethodGet, "/api/todos", tokens[name], nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var todos []models.Todo
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &todos))
		require.Len(t, todos, 2)
		assert.Equal(t, name+" 2", todos[0].Title)
		assert.Equal(t, name+" 1", todos[1].Title)
		assert.Equal(t, todos[0].UserID, todos[1].UserID)
	}
}

func TestTodos_InvalidRequests(t *testing.T) {
	e := setup(t)
	token := e.registerAndLogin(t, "alice@example.com")

	expired, err := jwt.New(jwt.WithSecretKey(testSecret), jwt.WithExpiration(-time.Minute)).Generate(context.Background(), 1)
	require.NoError(t, err)
	foreign, err := jwt.New(jwt.WithSecretKey("other_secret")).Generate(context.Background(), 1)
	require.NoError(t, err)

	tests := []struct {
		name         string
		method       string
		path         string
		header       string
		body         any
		expectedCode int
		expectedErr  string
	}{
		{name: "no token", method: http.MethodGet, path: "/api/todos", expectedCode: http.StatusUnauthorized, expectedErr: "Access denied. No token provided."},
		{name: "malformed header", method: http.MethodGet, path: "/api/todos", header: "InvalidFormat", expectedCode: http.StatusUnauthorized, expectedErr: "Access denied. No token provided."},
		{name: "garbage token", method: http.MethodGet, path: "/api/todos", header: "Bearer not.a.token", expectedCode: http.StatusUnauthorized, expectedErr: "Invalid token."},
		{name: "expired token", method: http.MethodGet, path: "/api/todos", header: "Bearer " + expired, expectedCode: http.StatusUnauthorized, expectedErr: "Invalid token."},
		{name: "wrong secret", method: http.MethodGet, path: "/api/todos", header: "Bearer " + foreign, expectedCode: http.StatusUnauthorized, expectedErr: "Invalid token."},
		{name: "non numeric id", method: http.MethodGet, path: "/api/todos/abc", header: "Bearer " + token, expectedCode: http.StatusBadRequest, expectedErr: "Invalid todo ID"},
		{name: "zero id", method: http.MethodDelete, path: "/api/todos/0", header: "Bearer " + token, expectedCode: http.StatusBadRequest, expectedErr: "Invalid todo ID"},
		{name: "negative id", method: http.MethodPut, path: "/api/todos/-1", header: "Bearer " + token, body: map[string]bool{"isCompleted": true}, expectedCode: http.StatusBadRequest, expectedErr: "Invalid todo ID"},
		{name: "missing title", method: http.MethodPost, path: "/api/todos", header: "Bearer " + token, body: map[string]string{"description": "no title"}, expectedCode: http.StatusBadRequest, expectedErr: "Title is required"},
		{name: "malformed body", method: http.MethodPost, path: "/api/todos", header: "Bearer " + token, body: "{oops", expectedCode: http.StatusBadRequest, expectedErr: "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			switch b := tt.body.(type) {
			case nil:
			case string:
				buf.WriteString(b)
			default:
				require.NoError(t, json.NewEncoder(&buf).Encode(b))
			}

			req := httptest.NewRequest(tt.method, tt.path, &buf)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			e.todos.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)
			assert.Equal(t, tt.expectedErr, errorOf(t, rr))
		})
	}
}

func TestRouters_Ambient(t *testing.T) {
	e := setup(t)

	for name, h := range map[string]http.Handler{"users": e.users, "todos": e.todos} {
		t.Run(name+" health", func(t *testing.T) {
			rr := do(t, h, http.MethodGet, "/health", "", nil)
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
			assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
		})

		t.Run(name+" swagger", func(t *testing.T) {
			rr := do(t, h, http.MethodGet, "/swagger/doc.json", "", nil)
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Contains(t, rr.Body.String(), "/todos/{id}")
		})

		t.Run(name+" cors preflight", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/api/todos", nil)
			req.Header.Set("Origin", "http://localhost:5173")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
		})

		t.Run(name+" cors foreign origin", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/api/todos", nil)
			req.Header.Set("Origin", "http://evil.example.com")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
