package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/emilythestrangee/ai-forum/backend/internal/config"
	"github.com/emilythestrangee/ai-forum/backend/internal/content"
	"github.com/emilythestrangee/ai-forum/backend/internal/database"
	"github.com/emilythestrangee/ai-forum/backend/internal/upload"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	gin.SetMode(gin.TestMode)

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("forum"),
		postgres.WithUsername("forum"),
		postgres.WithPassword("forum"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.Open(dsn, false, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())

	cfg := &config.Config{
		Port:            "0",
		JWTSecret:       "test-secret",
		TokenTTL:        time.Hour,
		AllowedOrigins:  []string{"http://localhost:5173"},
		VoteMaxAttempts: 3,
	}
	srv := newServer(cfg, db, content.NewService(nil, nil), upload.NewUploader(nil, "", "", nil), zap.NewNop())
	return srv.RegisterRoutes()
}

type client struct {
	t     *testing.T
	h     http.Handler
	token string
}

func (c *client) do(method, path string, body any) (int, json.RawMessage) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.h.ServeHTTP(w, req)
	return w.Code, w.Body.Bytes()
}

func (c *client) decode(method, path string, body any, want int, out any) {
	c.t.Helper()
	code, raw := c.do(method, path, body)
	require.Equal(c.t, want, code, "%s %s: %s", method, path, raw)
	if out != nil {
		require.NoError(c.t, json.Unmarshal(raw, out))
	}
}

type session struct {
	Token string `json:"token"`
	User  struct {
		ID int `json:"id"`
	} `json:"user"`
}

func signup(t *testing.T, h http.Handler, name, email string) (*client, int) {
	anon := &client{t: t, h: h}
	var s session
	anon.decode(http.MethodPost, "/api/auth/signup", gin.H{"name": name, "email": email, "password": "secret123"}, http.StatusCreated, &s)
	return &client{t: t, h: h, token: s.Token}, s.User.ID
}

type entityView struct {
	ID         int    `json:"id"`
	Score      int    `json:"score"`
	Upvotes    int    `json:"upvotes"`
	Downvotes  int    `json:"downvotes"`
	UserVote   int    `json:"user_vote"`
	Transition string `json:"transition"`
	Author     struct {
		ID    int `json:"id"`
		Score int `json:"score"`
	} `json:"author"`
}

type leader struct {
	ID    int `json:"id"`
	Score int `json:"score"`
	Rank  int `json:"rank"`
}

func scores(c *client) map[int]int {
	var board []leader
	c.decode(http.MethodGet, "/api/leaderboard?limit=50", nil, http.StatusOK, &board)
	out := map[int]int{}
	for _, l := range board {
		out[l.ID] = l.Score
	}
	return out
}

func TestForumFlow(t *testing.T) {
	h := newTestServer(t)

	author, authorID := signup(t, h, "Ada", "Ada@Example.com")
	voter, voterID := signup(t, h, "Linus", "linus@example.com")
	anon := &client{t: t, h: h}

	code, _ := anon.do(http.MethodPost, "/api/auth/signup", gin.H{"name": "Again", "email": "ada@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusBadRequest, code, "duplicate email")

	var created entityView
	author.decode(http.MethodPost, "/api/posts", gin.H{"title": "Hello", "content": "First post", "tags": "go, forum"}, http.StatusCreated, &created)

	code, _ = anon.do(http.MethodPost, "/api/posts/1/vote", gin.H{"value": 1})
	assert.Equal(t, http.StatusUnauthorized, code)

	var voted entityView
	voter.decode(http.MethodPost, "/api/posts/"+strconv.Itoa(created.ID)+"/vote", gin.H{"value": 1}, http.StatusOK, &voted)
	assert.Equal(t, 1, voted.Score)
	assert.Equal(t, 1, voted.UserVote)
	assert.Equal(t, "cast", voted.Transition)
	assert.Equal(t, map[int]int{authorID: 10, voterID: 2}, scores(anon))

	code, _ = voter.do(http.MethodPost, "/api/posts/"+strconv.Itoa(created.ID)+"/vote", gin.H{"value": 2})
	assert.Equal(t, http.StatusBadRequest, code)

	voter.decode(http.MethodPost, "/api/posts/"+strconv.Itoa(created.ID)+"/vote", gin.H{"value": -1}, http.StatusOK, &voted)
	assert.Equal(t, "switch", voted.Transition)
	assert.Equal(t, -1, voted.Score)
	assert.Equal(t, map[int]int{authorID: -2, voterID: 0}, scores(anon))

	var listed []entityView
	voter.decode(http.MethodGet, "/api/posts", nil, http.StatusOK, &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, -1, listed[0].UserVote)
	assert.Equal(t, 1, listed[0].Downvotes)
	anon.decode(http.MethodGet, "/api/posts", nil, http.StatusOK, &listed)
	assert.Equal(t, 0, listed[0].UserVote)

	var comment entityView
	voter.decode(http.MethodPost, "/api/comments/post/"+strconv.Itoa(created.ID), gin.H{"content": "Nice"}, http.StatusCreated, &comment)
	author.decode(http.MethodPost, "/api/comments/"+strconv.Itoa(comment.ID)+"/vote", gin.H{"value": 1}, http.StatusOK, &voted)
	assert.Equal(t, map[int]int{authorID: -2, voterID: 5}, scores(anon))

	code, _ = voter.do(http.MethodDelete, "/api/posts/"+strconv.Itoa(created.ID), nil)
	assert.Equal(t, http.StatusForbidden, code)

	author.decode(http.MethodDelete, "/api/posts/"+strconv.Itoa(created.ID), nil, http.StatusOK, nil)
	assert.Equal(t, map[int]int{authorID: 0, voterID: 0}, scores(anon))

	code, _ = anon.do(http.MethodGet, "/api/comments/post/"+strconv.Itoa(created.ID), nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = author.do(http.MethodPost, "/api/content/generate", gin.H{"title": "Learning Go"})
	assert.Equal(t, http.StatusServiceUnavailable, code)

	code, _ = author.do(http.MethodGet, "/api/auth/users", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, raw := anon.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(raw), `forum_votes_total{kind="post",transition="switch"} 1`)

	code, _ = anon.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
}
