package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookshelf/server/database"
	"github.com/bookshelf/server/models"
	"github.com/bookshelf/server/pkg/ratelimit"
	"github.com/bookshelf/server/repository"
	"github.com/bookshelf/server/services"
	"github.com/bookshelf/server/ws"
)

type nopPublisher struct{}

func (nopPublisher) Publish(string, ws.Event) {}

type fixture struct {
	users         repository.UserRepository
	books         repository.BookRepository
	notifications services.NotificationService
	engagement    services.EngagementService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	migrations, err := database.Migrations()
	require.NoError(t, err)
	db, err := database.New(filepath.Join(t.TempDir(), "handlers.db"), migrations, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := repository.NewSQLiteUserRepo(db.Conn)
	books := repository.NewSQLiteBookRepo(db.Conn)
	notifications := services.NewNotificationService(
		repository.NewSQLiteNotificationRepo(db.Conn), users, nopPublisher{}, nil, nil, nil)
	engagement := services.NewEngagementService(
		db.Conn,
		books,
		repository.NewSQLiteCommentRepo(db.Conn),
		repository.NewSQLiteInteractionRepo(db.Conn),
		users,
		notifications,
		nopPublisher{},
		nil,
	)
	return &fixture{users: users, books: books, notifications: notifications, engagement: engagement}
}

func (f *fixture) user(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, PasswordHash: "x"}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

// do runs handler as user; a nil user means unauthenticated. pattern is
// the mux pattern so path values resolve like in production.
func do(t *testing.T, pattern string, handler http.HandlerFunc, user *models.User, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc(pattern, handler)

	req := httptest.NewRequest(method, path, body)
	if user != nil {
		req = req.WithContext(context.WithValue(req.Context(), UserContextKey, user))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, into any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	if into != nil {
		require.NoError(t, json.Unmarshal(env.Data, into))
	}
	return env
}

func TestNotificationHandler_ReadFlow(t *testing.T) {
	f := newFixture(t)
	h := NewNotificationHandler(f.notifications)
	r := f.user(t, "reader")
	s := f.user(t, "sender")
	other := f.user(t, "other")

	n, err := f.notifications.Notify(context.Background(), models.NotifyParams{
		RecipientID: r.ID, SenderID: s.ID, Type: models.NotificationNewComment, Message: "hi",
	})
	require.NoError(t, err)

	rec := do(t, "GET /api/notifications", h.List, r, http.MethodGet, "/api/notifications?filter=unread&limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page models.NotificationPage
	decode(t, rec, &page)
	assert.Equal(t, 1, page.UnreadCount)
	assert.Equal(t, 1, page.TotalPages)
	require.Len(t, page.Notifications, 1)
	assert.Equal(t, n.ID, page.Notifications[0].ID)

	markOne := "POST /api/notifications/{id}/mark-one-as-read"
	path := "/api/notifications/" + n.ID + "/mark-one-as-read"

	rec = do(t, markOne, h.MarkOneRead, other, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, markOne, h.MarkOneRead, r, http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status models.NotificationStatus
	decode(t, rec, &status)
	assert.Equal(t, models.NotificationStatus{NotificationID: n.ID, IsRead: true, UnreadCount: 0, CountVersion: 2}, status)

	rec = do(t, markOne, h.MarkOneRead, r, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, decode(t, rec, nil).Success)

	rec = do(t, "GET /api/notifications/unread-count", h.UnreadCount, r, http.MethodGet, "/api/notifications/unread-count", nil)
	var count models.UnreadCountResult
	decode(t, rec, &count)
	assert.Zero(t, count.UnreadCount)

	rec = do(t, "DELETE /api/notifications", h.DeleteAll, r, http.MethodDelete, "/api/notifications", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNotificationHandler_RequiresUser(t *testing.T) {
	f := newFixture(t)
	h := NewNotificationHandler(f.notifications)

	rec := do(t, "GET /api/notifications", h.List, nil, http.MethodGet, "/api/notifications", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEngagementHandler_LikeAndRateLimit(t *testing.T) {
	f := newFixture(t)
	limiter := ratelimit.NewActionRateLimiter(2, time.Minute, time.Minute)
	t.Cleanup(limiter.Close)
	h := NewEngagementHandler(f.engagement, limiter)

	owner := f.user(t, "owner")
	fan := f.user(t, "fan")
	book := &models.Book{OwnerID: owner.ID, Title: "Dune", Author: "Herbert"}
	require.NoError(t, f.books.Create(context.Background(), book))

	like := "POST /api/books/{id}/like"
	path := "/api/books/" + book.ID + "/like"

	rec := do(t, like, h.Like, fan, http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap models.BookInteraction
	decode(t, rec, &snap)
	assert.Equal(t, 1, snap.LikeCount)
	assert.Equal(t, []string{fan.ID}, snap.LikedBy)

	rec = do(t, like, h.Like, fan, http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, like, h.Like, fan, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec = do(t, like, h.Like, owner, http.MethodPost, "/api/books/missing/like", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEngagementHandler_Comments(t *testing.T) {
	f := newFixture(t)
	h := NewEngagementHandler(f.engagement, nil)

	owner := f.user(t, "owner")
	author := f.user(t, "author")
	book := &models.Book{OwnerID: owner.ID, Title: "Dune", Author: "Herbert"}
	require.NoError(t, f.books.Create(context.Background(), book))

	create := "POST /api/books/{id}/comments"
	path := "/api/books/" + book.ID + "/comments"

	rec := do(t, create, h.CreateComment, author, http.MethodPost, path, bytes.NewBufferString(`{"text":""}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, create, h.CreateComment, author, http.MethodPost, path, bytes.NewBufferString(`{"text":"lovely"}`))
	require.Equal(t, http.StatusCreated, rec.Code)
	var comment models.Comment
	decode(t, rec, &comment)
	assert.Equal(t, author.ID, comment.SenderID)

	rec = do(t, "PATCH /api/comments/{id}", h.UpdateComment, owner, http.MethodPatch,
		"/api/comments/"+comment.ID, bytes.NewBufferString(`{"text":"mine now"}`))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, "GET /api/books/{id}/comments", h.ListComments, owner, http.MethodGet, path, nil)
	var comments []models.Comment
	decode(t, rec, &comments)
	require.Len(t, comments, 1)
	assert.Equal(t, "lovely", comments[0].Text)
}

type memoryStore struct {
	data []byte
}

func (m *memoryStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	b, err := io.ReadAll(r)
	m.data = b
	return "http://cdn.test/" + key, err
}

// imageForm builds a multipart body with one "file" part.
func imageForm(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return &body, mw.FormDataContentType()
}

func postForm(t *testing.T, pattern string, handler http.HandlerFunc, user *models.User, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc(pattern, handler)
	_, path, _ := strings.Cut(pattern, " ")

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	req = req.WithContext(context.WithValue(req.Context(), UserContextKey, user))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestUploadHandler(t *testing.T) {
	store := &memoryStore{}
	h := NewUploadHandler(services.NewUploadService(store, 1024), 1024)
	u := &models.User{ID: "u1", Username: "reader"}

	body, contentType := imageForm(t, "cover.png", []byte("png-bytes"))
	rec := postForm(t, "POST /api/uploads", h.Upload, u, body, contentType)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var result services.UploadResult
	decode(t, rec, &result)
	assert.Equal(t, "image/png", result.ContentType)
	assert.Equal(t, []byte("png-bytes"), store.data)
}

func TestAvatarHandler_UpdatesUser(t *testing.T) {
	f := newFixture(t)
	store := &memoryStore{}
	h := NewAvatarHandler(services.NewUploadService(store, 1024), f.users, 1024)
	u := f.user(t, "reader")

	body, contentType := imageForm(t, "me.png", []byte("face"))
	rec := postForm(t, "POST /api/users/me/avatar", h.UploadUserAvatar, u, body, contentType)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated models.User
	decode(t, rec, &updated)
	require.NotNil(t, updated.AvatarURL)
	assert.True(t, strings.HasPrefix(*updated.AvatarURL, "http://cdn.test/uploads/"+u.ID+"/"))
	assert.Empty(t, updated.PasswordHash)

	stored, err := f.users.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.AvatarURL, stored.AvatarURL)
}

type fixedConnections int

func (c fixedConnections) ConnectionCount() int { return int(c) }

func TestStatsHandler(t *testing.T) {
	f := newFixture(t)
	h := NewStatsHandler(f.users, f.books, fixedConnections(3))

	admin := f.user(t, "admin")
	f.user(t, "reader")
	require.NoError(t, f.books.Create(context.Background(), &models.Book{OwnerID: admin.ID, Title: "Dune", Author: "Herbert"}))

	rec := do(t, "GET /api/admin/stats", h.GetStats, admin, http.MethodGet, "/api/admin/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats StatsResponse
	decode(t, rec, &stats)
	assert.Equal(t, StatsResponse{TotalUsers: 2, TotalBooks: 1, Connections: 3}, stats)
}
