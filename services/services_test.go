package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bookshelf/server/database"
	"github.com/bookshelf/server/models"
	"github.com/bookshelf/server/pkg/email"
	"github.com/bookshelf/server/repository"
	"github.com/bookshelf/server/ws"
)

type published struct {
	Room  string
	Event ws.Event
}

// recordingPublisher captures every published event in order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(room string, event ws.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{Room: room, Event: event})
}

func (p *recordingPublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.events...)
}

func (p *recordingPublisher) withOp(op string) []published {
	var out []published
	for _, e := range p.all() {
		if e.Event.Op == op {
			out = append(out, e)
		}
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []email.Message
}

func (m *recordingMailer) Send(_ context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) messages() []email.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]email.Message(nil), m.sent...)
}

type testEnv struct {
	db            *database.DB
	hub           *recordingPublisher
	users         repository.UserRepository
	books         repository.BookRepository
	notifRepo     repository.NotificationRepository
	notifications NotificationService
	engagement    EngagementService
	follows       FollowService
	feed          *AdminFeed
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithMailer(t, nil)
}

func newTestEnvWithMailer(t *testing.T, mailer email.Sender) *testEnv {
	t.Helper()

	migrations, err := database.Migrations()
	require.NoError(t, err)
	db, err := database.New(filepath.Join(t.TempDir(), "services.db"), migrations, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	hub := &recordingPublisher{}
	users := repository.NewSQLiteUserRepo(db.Conn)
	books := repository.NewSQLiteBookRepo(db.Conn)
	notifRepo := repository.NewSQLiteNotificationRepo(db.Conn)

	notifications := NewNotificationService(notifRepo, users, hub, mailer, nil, nil)
	engagement := NewEngagementService(
		db.Conn,
		books,
		repository.NewSQLiteCommentRepo(db.Conn),
		repository.NewSQLiteInteractionRepo(db.Conn),
		users,
		notifications,
		hub,
		nil,
	)
	follows := NewFollowService(repository.NewSQLiteFollowRepo(db.Conn), users, notifications, nil)

	return &testEnv{
		db:            db,
		hub:           hub,
		users:         users,
		books:         books,
		notifRepo:     notifRepo,
		notifications: notifications,
		engagement:    engagement,
		follows:       follows,
		feed:          NewAdminFeed(hub),
	}
}

func (e *testEnv) user(t *testing.T, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, PasswordHash: "x"}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u
}

func (e *testEnv) userWithEmail(t *testing.T, username, address string) *models.User {
	t.Helper()
	u := &models.User{Username: username, PasswordHash: "x", Email: &address}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u
}

func (e *testEnv) book(t *testing.T, ownerID, title string) *models.Book {
	t.Helper()
	b := &models.Book{OwnerID: ownerID, Title: title, Author: "Anon"}
	require.NoError(t, e.books.Create(context.Background(), b))
	return b
}

func (e *testEnv) notify(t *testing.T, recipient, sender string) *models.NotificationView {
	t.Helper()
	view, err := e.notifications.Notify(context.Background(), models.NotifyParams{
		RecipientID: recipient,
		SenderID:    sender,
		Type:        models.NotificationNewComment,
		Message:     "hello",
	})
	require.NoError(t, err)
	require.NotNil(t, view)
	return view
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 10*time.Millisecond)
}
