package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bookshelf/server/models"
)

// Config is everything an App needs to talk to one server as one user.
type Config struct {
	// BaseURL is the http(s) root; the socket URL is derived from it.
	BaseURL string
	Token   string
	UserID  string

	HTTPClient    *http.Client
	Backoff       Backoff
	PopupDuration time.Duration
	OnPopup       func(models.NotificationView)
	OnPopupHide   func(id string)

	Log *zap.Logger
}

// App wires the REST client, the socket session and the state holders
// together the way a signed-in screen uses them.
type App struct {
	API           *RESTClient
	Counter       *UnreadCounter
	Notifications *NotificationList
	Popup         *PopupPresenter
	Center        *NotificationCenter
	Dispatcher    *Dispatcher
	Session       *Session

	userID string
	log    *zap.Logger
}

func NewApp(cfg Config) *App {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	a := &App{
		API:           NewRESTClient(cfg.BaseURL, cfg.Token, cfg.HTTPClient),
		Counter:       NewUnreadCounter(),
		Notifications: NewNotificationList(),
		Popup:         NewPopupPresenter(cfg.PopupDuration, cfg.OnPopup, cfg.OnPopupHide),
		userID:        cfg.UserID,
		log:           log,
	}
	a.Center = NewNotificationCenter(a.API, a.Counter, a.Notifications)
	a.Dispatcher = NewDispatcher(a.Counter, a.Notifications, a.Popup, log)
	a.Session = NewSession(SessionConfig{
		URL:      socketURL(cfg.BaseURL),
		Token:    cfg.Token,
		Backoff:  cfg.Backoff,
		OnResync: a.Resync,
		Log:      log,
	}, a.Dispatcher)

	return a
}

// Run joins the user's room, loads the unread count and keeps the socket
// alive until ctx ends.
func (a *App) Run(ctx context.Context) error {
	if err := a.Session.JoinUserRoom(a.userID); err != nil {
		return err
	}
	if err := a.Center.Resync(ctx); err != nil {
		a.log.Warn("initial unread count failed", zap.Error(err))
	}
	return a.Session.Run(ctx)
}

// OpenBook joins the book's room and loads its comments and snapshot.
func (a *App) OpenBook(ctx context.Context, bookID string) (*BookView, error) {
	view := NewBookView(bookID, a.userID)
	a.Dispatcher.OpenBook(view)

	if err := a.Session.JoinBookRoom(bookID); err != nil {
		a.Dispatcher.CloseBook(bookID)
		return nil, err
	}
	if err := a.loadBook(ctx, view); err != nil {
		return view, err
	}
	return view, nil
}

func (a *App) CloseBook(bookID string) error {
	a.Dispatcher.CloseBook(bookID)
	return a.Session.LeaveBookRoom(bookID)
}

// Resync re-fetches what pushes may have missed: the unread count and the
// state of every open book.
func (a *App) Resync(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.Center.Resync(gctx) })
	for _, view := range a.Dispatcher.Books() {
		g.Go(func() error { return a.loadBook(gctx, view) })
	}

	return g.Wait()
}

func (a *App) loadBook(ctx context.Context, view *BookView) error {
	comments, err := a.API.ListComments(ctx, view.BookID())
	if err != nil {
		return err
	}
	view.LoadComments(comments)

	snapshot, err := a.API.Interaction(ctx, view.BookID())
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	view.ApplyInteraction(*snapshot)
	return nil
}

func socketURL(baseURL string) string {
	u := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}
