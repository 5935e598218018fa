package client

import (
	"sync"

	"go.uber.org/zap"
)

// Dispatcher is the single reducer for server pushes. Notification
// events update the list and the counter (the popup too, for new ones);
// book events go to the registered BookView; admin events go to the
// admin hook.
type Dispatcher struct {
	counter *UnreadCounter
	list    *NotificationList
	popup   *PopupPresenter
	log     *zap.Logger

	mu      sync.RWMutex
	books   map[string]*BookView
	onAdmin func(Event)
	onEvent func(Event)
}

// NewDispatcher takes the shared state holders; popup may be nil.
func NewDispatcher(counter *UnreadCounter, list *NotificationList, popup *PopupPresenter, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		counter: counter,
		list:    list,
		popup:   popup,
		log:     log.Named("dispatcher"),
		books:   make(map[string]*BookView),
	}
}

// OpenBook registers v to receive its book's events.
func (d *Dispatcher) OpenBook(v *BookView) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.books[v.BookID()] = v
}

func (d *Dispatcher) CloseBook(bookID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.books, bookID)
}

// Books returns the open book views.
func (d *Dispatcher) Books() []*BookView {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*BookView, 0, len(d.books))
	for _, v := range d.books {
		out = append(out, v)
	}
	return out
}

// OnAdmin sets the hook for newUser, newBook and newReport.
func (d *Dispatcher) OnAdmin(fn func(Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onAdmin = fn
}

// OnEvent sets a hook that sees every event after it was reduced.
func (d *Dispatcher) OnEvent(fn func(Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onEvent = fn
}

func (d *Dispatcher) Dispatch(ev Event) {
	switch e := ev.(type) {
	case NotificationCreated:
		d.list.Upsert(e.Notification)
		d.counter.Set(e.UnreadCount, e.CountVersion)
		if d.popup != nil {
			d.popup.Show(e.Notification)
		}

	case NotificationStatusChanged:
		d.list.SetRead(e.NotificationID, e.IsRead)
		d.counter.Settle(readSubject(e.NotificationID, e.IsRead), e.UnreadCount, e.CountVersion)

	case NotificationsMarkedAsRead:
		d.list.MarkAllRead()
		d.counter.Set(e.UnreadCount, e.CountVersion)

	case NotificationDeleted:
		d.list.Remove(e.NotificationID)
		d.counter.Settle(deleteSubject(e.NotificationID), e.UnreadCount, e.CountVersion)

	case AllNotificationsDeleted:
		d.list.Clear()
		d.counter.Set(e.UnreadCount, e.CountVersion)

	case CommentCreated:
		if v := d.book(e.Comment.BookID); v != nil {
			v.ApplyCommentCreated(e.Comment)
		}

	case CommentUpdated:
		if v := d.book(e.Comment.BookID); v != nil {
			v.ApplyCommentUpdated(e.Comment)
		}

	case CommentDeleted:
		if v := d.book(e.BookID); v != nil {
			v.ApplyCommentDeleted(e)
		}

	case InteractionUpdated:
		if v := d.book(e.Interaction.BookID); v != nil {
			v.ApplyInteraction(e.Interaction)
		}

	case UserRegistered, BookCreated, ReportSubmitted:
		d.mu.RLock()
		fn := d.onAdmin
		d.mu.RUnlock()
		if fn != nil {
			fn(ev)
		}

	case JoinDenied:
		d.log.Warn("room join denied", zap.String("room", e.Room), zap.String("reason", e.Reason))

	case Unknown:
		d.log.Debug("unknown event", zap.String("op", e.Name))
	}

	d.mu.RLock()
	fn := d.onEvent
	d.mu.RUnlock()
	if fn != nil {
		fn(ev)
	}
}

func (d *Dispatcher) book(id string) *BookView {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.books[id]
}
