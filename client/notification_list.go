package client

import (
	"sort"
	"sync"

	"github.com/bookshelf/server/models"
)

// NotificationList is the local copy of the recipient's notifications,
// newest first. Every update is keyed by id, so the same push applied
// twice (say by the list and again after a REST refresh) changes nothing.
type NotificationList struct {
	mu    sync.RWMutex
	items []models.NotificationView
}

func NewNotificationList() *NotificationList {
	return &NotificationList{}
}

// Replace installs a freshly fetched page.
func (l *NotificationList) Replace(items []models.NotificationView) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append([]models.NotificationView(nil), items...)
	l.sort()
}

// Upsert inserts n or overwrites the record with the same id.
func (l *NotificationList) Upsert(n models.NotificationView) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i := l.index(n.ID); i >= 0 {
		l.items[i] = n
		return
	}
	l.items = append(l.items, n)
	l.sort()
}

// SetRead reports whether the record existed and changed state.
func (l *NotificationList) SetRead(id string, isRead bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.index(id)
	if i < 0 || l.items[i].IsRead == isRead {
		return false
	}
	l.items[i].IsRead = isRead
	return true
}

func (l *NotificationList) MarkAllRead() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		l.items[i].IsRead = true
	}
}

// Remove reports whether id was present.
func (l *NotificationList) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.index(id)
	if i < 0 {
		return false
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	return true
}

func (l *NotificationList) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
}

func (l *NotificationList) Get(id string) (models.NotificationView, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i := l.index(id); i >= 0 {
		return l.items[i], true
	}
	return models.NotificationView{}, false
}

// Items returns a copy, newest first.
func (l *NotificationList) Items() []models.NotificationView {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.NotificationView(nil), l.items...)
}

func (l *NotificationList) index(id string) int {
	for i := range l.items {
		if l.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (l *NotificationList) sort() {
	sort.SliceStable(l.items, func(i, j int) bool {
		return l.items[i].CreatedAt.After(l.items[j].CreatedAt)
	})
}
