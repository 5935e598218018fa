package client

import (
	"sync"
	"time"

	"github.com/bookshelf/server/models"
)

// PopupDuration is how long a notification popup stays on screen.
const PopupDuration = 5 * time.Second

// shownIDsLimit bounds how many shown notification ids are remembered.
const shownIDsLimit = 256

// PopupPresenter shows a short-lived summary of each new notification.
// It consumes newNotification on its own, next to the list, and ignores a
// notification id it has already shown.
type PopupPresenter struct {
	mu       sync.Mutex
	duration time.Duration
	current  *models.NotificationView
	timer    *time.Timer
	shown    map[string]struct{}
	shownIDs []string

	onShow func(models.NotificationView)
	onHide func(id string)
}

// NewPopupPresenter takes the display hooks; either may be nil. A zero
// duration means PopupDuration.
func NewPopupPresenter(duration time.Duration, onShow func(models.NotificationView), onHide func(id string)) *PopupPresenter {
	if duration <= 0 {
		duration = PopupDuration
	}
	return &PopupPresenter{
		duration: duration,
		shown:    make(map[string]struct{}),
		onShow:   onShow,
		onHide:   onHide,
	}
}

// Show displays n, replacing whatever popup is visible.
func (p *PopupPresenter) Show(n models.NotificationView) {
	p.mu.Lock()
	if _, seen := p.shown[n.ID]; seen {
		p.mu.Unlock()
		return
	}
	p.remember(n.ID)

	var replaced string
	if p.current != nil {
		replaced = p.current.ID
		p.timer.Stop()
	}

	item := n
	p.current = &item
	p.timer = time.AfterFunc(p.duration, func() { p.expire(item.ID) })
	p.mu.Unlock()

	if replaced != "" && p.onHide != nil {
		p.onHide(replaced)
	}
	if p.onShow != nil {
		p.onShow(n)
	}
}

// Dismiss hides the popup if it currently shows id.
func (p *PopupPresenter) Dismiss(id string) {
	p.mu.Lock()
	if p.current == nil || p.current.ID != id {
		p.mu.Unlock()
		return
	}
	p.timer.Stop()
	p.current = nil
	p.mu.Unlock()

	if p.onHide != nil {
		p.onHide(id)
	}
}

// Current returns the visible notification, if any.
func (p *PopupPresenter) Current() (models.NotificationView, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return models.NotificationView{}, false
	}
	return *p.current, true
}

func (p *PopupPresenter) expire(id string) {
	p.mu.Lock()
	if p.current == nil || p.current.ID != id {
		p.mu.Unlock()
		return
	}
	p.current = nil
	p.mu.Unlock()

	if p.onHide != nil {
		p.onHide(id)
	}
}

// remember must hold p.mu. The oldest id is forgotten past shownIDsLimit.
func (p *PopupPresenter) remember(id string) {
	p.shown[id] = struct{}{}
	p.shownIDs = append(p.shownIDs, id)
	if len(p.shownIDs) > shownIDsLimit {
		oldest := p.shownIDs[0]
		p.shownIDs = p.shownIDs[1:]
		delete(p.shown, oldest)
	}
}
