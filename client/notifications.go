package client

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/bookshelf/server/models"
)

// NotificationCenter runs the user's notification actions against the
// REST API, with optimistic updates on the shared counter and list.
//
// Each action applies its delta under a unique key, then confirms that
// key with the count from the response, or rolls it back on failure. The
// push for the same action may settle the key first.
type NotificationCenter struct {
	api     *RESTClient
	counter *UnreadCounter
	list    *NotificationList
}

func NewNotificationCenter(api *RESTClient, counter *UnreadCounter, list *NotificationList) *NotificationCenter {
	return &NotificationCenter{api: api, counter: counter, list: list}
}

// Open is the notification screen's enter hook: the badge drops to zero
// at once, everything is marked read on the server and the first page is
// loaded.
func (c *NotificationCenter) Open(ctx context.Context) error {
	c.counter.ResetOnOpen()

	result, err := c.api.MarkAllRead(ctx)
	if err != nil {
		return err
	}
	c.list.MarkAllRead()
	c.counter.Set(result.UnreadCount, result.CountVersion)

	return c.Refresh(ctx)
}

// Refresh reloads the first page and the authoritative count.
func (c *NotificationCenter) Refresh(ctx context.Context) error {
	page, err := c.api.ListNotifications(ctx, models.FilterAll, 1, models.DefaultPageLimit)
	if err != nil {
		return err
	}
	c.list.Replace(page.Notifications)
	c.counter.Set(page.UnreadCount, page.CountVersion)
	return nil
}

// Resync restores the counter after a reconnect; pushes missed while the
// socket was down are not replayed.
func (c *NotificationCenter) Resync(ctx context.Context) error {
	result, err := c.api.UnreadCount(ctx)
	if err != nil {
		return err
	}
	c.counter.Set(result.UnreadCount, result.CountVersion)
	return nil
}

func (c *NotificationCenter) MarkOneRead(ctx context.Context, id string) error {
	return c.setRead(ctx, id, true)
}

func (c *NotificationCenter) MarkOneUnread(ctx context.Context, id string) error {
	return c.setRead(ctx, id, false)
}

// setRead records its delta under readSubject so the push for the same
// transition retires it, whichever of push and reply lands first.
func (c *NotificationCenter) setRead(ctx context.Context, id string, isRead bool) error {
	key := actionKey("read", id)

	if c.list.SetRead(id, isRead) {
		delta := 1
		if isRead {
			delta = -1
		}
		c.counter.ApplyDeltaFor(key, readSubject(id, isRead), delta)
	}

	call := c.api.MarkOneUnread
	if isRead {
		call = c.api.MarkOneRead
	}

	status, err := call(ctx, id)
	if err != nil {
		if c.counter.Rollback(key) {
			c.list.SetRead(id, !isRead)
		}
		return err
	}

	c.counter.Confirm(key, status.UnreadCount, status.CountVersion)
	return nil
}

func (c *NotificationCenter) Delete(ctx context.Context, id string) error {
	key := actionKey("delete", id)

	prev, existed := c.list.Get(id)
	if existed {
		c.list.Remove(id)
		delta := 0
		if !prev.IsRead {
			delta = -1
		}
		c.counter.ApplyDeltaFor(key, deleteSubject(id), delta)
	}

	result, err := c.api.DeleteNotification(ctx, id)
	if err != nil {
		if c.counter.Rollback(key) && existed {
			c.list.Upsert(prev)
		}
		return err
	}

	c.counter.Confirm(key, result.UnreadCount, result.CountVersion)
	return nil
}

func (c *NotificationCenter) DeleteAll(ctx context.Context) error {
	result, err := c.api.DeleteAllNotifications(ctx)
	if err != nil {
		return err
	}
	c.list.Clear()
	c.counter.Set(result.UnreadCount, result.CountVersion)
	return nil
}

// actionKey must differ for every attempt, otherwise a retried action
// would hit the already-retired key of the previous attempt.
func actionKey(kind, id string) string {
	return kind + ":" + id + ":" + uuid.NewString()
}

// readSubject names one read-state transition of a notification; the
// notificationStatusChanged push for it carries the same pair.
func readSubject(id string, isRead bool) string {
	return "read:" + id + ":" + strconv.FormatBool(isRead)
}

func deleteSubject(id string) string {
	return "delete:" + id
}
