package state

import (
	"slices"

	"github.com/nhle/theora/internal/model"
	"github.com/nhle/theora/internal/store"
)

// AddNotification prepends an unread notification. The history keeps at
// most model.MaxNotifications entries, dropping the oldest.
func (c *Container) AddNotification(message, typ string) model.Notification {
	var n model.Notification
	_ = c.update(func(b *batch) error {
		n = c.addNotificationLocked(b, message, typ)
		return nil
	})
	return n
}

func (c *Container) addNotificationLocked(b *batch, message, typ string) model.Notification {
	if typ == "" {
		typ = model.NotificationGeneral
	}
	n := model.Notification{
		ID:        c.newID(),
		Message:   message,
		Type:      typ,
		Timestamp: c.now(),
	}
	c.notifications = slices.Insert(c.notifications, 0, n)
	if len(c.notifications) > model.MaxNotifications {
		c.notifications = c.notifications[:model.MaxNotifications]
	}
	c.notificationsChangedLocked(b)
	return n
}

// MarkNotificationRead marks one notification read. Unknown ids are ignored.
func (c *Container) MarkNotificationRead(id string) {
	_ = c.update(func(b *batch) error {
		i := slices.IndexFunc(c.notifications, func(n model.Notification) bool { return n.ID == id })
		if i < 0 || c.notifications[i].Read {
			return nil
		}
		c.notifications[i].Read = true
		c.notificationsChangedLocked(b)
		return nil
	})
}

// MarkAllNotificationsRead marks every notification read.
func (c *Container) MarkAllNotificationsRead() {
	_ = c.update(func(b *batch) error {
		if model.UnreadCount(c.notifications) == 0 {
			return nil
		}
		for i := range c.notifications {
			c.notifications[i].Read = true
		}
		c.notificationsChangedLocked(b)
		return nil
	})
}

// ClearNotifications empties the notification history.
func (c *Container) ClearNotifications() {
	_ = c.update(func(b *batch) error {
		if len(c.notifications) == 0 {
			return nil
		}
		c.notifications = []model.Notification{}
		c.notificationsChangedLocked(b)
		return nil
	})
}

// Notifications returns a copy of the history, newest first.
func (c *Container) Notifications() []model.Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.notifications)
}

// Notifications are local only and never mirrored remotely.
func (c *Container) notificationsChangedLocked(b *batch) {
	if c.user != nil {
		_ = c.local.Write(store.NotificationsKey(c.user.ID), c.notifications)
	}
	b.add(NotificationsChanged, slices.Clone(c.notifications))
}
