package inbox

import (
	"encoding/json"
	"fmt"
)

// MarkRead marks a single notification as read. Reading an already read
// notification returns an equal collection.
func MarkRead(id int, ns []Notification) ([]Notification, error) {
	for i, n := range ns {
		if n.ID == id {
			out := Clone(ns)
			out[i].Read = true
			return out, nil
		}
	}
	return ns, ErrNotificationNotFound
}

// MarkAllRead marks every notification as read.
func MarkAllRead(ns []Notification) []Notification {
	out := Clone(ns)
	for i := range out {
		out[i].Read = true
	}
	return out
}

// UnreadCount returns the number of unread notifications.
func UnreadCount(ns []Notification) int {
	n := 0
	for _, x := range ns {
		if !x.Read {
			n++
		}
	}
	return n
}

// Find returns the notification with the given id.
func Find(id int, ns []Notification) (Notification, bool) {
	for _, n := range ns {
		if n.ID == id {
			return n, true
		}
	}
	return Notification{}, false
}

// ExportSnapshot serialises the collection as an indented JSON array.
func ExportSnapshot(ns []Notification) ([]byte, error) {
	if ns == nil {
		ns = []Notification{}
	}
	data, err := json.MarshalIndent(ns, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export notifications: %w", err)
	}
	return data, nil
}
