package inbox

import "errors"

// Type classifies a notification by the area of the portal it refers to.
type Type string

const (
	TypeAppointment Type = "appointment"
	TypeMedication  Type = "medication"
	TypeRecord      Type = "record"
	TypeGeneral     Type = "general"
)

// ExportFilename is the download name of a notification history export.
const ExportFilename = "notification-history.json"

var ErrNotificationNotFound = errors.New("notification not found")

// Notification is a clinic message shown in the notification center.
type Notification struct {
	ID      int    `json:"id"`
	Text    string `json:"text"`
	Details string `json:"details"`
	Time    string `json:"time"`
	Read    bool   `json:"read"`
	Type    Type   `json:"type"`
}

// Clone returns a copy of the collection.
func Clone(ns []Notification) []Notification {
	if ns == nil {
		return nil
	}
	return append([]Notification(nil), ns...)
}
