package records

import (
	"errors"
	"fmt"
)

// Type is the kind of clinical document.
type Type string

const (
	TypePrescription Type = "prescription"
	TypeXRay         Type = "xray"
	TypeReport       Type = "report"
)

const (
	UploadDoctor  = "Dr. Upload"
	UploadSummary = "Uploaded patient record. Pending detailed analysis."
)

var ErrRecordNotFound = errors.New("record not found")

// Item is a clinical document in the patient's records.
type Item struct {
	ID       string `json:"id"`
	Type     Type   `json:"type"`
	Title    string `json:"title"`
	Date     string `json:"date"`
	Doctor   string `json:"doctor"`
	Summary  string `json:"summary"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// Upload describes a file the patient attached from their device.
type Upload struct {
	ID       string
	Filename string
	Date     string
	URL      string
}

// FromUpload builds the record created for an uploaded file.
func FromUpload(u Upload) Item {
	title := u.Filename
	if title == "" {
		title = fmt.Sprintf("Upload %s", u.Date)
	}
	return Item{
		ID:       u.ID,
		Type:     TypeReport,
		Title:    title,
		Date:     u.Date,
		Doctor:   UploadDoctor,
		Summary:  UploadSummary,
		ImageURL: u.URL,
	}
}
