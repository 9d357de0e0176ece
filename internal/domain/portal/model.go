package portal

import (
	"github.com/luminous/portal/internal/domain/chat"
	"github.com/luminous/portal/internal/domain/identity"
	"github.com/luminous/portal/internal/domain/inbox"
	"github.com/luminous/portal/internal/domain/medication"
	"github.com/luminous/portal/internal/domain/records"
	"github.com/luminous/portal/internal/domain/scheduling"
)

// Explanation is the narrated explanation shown for the selected record.
type Explanation struct {
	RecordID string `json:"recordId"`
	Language string `json:"language"`
	Text     string `json:"text"`
	HasAudio bool   `json:"hasAudio"`
	AudioURL string `json:"audioUrl,omitempty"`
	Failed   bool   `json:"failed,omitempty"`
}

// RecordsPanel is the records screen's selection and explanation state.
type RecordsPanel struct {
	SelectedID  string       `json:"selectedRecordId,omitempty"`
	Language    string       `json:"language"`
	Loading     bool         `json:"loading"`
	Explanation *Explanation `json:"explanation,omitempty"`

	// seq identifies the explanation request whose result may be applied.
	seq uint64
}

// State is everything one portal session holds. Only the Controller
// mutates it.
type State struct {
	View          View                     `json:"view"`
	Profile       identity.Profile         `json:"profile"`
	Editor        identity.Editor          `json:"editor"`
	Preferences   identity.Preferences     `json:"preferences"`
	Appointments  []scheduling.Appointment `json:"appointments"`
	Medications   []medication.Medication  `json:"medications"`
	Records       []records.Item           `json:"records"`
	Notifications []inbox.Notification     `json:"notifications"`

	SelectedNotification *int                `json:"selectedNotification,omitempty"`
	Calendar             scheduling.Calendar `json:"calendar"`
	Chat                 *chat.Session       `json:"chat,omitempty"`
	ChatLoading          bool                `json:"chatLoading"`
	RecordsPanel         RecordsPanel        `json:"recordsPanel"`

	Tip    string `json:"tip,omitempty"`
	TipDay string `json:"tipDay,omitempty"`
}

// ExplainTicket identifies an explanation request issued by BeginExplain.
type ExplainTicket struct {
	Seq      uint64
	RecordID string
	Summary  string
	Language string
}

// Narration is the result of an explanation request.
type Narration struct {
	Text     string
	AudioURL string
	Failed   bool
}

// ChatTicket identifies a chat message awaiting its reply.
type ChatTicket struct {
	SessionID string
	Text      string
}

// TermsSection is one paragraph of the terms of service.
type TermsSection struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// Terms is the terms of service shown from the profile screen.
var Terms = []TermsSection{
	{"1. Acceptance of Terms", "By using Luminous Dental Care, you agree to comply with our terms of use. This app is designed for patient engagement and basic clinical tracking."},
	{"2. Medical Disclaimer", "Kady AI is not a doctor. Information provided by the AI is for educational purposes only and should not replace professional medical advice."},
	{"3. Data Privacy", "Your records and information are securely stored. We do not sell your personal health information to third parties."},
	{"4. User Responsibility", "You are responsible for the accuracy of information entered for medication tracking and appointment scheduling."},
}
