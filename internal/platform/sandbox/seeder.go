// Package sandbox provides the seeded demo data every portal session starts
// from. Nothing is persisted: each call to Generate returns a fresh copy.
package sandbox

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/luminous/portal/internal/domain/identity"
	"github.com/luminous/portal/internal/domain/inbox"
	"github.com/luminous/portal/internal/domain/medication"
	"github.com/luminous/portal/internal/domain/records"
	"github.com/luminous/portal/internal/domain/scheduling"
)

// Dataset is the full mock state of one patient.
type Dataset struct {
	Profile       identity.Profile         `json:"profile"`
	Appointments  []scheduling.Appointment `json:"appointments"`
	Medications   []medication.Medication  `json:"medications"`
	Records       []records.Item           `json:"records"`
	Notifications []inbox.Notification     `json:"notifications"`
}

func strPtr(s string) *string { return &s }

// Generate returns a new copy of the seeded dataset. Callers may mutate it
// freely.
func Generate() *Dataset {
	return &Dataset{
		Profile: identity.Profile{
			Name:        "Sarah Johnson",
			Email:       "sarah.j@example.com",
			Phone:       "+1 (555) 123-4567",
			Age:         28,
			NextCheckup: strPtr("2024-06-15"),
		},
		Appointments: []scheduling.Appointment{
			{
				ID:             "1",
				DoctorName:     "Dr. Faiz",
				TreatmentType:  "Root Canal Follow-up",
				Date:           "2024-05-20",
				Time:           "10:00 AM",
				Status:         scheduling.StatusUpcoming,
				HistorySummary: "Patient reported reduced sensitivity since last visit. Bone healing is progressing as expected. No immediate complications noted.",
				PrescribedMedications: []scheduling.PrescribedMed{
					{Name: "Amoxicillin 500mg", Duration: "5 days"},
					{Name: "Ibuprofen 400mg", Duration: "As needed for 3 days"},
				},
				VisitNotes: "Need to ask about the whitening procedure next time.",
			},
			{
				ID:             "2",
				DoctorName:     "Dr. Sarah",
				TreatmentType:  "Dental Hygiene",
				Date:           "2024-01-15",
				Time:           "02:00 PM",
				Status:         scheduling.StatusCompleted,
				HistorySummary: "Annual routine checkup. Minor plaque buildup on lower molars. Gum tissue is healthy.",
				PrescribedMedications: []scheduling.PrescribedMed{
					{Name: "Chlorhexidine Mouthwash", Duration: "14 days"},
				},
				VisitNotes: "Dr. Sarah suggested using a soft-bristled electric toothbrush.",
			},
		},
		Medications: []medication.Medication{
			{
				ID: "1", Name: "Amoxicillin", Dosage: "500mg", Frequency: "3x Daily",
				Time:         []string{"08:00", "14:00", "20:00"},
				Instructions: "Take with food",
				TakenToday:   []bool{true, false, false},
			},
			{
				ID: "2", Name: "Ibuprofen", Dosage: "400mg", Frequency: medication.AsNeeded,
				Time:         []string{medication.AsNeeded},
				Instructions: "For pain",
				TakenToday:   []bool{false},
			},
		},
		Records: []records.Item{
			{
				ID: "1", Type: records.TypePrescription, Title: "Antibiotics Course", Date: "2024-05-10", Doctor: "Dr. Faiz",
				Summary: "Patient prescribed Amoxicillin 500mg to be taken 3 times a day for 5 days. Prescribed due to minor infection observed after root canal procedure. Finish full course.",
			},
			{
				ID: "2", Type: records.TypeXRay, Title: "Full Mouth OPG", Date: "2024-01-15", Doctor: "Dr. Faiz",
				Summary: "Panoramic X-ray scan shows healthy bone structure. Lower left wisdom tooth is slightly impacted but not currently causing issues. Monitor in next checkup.",
			},
			{
				ID: "3", Type: records.TypeReport, Title: "Annual Checkup Report", Date: "2023-11-20", Doctor: "Dr. Sarah",
				Summary: "Routine checkup completed. Gum health is good. Minor plaque buildup on molars. Recommended scaling and polishing. No cavities detected.",
			},
		},
		Notifications: []inbox.Notification{
			{
				ID: 1, Text: "Dr. Faiz suggested a follow-up visit.",
				Details: "Based on your recent root canal procedure, Dr. Faiz recommends a follow-up check in 2 weeks to ensure proper healing and address any concerns.",
				Time:    "2h ago", Type: inbox.TypeAppointment,
			},
			{
				ID: 2, Text: "Don't forget your evening medication.",
				Details: "Your daily Amoxicillin dose is due at 8:00 PM. Please take it with food as prescribed.",
				Time:    "5h ago", Type: inbox.TypeMedication,
			},
			{
				ID: 3, Text: "Your cleaning results are available.",
				Details: "Your hygiene report from Jan 15 is now finalized. You can view the full details in the Records section.",
				Time:    "1d ago", Read: true, Type: inbox.TypeRecord,
			},
		},
	}
}

// ExportBundle writes the seeded dataset as indented JSON.
func ExportBundle(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Generate()); err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	return nil
}

// SeedHandler exposes the seed for client developers.
type SeedHandler struct{}

// NewSeedHandler creates a SeedHandler.
func NewSeedHandler() *SeedHandler {
	return &SeedHandler{}
}

// RegisterRoutes registers the sandbox routes.
func (h *SeedHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/sandbox/dataset", h.handleDataset)
}

func (h *SeedHandler) handleDataset(c echo.Context) error {
	return c.JSON(http.StatusOK, Generate())
}
