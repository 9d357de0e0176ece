package medication

import "errors"

// AsNeeded is the frequency of medications taken on demand. They never
// count as pending.
const AsNeeded = "As needed"

var (
	ErrMedicationNotFound = errors.New("medication not found")
	ErrDoseOutOfRange     = errors.New("dose index out of range")
)

// Medication is an active prescription with one scheduled dose per entry of
// Time. TakenToday always has the same length as Time.
type Medication struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Dosage       string   `json:"dosage"`
	Frequency    string   `json:"frequency"`
	Time         []string `json:"time"`
	Instructions string   `json:"instructions"`
	TakenToday   []bool   `json:"takenToday"`
}

func (m Medication) clone() Medication {
	m.Time = append([]string(nil), m.Time...)
	m.TakenToday = append([]bool(nil), m.TakenToday...)
	return m
}

// Pending reports whether a scheduled dose is still untaken.
func (m Medication) Pending() bool {
	if m.Frequency == AsNeeded {
		return false
	}
	for _, taken := range m.TakenToday {
		if !taken {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the collection.
func Clone(meds []Medication) []Medication {
	if meds == nil {
		return nil
	}
	out := make([]Medication, len(meds))
	for i, m := range meds {
		out[i] = m.clone()
	}
	return out
}
